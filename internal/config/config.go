// Package config loads the plugin runtime's host-visible knobs from a
// YAML file, then lets MODULO_-prefixed environment variables override
// individual fields, with defaults filled in for anything left unset.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every host-visible knob the plugin runtime exposes.
type Config struct {
	// CacheRoot is the directory remote bundle downloads are cached under.
	CacheRoot string `yaml:"cacheRoot"`

	// MaxBundleSizeBytes caps a single remote bundle download.
	MaxBundleSizeBytes int64 `yaml:"maxBundleSizeBytes"`

	// ConnectTimeoutMS is added to ReadTimeoutMS to form the install
	// command's overall deadline. The remote loader's own dial and
	// request timeouts are fixed (30s and 60s) and do not read it.
	ConnectTimeoutMS int `yaml:"connectTimeoutMs"`

	// ReadTimeoutMS is the deadline of each marketplace command and part
	// of the install command's deadline (see ConnectTimeoutMS).
	ReadTimeoutMS int `yaml:"readTimeoutMs"`

	// BlockedHostPatterns extends the SSRF defense's static CIDR list
	// with additional hostnames (exact, case-insensitive) or CIDR ranges
	// to reject outright.
	BlockedHostPatterns []string `yaml:"blockedHostPatterns"`

	// DefaultRepositories seeds the repository client's search list.
	DefaultRepositories []string `yaml:"defaultRepositories"`

	// InstallTimeoutMS bounds a single plugin's initialize+start call
	// during install.
	InstallTimeoutMS int `yaml:"installTimeoutMs"`

	// StopTimeoutMS bounds a single plugin's stop call during shutdown.
	StopTimeoutMS int `yaml:"stopTimeoutMs"`

	// HealthSweepCron is the cron spec the health sweep runs on.
	HealthSweepCron string `yaml:"healthSweepCron"`

	// APIMajorVersion is the major series new submissions must be
	// compatible with.
	APIMajorVersion string `yaml:"apiMajorVersion"`

	// LogLevel and LogPretty configure the ambient logger.
	LogLevel  string `yaml:"logLevel"`
	LogPretty bool   `yaml:"logPretty"`

	// StoreDriver selects the registry store backend: "sqlite" or
	// "postgres".
	StoreDriver string `yaml:"storeDriver"`

	// SQLitePath is the database file used when StoreDriver is "sqlite".
	SQLitePath string `yaml:"sqlitePath"`

	// Postgres* configure the registry store when StoreDriver is
	// "postgres".
	PostgresHost     string `yaml:"postgresHost"`
	PostgresPort     string `yaml:"postgresPort"`
	PostgresUser     string `yaml:"postgresUser"`
	PostgresPassword string `yaml:"postgresPassword"`
	PostgresDBName   string `yaml:"postgresDbName"`
	PostgresSSLMode  string `yaml:"postgresSslMode"`

	// RedisAddr enables the repository client's search-result cache when
	// non-empty. Left empty, the repository client runs without a cache.
	RedisAddr string `yaml:"redisAddr"`

	// GRPCListenAddr is the address the plugin host's gRPC surface binds.
	GRPCListenAddr string `yaml:"grpcListenAddr"`

	// GRPCRateLimitRPS and GRPCRateLimitBurst bound the gRPC surface's
	// shared rate limiter.
	GRPCRateLimitRPS   float64 `yaml:"grpcRateLimitRps"`
	GRPCRateLimitBurst int     `yaml:"grpcRateLimitBurst"`
}

func defaults() Config {
	return Config{
		CacheRoot:           "/var/lib/modulo/plugin-cache",
		MaxBundleSizeBytes:  50 * 1024 * 1024,
		ConnectTimeoutMS:    30_000,
		ReadTimeoutMS:       60_000,
		InstallTimeoutMS:    60_000,
		StopTimeoutMS:       30_000,
		HealthSweepCron:     "@every 30s",
		APIMajorVersion:     "1",
		LogLevel:            "info",
		LogPretty:           false,
		DefaultRepositories: []string{},
		BlockedHostPatterns: []string{},
		StoreDriver:         "sqlite",
		SQLitePath:          "/var/lib/modulo/plugin-registry.db",
		PostgresSSLMode:     "disable",
		GRPCListenAddr:      ":7443",
		GRPCRateLimitRPS:    50,
		GRPCRateLimitBurst:  100,
	}
}

// Load reads path (if it exists) over the built-in defaults, then applies
// MODULO_-prefixed environment variable overrides, then validates.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnvOverrides(c *Config) {
	if v := os.Getenv("MODULO_CACHE_ROOT"); v != "" {
		c.CacheRoot = v
	}
	if v := os.Getenv("MODULO_MAX_BUNDLE_SIZE_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.MaxBundleSizeBytes = n
		}
	}
	if v := os.Getenv("MODULO_CONNECT_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.ConnectTimeoutMS = n
		}
	}
	if v := os.Getenv("MODULO_READ_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.ReadTimeoutMS = n
		}
	}
	if v := os.Getenv("MODULO_INSTALL_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.InstallTimeoutMS = n
		}
	}
	if v := os.Getenv("MODULO_STOP_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.StopTimeoutMS = n
		}
	}
	if v := os.Getenv("MODULO_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("MODULO_LOG_PRETTY"); v != "" {
		c.LogPretty = v == "true" || v == "1"
	}
	if v := os.Getenv("MODULO_API_MAJOR_VERSION"); v != "" {
		c.APIMajorVersion = v
	}
	if v := os.Getenv("MODULO_STORE_DRIVER"); v != "" {
		c.StoreDriver = v
	}
	if v := os.Getenv("MODULO_SQLITE_PATH"); v != "" {
		c.SQLitePath = v
	}
	if v := os.Getenv("MODULO_POSTGRES_HOST"); v != "" {
		c.PostgresHost = v
	}
	if v := os.Getenv("MODULO_POSTGRES_PORT"); v != "" {
		c.PostgresPort = v
	}
	if v := os.Getenv("MODULO_POSTGRES_USER"); v != "" {
		c.PostgresUser = v
	}
	if v := os.Getenv("MODULO_POSTGRES_PASSWORD"); v != "" {
		c.PostgresPassword = v
	}
	if v := os.Getenv("MODULO_POSTGRES_DB_NAME"); v != "" {
		c.PostgresDBName = v
	}
	if v := os.Getenv("MODULO_POSTGRES_SSL_MODE"); v != "" {
		c.PostgresSSLMode = v
	}
	if v := os.Getenv("MODULO_REDIS_ADDR"); v != "" {
		c.RedisAddr = v
	}
	if v := os.Getenv("MODULO_GRPC_LISTEN_ADDR"); v != "" {
		c.GRPCListenAddr = v
	}
	if v := os.Getenv("MODULO_GRPC_RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.GRPCRateLimitRPS = f
		}
	}
	if v := os.Getenv("MODULO_GRPC_RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.GRPCRateLimitBurst = n
		}
	}
}

// Validate fills in any remaining zero-value knobs and rejects
// configurations that can never produce a working runtime.
func (c *Config) Validate() error {
	if c.CacheRoot == "" {
		return fmt.Errorf("cacheRoot must not be empty")
	}
	if c.MaxBundleSizeBytes <= 0 {
		return fmt.Errorf("maxBundleSizeBytes must be positive")
	}
	if c.ConnectTimeoutMS <= 0 {
		c.ConnectTimeoutMS = 30_000
	}
	if c.ReadTimeoutMS <= 0 {
		c.ReadTimeoutMS = 60_000
	}
	if c.InstallTimeoutMS <= 0 {
		c.InstallTimeoutMS = 60_000
	}
	if c.StopTimeoutMS <= 0 {
		c.StopTimeoutMS = 30_000
	}
	if c.HealthSweepCron == "" {
		c.HealthSweepCron = "@every 30s"
	}
	if c.APIMajorVersion == "" {
		c.APIMajorVersion = "1"
	}
	if c.StoreDriver == "" {
		c.StoreDriver = "sqlite"
	}
	if c.StoreDriver != "sqlite" && c.StoreDriver != "postgres" {
		return fmt.Errorf("storeDriver must be \"sqlite\" or \"postgres\", got %q", c.StoreDriver)
	}
	if c.GRPCListenAddr == "" {
		c.GRPCListenAddr = ":7443"
	}
	if c.GRPCRateLimitRPS <= 0 {
		c.GRPCRateLimitRPS = 50
	}
	if c.GRPCRateLimitBurst <= 0 {
		c.GRPCRateLimitBurst = 100
	}
	return nil
}

// ConnectTimeout returns ConnectTimeoutMS as a time.Duration.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutMS) * time.Millisecond
}

// ReadTimeout returns ReadTimeoutMS as a time.Duration.
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutMS) * time.Millisecond
}

// InstallTimeout returns InstallTimeoutMS as a time.Duration.
func (c *Config) InstallTimeout() time.Duration {
	return time.Duration(c.InstallTimeoutMS) * time.Millisecond
}

// StopTimeout returns StopTimeoutMS as a time.Duration.
func (c *Config) StopTimeout() time.Duration {
	return time.Duration(c.StopTimeoutMS) * time.Millisecond
}
