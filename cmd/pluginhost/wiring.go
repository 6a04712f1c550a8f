package main

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Ikey168/Modulo-sub007/internal/config"
	"github.com/Ikey168/Modulo-sub007/internal/logger"
	"github.com/Ikey168/Modulo-sub007/internal/plugins"
	"github.com/Ikey168/Modulo-sub007/internal/registrystore"
)

// host bundles every collaborator the plugin manager needs, wired from a
// loaded Config. It exists so main.go's subcommands share one construction
// path instead of each re-deriving it.
type host struct {
	cfg     *config.Config
	manager *plugins.Manager
	store   registrystore.Store
	remote  *plugins.RemoteLoader
}

func newHost(cfg *config.Config) (*host, error) {
	logger.Initialize(cfg.LogLevel, cfg.LogPretty)

	store, err := openStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("open registry store: %w", err)
	}

	bus := plugins.NewEventBus()

	security, err := plugins.NewSecurityManager()
	if err != nil {
		return nil, fmt.Errorf("init security manager: %w", err)
	}

	local := plugins.NewLocalLoader()

	remote, err := plugins.NewRemoteLoader(cfg.CacheRoot, local)
	if err != nil {
		return nil, fmt.Errorf("init remote loader: %w", err)
	}
	remote.SetMaxBundleSize(cfg.MaxBundleSizeBytes)
	remote.BlockHosts(cfg.BlockedHostPatterns...)

	mgr := plugins.NewManager(bus, security, local, remote, store)
	mgr.SetLifecycleTimeouts(cfg.InstallTimeout(), cfg.StopTimeout())

	return &host{cfg: cfg, manager: mgr, store: store, remote: remote}, nil
}

func openStore(cfg *config.Config) (registrystore.Store, error) {
	switch cfg.StoreDriver {
	case "postgres":
		return registrystore.NewPostgresStore(registrystore.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPassword,
			DBName:   cfg.PostgresDBName,
			SSLMode:  cfg.PostgresSSLMode,
		})
	default:
		return registrystore.NewSQLiteStore(cfg.SQLitePath)
	}
}

// newRepositoryClient wires C6 separately from the manager's collaborators,
// since only the marketplace CLI subcommands (search, categories,
// featured) use it.
func newRepositoryClient(cfg *config.Config) *plugins.RepositoryClient {
	var cache *redis.Client
	if cfg.RedisAddr != "" {
		cache = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	}
	return plugins.NewRepositoryClient(cfg.DefaultRepositories, cache)
}
