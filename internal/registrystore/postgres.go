package registrystore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"time"

	_ "github.com/lib/pq"

	apperrors "github.com/Ikey168/Modulo-sub007/internal/errors"
	"github.com/Ikey168/Modulo-sub007/internal/logger"
	"github.com/Ikey168/Modulo-sub007/internal/models"
)

// PostgresConfig holds connection parameters for the Postgres-backed store.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

var (
	hostnameRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9\-\.]{0,253}[a-zA-Z0-9])?$`)
	identRegex    = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

func validatePostgresConfig(c PostgresConfig) error {
	if c.Host == "" {
		return fmt.Errorf("database host cannot be empty")
	}
	if net.ParseIP(c.Host) == nil && !hostnameRegex.MatchString(c.Host) {
		return fmt.Errorf("invalid database host: %s", c.Host)
	}

	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid database port: %s", c.Port)
	}

	if c.User == "" || !identRegex.MatchString(c.User) {
		return fmt.Errorf("invalid database user: %s", c.User)
	}
	if c.DBName == "" || !identRegex.MatchString(c.DBName) {
		return fmt.Errorf("invalid database name: %s", c.DBName)
	}

	switch c.SSLMode {
	case "", "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
	default:
		return fmt.Errorf("invalid SSL mode: %s", c.SSLMode)
	}
	return nil
}

// PostgresStore is the production Store implementation: one row per
// installed plugin in a single registry_records table, descriptor and
// config persisted as JSONB.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection pool and ensures the registry schema
// exists. Pool tuning: 25 open, 5 idle, 5 minute max lifetime.
func NewPostgresStore(cfg PostgresConfig) (*PostgresStore, error) {
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}
	if err := validatePostgresConfig(cfg); err != nil {
		return nil, apperrors.Invalid("invalid registry store configuration: " + err.Error())
	}

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to ping registry database", err)
	}

	store := &PostgresStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *PostgresStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS registry_records (
			id VARCHAR(255) PRIMARY KEY,
			descriptor JSONB NOT NULL,
			bundle_path TEXT NOT NULL,
			last_known_state VARCHAR(50) NOT NULL,
			config JSONB,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_registry_records_state ON registry_records(last_known_state);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return apperrors.Wrap(apperrors.KindInternal, "failed to migrate registry schema", err)
	}
	return nil
}

func (s *PostgresStore) Put(ctx context.Context, record models.RegistryRecord) error {
	configJSON, err := json.Marshal(record.Config)
	if err != nil {
		return apperrors.Invalid("could not marshal config")
	}

	// record.Descriptor is passed straight through its driver.Valuer.
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO registry_records (id, descriptor, bundle_path, last_known_state, config, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			descriptor = EXCLUDED.descriptor,
			bundle_path = EXCLUDED.bundle_path,
			last_known_state = EXCLUDED.last_known_state,
			config = EXCLUDED.config,
			updated_at = EXCLUDED.updated_at
	`, record.ID, record.Descriptor, record.BundlePath, record.LastKnownState, configJSON,
		record.CreatedAt, record.UpdatedAt)
	if err != nil {
		return apperrors.Wrap(apperrors.KindInternal, "failed to persist registry record", err)
	}

	logger.Store().Debug().Str("plugin", record.ID).Msg("persisted registry record")
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*models.RegistryRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, descriptor, bundle_path, last_known_state, config, created_at, updated_at
		FROM registry_records WHERE id = $1
	`, id)
	return scanRecord(row)
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM registry_records WHERE id = $1`, id)
	if err != nil {
		return apperrors.Wrap(apperrors.KindInternal, "failed to delete registry record", err)
	}
	return nil
}

func (s *PostgresStore) ListActive(ctx context.Context) ([]models.RegistryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, descriptor, bundle_path, last_known_state, config, created_at, updated_at
		FROM registry_records WHERE last_known_state = $1
	`, models.StateActive)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to list active registry records", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*models.RegistryRecord, error) {
	var rec models.RegistryRecord
	var configRaw []byte

	// &rec.Descriptor satisfies sql.Scanner, decoding the JSONB column.
	err := row.Scan(&rec.ID, &rec.Descriptor, &rec.BundlePath, &rec.LastKnownState,
		&configRaw, &rec.CreatedAt, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("registry record")
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to scan registry record", err)
	}

	if len(configRaw) > 0 {
		if err := json.Unmarshal(configRaw, &rec.Config); err != nil {
			return nil, apperrors.Invalid("stored config is malformed")
		}
	}
	return &rec, nil
}

func scanRecords(rows *sql.Rows) ([]models.RegistryRecord, error) {
	var out []models.RegistryRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "error iterating registry records", err)
	}
	return out, nil
}
