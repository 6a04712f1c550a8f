package registrystore

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/mattn/go-sqlite3"

	apperrors "github.com/Ikey168/Modulo-sub007/internal/errors"
	"github.com/Ikey168/Modulo-sub007/internal/logger"
	"github.com/Ikey168/Modulo-sub007/internal/models"
)

// SQLiteStore is a single-node Store implementation, used for tests and
// small deployments where a Postgres server would be overkill.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) a SQLite database at path and
// ensures the registry schema exists. WAL mode is enabled for concurrent
// read access while the manager writes.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to enable WAL mode", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS registry_records (
			id TEXT PRIMARY KEY,
			descriptor TEXT NOT NULL,
			bundle_path TEXT NOT NULL,
			last_known_state TEXT NOT NULL,
			config TEXT,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_registry_records_state ON registry_records(last_known_state);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return apperrors.Wrap(apperrors.KindInternal, "failed to migrate registry schema", err)
	}
	return nil
}

func (s *SQLiteStore) Put(ctx context.Context, record models.RegistryRecord) error {
	configJSON, err := json.Marshal(record.Config)
	if err != nil {
		return apperrors.Invalid("could not marshal config")
	}

	// record.Descriptor is passed straight through its driver.Valuer.
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO registry_records (id, descriptor, bundle_path, last_known_state, config, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			descriptor = excluded.descriptor,
			bundle_path = excluded.bundle_path,
			last_known_state = excluded.last_known_state,
			config = excluded.config,
			updated_at = excluded.updated_at
	`, record.ID, record.Descriptor, record.BundlePath, string(record.LastKnownState),
		string(configJSON), record.CreatedAt.UnixMilli(), record.UpdatedAt.UnixMilli())
	if err != nil {
		return apperrors.Wrap(apperrors.KindInternal, "failed to persist registry record", err)
	}

	logger.Store().Debug().Str("plugin", record.ID).Msg("persisted registry record")
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*models.RegistryRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, descriptor, bundle_path, last_known_state, config, created_at, updated_at
		FROM registry_records WHERE id = ?
	`, id)
	return scanSQLiteRecord(row)
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM registry_records WHERE id = ?`, id)
	if err != nil {
		return apperrors.Wrap(apperrors.KindInternal, "failed to delete registry record", err)
	}
	return nil
}

func (s *SQLiteStore) ListActive(ctx context.Context) ([]models.RegistryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, descriptor, bundle_path, last_known_state, config, created_at, updated_at
		FROM registry_records WHERE last_known_state = ?
	`, string(models.StateActive))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to list active registry records", err)
	}
	defer rows.Close()

	var out []models.RegistryRecord
	for rows.Next() {
		rec, err := scanSQLiteRecord(rows)
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

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanSQLiteRecord(row rowScanner) (*models.RegistryRecord, error) {
	var rec models.RegistryRecord
	var configRaw string
	var state string
	var createdMs, updatedMs int64

	// &rec.Descriptor satisfies sql.Scanner, decoding the stored column.
	err := row.Scan(&rec.ID, &rec.Descriptor, &rec.BundlePath, &state, &configRaw, &createdMs, &updatedMs)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("registry record")
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to scan registry record", err)
	}

	rec.LastKnownState = models.LifecycleState(state)
	rec.CreatedAt = time.UnixMilli(createdMs)
	rec.UpdatedAt = time.UnixMilli(updatedMs)

	if configRaw != "" && configRaw != "null" {
		if err := json.Unmarshal([]byte(configRaw), &rec.Config); err != nil {
			return nil, apperrors.Invalid("stored config is malformed")
		}
	}
	return &rec, nil
}
