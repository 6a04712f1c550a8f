// Package registrystore persists installed plugin records outside process
// memory, so the plugin manager's view of what is installed survives a
// restart. Two backends are provided: Postgres for a production host and
// SQLite for a single-node or test deployment; both implement the same
// Store interface.
package registrystore

import (
	"context"

	"github.com/Ikey168/Modulo-sub007/internal/models"
)

// Store is the registry store collaborator the plugin manager reads and
// writes installed plugin records through. Every call is safe under the
// manager's own per-plugin-id mutex; the store itself adds no additional
// locking beyond what its driver already provides.
type Store interface {
	// Put inserts or replaces the record for record.ID.
	Put(ctx context.Context, record models.RegistryRecord) error

	// Get returns the record for id, or a NotFound *errors.AppError if
	// it has never been installed.
	Get(ctx context.Context, id string) (*models.RegistryRecord, error)

	// Delete removes the record for id. Idempotent: deleting an id that
	// doesn't exist is not an error.
	Delete(ctx context.Context, id string) error

	// ListActive returns every record whose LastKnownState is Active,
	// used to rehydrate the manager's in-memory instances on startup.
	ListActive(ctx context.Context) ([]models.RegistryRecord, error)

	// Close releases the underlying connection.
	Close() error
}
