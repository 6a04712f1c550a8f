package registrystore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Ikey168/Modulo-sub007/internal/errors"
	"github.com/Ikey168/Modulo-sub007/internal/models"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "registry.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleRecord(id string, state models.LifecycleState) models.RegistryRecord {
	now := time.Now().Truncate(time.Millisecond)
	return models.RegistryRecord{
		ID:             id,
		Descriptor:     models.Descriptor{Name: "widget", Version: "1.0.0"},
		BundlePath:     "/bundles/widget",
		LastKnownState: state,
		Config:         map[string]string{"threshold": "10"},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestSQLiteStore_PutThenGetRoundTrips(t *testing.T) {
	store := newTestSQLiteStore(t)
	record := sampleRecord("plugin-1", models.StateActive)

	require.NoError(t, store.Put(context.Background(), record))

	got, err := store.Get(context.Background(), "plugin-1")
	require.NoError(t, err)
	assert.Equal(t, record.Descriptor.Name, got.Descriptor.Name)
	assert.Equal(t, record.BundlePath, got.BundlePath)
	assert.Equal(t, models.StateActive, got.LastKnownState)
	assert.Equal(t, "10", got.Config["threshold"])
	assert.True(t, record.CreatedAt.Equal(got.CreatedAt))
}

func TestSQLiteStore_PutUpsertsOnConflict(t *testing.T) {
	store := newTestSQLiteStore(t)
	record := sampleRecord("plugin-1", models.StateActive)
	require.NoError(t, store.Put(context.Background(), record))

	record.LastKnownState = models.StateInactive
	record.BundlePath = "/bundles/widget-v2"
	require.NoError(t, store.Put(context.Background(), record))

	got, err := store.Get(context.Background(), "plugin-1")
	require.NoError(t, err)
	assert.Equal(t, models.StateInactive, got.LastKnownState)
	assert.Equal(t, "/bundles/widget-v2", got.BundlePath)
}

func TestSQLiteStore_GetMissingIDIsNotFound(t *testing.T) {
	store := newTestSQLiteStore(t)
	_, err := store.Get(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindNotFound, err.(*apperrors.AppError).Kind)
}

func TestSQLiteStore_DeleteIsIdempotent(t *testing.T) {
	store := newTestSQLiteStore(t)
	record := sampleRecord("plugin-1", models.StateActive)
	require.NoError(t, store.Put(context.Background(), record))

	require.NoError(t, store.Delete(context.Background(), "plugin-1"))
	require.NoError(t, store.Delete(context.Background(), "plugin-1"))

	_, err := store.Get(context.Background(), "plugin-1")
	require.Error(t, err)
}

func TestSQLiteStore_ListActiveFiltersByState(t *testing.T) {
	store := newTestSQLiteStore(t)
	require.NoError(t, store.Put(context.Background(), sampleRecord("active-1", models.StateActive)))
	require.NoError(t, store.Put(context.Background(), sampleRecord("active-2", models.StateActive)))
	require.NoError(t, store.Put(context.Background(), sampleRecord("inactive-1", models.StateInactive)))

	active, err := store.ListActive(context.Background())
	require.NoError(t, err)
	assert.Len(t, active, 2)
	for _, rec := range active {
		assert.Equal(t, models.StateActive, rec.LastKnownState)
	}
}
