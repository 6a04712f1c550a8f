package plugins

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Ikey168/Modulo-sub007/internal/errors"
	"github.com/Ikey168/Modulo-sub007/internal/models"
)

func init() {
	Register("test-echo-entry", func() PluginHandler {
		return &BasePlugin{Descriptor: models.Descriptor{Name: "echo", Version: "1.0.0"}}
	})
}

func writeManifest(t *testing.T, dir string, manifest models.BundleManifest) string {
	t.Helper()
	raw, err := json.Marshal(manifest)
	require.NoError(t, err)
	path := filepath.Join(dir, "manifest.json")
	require.NoError(t, os.WriteFile(path, raw, 0o644))
	return dir
}

func validManifest() models.BundleManifest {
	return models.BundleManifest{
		PluginName:       "echo",
		PluginVersion:    "1.0.0",
		PluginMainClass:  "EchoPlugin",
		PluginAPIVersion: "1",
		Entrypoints:      []string{"test-echo-entry"},
	}
}

func TestLocalLoader_LoadsValidBundleDirectory(t *testing.T) {
	dir := writeManifest(t, t.TempDir(), validManifest())

	loader := NewLocalLoader()
	loaded, err := loader.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "echo", loaded.Descriptor.Name)
	assert.Equal(t, models.KindInternal, loaded.Descriptor.Kind)
	assert.NotNil(t, loaded.Handler)
}

func TestLocalLoader_RejectsZeroEntrypoints(t *testing.T) {
	m := validManifest()
	m.Entrypoints = nil
	dir := writeManifest(t, t.TempDir(), m)

	loader := NewLocalLoader()
	_, err := loader.Load(dir)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindInvalid, err.(*apperrors.AppError).Kind)
}

func TestLocalLoader_RejectsAmbiguousEntrypoints(t *testing.T) {
	m := validManifest()
	m.Entrypoints = []string{"test-echo-entry", "another-entry"}
	dir := writeManifest(t, t.TempDir(), m)

	loader := NewLocalLoader()
	_, err := loader.Load(dir)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindInvalid, err.(*apperrors.AppError).Kind)
}

func TestLocalLoader_RejectsUnregisteredEntrypoint(t *testing.T) {
	m := validManifest()
	m.Entrypoints = []string{"no-such-entry"}
	dir := writeManifest(t, t.TempDir(), m)

	loader := NewLocalLoader()
	_, err := loader.Load(dir)
	require.Error(t, err)
}

func TestLocalLoader_RejectsMissingManifestAttributes(t *testing.T) {
	m := validManifest()
	m.PluginVersion = ""
	dir := writeManifest(t, t.TempDir(), m)

	loader := NewLocalLoader()
	_, err := loader.Load(dir)
	require.Error(t, err)
}

func TestLocalLoader_RejectsMissingPath(t *testing.T) {
	loader := NewLocalLoader()
	_, err := loader.Load(filepath.Join(t.TempDir(), "does-not-exist"))
	require.Error(t, err)
	assert.Equal(t, apperrors.KindNotFound, err.(*apperrors.AppError).Kind)
}

func TestLocalLoader_CachesManifestByPath(t *testing.T) {
	dir := writeManifest(t, t.TempDir(), validManifest())
	loader := NewLocalLoader()

	first, err := loader.Load(dir)
	require.NoError(t, err)

	// Mutate the manifest on disk; a cache hit must still return the
	// previously parsed result rather than re-reading it.
	m := validManifest()
	m.PluginName = "changed"
	writeManifest(t, dir, m)

	second, err := loader.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, first.Descriptor.Name, second.Descriptor.Name)
}
