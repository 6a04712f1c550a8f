package plugins

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru"

	apperrors "github.com/Ikey168/Modulo-sub007/internal/errors"
	"github.com/Ikey168/Modulo-sub007/internal/logger"
	"github.com/Ikey168/Modulo-sub007/internal/models"
)

// BundleSuffix is the accepted local and remote bundle file extension.
const BundleSuffix = ".bundle"

// manifestCacheSize bounds the local loader's in-memory manifest cache.
const manifestCacheSize = 64

// LoadedBundle is the result of a successful local load: the parsed
// descriptor plus a constructed-but-not-initialized handler, ready for
// the plugin manager to Initialize and Start.
type LoadedBundle struct {
	Descriptor models.Descriptor
	Handler    PluginHandler
}

// LocalLoader opens a bundle from the filesystem and resolves its single
// declared entry point. No bundle code is ever executed during load -
// only its manifest is read, and the entry object is constructed but
// never initialized.
type LocalLoader struct {
	manifestCache *lru.Cache
}

// NewLocalLoader constructs a LocalLoader with its manifest cache.
func NewLocalLoader() *LocalLoader {
	cache, _ := lru.New(manifestCacheSize) // error only on invalid size
	return &LocalLoader{manifestCache: cache}
}

// Load reads a bundle manifest at path and constructs its entry object.
// path may be a *.bundle manifest file or a directory containing one
// named manifest.json.
func (l *LocalLoader) Load(path string) (*LoadedBundle, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, apperrors.NotFound("bundle path " + path)
	}

	manifestPath := path
	if info.IsDir() {
		manifestPath = filepath.Join(path, "manifest.json")
	} else if !strings.HasSuffix(path, BundleSuffix) && !strings.HasSuffix(path, ".json") {
		return nil, apperrors.Invalid("not a recognized bundle file: " + path)
	}

	manifest, err := l.readManifest(manifestPath)
	if err != nil {
		return nil, err
	}

	switch len(manifest.Entrypoints) {
	case 0:
		return nil, apperrors.Invalid("bundle declares no entry points")
	default:
		if len(manifest.Entrypoints) > 1 {
			return nil, apperrors.Invalid("bundle declares ambiguous entry points: " + strings.Join(manifest.Entrypoints, ", "))
		}
	}

	entryName := manifest.Entrypoints[0]
	factory, ok := GetGlobalRegistry().Get(entryName)
	if !ok {
		return nil, apperrors.Invalid("declared entry point not registered: " + entryName)
	}

	handler := factory() // constructed only; Initialize is the manager's job

	// Identity (name/version/kind/runtime) is authoritative from the
	// manifest, since that's what the submission validator checked
	// against the bundle; capabilities, permissions, and event
	// declarations come from the entry object's own GetInfo().
	declared := handler.GetInfo()
	descriptor := models.Descriptor{
		Name:                manifest.PluginName,
		Version:             manifest.PluginVersion,
		Kind:                models.KindInternal,
		Runtime:             models.RuntimeBundle,
		Author:              declared.Author,
		Description:         declared.Description,
		Capabilities:        declared.Capabilities,
		RequiredPermissions: declared.RequiredPermissions,
		SubscribedEvents:    declared.SubscribedEvents,
		PublishedEvents:     declared.PublishedEvents,
	}

	logger.Local().Debug().Str("path", path).Str("plugin", descriptor.Name).Msg("loaded bundle")

	return &LoadedBundle{Descriptor: descriptor, Handler: handler}, nil
}

func (l *LocalLoader) readManifest(manifestPath string) (*models.BundleManifest, error) {
	if cached, ok := l.manifestCache.Get(manifestPath); ok {
		m := cached.(models.BundleManifest)
		return &m, nil
	}

	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, apperrors.Invalid("malformed bundle: missing manifest at " + manifestPath)
	}

	var manifest models.BundleManifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return nil, apperrors.Invalid("malformed bundle manifest: " + err.Error())
	}

	if manifest.PluginName == "" || manifest.PluginVersion == "" ||
		manifest.PluginMainClass == "" || manifest.PluginAPIVersion == "" {
		return nil, apperrors.Invalid("manifest missing required attributes")
	}

	l.manifestCache.Add(manifestPath, manifest)
	return &manifest, nil
}
