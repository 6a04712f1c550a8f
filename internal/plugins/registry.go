// Package plugins - registry.go
//
// This file implements the global plugin registry for internal (compile-
// time-linked) plugins. Every bundle the local loader resolves names an
// entry point that must be registered here; out-of-process plugins do not
// appear here and reach the host through the gRPC surface (C8).
//
// # Auto-Registration Pattern
//
// Internal plugins register themselves using Go's init() function pattern:
//
//	package wordcount
//
//	import "github.com/Ikey168/Modulo-sub007/internal/plugins"
//
//	func init() {
//	    plugins.Register("word-count", func() plugins.PluginHandler {
//	        return &WordCount{}
//	    })
//	}
//
// This registration happens automatically when the plugin package is
// imported, without requiring explicit registration calls in application
// code.
//
// # Thread Safety
//
// The global registry is thread-safe: an RWMutex protects the plugins
// map, and readers (Get, GetAll) don't block each other.
//
// # Known Limitations
//
//  1. No unregister: once registered, a plugin factory can't be removed.
//  2. No versioning: can't register multiple versions of the same name.
//  3. In-process only: factories are Go code linked into the binary;
//     Register can be called at any time, but nothing is loaded from
//     outside the process.
package plugins

import (
	"sync"

	"github.com/Ikey168/Modulo-sub007/internal/logger"
)

// PluginFactory constructs a fresh PluginHandler instance. Registering a
// factory rather than an instance lets the manager create independent
// instances and supports tests that swap in fakes.
type PluginFactory func() PluginHandler

var globalRegistry = &GlobalPluginRegistry{plugins: make(map[string]PluginFactory)}

// GlobalPluginRegistry manages registration and discovery of internal
// plugins. Populated at program startup by plugin init() functions.
type GlobalPluginRegistry struct {
	plugins map[string]PluginFactory
	mu      sync.RWMutex
}

// Register registers a plugin globally (called from a plugin's init()).
func Register(name string, factory PluginFactory) {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()

	if _, exists := globalRegistry.plugins[name]; exists {
		logger.Runtime().Warn().Str("plugin", name).Msg("plugin already registered, overwriting")
	}

	globalRegistry.plugins[name] = factory
	logger.Runtime().Debug().Str("plugin", name).Msg("auto-registered internal plugin")
}

// GetGlobalRegistry returns the global plugin registry.
func GetGlobalRegistry() *GlobalPluginRegistry {
	return globalRegistry
}

// GetAll returns a copy of all registered plugin factories.
func (r *GlobalPluginRegistry) GetAll() map[string]PluginFactory {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]PluginFactory, len(r.plugins))
	for name, factory := range r.plugins {
		out[name] = factory
	}
	return out
}

// Get retrieves a specific plugin factory.
func (r *GlobalPluginRegistry) Get(name string) (PluginFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, exists := r.plugins[name]
	return factory, exists
}

// List returns all registered plugin names.
func (r *GlobalPluginRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.plugins))
	for name := range r.plugins {
		names = append(names, name)
	}
	return names
}
