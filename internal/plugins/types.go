// Package plugins implements the Modulo plugin runtime: discovery,
// validation, install/start/stop lifecycle, capability-based security,
// content-addressed remote loading, a publish/subscribe event bus, and a
// repository client for browsing remote plugin catalogs.
//
// The runtime treats a plugin as a capability set rather than a fixed
// class hierarchy: every plugin satisfies PluginHandler (the "entry"
// capability); event delivery is conditional on whether the plugin's
// PluginHandler also implements EventHandler ("event-handler" capability).
package plugins

import (
	"context"
	"time"

	"github.com/Ikey168/Modulo-sub007/internal/models"
)

// HealthStatus is the coarse status a plugin reports from HealthCheck.
type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthUnhealthy HealthStatus = "unhealthy"
	HealthUnknown   HealthStatus = "unknown"
)

// Health is the result of a plugin health check.
type Health struct {
	Status  HealthStatus
	Message string
}

// PluginContext is handed to a plugin on every lifecycle call. It is the
// plugin's narrow view of the host: its own config and a way to publish
// events, never a reference to the manager itself.
type PluginContext struct {
	PluginID string
	Config   map[string]string
	Publish  func(eventType string, payload interface{})
}

// PluginHandler is the entry capability every plugin must implement. It
// mirrors the host-visible plugin entry interface: metadata, lifecycle,
// and health.
type PluginHandler interface {
	GetInfo() models.Descriptor
	Initialize(ctx *PluginContext) error
	Start(ctx *PluginContext) error
	Stop(ctx *PluginContext) error
	HealthCheck(ctx *PluginContext) Health
	GetCapabilities() []string
	GetRequiredPermissions() []string
	GetSubscribedEvents() []string
	GetPublishedEvents() []string
}

// EventHandler is the optional event-handler capability. A PluginHandler
// that also implements EventHandler receives events for the types listed
// in its descriptor's SubscribedEvents (from GetInfo); one that doesn't is
// silently skipped
// during delivery, per the event subscriber contract.
type EventHandler interface {
	OnEvent(ctx context.Context, event Event) error
}

// Event is a typed, ordered notification delivered through the event bus.
type Event struct {
	Type     string
	Origin   string // plugin id, or "system"
	Sequence uint64
	Payload  interface{}
}

// SystemOrigin is the Event.Origin value for host-published events.
const SystemOrigin = "system"

const (
	EventPluginInstalled   = "system.plugin.installed"
	EventPluginUninstalled = "system.plugin.uninstalled"
	EventPluginUnhealthy   = "system.plugin.unhealthy"
	EventApplicationStop   = "system.application.stopping"
)

// Instance is a live plugin: its descriptor, its entry handle, current
// lifecycle state, configuration, and security token. Descriptors are
// read-only for the lifetime of the instance.
type Instance struct {
	ID         string
	Descriptor models.Descriptor
	Handler    PluginHandler
	State      models.LifecycleState
	Config     map[string]string
	Token      string

	subscriptions []SubscriptionHandle
	createdAt     time.Time
	updatedAt     time.Time
}
