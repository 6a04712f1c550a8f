package plugins

import (
	"github.com/Ikey168/Modulo-sub007/internal/models"
)

// BasePlugin provides no-op defaults for every PluginHandler method.
// Internal plugins embed it and override only what they need.
type BasePlugin struct {
	Descriptor models.Descriptor
}

func (p *BasePlugin) GetInfo() models.Descriptor { return p.Descriptor }

func (p *BasePlugin) Initialize(ctx *PluginContext) error { return nil }

func (p *BasePlugin) Start(ctx *PluginContext) error { return nil }

func (p *BasePlugin) Stop(ctx *PluginContext) error { return nil }

func (p *BasePlugin) HealthCheck(ctx *PluginContext) Health {
	return Health{Status: HealthHealthy}
}

func (p *BasePlugin) GetCapabilities() []string { return p.Descriptor.Capabilities }

func (p *BasePlugin) GetRequiredPermissions() []string { return p.Descriptor.RequiredPermissions }

func (p *BasePlugin) GetSubscribedEvents() []string { return p.Descriptor.SubscribedEvents }

func (p *BasePlugin) GetPublishedEvents() []string { return p.Descriptor.PublishedEvents }
