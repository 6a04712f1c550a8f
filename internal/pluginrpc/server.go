// Package pluginrpc exposes the plugin manager over gRPC for
// out-of-process (external/sidecar) plugins and host-side tooling. It
// does not authenticate callers (the serve command puts only a rate-limit
// interceptor in front of it), and it never lets a
// manager error cross the wire as a transport failure: every RPC
// returns success=false with a message instead.
package pluginrpc

import (
	"context"
	"fmt"

	"github.com/Ikey168/Modulo-sub007/internal/logger"
	"github.com/Ikey168/Modulo-sub007/internal/plugins"
)

// Server adapts a *plugins.Manager to the PluginHost gRPC service.
type Server struct {
	manager *plugins.Manager
}

// NewServer wraps mgr for gRPC exposure.
func NewServer(mgr *plugins.Manager) *Server {
	return &Server{manager: mgr}
}

func (s *Server) Initialize(ctx context.Context, req *InitializeRequest) (*StatusReply, error) {
	id, err := s.manager.Install(ctx, req.Path, req.Config)
	if err != nil {
		return &StatusReply{Success: false, Message: err.Error()}, nil
	}
	return &StatusReply{Success: true, Message: "installed", PluginID: id}, nil
}

func (s *Server) Start(ctx context.Context, req *PluginIDRequest) (*StatusReply, error) {
	if err := s.manager.Start(ctx, req.PluginID); err != nil {
		return &StatusReply{Success: false, Message: err.Error(), PluginID: req.PluginID}, nil
	}
	return &StatusReply{Success: true, Message: "started", PluginID: req.PluginID}, nil
}

func (s *Server) Stop(ctx context.Context, req *PluginIDRequest) (*StatusReply, error) {
	if err := s.manager.Stop(ctx, req.PluginID); err != nil {
		return &StatusReply{Success: false, Message: err.Error(), PluginID: req.PluginID}, nil
	}
	return &StatusReply{Success: true, Message: "stopped", PluginID: req.PluginID}, nil
}

func (s *Server) Shutdown(ctx context.Context, _ *ShutdownRequest) (*StatusReply, error) {
	s.manager.Shutdown(ctx)
	return &StatusReply{Success: true, Message: "shutdown complete"}, nil
}

func (s *Server) GetStatus(ctx context.Context, req *PluginIDRequest) (*StatusReply, error) {
	inst, ok := s.manager.Get(req.PluginID)
	if !ok {
		return &StatusReply{Success: false, Message: "plugin not installed", PluginID: req.PluginID}, nil
	}
	return &StatusReply{Success: true, Message: string(inst.State), PluginID: req.PluginID}, nil
}

func (s *Server) HealthCheck(ctx context.Context, req *PluginIDRequest) (*HealthReply, error) {
	health := s.manager.Health(req.PluginID)
	return &HealthReply{
		Success: health.Status != plugins.HealthUnhealthy,
		Message: health.Message,
		Status:  string(health.Status),
	}, nil
}

func (s *Server) GetInfo(ctx context.Context, req *PluginIDRequest) (*InfoReply, error) {
	inst, ok := s.manager.Get(req.PluginID)
	if !ok {
		return &InfoReply{Success: false, Message: "plugin not installed"}, nil
	}
	return &InfoReply{
		Success: true,
		Name:    inst.Descriptor.Name,
		Version: inst.Descriptor.Version,
		Kind:    string(inst.Descriptor.Kind),
		Runtime: string(inst.Descriptor.Runtime),
	}, nil
}

func (s *Server) GetCapabilities(ctx context.Context, req *PluginIDRequest) (*CapabilitiesReply, error) {
	inst, ok := s.manager.Get(req.PluginID)
	if !ok {
		return &CapabilitiesReply{Success: false, Message: "plugin not installed"}, nil
	}
	caps := safeCapabilities(inst)
	return &CapabilitiesReply{Success: true, Capabilities: caps}, nil
}

func safeCapabilities(inst *plugins.Instance) (caps []string) {
	defer func() {
		if r := recover(); r != nil {
			caps = nil
			logger.RPC().Warn().Str("plugin", inst.ID).Interface("panic", r).Msg("GetCapabilities panicked")
		}
	}()
	return inst.Handler.GetCapabilities()
}

func (s *Server) Configure(ctx context.Context, req *ConfigureRequest) (*StatusReply, error) {
	if err := s.manager.SetConfig(req.PluginID, req.Config); err != nil {
		return &StatusReply{Success: false, Message: err.Error(), PluginID: req.PluginID}, nil
	}
	return &StatusReply{Success: true, Message: "configuration updated", PluginID: req.PluginID}, nil
}

func (s *Server) GetConfiguration(ctx context.Context, req *PluginIDRequest) (*ConfigurationReply, error) {
	cfg, ok := s.manager.GetConfig(req.PluginID)
	if !ok {
		return &ConfigurationReply{Success: false, Message: "plugin not installed"}, nil
	}
	return &ConfigurationReply{Success: true, Config: cfg}, nil
}

// Execute exists for plugins that expose a host-triggered action outside
// the start/stop/health lifecycle.
// The current plugin handler contract has no such entry point, so this
// always reports unsupported rather than guessing at a calling
// convention.
func (s *Server) Execute(ctx context.Context, req *ExecuteRequest) (*ExecuteReply, error) {
	if _, ok := s.manager.Get(req.PluginID); !ok {
		return &ExecuteReply{Success: false, Message: "plugin not installed"}, nil
	}
	return &ExecuteReply{
		Success: false,
		Message: fmt.Sprintf("operation %q is not supported by this plugin's handler contract", req.Operation),
	}, nil
}
