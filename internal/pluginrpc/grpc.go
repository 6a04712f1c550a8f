package pluginrpc

import (
	"context"

	"google.golang.org/grpc"
)

// PluginHostServer is the host-side contract every RPC handler satisfies.
// Implemented by *Server in server.go.
type PluginHostServer interface {
	Initialize(context.Context, *InitializeRequest) (*StatusReply, error)
	Start(context.Context, *PluginIDRequest) (*StatusReply, error)
	Stop(context.Context, *PluginIDRequest) (*StatusReply, error)
	Shutdown(context.Context, *ShutdownRequest) (*StatusReply, error)
	GetStatus(context.Context, *PluginIDRequest) (*StatusReply, error)
	HealthCheck(context.Context, *PluginIDRequest) (*HealthReply, error)
	GetInfo(context.Context, *PluginIDRequest) (*InfoReply, error)
	GetCapabilities(context.Context, *PluginIDRequest) (*CapabilitiesReply, error)
	Configure(context.Context, *ConfigureRequest) (*StatusReply, error)
	GetConfiguration(context.Context, *PluginIDRequest) (*ConfigurationReply, error)
	Execute(context.Context, *ExecuteRequest) (*ExecuteReply, error)
}

// RegisterPluginHostServer wires srv's RPC handlers into a *grpc.Server.
func RegisterPluginHostServer(s *grpc.Server, srv PluginHostServer) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: "pluginrpc.PluginHost",
	HandlerType: (*PluginHostServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Initialize", Handler: initializeHandler},
		{MethodName: "Start", Handler: startHandler},
		{MethodName: "Stop", Handler: stopHandler},
		{MethodName: "Shutdown", Handler: shutdownHandler},
		{MethodName: "GetStatus", Handler: getStatusHandler},
		{MethodName: "HealthCheck", Handler: healthCheckHandler},
		{MethodName: "GetInfo", Handler: getInfoHandler},
		{MethodName: "GetCapabilities", Handler: getCapabilitiesHandler},
		{MethodName: "Configure", Handler: configureHandler},
		{MethodName: "GetConfiguration", Handler: getConfigurationHandler},
		{MethodName: "Execute", Handler: executeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pluginrpc.proto",
}

func initializeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(InitializeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PluginHostServer).Initialize(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/pluginrpc.PluginHost/Initialize"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PluginHostServer).Initialize(ctx, req.(*InitializeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func startHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(PluginIDRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PluginHostServer).Start(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/pluginrpc.PluginHost/Start"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PluginHostServer).Start(ctx, req.(*PluginIDRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func stopHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(PluginIDRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PluginHostServer).Stop(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/pluginrpc.PluginHost/Stop"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PluginHostServer).Stop(ctx, req.(*PluginIDRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func shutdownHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ShutdownRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PluginHostServer).Shutdown(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/pluginrpc.PluginHost/Shutdown"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PluginHostServer).Shutdown(ctx, req.(*ShutdownRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getStatusHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(PluginIDRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PluginHostServer).GetStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/pluginrpc.PluginHost/GetStatus"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PluginHostServer).GetStatus(ctx, req.(*PluginIDRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func healthCheckHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(PluginIDRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PluginHostServer).HealthCheck(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/pluginrpc.PluginHost/HealthCheck"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PluginHostServer).HealthCheck(ctx, req.(*PluginIDRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getInfoHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(PluginIDRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PluginHostServer).GetInfo(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/pluginrpc.PluginHost/GetInfo"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PluginHostServer).GetInfo(ctx, req.(*PluginIDRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getCapabilitiesHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(PluginIDRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PluginHostServer).GetCapabilities(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/pluginrpc.PluginHost/GetCapabilities"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PluginHostServer).GetCapabilities(ctx, req.(*PluginIDRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func configureHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ConfigureRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PluginHostServer).Configure(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/pluginrpc.PluginHost/Configure"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PluginHostServer).Configure(ctx, req.(*ConfigureRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getConfigurationHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(PluginIDRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PluginHostServer).GetConfiguration(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/pluginrpc.PluginHost/GetConfiguration"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PluginHostServer).GetConfiguration(ctx, req.(*PluginIDRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func executeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ExecuteRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PluginHostServer).Execute(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/pluginrpc.PluginHost/Execute"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PluginHostServer).Execute(ctx, req.(*ExecuteRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// PluginHostClient is a client stub for cross-process inspection of a
// running host (GetStatus, HealthCheck, GetInfo). cmd/pluginhost does not
// use it; its subcommands go through the in-process Manager.
type PluginHostClient struct {
	cc *grpc.ClientConn
}

// NewPluginHostClient wraps an existing connection.
func NewPluginHostClient(cc *grpc.ClientConn) *PluginHostClient {
	return &PluginHostClient{cc: cc}
}

func (c *PluginHostClient) GetStatus(ctx context.Context, in *PluginIDRequest) (*StatusReply, error) {
	out := new(StatusReply)
	if err := c.cc.Invoke(ctx, "/pluginrpc.PluginHost/GetStatus", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *PluginHostClient) HealthCheck(ctx context.Context, in *PluginIDRequest) (*HealthReply, error) {
	out := new(HealthReply)
	if err := c.cc.Invoke(ctx, "/pluginrpc.PluginHost/HealthCheck", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *PluginHostClient) GetInfo(ctx context.Context, in *PluginIDRequest) (*InfoReply, error) {
	out := new(InfoReply)
	if err := c.cc.Invoke(ctx, "/pluginrpc.PluginHost/GetInfo", in, out); err != nil {
		return nil, err
	}
	return out, nil
}
