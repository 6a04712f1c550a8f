package pluginrpc

import (
	"context"

	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// RateLimitInterceptor rejects unary RPCs once the surface exceeds rps
// requests per second (burst requests in a single tick). One limiter is
// shared across every call, matching the gRPC surface's role as a
// single host-local control plane rather than a per-client API.
func RateLimitInterceptor(rps float64, burst int) grpc.UnaryServerInterceptor {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if !limiter.Allow() {
			return nil, status.Errorf(codes.ResourceExhausted, "plugin host rpc surface rate limit exceeded")
		}
		return handler(ctx, req)
	}
}
