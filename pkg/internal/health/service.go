// Package health serves the gRPC health checking protocol
// (https://godoc.org/google.golang.org/grpc/health/grpc_health_v1)
// for probes like https://github.com/grpc-ecosystem/grpc-health-probe.
package health

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	rpc "google.golang.org/grpc/health/grpc_health_v1"
)

// CheckFn reports the serving status.
type CheckFn func(ctx context.Context) (*rpc.HealthCheckResponse, error)

// Serving is a CheckFn of a healthy service.
func Serving(context.Context) (*rpc.HealthCheckResponse, error) {
	return &rpc.HealthCheckResponse{Status: rpc.HealthCheckResponse_SERVING}, nil
}

// New listens on addr and returns a function serving health checks
// answered by checkFn until stop is closed.
func New(addr string) (run func(stop <-chan struct{}, checkFn CheckFn) error, err error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return func(stop <-chan struct{}, checkFn CheckFn) error {
		s := grpc.NewServer(grpc.ConnectionTimeout(time.Second * 3))
		rpc.RegisterHealthServer(s, &server{checkFn: checkFn})
		go func() {
			<-stop
			s.Stop()
		}()
		return s.Serve(ln)
	}, nil
}

type server struct {
	rpc.UnimplementedHealthServer
	checkFn CheckFn
}

func (s *server) Check(ctx context.Context, _ *rpc.HealthCheckRequest) (*rpc.HealthCheckResponse, error) {
	return s.checkFn(ctx)
}
