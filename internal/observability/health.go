package observability

import (
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Health serves the standard gRPC health protocol. The overall status ("")
// and named service statuses start NOT_SERVING until marked otherwise.
type Health struct {
	addr   string
	logger *zap.Logger

	grpcServer   *grpc.Server
	healthServer *health.Server

	mu       sync.Mutex
	listener net.Listener
}

// NewHealth creates a health service that will listen on addr.
//
// Precondition: logger must be non-nil.
func NewHealth(addr string, logger *zap.Logger) *Health {
	h := &Health{
		addr:         addr,
		logger:       logger,
		grpcServer:   grpc.NewServer(),
		healthServer: health.NewServer(),
	}
	healthpb.RegisterHealthServer(h.grpcServer, h.healthServer)
	h.healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

// SetServing reports service (empty for the whole server) as serving or not.
func (h *Health) SetServing(service string, serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.healthServer.SetServingStatus(service, status)
	h.logger.Debug("health status changed",
		zap.String("service", service),
		zap.String("status", status.String()),
	)
}

// Start listens and serves until Stop is called.
//
// Postcondition: Returns nil after a clean Stop.
func (h *Health) Start() error {
	lis, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", h.addr, err)
	}
	h.mu.Lock()
	h.listener = lis
	h.mu.Unlock()

	h.logger.Info("health service listening", zap.String("addr", lis.Addr().String()))
	if err := h.grpcServer.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return fmt.Errorf("serving health: %w", err)
	}
	return nil
}

// Stop marks every service NOT_SERVING and stops the server.
func (h *Health) Stop() {
	h.healthServer.Shutdown()
	h.grpcServer.GracefulStop()
}

// Addr returns the listening address, or empty string before Start.
func (h *Health) Addr() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.listener == nil {
		return ""
	}
	return h.listener.Addr().String()
}
