package api

import (
	"fmt"
	"net"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the grpc health service name reported for the bot
const ServiceName = "betbot"

// GRPCHealth serves the standard grpc health protocol
type GRPCHealth struct {
	server *grpc.Server
	health *health.Server
}

func NewGRPCHealth() *GRPCHealth {
	server := grpc.NewServer()
	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, hs)

	hs.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	return &GRPCHealth{server: server, health: hs}
}

// SetServing flips both the overall and the bot service status
func (g *GRPCHealth) SetServing(serving bool) {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	g.health.SetServingStatus("", status)
	g.health.SetServingStatus(ServiceName, status)
}

// Serve blocks until Stop is called
func (g *GRPCHealth) Serve(lis net.Listener) error {
	log.WithField("addr", lis.Addr().String()).Info("grpc health server listening")
	if err := g.server.Serve(lis); err != nil {
		return fmt.Errorf("failed to serve grpc health: %w", err)
	}
	return nil
}

// Stop marks the services as not serving and stops the server
func (g *GRPCHealth) Stop() {
	g.health.Shutdown()
	g.server.GracefulStop()
}
