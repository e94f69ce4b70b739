package api

import (
	"context"
	"time"

	"betbot/models"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

// StatsSource provides the figures reported on /health
type StatsSource interface {
	BotStats(ctx context.Context) models.BotStats
}

// HealthResponse is the JSON body of /health
type HealthResponse struct {
	Status          string `json:"status"`
	Platform        string `json:"platform"`
	UptimeSeconds   int64  `json:"uptime_seconds"`
	TotalUsers      int    `json:"total_users"`
	LiveWagers      int    `json:"live_wagers"`
	PendingDeposits int    `json:"pending_deposits"`
}

// HealthServer answers liveness probes over HTTP
type HealthServer struct {
	app      *fiber.App
	stats    StatsSource
	platform string
	started  time.Time
}

// NewHealthServer builds the fiber app and registers its routes
func NewHealthServer(stats StatsSource, platform string, started time.Time) *HealthServer {
	s := &HealthServer{
		app: fiber.New(fiber.Config{
			DisableStartupMessage: true,
			ReadTimeout:           10 * time.Second,
			WriteTimeout:          10 * time.Second,
		}),
		stats:    stats,
		platform: platform,
		started:  started,
	}

	s.app.Get("/", s.handleRoot)
	s.app.Get("/health", s.handleHealth)
	return s
}

// App exposes the fiber app for tests
func (s *HealthServer) App() *fiber.App {
	return s.app
}

func (s *HealthServer) handleRoot(c *fiber.Ctx) error {
	return c.SendString("Bet Bot is running.")
}

func (s *HealthServer) handleHealth(c *fiber.Ctx) error {
	stats := s.stats.BotStats(c.UserContext())
	return c.JSON(HealthResponse{
		Status:          "ok",
		Platform:        s.platform,
		UptimeSeconds:   int64(time.Since(s.started).Seconds()),
		TotalUsers:      stats.TotalUsers,
		LiveWagers:      stats.LiveWagers,
		PendingDeposits: stats.PendingDeposits,
	})
}

// Listen serves until Shutdown is called
func (s *HealthServer) Listen(addr string) error {
	log.WithField("addr", addr).Info("Health check server listening")
	return s.app.Listen(addr)
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *HealthServer) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
