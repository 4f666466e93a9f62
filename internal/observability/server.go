package observability

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsServer exposes /metrics and /healthz while the client runs.
type MetricsServer struct {
	app  *fiber.App
	addr string
}

// NewMetricsServer builds the fiber app serving the prometheus registry.
func NewMetricsServer(addr string) *MetricsServer {
	app := fiber.New(fiber.Config{
		AppName:               "agora metrics",
		DisableStartupMessage: true,
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	return &MetricsServer{app: app, addr: addr}
}

// App returns the underlying fiber app.
func (s *MetricsServer) App() *fiber.App {
	return s.app
}

// Start listens in the background. Listen errors are logged, never fatal:
// metrics are optional for a client.
func (s *MetricsServer) Start() {
	go func() {
		if err := s.app.Listen(s.addr); err != nil && !errors.Is(err, context.Canceled) {
			GlobalLogger.Error("metrics server stopped", slog.String("addr", s.addr), slog.String("error", err.Error()))
		}
	}()
	GlobalLogger.Info("metrics server listening", slog.String("addr", s.addr))
}

// Shutdown stops the listener.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
