package server

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/perbu/ragchain/pkg/chain"
	"github.com/perbu/ragchain/pkg/metrics"
	"github.com/perbu/ragchain/pkg/state"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

const (
	HealthPath  = "/health"
	MetricsPath = "/metrics"
)

type Config struct {
	Port int
	// InitWait bounds how long a query waits for a pending index load.
	// Zero rejects queries immediately until the index is ready.
	InitWait time.Duration
}

type Server struct {
	cfg        Config
	logger     *logrus.Logger
	app        *fiber.App
	retrievers *state.Future[chain.Retriever]
	pipeline   *chain.Pipeline
	metrics    *metrics.Metrics
}

func New(cfg Config, retrievers *state.Future[chain.Retriever], pipeline *chain.Pipeline, m *metrics.Metrics, logger *logrus.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		Network:               fiber.NetworkTCP,
		ReadTimeout:           60 * time.Second,
		IdleTimeout:           120 * time.Second,
	})
	app.Server().NoDefaultServerHeader = true

	s := &Server{
		cfg:        cfg,
		logger:     logger,
		app:        app,
		retrievers: retrievers,
		pipeline:   pipeline,
		metrics:    m,
	}

	app.Use(recover.New())
	app.Get("/", s.handleQuery)
	app.Get(HealthPath, s.handleHealth)
	metricsHandler := fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	app.Get(MetricsPath, func(c *fiber.Ctx) error {
		metricsHandler(c.Context())
		return nil
	})

	return s
}

// App exposes the underlying fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run listens on the configured port until Shutdown is called.
func (s *Server) Run() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.logger.WithField("addr", addr).Info("query server listening")
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	status := s.retrievers.Status()
	code := fiber.StatusServiceUnavailable
	label := status.String()
	if status == state.Ready {
		code = fiber.StatusOK
		label = "ok"
	}
	return c.Status(code).JSON(fiber.Map{
		"status": label,
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) retriever(ctx context.Context) (chain.Retriever, error) {
	if s.cfg.InitWait <= 0 {
		return s.retrievers.Get()
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.InitWait)
	defer cancel()
	return s.retrievers.Await(ctx)
}
