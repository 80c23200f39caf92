// Package gateway exposes the fan-out coordinator over HTTP, replacing the
// per-script fan-out endpoints with one service.
package gateway

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/KushagraWadhwaShorthillsAI/weaviate-pt-v2/internal/metrics"
	"github.com/KushagraWadhwaShorthillsAI/weaviate-pt-v2/pkg/fanout"
	"github.com/KushagraWadhwaShorthillsAI/weaviate-pt-v2/pkg/logger"
)

// Config holds the gateway server settings.
type Config struct {
	Address      string        `yaml:"address"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	EnableCORS   bool          `yaml:"enable_cors"`
}

// Server is the HTTP gateway over one fan-out coordinator.
type Server struct {
	app      *fiber.App
	coord    *fanout.Coordinator
	single   fanout.BackendClient
	recorder *metrics.BatchRecorder
	targets  []fanout.ShardTarget
	deadline time.Duration
	cfg      Config
}

// New creates the gateway. single is used for the raw pass-through
// endpoint; recorder may be nil.
func New(cfg Config, coord *fanout.Coordinator, single fanout.BackendClient, recorder *metrics.BatchRecorder, targets []fanout.ShardTarget, deadline time.Duration) *Server {
	s := &Server{
		coord:    coord,
		single:   single,
		recorder: recorder,
		targets:  targets,
		deadline: deadline,
		cfg:      cfg,
	}

	s.app = fiber.New(fiber.Config{
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		DisableStartupMessage: true,
	})
	s.app.Use(fiberrecover.New())
	if cfg.EnableCORS {
		s.app.Use(cors.New())
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Post("/graphql/async", s.handleAsync)
	s.app.Post("/graphql", s.handlePassthrough)
	s.app.Get("/health", s.handleHealth)
	s.app.Get("/summary", s.handleSummary)
}

// App returns the fiber app, used by tests.
func (s *Server) App() *fiber.App { return s.app }

// Listen serves until Shutdown is called.
func (s *Server) Listen() error {
	logger.L().Info("gateway listening",
		zap.String("address", s.cfg.Address),
		zap.Int("collections", len(s.targets)),
		zap.Duration("deadline", s.deadline))
	return s.app.Listen(s.cfg.Address)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
