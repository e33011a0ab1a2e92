package server

import (
	"context"
	"time"

	"github.com/arslanov/padlock/internal/app/service"
	inthttp "github.com/arslanov/padlock/internal/http/handler"
	"github.com/arslanov/padlock/internal/http/middleware"
	httputil "github.com/arslanov/padlock/internal/http/util"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Dependencies bundles infrastructure dependencies required by the HTTP server.
type Dependencies struct {
	Logger      *zap.Logger
	Postgres    *pgxpool.Pool
	Redis       *redis.Client
	Pads        service.PadService
	Attachments *service.AttachmentService
	Summarizer  *service.Summarizer
	Tokens      *httputil.TokenSigner

	// MaxUploadBytes bounds multipart bodies before handlers see them.
	MaxUploadBytes int64
}

// Server wraps the Fiber application and its dependencies.
type Server struct {
	app  *fiber.App
	deps Dependencies
}

// New creates a new HTTP server instance with default routes.
func New(deps Dependencies) *Server {
	bodyLimit := int(deps.MaxUploadBytes)
	if bodyLimit <= 0 {
		bodyLimit = 10 << 20
	}

	app := fiber.New(fiber.Config{
		// Room for the multipart envelope around a max-size file.
		BodyLimit: bodyLimit + (1 << 20),
	})

	s := &Server{
		app:  app,
		deps: deps,
	}

	s.registerRoutes()
	return s
}

// Listen starts the Fiber server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the Fiber server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) registerRoutes() {
	s.app.Use(middleware.RequestID())
	s.app.Use(middleware.Recovery(s.deps.Logger))
	s.app.Use(middleware.Logger(s.deps.Logger))
	s.app.Use(middleware.CORS())

	// Secret-guessing entry points are rate limited; the rest is not.
	var limit fiber.Handler
	if s.deps.Redis != nil {
		limit = middleware.RateLimit(s.deps.Redis, middleware.DefaultRateLimitConfig(), s.deps.Logger)
	}

	s.app.Get("/health", s.Health)

	padHandler := inthttp.NewPadHandler(inthttp.PadDeps{
		Logger:     s.deps.Logger,
		Pads:       s.deps.Pads,
		Summarizer: s.deps.Summarizer,
		Tokens:     s.deps.Tokens,
		RateLimit:  limit,
	})
	padHandler.Register(s.app)

	attachmentHandler := inthttp.NewAttachmentHandler(inthttp.AttachmentDeps{
		Logger:      s.deps.Logger,
		Attachments: s.deps.Attachments,
	})
	attachmentHandler.Register(s.app)
}

// Health reports service liveness and Postgres reachability.
func (s *Server) Health(c *fiber.Ctx) error {
	status := "ok"
	if s.deps.Postgres != nil {
		ctx := c.UserContext()
		if ctx == nil {
			ctx = context.Background()
		}
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := s.deps.Postgres.Ping(pingCtx); err != nil {
			status = "degraded"
		}
	}

	return c.JSON(fiber.Map{
		"service": "padlock",
		"status":  status,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}
