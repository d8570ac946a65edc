// Package api exposes the rule engine over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/p-blackswan/safety-engine/internal/audit"
	"github.com/p-blackswan/safety-engine/internal/engine"
	"github.com/p-blackswan/safety-engine/internal/health"
	"github.com/p-blackswan/safety-engine/internal/metrics"
	"github.com/p-blackswan/safety-engine/internal/models"
)

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	ListenAddr  string
	Auth        AuthConfig
	RateLimit   RateLimitConfig
	CORSOrigins string
	// Revisions reports stored override revisions on config reads. Optional.
	Revisions   RevisionReader
}

// Server is the rule engine Fiber application.
type Server struct {
	app     *fiber.App
	limiter *rateLimiter
	logger  zerolog.Logger
	config  ServerConfig
}

// NewServer creates and configures a new API server. m may be nil.
func NewServer(
	cfg ServerConfig,
	eng *engine.Engine,
	auditLog *audit.Log,
	checker *health.Checker,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler(logger, m),
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	})

	s := &Server{
		app:    app,
		logger: logger.With().Str("component", "api_server").Logger(),
		config: cfg,
	}

	s.setupMiddleware(cfg, m)
	s.setupRoutes(NewHandlers(eng, auditLog, cfg.Revisions, logger), checker, m)

	return s
}

func (s *Server) setupMiddleware(cfg ServerConfig, m *metrics.Metrics) {
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	// Request ID
	s.app.Use(func(c *fiber.Ctx) error {
		reqID := c.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Set("X-Request-ID", reqID)
		c.Locals("request_id", reqID)
		return c.Next()
	})

	if cfg.CORSOrigins != "" {
		s.app.Use(cors.New(cors.Config{
			AllowOrigins: cfg.CORSOrigins,
			AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID, X-Tenant-ID, X-Role",
			AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
		}))
	}

	if cfg.RateLimit.RPS > 0 {
		s.limiter = newRateLimiter(cfg.RateLimit)
		go s.limiter.run()
		s.app.Use(s.limiter.handler())
	}

	s.app.Use(NewAuthMiddleware(cfg.Auth, s.logger))

	// Request log and metrics
	s.app.Use(func(c *fiber.Ctx) error {
		path := c.Path()
		if isProbePath(path) {
			return c.Next()
		}
		start := time.Now()
		err := c.Next()

		route := c.Route().Path
		status := c.Response().StatusCode()
		if err != nil {
			status = statusOf(err)
		}
		if m != nil {
			m.RecordRequest(route, strconv.Itoa(status))
			m.ObserveDuration(route, time.Since(start).Seconds())
		}

		s.logger.Info().
			Str("method", c.Method()).
			Str("path", path).
			Int("status", status).
			Str("tenant_id", tenantOf(c)).
			Str("request_id", requestID(c)).
			Dur("duration", time.Since(start)).
			Msg("api request")
		return err
	})
}

func (s *Server) setupRoutes(h *Handlers, checker *health.Checker, m *metrics.Metrics) {
	s.app.Get("/healthz", health.LivenessHandler())
	s.app.Get("/readyz", checker.ReadinessHandler())

	if m != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))
	} else {
		s.app.Get("/metrics", func(c *fiber.Ctx) error {
			return c.SendString("# No metrics collector configured\n")
		})
	}

	v1 := s.app.Group("/api/v1")

	v1.Post("/transitions/check", h.CheckTransition)
	v1.Post("/actions/check", h.CheckAction)
	v1.Get("/modules", h.ListModules)
	v1.Get("/modules/:module/actions", h.AllowedActions)
	v1.Get("/modules/:module/approval", h.ApprovalFlow)
	v1.Post("/escalation", h.Escalation)
	v1.Post("/sla", h.SLA)
	v1.Post("/access", h.Access)

	admins := requireRole(models.RoleCompanyOwner, models.RolePlatformOwner)
	v1.Get("/config/:module", h.GetConfig)
	v1.Put("/config/:module", admins, h.PutConfig)
	v1.Delete("/config/:module", admins, h.DeleteConfig)
	v1.Get("/audit", admins, h.ListAudit)
}

// Start starts the server. Blocks until stopped.
func (s *Server) Start() error {
	addr := s.config.ListenAddr
	if addr == "" {
		addr = ":8080"
	}
	s.logger.Info().Str("addr", addr).Msg("API server starting")
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.logger.Info().Msg("API server shutting down")
	if s.limiter != nil {
		s.limiter.close()
	}
	return s.app.Shutdown()
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals("request_id").(string)
	return id
}

func customErrorHandler(logger zerolog.Logger, m *metrics.Metrics) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var p *problem
		if errors.As(err, &p) {
			return problemResponse(c, p.status, p.typ, p.title, p.detail)
		}

		code := statusOf(err)
		logger.Error().
			Err(err).
			Int("status", code).
			Str("path", c.Path()).
			Str("method", c.Method()).
			Str("request_id", requestID(c)).
			Msg("unhandled error")

		if code != fiber.StatusInternalServerError {
			var fe *fiber.Error
			errors.As(err, &fe)
			return problemResponse(c, code, "http_error", fe.Message, err.Error())
		}

		if m != nil {
			m.RecordError("api", "internal_error")
		}
		// Don't leak internal details
		return problemResponse(c, code, "internal_error", "Internal Server Error",
			"An internal error occurred")
	}
}
