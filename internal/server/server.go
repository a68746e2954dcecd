// Package server contains the HTTP and WebSocket handlers of the quotewall API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "quotewall/docs" // swagger docs
	"quotewall/internal/cache"
	"quotewall/internal/config"
	"quotewall/internal/database"
	"quotewall/internal/featureflags"
	"quotewall/internal/middleware"
	"quotewall/internal/models"
	"quotewall/internal/notifications"
	"quotewall/internal/repository"
	"quotewall/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const publicPrefix = "/api/public"

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	notifier       *notifications.Notifier
	hub            *notifications.Hub
	featureFlags   *featureflags.Manager

	projectService     *service.ProjectService
	tokenService       *service.TokenService
	testimonialService *service.TestimonialService
	widgetService      *service.WidgetService
	collectLinkService *service.CollectLinkService
}

// NewServer connects to the database and Redis and builds a server on top of them.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Redis is optional: caching, events and rate limits degrade without it.
	cache.InitRedis(cfg.RedisURL)

	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cfg == nil || db == nil {
		return nil, fmt.Errorf("config and database are required")
	}

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("quotewall-api"),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
	}

	if redisClient != nil {
		s.notifier = notifications.NewNotifier(redisClient)
		s.hub = notifications.NewHub()
	}

	tokenRepo := repository.NewTokenRepository(db)
	testimonialRepo := repository.NewTestimonialRepository(db)
	widgetRepo := repository.NewWidgetRepository(db)
	linkRepo := repository.NewCollectLinkRepository(db)

	s.projectService = service.NewProjectService(repository.NewProjectRepository(db))
	s.tokenService = service.NewTokenService(tokenRepo, cfg.AppURL, s.notifier)
	s.collectLinkService = service.NewCollectLinkService(linkRepo, s.tokenService, s.notifier)
	s.testimonialService = service.NewTestimonialService(s.tokenService, s.collectLinkService, testimonialRepo, widgetRepo, s.notifier)
	s.widgetService = service.NewWidgetService(widgetRepo, testimonialRepo, s.featureFlags, s.notifier,
		time.Duration(cfg.WidgetCacheTTLSeconds)*time.Second)

	return s, nil
}

// NewApp builds the Fiber app with the full middleware stack and every route.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "Quotewall API",
		BodyLimit: 1 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok && fe.Code < fiber.StatusInternalServerError {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.MetricsMiddleware(s.promMiddleware))

	// The widget is rendered inside third-party pages, so helmet must not forbid framing it.
	app.Use(helmet.New(helmet.Config{
		Next: func(c *fiber.Ctx) bool { return strings.HasPrefix(c.Path(), publicPrefix+"/widgets") },
	}))

	app.Use(middleware.StructuredLogger())

	// Public endpoints are called from customer pages and embeds on any origin.
	app.Use(cors.New(cors.Config{
		Next:         func(c *fiber.Ctx) bool { return !strings.HasPrefix(c.Path(), publicPrefix) },
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		Next:             func(c *fiber.Ctx) bool { return strings.HasPrefix(c.Path(), publicPrefix) },
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{Title: "Quotewall Metrics"}))
	api.Get("/swagger/*", swagger.HandlerDefault)

	public := app.Group(publicPrefix)
	public.Get("/collect/:slug", middleware.RateLimit(s.redis, 60, time.Minute, "collect_page"), s.GetCollectPage)
	public.Post("/collect/:slug", middleware.RateLimit(s.redis, 10, time.Minute, "collect_submit"), s.SubmitTestimonial)
	public.Get("/widgets/content", middleware.RateLimit(s.redis, 600, time.Minute, "widget_content"), s.GetWidgetContent)
	public.Post("/widgets/content", middleware.RateLimit(s.redis, 600, time.Minute, "widget_content"), s.PostWidgetContent)

	auth := middleware.AuthConfig{
		Secret:   s.config.AuthJWTSecret,
		Issuer:   s.config.AuthIssuer,
		Audience: s.config.AuthAudience,
	}

	// Registered ahead of the projects group so its header-only auth never runs here.
	// Browsers cannot set headers on websocket upgrades, so ?token= is accepted.
	wsAuth := auth
	wsAuth.AllowQueryToken = true
	api.Get("/projects/:projectId/events", middleware.AuthRequired(wsAuth), s.ProjectAccess(), s.ProjectEvents())

	projects := api.Group("/projects", middleware.AuthRequired(auth))
	projects.Post("/", middleware.RateLimit(s.redis, 10, time.Hour, "create_project"), s.CreateProject)
	projects.Get("/", s.ListProjects)

	project := projects.Group("/:projectId", s.ProjectAccess())
	project.Get("/feature-flags", s.GetFeatureFlags)
	project.Post("/members", s.AddProjectMember)

	tokens := project.Group("/tokens")
	tokens.Get("/", s.ListTokens)
	tokens.Get("/stats", s.GetTokenStats)
	tokens.Post("/", middleware.RateLimit(s.redis, 120, time.Minute, "issue_token"), s.IssueToken)
	tokens.Post("/:tokenId/cancel", s.CancelToken)

	testimonials := project.Group("/testimonials")
	testimonials.Get("/", s.ListTestimonials)
	testimonials.Post("/:testimonialId/approve", s.ToggleTestimonialApproved)
	testimonials.Post("/:testimonialId/feature", s.ToggleTestimonialFeatured)

	widget := project.Group("/widget")
	widget.Get("/", s.GetWidget)
	widget.Put("/", s.UpdateWidget)
	widget.Get("/domains", s.GetAllowedDomains)
	widget.Put("/domains", s.SetAllowedDomains)

	link := project.Group("/collect-link")
	link.Get("/", s.GetCollectLink)
	link.Post("/toggle", s.ToggleCollectLink)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now().UTC(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now().UTC(),
	})
}

// Start builds the app, wires live events and listens on the configured port.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.NewApp()

	if s.notifier != nil && s.hub != nil {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				middleware.Logger.Error("failed to start event wiring",
					slog.String("hub", s.hub.Name()), slog.String("error", err.Error()))
			}
		}()
	}

	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if s.hub != nil {
		if err := s.hub.Shutdown(ctx); err != nil {
			middleware.Logger.Error("error shutting down hub", slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
