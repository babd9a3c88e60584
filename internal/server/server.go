// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"log"
	"time"

	_ "linkshelf/docs" // swagger docs
	"linkshelf/internal/bootstrap"
	"linkshelf/internal/config"
	"linkshelf/internal/database"
	"linkshelf/internal/featureflags"
	"linkshelf/internal/metadata"
	"linkshelf/internal/middleware"
	"linkshelf/internal/models"
	"linkshelf/internal/notifications"
	"linkshelf/internal/observability"
	"linkshelf/internal/repository"
	"linkshelf/internal/service"
	"linkshelf/internal/validation"

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

// LinkPreviewer fetches link previews for GET /api/metadata.
type LinkPreviewer interface {
	Fetch(ctx context.Context, rawURL string) (*metadata.Preview, error)
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	validator      *validation.Validator
	featureFlags   *featureflags.Manager
	notifier       *notifications.Notifier
	hub            *notifications.Hub
	previewer      LinkPreviewer

	authService     *service.AuthService
	bookmarkService *service.BookmarkService
	favoriteService *service.FavoriteService
	commentService  *service.CommentService
	tagService      *service.TagService
	userService     *service.UserService
	adminService    *service.AdminService
	settingsService *service.SettingsService
	seoService      *service.SEOService
}

// NewServer connects to the database and Redis, applies the schema and builds the server.
func NewServer(cfg *config.Config) (*Server, error) {
	db, redisClient, err := bootstrap.InitRuntime(context.Background(), cfg, bootstrap.Options{})
	if err != nil {
		return nil, err
	}
	if err := observability.RegisterGormMetrics(db); err != nil {
		log.Printf("gorm metrics disabled: %v", err)
	}
	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis itself.
// A nil redisClient disables realtime, logout revocation and throttling storage.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	userRepo := repository.NewUserRepository(db)
	bookmarkRepo := repository.NewBookmarkRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	favoriteRepo := repository.NewFavoriteRepository(db)
	tagRepo := repository.NewTagRepository(db)
	settingRepo := repository.NewSettingRepository(db)

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("linkshelf-api"),
		validator:      validation.New(),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		previewer:      metadata.NewFetcher(),
	}

	// Notifier is nil-safe, so services can always publish.
	server.notifier = notifications.NewNotifier(redisClient)
	if redisClient != nil {
		server.hub = notifications.NewHub()
	}

	server.authService = service.NewAuthService(userRepo, server.featureFlags, redisClient, cfg.JWTSecret)
	server.bookmarkService = service.NewBookmarkService(bookmarkRepo, commentRepo)
	server.favoriteService = service.NewFavoriteService(favoriteRepo, server.notifier)
	server.commentService = service.NewCommentService(commentRepo, bookmarkRepo, server.notifier)
	server.tagService = service.NewTagService(tagRepo)
	server.userService = service.NewUserService(userRepo)
	server.adminService = service.NewAdminService(userRepo, bookmarkRepo, tagRepo)
	server.settingsService = service.NewSettingsService(settingRepo)
	server.seoService = service.NewSEOService(bookmarkRepo, tagRepo, userRepo, server.settingsService, cfg.PublicBaseURL)

	return server, nil
}

// NewApp builds a fiber app with the shared error handler.
func NewApp() *fiber.App {
	return fiber.New(fiber.Config{
		AppName:   "linkshelf API",
		BodyLimit: 1 * 1024 * 1024,
		// Handlers write their own errors; this only catches what escapes them.
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return models.RespondWithError(c, fe.Code, fe)
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
			return models.RespondWithAppError(c, err)
		},
	})
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so short-circuited responses still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return models.RespondWithError(c, fiber.StatusTooManyRequests,
				&models.AppError{Code: "RATE_LIMITED", Message: "too many requests, please try again later"})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/sitemap.xml", s.Sitemap)
	app.Get("/robots.txt", s.Robots)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{Title: "linkshelf metrics"}))
	api.Get("/swagger/*", swagger.HandlerDefault)

	auth := api.Group("/auth")
	auth.Post("/register", middleware.RateLimit(s.redis, 5, 10*time.Minute, "register"), s.Register)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout", s.AuthRequired(), s.Logout)

	bookmarks := api.Group("/bookmarks")
	bookmarks.Get("/", s.OptionalAuth(), s.ListBookmarks)
	bookmarks.Post("/", s.AuthRequired(), middleware.RateLimit(s.redis, 30, time.Minute, "create_bookmark"), s.CreateBookmark)
	// POST /favorite is registered before /:id so it is never parsed as an id
	bookmarks.Post("/favorite", s.AuthRequired(), middleware.RateLimit(s.redis, 60, time.Minute, "favorite"), s.ToggleFavorite)
	bookmarks.Get("/:id", s.OptionalAuth(), s.GetBookmark)
	bookmarks.Put("/:id", s.AuthRequired(), s.UpdateBookmark)
	bookmarks.Delete("/:id", s.AuthRequired(), s.DeleteBookmark)

	comments := api.Group("/comments")
	comments.Get("/", s.OptionalAuth(), s.GetComments)
	comments.Post("/", s.AuthRequired(), middleware.RateLimit(s.redis, 20, time.Minute, "create_comment"), s.CreateComment)
	comments.Put("/:id", s.AuthRequired(), s.UpdateComment)
	comments.Delete("/:id", s.AuthRequired(), s.DeleteComment)

	tags := api.Group("/tags")
	tags.Get("/", s.ListTags)
	tags.Get("/:slug", s.GetTag)

	users := api.Group("/users")
	users.Get("/me", s.AuthRequired(), s.GetMyProfile)
	users.Put("/me", s.AuthRequired(), s.UpdateMyProfile)
	users.Get("/:username", s.OptionalAuth(), s.GetUserProfile)

	api.Get("/metadata", s.AuthRequired(), middleware.RateLimit(s.redis, 30, time.Minute, "metadata"), s.GetMetadata)
	api.Get("/settings/site", s.GetSiteSettings)

	api.Post("/ws/ticket", s.AuthRequired(), s.IssueWSTicket)
	api.Get("/ws", s.WebSocketUpgrade(), s.WebsocketHandler())

	admin := api.Group("/admin", s.AuthRequired(), s.AdminRequired())
	admin.Get("/users", s.AdminListUsers)
	admin.Patch("/users/:id", s.AdminUpdateUser)
	admin.Post("/users/:id/role", s.AdminSetRole)
	admin.Patch("/tags/:slug", s.AdminUpdateTag)
	admin.Delete("/tags/:slug", s.AdminDeleteTag)
	admin.Get("/settings/:key", s.AdminGetSetting)
	admin.Put("/settings/:key", s.AdminPutSetting)
	admin.Post("/maintenance/reconcile", s.AdminReconcile)
	admin.Get("/feature-flags", s.GetFeatureFlags)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports 503 when the database is unreachable. Redis is optional: without it
// the API still serves reads and writes, so it only degrades the report.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		middleware.Logger.WarnContext(ctx, "readiness: database ping failed", "error", err)
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	switch {
	case dbStatus != "healthy":
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	case redisStatus != "healthy":
		overall = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := NewApp()
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	if s.hub != nil {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				log.Printf("failed to start %s wiring: %v", s.hub.Name(), err)
			}
		}()
	}

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if s.hub != nil {
		if err := s.hub.Shutdown(ctx); err != nil {
			log.Printf("error shutting down %s: %v", s.hub.Name(), err)
		}
	}

	if err := database.Close(s.db); err != nil {
		log.Printf("error closing sql DB: %v", err)
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
