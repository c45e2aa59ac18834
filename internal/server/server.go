// Package server contains the HTTP layer: dependency wiring, routes,
// and handlers for the scheduling API.
package server

import (
	"context"
	"fmt"
	"time"

	"meetsync/internal/cache"
	"meetsync/internal/calendar"
	"meetsync/internal/config"
	"meetsync/internal/coordinator"
	"meetsync/internal/database"
	"meetsync/internal/middleware"
	"meetsync/internal/notifications"
	"meetsync/internal/repository"
	"meetsync/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers.
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	promMiddleware *fiberprometheus.FiberPrometheus

	userRepo       repository.UserRepository
	friendRepo     repository.FriendRepository
	proposalRepo   repository.ProposalRepository
	eventRepo      repository.EventRepository
	invitationRepo repository.InvitationRepository

	locks    *coordinator.KeyedMutex
	limiter  *coordinator.ExternalLimiter
	debounce *coordinator.Debouncer
	notifier *notifications.Notifier

	availabilityService *service.AvailabilityService
	proposalService     *service.ProposalService
	friendService       *service.FriendService
	syncService         *calendar.SyncService
}

// NewServer creates a server, establishing its own database and Redis
// connections.
func NewServer(cfg *config.Config, provider calendar.Provider) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	redisClient := cache.Connect(cfg.RedisURL)
	return NewServerWithDeps(cfg, db, redisClient, provider)
}

// NewServerWithDeps creates a Server using already-initialized
// dependencies. Used by tests and by bootstrap layers that establish
// DB/Redis themselves.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, provider calendar.Provider) (*Server, error) {
	// The default Prometheus registry rejects duplicate collectors, so
	// the per-test server instances skip the HTTP metrics middleware.
	var prom *fiberprometheus.FiberPrometheus
	if !cfg.IsTest() {
		prom = middleware.InitMetrics("meetsync-api")
	}

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: prom,

		userRepo:       repository.NewUserRepository(db),
		friendRepo:     repository.NewFriendRepository(db),
		proposalRepo:   repository.NewProposalRepository(db),
		eventRepo:      repository.NewEventRepository(db),
		invitationRepo: repository.NewInvitationRepository(db),

		locks:    coordinator.NewKeyedMutex(),
		limiter:  coordinator.NewExternalLimiter(cfg.ExternalPoolSize),
		debounce: coordinator.NewDebouncer(),
		notifier: notifications.NewNotifier(redisClient),
	}

	lockTimeout := time.Duration(cfg.LockTimeoutSeconds) * time.Second
	appCache := cache.New(redisClient, 5*time.Minute)

	s.availabilityService = service.NewAvailabilityService(
		s.userRepo, s.eventRepo, s.friendRepo, appCache)
	s.proposalService = service.NewProposalService(
		s.userRepo, s.friendRepo, s.proposalRepo, s.eventRepo,
		s.availabilityService, s.locks, s.notifier,
		lockTimeout, cfg.AutoSelectDays)
	s.friendService = service.NewFriendService(
		s.userRepo, s.friendRepo, s.invitationRepo,
		s.locks, s.notifier, lockTimeout)
	s.syncService = calendar.NewSyncService(
		provider, s.eventRepo, s.locks, s.limiter, s.debounce,
		calendar.SyncOptions{
			DebounceWindow: time.Duration(cfg.SyncDebounceMs) * time.Millisecond,
			LockTimeout:    lockTimeout,
		})

	middleware.InitMiddleware(cfg)
	return s, nil
}

// SetupMiddleware configures middleware for the Fiber app.
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}
	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Global rate limiting; per-route limits come on top of this.
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application.
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)
	api.Get("/", s.HealthCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	protected := api.Group("", middleware.AuthRequired)

	protected.Get("/availability/:userId", middleware.RateLimit(
		s.redis, 30, time.Minute, "availability"), s.GetAvailability)

	meetings := protected.Group("/meetings")
	meetings.Post("/", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "propose_meeting"), s.ProposeMeeting)
	meetings.Get("/", s.GetMyMeetings)
	meetings.Post("/:id/accept", s.AcceptMeeting)
	meetings.Post("/:id/reject", s.RejectMeeting)
	meetings.Post("/:id/suggest", s.SuggestAlternative)
	meetings.Get("/:id", s.GetMeeting)

	friends := protected.Group("/friends")
	friends.Get("/", s.GetFriends)
	friends.Post("/requests", middleware.RateLimit(
		s.redis, 5, 5*time.Minute, "friend_request"), s.SendFriendRequest)
	friends.Get("/requests", s.GetPendingRequests)
	friends.Post("/requests/:requestId/accept", s.AcceptFriendRequest)
	friends.Post("/requests/:requestId/decline", s.DeclineFriendRequest)
	friends.Get("/status/:userId", s.GetFriendshipStatus)

	protected.Post("/calendar/sync", middleware.RateLimit(
		s.redis, 6, time.Minute, "calendar_sync"), s.TriggerCalendarSync)
}

// HealthCheck is a simple alias for ReadinessCheck.
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	return s.ReadinessCheck(c)
}

// LivenessCheck handles liveness probe requests.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
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
		// The scheduler runs fine without Redis; report it but stay ready.
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
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

// Shutdown stops background work: pending debounced syncs.
func (s *Server) Shutdown() {
	s.syncService.Stop()
}
