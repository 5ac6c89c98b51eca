// Package server contains the HTTP handlers for the API endpoints.
package server

import (
	"context"
	"fmt"
	"strings"
	"time"

	"parley/internal/config"
	"parley/internal/database"
	"parley/internal/middleware"
	"parley/internal/models"
	"parley/internal/repository"
	"parley/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// Server holds all dependencies and provides handlers.
type Server struct {
	config         *config.Config
	mongo          *mongo.Client
	promMiddleware *fiberprometheus.FiberPrometheus
	authService    *service.AuthService
	commentService *service.CommentService
}

// NewServer creates a new server instance with all dependencies.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	client, db, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	userRepo := repository.NewUserRepository(db)
	commentRepo := repository.NewCommentRepository(db)

	avatars := service.NewAvatarService(service.NewImgurStore(cfg.ImgurClientID))
	google := service.NewGoogleVerifier(cfg.GoogleClientID)
	tokens := service.TokenConfig{
		AccessSecret:  cfg.AccessTokenSecret,
		RefreshSecret: cfg.RefreshTokenSecret,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
	}

	return &Server{
		config:         cfg,
		mongo:          client,
		promMiddleware: fiberprometheus.New("parley"),
		authService:    service.NewAuthService(userRepo, avatars, google, tokens),
		commentService: service.NewCommentService(commentRepo, userRepo),
	}, nil
}

// NewServerWithDeps creates a Server using already-initialized services.
// Used in tests.
func NewServerWithDeps(cfg *config.Config, auth *service.AuthService, comments *service.CommentService) *Server {
	return &Server{
		config:         cfg,
		authService:    auth,
		commentService: comments,
	}
}

// SetupMiddleware configures middleware for the Fiber app.
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Structured logging middleware (after requestid)
	app.Use(middleware.StructuredLogger())

	// Prometheus metrics
	if s.promMiddleware != nil {
		app.Use(s.promMiddleware.Middleware)
	}

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	// Credentials are required for the auth cookies.
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400,
	}))
}

// SetupRoutes configures all routes for the application.
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	api.Get("/", s.HealthCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	users := api.Group("/users")
	users.Post("/register", s.Register)
	users.Post("/login", s.Login)
	users.Get("/refresh-token", s.RefreshToken)
	users.Post("/google-login", s.GoogleLogin)
	users.Post("/logout", s.AuthRequired(), s.Logout)
	users.Get("/current", s.AuthRequired(), s.CurrentUser)

	comments := api.Group("/comments")
	comments.Post("/", s.AuthRequired(), s.CreateComment)
	comments.Get("/:postId", s.OptionalAuth(), s.ListComments)
	comments.Post("/:commentId/reply", s.AuthRequired(), s.ReplyComment)
	comments.Post("/:commentId/upvote", s.AuthRequired(), s.UpvoteComment)
}

// HealthCheck handles readiness probe requests.
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	dbStatus := "healthy"
	if s.mongo != nil {
		ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
		defer cancel()
		if err := s.mongo.Ping(ctx, readpref.Primary()); err != nil {
			dbStatus = "unhealthy"
		}
	} else {
		dbStatus = "unavailable"
	}

	status := fiber.StatusOK
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
	}

	return c.Status(status).JSON(fiber.Map{
		"success": dbStatus == "healthy",
		"message": "Parley API",
		"data": fiber.Map{
			"database": dbStatus,
			"time":     time.Now(),
		},
	})
}

// AuthRequired returns the authentication middleware. The access token is
// read from the accessToken cookie first, then the Authorization header.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := accessTokenFrom(c)
		if token == "" {
			return models.RespondWithError(c,
				models.NewUnauthorizedError("Authorization required"))
		}

		user, err := s.authService.VerifyAccess(c.Context(), token)
		if err != nil {
			return models.RespondWithError(c, err)
		}

		c.Locals("user", user)
		c.Locals("userID", user.ID.Hex())
		return c.Next()
	}
}

// OptionalAuth resolves the caller's identity when a valid access token is
// present but never rejects the request.
func (s *Server) OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token := accessTokenFrom(c); token != "" {
			if user, err := s.authService.VerifyAccess(c.Context(), token); err == nil {
				c.Locals("user", user)
				c.Locals("userID", user.ID.Hex())
			}
		}
		return c.Next()
	}
}

func accessTokenFrom(c *fiber.Ctx) string {
	if cookie := c.Cookies("accessToken"); cookie != "" {
		return cookie
	}
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}

// Shutdown closes the server's external connections.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.mongo != nil {
		return s.mongo.Disconnect(ctx)
	}
	return nil
}
