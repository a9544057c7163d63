package router

import (
	"fmt"

	"github.com/anonto42/concordance/backend/internal/events"
	"github.com/anonto42/concordance/backend/internal/feedcache"
	"github.com/anonto42/concordance/backend/internal/handlers"
	"github.com/anonto42/concordance/backend/internal/media"
	"github.com/anonto42/concordance/backend/internal/middleware"
	"github.com/anonto42/concordance/backend/internal/repositories"
	"github.com/anonto42/concordance/backend/internal/views"
	"github.com/anonto42/concordance/backend/pkg/config"
	"github.com/anonto42/concordance/backend/pkg/metrics"
	"github.com/anonto42/concordance/backend/validators"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Deps are the long-lived collaborators shared by every route
type Deps struct {
	Config    *config.Config
	DB        *gorm.DB
	Media     media.Store
	Publisher events.Publisher       // optional
	Firebase  handlers.TokenVerifier // optional; nil disables Firebase sign-in
	FeedCache *feedcache.Cache       // optional; built from Config when nil
}

// New creates the Echo instance with global middleware, renderer, validator and all routes
func New(deps Deps) (*echo.Echo, error) {
	renderer, err := views.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = validators.NewValidator()
	e.Renderer = renderer
	e.HTTPErrorHandler = views.ErrorHandler(e)

	config.SetupMiddleware(e)
	SetupRoutes(e, deps)
	return e, nil
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, deps Deps) {
	cfg := deps.Config
	if deps.Publisher == nil {
		deps.Publisher = events.NopPublisher{}
	}
	if deps.FeedCache == nil {
		deps.FeedCache = feedcache.New(cfg.FeedCacheTTL)
	}

	// --- Initialize Repositories ---
	userRepo := repositories.NewPostgresUserRepository(deps.DB)
	groupRepo := repositories.NewPostgresGroupRepository(deps.DB)
	postRepo := repositories.NewPostgresPostRepository(deps.DB)
	commentRepo := repositories.NewPostgresCommentRepository(deps.DB)
	followRepo := repositories.NewPostgresFollowRepository(deps.DB)

	// Operational endpoints
	e.GET("/health/", handlers.NewHealthHandler(deps.DB).HealthCheck)
	e.GET("/metrics/", metrics.Handler())
	handlers.NewOpsHandler(deps.FeedCache, cfg.OperatorToken).RegisterOpsRoutes(e.Group("/ops"))
	logrus.Info("Operational routes configured.")

	// --- Unprotected routes for token issuance ---
	authHandler := handlers.NewAuthHandler(userRepo, deps.Firebase, handlers.TokenSettings{
		Secret:        cfg.JWTSecret,
		Lifetime:      cfg.JWTLifetime,
		RefreshWindow: cfg.JWTRefreshWindow,
	})
	authHandler.RegisterAuthRoutes(e.Group("/api/v1/auth"))
	logrus.Info("Auth routes configured.")

	// --- API routes; anonymous callers may only read content ---
	api := e.Group("/api/v1", middleware.JWTAuthMiddleware(cfg.JWTSecret), middleware.ReadOnlyForAnonymous())

	postHandler := handlers.NewPostHandler(postRepo, groupRepo, deps.Media, deps.Publisher, cfg.APIPageSize, cfg.MaxUploadSize)
	postHandler.RegisterPostRoutes(api)
	logrus.Info("Post routes configured.")

	commentHandler := handlers.NewCommentHandler(commentRepo, postRepo, deps.Publisher, cfg.APIPageSize)
	commentHandler.RegisterCommentRoutes(api)
	logrus.Info("Comment routes configured.")

	groupHandler := handlers.NewGroupHandler(groupRepo, cfg.APIPageSize)
	groupHandler.RegisterGroupRoutes(api)
	logrus.Info("Group routes configured.")

	followHandler := handlers.NewFollowHandler(followRepo, userRepo, deps.Publisher, cfg.APIPageSize)
	followHandler.RegisterFollowRoutes(api, middleware.RequireAuth())
	logrus.Info("Follow routes configured.")

	// --- HTML pages ---
	web := views.NewHandler(views.Deps{
		Users:         userRepo,
		Groups:        groupRepo,
		Posts:         postRepo,
		Comments:      commentRepo,
		Follows:       followRepo,
		FeedCache:     deps.FeedCache,
		Sessions:      middleware.NewSessionManager(cfg.SessionSecret, cfg.Env == "production", userRepo),
		Media:         deps.Media,
		Publisher:     deps.Publisher,
		PostsPerPage:  cfg.PostsPerPage,
		MaxUploadSize: cfg.MaxUploadSize,
	})
	web.RegisterRoutes(e)

	logrus.Info("All routes configured.")
}
