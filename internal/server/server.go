// Package server assembles repositories, services and handlers into the
// HTTP engine.
package server

import (
	"fmt"

	"github.com/Baaaki/foodgram/internal/audit"
	"github.com/Baaaki/foodgram/internal/broker"
	"github.com/Baaaki/foodgram/internal/config"
	"github.com/Baaaki/foodgram/internal/handler"
	"github.com/Baaaki/foodgram/internal/media"
	"github.com/Baaaki/foodgram/internal/middleware"
	"github.com/Baaaki/foodgram/internal/repository"
	"github.com/Baaaki/foodgram/internal/service"
	"github.com/Baaaki/foodgram/internal/storage"
	"github.com/Baaaki/foodgram/internal/tokens"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the connections the server is built on. Journal may be nil.
type Deps struct {
	Config  *config.Config
	DB      *gorm.DB
	Redis   *redis.Client
	Storage storage.Storage
	Journal *audit.Journal
}

type Server struct {
	Engine        *gin.Engine
	Broker        broker.NotificationBroker
	Notifications *handler.NotificationHandler
}

func New(d Deps) (*Server, error) {
	cfg := d.Config

	// Initialize repositories
	userRepo := repository.NewUserRepository(d.DB)
	subRepo := repository.NewSubscriptionRepository(d.DB)
	ingredientRepo := repository.NewIngredientRepository(d.DB)
	recipeRepo := repository.NewRecipeRepository(d.DB)
	relationRepo := repository.NewRelationRepository(d.DB)

	// Media pipeline
	uploader := media.NewUploader(d.Storage, media.NewProcessor(cfg.ImageMaxDimension, 0))

	// Initialize services
	notificationBroker := broker.NewRedisNotificationBroker(d.Redis)
	revocations := tokens.NewRevocationStore(d.Redis)

	authService := service.NewAuthService(userRepo, revocations, cfg.JWTSecret, cfg.JWTExpiry)
	notifier := service.NewNotificationService(notificationBroker, subRepo)
	userService := service.NewUserService(userRepo, subRepo, recipeRepo, uploader)
	subscriptionService := service.NewSubscriptionService(userRepo, subRepo, recipeRepo, uploader, notifier)
	adminService := service.NewAdminService(userRepo, uploader, d.Journal)

	ingredientService, err := service.NewIngredientService(ingredientRepo, recipeRepo, d.Journal, cfg.IngredientCacheSize)
	if err != nil {
		return nil, fmt.Errorf("ingredient cache: %w", err)
	}

	recipeService := service.NewRecipeService(
		recipeRepo, relationRepo, subRepo, userRepo,
		ingredientService, uploader, notifier, d.Journal, cfg.BaseURL,
	)
	relationService := service.NewRelationService(relationRepo, recipeRepo, uploader)
	shoppingListService := service.NewShoppingListService(recipeRepo)

	// Initialize handlers
	notifications := handler.NewNotificationHandler(notifier, cfg.CORSAllowedOrigins)
	handlers := Handlers{
		Auth:          handler.NewAuthHandler(authService),
		User:          handler.NewUserHandler(userService, subscriptionService),
		Ingredient:    handler.NewIngredientHandler(ingredientService),
		Recipe:        handler.NewRecipeHandler(recipeService, relationService, shoppingListService),
		Admin:         handler.NewAdminHandler(adminService),
		Notifications: notifications,
	}

	limiter := func(prefix string) *middleware.RateLimiter {
		return middleware.NewRateLimiter(d.Redis, middleware.RateLimiterConfig{
			MaxRequests: cfg.RateLimitMaxRequests,
			Window:      cfg.RateLimitWindow,
			BlockTime:   cfg.RateLimitBlockTime,
			KeyPrefix:   prefix,
		})
	}

	engine := NewRouter(handlers, RouterOptions{
		Auth:            middleware.AuthMiddleware(cfg.JWTSecret, userRepo, authService),
		LoginLimiter:    limiter("ratelimit:login"),
		RegisterLimiter: limiter("ratelimit:register"),
		CORSOrigins:     cfg.CORSAllowedOrigins,
		MediaRoot:       localMediaRoot(cfg),
		MediaURL:        cfg.MediaURL,
		Production:      cfg.IsProduction(),
	})

	return &Server{
		Engine:        engine,
		Broker:        notificationBroker,
		Notifications: notifications,
	}, nil
}

// localMediaRoot is served by the router only for the local backend.
func localMediaRoot(cfg *config.Config) string {
	if cfg.StorageType == "" || cfg.StorageType == "local" {
		return cfg.MediaRoot
	}
	return ""
}
