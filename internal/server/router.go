package server

import (
	"net/http"
	"time"

	"github.com/Baaaki/foodgram/internal/apperrors"
	"github.com/Baaaki/foodgram/internal/handler"
	"github.com/Baaaki/foodgram/internal/middleware"
	"github.com/Baaaki/foodgram/internal/policy"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Auth          *handler.AuthHandler
	User          *handler.UserHandler
	Ingredient    *handler.IngredientHandler
	Recipe        *handler.RecipeHandler
	Admin         *handler.AdminHandler
	Notifications *handler.NotificationHandler
}

type RouterOptions struct {
	// Auth identifies the caller; policy.Require does the gating.
	Auth gin.HandlerFunc
	// Limiters guard the credential endpoints; nil disables them.
	LoginLimiter    *middleware.RateLimiter
	RegisterLimiter *middleware.RateLimiter
	CORSOrigins     []string
	// MediaRoot is served under MediaURL when set.
	MediaRoot  string
	MediaURL   string
	Production bool
}

func NewRouter(h Handlers, opts RouterOptions) *gin.Engine {
	handler.RegisterValidators()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(corsMiddleware(opts.CORSOrigins))
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.HSTSMiddleware(opts.Production))

	router.HandleMethodNotAllowed = true
	router.NoRoute(func(c *gin.Context) {
		apperrors.Respond(c, apperrors.NotFound("page"))
	})
	router.NoMethod(func(c *gin.Context) {
		apperrors.Respond(c, apperrors.MethodNotAllowed("method not allowed"))
	})

	if opts.MediaRoot != "" && opts.MediaURL != "" {
		router.Static(opts.MediaURL, opts.MediaRoot)
	}

	if opts.Auth != nil {
		router.Use(opts.Auth)
	}

	router.GET("/s/:id", policy.Require(policy.RecipeRetrieve), h.Recipe.ShortLinkRedirect)
	router.GET("/ws/notifications", policy.Require(policy.NotificationStream), h.Notifications.HandleWebSocket)

	api := router.Group("/api")

	auth := api.Group("/auth/token")
	{
		auth.POST("/login/", limit(opts.LoginLimiter), h.Auth.Login)
		auth.POST("/logout/", policy.Require(policy.AuthLogout), h.Auth.Logout)
	}

	users := api.Group("/users")
	{
		users.GET("/", policy.Require(policy.UserList), h.User.List)
		users.POST("/", limit(opts.RegisterLimiter), policy.Require(policy.UserRegister), h.User.Register)
		users.GET("/me/", policy.Require(policy.UserMe), h.User.Me)
		users.POST("/set_password/", policy.Require(policy.UserSetPassword), h.User.SetPassword)
		users.GET("/subscriptions/", policy.Require(policy.UserSubscriptions), h.User.Subscriptions)

		// "me" avatar routes are static so they never compete with :id
		for _, prefix := range []string{"/me/avatar/", "/:id/avatar/"} {
			users.POST(prefix, policy.Require(policy.UserAvatar), h.User.SetAvatar)
			users.PUT(prefix, policy.Require(policy.UserAvatar), h.User.SetAvatar)
			users.DELETE(prefix, policy.Require(policy.UserAvatar), h.User.DeleteAvatar)
		}

		users.GET("/:id/", policy.Require(policy.UserRetrieve), h.User.Get)
		users.GET("/:id/profile/", policy.Require(policy.UserProfile), h.User.Profile)
		users.PUT("/:id/update_profile/", policy.Require(policy.UserUpdateProfile), h.User.UpdateProfile)
		users.PATCH("/:id/update_profile/", policy.Require(policy.UserUpdateProfile), h.User.UpdateProfile)
		users.POST("/:id/subscribe/", policy.Require(policy.UserSubscribe), h.User.Subscribe)
		users.DELETE("/:id/subscribe/", policy.Require(policy.UserSubscribe), h.User.Unsubscribe)

		// Admin only
		admin := policy.Require(policy.UserAdmin)
		users.DELETE("/:id/", admin, h.Admin.DeleteUser)
		users.DELETE("/:id/delete-user/", admin, h.Admin.DeleteUser)
		users.POST("/:id/block/", admin, h.Admin.BlockUser)
		users.POST("/:id/unblock/", admin, h.Admin.UnblockUser)
		users.POST("/:id/set_password/", admin, h.Admin.SetPassword)
	}

	adminGroup := api.Group("/admin", policy.Require(policy.UserAdmin))
	{
		adminGroup.GET("/users/", h.Admin.StaffUsers)
		adminGroup.GET("/audit/", h.Admin.AuditLog)
	}

	ingredients := api.Group("/ingredients")
	{
		write := policy.Require(policy.IngredientWrite)

		ingredients.GET("/", policy.Require(policy.IngredientList), h.Ingredient.List)
		ingredients.POST("/", write, h.Ingredient.Create)
		ingredients.GET("/recipe/", policy.Require(policy.IngredientList), h.Ingredient.ForRecipe)
		ingredients.GET("/:id/", policy.Require(policy.IngredientRetrieve), h.Ingredient.Get)
		ingredients.PUT("/:id/", write, h.Ingredient.Update)
		ingredients.PATCH("/:id/", write, h.Ingredient.Update)
		ingredients.DELETE("/:id/", write, h.Ingredient.Delete)
	}

	recipes := api.Group("/recipes")
	{
		recipes.GET("/", policy.Require(policy.RecipeList), h.Recipe.List)
		recipes.POST("/", policy.Require(policy.RecipeCreate), h.Recipe.Create)
		recipes.GET("/download_shopping_cart/", policy.Require(policy.RecipeDownloadCart), h.Recipe.DownloadShoppingCart)
		recipes.GET("/:id/", policy.Require(policy.RecipeRetrieve), h.Recipe.Get)
		recipes.PUT("/:id/", policy.Require(policy.RecipeUpdate), h.Recipe.Update)
		recipes.PATCH("/:id/", policy.Require(policy.RecipeUpdate), h.Recipe.Update)
		recipes.DELETE("/:id/", policy.Require(policy.RecipeDelete), h.Recipe.Delete)
		recipes.GET("/:id/get-link/", policy.Require(policy.RecipeGetLink), h.Recipe.GetLink)
		recipes.POST("/:id/favorite/", policy.Require(policy.RecipeFavorite), h.Recipe.AddFavorite)
		recipes.DELETE("/:id/favorite/", policy.Require(policy.RecipeFavorite), h.Recipe.RemoveFavorite)
		recipes.POST("/:id/shopping_cart/", policy.Require(policy.RecipeCart), h.Recipe.AddToCart)
		recipes.DELETE("/:id/shopping_cart/", policy.Require(policy.RecipeCart), h.Recipe.RemoveFromCart)
	}

	return router
}

func limit(rl *middleware.RateLimiter) gin.HandlerFunc {
	if rl == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return rl.Middleware()
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Disposition", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}

	allowAll := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
	}
	if allowAll {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}

	return cors.New(cfg)
}
