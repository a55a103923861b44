package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ignatzorin/freelance-market/internal/config"
	"github.com/ignatzorin/freelance-market/internal/http/handlers"
	"github.com/ignatzorin/freelance-market/internal/http/middleware"
)

// Handlers набор хэндлеров, которые монтирует роутер.
type Handlers struct {
	Auth          *handlers.AuthHandler
	Orders        *handlers.OrderHandler
	Bids          *handlers.BidHandler
	Disputes      *handlers.DisputeHandler
	Reviews       *handlers.ReviewHandler
	Balance       *handlers.BalanceHandler
	Admin         *handlers.AdminHandler
	Notifications *handlers.NotificationHandler
	Catalog       *handlers.CatalogHandler
	Users         *handlers.UserHandler
	WS            *handlers.WSHandler
	Health        *handlers.HealthHandler
}

func SetupRouter(cfg *config.Config, h Handlers, auth middleware.Authenticator) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.MaxMultipartMemory = int64(cfg.MaxUploadSizeMB) << 20
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.Metrics())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middleware.ErrorHandler())

	if h.Health != nil {
		r.GET("/health", h.Health.Health)
	}
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.Static("/media", cfg.MediaStoragePath)

	api := r.Group("/api")
	id := middleware.UUIDValidator("id")
	requireAuth := middleware.AuthMiddleware(auth)

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))
	{
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/login", h.Auth.Login)
	}
	api.GET("/auth/me", requireAuth, h.Auth.Me)

	// Публичные маршруты
	api.GET("/orders", h.Orders.List)
	api.GET("/orders/:id", id, middleware.OptionalAuth(auth), h.Orders.Get)
	api.GET("/categories", h.Catalog.Categories)
	api.GET("/categories/:id/orders", id, h.Orders.ListByCategory)
	api.GET("/skills", h.Catalog.Skills)
	api.GET("/users/:id", id, h.Users.Profile)
	api.GET("/users/:id/reviews", id, h.Reviews.ListUserReviews)
	api.GET("/freelancers", h.Users.Freelancers)
	api.GET("/freelancers/:id/orders", id, h.Users.FreelancerOrders)
	api.GET("/ws", h.WS.Handle)

	// Защищённые маршруты
	protected := api.Group("/")
	protected.Use(requireAuth)
	{
		protected.POST("/orders", h.Orders.Create)
		protected.GET("/orders/my", h.Orders.ListMine)
		protected.GET("/orders/assigned", h.Orders.ListAssigned)
		protected.GET("/orders/:id/history", id, h.Orders.History)
		protected.POST("/orders/:id/publish", id, h.Orders.Publish)
		protected.POST("/orders/:id/cancel", id, h.Orders.Cancel)
		protected.POST("/orders/:id/submit", id, h.Orders.SubmitForReview)
		protected.POST("/orders/:id/close", id, h.Orders.Close)

		protected.POST("/orders/:id/bids", id, h.Bids.Submit)
		protected.GET("/orders/:id/bids", id, h.Bids.ListForOrder)
		protected.GET("/orders/:id/bids/my", id, h.Bids.MyBid)
		protected.GET("/bids/my", h.Bids.ListMine)
		protected.POST("/bids/:id/accept", id, h.Bids.Accept)
		protected.POST("/bids/:id/reject", id, h.Bids.Reject)

		protected.POST("/orders/:id/disputes", id, h.Disputes.Open)
		protected.GET("/disputes/:id", id, h.Disputes.Get)

		protected.POST("/orders/:id/reviews", id, h.Reviews.Leave)

		protected.GET("/balance", h.Balance.Get)
		protected.GET("/balance/history", h.Balance.History)
		protected.POST("/balance/deposit",
			middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod), h.Balance.Deposit)

		protected.GET("/notifications", h.Notifications.List)
		protected.PUT("/notifications/read-all", h.Notifications.MarkAllAsRead)
		protected.PUT("/notifications/:id/read", id, h.Notifications.MarkAsRead)
	}

	// Права администратора проверяются в сервисах.
	admin := api.Group("/admin")
	admin.Use(requireAuth)
	{
		admin.GET("/users", h.Admin.ListUsers)
		admin.PUT("/users/:id/role", id, h.Admin.SetRole)
		admin.PUT("/users/:id/ban", id, h.Admin.SetBanned)
		admin.DELETE("/users/:id", id, h.Admin.DeleteUser)
		admin.GET("/disputes", h.Disputes.List)
		admin.POST("/disputes/:id/resolve", id, h.Disputes.Resolve)
	}

	return r
}
