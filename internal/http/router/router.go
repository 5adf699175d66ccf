package router

import (
	"github.com/gin-gonic/gin"

	"github.com/testerwork/backend/internal/config"
	"github.com/testerwork/backend/internal/http/handlers"
	"github.com/testerwork/backend/internal/http/middleware"
	"github.com/testerwork/backend/internal/models"
	"github.com/testerwork/backend/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	walletHandler *handlers.WalletHandler,
	depositHandler *handlers.DepositHandler,
	jobHandler *handlers.JobHandler,
	marketHandler *handlers.MarketHandler,
	downloadHandler *handlers.DownloadHandler,
	wsHandler *handlers.WSHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authRateLimit := middleware.RateLimitMiddleware(5, cfg.RateLimitPeriod)
	authGroup.Use(authRateLimit)
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/logout", authHandler.Logout)
	}

	// Публичные маршруты
	api.GET("/ws", wsHandler.Handle)
	api.GET("/jobs", jobHandler.List)
	api.GET("/jobs/:id", middleware.UUIDValidator("id"), jobHandler.Get)
	api.GET("/market/listings", marketHandler.ListListings)
	api.GET("/market/listings/:id", middleware.UUIDValidator("id"), marketHandler.GetListing)

	// Одноразовые ссылки на скачивание: сам токен и есть авторизация
	api.GET("/downloads/:token", downloadHandler.Peek)
	api.POST("/downloads/:token/redeem", downloadHandler.Redeem)

	// Защищённые маршруты
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.GET("/auth/me", authHandler.Me)

		protected.GET("/wallet", walletHandler.GetWallet)
		protected.GET("/wallet/transactions", walletHandler.ListTransactions)

		protected.POST("/deposits", middleware.RateLimitMiddleware(10, cfg.RateLimitPeriod), depositHandler.Create)
		protected.GET("/deposits", depositHandler.ListMine)
		protected.GET("/deposits/:id", middleware.UUIDValidator("id"), depositHandler.Get)
		protected.POST("/deposits/:id/proof", middleware.UUIDValidator("id"), depositHandler.UploadProof)
		protected.PATCH("/deposits/:id/proof", middleware.UUIDValidator("id"), depositHandler.AttachProofLink)
		protected.POST("/deposits/:id/cancel", middleware.UUIDValidator("id"), depositHandler.Cancel)

		protected.POST("/jobs", jobHandler.Create)
		protected.GET("/jobs/mine", jobHandler.ListMine)
		protected.POST("/jobs/:id/cancel", middleware.UUIDValidator("id"), jobHandler.Cancel)
		protected.POST("/jobs/:id/pause", middleware.UUIDValidator("id"), jobHandler.Pause)
		protected.POST("/jobs/:id/resume", middleware.UUIDValidator("id"), jobHandler.Resume)
		protected.POST("/jobs/:id/apply", middleware.UUIDValidator("id"), jobHandler.Apply)
		protected.GET("/jobs/:id/applications", middleware.UUIDValidator("id"), jobHandler.ListApplications)
		protected.POST("/applications/:id/submit", middleware.UUIDValidator("id"), jobHandler.SubmitWork)
		protected.POST("/applications/:id/approve", middleware.UUIDValidator("id"), jobHandler.Approve)
		protected.POST("/applications/:id/reject", middleware.UUIDValidator("id"), jobHandler.Reject)

		protected.POST("/market/listings", marketHandler.CreateListing)
		protected.POST("/market/orders", marketHandler.Purchase)
		protected.GET("/market/orders", marketHandler.ListMyOrders)
		protected.GET("/market/orders/:id", middleware.UUIDValidator("id"), marketHandler.GetOrder)
		protected.POST("/market/orders/:id/deliver", middleware.UUIDValidator("id"), marketHandler.Deliver)
		protected.POST("/market/orders/:id/cancel", middleware.UUIDValidator("id"), marketHandler.Cancel)
		protected.POST("/market/orders/:id/token", middleware.UUIDValidator("id"), downloadHandler.Reissue)
	}

	// Админские маршруты: переговоры по депозитам, бонусы, выпуск заработка
	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(tokenManager), middleware.RequireRole(models.RoleAdmin))
	{
		admin.GET("/deposits", depositHandler.ListByStatus)
		admin.POST("/deposits/:id/negotiate", middleware.UUIDValidator("id"), depositHandler.StartNegotiation)
		admin.POST("/deposits/:id/terms", middleware.UUIDValidator("id"), depositHandler.ProposeTerms)
		admin.POST("/deposits/:id/approve", middleware.UUIDValidator("id"), depositHandler.Approve)
		admin.POST("/deposits/:id/reject", middleware.UUIDValidator("id"), depositHandler.Reject)

		admin.POST("/wallets/credit", walletHandler.AdminCredit)
		admin.POST("/wallets/bonus", walletHandler.GrantBonus)
		admin.POST("/wallets/release", walletHandler.ReleaseEarnings)
	}

	return r
}
