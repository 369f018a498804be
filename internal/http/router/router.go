package router

import (
	"github.com/gin-gonic/gin"

	"github.com/courtierpro/brokerage-backend/internal/config"
	"github.com/courtierpro/brokerage-backend/internal/http/handlers"
	"github.com/courtierpro/brokerage-backend/internal/http/middleware"
	"github.com/courtierpro/brokerage-backend/internal/service"
)

// SetupRouter wires the middleware stack and every route group.
func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	transactionHandler *handlers.TransactionHandler,
	appointmentHandler *handlers.AppointmentHandler,
	documentHandler *handlers.DocumentHandler,
	notificationHandler *handlers.NotificationHandler,
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
	authGroup.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
	}

	api.GET("/ws", wsHandler.Handle)

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.GET("/notifications", notificationHandler.ListNotifications)
		protected.GET("/notifications/unread/count", notificationHandler.CountUnread)
		protected.PUT("/notifications/:id/read", middleware.UUIDValidator("id"), notificationHandler.MarkAsRead)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)

		protected.POST("/transactions", transactionHandler.Create)
		protected.GET("/transactions", transactionHandler.ListMine)
		protected.GET("/transactions/:id", middleware.UUIDValidator("id"), transactionHandler.Get)
		protected.POST("/transactions/:id/co-brokers", middleware.UUIDValidator("id"), transactionHandler.AddCoBroker)
		protected.PUT("/transactions/:id/stage", middleware.UUIDValidator("id"), transactionHandler.UpdateStage)
		protected.GET("/transactions/:id/timeline", middleware.UUIDValidator("id"), transactionHandler.ListTimeline)

		protected.POST("/transactions/:id/offers", middleware.UUIDValidator("id"), transactionHandler.AddOffer)
		protected.GET("/transactions/:id/offers", middleware.UUIDValidator("id"), transactionHandler.ListOffers)
		protected.GET("/offers/:id", middleware.UUIDValidator("id"), transactionHandler.GetOffer)
		protected.PUT("/offers/:id", middleware.UUIDValidator("id"), transactionHandler.UpdateOffer)
		protected.POST("/offers/:id/decision", middleware.UUIDValidator("id"), transactionHandler.SubmitOfferDecision)
		protected.POST("/offers/:id/attachments", middleware.UUIDValidator("id"), transactionHandler.AddOfferAttachment)

		protected.POST("/transactions/:id/properties", middleware.UUIDValidator("id"), transactionHandler.AddProperty)
		protected.GET("/transactions/:id/properties", middleware.UUIDValidator("id"), transactionHandler.ListProperties)
		protected.POST("/properties/:id/offers", middleware.UUIDValidator("id"), transactionHandler.AddPropertyOffer)
		protected.GET("/properties/:id/offers", middleware.UUIDValidator("id"), transactionHandler.ListPropertyOffers)
		protected.PUT("/property-offers/:id", middleware.UUIDValidator("id"), transactionHandler.UpdatePropertyOffer)
		protected.POST("/property-offers/:id/attachments", middleware.UUIDValidator("id"), transactionHandler.AddPropertyOfferAttachment)

		protected.POST("/transactions/:id/conditions", middleware.UUIDValidator("id"), transactionHandler.AddCondition)
		protected.GET("/transactions/:id/conditions", middleware.UUIDValidator("id"), transactionHandler.ListConditions)
		protected.PUT("/conditions/:id", middleware.UUIDValidator("id"), transactionHandler.UpdateCondition)
		protected.PUT("/conditions/:id/status", middleware.UUIDValidator("id"), transactionHandler.UpdateConditionStatus)
		protected.DELETE("/conditions/:id", middleware.UUIDValidator("id"), transactionHandler.RemoveCondition)

		protected.POST("/appointments", appointmentHandler.Request)
		protected.GET("/appointments", appointmentHandler.ListMine)
		protected.GET("/appointments/:id", middleware.UUIDValidator("id"), appointmentHandler.Get)
		protected.PUT("/appointments/:id/review", middleware.UUIDValidator("id"), appointmentHandler.Review)
		protected.PUT("/appointments/:id/cancel", middleware.UUIDValidator("id"), appointmentHandler.Cancel)
		protected.DELETE("/appointments/:id", middleware.UUIDValidator("id"), appointmentHandler.Delete)
		protected.GET("/transactions/:id/appointments", middleware.UUIDValidator("id"), appointmentHandler.ListByTransaction)

		protected.POST("/transactions/:id/documents", middleware.UUIDValidator("id"), documentHandler.Create)
		protected.GET("/transactions/:id/documents", middleware.UUIDValidator("id"), documentHandler.ListByTransaction)
		protected.GET("/transactions/:id/documents/all", middleware.UUIDValidator("id"), transactionHandler.ListAllDocuments)
		protected.POST("/transactions/:id/documents/:documentId/submit", middleware.UUIDValidator("id"), middleware.UUIDValidator("documentId"), documentHandler.Submit)
		protected.GET("/documents/:id", middleware.UUIDValidator("id"), documentHandler.Get)
		protected.PUT("/documents/:id", middleware.UUIDValidator("id"), documentHandler.Update)
		protected.DELETE("/documents/:id", middleware.UUIDValidator("id"), documentHandler.Delete)
		protected.POST("/documents/:id/send", middleware.UUIDValidator("id"), documentHandler.SendRequest)
		protected.POST("/documents/:id/share", middleware.UUIDValidator("id"), documentHandler.Share)
		protected.PUT("/documents/:id/review", middleware.UUIDValidator("id"), documentHandler.Review)
		protected.GET("/documents/:id/versions/:versionId/download", middleware.UUIDValidator("id"), middleware.UUIDValidator("versionId"), documentHandler.DownloadVersion)

		protected.GET("/transactions/:id/checklist", middleware.UUIDValidator("id"), documentHandler.GetChecklist)
		protected.PUT("/transactions/:id/checklist", middleware.UUIDValidator("id"), documentHandler.SetChecklistState)
	}

	return r
}
