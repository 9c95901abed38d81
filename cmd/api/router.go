package api

import (
	"net/http"

	"github.com/tgrozenski/agent-email/internal/auth/delivery"
	authUsecase "github.com/tgrozenski/agent-email/internal/auth/usecase"
	docDelivery "github.com/tgrozenski/agent-email/internal/document/delivery"
	emailDelivery "github.com/tgrozenski/agent-email/internal/email/delivery"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, authUsecase authUsecase.AuthUsecase, authHandler *delivery.AuthHandler, documentHandler *docDelivery.DocumentHandler, emailHandler *emailDelivery.EmailHandler) {
	// Pub/Sub push subscriptions configured against the legacy path.
	r.POST("/processEmails", emailHandler.HandlePush)

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
		}

		// FCM routes (protected)
		fcm := api.Group("/fcm")
		fcm.Use(delivery.AuthMiddleware(authUsecase))
		{
			fcm.POST("/register", authHandler.RegisterFCMToken)
		}

		// Document routes (protected)
		documents := api.Group("/documents")
		documents.Use(delivery.AuthMiddleware(authUsecase))
		{
			documents.GET("", documentHandler.ListDocuments)
			documents.POST("", documentHandler.SaveDocument)
			documents.GET("/search", documentHandler.SearchDocuments)
			documents.GET("/:id", documentHandler.GetDocument)
			documents.DELETE("/:id", documentHandler.DeleteDocument)
		}

		// Gmail notifications and watch upkeep. Pub/Sub authenticates these
		// with its own push credentials, not user ID tokens.
		api.POST("/pubsub/push", emailHandler.HandlePush)
		api.POST("/watch/renew", emailHandler.RenewWatches)
	}
}
