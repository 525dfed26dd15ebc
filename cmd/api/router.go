package api

import (
	"net/http"

	"jobtrail-backend/internal/auth/delivery"
	authUsecase "jobtrail-backend/internal/auth/usecase"
	ingestDelivery "jobtrail-backend/internal/ingest/delivery"
	ingestUsecase "jobtrail-backend/internal/ingest/usecase"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, authUsecase authUsecase.AuthUsecase, ingestService *ingestUsecase.IngestService) {
	authHandler := delivery.NewAuthHandler(authUsecase)
	ingestHandler := ingestDelivery.NewIngestHandler(ingestService)

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Auth routes
		auth := api.Group("/auth")
		{
			auth.GET("/google/url", authHandler.GoogleSignInURL)
			auth.GET("/google/callback", authHandler.GoogleCallback)
			auth.GET("/google/link-sync", delivery.AuthMiddleware(authUsecase), authHandler.LinkSyncAccountURL)
			auth.GET("/me", delivery.AuthMiddleware(authUsecase), authHandler.Me)
		}

		// User settings (protected)
		api.POST("/start-date", delivery.AuthMiddleware(authUsecase), authHandler.SetStartDate)

		// Ingestion routes (protected)
		emails := api.Group("/emails")
		emails.Use(delivery.AuthMiddleware(authUsecase))
		{
			emails.POST("/fetch", ingestHandler.StartFetch)
			emails.POST("/stop-fetch", ingestHandler.StopFetch)
			emails.GET("/processing", ingestHandler.Progress)
			emails.GET("", ingestHandler.ListApplications)
			emails.PATCH("/:id", ingestHandler.UpdateApplication)
			emails.DELETE("/:id", ingestHandler.DeleteApplication)
			emails.DELETE("", ingestHandler.DeleteAllApplications)
		}
	}
}
