package main

import (
	"github.com/gin-gonic/gin"

	"github.com/commitlens/commitlens/internal/middleware"
	"github.com/commitlens/commitlens/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, a *app) {
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS())

	// Rate limiter for webhook routes
	webhookLimiter := middleware.NewRateLimiter(10, 20)

	// Health check
	r.GET("/health", a.healthHandler.CheckHealth)

	api := r.Group("/api")
	{
		// Webhook routes (public, rate limited)
		webhooks := api.Group("/webhooks", webhookLimiter.Middleware())
		{
			webhooks.POST("/github", a.webhookHandler.HandleGitHub)
			webhooks.POST("/gitlab", a.webhookHandler.HandleGitLab)
		}

		// Tokens
		api.POST("/tokens", a.tokenHandler.Create)
		api.GET("/tokens", a.tokenHandler.List)
		api.PUT("/tokens/:id/active", a.tokenHandler.SetActive)
		api.DELETE("/tokens/:id", a.tokenHandler.Delete)

		// Repositories
		api.GET("/repositories", a.repositoryHandler.List)
		api.PUT("/repositories/:id/active", a.repositoryHandler.SetActive)
		api.GET("/repositories/:id/commits", a.repositoryHandler.ListCommits)

		// Sync
		api.POST("/sync", a.syncHandler.Trigger)
		api.GET("/sync", a.syncHandler.Status)
	}
}
