package http

import (
	"github.com/gin-gonic/gin"

	"github.com/veriscan/backend/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))
	router.Use(RateLimitMiddleware(cfg.RateLimit.PerIP))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.POST("/verify", handler.Verify)
		v1.POST("/search", handler.Search)

		admin := v1.Group("/admin")
		{
			admin.GET("/adapters", handler.GetAdapterSettings)
			admin.PUT("/adapters", handler.UpdateAdapterSettings)
			admin.GET("/verifications", handler.RecentVerifications)
		}
	}

	return router
}
