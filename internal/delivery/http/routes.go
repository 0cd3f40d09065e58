package http

import (
	"github.com/gin-gonic/gin"

	"github.com/reelscout/backend/config"
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
		v1.GET("/locations/:zip/movies", handler.NearbyMovies)

		movies := v1.Group("/movies")
		{
			movies.POST("/ingest", handler.QueueIngest)
			movies.GET("/:id", handler.GetMovie)
		}

		v1.GET("/jobs/:id", handler.GetJob)
	}

	return router
}
