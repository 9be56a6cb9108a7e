package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/tunepipe/api/handlers"
	"github.com/yourusername/tunepipe/api/middleware"
	"github.com/yourusername/tunepipe/internal/app"
	"github.com/yourusername/tunepipe/internal/domain"
)

// SetupRouter sets up the HTTP router
func SetupRouter(service *app.MediaService, config *domain.Config, log *zap.Logger) *gin.Engine {
	// Set Gin mode
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS())

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(config)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		mediaHandler := handlers.NewMediaHandler(service, log)
		media := v1.Group("/media")
		{
			media.POST("/link", mediaHandler.HandleLink)
			media.POST("/identify", mediaHandler.HandleIdentify)
			media.POST("/search", mediaHandler.HandleSearch)
			media.POST("/release", mediaHandler.HandleRelease(config.Download.WorkDirBase))
		}
	}

	return router
}
