package api

import (
	"github.com/gin-gonic/gin"
	"github.com/timmy/podsum/internal/api/handler"
	"github.com/timmy/podsum/internal/api/middleware"
	"github.com/timmy/podsum/internal/logger"
)

// RouterConfig carries the pieces the router wires together.
type RouterConfig struct {
	Mode       string
	CORS       middleware.CORSConfig
	Logger     *logger.Logger
	Job        *handler.JobHandler
	Media      *handler.MediaHandler
	PublicBase string // URL prefix the media routes are mounted under
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(cfg *RouterConfig) *gin.Engine {
	// Set Gin mode
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(cfg.Logger))
	r.Use(middleware.CORS(cfg.CORS))

	// Health check
	healthHandler := handler.NewHealthHandler()
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Jobs
		v1.POST("/jobs", cfg.Job.CreateJob)
		v1.POST("/jobs/:id/process", cfg.Job.StartProcessing)
		v1.GET("/jobs/:id/results", cfg.Job.GetResults)
		v1.POST("/jobs/:id/speech", cfg.Job.SynthesizeSpeech)
	}

	// Media
	publicBase := cfg.PublicBase
	if publicBase == "" {
		publicBase = "/media"
	}
	r.GET(publicBase+"/:job_id/:name", cfg.Media.Serve)

	return r
}
