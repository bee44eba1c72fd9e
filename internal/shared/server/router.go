package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"medrecords-backend/internal/analysis"
	"medrecords-backend/internal/batch"
	"medrecords-backend/internal/reports"
	"medrecords-backend/internal/services/health"
	"medrecords-backend/internal/shared/config"
	"medrecords-backend/internal/shared/metrics"
	"medrecords-backend/internal/shared/server/middleware"
	"medrecords-backend/internal/shared/server/respond"
	"medrecords-backend/internal/who"
)

// RouterDeps carries the handlers wired into the HTTP surface.
type RouterDeps struct {
	Config          config.Config
	Health          *health.Service
	AnalysisHandler *analysis.Handler
	BatchHandler    *batch.Handler
	ReportsHandler  *reports.Handler
	WHOHandler      *who.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{
			"message":     "Medical Records Analysis API",
			"version":     "1.0.0",
			"description": "AI-powered medical analysis for educational purposes",
			"disclaimer":  "This system is for academic research only and not for actual medical diagnosis",
		})
	})
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, deps.Health.Status(c.Request.Context()))
	})

	if deps.AnalysisHandler != nil {
		deps.AnalysisHandler.RegisterRoutes(api)
	}
	if deps.BatchHandler != nil {
		deps.BatchHandler.RegisterRoutes(api)
	}
	if deps.ReportsHandler != nil {
		deps.ReportsHandler.RegisterRoutes(api)
	}
	if deps.WHOHandler != nil {
		deps.WHOHandler.RegisterRoutes(api)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
