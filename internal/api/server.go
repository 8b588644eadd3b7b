package api

import (
	"time"

	"github.com/gin-gonic/gin"

	infragin "github.com/jonesrussell/north-cloud/metadata-search/infrastructure/gin"
	"github.com/jonesrussell/north-cloud/metadata-search/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/metadata-search/infrastructure/metrics"
	"github.com/jonesrussell/north-cloud/metadata-search/internal/config"
)

// Default timeout values.
const (
	defaultReadTimeout  = 30 * time.Second
	defaultWriteTimeout = 60 * time.Second
	defaultIdleTimeout  = 120 * time.Second
)

// NewServer creates the HTTP server with health checks, metrics and the
// service routes.
func NewServer(
	handler *Handler,
	cfg *config.Config,
	log logger.Logger,
	m *metrics.Metrics,
	checks map[string]infragin.HealthChecker,
) *infragin.Server {
	builder := infragin.NewServerBuilder(cfg.Service.Name, cfg.Service.Port).
		WithLogger(log).
		WithDebug(cfg.Service.Debug).
		WithVersion(cfg.Service.Version).
		WithTimeouts(defaultReadTimeout, defaultWriteTimeout, defaultIdleTimeout).
		WithCORS(infragin.CORSConfig{
			Enabled:        cfg.CORS.Enabled,
			AllowedOrigins: cfg.CORS.AllowedOrigins,
		}).
		WithMetrics(m).
		WithRoutes(func(router *gin.Engine) {
			SetupServiceRoutes(router, handler, cfg.Auth.JWTSecret)
		})

	for name, check := range checks {
		builder = builder.WithHealthCheck(name, check)
	}

	return builder.Build()
}

// SetupServiceRoutes registers the /api/v1 routes. They require a bearer
// token when jwtSecret is set.
func SetupServiceRoutes(router *gin.Engine, handler *Handler, jwtSecret string) {
	v1 := infragin.ProtectedGroup(router, "/api/v1", jwtSecret)

	v1.GET("/metadata-items", handler.ListMetadataItems)
	v1.GET("/dataset-activity-logs", handler.ListDatasetActivities)
	v1.GET("/activity-logs", handler.QueryActivityLogs)

	projects := v1.Group("/project-files/:code")
	projects.GET("/size", handler.ProjectSize)
	projects.GET("/statistics", handler.ProjectStatistics)
	projects.GET("/activity", handler.ProjectActivity)
}
