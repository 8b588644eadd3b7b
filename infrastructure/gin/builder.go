package gin

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/metadata-search/infrastructure/jwt"
	"github.com/jonesrussell/north-cloud/metadata-search/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/metadata-search/infrastructure/metrics"
)

// ServerBuilder assembles a Server fluently.
type ServerBuilder struct {
	config       *Config
	logger       logger.Logger
	metrics      *metrics.Metrics
	setupRoutes  func(*gin.Engine)
	healthChecks map[string]HealthChecker
}

// NewServerBuilder starts a builder with defaulted configuration.
func NewServerBuilder(serviceName string, port int) *ServerBuilder {
	return &ServerBuilder{
		config:       NewConfig(serviceName, port),
		healthChecks: make(map[string]HealthChecker),
	}
}

// WithLogger sets the base logger.
func (b *ServerBuilder) WithLogger(log logger.Logger) *ServerBuilder {
	b.logger = log
	return b
}

// WithDebug toggles gin debug mode.
func (b *ServerBuilder) WithDebug(debug bool) *ServerBuilder {
	b.config.Debug = debug
	return b
}

// WithVersion sets the version reported by health endpoints.
func (b *ServerBuilder) WithVersion(version string) *ServerBuilder {
	b.config.ServiceVersion = version
	return b
}

// WithCORS replaces the CORS configuration.
func (b *ServerBuilder) WithCORS(cfg CORSConfig) *ServerBuilder {
	b.config.CORS = cfg
	b.config.CORS.SetDefaults()
	return b
}

// WithTimeouts sets read, write and idle timeouts.
func (b *ServerBuilder) WithTimeouts(read, write, idle time.Duration) *ServerBuilder {
	b.config.ReadTimeout = read
	b.config.WriteTimeout = write
	b.config.IdleTimeout = idle
	return b
}

// WithMetrics installs the request metrics middleware and serves /metrics.
func (b *ServerBuilder) WithMetrics(m *metrics.Metrics) *ServerBuilder {
	b.metrics = m
	return b
}

// WithHealthCheck adds a readiness probe reported by /health/ready.
func (b *ServerBuilder) WithHealthCheck(name string, checker HealthChecker) *ServerBuilder {
	b.healthChecks[name] = checker
	return b
}

// WithRoutes registers the service routes.
func (b *ServerBuilder) WithRoutes(setupRoutes func(*gin.Engine)) *ServerBuilder {
	b.setupRoutes = setupRoutes
	return b
}

// Build creates the Server.
func (b *ServerBuilder) Build() *Server {
	if b.logger == nil {
		b.logger = logger.NewNop()
	}

	health := healthRoutes{
		service:   b.config.ServiceName,
		version:   b.config.ServiceVersion,
		startedAt: time.Now(),
		checks:    b.healthChecks,
	}

	return NewServer(b.config, b.logger, func(router *gin.Engine) {
		if b.metrics != nil {
			router.Use(b.metrics.Middleware())
			router.GET("/metrics", gin.WrapH(b.metrics.Handler()))
		}
		registerHealthRoutes(router, health)
		if b.setupRoutes != nil {
			b.setupRoutes(router)
		}
	})
}

// ProtectedGroup returns a route group guarded by JWT when jwtSecret is set,
// and an open group otherwise.
func ProtectedGroup(router *gin.Engine, path, jwtSecret string) *gin.RouterGroup {
	group := router.Group(path)
	if jwtSecret != "" {
		group.Use(jwt.Middleware(jwtSecret))
	}
	return group
}
