package gin

import (
	"context"
	"net/http"
	"runtime"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthStatus is the coarse state reported by health endpoints.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

const healthCheckTimeout = 3 * time.Second

// HealthResponse is the body of /health and /health/ready.
type HealthResponse struct {
	Status  HealthStatus           `json:"status"`
	Service string                 `json:"service"`
	Version string                 `json:"version"`
	Uptime  string                 `json:"uptime,omitempty"`
	Checks  map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult is the outcome of one dependency probe.
type CheckResult struct {
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
	Latency string       `json:"latency,omitempty"`
}

// HealthChecker probes one dependency.
type HealthChecker func(ctx context.Context) CheckResult

// PingChecker adapts a ping function. A failed ping reports failStatus.
func PingChecker(name string, failStatus HealthStatus, ping func(context.Context) error) HealthChecker {
	return func(ctx context.Context) CheckResult {
		start := time.Now()
		err := ping(ctx)
		latency := time.Since(start).String()
		if err != nil {
			return CheckResult{Status: failStatus, Message: name + " unreachable: " + err.Error(), Latency: latency}
		}
		return CheckResult{Status: HealthStatusHealthy, Message: name + " OK", Latency: latency}
	}
}

type healthRoutes struct {
	service   string
	version   string
	startedAt time.Time
	checks    map[string]HealthChecker
}

// registerHealthRoutes adds:
//
//	GET  /health         liveness, never runs checks
//	HEAD /health         load balancer probe
//	GET  /health/ready   readiness, runs every registered check
//	GET  /health/memory  Go runtime memory figures
func registerHealthRoutes(router *gin.Engine, h healthRoutes) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, HealthResponse{
			Status:  HealthStatusHealthy,
			Service: h.service,
			Version: h.version,
			Uptime:  time.Since(h.startedAt).Round(time.Second).String(),
		})
	})
	router.HEAD("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/health/ready", h.ready)
	router.GET("/health/memory", memoryHandler)
}

func (h healthRoutes) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	resp := HealthResponse{
		Status:  HealthStatusHealthy,
		Service: h.service,
		Version: h.version,
		Uptime:  time.Since(h.startedAt).Round(time.Second).String(),
	}

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	if len(names) > 0 {
		resp.Checks = make(map[string]CheckResult, len(names))
	}
	for _, name := range names {
		result := h.checks[name](ctx)
		resp.Checks[name] = result
		switch {
		case result.Status == HealthStatusUnhealthy:
			resp.Status = HealthStatusUnhealthy
		case result.Status == HealthStatusDegraded && resp.Status == HealthStatusHealthy:
			resp.Status = HealthStatusDegraded
		}
	}

	status := http.StatusOK
	if resp.Status == HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

func memoryHandler(c *gin.Context) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	const mib = 1 << 20
	c.JSON(http.StatusOK, gin.H{
		"heap_alloc_mb": float64(ms.HeapAlloc) / mib,
		"heap_inuse_mb": float64(ms.HeapInuse) / mib,
		"sys_mb":        float64(ms.Sys) / mib,
		"num_gc":        ms.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	})
}
