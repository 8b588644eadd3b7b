// Package profiling starts the optional pprof endpoint and Pyroscope
// continuous profiling.
package profiling

import (
	"errors"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/jonesrussell/north-cloud/metadata-search/infrastructure/logger"
)

// Config selects which profilers run.
type Config struct {
	Pprof       bool   `env:"ENABLE_PROFILING"            yaml:"pprof"`
	PprofAddr   string `env:"PPROF_ADDR"                  yaml:"pprof_addr"`
	Pyroscope   bool   `env:"ENABLE_CONTINUOUS_PROFILING" yaml:"pyroscope"`
	ServerURL   string `env:"PYROSCOPE_SERVER_URL"        yaml:"server_url"`
	Environment string `env:"PYROSCOPE_ENVIRONMENT"       yaml:"environment"`
}

// SetDefaults fills unset fields. pprof binds to localhost only.
func (c *Config) SetDefaults() {
	if c.PprofAddr == "" {
		c.PprofAddr = "localhost:6060"
	}
	if c.ServerURL == "" {
		c.ServerURL = "http://pyroscope:4040"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
}

// PprofHandler serves the /debug/pprof endpoints on its own mux so nothing
// leaks onto http.DefaultServeMux.
func PprofHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}

// StartPprofServer serves PprofHandler on cfg.PprofAddr in the background.
// It returns nil when pprof is disabled.
func StartPprofServer(cfg Config, log logger.Logger) *http.Server {
	if !cfg.Pprof {
		return nil
	}
	cfg.SetDefaults()

	srv := &http.Server{
		Addr:              cfg.PprofAddr,
		Handler:           PprofHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("Starting pprof server", logger.String("address", cfg.PprofAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("pprof server stopped", logger.Error(err))
		}
	}()
	return srv
}
