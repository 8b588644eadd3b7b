package elasticsearch

import (
	"time"

	"github.com/jonesrussell/north-cloud/metadata-search/infrastructure/retry"
)

const (
	defaultURL         = "http://127.0.0.1:9201"
	defaultMaxRetries  = 3
	defaultPingTimeout = 5 * time.Second
)

// Config describes how to reach the cluster.
type Config struct {
	URL      string
	Username string
	Password string
	APIKey   string

	// CAFile is a PEM bundle used to verify the cluster certificate.
	CAFile string
	// InsecureSkipVerify disables certificate verification. Local clusters only.
	InsecureSkipVerify bool

	// MaxRetries is the transport-level retry budget of the client itself.
	MaxRetries  int
	PingTimeout time.Duration

	// StartupRetry governs how long NewClient waits for the cluster to answer.
	StartupRetry *retry.Config
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.URL == "" {
		c.URL = defaultURL
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.PingTimeout == 0 {
		c.PingTimeout = defaultPingTimeout
	}
	if c.StartupRetry == nil {
		c.StartupRetry = &retry.Config{
			MaxAttempts:  5,
			InitialDelay: 2 * time.Second,
			MaxDelay:     10 * time.Second,
			Multiplier:   2.0,
		}
	}
}
