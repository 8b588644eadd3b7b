// Package elasticsearch constructs a verified go-elasticsearch client.
package elasticsearch

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"

	"github.com/jonesrussell/north-cloud/metadata-search/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/metadata-search/infrastructure/retry"
)

// NewClient builds a client from cfg and blocks until the cluster answers a
// ping or the startup retry budget is spent.
func NewClient(ctx context.Context, cfg Config, log logger.Logger) (*es.Client, error) {
	cfg.SetDefaults()
	if log == nil {
		log = logger.NewNop()
	}

	esCfg, err := clientConfig(cfg)
	if err != nil {
		return nil, err
	}

	client, err := es.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	url := esCfg.Addresses[0]
	log.Info("Verifying Elasticsearch connection", logger.String("url", url))

	if pingErr := retry.Retry(ctx, *cfg.StartupRetry, func() error {
		return ping(ctx, client, cfg.PingTimeout, log)
	}); pingErr != nil {
		return nil, fmt.Errorf("connect to elasticsearch: %w", pingErr)
	}

	log.Info("Elasticsearch connection established", logger.String("url", url))
	return client, nil
}

func clientConfig(cfg Config) (es.Config, error) {
	esCfg := es.Config{
		Addresses:  []string{normalizeURL(cfg.URL)},
		MaxRetries: cfg.MaxRetries,
	}

	switch {
	case cfg.APIKey != "":
		esCfg.APIKey = cfg.APIKey
	case cfg.Username != "" && cfg.Password != "":
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	if cfg.CAFile != "" {
		pem, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return es.Config{}, fmt.Errorf("read elasticsearch CA file: %w", err)
		}
		esCfg.CACert = pem
	}

	if cfg.InsecureSkipVerify {
		esCfg.Transport = &http.Transport{
			//nolint:gosec // opt-in for local clusters with self-signed certificates
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return esCfg, nil
}

func normalizeURL(url string) string {
	if url == "" {
		return defaultURL
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return "http://" + url
	}
	return url
}

func ping(ctx context.Context, client *es.Client, timeout time.Duration, log logger.Logger) error {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := client.Ping(client.Ping.WithContext(pingCtx))
	if err != nil {
		log.Debug("Elasticsearch ping failed", logger.Error(err))
		return fmt.Errorf("ping: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("ping returned %s: %s", res.Status(), strings.TrimSpace(string(body)))
	}
	return nil
}
