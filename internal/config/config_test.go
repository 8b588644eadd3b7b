package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infraconfig "github.com/jonesrussell/north-cloud/metadata-search/infrastructure/config"
	"github.com/jonesrussell/north-cloud/metadata-search/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)

	assert.Equal(t, "metadata-search", cfg.Service.Name)
	assert.Equal(t, 5064, cfg.Service.Port)
	assert.Equal(t, "http://127.0.0.1:9201", cfg.Elasticsearch.URL)
	assert.Equal(t, 30*time.Second, cfg.Elasticsearch.RequestTimeout)
	assert.Equal(t, "metadata-items", cfg.Elasticsearch.Indexes.MetadataItems)
	assert.Equal(t, "items-activity-logs", cfg.Elasticsearch.Indexes.ItemActivities)
	assert.Equal(t, "dataset-activity-logs", cfg.Elasticsearch.Indexes.DatasetActivities)
	assert.Equal(t, "activity-logs", cfg.Elasticsearch.Indexes.ActivityLogs)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "localhost:6060", cfg.Profiling.PprofAddr)
}

func TestLoad_FileAndEnv(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))
	t.Setenv("ELASTICSEARCH_URL", "http://es.internal:9200")
	t.Setenv("REDIS_ADDRESS", "redis:6379")

	path := writeConfig(t, `
service:
  port: 6000
elasticsearch:
  url: http://ignored:9200
  indexes:
    metadata_items: items-v2
cache:
  enabled: true
  ttl: 1m
auth:
  jwt_secret: s3cret
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 6000, cfg.Service.Port)
	assert.Equal(t, "http://es.internal:9200", cfg.Elasticsearch.URL)
	assert.Equal(t, "items-v2", cfg.Elasticsearch.Indexes.MetadataItems)
	assert.Equal(t, "items-activity-logs", cfg.Elasticsearch.Indexes.ItemActivities)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "redis:6379", cfg.Cache.Address)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]struct {
		body  string
		field string
	}{
		"port":          {body: "service:\n  port: 70000\n", field: "service.port"},
		"url":           {body: "elasticsearch:\n  url: not-a-url\n", field: "elasticsearch.url"},
		"cache address": {body: "cache:\n  enabled: true\n", field: "cache.address"},
		"log level":     {body: "logging:\n  level: loud\n", field: "logging.level"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))

			_, err := config.Load(writeConfig(t, tt.body))
			require.Error(t, err)

			var verr *infraconfig.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}
