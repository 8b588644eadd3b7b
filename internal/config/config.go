// Package config loads the metadata-search configuration.
package config

import (
	"fmt"
	"time"

	infraconfig "github.com/jonesrussell/north-cloud/metadata-search/infrastructure/config"
	"github.com/jonesrussell/north-cloud/metadata-search/infrastructure/profiling"
	infraredis "github.com/jonesrussell/north-cloud/metadata-search/infrastructure/redis"
	"github.com/jonesrussell/north-cloud/metadata-search/internal/domain"
)

const (
	defaultPort           = 5064
	defaultESURL          = "http://127.0.0.1:9201"
	defaultMaxRetries     = 3
	defaultRequestTimeout = 30 * time.Second
	defaultCacheTTL       = 5 * time.Minute
)

// Config holds all configuration for the service.
type Config struct {
	Service       ServiceConfig       `yaml:"service"`
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch"`
	Cache         CacheConfig         `yaml:"cache"`
	Auth          AuthConfig          `yaml:"auth"`
	Logging       LoggingConfig       `yaml:"logging"`
	CORS          CORSConfig          `yaml:"cors"`
	Profiling     profiling.Config    `yaml:"profiling"`
}

// ServiceConfig holds service-level configuration.
type ServiceConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version" env:"METADATA_SEARCH_VERSION"`
	Port    int    `yaml:"port" env:"METADATA_SEARCH_PORT"`
	Debug   bool   `yaml:"debug" env:"METADATA_SEARCH_DEBUG"`
}

// ElasticsearchConfig holds the cluster connection and index names.
type ElasticsearchConfig struct {
	URL            string        `yaml:"url" env:"ELASTICSEARCH_URL"`
	Username       string        `yaml:"username" env:"ELASTICSEARCH_USERNAME"`
	Password       string        `yaml:"password" env:"ELASTICSEARCH_PASSWORD"`
	APIKey         string        `yaml:"api_key" env:"ELASTICSEARCH_API_KEY"`
	MaxRetries     int           `yaml:"max_retries"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"ELASTICSEARCH_REQUEST_TIMEOUT"`
	Indexes        IndexConfig   `yaml:"indexes"`
}

// IndexConfig names the served indexes.
type IndexConfig struct {
	MetadataItems     string `yaml:"metadata_items"`
	ItemActivities    string `yaml:"item_activities"`
	DatasetActivities string `yaml:"dataset_activities"`
	ActivityLogs      string `yaml:"activity_logs"`
}

// CacheConfig enables the Redis statistics cache.
type CacheConfig struct {
	infraredis.Config `yaml:",inline"`

	Enabled bool          `yaml:"enabled" env:"CACHE_ENABLED"`
	TTL     time.Duration `yaml:"ttl" env:"CACHE_TTL"`
}

// AuthConfig protects /api/v1 when JWTSecret is set.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"AUTH_JWT_SECRET"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	Enabled        bool     `yaml:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ORIGINS"`
}

// Load loads configuration from file and environment variables.
func Load(path string) (*Config, error) {
	cfg, err := infraconfig.LoadWithDefaults[Config](path, setDefaults)
	if err != nil {
		return nil, err
	}

	if validateErr := cfg.Validate(); validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Service.Name == "" {
		cfg.Service.Name = "metadata-search"
	}
	if cfg.Service.Version == "" {
		cfg.Service.Version = "1.0.0"
	}
	if cfg.Service.Port == 0 {
		cfg.Service.Port = defaultPort
	}

	es := &cfg.Elasticsearch
	if es.URL == "" {
		es.URL = defaultESURL
	}
	if es.MaxRetries == 0 {
		es.MaxRetries = defaultMaxRetries
	}
	if es.RequestTimeout == 0 {
		es.RequestTimeout = defaultRequestTimeout
	}
	setIndexDefaults(&es.Indexes)

	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = defaultCacheTTL
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = []string{"*"}
	}

	cfg.Profiling.SetDefaults()
}

func setIndexDefaults(idx *IndexConfig) {
	if idx.MetadataItems == "" {
		idx.MetadataItems = domain.IndexMetadataItems
	}
	if idx.ItemActivities == "" {
		idx.ItemActivities = domain.IndexItemActivities
	}
	if idx.DatasetActivities == "" {
		idx.DatasetActivities = domain.IndexDatasetActivities
	}
	if idx.ActivityLogs == "" {
		idx.ActivityLogs = domain.IndexActivityLogs
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := infraconfig.ValidatePort("service.port", c.Service.Port); err != nil {
		return err
	}
	if err := infraconfig.ValidateURL("elasticsearch.url", c.Elasticsearch.URL); err != nil {
		return err
	}
	if c.Elasticsearch.RequestTimeout < 0 {
		return &infraconfig.ValidationError{Field: "elasticsearch.request_timeout", Message: "must not be negative"}
	}
	if c.Cache.Enabled && c.Cache.Address == "" {
		return &infraconfig.ValidationError{Field: "cache.address", Message: "is required when the cache is enabled"}
	}
	if c.Cache.TTL < 0 {
		return &infraconfig.ValidationError{Field: "cache.ttl", Message: "must not be negative"}
	}
	if err := infraconfig.ValidateLogLevel(c.Logging.Level); err != nil {
		return err
	}
	return infraconfig.ValidateLogFormat(c.Logging.Format)
}
