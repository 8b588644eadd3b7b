package main

import (
	"context"
	"fmt"
	"os"

	es "github.com/elastic/go-elasticsearch/v8"

	infraconfig "github.com/jonesrussell/north-cloud/metadata-search/infrastructure/config"
	infraes "github.com/jonesrussell/north-cloud/metadata-search/infrastructure/elasticsearch"
	infragin "github.com/jonesrussell/north-cloud/metadata-search/infrastructure/gin"
	infralogger "github.com/jonesrussell/north-cloud/metadata-search/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/metadata-search/infrastructure/metrics"
	"github.com/jonesrussell/north-cloud/metadata-search/infrastructure/profiling"
	infraredis "github.com/jonesrussell/north-cloud/metadata-search/infrastructure/redis"
	"github.com/jonesrussell/north-cloud/metadata-search/internal/api"
	"github.com/jonesrussell/north-cloud/metadata-search/internal/cache"
	"github.com/jonesrussell/north-cloud/metadata-search/internal/config"
	"github.com/jonesrussell/north-cloud/metadata-search/internal/crud"
	"github.com/jonesrussell/north-cloud/metadata-search/internal/elasticsearch"
	"github.com/jonesrussell/north-cloud/metadata-search/internal/eshelper"
)

const metricsNamespace = "metadata_search"

func main() {
	os.Exit(run())
}

func run() int {
	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	// Initialize logger
	log, err := createLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	// Start profilers (if enabled)
	profiling.StartPprofServer(cfg.Profiling, log)
	if pyroProfiler, pyroErr := profiling.StartPyroscope(cfg.Profiling, cfg.Service.Name, cfg.Service.Version, log); pyroErr != nil {
		log.Warn("Pyroscope failed to start", infralogger.Error(pyroErr))
	} else if pyroProfiler != nil {
		defer pyroProfiler.Stop() //nolint:errcheck // best-effort cleanup
	}

	log.Info("Starting metadata-search service",
		infralogger.String("name", cfg.Service.Name),
		infralogger.String("version", cfg.Service.Version),
		infralogger.Int("port", cfg.Service.Port),
		infralogger.Bool("debug", cfg.Service.Debug),
	)

	ctx := context.Background()

	esClient, err := setupElasticsearch(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to create Elasticsearch client", infralogger.Error(err))
		return 1
	}

	return runServer(ctx, cfg, esClient, log)
}

// loadConfig loads configuration from config file.
func loadConfig() (*config.Config, error) {
	configPath := infraconfig.GetConfigPath("config.yml")
	return config.Load(configPath)
}

// createLogger creates a logger instance from configuration.
func createLogger(cfg *config.Config) (infralogger.Logger, error) {
	log, err := infralogger.New(infralogger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Development: cfg.Service.Debug,
	})
	if err != nil {
		return nil, err
	}
	return log.With(infralogger.String("service", cfg.Service.Name)), nil
}

func setupElasticsearch(ctx context.Context, cfg *config.Config, log infralogger.Logger) (*es.Client, error) {
	return infraes.NewClient(ctx, infraes.Config{
		URL:        cfg.Elasticsearch.URL,
		Username:   cfg.Elasticsearch.Username,
		Password:   cfg.Elasticsearch.Password,
		APIKey:     cfg.Elasticsearch.APIKey,
		MaxRetries: cfg.Elasticsearch.MaxRetries,
	}, log)
}

// setupCache connects Redis when the cache is enabled. A failed connection
// disables caching rather than stopping the service.
func setupCache(ctx context.Context, cfg *config.Config, log infralogger.Logger) (*cache.Cache, infragin.HealthChecker) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}

	client, err := infraredis.NewClient(ctx, cfg.Cache.Config)
	if err != nil {
		log.Warn("Redis unavailable, statistics cache disabled",
			infralogger.String("address", cfg.Cache.Address),
			infralogger.Error(err),
		)
		return nil, nil
	}

	log.Info("Statistics cache enabled",
		infralogger.String("address", cfg.Cache.Address),
		infralogger.Duration("ttl", cfg.Cache.TTL),
	)
	c := cache.New(client, cfg.Cache.TTL, log)
	return c, infragin.PingChecker("Redis", infragin.HealthStatusDegraded, c.Ping)
}

func pingElasticsearch(client *es.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		res, err := client.Ping(client.Ping.WithContext(ctx))
		if err != nil {
			return err
		}
		defer res.Body.Close()
		if res.IsError() {
			return fmt.Errorf("ping: %s", res.Status())
		}
		return nil
	}
}

// runServer wires the repositories, handler and HTTP server, then runs with
// graceful shutdown.
func runServer(ctx context.Context, cfg *config.Config, esClient *es.Client, log infralogger.Logger) int {
	m := metrics.New(metricsNamespace)

	engine := elasticsearch.NewEngine(esClient, log,
		elasticsearch.WithMetrics(m),
		elasticsearch.WithRequestTimeout(cfg.Elasticsearch.RequestTimeout),
	)

	indexes := cfg.Elasticsearch.Indexes
	items := crud.NewMetadataItems(engine, indexes.MetadataItems, log)
	itemActivities := crud.NewItemActivities(engine, indexes.ItemActivities, log)
	datasetActivities := crud.NewDatasetActivities(engine, indexes.DatasetActivities, log)
	activityLogs := eshelper.NewHelper(engine)

	checks := map[string]infragin.HealthChecker{
		"elasticsearch": infragin.PingChecker("Elasticsearch", infragin.HealthStatusUnhealthy, pingElasticsearch(esClient)),
	}

	var opts []api.HandlerOption
	if statsCache, cacheCheck := setupCache(ctx, cfg, log); statsCache != nil {
		opts = append(opts, api.WithCache(statsCache))
		checks["redis"] = cacheCheck
	}

	handler := api.NewHandler(items, itemActivities, datasetActivities, activityLogs, indexes.ActivityLogs, log, opts...)
	server := api.NewServer(handler, cfg, log, m, checks)

	log.Info("Metadata-search service starting",
		infralogger.Int("port", cfg.Service.Port),
		infralogger.String("metadata_items_index", indexes.MetadataItems),
		infralogger.Bool("auth", cfg.Auth.JWTSecret != ""),
	)

	if runErr := server.RunWithGracefulShutdown(ctx); runErr != nil {
		log.Error("Server error", infralogger.Error(runErr))
		return 1
	}

	log.Info("Metadata-search service exited cleanly")
	return 0
}
