package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"happdash/internal/api"
	"happdash/internal/backend"
	"happdash/internal/cache"
	"happdash/internal/config"
	"happdash/internal/events"
	"happdash/internal/export"
	"happdash/internal/logging"
	"happdash/internal/mapper"
	"happdash/internal/metrics"
	"happdash/internal/notify"
	"happdash/internal/repository"
	"happdash/internal/rooms"
	"happdash/internal/service"
	"happdash/internal/views"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}
	logger := baseLogger.With().Str("component", "dashd").Logger()

	metrics.Register()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}

	resolver, err := initRooms(cfg, &logger)
	if err != nil {
		return err
	}
	m := mapper.New(resolver, loc)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	snapshots, redisCloser := initSnapshotStore(ctx, cfg, &logger)
	if redisCloser != nil {
		defer (func(c io.Closer) { _ = c.Close() })(redisCloser)
	}

	c := cache.New(snapshots, &logger)
	defer c.Close()

	client := backend.NewClient(cfg.Backend, &logger)

	viewMgr := views.NewManager(c, client, m, cfg.Refresh, loc, &logger)
	viewMgr.Start()
	defer viewMgr.Stop()

	eventBus := events.NewEventBus()
	notify.NewWebhook(cfg.Webhook, &logger).Register(eventBus)

	planService := service.NewPlanService(client, m, c, eventBus, &logger)
	exporter := export.NewExporter(cfg.Exports, &logger)

	if cfg.API.Enabled {
		apiServer := api.NewServer(cfg.API, viewMgr, planService, exporter, &logger)
		go func() {
			if err := apiServer.Start(); err != nil {
				logger.Error().Err(err).Msg("API server error")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = apiServer.Shutdown(shutdownCtx)
		}()
	}

	if cfg.Monitoring.PrometheusEnabled {
		startMetricsServer(cfg.Monitoring, &logger)
	}

	logger.Info().
		Str("backend", cfg.Backend.BaseURL).
		Int("rooms", resolver.Len()).
		Msg("dashboard daemon started")

	<-ctx.Done()
	logger.Info().Msg("shutting down")
	return nil
}

func initRooms(cfg *config.Config, logger *zerolog.Logger) (*rooms.Resolver, error) {
	if cfg.Rooms.CatalogPath == "" {
		logger.Warn().Msg("no room catalog configured, falling back to numeric room names")
		return rooms.NewResolver(nil, cfg.Rooms.DefaultVenue), nil
	}

	catalog, err := rooms.LoadCatalog(cfg.Rooms.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("loading room catalog: %w", err)
	}

	resolver := rooms.NewResolver(catalog, cfg.Rooms.DefaultVenue)
	logger.Info().Int("rooms", resolver.Len()).Str("path", cfg.Rooms.CatalogPath).Msg("room catalog loaded")
	return resolver, nil
}

// initSnapshotStore picks the snapshot backend: memory only, or Redis with a
// memory fallback when Redis is reachable. A dead Redis at startup is not
// fatal, the dashboard just starts cold.
func initSnapshotStore(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (repository.SnapshotRepository, io.Closer) {
	ttl := time.Duration(cfg.Redis.SnapshotTTL) * time.Second
	memory := repository.NewMemorySnapshotRepository(ttl)

	if !cfg.Redis.Enabled {
		return memory, nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Msg("Redis unavailable, snapshots stay in memory")
		_ = client.Close()
		return memory, nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("Redis snapshot store connected")
	primary := repository.NewRedisSnapshotRepository(client, ttl)
	return repository.NewFailoverSnapshotRepository(primary, memory, logger), client
}

func startMetricsServer(cfg config.MonitoringConfig, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.PrometheusPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("metrics listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server error")
		}
	}()
}
