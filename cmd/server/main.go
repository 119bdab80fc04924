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

	"termin/internal/api"
	"termin/internal/config"
	"termin/internal/database"
	"termin/internal/domain"
	"termin/internal/events"
	"termin/internal/export"
	"termin/internal/google"
	"termin/internal/logging"
	"termin/internal/metrics"
	"termin/internal/repository"
	"termin/internal/schedule"
	"termin/internal/service"
	"termin/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	catalog, hours, err := loadShopCatalog(&logger)
	if err != nil {
		return err
	}
	slots := schedule.GenerateSlots(hours)

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	redisClient := initRedis(cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cacheTTL := time.Duration(cfg.Booking.CacheTTLSeconds) * time.Second
	cache := buildAvailabilityCache(redisClient, cacheTTL, &logger)

	sheetsService := initGoogleSheets(cfg, &logger)
	var syncWorker domain.SyncWorker
	if sheetsService != nil {
		w := worker.NewSyncWorker(sheetsService, redisClient, worker.DefaultMirrorRetryPolicy(), &logger)
		go w.Start(ctx)
		syncWorker = w
	}

	bus := events.NewEventBus()
	subscribeEventLog(bus, &logger)

	storeTimeout := time.Duration(cfg.Booking.StoreTimeoutSeconds) * time.Second
	bookingService := service.NewBookingService(db, db, catalog, slots, bus, cache, syncWorker, storeTimeout, &logger)
	moderationService := service.NewModerationService(db, slots, bus, cache, syncWorker, storeTimeout, &logger)
	availabilityService := service.NewAvailabilityService(db, cache, slots, storeTimeout, &logger)
	exporter := export.NewScheduleExporter(db, slots, cfg.Exports.Path, &logger)

	if cfg.Backup.Enabled {
		backupService := database.NewBackupService(cfg.Database.Path, cfg.Backup, &logger)
		go backupService.Start(ctx)
	}

	startMetrics(ctx, cfg, &logger)

	httpServer := api.NewHTTPServer(cfg.API, bookingService, moderationService, availabilityService, exporter, catalog, &logger)
	return startServer(ctx, httpServer, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := logging.Component(baseLogger, "server")

	return cfg, logger, closer, nil
}

func loadShopCatalog(logger *zerolog.Logger) (*service.ShopCatalog, schedule.BusinessHours, error) {
	catalogPath := os.Getenv("CATALOG_PATH")
	if catalogPath == "" {
		catalogPath = "configs/catalog.yaml"
	}

	data, err := os.ReadFile(catalogPath)
	if err != nil {
		logger.Error().Err(err).Str("catalog_path", catalogPath).Msg("read catalog")
		return nil, schedule.BusinessHours{}, err
	}

	var fileCatalog struct {
		service.ShopCatalog `yaml:",inline"`
		Hours               schedule.BusinessHours `yaml:"hours"`
	}
	if err := yaml.Unmarshal(data, &fileCatalog); err != nil {
		logger.Error().Err(err).Str("catalog_path", catalogPath).Msg("parse catalog")
		return nil, schedule.BusinessHours{}, err
	}

	hours := fileCatalog.Hours
	if hours == (schedule.BusinessHours{}) {
		hours = schedule.DefaultBusinessHours()
	}

	if len(fileCatalog.Services) == 0 || len(fileCatalog.Barbers) == 0 {
		return nil, hours, fmt.Errorf("catalog %s must list services and barbers", catalogPath)
	}
	return &fileCatalog.ShopCatalog, hours, nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

func buildAvailabilityCache(redisClient *redis.Client, ttl time.Duration, logger *zerolog.Logger) domain.AvailabilityCache {
	memory := repository.NewMemoryAvailabilityCache(ttl)
	if redisClient == nil {
		return memory
	}
	primary := repository.NewRedisAvailabilityCache(redisClient, ttl)
	return repository.NewFailoverAvailabilityCache(primary, memory, logger)
}

func initGoogleSheets(cfg *config.Config, logger *zerolog.Logger) *google.SheetsService {
	if cfg.Google.GoogleCredentialsFile == "" || cfg.Google.ScheduleSpreadSheetID == "" {
		return nil
	}

	sheetsService, err := google.NewSheetsService(
		cfg.Google.GoogleCredentialsFile,
		cfg.Google.ScheduleSpreadSheetID,
	)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without mirror")
		return nil
	}

	logger.Info().Msg("google sheets connected")
	return sheetsService
}

func subscribeEventLog(bus *events.EventBus, logger *zerolog.Logger) {
	for _, eventType := range []string{
		events.EventBookingSubmitted,
		events.EventBookingApproved,
		events.EventBookingRejected,
		events.EventBookingCancelled,
		events.EventSlotBlocked,
		events.EventSlotUnblocked,
	} {
		bus.Subscribe(eventType, func(event *events.Event) error {
			logger.Info().
				Str("event", event.Type).
				RawJSON("payload", event.Payload).
				Msg("booking event")
			return nil
		})
	}
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	go startMetricsServer(ctx, port, logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}

func startServer(ctx context.Context, httpServer *api.HTTPServer, logger *zerolog.Logger) error {
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown error")
	}

	logger.Info().Msg("server stopped")
	return nil
}
