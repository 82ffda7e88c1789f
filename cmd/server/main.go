package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/trailview/service-routes/internal/application"
	"github.com/trailview/service-routes/internal/cache"
	"github.com/trailview/service-routes/internal/config"
	"github.com/trailview/service-routes/internal/domain/profile"
	routeEvents "github.com/trailview/service-routes/internal/events"
	"github.com/trailview/service-routes/internal/handler"
	"github.com/trailview/service-routes/internal/metrics"
	"github.com/trailview/service-routes/internal/platform/database"
	"github.com/trailview/service-routes/internal/platform/kafka"
	"github.com/trailview/service-routes/internal/platform/logger"
	"github.com/trailview/service-routes/internal/platform/middleware"
	"github.com/trailview/service-routes/internal/repository"
	"github.com/trailview/service-routes/internal/terrain"
	"github.com/trailview/service-routes/internal/viewsync"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, "service-routes")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting service-routes",
		zap.String("port", cfg.Port),
	)

	// Connect to database
	db, err := database.Connect(cfg.DBConfig.DSN(), log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// Initialize repository and run migrations
	routeRepo := repository.NewGormRouteRepository(db)
	if err := routeRepo.AutoMigrate(); err != nil {
		log.Fatal("failed to run auto-migration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize profile cache
	redisClient := cache.OpenRedis(cfg.RedisConfig.Addr, cfg.RedisConfig.Password, cfg.RedisConfig.DB)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}
	profileCache := cache.NewProfileCache(redisClient, "", cfg.RedisConfig.ProfileTTL)

	// Initialize terrain service
	var terrainService profile.TerrainService
	if cfg.TerrainConfig.Enabled {
		srtm, err := terrain.NewSRTM(cfg.TerrainConfig.Timeout, log.Named("terrain"))
		if err != nil {
			log.Warn("terrain service unavailable, serving stored profiles only", zap.Error(err))
		} else {
			terrainService = srtm
		}
	}

	// Initialize application services
	catalog := application.NewCatalog(routeRepo, log)
	catalog.Load(ctx)

	profileService := application.NewProfileService(routeRepo, profile.NewBuilder(terrainService, log), profileCache, log)
	routeService := application.NewRouteService(catalog, routeRepo, profileService, log)

	// Initialize Kafka publisher and consumer
	var eventSink application.EventSink
	if cfg.KafkaConfig.Enabled() {
		kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
		defer func() { _ = kafkaProducer.Close() }()

		publisher := routeEvents.NewSessionEventPublisher(kafkaProducer, cfg.KafkaConfig.QueueSize, log)
		defer publisher.Close()
		eventSink = publisher

		groupID := cfg.KafkaConfig.GroupPrefix + "routes-service"
		catalogConsumer := routeEvents.NewCatalogEventConsumer(
			cfg.KafkaConfig.Brokers,
			groupID,
			catalog,
			profileCache,
			log,
		)
		defer func() { _ = catalogConsumer.Close() }()

		go func() {
			log.Info("starting catalog event consumer")
			if err := catalogConsumer.Start(ctx); err != nil && err != context.Canceled {
				log.Error("catalog event consumer error", zap.Error(err))
			}
		}()
	} else {
		log.Info("no kafka brokers configured, session events are not published")
	}

	sessionConfig := application.SessionConfig{
		Guard: viewsync.GuardConfig{
			Window:            cfg.SyncConfig.SuppressWindow,
			NavigationTimeout: cfg.SyncConfig.NavigationTimeout,
		},
		HoverThresholdM: cfg.SyncConfig.HoverThresholdM,
	}
	sessionService := application.NewSessionService(catalog, routeRepo, profileService, eventSink, sessionConfig, log)
	defer sessionService.CloseAll()

	go sessionService.RunReaper(ctx, cfg.SyncConfig.ReaperInterval, cfg.SyncConfig.SessionIdleTimeout)

	// Initialize HTTP handlers
	routeHandler := handler.NewRouteHandler(routeService)
	sessionHandler := handler.NewSessionHandler(sessionService, cfg.AllowedOrigins, log)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())

	// Register health check and metrics routes
	healthChecks := map[string]handler.Pinger{
		"postgres": handler.PingFunc(func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}),
	}
	if redisClient != nil {
		healthChecks["redis"] = profileCache
	}
	handler.NewHealthHandler("service-routes", healthChecks).RegisterRoutes(router)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Register routes
	routeHandler.RegisterRoutes(&router.RouterGroup)
	sessionHandler.RegisterRoutes(&router.RouterGroup)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down service-routes...")

	// Cancel the consumer and reaper context
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info("service-routes stopped")
}
