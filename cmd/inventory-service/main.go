package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/padbank/padbank-backend/internal/inventory/consumers"
	"github.com/padbank/padbank-backend/internal/inventory/domain"
	"github.com/padbank/padbank-backend/internal/inventory/events"
	"github.com/padbank/padbank-backend/internal/inventory/handler"
	"github.com/padbank/padbank-backend/internal/inventory/repository"
	"github.com/padbank/padbank-backend/internal/inventory/service"
	"github.com/padbank/padbank-backend/migrations"
	"github.com/padbank/padbank-backend/pkg/config"
	"github.com/padbank/padbank-backend/pkg/database"
	"github.com/padbank/padbank-backend/pkg/httputil"
	"github.com/padbank/padbank-backend/pkg/logger"
	"github.com/padbank/padbank-backend/pkg/messaging"
	"github.com/padbank/padbank-backend/pkg/metrics"
)

const serviceName = "inventory-service"

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(serviceName, cfg.Server.Environment)
	log.Info().Msg("starting Inventory Service")

	if cfg.Database.MigrateOnStart {
		if err := migrate(cfg, log); err != nil {
			log.Fatal().Err(err).Msg("failed to apply migrations")
		}
	}

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	m := metrics.New(metrics.DefaultConfig(serviceName))

	opts, err := service.OptionsFromConfig(&cfg.Inventory)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid inventory configuration")
	}

	// Repositories
	batchRepo := repository.NewBatchRepository(db)
	distributionRepo := repository.NewDistributionRepository(db)
	adjustmentRepo := repository.NewAdjustmentRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	reportRepo := repository.NewReportRepository(db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Messaging is optional; without it the student projection is only
	// filled by whatever else writes to the students table.
	var (
		publisher service.EventPublisher
		rmq       *messaging.RabbitMQ
	)
	if cfg.RabbitMQ.Enabled {
		rmq, err = messaging.New(&cfg.RabbitMQ, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		defer rmq.Close()

		eventPublisher, err := events.NewInventoryEventPublisher(rmq, m, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create event publisher")
		}
		publisher = eventPublisher

		userConsumer, err := consumers.NewUserEventConsumer(rmq, studentRepo, m, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create user event consumer")
		}
		if err := userConsumer.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to start user event consumer")
		}
	} else {
		log.Warn().Msg("RabbitMQ disabled, inventory events will not be published")
	}

	// Services
	inventoryService := service.NewInventoryService(db, batchRepo, domain.NewBatchIDGenerator(), publisher, m, opts, log)
	distributionService := service.NewDistributionService(db, batchRepo, distributionRepo, studentRepo, publisher, m, opts, log)
	adjustmentService := service.NewAdjustmentService(db, batchRepo, adjustmentRepo, publisher, m, opts, log)
	reportService := service.NewReportService(batchRepo, reportRepo, opts, log)

	if cfg.Inventory.ExpirySweepInterval > 0 {
		sweeper := service.NewExpirySweeper(db, batchRepo, cfg.Inventory.ExpirySweepInterval, opts, log)
		sweeper.Start(ctx)
		defer sweeper.Stop()
	}

	// Handlers
	if err := handler.RegisterValidators(); err != nil {
		log.Fatal().Err(err).Msg("failed to register validators")
	}
	handlers := &handler.Handlers{
		Inventory:    handler.NewInventoryHandler(inventoryService, log),
		Distribution: handler.NewDistributionHandler(distributionService, log),
		Stock:        handler.NewStockHandler(adjustmentService, log),
		Report:       handler.NewReportHandler(reportService, log),
	}

	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.UserContext)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(metrics.Middleware(m))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-User-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           cfg.CORS.MaxAge,
	}))

	checks := map[string]httputil.HealthCheck{"database": db.Health}
	if rmq != nil {
		checks["rabbitmq"] = func(context.Context) map[string]string { return rmq.Health() }
	}
	r.Get("/health", httputil.Health(serviceName, checks))
	r.Handle("/metrics", m.Handler())

	r.Route("/api/v1/inventory", handlers.Mount)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Stops the consumer and the expiry sweeper
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func migrate(cfg *config.Config, log *logger.Logger) error {
	migrator, err := database.NewMigrator(migrations.FS, cfg.Database.MigrationURL(), log)
	if err != nil {
		return err
	}
	defer migrator.Close()
	return migrator.Up()
}
