package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/nutriflow-backend/api/controllers"
	"github.com/angelmondragon/nutriflow-backend/api/routes"
	"github.com/angelmondragon/nutriflow-backend/internal/billing"
	"github.com/angelmondragon/nutriflow-backend/internal/patients"
	"github.com/angelmondragon/nutriflow-backend/internal/subscriptions"
	"github.com/angelmondragon/nutriflow-backend/pkg/config"
	"github.com/angelmondragon/nutriflow-backend/pkg/db"
	"github.com/angelmondragon/nutriflow-backend/pkg/logger"
	"github.com/angelmondragon/nutriflow-backend/pkg/metrics"
	"github.com/angelmondragon/nutriflow-backend/pkg/migrate"
	"github.com/angelmondragon/nutriflow-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	// Redis only backs the catalog cache here, so the API runs without it.
	var redisClient *redis.Client
	var redisPinger controllers.Pinger
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		redisPinger = redisClient
	} else {
		logg.Warn(context.Background(), "redis not configured; catalog cache disabled")
	}

	patientRepo := patients.NewRepository(dbClient.DB())
	lifecycleRepo := subscriptions.NewRepository(dbClient.DB())
	billingRepo := billing.NewRepository(dbClient.DB())

	subscriptionService, err := subscriptions.NewService(subscriptions.ServiceParams{
		Repo:              lifecycleRepo,
		PatientRepo:       patientRepo,
		CatalogRepo:       billingRepo,
		PaymentRepo:       billingRepo,
		TransactionRunner: dbClient,
		Logger:            logg,
		Metrics:           metrics.NewLifecycleMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create subscription service", err)
		os.Exit(1)
	}

	patientService, err := patients.NewService(patients.ServiceParams{
		Repo:              patientRepo,
		Lifecycle:         lifecycleRepo,
		Payments:          billingRepo,
		TransactionRunner: dbClient,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create patient service", err)
		os.Exit(1)
	}

	billingParams := billing.ServiceParams{
		Repo:        billingRepo,
		History:     lifecycleRepo,
		PatientRepo: patientRepo,
		Logger:      logg,
	}
	if redisClient != nil {
		billingParams.Cache = redisClient
	}
	billingService, err := billing.NewService(billingParams)
	if err != nil {
		logg.Error(context.Background(), "failed to create billing service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, dbClient, redisPinger, nil, patientService, subscriptionService, billingService),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}
