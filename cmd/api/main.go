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

	webhookcontrollers "github.com/angelmondragon/printbridge-backend/api/controllers/webhooks"
	"github.com/angelmondragon/printbridge-backend/api/routes"
	"github.com/angelmondragon/printbridge-backend/internal/intake"
	"github.com/angelmondragon/printbridge-backend/internal/orders"
	"github.com/angelmondragon/printbridge-backend/internal/signature"
	"github.com/angelmondragon/printbridge-backend/internal/vendors"
	"github.com/angelmondragon/printbridge-backend/internal/wallet"
	"github.com/angelmondragon/printbridge-backend/pkg/config"
	"github.com/angelmondragon/printbridge-backend/pkg/db"
	"github.com/angelmondragon/printbridge-backend/pkg/logger"
	"github.com/angelmondragon/printbridge-backend/pkg/metrics"
	"github.com/angelmondragon/printbridge-backend/pkg/migrate"
	"github.com/angelmondragon/printbridge-backend/pkg/outbox"
	"github.com/angelmondragon/printbridge-backend/pkg/redis"
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

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
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

	var (
		redisClient *redis.Client
		redisPinger interface{ Ping(context.Context) error }
		guard       *intake.DeliveryGuard
	)
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
		guard, err = intake.NewDeliveryGuard(redisClient, cfg.Webhooks.DeliveryTTL)
		if err != nil {
			logg.Error(context.Background(), "failed to create delivery guard", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "redis not configured, delivery guard disabled")
	}

	conn := dbClient.DB()
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)
	orderRepo := orders.NewRepository(conn)

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:   orderRepo,
		Tx:     dbClient,
		DB:     conn,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}
	if cfg.FeatureFlags.UseSQLite {
		if err := ordersService.EnsureSchema(context.Background()); err != nil {
			logg.Error(context.Background(), "failed to bootstrap schema", err)
			os.Exit(1)
		}
	}

	walletService, err := wallet.NewService(wallet.ServiceParams{
		Repo:   wallet.NewRepository(conn),
		Orders: orderRepo,
		Tx:     dbClient,
		Outbox: emitter,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet service", err)
		os.Exit(1)
	}

	resolver, err := vendors.NewResolver(vendors.ResolverParams{
		Repo:   vendors.NewRepository(conn),
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create vendor resolver", err)
		os.Exit(1)
	}

	webhookMetrics := metrics.NewWebhookMetrics(prometheus.DefaultRegisterer)

	pipeline, err := intake.NewPipeline(intake.PipelineParams{
		Resolver: resolver,
		Orders:   ordersService,
		Wallet:   walletService,
		Outbox:   emitter,
		Tx:       dbClient,
		Guard:    guard,
		Metrics:  webhookMetrics,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create intake pipeline", err)
		os.Exit(1)
	}

	router := routes.NewRouter(routes.RouterParams{
		Config: cfg,
		Logger: logg,
		DB:     dbClient,
		Redis:  redisPinger,
		OrderWebhook: webhookcontrollers.OrderWebhookParams{
			Pipeline: pipeline,
			Verifier: signature.NewVerifier(cfg.Webhooks.Secret),
			Policy: signature.Policy{
				Strict:        cfg.Webhooks.StrictSignature,
				AllowUnsigned: cfg.Webhooks.AllowUnsigned,
			},
			Config:  cfg.Webhooks,
			Metrics: webhookMetrics,
			Logger:  logg,
		},
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":              cfg.App.Env,
		"addr":             addr,
		"strict_signature": cfg.Webhooks.StrictSignature,
	})
	logg.Info(ctx, "starting api server")

	// Writes must outlast the processing deadline so the ack still reaches the sender.
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.Webhooks.ProcessingTimeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
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
