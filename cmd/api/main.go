package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/adityamehra-dev/orderbook-backend/api/routes"
	"github.com/adityamehra-dev/orderbook-backend/internal/account"
	"github.com/adityamehra-dev/orderbook-backend/internal/auth"
	"github.com/adityamehra-dev/orderbook-backend/internal/ewaybills"
	"github.com/adityamehra-dev/orderbook-backend/internal/fulfillment"
	"github.com/adityamehra-dev/orderbook-backend/internal/ledger"
	"github.com/adityamehra-dev/orderbook-backend/internal/reports"
	"github.com/adityamehra-dev/orderbook-backend/internal/users"
	"github.com/adityamehra-dev/orderbook-backend/pkg/auth/session"
	"github.com/adityamehra-dev/orderbook-backend/pkg/config"
	"github.com/adityamehra-dev/orderbook-backend/pkg/db"
	"github.com/adityamehra-dev/orderbook-backend/pkg/logger"
	"github.com/adityamehra-dev/orderbook-backend/pkg/metrics"
	"github.com/adityamehra-dev/orderbook-backend/pkg/migrate"
	"github.com/adityamehra-dev/orderbook-backend/pkg/redis"
	"github.com/adityamehra-dev/orderbook-backend/pkg/storage/gcs"
)

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

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gcsClient, err := gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap blob storage", err)
		os.Exit(1)
	}
	defer func() {
		if err := gcsClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing blob storage", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	usersRepo := users.NewRepository(dbClient.DB())
	ledgerRepo := ledger.NewRepository(dbClient.DB())
	bucket := gcsClient.BucketHandle("")

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		TxRunner: dbClient,
		UserRepoFactory: func(tx *gorm.DB) auth.RegisterUserRepository {
			return users.NewRepository(tx)
		},
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create register service", err)
		os.Exit(1)
	}

	locker, err := fulfillment.NewRedisOrderLocker(
		redisClient,
		cfg.Bills.OrderLockTTL,
		cfg.Bills.OrderLockRetryInterval,
		cfg.Bills.OrderLockAcquireTimeout,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create order locker", err)
		os.Exit(1)
	}

	fulfillmentService, err := fulfillment.NewService(ledgerRepo, dbClient, locker, bucket, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create fulfillment service", err)
		os.Exit(1)
	}

	var probe ewaybills.ProbeFunc
	if cfg.Bills.AccessibilityCheck {
		httpClient := &http.Client{Timeout: cfg.Bills.AccessibilityTimeout}
		probe = func(ctx context.Context, url string) error {
			return gcs.ProbeURL(ctx, httpClient, url, cfg.Bills.AccessibilityTimeout)
		}
	}

	billsService, err := ewaybills.NewService(ledgerRepo, dbClient, bucket, probe, cfg.Bills, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create attachment service", err)
		os.Exit(1)
	}

	reportsService, err := reports.NewService(reports.ServiceParams{OrdersRepo: ledgerRepo})
	if err != nil {
		logg.Error(context.Background(), "failed to create reports service", err)
		os.Exit(1)
	}

	accountService, err := account.NewService(account.ServiceParams{
		UserRepo:       usersRepo,
		OrderPurger:    fulfillmentService,
		SessionRevoker: sessionManager,
		Logger:         logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create account service", err)
		os.Exit(1)
	}

	promRegistry := prometheus.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(promRegistry)

	router := routes.NewRouter(
		cfg,
		logg,
		dbClient,
		redisClient,
		gcsClient,
		promRegistry,
		httpMetrics,
		sessionManager,
		authService,
		registerService,
		fulfillmentService,
		billsService,
		reportsService,
		accountService,
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-shutdownCtx.Done():
		logg.Info(ctx, "shutting down api server")
		timeout, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(timeout); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}
