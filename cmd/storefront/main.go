package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/Hassan1910/Terral-sub000/domain"
	"github.com/Hassan1910/Terral-sub000/internal/assets"
	"github.com/Hassan1910/Terral-sub000/internal/auth"
	"github.com/Hassan1910/Terral-sub000/internal/cart"
	"github.com/Hassan1910/Terral-sub000/internal/checkout"
	"github.com/Hassan1910/Terral-sub000/internal/config"
	apihttp "github.com/Hassan1910/Terral-sub000/internal/http"
	"github.com/Hassan1910/Terral-sub000/internal/logger"
	"github.com/Hassan1910/Terral-sub000/internal/metrics"
	"github.com/Hassan1910/Terral-sub000/internal/orders"
	"github.com/Hassan1910/Terral-sub000/internal/payment"
	"github.com/Hassan1910/Terral-sub000/internal/pricing"
	"github.com/Hassan1910/Terral-sub000/internal/publisher"
	"github.com/Hassan1910/Terral-sub000/internal/reconciler"
	"github.com/Hassan1910/Terral-sub000/internal/repository"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:           "storefront",
		Short:         "Branded merchandise storefront API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); defaults to LOG_LEVEL")

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, payment simulator and outbox publisher",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(logLevel)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return migrateOnly(logLevel)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("storefront version %s\n", version)
		},
	})
	return cmd
}

func setup(logLevel string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(logLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("build logger: %w", err)
	}
	zap.ReplaceGlobals(log)
	return cfg, log, nil
}

func openRepository(cfg config.DatabaseConfig) (*repository.Repository, error) {
	switch strings.ToLower(cfg.Driver) {
	case string(repository.DialectSQLite):
		return repository.NewSQLiteRepository(cfg.SQLitePath)
	case string(repository.DialectPostgres):
		return repository.NewRepository(&repository.Credentials{
			Host:              cfg.Host,
			Port:              cfg.Port,
			User:              cfg.User,
			Password:          cfg.Password,
			DBName:            cfg.Name,
			MigrationsDirPath: cfg.MigrationsDirPath,
		})
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}
}

func migrateOnly(logLevel string) error {
	cfg, log, err := setup(logLevel)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	repo, err := openRepository(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer repo.Close()

	if err := repo.RunMigrations(cfg.Database.MigrationsDirPath); err != nil {
		return err
	}
	log.Info("database migrations completed", zap.String("driver", string(repo.Dialect())))
	return nil
}

// healthCheck reports ready only when both the database and Redis answer.
type healthCheck struct {
	repo  *repository.Repository
	redis *redis.Client
}

func (h healthCheck) Ping(ctx context.Context) error {
	if err := h.repo.Ping(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := h.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return nil
}

func assetBackend(ctx context.Context, cfg config.AssetsConfig) (assets.Backend, http.Handler, func(), error) {
	switch strings.ToLower(cfg.Backend) {
	case "gcs":
		client, err := gcs.NewClient(ctx)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("create storage client: %w", err)
		}
		backend, err := assets.NewGCSBackend(client, cfg.Bucket, "customizations")
		if err != nil {
			_ = client.Close()
			return nil, nil, nil, err
		}
		return backend, nil, func() { _ = client.Close() }, nil
	case "fs", "":
		backend, err := assets.NewFileBackend(cfg.Dir)
		if err != nil {
			return nil, nil, nil, err
		}
		return backend, backend.Handler(), func() {}, nil
	default:
		return nil, nil, nil, fmt.Errorf("unsupported ASSET_BACKEND %q", cfg.Backend)
	}
}

func shippingTable(cfg config.PricingConfig) (map[domain.ShippingOption]domain.Money, error) {
	standard, err := domain.ParseMoney(cfg.StandardShipping)
	if err != nil {
		return nil, fmt.Errorf("invalid SHIPPING_STANDARD: %w", err)
	}
	express, err := domain.ParseMoney(cfg.ExpressShipping)
	if err != nil {
		return nil, fmt.Errorf("invalid SHIPPING_EXPRESS: %w", err)
	}
	return map[domain.ShippingOption]domain.Money{
		domain.ShippingStandard: standard,
		domain.ShippingExpress:  express,
	}, nil
}

func serve(logLevel string) error {
	cfg, log, err := setup(logLevel)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	log.Info("storefront starting", zap.String("version", version), zap.String("env", cfg.Env))
	if cfg.Development() {
		log.Warn("APP_ENV=development: placeholder secrets are in use")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database setup
	repo, err := openRepository(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer repo.Close()

	if err := repo.RunMigrations(cfg.Database.MigrationsDirPath); err != nil {
		return err
	}
	log.Info("database migrations completed", zap.String("driver", string(repo.Dialect())))

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("redis unreachable, session carts unavailable until it recovers", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}
	sessions := cart.NewSessionStore(rdb, cfg.Redis.SessionTTL)

	backend, uploads, closeBackend, err := assetBackend(ctx, cfg.Assets)
	if err != nil {
		return fmt.Errorf("asset storage: %w", err)
	}
	defer closeBackend()
	images, err := assets.NewStore(assets.StoreDeps{
		Backend:   backend,
		MaxBytes:  cfg.Assets.MaxBytes,
		PublicURL: cfg.Assets.PublicBase,
		Logger:    log,
	})
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Payments
	recon := reconciler.New(repo, m, log)

	var settler payment.Settler
	if cfg.Payments.Simulate {
		sim, err := payment.NewSimulator(payment.SimulatorDeps{
			Confirmer:   recon,
			Delay:       cfg.Payments.SimulationDelay,
			SuccessRate: cfg.Payments.SimulationSuccess,
			Logger:      log,
		})
		if err != nil {
			return err
		}
		defer sim.Close()
		settler, err = payment.NewBreakerSettler(sim, payment.BreakerConfig{
			MaxFailures: cfg.Payments.BreakerFailures,
			Cooldown:    cfg.Payments.BreakerCooldown,
		}, log)
		if err != nil {
			return err
		}
		log.Info("payment simulator enabled",
			zap.Duration("delay", cfg.Payments.SimulationDelay),
			zap.Float64("success_rate", cfg.Payments.SimulationSuccess))
	}
	callbacks, err := payment.NewCallbackSigner(cfg.Payments.CallbackSecret)
	if err != nil {
		return err
	}

	gateways, err := payment.NewRegistry(
		payment.NewMpesa(settler),
		payment.NewCard(settler),
		payment.NewCashOnDelivery(),
		payment.NewBankTransfer(cfg.Payments.BankAccountDetails),
	)
	if err != nil {
		return err
	}

	table, err := shippingTable(cfg.Pricing)
	if err != nil {
		return err
	}
	engine, err := pricing.NewEngine(pricing.EngineDeps{
		TaxRate:  decimal.NewNullDecimal(cfg.Pricing.TaxRate),
		Shipping: table,
	})
	if err != nil {
		return err
	}

	checkoutSvc, err := checkout.NewService(checkout.ServiceDeps{
		Store:    repo,
		Resolver: cart.NewResolver(repo),
		Pricing:  engine,
		Assets:   images,
		Gateways: gateways,
		Metrics:  m,
		Logger:   log,
	})
	if err != nil {
		return err
	}
	orderSvc := orders.NewService(repo, gateways, log)

	// Outbox publisher
	if len(cfg.Kafka.Brokers) > 0 {
		poller := publisher.NewOutboxPoller(repo, publisher.NewKafkaWriter(cfg.Kafka.Topic, cfg.Kafka.Brokers...), m, log)
		defer poller.Close()
		go poller.Run(ctx)
		log.Info("outbox publisher started", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	issuer, err := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}

	timeout := cfg.HTTP.RequestTimeout
	router := apihttp.NewRouter(apihttp.RouterDeps{
		Checkout:    apihttp.NewCheckoutHandler(checkoutSvc, sessions, issuer, timeout, log),
		Orders:      apihttp.NewOrdersHandler(orderSvc, checkoutSvc, images, timeout, log),
		Payments:    apihttp.NewPaymentsHandler(recon, callbacks, timeout, log),
		Sessions:    apihttp.NewSessionHandler(sessions, timeout, log),
		Auth:        issuer,
		Health:      healthCheck{repo: repo, redis: rdb},
		Gatherer:    reg,
		Uploads:     uploads,
		UploadsPath: cfg.Assets.PublicBase,
		Timeout:     timeout,
		Logger:      log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("storefront listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down storefront")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", zap.Error(err))
	}
	log.Info("storefront stopped")
	return nil
}
