// cmd/api/main.go
package main

import (
	"context"
	"log"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/battery-checkout/internal/config"
	"github.com/your-org/battery-checkout/internal/domain/checkout"
	"github.com/your-org/battery-checkout/internal/domain/order"
	"github.com/your-org/battery-checkout/internal/domain/payment"
	"github.com/your-org/battery-checkout/internal/domain/pricing"
	"github.com/your-org/battery-checkout/internal/infrastructure/database/postgres"
	"github.com/your-org/battery-checkout/internal/infrastructure/database/redis"
	"github.com/your-org/battery-checkout/internal/interfaces/http"
	"github.com/your-org/battery-checkout/internal/interfaces/http/handlers"
	"github.com/your-org/battery-checkout/internal/interfaces/http/routes"
	"github.com/your-org/battery-checkout/internal/pkg/auth"
	"github.com/your-org/battery-checkout/internal/pkg/commerce"
	"github.com/your-org/battery-checkout/internal/pkg/events"
	"github.com/your-org/battery-checkout/internal/pkg/logger"
	"github.com/your-org/battery-checkout/internal/pkg/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	lg := logger.New(cfg.Logging)
	lg.WithFields(logrus.Fields{
		"name":        cfg.App.Name,
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	}).Info("starting checkout service")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Telemetry
	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.Telemetry.OTLPEndpoint, cfg.App.Name, cfg.App.Version)
	if err != nil {
		lg.WithError(err).Fatal("failed to initialise tracing")
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			lg.WithError(err).Warn("tracer shutdown failed")
		}
	}()

	var (
		metricsHandler stdhttp.Handler
		sessionMetrics checkout.Metrics
		commerceOpts   []commerce.Option
	)
	if cfg.Telemetry.MetricsEnabled {
		handler, shutdownMeter, err := telemetry.InitMeterProvider(cfg.App.Name, cfg.App.Version)
		if err != nil {
			lg.WithError(err).Fatal("failed to initialise metrics")
		}
		defer func() {
			if err := shutdownMeter(context.Background()); err != nil {
				lg.WithError(err).Warn("meter shutdown failed")
			}
		}()

		checkoutMetrics, err := telemetry.NewCheckoutMetrics(nil)
		if err != nil {
			lg.WithError(err).Fatal("failed to register checkout metrics")
		}
		metricsHandler = handler
		sessionMetrics = checkoutMetrics
		commerceOpts = append(commerceOpts, commerce.WithObserver(checkoutMetrics))
	}

	healthChecks := map[string]http.HealthCheck{}

	// Session store: redis when enabled, process memory otherwise
	var (
		store       checkout.Store = checkout.NewMemoryStore()
		redisClient *redis.Client
	)
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewConnection(cfg, lg)
		if err != nil {
			lg.WithError(err).Fatal("failed to connect to redis")
		}
		defer redisClient.Close()

		store = redis.NewSessionStore(redisClient, cfg.Session.TTL)
		healthChecks["redis"] = redisClient.Health
	}

	// Order history
	var orders order.Repository
	if cfg.Database.Enabled {
		db, err := postgres.NewConnection(cfg, lg)
		if err != nil {
			lg.WithError(err).Fatal("failed to connect to database")
		}
		defer func() {
			if err := postgres.Close(db); err != nil {
				lg.WithError(err).Warn("database close failed")
			}
		}()

		if err := postgres.NewMigration(db, lg).Run(); err != nil {
			lg.WithError(err).Fatal("database migration failed")
		}
		orders = order.NewRepository(db)
		healthChecks["postgres"] = func(ctx context.Context) error {
			return postgres.Ping(ctx, db)
		}
	}

	publisher := events.NewPublisher(cfg.Kafka, lg)
	defer func() {
		if err := publisher.Close(); err != nil {
			lg.WithError(err).Warn("event publisher close failed")
		}
	}()

	api := commerce.NewClient(cfg.Commerce, lg, commerceOpts...)

	registry := checkout.NewRegistry(checkout.Deps{
		API:       api,
		Store:     store,
		Metrics:   sessionMetrics,
		Logger:    lg,
		Estimator: pricing.NewEstimator(cfg.Commerce.TradeInDiscount),
		Defaults: checkout.OrderDefaults{
			PaymentType: cfg.Commerce.PaymentType,
			OrderType:   cfg.Commerce.OrderType,
			LeadReason:  cfg.Commerce.LeadReason,
			RedirectURL: cfg.Commerce.RedirectURL,
		},
	})
	go registry.RunEviction(ctx, cfg.Session.SweepInterval, cfg.Session.IdleTimeout)

	payments := payment.NewService(orders, publisher, lg)

	server := http.NewServer(cfg, lg, http.Options{
		Handlers: routes.Handlers{
			Checkout: handlers.NewCheckoutHandler(registry, api, payments, cfg.Commerce.Currency, lg),
			Payment:  handlers.NewPaymentHandler(payments, lg),
		},
		JWTManager:     auth.NewJWTManager(cfg.JWT),
		Redis:          redisClient,
		MetricsHandler: metricsHandler,
		HealthChecks:   healthChecks,
	})

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			lg.WithError(err).Error("http server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	lg.Info("shutting down gracefully")

	// Give server 30 seconds to shutdown gracefully
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		lg.WithError(err).Error("failed to shutdown http server gracefully")
	}

	lg.Info("server shutdown completed")
}
