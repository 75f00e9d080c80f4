package main // entry point of the storefront API

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/iliyamo/movie-storefront/internal/config"
	"github.com/iliyamo/movie-storefront/internal/database"
	"github.com/iliyamo/movie-storefront/internal/handler"
	"github.com/iliyamo/movie-storefront/internal/logger"
	"github.com/iliyamo/movie-storefront/internal/metrics"
	"github.com/iliyamo/movie-storefront/internal/middleware"
	"github.com/iliyamo/movie-storefront/internal/provider"
	"github.com/iliyamo/movie-storefront/internal/queue"
	"github.com/iliyamo/movie-storefront/internal/repository"
	"github.com/iliyamo/movie-storefront/internal/router"
	"github.com/iliyamo/movie-storefront/internal/service"
)

func main() {
	cfg := config.MustLoad()

	lg, err := logger.New(logger.Config{Environment: cfg.App.Env, Level: cfg.App.LogLevel})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	db, err := database.Open(cfg.DB)
	if err != nil {
		lg.Fatal("database open failed", zap.Error(err))
	}
	defer db.Close()
	if cfg.DB.MigrateOnStart {
		if err := database.Migrate(db); err != nil {
			lg.Fatal("migrations failed", zap.Error(err))
		}
		lg.Info("migrations applied")
	}

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		lg.Warn("redis unavailable; cache, rate limiting and webhook de-duplication disabled",
			zap.String("addr", cfg.Redis.Address()))
	} else {
		defer rdb.Close()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg)
	if err != nil {
		lg.Fatal("metrics registration failed", zap.Error(err))
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	perms, err := service.NewPermissions(users)
	if err != nil {
		lg.Fatal("permission model failed", zap.Error(err))
	}

	deps := service.PaymentDeps{
		Provider: provider.NewStripe(cfg.Payment.BaseURL, cfg.Payment.SecretKey, nil),
		Deduper:  service.NewRedisDeduper(rdb, cfg.Webhook.DedupePrefix, cfg.Webhook.DedupeTTL),
		Metrics:  m,
		Log:      lg,
	}
	if cfg.RabbitMQ.URL != "" {
		deps.Publisher = service.NewQueuePublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue,
			cfg.RabbitMQ.PublishAttempts, cfg.RabbitMQ.PublishDelay, lg)
	}
	payments := service.NewPaymentService(db, service.PaymentConfig{
		Currency:            cfg.Payment.Currency,
		PublicBaseURL:       cfg.Payment.PublicBaseURL,
		WebhookSecret:       cfg.Payment.WebhookSecret,
		SignatureTolerance:  cfg.Payment.SignatureTolerance,
		RequestTimeout:      cfg.Payment.RequestTimeout,
		CancelOrderOnExpiry: cfg.Payment.CancelOrderOnExpiry,
	}, deps)
	orders := service.NewOrderService(db, perms, m, lg)

	orderH := handler.NewOrderHandler(orders, lg)
	paymentH := handler.NewPaymentHandler(payments, lg)
	catalogH := handler.NewCatalogHandler(service.NewCatalogService(db), lg)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(lg))
	e.Use(middleware.Metrics(m))
	e.Use(middleware.NewTokenBucket(cfg.RateLimit, rdb, lg))

	router.RegisterRoutes(e, db, reg)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg.JWT, users, tokens, lg), cfg.JWT.Secret)
	router.RegisterPublic(e, catalogH, paymentH, middleware.NewRedisCache(cfg.Cache, rdb, lg))
	router.RegisterWebhooks(e, paymentH)
	router.RegisterCustomer(e, router.CustomerHandlers{
		Catalog:  catalogH,
		Cart:     handler.NewCartHandler(service.NewCartService(db, lg), lg),
		Orders:   orderH,
		Payments: paymentH,
		Social:   handler.NewSocialHandler(service.NewSocialService(db), lg),
	}, cfg.JWT.Secret)
	router.RegisterModerator(e, orderH, cfg.JWT.Secret)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumerDone := make(chan struct{})
	if cfg.RabbitMQ.URL != "" && cfg.RabbitMQ.ConsumerEnabled {
		c := &queue.Consumer{URL: cfg.RabbitMQ.URL, Queue: cfg.RabbitMQ.Queue, LogPath: cfg.RabbitMQ.LogPath, Log: lg}
		go func() {
			defer close(consumerDone)
			if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				lg.Error("order consumer stopped", zap.Error(err))
			}
		}()
	} else {
		close(consumerDone)
	}

	if cfg.JWT.PurgeEvery > 0 {
		go sweepRefreshTokens(ctx, tokens, cfg.JWT.PurgeEvery, lg)
	}

	go func() {
		addr := ":" + cfg.App.Port
		lg.Info("listening", zap.String("addr", addr), zap.String("env", cfg.App.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	lg.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		lg.Error("graceful shutdown failed", zap.Error(err))
	}
	select {
	case <-consumerDone:
	case <-shutdownCtx.Done():
		lg.Warn("order consumer did not stop in time")
	}
}

// sweepRefreshTokens deletes expired refresh tokens every interval until ctx
// is cancelled.
func sweepRefreshTokens(ctx context.Context, tokens *repository.TokenRepo, every time.Duration, lg *zap.Logger) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := tokens.DeleteExpired(ctx, now)
			if err != nil {
				lg.Warn("refresh token sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				lg.Info("expired refresh tokens removed", zap.Int64("count", n))
			}
		}
	}
}
