package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"

	"github.com/toastx/shredr-fun/internal/adapter/helius"
	cfhttp "github.com/toastx/shredr-fun/internal/adapter/http"
	cfnats "github.com/toastx/shredr-fun/internal/adapter/nats"
	"github.com/toastx/shredr-fun/internal/adapter/natskv"
	cfotel "github.com/toastx/shredr-fun/internal/adapter/otel"
	"github.com/toastx/shredr-fun/internal/adapter/postgres"
	"github.com/toastx/shredr-fun/internal/adapter/ristretto"
	"github.com/toastx/shredr-fun/internal/adapter/tiered"
	"github.com/toastx/shredr-fun/internal/adapter/ws"
	"github.com/toastx/shredr-fun/internal/config"
	"github.com/toastx/shredr-fun/internal/domain/event"
	"github.com/toastx/shredr-fun/internal/logger"
	"github.com/toastx/shredr-fun/internal/middleware"
	"github.com/toastx/shredr-fun/internal/port/cache"
	"github.com/toastx/shredr-fun/internal/port/webhookapi"
	"github.com/toastx/shredr-fun/internal/relay"
	"github.com/toastx/shredr-fun/internal/resilience"
	"github.com/toastx/shredr-fun/internal/service"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "admin" {
		if err := runAdmin(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, closeLog := logger.New(cfg.Logging)
	defer closeLog.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"nats", cfg.NATS.Enabled(),
		"otel", cfg.OTEL.Enabled,
		"version", version,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Telemetry ---

	shutdownOTEL, err := cfotel.Setup(ctx, cfg.OTEL)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTEL(sctx); err != nil {
			slog.Warn("otel shutdown", "error", err)
		}
	}()

	metrics, err := cfotel.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Infrastructure ---

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")
	store := postgres.NewStore(pool)

	l1, err := ristretto.New(cfg.Cache.L1MaxSizeMB)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer l1.Close()

	var (
		queue *cfnats.Queue
		l2    cache.Cache
		idem  cache.Cache = l1
	)
	if cfg.NATS.Enabled() {
		queue, err = cfnats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() {
			if err := queue.Drain(); err != nil {
				slog.Warn("nats drain", "error", err)
			}
		}()

		blobKV, err := natskv.Open(ctx, queue.JetStream(), cfg.NATS.CacheBucket, cfg.Cache.TTL)
		if err != nil {
			return fmt.Errorf("blob cache: %w", err)
		}
		l2 = blobKV

		idemKV, err := queue.KeyValue(ctx, cfg.NATS.IdempotencyBucket, cfg.NATS.IdempotencyTTL)
		if err != nil {
			return fmt.Errorf("idempotency store: %w", err)
		}
		idem = natskv.New(idemKV)
		slog.Info("nats connected", "subject", cfg.NATS.Subject)
	}
	blobCache := tiered.New(l1, l2, cfg.Cache.TTL)

	// --- Relay ---

	latest := relay.NewLatest(event.Event{})
	registry := relay.NewRegistry()
	publisher := relay.NewPublisher(latest, relay.WithPublisherMetrics(metrics))
	acceptor := ws.NewAcceptor(latest, registry, ws.AcceptorOptions{
		OriginPatterns: cfg.Relay.AllowedOrigins,
		ReadLimit:      cfg.Relay.ReadLimit,
		WriteTimeout:   cfg.Relay.WriteTimeout,
		SendOnConnect:  cfg.Relay.SendOnConnect,
		Metrics:        metrics,
		Logger:         log,
	})

	// --- Services ---

	relaySvc := service.NewRelayService(publisher, registry)
	handlers := &cfhttp.Handlers{
		Relay:   relaySvc,
		Blobs:   service.NewBlobService(store, blobCache, cfg.Cache.TTL),
		WS:      acceptor,
		Store:   store,
		Version: version,
	}
	if queue != nil {
		relaySvc.SetQueue(queue, cfg.NATS.Subject)
		handlers.Queue = queue

		cancelBridge, err := relaySvc.StartBridge(ctx)
		if err != nil {
			return fmt.Errorf("relay bridge: %w", err)
		}
		defer cancelBridge()
	}

	var api webhookapi.API
	if cfg.Helius.APIKey != "" {
		breaker := resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)
		api = helius.NewClient(cfg.Helius.BaseURL, cfg.Helius.APIKey, cfg.Helius.Timeout, breaker)
	} else {
		slog.Warn("helius api key not set, webhook management disabled")
	}
	if cfg.Webhook.AuthToken == "" {
		slog.Warn("webhook auth token not set, deliveries are unauthenticated")
	}
	handlers.Webhooks = service.NewWebhookService(api, cfg.Webhook.AuthToken)

	// --- HTTP ---

	limiter := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	stopCleanup := limiter.StartCleanup(cfg.Rate.CleanupInterval, cfg.Rate.MaxIdleTime)
	defer stopCleanup()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if cfg.Server.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(chimw.Recoverer)
	r.Use(cfhttp.SecurityHeaders)
	r.Use(cfhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(cfhttp.Logger)
	r.Use(cfotel.HTTPMiddleware(cfg.OTEL.ServiceName))
	r.Use(limiter.Handler)

	cfhttp.MountRoutes(r, handlers, cfhttp.RouteOptions{
		WebhookToken:   cfg.Webhook.AuthToken,
		Idempotency:    idem,
		IdempotencyTTL: cfg.NATS.IdempotencyTTL,
	})

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	}
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Subscribers first: Shutdown on the server does not wait for hijacked
	// connections.
	if err := acceptor.Shutdown(shutdownCtx); err != nil {
		slog.Warn("websocket shutdown", "error", err)
	}
	return srv.Shutdown(shutdownCtx)
}
