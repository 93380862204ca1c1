package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/acp-checkout/internal/catalog"
	"github.com/fjod/acp-checkout/internal/commerce/shopify"
	h "github.com/fjod/acp-checkout/internal/http"
	"github.com/fjod/acp-checkout/internal/idempotency"
	"github.com/fjod/acp-checkout/internal/metrics"
	"github.com/fjod/acp-checkout/internal/payment/paypal"
	"github.com/fjod/acp-checkout/internal/publisher"
	"github.com/fjod/acp-checkout/internal/service"
	"github.com/fjod/acp-checkout/internal/store"
	"github.com/fjod/acp-checkout/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

const (
	serviceName    = "acp-checkout"
	outboxCapacity = 10000
	sweepInterval  = 10 * time.Minute
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	log := logger.New(os.Stdout, serviceName, cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *Config, log *slog.Logger) error {
	for _, w := range cfg.warnings() {
		log.Warn(w)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				log.Warn("close failed", slog.Any("error", err))
			}
		}
	}()

	var rdb *redis.Client
	if cfg.SessionBackend == "redis" || cfg.IdempotencyBackend == "redis" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		closers = append(closers, rdb)
		log.Info("connected to redis", slog.String("addr", cfg.RedisAddr))
	}

	sessions, err := openSessionStore(ctx, cfg, rdb, log, &closers)
	if err != nil {
		return err
	}

	var cache idempotency.Cache
	switch cfg.IdempotencyBackend {
	case "redis":
		cache = idempotency.NewRedisCache(rdb, cfg.IdempotencyTTL)
	default:
		mc := idempotency.NewMemoryCache(cfg.IdempotencyTTL, cfg.IdempotencyMax)
		closers = append(closers, mc)
		cache = mc
	}

	skus, err := openCatalog(ctx, cfg, log)
	if err != nil {
		return err
	}
	closers = append(closers, skus)

	shop := shopify.New(shopify.Config{
		Shop:        cfg.ShopifyShop,
		AccessToken: cfg.ShopifyAccessToken,
		BaseURL:     cfg.ShopifyBaseURL,
		Timeout:     cfg.UpstreamTimeout,
		Observer:    m,
		Logger:      log,
	})
	payments := paypal.New(paypal.Config{
		BaseURL:      cfg.PayPalBaseURL,
		ClientID:     cfg.PayPalClientID,
		ClientSecret: cfg.PayPalClientSecret,
		Timeout:      cfg.UpstreamTimeout,
		Observer:     m,
		Logger:       log,
	})

	var events service.EventSink
	if len(cfg.KafkaBrokers) > 0 {
		outbox := publisher.NewMemoryOutbox(outboxCapacity)
		poller := publisher.NewOutboxPoller(outbox, log, cfg.KafkaBrokers...)
		closers = append(closers, poller)
		go poller.Run(ctx)
		events = outbox
		log.Info("publishing checkout events", slog.Any("brokers", cfg.KafkaBrokers), slog.String("topic", publisher.Topic))
	}

	svc := service.NewCheckoutService(service.Dependencies{
		Store:     sessions,
		Resolver:  catalog.NewResolver(skus, shop),
		Inventory: shop,
		Payments:  payments,
		Orders:    shop,
		Events:    events,
		Metrics:   m,
		Logger:    log,
		Currency:  cfg.DefaultCurrency,
		Timeout:   cfg.UpstreamTimeout,
	})

	router := h.NewRouter(svc, idempotency.NewGuard(cache, log), m, log, h.Config{
		AllowedOrigins:     cfg.AllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		RequestTimeout:     cfg.RequestTimeout,
		DebugEndpoints:     cfg.DebugEndpoints,
		DebugToken:         cfg.DebugToken,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("acp checkout server starting",
			slog.String("port", cfg.HTTPPort),
			slog.String("sessions", cfg.SessionBackend),
			slog.String("idempotency", cfg.IdempotencyBackend),
			slog.String("currency", cfg.DefaultCurrency))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("server exited")
	return nil
}

func openSessionStore(ctx context.Context, cfg *Config, rdb *redis.Client, log *slog.Logger, closers *[]io.Closer) (store.SessionStore, error) {
	switch cfg.SessionBackend {
	case "redis":
		return store.NewRedisStore(rdb, cfg.SessionTTL), nil
	case "postgres":
		pg, err := store.NewPostgresStore(&cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		*closers = append(*closers, pg)
		if err := pg.RunMigrations(&cfg.Postgres); err != nil {
			return nil, err
		}
		log.Info("session store migrations completed")
		go sweepExpired(ctx, pg, cfg.SessionTTL, log)
		return pg, nil
	default:
		ms := store.NewMemoryStore(store.MemoryOptions{TTL: cfg.SessionTTL, MaxSessions: cfg.SessionMax})
		*closers = append(*closers, ms)
		return ms, nil
	}
}

func sweepExpired(ctx context.Context, pg *store.PostgresStore, ttl time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			n, err := pg.DeleteExpired(ctx, time.Now().Add(-ttl))
			if err != nil {
				log.Warn("expired session sweep failed", slog.Any("error", err))
				continue
			}
			if n > 0 {
				log.Info("expired sessions removed", slog.Int64("count", n))
			}
		case <-ctx.Done():
			return
		}
	}
}

// openCatalog opens the SKU map and seeds it from SHOPIFY_SKU_MAP when set.
func openCatalog(ctx context.Context, cfg *Config, log *slog.Logger) (*catalog.Repository, error) {
	repo, err := catalog.NewRepository(cfg.SkuDBPath)
	if err != nil {
		return nil, fmt.Errorf("open sku map: %w", err)
	}
	if err := repo.RunMigrations(cfg.SkuMigrationsPath); err != nil {
		repo.Close()
		return nil, err
	}

	if cfg.SkuMap == "" {
		return repo, nil
	}
	mappings, err := catalog.ParseSkuMap([]byte(cfg.SkuMap))
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("parse SHOPIFY_SKU_MAP: %w", err)
	}
	if err := repo.Upsert(ctx, mappings); err != nil {
		repo.Close()
		return nil, err
	}
	log.Info("sku map seeded", slog.Int("mappings", len(mappings)))
	return repo, nil
}
