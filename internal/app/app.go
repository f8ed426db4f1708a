package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kirinyoku/tix-ledger/internal/clock"
	"github.com/kirinyoku/tix-ledger/internal/config"
	"github.com/kirinyoku/tix-ledger/internal/metrics"
	"github.com/kirinyoku/tix-ledger/internal/observability"
	"github.com/kirinyoku/tix-ledger/internal/postgres"
	"github.com/kirinyoku/tix-ledger/internal/redis"
	"github.com/kirinyoku/tix-ledger/internal/repository"
	"github.com/kirinyoku/tix-ledger/internal/repository/memory"
	postgresrepo "github.com/kirinyoku/tix-ledger/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/tix-ledger/internal/repository/redis"
	"github.com/kirinyoku/tix-ledger/internal/service"
	"github.com/kirinyoku/tix-ledger/internal/service/ledger"
	"github.com/kirinyoku/tix-ledger/internal/service/query"
	httpgin "github.com/kirinyoku/tix-ledger/internal/transport/http/gin"
	"golang.org/x/sync/errgroup"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	pubsub     *redisrepo.RecordsPubSub
	cache      *redisrepo.Cache
	tracing    *observability.TracerProvider
	closers    []func()
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}
	clk := clock.NewSystem()

	tracing, err := observability.NewTracerProvider(ctx, observability.TracingConfig{
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		ServiceName:  cfg.Tracing.ServiceName,
		Insecure:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracing = tracing

	observer, err := metrics.NewPrometheusObserver(cfg.Metrics.Namespace, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	store, err := a.openStore(ctx)
	if err != nil {
		a.close()
		return nil, err
	}

	var (
		idem    *redisrepo.IdempotencyStore
		limiter *redisrepo.SlidingWindowLimiter
	)
	if cfg.Redis.Enabled {
		rdb, err := redis.New(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = rdb.Close() })

		a.cache = redisrepo.New(rdb)
		a.pubsub = redisrepo.NewRecordsPubSub(rdb, clk)
		idem = redisrepo.NewIdempotencyStore(rdb, cfg.Redis.IdempotencyTTL)
		if cfg.Redis.RateLimitPerMinute > 0 {
			limiter = redisrepo.NewSlidingWindowLimiter(rdb, "tx", cfg.Redis.RateLimitPerMinute, time.Minute, clk)
		}
	} else {
		logger.Warn("redis disabled: no read cache, replay protection or rate limiting")
	}

	services := service.NewServices(store, a.cache, a.pubsub, service.Config{
		Ledger: ledger.Options{
			Clock:    clk,
			Observer: observer,
			Tracer:   tracing.Tracer(),
			Logger:   logger.With("component", "ledger"),
		},
		Query: query.Config{
			CatalogTTL: cfg.Redis.CacheTTL,
			EventTTL:   cfg.Redis.CacheTTL,
			TicketTTL:  cfg.Redis.CacheTTL,
		},
	})

	router := httpgin.NewRouter(services, idem, limiter, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return a, nil
}

func (a *App) openStore(ctx context.Context) (repository.Store, error) {
	switch a.cfg.Store.Driver {
	case config.DriverMemory:
		a.logger.Warn("using in-memory store: records are lost on exit")
		return memory.New(), nil

	case config.DriverPostgres:
		pc := a.cfg.Postgres
		pool, err := postgres.New(ctx, postgres.Config{
			Host:     pc.Host,
			Port:     pc.Port,
			User:     pc.User,
			Password: pc.Password,
			Name:     pc.Name,
			SSLMode:  pc.SSLMode,
			MaxConns: pc.MaxConns,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres: %w", err)
		}
		a.closers = append(a.closers, pool.Close)

		if err := postgresrepo.Migrate(ctx, pool); err != nil {
			return nil, fmt.Errorf("failed to migrate postgres: %w", err)
		}

		return postgresrepo.NewStore(pool), nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", a.cfg.Store.Driver)
	}
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()
	defer a.close()

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Drop cached views written by other instances.
	if a.pubsub != nil {
		g.Go(func() error {
			err := a.pubsub.Subscribe(gCtx, func(ctx context.Context, change redisrepo.RecordChange) {
				if err := a.cache.Invalidate(ctx, change); err != nil {
					a.logger.Warn("cache invalidation failed", "address", change.Address, "error", err)
				}
			})
			if err != nil && gCtx.Err() == nil && err != goredis.ErrClosed {
				a.logger.Error("record change subscription ended", "error", err)
			}
			return nil
		})
	}

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := a.tracing.Shutdown(ctx); err != nil {
			a.logger.Warn("tracer shutdown failed", "error", err)
		}
		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}

func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
