package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/baignoire/fitmatch/internal/config"
	"github.com/baignoire/fitmatch/internal/downloader"
	"github.com/baignoire/fitmatch/internal/event"
	"github.com/baignoire/fitmatch/internal/feed"
	handler "github.com/baignoire/fitmatch/internal/handler/http"
	"github.com/baignoire/fitmatch/internal/lookup"
	"github.com/baignoire/fitmatch/internal/overrides"
	"github.com/baignoire/fitmatch/internal/queue"
	"github.com/baignoire/fitmatch/internal/repository/postgres"
	"github.com/baignoire/fitmatch/internal/rules"
	"github.com/baignoire/fitmatch/internal/sync"
	"github.com/baignoire/fitmatch/internal/worker"
	"github.com/baignoire/fitmatch/migrations"
	"github.com/baignoire/fitmatch/pkg/database"
	"github.com/baignoire/fitmatch/pkg/health"
	"github.com/baignoire/fitmatch/pkg/httpclient"
	pkgkafka "github.com/baignoire/fitmatch/pkg/kafka"
	"github.com/baignoire/fitmatch/pkg/tracing"
)

// App wires together all dependencies and runs the fitmatch service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	rdb            *redis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	worker         *worker.Worker
	poller         *cron.Cron
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
// Redis and Kafka are optional: when unconfigured or unreachable the service
// runs without the lookup cache and without event publication.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "fitmatch",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Initialize PostgreSQL connection pool.
	pgCfg := database.PostgresConfig{
		URL:             cfg.DatabaseURL,
		Host:            cfg.DBHost,
		Port:            cfg.DBPort,
		User:            cfg.DBUser,
		Password:        cfg.DBPassword,
		DBName:          cfg.DBName,
		SSLMode:         cfg.DBSSLMode,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute,
	}

	pool, err := database.NewPostgresPool(ctx, &pgCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.DBHost),
		slog.Int("port", cfg.DBPort),
		slog.String("database", cfg.DBName),
	)
	database.RegisterPoolMetrics(pool, "fitmatch")

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Configure slow query logging.
	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
	}

	// Parse duration settings.
	feedTimeout, err := time.ParseDuration(cfg.FeedDownloadTimeout)
	if err != nil {
		return nil, fmt.Errorf("parse feed download timeout %q: %w", cfg.FeedDownloadTimeout, err)
	}
	startupDelay, err := time.ParseDuration(cfg.WorkerStartupDelay)
	if err != nil {
		return nil, fmt.Errorf("parse worker startup delay %q: %w", cfg.WorkerStartupDelay, err)
	}
	workerInterval, err := time.ParseDuration(cfg.WorkerInterval)
	if err != nil {
		return nil, fmt.Errorf("parse worker interval %q: %w", cfg.WorkerInterval, err)
	}
	cacheTTL, err := time.ParseDuration(cfg.CacheTTL)
	if err != nil {
		return nil, fmt.Errorf("parse cache TTL %q: %w", cfg.CacheTTL, err)
	}

	// Optional Redis lookup cache. A failed connection degrades to uncached
	// lookups rather than blocking startup.
	var (
		rdb         *redis.Client
		lookupCache *lookup.Cache
	)
	if cfg.CacheEnabled() {
		client, err := database.NewRedisClient(ctx, database.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			logger.Warn("redis unavailable, lookup cache disabled",
				slog.String("addr", cfg.RedisAddr),
				slog.String("error", err.Error()),
			)
		} else {
			rdb = client
			lookupCache = lookup.NewCache(client, cacheTTL, logger)
			logger.Info("lookup cache enabled",
				slog.String("addr", cfg.RedisAddr),
				slog.Duration("ttl", cacheTTL),
			)
		}
	}

	// Optional Kafka producer with connection validation and retry.
	var (
		producer      *pkgkafka.Producer
		eventProducer *event.Producer
	)
	if cfg.KafkaEnabled() {
		kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
		producer = pkgkafka.NewProducer(kafkaCfg, logger)
		if err := pingKafkaWithRetry(ctx, producer, logger); err != nil {
			logger.Warn("kafka producer ping failed after retries, continuing in degraded mode",
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
		}
		eventProducer = event.NewProducer(producer, cfg.KafkaTopicSync, logger)
	}

	// Build the dependency graph.
	products := postgres.NewProductRepository(pool)
	edges := postgres.NewEdgeRepository(pool)
	syncs := postgres.NewSyncRecordRepository(pool)

	loader := feed.NewLoader(logger)
	holder := feed.NewHolder()
	ov := overrides.NewStore(logger, cfg.WhitelistPath(), cfg.BlacklistPath())
	registry := rules.NewRegistry()

	var invalidator sync.CacheInvalidator
	if lookupCache != nil {
		invalidator = lookupCache
	}
	differ := sync.NewDiffer(products, logger)
	materializer := sync.NewMaterializer(edges, registry, invalidator, logger)
	syncService := sync.NewService(loader, holder, differ, materializer, products, edges, logger)

	q := queue.New(cfg.QueuePath(), logger)
	intake := sync.NewIntake(syncs, q, logger)

	httpClient := httpclient.New(httpclient.DefaultConfig())
	cbClient := httpclient.NewCircuitBreakerClient(httpClient, httpclient.DefaultCircuitBreakerConfig("feed-download"), logger)
	fetcher := downloader.New(cbClient, feedTimeout, cfg.FeedMaxBytes, logger)

	var events worker.EventPublisher
	if eventProducer != nil {
		events = eventProducer
	}
	ingestWorker := worker.New(worker.Config{
		StartupDelay:         startupDelay,
		Interval:             workerInterval,
		FeedPath:             cfg.FeedPath(),
		BackfillLimit:        cfg.BackfillBatchSize,
		DeferCompatibilities: cfg.DeferCompatibilities,
	}, q, syncs, syncService, fetcher, events, logger)

	lookupService := lookup.NewService(products, edges, registry, holder, ov, lookupCache, logger)

	// Optional scheduled poll: enqueue a sync for a fixed feed URL on a cron
	// cadence, for vendors that cannot deliver webhooks.
	var poller *cron.Cron
	if cfg.PollEnabled() {
		poller = cron.New()
		_, err := poller.AddFunc(cfg.PollSchedule, func() {
			record, err := intake.Enqueue(context.Background(), cfg.PollFeedURL)
			if err != nil {
				logger.Error("scheduled poll enqueue failed", slog.String("error", err.Error()))
				return
			}
			logger.Info("scheduled poll enqueued sync", slog.String("sync_id", record.ID))
		})
		if err != nil {
			return nil, fmt.Errorf("parse poll schedule %q: %w", cfg.PollSchedule, err)
		}
	}

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	if rdb != nil {
		healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}
	if producer != nil {
		healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
			return producer.Ping(ctx)
		})
	}

	// HTTP router.
	router := handler.NewRouter(intake, cfg.WebhookSecret, syncs, lookupService, products, healthHandler, logger, cfg.PprofAllowedCIDRs)

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		rdb:            rdb,
		producer:       producer,
		httpServer:     httpServer,
		worker:         ingestWorker,
		poller:         poller,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the HTTP server, the ingestion worker, and the poll scheduler,
// then blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	// Start HTTP server.
	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	// Start the background ingestion worker.
	go a.worker.Run(ctx)

	// Start the scheduled poll trigger.
	if a.poller != nil {
		a.poller.Start()
		a.logger.Info("poll scheduler started", slog.String("schedule", a.cfg.PollSchedule))
	}

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Poll scheduler (wait for a running trigger)
// 4. Kafka producer
// 5. Redis client
// 6. PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Drain in-flight HTTP requests (5s budget).
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 2. Flush pending spans after HTTP drain so in-flight request spans are captured.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 3. Stop the poll scheduler, waiting for any trigger in flight.
	if a.poller != nil {
		<-a.poller.Stop().Done()
	}

	// 4. Close Kafka producer.
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 5. Close Redis client.
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 6. Close PostgreSQL pool.
	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// pingKafkaWithRetry attempts to ping the Kafka producer with exponential
// backoff (3 attempts, 1s/2s/4s with ±25% jitter).
func pingKafkaWithRetry(ctx context.Context, producer *pkgkafka.Producer, logger *slog.Logger) error {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if err := producer.Ping(ctx); err == nil {
			return nil
		} else {
			lastErr = err
		}
		if attempt < 2 {
			base := time.Duration(1<<uint(attempt)) * time.Second
			jitter := time.Duration(float64(base) * 0.25 * (2*rand.Float64() - 1)) // #nosec G404 -- non-cryptographic jitter for retry backoff
			wait := base + jitter
			logger.Warn("kafka producer ping failed, retrying",
				slog.Int("attempt", attempt+1),
				slog.Int("max_attempts", 3),
				slog.Duration("backoff", wait),
				slog.String("error", lastErr.Error()),
			)
			select {
			case <-ctx.Done():
				return fmt.Errorf("kafka ping: context canceled during retry: %w", ctx.Err())
			case <-time.After(wait):
			}
		}
	}
	return fmt.Errorf("kafka producer ping failed after 3 attempts: %w", lastErr)
}
