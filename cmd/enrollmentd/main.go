// Package main is the entry point of the enrollment service.
//
// enrollmentd serves the enrollment and progress API over HTTP:
//   - admission of students into courses under a capacity limit
//   - unenrollment with cascading removal of progress
//   - monotonic per-module progress updates
//
// The store is PostgreSQL in normal operation; ENROLLMENT_STORE=memory runs
// the service without a database for local development.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alem-hub/lms-enrollment/config"
	"github.com/alem-hub/lms-enrollment/internal/application/command"
	"github.com/alem-hub/lms-enrollment/internal/application/query"
	"github.com/alem-hub/lms-enrollment/internal/domain/enrollment"
	"github.com/alem-hub/lms-enrollment/internal/infrastructure/messaging"
	"github.com/alem-hub/lms-enrollment/internal/infrastructure/persistence/memory"
	"github.com/alem-hub/lms-enrollment/internal/infrastructure/persistence/postgres"
	"github.com/alem-hub/lms-enrollment/internal/infrastructure/persistence/redis"
	httpapi "github.com/alem-hub/lms-enrollment/internal/interface/http"
	"github.com/alem-hub/lms-enrollment/internal/interface/http/handlers"
	"github.com/alem-hub/lms-enrollment/pkg/circuitbreaker"
	"github.com/alem-hub/lms-enrollment/pkg/logger"
	"github.com/alem-hub/lms-enrollment/pkg/retry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

// backend groups the ports the application layer needs.
type backend struct {
	users   enrollment.Directory
	catalog enrollment.Catalog
	store   enrollment.Store
	close   func()
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION & LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	configPath := os.Getenv("LMS_CONFIG_PATH")
	if configPath == "" {
		configPath = "."
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(logger.Options{
		Output:    os.Stdout,
		Level:     logger.ParseLevel(cfg.Observability.LogLevel),
		Format:    cfg.Observability.LogFormat,
		AddCaller: true,
	}).With(logger.String("service", cfg.App.Name))
	defer func() { _ = log.Sync() }()

	log.Info("starting enrollment service",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.String("store", cfg.Enrollment.StoreDriver),
		logger.String("admission_policy", string(cfg.Enrollment.AdmissionPolicy)),
	)

	health := handlers.NewCompositeHealthChecker(cfg.App.Version)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. STORE
	// ─────────────────────────────────────────────────────────────────────────
	be, err := openBackend(ctx, cfg, log, health)
	if err != nil {
		return err
	}
	defer be.close()

	// ─────────────────────────────────────────────────────────────────────────
	// 3. REDIS (optional)
	// ─────────────────────────────────────────────────────────────────────────
	var cache *redis.Cache
	if !cfg.Redis.Disabled {
		cache, err = redis.NewCache(ctx, redis.Config{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   3,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer func() { _ = cache.Close() }()
		health.AddCheck("redis", handlers.NewPingCheck(cache))
		log.Info("redis connection established", logger.String("addr", cfg.Redis.Addr))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. CAPACITY GUARD
	// ─────────────────────────────────────────────────────────────────────────
	var locker enrollment.AdmissionLocker
	if cfg.Enrollment.AdmissionPolicy == enrollment.PolicyDistributedLock {
		locker = redis.NewAdmissionLock(cache, redis.AdmissionLockConfig{
			TTL:           cfg.Enrollment.LockTTL,
			RetryInterval: cfg.Enrollment.LockRetryInterval,
			WaitTimeout:   cfg.Enrollment.LockWaitTimeout,
		}, log)
	}
	guard, err := enrollment.NewCapacityGuard(cfg.Enrollment.AdmissionPolicy, locker)
	if err != nil {
		return fmt.Errorf("failed to build capacity guard: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	busCfg := messaging.DefaultInMemoryEventBusConfig()
	busCfg.Logger = log
	bus := messaging.NewInMemoryEventBus(busCfg)
	defer func() { _ = bus.Close() }()

	if err := bus.SubscribeAll(messaging.AuditLogHandler(log)); err != nil {
		return fmt.Errorf("failed to subscribe audit log: %w", err)
	}
	if cfg.Redis.PublishEvents && cache != nil {
		breaker := circuitbreaker.New("redis-events",
			circuitbreaker.WithFailureThreshold(5),
			circuitbreaker.WithCoolDown(30*time.Second),
			circuitbreaker.WithOnStateChange(func(name string, from, to circuitbreaker.State) {
				log.Warn("circuit breaker state changed",
					logger.String("breaker", name),
					logger.String("from", from.String()),
					logger.String("to", to.String()),
				)
			}),
		)
		fwd := messaging.NewRedisForwarder(cache.Client(), cfg.Redis.EventChannel, instanceID()).
			WithBreaker(breaker)
		if err := bus.SubscribeAll(fwd.Handle); err != nil {
			return fmt.Errorf("failed to subscribe redis forwarder: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. APPLICATION HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	metrics := command.NewMetrics()

	deps := httpapi.Dependencies{
		EnrollStudent:      command.NewEnrollStudentHandler(be.users, be.catalog, be.store, guard, bus, metrics),
		UnenrollStudent:    command.NewUnenrollStudentHandler(be.users, be.store, bus, metrics),
		UpdateProgress:     command.NewUpdateProgressHandler(be.users, be.store, bus, metrics),
		ListModuleProgress: query.NewListModuleProgressHandler(be.users, be.catalog, be.store),
		Metrics:            metrics,
		EventMetrics:       bus.Metrics(),
		HealthChecker:      health,
		Logger:             log,
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. HTTP SERVER & GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	mode := gin.ReleaseMode
	if cfg.App.Debug {
		mode = gin.DebugMode
	}
	srv := httpapi.NewServer(httpapi.Config{
		Addr:           cfg.HTTP.Addr,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: 1 << 20,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		Mode:           mode,
	}, deps)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		log.Info("starting graceful shutdown", logger.Duration("timeout", cfg.App.ShutdownTimeout))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("shutdown completed", logger.Any("metrics", metrics.Snapshot()))
	return nil
}

// openBackend connects the configured store and registers its health check.
func openBackend(ctx context.Context, cfg *config.Config, log *logger.Logger, health handlers.HealthChecker) (*backend, error) {
	if cfg.Enrollment.StoreDriver == config.StoreMemory {
		store := memory.NewStore()
		if cfg.Enrollment.SeedDemoData {
			if err := memory.SeedDemo(store); err != nil {
				return nil, fmt.Errorf("failed to seed demo data: %w", err)
			}
			log.Info("memory store seeded with demo catalog")
		}
		log.Warn("using in-memory store, data is lost on restart")
		return &backend{users: store, catalog: store, store: store, close: func() {}}, nil
	}

	pgCfg := postgres.Config{
		URL:             cfg.Database.URL,
		MaxConns:        int32(cfg.Database.MaxConns),
		MinConns:        int32(cfg.Database.MinConns),
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
	}

	var conn *postgres.Connection
	err := retry.Do(ctx, func(ctx context.Context) error {
		c, err := postgres.NewConnection(ctx, pgCfg)
		if err != nil {
			return err
		}
		conn = c
		return nil
	},
		retry.WithMaxAttempts(cfg.Database.ConnectAttempts),
		retry.WithInitialDelay(500*time.Millisecond),
		retry.WithMaxDelay(10*time.Second),
		retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			log.Warn("database not reachable, retrying",
				logger.Int("attempt", attempt),
				logger.Duration("delay", delay),
				logger.Err(err),
			)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("database connection established")

	if cfg.Database.AutoMigrate {
		if err := postgres.NewMigrator(conn).Migrate(ctx); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("database schema is up to date")
	}

	health.AddCheck("postgres", handlers.NewPingCheck(conn))

	catalog := postgres.NewCatalogRepository(conn)
	return &backend{
		users:   catalog,
		catalog: catalog,
		store:   postgres.NewEnrollmentStore(conn),
		close: func() {
			log.Info("closing database connection")
			conn.Close()
		},
	}, nil
}

func instanceID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return uuid.NewString()
	}
	return host + "-" + uuid.NewString()[:8]
}
