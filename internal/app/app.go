package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/Titansingh/ProfessionalBackend/internal/auth"
	"github.com/Titansingh/ProfessionalBackend/internal/config"
	"github.com/Titansingh/ProfessionalBackend/internal/event"
	handler "github.com/Titansingh/ProfessionalBackend/internal/handler/http"
	"github.com/Titansingh/ProfessionalBackend/internal/limiter"
	"github.com/Titansingh/ProfessionalBackend/internal/repository/postgres"
	"github.com/Titansingh/ProfessionalBackend/internal/service"
	"github.com/Titansingh/ProfessionalBackend/internal/storage"
	"github.com/Titansingh/ProfessionalBackend/internal/storage/memory"
	"github.com/Titansingh/ProfessionalBackend/internal/storage/s3"
	"github.com/Titansingh/ProfessionalBackend/migrations"
	"github.com/Titansingh/ProfessionalBackend/pkg/database"
	"github.com/Titansingh/ProfessionalBackend/pkg/health"
	pkgkafka "github.com/Titansingh/ProfessionalBackend/pkg/kafka"
	"github.com/Titansingh/ProfessionalBackend/pkg/middleware"
	"github.com/Titansingh/ProfessionalBackend/pkg/tracing"
)

const serviceName = "account"

// App wires together all dependencies and runs the account service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	producer       *pkgkafka.Producer
	redisClient    *redis.Client
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
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
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		DBName:          cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		MaxConns:        int32(cfg.DBMaxConns),
		MinConns:        int32(cfg.DBMinConns),
		MaxConnLifetime: time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute,
	}

	pool, err := database.NewPostgresPool(ctx, &pgCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	database.RegisterPoolMetrics(pool, serviceName)

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

	// Initialize Kafka producer.
	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Login throttling. Without Redis, logins are not throttled. A configured
	// but unreachable Redis fails startup.
	var redisClient *redis.Client
	var loginLimiter limiter.LoginLimiter = limiter.Noop{}
	if cfg.RedisAddr != "" {
		redisClient, err = database.NewRedisClient(ctx, database.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		loginLimiter = limiter.NewRedisLimiter(redisClient, cfg.LoginMaxAttempts, cfg.LoginWindow, logger)
		logger.Info("redis login limiter initialized", slog.String("addr", cfg.RedisAddr))
	} else {
		logger.Warn("REDIS_ADDR not set, login throttling disabled")
	}

	// Object storage for avatars and cover images.
	var store storage.Storage
	if cfg.S3Bucket != "" {
		store, err = s3.New(ctx, s3.Config{
			Region:        cfg.S3Region,
			Bucket:        cfg.S3Bucket,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			Endpoint:      cfg.S3Endpoint,
			PublicBaseURL: cfg.S3PublicBaseURL,
		})
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("init s3 storage: %w", err)
		}
		logger.Info("s3 storage initialized", slog.String("bucket", cfg.S3Bucket))
	} else {
		if cfg.Environment != "development" {
			pool.Close()
			return nil, fmt.Errorf("S3_BUCKET must be set in %q mode", cfg.Environment)
		}
		store = memory.New(fmt.Sprintf("http://localhost:%d/media", cfg.HTTPPort))
		logger.Warn("S3_BUCKET not set, using in-memory storage; uploads are lost on restart")
	}

	// Build the dependency graph.
	jwtManager := auth.NewJWTManager(
		cfg.AccessTokenSecret,
		cfg.RefreshTokenSecret,
		cfg.AccessTokenExpiry,
		cfg.RefreshTokenExpiry,
	)
	userRepo := postgres.NewUserRepository(pool)
	subscriptionRepo := postgres.NewSubscriptionRepository(pool)
	eventProducer := event.NewProducer(producer, logger)
	userService := service.NewUserService(userRepo, subscriptionRepo, jwtManager, store, loginLimiter, eventProducer, logger)

	// Health checks. Postgres is required to serve traffic; Kafka and Redis
	// outages degrade the service but requests still succeed.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})
	if redisClient != nil {
		healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	// HTTP router.
	cookies := handler.NewCookieWriter(
		cfg.Environment != "development",
		jwtManager.AccessExpiry(),
		jwtManager.RefreshExpiry(),
	)
	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSAllowedOrigins
	corsCfg.AllowCredentials = true
	corsCfg.Environment = cfg.Environment
	router := handler.NewRouter(userService, cookies, healthHandler, logger, handler.RouterConfig{
		ServiceName:  serviceName,
		CORS:         corsCfg,
		PprofEnabled: cfg.PprofEnabled,
		PprofCIDRs:   cfg.PprofCIDRs,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
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
		producer:       producer,
		redisClient:    redisClient,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

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
// 3. Kafka producer
// 4. Redis client
// 5. PostgreSQL pool
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

	// 3. Close Kafka producer.
	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 4. Close Redis client.
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 5. Close PostgreSQL pool.
	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
