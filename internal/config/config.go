package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/Titansingh/ProfessionalBackend/pkg/config"
)

const defaultSecret = "change-this-to-a-secure-secret"

// Config holds all configuration for the account service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"ACCOUNT_HTTP_PORT" envDefault:"8080"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"accounts"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"accounts_secret"`
	PostgresDB   string `env:"ACCOUNT_DB_NAME" envDefault:"account_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Connection pool tuning
	DBMaxConns            int `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns            int `env:"DB_MIN_CONNS" envDefault:"2"`
	DBMaxConnLifetimeMins int `env:"DB_MAX_CONN_LIFETIME_MINS" envDefault:"60"`
	DBMaxConnIdleTimeMins int `env:"DB_MAX_CONN_IDLE_TIME_MINS" envDefault:"15"`
	SlowQueryThresholdMs  int `env:"SLOW_QUERY_THRESHOLD_MS" envDefault:"200"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// JWT. Access and refresh tokens are signed with separate secrets.
	AccessTokenSecret  string        `env:"ACCESS_TOKEN_SECRET" envDefault:"change-this-to-a-secure-secret"`
	RefreshTokenSecret string        `env:"REFRESH_TOKEN_SECRET" envDefault:"change-this-to-a-secure-secret-2"`
	AccessTokenExpiry  time.Duration `env:"ACCESS_TOKEN_EXPIRY" envDefault:"15m"`
	RefreshTokenExpiry time.Duration `env:"REFRESH_TOKEN_EXPIRY" envDefault:"168h"`

	// Redis login throttling. Leaving REDIS_ADDR empty disables throttling.
	RedisAddr        string        `env:"REDIS_ADDR" envDefault:""`
	RedisPassword    string        `env:"REDIS_PASSWORD" envDefault:""`
	LoginMaxAttempts int           `env:"LOGIN_MAX_ATTEMPTS" envDefault:"10"`
	LoginWindow      time.Duration `env:"LOGIN_ATTEMPT_WINDOW" envDefault:"15m"`

	// Object storage for avatars and cover images. Leaving S3_BUCKET empty
	// falls back to in-memory storage, for local development only.
	S3Region        string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Bucket        string `env:"S3_BUCKET" envDefault:""`
	S3AccessKey     string `env:"S3_ACCESS_KEY" envDefault:""`
	S3SecretKey     string `env:"S3_SECRET_KEY" envDefault:""`
	S3Endpoint      string `env:"S3_ENDPOINT" envDefault:""`
	S3PublicBaseURL string `env:"S3_PUBLIC_BASE_URL" envDefault:""`

	// OpenTelemetry tracing
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"0.1"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Pprof debug endpoints, gated to an IP allowlist.
	PprofEnabled bool     `env:"PPROF_ENABLED" envDefault:"false"`
	PprofCIDRs   []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.1/32" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load account config: %w", err)
	}
	if cfg.HTTPPort < 1 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid HTTP port: %d", cfg.HTTPPort)
	}

	// In non-development environments, require explicitly set, strong,
	// distinct token secrets.
	if cfg.Environment != "development" {
		if err := checkSecret("ACCESS_TOKEN_SECRET", cfg.AccessTokenSecret, cfg.Environment); err != nil {
			return nil, err
		}
		if err := checkSecret("REFRESH_TOKEN_SECRET", cfg.RefreshTokenSecret, cfg.Environment); err != nil {
			return nil, err
		}
	}
	if cfg.AccessTokenSecret == cfg.RefreshTokenSecret {
		return nil, fmt.Errorf("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
	}

	if cfg.LoginMaxAttempts < 1 {
		return nil, fmt.Errorf("LOGIN_MAX_ATTEMPTS must be positive, got %d", cfg.LoginMaxAttempts)
	}

	return cfg, nil
}

func checkSecret(name, value, environment string) error {
	if value == defaultSecret || value == defaultSecret+"-2" {
		return fmt.Errorf("%s must be explicitly set via environment variable in %q mode", name, environment)
	}
	if len(value) < 32 {
		return fmt.Errorf("%s must be at least 32 characters long, got %d", name, len(value))
	}
	return nil
}
