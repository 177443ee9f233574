package app

import (
	"strings"
	"time"

	"github.com/mentiby/tracker-backend/internal/clients/redis"
	"github.com/mentiby/tracker-backend/internal/data/db"
	"github.com/mentiby/tracker-backend/internal/observability"
	"github.com/mentiby/tracker-backend/internal/platform/envutil"
	"github.com/mentiby/tracker-backend/internal/platform/logger"
	"github.com/mentiby/tracker-backend/internal/services"
)

type Config struct {
	HTTPAddr       string
	JWTSecretKey   string
	AllowedOrigins []string

	Postgres db.PostgresConfig
	Redis    redis.BusConfig
	Otel     observability.OtelConfig

	// StoreTimeout bounds every aggregate write transaction.
	StoreTimeout time.Duration
	Sweep        services.SweepConfig
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		HTTPAddr:       envutil.String("HTTP_ADDR", ":8080", log),
		JWTSecretKey:   envutil.String("JWT_SECRET_KEY", "", log),
		AllowedOrigins: splitList(envutil.String("CORS_ALLOWED_ORIGINS", "", log)),

		Postgres: db.PostgresConfig{
			Host:            envutil.String("POSTGRES_HOST", "localhost", log),
			Port:            envutil.String("POSTGRES_PORT", "5432", log),
			User:            envutil.String("POSTGRES_USER", "postgres", log),
			Password:        envutil.String("POSTGRES_PASSWORD", "", log),
			Name:            envutil.String("POSTGRES_NAME", "tracker", log),
			SSLMode:         envutil.String("POSTGRES_SSLMODE", "disable", log),
			MaxOpenConns:    envutil.Int("POSTGRES_MAX_OPEN_CONNS", 20, log),
			MaxIdleConns:    envutil.Int("POSTGRES_MAX_IDLE_CONNS", 5, log),
			ConnMaxLifetime: envutil.Duration("POSTGRES_CONN_MAX_LIFETIME_SECONDS", 30*time.Minute, time.Second, log),
		},
		Redis: redis.BusConfig{
			Addr:     envutil.String("REDIS_ADDR", "", log),
			Password: envutil.String("REDIS_PASSWORD", "", log),
			DB:       envutil.Int("REDIS_DB", 0, log),
			Channel:  envutil.String("REDIS_CHANNEL", redis.DefaultChannel, log),
		},
		Otel: observability.OtelConfig{
			Enabled:     envutil.Bool("OTEL_ENABLED", false, log),
			ServiceName: envutil.String("OTEL_SERVICE_NAME", "tracker-backend", log),
			Environment: envutil.String("OTEL_ENVIRONMENT", "development", log),
			Version:     envutil.String("OTEL_SERVICE_VERSION", "dev", log),
			Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", "", log),
			Headers:     envutil.String("OTEL_EXPORTER_OTLP_HEADERS", "", log),
			Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false, log),
			SampleRatio: float64(envutil.Int("OTEL_SAMPLE_PERCENT", 100, log)) / 100,
		},

		StoreTimeout: envutil.Duration("STORE_TIMEOUT_MS", 5*time.Second, time.Millisecond, log),
		Sweep: services.SweepConfig{
			Concurrency: envutil.Int("RECONCILE_SWEEP_CONCURRENCY", 4, log),
			BatchSize:   envutil.Int("RECONCILE_SWEEP_BATCH", 200, log),
			Timeout:     envutil.Duration("RECONCILE_SWEEP_TIMEOUT_SECONDS", 5*time.Minute, time.Second, log),
		},
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
