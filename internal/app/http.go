package app

import (
	"context"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mentiby/tracker-backend/internal/http"
	httpH "github.com/mentiby/tracker-backend/internal/http/handlers"
	httpMW "github.com/mentiby/tracker-backend/internal/http/middleware"
	"github.com/mentiby/tracker-backend/internal/observability"
	"github.com/mentiby/tracker-backend/internal/platform/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health   *httpH.HealthHandler
	Progress *httpH.ProgressHandler
	Ledger   *httpH.LedgerHandler
	Admin    *httpH.AdminHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(storePing(db)),
		Progress: httpH.NewProgressHandler(services.Progress),
		Ledger:   httpH.NewLedgerHandler(services.Score),
		Admin:    httpH.NewAdminHandler(services.Catalogue, services.Score),
	}
}

func wireMiddleware(log *logger.Logger, cfg Config) Middleware {
	log.Info("Wiring middleware...")
	if cfg.JWTSecretKey == "" {
		log.Warn("JWT_SECRET_KEY not set; every authenticated route will reject")
	}
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, cfg.JWTSecretKey),
	}
}

func wireRouter(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *gin.Engine {
	serviceName := ""
	if cfg.Otel.Enabled {
		serviceName = cfg.Otel.ServiceName
	}
	return http.NewRouter(http.RouterConfig{
		Log:             log,
		Metrics:         metrics,
		ServiceName:     serviceName,
		AllowedOrigins:  cfg.AllowedOrigins,
		AuthMiddleware:  middleware.Auth,
		ProgressHandler: handlers.Progress,
		LedgerHandler:   handlers.Ledger,
		AdminHandler:    handlers.Admin,
		HealthHandler:   handlers.Health,
	})
}

func storePing(db *gorm.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}
