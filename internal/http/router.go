package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/mentiby/tracker-backend/internal/http/handlers"
	httpMW "github.com/mentiby/tracker-backend/internal/http/middleware"
	"github.com/mentiby/tracker-backend/internal/observability"
	"github.com/mentiby/tracker-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	ServiceName    string
	AllowedOrigins []string

	AuthMiddleware *httpMW.AuthMiddleware

	ProgressHandler *httpH.ProgressHandler
	LedgerHandler   *httpH.LedgerHandler
	AdminHandler    *httpH.AdminHandler
	HealthHandler   *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.AllowedOrigins...))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}

	api := r.Group("/api")
	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Timed sessions and completions
		if cfg.ProgressHandler != nil {
			protected.POST("/progress/start", cfg.ProgressHandler.Start)
			protected.POST("/progress/stop", cfg.ProgressHandler.Stop)
			protected.POST("/progress/complete", cfg.ProgressHandler.Complete)
			protected.POST("/progress/unsolve", cfg.ProgressHandler.Unsolve)
			protected.GET("/progress/status/:problem_id", cfg.ProgressHandler.Status)
			protected.GET("/progress/overview", cfg.ProgressHandler.Overview)
			protected.GET("/progress/solved", cfg.ProgressHandler.ListSolved)
		}

		// Score ledger
		if cfg.LedgerHandler != nil {
			protected.GET("/ledger", cfg.LedgerHandler.GetProgress)
			protected.GET("/ledger/stats", cfg.LedgerHandler.Stats)
			protected.POST("/ledger/solve", cfg.LedgerHandler.Solve)
			protected.POST("/ledger/unsolve", cfg.LedgerHandler.Unsolve)
			protected.POST("/ledger/reconcile", cfg.LedgerHandler.Reconcile)
		}
	}

	admin := protected.Group("/admin")
	{
		if cfg.AuthMiddleware != nil {
			admin.Use(cfg.AuthMiddleware.RequireAdmin())
		}
		if cfg.AdminHandler != nil {
			admin.DELETE("/problems/:problem_id", cfg.AdminHandler.DeleteProblem)
			admin.POST("/reconcile", cfg.AdminHandler.Sweep)
			admin.GET("/reconcile/runs", cfg.AdminHandler.ListSweeps)
		}
	}

	return r
}
