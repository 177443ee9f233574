package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mentiby/tracker-backend/internal/platform/ctxutil"
	"github.com/mentiby/tracker-backend/internal/platform/logger"
)

// quietRoutes are probes; a healthy hit is logged at debug.
var quietRoutes = map[string]bool{
	"/healthcheck": true,
	"/readyz":      true,
}

// RequestLogger writes one line per request after the handler chain. Server
// errors carry the private gin errors attached by response.RespondDomainError.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()
		fields := []interface{}{
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"bytes", c.Writer.Size(),
		}
		ctx := c.Request.Context()
		if td := ctxutil.GetTraceData(ctx); td != nil {
			fields = appendNonEmpty(fields, "trace_id", td.TraceID)
			fields = appendNonEmpty(fields, "request_id", td.RequestID)
		}
		if rd := ctxutil.GetRequestData(ctx); rd != nil && rd.UserID != uuid.Nil {
			fields = append(fields, "user_id", rd.UserID.String(), "admin", rd.IsAdmin)
		}
		fields = appendNonEmpty(fields, "problem_id", c.Param("problem_id"))
		if errs := c.Errors.ByType(gin.ErrorTypePrivate); len(errs) > 0 {
			fields = append(fields, "error", errs.String())
		}

		switch {
		case status >= 500:
			log.Error("HTTP request", fields...)
		case status >= 400:
			log.Warn("HTTP request", fields...)
		case quietRoutes[route]:
			log.Debug("HTTP request", fields...)
		default:
			log.Info("HTTP request", fields...)
		}
	}
}

func appendNonEmpty(fields []interface{}, key, val string) []interface{} {
	if val == "" {
		return fields
	}
	return append(fields, key, val)
}
