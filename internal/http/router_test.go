package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	httpH "github.com/mentiby/tracker-backend/internal/http/handlers"
	httpMW "github.com/mentiby/tracker-backend/internal/http/middleware"
	"github.com/mentiby/tracker-backend/internal/platform/logger"
)

func bearer(t *testing.T, secret string, admin bool) string {
	t.Helper()
	claims := httpMW.Claims{
		Admin: admin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return "Bearer " + s
}

func TestRouterGuardsRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	const secret = "router-secret"
	r := NewRouter(RouterConfig{
		Log:            logger.Nop(),
		AuthMiddleware: httpMW.NewAuthMiddleware(logger.Nop(), secret),
		HealthHandler:  httpH.NewHealthHandler(func(context.Context) error { return nil }),
		AdminHandler:   httpH.NewAdminHandler(nil, nil),
	})

	cases := []struct {
		name   string
		method string
		path   string
		auth   string
		want   int
	}{
		{"health is public", http.MethodGet, "/healthcheck", "", http.StatusOK},
		{"ready is public", http.MethodGet, "/readyz", "", http.StatusOK},
		{"admin needs a token", http.MethodPost, "/api/admin/reconcile", "", http.StatusUnauthorized},
		{"admin needs the claim", http.MethodPost, "/api/admin/reconcile", bearer(t, secret, false), http.StatusForbidden},
		{"admin bad id reaches handler", http.MethodDelete, "/api/admin/problems/nope", bearer(t, secret, true), http.StatusBadRequest},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		if tc.auth != "" {
			req.Header.Set("Authorization", tc.auth)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("%s: want=%d got=%d body=%s", tc.name, tc.want, rec.Code, rec.Body.String())
		}
		if rec.Header().Get("X-Request-Id") == "" {
			t.Fatalf("%s: missing X-Request-Id", tc.name)
		}
	}
}
