package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestReadyReportsFailedChecks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHealthHandler(
		ReadinessCheck{Name: "db", Check: func(context.Context) error { return nil }},
		ReadinessCheck{Name: "vectors", Check: func(context.Context) error { return errors.New("unreachable") }},
	)
	r := gin.New()
	r.GET("/readyz", h.Ready)
	r.GET("/healthcheck", h.HealthCheck)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz: want=503 got=%d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthcheck: got=%d %q", rec.Code, rec.Body.String())
	}
}
