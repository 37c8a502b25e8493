package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/medilog/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRequestIDPropagation(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(requestIDContextKey))
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get(requestIDHeader); got != "abc-123" || w.Body.String() != "abc-123" {
		t.Fatalf("expected request id to be propagated, got header %q body %q", got, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if got := w.Header().Get(requestIDHeader); len(got) != 36 {
		t.Fatalf("expected generated uuid, got %q", got)
	}
}

func TestMetricsMiddlewareUsesRouteTemplate(t *testing.T) {
	collector := metrics.NewCollector("medilog_test")
	r := gin.New()
	r.Use(Metrics(collector), RequestLogger())
	r.GET("/api/medications/:id", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	for _, id := range []string{"1", "2"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/medications/"+id, nil))
	}

	got := testutil.ToFloat64(collector.HTTPRequests.WithLabelValues(http.MethodGet, "/api/medications/:id", "204"))
	if got != 2 {
		t.Fatalf("expected 2 requests under the route template, got %v", got)
	}
}

func TestRecoveryReturnsJSON(t *testing.T) {
	r := gin.New()
	r.Use(Recovery())
	r.GET("/boom", func(*gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	resp := decodeResponse[map[string]string](t, w)
	if resp["error"] == "" {
		t.Fatalf("expected json error body, got %s", w.Body.String())
	}
}
