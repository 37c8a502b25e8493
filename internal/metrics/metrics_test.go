package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorCounts(t *testing.T) {
	c := NewCollector("medilog_test")

	c.ObserveHTTP(http.MethodGet, "/api/doses/today", http.StatusOK, 15*time.Millisecond)
	c.ObserveHTTP(http.MethodGet, "/api/doses/today", http.StatusOK, 5*time.Millisecond)
	c.DoseToggled("taken")
	c.ExplanationLookup(true)
	c.ExplanationLookup(false)
	c.ExplanationLookup(false)
	c.AIFailed("explanation")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.HTTPRequests.WithLabelValues("GET", "/api/doses/today", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.DoseToggles.WithLabelValues("taken")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ExplanationLookups.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.ExplanationLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.AIFailures.WithLabelValues("explanation")))
}

func TestCollectorsAreIndependent(t *testing.T) {
	first := NewCollector("medilog_test")
	second := NewCollector("medilog_test")

	first.DoseToggled("failed")
	assert.Equal(t, 0.0, testutil.ToFloat64(second.DoseToggles.WithLabelValues("failed")))
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.ObserveHTTP("GET", "", 200, time.Second)
		c.DoseToggled("taken")
		c.ExplanationLookup(true)
		c.AIFailed("chat")
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := NewCollector("medilog_test")
	c.DoseToggled("untaken")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `medilog_test_dose_toggles_total{outcome="untaken"} 1`)
}
