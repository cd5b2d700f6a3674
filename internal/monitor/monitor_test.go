package monitor

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func TestMonitorsAreIndependent(t *testing.T) {
	// each monitor owns its registry, so creating two must not panic
	first := NewMonitor(zerolog.Nop())
	second := NewMonitor(zerolog.Nop())

	first.ResolutionStarted()
	first.RecordResolution(OutcomeSuccess, time.Second)

	if got := testutil.ToFloat64(first.GetMetrics().ResolutionsTotal.WithLabelValues(OutcomeSuccess)); got != 1 {
		t.Errorf("Expected 1 success on first monitor, got %v", got)
	}
	if got := testutil.ToFloat64(second.GetMetrics().ResolutionsTotal.WithLabelValues(OutcomeSuccess)); got != 0 {
		t.Errorf("Expected 0 successes on second monitor, got %v", got)
	}
}

func TestRecordResolutionBalancesActiveGauge(t *testing.T) {
	m := NewMonitor(zerolog.Nop())

	m.ResolutionStarted()
	m.ResolutionStarted()
	if got := testutil.ToFloat64(m.GetMetrics().ActiveResolutions); got != 2 {
		t.Errorf("Expected 2 active resolutions, got %v", got)
	}

	m.RecordResolution(OutcomeAllFailed, time.Millisecond)
	m.RecordResolution(OutcomeInvalidURL, time.Millisecond)
	if got := testutil.ToFloat64(m.GetMetrics().ActiveResolutions); got != 0 {
		t.Errorf("Expected 0 active resolutions, got %v", got)
	}
}

func TestRecordStrategy(t *testing.T) {
	m := NewMonitor(zerolog.Nop())

	m.RecordStrategy("shorturlinfo", StatusFailure, time.Millisecond)
	m.RecordStrategy("shorturlinfo", StatusFailure, time.Millisecond)
	m.RecordStrategy("sharelist", StatusSuccess, time.Millisecond)

	attempts := m.GetMetrics().StrategyAttempts
	if got := testutil.ToFloat64(attempts.WithLabelValues("shorturlinfo", StatusFailure)); got != 2 {
		t.Errorf("Expected 2 failures, got %v", got)
	}
	if got := testutil.ToFloat64(attempts.WithLabelValues("sharelist", StatusSuccess)); got != 1 {
		t.Errorf("Expected 1 success, got %v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := NewMonitor(zerolog.Nop())
	m.RecordBotUpdate("link")
	m.RecordHTTPRequest("GET", "/api/v1/resolve", "200", time.Millisecond)

	recorder := httptest.NewRecorder()
	m.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := recorder.Body.String()
	for _, name := range []string{"terabox_bot_updates_total", "terabox_http_requests_total"} {
		if !strings.Contains(body, name) {
			t.Errorf("Expected %s in metrics output", name)
		}
	}
}

func TestStartStop(t *testing.T) {
	m := NewMonitor(zerolog.Nop())
	m.Start()

	if got := testutil.ToFloat64(m.GetMetrics().Goroutines); got <= 0 {
		t.Errorf("Expected goroutine gauge to be set on start, got %v", got)
	}

	m.Stop()
	m.Stop()

	health := m.HealthCheck()
	if _, ok := health["goroutines"]; !ok {
		t.Error("Expected goroutines in health check")
	}
}
