package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/alexshd/biotica"
)

// scrape renders the registry in the text exposition format.
func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 from metrics handler, got %d", rec.Code)
	}
	return rec.Body.String()
}

func TestObserveCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveResult(biotica.IBRResult{NormalizedScore: 0.8, Classification: biotica.Functional})
	m.ObserveResult(biotica.IBRResult{NormalizedScore: 0.82, Classification: biotica.Functional})
	m.ObserveResult(biotica.IBRResult{NormalizedScore: 0.3, Classification: biotica.Collapsed})
	m.ObserveTipping(biotica.TippingPointResult{Status: biotica.StatusOK, WarningLevel: 2})
	m.ObserveAction(biotica.Action{Type: biotica.ActionEmergency})
	m.AlertError()
	m.ObserveBatch(120 * time.Millisecond)

	body := scrape(t, m)
	for _, line := range []string{
		`biotica_ibr_computations_total{classification="FUNCTIONAL"} 2`,
		`biotica_ibr_computations_total{classification="COLLAPSED"} 1`,
		`biotica_ibr_normalized_score_count 3`,
		`biotica_tipping_detections_total{status="ok",warning_level="2"} 1`,
		`biotica_governor_actions_total{action="EMERGENCY"} 1`,
		`biotica_alert_publish_errors_total 1`,
		`biotica_batch_duration_seconds_count 1`,
	} {
		if !strings.Contains(body, line) {
			t.Errorf("Expected %q in exposition output", line)
		}
	}
}

func TestWrapHandlerRecordsStatus(t *testing.T) {
	m := New(nil)
	h := m.WrapHandler("/api/v1/ibr", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("fail") != "" {
			http.Error(w, "bad", http.StatusUnprocessableEntity)
			return
		}
		io.WriteString(w, "ok")
	}))

	for _, target := range []string{"/api/v1/ibr", "/api/v1/ibr", "/api/v1/ibr?fail=1"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, target, nil))
	}

	body := scrape(t, m)
	for _, line := range []string{
		`biotica_http_requests_total{route="/api/v1/ibr",status="200"} 2`,
		`biotica_http_requests_total{route="/api/v1/ibr",status="422"} 1`,
		`biotica_http_request_duration_seconds_count{route="/api/v1/ibr"} 3`,
	} {
		if !strings.Contains(body, line) {
			t.Errorf("Expected %q in exposition output", line)
		}
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveResult(biotica.IBRResult{NormalizedScore: 0.5, Classification: biotica.Degraded})

	body := scrape(t, m)
	for _, name := range []string{
		"biotica_ibr_computations_total",
		"biotica_ibr_normalized_score_bucket",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("Expected %s in exposition output", name)
		}
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveResult(biotica.IBRResult{})
	m.ObserveTipping(biotica.TippingPointResult{})
	m.ObserveAction(biotica.Action{})
	m.ObserveBatch(time.Second)
	m.AlertError()

	rec := httptest.NewRecorder()
	m.WrapHandler("/x", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("Expected 418 passthrough, got %d", rec.Code)
	}
	t.Logf("✓ Nil metrics records nothing and passes requests through")
}
