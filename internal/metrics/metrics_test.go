package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New()

	m.Scans.WithLabelValues(ScanValid).Inc()
	m.Scans.WithLabelValues(ScanExpired).Inc()
	m.Scans.WithLabelValues(ScanExpired).Inc()
	m.ObserveVisit(45 * time.Minute)

	if got := testutil.ToFloat64(m.Scans.WithLabelValues(ScanExpired)); got != 2 {
		t.Errorf("expired scans = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.CheckOuts); got != 1 {
		t.Errorf("check outs = %v, want 1", got)
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	m := New()
	m.TokensIssued.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(string(body), "airjump_tokens_issued_total 1") {
		t.Errorf("metrics output missing tokens counter:\n%s", body)
	}
}
