// Package metrics exposes venue counters in the Prometheus text format
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "airjump"

// Scan outcomes recorded by the validator
const (
	ScanValid    = "valid"
	ScanInvalid  = "invalid_format"
	ScanNotFound = "not_found"
	ScanExpired  = "expired"
)

// Metrics groups the collectors updated by the services
type Metrics struct {
	registry *prometheus.Registry

	TokensIssued      prometheus.Counter
	Scans             *prometheus.CounterVec
	CheckIns          *prometheus.CounterVec
	CheckOuts         prometheus.Counter
	ScanConflicts     *prometheus.CounterVec
	ChildrenInside    prometheus.Gauge
	VisitDuration     prometheus.Histogram
	AbandonedVisits   prometheus.Counter
	FreeEntriesEarned prometheus.Counter
	AlertsRaised      prometheus.Counter
	HTTPRequests      *prometheus.CounterVec
}

// New registers every collector on a private registry, together with the Go runtime collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		TokensIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_issued_total",
			Help:      "Entry tokens issued to parents.",
		}),
		Scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_scans_total",
			Help:      "Token validations at the desk by outcome.",
		}, []string{"result"}),
		CheckIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "check_ins_total",
			Help:      "Children checked in, split into paid and free entries.",
		}, []string{"kind"}),
		CheckOuts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "check_outs_total",
			Help:      "Children checked out.",
		}),
		ScanConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scan_conflicts_total",
			Help:      "Repeated or conflicting scans rejected by the session flipper.",
		}, []string{"reason"}),
		ChildrenInside: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "children_inside",
			Help:      "Children currently inside the venue.",
		}),
		VisitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "visit_duration_minutes",
			Help:      "Length of completed visits.",
			Buckets:   []float64{15, 30, 60, 90, 120, 180, 240, 360},
		}),
		AbandonedVisits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "abandoned_visits_total",
			Help:      "Visits closed by cleanup without a check-out.",
		}),
		FreeEntriesEarned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "free_entries_earned_total",
			Help:      "Full loyalty cards converted into free entries.",
		}),
		AlertsRaised: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emergency_alerts_total",
			Help:      "Emergency alerts raised by staff.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.TokensIssued,
		m.Scans,
		m.CheckIns,
		m.CheckOuts,
		m.ScanConflicts,
		m.ChildrenInside,
		m.VisitDuration,
		m.AbandonedVisits,
		m.FreeEntriesEarned,
		m.AlertsRaised,
		m.HTTPRequests,
	)
	return m
}

// Handler serves the registry for scraping
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests and extra collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveVisit records a completed visit
func (m *Metrics) ObserveVisit(d time.Duration) {
	m.CheckOuts.Inc()
	m.VisitDuration.Observe(d.Minutes())
}
