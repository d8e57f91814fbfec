// Package metrics exposes Prometheus collectors for stock commits and billing.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "medstore"

type Metrics struct {
	registry       *prometheus.Registry
	bills          *prometheus.CounterVec
	commits        *prometheus.CounterVec
	commitDuration prometheus.Histogram
	items          prometheus.Gauge
	quarantined    prometheus.Gauge
	ledgerFailures prometheus.Counter
}

// New registers all collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		bills: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bills_total",
			Help:      "Billing transactions by outcome.",
		}, []string{"outcome"}),
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_commits_total",
			Help:      "Stock file rewrites by result.",
		}, []string{"result"}),
		commitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stock_commit_seconds",
			Help:      "Time spent rewriting and replacing the stock file.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		items: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "inventory_items",
			Help:      "Medicines currently indexed.",
		}),
		quarantined: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_quarantined",
			Help:      "1 while stock writes are refused after a failed replace.",
		}),
		ledgerFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_append_failures_total",
			Help:      "Sale lines that could not be appended after a committed bill.",
		}),
	}
	m.registry.MustRegister(
		m.bills, m.commits, m.commitDuration, m.items, m.quarantined, m.ledgerFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) BillOutcome(outcome string) {
	if m == nil {
		return
	}
	m.bills.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Commit(result string, took time.Duration) {
	if m == nil {
		return
	}
	m.commits.WithLabelValues(result).Inc()
	m.commitDuration.Observe(took.Seconds())
}

func (m *Metrics) SetItems(n int) {
	if m == nil {
		return
	}
	m.items.Set(float64(n))
}

func (m *Metrics) SetQuarantined(on bool) {
	if m == nil {
		return
	}
	if on {
		m.quarantined.Set(1)
	} else {
		m.quarantined.Set(0)
	}
}

func (m *Metrics) LedgerAppendFailed() {
	if m == nil {
		return
	}
	m.ledgerFailures.Inc()
}
