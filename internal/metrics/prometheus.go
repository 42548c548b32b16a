package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type exporter struct {
	registry  *prometheus.Registry
	refreshes *prometheus.CounterVec
	duration  prometheus.Histogram
	copies    *prometheus.CounterVec
	inFlight  prometheus.Gauge
	// running backs inFlight; only the collector goroutine touches it
	running int
	up        prometheus.Gauge
	handler   http.Handler
}

func newExporter() *exporter {
	e := &exporter{
		registry: prometheus.NewRegistry(),
		refreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "healthpanel_refreshes_total",
				Help: "Completed health panel refreshes by outcome",
			},
			[]string{"outcome"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "healthpanel_refresh_duration_seconds",
				Help:    "Health endpoint fetch duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		copies: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "healthpanel_copies_total",
				Help: "Clipboard copies of the health report by result",
			},
			[]string{"result"},
		),
		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "healthpanel_refreshes_in_flight",
				Help: "Refreshes started but not yet rendered",
			},
		),
		up: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "healthpanel_up",
				Help: "Last rendered overall health (1 = healthy, 0 = not ready)",
			},
		),
	}

	e.registry.MustRegister(e.refreshes, e.duration, e.copies, e.inFlight, e.up)
	e.handler = promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
	return e
}

func (e *exporter) observeStart() {
	e.running++
	e.inFlight.Set(float64(e.running))
}

func (e *exporter) observeRefresh(event MetricEvent) {
	// a completion whose start was dropped leaves the gauge at zero
	if e.running > 0 {
		e.running--
	}
	e.inFlight.Set(float64(e.running))
	e.refreshes.WithLabelValues(event.Outcome).Inc()
	e.duration.Observe(event.Duration.Seconds())
	if event.Healthy {
		e.up.Set(1)
	} else {
		e.up.Set(0)
	}
}

func (e *exporter) observeCopy(copied bool) {
	if copied {
		e.copies.WithLabelValues("ok").Inc()
		return
	}
	e.copies.WithLabelValues("failed").Inc()
}
