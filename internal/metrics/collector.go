package metrics

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

type EventType string

const (
	EventRefreshStarted   EventType = "refresh_started"
	EventRefreshCompleted EventType = "refresh_completed"
	EventCopyCompleted    EventType = "copy_completed"
)

type MetricEvent struct {
	Type       EventType
	Timestamp  time.Time
	Target     string
	Duration   time.Duration
	StatusCode int
	Outcome    string
	Healthy    bool
	Copied     bool
}

type Collector struct {
	eventCh  chan MetricEvent
	metrics  *Metrics
	exporter *exporter
	logger   *slog.Logger
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	return &Collector{
		eventCh:  make(chan MetricEvent, bufferSize),
		metrics:  NewMetrics(),
		exporter: newExporter(),
		logger:   logger,
	}
}

func (c *Collector) EventChannel() chan<- MetricEvent {
	return c.eventCh
}

// Emit queues event without blocking and reports whether it was queued.
// Events are dropped when the buffer is full. A nil collector ignores events.
func (c *Collector) Emit(event MetricEvent) bool {
	if c == nil {
		return false
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case c.eventCh <- event:
		return true
	default:
		c.logger.Debug("Metrics buffer full, dropping event", slog.String("type", string(event.Type)))
		return false
	}
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event MetricEvent) {
	switch event.Type {
	case EventRefreshStarted:
		c.exporter.observeStart()
		c.metrics.RecordRefreshStarted(event.Target)

	case EventRefreshCompleted:
		c.exporter.observeRefresh(event)
		c.metrics.RecordRefreshCompleted(event.Duration, event.StatusCode, event.Outcome, event.Healthy)

	case EventCopyCompleted:
		c.exporter.observeCopy(event.Copied)
		c.metrics.RecordCopy(event.Copied)
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

func (c *Collector) Snapshot() Snapshot {
	return c.metrics.Snapshot()
}

// Handler serves the current snapshot as JSON.
func (c *Collector) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := c.metrics.Snapshot()

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(snap); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
}

// PrometheusHandler serves the collector's registry in the Prometheus
// exposition format.
func (c *Collector) PrometheusHandler() http.Handler {
	return c.exporter.handler
}
