package metrics

import (
	"sort"
	"sync"
	"time"
)

const maxSamples = 1000

type Metrics struct {
	mutex        sync.RWMutex
	target       string
	started      int64
	completed    int64
	outcomes     map[string]int64
	statusCodes  map[int]int64
	durations    []time.Duration
	copies       int64
	copyFailures int64
	healthy      bool
	startTime    time.Time
}

type Snapshot struct {
	Target       string           `json:"target"`
	Uptime       time.Duration    `json:"uptime"`
	Refreshes    int64            `json:"refreshes"`
	Completed    int64            `json:"completed"`
	InFlight     int64            `json:"in_flight"`
	Outcomes     map[string]int64 `json:"outcomes"`
	StatusCodes  map[int]int64    `json:"status_codes"`
	AvgDuration  time.Duration    `json:"avg_duration"`
	P50Duration  time.Duration    `json:"p50_duration"`
	P95Duration  time.Duration    `json:"p95_duration"`
	P99Duration  time.Duration    `json:"p99_duration"`
	Copies       int64            `json:"copies"`
	CopyFailures int64            `json:"copy_failures"`
	Healthy      bool             `json:"healthy"`
}

func (m *Metrics) RecordRefreshStarted(target string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.started++
	if target != "" {
		m.target = target
	}
}

func (m *Metrics) RecordRefreshCompleted(duration time.Duration, statusCode int, outcome string, healthy bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.completed++
	m.outcomes[outcome]++
	m.healthy = healthy

	m.durations = append(m.durations, duration)
	if len(m.durations) > maxSamples {
		m.durations = m.durations[1:]
	}

	// no response, no status
	if statusCode > 0 {
		m.statusCodes[statusCode]++
	}
}

func (m *Metrics) RecordCopy(copied bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if copied {
		m.copies++
	} else {
		m.copyFailures++
	}
}

func (m *Metrics) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		Target:       m.target,
		Uptime:       time.Since(m.startTime),
		Refreshes:    m.started,
		Completed:    m.completed,
		InFlight:     m.started - m.completed,
		Outcomes:     make(map[string]int64, len(m.outcomes)),
		StatusCodes:  make(map[int]int64, len(m.statusCodes)),
		Copies:       m.copies,
		CopyFailures: m.copyFailures,
		Healthy:      m.healthy,
	}
	if snap.InFlight < 0 {
		snap.InFlight = 0
	}

	for k, v := range m.outcomes {
		snap.Outcomes[k] = v
	}
	for k, v := range m.statusCodes {
		snap.StatusCodes[k] = v
	}

	if len(m.durations) > 0 {
		sorted := make([]time.Duration, len(m.durations))
		copy(sorted, m.durations)
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i] < sorted[j]
		})

		snap.AvgDuration = average(sorted)
		snap.P50Duration = percentile(sorted, 0.50)
		snap.P95Duration = percentile(sorted, 0.95)
		snap.P99Duration = percentile(sorted, 0.99)
	}

	return snap
}

func NewMetrics() *Metrics {
	return &Metrics{
		outcomes:    make(map[string]int64),
		statusCodes: make(map[int]int64),
		startTime:   time.Now(),
	}
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
