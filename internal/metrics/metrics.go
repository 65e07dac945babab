package metrics

import (
	"sort"
	"sync"
	"time"
)

const maxSamplesPerRoute = 1000

type Metrics struct {
	mutex         sync.RWMutex
	events        map[EventType]int64
	heartbeats    map[string]int64
	responseTimes map[string][]time.Duration
	statusCodes   map[string]map[int]int64
	monitors      map[string]int64
	startTime     time.Time
}

type Snapshot struct {
	Uptime     time.Duration           `json:"uptime"`
	Events     map[EventType]int64     `json:"events"`
	Heartbeats map[string]int64        `json:"heartbeats"`
	Monitors   map[string]int64        `json:"monitors"`
	Routes     map[string]RouteMetrics `json:"routes"`
}

type RouteMetrics struct {
	Requests    int64         `json:"requests"`
	AvgResponse time.Duration `json:"avg_response"`
	P50Response time.Duration `json:"p50_response"`
	P95Response time.Duration `json:"p95_response"`
	P99Response time.Duration `json:"p99_response"`
	StatusCodes map[int]int64 `json:"status_codes"`
}

func NewMetrics() *Metrics {
	return &Metrics{
		events:        make(map[EventType]int64),
		heartbeats:    make(map[string]int64),
		responseTimes: make(map[string][]time.Duration),
		statusCodes:   make(map[string]map[int]int64),
		monitors:      make(map[string]int64),
		startTime:     time.Now(),
	}
}

func (m *Metrics) IncrementEvent(eventType EventType) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.events[eventType]++
}

func (m *Metrics) RecordHeartbeat(monitorID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.heartbeats[monitorID]++
}

func (m *Metrics) RecordResponse(route string, duration time.Duration, statusCode int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.responseTimes[route] = append(m.responseTimes[route], duration)
	if len(m.responseTimes[route]) > maxSamplesPerRoute {
		m.responseTimes[route] = m.responseTimes[route][1:]
	}

	if m.statusCodes[route] == nil {
		m.statusCodes[route] = make(map[int]int64)
	}
	m.statusCodes[route][statusCode]++
}

// UpdateMonitorCounts replaces the per-status monitor gauge.
func (m *Metrics) UpdateMonitorCounts(counts map[string]int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.monitors = make(map[string]int64, len(counts))
	for status, n := range counts {
		m.monitors[status] = int64(n)
	}
}

func (m *Metrics) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		Uptime:     time.Since(m.startTime),
		Events:     make(map[EventType]int64, len(m.events)),
		Heartbeats: make(map[string]int64, len(m.heartbeats)),
		Monitors:   make(map[string]int64, len(m.monitors)),
		Routes:     make(map[string]RouteMetrics, len(m.statusCodes)),
	}

	for t, n := range m.events {
		snap.Events[t] = n
	}
	for id, n := range m.heartbeats {
		snap.Heartbeats[id] = n
	}
	for status, n := range m.monitors {
		snap.Monitors[status] = n
	}

	for route, codes := range m.statusCodes {
		rm := RouteMetrics{StatusCodes: make(map[int]int64, len(codes))}
		for code, n := range codes {
			rm.StatusCodes[code] = n
			rm.Requests += n
		}

		durations := m.responseTimes[route]
		if len(durations) > 0 {
			sorted := make([]time.Duration, len(durations))
			copy(sorted, durations)
			sort.Slice(sorted, func(i, j int) bool {
				return sorted[i] < sorted[j]
			})

			rm.AvgResponse = average(sorted)
			rm.P50Response = percentile(sorted, 0.50)
			rm.P95Response = percentile(sorted, 0.95)
			rm.P99Response = percentile(sorted, 0.99)
		}

		snap.Routes[route] = rm
	}

	return snap
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
