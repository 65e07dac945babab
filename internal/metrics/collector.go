package metrics

import (
	"context"
	"log/slog"
	"time"
)

type EventType string

const (
	EventMonitorRegistered EventType = "monitor_registered"
	EventHeartbeatReceived EventType = "heartbeat_received"
	EventMonitorPaused     EventType = "monitor_paused"
	EventMonitorResumed    EventType = "monitor_resumed"
	EventMonitorExpired    EventType = "monitor_expired"
	EventAlertDelivered    EventType = "alert_delivered"
	EventAlertFailed       EventType = "alert_failed"
	EventRequestCompleted  EventType = "request_completed"
)

type MetricEvent struct {
	Type       EventType
	Timestamp  time.Time
	MonitorID  string
	Route      string
	Method     string
	Duration   time.Duration
	StatusCode int
}

type Collector struct {
	eventCh chan MetricEvent
	metrics *Metrics
	prom    *promVectors
	logger  *slog.Logger
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	return &Collector{
		eventCh: make(chan MetricEvent, bufferSize),
		metrics: NewMetrics(),
		prom:    newPromVectors(),
		logger:  logger,
	}
}

func (c *Collector) EventChannel() chan<- MetricEvent {
	return c.eventCh
}

// Emit sends event without blocking; it is dropped when the buffer is full.
func (c *Collector) Emit(event MetricEvent) {
	if c == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case c.eventCh <- event:
	default:
		c.logger.Debug("Metrics buffer full, dropping event", slog.String("type", string(event.Type)))
	}
}

func (c *Collector) Start(ctx context.Context) {
	go c.Run(ctx)
}

// Run processes events until ctx ends, then drains what is left.
func (c *Collector) Run(ctx context.Context) error {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			c.drain()
			return nil
		}
	}
}

// SetMonitorCounts publishes the number of monitors per status.
func (c *Collector) SetMonitorCounts(counts map[string]int) {
	c.metrics.UpdateMonitorCounts(counts)
	c.prom.setMonitors(counts)
}

func (c *Collector) Snapshot() Snapshot {
	return c.metrics.Snapshot()
}

func (c *Collector) processEvent(event MetricEvent) {
	c.prom.observe(event)

	switch event.Type {
	case EventRequestCompleted:
		c.metrics.RecordResponse(event.Method+" "+event.Route, event.Duration, event.StatusCode)

	case EventHeartbeatReceived:
		c.metrics.IncrementEvent(event.Type)
		c.metrics.RecordHeartbeat(event.MonitorID)

	default:
		c.metrics.IncrementEvent(event.Type)
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
