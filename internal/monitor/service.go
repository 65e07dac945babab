package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/angeloszaimis/heartbeat-monitor/internal/alert"
	"github.com/angeloszaimis/heartbeat-monitor/internal/metrics"
	"github.com/angeloszaimis/heartbeat-monitor/internal/timer"
)

// DefaultGracePeriod is added to every requested heartbeat interval.
const DefaultGracePeriod = 5 * time.Second

// Scheduler arms and disarms expiry timers.
type Scheduler interface {
	Schedule(id string, d time.Duration, fn timer.ExpireFunc) *timer.Handle
	Cancel(h *timer.Handle)
}

type HeartbeatResult int

const (
	HeartbeatReset HeartbeatResult = iota
	HeartbeatExpired
	HeartbeatPaused
)

type PauseResult int

const (
	PauseApplied PauseResult = iota
	PauseReleased
)

type Service struct {
	logger        *slog.Logger
	store         *Store
	timers        Scheduler
	sink          alert.Sink
	collector     *metrics.Collector
	grace         time.Duration
	notifyTimeout time.Duration
	now           func() time.Time
}

type Option func(*Service)

func WithGracePeriod(grace time.Duration) Option {
	return func(s *Service) {
		if grace >= 0 {
			s.grace = grace
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithCollector makes the service emit lifecycle metric events.
func WithCollector(collector *metrics.Collector) Option {
	return func(s *Service) {
		s.collector = collector
	}
}

// WithNotifyTimeout bounds a single sink call.
func WithNotifyTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.notifyTimeout = d
		}
	}
}

func NewService(logger *slog.Logger, store *Store, timers Scheduler, sink alert.Sink, opts ...Option) *Service {
	if sink == nil {
		sink = alert.Nop{}
	}

	s := &Service{
		logger:        logger,
		store:         store,
		timers:        timers,
		sink:          sink,
		grace:         DefaultGracePeriod,
		notifyTimeout: 30 * time.Second,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GracePeriod returns the duration added to every requested interval.
func (s *Service) GracePeriod() time.Duration {
	return s.grace
}

// Register creates or replaces the monitor for req.ID and arms its timer.
func (s *Service) Register(ctx context.Context, req RegisterRequest) error {
	if err := req.Validate(); err != nil {
		return &ValidationError{Err: err}
	}

	timeout := req.Timeout + s.grace

	var replaced bool
	err := s.store.Upsert(req.ID, func(m *Monitor, exists bool) error {
		if exists {
			s.timers.Cancel(m.timer)
			replaced = true
		}

		now := s.now()
		*m = Monitor{
			ID:          req.ID,
			Timeout:     timeout,
			Status:      StatusActive,
			AlertTarget: req.AlertTarget,
			CreatedAt:   now,
			LastUpdated: now,
		}
		m.timer = s.timers.Schedule(req.ID, timeout, s.expire)
		return nil
	})
	if err != nil {
		return fmt.Errorf("register monitor %q: %w", req.ID, err)
	}

	s.logger.InfoContext(ctx, "Monitor registered",
		slog.String("monitor_id", req.ID),
		slog.Duration("timeout", timeout),
		slog.Bool("replaced", replaced))
	s.emit(metrics.EventMonitorRegistered, req.ID)

	return nil
}

// Heartbeat re-arms an ACTIVE monitor with its registered timeout. A PAUSED
// monitor only records the heartbeat and stays without a timer. DOWN monitors
// are reported without error and left untouched.
func (s *Service) Heartbeat(ctx context.Context, id string) (HeartbeatResult, error) {
	var result HeartbeatResult

	err := s.store.Update(id, func(m *Monitor) error {
		switch m.Status {
		case StatusDown:
			result = HeartbeatExpired
		case StatusPaused:
			m.LastUpdated = s.now()
			result = HeartbeatPaused
		default:
			s.timers.Cancel(m.timer)
			m.timer = s.timers.Schedule(id, m.Timeout, s.expire)
			m.LastUpdated = s.now()
			result = HeartbeatReset
		}
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("heartbeat monitor %q: %w", id, err)
	}

	s.logger.DebugContext(ctx, "Heartbeat received",
		slog.String("monitor_id", id),
		slog.Int("result", int(result)))
	s.emit(metrics.EventHeartbeatReceived, id)

	return result, nil
}

// TogglePause pauses an ACTIVE monitor or resumes a PAUSED one with a full
// timeout window. DOWN monitors yield ErrInvalidState.
func (s *Service) TogglePause(ctx context.Context, id string) (PauseResult, error) {
	var result PauseResult

	err := s.store.Update(id, func(m *Monitor) error {
		switch m.Status {
		case StatusDown:
			return ErrInvalidState
		case StatusActive:
			s.timers.Cancel(m.timer)
			m.timer = nil
			m.Status = StatusPaused
			result = PauseApplied
		case StatusPaused:
			m.timer = s.timers.Schedule(id, m.Timeout, s.expire)
			m.Status = StatusActive
			result = PauseReleased
		}
		m.LastUpdated = s.now()
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("toggle pause of monitor %q: %w", id, err)
	}

	if result == PauseApplied {
		s.logger.InfoContext(ctx, "Monitor paused", slog.String("monitor_id", id))
		s.emit(metrics.EventMonitorPaused, id)
	} else {
		s.logger.InfoContext(ctx, "Monitor resumed", slog.String("monitor_id", id))
		s.emit(metrics.EventMonitorResumed, id)
	}

	return result, nil
}

// List returns summaries of every monitor.
func (s *Service) List() []Summary {
	monitors := s.store.List()

	summaries := make([]Summary, 0, len(monitors))
	for _, m := range monitors {
		summaries = append(summaries, m.Summary())
	}
	return summaries
}

func (s *Service) Get(id string) (Summary, error) {
	m, ok := s.store.Get(id)
	if !ok {
		return Summary{}, fmt.Errorf("get monitor %q: %w", id, ErrNotFound)
	}
	return m.Summary(), nil
}

// StatusCounts returns the number of monitors per status name.
func (s *Service) StatusCounts() map[string]int {
	counts := map[string]int{
		StatusActive.String(): 0,
		StatusPaused.String(): 0,
		StatusDown.String():   0,
	}
	for _, m := range s.store.List() {
		counts[m.Status.String()]++
	}
	return counts
}

// expire runs on the timer goroutine. Only the handle currently owned by an
// ACTIVE record may move it to DOWN; anything else is a stale firing.
func (s *Service) expire(id string, h *timer.Handle) {
	var (
		event alert.Event
		fired bool
	)

	err := s.store.Update(id, func(m *Monitor) error {
		if m.timer != h || m.Status != StatusActive {
			return nil
		}

		now := s.now()
		m.Status = StatusDown
		m.timer = nil
		m.LastUpdated = now

		event = alert.NewEvent(m.ID, m.AlertTarget, now, m.Timeout)
		fired = true
		return nil
	})
	if err != nil && !errors.Is(err, ErrNotFound) {
		s.logger.Error("Failed to expire monitor", slog.String("monitor_id", id), slog.Any("err", err))
		return
	}

	if !fired {
		s.logger.Debug("Discarded stale expiry", slog.String("monitor_id", id))
		return
	}

	s.logger.Warn("Monitor is down",
		slog.String("monitor_id", id),
		slog.Time("down_at", event.DownAt))
	s.emit(metrics.EventMonitorExpired, id)

	s.notify(event)
}

// notify hands the alert to the sink. The record is already DOWN, so
// failures are only logged.
func (s *Service) notify(event alert.Event) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Alert sink panicked",
				slog.String("monitor_id", event.MonitorID),
				slog.Any("panic", r))
			s.emit(metrics.EventAlertFailed, event.MonitorID)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
	defer cancel()

	if err := s.sink.Notify(ctx, event); err != nil {
		s.logger.Error("Failed to send alert",
			slog.String("monitor_id", event.MonitorID),
			slog.String("alert_id", event.ID),
			slog.Any("err", err))
		s.emit(metrics.EventAlertFailed, event.MonitorID)
	}
}

func (s *Service) emit(eventType metrics.EventType, monitorID string) {
	s.collector.Emit(metrics.MetricEvent{
		Type:      eventType,
		Timestamp: s.now(),
		MonitorID: monitorID,
	})
}
