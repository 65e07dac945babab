package alert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrDropped is returned when an alert could not be queued for delivery.
	ErrDropped = errors.New("alert dropped")

	// ErrInvalidTarget is returned when a sink cannot address the alert target.
	ErrInvalidTarget = errors.New("invalid alert target")
)

// Event describes a monitor that missed its deadline.
type Event struct {
	ID          string        `json:"id"`
	MonitorID   string        `json:"monitor_id"`
	AlertTarget string        `json:"alert_target"`
	DownAt      time.Time     `json:"down_at"`
	Timeout     time.Duration `json:"timeout"`
}

// NewEvent stamps a new alert with a unique id.
func NewEvent(monitorID, target string, downAt time.Time, timeout time.Duration) Event {
	return Event{
		ID:          uuid.NewString(),
		MonitorID:   monitorID,
		AlertTarget: target,
		DownAt:      downAt,
		Timeout:     timeout,
	}
}

// Message is the human readable alert text.
func (e Event) Message() string {
	return fmt.Sprintf("Device %s is down!", e.MonitorID)
}

// Sink receives alerts. Implementations must be safe for concurrent use.
type Sink interface {
	Notify(ctx context.Context, event Event) error
}

type SinkFunc func(ctx context.Context, event Event) error

func (f SinkFunc) Notify(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Nop discards every alert.
type Nop struct{}

func (Nop) Notify(context.Context, Event) error { return nil }

// safeNotify turns a panicking sink into an error.
func safeNotify(ctx context.Context, sink Sink, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("alert sink panicked: %v", r)
		}
	}()
	return sink.Notify(ctx, event)
}
