package monitor

import (
	"time"

	"github.com/angeloszaimis/heartbeat-monitor/internal/timer"
)

type Status int

const (
	StatusActive Status = iota
	StatusPaused
	StatusDown
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "ACTIVE"
	case StatusPaused:
		return "PAUSED"
	case StatusDown:
		return "DOWN"
	default:
		return "UNKNOWN"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Monitor is the registry record. The expiry handle is owned by the record
// and is non-nil exactly when the status is ACTIVE.
type Monitor struct {
	ID          string
	Timeout     time.Duration
	Status      Status
	AlertTarget string
	CreatedAt   time.Time
	LastUpdated time.Time

	timer *timer.Handle
}

// Summary is the externally visible view of a monitor.
type Summary struct {
	ID          string    `json:"id"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	LastUpdated time.Time `json:"lastUpdated"`
}

func (m Monitor) Summary() Summary {
	return Summary{
		ID:          m.ID,
		Status:      m.Status,
		CreatedAt:   m.CreatedAt,
		LastUpdated: m.LastUpdated,
	}
}
