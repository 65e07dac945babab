package monitor

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const maxIDLength = 256

// RegisterRequest carries the caller supplied part of a monitor.
// Timeout is the nominal heartbeat interval, without grace.
type RegisterRequest struct {
	ID          string        `json:"id"`
	Timeout     time.Duration `json:"timeout"`
	AlertTarget string        `json:"alert_email"`
}

func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ID,
			validation.Required,
			validation.Length(1, maxIDLength),
		),
		validation.Field(&r.Timeout,
			validation.By(positiveDuration),
		),
		validation.Field(&r.AlertTarget,
			validation.Required,
		),
	)
}

func positiveDuration(value interface{}) error {
	d, ok := value.(time.Duration)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a duration")
	}

	if d <= 0 {
		return validation.NewError("validation_not_positive", "must be greater than zero")
	}

	return nil
}
