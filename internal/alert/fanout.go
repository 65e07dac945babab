package alert

import (
	"context"

	"go.uber.org/multierr"
)

// Fanout delivers each alert to every sink and combines their errors.
// One failing sink does not stop the others.
type Fanout struct {
	sinks []Sink
}

func NewFanout(sinks ...Sink) *Fanout {
	f := &Fanout{}
	for _, s := range sinks {
		if s != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

func (f *Fanout) Notify(ctx context.Context, event Event) error {
	var err error
	for _, s := range f.sinks {
		err = multierr.Append(err, safeNotify(ctx, s, event))
	}
	return err
}

// Len returns the number of sinks.
func (f *Fanout) Len() int {
	return len(f.sinks)
}
