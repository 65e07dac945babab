package alert

import (
	"context"
	"log/slog"
	"time"

	"go.uber.org/multierr"
)

type DispatcherOptions struct {
	QueueSize       int
	Attempts        int
	Backoff         time.Duration
	DeliveryTimeout time.Duration
}

// Dispatcher queues alerts and delivers them to the wrapped sink from a
// single goroutine, so a slow transport never holds up expiry handling.
// A Fanout is unwrapped so that retries only reach the members that failed.
type Dispatcher struct {
	queue    chan Event
	targets  []Sink
	opts     DispatcherOptions
	logger   *slog.Logger
	onResult func(Event, error)
	doneCh   chan struct{}
}

func NewDispatcher(sink Sink, logger *slog.Logger, opts DispatcherOptions) *Dispatcher {
	if opts.QueueSize < 1 {
		opts.QueueSize = 1
	}
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}
	if opts.DeliveryTimeout <= 0 {
		opts.DeliveryTimeout = 10 * time.Second
	}

	targets := []Sink{sink}
	if fanout, ok := sink.(*Fanout); ok {
		targets = fanout.sinks
	}

	return &Dispatcher{
		queue:   make(chan Event, opts.QueueSize),
		targets: targets,
		opts:    opts,
		logger:  logger,
		doneCh:  make(chan struct{}),
	}
}

// OnResult registers a hook called after the final delivery attempt of each alert.
// It must be set before Start.
func (d *Dispatcher) OnResult(fn func(Event, error)) {
	d.onResult = fn
}

// Notify enqueues event. It returns ErrDropped when the queue is full.
func (d *Dispatcher) Notify(_ context.Context, event Event) error {
	select {
	case d.queue <- event:
		return nil
	default:
		d.logger.Error("Alert queue full, dropping alert",
			slog.String("monitor_id", event.MonitorID),
			slog.String("alert_id", event.ID))
		return ErrDropped
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	go d.Run(ctx)
}

// Run delivers queued alerts until ctx ends, then flushes the queue.
func (d *Dispatcher) Run(ctx context.Context) error {
	defer close(d.doneCh)

	d.logger.Info("Alert dispatcher started")
	defer d.logger.Info("Alert dispatcher stopped")

	for {
		select {
		case event := <-d.queue:
			d.deliver(ctx, event)
		case <-ctx.Done():
			d.drain()
			return nil
		}
	}
}

// Done is closed once Run has returned.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.doneCh
}

func (d *Dispatcher) drain() {
	for {
		select {
		case event := <-d.queue:
			d.deliver(context.Background(), event)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, event Event) {
	var err error
	pending := d.targets

	for attempt := 1; attempt <= d.opts.Attempts; attempt++ {
		deliveryCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.opts.DeliveryTimeout)

		err = nil
		var failed []Sink
		for _, sink := range pending {
			if sinkErr := safeNotify(deliveryCtx, sink, event); sinkErr != nil {
				failed = append(failed, sink)
				err = multierr.Append(err, sinkErr)
			}
		}
		cancel()

		if len(failed) == 0 {
			break
		}
		pending = failed

		d.logger.Warn("Alert delivery failed",
			slog.String("monitor_id", event.MonitorID),
			slog.String("alert_id", event.ID),
			slog.Int("attempt", attempt),
			slog.Int("failed_sinks", len(failed)),
			slog.Any("err", err))

		if attempt < d.opts.Attempts && !d.wait(ctx, time.Duration(attempt)*d.opts.Backoff) {
			break
		}
	}

	if d.onResult != nil {
		d.onResult(event, err)
	}
}

// wait sleeps for d unless ctx ends first.
func (d *Dispatcher) wait(ctx context.Context, delay time.Duration) bool {
	if delay <= 0 {
		return true
	}

	t := time.NewTimer(delay)
	defer t.Stop()

	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
