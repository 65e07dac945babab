package timer

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	statePending int32 = iota
	stateFired
	stateCancelled
)

// ExpireFunc is invoked once when a handle fires.
type ExpireFunc func(id string, h *Handle)

// Handle is the ownership token of a scheduled expiry.
type Handle struct {
	id       string
	deadline time.Time
	state    atomic.Int32
	timer    *time.Timer
}

// ID returns the id the handle was scheduled for.
func (h *Handle) ID() string {
	return h.id
}

// Deadline returns the instant the handle is due to fire.
func (h *Handle) Deadline() time.Time {
	return h.deadline
}

// Pending reports whether the handle has neither fired nor been cancelled.
func (h *Handle) Pending() bool {
	return h.state.Load() == statePending
}

// Engine owns every live handle.
type Engine struct {
	mutex    sync.Mutex
	inflight sync.WaitGroup
	timers   map[string]*Handle
	stopped  bool
	now      func() time.Time
	logger   *slog.Logger
}

type Option func(*Engine)

// WithClock overrides the clock used to compute deadlines.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets the logger used to report recovered callback panics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func New(opts ...Option) *Engine {
	e := &Engine{
		timers: make(map[string]*Handle),
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Schedule arms a new handle for id, cancelling the current one if any.
// After Stop the returned handle is already cancelled.
func (e *Engine) Schedule(id string, d time.Duration, fn ExpireFunc) *Handle {
	h := &Handle{id: id, deadline: e.now().Add(d)}

	e.mutex.Lock()
	defer e.mutex.Unlock()

	if current, ok := e.timers[id]; ok {
		e.cancelLocked(current)
	}

	if e.stopped {
		h.state.Store(stateCancelled)
		return h
	}

	e.timers[id] = h
	// fire blocks on the engine lock, so h.timer is set before it is read.
	h.timer = time.AfterFunc(d, func() { e.fire(h, fn) })

	return h
}

// Cancel disarms h. It is a no-op for nil, fired or cancelled handles.
func (e *Engine) Cancel(h *Handle) {
	if h == nil {
		return
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.cancelLocked(h)
}

// Pending returns the number of armed handles.
func (e *Engine) Pending() int {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return len(e.timers)
}

// Stop cancels every armed handle, refuses new ones and waits for callbacks
// that already started. It must not be called from a callback.
func (e *Engine) Stop() {
	e.mutex.Lock()
	e.stopped = true
	for _, h := range e.timers {
		e.cancelLocked(h)
	}
	e.mutex.Unlock()

	e.inflight.Wait()
}

func (e *Engine) cancelLocked(h *Handle) {
	if !h.state.CompareAndSwap(statePending, stateCancelled) {
		return
	}

	if h.timer != nil {
		h.timer.Stop()
	}

	if e.timers[h.id] == h {
		delete(e.timers, h.id)
	}
}

func (e *Engine) fire(h *Handle, fn ExpireFunc) {
	e.mutex.Lock()
	if !h.state.CompareAndSwap(statePending, stateFired) {
		e.mutex.Unlock()
		return
	}
	if e.timers[h.id] == h {
		delete(e.timers, h.id)
	}
	e.inflight.Add(1)
	e.mutex.Unlock()

	defer e.inflight.Done()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Expiry callback panicked",
				slog.String("monitor_id", h.id),
				slog.String("panic", fmt.Sprint(r)))
		}
	}()

	fn(h.id, h)
}
