package circuitbreaker

import (
	"sync"
	"time"
)

// Registry hands out one breaker per alert destination.
type Registry struct {
	mutex     sync.RWMutex
	breakers  map[string]*CircuitBreaker
	threshold int
	timeout   time.Duration
	now       func() time.Time
}

func NewRegistry(threshold int, timeout time.Duration) *Registry {
	return &Registry{
		breakers:  make(map[string]*CircuitBreaker),
		threshold: threshold,
		timeout:   timeout,
		now:       time.Now,
	}
}

// WithClock makes breakers created from now on use the given clock.
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.now = now
	return r
}

func (r *Registry) GetBreaker(destination string) *CircuitBreaker {
	r.mutex.RLock()
	cb, exists := r.breakers[destination]
	r.mutex.RUnlock()

	if exists {
		return cb
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	// Another goroutine may have created it meanwhile.
	if cb, exists = r.breakers[destination]; exists {
		return cb
	}

	cb = newCircuitBreaker(r.threshold, r.timeout, r.now)
	r.breakers[destination] = cb
	return cb
}
