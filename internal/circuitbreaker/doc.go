// Package circuitbreaker stops alert delivery to endpoints that keep failing.
//
// Each alert destination gets its own breaker with three states:
//
//   - CLOSED: deliveries pass through
//   - OPEN: the endpoint failed repeatedly, deliveries are refused
//   - HALF-OPEN: one probe delivery is let through after the reset timeout
//
// Usage:
//
//	registry := circuitbreaker.NewRegistry(5, 30*time.Second)
//	cb := registry.GetBreaker("https://hooks.example.com/alerts")
//	if !cb.Allow() {
//	    return circuitbreaker.ErrOpen
//	}
//	if err := deliver(); err != nil {
//	    cb.RecordFailure()
//	} else {
//	    cb.RecordSuccess()
//	}
package circuitbreaker
