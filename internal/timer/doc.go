// Package timer schedules one-shot expiry callbacks keyed by monitor id.
//
// Each id owns at most one live Handle. Scheduling a new handle for an id
// cancels the previous one in the same critical section, so a superseded or
// cancelled handle never invokes its callback:
//
//	engine := timer.New()
//	h := engine.Schedule("dev1", 15*time.Second, onExpire)
//	engine.Cancel(h) // safe after firing or a second time
//
// Callbacks run on their own goroutine and never while the engine lock is held.
package timer
