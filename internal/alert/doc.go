// Package alert delivers expiry notifications for monitors that went DOWN.
//
// The monitor service only depends on the Sink contract. Concrete sinks cover
// the log line, webhooks, SMTP mail and a bbolt-backed journal; Fanout
// combines them and Dispatcher moves delivery off the expiry goroutine with
// an optional bounded retry.
package alert
