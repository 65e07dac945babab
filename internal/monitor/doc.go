// Package monitor implements the dead-man's-switch registry.
//
// A monitor is registered with a heartbeat interval. Every heartbeat re-arms
// its expiry timer; when the timer fires first the monitor goes DOWN and an
// alert is sent. Monitors can be paused, which disarms the timer until they
// are resumed with a full window.
//
//	ACTIVE --pause--> PAUSED --resume--> ACTIVE
//	ACTIVE --expire--> DOWN (terminal)
//
// All mutations of one monitor are serialized by the Store; unrelated
// monitors never contend on the same lock.
package monitor
