// Package httpserver wraps net/http with address validation, configurable
// timeouts and graceful shutdown.
package httpserver
