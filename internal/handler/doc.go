// Package handler exposes the monitor service over HTTP.
// It decodes requests, maps service results and errors to status codes,
// and records per-route request metrics.
package handler
