// Package logger builds the structured slog logger shared by the monitor service,
// its HTTP layer and the alert dispatchers. Production environments log JSON,
// everything else logs human-readable text.
package logger
