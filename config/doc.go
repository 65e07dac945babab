// Package config handles loading and parsing of configuration from YAML files
// and environment variables. It defines the application configuration structure
// including server settings, the monitor grace period, alert delivery and metrics.
package config
