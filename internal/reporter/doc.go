// Package reporter periodically samples monitor status counts, publishes
// them as gauges and logs whenever they change.
package reporter
