package alert

import (
	"context"
	"log/slog"
)

// LogSink writes every alert as a warning.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Notify(ctx context.Context, event Event) error {
	s.logger.WarnContext(ctx, "ALERT",
		slog.String("alert", event.Message()),
		slog.String("alert_id", event.ID),
		slog.String("monitor_id", event.MonitorID),
		slog.String("alert_target", event.AlertTarget),
		slog.Time("time", event.DownAt.UTC()))
	return nil
}
