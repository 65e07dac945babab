package main

import (
	"context"
	"fmt"
	"log/slog"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/angeloszaimis/heartbeat-monitor/config"
	"github.com/angeloszaimis/heartbeat-monitor/internal/alert"
	"github.com/angeloszaimis/heartbeat-monitor/internal/circuitbreaker"
	"github.com/angeloszaimis/heartbeat-monitor/internal/handler"
	"github.com/angeloszaimis/heartbeat-monitor/internal/httpserver"
	"github.com/angeloszaimis/heartbeat-monitor/internal/metrics"
	"github.com/angeloszaimis/heartbeat-monitor/internal/monitor"
	"github.com/angeloszaimis/heartbeat-monitor/internal/reporter"
	"github.com/angeloszaimis/heartbeat-monitor/internal/timer"
)

type app struct {
	log        *slog.Logger
	engine     *timer.Engine
	service    *monitor.Service
	collector  *metrics.Collector
	dispatcher *alert.Dispatcher
	journal    *alert.JournalSink
	reporter   *reporter.Reporter
	server     *httpserver.Server
}

func newApp(cfg *config.Config, log *slog.Logger) (*app, error) {
	a := &app{log: log}

	if cfg.Metrics.Enabled {
		a.collector = metrics.NewCollector(cfg.Metrics.BufferSize, log)
	}

	sinks, journal, err := buildSinks(cfg, log)
	if err != nil {
		return nil, err
	}
	a.journal = journal

	a.dispatcher = alert.NewDispatcher(alert.NewFanout(sinks...), log, alert.DispatcherOptions{
		QueueSize:       cfg.Alerts.QueueSize,
		Attempts:        cfg.Alerts.Attempts,
		Backoff:         cfg.Alerts.RetryBackoff,
		DeliveryTimeout: cfg.Alerts.DeliveryTimeout,
	})
	a.dispatcher.OnResult(func(event alert.Event, err error) {
		eventType := metrics.EventAlertDelivered
		if err != nil {
			eventType = metrics.EventAlertFailed
		}
		a.collector.Emit(metrics.MetricEvent{Type: eventType, MonitorID: event.MonitorID})
	})

	a.engine = timer.New(timer.WithLogger(log))
	a.service = monitor.NewService(log, monitor.NewStore(), a.engine, a.dispatcher,
		monitor.WithGracePeriod(cfg.Monitor.GracePeriod),
		monitor.WithCollector(a.collector),
		monitor.WithNotifyTimeout(cfg.Alerts.DeliveryTimeout),
	)

	var publisher reporter.Publisher
	if a.collector != nil {
		publisher = a.collector
	}
	a.reporter = reporter.New(a.service, publisher, cfg.Reporter.Interval, log)

	monitorHandler := handler.NewMonitorHandler(log, a.service, a.collector)
	if journal != nil {
		monitorHandler.WithHistory(journal)
	}

	a.server, err = httpserver.New(cfg.Server.Address,
		setupRouter(monitorHandler, a.collector, cfg.Server.BasePath),
		httpserver.Timeouts{
			Read:     cfg.Server.ReadTimeout,
			Write:    cfg.Server.WriteTimeout,
			Idle:     cfg.Server.IdleTimeout,
			Shutdown: cfg.Server.ShutdownTimeout,
		})
	if err != nil {
		return nil, multierr.Append(err, a.close())
	}

	return a, nil
}

// buildSinks returns the enabled alert sinks. The log sink is always on.
func buildSinks(cfg *config.Config, log *slog.Logger) ([]alert.Sink, *alert.JournalSink, error) {
	sinks := []alert.Sink{alert.NewLogSink(log)}

	if wh := cfg.Alerts.Webhook; wh.Enabled {
		sinks = append(sinks, alert.NewWebhookSink(alert.WebhookOptions{
			URL:      wh.URL,
			Timeout:  wh.Timeout,
			Rate:     wh.Rate,
			Burst:    wh.Burst,
			Breakers: circuitbreaker.NewRegistry(wh.FailureThreshold, wh.ResetTimeout),
		}))
		log.Info("Webhook alerts enabled", slog.String("url", wh.URL))
	}

	if sm := cfg.Alerts.SMTP; sm.Enabled {
		sinks = append(sinks, alert.NewSMTPSink(alert.SMTPOptions{
			Host:     sm.Host,
			Port:     sm.Port,
			Username: sm.Username,
			Password: sm.Password,
			From:     sm.From,
		}))
		log.Info("SMTP alerts enabled", slog.String("host", sm.Host))
	}

	var journal *alert.JournalSink
	if jc := cfg.Alerts.Journal; jc.Enabled {
		var err error
		journal, err = alert.OpenJournal(jc.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open alert journal %q: %w", jc.Path, err)
		}
		sinks = append(sinks, journal)
		log.Info("Alert journal enabled", slog.String("path", jc.Path))
	}

	return sinks, journal, nil
}

// run blocks until ctx is done or a component fails, then releases resources.
func (a *app) run(ctx context.Context) error {
	a.log.Info("Starting heartbeat monitor",
		slog.String("addr", a.server.Addr()),
		slog.Duration("grace_period", a.service.GracePeriod()))

	g, gctx := errgroup.WithContext(ctx)

	// The dispatcher outlives the timer engine so alerts from expiries that
	// race shutdown are still drained.
	dispatchCtx, stopDispatch := context.WithCancel(context.WithoutCancel(ctx))
	defer stopDispatch()

	if a.collector != nil {
		g.Go(func() error { return a.collector.Run(gctx) })
	}
	g.Go(func() error { return a.dispatcher.Run(dispatchCtx) })
	g.Go(func() error {
		<-gctx.Done()
		a.engine.Stop()
		stopDispatch()
		return nil
	})
	g.Go(func() error { return a.reporter.Run(gctx) })
	g.Go(func() error {
		if err := a.server.Run(gctx); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	err := g.Wait()
	a.log.Info("Shutting down gracefully...")

	return multierr.Append(err, a.close())
}

func (a *app) close() error {
	if a.engine != nil {
		a.engine.Stop()
	}
	if a.journal != nil {
		return a.journal.Close()
	}
	return nil
}
