package metrics_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/heartbeat-monitor/internal/metrics"
	"github.com/angeloszaimis/heartbeat-monitor/pkg/logger"
)

var _ = Describe("Collector", func() {
	var (
		collector *metrics.Collector
		ctx       context.Context
		cancel    context.CancelFunc
	)

	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())
		collector = metrics.NewCollector(100, logger.Discard())
	})

	AfterEach(func() {
		cancel()
	})

	eventCount := func(t metrics.EventType) func() int64 {
		return func() int64 {
			return collector.Snapshot().Events[t]
		}
	}

	Describe("event processing", func() {
		It("should process lifecycle events", func() {
			collector.Start(ctx)

			collector.Emit(metrics.MetricEvent{Type: metrics.EventMonitorRegistered, MonitorID: "dev1"})
			collector.Emit(metrics.MetricEvent{Type: metrics.EventMonitorExpired, MonitorID: "dev1"})

			Eventually(eventCount(metrics.EventMonitorRegistered)).Should(Equal(int64(1)))
			Eventually(eventCount(metrics.EventMonitorExpired)).Should(Equal(int64(1)))
		})

		It("should track heartbeats per monitor", func() {
			collector.Start(ctx)

			collector.EventChannel() <- metrics.MetricEvent{
				Type:      metrics.EventHeartbeatReceived,
				Timestamp: time.Now(),
				MonitorID: "dev1",
			}

			Eventually(func() int64 {
				return collector.Snapshot().Heartbeats["dev1"]
			}).Should(Equal(int64(1)))
		})

		It("should record completed requests by method and route", func() {
			collector.Start(ctx)

			collector.Emit(metrics.MetricEvent{
				Type:       metrics.EventRequestCompleted,
				Route:      "/monitors",
				Method:     http.MethodPost,
				Duration:   50 * time.Millisecond,
				StatusCode: http.StatusCreated,
			})

			Eventually(func() int64 {
				return collector.Snapshot().Routes["POST /monitors"].StatusCodes[http.StatusCreated]
			}).Should(Equal(int64(1)))
		})

		It("should drain events on context cancellation", func() {
			done := make(chan struct{})
			go func() {
				defer close(done)
				_ = collector.Run(ctx)
			}()

			for i := 0; i < 5; i++ {
				collector.Emit(metrics.MetricEvent{Type: metrics.EventMonitorPaused})
			}
			cancel()
			Eventually(done).Should(BeClosed())

			Expect(collector.Snapshot().Events[metrics.EventMonitorPaused]).To(Equal(int64(5)))
		})
	})

	Describe("Emit", func() {
		It("should not block when the buffer is full", func() {
			small := metrics.NewCollector(1, logger.Discard())
			small.Emit(metrics.MetricEvent{Type: metrics.EventMonitorPaused})

			finished := make(chan struct{})
			go func() {
				small.Emit(metrics.MetricEvent{Type: metrics.EventMonitorPaused})
				close(finished)
			}()
			Eventually(finished).Should(BeClosed())
		})

		It("should be a no-op on a nil collector", func() {
			var nilCollector *metrics.Collector
			Expect(func() {
				nilCollector.Emit(metrics.MetricEvent{Type: metrics.EventMonitorPaused})
			}).NotTo(Panic())
		})
	})

	Describe("handlers", func() {
		It("should serve the snapshot as JSON", func() {
			collector.SetMonitorCounts(map[string]int{"ACTIVE": 2, "PAUSED": 0, "DOWN": 1})

			w := httptest.NewRecorder()
			collector.Handler()(w, httptest.NewRequest(http.MethodGet, "/metrics/summary", nil))

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("Content-Type")).To(Equal("application/json"))
			Expect(w.Body.String()).To(ContainSubstring(`"ACTIVE":2`))
		})

		It("should expose prometheus vectors", func() {
			collector.Start(ctx)
			collector.SetMonitorCounts(map[string]int{"DOWN": 4})
			collector.Emit(metrics.MetricEvent{Type: metrics.EventMonitorExpired, MonitorID: "dev1"})
			Eventually(eventCount(metrics.EventMonitorExpired)).Should(Equal(int64(1)))

			srv := httptest.NewServer(collector.PrometheusHandler())
			defer srv.Close()

			resp, err := http.Get(srv.URL)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)

			Expect(string(body)).To(ContainSubstring(`heartbeat_monitor_monitors{status="DOWN"} 4`))
			Expect(string(body)).To(ContainSubstring(`heartbeat_monitor_events_total{type="monitor_expired"} 1`))
		})
	})
})
