package metrics_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/heartbeat-monitor/internal/metrics"
)

var _ = Describe("Metrics", func() {
	var m *metrics.Metrics

	BeforeEach(func() {
		m = metrics.NewMetrics()
	})

	Describe("IncrementEvent", func() {
		It("should count events by type", func() {
			m.IncrementEvent(metrics.EventMonitorRegistered)
			m.IncrementEvent(metrics.EventMonitorRegistered)
			m.IncrementEvent(metrics.EventMonitorExpired)

			snap := m.Snapshot()
			Expect(snap.Events[metrics.EventMonitorRegistered]).To(Equal(int64(2)))
			Expect(snap.Events[metrics.EventMonitorExpired]).To(Equal(int64(1)))
		})
	})

	Describe("RecordHeartbeat", func() {
		It("should track monitors separately", func() {
			m.RecordHeartbeat("dev1")
			m.RecordHeartbeat("dev2")
			m.RecordHeartbeat("dev1")

			snap := m.Snapshot()
			Expect(snap.Heartbeats).To(HaveKeyWithValue("dev1", int64(2)))
			Expect(snap.Heartbeats).To(HaveKeyWithValue("dev2", int64(1)))
		})
	})

	Describe("RecordResponse", func() {
		It("should record response time and status code", func() {
			m.RecordResponse("POST /monitors", 100*time.Millisecond, 201)
			m.RecordResponse("POST /monitors", 200*time.Millisecond, 400)

			route := m.Snapshot().Routes["POST /monitors"]
			Expect(route.Requests).To(Equal(int64(2)))
			Expect(route.AvgResponse).To(Equal(150 * time.Millisecond))
			Expect(route.StatusCodes[201]).To(Equal(int64(1)))
			Expect(route.StatusCodes[400]).To(Equal(int64(1)))
		})

		It("should calculate percentiles correctly", func() {
			for i := 1; i <= 100; i++ {
				m.RecordResponse("GET /monitors", time.Duration(i)*time.Millisecond, 200)
			}

			route := m.Snapshot().Routes["GET /monitors"]
			Expect(route.P50Response).To(BeNumerically("~", 50*time.Millisecond, time.Millisecond))
			Expect(route.P95Response).To(BeNumerically("~", 95*time.Millisecond, time.Millisecond))
			Expect(route.P99Response).To(BeNumerically("~", 99*time.Millisecond, time.Millisecond))
		})

		It("should limit stored response times to 1000", func() {
			for i := 1; i <= 1500; i++ {
				m.RecordResponse("GET /monitors", time.Duration(i)*time.Millisecond, 200)
			}

			route := m.Snapshot().Routes["GET /monitors"]
			Expect(route.AvgResponse).To(BeNumerically(">", 500*time.Millisecond))
			Expect(route.Requests).To(Equal(int64(1500)))
		})
	})

	Describe("UpdateMonitorCounts", func() {
		It("should replace the previous counts", func() {
			m.UpdateMonitorCounts(map[string]int{"ACTIVE": 3, "DOWN": 1})
			m.UpdateMonitorCounts(map[string]int{"ACTIVE": 2})

			snap := m.Snapshot()
			Expect(snap.Monitors).To(Equal(map[string]int64{"ACTIVE": 2}))
		})
	})

	Describe("Snapshot", func() {
		It("should handle empty metrics", func() {
			snap := m.Snapshot()
			Expect(snap.Events).To(BeEmpty())
			Expect(snap.Routes).To(BeEmpty())
		})

		It("should include uptime", func() {
			time.Sleep(5 * time.Millisecond)
			Expect(m.Snapshot().Uptime).To(BeNumerically(">", 0))
		})

		It("should return an independent copy", func() {
			m.IncrementEvent(metrics.EventMonitorPaused)
			snap1 := m.Snapshot()
			m.IncrementEvent(metrics.EventMonitorPaused)

			Expect(snap1.Events[metrics.EventMonitorPaused]).To(Equal(int64(1)))
			Expect(m.Snapshot().Events[metrics.EventMonitorPaused]).To(Equal(int64(2)))
		})
	})
})
