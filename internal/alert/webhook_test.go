package alert_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/heartbeat-monitor/internal/alert"
	"github.com/angeloszaimis/heartbeat-monitor/internal/circuitbreaker"
)

var _ = Describe("WebhookSink", func() {
	var (
		server   *httptest.Server
		status   atomic.Int32
		hits     atomic.Int32
		received chan map[string]any
	)

	BeforeEach(func() {
		status.Store(http.StatusOK)
		hits.Store(0)
		received = make(chan map[string]any, 10)

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			received <- body
			w.WriteHeader(int(status.Load()))
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("should post the alert as JSON", func() {
		sink := alert.NewWebhookSink(alert.WebhookOptions{URL: server.URL, Timeout: time.Second})
		event := alert.NewEvent("dev1", "ops@example.com", downAt, 15*time.Second)

		Expect(sink.Notify(context.Background(), event)).To(Succeed())

		var body map[string]any
		Eventually(received).Should(Receive(&body))
		Expect(body).To(HaveKeyWithValue("monitor_id", "dev1"))
		Expect(body).To(HaveKeyWithValue("alert_target", "ops@example.com"))
		Expect(body).To(HaveKeyWithValue("status", "DOWN"))
		Expect(body).To(HaveKeyWithValue("message", "Device dev1 is down!"))
		Expect(body).To(HaveKeyWithValue("id", event.ID))
	})

	It("should fail on non-2xx responses", func() {
		status.Store(http.StatusBadGateway)
		sink := alert.NewWebhookSink(alert.WebhookOptions{URL: server.URL})

		Expect(sink.Notify(context.Background(), alert.NewEvent("dev1", "", downAt, 0))).To(MatchError(ContainSubstring("502")))
	})

	It("should stop calling a failing endpoint once the breaker opens", func() {
		status.Store(http.StatusInternalServerError)
		breakers := circuitbreaker.NewRegistry(2, time.Hour)
		sink := alert.NewWebhookSink(alert.WebhookOptions{URL: server.URL, Breakers: breakers})

		for i := 0; i < 2; i++ {
			Expect(sink.Notify(context.Background(), alert.NewEvent("dev1", "", downAt, 0))).To(HaveOccurred())
		}
		Expect(sink.Notify(context.Background(), alert.NewEvent("dev1", "", downAt, 0))).To(MatchError(circuitbreaker.ErrOpen))

		Expect(hits.Load()).To(Equal(int32(2)))
		Expect(breakers.GetBreaker(server.URL).State()).To(Equal(circuitbreaker.StateOpen))
	})

	It("should respect the rate limiter deadline", func() {
		sink := alert.NewWebhookSink(alert.WebhookOptions{URL: server.URL, Rate: 0.001, Burst: 1})
		Expect(sink.Notify(context.Background(), alert.NewEvent("dev1", "", downAt, 0))).To(Succeed())

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		Expect(sink.Notify(ctx, alert.NewEvent("dev2", "", downAt, 0))).To(MatchError(ContainSubstring("rate limit")))
		Expect(hits.Load()).To(Equal(int32(1)))
	})
})
