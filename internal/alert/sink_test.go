package alert_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/multierr"

	"github.com/angeloszaimis/heartbeat-monitor/internal/alert"
	"github.com/angeloszaimis/heartbeat-monitor/pkg/logger"
)

type recordingSink struct {
	mu     sync.Mutex
	events []alert.Event
	err    error
}

func (s *recordingSink) Notify(_ context.Context, event alert.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

var downAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

var _ = Describe("Event", func() {
	It("should get a unique id", func() {
		a := alert.NewEvent("dev1", "ops@example.com", downAt, 15*time.Second)
		b := alert.NewEvent("dev1", "ops@example.com", downAt, 15*time.Second)

		Expect(a.ID).NotTo(BeEmpty())
		Expect(a.ID).NotTo(Equal(b.ID))
		Expect(a.Message()).To(Equal("Device dev1 is down!"))
	})
})

var _ = Describe("LogSink", func() {
	It("should log the alert line", func() {
		var buf bytes.Buffer
		sink := alert.NewLogSink(logger.NewWithWriter(&buf, "info", false, "dev"))

		Expect(sink.Notify(context.Background(), alert.NewEvent("dev1", "ops@example.com", downAt, time.Second))).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("Device dev1 is down!"))
		Expect(buf.String()).To(ContainSubstring("monitor_id=dev1"))
	})
})

var _ = Describe("Fanout", func() {
	It("should deliver to every sink and combine errors", func() {
		first := &recordingSink{err: errors.New("smtp down")}
		second := &recordingSink{}
		third := &recordingSink{err: errors.New("webhook down")}

		err := alert.NewFanout(first, nil, second, third).Notify(context.Background(), alert.NewEvent("dev1", "", downAt, 0))

		Expect(err).To(HaveOccurred())
		Expect(multierr.Errors(err)).To(HaveLen(2))
		Expect(first.count()).To(Equal(1))
		Expect(second.count()).To(Equal(1))
		Expect(third.count()).To(Equal(1))
	})

	It("should turn a panicking sink into an error", func() {
		boom := alert.SinkFunc(func(context.Context, alert.Event) error { panic("boom") })
		after := &recordingSink{}
		fanout := alert.NewFanout(boom, after)

		Expect(fanout.Len()).To(Equal(2))
		Expect(fanout.Notify(context.Background(), alert.NewEvent("dev1", "", downAt, 0))).To(MatchError(ContainSubstring("panicked")))
		Expect(after.count()).To(Equal(1))
	})

	It("should succeed with no sinks", func() {
		Expect(alert.NewFanout().Notify(context.Background(), alert.Event{})).To(Succeed())
		Expect(alert.Nop{}.Notify(context.Background(), alert.Event{})).To(Succeed())
	})
})
