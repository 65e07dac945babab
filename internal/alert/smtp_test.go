package alert_test

import (
	"context"
	"errors"
	"net/smtp"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/heartbeat-monitor/internal/alert"
)

var _ = Describe("SMTPSink", func() {
	var (
		gotAddr string
		gotFrom string
		gotTo   []string
		gotMsg  string
		sink    *alert.SMTPSink
	)

	BeforeEach(func() {
		sink = alert.NewSMTPSink(alert.SMTPOptions{
			Host: "mail.example.com",
			Port: 587,
			From: "monitor@example.com",
		}).WithSendFunc(func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
			gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, string(msg)
			return nil
		})
	})

	It("should mail the alert target", func() {
		event := alert.NewEvent("dev1", "ops@example.com", downAt, 15*time.Second)
		Expect(sink.Notify(context.Background(), event)).To(Succeed())

		Expect(gotAddr).To(Equal("mail.example.com:587"))
		Expect(gotFrom).To(Equal("monitor@example.com"))
		Expect(gotTo).To(Equal([]string{"ops@example.com"}))
		Expect(gotMsg).To(ContainSubstring("Subject: [ALERT] Device dev1 is down!"))
		Expect(gotMsg).To(ContainSubstring("deadline of 15s"))
		Expect(gotMsg).To(ContainSubstring(event.ID))
	})

	It("should reject targets that are not email addresses", func() {
		for _, target := range []string{"", "not-an-email", "https://hooks.example.com"} {
			err := sink.Notify(context.Background(), alert.NewEvent("dev1", target, downAt, 0))
			Expect(err).To(MatchError(alert.ErrInvalidTarget))
		}
	})

	It("should wrap transport errors", func() {
		sink.WithSendFunc(func(string, smtp.Auth, string, []string, []byte) error {
			return errors.New("connection refused")
		})

		err := sink.Notify(context.Background(), alert.NewEvent("dev1", "ops@example.com", downAt, 0))
		Expect(err).To(MatchError(ContainSubstring("connection refused")))
	})

	It("should give up when the context ends", func() {
		block := make(chan struct{})
		defer close(block)
		sink.WithSendFunc(func(string, smtp.Auth, string, []string, []byte) error {
			<-block
			return nil
		})

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		Expect(sink.Notify(ctx, alert.NewEvent("dev1", "ops@example.com", downAt, 0))).To(MatchError(context.DeadlineExceeded))
	})
})
