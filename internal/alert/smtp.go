package alert

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// SendFunc has the signature of smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type SMTPOptions struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSink mails each alert to the monitor's alert target.
type SMTPSink struct {
	addr string
	from string
	auth smtp.Auth
	send SendFunc
}

func NewSMTPSink(opts SMTPOptions) *SMTPSink {
	var auth smtp.Auth
	if opts.Username != "" {
		auth = smtp.PlainAuth("", opts.Username, opts.Password, opts.Host)
	}

	return &SMTPSink{
		addr: net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port)),
		from: opts.From,
		auth: auth,
		send: smtp.SendMail,
	}
}

// WithSendFunc replaces the mail transport.
func (s *SMTPSink) WithSendFunc(fn SendFunc) *SMTPSink {
	s.send = fn
	return s
}

func (s *SMTPSink) Notify(ctx context.Context, event Event) error {
	if err := is.EmailFormat.Validate(event.AlertTarget); err != nil || event.AlertTarget == "" {
		return fmt.Errorf("smtp: %q: %w", event.AlertTarget, ErrInvalidTarget)
	}

	msg := s.message(event)
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.send(s.addr, s.auth, s.from, []string{event.AlertTarget}, msg)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("smtp %s: %w", s.addr, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SMTPSink) message(event Event) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", s.from)
	fmt.Fprintf(&b, "To: %s\r\n", event.AlertTarget)
	fmt.Fprintf(&b, "Subject: [ALERT] %s\r\n", event.Message())
	fmt.Fprintf(&b, "Date: %s\r\n", event.DownAt.UTC().Format(time.RFC1123Z))
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	fmt.Fprintf(&b, "Monitor %s missed its heartbeat deadline of %s.\r\n", event.MonitorID, event.Timeout)
	fmt.Fprintf(&b, "Marked down at %s.\r\n", event.DownAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Alert id: %s\r\n", event.ID)
	return b.Bytes()
}
