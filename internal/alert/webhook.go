package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/angeloszaimis/heartbeat-monitor/internal/circuitbreaker"
)

type WebhookOptions struct {
	URL      string
	Timeout  time.Duration
	Rate     float64
	Burst    int
	Breakers *circuitbreaker.Registry
	Client   *http.Client
}

// WebhookSink posts alerts as JSON to a single endpoint.
type WebhookSink struct {
	url      string
	client   *http.Client
	limiter  *rate.Limiter
	breakers *circuitbreaker.Registry
}

type webhookPayload struct {
	ID          string    `json:"id"`
	MonitorID   string    `json:"monitor_id"`
	AlertTarget string    `json:"alert_target"`
	Status      string    `json:"status"`
	Message     string    `json:"message"`
	DownAt      time.Time `json:"down_at"`
}

func NewWebhookSink(opts WebhookOptions) *WebhookSink {
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if opts.Rate > 0 {
		limit = rate.Limit(opts.Rate)
	}
	burst := opts.Burst
	if burst < 1 {
		burst = 1
	}

	breakers := opts.Breakers
	if breakers == nil {
		breakers = circuitbreaker.NewRegistry(5, 30*time.Second)
	}

	return &WebhookSink{
		url:      opts.URL,
		client:   client,
		limiter:  rate.NewLimiter(limit, burst),
		breakers: breakers,
	}
}

func (s *WebhookSink) Notify(ctx context.Context, event Event) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("webhook rate limit: %w", err)
	}

	cb := s.breakers.GetBreaker(s.url)
	if !cb.Allow() {
		return fmt.Errorf("webhook %s: %w", s.url, circuitbreaker.ErrOpen)
	}

	if err := s.post(ctx, event); err != nil {
		cb.RecordFailure()
		return err
	}

	cb.RecordSuccess()
	return nil
}

func (s *WebhookSink) post(ctx context.Context, event Event) error {
	body, err := json.Marshal(webhookPayload{
		ID:          event.ID,
		MonitorID:   event.MonitorID,
		AlertTarget: event.AlertTarget,
		Status:      "DOWN",
		Message:     event.Message(),
		DownAt:      event.DownAt.UTC(),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook %s: %w", s.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook %s: unexpected status %d", s.url, resp.StatusCode)
	}

	return nil
}
