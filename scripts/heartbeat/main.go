// Heartbeat is a device simulator for exercising a running heartbeat-monitor.
// It registers a fleet of monitors, keeps a healthy subset heartbeating and
// lets the rest go silent, then prints the status breakdown reported by the
// server. With -listen it also receives webhook alerts and prints them.
//
// Usage:
//
//	go run ./scripts/heartbeat -url http://localhost:8080 -monitors 20 -healthy 0.75 -timeout 2 -duration 30s
//	go run ./scripts/heartbeat -listen :9000 -monitors 5 -healthy 0
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

type alertPayload struct {
	MonitorID string    `json:"monitor_id"`
	Message   string    `json:"message"`
	DownAt    time.Time `json:"down_at"`
}

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:8080", "Monitor API base URL")
		monitors = flag.Int("monitors", 10, "Number of monitors to register")
		healthy  = flag.Float64("healthy", 0.8, "Fraction of monitors that keep sending heartbeats")
		timeout  = flag.Float64("timeout", 2, "Heartbeat timeout in seconds")
		duration = flag.Duration("duration", 20*time.Second, "How long to run")
		prefix   = flag.String("prefix", "sim-device", "Monitor id prefix")
		email    = flag.String("email", "ops@example.com", "Alert target")
		listen   = flag.String("listen", "", "Address to receive webhook alerts on (optional)")
	)
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	ctx, cancelRun := context.WithTimeout(ctx, *duration)
	defer cancelRun()

	client := &http.Client{Timeout: 5 * time.Second}
	healthyCount := int(float64(*monitors) * *healthy)
	interval := time.Duration(*timeout * float64(time.Second) / 2)

	var (
		beats    atomic.Int64
		failures atomic.Int64
		alerts   atomic.Int64
	)

	g, gctx := errgroup.WithContext(ctx)

	if *listen != "" {
		srv := &http.Server{Addr: *listen, Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var p alertPayload
			if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			alerts.Add(1)
			log.Printf("alert: %s (down at %s)", p.Message, p.DownAt.Format(time.RFC3339))
			w.WriteHeader(http.StatusNoContent)
		})}
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			return srv.Shutdown(context.Background())
		})
	}

	for i := 0; i < *monitors; i++ {
		id := fmt.Sprintf("%s-%03d", *prefix, i)
		if err := register(ctx, client, *baseURL, id, *timeout, *email); err != nil {
			log.Fatalf("register %s: %v", id, err)
		}

		if i >= healthyCount {
			continue
		}

		g.Go(func() error {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					if err := post(gctx, client, *baseURL+"/monitors/"+id+"/heartbeat"); err != nil {
						failures.Add(1)
						continue
					}
					beats.Add(1)
				}
			}
		})
	}

	log.Printf("registered %d monitors, %d heartbeating every %s", *monitors, healthyCount, interval)

	if err := g.Wait(); err != nil {
		log.Fatalf("simulator failed: %v", err)
	}

	counts, err := statusCounts(client, *baseURL)
	if err != nil {
		log.Fatalf("list monitors: %v", err)
	}

	fmt.Println("=== Simulation summary ===")
	fmt.Printf("heartbeats sent:   %d\n", beats.Load())
	fmt.Printf("heartbeat errors:  %d\n", failures.Load())
	fmt.Printf("alerts received:   %d\n", alerts.Load())
	for _, status := range []string{"ACTIVE", "PAUSED", "DOWN"} {
		fmt.Printf("%-8s %d\n", status, counts[status])
	}
}

func register(ctx context.Context, client *http.Client, baseURL, id string, timeout float64, email string) error {
	body, err := json.Marshal(map[string]any{"id": id, "timeout": timeout, "alert_email": email})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/monitors", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	return nil
}

func post(ctx context.Context, client *http.Client, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

func statusCounts(client *http.Client, baseURL string) (map[string]int, error) {
	resp, err := client.Get(baseURL + "/monitors")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var list struct {
		Data []struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, m := range list.Data {
		counts[m.Status]++
	}
	return counts, nil
}
