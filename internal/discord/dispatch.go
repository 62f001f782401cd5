package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	logx "ctawatch/pkg/logx"
)

// maxEmbedsPerPost is the webhook API's embed-per-message cap.
const maxEmbedsPerPost = 10

// Dispatcher posts embed batches to every configured webhook endpoint.
// Endpoint failures are absorbed: one bad endpoint never blocks the
// others or the remaining chunks.
type Dispatcher struct {
	http    *http.Client
	limiter *rate.Limiter
	log     logx.Logger

	mu        sync.Mutex
	endpoints []string
}

// NewDispatcher parses the ";"-separated endpoint list. postDelay is
// the unconditional pause between post attempts (webhook rate limits).
func NewDispatcher(webhookURL string, postDelay time.Duration, log logx.Logger) *Dispatcher {
	d := &Dispatcher{
		http:    &http.Client{Timeout: 15 * time.Second},
		limiter: newLimiter(postDelay),
		log:     log,
	}
	d.endpoints = splitEndpoints(webhookURL)
	return d
}

func newLimiter(postDelay time.Duration) *rate.Limiter {
	if postDelay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(postDelay), 1)
}

// Apply swaps the endpoint list (config hot reload).
func (d *Dispatcher) Apply(webhookURL string) {
	eps := splitEndpoints(webhookURL)
	d.mu.Lock()
	d.endpoints = eps
	d.mu.Unlock()
}

// Post sends the embeds in chunks of at most ten per request, each
// chunk to every endpoint in order. With no endpoints configured this
// is a no-op.
func (d *Dispatcher) Post(ctx context.Context, embeds []Embed) {
	d.mu.Lock()
	endpoints := d.endpoints
	d.mu.Unlock()

	if len(endpoints) == 0 || len(embeds) == 0 {
		return
	}

	for start := 0; start < len(embeds); start += maxEmbedsPerPost {
		end := start + maxEmbedsPerPost
		if end > len(embeds) {
			end = len(embeds)
		}
		chunk := embeds[start:end]

		body, err := json.Marshal(struct {
			Embeds []Embed `json:"embeds"`
		}{Embeds: chunk})
		if err != nil {
			d.log.Error("marshal webhook body", logx.Err(err))
			continue
		}

		for _, ep := range endpoints {
			if err := d.limiter.Wait(ctx); err != nil {
				return
			}
			if err := d.postOne(ctx, ep, body); err != nil {
				d.log.Warn("webhook post failed", logx.String("endpoint", ep), logx.Err(err))
				continue
			}
			d.log.Debug("webhook post ok", logx.String("endpoint", ep), logx.Int("embeds", len(chunk)))
		}
	}
}

func (d *Dispatcher) postOne(ctx context.Context, endpoint string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func splitEndpoints(webhookURL string) []string {
	var out []string
	for _, part := range strings.Split(webhookURL, ";") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
