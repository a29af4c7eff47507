package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"basegraph.app/nudge/internal/model"
)

const webhookMaxTries = 3

// WebhookDeliverer POSTs each delivery as JSON to a chat gateway. 5xx and
// network errors are retried with exponential backoff; 4xx are not.
type WebhookDeliverer struct {
	url     string
	client  *http.Client
	backoff func() backoff.BackOff
}

func NewWebhookDeliverer(url string, timeout time.Duration) *WebhookDeliverer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookDeliverer{
		url: url,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			return b
		},
	}
}

func (w *WebhookDeliverer) Deliver(ctx context.Context, d model.Delivery) error {
	body, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal delivery: %w", err)
	}

	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, w.post(ctx, body)
	},
		backoff.WithBackOff(w.backoff()),
		backoff.WithMaxTries(webhookMaxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			slog.WarnContext(ctx, "webhook delivery failed, retrying",
				"error", err,
				"retry_in", next)
		}),
	)
	if err != nil {
		return fmt.Errorf("webhook delivery: %w", err)
	}
	return nil
}

func (w *WebhookDeliverer) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("building request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("gateway returned %d", resp.StatusCode)
	default:
		return backoff.Permanent(fmt.Errorf("gateway rejected delivery with %d", resp.StatusCode))
	}
}
