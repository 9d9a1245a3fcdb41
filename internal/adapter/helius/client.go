// Package helius implements webhookapi.API against the Helius REST API.
package helius

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/toastx/shredr-fun/internal/domain"
	"github.com/toastx/shredr-fun/internal/domain/webhook"
	"github.com/toastx/shredr-fun/internal/resilience"
)

const maxErrorBody = 4 << 10

// Client calls the Helius webhook endpoints. Every call goes through the
// circuit breaker; 4xx answers do not trip it.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *resilience.Breaker
}

// NewClient creates a Helius client. A nil breaker disables circuit breaking.
func NewClient(baseURL, apiKey string, timeout time.Duration, breaker *resilience.Breaker) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    breaker,
	}
}

// CreateWebhook registers a new webhook.
func (c *Client) CreateWebhook(ctx context.Context, w *webhook.Webhook) (*webhook.Webhook, error) {
	var created webhook.Webhook
	if err := c.call(ctx, http.MethodPost, "/v0/webhooks", w, &created); err != nil {
		return nil, fmt.Errorf("helius create webhook: %w", err)
	}
	return &created, nil
}

// GetWebhook fetches a webhook by ID.
func (c *Client) GetWebhook(ctx context.Context, id string) (*webhook.Webhook, error) {
	var got webhook.Webhook
	if err := c.call(ctx, http.MethodGet, "/v0/webhooks/"+url.PathEscape(id), nil, &got); err != nil {
		return nil, fmt.Errorf("helius get webhook %s: %w", id, err)
	}
	return &got, nil
}

// EditWebhook replaces the webhook identified by w.WebhookID.
func (c *Client) EditWebhook(ctx context.Context, w *webhook.Webhook) (*webhook.Webhook, error) {
	if w.WebhookID == "" {
		return nil, fmt.Errorf("%w: webhook id is required", domain.ErrValidation)
	}
	body := *w
	body.WebhookID = ""
	body.Wallet = ""

	var edited webhook.Webhook
	if err := c.call(ctx, http.MethodPut, "/v0/webhooks/"+url.PathEscape(w.WebhookID), &body, &edited); err != nil {
		return nil, fmt.Errorf("helius edit webhook %s: %w", w.WebhookID, err)
	}
	return &edited, nil
}

func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	if c.breaker == nil {
		return c.do(ctx, method, path, in, out)
	}
	return c.breaker.Do(ctx, func(ctx context.Context) error {
		return c.do(ctx, method, path, in, out)
	})
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return resilience.Permanent(fmt.Errorf("encode request: %w", err))
		}
		body = bytes.NewReader(data)
	}

	reqURL := c.baseURL + path + "?api-key=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return resilience.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req) //nolint:gosec // URL is built from the configured base URL
	if err != nil {
		return fmt.Errorf("http request: %w", redact(err, c.apiKey))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := fmt.Errorf("helius API %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		switch {
		case resp.StatusCode == http.StatusNotFound:
			return resilience.Permanent(fmt.Errorf("%w: %w", domain.ErrNotFound, apiErr))
		case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
			return apiErr
		default:
			return resilience.Permanent(apiErr)
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// redact strips the API key from transport errors, which embed the URL.
func redact(err error, key string) error {
	esc := url.QueryEscape(key)
	if key == "" || !strings.Contains(err.Error(), esc) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), esc, "REDACTED"))
}
