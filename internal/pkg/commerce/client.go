// internal/pkg/commerce/client.go
package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/battery-checkout/internal/config"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	endpointCalculate     = "/orders/calculate"
	endpointCreateOrder   = "/orders"
	endpointProducts      = "/orders/products"
	endpointValidatePromo = "/promo_codes/validate"

	maxResponseBytes = 1 << 20
)

// Observer receives the duration of every backend call
type Observer interface {
	ObserveCommerceRequest(ctx context.Context, endpoint string, duration time.Duration, err error)
}

// Client talks to the remote commerce backend. It holds no per-user state:
// the bearer token is passed in on every call.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
	observer   Observer

	tradeInDiscount decimal.Decimal
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default instrumented http client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithObserver records request durations
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// NewClient creates a new commerce client
func NewClient(cfg config.CommerceConfig, logger *logrus.Logger, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	c := &Client{
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		logger:          logger,
		tradeInDiscount: cfg.TradeInDiscount,
	}
	c.httpClient = &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do sends one JSON request and decodes a JSON object response. Non-2xx
// responses become APIError with the message fallback chain applied.
func (c *Client) do(ctx context.Context, op, method, endpoint, token string, payload any) (map[string]any, error) {
	start := time.Now()
	body, err := c.send(ctx, op, method, endpoint, token, payload)
	if c.observer != nil {
		c.observer.ObserveCommerceRequest(ctx, endpoint, time.Since(start), err)
	}

	entry := c.logger.WithFields(logrus.Fields{
		"operation": op,
		"endpoint":  endpoint,
		"latency":   time.Since(start).String(),
	})
	if err != nil {
		entry.WithError(err).Warn("commerce request failed")
		return nil, err
	}
	entry.Debug("commerce request completed")
	return body, nil
}

func (c *Client) send(ctx context.Context, op, method, endpoint, token string, payload any) (map[string]any, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s request: %w", op, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err, Timeout: isTimeout(ctx, err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err, Timeout: isTimeout(ctx, err)}
	}

	body, parseErr := decodeObject(raw)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if body == nil {
			body = map[string]any{}
		}
		return nil, &APIError{Op: op, Status: resp.StatusCode, Message: errorMessage(body, resp.StatusCode)}
	}
	if parseErr != nil {
		return nil, &ParseError{Op: op, Err: parseErr}
	}
	return body, nil
}

func decodeObject(raw []byte) (map[string]any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, errors.New("empty body")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return nil, err
	}
	if body == nil {
		return nil, errors.New("body is not a JSON object")
	}
	return body, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// unwrapData returns body["data"] when the payload is enveloped and the
// wanted key is not present at the top level
func unwrapData(body map[string]any, wanted string) map[string]any {
	if _, ok := body[wanted]; ok {
		return body
	}
	if inner, ok := body["data"].(map[string]any); ok {
		return inner
	}
	return body
}
