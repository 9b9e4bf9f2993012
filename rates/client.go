package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var ErrRateUnavailable = errors.New("exchange rate unavailable")

// Provider fetches a live from -> to exchange rate.
type Provider interface {
	FetchRate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

// HTTPClient talks to a Frankfurter-compatible API:
// GET {base}/latest?from=EUR&to=USD -> {"base":"EUR","rates":{"USD":1.1617}}.
type HTTPClient struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

func NewHTTPClient(cfg ClientConfig, logger *slog.Logger) *HTTPClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	transport := &http.Transport{
		MaxIdleConns:        100,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		timeout:    cfg.Timeout,
		httpClient: &http.Client{Timeout: cfg.Timeout, Transport: transport},
		logger:     logger,
	}
}

type latestResponse struct {
	Base  string                     `json:"base"`
	Date  string                     `json:"date"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

func (c *HTTPClient) FetchRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	q := url.Values{}
	q.Set("from", from)
	q.Set("to", to)
	endpoint := c.baseURL + "/latest?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: build request: %w", ErrRateUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s->%s: %w", ErrRateUnavailable, from, to, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Тело читаем только ради лога.
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.WarnContext(ctx, "exchange rate API returned non-OK status",
			slog.String("from", from), slog.String("to", to),
			slog.Int("status", resp.StatusCode), slog.String("body", string(body)))
		return decimal.Zero, fmt.Errorf("%w: %s->%s: status %d", ErrRateUnavailable, from, to, resp.StatusCode)
	}

	var payload latestResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&payload); err != nil {
		return decimal.Zero, fmt.Errorf("%w: decode %s->%s: %w", ErrRateUnavailable, from, to, err)
	}

	rate, ok := payload.Rates[to]
	if !ok || !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s->%s missing in response", ErrRateUnavailable, from, to)
	}
	return rate, nil
}
