// Package klines fetches OHLCV candles from the kline caching proxy.
// The proxy speaks the binance REST dialect and shields the exchange from
// repeat downloads; this client only adds retries and parsing.
package klines

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"coin-strategy-lab/internal/domain"
)

// ErrExternalService indicates the proxy stayed unavailable through all
// retry attempts. Callers treat it as a data gap for the affected symbol.
var ErrExternalService = errors.New("external service unavailable")

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0

	// maxKlinesPerRequest is the proxy's page size cap.
	maxKlinesPerRequest = 1000
)

// DefaultInterval is the candle interval used when none is configured.
const DefaultInterval = "1h"

// Client is an HTTP client for the kline caching proxy.
type Client struct {
	baseURL     string
	client      *http.Client
	interval    string
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithInterval sets the candle interval used by Series.
func WithInterval(interval string) ClientOption {
	return func(c *Client) {
		c.interval = interval
	}
}

// NewClient creates a new kline proxy client.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     baseURL,
		client:      &http.Client{Timeout: DefaultTimeout},
		interval:    DefaultInterval,
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetKlines fetches candles for one symbol within [start, end] (unix seconds,
// inclusive), paging through the proxy until the range is covered.
func (c *Client) GetKlines(ctx context.Context, symbol, interval string, start, end int64) ([]*domain.Kline, error) {
	var all []*domain.Kline
	cursor := start

	for cursor <= end {
		page, err := c.getPage(ctx, symbol, interval, cursor, end)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		all = append(all, page...)

		last := page[len(page)-1]
		if last.CloseTime <= cursor {
			break
		}
		cursor = last.CloseTime + 1

		if len(page) < maxKlinesPerRequest {
			break
		}
	}

	return all, nil
}

// getPage performs one paged request with retries and exponential backoff.
func (c *Client) getPage(ctx context.Context, symbol, interval string, start, end int64) ([]*domain.Kline, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", interval)
	q.Set("startTime", strconv.FormatInt(start*1000, 10))
	q.Set("endTime", strconv.FormatInt(end*1000, 10))
	q.Set("limit", strconv.Itoa(maxKlinesPerRequest))
	endpoint := fmt.Sprintf("%s/api/v3/klines?%s", c.baseURL, q.Encode())

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		// Rate limiting and upstream failures are retried
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
			continue
		}

		if resp.StatusCode != http.StatusOK {
			// Client errors are not retried
			return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
		}

		klines, err := parseKlines(symbol, interval, body)
		if err != nil {
			return nil, err
		}
		return klines, nil
	}

	return nil, fmt.Errorf("%w: %s klines after %d attempts: %v", ErrExternalService, symbol, c.maxRetries+1, lastErr)
}

// parseKlines decodes the binance-style array-of-arrays kline payload:
// [openTimeMs, open, high, low, close, volume, closeTimeMs, ...].
// Numeric prices arrive as strings, times as millisecond numbers.
func parseKlines(symbol, interval string, body []byte) ([]*domain.Kline, error) {
	var rows [][]json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("unmarshal klines: %w", err)
	}

	klines := make([]*domain.Kline, 0, len(rows))
	for i, row := range rows {
		if len(row) < 7 {
			return nil, fmt.Errorf("kline row %d: expected at least 7 fields, got %d", i, len(row))
		}

		openTimeMs, err := parseMillis(row[0])
		if err != nil {
			return nil, fmt.Errorf("kline row %d open time: %w", i, err)
		}
		closeTimeMs, err := parseMillis(row[6])
		if err != nil {
			return nil, fmt.Errorf("kline row %d close time: %w", i, err)
		}

		var prices [5]float64
		for j := 1; j <= 5; j++ {
			prices[j-1], err = parsePrice(row[j])
			if err != nil {
				return nil, fmt.Errorf("kline row %d field %d: %w", i, j, err)
			}
		}

		klines = append(klines, &domain.Kline{
			Symbol:    symbol,
			Interval:  interval,
			OpenTime:  openTimeMs / 1000,
			CloseTime: closeTimeMs / 1000,
			Open:      prices[0],
			High:      prices[1],
			Low:       prices[2],
			Close:     prices[3],
			Volume:    prices[4],
		})
	}

	return klines, nil
}

func parseMillis(raw json.RawMessage) (int64, error) {
	var ms int64
	if err := json.Unmarshal(raw, &ms); err != nil {
		return 0, fmt.Errorf("parse millis: %w", err)
	}
	return ms, nil
}

func parsePrice(raw json.RawMessage) (float64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strconv.ParseFloat(s, 64)
	}
	// Some proxies serve plain numbers instead of quoted strings
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, fmt.Errorf("parse price: %w", err)
	}
	return f, nil
}

// Series fetches the close-price series for a symbol within [start, end].
// This is the shape campaign feeds consume.
func (c *Client) Series(ctx context.Context, symbol string, start, end int64) ([]*domain.PriceRecord, error) {
	klines, err := c.GetKlines(ctx, symbol, c.interval, start, end)
	if err != nil {
		return nil, err
	}
	return domain.PriceRecordsFromKlines(klines), nil
}
