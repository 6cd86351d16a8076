package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/jwtly10/crossbot/internal/types"
)

const (
	DefaultBaseURL       = "https://api.binance.us"
	MaxCandlesPerRequest = 1000
)

// RetryPolicy bounds how often a failed request is retried. Backoff doubles
// from InitialBackoff up to MaxBackoff.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialBackoff: time.Second, MaxBackoff: 30 * time.Second}
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	d := p.InitialBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxBackoff > 0 && d >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	return d
}

// statusError is returned for non-200 responses.
type statusError struct {
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status code %d, API response: %s", e.StatusCode, e.Body)
}

func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500
	}
	return !errors.Is(err, errMalformed)
}

var errMalformed = errors.New("malformed kline response")

// Client fetches OHLCV klines from a Binance-compatible REST API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Retry      RetryPolicy

	sleep func(ctx context.Context, d time.Duration) error
}

func NewClient(baseURL string, retry RetryPolicy) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Retry:      retry,
		sleep:      sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// FetchBars returns the most recent limit bars for symbol, oldest first.
// The last bar may still be forming. Requests above MaxCandlesPerRequest
// are paged backwards with endTime.
func (c *Client) FetchBars(ctx context.Context, symbol, interval string, limit int) (types.Series, error) {
	slog.Info("Fetching klines", "symbol", symbol, "interval", interval, "limit", limit)

	var all types.Series
	var endTime int64
	for remaining := limit; remaining > 0; {
		batch := remaining
		if batch > MaxCandlesPerRequest {
			batch = MaxCandlesPerRequest
		}

		bars, err := c.fetchWithRetry(ctx, symbol, interval, batch, endTime)
		if err != nil {
			return nil, fmt.Errorf("fetch %s %s klines: %w", symbol, interval, err)
		}
		if len(bars) == 0 {
			break
		}

		slog.Debug("Found bars in latest fetch", "count", len(bars), "from", bars[0].Timestamp, "to", bars[len(bars)-1].Timestamp)

		all = append(bars, all...)
		remaining -= len(bars)
		if len(bars) < batch {
			break
		}
		endTime = bars[0].Timestamp.UnixMilli() - 1
	}

	if len(all) == 0 {
		return nil, ErrNoData
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Timestamp.Before(all[j].Timestamp) })
	if err := all.Validate(); err != nil {
		return nil, err
	}

	slog.Info("Completed fetching klines", "symbol", symbol, "total_bars", len(all))
	return all, nil
}

func (c *Client) fetchWithRetry(ctx context.Context, symbol, interval string, limit int, endTime int64) (types.Series, error) {
	var lastErr error
	for attempt := 1; attempt <= c.Retry.MaxAttempts; attempt++ {
		bars, err := c.fetchKlines(ctx, symbol, interval, limit, endTime)
		if err == nil {
			return bars, nil
		}
		lastErr = err
		if ctx.Err() != nil || !retryable(err) || attempt == c.Retry.MaxAttempts {
			break
		}

		wait := c.Retry.backoff(attempt)
		slog.Warn("Kline request failed, retrying", "attempt", attempt, "max_attempts", c.Retry.MaxAttempts, "backoff", wait, "error", err)
		if err := c.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) fetchKlines(ctx context.Context, symbol, interval string, limit int, endTime int64) (types.Series, error) {
	params := url.Values{}
	params.Add("symbol", symbol)
	params.Add("interval", interval)
	params.Add("limit", strconv.Itoa(limit))
	if endTime > 0 {
		params.Add("endTime", strconv.FormatInt(endTime, 10))
	}
	fullURL := c.BaseURL + "/api/v3/klines?" + params.Encode()
	slog.Debug("Request URL", "url", fullURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &statusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var raw [][]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}

	bars := make(types.Series, 0, len(raw))
	for i, k := range raw {
		bar, err := klineToBar(k)
		if err != nil {
			return nil, fmt.Errorf("%w: kline %d: %v", errMalformed, i, err)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

// klineToBar converts [openTime, "open", "high", "low", "close", "volume", ...].
func klineToBar(k []json.RawMessage) (types.Bar, error) {
	if len(k) < 6 {
		return types.Bar{}, fmt.Errorf("expected at least 6 fields, got %d", len(k))
	}

	var openTime int64
	if err := json.Unmarshal(k[0], &openTime); err != nil {
		return types.Bar{}, fmt.Errorf("parse open time: %w", err)
	}

	var values [5]float64
	for i := range values {
		var s string
		if err := json.Unmarshal(k[i+1], &s); err != nil {
			return types.Bar{}, fmt.Errorf("parse %s: %w", csvColumns[i+1], err)
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return types.Bar{}, fmt.Errorf("parse %s %q: %w", csvColumns[i+1], s, err)
		}
		values[i] = v
	}

	return types.Bar{
		Timestamp: time.UnixMilli(openTime).UTC(),
		Open:      values[0],
		High:      values[1],
		Low:       values[2],
		Close:     values[3],
		Volume:    values[4],
	}, nil
}
