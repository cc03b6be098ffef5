package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// UserAgent is sent with every download; some share hosts refuse unknown clients.
const UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// maxBody caps the size of a downloaded workbook.
const maxBody = 64 << 20

// Client downloads workbooks over HTTP with retry and capped backoff.
type Client struct {
	httpClient       *http.Client
	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
}

// NewClient allows customizing HTTP timeout and retry/backoff behavior.
// Zero values fall back to a 30s timeout and 3 attempts starting at 500ms.
func NewClient(httpTimeout time.Duration, retryMax int, baseDelay, maxDelay time.Duration) *Client {
	if httpTimeout <= 0 {
		httpTimeout = 30 * time.Second
	}
	if retryMax <= 0 {
		retryMax = 3
	}
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	if maxDelay <= 0 {
		maxDelay = 4 * time.Second
	}
	return &Client{
		httpClient:       &http.Client{Timeout: httpTimeout},
		retryMaxAttempts: retryMax,
		retryBaseDelay:   baseDelay,
		retryMaxDelay:    maxDelay,
	}
}

// DownloadURL rewrites a browser share link into a direct download link:
// "?web=1" becomes "?download=1", and a link without a query gets "?download=1".
func DownloadURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	switch {
	case q.Get("web") == "1":
		q.Del("web")
		q.Set("download", "1")
	case u.RawQuery == "":
		q.Set("download", "1")
	default:
		return raw
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Download fetches rawURL and returns the body together with the server's
// Last-Modified time (zero when absent). 429 and 5xx responses and transient
// network errors are retried.
func (c *Client) Download(ctx context.Context, rawURL string) ([]byte, time.Time, error) {
	endpoint := DownloadURL(rawURL)
	backoff := c.retryBaseDelay
	var lastErr error
	for attempt := 1; attempt <= c.retryMaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, time.Time{}, ctx.Err()
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("User-Agent", UserAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = &UnreachableError{Host: req.URL.Host, Err: err}
			if isRetryableNetErr(err) && attempt < c.retryMaxAttempts {
				if err := sleep(ctx, c.capped(withJitter(backoff))); err != nil {
					return nil, time.Time{}, err
				}
				backoff *= 2
				continue
			}
			return nil, time.Time{}, lastErr
		}

		body, modified, err := c.read(resp, endpoint)
		if err == nil {
			return body, modified, nil
		}
		lastErr = err
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		if !retryable || attempt == c.retryMaxAttempts {
			break
		}
		wait := c.capped(withJitter(backoff))
		var rl *RateLimitError
		if errors.As(err, &rl) && rl.RetryAfter > 0 {
			wait = c.capped(rl.RetryAfter)
		}
		if err := sleep(ctx, wait); err != nil {
			return nil, time.Time{}, err
		}
		backoff *= 2
	}
	return nil, time.Time{}, lastErr
}

func (c *Client) read(resp *http.Response, endpoint string) ([]byte, time.Time, error) {
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 8<<10))
		return nil, time.Time{}, classifyHTTPError(&HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, URL: endpoint}, resp)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("read body: %w", err)
	}
	var modified time.Time
	if v := resp.Header.Get("Last-Modified"); v != "" {
		if t, err := http.ParseTime(v); err == nil {
			modified = t
		}
	}
	return body, modified, nil
}

func (c *Client) capped(d time.Duration) time.Duration {
	if c.retryMaxDelay > 0 && d > c.retryMaxDelay {
		return c.retryMaxDelay
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return d
	}
	// +/-20%
	j := time.Duration(rand.Int63n(int64(d)/5*2+1)) - d/5
	return d + j
}

func isRetryableNetErr(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

// parseRetryAfterSeconds interprets a Retry-After header as seconds or an HTTP date.
func parseRetryAfterSeconds(v string) (int, error) {
	if s, err := strconv.Atoi(v); err == nil {
		return s, nil
	}
	if t, err := http.ParseTime(v); err == nil {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		return int(d.Seconds()), nil
	}
	return 0, fmt.Errorf("invalid Retry-After: %q", v)
}

// classifyHTTPError maps a status code to a typed error.
func classifyHTTPError(e *HTTPError, resp *http.Response) error {
	switch sc := e.StatusCode; {
	case sc == http.StatusUnauthorized || sc == http.StatusForbidden:
		return &AuthError{HTTPError: e}
	case sc == http.StatusTooManyRequests:
		var ra time.Duration
		if v := resp.Header.Get("Retry-After"); v != "" {
			if secs, err := parseRetryAfterSeconds(v); err == nil && secs > 0 {
				ra = time.Duration(secs) * time.Second
			}
		}
		return &RateLimitError{HTTPError: e, RetryAfter: ra}
	case sc >= 500 && sc <= 599:
		return &ServerError{HTTPError: e}
	}
	return e
}
