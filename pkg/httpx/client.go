package httpx

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"tickerflow/pkg/exception"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultAttempts    = 3
	defaultMaxBodySize = 50 << 20
	jpRegionPrefix     = "ap-northeast-1/"
)

// Recorder receives the raw exchange traffic of a call.
type Recorder interface {
	MarkRequest(url, body string)
	MarkResponse(url, body string, now time.Time)
}

// Header mutates the headers of a single request.
type Header func(h http.Header)

// WithHeader sets one header value.
func WithHeader(key, value string) Header {
	return func(h http.Header) {
		h.Set(key, value)
	}
}

// Config controls the HTTP client behavior.
type Config struct {
	Timeout     time.Duration
	Attempts    int
	Backoff     Backoff
	ProxyURL    string
	Region      string
	MaxBodySize int64
	Transport   http.RoundTripper
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.Attempts <= 0 {
		c.Attempts = defaultAttempts
	}
	if c.Backoff.Min <= 0 {
		c.Backoff = DefaultBackoff()
	}
	if c.MaxBodySize <= 0 {
		c.MaxBodySize = defaultMaxBodySize
	}
	return c
}

// Client issues exchange REST calls with retry on transient failures.
type Client struct {
	cfg  Config
	http *http.Client
}

// New creates a client.
func New(cfg Config) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		},
	}
}

// Get sends a GET request and returns the response body.
func (c *Client) Get(ctx context.Context, url string, rec Recorder, headers ...Header) ([]byte, error) {
	return c.do(ctx, http.MethodGet, url, nil, rec, headers)
}

// Post sends body as JSON and returns the response body.
func (c *Client) Post(ctx context.Context, url string, body any, rec Recorder, headers ...Header) ([]byte, error) {
	payload, err := sonic.ConfigFastest.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "marshal request body")
	}
	if rec != nil {
		rec.MarkRequest(url, string(payload))
	}
	headers = append([]Header{WithHeader("Content-Type", "application/json")}, headers...)
	return c.do(ctx, http.MethodPost, url, payload, rec, headers)
}

// ProxyURL rewrites url to go through the configured proxy. It returns an
// empty string when either url or the proxy is blank.
func (c *Client) ProxyURL(url string) string {
	return BuildProxyURL(c.cfg.ProxyURL, url, c.cfg.Region)
}

// BuildProxyURL strips the scheme of url and prefixes it with proxy. The JP
// region is routed through the ap-northeast-1 path.
func BuildProxyURL(proxy, url, region string) string {
	if strings.TrimSpace(url) == "" || strings.TrimSpace(proxy) == "" {
		return ""
	}
	prefix := ""
	if strings.EqualFold(region, "JP") {
		prefix = jpRegionPrefix
	}
	url = strings.TrimPrefix(url, "https://")
	url = strings.TrimPrefix(url, "http://")
	return proxy + prefix + url
}

func (c *Client) do(ctx context.Context, method, url string, payload []byte, rec Recorder, headers []Header) ([]byte, error) {
	if url == "" {
		return nil, exception.ErrHTTPEmptyURL
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.Attempts; attempt++ {
		if attempt > 1 {
			wait := c.cfg.Backoff.Next(attempt - 1)
			logs.Warnf("retry %s %s in %s, attempt: %d, err: %+v", method, url, wait, attempt, lastErr)
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, errors.Wrap(ctx.Err(), "wait retry")
			case <-timer.C:
			}
		}

		body, retry, err := c.once(ctx, method, url, payload, headers)
		if err == nil {
			if rec != nil {
				rec.MarkResponse(url, string(body), time.Now())
			}
			return body, nil
		}
		lastErr = err
		if !retry || ctx.Err() != nil {
			break
		}
	}
	return nil, errors.Wrapf(lastErr, "%s %s", method, url)
}

func (c *Client) once(ctx context.Context, method, url string, payload []byte, headers []Header) ([]byte, bool, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, false, errors.Wrap(err, "new request")
	}
	req.Header.Set("Accept", "application/json")
	for _, h := range headers {
		if h != nil {
			h(req.Header)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, true, errors.Wrap(err, "send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBodySize))
	if err != nil {
		return nil, true, errors.Wrap(err, "read response body")
	}

	if resp.StatusCode >= http.StatusBadRequest {
		retry := resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests
		return nil, retry, errors.Wrapf(exception.ErrHTTPStatus, "status: %d, body: %s", resp.StatusCode, truncate(body, 256))
	}
	return body, false, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
