// Package fetch implements the single validated, rate-limited, retrying
// HTTP GET primitive used for wiki enrichment.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/phauks/botc-data-sync/internal/catalog"
	"github.com/phauks/botc-data-sync/internal/telemetry"
)

// Config controls client behavior.
type Config struct {
	// AllowedHosts is the exact-match host allowlist.
	AllowedHosts []string
	// AllowedSchemes defaults to https only.
	AllowedSchemes []string
	UserAgent      string
	Timeout        time.Duration
	// MaxBodyBytes aborts (not truncates) transfers past this size.
	MaxBodyBytes int64
	// MinInterval is the minimum spacing between requests, shared across
	// all callers of this client.
	MinInterval time.Duration
}

// Client implements catalog.Fetcher over a Colly collector.
type Client struct {
	cfg           Config
	policy        RetryPolicy
	limiter       *rate.Limiter
	baseCollector *colly.Collector
	logger        *zap.Logger

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New builds a Client.
func New(cfg Config, policy RetryPolicy, logger *zap.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = 10 << 20
	}
	if len(cfg.AllowedSchemes) == 0 {
		cfg.AllowedSchemes = []string{"https"}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}

	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	// Retry attempts and staleness refetches hit the same URL again; the
	// collector's visited-URL dedup would turn the second attempt into an
	// AlreadyVisitedError.
	c.AllowURLRevisit = true
	c.SetRequestTimeout(cfg.Timeout)
	c.WithTransport(&limitTransport{
		base:  newHTTPTransport(),
		limit: cfg.MaxBodyBytes,
	})

	return &Client{
		cfg:           cfg,
		policy:        policy,
		limiter:       rate.NewLimiter(limit, 1),
		baseCollector: c,
		logger:        logger,
		sleep:         sleepCtx,
	}
}

// Fetch validates the URL, then GETs it with retry and backoff. Allowlist
// violations fail with a SecurityError before any network access. Oversized
// responses fail with a ResourceLimitError, no retry. Transient failures are
// retried per the policy and surface as a TransientNetworkError.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := c.validate(rawURL); err != nil {
		telemetry.ObserveFetch("security_rejected")
		return nil, err
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}

		body, err := c.do(ctx, rawURL)
		if err == nil {
			telemetry.ObserveFetch("ok")
			return body, nil
		}
		lastErr = err

		var limitErr *catalog.ResourceLimitError
		if errors.As(err, &limitErr) {
			telemetry.ObserveFetch("resource_limit")
			return nil, limitErr
		}
		if permanent(err) {
			telemetry.ObserveFetch("permanent")
			return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
		}

		delay, retry := c.policy.Next(attempt, err)
		if !retry {
			telemetry.ObserveFetch("exhausted")
			return nil, &catalog.TransientNetworkError{URL: rawURL, Attempts: attempt + 1, Err: lastErr}
		}
		telemetry.ObserveRetry()
		c.logger.Debug("retrying fetch",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
		if err := c.sleep(ctx, delay); err != nil {
			return nil, &catalog.TransientNetworkError{URL: rawURL, Attempts: attempt + 1, Err: lastErr}
		}
	}
}

// validate enforces scheme and host restrictions before any network I/O.
func (c *Client) validate(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return &catalog.SecurityError{URL: rawURL, Reason: "unparseable url"}
	}
	schemeOK := false
	for _, s := range c.cfg.AllowedSchemes {
		if u.Scheme == s {
			schemeOK = true
			break
		}
	}
	if !schemeOK {
		return &catalog.SecurityError{URL: rawURL, Reason: fmt.Sprintf("scheme %q not allowed", u.Scheme)}
	}
	host := strings.ToLower(u.Hostname())
	for _, allowed := range c.cfg.AllowedHosts {
		if host == strings.ToLower(allowed) {
			return nil
		}
	}
	return &catalog.SecurityError{URL: rawURL, Reason: fmt.Sprintf("host %q not in allowlist", host)}
}

// do executes a single HTTP GET attempt via a collector clone.
func (c *Client) do(ctx context.Context, rawURL string) ([]byte, error) {
	collector := c.baseCollector.Clone()
	if c.cfg.UserAgent != "" {
		collector.UserAgent = c.cfg.UserAgent
	}

	var (
		body     []byte
		status   int
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(rawURL)
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		if fetchErr != nil {
			return nil, classify(status, fetchErr)
		}
		if err != nil {
			return nil, classify(status, err)
		}
		if status >= 300 {
			return nil, &statusError{code: status}
		}
		return body, nil
	}
}

// classify preserves typed limit errors and turns HTTP statuses into
// statusError so the retry policy can tell 5xx from 4xx.
func classify(status int, err error) error {
	var limitErr *catalog.ResourceLimitError
	if errors.As(err, &limitErr) {
		return limitErr
	}
	if status >= 300 {
		return &statusError{code: status}
	}
	return err
}

// permanent reports failures that must not be retried: client errors other
// than 429. Transient and limit errors are handled before this.
func permanent(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 300 && se.code < 500 && se.code != 429
	}
	return !Retryable(err)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// limitTransport aborts transfers whose body exceeds the configured cap.
// Wrapping the transport (rather than truncating in the collector) means an
// oversized document can never be mistaken for a complete one.
type limitTransport struct {
	base  http.RoundTripper
	limit int64
}

func (t *limitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.ContentLength > t.limit {
		resp.Body.Close()
		return nil, &catalog.ResourceLimitError{URL: req.URL.String(), Limit: t.limit}
	}
	resp.Body = &limitedBody{
		rc:        resp.Body,
		remaining: t.limit,
		url:       req.URL.String(),
		limit:     t.limit,
	}
	return resp, nil
}

type limitedBody struct {
	rc        io.ReadCloser
	remaining int64
	url       string
	limit     int64
}

func (b *limitedBody) Read(p []byte) (int, error) {
	n, err := b.rc.Read(p)
	b.remaining -= int64(n)
	if b.remaining < 0 {
		return n, &catalog.ResourceLimitError{URL: b.url, Limit: b.limit}
	}
	return n, err
}

func (b *limitedBody) Close() error { return b.rc.Close() }

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
