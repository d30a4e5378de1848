package butler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"syscall"
	"time"

	"ripple/internal/logging"
)

// Fetcher is the fetch contract shared by the plain client and the cached
// decorator. Pipeline stages depend on this, not on a concrete client.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (*Result, error)
}

// Client talks to the remote Butler service.
type Client struct {
	access     *AccessConfig
	httpClient *http.Client
	policy     Policy
	sleeper    func(time.Duration)
	logger     *slog.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithPolicy overrides the retry policy.
func WithPolicy(policy Policy) Option {
	return func(c *Client) {
		c.policy = policy
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// WithLogger attaches a logger; fetch attempts log at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logging.NewComponentLogger(logger, "butler")
		}
	}
}

// NewClient constructs a client over a resolved access configuration.
func NewClient(access *AccessConfig, opts ...Option) (*Client, error) {
	if access == nil {
		return nil, errors.New("butler client: access config is required")
	}
	client := &Client{
		access:     access,
		httpClient: &http.Client{Timeout: access.Timeout},
		policy:     DefaultPolicy(),
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Fetch retrieves one dataset. Transient failures are retried up to the
// policy bound; auth failures and missing datasets return immediately as
// *AuthError and *NotFoundError.
func (c *Client) Fetch(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	endpoint, err := c.fetchURL(req)
	if err != nil {
		return nil, err
	}

	body, err := c.withRetry(ctx, req.String(), func(ctx context.Context) ([]byte, error) {
		return c.getOnce(ctx, endpoint, req)
	})
	if err != nil {
		return nil, err
	}

	result, err := decodeResult(req, body)
	if err != nil {
		return nil, fmt.Errorf("butler fetch %s: %w", req, err)
	}
	return result, nil
}

// ConeSearch describes a positional catalog query.
type ConeSearch struct {
	RA        float64
	Dec       float64
	RadiusDeg float64
	MaxRows   int
}

// QueryCatalog runs an ADQL cone search against the service's TAP endpoint
// and returns the matching object rows. The same retry policy as Fetch
// applies.
func (c *Client) QueryCatalog(ctx context.Context, search ConeSearch) ([]CatalogRow, error) {
	if search.RadiusDeg <= 0 {
		return nil, errors.New("butler query: radius must be positive")
	}

	query := buildConeSearchADQL(search)
	body, err := c.withRetry(ctx, "cone search", func(ctx context.Context) ([]byte, error) {
		return c.tapOnce(ctx, query)
	})
	if err != nil {
		return nil, err
	}

	var payload catalogPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("butler query: decode rows: %w", err)
	}
	return payload.Rows, nil
}

// TestConnection probes service reachability with a single unretried
// round-trip. It reports (false, reason) on any failure and never returns
// an error; connectivity problems are a preflight finding, not a fault.
func (c *Client) TestConnection(ctx context.Context) (bool, string) {
	endpoint := c.access.ServerURL + "/v1/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Sprintf("build request: %v", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Sprintf("service unreachable: %v", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode < http.StatusMultipleChoices:
		return true, ""
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return false, fmt.Sprintf("credentials rejected (http %d)", resp.StatusCode)
	default:
		return false, fmt.Sprintf("unexpected status http %d", resp.StatusCode)
	}
}

func (c *Client) fetchURL(req Request) (string, error) {
	values := url.Values{}
	values.Set("instrument", c.access.Instrument)
	if len(c.access.Collections) > 0 {
		values.Set("collections", strings.Join(c.access.Collections, ","))
	}

	var path string
	switch req.Kind {
	case KindDeepCoadd:
		path = "/v1/cutouts/deep_coadd"
		values.Set("tract", strconv.Itoa(req.Tract))
		values.Set("patch", strconv.Itoa(req.Patch))
		values.Set("band", req.Band)
	case KindObjectCatalog:
		path = "/v1/catalogs/objects"
		values.Set("tract", strconv.Itoa(req.Tract))
		values.Set("patch", strconv.Itoa(req.Patch))
		values.Set("band", req.Band)
	case KindCalExp:
		path = "/v1/cutouts/calexp"
		values.Set("visit", strconv.FormatInt(req.Visit, 10))
		values.Set("detector", strconv.Itoa(req.Detector))
	default:
		return "", fmt.Errorf("butler fetch: unknown dataset kind %q", req.Kind)
	}
	return c.access.ServerURL + path + "?" + values.Encode(), nil
}

func (c *Client) getOnce(ctx context.Context, endpoint string, req Request) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("butler request: new request: %w", err)
	}
	c.authorize(httpReq)
	httpReq.Header.Set("Accept", "application/json")
	return c.do(httpReq, req.String())
}

func (c *Client) tapOnce(ctx context.Context, query string) ([]byte, error) {
	form := url.Values{}
	form.Set("REQUEST", "doQuery")
	form.Set("LANG", "ADQL")
	form.Set("FORMAT", "json")
	form.Set("QUERY", query)

	endpoint := c.access.ServerURL + "/v1/tap/sync"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("butler request: new request: %w", err)
	}
	c.authorize(httpReq)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")
	return c.do(httpReq, "cone search")
}

func (c *Client) do(httpReq *http.Request, ident string) ([]byte, error) {
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("butler request: http error (timeout=%s): %w", c.httpClient.Timeout, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("butler request: read body: %w", err)
	}

	switch {
	case resp.StatusCode < http.StatusMultipleChoices:
		return body, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &AuthError{StatusCode: resp.StatusCode, Request: ident}
	case resp.StatusCode == http.StatusNotFound:
		return nil, &NotFoundError{Request: ident}
	default:
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, &statusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfter,
		}
	}
}

// withRetry runs call up to the policy's attempt bound, sleeping between
// attempts for transient failures only.
func (c *Client) withRetry(ctx context.Context, ident string, call func(context.Context) ([]byte, error)) ([]byte, error) {
	attempts := c.policy.Attempts()
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		body, err := call(ctx)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if !c.shouldRetry(ctx, err) {
			return nil, err
		}
		if attempt == attempts {
			break
		}

		delay := c.retryDelay(err, attempt)
		c.logger.Debug("retrying fetch",
			logging.String("request", ident),
			logging.Int(logging.FieldAttempt, attempt),
			logging.Duration("delay", delay),
			logging.Error(err))
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, &TransientError{Request: ident, Attempts: attempts, Err: lastErr}
}

// shouldRetry classifies an attempt error. Only conditions that can clear
// on their own are worth retrying.
func (c *Client) shouldRetry(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var status *statusError
	if errors.As(err, &status) {
		switch {
		case status.StatusCode == http.StatusRequestTimeout,
			status.StatusCode == http.StatusTooManyRequests,
			status.StatusCode >= http.StatusInternalServerError:
			return true
		default:
			return false
		}
	}

	var authErr *AuthError
	if errors.As(err, &authErr) {
		return false
	}
	var notFound *NotFoundError
	if errors.As(err, &notFound) {
		return false
	}

	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}
	return false
}

func (c *Client) retryDelay(err error, attempt int) time.Duration {
	var status *statusError
	if errors.As(err, &status) && status.RetryAfter > 0 {
		return c.policy.Cap(status.RetryAfter)
	}
	return c.policy.Delay(attempt)
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.access.Token)
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}

// buildConeSearchADQL renders the positional query against the DP0.2 object
// catalog schema.
func buildConeSearchADQL(search ConeSearch) string {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	if search.MaxRows > 0 {
		fmt.Fprintf(&sb, "TOP %d ", search.MaxRows)
	}
	sb.WriteString("objectId, coord_ra, coord_dec FROM dp02_dc2_catalogs.Object WHERE CONTAINS(")
	sb.WriteString("POINT('ICRS', coord_ra, coord_dec), ")
	fmt.Fprintf(&sb, "CIRCLE('ICRS', %g, %g, %g)) = 1", search.RA, search.Dec, search.RadiusDeg)
	return sb.String()
}
