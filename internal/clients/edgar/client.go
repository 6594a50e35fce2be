// Package edgar provides the HTTP transport for the SEC EDGAR archive.
package edgar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// ErrNotFound is returned when EDGAR answers 403 or 404, which is how it reports
// indexes and documents that are not (yet) published.
var ErrNotFound = errors.New("edgar: resource not found")

// SEC fair-access policy allows at most 10 requests per second per client.
const requestsPerSecond = 10

// Client for www.sec.gov
type Client struct {
	baseURL   string
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
	log       zerolog.Logger
}

// NewClient creates a new EDGAR client.
// userAgent must identify the caller; EDGAR rejects anonymous requests.
func NewClient(baseURL, userAgent string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
		log:       log.With().Str("client", "edgar").Logger(),
	}
}

// BaseURL returns the archive root without a trailing slash
func (c *Client) BaseURL() string {
	return c.baseURL
}

// URL resolves a site-relative path ("/Archives/...") or returns an absolute URL unchanged.
func (c *Client) URL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

// Get fetches a resource and returns its body.
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	resp, err := c.do(ctx, path)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", resp.Request.URL, err)
	}
	return body, nil
}

// Download streams a resource into w and returns the number of bytes written.
func (c *Client) Download(ctx context.Context, path string, w io.Writer) (int64, error) {
	resp, err := c.do(ctx, path)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("failed to download %s: %w", resp.Request.URL, err)
	}
	return n, nil
}

func (c *Client) do(ctx context.Context, path string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := c.URL(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Encoding", "identity")

	c.log.Debug().Str("url", url).Msg("GET")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", url, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusForbidden:
		resp.Body.Close()
		return nil, fmt.Errorf("%s: status %d: %w", url, resp.StatusCode, ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		resp.Body.Close()
		return nil, fmt.Errorf("%s: unexpected status %d", url, resp.StatusCode)
	}

	return resp, nil
}
