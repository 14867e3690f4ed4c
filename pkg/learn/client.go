package learn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const apiBase = "/learn/api/public/v1"

// ErrUnauthorized is returned when the session cookies are missing or no
// longer valid.
var ErrUnauthorized = errors.New("learn: session expired or unauthorized")

// downloadRedirectLimit bounds redirect chains on attachment downloads,
// which may bounce through a CDN.
const downloadRedirectLimit = 5

// Options configures the client.
type Options struct {
	// Timeout for individual requests.
	// Default: 30s
	Timeout time.Duration

	// UserAgent sent with every request.
	UserAgent string

	// InstructorLookupLimit bounds how many courses are enriched with
	// instructor names concurrently.
	// Default: 5
	InstructorLookupLimit int

	// Logger receives debug output for swallowed enrichment failures.
	// Default: zap.NewNop()
	Logger *zap.Logger
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		Timeout:               30 * time.Second,
		UserAgent:             "Mozilla/5.0 (Windows NT 10.0; Win64; x64) BlackBoardSync/1.0",
		InstructorLookupLimit: 5,
	}
}

// Client accesses the Learn REST API over an authenticated cookie set.
type Client struct {
	base   *url.URL
	cookie string
	hc     *http.Client
	opts   Options
	log    *zap.Logger
}

// NewClient creates a client for the Learn instance at baseURL using the
// session cookies ("name=value" strings) from a completed negotiation.
func NewClient(baseURL string, cookies []string, opts Options) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("learn: parse base URL: %w", err)
	}
	if base.Hostname() == "" {
		return nil, fmt.Errorf("learn: base URL %q has no host", baseURL)
	}

	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultOptions().UserAgent
	}
	if opts.InstructorLookupLimit <= 0 {
		opts.InstructorLookupLimit = 5
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		base:   base,
		cookie: strings.Join(cookies, "; "),
		hc: &http.Client{
			Timeout: opts.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= downloadRedirectLimit {
					return fmt.Errorf("learn: stopped after %d redirects", downloadRedirectLimit)
				}
				return nil
			},
		},
		opts: opts,
		log:  log,
	}, nil
}

// UpdateCookies replaces the session cookie set after a re-login.
func (c *Client) UpdateCookies(cookies []string) {
	c.cookie = strings.Join(cookies, "; ")
}

// resolve turns an API path or a pagination cursor into an absolute URL.
// Cursors from the response envelope are server-relative and already carry
// the API prefix.
func (c *Client) resolve(path string) (string, error) {
	u, err := c.base.Parse(path)
	if err != nil {
		return "", fmt.Errorf("learn: resolve %q: %w", path, err)
	}
	return u.String(), nil
}

func (c *Client) newRequest(ctx context.Context, path string) (*http.Request, error) {
	full, err := c.resolve(path)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, full, nil)
	if err != nil {
		return nil, fmt.Errorf("learn: create request: %w", err)
	}
	req.Header.Set("Cookie", c.cookie)
	req.Header.Set("User-Agent", c.opts.UserAgent)
	return req, nil
}

// getJSON fetches path and decodes the response into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := c.newRequest(ctx, path)
	if err != nil {
		return err
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("learn: GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("learn: GET %s: unexpected status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("learn: decode %s: %w", path, err)
	}
	return nil
}

// getRaw fetches path and returns the body bytes plus the response header.
func (c *Client) getRaw(ctx context.Context, path string) ([]byte, http.Header, error) {
	req, err := c.newRequest(ctx, path)
	if err != nil {
		return nil, nil, err
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("learn: GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, nil, ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("learn: GET %s: unexpected status %d", path, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("learn: read %s: %w", path, err)
	}
	return data, resp.Header, nil
}
