package webclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Clav3rbot/BlackBoardSync/internal/cookiejar"
)

// ErrExcessiveRedirects is returned when a redirect chain exceeds the hop
// budget. This guards against SSO misconfiguration loops.
var ErrExcessiveRedirects = errors.New("webclient: too many redirects")

// Options configures the client.
type Options struct {
	// Timeout for individual requests.
	// Default: 30s
	Timeout time.Duration

	// UserAgent sent with every request.
	UserAgent string

	// MaxHops is the redirect hop budget per Send call.
	// Default: 25
	MaxHops int
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		Timeout:   30 * time.Second,
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) BlackBoardSync/1.0",
		MaxHops:   25,
	}
}

// Response is the terminal response of a Send call.
type Response struct {
	StatusCode int
	Header     http.Header

	// Body is the fully read response body.
	Body []byte

	// FinalURL is the URL that produced this response, after redirects.
	// Callers need it to resolve relative form actions.
	FinalURL *url.URL
}

// Client issues requests through a cookie jar, following redirects by hand.
type Client struct {
	hc   *http.Client
	jar  *cookiejar.Jar
	opts Options
}

// New creates a client with a fresh jar.
func New(opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxHops == 0 {
		opts.MaxHops = 25
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultOptions().UserAgent
	}

	return &Client{
		hc: &http.Client{
			Timeout: opts.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		jar:  cookiejar.New(),
		opts: opts,
	}
}

// Jar returns the client's cookie jar.
func (c *Client) Jar() *cookiejar.Jar {
	return c.jar
}

func isRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

// Send issues one request and, when follow is set, walks the redirect chain
// up to the hop budget. On a 303, or on any redirect of a POST, the method
// downgrades to GET and the body is dropped. The jar is updated from every
// response along the way.
func (c *Client) Send(ctx context.Context, method, rawurl, body, contentType string, follow bool) (*Response, error) {
	current, err := url.Parse(rawurl)
	if err != nil {
		return nil, fmt.Errorf("webclient: parse url: %w", err)
	}
	curMethod := method
	curBody := body

	for hops := c.opts.MaxHops; hops >= 0; hops-- {
		var reader io.Reader
		if curBody != "" && curMethod == http.MethodPost {
			reader = strings.NewReader(curBody)
		}

		req, err := http.NewRequestWithContext(ctx, curMethod, current.String(), reader)
		if err != nil {
			return nil, fmt.Errorf("webclient: create request: %w", err)
		}
		req.Header.Set("User-Agent", c.opts.UserAgent)
		if reader != nil && contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		if cookies := c.jar.HeaderFor(current); cookies != "" {
			req.Header.Set("Cookie", cookies)
		}

		resp, err := c.hc.Do(req)
		if err != nil {
			return nil, fmt.Errorf("webclient: %s %s: %w", curMethod, current, err)
		}

		c.jar.Absorb(current, resp.Header)

		if follow && isRedirect(resp.StatusCode) {
			location := resp.Header.Get("Location")
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			if location == "" {
				return &Response{StatusCode: resp.StatusCode, Header: resp.Header, FinalURL: current}, nil
			}

			next, err := current.Parse(location)
			if err != nil {
				return nil, fmt.Errorf("webclient: resolve redirect %q: %w", location, err)
			}
			if resp.StatusCode == http.StatusSeeOther || curMethod == http.MethodPost {
				curMethod = http.MethodGet
				curBody = ""
			}
			current = next
			continue
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("webclient: read body: %w", err)
		}

		return &Response{
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Body:       data,
			FinalURL:   current,
		}, nil
	}

	return nil, ErrExcessiveRedirects
}
