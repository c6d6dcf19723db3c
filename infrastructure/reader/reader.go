// Package reader fetches web pages as markdown through an external
// converter service.
package reader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/avast/retry-go/v4"

	"github.com/catalyzer/cabinet/domain/catalog"
	"github.com/catalyzer/cabinet/internal/config"
)

// maxBodyBytes caps a converted page at 10 MiB.
const maxBodyBytes = 10 << 20

// Page is a fetched document: the converted markdown plus the title the
// converter reported, when it reported one.
type Page struct {
	Title    string
	Markdown string
}

// Client converts URLs to markdown by proxying them through a reader
// service with a Jina-style interface: GET {endpoint}/{target-url}
// returns the page as markdown text.
type Client struct {
	endpoint   string
	maxRetries int
	httpClient *http.Client
}

// NewClient creates a reader client from configuration.
func NewClient(cfg config.ReaderConfig) *Client {
	return &Client{
		endpoint:   strings.TrimRight(cfg.Endpoint(), "/"),
		maxRetries: cfg.MaxRetries(),
		httpClient: &http.Client{Timeout: cfg.Timeout()},
	}
}

// Fetch converts the target URL to markdown. Invalid URLs and client
// errors from the converter are terminal; server errors and network
// failures are retried with backoff.
func (c *Client) Fetch(ctx context.Context, target string) (Page, error) {
	parsed, err := url.Parse(target)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return Page{}, fmt.Errorf("%w: invalid url %q", catalog.ErrFetchFailed, target)
	}

	body, err := retry.DoWithData(
		func() ([]byte, error) { return c.fetchOnce(ctx, target) },
		retry.Context(ctx),
		retry.Attempts(uint(c.maxRetries)+1),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool { return !isTerminal(err) }),
	)
	if err != nil {
		return Page{}, fmt.Errorf("%w: %s: %v", catalog.ErrFetchFailed, target, err)
	}

	title, markdown := splitConverterOutput(string(body))
	return Page{Title: title, Markdown: markdown}, nil
}

// terminalError marks a failure that retrying cannot fix.
type terminalError struct{ err error }

func (e terminalError) Error() string { return e.err.Error() }
func (e terminalError) Unwrap() error { return e.err }

func isTerminal(err error) bool {
	var te terminalError
	return errors.As(err, &te)
}

func (c *Client) fetchOnce(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/"+target, nil)
	if err != nil {
		return nil, terminalError{err}
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return nil, terminalError{fmt.Errorf("converter returned %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("converter returned %d", resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}

// splitConverterOutput pulls the page title out of the converter's
// response. Jina-style converters prefix the markdown with header lines
// ("Title: ...", "URL Source: ...", "Markdown Content:"); when those
// are absent the first H1 heading is used instead.
func splitConverterOutput(body string) (title, markdown string) {
	if rest, ok := strings.CutPrefix(body, "Title: "); ok {
		line, after, _ := strings.Cut(rest, "\n")
		title = strings.TrimSpace(line)
		if _, content, found := strings.Cut(after, "Markdown Content:\n"); found {
			return title, content
		}
		return title, strings.TrimLeft(after, "\n")
	}

	for _, line := range strings.Split(body, "\n") {
		if heading, ok := strings.CutPrefix(line, "# "); ok {
			title = strings.TrimSpace(heading)
			break
		}
	}
	return title, body
}
