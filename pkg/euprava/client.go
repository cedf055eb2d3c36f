// Package euprava talks to the e-uprava public bulletin board: the RSS
// listing feed, per-offer detail pages, and the attached PDF documents.
package euprava

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/agrozem/landsync/internal/config"
	"github.com/agrozem/landsync/internal/resilience"
)

// ErrNotFound is returned when the board no longer serves a requested
// offer or document. Expired offers drop off the board; this is a normal
// terminal outcome, not a transient fault.
var ErrNotFound = eris.New("euprava: not found")

// Client fetches listings, detail pages and documents from the board.
type Client struct {
	httpClient *http.Client
	rssURL     string
	baseURL    string
	userAgent  string
	retry      resilience.RetryConfig
}

// New builds a Client from feed configuration.
func New(cfg config.FeedConfig) *Client {
	timeout := 30 * time.Second
	if cfg.TimeoutSecs > 0 {
		timeout = time.Duration(cfg.TimeoutSecs) * time.Second
	}
	retry := resilience.DefaultRetryConfig()
	if cfg.MaxRetries > 0 {
		retry.MaxAttempts = cfg.MaxRetries
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		rssURL:     cfg.RSSURL,
		baseURL:    cfg.BaseURL,
		userAgent:  cfg.UserAgent,
		retry:      retry,
	}
}

// get performs one GET and classifies the outcome: 404 is ErrNotFound,
// retryable statuses become TransientError so callers on the bulk path
// can retry, everything else is terminal.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "euprava: build request %s", url)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrapf(err, "euprava: get %s", url), 0)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, eris.Wrapf(ErrNotFound, "euprava: %s", url)
	}
	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("euprava: get %s: status %d", url, resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrapf(err, "euprava: read body %s", url), 0)
	}
	return body, nil
}
