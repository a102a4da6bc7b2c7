package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/EV9H/renter-x-backend/config"
	"github.com/EV9H/renter-x-backend/httputil"
)

// Fetcher retrieves the final document body for a source URL. Retry
// policy belongs to callers; a Fetcher reports each attempt's outcome
// and nothing more.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// NewFetcher picks the fetch strategy for a source's parser type.
func NewFetcher(cfg *config.SourceConfig, clients *httputil.Clients) Fetcher {
	switch cfg.ParserType {
	case config.ParserJS:
		return NewBrowserFetcher(cfg)
	case config.ParserAPI:
		// Availability APIs are JSON endpoints that reject proxy exits;
		// they go through the direct client with the longer timeout.
		return NewHTTPFetcher(cfg, clients.API, "application/json")
	default:
		return NewHTTPFetcher(cfg, clients.Scraping, "text/html,application/xhtml+xml")
	}
}

// HTTPFetcher fetches static pages and JSON endpoints over plain HTTP
type HTTPFetcher struct {
	cfg    *config.SourceConfig
	client *http.Client
	accept string
}

func NewHTTPFetcher(cfg *config.SourceConfig, client *http.Client, accept string) *HTTPFetcher {
	return &HTTPFetcher{
		cfg:    cfg,
		client: client,
		accept: accept,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &FetchError{URL: url, Reason: "create request", Err: err}
	}

	req.Header.Set("User-Agent", httputil.UserAgent)
	req.Header.Set("Accept", f.accept)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for k, v := range f.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &FetchError{URL: url, Reason: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &FetchError{URL: url, Reason: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &FetchError{URL: url, Reason: "read body", Err: err}
	}

	return string(body), nil
}
