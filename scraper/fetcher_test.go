package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/EV9H/renter-x-backend/config"
	"github.com/EV9H/renter-x-backend/httputil"
)

func TestNewFetcher_ClientSelection(t *testing.T) {
	clients := httputil.NewClients(&config.ProxyConfig{URL: "http://proxy.local:8080"})

	apiCfg := &config.SourceConfig{ParserType: config.ParserAPI}
	f, ok := NewFetcher(apiCfg, clients).(*HTTPFetcher)
	if !ok {
		t.Fatalf("expected HTTPFetcher for api source")
	}
	if f.client != clients.API {
		t.Fatalf("api source must use the direct client")
	}
	if f.accept != "application/json" {
		t.Fatalf("unexpected accept %q", f.accept)
	}

	htmlCfg := &config.SourceConfig{ParserType: config.ParserHTML}
	f, ok = NewFetcher(htmlCfg, clients).(*HTTPFetcher)
	if !ok {
		t.Fatalf("expected HTTPFetcher for html source")
	}
	if f.client != clients.Scraping {
		t.Fatalf("html source must use the scraping client")
	}

	jsCfg := &config.SourceConfig{ParserType: config.ParserJS}
	if _, ok := NewFetcher(jsCfg, clients).(*BrowserFetcher); !ok {
		t.Fatalf("expected BrowserFetcher for js source")
	}
}

func TestHTTPFetcher_Fetch(t *testing.T) {
	var gotHeaders http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		w.Write([]byte("<html>units</html>"))
	}))
	defer server.Close()

	cfg := &config.SourceConfig{Headers: map[string]string{"X-Api-Key": "secret"}}
	f := NewHTTPFetcher(cfg, server.Client(), "text/html,application/xhtml+xml")

	body, err := f.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if body != "<html>units</html>" {
		t.Fatalf("unexpected body %q", body)
	}
	if gotHeaders.Get("User-Agent") != httputil.UserAgent {
		t.Fatalf("unexpected user agent %q", gotHeaders.Get("User-Agent"))
	}
	if gotHeaders.Get("X-Api-Key") != "secret" {
		t.Fatalf("configured header not sent")
	}
}

func TestHTTPFetcher_Fetch_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	cfg := &config.SourceConfig{}
	f := NewHTTPFetcher(cfg, server.Client(), "text/html")

	_, err := f.Fetch(context.Background(), server.URL)
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
}
