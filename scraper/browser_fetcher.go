package scraper

import (
	"context"
	"fmt"
	"log"

	"github.com/playwright-community/playwright-go"

	"github.com/EV9H/renter-x-backend/config"
)

const (
	navigationTimeoutMs = 60000
	selectorTimeoutMs   = 20000
	scrollPasses        = 10
	scrollStepPx        = 500
)

// BrowserFetcher renders JavaScript-heavy listing pages with a headless
// browser. Every Fetch launches its own browser and context, so
// concurrent fetches share no mutable browser state.
type BrowserFetcher struct {
	cfg *config.SourceConfig
}

func NewBrowserFetcher(cfg *config.SourceConfig) *BrowserFetcher {
	return &BrowserFetcher{cfg: cfg}
}

func (f *BrowserFetcher) Fetch(ctx context.Context, url string) (string, error) {
	pw, err := playwright.Run()
	if err != nil {
		return "", &FetchError{URL: url, Reason: "start playwright", Err: err}
	}
	defer pw.Stop()

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
		},
	})
	if err != nil {
		return "", &FetchError{URL: url, Reason: "launch browser", Err: err}
	}
	defer browser.Close()

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(browserUserAgent),
		Viewport:  &playwright.Size{Width: 1920, Height: 1080},
	})
	if err != nil {
		return "", &FetchError{URL: url, Reason: "create context", Err: err}
	}
	defer bctx.Close()

	if len(f.cfg.Headers) > 0 {
		if err := bctx.SetExtraHTTPHeaders(f.cfg.Headers); err != nil {
			log.Printf("[%s] Warning: could not set extra headers: %v", f.cfg.Name, err)
		}
	}

	page, err := bctx.NewPage()
	if err != nil {
		return "", &FetchError{URL: url, Reason: "create page", Err: err}
	}

	log.Printf("[%s] Navigating to %s", f.cfg.Name, url)
	_, err = page.Goto(url, playwright.PageGotoOptions{
		Timeout:   playwright.Float(navigationTimeoutMs),
		WaitUntil: playwright.WaitUntilStateNetworkidle,
	})
	if err != nil {
		return "", &FetchError{URL: url, Reason: "navigation", Err: err}
	}

	// Scroll in bounded steps to trigger lazy-loaded unit cards
	for i := 0; i < scrollPasses; i++ {
		if ctx.Err() != nil {
			return "", &FetchError{URL: url, Reason: "cancelled", Err: ctx.Err()}
		}
		if _, err := page.Evaluate(fmt.Sprintf("window.scrollBy(0, %d)", scrollStepPx)); err != nil {
			break
		}
		page.WaitForTimeout(1000)
	}

	unitList := f.cfg.Selectors.UnitList
	if _, err := page.WaitForSelector(unitList, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(selectorTimeoutMs),
	}); err != nil {
		return "", &FetchError{URL: url, Reason: "no units found on the page", Err: err}
	}

	elements, err := page.QuerySelectorAll(unitList)
	if err != nil || len(elements) == 0 {
		return "", &FetchError{URL: url, Reason: "no units found on the page", Err: err}
	}
	log.Printf("[%s] Found %d unit containers", f.cfg.Name, len(elements))

	content, err := page.Content()
	if err != nil {
		return "", &FetchError{URL: url, Reason: "read content", Err: err}
	}

	return content, nil
}

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36"
