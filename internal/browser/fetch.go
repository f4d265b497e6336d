// Package browser renders pages that refuse to serve their content to a
// bare HTTP client. The PC search site assembles its result cards in
// JavaScript, so the markup parser needs a rendered DOM.
package browser

import (
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"weibo-insight-go/internal/config"
	"weibo-insight-go/internal/logger"
)

type Fetcher struct {
	mu      sync.Mutex
	pw      *playwright.Playwright
	browser playwright.Browser
}

// Enabled reports whether the rendered fetch is switched on in config.
func Enabled() bool {
	return config.AppConfig.EnableBrowserFetch
}

func NewFetcher() (*Fetcher, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}
	opts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(config.AppConfig.BrowserHeadless),
	}
	if p := config.AppConfig.CustomBrowserPath; p != "" {
		opts.ExecutablePath = playwright.String(p)
	}
	b, err := pw.Chromium.Launch(opts)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	return &Fetcher{pw: pw, browser: b}, nil
}

// FetchRendered navigates to url and returns the DOM after the page has
// settled. One page per call; the browser itself is reused.
func (f *Fetcher) FetchRendered(url string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ctxOpts := playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(config.AppConfig.UserAgent),
	}
	bctx, err := f.browser.NewContext(ctxOpts)
	if err != nil {
		return "", fmt.Errorf("new browser context: %w", err)
	}
	defer func() {
		if cerr := bctx.Close(); cerr != nil {
			logger.Warn("close browser context", "err", cerr)
		}
	}()

	page, err := bctx.NewPage()
	if err != nil {
		return "", fmt.Errorf("new page: %w", err)
	}

	timeout := config.AppConfig.BrowserNavTimeoutSec
	if timeout <= 0 {
		timeout = 60
	}
	_, err = page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(float64(time.Duration(timeout) * time.Second / time.Millisecond)),
	})
	if err != nil {
		return "", fmt.Errorf("goto %s: %w", url, err)
	}
	return page.Content()
}

func (f *Fetcher) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.browser != nil {
		_ = f.browser.Close()
		f.browser = nil
	}
	if f.pw != nil {
		_ = f.pw.Stop()
		f.pw = nil
	}
}
