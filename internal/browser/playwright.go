package browser

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Renderer returns the HTML of a page after client-side rendering
type Renderer interface {
	Render(ctx context.Context, req Request) (string, error)
}

// Request describes one page render
type Request struct {
	URL string
	// WaitFor is a selector expected once the page has rendered. When it never
	// appears the current content is returned anyway.
	WaitFor string
	Timeout time.Duration
}

// Config holds browser launch options
type Config struct {
	UserAgent string
	Headless  bool
	// Install downloads chromium on first use
	Install bool
}

// PlaywrightRenderer renders pages in headless chromium. The browser starts
// on first use and is shared by all renders until Close.
type PlaywrightRenderer struct {
	config Config

	mu      sync.Mutex
	pw      *playwright.Playwright
	browser playwright.Browser
}

// NewPlaywrightRenderer creates a renderer without starting the browser
func NewPlaywrightRenderer(config Config) *PlaywrightRenderer {
	return &PlaywrightRenderer{config: config}
}

func (r *PlaywrightRenderer) start() (playwright.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser != nil {
		return r.browser, nil
	}

	if r.config.Install {
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			return nil, fmt.Errorf("install playwright: %w", err)
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(r.config.Headless),
		Args:     []string{"--no-sandbox", "--disable-setuid-sandbox"},
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	r.pw = pw
	r.browser = browser
	return browser, nil
}

// Render opens req.URL in a fresh browser context and returns its HTML
func (r *PlaywrightRenderer) Render(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	browser, err := r.start()
	if err != nil {
		return "", err
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ms := playwright.Float(float64(timeout.Milliseconds()))

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(r.config.UserAgent),
	})
	if err != nil {
		return "", fmt.Errorf("new browser context: %w", err)
	}
	defer bctx.Close()

	page, err := bctx.NewPage()
	if err != nil {
		return "", fmt.Errorf("new page: %w", err)
	}

	resp, err := page.Goto(req.URL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   ms,
	})
	if err != nil {
		return "", fmt.Errorf("goto %s: %w", req.URL, err)
	}
	if resp != nil && resp.Status() >= 400 {
		return "", fmt.Errorf("goto %s: unexpected status: %d", req.URL, resp.Status())
	}

	if req.WaitFor != "" {
		if _, err := page.WaitForSelector(req.WaitFor, playwright.PageWaitForSelectorOptions{Timeout: ms}); err != nil {
			log.Printf("[Browser] %s never appeared on %s: %v", req.WaitFor, req.URL, err)
		}
	}

	html, err := page.Content()
	if err != nil {
		return "", fmt.Errorf("read content: %w", err)
	}
	return html, nil
}

// Close shuts the browser down
func (r *PlaywrightRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser == nil {
		return nil
	}

	var firstErr error
	if err := r.browser.Close(); err != nil {
		firstErr = fmt.Errorf("close browser: %w", err)
	}
	if err := r.pw.Stop(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("stop playwright: %w", err)
	}
	r.browser = nil
	r.pw = nil
	return firstErr
}
