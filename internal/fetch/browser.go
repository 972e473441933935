// Package fetch - browser.go provides headless browser rendering for pages
// that hide their outbound links behind JavaScript.
package fetch

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/chromedp/chromedp"
)

// DefaultRenderTimeout bounds a full render including JS execution.
const DefaultRenderTimeout = 20 * time.Second

// RenderResult holds the outcome of a headless render: the final URL after
// any client-side navigation, the rendered DOM, and every anchor href found
// in it.
type RenderResult struct {
	URL      string
	FinalURL string
	HTML     string
	Links    []string
}

// Renderer renders pages in a headless Chrome instance. The zero value is not
// usable; construct with NewRenderer.
type Renderer struct {
	timeout time.Duration
	verbose bool
}

// NewRenderer creates a renderer with the given per-render timeout.
// Requires Chrome/Chromium to be installed on the system.
func NewRenderer(timeout time.Duration, verbose bool) *Renderer {
	if timeout <= 0 {
		timeout = DefaultRenderTimeout
	}
	return &Renderer{timeout: timeout, verbose: verbose}
}

// Render navigates to url with JavaScript execution and returns the rendered
// DOM plus all anchor hrefs.
func (r *Renderer) Render(ctx context.Context, url string) (*RenderResult, error) {
	if r.verbose {
		log.Printf("[BROWSER] Rendering: %s", url)
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, r.timeout)
	defer cancel()

	var html, finalURL string
	var links []string

	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		// Give client-side redirects and late-loading CTAs a moment to fire.
		chromedp.Sleep(2*time.Second),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html),
		chromedp.Evaluate(`Array.from(document.querySelectorAll("a[href]")).map(a => a.href)`, &links),
	)
	if err != nil {
		return nil, fmt.Errorf("browser rendering failed: %w", err)
	}

	if r.verbose {
		log.Printf("[BROWSER] Rendered %s: %d bytes, %d links", finalURL, len(html), len(links))
	}

	return &RenderResult{
		URL:      url,
		FinalURL: finalURL,
		HTML:     html,
		Links:    links,
	}, nil
}
