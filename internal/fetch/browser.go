// Package fetch - browser.go provides headless browser rendering for JavaScript-driven results pages.
package fetch

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
)

// Renderer returns the fully rendered HTML of a page.
type Renderer interface {
	Render(ctx context.Context, url string, waitSelector string) (string, error)
}

// BrowserRenderer renders pages with a headless Chrome instance.
// Requires Chrome/Chromium to be installed on the system.
type BrowserRenderer struct {
	Timeout time.Duration
	// Settle is how long to wait after the page is ready for client-side rendering to finish.
	Settle time.Duration
	Logger logrus.FieldLogger
}

// NewBrowserRenderer creates a renderer with default timeouts.
func NewBrowserRenderer(logger logrus.FieldLogger) *BrowserRenderer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &BrowserRenderer{
		Timeout: DefaultTimeout,
		Settle:  2 * time.Second,
		Logger:  logger,
	}
}

// Render navigates to url, waits for waitSelector (or body) and returns the page HTML.
func (b *BrowserRenderer) Render(ctx context.Context, url string, waitSelector string) (string, error) {
	if waitSelector == "" {
		waitSelector = "body"
	}
	log := b.Logger.WithField("url", url)
	log.Debug("starting headless browser")

	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(DefaultUserAgent),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, b.Timeout)
	defer cancel()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady(waitSelector),
		chromedp.Sleep(b.Settle),
		chromedp.ActionFunc(func(ctx context.Context) error {
			// Cookie banners cover results tables on several timing platforms; absence is fine.
			clickCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			_ = chromedp.Click(`button[id*="accept"], button[class*="accept"]`, chromedp.NodeVisible).Do(clickCtx)
			return nil
		}),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", &Error{
			URL:       url,
			Message:   "browser rendering failed",
			Cause:     err,
			Retryable: true,
		}
	}

	log.WithField("bytes", len(html)).Debug("rendered page")
	return html, nil
}

// ShouldUseBrowser returns true if a fetched results page has no rows for rowSelector,
// indicating the table is populated client-side.
func ShouldUseBrowser(html string, rowSelector string) bool {
	doc, err := Document(html)
	if err != nil {
		return true
	}
	return doc.Find(rowSelector).Length() == 0
}

// RenderFunc adapts a function to the Renderer interface.
type RenderFunc func(ctx context.Context, url string, waitSelector string) (string, error)

// Render calls f.
func (f RenderFunc) Render(ctx context.Context, url string, waitSelector string) (string, error) {
	return f(ctx, url, waitSelector)
}

var _ Renderer = (*BrowserRenderer)(nil)
var _ Renderer = RenderFunc(nil)
