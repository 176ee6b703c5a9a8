package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"

	"tenniswire/internal/challenge"
)

// RenderedLoader acquires pages through a headless browser for sources that
// only produce their content via client script. One browser per call, closed
// on every exit path; instances are never pooled across articles.
type RenderedLoader struct {
	userAgent string
	timeout   time.Duration
	settle    time.Duration
	logger    *slog.Logger
}

// NewRenderedLoader configures the headless loader.
func NewRenderedLoader(userAgent string, timeout time.Duration, logger *slog.Logger) *RenderedLoader {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &RenderedLoader{
		userAgent: userAgent,
		timeout:   timeout,
		settle:    1500 * time.Millisecond,
		logger:    logger,
	}
}

// Name identifies this loader in debug envelopes.
func (r *RenderedLoader) Name() string { return "rendered" }

// Load navigates to pageURL in a fresh headless browser, waits for the body
// to settle, and returns the rendered document HTML.
func (r *RenderedLoader) Load(ctx context.Context, pageURL string) (*Page, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(r.userAgent),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
		chromedp.Sleep(r.settle),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", pageURL, err)
	}

	page := &Page{
		URL:    pageURL,
		HTML:   html,
		Status: 200,
		Loader: r.Name(),
	}
	page.Challenge = challenge.Detect(html)
	if page.Challenge != nil && r.logger != nil {
		r.logger.Debug("challenge survived rendering", "url", pageURL, "type", page.Challenge.Type)
	}

	return page, nil
}
