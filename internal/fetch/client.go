// Package fetch acquires raw HTML from external publishers. Both loaders
// route every payload through the challenge detector so callers never parse
// an interstitial as content.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"tenniswire/internal/challenge"
	"tenniswire/internal/domain"
)

// maxBodyBytes caps fetched page size.
const defaultMaxBodyBytes = 10 * 1024 * 1024

// Page is one acquired payload plus its challenge classification.
type Page struct {
	URL       string
	HTML      string
	Status    int
	Loader    string
	Challenge *domain.ChallengeDetection
}

// Blocked reports whether the payload was an anti-bot interstitial.
func (p *Page) Blocked() bool { return p != nil && p.Challenge != nil }

// Empty reports whether the page carries no usable markup.
func (p *Page) Empty() bool { return p == nil || strings.TrimSpace(p.HTML) == "" }

// Client is the lightweight HTTP loader.
type Client struct {
	http      *http.Client
	userAgent string
	maxBody   int64
	logger    *slog.Logger
}

// NewClient wires an HTTP client; a nil httpClient gets a sane default.
func NewClient(httpClient *http.Client, userAgent string, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	if userAgent == "" {
		userAgent = "tenniswire/1.0 (+https://tenniswire.example)"
	}
	return &Client{
		http:      httpClient,
		userAgent: userAgent,
		maxBody:   defaultMaxBodyBytes,
		logger:    logger,
	}
}

// Name identifies this loader in debug envelopes.
func (c *Client) Name() string { return "http" }

// Load performs a GET with the descriptive user agent. A denied status
// triggers one retry with browser-like headers before the response is
// returned as-is; network failures are errors, denied content is not.
func (c *Client) Load(ctx context.Context, pageURL string) (*Page, error) {
	page, err := c.get(ctx, pageURL, false)
	if err != nil {
		return nil, err
	}

	if page.Status == http.StatusForbidden || page.Status == http.StatusUnauthorized || page.Status == http.StatusTooManyRequests {
		c.debug("denied status, retrying with browser headers", "url", pageURL, "status", page.Status)
		retried, retryErr := c.get(ctx, pageURL, true)
		if retryErr == nil {
			return retried, nil
		}
	}

	return page, nil
}

func (c *Client) get(ctx context.Context, pageURL string, browserHeaders bool) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	if browserHeaders {
		applyBrowserHeaders(req)
	} else {
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", pageURL, err)
	}

	page := &Page{
		URL:    pageURL,
		HTML:   string(raw),
		Status: resp.StatusCode,
		Loader: c.Name(),
	}
	page.Challenge = challenge.Detect(page.HTML)
	if page.Challenge != nil {
		c.debug("challenge detected", "url", pageURL, "type", page.Challenge.Type, "indicator", page.Challenge.Indicator)
	}

	return page, nil
}

// applyBrowserHeaders mimics a desktop browser for sources that deny plain
// bot user agents outright.
func applyBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "none")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
}

func (c *Client) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
