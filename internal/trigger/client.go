// Package trigger issues the orchestrator's authenticated follow-up request
// to the cycle endpoint.
package trigger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"tenniswire/internal/domain"
	"tenniswire/internal/ports"
)

// ChainDepthHeader carries the follow-up invocation count.
const ChainDepthHeader = "X-Chain-Depth"

// Client posts cycle follow-ups authenticated with the shared secret.
type Client struct {
	cycleURL string
	secret   string
	client   *http.Client
}

var _ ports.TriggerClient = (*Client)(nil)

// NewClient registers the cycle endpoint and shared secret.
func NewClient(cycleURL, secret string) *Client {
	return &Client{
		cycleURL: cycleURL,
		secret:   secret,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// TriggerCycle posts the chain depth and the pending-work summary. The body
// is advisory; the receiving endpoint re-derives its own work.
func (c *Client) TriggerCycle(ctx context.Context, chainDepth int, summary domain.CycleSummary) error {
	if c.cycleURL == "" || c.secret == "" {
		return fmt.Errorf("trigger client misconfigured")
	}

	payload, err := json.Marshal(struct {
		ChainDepth int                 `json:"chainDepth"`
		Pending    domain.CycleSummary `json:"pending"`
	}{ChainDepth: chainDepth, Pending: summary})
	if err != nil {
		return fmt.Errorf("encode trigger payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cycleURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secret)
	req.Header.Set(ChainDepthHeader, strconv.Itoa(chainDepth))

	resp, err := c.client.Do(req)
	if err != nil {
		// The receiving cycle runs for minutes and only answers when done,
		// so our own timeout is the normal outcome of a delivered trigger.
		var uerr *url.Error
		if errors.As(err, &uerr) && uerr.Timeout() {
			return nil
		}
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("cycle trigger rejected: %s", resp.Status)
	}
	return nil
}
