package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mixelka/mailnotify/internal/formatter"
	"github.com/mixelka/mailnotify/internal/parser"
)

// DefaultTimeout upper bound of one webhook delivery
const DefaultTimeout = 10 * time.Second

// maxErrorBody bytes of a failed response kept for the failure log
const maxErrorBody = 64 << 10

// WebhookClient posts notification payloads to webhook URLs
type WebhookClient struct {
	httpClient *http.Client
	html       *parser.HTMLParser
}

// NewWebhookClient creates a new webhook client; timeout <= 0 means DefaultTimeout
func NewWebhookClient(timeout time.Duration) *WebhookClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &WebhookClient{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		html: parser.NewHTMLParser(),
	}
}

// Send posts payload as JSON. Any non-2xx status is an error.
func (c *WebhookClient) Send(ctx context.Context, url string, payload *formatter.Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	summary := c.html.SummarizeResponse(resp.Header.Get("Content-Type"), respBody, 0)
	if summary == "" {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, summary)
}
