package announcer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"aaronromeo.com/mailsift/internal/export"
	"github.com/pkg/errors"
)

const webhookAnnouncePath = "/announcements"

type Option func(*webhook)

type Service interface {
	Announce(ctx context.Context, message string) error
}

func WithWebhookURL(webhookURL string) Option {
	return func(w *webhook) {
		w.baseURL = strings.TrimSpace(webhookURL)
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(w *webhook) {
		w.client = client
	}
}

type webhook struct {
	baseURL string
	client  *http.Client
}

// New returns a Service that posts to the webhook. Without a URL every
// announcement is dropped.
func New(opts ...Option) Service {
	w := &webhook{client: &http.Client{Timeout: 10 * time.Second}}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

type payload struct {
	Message string `json:"message"`
}

func (w *webhook) Announce(ctx context.Context, message string) error {
	if w.baseURL == "" {
		return nil
	}
	body, err := json.Marshal(payload{Message: message})
	if err != nil {
		return err
	}

	url := strings.TrimRight(w.baseURL, "/") + webhookAnnouncePath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "post announcement")
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("reporting webhook returned status %s", resp.Status)
	}
	return nil
}

// ExportMessage describes a finished export.
func ExportMessage(account string, stats export.Stats) string {
	return fmt.Sprintf("export: account %q saved %d of %d attachments from %d emails (%d skipped, %d errors)",
		account, stats.Exported, stats.TotalAttachments, stats.EmailsWithAttachments, stats.Skipped, stats.Errors)
}
