// Package notify delivers formatted alerts to Telegram chats through the Bot
// API.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	defaultAPIBaseURL = "https://api.telegram.org"
	defaultTimeout    = 15 * time.Second
	// minSendInterval spaces outgoing messages to stay under the Bot API
	// flood limits.
	minSendInterval = time.Second
)

// Deliverer sends one alert text to a destination.
type Deliverer interface {
	Deliver(ctx context.Context, destinationID, text string) error
}

// TelegramNotifier delivers alerts via the Telegram Bot API.
type TelegramNotifier struct {
	client  *http.Client
	baseURL string
	token   string

	mu       sync.Mutex
	lastSend time.Time
	sleep    func(ctx context.Context, d time.Duration) error
	now      func() time.Time
}

// NotifierOption configures a TelegramNotifier.
type NotifierOption func(*TelegramNotifier)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) NotifierOption {
	return func(n *TelegramNotifier) {
		n.client = client
	}
}

// WithAPIBaseURL overrides the Bot API base URL, used in tests.
func WithAPIBaseURL(baseURL string) NotifierOption {
	return func(n *TelegramNotifier) {
		n.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// NewTelegramNotifier creates a notifier authenticated with token.
func NewTelegramNotifier(token string, opts ...NotifierOption) *TelegramNotifier {
	notifier := &TelegramNotifier{
		client:  &http.Client{Timeout: defaultTimeout},
		baseURL: defaultAPIBaseURL,
		token:   token,
		sleep:   sleepContext,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(notifier)
	}
	return notifier
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Deliver posts text to the chat identified by destinationID. Sends are
// serialized and spaced at least one second apart.
func (n *TelegramNotifier) Deliver(ctx context.Context, destinationID, text string) error {
	if err := n.waitTurn(ctx); err != nil {
		return err
	}

	payload, err := json.Marshal(sendMessageRequest{
		ChatID:                destinationID,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	endpoint := n.baseURL + "/bot" + n.token + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read send response: %w", err)
	}

	var apiResp sendMessageResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return fmt.Errorf("failed to parse send response (status %d): %w", resp.StatusCode, err)
	}
	if !apiResp.OK {
		return fmt.Errorf("telegram rejected message for chat %s: %s", destinationID, apiResp.Description)
	}
	return nil
}

// waitTurn blocks until the minimum interval since the previous send has
// passed, honoring context cancellation.
func (n *TelegramNotifier) waitTurn(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	elapsed := n.now().Sub(n.lastSend)
	if wait := minSendInterval - elapsed; wait > 0 {
		if err := n.sleep(ctx, wait); err != nil {
			return err
		}
	}
	n.lastSend = n.now()
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
