package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Rierra/fblstner/internal/extractor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNotifier(t *testing.T, handler http.HandlerFunc) *TelegramNotifier {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	notifier := NewTelegramNotifier("test-token", WithAPIBaseURL(server.URL))
	notifier.sleep = func(context.Context, time.Duration) error { return nil }
	return notifier
}

func TestDeliver_SendsExpectedPayload(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotBody sendMessageRequest
	notifier := newTestNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"ok": true}`))
	})

	err := notifier.Deliver(context.Background(), "-100123", "hello")
	require.NoError(t, err)

	assert.Equal(t, "/bottest-token/sendMessage", gotPath)
	assert.Equal(t, "-100123", gotBody.ChatID)
	assert.Equal(t, "hello", gotBody.Text)
	assert.Equal(t, "HTML", gotBody.ParseMode)
	assert.True(t, gotBody.DisableWebPagePreview)
}

func TestDeliver_APIRejection(t *testing.T) {
	t.Parallel()

	notifier := newTestNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok": false, "description": "chat not found"}`))
	})

	err := notifier.Deliver(context.Background(), "-100999", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestDeliver_SpacesConsecutiveSends(t *testing.T) {
	t.Parallel()

	notifier := newTestNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok": true}`))
	})

	var slept time.Duration
	notifier.sleep = func(_ context.Context, d time.Duration) error {
		slept += d
		return nil
	}
	clock := time.Unix(1_700_000_000, 0)
	notifier.now = func() time.Time { return clock }

	require.NoError(t, notifier.Deliver(context.Background(), "-100123", "first"))
	clock = clock.Add(200 * time.Millisecond)
	require.NoError(t, notifier.Deliver(context.Background(), "-100123", "second"))

	assert.Equal(t, 800*time.Millisecond, slept)
}

func TestDeliver_CancelledContext(t *testing.T) {
	t.Parallel()

	notifier := newTestNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok": true}`))
	})
	notifier.sleep = sleepContext
	notifier.lastSend = notifier.now()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := notifier.Deliver(ctx, "-100123", "hello")
	require.ErrorIs(t, err, context.Canceled)
}

func TestFormatAlert(t *testing.T) {
	t.Parallel()

	post := extractor.Post{
		Text:      `Road closed after <severe> flooding & heavy rain near the bridge`,
		Keyword:   "flooding",
		Author:    "Acme Gazette",
		PostURL:   "https://www.facebook.com/acme/posts/123?fbclid=abc",
		Timestamp: "2h",
	}

	msg := FormatAlert(post)

	assert.Contains(t, msg, "<b>KEYWORD ALERT: FLOODING</b>")
	assert.Contains(t, msg, "&lt;severe&gt; flooding &amp; heavy rain")
	assert.Contains(t, msg, "Acme Gazette")
	assert.Contains(t, msg, "2h")
	assert.Contains(t, msg, `<a href="https://www.facebook.com/acme/posts/123">View Post</a>`)
	assert.NotContains(t, msg, "fbclid")
}

func TestFormatAlert_TruncatesLongText(t *testing.T) {
	t.Parallel()

	post := extractor.Post{
		Text:    strings.Repeat("flood ", 300),
		Keyword: "flood",
	}

	msg := FormatAlert(post)
	assert.Contains(t, msg, "…")
	assert.Less(t, len(msg), 1200)
}

func TestFormatAlert_OmitsEmptyFields(t *testing.T) {
	t.Parallel()

	msg := FormatAlert(extractor.Post{Text: "just text", Keyword: "text"})
	assert.NotContains(t, msg, "\U0001F464")
	assert.NotContains(t, msg, "\U0001F552")
	assert.NotContains(t, msg, "View Post")
}
