// Package fetch retrieves rendered search-result markup for a keyword using
// a cookie-authenticated HTTP session.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"time"
)

// ErrAuthExpired is returned when the session cookies no longer authenticate
// and the site bounces the request to a login or checkpoint page.
var ErrAuthExpired = errors.New("session cookies expired or invalid")

// recentFilter is the encoded "recent posts" filter blob the search endpoint
// expects in the filters query parameter.
const recentFilter = "eyJyZWNlbnRfcG9zdHM6MCI6IntcIm5hbWVcIjpcInJlY2VudF9wb3N0c1wiLFwiYXJnc1wiOlwiXCJ9In0%3D"

const (
	defaultTimeout   = 30 * time.Second
	maxResponseBytes = 8 << 20
	userAgent        = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

// Fetcher retrieves raw search-result markup for one keyword.
type Fetcher interface {
	Fetch(ctx context.Context, keyword string) ([]byte, error)
}

// cookieRecord is one entry of a browser cookie export file.
type cookieRecord struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Secure   bool    `json:"secure"`
	HTTPOnly bool    `json:"httpOnly"`
	Expires  float64 `json:"expirationDate"`
}

// SessionFetcher fetches search pages over an authenticated cookie session.
type SessionFetcher struct {
	client  *http.Client
	baseURL string
}

// Option configures a SessionFetcher.
type Option func(*SessionFetcher)

// WithTimeout overrides the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(f *SessionFetcher) {
		f.client.Timeout = timeout
	}
}

// WithTransport overrides the HTTP transport, used in tests.
func WithTransport(rt http.RoundTripper) Option {
	return func(f *SessionFetcher) {
		f.client.Transport = rt
	}
}

// NewSessionFetcher builds a fetcher for baseURL, loading session cookies
// from the JSON export at cookiesFile. An empty cookiesFile skips cookie
// loading and the session is anonymous.
func NewSessionFetcher(baseURL, cookiesFile string, opts ...Option) (*SessionFetcher, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	if cookiesFile != "" {
		cookies, err := loadCookies(cookiesFile)
		if err != nil {
			return nil, err
		}
		jar.SetCookies(base, cookies)
	}

	fetcher := &SessionFetcher{
		client: &http.Client{
			Jar:     jar,
			Timeout: defaultTimeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
	for _, opt := range opts {
		opt(fetcher)
	}
	return fetcher, nil
}

// Fetch retrieves the recent-posts search results page for keyword.
func (f *SessionFetcher) Fetch(ctx context.Context, keyword string) ([]byte, error) {
	searchURL := f.baseURL + "/search/posts?q=" + url.QueryEscape(keyword) + "&filters=" + recentFilter

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if isAuthRedirect(resp.Request.URL) {
		return nil, fmt.Errorf("%w: landed on %s", ErrAuthExpired, resp.Request.URL.Path)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search request returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}
	return body, nil
}

// isAuthRedirect reports whether the final URL after redirects is a login or
// checkpoint page, which means the session cookies are no longer valid.
func isAuthRedirect(final *url.URL) bool {
	if final == nil {
		return false
	}
	path := strings.ToLower(final.Path)
	return strings.Contains(path, "/login") || strings.Contains(path, "/checkpoint")
}

func loadCookies(path string) ([]*http.Cookie, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cookies file %s: %w", path, err)
	}

	var records []cookieRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse cookies file %s: %w", path, err)
	}

	cookies := make([]*http.Cookie, 0, len(records))
	for _, record := range records {
		if record.Name == "" {
			continue
		}
		cookie := &http.Cookie{
			Name:     record.Name,
			Value:    record.Value,
			Domain:   record.Domain,
			Path:     record.Path,
			Secure:   record.Secure,
			HttpOnly: record.HTTPOnly,
		}
		if record.Expires > 0 {
			cookie.Expires = time.Unix(int64(record.Expires), 0)
		}
		cookies = append(cookies, cookie)
	}
	if len(cookies) == 0 {
		return nil, fmt.Errorf("cookies file %s contains no cookies", path)
	}
	return cookies, nil
}
