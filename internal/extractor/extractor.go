// Package extractor turns raw rendered search markup into structured post
// records. Post URLs act as boundary anchors: each post-shaped link is walked
// upward to the smallest enclosing container that plausibly holds one whole
// post, and the container text is cleaned and fingerprinted for a stable
// identity.
package extractor

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Rierra/fblstner/internal/urlutil"
)

// Extraction limits.
const (
	// DefaultMaxPosts caps how many posts a single Extract call yields.
	DefaultMaxPosts = 15
	// DefaultMinTextLength rejects candidates with less cleaned text.
	DefaultMinTextLength = 50

	// maxTextLength bounds the stored post text.
	maxTextLength = 1000
	// fingerprintLen is the near-duplicate fingerprint prefix length.
	fingerprintLen = 200

	defaultBaseURL = "https://www.facebook.com"
)

// postPathPatterns identifies hrefs that point at an individual post.
var postPathPatterns = []string{
	"/posts/",
	"/videos/",
	"/photos/",
	"/photo/",
	"story_fbid=",
	"/permalink/",
	"fbid=",
}

// selfLinkPatterns identifies search and hashtag links that are never post
// boundaries.
var selfLinkPatterns = []string{"/search/", "/hashtag/"}

// relativeTimeRe matches short relative-time link text like "1h" or "3d".
var relativeTimeRe = regexp.MustCompile(`^\d+[hdmw]`)

// anchor is a candidate post boundary: a post-shaped link with its normalized
// target URL and, when the link text looks like a relative time, a candidate
// timestamp.
type anchor struct {
	url       string
	sel       *goquery.Selection
	timestamp string
}

// Extractor extracts posts from rendered search-result markup.
type Extractor struct {
	maxPosts   int
	minTextLen int
	baseURL    string
}

// New creates an Extractor with the given per-call post cap and minimum
// cleaned-text length.
func New(maxPosts, minTextLen int) *Extractor {
	if maxPosts <= 0 {
		maxPosts = DefaultMaxPosts
	}
	if minTextLen <= 0 {
		minTextLen = DefaultMinTextLength
	}
	return &Extractor{
		maxPosts:   maxPosts,
		minTextLen: minTextLen,
		baseURL:    defaultBaseURL,
	}
}

// Extract parses markup and returns the ordered posts that contain keyword.
// It is deterministic for identical inputs and never fails: malformed or
// empty markup yields an empty slice.
func (e *Extractor) Extract(markup []byte, keyword string) []Post {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return nil
	}

	region := e.contentRegion(doc)
	anchors := e.collectAnchors(region)

	keywordLower := strings.ToLower(keyword)
	seenURLs := make(map[string]struct{})
	seenFingerprints := make(map[string]struct{})

	var posts []Post
	for _, a := range anchors {
		if len(posts) >= e.maxPosts {
			break
		}
		if _, dup := seenURLs[a.url]; dup {
			continue
		}

		container := findPostContainer(a.sel)
		if container == nil {
			continue
		}

		cleanText := cleanPostText(flattenText(container))
		if len([]rune(cleanText)) < e.minTextLen {
			continue
		}
		if !strings.Contains(strings.ToLower(cleanText), keywordLower) {
			continue
		}

		fingerprint := truncateRunes(cleanText, fingerprintLen)
		if _, dup := seenFingerprints[fingerprint]; dup {
			continue
		}
		seenFingerprints[fingerprint] = struct{}{}
		seenURLs[a.url] = struct{}{}

		timestamp := a.timestamp
		if timestamp == "" {
			timestamp = extractTimestamp(container)
		}

		posts = append(posts, Post{
			ID:        ComputeID(cleanText, a.url),
			Text:      truncateRunes(cleanText, maxTextLength),
			Keyword:   keyword,
			Author:    extractAuthor(container),
			PostURL:   a.url,
			Timestamp: timestamp,
		})
	}

	return posts
}

// contentRegion returns the primary content region, preferring the main
// landmark, then the feed, then the whole document.
func (e *Extractor) contentRegion(doc *goquery.Document) *goquery.Selection {
	if main := doc.Find("div[role='main']").First(); main.Length() > 0 {
		return main
	}
	if feed := doc.Find("div[role='feed']").First(); feed.Length() > 0 {
		return feed
	}
	return doc.Selection
}

// collectAnchors gathers candidate boundary anchors in document order.
func (e *Extractor) collectAnchors(region *goquery.Selection) []anchor {
	var anchors []anchor

	region.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
		href, ok := link.Attr("href")
		if !ok || !isPostLink(href) {
			return
		}

		full := href
		if !strings.HasPrefix(href, "http") {
			full = e.baseURL + href
		}

		linkText := strings.TrimSpace(link.Text())
		timestamp := ""
		if relativeTimeRe.MatchString(linkText) {
			timestamp = linkText
		}

		anchors = append(anchors, anchor{
			url:       urlutil.NormalizeURL(full),
			sel:       link,
			timestamp: timestamp,
		})
	})

	return anchors
}

// isPostLink reports whether an href has a post-like path shape and is not a
// search or hashtag self-link.
func isPostLink(href string) bool {
	for _, self := range selfLinkPatterns {
		if strings.Contains(href, self) {
			return false
		}
	}
	for _, pattern := range postPathPatterns {
		if strings.Contains(href, pattern) {
			return true
		}
	}
	return false
}
