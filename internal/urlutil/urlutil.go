// Package urlutil cleans URLs and text fragments extracted from rendered
// search markup: it strips tracking query parameters and decodes entities.
package urlutil

import (
	"html"
	"net/url"
	"regexp"
	"strings"
)

// trackingParams lists query-parameter name fragments to strip. Matching is
// case-insensitive substring over the parameter name.
var trackingParams = []string{
	"__cft__",
	"__tn__",
	"__xts__",
	"__dyn__",
	"__csr__",
	"__req__",
	"__hs__",
	"__hssc__",
	"__hsfp__",
	"__hstc__",
	"fbclid",
	"ref",
	"refid",
	"refsrc",
	"source",
	"utm_source",
	"utm_medium",
	"utm_campaign",
	"utm_content",
	"utm_term",
}

var (
	fallbackParamRes = []*regexp.Regexp{
		regexp.MustCompile(`[?&]__cft__\[0\]=[^&]*`),
		regexp.MustCompile(`[?&]__tn__=[^&]*`),
		regexp.MustCompile(`[?&]__xts__\[0\]=[^&]*`),
		regexp.MustCompile(`[?&]fbclid=[^&]*`),
	}
	delimiterRunRe   = regexp.MustCompile(`[&?]+`)
	questionAmpRe    = regexp.MustCompile(`\?&`)
	trailingDelimRe  = regexp.MustCompile(`[&?]$`)
	leakedTrackingRe = []*regexp.Regexp{
		regexp.MustCompile(`&__cft__\[0\]=\S*`),
		regexp.MustCompile(`&__tn__=\S*`),
		regexp.MustCompile(`&__xts__\[0\]=\S*`),
		regexp.MustCompile(`https?://\S*[?&]__cft__\S*`),
		regexp.MustCompile(`https?://\S*[?&]__tn__\S*`),
	}
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// NormalizeURL strips tracking query parameters from a URL, preserving
// scheme, host, and path. It never fails: on parse errors it falls back to
// regex stripping and returns the best-effort cleaned string. Idempotent.
func NormalizeURL(raw string) string {
	if raw == "" {
		return raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return fallbackClean(raw)
	}

	values, err := url.ParseQuery(parsed.RawQuery)
	if err != nil {
		return fallbackClean(raw)
	}

	cleaned := url.Values{}
	for key, vals := range values {
		if isTrackingParam(key) {
			continue
		}
		cleaned[key] = vals
	}

	parsed.RawQuery = cleaned.Encode()
	parsed.ForceQuery = false

	return strings.TrimSuffix(parsed.String(), "?")
}

// isTrackingParam reports whether a query-parameter name matches the
// tracking denylist.
func isTrackingParam(name string) bool {
	lower := strings.ToLower(name)
	for _, track := range trackingParams {
		if strings.Contains(lower, track) {
			return true
		}
	}
	return false
}

// fallbackClean strips known tracking patterns with regexes when URL parsing
// fails, then repairs leftover delimiters.
func fallbackClean(raw string) string {
	cleaned := raw
	for _, re := range fallbackParamRes {
		cleaned = re.ReplaceAllString(cleaned, "")
	}

	cleaned = delimiterRunRe.ReplaceAllStringFunc(cleaned, func(m string) string {
		if strings.Contains(m, "&") {
			return "&"
		}
		return "?"
	})
	cleaned = questionAmpRe.ReplaceAllString(cleaned, "?")
	cleaned = trailingDelimRe.ReplaceAllString(cleaned, "")

	return cleaned
}

// NormalizeText decodes HTML entities and removes tracking fragments that
// leaked into body text, then collapses whitespace runs and trims.
func NormalizeText(raw string) string {
	if raw == "" {
		return raw
	}

	text := html.UnescapeString(raw)
	for _, re := range leakedTrackingRe {
		text = re.ReplaceAllString(text, "")
	}

	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}
