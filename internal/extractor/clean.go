package extractor

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Rierra/fblstner/internal/urlutil"
)

// noisePatterns removes UI chrome that leaks into flattened post text:
// navigation labels, notification banners, reaction counts, video scrubber
// times, and translation controls.
var noisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Find friends.*?notifications?`),
	regexp.MustCompile(`(?i)Number of unread.*?notifications?`),
	regexp.MustCompile(`(?i)Search results`),
	regexp.MustCompile(`(?i)Filters\s+All\s+People\s+Reels\s+Marketplace\s+Pages\s+Groups\s+Events`),
	regexp.MustCompile(`(?i)(Facebook\s*){3,}`),
	regexp.MustCompile(`(?i)Mark as read`),
	regexp.MustCompile(`(?i)Earlier\s+Unread`),
	regexp.MustCompile(`(?i)Welcome to Facebook!.*?friends\.`),
	regexp.MustCompile(`(?i)You might like`),
	regexp.MustCompile(`(?i)See all\s+Unread`),
	regexp.MustCompile(`(?i)All\s+Unread\s+New`),
	regexp.MustCompile(`(?i)Tap here to find people`),
	regexp.MustCompile(`(?i)Verified account`),
	regexp.MustCompile(`(?i)Click to expand`),
	regexp.MustCompile(`\d+:\d+\s*/\s*\d+:\d+`),
	regexp.MustCompile(`(?i)Shared with Public`),
	regexp.MustCompile(`(?i)· Follow`),
	regexp.MustCompile(`(?i)See translation`),
	regexp.MustCompile(`(?i)Rate this translation`),
	regexp.MustCompile(`(?i)Automatically translated`),
	regexp.MustCompile(`(?i)Notifications\s+`),
	regexp.MustCompile(`(?i)All reactions:\s*\d+`),
	regexp.MustCompile(`(?i)\d+\s+comments?\s+\d+\s+shares?`),
	regexp.MustCompile(`(?i)Like\s+Comment\s+Shar\w*`),
	regexp.MustCompile(`(?i)Turn on\s+Not now\s+New\s+On Facebook`),
	regexp.MustCompile(`(?i)All Unread.*?Turn on.*?Not now`),
}

var (
	// singleCharRunRe strips runs of six or more isolated single-character
	// tokens, an anti-scraping obfuscation artifact.
	singleCharRunRe = regexp.MustCompile(`(?:\s[a-zA-Z0-9]\b){6,}`)

	// gibberishDomainRe strips short digit-bearing alphanumeric tokens with a
	// .com suffix (tracking stubs, not real site names).
	gibberishDomainRe = regexp.MustCompile(`(?i)\b[a-z]*\d[a-z\d]*\.com\b`)

	// authorPrefixRe strips a leading "Name · " author prefix.
	authorPrefixRe = regexp.MustCompile(`^[A-Z][a-z]+(?:\s+[A-Z][a-z]+){0,2}\s*·\s*`)

	// timePrefixRe strips a leading relative-time prefix like "2d · ".
	timePrefixRe = regexp.MustCompile(`^\d+[hdmw]\s*·\s*`)

	// ellipsisRunRe collapses repeated ellipses.
	ellipsisRunRe        = regexp.MustCompile(`(?:\.{3}[\s.]*){2,}|\.{4,}`)
	unicodeEllipsisRunRe = regexp.MustCompile(`…(?:\s*…)+`)

	cleanWhitespaceRe = regexp.MustCompile(`\s+`)
)

// cleanPostText strips UI noise from flattened container text and normalizes
// it into a readable post body.
func cleanPostText(text string) string {
	text = urlutil.NormalizeText(text)

	for _, re := range noisePatterns {
		text = re.ReplaceAllString(text, "")
	}

	text = singleCharRunRe.ReplaceAllString(text, " ")
	text = gibberishDomainRe.ReplaceAllString(text, "")
	text = ellipsisRunRe.ReplaceAllString(text, "...")
	text = unicodeEllipsisRunRe.ReplaceAllString(text, "…")

	text = strings.TrimSpace(cleanWhitespaceRe.ReplaceAllString(text, " "))

	text = authorPrefixRe.ReplaceAllString(text, "")
	text = timePrefixRe.ReplaceAllString(text, "")

	return strings.TrimSpace(text)
}

// authorNoiseTerms disqualify a heading from being an author name.
var authorNoiseTerms = []string{
	"notification",
	"filters",
	"all",
	"see",
	"new",
	"earlier",
	"like",
	"share",
	"comment",
	"sponsored",
	"search",
}

// authorStatusRes strip trailing status phrases from heading text.
var authorStatusRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)feeling \w+\.?$`),
	regexp.MustCompile(`(?i)is at .*$`),
	regexp.MustCompile(`(?i)is with .*$`),
	regexp.MustCompile(`(?i)was live\.?$`),
	regexp.MustCompile(`(?i)added \d+ .*$`),
	regexp.MustCompile(`(?i)shared a .*$`),
	regexp.MustCompile(`(?i)Verified account$`),
	regexp.MustCompile(`(?i)Verified$`),
	regexp.MustCompile(`(?i)Follow$`),
}

// Author name length bounds.
const (
	authorMinLen = 2
	authorMaxLen = 60
)

// extractAuthor scans heading elements inside a post container for the first
// plausible author name. Returns the empty string when none qualifies.
func extractAuthor(container *goquery.Selection) string {
	author := ""

	container.Find(containerHeadingTags).EachWithBreak(func(_ int, heading *goquery.Selection) bool {
		text := strings.TrimSpace(flattenText(heading))
		if len([]rune(text)) < authorMinLen {
			return true
		}

		lower := strings.ToLower(text)
		for _, noise := range authorNoiseTerms {
			if strings.Contains(lower, noise) {
				return true
			}
		}

		// The heading often reads "Name · status"; the name is the first part.
		candidate := strings.TrimSpace(strings.SplitN(text, "·", 2)[0])
		for _, re := range authorStatusRes {
			candidate = strings.TrimSpace(re.ReplaceAllString(candidate, ""))
		}
		candidate = strings.TrimRight(candidate, ".")

		if n := len([]rune(candidate)); n >= authorMinLen && n <= authorMaxLen {
			author = urlutil.NormalizeText(candidate)
			return false
		}
		return true
	})

	return author
}

// timestampRes match short relative-time and named-day expressions.
var timestampRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b\d+[hdmw]\b`),
	regexp.MustCompile(`(?i)\bJust now\b`),
	regexp.MustCompile(`(?i)\bYesterday\b`),
	regexp.MustCompile(`(?i)\b\d+ hour`),
	regexp.MustCompile(`(?i)\b\d+ min`),
	regexp.MustCompile(`(?i)\b\d+ day`),
	regexp.MustCompile(`(?i)\b\d+ week`),
}

// extractTimestamp pattern-scans a post container's flattened text for a
// relative-time expression. Returns the empty string when none is found.
func extractTimestamp(container *goquery.Selection) string {
	text := flattenText(container)
	for _, re := range timestampRes {
		if match := re.FindString(text); match != "" {
			return match
		}
	}
	return ""
}
