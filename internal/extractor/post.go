package extractor

import (
	"crypto/sha256"
	"encoding/hex"
)

// Post represents one extracted post from a search results page.
// Posts are immutable value records; only the ID outlives the cycle that
// produced it.
type Post struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Keyword   string `json:"keyword"`
	Author    string `json:"author,omitempty"`
	PostURL   string `json:"post_url,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// idPrefixLen is the number of leading text characters hashed into the
// post identity.
const idPrefixLen = 150

// idLen is the length of the hex-encoded post identity.
const idLen = 16

// ComputeID returns a deterministic identity for a post, derived from the
// cleaned text prefix and the normalized post URL. The digest is SHA-256,
// truncated to a fixed length; the same inputs produce the same identity on
// every run and across process restarts.
func ComputeID(cleanText, postURL string) string {
	sum := sha256.Sum256([]byte(truncateRunes(cleanText, idPrefixLen) + postURL))
	return hex.EncodeToString(sum[:])[:idLen]
}

// truncateRunes returns at most n runes of s.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
