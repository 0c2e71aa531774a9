package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Container search bounds. A post container is either marked with an article
// role or holds a heading plus enough text to be a whole post.
const (
	maxAncestorDepth     = 10
	containerMinTextLen  = 100
	containerHeadingTags = "h3, h4"
)

// findPostContainer walks upward from a boundary anchor to the smallest
// enclosing div that plausibly represents one whole post. Returns nil when no
// such container exists within the depth bound.
func findPostContainer(link *goquery.Selection) *goquery.Selection {
	current := link

	for depth := 0; depth < maxAncestorDepth; depth++ {
		current = current.Parent()
		if current.Length() == 0 {
			return nil
		}

		name := goquery.NodeName(current)
		if name == "body" {
			return nil
		}
		if name != "div" {
			continue
		}

		if role, _ := current.Attr("role"); role == "article" {
			return current
		}

		hasHeading := current.Find(containerHeadingTags).Length() > 0
		textLen := len(strings.TrimSpace(current.Text()))
		if hasHeading && textLen > containerMinTextLen {
			return current
		}
	}

	return nil
}
