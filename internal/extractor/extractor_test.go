package extractor_test

import (
	"strings"
	"testing"

	"github.com/Rierra/fblstner/internal/extractor"
)

// searchResultsHTML is a search page with one clean post inside the main
// landmark. The anchor carries tracking parameters and relative-time text.
const searchResultsHTML = `<!DOCTYPE html>
<html>
<body>
  <div role="banner"><a href="/search/top?q=bitcoin">Search shortcut</a></div>
  <div role="main">
    <div role="article">
      <h3>Acme Gazette</h3>
      <span>Bitcoin surged past seventy thousand dollars today as institutional
      investors piled in, and analysts said the rally may well continue through
      the quarter.</span>
      <a href="/acmegazette/posts/111222333?__cft__%5B0%5D=track123&__tn__=xyz">2h</a>
    </div>
  </div>
</body>
</html>`

// duplicateURLHTML has two containers whose anchors resolve to the same
// normalized post URL.
const duplicateURLHTML = `<!DOCTYPE html>
<html>
<body>
  <div role="main">
    <div role="article">
      <span>Bitcoin analysis part one with a long enough body of text to pass
      the minimum content threshold for extraction easily.</span>
      <a href="/page/posts/42?fbclid=first">1h</a>
    </div>
    <div role="article">
      <span>Bitcoin analysis part two, worded differently but pointing at the
      very same destination post as the previous container body.</span>
      <a href="/page/posts/42?fbclid=second">3h</a>
    </div>
  </div>
</body>
</html>`

// shortPostHTML has an article container whose text is below the minimum.
const shortPostHTML = `<!DOCTYPE html>
<html>
<body>
  <div role="main">
    <div role="article">
      <span>Bitcoin is short.</span>
      <a href="/page/posts/7">1h</a>
    </div>
  </div>
</body>
</html>`

// noLandmarkHTML has no main or feed landmark; extraction falls back to the
// whole document.
const noLandmarkHTML = `<!DOCTYPE html>
<html>
<body>
  <div>
    <div role="article">
      <span>Bitcoin miners in the region reported record output this month,
      according to a detailed industry survey published on Tuesday.</span>
      <a href="/miners/posts/900">5d</a>
    </div>
  </div>
</body>
</html>`

// headingContainerHTML has no article role; the container qualifies through
// its heading child and text length.
const headingContainerHTML = `<!DOCTYPE html>
<html>
<body>
  <div role="main">
    <div>
      <h3>Harbor Dispatch</h3>
      <p>Bitcoin custody rules were debated at the harbor finance summit for
      hours, with several delegates proposing stricter reserve requirements
      for exchanges operating in the region.</p>
      <a href="/harbor/posts/314">4h</a>
    </div>
  </div>
</body>
</html>`

// selfLinkHTML contains only search and hashtag links, which are never
// boundary anchors.
const selfLinkHTML = `<!DOCTYPE html>
<html>
<body>
  <div role="main">
    <div role="article">
      <span>Bitcoin chatter with enough text to pass every threshold check in
      the extraction pipeline, were a boundary anchor ever to be found.</span>
      <a href="/hashtag/bitcoin?story_fbid=1">#bitcoin</a>
      <a href="/search/posts/?q=bitcoin">more results</a>
    </div>
  </div>
</body>
</html>`

func newExtractor() *extractor.Extractor {
	return extractor.New(extractor.DefaultMaxPosts, extractor.DefaultMinTextLength)
}

func TestExtract_SinglePost(t *testing.T) {
	t.Parallel()

	posts := newExtractor().Extract([]byte(searchResultsHTML), "bitcoin")
	if len(posts) != 1 {
		t.Fatalf("expected 1 post, got %d", len(posts))
	}

	post := posts[0]
	if post.PostURL != "https://www.facebook.com/acmegazette/posts/111222333" {
		t.Errorf("unexpected post URL: %q", post.PostURL)
	}
	if post.Timestamp != "2h" {
		t.Errorf("expected anchor timestamp 2h, got %q", post.Timestamp)
	}
	if post.Author != "Acme Gazette" {
		t.Errorf("expected author from heading, got %q", post.Author)
	}
	if post.Keyword != "bitcoin" {
		t.Errorf("expected keyword bitcoin, got %q", post.Keyword)
	}
	if !strings.Contains(post.Text, "surged past seventy thousand") {
		t.Errorf("post text missing body content: %q", post.Text)
	}
	if len(post.ID) != 16 {
		t.Errorf("expected 16-char identity, got %q", post.ID)
	}
}

func TestExtract_Deterministic(t *testing.T) {
	t.Parallel()

	ext := newExtractor()

	first := ext.Extract([]byte(searchResultsHTML), "bitcoin")
	second := ext.Extract([]byte(searchResultsHTML), "bitcoin")

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected 1 post per run, got %d and %d", len(first), len(second))
	}
	if first[0] != second[0] {
		t.Fatalf("extraction not deterministic: %+v != %+v", first[0], second[0])
	}
}

func TestExtract_DedupByNormalizedURL(t *testing.T) {
	t.Parallel()

	posts := newExtractor().Extract([]byte(duplicateURLHTML), "bitcoin")
	if len(posts) != 1 {
		t.Fatalf("expected 1 post after URL dedup, got %d", len(posts))
	}
	if posts[0].PostURL != "https://www.facebook.com/page/posts/42" {
		t.Errorf("unexpected post URL: %q", posts[0].PostURL)
	}
}

func TestExtract_EmptyAndMalformedMarkup(t *testing.T) {
	t.Parallel()

	ext := newExtractor()

	for _, markup := range []string{"", "<<<< not html at all", "<div><a href="} {
		if posts := ext.Extract([]byte(markup), "bitcoin"); len(posts) != 0 {
			t.Errorf("expected no posts for markup %q, got %d", markup, len(posts))
		}
	}
}

func TestExtract_RejectsShortText(t *testing.T) {
	t.Parallel()

	if posts := newExtractor().Extract([]byte(shortPostHTML), "bitcoin"); len(posts) != 0 {
		t.Fatalf("expected short post to be rejected, got %d posts", len(posts))
	}
}

func TestExtract_RejectsMissingKeyword(t *testing.T) {
	t.Parallel()

	if posts := newExtractor().Extract([]byte(searchResultsHTML), "ethereum"); len(posts) != 0 {
		t.Fatalf("expected no posts without keyword, got %d", len(posts))
	}
}

func TestExtract_KeywordCaseInsensitive(t *testing.T) {
	t.Parallel()

	if posts := newExtractor().Extract([]byte(searchResultsHTML), "BitCoin"); len(posts) != 1 {
		t.Fatalf("expected case-insensitive keyword match, got %d posts", len(posts))
	}
}

func TestExtract_FallsBackToWholeDocument(t *testing.T) {
	t.Parallel()

	if posts := newExtractor().Extract([]byte(noLandmarkHTML), "bitcoin"); len(posts) != 1 {
		t.Fatalf("expected 1 post without landmark, got %d", len(posts))
	}
}

func TestExtract_HeadingContainer(t *testing.T) {
	t.Parallel()

	posts := newExtractor().Extract([]byte(headingContainerHTML), "bitcoin")
	if len(posts) != 1 {
		t.Fatalf("expected 1 post from heading container, got %d", len(posts))
	}
	if posts[0].Author != "Harbor Dispatch" {
		t.Errorf("expected author Harbor Dispatch, got %q", posts[0].Author)
	}
}

func TestExtract_IgnoresSelfLinks(t *testing.T) {
	t.Parallel()

	if posts := newExtractor().Extract([]byte(selfLinkHTML), "bitcoin"); len(posts) != 0 {
		t.Fatalf("expected search/hashtag links to be skipped, got %d posts", len(posts))
	}
}

func TestExtract_MaxPostsCap(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	b.WriteString(`<html><body><div role="main">`)
	for _, id := range []string{"100", "200", "300"} {
		b.WriteString(`<div role="article"><span>Bitcoin update number ` + id +
			` with plenty of body text so the candidate clears the minimum length
			threshold comfortably.</span><a href="/page/posts/` + id + `">1h</a></div>`)
	}
	b.WriteString(`</div></body></html>`)

	posts := extractor.New(2, extractor.DefaultMinTextLength).Extract([]byte(b.String()), "bitcoin")
	if len(posts) != 2 {
		t.Fatalf("expected post cap of 2, got %d", len(posts))
	}
}

func TestComputeID_Deterministic(t *testing.T) {
	t.Parallel()

	const text = "Bitcoin surged past seventy thousand dollars today."
	const url = "https://www.facebook.com/page/posts/1"

	first := extractor.ComputeID(text, url)
	second := extractor.ComputeID(text, url)
	if first != second {
		t.Fatalf("identity not deterministic: %s != %s", first, second)
	}
	if len(first) != 16 {
		t.Fatalf("expected 16-char identity, got %q", first)
	}

	if other := extractor.ComputeID(text, "https://www.facebook.com/page/posts/2"); other == first {
		t.Fatal("expected different identity for different URL")
	}
	if other := extractor.ComputeID("different text entirely", url); other == first {
		t.Fatal("expected different identity for different text")
	}
}
