package fanout

import (
	"context"
	"fmt"

	"github.com/Rierra/fblstner/internal/extractor"
	"github.com/Rierra/fblstner/internal/fetch"
)

// Searcher produces the ordered candidate posts for one keyword.
type Searcher interface {
	Search(ctx context.Context, keyword string) ([]extractor.Post, error)
}

// PageSearcher fetches the rendered search page for a keyword and extracts
// posts from it.
type PageSearcher struct {
	fetcher   fetch.Fetcher
	extractor *extractor.Extractor
}

// NewPageSearcher composes a fetcher and an extractor into a Searcher.
func NewPageSearcher(fetcher fetch.Fetcher, ex *extractor.Extractor) *PageSearcher {
	return &PageSearcher{fetcher: fetcher, extractor: ex}
}

// Search fetches and extracts posts for keyword in page order.
func (s *PageSearcher) Search(ctx context.Context, keyword string) ([]extractor.Post, error) {
	markup, err := s.fetcher.Fetch(ctx, keyword)
	if err != nil {
		return nil, fmt.Errorf("fetch for keyword %q failed: %w", keyword, err)
	}
	return s.extractor.Extract(markup, keyword), nil
}
