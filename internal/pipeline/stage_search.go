package pipeline

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/blagoySimandov/rowenrich/internal/cache"
	"github.com/blagoySimandov/rowenrich/internal/services"
)

const defaultNumResults = 5

// SearchStage renders the query template for the entity and returns the
// snippets of the organic results, one per line.
type SearchStage struct {
	webSearcher services.WebSearcher
	numResults  int
	cache       cache.SearchCache
}

type SearchStageOption func(*SearchStage)

func WithNumResults(n int) SearchStageOption {
	return func(s *SearchStage) {
		if n > 0 {
			s.numResults = n
		}
	}
}

func WithSearchCache(c cache.SearchCache) SearchStageOption {
	return func(s *SearchStage) {
		s.cache = c
	}
}

func NewSearchStage(webSearcher services.WebSearcher, opts ...SearchStageOption) *SearchStage {
	s := &SearchStage{
		webSearcher: webSearcher,
		numResults:  defaultNumResults,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SearchStage) Name() string {
	return "Search"
}

func (s *SearchStage) Apply(ctx context.Context, in StageInput) (string, error) {
	query := in.Params.Render(in.Entity)

	var key string
	if s.cache != nil {
		key = cache.GenerateCacheKey(query, s.numResults)
		if snippets, ok := s.cache.Get(ctx, key); ok {
			log.Debug().Str("query", query).Msg("search cache hit")
			return snippets, nil
		}
	}

	results, err := s.webSearcher.Search(ctx, query, s.numResults)
	if err != nil {
		return "", err
	}
	snippets := strings.Join(results.Snippets(), "\n")

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, snippets); err != nil {
			log.Warn().Err(err).Str("query", query).Msg("failed to cache search results")
		}
	}
	return snippets, nil
}
