package search

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/docindex/core"
)

const (
	// DefaultMinScore is the similarity floor applied to semantic matches.
	DefaultMinScore float32 = 0.60

	verbatimBoost float32 = 0.3
)

// VectorStore finds stored records near a query vector.
type VectorStore interface {
	FindSimilar(ctx context.Context, vector []float32, minScore float32, limit int) ([]core.SearchResult, error)
}

// QueryEmbedder embeds a query the same way chunks were embedded.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher provides semantic search over indexed chunk records.
type Searcher struct {
	store    VectorStore
	embedder QueryEmbedder
	minScore float32
	logger   *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithMinScore sets the similarity floor. Default is DefaultMinScore.
func WithMinScore(score float32) Option {
	return func(s *Searcher) error {
		s.minScore = score
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(store VectorStore, embedder QueryEmbedder, opts ...Option) (*Searcher, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		store:    store,
		embedder: embedder,
		minScore: DefaultMinScore,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "searcher")

	return s, nil
}

// FindSimilar searches for chunk records similar to the query.
// Returns up to maxHits results, ranked by relevance score.
func (s *Searcher) FindSimilar(ctx context.Context, query string, maxHits int) ([]core.SearchResult, error) {
	return s.FindSimilarWithMonitor(ctx, query, maxHits, nil)
}

// FindSimilarWithMonitor is FindSimilar with a monitor receiving callbacks
// at each stage of the search.
func (s *Searcher) FindSimilarWithMonitor(ctx context.Context, query string, maxHits int, monitor SearchMonitor) ([]core.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	monitor.Start(query)

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, err
	}
	monitor.AfterQueryEmbedding(len(embedding))

	// Over-fetch so the verbatim boost can promote matches from below the cut.
	matches, err := s.store.FindSimilar(ctx, embedding, s.minScore, maxHits*2)
	if err != nil {
		s.logger.Error("error querying for similar records", "err", err)
		return nil, err
	}
	monitor.AfterSemanticSearch(matches)

	results := make([]core.SearchResult, 0, len(matches))
	for _, m := range matches {
		if containsAllQueryWords(m.Record.Chunk, query) {
			m.Score += verbatimBoost
			monitor.VerbatimHit(&m.Record)
		}
		results = append(results, m)
	}

	slices.SortStableFunc(results, func(a, b core.SearchResult) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	if maxHits > 0 && len(results) > maxHits {
		results = results[:maxHits]
	}
	monitor.Finish(results)

	s.logger.Debug("search complete", "query", query, "matches", len(matches), "results", len(results))
	return results, nil
}
