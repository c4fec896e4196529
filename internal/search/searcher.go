package search

import (
	"context"
	"log/slog"

	"github.com/mfeineis/elm-advanced-package-search/internal/engine"
	"github.com/mfeineis/elm-advanced-package-search/internal/indexer"
)

type Result struct {
	Query     string             `json:"query"`
	TotalHits int                `json:"total_hits"`
	Results   []engine.ScoredDoc `json:"results"`
}

type ExplainResult struct {
	Query   string                  `json:"query"`
	Results []engine.DocExplanation `json:"results"`
}

type Searcher struct {
	idx    *indexer.Indexer
	logger *slog.Logger
}

func New(idx *indexer.Indexer) *Searcher {
	return &Searcher{
		idx:    idx,
		logger: slog.Default().With("component", "searcher"),
	}
}

// Execute returns at most limit results; TotalHits counts every match.
func (s *Searcher) Execute(ctx context.Context, query string, limit int) *Result {
	all := s.idx.Query(query, -1)
	results := all
	if limit >= 0 && len(results) > limit {
		results = results[:limit]
	}
	if results == nil {
		results = []engine.ScoredDoc{}
	}
	s.logger.Info("query executed",
		"query", query,
		"total_hits", len(all),
		"returned", len(results),
	)
	return &Result{
		Query:     query,
		TotalHits: len(all),
		Results:   results,
	}
}

func (s *Searcher) Explain(ctx context.Context, query string) *ExplainResult {
	results := s.idx.QueryExplain(query)
	if results == nil {
		results = []engine.DocExplanation{}
	}
	return &ExplainResult{
		Query:   query,
		Results: results,
	}
}
