package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/mfeineis/elm-advanced-package-search/internal/engine"
	"github.com/mfeineis/elm-advanced-package-search/internal/stats"
	"github.com/mfeineis/elm-advanced-package-search/internal/store"
	apperrors "github.com/mfeineis/elm-advanced-package-search/pkg/errors"
	"github.com/mfeineis/elm-advanced-package-search/pkg/metrics"
)

// Indexer serialises all engine writes behind one lock; the engine itself
// leaves that to its caller. Both the HTTP API and the Kafka ingest
// pipeline mutate through here.
type Indexer struct {
	mu     sync.RWMutex
	eng    *engine.Engine
	store  *store.Store
	logger *slog.Logger

	metrics    *metrics.Metrics
	collector  *stats.Collector
	invalidate func(ctx context.Context)
}

type Option func(*Indexer)

func WithMetrics(m *metrics.Metrics) Option {
	return func(ix *Indexer) { ix.metrics = m }
}

func WithCollector(c *stats.Collector) Option {
	return func(ix *Indexer) { ix.collector = c }
}

func WithCacheInvalidation(fn func(ctx context.Context)) Option {
	return func(ix *Indexer) { ix.invalidate = fn }
}

func New(eng *engine.Engine, st *store.Store, opts ...Option) *Indexer {
	ix := &Indexer{
		eng:    eng,
		store:  st,
		logger: slog.Default().With("component", "indexer"),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Load replays every stored package into the engine, before the HTTP
// server accepts traffic.
func (ix *Indexer) Load(ctx context.Context) (int, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	schema := ix.eng.Schema()
	n, err := ix.store.Replay(ctx, func(p store.Package) error {
		return ix.eng.InsertDoc(p.Name, p.FieldValues(schema), p.FeatureValues(schema))
	})
	if err != nil {
		return n, fmt.Errorf("replaying package store: %w", err)
	}
	ix.updateGauges()
	ix.logger.Info("index loaded from store",
		"packages", n,
		"terms", ix.eng.TermCount(),
	)
	return n, nil
}

// Upsert persists p, then indexes it. The store write happens first so a
// crash between the two leaves the store authoritative.
func (ix *Indexer) Upsert(ctx context.Context, p store.Package) error {
	start := time.Now()
	if err := ix.store.Save(ctx, p); err != nil {
		return apperrors.Newf(apperrors.ErrStoreUnavailable, http.StatusServiceUnavailable,
			"saving package %s: %v", p.Name, err)
	}

	ix.mu.Lock()
	schema := ix.eng.Schema()
	err := ix.eng.InsertDoc(p.Name, p.FieldValues(schema), p.FeatureValues(schema))
	if err == nil {
		ix.updateGauges()
	}
	ix.mu.Unlock()
	if err != nil {
		return fmt.Errorf("indexing package %s: %w", p.Name, err)
	}

	if ix.metrics != nil {
		ix.metrics.DocsIndexedTotal.Inc()
	}
	ix.afterWrite(ctx, p.Name, false, start)
	return nil
}

func (ix *Indexer) Remove(ctx context.Context, name string) (bool, error) {
	start := time.Now()
	stored, err := ix.store.Delete(ctx, name)
	if err != nil {
		return false, apperrors.Newf(apperrors.ErrStoreUnavailable, http.StatusServiceUnavailable,
			"deleting package %s: %v", name, err)
	}

	ix.mu.Lock()
	indexed := ix.eng.DeleteDoc(name)
	ix.updateGauges()
	ix.mu.Unlock()

	if !stored && !indexed {
		return false, nil
	}
	if ix.metrics != nil {
		ix.metrics.DocsDeletedTotal.Inc()
	}
	ix.afterWrite(ctx, name, true, start)
	return true, nil
}

func (ix *Indexer) Query(query string, topK int) []engine.ScoredDoc {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.eng.Query(query, topK)
}

func (ix *Indexer) QueryExplain(query string) []engine.DocExplanation {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.eng.QueryExplain(query)
}

func (ix *Indexer) Suggest(prefix string, limit int) []engine.TermSuggestion {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.eng.Suggest(prefix, limit)
}

func (ix *Indexer) LookupDoc(name string) ([][]string, []float32, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.eng.LookupDoc(name)
}

func (ix *Indexer) DocCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.eng.DocCount()
}

func (ix *Indexer) TermCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.eng.TermCount()
}

// callers hold the write lock
func (ix *Indexer) updateGauges() {
	if ix.metrics == nil {
		return
	}
	ix.metrics.IndexDocCount.Set(float64(ix.eng.DocCount()))
	ix.metrics.IndexTermCount.Set(float64(ix.eng.TermCount()))
}

func (ix *Indexer) afterWrite(ctx context.Context, name string, deleted bool, start time.Time) {
	if ix.invalidate != nil {
		ix.invalidate(ctx)
	}
	if ix.collector != nil {
		ix.collector.Track(stats.IndexEvent{
			Type:      stats.EventIndex,
			Package:   name,
			Deleted:   deleted,
			LatencyMs: time.Since(start).Milliseconds(),
			Timestamp: time.Now().UTC(),
		})
	}
}
