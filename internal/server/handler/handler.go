// Package handler implements the HTTP endpoints of the package-search
// backend: ranked search with optional explain, package upsert/delete,
// browse listing, and aggregate stats.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/mfeineis/elm-advanced-package-search/internal/engine"
	"github.com/mfeineis/elm-advanced-package-search/internal/indexer"
	"github.com/mfeineis/elm-advanced-package-search/internal/search"
	"github.com/mfeineis/elm-advanced-package-search/internal/server/cache"
	"github.com/mfeineis/elm-advanced-package-search/internal/stats"
	"github.com/mfeineis/elm-advanced-package-search/internal/store"
	apperrors "github.com/mfeineis/elm-advanced-package-search/pkg/errors"
	"github.com/mfeineis/elm-advanced-package-search/pkg/logger"
	"github.com/mfeineis/elm-advanced-package-search/pkg/metrics"
)

// Handler serves the package-search API.
type Handler struct {
	searcher   *search.Searcher
	index      *indexer.Indexer
	store      *store.Store
	cache      *cache.QueryCache // nil when Redis is unavailable
	collector  *stats.Collector  // may be nil
	aggregator *stats.Aggregator // may be nil
	metrics    *metrics.Metrics

	defaultLimit int
	maxResults   int
	logger       *slog.Logger
}

// Config carries the handler's collaborators; Cache, Collector, and
// Aggregator may be nil.
type Config struct {
	Searcher   *search.Searcher
	Index      *indexer.Indexer
	Store      *store.Store
	Cache      *cache.QueryCache
	Collector  *stats.Collector
	Aggregator *stats.Aggregator
	Metrics    *metrics.Metrics

	DefaultLimit int
	MaxResults   int
}

// New creates a Handler.
func New(cfg Config) *Handler {
	return &Handler{
		searcher:     cfg.Searcher,
		index:        cfg.Index,
		store:        cfg.Store,
		cache:        cfg.Cache,
		collector:    cfg.Collector,
		aggregator:   cfg.Aggregator,
		metrics:      cfg.Metrics,
		defaultLimit: cfg.DefaultLimit,
		maxResults:   cfg.MaxResults,
		logger:       slog.Default().With("component", "api-handler"),
	}
}

// Search handles GET /api/v1/search?q=&limit=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	limit, ok := h.parseLimit(w, r)
	if !ok {
		return
	}

	var result *search.Result
	cacheHit := false
	if h.cache != nil {
		result, cacheHit = h.cache.GetOrCompute(ctx, query, limit, func() *search.Result {
			return h.searcher.Execute(ctx, query, limit)
		})
	} else {
		result = h.searcher.Execute(ctx, query, limit)
	}

	if h.metrics != nil {
		outcome := "miss"
		if cacheHit {
			outcome = "hit"
			h.metrics.CacheHitsTotal.Inc()
		} else {
			h.metrics.CacheMissesTotal.Inc()
		}
		h.metrics.SearchQueriesTotal.WithLabelValues(outcome).Inc()
		h.metrics.SearchLatency.Observe(time.Since(start).Seconds())
		h.metrics.SearchResultsCount.Observe(float64(len(result.Results)))
	}
	if h.collector != nil {
		h.collector.Track(stats.SearchEvent{
			Type:      stats.EventSearch,
			Query:     query,
			TotalHits: result.TotalHits,
			Returned:  len(result.Results),
			LatencyMs: time.Since(start).Milliseconds(),
			CacheHit:  cacheHit,
			Timestamp: time.Now().UTC(),
		})
	}
	log.Debug("search served",
		"query", query,
		"hits", result.TotalHits,
		"cache_hit", cacheHit,
		"elapsed", time.Since(start),
	)
	h.writeJSON(w, http.StatusOK, result)
}

// SearchExplain handles GET /api/v1/search/explain?q=.
func (h *Handler) SearchExplain(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	h.writeJSON(w, http.StatusOK, h.searcher.Explain(r.Context(), query))
}

// Suggest handles GET /api/v1/search/suggest?prefix=, serving query
// completion from the indexed term set.
func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")
	if prefix == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'prefix' is required")
		return
	}
	limit, ok := h.parseLimit(w, r)
	if !ok {
		return
	}
	suggestions := h.index.Suggest(prefix, limit)
	if suggestions == nil {
		suggestions = []engine.TermSuggestion{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"prefix":      prefix,
		"suggestions": suggestions,
	})
}

// upsertRequest is the JSON body accepted by PutPackage.
type upsertRequest struct {
	Synopsis    string  `json:"synopsis"`
	Description string  `json:"description"`
	Stars       float64 `json:"stars"`
	Downloads   float64 `json:"downloads"`
}

// PutPackage handles PUT /api/v1/packages/{name}.
func (h *Handler) PutPackage(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		h.writeError(w, http.StatusBadRequest, "package name is required")
		return
	}
	var req upsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	pkg := store.Package{
		Name:        name,
		Synopsis:    req.Synopsis,
		Description: req.Description,
		Stars:       req.Stars,
		Downloads:   req.Downloads,
	}
	if err := h.index.Upsert(r.Context(), pkg); err != nil {
		h.logger.Error("package upsert failed", "package", name, "error", err)
		h.writeError(w, apperrors.HTTPStatusCode(err), "failed to store package")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{
		"name":   name,
		"status": "indexed",
	})
}

// DeletePackage handles DELETE /api/v1/packages/{name}.
func (h *Handler) DeletePackage(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		h.writeError(w, http.StatusBadRequest, "package name is required")
		return
	}
	existed, err := h.index.Remove(r.Context(), name)
	if err != nil {
		h.logger.Error("package delete failed", "package", name, "error", err)
		h.writeError(w, apperrors.HTTPStatusCode(err), "failed to delete package")
		return
	}
	if !existed {
		h.writeError(w, http.StatusNotFound, "package not found")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{
		"name":   name,
		"status": "deleted",
	})
}

// GetPackage handles GET /api/v1/packages/{name}.
func (h *Handler) GetPackage(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		h.writeError(w, http.StatusBadRequest, "package name is required")
		return
	}
	pkg, err := h.store.Get(r.Context(), name)
	if err != nil {
		if errors.Is(err, apperrors.ErrPackageNotFound) {
			h.writeError(w, http.StatusNotFound, "package not found")
			return
		}
		h.logger.Error("package fetch failed", "package", name, "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to fetch package")
		return
	}
	h.writeJSON(w, http.StatusOK, pkg)
}

// ListPackages handles GET /api/v1/packages with limit/offset pagination,
// ordered by name.
func (h *Handler) ListPackages(w http.ResponseWriter, r *http.Request) {
	limit := 20
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if parsed > h.maxResults {
			parsed = h.maxResults
		}
		limit = parsed
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			h.writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		offset = parsed
	}

	pkgs, total, err := h.store.List(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("package listing failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to list packages")
		return
	}
	if pkgs == nil {
		pkgs = []store.Package{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"packages": pkgs,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

// Stats handles GET /api/v1/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"doc_count":  h.index.DocCount(),
		"term_count": h.index.TermCount(),
	}
	if h.cache != nil {
		hits, misses := h.cache.Stats()
		resp["cache"] = map[string]int64{"hits": hits, "misses": misses}
	}
	if h.aggregator != nil {
		resp["queries"] = h.aggregator.Stats()
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// parseLimit reads and bounds the limit query parameter.
func (h *Handler) parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	limit := h.defaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return 0, false
		}
		if parsed > h.maxResults {
			parsed = h.maxResults
		}
		limit = parsed
	}
	return limit, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
