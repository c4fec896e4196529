package stats

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// latencyWindow bounds the retained latency samples; percentiles cover the
// most recent window rather than the whole process lifetime.
const latencyWindow = 4096

type AggregatedStats struct {
	TotalSearches     int64        `json:"total_searches"`
	TotalIndexed      int64        `json:"total_indexed"`
	CacheHits         int64        `json:"cache_hits"`
	CacheMisses       int64        `json:"cache_misses"`
	ZeroResultCount   int64        `json:"zero_result_count"`
	AvgLatencyMs      float64      `json:"avg_latency_ms"`
	P50LatencyMs      int64        `json:"p50_latency_ms"`
	P95LatencyMs      int64        `json:"p95_latency_ms"`
	P99LatencyMs      int64        `json:"p99_latency_ms"`
	TopQueries        []QueryCount `json:"top_queries"`
	ZeroResultQueries []QueryCount `json:"zero_result_queries"`
	QueriesPerMinute  float64      `json:"queries_per_minute"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

type queryStat struct {
	count int64
	zero  int64
}

type Aggregator struct {
	mu          sync.Mutex
	searches    int64
	indexed     int64
	cacheHits   int64
	cacheMisses int64
	zeroResults int64
	latencies   [latencyWindow]int64
	latSeen     int64
	queries     map[string]*queryStat
	started     time.Time

	reader *kafka.Reader
	logger *slog.Logger
}

// NewAggregator creates an Aggregator fed by reader. A nil reader is
// allowed; events then only arrive via direct Record calls in tests.
func NewAggregator(reader *kafka.Reader) *Aggregator {
	return &Aggregator{
		queries: make(map[string]*queryStat),
		started: time.Now(),
		reader:  reader,
		logger:  slog.Default().With("component", "stats-aggregator"),
	}
}

// Start consumes until ctx is cancelled. Analytics are best-effort: every
// message is committed, decoded or not.
func (a *Aggregator) Start(ctx context.Context) error {
	a.logger.Info("stats aggregator starting")
	for {
		msg, err := a.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				a.logger.Info("stats aggregator stopping", "reason", ctx.Err())
				return a.reader.Close()
			}
			a.logger.Error("failed to fetch message", "error", err)
			continue
		}
		a.consume(msg.Value)
		if err := a.reader.CommitMessages(ctx, msg); err != nil {
			a.logger.Error("failed to commit message", "offset", msg.Offset, "error", err)
		}
	}
}

func (a *Aggregator) consume(value []byte) {
	var envelope struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(value, &envelope); err != nil {
		a.logger.Warn("undecodable stats event", "error", err)
		return
	}
	switch envelope.Type {
	case EventSearch:
		var event SearchEvent
		if err := json.Unmarshal(value, &event); err == nil {
			a.RecordSearch(event)
		}
	case EventIndex:
		var event IndexEvent
		if err := json.Unmarshal(value, &event); err == nil {
			a.RecordIndex(event)
		}
	default:
		a.logger.Warn("unrecognised stats event", "type", string(envelope.Type))
	}
}

func (a *Aggregator) RecordSearch(event SearchEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.searches++
	if event.CacheHit {
		a.cacheHits++
	} else {
		a.cacheMisses++
	}
	a.latencies[a.latSeen%latencyWindow] = event.LatencyMs
	a.latSeen++

	qs := a.queries[event.Query]
	if qs == nil {
		qs = &queryStat{}
		a.queries[event.Query] = qs
	}
	qs.count++
	if event.TotalHits == 0 {
		a.zeroResults++
		qs.zero++
	}
}

func (a *Aggregator) RecordIndex(event IndexEvent) {
	a.mu.Lock()
	a.indexed++
	a.mu.Unlock()
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	stats := AggregatedStats{
		TotalSearches:     a.searches,
		TotalIndexed:      a.indexed,
		CacheHits:         a.cacheHits,
		CacheMisses:       a.cacheMisses,
		ZeroResultCount:   a.zeroResults,
		TopQueries:        a.topQueries(func(s *queryStat) int64 { return s.count }, 10),
		ZeroResultQueries: a.topQueries(func(s *queryStat) int64 { return s.zero }, 10),
	}

	n := a.latSeen
	if n > latencyWindow {
		n = latencyWindow
	}
	if n > 0 {
		window := make([]int64, n)
		copy(window, a.latencies[:n])
		sort.Slice(window, func(i, j int) bool { return window[i] < window[j] })

		var sum int64
		for _, l := range window {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(n)
		stats.P50LatencyMs = nearestRank(window, 50)
		stats.P95LatencyMs = nearestRank(window, 95)
		stats.P99LatencyMs = nearestRank(window, 99)
	}

	if elapsed := time.Since(a.started).Minutes(); elapsed > 0 {
		stats.QueriesPerMinute = float64(a.searches) / elapsed
	}
	return stats
}

// topQueries ranks queries by the selected counter, dropping zero entries.
// Equal counts order alphabetically for a stable listing.
func (a *Aggregator) topQueries(by func(*queryStat) int64, n int) []QueryCount {
	out := make([]QueryCount, 0, len(a.queries))
	for query, qs := range a.queries {
		if c := by(qs); c > 0 {
			out = append(out, QueryCount{Query: query, Count: c})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Query < out[j].Query
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// nearestRank returns the pct-th percentile of a sorted sample.
func nearestRank(sorted []int64, pct int) int64 {
	idx := (pct*len(sorted)+99)/100 - 1
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}
