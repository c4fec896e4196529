// Package engine assembles the inverted index, the BM25F ranker, and the
// text extractor behind one facade. An Engine indexes documents given as
// per-field raw strings plus per-feature values, and answers ranked
// queries over them.
//
// The engine is a live in-memory structure: mutations must be serialised
// by the caller, reads may share a quiescent engine freely, and
// durability, if wanted, is the caller's concern.
package engine

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/mfeineis/elm-advanced-package-search/internal/engine/extract"
	"github.com/mfeineis/elm-advanced-package-search/internal/engine/index"
	"github.com/mfeineis/elm-advanced-package-search/internal/engine/markup"
	"github.com/mfeineis/elm-advanced-package-search/internal/engine/rank"
)

// Engine is the search engine facade.
type Engine struct {
	schema Schema
	idx    *index.Index
	stop   extract.Stopwords
	parse  markup.ParseFunc

	// fieldLenTotals tracks the summed field lengths across all indexed
	// documents, per field ordinal, so average field lengths reflect the
	// current corpus without a full walk.
	fieldLenTotals []int64

	logger *slog.Logger
}

// ScoredDoc is one ranked query result.
type ScoredDoc struct {
	Key   string  `json:"key"`
	Score float32 `json:"score"`
}

// DocExplanation pairs a document key with its full score breakdown.
type DocExplanation struct {
	Key         string           `json:"key"`
	Explanation rank.Explanation `json:"explanation"`
}

// New creates an engine for the given schema. stop is the stop-word set
// applied by the extractor; parse turns markup-field text into a markup
// tree (markup.PlainText serves callers without a parser).
func New(schema Schema, stop extract.Stopwords, parse markup.ParseFunc) (*Engine, error) {
	if err := schema.validate(); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	if parse == nil {
		parse = markup.PlainText
	}
	return &Engine{
		schema:         schema,
		idx:            index.New(len(schema.Fields)),
		stop:           stop,
		parse:          parse,
		fieldLenTotals: make([]int64, len(schema.Fields)),
		logger:         slog.Default().With("component", "search-engine"),
	}, nil
}

// Schema returns the engine's schema.
func (e *Engine) Schema() *Schema {
	return &e.schema
}

// DocCount returns the number of indexed documents.
func (e *Engine) DocCount() int {
	return e.idx.DocCount()
}

// TermCount returns the number of distinct indexed terms.
func (e *Engine) TermCount() int {
	return e.idx.TermCount()
}

// InsertDoc extracts and indexes a document. fields holds the raw text per
// field ordinal, feats the raw value per feature ordinal. Inserting an
// existing key replaces its document.
func (e *Engine) InsertDoc(key string, fields []string, feats []float32) error {
	if key == "" {
		return fmt.Errorf("document key must not be empty")
	}
	if len(fields) != len(e.schema.Fields) {
		return fmt.Errorf("document has %d fields, schema expects %d", len(fields), len(e.schema.Fields))
	}
	if len(feats) != len(e.schema.Features) {
		return fmt.Errorf("document has %d feature values, schema expects %d", len(feats), len(e.schema.Features))
	}

	fieldTerms := make([][]string, len(fields))
	for f, raw := range fields {
		switch e.schema.Fields[f].Kind {
		case MarkupField:
			fieldTerms[f] = extract.DescriptionTerms(e.stop, e.parse, raw)
		default:
			fieldTerms[f] = extract.SynopsisTerms(e.stop, raw)
		}
	}

	e.subtractFieldLengths(key)
	e.idx.InsertDoc(key, fieldTerms, feats)
	for f, terms := range fieldTerms {
		e.fieldLenTotals[f] += int64(len(terms))
	}

	e.logger.Debug("document indexed",
		"key", key,
		"terms", e.idx.TermCount(),
		"docs", e.idx.DocCount(),
	)
	return nil
}

// DeleteDoc removes a document. It reports whether the key was indexed.
func (e *Engine) DeleteDoc(key string) bool {
	e.subtractFieldLengths(key)
	deleted := e.idx.DeleteDoc(key)
	if deleted {
		e.logger.Debug("document deleted", "key", key, "docs", e.idx.DocCount())
	}
	return deleted
}

// subtractFieldLengths removes key's current field lengths from the
// running totals, if the key is indexed.
func (e *Engine) subtractFieldLengths(key string) {
	dt, ok := e.idx.LookupDocKey(key)
	if !ok {
		return
	}
	for f := range e.fieldLenTotals {
		e.fieldLenTotals[f] -= int64(dt.FieldLength(f))
	}
}

// LookupDoc returns the indexed terms of a document, resolved back to
// strings per field ordinal, plus its feature values.
func (e *Engine) LookupDoc(key string) ([][]string, []float32, bool) {
	dt, ok := e.idx.LookupDocKey(key)
	if !ok {
		return nil, nil, false
	}
	fields := make([][]string, dt.NumFields())
	for f := 0; f < dt.NumFields(); f++ {
		ids := dt.FieldElems(f)
		fields[f] = make([]string, len(ids))
		for i, id := range ids {
			fields[f][i] = e.idx.Term(id)
		}
	}
	feats, _ := e.idx.FeatValsOf(key)
	return fields, feats, true
}

// TermSuggestion is one completion candidate for a query prefix.
type TermSuggestion struct {
	Term string `json:"term"`
	Docs int    `json:"docs"`
}

// Suggest returns up to limit indexed terms starting with prefix, in
// lexicographic order, each with the number of documents containing it.
// An empty prefix yields nothing.
func (e *Engine) Suggest(prefix string, limit int) []TermSuggestion {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	matches := e.idx.LookupTermsByPrefix(prefix)
	if limit >= 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]TermSuggestion, len(matches))
	for i, m := range matches {
		out[i] = TermSuggestion{Term: m.Term, Docs: m.Docs.Size()}
	}
	return out
}

// Query runs a ranked search and returns at most topK results, ordered by
// descending score with ties broken by ascending document key.
func (e *Engine) Query(query string, topK int) []ScoredDoc {
	terms, candidates := e.matchCandidates(query)
	if len(candidates) == 0 {
		return nil
	}

	ctx := e.rankContext()
	results := make([]ScoredDoc, 0, len(candidates))
	for _, d := range candidates {
		key, doc := e.docView(d)
		results = append(results, ScoredDoc{
			Key:   key,
			Score: rank.Score(ctx, doc, terms),
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Key < results[j].Key
	})
	if topK >= 0 && len(results) > topK {
		results = results[:topK]
	}
	return results
}

// QueryExplain runs a ranked search and returns every candidate with a
// full score breakdown, in the same order Query would rank them.
func (e *Engine) QueryExplain(query string) []DocExplanation {
	terms, candidates := e.matchCandidates(query)
	if len(candidates) == 0 {
		return nil
	}

	ctx := e.rankContext()
	results := make([]DocExplanation, 0, len(candidates))
	for _, d := range candidates {
		key, doc := e.docView(d)
		results = append(results, DocExplanation{
			Key:         key,
			Explanation: rank.Explain(ctx, doc, terms),
		})
	}
	sort.Slice(results, func(i, j int) bool {
		si, sj := results[i].Explanation.OverallScore, results[j].Explanation.OverallScore
		if si != sj {
			return si > sj
		}
		return results[i].Key < results[j].Key
	})
	return results
}

// matchCandidates extracts the query terms and unions their posting sets.
func (e *Engine) matchCandidates(query string) ([]string, index.DocIDSet) {
	terms := extract.QueryTerms(e.stop, query)
	if len(terms) == 0 {
		return nil, nil
	}
	var candidates index.DocIDSet
	seen := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		if _, docs, ok := e.idx.LookupTerm(t); ok {
			candidates = candidates.Union(docs)
		}
	}
	return terms, candidates
}

// rankContext snapshots the corpus statistics and schema parameters into a
// scoring context.
func (e *Engine) rankContext() *rank.Context {
	n := e.idx.DocCount()
	avg := make([]float32, len(e.schema.Fields))
	fieldB := make([]float32, len(e.schema.Fields))
	weight := make([]float32, len(e.schema.Fields))
	for f, spec := range e.schema.Fields {
		if n > 0 {
			avg[f] = float32(e.fieldLenTotals[f]) / float32(n)
		}
		fieldB[f] = spec.B
		weight[f] = spec.Weight
	}
	featWeight := make([]float32, len(e.schema.Features))
	featFunc := make([]rank.FeatureFunc, len(e.schema.Features))
	for phi, spec := range e.schema.Features {
		featWeight[phi] = spec.Weight
		featFunc[phi] = spec.Function
	}
	return &rank.Context{
		NumDocs: n,
		DocsWithTerm: func(term string) int {
			if _, docs, ok := e.idx.LookupTerm(term); ok {
				return docs.Size()
			}
			return 0
		},
		K1:             e.schema.K1,
		FieldB:         fieldB,
		FieldWeight:    weight,
		AvgFieldLength: avg,
		FeatureWeight:  featWeight,
		FeatureFunc:    featFunc,
	}
}

// docView adapts one indexed document to the ranker's Doc interface.
func (e *Engine) docView(d index.DocID) (string, rank.Doc) {
	key, terms, feats := e.idx.LookupDocID(d)
	return key, &docView{idx: e.idx, terms: terms, feats: feats}
}

type docView struct {
	idx   *index.Index
	terms *index.DocTermIDs
	feats index.DocFeatVals
}

func (v *docView) FieldLength(f int) int {
	return v.terms.FieldLength(f)
}

func (v *docView) FieldTermFrequency(f int, term string) int {
	id, ok := v.idx.TermIDOf(term)
	if !ok {
		return 0
	}
	return v.terms.FieldTermCount(f, id)
}

func (v *docView) FeatureValue(phi int) float32 {
	return v.feats.Lookup(phi)
}
