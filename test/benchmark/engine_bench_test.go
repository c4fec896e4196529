// Package benchmark contains Go benchmarks for the search engine core —
// index maintenance, extraction, and query scoring — measuring throughput
// and allocation behaviour.
package benchmark

import (
	"fmt"
	"testing"

	"github.com/mfeineis/elm-advanced-package-search/internal/engine"
	"github.com/mfeineis/elm-advanced-package-search/internal/engine/extract"
	"github.com/mfeineis/elm-advanced-package-search/internal/engine/rank"
)

func benchSchema() engine.Schema {
	return engine.Schema{
		K1: 1.2,
		Fields: []engine.FieldSpec{
			{Name: "name", Kind: engine.TextField, Weight: 3, B: 0.5},
			{Name: "synopsis", Kind: engine.TextField, Weight: 2, B: 0.6},
			{Name: "description", Kind: engine.TextField, Weight: 1, B: 0.75},
		},
		Features: []engine.FeatureSpec{
			{Name: "stars", Weight: 0.2, Function: rank.LogarithmicFunc(1)},
		},
	}
}

func newBenchEngine(b *testing.B) *engine.Engine {
	b.Helper()
	e, err := engine.New(benchSchema(), extract.DefaultStopwords(), nil)
	if err != nil {
		b.Fatalf("engine.New: %v", err)
	}
	return e
}

var synopses = []string{
	"parse JSON values into records",
	"a fast HTTP client with connection pooling",
	"command-line argument parsing",
	"streaming decoders for large documents",
	"websocket transport for realtime applications",
	"pretty-printing for diagnostic output",
	"lazy collections and iterators",
	"concurrent worker pools with backpressure",
}

// BenchmarkInsertDoc measures per-document insert throughput including
// extraction and stemming.
func BenchmarkInsertDoc(b *testing.B) {
	e := newBenchEngine(b)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := fmt.Sprintf("pkg-%d", i)
		syn := synopses[i%len(synopses)]
		if err := e.InsertDoc(key, []string{key, syn, syn + " " + syn}, []float32{float32(i % 500)}); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkUpdateDoc measures re-insert throughput over a fixed key set,
// exercising the old/new term diff path.
func BenchmarkUpdateDoc(b *testing.B) {
	e := newBenchEngine(b)
	for i := 0; i < 1000; i++ {
		key := fmt.Sprintf("pkg-%d", i)
		syn := synopses[i%len(synopses)]
		if err := e.InsertDoc(key, []string{key, syn, syn}, []float32{1}); err != nil {
			b.Fatal(err)
		}
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := fmt.Sprintf("pkg-%d", i%1000)
		syn := synopses[(i+3)%len(synopses)]
		if err := e.InsertDoc(key, []string{key, syn, syn}, []float32{2}); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkQuery measures ranked query latency over 10 000 documents.
func BenchmarkQuery(b *testing.B) {
	e := newBenchEngine(b)
	for i := 0; i < 10000; i++ {
		key := fmt.Sprintf("pkg-%d", i)
		syn := synopses[i%len(synopses)]
		if err := e.InsertDoc(key, []string{key, syn, syn}, []float32{float32(i % 500)}); err != nil {
			b.Fatal(err)
		}
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		results := e.Query("parse json documents", 20)
		_ = results
	}
}

// BenchmarkQueryExplain measures the explain path, which re-scores every
// (term, field) pair.
func BenchmarkQueryExplain(b *testing.B) {
	e := newBenchEngine(b)
	for i := 0; i < 1000; i++ {
		key := fmt.Sprintf("pkg-%d", i)
		syn := synopses[i%len(synopses)]
		if err := e.InsertDoc(key, []string{key, syn, syn}, []float32{1}); err != nil {
			b.Fatal(err)
		}
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		results := e.QueryExplain("streaming decoder")
		_ = results
	}
}

// BenchmarkSynopsisExtraction measures the tokenise/split/stem pipeline in
// isolation.
func BenchmarkSynopsisExtraction(b *testing.B) {
	stop := extract.DefaultStopwords()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		terms := extract.SynopsisTerms(stop, "a command-line tool for encoding/decoding JSON documents")
		_ = terms
	}
}
