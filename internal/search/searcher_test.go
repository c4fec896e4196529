package search

import (
	"context"
	"testing"

	"github.com/mfeineis/elm-advanced-package-search/internal/engine"
	"github.com/mfeineis/elm-advanced-package-search/internal/engine/extract"
	"github.com/mfeineis/elm-advanced-package-search/internal/engine/rank"
	"github.com/mfeineis/elm-advanced-package-search/internal/indexer"
)

func newTestIndex(t *testing.T) *indexer.Indexer {
	t.Helper()
	schema := engine.Schema{
		K1: 1.2,
		Fields: []engine.FieldSpec{
			{Name: "name", Kind: engine.TextField, Weight: 3, B: 0.5},
			{Name: "synopsis", Kind: engine.TextField, Weight: 1, B: 0.75},
		},
		Features: []engine.FeatureSpec{
			{Name: "stars", Weight: 0.1, Function: rank.LogarithmicFunc(1)},
		},
	}
	eng, err := engine.New(schema, extract.DefaultStopwords(), nil)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	for _, doc := range []struct {
		key, name, synopsis string
	}{
		{"json-decode", "json decode", "turn json values into records"},
		{"json-encode", "json encode", "turn records into json values"},
		{"http-client", "http client", "requests over the network"},
	} {
		if err := eng.InsertDoc(doc.key, []string{doc.name, doc.synopsis}, []float32{1}); err != nil {
			t.Fatalf("InsertDoc(%q): %v", doc.key, err)
		}
	}
	return indexer.New(eng, nil)
}

func TestExecuteLimitsAndCounts(t *testing.T) {
	s := New(newTestIndex(t))

	result := s.Execute(context.Background(), "json", 1)
	if result.TotalHits != 2 {
		t.Errorf("TotalHits = %d, want 2", result.TotalHits)
	}
	if len(result.Results) != 1 {
		t.Errorf("returned %d results, want 1 (limit)", len(result.Results))
	}
	if result.Query != "json" {
		t.Errorf("Query echoed as %q", result.Query)
	}
}

func TestExecuteNoMatches(t *testing.T) {
	s := New(newTestIndex(t))

	result := s.Execute(context.Background(), "nonexistent", 10)
	if result.TotalHits != 0 {
		t.Errorf("TotalHits = %d, want 0", result.TotalHits)
	}
	if result.Results == nil || len(result.Results) != 0 {
		t.Errorf("Results = %#v, want empty non-nil slice", result.Results)
	}
}

func TestExplainMirrorsExecute(t *testing.T) {
	s := New(newTestIndex(t))

	executed := s.Execute(context.Background(), "json", -1)
	explained := s.Explain(context.Background(), "json")
	if len(explained.Results) != executed.TotalHits {
		t.Fatalf("Explain returned %d docs, Execute matched %d", len(explained.Results), executed.TotalHits)
	}
	for i, r := range executed.Results {
		if explained.Results[i].Key != r.Key {
			t.Errorf("rank %d: execute %q vs explain %q", i, r.Key, explained.Results[i].Key)
		}
		if explained.Results[i].Explanation.OverallScore != r.Score {
			t.Errorf("doc %s: scores differ", r.Key)
		}
	}
}
