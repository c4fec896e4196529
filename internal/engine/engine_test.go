package engine

import (
	"math"
	"testing"

	"github.com/mfeineis/elm-advanced-package-search/internal/engine/extract"
	"github.com/mfeineis/elm-advanced-package-search/internal/engine/rank"
)

// testSchema is a title+body schema with a single popularity feature, close
// to what the package index runs in production.
func testSchema() Schema {
	return Schema{
		K1: 1.2,
		Fields: []FieldSpec{
			{Name: "title", Kind: TextField, Weight: 3, B: 0.5},
			{Name: "body", Kind: TextField, Weight: 1, B: 0.75},
		},
		Features: []FeatureSpec{
			{Name: "stars", Weight: 0.1, Function: rank.LogarithmicFunc(1)},
		},
	}
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(testSchema(), extract.NewStopwords("the"), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func insert(t *testing.T, e *Engine, key, title, body string, stars float32) {
	t.Helper()
	if err := e.InsertDoc(key, []string{title, body}, []float32{stars}); err != nil {
		t.Fatalf("InsertDoc(%q): %v", key, err)
	}
}

func TestEmptyIndex(t *testing.T) {
	e := newTestEngine(t)

	if got := e.DocCount(); got != 0 {
		t.Fatalf("DocCount = %d, want 0", got)
	}
	if got := e.Query("hello", 10); len(got) != 0 {
		t.Fatalf("query on empty index returned %v", got)
	}

	insert(t, e, "k1", "", "hello world", 0)

	if got := e.DocCount(); got != 1 {
		t.Fatalf("DocCount = %d, want 1", got)
	}
	results := e.Query("hello", 10)
	if len(results) != 1 || results[0].Key != "k1" {
		t.Fatalf("Query(hello) = %v, want single hit for k1", results)
	}
	if results[0].Score <= 0 {
		t.Errorf("score = %v, want > 0", results[0].Score)
	}
}

func TestStemmingMatchesAcrossForms(t *testing.T) {
	e := newTestEngine(t)
	insert(t, e, "k1", "", "running dogs", 0)
	insert(t, e, "k2", "", "runs dog", 0)

	results := e.Query("run dog", 10)
	if len(results) != 2 {
		t.Fatalf("Query(run dog) = %v, want both docs", results)
	}
	keys := map[string]bool{results[0].Key: true, results[1].Key: true}
	if !keys["k1"] || !keys["k2"] {
		t.Errorf("hits = %v, want k1 and k2", keys)
	}
}

func TestUpdateReplacesTerms(t *testing.T) {
	e := newTestEngine(t)
	insert(t, e, "k1", "", "alpha beta", 0)
	insert(t, e, "k1", "", "alpha gamma", 0)

	if got := e.DocCount(); got != 1 {
		t.Errorf("DocCount = %d, want 1", got)
	}
	if got := e.Query("beta", 10); len(got) != 0 {
		t.Errorf("beta still matches after update: %v", got)
	}
	for _, q := range []string{"alpha", "gamma"} {
		got := e.Query(q, 10)
		if len(got) != 1 || got[0].Key != "k1" {
			t.Errorf("Query(%q) = %v, want k1", q, got)
		}
	}
}

func TestDeleteEmptiesEngine(t *testing.T) {
	e := newTestEngine(t)
	insert(t, e, "k1", "", "alpha beta", 0)
	insert(t, e, "k1", "", "alpha gamma", 0)

	if !e.DeleteDoc("k1") {
		t.Fatal("DeleteDoc reported absent")
	}
	if got := e.DocCount(); got != 0 {
		t.Errorf("DocCount = %d, want 0", got)
	}
	if got := e.TermCount(); got != 0 {
		t.Errorf("TermCount = %d, want 0", got)
	}
	if _, _, ok := e.LookupDoc("k1"); ok {
		t.Error("LookupDoc found deleted doc")
	}
}

func TestEmptyTitleFieldDoesNotPoisonScores(t *testing.T) {
	e := newTestEngine(t)
	insert(t, e, "k1", "", "parser combinators", 5)
	insert(t, e, "k2", "", "parser generators", 2)

	for _, r := range e.Query("parser", 10) {
		if math.IsNaN(float64(r.Score)) {
			t.Errorf("doc %s scored NaN with an empty title field", r.Key)
		}
	}
}

func TestQueryOrderingAndTiebreak(t *testing.T) {
	e := newTestEngine(t)
	// Identical content: scores tie, keys break the tie ascending.
	insert(t, e, "zeta", "", "socket network", 0)
	insert(t, e, "alpha", "", "socket network", 0)
	insert(t, e, "mid", "socket", "socket network socket", 0)

	results := e.Query("socket", 10)
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].Key != "mid" {
		t.Errorf("top hit = %q, want mid (title match + higher tf)", results[0].Key)
	}
	if results[1].Key != "alpha" || results[2].Key != "zeta" {
		t.Errorf("tied docs ordered %q, %q; want alpha before zeta", results[1].Key, results[2].Key)
	}
	if results[1].Score != results[2].Score {
		t.Errorf("expected exact tie, got %v vs %v", results[1].Score, results[2].Score)
	}
}

func TestQueryTopK(t *testing.T) {
	e := newTestEngine(t)
	insert(t, e, "a", "", "cache", 0)
	insert(t, e, "b", "", "cache", 0)
	insert(t, e, "c", "", "cache", 0)

	if got := e.Query("cache", 2); len(got) != 2 {
		t.Errorf("topK=2 returned %d results", len(got))
	}
	if got := e.Query("cache", 0); len(got) != 0 {
		t.Errorf("topK=0 returned %d results", len(got))
	}
}

func TestQueryExplainAgreesWithQuery(t *testing.T) {
	e := newTestEngine(t)
	insert(t, e, "k1", "json decoding", "decode json values safely", 40)
	insert(t, e, "k2", "yaml parsing", "parse yaml and json documents", 7)

	query := "json decode"
	ranked := e.Query(query, 10)
	explained := e.QueryExplain(query)

	if len(ranked) != len(explained) {
		t.Fatalf("Query returned %d, QueryExplain %d", len(ranked), len(explained))
	}
	for i := range ranked {
		if ranked[i].Key != explained[i].Key {
			t.Errorf("rank %d: Query %q vs Explain %q", i, ranked[i].Key, explained[i].Key)
		}
		if ranked[i].Score != explained[i].Explanation.OverallScore {
			t.Errorf("doc %s: score %v vs explained %v",
				ranked[i].Key, ranked[i].Score, explained[i].Explanation.OverallScore)
		}
		var sum float32
		for _, ts := range explained[i].Explanation.TermScores {
			sum += ts.Score
		}
		for _, fs := range explained[i].Explanation.NonTermScores {
			sum += fs.Score
		}
		if sum != explained[i].Explanation.OverallScore {
			t.Errorf("doc %s: parts sum to %v, overall %v",
				ranked[i].Key, sum, explained[i].Explanation.OverallScore)
		}
	}
}

func TestFeatureValuesInfluenceRanking(t *testing.T) {
	e := newTestEngine(t)
	insert(t, e, "obscure", "", "http client", 0)
	insert(t, e, "popular", "", "http client", 10000)

	results := e.Query("http", 10)
	if len(results) != 2 {
		t.Fatalf("got %d results", len(results))
	}
	if results[0].Key != "popular" {
		t.Errorf("top hit = %q, want the starred package", results[0].Key)
	}
}

func TestLookupDoc(t *testing.T) {
	e := newTestEngine(t)
	insert(t, e, "k1", "tiny parser", "parse things", 3)

	fields, feats, ok := e.LookupDoc("k1")
	if !ok {
		t.Fatal("LookupDoc absent")
	}
	if len(fields) != 2 {
		t.Fatalf("got %d fields", len(fields))
	}
	if len(fields[0]) != 2 {
		t.Errorf("title terms = %v, want two", fields[0])
	}
	if feats[0] != 3 {
		t.Errorf("stars = %v, want 3", feats[0])
	}

	if _, _, ok := e.LookupDoc("missing"); ok {
		t.Error("LookupDoc found a key never inserted")
	}
}

func TestSuggest(t *testing.T) {
	e := newTestEngine(t)
	insert(t, e, "k1", "", "car card care", 0)
	insert(t, e, "k2", "", "card dog", 0)

	got := e.Suggest("car", 10)
	want := []string{"car", "card", "care"}
	if len(got) != len(want) {
		t.Fatalf("Suggest(car) = %v, want %v", got, want)
	}
	for i, s := range got {
		if s.Term != want[i] {
			t.Errorf("suggestion %d = %q, want %q", i, s.Term, want[i])
		}
	}
	if got[1].Docs != 2 {
		t.Errorf("card doc count = %d, want 2", got[1].Docs)
	}

	if got := e.Suggest("", 10); len(got) != 0 {
		t.Errorf("empty prefix suggested %v", got)
	}
	if got := e.Suggest("CAR", 2); len(got) != 2 {
		t.Errorf("case-folded prefix with limit returned %d", len(got))
	}
}

func TestMalformedQueriesYieldNothing(t *testing.T) {
	e := newTestEngine(t)
	insert(t, e, "k1", "", "hello world", 0)

	for _, q := range []string{"", "   ", ",,, !!!", "the"} {
		if got := e.Query(q, 10); len(got) != 0 {
			t.Errorf("Query(%q) = %v, want empty", q, got)
		}
	}
}

func TestSchemaValidation(t *testing.T) {
	tests := []struct {
		name   string
		schema Schema
	}{
		{"no fields", Schema{K1: 1.2}},
		{"bad k1", Schema{K1: 0, Fields: []FieldSpec{{Name: "f", B: 0.5}}}},
		{"bad b", Schema{K1: 1.2, Fields: []FieldSpec{{Name: "f", B: 1.5}}}},
		{"dup field", Schema{K1: 1.2, Fields: []FieldSpec{{Name: "f", B: 0.5}, {Name: "f", B: 0.5}}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.schema, nil, nil); err == nil {
				t.Error("New accepted an invalid schema")
			}
		})
	}
}

func TestInsertRejectsShapeMismatch(t *testing.T) {
	e := newTestEngine(t)
	if err := e.InsertDoc("k", []string{"only one field"}, []float32{1}); err == nil {
		t.Error("field count mismatch accepted")
	}
	if err := e.InsertDoc("k", []string{"a", "b"}, nil); err == nil {
		t.Error("feature count mismatch accepted")
	}
	if err := e.InsertDoc("", []string{"a", "b"}, []float32{1}); err == nil {
		t.Error("empty key accepted")
	}
}
