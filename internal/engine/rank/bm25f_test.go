package rank

import (
	"math"
	"testing"
)

// fakeDoc is a hand-built Doc view for scorer tests.
type fakeDoc struct {
	lengths []int
	freqs   []map[string]int
	feats   []float32
}

func (d *fakeDoc) FieldLength(f int) int { return d.lengths[f] }
func (d *fakeDoc) FieldTermFrequency(f int, term string) int {
	return d.freqs[f][term]
}
func (d *fakeDoc) FeatureValue(phi int) float32 { return d.feats[phi] }

// testContext builds a two-field, one-feature context over a ten-document
// corpus where "common" appears in five docs and "rare" in one.
func testContext() *Context {
	return &Context{
		NumDocs: 10,
		DocsWithTerm: func(term string) int {
			switch term {
			case "common":
				return 5
			case "rare":
				return 1
			default:
				return 0
			}
		},
		K1:             1.2,
		FieldB:         []float32{0.75, 0.75},
		FieldWeight:    []float32{2, 1},
		AvgFieldLength: []float32{3, 8},
		FeatureWeight:  []float32{0.5},
		FeatureFunc:    []FeatureFunc{LogarithmicFunc(1)},
	}
}

func testDoc() *fakeDoc {
	return &fakeDoc{
		lengths: []int{3, 10},
		freqs: []map[string]int{
			{"common": 1},
			{"common": 2, "rare": 1},
		},
		feats: []float32{20},
	}
}

func TestScoreMatchesHandComputation(t *testing.T) {
	ctx := testContext()
	doc := testDoc()

	score := Score(ctx, doc, []string{"rare"})

	// Field 0 norm: (1-0.75)+0.75*3/3 = 1. Field 1 norm: 0.25+0.75*10/8.
	norm1 := float32(0.25) + 0.75*10.0/8.0
	tf := float32(1) * 1 / norm1
	idfRare := float32(math.Log(float64(1 + (10.0-1+0.5)/(1+0.5))))
	want := idfRare*tf/(1.2+tf) + 0.5*float32(math.Log(21))

	if diff := math.Abs(float64(score - want)); diff > 1e-6 {
		t.Errorf("Score = %v, want %v (diff %v)", score, want, diff)
	}
}

func TestRareTermOutscoresCommonTerm(t *testing.T) {
	ctx := testContext()
	ctx.FeatureWeight = nil
	ctx.FeatureFunc = nil
	doc := testDoc()

	rare := Score(ctx, doc, []string{"rare"})
	common := Score(ctx, doc, []string{"common"})
	if rare <= common {
		t.Errorf("rare term scored %v, common %v; want rare higher", rare, common)
	}
}

func TestEmptyFieldWithZeroAverageIsSkipped(t *testing.T) {
	ctx := testContext()
	ctx.AvgFieldLength = []float32{0, 8} // field 0 empty corpus-wide
	doc := testDoc()
	doc.lengths = []int{0, 10}
	doc.freqs[0] = map[string]int{}

	score := Score(ctx, doc, []string{"common", "rare"})
	if math.IsNaN(float64(score)) {
		t.Fatal("score is NaN; empty field must be skipped")
	}
	if score <= 0.5*float32(math.Log(21)) {
		t.Errorf("score %v carries no term contribution from the live field", score)
	}
}

func TestScoreMonotoneInTermFrequency(t *testing.T) {
	ctx := testContext()
	ctx.FeatureWeight = nil
	ctx.FeatureFunc = nil

	prev := float32(math.Inf(-1))
	for tf := 0; tf <= 8; tf++ {
		doc := testDoc()
		doc.freqs[1]["rare"] = tf
		s := Score(ctx, doc, []string{"rare"})
		if s < prev {
			t.Fatalf("score decreased when tf rose to %d: %v < %v", tf, s, prev)
		}
		prev = s
	}
}

func TestScoreNonNegativeForUbiquitousTerm(t *testing.T) {
	ctx := testContext()
	ctx.FeatureWeight = nil
	ctx.FeatureFunc = nil
	ctx.DocsWithTerm = func(string) int { return ctx.NumDocs }
	doc := testDoc()
	doc.freqs[0]["everywhere"] = 2
	doc.freqs[1]["everywhere"] = 3

	if s := Score(ctx, doc, []string{"everywhere"}); s < 0 {
		t.Errorf("term in every document produced negative score %v", s)
	}
}

func TestScoreNonNegativeForAbsentTerm(t *testing.T) {
	ctx := testContext()
	ctx.FeatureWeight = nil
	ctx.FeatureFunc = nil
	doc := testDoc()
	if s := Score(ctx, doc, []string{"missing"}); s < 0 {
		t.Errorf("absent term produced negative score %v", s)
	}
}

func TestScoreTermsBulkAgreesWithScore(t *testing.T) {
	ctx := testContext()
	doc := testDoc()
	bulk := ScoreTermsBulk(ctx, doc)

	for _, term := range []string{"common", "rare", "missing"} {
		fieldTF := []int{
			doc.FieldTermFrequency(0, term),
			doc.FieldTermFrequency(1, term),
		}
		got := bulk(term, fieldTF)
		want := termScore(ctx, doc, term)
		if diff := math.Abs(float64(got - want)); diff > 1e-6 {
			t.Errorf("bulk score for %q = %v, want %v", term, got, want)
		}
	}
}

func TestExplainMatchesScoreExactly(t *testing.T) {
	ctx := testContext()
	doc := testDoc()
	terms := []string{"common", "rare"}

	ex := Explain(ctx, doc, terms)
	score := Score(ctx, doc, terms)

	if ex.OverallScore != score {
		t.Errorf("explain overall %v != score %v", ex.OverallScore, score)
	}

	var sum float32
	for _, ts := range ex.TermScores {
		sum += ts.Score
	}
	for _, fs := range ex.NonTermScores {
		sum += fs.Score
	}
	if sum != ex.OverallScore {
		t.Errorf("sum of parts %v != overall %v", sum, ex.OverallScore)
	}

	if got := len(ex.TermFieldScores); got != len(terms)*2 {
		t.Errorf("term-field scores = %d entries, want %d", got, len(terms)*2)
	}
}

func TestFeatureFuncs(t *testing.T) {
	tests := []struct {
		name string
		fn   FeatureFunc
		x    float32
		want float64
	}{
		{"logarithmic", LogarithmicFunc(1), math.E - 1, 1},
		{"rational", RationalFunc(2), 2, 0.5},
		{"sigmoid at zero", SigmoidFunc(1, 1), 0, 0.5},
		{"sigmoid large x", SigmoidFunc(1, 1), 100, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := float64(tc.fn.Eval(tc.x))
			if math.Abs(got-tc.want) > 1e-5 {
				t.Errorf("Eval(%v) = %v, want %v", tc.x, got, tc.want)
			}
		})
	}
}
