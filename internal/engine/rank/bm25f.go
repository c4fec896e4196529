// Package rank implements the BM25F scoring function used to order search
// results. A stateless scorer is parameterised by a Context describing the
// corpus statistics and schema weights, and reads per-document data through
// the Doc view.
//
// All scoring arithmetic is single-precision. A field whose length norm
// B_f evaluates to NaN (empty field with a zero corpus average) is skipped;
// NaN from any other source is deliberately left to propagate so parameter
// bugs stay visible in the scores.
package rank

import "math"

// Context carries the corpus statistics and parameters for one scoring
// pass. The per-field and per-feature slices are indexed by schema ordinal.
type Context struct {
	// NumDocs is the total number of documents in the corpus.
	NumDocs int
	// DocsWithTerm returns how many documents contain the term.
	DocsWithTerm func(term string) int

	K1             float32
	FieldB         []float32
	FieldWeight    []float32
	AvgFieldLength []float32

	FeatureWeight []float32
	FeatureFunc   []FeatureFunc
}

// Doc is the scorer's view of one document.
type Doc interface {
	// FieldLength returns the number of term occurrences in field f.
	FieldLength(f int) int
	// FieldTermFrequency returns how often term occurs in field f.
	FieldTermFrequency(f int, term string) int
	// FeatureValue returns the raw value of feature phi.
	FeatureValue(phi int) float32
}

// Score computes the BM25F score of doc for the given query terms:
// the sum over terms of idf·tf'/(k1+tf') plus the weighted, shaped
// non-term feature values.
func Score(ctx *Context, doc Doc, terms []string) float32 {
	var score float32
	for _, t := range terms {
		score += termScore(ctx, doc, t)
	}
	for phi := range ctx.FeatureWeight {
		score += featureScore(ctx, doc, phi)
	}
	return score
}

// ScoreTermsBulk returns a scorer for repeated term scoring against one
// document. k1, the field weights, and the per-field length norms are
// hoisted out of the per-term loop; fieldTF holds the term's frequency per
// field ordinal. The result equals the Score term contribution up to
// floating-point rearrangement.
func ScoreTermsBulk(ctx *Context, doc Doc) func(term string, fieldTF []int) float32 {
	k1 := ctx.K1
	weights := ctx.FieldWeight
	norms := make([]float32, len(weights))
	for f := range norms {
		norms[f] = fieldNorm(ctx, doc, f)
	}
	return func(term string, fieldTF []int) float32 {
		var tf float32
		for f, c := range fieldTF {
			if math.IsNaN(float64(norms[f])) {
				continue
			}
			tf += weights[f] * float32(c) / norms[f]
		}
		return idf(ctx, term) * tf / (k1 + tf)
	}
}

// termScore is one term's contribution: idf·tf'/(k1+tf').
func termScore(ctx *Context, doc Doc, term string) float32 {
	tf := weightedTF(ctx, doc, term, ctx.FieldWeight)
	return idf(ctx, term) * tf / (ctx.K1 + tf)
}

// weightedTF computes tf'(D, t) = Σ_f w_f·tf(D, f, t)/B_f(D), skipping
// fields whose norm is NaN.
func weightedTF(ctx *Context, doc Doc, term string, weights []float32) float32 {
	var tf float32
	for f := range weights {
		norm := fieldNorm(ctx, doc, f)
		if math.IsNaN(float64(norm)) {
			continue
		}
		tf += weights[f] * float32(doc.FieldTermFrequency(f, term)) / norm
	}
	return tf
}

// fieldNorm computes B_f(D) = (1-b) + b·len/avg. A zero average with a
// zero length yields 0/0 = NaN, the sentinel for "skip this field".
func fieldNorm(ctx *Context, doc Doc, f int) float32 {
	b := ctx.FieldB[f]
	return (1 - b) + b*float32(doc.FieldLength(f))/ctx.AvgFieldLength[f]
}

// idf computes log(1 + (N - n + 0.5)/(n + 0.5)). The raw odds ratio goes
// negative once a term appears in over half the corpus; the +1 keeps every
// term contribution non-negative, so a matching document always outranks a
// non-matching one.
func idf(ctx *Context, term string) float32 {
	n := float32(ctx.DocsWithTerm(term))
	return float32(math.Log(float64(1 + (float32(ctx.NumDocs)-n+0.5)/(n+0.5))))
}

// featureScore is one feature's contribution: weight·V_φ(value).
func featureScore(ctx *Context, doc Doc, phi int) float32 {
	return ctx.FeatureWeight[phi] * ctx.FeatureFunc[phi].Eval(doc.FeatureValue(phi))
}
