package rank

// TermScore is a single query term's contribution to a document's score.
type TermScore struct {
	Term  string  `json:"term"`
	Score float32 `json:"score"`
}

// FeatureScore is a single non-term feature's contribution.
type FeatureScore struct {
	Feature int     `json:"feature"`
	Score   float32 `json:"score"`
}

// TermFieldScore is the score a term would earn if only one field carried
// its true weight. The per-field combination is non-linear, so these do not
// sum to the term's multi-field score; they are diagnostic only and do not
// contribute to OverallScore.
type TermFieldScore struct {
	Term  string  `json:"term"`
	Field int     `json:"field"`
	Score float32 `json:"score"`
}

// Explanation is a full score breakdown for one document. OverallScore is
// exactly the sum of TermScores and NonTermScores, bit-identical to Score
// on the same inputs.
type Explanation struct {
	OverallScore    float32          `json:"overall_score"`
	TermScores      []TermScore      `json:"term_scores"`
	NonTermScores   []FeatureScore   `json:"non_term_scores"`
	TermFieldScores []TermFieldScore `json:"term_field_scores"`
}

// Explain scores doc for the query terms and reports every contribution
// separately. The overall score is accumulated from the identical per-term
// and per-feature values in the same order Score uses, so the two agree to
// the bit.
func Explain(ctx *Context, doc Doc, terms []string) Explanation {
	ex := Explanation{
		TermScores:    make([]TermScore, 0, len(terms)),
		NonTermScores: make([]FeatureScore, 0, len(ctx.FeatureWeight)),
	}

	var overall float32
	for _, t := range terms {
		s := termScore(ctx, doc, t)
		overall += s
		ex.TermScores = append(ex.TermScores, TermScore{Term: t, Score: s})
	}
	for phi := range ctx.FeatureWeight {
		s := featureScore(ctx, doc, phi)
		overall += s
		ex.NonTermScores = append(ex.NonTermScores, FeatureScore{Feature: phi, Score: s})
	}
	ex.OverallScore = overall

	masked := make([]float32, len(ctx.FieldWeight))
	for _, t := range terms {
		for f := range ctx.FieldWeight {
			for i := range masked {
				masked[i] = 0
			}
			masked[f] = ctx.FieldWeight[f]
			tf := weightedTF(ctx, doc, t, masked)
			ex.TermFieldScores = append(ex.TermFieldScores, TermFieldScore{
				Term:  t,
				Field: f,
				Score: idf(ctx, t) * tf / (ctx.K1 + tf),
			})
		}
	}
	return ex
}
