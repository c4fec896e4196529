package index

// DocFeatVals is a document's per-feature value vector, indexed by feature
// ordinal.
type DocFeatVals []float32

// NewDocFeatVals copies vals into a fresh vector.
func NewDocFeatVals(vals []float32) DocFeatVals {
	out := make(DocFeatVals, len(vals))
	copy(out, vals)
	return out
}

// Lookup returns the value of feature phi.
func (v DocFeatVals) Lookup(phi int) float32 {
	return v[phi]
}
