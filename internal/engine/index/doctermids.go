package index

// DocTermIDs holds a document's term ids per field, in input order with
// duplicates preserved. The per-field slices are immutable once built; an
// update replaces the whole value.
type DocTermIDs struct {
	fields [][]TermID
}

// NewDocTermIDs builds a DocTermIDs from one term-id slice per field
// ordinal. The slices are retained, not copied.
func NewDocTermIDs(fields [][]TermID) *DocTermIDs {
	return &DocTermIDs{fields: fields}
}

// NumFields returns the number of fields the document was built with.
func (t *DocTermIDs) NumFields() int {
	return len(t.fields)
}

// FieldLength returns the number of term occurrences in field f.
func (t *DocTermIDs) FieldLength(f int) int {
	return len(t.fields[f])
}

// FieldElems returns field f's term ids in input order. The returned slice
// must not be modified.
func (t *DocTermIDs) FieldElems(f int) []TermID {
	return t.fields[f]
}

// FieldTermCount returns how many times id occurs in field f.
func (t *DocTermIDs) FieldTermCount(f int, id TermID) int {
	n := 0
	for _, e := range t.fields[f] {
		if e == id {
			n++
		}
	}
	return n
}
