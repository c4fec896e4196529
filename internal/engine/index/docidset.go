package index

import "sort"

// DocID is a dense internal document identifier. IDs are allocated
// monotonically by the Index and never reused within its lifetime.
type DocID uint32

// TermID is a dense internal term identifier, allocated monotonically.
type TermID uint32

// DocIDSet is a set of document ids stored as a sorted ascending slice
// without duplicates. The zero value is the empty set.
type DocIDSet []DocID

// SingletonDocIDSet returns a set containing only d.
func SingletonDocIDSet(d DocID) DocIDSet {
	return DocIDSet{d}
}

// Empty reports whether the set has no elements.
func (s DocIDSet) Empty() bool {
	return len(s) == 0
}

// Size returns the number of elements in the set.
func (s DocIDSet) Size() int {
	return len(s)
}

// Member reports whether d is in the set.
func (s DocIDSet) Member(d DocID) bool {
	i := sort.Search(len(s), func(i int) bool { return s[i] >= d })
	return i < len(s) && s[i] == d
}

// Insert returns a set with d added. The receiver is not modified.
func (s DocIDSet) Insert(d DocID) DocIDSet {
	i := sort.Search(len(s), func(i int) bool { return s[i] >= d })
	if i < len(s) && s[i] == d {
		return s
	}
	out := make(DocIDSet, 0, len(s)+1)
	out = append(out, s[:i]...)
	out = append(out, d)
	out = append(out, s[i:]...)
	return out
}

// Delete returns a set with d removed. The receiver is not modified.
func (s DocIDSet) Delete(d DocID) DocIDSet {
	i := sort.Search(len(s), func(i int) bool { return s[i] >= d })
	if i >= len(s) || s[i] != d {
		return s
	}
	out := make(DocIDSet, 0, len(s)-1)
	out = append(out, s[:i]...)
	out = append(out, s[i+1:]...)
	return out
}

// Union returns the merge of s and t.
func (s DocIDSet) Union(t DocIDSet) DocIDSet {
	out := make(DocIDSet, 0, len(s)+len(t))
	i, j := 0, 0
	for i < len(s) && j < len(t) {
		switch {
		case s[i] < t[j]:
			out = append(out, s[i])
			i++
		case s[i] > t[j]:
			out = append(out, t[j])
			j++
		default:
			out = append(out, s[i])
			i++
			j++
		}
	}
	out = append(out, s[i:]...)
	out = append(out, t[j:]...)
	return out
}

// Intersect returns the elements present in both s and t.
func (s DocIDSet) Intersect(t DocIDSet) DocIDSet {
	var out DocIDSet
	i, j := 0, 0
	for i < len(s) && j < len(t) {
		switch {
		case s[i] < t[j]:
			i++
		case s[i] > t[j]:
			j++
		default:
			out = append(out, s[i])
			i++
			j++
		}
	}
	return out
}

// Difference returns the elements of s not present in t.
func (s DocIDSet) Difference(t DocIDSet) DocIDSet {
	var out DocIDSet
	i, j := 0, 0
	for i < len(s) && j < len(t) {
		switch {
		case s[i] < t[j]:
			out = append(out, s[i])
			i++
		case s[i] > t[j]:
			j++
		default:
			i++
			j++
		}
	}
	out = append(out, s[i:]...)
	return out
}

// ToList returns the elements in ascending order. The returned slice is a
// copy and safe to modify.
func (s DocIDSet) ToList() []DocID {
	out := make([]DocID, len(s))
	copy(out, s)
	return out
}

// Invariant reports whether the slice is sorted strictly ascending.
func (s DocIDSet) Invariant() bool {
	for i := 1; i < len(s); i++ {
		if s[i-1] >= s[i] {
			return false
		}
	}
	return true
}
