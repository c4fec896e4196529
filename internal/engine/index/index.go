// Package index implements the in-memory inverted index at the heart of the
// search engine. It keeps a bidirectional mapping between documents and
// terms using dense numeric ids, supports insert, update, and delete of
// whole documents, and answers term, term-id, and prefix lookups.
//
// The index is not safe for concurrent mutation; callers must serialise
// writers. Readers may share a snapshot that no writer touches.
package index

import (
	"fmt"
	"strings"

	"github.com/google/btree"
)

// termEntry is the single owned record for one term. The ordered term tree
// and the term-id map both point at the same entry, so the posting set is
// shared between both lookup directions by construction.
type termEntry struct {
	term string
	id   TermID
	docs DocIDSet
}

// docEntry is the per-document payload.
type docEntry struct {
	key   string
	terms *DocTermIDs
	feats DocFeatVals
}

// TermMatch is one result of a term or prefix lookup.
type TermMatch struct {
	Term string
	ID   TermID
	Docs DocIDSet
}

// Index maintains four mutually consistent maps: term → (id, postings),
// term id → (term, postings), doc id → (key, terms, features), and
// doc key → doc id.
type Index struct {
	numFields int

	terms   *btree.BTreeG[*termEntry]
	termIDs map[TermID]*termEntry
	docs    map[DocID]*docEntry
	docKeys map[string]DocID

	nextTermID TermID
	nextDocID  DocID
}

const btreeDegree = 32

// New creates an empty index for documents with numFields fields.
func New(numFields int) *Index {
	return &Index{
		numFields: numFields,
		terms: btree.NewG(btreeDegree, func(a, b *termEntry) bool {
			return a.term < b.term
		}),
		termIDs: make(map[TermID]*termEntry),
		docs:    make(map[DocID]*docEntry),
		docKeys: make(map[string]DocID),
	}
}

// DocCount returns the number of documents currently indexed.
func (ix *Index) DocCount() int {
	return len(ix.docs)
}

// TermCount returns the number of distinct terms currently indexed.
func (ix *Index) TermCount() int {
	return ix.terms.Len()
}

// LookupTerm returns the id and posting set for term, if present.
func (ix *Index) LookupTerm(term string) (TermID, DocIDSet, bool) {
	e, ok := ix.terms.Get(&termEntry{term: term})
	if !ok {
		return 0, nil, false
	}
	return e.id, e.docs, true
}

// LookupTermsByPrefix returns every indexed term that starts with prefix,
// in lexicographic order. An empty prefix yields no matches.
func (ix *Index) LookupTermsByPrefix(prefix string) []TermMatch {
	if prefix == "" {
		return nil
	}
	var out []TermMatch
	ix.terms.AscendGreaterOrEqual(&termEntry{term: prefix}, func(e *termEntry) bool {
		if !strings.HasPrefix(e.term, prefix) {
			return false
		}
		out = append(out, TermMatch{Term: e.term, ID: e.id, Docs: e.docs})
		return true
	})
	return out
}

// LookupTermID returns the posting set for a term id obtained from this
// index. An unknown id means the index invariants are broken and panics.
func (ix *Index) LookupTermID(id TermID) DocIDSet {
	e, ok := ix.termIDs[id]
	if !ok {
		panic(fmt.Sprintf("index: term id %d not in term-id map", id))
	}
	return e.docs
}

// Term returns the term string for an id obtained from this index.
// Unknown ids panic, as with LookupTermID.
func (ix *Index) Term(id TermID) string {
	e, ok := ix.termIDs[id]
	if !ok {
		panic(fmt.Sprintf("index: term id %d not in term-id map", id))
	}
	return e.term
}

// TermIDOf returns the id for term, if the term is indexed.
func (ix *Index) TermIDOf(term string) (TermID, bool) {
	e, ok := ix.terms.Get(&termEntry{term: term})
	if !ok {
		return 0, false
	}
	return e.id, true
}

// LookupDocID returns the key, term ids, and feature values of an indexed
// document. Unknown ids indicate a broken invariant and panic.
func (ix *Index) LookupDocID(d DocID) (string, *DocTermIDs, DocFeatVals) {
	e, ok := ix.docs[d]
	if !ok {
		panic(fmt.Sprintf("index: doc id %d not in doc-id map", d))
	}
	return e.key, e.terms, e.feats
}

// DocKey returns the key of an indexed document id. Unknown ids panic.
func (ix *Index) DocKey(d DocID) string {
	e, ok := ix.docs[d]
	if !ok {
		panic(fmt.Sprintf("index: doc id %d not in doc-id map", d))
	}
	return e.key
}

// DocIDOf returns the internal id for a document key, if present.
func (ix *Index) DocIDOf(key string) (DocID, bool) {
	d, ok := ix.docKeys[key]
	return d, ok
}

// LookupDocKey returns the term ids of the document stored under key.
func (ix *Index) LookupDocKey(key string) (*DocTermIDs, bool) {
	d, ok := ix.docKeys[key]
	if !ok {
		return nil, false
	}
	return ix.docs[d].terms, true
}

// FeatValsOf returns the feature values of the document stored under key.
func (ix *Index) FeatValsOf(key string) (DocFeatVals, bool) {
	d, ok := ix.docKeys[key]
	if !ok {
		return nil, false
	}
	return ix.docs[d].feats, true
}

// InsertDoc indexes a document under key. fieldTerms holds the normalised
// terms per field ordinal, feats the per-feature values. Inserting an
// existing key replaces the old document in place: the term→doc maps are
// diffed so entries for vanished terms are removed and entries for new
// terms added, and the DocTermIDs and DocFeatVals are replaced atomically.
// The document id is returned.
func (ix *Index) InsertDoc(key string, fieldTerms [][]string, feats []float32) DocID {
	if len(fieldTerms) != ix.numFields {
		panic(fmt.Sprintf("index: document has %d fields, index expects %d", len(fieldTerms), ix.numFields))
	}

	d, existed := ix.docKeys[key]
	if !existed {
		d = ix.nextDocID
		ix.nextDocID++
		ix.docKeys[key] = d
	}

	newTerms := make(map[string]struct{})
	for _, terms := range fieldTerms {
		for _, t := range terms {
			newTerms[t] = struct{}{}
		}
	}

	if existed {
		oldTerms := ix.docTermSet(ix.docs[d].terms)
		for t := range oldTerms {
			if _, keep := newTerms[t]; !keep {
				ix.deleteTermToDocEntry(t, d)
			}
		}
		for t := range newTerms {
			if _, had := oldTerms[t]; !had {
				ix.insertTermToDocEntry(t, d)
			}
		}
	} else {
		for t := range newTerms {
			ix.insertTermToDocEntry(t, d)
		}
	}

	// Every term is present in the term map now, so the id translation
	// below is total.
	fields := make([][]TermID, ix.numFields)
	for f, terms := range fieldTerms {
		ids := make([]TermID, len(terms))
		for i, t := range terms {
			e, ok := ix.terms.Get(&termEntry{term: t})
			if !ok {
				panic(fmt.Sprintf("index: term %q missing after insert", t))
			}
			ids[i] = e.id
		}
		fields[f] = ids
	}

	ix.docs[d] = &docEntry{
		key:   key,
		terms: NewDocTermIDs(fields),
		feats: NewDocFeatVals(feats),
	}
	return d
}

// DeleteDoc removes the document stored under key. It reports whether a
// document was present.
func (ix *Index) DeleteDoc(key string) bool {
	d, ok := ix.docKeys[key]
	if !ok {
		return false
	}
	for t := range ix.docTermSet(ix.docs[d].terms) {
		ix.deleteTermToDocEntry(t, d)
	}
	delete(ix.docs, d)
	delete(ix.docKeys, key)
	return true
}

// docTermSet maps a document's term ids back to their terms.
func (ix *Index) docTermSet(dt *DocTermIDs) map[string]struct{} {
	out := make(map[string]struct{})
	for f := 0; f < dt.NumFields(); f++ {
		for _, id := range dt.FieldElems(f) {
			out[ix.Term(id)] = struct{}{}
		}
	}
	return out
}

// insertTermToDocEntry adds d to term's posting set, allocating a term id
// if the term is new.
func (ix *Index) insertTermToDocEntry(term string, d DocID) {
	if e, ok := ix.terms.Get(&termEntry{term: term}); ok {
		e.docs = e.docs.Insert(d)
		return
	}
	e := &termEntry{
		term: term,
		id:   ix.nextTermID,
		docs: SingletonDocIDSet(d),
	}
	ix.nextTermID++
	ix.terms.ReplaceOrInsert(e)
	ix.termIDs[e.id] = e
}

// deleteTermToDocEntry removes d from term's posting set, dropping the term
// entirely once no document contains it. The freed id is not recycled.
func (ix *Index) deleteTermToDocEntry(term string, d DocID) {
	e, ok := ix.terms.Get(&termEntry{term: term})
	if !ok {
		return
	}
	e.docs = e.docs.Delete(d)
	if e.docs.Empty() {
		ix.terms.Delete(e)
		delete(ix.termIDs, e.id)
	}
}

// Invariant verifies the mutual consistency of the four maps. It returns
// nil when consistent and a descriptive error on the first violation found.
// Intended for tests and debug assertions; it walks the whole index.
func (ix *Index) Invariant() error {
	var err error
	ix.terms.Ascend(func(e *termEntry) bool {
		if !e.docs.Invariant() {
			err = fmt.Errorf("term %q: posting set not sorted-unique", e.term)
			return false
		}
		mirror, ok := ix.termIDs[e.id]
		if !ok {
			err = fmt.Errorf("term %q: id %d missing from term-id map", e.term, e.id)
			return false
		}
		if mirror != e {
			err = fmt.Errorf("term %q: term-id map entry for %d is a different record", e.term, e.id)
			return false
		}
		if e.id >= ix.nextTermID {
			err = fmt.Errorf("term %q: id %d not below counter %d", e.term, e.id, ix.nextTermID)
			return false
		}
		for _, d := range e.docs {
			if d >= ix.nextDocID {
				err = fmt.Errorf("term %q: doc id %d not below counter %d", e.term, d, ix.nextDocID)
				return false
			}
			doc, ok := ix.docs[d]
			if !ok {
				err = fmt.Errorf("term %q: posting doc %d not in doc-id map", e.term, d)
				return false
			}
			found := false
			for f := 0; f < doc.terms.NumFields() && !found; f++ {
				found = doc.terms.FieldTermCount(f, e.id) > 0
			}
			if !found {
				err = fmt.Errorf("term %q: doc %d has no occurrence in any field", e.term, d)
				return false
			}
		}
		return true
	})
	if err != nil {
		return err
	}
	if len(ix.termIDs) != ix.terms.Len() {
		return fmt.Errorf("term map has %d entries, term-id map %d", ix.terms.Len(), len(ix.termIDs))
	}
	for key, d := range ix.docKeys {
		doc, ok := ix.docs[d]
		if !ok {
			return fmt.Errorf("doc key %q: id %d not in doc-id map", key, d)
		}
		if doc.key != key {
			return fmt.Errorf("doc key %q: id %d maps back to key %q", key, d, doc.key)
		}
	}
	for d, doc := range ix.docs {
		if d >= ix.nextDocID {
			return fmt.Errorf("doc %d: id not below counter %d", d, ix.nextDocID)
		}
		if got, ok := ix.docKeys[doc.key]; !ok || got != d {
			return fmt.Errorf("doc %d: key %q does not map back", d, doc.key)
		}
		for f := 0; f < doc.terms.NumFields(); f++ {
			for _, id := range doc.terms.FieldElems(f) {
				e, ok := ix.termIDs[id]
				if !ok {
					return fmt.Errorf("doc %d: field %d references unknown term id %d", d, f, id)
				}
				if !e.docs.Member(d) {
					return fmt.Errorf("doc %d: term %q does not list the doc in its postings", d, e.term)
				}
			}
		}
	}
	return nil
}
