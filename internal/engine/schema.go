package engine

import (
	"fmt"

	"github.com/mfeineis/elm-advanced-package-search/internal/engine/rank"
)

// FieldKind selects the extraction pipeline for a field's raw text.
type FieldKind int

const (
	// TextField content is short plain text (package names, synopses).
	TextField FieldKind = iota
	// MarkupField content is documentation markup, parsed before
	// extraction.
	MarkupField
)

// FieldSpec describes one indexed field: its BM25F parameters and how its
// raw text is turned into terms.
type FieldSpec struct {
	Name   string
	Kind   FieldKind
	Weight float32
	B      float32
}

// FeatureSpec describes one non-term document feature and how its raw
// value is shaped into a score contribution.
type FeatureSpec struct {
	Name     string
	Weight   float32
	Function rank.FeatureFunc
}

// Schema fixes the fields, features, and ranking parameters of an engine
// at construction. Fields and features are addressed by their ordinal in
// these slices.
type Schema struct {
	K1       float32
	Fields   []FieldSpec
	Features []FeatureSpec
}

// FieldIndex returns the ordinal of the named field, or -1.
func (s *Schema) FieldIndex(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// FeatureIndex returns the ordinal of the named feature, or -1.
func (s *Schema) FeatureIndex(name string) int {
	for i, f := range s.Features {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// validate rejects schemas the scorer cannot work with.
func (s *Schema) validate() error {
	if len(s.Fields) == 0 {
		return fmt.Errorf("schema has no fields")
	}
	if s.K1 <= 0 {
		return fmt.Errorf("schema k1 must be positive, got %v", s.K1)
	}
	seen := make(map[string]struct{})
	for _, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("schema field with empty name")
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("schema field %q declared twice", f.Name)
		}
		seen[f.Name] = struct{}{}
		if f.B < 0 || f.B > 1 {
			return fmt.Errorf("schema field %q: b must be in [0,1], got %v", f.Name, f.B)
		}
	}
	seen = make(map[string]struct{})
	for _, f := range s.Features {
		if f.Name == "" {
			return fmt.Errorf("schema feature with empty name")
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("schema feature %q declared twice", f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}
