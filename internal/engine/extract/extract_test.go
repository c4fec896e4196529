package extract

import (
	"errors"
	"reflect"
	"testing"

	"github.com/mfeineis/elm-advanced-package-search/internal/engine/markup"
)

func TestSynopsisTerms(t *testing.T) {
	stop := NewStopwords("the", "a", "for")

	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "case folds and stems",
			text: "Running dogs",
			want: []string{"run", "dog"},
		},
		{
			name: "drops stopwords after folding",
			text: "The parser for JSON",
			want: []string{"parser", "json"},
		},
		{
			name: "drops pure punctuation tokens",
			text: "fast , reliable !!",
			want: []string{"fast", "reliabl"},
		},
		{
			name: "compound tokens emit whole and fragments",
			text: "command-line",
			want: []string{"command-lin", "command", "line"},
		},
		{
			name: "slash compound",
			text: "encode/decode",
			want: []string{"encode/decod", "encod", "decod"},
		},
		{
			name: "trailing split char keeps whole and fragment",
			text: "maybe)",
			want: []string{"maybe)", "mayb"},
		},
		{
			name: "empty input",
			text: "   ",
			want: nil,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := SynopsisTerms(stop, tc.text)
			if len(got) == 0 && len(tc.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("SynopsisTerms(%q) = %v, want %v", tc.text, got, tc.want)
			}
		})
	}
}

func TestQueryAndSynopsisNormaliseAlike(t *testing.T) {
	stop := NewStopwords("the")
	text := "Running the JSON decoders"
	if got, want := QueryTerms(stop, text), SynopsisTerms(stop, text); !reflect.DeepEqual(got, want) {
		t.Errorf("QueryTerms = %v, SynopsisTerms = %v", got, want)
	}
}

func TestDescriptionTerms(t *testing.T) {
	stop := NewStopwords("a", "the", "for")

	tree := markup.Append{
		Left: markup.Paragraph{Body: markup.Text{Text: "A decoder for streaming values"}},
		Right: markup.Append{
			Left:  markup.Monospaced{Body: markup.Text{Text: "runDecoder input flags"}},
			Right: markup.Identifier{Name: "Decoder"},
		},
	}
	parse := func(string) (markup.Node, error) { return tree, nil }

	got := DescriptionTerms(stop, parse, "ignored")
	want := []string{"decod", "stream", "valu", "decod"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DescriptionTerms = %v, want %v", got, want)
	}
}

func TestDescriptionTermsParseFailure(t *testing.T) {
	parse := func(string) (markup.Node, error) { return nil, errors.New("bad markup") }
	if got := DescriptionTerms(nil, parse, "@@@"); len(got) != 0 {
		t.Errorf("parse failure yielded terms: %v", got)
	}
}
