package markup

import (
	"reflect"
	"testing"
)

func TestTokens(t *testing.T) {
	tests := []struct {
		name string
		node Node
		want []string
	}{
		{
			name: "empty",
			node: Empty{},
			want: nil,
		},
		{
			name: "text splits on whitespace",
			node: Text{Text: "parse  JSON\tvalues"},
			want: []string{"parse", "JSON", "values"},
		},
		{
			name: "paragraph and append preserve order",
			node: Paragraph{Body: Append{
				Left:  Text{Text: "decode"},
				Right: Text{Text: "encode"},
			}},
			want: []string{"decode", "encode"},
		},
		{
			name: "identifier stays whole",
			node: Identifier{Name: "Json.Decode.map2"},
			want: []string{"Json.Decode.map2"},
		},
		{
			name: "module reference dropped",
			node: ModuleRef{Name: "Json.Decode"},
			want: nil,
		},
		{
			name: "emphasis passes through",
			node: Emphasis{Body: Text{Text: "fast"}},
			want: []string{"fast"},
		},
		{
			name: "single-token monospaced kept",
			node: Monospaced{Body: Text{Text: "decoder"}},
			want: []string{"decoder"},
		},
		{
			name: "multi-token monospaced dropped",
			node: Monospaced{Body: Text{Text: "decodeString decoder input"}},
			want: nil,
		},
		{
			name: "lists concatenate children",
			node: UnorderedList{Items: []Node{
				Text{Text: "one"},
				OrderedList{Items: []Node{Text{Text: "two"}}},
			}},
			want: []string{"one", "two"},
		},
		{
			name: "definition list keeps both parts",
			node: DefList{Items: []DefItem{
				{Term: Text{Text: "decoder"}, Definition: Text{Text: "turns JSON"}},
			}},
			want: []string{"decoder", "turns", "JSON"},
		},
		{
			name: "code block dropped",
			node: CodeBlock{Body: Text{Text: "main = text hello"}},
			want: nil,
		},
		{
			name: "hyperlink label kept",
			node: Hyperlink{URL: "https://example.org", Label: Text{Text: "the guide"}},
			want: []string{"the", "guide"},
		},
		{
			name: "hyperlink without label dropped",
			node: Hyperlink{URL: "https://example.org"},
			want: nil,
		},
		{
			name: "picture and anchor dropped",
			node: Append{Left: Picture{URL: "img.png"}, Right: Anchor{Name: "top"}},
			want: nil,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Tokens(tc.node)
			if len(got) == 0 && len(tc.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Tokens = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestPlainText(t *testing.T) {
	node, err := PlainText("a small parser library")
	if err != nil {
		t.Fatalf("PlainText: %v", err)
	}
	got := Tokens(node)
	want := []string{"a", "small", "parser", "library"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokens = %v, want %v", got, want)
	}
}
