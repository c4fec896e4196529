// Package markup defines the documentation markup tree consumed by the
// term extractor. The tree mirrors what documentation-comment parsers
// produce: paragraphs, emphasis, inline code, lists, links. Producing the
// tree is the parser's job and outside this package; a ParseFunc plugs any
// parser in.
package markup

import "strings"

// Node is one node of a documentation markup tree.
type Node interface {
	isNode()
}

// Empty contributes nothing.
type Empty struct{}

// Text is a run of plain prose.
type Text struct {
	Text string
}

// Paragraph wraps a block of body markup.
type Paragraph struct {
	Body Node
}

// Append joins two subtrees in order.
type Append struct {
	Left  Node
	Right Node
}

// Identifier is a source-code identifier mentioned inline. It is indexed
// as a single token, never split.
type Identifier struct {
	Name string
}

// ModuleRef is a reference to a module by name.
type ModuleRef struct {
	Name string
}

// Emphasis wraps emphasised body markup.
type Emphasis struct {
	Body Node
}

// Monospaced is an inline code span.
type Monospaced struct {
	Body Node
}

// UnorderedList is a bulleted list of items.
type UnorderedList struct {
	Items []Node
}

// OrderedList is a numbered list of items.
type OrderedList struct {
	Items []Node
}

// DefItem is one term/definition pair of a definition list.
type DefItem struct {
	Term       Node
	Definition Node
}

// DefList is a definition list.
type DefList struct {
	Items []DefItem
}

// CodeBlock is a block of example code.
type CodeBlock struct {
	Body Node
}

// Hyperlink is a link with an optional label.
type Hyperlink struct {
	URL   string
	Label Node
}

// Picture is an embedded image.
type Picture struct {
	URL   string
	Title string
}

// Anchor is a named anchor point.
type Anchor struct {
	Name string
}

func (Empty) isNode()         {}
func (Text) isNode()          {}
func (Paragraph) isNode()     {}
func (Append) isNode()        {}
func (Identifier) isNode()    {}
func (ModuleRef) isNode()     {}
func (Emphasis) isNode()      {}
func (Monospaced) isNode()    {}
func (UnorderedList) isNode() {}
func (OrderedList) isNode()   {}
func (DefList) isNode()       {}
func (CodeBlock) isNode()     {}
func (Hyperlink) isNode()     {}
func (Picture) isNode()       {}
func (Anchor) isNode()        {}

// ParseFunc turns raw documentation text into a markup tree. A non-nil
// error means the text is not valid markup and yields no terms.
type ParseFunc func(text string) (Node, error)

// PlainText is a ParseFunc for callers without a markup parser: the whole
// text becomes a single paragraph of prose.
func PlainText(text string) (Node, error) {
	return Paragraph{Body: Text{Text: text}}, nil
}

// monospacedMaxTokens is the largest monospaced span, in tokens, that
// still contributes to the index. Longer spans are inline code and are
// dropped.
const monospacedMaxTokens = 1

// Tokens folds the tree into its word-like token stream. Prose is split on
// whitespace; identifiers stay whole; module references, code blocks,
// pictures, and anchors contribute nothing; monospaced spans contribute
// only when at most one token long; hyperlinks contribute their label.
func Tokens(n Node) []string {
	switch v := n.(type) {
	case nil, Empty:
		return nil
	case Text:
		return strings.Fields(v.Text)
	case Paragraph:
		return Tokens(v.Body)
	case Append:
		return append(Tokens(v.Left), Tokens(v.Right)...)
	case Identifier:
		if v.Name == "" {
			return nil
		}
		return []string{v.Name}
	case ModuleRef:
		return nil
	case Emphasis:
		return Tokens(v.Body)
	case Monospaced:
		toks := Tokens(v.Body)
		if len(toks) > monospacedMaxTokens {
			return nil
		}
		return toks
	case UnorderedList:
		return tokensOf(v.Items)
	case OrderedList:
		return tokensOf(v.Items)
	case DefList:
		var out []string
		for _, item := range v.Items {
			out = append(out, Tokens(item.Term)...)
			out = append(out, Tokens(item.Definition)...)
		}
		return out
	case CodeBlock:
		return nil
	case Hyperlink:
		if v.Label == nil {
			return nil
		}
		return Tokens(v.Label)
	case Picture, Anchor:
		return nil
	default:
		return nil
	}
}

func tokensOf(nodes []Node) []string {
	var out []string
	for _, n := range nodes {
		out = append(out, Tokens(n)...)
	}
	return out
}
