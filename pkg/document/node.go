package document

import "strings"

type NodeKind string

const (
	KindRoot           NodeKind = "root"
	KindHeading        NodeKind = "heading"
	KindParagraph      NodeKind = "paragraph"
	KindText           NodeKind = "text"
	KindStrong         NodeKind = "strong"
	KindEmphasis       NodeKind = "emphasis"
	KindBreak          NodeKind = "break"
	KindThematicBreak  NodeKind = "thematicBreak"
	KindBlockquote     NodeKind = "blockquote"
	KindList           NodeKind = "list"
	KindListItem       NodeKind = "listItem"
	KindTable          NodeKind = "table"
	KindTableRow       NodeKind = "tableRow"
	KindTableCell      NodeKind = "tableCell"
	KindCode           NodeKind = "code"
	KindInlineCode     NodeKind = "inlineCode"
	KindMath           NodeKind = "math"
	KindInlineMath     NodeKind = "inlineMath"
	KindLink           NodeKind = "link"
	KindImage          NodeKind = "image"
	KindDirective      NodeKind = "directive"
	KindBlockDirective NodeKind = "blockDirective"
	KindUnknown        NodeKind = "unknown"
)

// Node is a node of the syntax tree produced by [Parse].
// The set of implementations is closed; consumers switch over
// the concrete types.
type Node interface {
	Kind() NodeKind
	Children() []Node
	node()
}

type parent struct {
	children []Node
}

func (p *parent) Children() []Node { return p.children }

func (p *parent) Append(children ...Node) {
	p.children = append(p.children, children...)
}

type leaf struct{}

func (leaf) Children() []Node { return nil }

type Root struct {
	parent
	Frontmatter *Frontmatter
	// FrontmatterErr is set when a fenced block at the top could not be
	// decoded. The block is then parsed as markdown.
	FrontmatterErr error
}

type Heading struct {
	parent
	Level int
}

type Paragraph struct{ parent }

type Text struct {
	leaf
	Value string
}

type Strong struct{ parent }

type Emphasis struct{ parent }

type Break struct{ leaf }

type ThematicBreak struct{ leaf }

type Blockquote struct{ parent }

type List struct {
	parent
	Ordered bool
	Start   int
}

type ListItem struct{ parent }

type Table struct{ parent }

type TableRow struct {
	parent
	Header bool
}

type TableCell struct {
	parent
	Align string
}

// Code is a fenced or indented code block that is not a directive.
type Code struct {
	leaf
	Lang       string
	Meta       string
	Attributes Attributes
	Value      string
}

type InlineCode struct {
	leaf
	Value string
}

type Math struct {
	leaf
	Value string
}

type InlineMath struct {
	leaf
	Value string
}

type Link struct {
	parent
	URL   string
	Title string
}

type Image struct {
	leaf
	URL    string
	Alt    string
	Title  string
	Width  string
	Height string
	Align  string
}

// DirectiveData is shared by both directive encodings.
type DirectiveData struct {
	Name     string
	Argument string
	Options  Options
	// RawOptions holds option lines and trailers exactly as written,
	// one per line.
	RawOptions string
	Value      string
	HasValue   bool
	// Unclosed is set when the closing fence is missing and the block
	// ended at a blank line or the end of input.
	Unclosed bool
}

// DirectiveNode is implemented by [Directive] and [BlockDirective].
type DirectiveNode interface {
	Node
	Data() *DirectiveData
}

// Directive comes from a backtick fence with a braced name
// or from display math.
type Directive struct {
	parent
	DirectiveData
}

func (d *Directive) Data() *DirectiveData { return &d.DirectiveData }

// BlockDirective comes from a colon fence; its body is nested markdown.
type BlockDirective struct {
	parent
	DirectiveData
}

func (d *BlockDirective) Data() *DirectiveData { return &d.DirectiveData }

// Unknown wraps source constructs without a dedicated kind,
// for example raw HTML or strikethrough.
type Unknown struct {
	parent
	Type string
}

func (*Root) Kind() NodeKind           { return KindRoot }
func (*Heading) Kind() NodeKind        { return KindHeading }
func (*Paragraph) Kind() NodeKind      { return KindParagraph }
func (*Text) Kind() NodeKind           { return KindText }
func (*Strong) Kind() NodeKind         { return KindStrong }
func (*Emphasis) Kind() NodeKind       { return KindEmphasis }
func (*Break) Kind() NodeKind          { return KindBreak }
func (*ThematicBreak) Kind() NodeKind  { return KindThematicBreak }
func (*Blockquote) Kind() NodeKind     { return KindBlockquote }
func (*List) Kind() NodeKind           { return KindList }
func (*ListItem) Kind() NodeKind       { return KindListItem }
func (*Table) Kind() NodeKind          { return KindTable }
func (*TableRow) Kind() NodeKind       { return KindTableRow }
func (*TableCell) Kind() NodeKind      { return KindTableCell }
func (*Code) Kind() NodeKind           { return KindCode }
func (*InlineCode) Kind() NodeKind     { return KindInlineCode }
func (*Math) Kind() NodeKind           { return KindMath }
func (*InlineMath) Kind() NodeKind     { return KindInlineMath }
func (*Link) Kind() NodeKind           { return KindLink }
func (*Image) Kind() NodeKind          { return KindImage }
func (*Directive) Kind() NodeKind      { return KindDirective }
func (*BlockDirective) Kind() NodeKind { return KindBlockDirective }
func (*Unknown) Kind() NodeKind        { return KindUnknown }

func (*Root) node()           {}
func (*Heading) node()        {}
func (*Paragraph) node()      {}
func (*Text) node()           {}
func (*Strong) node()         {}
func (*Emphasis) node()       {}
func (*Break) node()          {}
func (*ThematicBreak) node()  {}
func (*Blockquote) node()     {}
func (*List) node()           {}
func (*ListItem) node()       {}
func (*Table) node()          {}
func (*TableRow) node()       {}
func (*TableCell) node()      {}
func (*Code) node()           {}
func (*InlineCode) node()     {}
func (*Math) node()           {}
func (*InlineMath) node()     {}
func (*Link) node()           {}
func (*Image) node()          {}
func (*Directive) node()      {}
func (*BlockDirective) node() {}
func (*Unknown) node()        {}

// TextContent concatenates the literal text below node in document order.
func TextContent(node Node) string {
	var b strings.Builder
	collectText(node, &b)
	return b.String()
}

func collectText(node Node, b *strings.Builder) {
	switch n := node.(type) {
	case *Text:
		_, _ = b.WriteString(n.Value)
	case *InlineCode:
		_, _ = b.WriteString(n.Value)
	case *Code:
		_, _ = b.WriteString(n.Value)
	case *Math:
		_, _ = b.WriteString(n.Value)
	case *InlineMath:
		_, _ = b.WriteString(n.Value)
	case *Break:
		_ = b.WriteByte('\n')
	case DirectiveNode:
		if d := n.Data(); d.HasValue && len(n.Children()) == 0 {
			_, _ = b.WriteString(d.Value)
			return
		}
	}
	for _, child := range node.Children() {
		collectText(child, b)
	}
}

// Walk visits node and its descendants depth-first in document order.
// Returning false from fn skips the children of the visited node.
func Walk(node Node, fn func(Node) bool) {
	if node == nil || !fn(node) {
		return
	}
	for _, child := range node.Children() {
		Walk(child, fn)
	}
}
