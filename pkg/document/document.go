package document

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

var ErrInvalidEncoding = errors.New("source is not valid UTF-8")

// markdown is configured once and reused. goldmark keeps per-call state
// in the parser context, so sharing it is safe.
var (
	markdown     goldmark.Markdown
	markdownOnce sync.Once
)

func defaultMarkdown() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdown = goldmark.New(
			goldmark.WithExtensions(
				extension.Table,
				extension.Strikethrough,
				Extension,
			),
		)
	})
	return markdown
}

// literalDirectives keep their body as text instead of nested markdown.
var literalDirectives = map[string]bool{
	"code":       true,
	"code-block": true,
	"code-cell":  true,
	"sourcecode": true,
	"math":       true,
	"raw":        true,
}

type Document struct {
	source []byte

	onceParse   sync.Once
	parseErr    error
	rootASTNode ast.Node
	root        *Root
	content     []byte
	frontmatter *Frontmatter

	frontmatterErr error
}

func New(source []byte) *Document {
	return &Document{source: source}
}

// Parse is a shortcut for New(source).Root().
func Parse(source []byte) (*Root, error) {
	return New(source).Root()
}

func (d *Document) Content() []byte {
	return d.content
}

func (d *Document) Root() (*Root, error) {
	d.parse()
	if d.parseErr != nil {
		return nil, d.parseErr
	}
	return d.root, nil
}

func (d *Document) RootAST() (ast.Node, error) {
	d.parse()
	if d.parseErr != nil {
		return nil, d.parseErr
	}
	return d.rootASTNode, nil
}

// Frontmatter returns the decoded frontmatter, or nil when there is none.
// An undecodable block is reported here even though Root succeeds.
func (d *Document) Frontmatter() (*Frontmatter, error) {
	d.parse()
	if d.parseErr != nil {
		return nil, d.parseErr
	}
	if d.frontmatterErr != nil {
		return nil, d.frontmatterErr
	}
	return d.frontmatter, nil
}

func (d *Document) parse() {
	d.onceParse.Do(func() {
		if !utf8.Valid(d.source) {
			d.parseErr = errors.WithStack(ErrInvalidEncoding)
			return
		}

		raw, format, content, err := splitFrontmatter(d.source)
		if err != nil {
			d.parseErr = err
			return
		}
		if format != "" {
			d.frontmatter, err = parseFrontmatter(raw, format)
			if err != nil {
				d.frontmatterErr = err
				content = d.source
			}
		}
		d.content = content

		d.rootASTNode = defaultMarkdown().Parser().Parse(text.NewReader(content))

		c := &converter{source: content}
		root := &Root{Frontmatter: d.frontmatter, FrontmatterErr: d.frontmatterErr}
		root.Append(c.children(d.rootASTNode)...)
		d.root = root
	})
}

// converter maps the goldmark AST onto the syntax tree.
type converter struct {
	source []byte
}

func (c *converter) children(parent ast.Node) []Node {
	var result []Node
	for child := parent.FirstChild(); child != nil; child = child.NextSibling() {
		result = append(result, c.convert(child)...)
	}
	return result
}

func (c *converter) convert(node ast.Node) []Node {
	switch n := node.(type) {
	case *ast.Heading:
		h := &Heading{Level: n.Level}
		h.Append(c.children(n)...)
		return []Node{h}
	case *ast.Paragraph:
		p := &Paragraph{}
		p.Append(c.children(n)...)
		return []Node{p}
	case *ast.TextBlock:
		// Tight list items carry their text in a TextBlock.
		p := &Paragraph{}
		p.Append(c.children(n)...)
		return []Node{p}
	case *ast.Text:
		value := string(n.Segment.Value(c.source))
		result := []Node{&Text{Value: value}}
		switch {
		case n.HardLineBreak():
			result = append(result, &Break{})
		case n.SoftLineBreak():
			result[0].(*Text).Value += "\n"
		}
		return result
	case *ast.String:
		return []Node{&Text{Value: string(n.Value)}}
	case *ast.Emphasis:
		var wrapper interface {
			Node
			Append(...Node)
		}
		if n.Level >= 2 {
			wrapper = &Strong{}
		} else {
			wrapper = &Emphasis{}
		}
		wrapper.Append(c.children(n)...)
		return []Node{wrapper}
	case *ast.CodeSpan:
		var b strings.Builder
		for child := n.FirstChild(); child != nil; child = child.NextSibling() {
			if t, ok := child.(*ast.Text); ok {
				_, _ = b.Write(t.Segment.Value(c.source))
			} else if s, ok := child.(*ast.String); ok {
				_, _ = b.Write(s.Value)
			}
		}
		return []Node{&InlineCode{Value: b.String()}}
	case *ast.Link:
		l := &Link{URL: string(n.Destination), Title: string(n.Title)}
		l.Append(c.children(n)...)
		return []Node{l}
	case *ast.AutoLink:
		url := string(n.URL(c.source))
		l := &Link{URL: url}
		l.Append(&Text{Value: string(n.Label(c.source))})
		return []Node{l}
	case *ast.Image:
		return []Node{&Image{
			URL:   string(n.Destination),
			Title: string(n.Title),
			Alt:   TextContent(&Paragraph{parent{c.children(n)}}),
		}}
	case *ast.ThematicBreak:
		return []Node{&ThematicBreak{}}
	case *ast.Blockquote:
		b := &Blockquote{}
		b.Append(c.children(n)...)
		return []Node{b}
	case *ast.List:
		l := &List{Ordered: n.IsOrdered(), Start: n.Start}
		l.Append(c.children(n)...)
		return []Node{l}
	case *ast.ListItem:
		li := &ListItem{}
		li.Append(c.children(n)...)
		return []Node{li}
	case *ast.FencedCodeBlock:
		return []Node{c.fencedCode(n)}
	case *ast.CodeBlock:
		return []Node{&Code{Value: c.lines(n), Attributes: Attributes{}}}
	case *extast.Table:
		t := &Table{}
		t.Append(c.children(n)...)
		return []Node{t}
	case *extast.TableHeader:
		r := &TableRow{Header: true}
		r.Append(c.children(n)...)
		return []Node{r}
	case *extast.TableRow:
		r := &TableRow{}
		r.Append(c.children(n)...)
		return []Node{r}
	case *extast.TableCell:
		cell := &TableCell{Align: alignment(n.Alignment)}
		cell.Append(c.children(n)...)
		return []Node{cell}
	case *colonDirectiveNode:
		d := &BlockDirective{DirectiveData: DirectiveData{
			Name:       n.name,
			Argument:   n.argument,
			Options:    n.options,
			RawOptions: strings.Join(n.rawOpts, "\n"),
			Unclosed:   !n.fenced,
		}}
		d.Append(c.children(n)...)
		return []Node{d}
	case *mathBlockNode:
		d := &Directive{DirectiveData: DirectiveData{
			Name:       "math",
			RawOptions: mathTrailerOptions(n.trailer),
			Unclosed:   !n.closed,
		}}
		d.Append(&Math{Value: strings.TrimSpace(strings.Join(n.body, "\n"))})
		return []Node{d}
	case *inlineMathNode:
		return []Node{&InlineMath{Value: n.value}}
	default:
		u := &Unknown{Type: node.Kind().String()}
		u.Append(c.children(node)...)
		return []Node{u}
	}
}

func (c *converter) lines(node ast.Node) string {
	var b strings.Builder
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		_, _ = b.Write(line.Value(c.source))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// fencedCode turns ```lang into Code and ```{name} argument into Directive.
func (c *converter) fencedCode(n *ast.FencedCodeBlock) Node {
	var info string
	if n.Info != nil {
		info = strings.TrimSpace(string(n.Info.Segment.Value(c.source)))
	}
	value := c.lines(n)

	if strings.HasPrefix(info, "{") && strings.Contains(info, "}") {
		name, argument := splitDirectiveHead(info)
		options, rawOpts, body := splitOptions(value)
		d := &Directive{DirectiveData: DirectiveData{
			Name:       name,
			Argument:   argument,
			Options:    options,
			RawOptions: strings.Join(rawOpts, "\n"),
			Value:      body,
			HasValue:   true,
		}}
		if !literalDirectives[strings.ToLower(name)] && strings.TrimSpace(body) != "" {
			// The body of a non-literal directive is markdown too.
			nested := defaultMarkdown().Parser().Parse(text.NewReader([]byte(body)))
			inner := &converter{source: []byte(body)}
			d.Append(inner.children(nested)...)
		}
		return d
	}

	lang, meta, _ := strings.Cut(info, " ")
	attributes, err := ParseAttributes([]byte(meta))
	if err != nil {
		attributes = Attributes{}
	}
	return &Code{
		Lang:       lang,
		Meta:       strings.TrimSpace(meta),
		Attributes: attributes,
		Value:      value,
	}
}

func alignment(a extast.Alignment) string {
	switch a {
	case extast.AlignLeft:
		return "left"
	case extast.AlignRight:
		return "right"
	case extast.AlignCenter:
		return "center"
	default:
		return ""
	}
}

// mathTrailerOptions converts `{label: eq:quad}` or `(quad)` written after
// a closing `$$` into raw option text.
func mathTrailerOptions(trailer string) string {
	trailer = strings.TrimSpace(trailer)
	switch {
	case strings.HasPrefix(trailer, "{") && strings.HasSuffix(trailer, "}"):
		inner := strings.TrimSpace(trailer[1 : len(trailer)-1])
		return strings.Join(strings.Split(inner, ","), "\n")
	case strings.HasPrefix(trailer, "(") && strings.HasSuffix(trailer, ")"):
		return fmt.Sprintf("label: eq:%s", strings.TrimSpace(trailer[1:len(trailer)-1]))
	default:
		return trailer
	}
}
