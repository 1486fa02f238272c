package document

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

var (
	kindColonDirective = ast.NewNodeKind("ColonDirective")
	kindMathBlock      = ast.NewNodeKind("MathBlock")
	kindInlineMath     = ast.NewNodeKind("InlineMath")
)

const (
	colonFenceChar   = ':'
	minColonFenceLen = 3
	mathFence        = "$$"
)

// colonDirectiveNode is a `:::{name} argument` container block.
// Its children are parsed as regular markdown.
type colonDirectiveNode struct {
	ast.BaseBlock
	name     string
	argument string
	options  Options
	rawOpts  []string

	fenceLen    int
	optionsDone bool
	// fenced is set when the closing fence was seen, closed once the
	// block is closed for any reason.
	fenced bool
	closed bool
}

func (n *colonDirectiveNode) Kind() ast.NodeKind { return kindColonDirective }

func (n *colonDirectiveNode) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"Name":     n.name,
		"Argument": n.argument,
	}, nil)
}

// mathBlockNode is a `$$` display equation. The trailer after the
// closing fence carries options such as a label. Display math cannot
// contain a blank line, so an unclosed block ends at the first one.
type mathBlockNode struct {
	ast.BaseBlock
	body    []string
	trailer string
	closed  bool
}

func (n *mathBlockNode) Kind() ast.NodeKind { return kindMathBlock }

func (n *mathBlockNode) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"Body":    strings.Join(n.body, "\n"),
		"Trailer": n.trailer,
	}, nil)
}

type inlineMathNode struct {
	ast.BaseInline
	value string
}

func (n *inlineMathNode) Kind() ast.NodeKind { return kindInlineMath }

func (n *inlineMathNode) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Value": n.value}, nil)
}

type colonDirectiveParser struct{}

func (p *colonDirectiveParser) Trigger() []byte {
	return []byte{colonFenceChar}
}

// parseColonFence returns the fence length and the remainder of the line.
func parseColonFence(line []byte) (int, []byte) {
	i := 0
	for i < len(line) && line[i] == colonFenceChar {
		i++
	}
	return i, line[i:]
}

func (p *colonDirectiveParser) Open(parent ast.Node, reader text.Reader, pc parser.Context) (ast.Node, parser.State) {
	line, _ := reader.PeekLine()
	pos := pc.BlockOffset()
	if pos < 0 || pos >= len(line) || line[pos] != colonFenceChar {
		return nil, parser.NoChildren
	}
	fenceLen, rest := parseColonFence(line[pos:])
	if fenceLen < minColonFenceLen {
		return nil, parser.NoChildren
	}
	rest = bytes.TrimSpace(rest)
	if len(rest) == 0 {
		// A bare fence only closes.
		return nil, parser.NoChildren
	}

	name, argument := splitDirectiveHead(string(rest))
	if name == "" {
		return nil, parser.NoChildren
	}

	return &colonDirectiveNode{
		name:     name,
		argument: argument,
		fenceLen: fenceLen,
	}, parser.NoChildren
}

func (p *colonDirectiveParser) Continue(node ast.Node, reader text.Reader, pc parser.Context) parser.State {
	n := node.(*colonDirectiveNode)
	line, segment := reader.PeekLine()

	w, pos := util.IndentWidth(line, reader.LineOffset())
	if w < 4 && pos < len(line) {
		length, rest := parseColonFence(line[pos:])
		if length >= n.fenceLen && util.IsBlank(rest) && !hasOpenColonDirective(n, length) {
			n.fenced = true
			newline := 1
			if line[len(line)-1] != '\n' {
				newline = 0
			}
			reader.Advance(segment.Stop - segment.Start - newline + segment.Padding)
			return parser.Close
		}
	}

	if !n.optionsDone {
		if opt, ok := parseOptionLine(string(line)); ok {
			n.options = append(n.options, opt)
			n.rawOpts = append(n.rawOpts, strings.TrimSpace(string(line)))
			return parser.Continue | parser.NoChildren
		}
		n.optionsDone = true
	}

	return parser.Continue | parser.HasChildren
}

func (p *colonDirectiveParser) Close(node ast.Node, reader text.Reader, pc parser.Context) {
	node.(*colonDirectiveNode).closed = true
}

// hasOpenColonDirective reports whether a fence of the given length
// closes a directive nested in n rather than n itself. Open blocks are
// always the last child of their parent.
func hasOpenColonDirective(n ast.Node, length int) bool {
	for c := n.LastChild(); c != nil; c = c.LastChild() {
		if d, ok := c.(*colonDirectiveNode); ok && !d.closed && length >= d.fenceLen {
			return true
		}
	}
	return false
}

func (p *colonDirectiveParser) CanInterruptParagraph() bool { return true }

func (p *colonDirectiveParser) CanAcceptIndentedLine() bool { return false }

// splitDirectiveHead splits `{name} argument`, `{name}argument`
// or `name argument`.
func splitDirectiveHead(head string) (name, argument string) {
	head = strings.TrimSpace(head)
	if strings.HasPrefix(head, "{") {
		end := strings.IndexByte(head, '}')
		if end < 0 {
			return "", ""
		}
		return strings.TrimSpace(head[1:end]), strings.TrimSpace(head[end+1:])
	}
	name, argument, _ = strings.Cut(head, " ")
	return strings.TrimSpace(name), strings.TrimSpace(argument)
}

type mathBlockParser struct{}

func (p *mathBlockParser) Trigger() []byte {
	return []byte{'$'}
}

func (p *mathBlockParser) Open(parent ast.Node, reader text.Reader, pc parser.Context) (ast.Node, parser.State) {
	line, segment := reader.PeekLine()
	pos := pc.BlockOffset()
	if pos < 0 || !bytes.HasPrefix(line[pos:], []byte(mathFence)) {
		return nil, parser.NoChildren
	}
	rest := string(bytes.TrimRight(line[pos+len(mathFence):], "\r\n"))

	node := &mathBlockNode{}
	if body, trailer, ok := strings.Cut(rest, mathFence); ok {
		// Single line form: $$ body $$ trailer
		if strings.TrimSpace(body) == "" {
			return nil, parser.NoChildren
		}
		node.body = []string{strings.TrimSpace(body)}
		node.trailer = strings.TrimSpace(trailer)
		node.closed = true
		newline := 1
		if line[len(line)-1] != '\n' {
			newline = 0
		}
		reader.Advance(segment.Stop - segment.Start - newline + segment.Padding)
		return node, parser.NoChildren
	}
	if first := strings.TrimSpace(rest); first != "" {
		node.body = append(node.body, first)
	}
	return node, parser.NoChildren
}

func (p *mathBlockParser) Continue(node ast.Node, reader text.Reader, pc parser.Context) parser.State {
	n := node.(*mathBlockNode)
	if n.closed {
		return parser.Close
	}
	line, segment := reader.PeekLine()
	if util.IsBlank(line) {
		return parser.Close
	}
	content := strings.TrimRight(string(line), "\r\n")

	if body, trailer, ok := strings.Cut(content, mathFence); ok {
		if b := strings.TrimSpace(body); b != "" {
			n.body = append(n.body, b)
		}
		n.trailer = strings.TrimSpace(trailer)
		n.closed = true
		newline := 1
		if line[len(line)-1] != '\n' {
			newline = 0
		}
		reader.Advance(segment.Stop - segment.Start - newline + segment.Padding)
		return parser.Close
	}

	n.body = append(n.body, content)
	return parser.Continue | parser.NoChildren
}

func (p *mathBlockParser) Close(node ast.Node, reader text.Reader, pc parser.Context) {}

func (p *mathBlockParser) CanInterruptParagraph() bool { return true }

func (p *mathBlockParser) CanAcceptIndentedLine() bool { return false }

type inlineMathParser struct{}

func (p *inlineMathParser) Trigger() []byte {
	return []byte{'$'}
}

func (p *inlineMathParser) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	line, _ := block.PeekLine()
	if len(line) < 2 {
		return nil
	}
	delim := "$"
	if line[1] == '$' {
		delim = mathFence
	}
	content := line[len(delim):]
	end := -1
	for i := 0; i+len(delim) <= len(content); i++ {
		if content[i] == '\\' {
			i++
			continue
		}
		if bytes.HasPrefix(content[i:], []byte(delim)) {
			end = i
			break
		}
	}
	if end <= 0 {
		return nil
	}
	value := string(content[:end])
	if delim == "$" && (strings.HasPrefix(value, " ") || strings.HasSuffix(value, " ")) {
		return nil
	}
	block.Advance(len(delim)*2 + end)
	return &inlineMathNode{value: strings.TrimSpace(value)}
}

type mystExtension struct{}

// Extension adds colon-fence directives and math to goldmark.
var Extension goldmark.Extender = &mystExtension{}

func (e *mystExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(
		parser.WithBlockParsers(
			util.Prioritized(&colonDirectiveParser{}, 200),
			util.Prioritized(&mathBlockParser{}, 850),
		),
		parser.WithInlineParsers(
			util.Prioritized(&inlineMathParser{}, 500),
		),
	)
}
