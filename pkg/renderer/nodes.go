package renderer

import (
	"fmt"
	"strconv"
	"strings"

	gmhtml "github.com/yuin/goldmark/renderer/html"
	"go.uber.org/zap"

	"github.com/lessonmark/lessonmark/pkg/document"
	"github.com/lessonmark/lessonmark/pkg/document/directive"
	"github.com/lessonmark/lessonmark/pkg/renderer/element"
	"github.com/lessonmark/lessonmark/pkg/renderer/widget"
)

// render maps one syntax node to zero or more elements. Children are
// visited in document order.
func (r *Renderer) render(node document.Node, k string, ctx *renderContext) []*element.Element {
	switch n := node.(type) {
	case *document.Root:
		return r.children(n.Children(), k, ctx)
	case *document.Text:
		return one(element.Text(n.Value), k)
	case *document.Strong:
		return r.wrap("strong", n, k, ctx)
	case *document.Emphasis:
		return r.wrap("em", n, k, ctx)
	case *document.InlineCode:
		return one(element.New("code", element.Text(n.Value)), k)
	case *document.InlineMath:
		e := element.New("span", element.Text(n.Value)).
			SetAttr("class", "math math-inline")
		return one(e, k)
	case *document.Link:
		return one(r.link(n, k, ctx), k)
	case *document.Paragraph:
		return r.wrap("p", n, k, ctx)
	case *document.Heading:
		return r.wrap(fmt.Sprintf("h%d", clampHeading(n.Level)), n, k, ctx)
	case *document.List:
		return one(r.list(n, k, ctx), k)
	case *document.ListItem:
		return r.wrap("li", n, k, ctx)
	case *document.Table:
		return one(r.table(n, k, ctx), k)
	case *document.TableRow:
		return one(r.tableRow(n, k, ctx), k)
	case *document.TableCell:
		return one(r.tableCell(n, false, k, ctx), k)
	case *document.Blockquote:
		return r.wrap("blockquote", n, k, ctx)
	case *document.Break:
		return one(element.New("br"), k)
	case *document.ThematicBreak:
		return one(element.New("hr"), k)
	case *document.Image:
		return one(r.image(n.URL, n.Alt, n.Title, n.Width, n.Height, n.Align, ctx), k)
	case *document.Code:
		return one(r.codeBlock(directive.FromCode(n), k, ctx), k)
	case *document.Math:
		// Display math outside a math directive is still numbered.
		return one(r.equation(directive.MathPayload{Body: strings.TrimSpace(n.Value)}, ctx), k)
	case *document.Directive:
		return one(r.directive(n, k, ctx), k)
	case *document.BlockDirective:
		return one(r.directive(n, k, ctx), k)
	case *document.Unknown:
		if len(n.Children()) > 0 {
			return r.children(n.Children(), k, ctx)
		}
		r.logger.Debug("skipping node without renderer", zap.String("type", n.Type), zap.String("key", k))
		ctx.diagnose(n.Type, k, "node has no renderer and no children")
		return nil
	case nil:
		return nil
	default:
		r.logger.Warn("unexpected node", zap.String("type", fmt.Sprintf("%T", node)))
		ctx.diagnose(fmt.Sprintf("%T", node), k, "unexpected node type")
		return nil
	}
}

func (r *Renderer) children(nodes []document.Node, parent string, ctx *renderContext) []*element.Element {
	var result []*element.Element
	for i, child := range nodes {
		result = append(result, r.render(child, key(parent, i), ctx)...)
	}
	return result
}

func (r *Renderer) wrap(tag string, node document.Node, k string, ctx *renderContext) []*element.Element {
	return one(element.New(tag, r.children(node.Children(), k, ctx)...), k)
}

func one(e *element.Element, k string) []*element.Element {
	if e == nil {
		return nil
	}
	if e.Key == "" {
		e.Key = k
	}
	return []*element.Element{e}
}

func clampHeading(level int) int {
	switch {
	case level < 1:
		return 1
	case level > 6:
		return 6
	default:
		return level
	}
}

func isExternal(url string) bool {
	lower := strings.ToLower(url)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// safeURL reports whether url can be emitted as an href. Script-capable
// schemes such as javascript: are rejected.
func safeURL(url string) bool {
	return !gmhtml.IsDangerousURL([]byte(strings.TrimSpace(url)))
}

func (r *Renderer) link(n *document.Link, k string, ctx *renderContext) *element.Element {
	e := element.New("a", r.children(n.Children(), k, ctx)...)
	if !safeURL(n.URL) {
		r.logger.Warn("dropping unsafe link", zap.String("url", n.URL), zap.String("key", k))
		ctx.diagnose(string(n.Kind()), k, fmt.Sprintf("unsafe link %q removed", n.URL))
		return e
	}
	e.SetAttr("href", n.URL)
	if n.Title != "" {
		e.SetAttr("title", n.Title)
	}
	if isExternal(n.URL) {
		e.SetAttr("target", "_blank").SetAttr("rel", "noopener noreferrer")
	}
	return e
}

func (r *Renderer) list(n *document.List, k string, ctx *renderContext) *element.Element {
	if !n.Ordered {
		return element.New("ul", r.children(n.Children(), k, ctx)...)
	}
	e := element.New("ol", r.children(n.Children(), k, ctx)...)
	if n.Start > 1 {
		e.SetAttr("start", strconv.Itoa(n.Start))
	}
	return e
}

func (r *Renderer) table(n *document.Table, k string, ctx *renderContext) *element.Element {
	head := element.New("thead")
	body := element.New("tbody")
	for i, child := range n.Children() {
		ck := key(k, i)
		row, ok := child.(*document.TableRow)
		if !ok {
			body.Append(r.render(child, ck, ctx)...)
			continue
		}
		tr := r.tableRow(row, ck, ctx)
		tr.Key = ck
		if row.Header {
			head.Append(tr)
		} else {
			body.Append(tr)
		}
	}

	table := element.New("table")
	if len(head.Children) > 0 {
		table.Append(head)
	}
	if len(body.Children) > 0 {
		table.Append(body)
	}
	return table
}

func (r *Renderer) tableRow(n *document.TableRow, k string, ctx *renderContext) *element.Element {
	tr := element.New("tr")
	for i, child := range n.Children() {
		ck := key(k, i)
		if cell, ok := child.(*document.TableCell); ok {
			td := r.tableCell(cell, n.Header, ck, ctx)
			td.Key = ck
			tr.Append(td)
			continue
		}
		tr.Append(r.render(child, ck, ctx)...)
	}
	return tr
}

func (r *Renderer) tableCell(n *document.TableCell, header bool, k string, ctx *renderContext) *element.Element {
	tag := "td"
	if header {
		tag = "th"
	}
	e := element.New(tag, r.children(n.Children(), k, ctx)...)
	if n.Align != "" {
		e.SetAttr("style", "text-align: "+n.Align)
	}
	return e
}

func (r *Renderer) image(src, alt, title, width, height, align string, ctx *renderContext) *element.Element {
	resolved := r.resolver.Resolve(src, ctx.course)
	img := widget.NewImage(resolved, alt, r.logger)

	e := element.New("img").
		SetAttr("src", resolved).
		SetAttr("alt", alt).
		SetAttr("loading", "lazy").
		SetAttr("data-placeholder", img.Placeholder).
		WithWidget(img)
	if title != "" {
		e.SetAttr("title", title)
	}
	if width != "" {
		e.SetAttr("width", width)
	}
	if height != "" {
		e.SetAttr("height", height)
	}
	if align != "" {
		e.AddClass("align-" + align)
	}
	return e
}

func (r *Renderer) codeBlock(p directive.CodePayload, k string, ctx *renderContext) *element.Element {
	code := widget.NewCode(p.Language, p.Source,
		widget.WithClipboard(r.clipboard),
		widget.WithCopyReset(r.copyReset),
		widget.WithCaption(p.Caption),
		widget.WithLineNumbers(p.LineNumbers),
		widget.WithCodeLogger(r.logger),
	)

	codeEl := element.New("code").SetAttr("class", "language-"+p.Language)
	tokens, err := code.Tokens()
	if err != nil {
		r.logger.Debug("failed to highlight code", zap.String("language", p.Language), zap.Error(err))
		ctx.diagnose(string(document.KindCode), k, err.Error())
		codeEl.Append(element.Text(p.Source))
	} else {
		for _, tok := range tokens {
			class := widget.TokenClass(tok.Type)
			colour := widget.TokenColour(r.highlightStyle, tok.Type)
			if class == "" && colour == "" {
				codeEl.Append(element.Text(tok.Value))
				continue
			}
			span := element.New("span", element.Text(tok.Value))
			if class != "" {
				span.SetAttr("class", class)
			}
			if colour != "" {
				span.SetAttr("style", "color: "+colour)
			}
			codeEl.Append(span)
		}
	}

	pre := element.New("pre", codeEl).SetAttr("class", "chroma")
	if p.LineNumbers {
		pre.AddClass("line-numbers")
	}

	block := element.New("div").
		SetAttr("class", "code-block").
		SetAttr("data-language", p.Language).
		WithWidget(code)
	if p.Caption != "" {
		block.Append(element.New("div", element.Text(p.Caption)).SetAttr("class", "code-caption"))
	}
	block.Append(
		pre,
		element.New("button", element.Text("Copy")).
			SetAttr("type", "button").
			SetAttr("class", "copy-button").
			SetAttr("aria-label", "Copy code"),
	)
	return block
}
