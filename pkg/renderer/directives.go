package renderer

import (
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/lessonmark/lessonmark/pkg/document"
	"github.com/lessonmark/lessonmark/pkg/document/directive"
	"github.com/lessonmark/lessonmark/pkg/renderer/element"
	"github.com/lessonmark/lessonmark/pkg/renderer/widget"
)

// directive renders both directive encodings through one normalized form.
// The children of a math directive are consumed by its payload and are
// never rendered on their own.
func (r *Renderer) directive(node document.DirectiveNode, k string, ctx *renderContext) *element.Element {
	d := directive.Normalize(node)
	if node.Data().Unclosed {
		r.logger.Debug("unclosed directive", zap.String("directive", d.Name), zap.String("key", k))
		ctx.diagnose(string(node.Kind()), k, fmt.Sprintf("%q block is not closed", d.Name))
	}

	var e *element.Element
	switch p := d.Payload.(type) {
	case directive.CodePayload:
		e = r.codeBlock(p, k, ctx)
	case directive.MathPayload:
		e = r.equation(p, ctx)
	case directive.FigurePayload:
		e = r.figure(p, k, ctx)
	case directive.LayoutPayload:
		e = r.layout(d.Kind, p, k, ctx)
	case directive.AdmonitionPayload:
		if d.Kind == directive.KindUnknown {
			r.logger.Warn("unknown directive", zap.String("directive", d.Name), zap.String("key", k))
			ctx.diagnose(string(node.Kind()), k, fmt.Sprintf("unknown directive %q rendered as note", d.Name))
		}
		e = r.admonition(d, p, k, ctx)
	default:
		// Normalize always returns one of the payloads above.
		ctx.diagnose(string(node.Kind()), k, fmt.Sprintf("directive %q has no payload", d.Name))
		return nil
	}

	e.SetAttr("data-directive", d.Name)
	return e
}

func (r *Renderer) equation(p directive.MathPayload, ctx *renderContext) *element.Element {
	eq := widget.NewEquation(ctx.nextEquation(), p.Body, p.Label)
	index := strconv.Itoa(eq.Index)

	e := element.New("div",
		element.New("div", element.Text(eq.Body)).SetAttr("class", "math-body"),
		element.New("span", element.Text("("+index+")")).SetAttr("class", "equation-number"),
	).
		SetAttr("class", "math math-block").
		SetAttr("data-equation", index).
		WithWidget(eq)
	if eq.Label != "" {
		e.SetAttr("id", "eq-"+eq.Label)
		e.Append(element.New("span", element.Text(eq.Label)).SetAttr("class", "equation-label"))
	}
	return e
}

func (r *Renderer) figure(p directive.FigurePayload, k string, ctx *renderContext) *element.Element {
	e := element.New("figure").
		SetAttr("class", "figure align-"+p.Align)
	if p.Src != "" {
		e.Append(r.image(p.Src, p.Alt, "", p.Width, p.Height, "", ctx))
	} else {
		ctx.diagnose(string(document.KindImage), k, "figure without an image source")
	}
	if caption := r.children(p.Caption, k, ctx); len(caption) > 0 {
		e.Append(element.New("figcaption", caption...))
	}
	return e
}

func (r *Renderer) admonition(d directive.Directive, p directive.AdmonitionPayload, k string, ctx *renderContext) *element.Element {
	body := element.New("div").SetAttr("class", "admonition-body")
	if len(p.Body) > 0 {
		body.Append(r.children(p.Body, k, ctx)...)
	} else if p.RawBody != "" {
		body.Append(element.New("p", element.Text(p.RawBody)))
	}

	classes := []string{"admonition", "admonition-" + p.Style}
	if d.Kind == directive.KindUnknown {
		classes = append(classes, "admonition-unknown")
	}

	if p.Collapsible {
		c := widget.NewCollapsible(p.Title, p.Open)
		e := element.New("details",
			element.New("summary", element.Text(p.Title)).SetAttr("class", "admonition-title"),
			body,
		).WithWidget(c)
		e.AddClass(classes...).AddClass("dropdown")
		if c.Expanded() {
			e.SetAttr("open", "")
		}
		e.SetAttr("data-kind", d.Kind.String())
		return e
	}

	e := element.New("aside",
		element.New("p", element.Text(p.Title)).SetAttr("class", "admonition-title"),
		body,
	)
	e.AddClass(classes...)
	e.SetAttr("data-kind", d.Kind.String())
	return e
}

func (r *Renderer) layout(kind directive.Kind, p directive.LayoutPayload, k string, ctx *renderContext) *element.Element {
	children := r.children(p.Body, k, ctx)

	if kind == directive.KindGrid {
		columns := strconv.Itoa(p.Columns)
		return element.New("div", children...).
			SetAttr("class", "grid").
			SetAttr("data-columns", columns).
			SetAttr("style", fmt.Sprintf("grid-template-columns: repeat(%s, minmax(0, 1fr))", columns))
	}

	card := element.New("div").SetAttr("class", "card")
	if p.Title != "" {
		title := element.New("div").SetAttr("class", "card-title")
		switch {
		case p.Link != "" && safeURL(p.Link):
			title.Append(element.New("a", element.Text(p.Title)).SetAttr("href", p.Link))
		case p.Link != "":
			r.logger.Warn("dropping unsafe card link", zap.String("url", p.Link), zap.String("key", k))
			ctx.diagnose(kind.String(), k, fmt.Sprintf("unsafe link %q removed", p.Link))
			title.Append(element.Text(p.Title))
		default:
			title.Append(element.Text(p.Title))
		}
		card.Append(title)
	}
	card.Append(element.New("div", children...).SetAttr("class", "card-body"))
	return card
}
