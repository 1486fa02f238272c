package element

import (
	"bytes"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const widgetAttr = "data-widget"

// WriteHTML serializes elements as an HTML fragment.
func WriteHTML(w io.Writer, elements []*Element) error {
	for _, e := range elements {
		for _, n := range toHTML(e) {
			if err := html.Render(w, n); err != nil {
				return errors.Wrap(err, "failed to render html")
			}
		}
	}
	return nil
}

func HTML(elements []*Element) (string, error) {
	var buf bytes.Buffer
	if err := WriteHTML(&buf, elements); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func toHTML(e *Element) []*html.Node {
	if e == nil {
		return nil
	}
	if e.Tag == "" {
		if len(e.Children) == 0 {
			return []*html.Node{{Type: html.TextNode, Data: e.Text}}
		}
		var nodes []*html.Node
		for _, c := range e.Children {
			nodes = append(nodes, toHTML(c)...)
		}
		return nodes
	}

	n := &html.Node{
		Type:     html.ElementNode,
		Data:     e.Tag,
		DataAtom: atom.Lookup([]byte(e.Tag)),
	}
	for _, a := range e.Attrs {
		n.Attr = append(n.Attr, html.Attribute{Key: a.Key, Val: a.Value})
	}
	if e.Widget != nil && !e.HasAttr(widgetAttr) {
		n.Attr = append(n.Attr, html.Attribute{Key: widgetAttr, Val: e.Widget.Name()})
	}
	if e.Text != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: e.Text})
	}
	for _, c := range e.Children {
		for _, child := range toHTML(c) {
			n.AppendChild(child)
		}
	}
	return []*html.Node{n}
}
