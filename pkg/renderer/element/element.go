// Package element is the UI element tree produced by the renderer.
package element

import (
	"strings"

	"github.com/lessonmark/lessonmark/pkg/renderer/widget"
)

type Attr struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Element is either a tag with attributes and children, or a text
// leaf when Tag is empty. A tagless element without text is a fragment
// whose children are rendered in its place.
type Element struct {
	Tag      string        `json:"tag,omitempty"`
	Key      string        `json:"key,omitempty"`
	Attrs    []Attr        `json:"attrs,omitempty"`
	Text     string        `json:"text,omitempty"`
	Children []*Element    `json:"children,omitempty"`
	Widget   widget.Widget `json:"widget,omitempty"`
}

func New(tag string, children ...*Element) *Element {
	return &Element{Tag: tag, Children: children}
}

func Text(value string) *Element {
	return &Element{Text: value}
}

func (e *Element) IsText() bool {
	return e.Tag == "" && len(e.Children) == 0
}

// SetAttr sets or replaces an attribute and returns e.
func (e *Element) SetAttr(key, value string) *Element {
	for i := range e.Attrs {
		if e.Attrs[i].Key == key {
			e.Attrs[i].Value = value
			return e
		}
	}
	e.Attrs = append(e.Attrs, Attr{Key: key, Value: value})
	return e
}

func (e *Element) Attr(key string) string {
	for _, a := range e.Attrs {
		if a.Key == key {
			return a.Value
		}
	}
	return ""
}

func (e *Element) HasAttr(key string) bool {
	for _, a := range e.Attrs {
		if a.Key == key {
			return true
		}
	}
	return false
}

func (e *Element) AddClass(classes ...string) *Element {
	current := strings.Fields(e.Attr("class"))
	for _, c := range classes {
		if c == "" || contains(current, c) {
			continue
		}
		current = append(current, c)
	}
	return e.SetAttr("class", strings.Join(current, " "))
}

func (e *Element) HasClass(class string) bool {
	return contains(strings.Fields(e.Attr("class")), class)
}

func (e *Element) Append(children ...*Element) *Element {
	for _, c := range children {
		if c != nil {
			e.Children = append(e.Children, c)
		}
	}
	return e
}

func (e *Element) WithWidget(w widget.Widget) *Element {
	e.Widget = w
	return e
}

// TextContent concatenates the text below e.
func (e *Element) TextContent() string {
	var b strings.Builder
	Walk(e, func(el *Element) bool {
		if el.IsText() || el.Tag != "" {
			_, _ = b.WriteString(el.Text)
		}
		return true
	})
	return b.String()
}

// Walk visits e and its descendants in document order. Returning false
// skips the children of the visited element.
func Walk(e *Element, fn func(*Element) bool) {
	if e == nil || !fn(e) {
		return
	}
	for _, c := range e.Children {
		Walk(c, fn)
	}
}

// Find returns the elements below roots for which match is true.
func Find(roots []*Element, match func(*Element) bool) []*Element {
	var found []*Element
	for _, root := range roots {
		Walk(root, func(e *Element) bool {
			if match(e) {
				found = append(found, e)
			}
			return true
		})
	}
	return found
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
