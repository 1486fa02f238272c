// Package directive normalizes the directive nodes of a parsed document
// into a kind and a typed payload.
//
// Normalization is total: any directive, however malformed, yields a
// displayable result. Unrecognized names become [KindUnknown], which
// renders as a note-styled block labelled with the raw name.
package directive

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/lessonmark/lessonmark/pkg/document"
)

const (
	DefaultLanguage    = "text"
	DefaultFigureAlign = "center"
	DefaultGridColumns = 2
	maxGridColumns     = 12
)

// Directive is the normalized form shared by both directive encodings.
type Directive struct {
	Kind     Kind
	Name     string
	Argument string
	Options  document.Options
	Payload  Payload
}

// Payload is one of [CodePayload], [MathPayload], [FigurePayload],
// [AdmonitionPayload] or [LayoutPayload].
type Payload interface {
	payload()
}

type CodePayload struct {
	Language    string
	Source      string
	Caption     string
	LineNumbers bool
}

type MathPayload struct {
	Label string
	Body  string
}

type FigurePayload struct {
	Src     string
	Alt     string
	Width   string
	Height  string
	Align   string
	Caption []document.Node
}

type AdmonitionPayload struct {
	Style       string
	Title       string
	Collapsible bool
	Open        bool
	Body        []document.Node
	// RawBody is set only when the directive has a text value
	// and no parsed children.
	RawBody string
}

type LayoutPayload struct {
	Columns int
	Title   string
	Link    string
	Body    []document.Node
}

func (CodePayload) payload()       {}
func (MathPayload) payload()       {}
func (FigurePayload) payload()     {}
func (AdmonitionPayload) payload() {}
func (LayoutPayload) payload()     {}

// Normalize classifies node and extracts its payload.
func Normalize(node document.DirectiveNode) Directive {
	data, children := unpack(node)

	d := Directive{
		Kind:     Classify(data.Name, data.Argument),
		Name:     data.Name,
		Argument: data.Argument,
		Options:  data.Options,
	}

	switch d.Kind {
	case KindCode:
		d.Payload = codePayload(data, children)
	case KindMath:
		d.Payload = mathPayload(data, children)
	case KindFigure:
		d.Payload = figurePayload(data, children)
	case KindGrid, KindCard:
		d.Payload = layoutPayload(d.Kind, data, children)
	default:
		d.Payload = admonitionPayload(d.Kind, data, children)
	}

	return d
}

func unpack(node document.DirectiveNode) (document.DirectiveData, []document.Node) {
	switch n := node.(type) {
	case *document.Directive:
		if n != nil {
			return n.DirectiveData, n.Children()
		}
	case *document.BlockDirective:
		if n != nil {
			return n.DirectiveData, n.Children()
		}
	case nil:
	default:
		if data := n.Data(); data != nil {
			return *data, n.Children()
		}
	}
	return document.DirectiveData{}, nil
}

// FromCode builds the code payload of a plain fenced code block.
func FromCode(code *document.Code) CodePayload {
	if code == nil {
		return CodePayload{Language: DefaultLanguage}
	}

	p := CodePayload{
		Language: code.Lang,
		Source:   code.Value,
	}
	if p.Language == "" {
		p.Language, _, _ = strings.Cut(strings.TrimSpace(code.Meta), " ")
		if strings.HasPrefix(p.Language, "{") {
			p.Language = ""
		}
	}
	if p.Language == "" {
		p.Language = DefaultLanguage
	}
	for _, key := range []string{"title", "caption", "name"} {
		if v := code.Attributes[key]; v != "" {
			p.Caption = v
			break
		}
	}
	p.LineNumbers = isTruthy(code.Attributes["linenos"]) || isTruthy(code.Attributes["lineNumbers"])
	return p
}

func codePayload(data document.DirectiveData, children []document.Node) CodePayload {
	p := CodePayload{}

	if lang, _, _ := strings.Cut(strings.TrimSpace(data.Argument), " "); lang != "" {
		p.Language = lang
	} else if lang := data.Options.Lookup("language"); lang != "" {
		p.Language = lang
	} else {
		p.Language = DefaultLanguage
	}

	if data.HasValue {
		p.Source = data.Value
	} else {
		p.Source = childrenText(children)
	}

	p.Caption = data.Options.Lookup("caption")
	_, p.LineNumbers = data.Options.Get("linenos")
	if !p.LineNumbers {
		_, p.LineNumbers = data.Options.Get("number-lines")
	}
	return p
}

var labelRe = regexp.MustCompile(`^\s*:?label:\s*(?:eq:)?(\S+)`)

func mathPayload(data document.DirectiveData, children []document.Node) MathPayload {
	p := MathPayload{}

	for _, source := range []string{data.RawOptions, data.Argument} {
		for _, line := range strings.Split(source, "\n") {
			if m := labelRe.FindStringSubmatch(line); m != nil {
				p.Label = m[1]
				break
			}
		}
		if p.Label != "" {
			break
		}
	}
	if p.Label == "" {
		p.Label = strings.TrimPrefix(data.Options.Lookup("label"), "eq:")
	}

	var body []string
	for _, line := range strings.Split(data.Value, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), ":") {
			continue
		}
		body = append(body, strings.TrimSpace(line))
	}
	p.Body = strings.TrimSpace(strings.Join(body, "\n"))

	if p.Body == "" {
		for _, child := range children {
			if m, ok := child.(*document.Math); ok {
				p.Body = m.Value
				break
			}
		}
	}
	if p.Body == "" {
		p.Body = strings.TrimSpace(childrenText(children))
	}
	return p
}

func figurePayload(data document.DirectiveData, children []document.Node) FigurePayload {
	p := FigurePayload{
		Src:    strings.TrimSpace(data.Argument),
		Alt:    data.Options.Lookup("alt"),
		Width:  data.Options.Lookup("width"),
		Height: data.Options.Lookup("height"),
		Align:  data.Options.Lookup("align"),
	}

	image, caption := splitFigureImage(children)
	if image != nil {
		p.Src = override(p.Src, image.URL)
		p.Alt = override(p.Alt, image.Alt)
		p.Width = override(p.Width, image.Width)
		p.Height = override(p.Height, image.Height)
		p.Align = override(p.Align, image.Align)
	}
	if p.Align == "" {
		p.Align = DefaultFigureAlign
	}
	p.Caption = caption
	return p
}

// splitFigureImage finds the first nested image and returns the rest of
// the children as the caption. A paragraph holding only that image is
// dropped from the caption.
func splitFigureImage(children []document.Node) (*document.Image, []document.Node) {
	var image *document.Image
	for _, child := range children {
		document.Walk(child, func(n document.Node) bool {
			if image != nil {
				return false
			}
			if img, ok := n.(*document.Image); ok {
				image = img
				return false
			}
			return true
		})
		if image != nil {
			break
		}
	}
	if image == nil {
		return nil, children
	}

	caption := make([]document.Node, 0, len(children))
	for _, child := range children {
		if child == document.Node(image) {
			continue
		}
		if p, ok := child.(*document.Paragraph); ok && onlyImage(p, image) {
			continue
		}
		caption = append(caption, child)
	}
	return image, caption
}

func onlyImage(p *document.Paragraph, image *document.Image) bool {
	found := false
	for _, child := range p.Children() {
		switch n := child.(type) {
		case *document.Image:
			if n != image {
				return false
			}
			found = true
		case *document.Text:
			if strings.TrimSpace(n.Value) != "" {
				return false
			}
		default:
			return false
		}
	}
	return found
}

func admonitionPayload(kind Kind, data document.DirectiveData, children []document.Node) AdmonitionPayload {
	p := AdmonitionPayload{
		Style: kind.Style(),
		Body:  children,
	}

	argument := strings.TrimSpace(data.Argument)
	switch {
	case kind == KindChallenge && strings.EqualFold(argument, challengeArgument):
		p.Title = kind.DefaultTitle()
	case kind == KindUnknown && argument != "":
		// The fallback keeps its raw name visible.
		p.Title = data.Name + ": " + argument
	case kind == KindUnknown:
		p.Title = data.Name
	case argument != "":
		p.Title = argument
	default:
		p.Title = kind.DefaultTitle()
	}

	if class := data.Options.Lookup("class"); kind == KindDropdown || hasClass(class, "dropdown") {
		p.Collapsible = true
	}
	if _, ok := data.Options.Get("open"); ok {
		p.Open = true
	}

	if len(children) == 0 && data.HasValue {
		p.RawBody = data.Value
	}
	return p
}

func layoutPayload(kind Kind, data document.DirectiveData, children []document.Node) LayoutPayload {
	p := LayoutPayload{Body: children}

	switch kind {
	case KindGrid:
		p.Columns = gridColumns(data.Argument)
	case KindCard:
		p.Title = strings.TrimSpace(data.Argument)
		p.Link = data.Options.Lookup("link")
	}
	return p
}

// gridColumns reads the column count from arguments like "3" or
// "1 2 3 3"; the last number is the widest layout.
func gridColumns(argument string) int {
	columns := 0
	for _, field := range strings.Fields(argument) {
		if n, err := strconv.Atoi(field); err == nil {
			columns = n
		}
	}
	switch {
	case columns <= 0:
		return DefaultGridColumns
	case columns > maxGridColumns:
		return maxGridColumns
	default:
		return columns
	}
}

func hasClass(classes, class string) bool {
	for _, c := range strings.Fields(classes) {
		if strings.EqualFold(c, class) {
			return true
		}
	}
	return false
}

func childrenText(children []document.Node) string {
	var b strings.Builder
	for i, child := range children {
		if i > 0 {
			_ = b.WriteByte('\n')
		}
		_, _ = b.WriteString(document.TextContent(child))
	}
	return b.String()
}

func override(value, specific string) string {
	if specific != "" {
		return specific
	}
	return value
}

func isTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
