// Package renderer turns lesson markdown into a tree of UI elements.
//
// A Renderer holds configuration only. Every call to [Renderer.Render]
// creates its own render context, so equation numbering always starts
// at 1 and concurrent renders never interleave.
package renderer

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/lessonmark/lessonmark/pkg/document"
	"github.com/lessonmark/lessonmark/pkg/renderer/asset"
	"github.com/lessonmark/lessonmark/pkg/renderer/element"
	"github.com/lessonmark/lessonmark/pkg/renderer/widget"
)

const renderFailedMessage = "This content failed to render."

type Option func(*Renderer)

func WithLogger(logger *zap.Logger) Option {
	return func(r *Renderer) {
		r.logger = logger
	}
}

func WithContentRoot(root string) Option {
	return func(r *Renderer) {
		r.resolver = asset.NewResolver(root)
	}
}

func WithClipboard(c widget.Clipboard) Option {
	return func(r *Renderer) {
		r.clipboard = c
	}
}

func WithCopyReset(d time.Duration) Option {
	return func(r *Renderer) {
		r.copyReset = d
	}
}

// WithHighlightStyle adds inline colours from a chroma style to code
// tokens. Without it tokens only carry CSS classes.
func WithHighlightStyle(style string) Option {
	return func(r *Renderer) {
		r.highlightStyle = style
	}
}

type Renderer struct {
	logger         *zap.Logger
	resolver       *asset.Resolver
	clipboard      widget.Clipboard
	copyReset      time.Duration
	highlightStyle string
}

func New(opts ...Option) *Renderer {
	r := &Renderer{}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	if r.resolver == nil {
		r.resolver = asset.NewResolver(asset.DefaultContentRoot)
	}
	if r.clipboard == nil {
		r.clipboard = widget.SystemClipboard{}
	}
	if r.copyReset <= 0 {
		r.copyReset = widget.DefaultCopyReset
	}
	return r
}

// Diagnostic reports content that was rendered with a fallback or
// skipped. Diagnostics never stop a render.
type Diagnostic struct {
	Node    string `json:"node"`
	Message string `json:"message"`
	Key     string `json:"key,omitempty"`
}

type Result struct {
	Elements    []*element.Element    `json:"elements"`
	Equations   int                   `json:"equations"`
	Diagnostics []Diagnostic          `json:"diagnostics,omitempty"`
	Frontmatter *document.Frontmatter `json:"frontmatter,omitempty"`
	// Err is set when the document could not be rendered. Elements then
	// hold a single error block.
	Err error `json:"-"`
}

func (r *Result) WriteHTML(w io.Writer) error {
	return element.WriteHTML(w, r.Elements)
}

func (r *Result) HTML() (string, error) {
	return element.HTML(r.Elements)
}

// WriteJSON writes the result, including widget state, as indented JSON.
func (r *Result) WriteJSON(w io.Writer) error {
	out := *r
	if out.Elements == nil {
		out.Elements = []*element.Element{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(&out), "failed to write json")
}

// Render parses source and renders it for the given course. It never
// panics: parse errors and panics produce a result with a visible
// error block.
func (r *Renderer) Render(source []byte, course string) (result *Result) {
	defer func() {
		if v := recover(); v != nil {
			err := errors.Errorf("panic while rendering: %v", v)
			r.logger.Error("recovered from panic", zap.String("course", course), zap.Error(err))
			result = r.failed(err)
		}
	}()

	root, err := document.Parse(source)
	if err != nil {
		r.logger.Warn("failed to parse document", zap.String("course", course), zap.Error(err))
		return r.failed(errors.Wrap(err, "failed to parse document"))
	}
	return r.RenderRoot(root, course)
}

// RenderRoot renders an already parsed document.
func (r *Renderer) RenderRoot(root *document.Root, course string) (result *Result) {
	defer func() {
		if v := recover(); v != nil {
			err := errors.Errorf("panic while rendering: %v", v)
			r.logger.Error("recovered from panic", zap.String("course", course), zap.Error(err))
			result = r.failed(err)
		}
	}()

	if root == nil {
		return r.failed(errors.New("no document to render"))
	}

	ctx := newRenderContext(course)
	result = &Result{Frontmatter: root.Frontmatter}
	if root.FrontmatterErr != nil {
		r.logger.Warn("invalid frontmatter rendered as content", zap.String("course", course), zap.Error(root.FrontmatterErr))
		ctx.diagnose("frontmatter", "", "invalid frontmatter rendered as content: "+root.FrontmatterErr.Error())
	}
	for i, child := range root.Children() {
		result.Elements = append(result.Elements, r.render(child, key("", i), ctx)...)
	}
	result.Equations = ctx.equations
	result.Diagnostics = ctx.diagnostics
	return result
}

func (r *Renderer) failed(err error) *Result {
	detail := widget.NewCollapsible("Details", false)
	block := element.New("div",
		element.New("p", element.Text(renderFailedMessage)).SetAttr("class", "render-error-message"),
		element.New("details",
			element.New("summary", element.Text(detail.Summary)),
			element.New("pre", element.Text(err.Error())),
		).SetAttr("class", "render-error-detail").WithWidget(detail),
	).SetAttr("class", "render-error").SetAttr("role", "alert")
	block.Key = "error"

	return &Result{
		Elements: []*element.Element{block},
		Err:      err,
	}
}

// renderContext is the state of one render call.
type renderContext struct {
	course      string
	equations   int
	diagnostics []Diagnostic
}

func newRenderContext(course string) *renderContext {
	return &renderContext{course: course}
}

func (c *renderContext) nextEquation() int {
	c.equations++
	return c.equations
}

func (c *renderContext) diagnose(node, key, message string) {
	c.diagnostics = append(c.diagnostics, Diagnostic{Node: node, Key: key, Message: message})
}

func key(parent string, index int) string {
	if parent == "" {
		return fmt.Sprint(index)
	}
	return fmt.Sprintf("%s.%d", parent, index)
}
