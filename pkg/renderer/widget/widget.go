// Package widget holds the stateful leaf widgets attached to rendered
// elements. Every widget owns its state; nothing is shared between
// instances.
package widget

// Widget is implemented by [Collapsible], [Code], [Equation] and [Image].
type Widget interface {
	// Name identifies the widget type in serialized output.
	Name() string
	widget()
}

const (
	NameCollapsible = "collapsible"
	NameCode        = "code"
	NameEquation    = "equation"
	NameImage       = "image"
)

func (*Collapsible) Name() string { return NameCollapsible }
func (*Code) Name() string        { return NameCode }
func (*Equation) Name() string    { return NameEquation }
func (*Image) Name() string       { return NameImage }

func (*Collapsible) widget() {}
func (*Code) widget()        {}
func (*Equation) widget()    {}
func (*Image) widget()       {}
