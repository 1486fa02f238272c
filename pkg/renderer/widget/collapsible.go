package widget

import (
	"encoding/json"
	"sync"
)

type CollapsibleState int

const (
	Collapsed CollapsibleState = iota
	Expanded
)

func (s CollapsibleState) String() string {
	if s == Expanded {
		return "expanded"
	}
	return "collapsed"
}

// Collapsible is a details block with a summary line. It starts
// collapsed unless created open.
type Collapsible struct {
	Summary string

	mu    sync.Mutex
	state CollapsibleState
}

func NewCollapsible(summary string, open bool) *Collapsible {
	c := &Collapsible{Summary: summary}
	if open {
		c.state = Expanded
	}
	return c
}

// Toggle flips the state and returns the new one.
func (c *Collapsible) Toggle() CollapsibleState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Collapsed {
		c.state = Expanded
	} else {
		c.state = Collapsed
	}
	return c.state
}

func (c *Collapsible) State() CollapsibleState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Collapsible) Expanded() bool {
	return c.State() == Expanded
}

func (c *Collapsible) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    string `json:"type"`
		Summary string `json:"summary"`
		State   string `json:"state"`
	}{NameCollapsible, c.Summary, c.State().String()})
}
