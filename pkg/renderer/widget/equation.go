package widget

import "encoding/json"

// Equation is a display equation numbered when it was visited.
// Label is a caption independent of Index.
type Equation struct {
	Index int
	Body  string
	Label string
}

func NewEquation(index int, body, label string) *Equation {
	return &Equation{Index: index, Body: body, Label: label}
}

func (e *Equation) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type  string `json:"type"`
		Index int    `json:"index"`
		Body  string `json:"body"`
		Label string `json:"label,omitempty"`
	}{NameEquation, e.Index, e.Body, e.Label})
}
