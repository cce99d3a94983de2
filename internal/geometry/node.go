package geometry

import (
	"fmt"
	"strings"
)

// Kind distinguishes grouping elements from single concepts.
type Kind string

const (
	KindContainer Kind = "container"
	KindLeaf      Kind = "leaf"
)

// Key is the identity of a VisualNode: its text plus its box rounded to
// the nearest integer. Two observations with equal keys are the same node.
type Key struct {
	Text string
	box  rounded
}

func (k Key) String() string {
	return fmt.Sprintf("%q@%d,%d,%dx%d", k.Text, k.box.X, k.box.Y, k.box.W, k.box.H)
}

// VisualNode is one rendered element with non-empty text.
type VisualNode struct {
	Text string `json:"text"`
	Box  Box    `json:"box"`
	Kind Kind   `json:"kind"`
}

// Key returns the dedup identity of n.
func (n VisualNode) Key() Key {
	return Key{Text: n.Text, box: n.Box.round()}
}

// NewVisualNode trims text and classifies the node by size. It returns
// false for elements without text.
func NewVisualNode(text string, box Box, cfg Config) (VisualNode, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return VisualNode{}, false
	}
	return VisualNode{Text: text, Box: box, Kind: cfg.Classify(box)}, true
}

// Placement is the resolved hierarchy of one node.
type Placement struct {
	Key         Key     `json:"-"`
	Text        string  `json:"text"`
	Kind        Kind    `json:"kind"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Category    string  `json:"category"`
	Subcategory string  `json:"subcategory"`
}
