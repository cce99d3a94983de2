package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrEmptySnapshot is returned when a snapshot carries no nodes at all.
var ErrEmptySnapshot = errors.New("graph: snapshot has no nodes")

// Node is a single roadmap graph node. Nodes are immutable once decoded.
type Node struct {
	ID     string  `json:"id"`
	Label  string  `json:"label"`
	Kind   string  `json:"kind"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

// Edge records that Source is a structural parent of Target.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Snapshot is one decoded roadmap graph.
type Snapshot struct {
	Nodes []Node
	Edges []Edge

	// Skipped counts raw nodes and edges that failed shape validation.
	SkippedNodes int
	SkippedEdges int
}

type rawSnapshot struct {
	Nodes []json.RawMessage `json:"nodes"`
	Edges []json.RawMessage `json:"edges"`
}

type rawNode struct {
	ID       any `json:"id"`
	Type     any `json:"type"`
	Position *struct {
		X any `json:"x"`
		Y any `json:"y"`
	} `json:"position"`
	Width  any `json:"width"`
	Height any `json:"height"`
	Data   *struct {
		Label any `json:"label"`
	} `json:"data"`
}

type rawEdge struct {
	Source any `json:"source"`
	Target any `json:"target"`
}

// Decode reads a roadmap snapshot from r. See Parse.
func Decode(r io.Reader) (*Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return Parse(data)
}

// Parse decodes a roadmap snapshot of the form
//
//	{"nodes": [{"id", "type", "position": {"x", "y"}, "width", "height", "data": {"label"}}],
//	 "edges": [{"source", "target"}]}
//
// Nodes without an id, a numeric position or a label are skipped, as are
// edges missing either endpoint. Only a snapshot with no nodes at all is
// rejected.
func Parse(data []byte) (*Snapshot, error) {
	var raw rawSnapshot
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if len(raw.Nodes) == 0 {
		return nil, ErrEmptySnapshot
	}

	snap := &Snapshot{
		Nodes: make([]Node, 0, len(raw.Nodes)),
		Edges: make([]Edge, 0, len(raw.Edges)),
	}

	for _, msg := range raw.Nodes {
		n, ok := decodeNode(msg)
		if !ok {
			snap.SkippedNodes++
			continue
		}
		snap.Nodes = append(snap.Nodes, n)
	}

	for _, msg := range raw.Edges {
		var re rawEdge
		if err := json.Unmarshal(msg, &re); err != nil {
			snap.SkippedEdges++
			continue
		}
		src, _ := re.Source.(string)
		dst, _ := re.Target.(string)
		if src == "" || dst == "" {
			snap.SkippedEdges++
			continue
		}
		snap.Edges = append(snap.Edges, Edge{Source: src, Target: dst})
	}

	return snap, nil
}

func decodeNode(msg json.RawMessage) (Node, bool) {
	var rn rawNode
	if err := json.Unmarshal(msg, &rn); err != nil {
		return Node{}, false
	}
	if rn.Position == nil {
		return Node{}, false
	}
	x, okX := toFloat(rn.Position.X)
	y, okY := toFloat(rn.Position.Y)
	if !okX || !okY {
		return Node{}, false
	}

	var label string
	if rn.Data != nil {
		label, _ = rn.Data.Label.(string)
	}
	if label == "" {
		return Node{}, false
	}

	id := toID(rn.ID)
	if id == "" {
		return Node{}, false
	}

	kind, _ := rn.Type.(string)
	w, _ := toFloat(rn.Width)
	h, _ := toFloat(rn.Height)

	return Node{
		ID:     id,
		Label:  label,
		Kind:   kind,
		X:      x,
		Y:      y,
		Width:  w,
		Height: h,
	}, true
}

// toFloat accepts JSON numbers and numeric strings.
func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func toID(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}
