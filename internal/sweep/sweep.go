// Package sweep collects visual nodes from a scrollable surface that only
// exposes what is inside its viewport.
package sweep

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/lthms/roadmapper/internal/geometry"
)

// DefaultSelectors is the element query fallback chain. The first selector
// that yields at least one node wins for a given viewport.
var DefaultSelectors = []string{
	"svg g:has(rect):has(text)",
	"[data-node-id]",
	`[data-type="topic"]`,
	".clickable-node",
	"button[data-node]",
}

// DefaultSettle is the pause after each scroll before extraction.
const DefaultSettle = 500 * time.Millisecond

// Element is one queried element. HasBox is false when the surface could
// not compute a bounding box for it.
type Element struct {
	Text   string
	Box    geometry.Box
	HasBox bool
}

// Surface is a live, scrollable rendering of a roadmap.
type Surface interface {
	Query(ctx context.Context, selector string) ([]Element, error)
	ScrollTo(ctx context.Context, y float64) error
	ScrollHeight(ctx context.Context) (float64, error)
	ViewportHeight(ctx context.Context) (float64, error)
}

// Offsets returns the scroll positions needed to cover total in viewport
// increments. The last offset is always exactly total.
func Offsets(total, viewport float64) []float64 {
	if total <= 0 || viewport <= 0 {
		return []float64{0}
	}
	var out []float64
	for y := 0.0; y < total; y += viewport {
		out = append(out, y)
	}
	if out[len(out)-1] < total {
		out = append(out, total)
	}
	return out
}

// Set accumulates visual nodes keyed by identity. The first observation of
// a node is kept.
type Set struct {
	nodes map[geometry.Key]geometry.VisualNode
}

func NewSet() *Set {
	return &Set{nodes: make(map[geometry.Key]geometry.VisualNode)}
}

// Add inserts n and reports whether it was new.
func (s *Set) Add(n geometry.VisualNode) bool {
	k := n.Key()
	if _, ok := s.nodes[k]; ok {
		return false
	}
	s.nodes[k] = n
	return true
}

func (s *Set) Len() int { return len(s.nodes) }

// Sorted returns the nodes in reading order: top to bottom, then left to
// right, then by text.
func (s *Set) Sorted() []geometry.VisualNode {
	out := make([]geometry.VisualNode, 0, len(s.nodes))
	for _, n := range s.nodes {
		out = append(out, n)
	}
	slices.SortFunc(out, func(a, b geometry.VisualNode) int {
		return cmp.Or(
			cmp.Compare(a.Box.Y, b.Box.Y),
			cmp.Compare(a.Box.X, b.Box.X),
			cmp.Compare(a.Text, b.Text),
			cmp.Compare(a.Box.Width, b.Box.Width),
			cmp.Compare(a.Box.Height, b.Box.Height),
		)
	})
	return out
}

// Collector sweeps a Surface top to bottom.
type Collector struct {
	Surface   Surface
	Selectors []string        // nil means DefaultSelectors
	Settle    time.Duration   // pause after each scroll
	Geometry  geometry.Config // zero value means geometry.DefaultConfig
}

// Collect scrolls through the whole surface and returns every distinct
// node seen, in reading order. If ctx is cancelled between steps the nodes
// gathered so far are returned together with ctx.Err().
func (c *Collector) Collect(ctx context.Context) ([]geometry.VisualNode, error) {
	total, err := c.Surface.ScrollHeight(ctx)
	if err != nil {
		return nil, fmt.Errorf("scroll height: %w", err)
	}
	viewport, err := c.Surface.ViewportHeight(ctx)
	if err != nil {
		return nil, fmt.Errorf("viewport height: %w", err)
	}

	offsets := Offsets(total, viewport)
	slog.Info("sweep: starting", "positions", len(offsets), "height", total, "viewport", viewport)

	set := NewSet()
	for i, y := range offsets {
		if err := ctx.Err(); err != nil {
			return set.Sorted(), err
		}
		if err := c.Surface.ScrollTo(ctx, y); err != nil {
			return set.Sorted(), fmt.Errorf("scroll to %v: %w", y, err)
		}
		if err := sleep(ctx, c.Settle); err != nil {
			return set.Sorted(), err
		}

		visible := c.extract(ctx)
		for _, n := range visible {
			set.Add(n)
		}
		slog.Debug("sweep: position scanned",
			"step", i+1, "of", len(offsets), "found", len(visible), "unique", set.Len())
	}

	slog.Info("sweep: done", "unique", set.Len())
	return set.Sorted(), nil
}

// extract runs the selector chain against the current viewport.
func (c *Collector) extract(ctx context.Context) []geometry.VisualNode {
	selectors := c.Selectors
	if selectors == nil {
		selectors = DefaultSelectors
	}
	cfg := c.Geometry
	if cfg == (geometry.Config{}) {
		cfg = geometry.DefaultConfig()
	}

	for _, sel := range selectors {
		elems, err := c.Surface.Query(ctx, sel)
		if err != nil {
			slog.Debug("sweep: selector failed", "selector", sel, "error", err)
			continue
		}
		var nodes []geometry.VisualNode
		for _, e := range elems {
			if !e.HasBox {
				continue
			}
			if n, ok := geometry.NewVisualNode(e.Text, e.Box, cfg); ok {
				nodes = append(nodes, n)
			}
		}
		if len(nodes) > 0 {
			slog.Debug("sweep: selector matched", "selector", sel, "nodes", len(nodes))
			return nodes
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
