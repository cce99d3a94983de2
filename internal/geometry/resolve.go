package geometry

import "math"

// Config holds the geometry thresholds.
type Config struct {
	ContainerWidth  float64 // wider than this is a container
	ContainerHeight float64 // taller than this is a container
	Tolerance       float64 // containment slack on every side

	// HorizontalWeight scales the horizontal offset in the nearest-header
	// tie-break distance.
	HorizontalWeight float64
	// HorizontalWindow drops header candidates whose x distance from the
	// leaf exceeds it. Zero disables the window.
	HorizontalWindow float64

	Uncategorized string // category of leaves with no header at all
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		ContainerWidth:   300,
		ContainerHeight:  150,
		Tolerance:        3,
		HorizontalWeight: 0.5,
		Uncategorized:    "Uncategorized",
	}
}

// Classify returns KindContainer for boxes wider or taller than the
// thresholds and KindLeaf otherwise.
func (c Config) Classify(b Box) Kind {
	if b.Width > c.ContainerWidth || b.Height > c.ContainerHeight {
		return KindContainer
	}
	return KindLeaf
}

// Resolver assigns categories to visual nodes.
type Resolver struct {
	cfg Config
}

func NewResolver(cfg Config) *Resolver {
	if cfg.Uncategorized == "" {
		cfg.Uncategorized = DefaultConfig().Uncategorized
	}
	return &Resolver{cfg: cfg}
}

// Apply resolves nodes and returns one Placement per input node, in input
// order.
func (r *Resolver) Apply(nodes []VisualNode) []Placement {
	byKey := r.Resolve(nodes)
	out := make([]Placement, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, byKey[n.Key()])
	}
	return out
}

// Resolve computes the placement of every node, keyed by node identity.
//
// Containers nested in another container become subcategories of the
// smallest one enclosing them; the rest are top-level categories. Leaves
// take the placement of the smallest enclosing container, or failing that
// of the nearest container header above them.
func (r *Resolver) Resolve(nodes []VisualNode) map[Key]Placement {
	var containers, leaves []VisualNode
	for _, n := range nodes {
		if n.Kind == KindContainer {
			containers = append(containers, n)
		} else {
			leaves = append(leaves, n)
		}
	}

	out := make(map[Key]Placement, len(nodes))

	// Containers first: leaves copy their placement.
	cplace := make([]Placement, len(containers))
	for i, c := range containers {
		p := placement(c)
		if parent := r.smallestEnclosing(c, containers, i); parent >= 0 {
			p.Category = containers[parent].Text
			p.Subcategory = c.Text
		} else {
			p.Category = c.Text
		}
		cplace[i] = p
		out[c.Key()] = p
	}

	for _, l := range leaves {
		p := placement(l)
		if idx := r.smallestEnclosing(l, containers, -1); idx >= 0 {
			p.Category = cplace[idx].Category
			p.Subcategory = cplace[idx].Subcategory
		} else if idx := r.nearestHeader(l, containers); idx >= 0 {
			p.Category = cplace[idx].Category
			p.Subcategory = cplace[idx].Subcategory
		} else {
			p.Category = r.cfg.Uncategorized
		}
		out[l.Key()] = p
	}

	return out
}

func placement(n VisualNode) Placement {
	return Placement{Key: n.Key(), Text: n.Text, Kind: n.Kind, X: n.Box.X, Y: n.Box.Y}
}

// smallestEnclosing returns the index of the smallest-area container that
// contains n, skipping index self and any container with the same
// identity as n. Ties keep the earliest container. Returns -1 if none.
func (r *Resolver) smallestEnclosing(n VisualNode, containers []VisualNode, self int) int {
	best := -1
	bestArea := math.Inf(1)
	key := n.Key()
	for i, c := range containers {
		if i == self || c.Key() == key {
			continue
		}
		if !c.Box.Contains(n.Box, r.cfg.Tolerance) {
			continue
		}
		if a := c.Box.Area(); a < bestArea {
			best, bestArea = i, a
		}
	}
	return best
}

// nearestHeader returns the index of the container above leaf, sharing
// part of its x-range, with the smallest gap between the container's
// bottom and the leaf's top. Ties go to the smallest combined distance,
// then to the earliest container. Returns -1 if none qualifies.
func (r *Resolver) nearestHeader(leaf VisualNode, containers []VisualNode) int {
	best := -1
	var bestGap, bestDist float64
	for i, c := range containers {
		if c.Box.Y >= leaf.Box.Y || !c.Box.OverlapsX(leaf.Box) {
			continue
		}
		dx := math.Abs(c.Box.X - leaf.Box.X)
		if r.cfg.HorizontalWindow > 0 && dx > r.cfg.HorizontalWindow {
			continue
		}
		gap := leaf.Box.Y - c.Box.Bottom()
		dist := gap + r.cfg.HorizontalWeight*dx
		if best < 0 || gap < bestGap || (gap == bestGap && dist < bestDist) {
			best, bestGap, bestDist = i, gap, dist
		}
	}
	return best
}
