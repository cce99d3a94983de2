// Package graph infers the category and subcategory of roadmap topics from
// the parent/child edges of a roadmap graph.
package graph

import "slices"

// Config holds the tunables of the graph resolver.
type Config struct {
	MaxDepth        int      // ancestor walk limit (cycle guard)
	MeaningfulKinds []string // ancestor kinds that carry a category label
	TopicKinds      []string // node kinds that get classified
	DefaultCategory string   // category used when no signal is available

	// OwnLabelFallback makes a topic with no parent at all its own
	// category instead of falling back to DefaultCategory.
	OwnLabelFallback bool
}

// FallbackCategory is used when the caller supplies no default category.
const FallbackCategory = "Roadmap"

// DefaultConfig returns the stock configuration with the given default
// category.
func DefaultConfig(defaultCategory string) Config {
	return Config{
		MaxDepth:        10,
		MeaningfulKinds: []string{"label", "topic", "paragraph"},
		TopicKinds:      []string{"topic", "subtopic"},
		DefaultCategory: defaultCategory,
	}
}

// ResolvedTopic is the classification of one topic node.
type ResolvedTopic struct {
	ID          string  `json:"id"`
	Label       string  `json:"label"`
	Kind        string  `json:"kind"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Category    string  `json:"category"`
	Subcategory string  `json:"subcategory"`
}

// Stats summarises a resolution pass.
type Stats struct {
	Topics          int
	WithCategory    int // category differs from the default
	WithSubcategory int
}

// Resolver classifies topic nodes from the parent/child edge graph.
type Resolver struct {
	cfg Config
}

// NewResolver returns a resolver. Zero fields in cfg fall back to
// DefaultConfig values.
func NewResolver(cfg Config) *Resolver {
	def := DefaultConfig(cfg.DefaultCategory)
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = def.MaxDepth
	}
	if len(cfg.MeaningfulKinds) == 0 {
		cfg.MeaningfulKinds = def.MeaningfulKinds
	}
	if len(cfg.TopicKinds) == 0 {
		cfg.TopicKinds = def.TopicKinds
	}
	if cfg.DefaultCategory == "" {
		cfg.DefaultCategory = FallbackCategory
	}
	return &Resolver{cfg: cfg}
}

// Resolve returns one ResolvedTopic per topic node, in snapshot order.
func (r *Resolver) Resolve(snap *Snapshot) []ResolvedTopic {
	if snap == nil {
		return nil
	}

	parentOf := parentMap(snap.Edges)
	byID := make(map[string]*Node, len(snap.Nodes))
	for i := range snap.Nodes {
		byID[snap.Nodes[i].ID] = &snap.Nodes[i]
	}

	var out []ResolvedTopic
	for i := range snap.Nodes {
		n := &snap.Nodes[i]
		if !slices.Contains(r.cfg.TopicKinds, n.Kind) {
			continue
		}
		cat, sub := r.classify(n, parentOf, byID)
		out = append(out, ResolvedTopic{
			ID:          n.ID,
			Label:       n.Label,
			Kind:        n.Kind,
			X:           n.X,
			Y:           n.Y,
			Category:    cat,
			Subcategory: sub,
		})
	}
	return out
}

// Summarize counts how many topics received a non-default category and a
// subcategory.
func (r *Resolver) Summarize(topics []ResolvedTopic) Stats {
	s := Stats{Topics: len(topics)}
	for _, t := range topics {
		if t.Category != r.cfg.DefaultCategory {
			s.WithCategory++
		}
		if t.Subcategory != "" {
			s.WithSubcategory++
		}
	}
	return s
}

// parentMap maps child id to parent id. When several edges target the same
// node the last one wins.
func parentMap(edges []Edge) map[string]string {
	m := make(map[string]string, len(edges))
	for _, e := range edges {
		if e.Source == "" || e.Target == "" {
			continue
		}
		m[e.Target] = e.Source
	}
	return m
}

// ancestors walks up the parent chain from id, nearest first. Parents that
// are not in the node set are stepped over but not collected.
func (r *Resolver) ancestors(id string, parentOf map[string]string, byID map[string]*Node) []*Node {
	var chain []*Node
	cur := id
	for range r.cfg.MaxDepth {
		pid, ok := parentOf[cur]
		if !ok || pid == "" {
			break
		}
		if p, ok := byID[pid]; ok && p.Label != "" {
			chain = append(chain, p)
		}
		cur = pid
	}
	return chain
}

func (r *Resolver) classify(n *Node, parentOf map[string]string, byID map[string]*Node) (string, string) {
	chain := r.ancestors(n.ID, parentOf, byID)
	if len(chain) == 0 {
		return r.inferFromSiblings(n, parentOf, byID), ""
	}

	var meaningful []*Node
	for _, a := range chain {
		if slices.Contains(r.cfg.MeaningfulKinds, a.Kind) {
			meaningful = append(meaningful, a)
		}
	}

	switch len(meaningful) {
	case 0:
		return r.cfg.DefaultCategory, ""
	case 1:
		return meaningful[0].Label, ""
	default:
		// Levels between the nearest and the furthest are dropped.
		return meaningful[len(meaningful)-1].Label, meaningful[0].Label
	}
}

// inferFromSiblings uses the direct parent's label, then (only with
// OwnLabelFallback) the node's own label, then the default category.
func (r *Resolver) inferFromSiblings(n *Node, parentOf map[string]string, byID map[string]*Node) string {
	if pid, ok := parentOf[n.ID]; ok {
		if p, ok := byID[pid]; ok && p.Label != "" {
			return p.Label
		}
	}
	if r.cfg.OwnLabelFallback && n.Label != "" {
		return n.Label
	}
	return r.cfg.DefaultCategory
}
