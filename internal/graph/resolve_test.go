package graph

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func node(id, kind, label string) Node {
	return Node{ID: id, Kind: kind, Label: label}
}

func resolveOne(t *testing.T, r *Resolver, snap *Snapshot, id string) ResolvedTopic {
	t.Helper()
	for _, rt := range r.Resolve(snap) {
		if rt.ID == id {
			return rt
		}
	}
	t.Fatalf("node %q not resolved", id)
	return ResolvedTopic{}
}

func TestResolve_SingleLabelParent(t *testing.T) {
	snap := &Snapshot{
		Nodes: []Node{
			{ID: "a", Kind: "label", Label: "Core Skills", X: 0, Y: 0},
			{ID: "b", Kind: "topic", Label: "Leadership", X: 10, Y: 50},
		},
		Edges: []Edge{{Source: "a", Target: "b"}},
	}
	r := NewResolver(DefaultConfig("Engineering Manager"))

	got := resolveOne(t, r, snap, "b")
	assert.Equal(t, "Core Skills", got.Category)
	assert.Equal(t, "", got.Subcategory)
	assert.Equal(t, 10.0, got.X)
	assert.Equal(t, 50.0, got.Y)
}

func TestResolve_ThreeLevels(t *testing.T) {
	snap := &Snapshot{
		Nodes: []Node{
			node("root", "label", "People"),
			node("mid", "layout", "Scaffold"),
			node("sec", "topic", "Hiring"),
			node("leaf", "subtopic", "Interviews"),
		},
		Edges: []Edge{
			{Source: "root", Target: "mid"},
			{Source: "mid", Target: "sec"},
			{Source: "sec", Target: "leaf"},
		},
	}
	r := NewResolver(DefaultConfig("Default"))

	got := resolveOne(t, r, snap, "leaf")
	assert.Equal(t, "People", got.Category)
	assert.Equal(t, "Hiring", got.Subcategory)
}

func TestResolve_IntermediateLevelsDropped(t *testing.T) {
	snap := &Snapshot{
		Nodes: []Node{
			node("l1", "label", "Top"),
			node("l2", "paragraph", "Middle"),
			node("l3", "label", "Near"),
			node("t", "topic", "Leaf"),
		},
		Edges: []Edge{
			{Source: "l1", Target: "l2"},
			{Source: "l2", Target: "l3"},
			{Source: "l3", Target: "t"},
		},
	}
	got := resolveOne(t, NewResolver(DefaultConfig("D")), snap, "t")
	assert.Equal(t, "Top", got.Category)
	assert.Equal(t, "Near", got.Subcategory)
}

func TestResolve_OnlyLayoutAncestors(t *testing.T) {
	snap := &Snapshot{
		Nodes: []Node{
			node("g", "section", "Box"),
			node("t", "topic", "Leaf"),
		},
		Edges: []Edge{{Source: "g", Target: "t"}},
	}
	got := resolveOne(t, NewResolver(DefaultConfig("Default")), snap, "t")
	assert.Equal(t, "Default", got.Category)
	assert.Equal(t, "", got.Subcategory)
}

func TestResolve_IsolatedTopicUsesDefault(t *testing.T) {
	snap := &Snapshot{
		Nodes: []Node{
			node("x", "topic", "Alone"),
			node("y", "subtopic", "Also Alone"),
		},
	}
	r := NewResolver(DefaultConfig("Backend"))
	for _, rt := range r.Resolve(snap) {
		assert.Equal(t, "Backend", rt.Category, rt.ID)
		assert.Equal(t, "", rt.Subcategory, rt.ID)
	}
}

func TestResolve_OwnLabelFallback(t *testing.T) {
	cfg := DefaultConfig("Backend")
	cfg.OwnLabelFallback = true
	snap := &Snapshot{Nodes: []Node{node("x", "topic", "Alone")}}

	got := resolveOne(t, NewResolver(cfg), snap, "x")
	assert.Equal(t, "Alone", got.Category)
	assert.Equal(t, "", got.Subcategory)
}

func TestResolve_DanglingParentDegradesToDefault(t *testing.T) {
	snap := &Snapshot{
		Nodes: []Node{node("t", "topic", "Leaf")},
		Edges: []Edge{{Source: "ghost", Target: "t"}},
	}
	got := resolveOne(t, NewResolver(DefaultConfig("Default")), snap, "t")
	assert.Equal(t, "Default", got.Category)
}

func TestResolve_LastEdgeWins(t *testing.T) {
	snap := &Snapshot{
		Nodes: []Node{
			node("first", "label", "First"),
			node("second", "label", "Second"),
			node("t", "topic", "Leaf"),
		},
		Edges: []Edge{
			{Source: "first", Target: "t"},
			{Source: "second", Target: "t"},
		},
	}
	got := resolveOne(t, NewResolver(DefaultConfig("D")), snap, "t")
	assert.Equal(t, "Second", got.Category)
}

func TestResolve_CycleIsBounded(t *testing.T) {
	snap := &Snapshot{
		Nodes: []Node{
			node("a", "label", "A"),
			node("b", "label", "B"),
			node("t", "topic", "Leaf"),
		},
		Edges: []Edge{
			{Source: "a", Target: "t"},
			{Source: "b", Target: "a"},
			{Source: "a", Target: "b"},
		},
	}
	cfg := DefaultConfig("D")
	cfg.MaxDepth = 4
	got := resolveOne(t, NewResolver(cfg), snap, "t")
	// chain: a, b, a, b
	assert.Equal(t, "B", got.Category)
	assert.Equal(t, "A", got.Subcategory)
}

func TestResolve_EveryTopicYieldsOneRecord(t *testing.T) {
	snap := &Snapshot{
		Nodes: []Node{
			node("l", "label", "L"),
			node("t1", "topic", "One"),
			node("t2", "subtopic", "Two"),
			node("p", "paragraph", "Para"),
			node("t3", "topic", "Three"),
		},
		Edges: []Edge{{Source: "l", Target: "t1"}, {Source: "t1", Target: "t2"}},
	}
	r := NewResolver(DefaultConfig("D"))
	got := r.Resolve(snap)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"t1", "t2", "t3"}, []string{got[0].ID, got[1].ID, got[2].ID})
	for _, rt := range got {
		assert.NotEmpty(t, rt.Category)
	}

	stats := r.Summarize(got)
	assert.Equal(t, Stats{Topics: 3, WithCategory: 2, WithSubcategory: 1}, stats)
}

func TestNewResolver_EmptyDefaultCategory(t *testing.T) {
	r := NewResolver(Config{})
	got := resolveOne(t, r, &Snapshot{Nodes: []Node{node("t", "topic", "Leaf")}}, "t")
	assert.Equal(t, FallbackCategory, got.Category)
}

func TestParse_SkipsMalformedNodes(t *testing.T) {
	doc := `{
	  "nodes": [
	    {"id": "a", "type": "label", "position": {"x": 0, "y": 0}, "data": {"label": "Core Skills"}},
	    {"id": "b", "type": "topic", "position": {"x": "10", "y": 50}, "width": 120, "data": {"label": "Leadership"}},
	    {"id": "c", "type": "topic", "position": {"x": "abc", "y": 1}, "data": {"label": "Bad X"}},
	    {"id": "d", "type": "topic", "data": {"label": "No Position"}},
	    {"id": "e", "type": "topic", "position": {"x": 1, "y": 1}, "data": {}},
	    {"id": "f", "type": "vertical", "position": {"x": 1, "y": 1}},
	    "garbage"
	  ],
	  "edges": [
	    {"source": "a", "target": "b"},
	    {"source": "a"},
	    {"source": 3, "target": "b"}
	  ]
	}`
	snap, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.Len(t, snap.Nodes, 2)
	assert.Equal(t, 5, snap.SkippedNodes)
	assert.Equal(t, 2, snap.SkippedEdges)
	assert.Equal(t, 10.0, snap.Nodes[1].X)
	assert.Equal(t, 120.0, snap.Nodes[1].Width)
	require.Len(t, snap.Edges, 1)

	got := resolveOne(t, NewResolver(DefaultConfig("D")), snap, "b")
	assert.Equal(t, "Core Skills", got.Category)
}

func TestParse_EmptySnapshot(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"nodes": [], "edges": []}`))
	assert.ErrorIs(t, err, ErrEmptySnapshot)

	_, err = Parse([]byte(`{"edges": []}`))
	assert.ErrorIs(t, err, ErrEmptySnapshot)
}

func TestParse_InvalidJSON(t *testing.T) {
	_, err := Parse([]byte(`{not json`))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmptySnapshot)
}
