package sweep

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lthms/roadmapper/internal/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func box(x, y, w, h float64) *geometry.Box {
	return &geometry.Box{X: x, Y: y, Width: w, Height: h}
}

func TestOffsets(t *testing.T) {
	tests := []struct {
		name            string
		total, viewport float64
		want            []float64
	}{
		{"partial last step", 2500, 1000, []float64{0, 1000, 2000, 2500}},
		{"exact multiple", 2000, 1000, []float64{0, 1000, 2000}},
		{"shorter than viewport", 400, 1000, []float64{0, 400}},
		{"empty page", 0, 1000, []float64{0}},
		{"no viewport", 1000, 0, []float64{0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Offsets(tt.total, tt.viewport))
		})
	}
}

func TestSet_DedupByRoundedIdentity(t *testing.T) {
	s := NewSet()
	cfg := geometry.DefaultConfig()
	a, _ := geometry.NewVisualNode("Git", geometry.Box{X: 10.2, Y: 20, Width: 80, Height: 30}, cfg)
	b, _ := geometry.NewVisualNode("Git ", geometry.Box{X: 9.8, Y: 20.3, Width: 80, Height: 30}, cfg)
	c, _ := geometry.NewVisualNode("Git", geometry.Box{X: 300, Y: 20, Width: 80, Height: 30}, cfg)

	assert.True(t, s.Add(a))
	assert.False(t, s.Add(b))
	assert.True(t, s.Add(c))
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 10.2, s.Sorted()[0].Box.X, "first observation is kept")
}

func TestCollect_DedupAcrossSteps(t *testing.T) {
	rec := Recording{
		ScrollHeight:   1500,
		ViewportHeight: 1000,
		Elements: []RecordedElement{
			// visible from both offsets 0 and 1000
			{Selector: "[data-node-id]", Text: "Overlap", Box: box(10, 990, 100, 30)},
			{Selector: "[data-node-id]", Text: "Bottom", Box: box(50, 1400, 100, 30)},
			{Selector: "[data-node-id]", Text: "Top", Box: box(400, 10, 100, 30)},
			{Selector: "[data-node-id]", Text: "Left Top", Box: box(5, 10, 100, 30)},
		},
	}
	replay := NewReplay(rec)
	c := &Collector{Surface: replay}

	nodes, err := c.Collect(context.Background())
	require.NoError(t, err)

	var texts []string
	for _, n := range nodes {
		texts = append(texts, n.Text)
	}
	assert.Equal(t, []string{"Left Top", "Top", "Overlap", "Bottom"}, texts)
	assert.Equal(t, []float64{0, 1000, 1500}, replay.Scrolls())
}

func TestCollect_SelectorFallbackAndFiltering(t *testing.T) {
	rec := Recording{
		ScrollHeight:   500,
		ViewportHeight: 1000,
		Elements: []RecordedElement{
			{Selector: "svg g:has(rect):has(text)", Text: "   ", Box: box(0, 0, 10, 10)},
			{Selector: "svg g:has(rect):has(text)", Text: "No layout"},
			{Selector: "[data-node-id]", Text: "Backend", Box: box(0, 0, 600, 400)},
			{Selector: "[data-node-id]", Text: "  APIs\n", Box: box(20, 20, 100, 30)},
			{Selector: ".clickable-node", Text: "Ignored", Box: box(0, 0, 10, 10)},
		},
	}
	nodes, err := (&Collector{Surface: NewReplay(rec)}).Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "Backend", nodes[0].Text)
	assert.Equal(t, geometry.KindContainer, nodes[0].Kind)
	assert.Equal(t, "APIs", nodes[1].Text)
	assert.Equal(t, geometry.KindLeaf, nodes[1].Kind)
}

type failingSurface struct {
	*Replay
	failSelector string
	cancel       context.CancelFunc
	cancelAfter  int
	steps        int
}

func (f *failingSurface) Query(ctx context.Context, sel string) ([]Element, error) {
	if sel == f.failSelector {
		return nil, errors.New("selector not supported")
	}
	return f.Replay.Query(ctx, sel)
}

func (f *failingSurface) ScrollTo(ctx context.Context, y float64) error {
	f.steps++
	if f.cancel != nil && f.steps == f.cancelAfter {
		f.cancel()
	}
	return f.Replay.ScrollTo(ctx, y)
}

func TestCollect_FailingSelectorIsSkipped(t *testing.T) {
	rec := Recording{
		ScrollHeight:   100,
		ViewportHeight: 1000,
		Elements: []RecordedElement{
			{Selector: "b", Text: "Found", Box: box(0, 0, 10, 10)},
		},
	}
	s := &failingSurface{Replay: NewReplay(rec), failSelector: "a"}
	nodes, err := (&Collector{Surface: s, Selectors: []string{"a", "b"}}).Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "Found", nodes[0].Text)
}

func TestCollect_CancelReturnsPartialResult(t *testing.T) {
	rec := Recording{
		ScrollHeight:   3000,
		ViewportHeight: 1000,
		Elements: []RecordedElement{
			{Selector: "n", Text: "First", Box: box(0, 10, 10, 10)},
			{Selector: "n", Text: "Last", Box: box(0, 2900, 10, 10)},
		},
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := &failingSurface{Replay: NewReplay(rec), cancel: cancel, cancelAfter: 2}

	nodes, err := (&Collector{Surface: s, Selectors: []string{"n"}}).Collect(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, nodes, 1)
	assert.Equal(t, "First", nodes[0].Text)
}

func TestCollect_SettleDelay(t *testing.T) {
	rec := Recording{ScrollHeight: 1500, ViewportHeight: 1000}
	start := time.Now()
	_, err := (&Collector{Surface: NewReplay(rec), Settle: 10 * time.Millisecond}).Collect(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestDecodeReplay(t *testing.T) {
	doc := `{"scroll_height": 1200, "viewport_height": 800,
	  "elements": [{"selector": "[data-node-id]", "text": "Git", "box": {"x": 1, "y": 2, "width": 3, "height": 4}},
	               {"selector": "[data-node-id]", "text": "Hidden"}]}`
	r, err := DecodeReplay(strings.NewReader(doc))
	require.NoError(t, err)

	h, _ := r.ScrollHeight(context.Background())
	assert.Equal(t, 1200.0, h)
	elems, err := r.Query(context.Background(), "[data-node-id]")
	require.NoError(t, err)
	require.Len(t, elems, 2)
	assert.True(t, elems[0].HasBox)
	assert.False(t, elems[1].HasBox)
}
