package sweep

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/lthms/roadmapper/internal/geometry"
)

// Recording is a captured element dump of a rendered roadmap page. Boxes
// are in page coordinates.
type Recording struct {
	ScrollHeight   float64           `json:"scroll_height"`
	ViewportHeight float64           `json:"viewport_height"`
	Elements       []RecordedElement `json:"elements"`
}

// RecordedElement is one element of a Recording. A nil Box means the
// element had no layout when it was captured.
type RecordedElement struct {
	Selector string        `json:"selector"`
	Text     string        `json:"text"`
	Box      *geometry.Box `json:"box,omitempty"`
}

// Replay is a Surface backed by a Recording. Queries only return elements
// that intersect the current viewport.
type Replay struct {
	rec     Recording
	offset  float64
	scrolls []float64
}

func NewReplay(rec Recording) *Replay {
	return &Replay{rec: rec}
}

// LoadReplay reads a JSON Recording from path.
func LoadReplay(path string) (*Replay, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open recording: %w", err)
	}
	defer f.Close()
	return DecodeReplay(f)
}

// DecodeReplay reads a JSON Recording from r.
func DecodeReplay(r io.Reader) (*Replay, error) {
	var rec Recording
	if err := json.NewDecoder(r).Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode recording: %w", err)
	}
	return NewReplay(rec), nil
}

// Scrolls returns every offset scrolled to so far.
func (r *Replay) Scrolls() []float64 {
	return append([]float64(nil), r.scrolls...)
}

func (r *Replay) Query(_ context.Context, selector string) ([]Element, error) {
	top, bottom := r.offset, r.offset+r.rec.ViewportHeight
	var out []Element
	for _, e := range r.rec.Elements {
		if e.Selector != selector {
			continue
		}
		if e.Box == nil {
			out = append(out, Element{Text: e.Text})
			continue
		}
		if e.Box.Bottom() < top || e.Box.Y > bottom {
			continue
		}
		out = append(out, Element{Text: e.Text, Box: *e.Box, HasBox: true})
	}
	return out, nil
}

func (r *Replay) ScrollTo(_ context.Context, y float64) error {
	r.offset = y
	r.scrolls = append(r.scrolls, y)
	return nil
}

func (r *Replay) ScrollHeight(context.Context) (float64, error) {
	return r.rec.ScrollHeight, nil
}

func (r *Replay) ViewportHeight(context.Context) (float64, error) {
	return r.rec.ViewportHeight, nil
}
