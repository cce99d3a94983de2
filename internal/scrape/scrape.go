// Package scrape ties the resolvers, the fetcher and the content parser
// into flat topic records.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lthms/roadmapper/internal/content"
	"github.com/lthms/roadmapper/internal/geometry"
	"github.com/lthms/roadmapper/internal/graph"
	"github.com/lthms/roadmapper/internal/source"
	"github.com/lthms/roadmapper/internal/sweep"
)

// fallbackConcurrency bounds per-topic document fetches.
const fallbackConcurrency = 8

// Record is one output row.
type Record struct {
	Category    string `json:"category" yaml:"category"`
	Subcategory string `json:"subcategory" yaml:"subcategory"`
	Topic       string `json:"topic" yaml:"topic"`
	Description string `json:"description" yaml:"description"`
	Resources   string `json:"resources" yaml:"resources"`
	TLDR        string `json:"tldr,omitempty" yaml:"tldr,omitempty"`
	Challenge   string `json:"challenge,omitempty" yaml:"challenge,omitempty"`
}

// Fetcher supplies the graph and documents of a roadmap. Document fetches
// a single document by key and returns source.ErrNotFound when it does not
// exist.
type Fetcher interface {
	Snapshot(ctx context.Context, roadmap string) (*graph.Snapshot, error)
	Documents(ctx context.Context, roadmap string) (map[string]string, error)
	Document(ctx context.Context, roadmap, key string) (string, error)
}

// Enricher annotates a record with a summary and a challenge level.
type Enricher interface {
	Enrich(ctx context.Context, category, subcategory, topic, description string) (tldr, challenge string, err error)
}

// Result is the outcome of one pipeline run.
type Result struct {
	RunID    string
	Roadmap  string
	Records  []Record
	Stats    graph.Stats
	Missing  int // topics without a document
	Enriched bool
	Duration time.Duration
}

// Pipeline runs the graph path: snapshot, hierarchy, documents, records.
type Pipeline struct {
	Fetcher  Fetcher
	Graph    graph.Config // DefaultCategory empty means content.CategoryName(roadmap)
	Enricher Enricher     // optional
}

// Run scrapes one roadmap. Only a failure to obtain the snapshot aborts
// the run. When the document listing fails, each topic's document is
// fetched by key instead. Documents that still cannot be obtained and
// enrichment errors are logged and leave the affected fields empty.
func (p *Pipeline) Run(ctx context.Context, roadmap string) (*Result, error) {
	start := time.Now()
	res := &Result{RunID: uuid.NewString(), Roadmap: roadmap}
	log := slog.With("run", res.RunID, "roadmap", roadmap)

	snap, err := p.Fetcher.Snapshot(ctx, roadmap)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	cfg := p.Graph
	if cfg.DefaultCategory == "" {
		cfg.DefaultCategory = content.CategoryName(roadmap)
	}
	resolver := graph.NewResolver(cfg)
	topics := resolver.Resolve(snap)
	res.Stats = resolver.Summarize(topics)
	log.Info("scrape: topics extracted",
		"topics", res.Stats.Topics,
		"with_category", res.Stats.WithCategory,
		"with_subcategory", res.Stats.WithSubcategory)

	docs, err := p.Fetcher.Documents(ctx, roadmap)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warn("scrape: document listing unavailable, fetching per topic", "error", err)
		docs, err = fetchEach(ctx, p.Fetcher, roadmap, topics)
		if err != nil {
			return nil, err
		}
	}

	res.Records, res.Missing = Assemble(topics, docs)
	if res.Missing > 0 {
		log.Info("scrape: topics without document", "count", res.Missing)
	}

	if p.Enricher != nil {
		if err := Enrich(ctx, p.Enricher, res.Records); err != nil {
			return nil, err
		}
		res.Enriched = true
	}

	res.Duration = time.Since(start)
	log.Info("scrape: done", "records", len(res.Records), "duration", res.Duration.Round(time.Millisecond))
	return res, nil
}

// fetchEach downloads the document of every topic by key. Missing or
// failing documents are skipped. Only cancellation is returned.
func fetchEach(ctx context.Context, f Fetcher, roadmap string, topics []graph.ResolvedTopic) (map[string]string, error) {
	var (
		mu     sync.Mutex
		docs   = make(map[string]string, len(topics))
		failed int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fallbackConcurrency)
	for _, t := range topics {
		key := content.Key(t.Label, t.ID)
		g.Go(func() error {
			doc, err := f.Document(gctx, roadmap, key)
			switch {
			case err == nil:
				mu.Lock()
				docs[key] = doc
				mu.Unlock()
			case errors.Is(err, source.ErrNotFound):
			case gctx.Err() != nil:
				return gctx.Err()
			default:
				slog.Debug("scrape: document fetch failed", "key", key, "error", err)
				mu.Lock()
				failed++
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch documents: %w", err)
	}
	slog.Info("scrape: documents fetched per topic", "ok", len(docs), "failed", failed)
	return docs, nil
}

// Assemble joins resolved topics with their documents, in topic order.
// A topic without a document gets an empty description and resources.
// The second return value counts such topics.
func Assemble(topics []graph.ResolvedTopic, docs map[string]string) ([]Record, int) {
	records := make([]Record, 0, len(topics))
	missing := 0
	for _, t := range topics {
		doc, ok := docs[content.Key(t.Label, t.ID)]
		if !ok {
			missing++
			slog.Debug("scrape: no document", "topic", t.Label, "id", t.ID)
		}
		parsed := content.Parse(doc)
		records = append(records, Record{
			Category:    t.Category,
			Subcategory: t.Subcategory,
			Topic:       t.Label,
			Description: parsed.Description,
			Resources:   parsed.Resources,
		})
	}
	return records, missing
}

// Enrich fills TLDR and Challenge of every record in place. A failing
// record is logged and left blank. Cancellation stops the loop.
func Enrich(ctx context.Context, e Enricher, records []Record) error {
	failed := 0
	for i := range records {
		r := &records[i]
		tldr, challenge, err := e.Enrich(ctx, r.Category, r.Subcategory, r.Topic, r.Description)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return fmt.Errorf("enrich records: %w", err)
			}
			slog.Warn("scrape: enrichment failed", "topic", r.Topic, "error", err)
			failed++
			continue
		}
		r.TLDR, r.Challenge = tldr, challenge
		slog.Debug("scrape: enriched", "n", i+1, "of", len(records), "topic", r.Topic)
	}
	slog.Info("scrape: enrichment done", "records", len(records), "failed", failed)
	return nil
}

// Layout runs the geometry path: sweep the surface, then infer each
// leaf's container. Every leaf becomes one record; containers only name
// categories. A cancelled sweep still yields records for the nodes seen
// so far, together with the context error. c is not modified.
func Layout(ctx context.Context, c *sweep.Collector, cfg geometry.Config) ([]Record, error) {
	if cfg == (geometry.Config{}) {
		cfg = geometry.DefaultConfig()
	}
	collector := *c
	if collector.Geometry == (geometry.Config{}) {
		collector.Geometry = cfg
	}

	nodes, err := collector.Collect(ctx)
	if err != nil && len(nodes) == 0 {
		return nil, fmt.Errorf("collect nodes: %w", err)
	}

	placements := geometry.NewResolver(cfg).Apply(nodes)
	records := make([]Record, 0, len(placements))
	for _, p := range placements {
		if p.Kind == geometry.KindContainer {
			continue
		}
		records = append(records, Record{
			Category:    p.Category,
			Subcategory: p.Subcategory,
			Topic:       p.Text,
		})
	}
	slog.Info("scrape: layout resolved", "records", len(records))
	return records, err
}
