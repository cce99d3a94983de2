package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lthms/roadmapper/internal/enrich"
	"github.com/lthms/roadmapper/internal/export"
	"github.com/lthms/roadmapper/internal/scrape"
	"github.com/lthms/roadmapper/internal/source"
)

// ScrapeCmd runs the graph pipeline for one roadmap.
type ScrapeCmd struct {
	Roadmap      string `short:"r" help:"Roadmap name (e.g. engineering-manager, frontend, backend)."`
	Output       string `short:"o" type:"path" help:"Output path (default: <output dir>/roadmap_<name>_<timestamp>.<format>)."`
	Format       string `short:"f" help:"Output format: csv or yaml (default from config)."`
	Interactive  bool   `short:"i" help:"Pick the roadmap from an interactive list."`
	List         bool   `short:"l" help:"List available roadmaps and exit."`
	Enrich       bool   `help:"Add AI-generated TLDR and challenge level columns."`
	GeminiAPIKey string `name:"gemini-api-key" env:"GEMINI_API_KEY" help:"Gemini API key for --enrich."`
	Upload       bool   `help:"Copy the export to the configured S3 bucket."`
}

// Run scrapes, optionally enriches, exports and uploads.
func (cmd *ScrapeCmd) Run(ctx context.Context, cfg *UserConfig) error {
	if cmd.Enrich && cmd.GeminiAPIKey == "" {
		return errors.New("--gemini-api-key (or GEMINI_API_KEY) is required with --enrich")
	}

	client, err := source.New(cfg.sourceConfig())
	if err != nil {
		return err
	}

	if cmd.List {
		return printRoadmaps(ctx, os.Stdout, client)
	}

	roadmap := cmd.Roadmap
	if cmd.Interactive {
		names, err := client.Roadmaps(ctx)
		if err != nil {
			return err
		}
		roadmap, err = pickRoadmap(names, roadmap)
		if err != nil {
			return err
		}
		if roadmap == "" {
			slog.Info("scrape: selection cancelled")
			return nil
		}
	}
	if roadmap == "" {
		return errors.New("specify a roadmap with --roadmap or --interactive (see `roadmapper list`)")
	}

	format, err := export.ParseFormat(firstNonEmpty(cmd.Format, cfg.Output.Format))
	if err != nil {
		return err
	}

	pipeline := &scrape.Pipeline{Fetcher: client, Graph: cfg.graphConfig()}

	if cmd.Enrich {
		enricher, closeFn, err := openEnricher(ctx, cfg, cmd.GeminiAPIKey)
		if err != nil {
			return err
		}
		defer closeFn()
		pipeline.Enricher = enricher
	}

	res, err := pipeline.Run(ctx, roadmap)
	if err != nil {
		return err
	}

	path := cmd.Output
	if path == "" {
		path = export.DefaultPath(cfg.Output.Dir, roadmap, format, time.Now())
	}
	if err := export.ToFile(path, format, res.Records); err != nil {
		return err
	}

	fmt.Printf("Exported %d topics from %s to %s\n", len(res.Records), roadmap, path)

	if cmd.Upload {
		return upload(ctx, cfg, res.RunID, path)
	}
	return nil
}

// openEnricher wires the Gemini model to the on-disk cache. The returned
// func closes the cache and logs its statistics.
func openEnricher(ctx context.Context, cfg *UserConfig, apiKey string) (*enrich.Enricher, func(), error) {
	dir, err := cfg.cacheDir()
	if err != nil {
		return nil, nil, err
	}
	cache, err := enrich.OpenCache(dir)
	if err != nil {
		return nil, nil, err
	}
	model, err := enrich.NewGemini(ctx, apiKey, cfg.Enrich.Model)
	if err != nil {
		cache.Close()
		return nil, nil, err
	}
	slog.Info("enrich: using model", "model", model.Name(), "cache", dir)

	e := enrich.New(model, cache, enrich.Options{MinInterval: cfg.minInterval()})
	closeFn := func() {
		if st, err := cache.Stats(context.Background()); err == nil {
			slog.Info("enrich: cache stats", "entries", st.Entries, "latest", st.Latest)
		}
		cache.Close()
	}
	return e, closeFn, nil
}

func upload(ctx context.Context, cfg *UserConfig, runID, path string) error {
	u, err := export.NewUploader(cfg.Upload)
	if err != nil {
		return fmt.Errorf("configure upload: %w", err)
	}
	key, err := u.Upload(ctx, runID, path)
	if err != nil {
		return err
	}
	fmt.Printf("Uploaded to s3://%s/%s\n", cfg.Upload.Bucket, key)
	return nil
}

// ListCmd prints the available roadmaps.
type ListCmd struct{}

func (cmd *ListCmd) Run(ctx context.Context, cfg *UserConfig) error {
	client, err := source.New(cfg.sourceConfig())
	if err != nil {
		return err
	}
	return printRoadmaps(ctx, os.Stdout, client)
}

type roadmapLister interface {
	Roadmaps(ctx context.Context) ([]string, error)
}

func printRoadmaps(ctx context.Context, w io.Writer, l roadmapLister) error {
	names, err := l.Roadmaps(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Available roadmaps (%d found):\n\n", len(names))
	for _, n := range names {
		fmt.Fprintf(w, "  - %s\n", n)
	}
	return nil
}
