package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lthms/roadmapper/internal/export"
	"github.com/lthms/roadmapper/internal/scrape"
	"github.com/lthms/roadmapper/internal/sweep"
)

// LayoutCmd runs the geometry pipeline over a recorded page dump.
type LayoutCmd struct {
	Dump   string `arg:"" type:"existingfile" help:"Recorded element dump (JSON)."`
	Output string `short:"o" type:"path" help:"Output path (default: <output dir>/roadmap_<dump name>_<timestamp>.<format>)."`
	Format string `short:"f" help:"Output format: csv or yaml (default from config)."`
	Upload bool   `help:"Copy the export to the configured S3 bucket."`
}

func (cmd *LayoutCmd) Run(ctx context.Context, cfg *UserConfig) error {
	replay, err := sweep.LoadReplay(cmd.Dump)
	if err != nil {
		return err
	}

	format, err := export.ParseFormat(firstNonEmpty(cmd.Format, cfg.Output.Format))
	if err != nil {
		return err
	}

	collector := &sweep.Collector{
		Surface:  replay,
		Settle:   cfg.settle(),
		Geometry: cfg.geometryConfig(),
	}
	records, err := scrape.Layout(ctx, collector, cfg.geometryConfig())
	if err != nil {
		if !errors.Is(err, context.Canceled) || len(records) == 0 {
			return err
		}
		slog.Warn("layout: interrupted, exporting partial result", "records", len(records))
	}

	name := strings.TrimSuffix(filepath.Base(cmd.Dump), filepath.Ext(cmd.Dump))
	path := cmd.Output
	if path == "" {
		path = export.DefaultPath(cfg.Output.Dir, name, format, time.Now())
	}
	if err := export.ToFile(path, format, records); err != nil {
		return err
	}
	fmt.Printf("Exported %d topics to %s\n", len(records), path)

	if cmd.Upload {
		return upload(ctx, cfg, uuid.NewString(), path)
	}
	return nil
}
