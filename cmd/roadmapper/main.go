package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
)

const version = "1.0.0"

// CLI is the top-level command tree.
type CLI struct {
	Debug   bool   `env:"ROADMAPPER_DEBUG" help:"Enable debug logging."`
	LogFile string `name:"log-file" type:"path" help:"Write logs to this file at debug level instead of stderr."`
	Config  string `name:"config" type:"path" help:"Config file (default ~/.config/roadmapper/config.toml)."`

	Scrape ScrapeCmd `cmd:"" help:"Scrape a roadmap from GitHub and export it."`
	List   ListCmd   `cmd:"" help:"List available roadmaps."`
	Layout LayoutCmd `cmd:"" help:"Infer the hierarchy of a recorded page layout."`
	MCP    MCPCmd    `cmd:"" name:"mcp" help:"Run an MCP server on stdio."`
}

func main() {
	// Loaded before parsing so kong env tags see .env values.
	envErr := godotenv.Load()

	cli := CLI{}
	parser, err := kong.New(&cli,
		kong.Name("roadmapper"),
		kong.Description("Extract roadmap.sh roadmaps into flat category/subcategory/topic tables."),
		kong.UsageOnError(),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "roadmapper: %v\n", err)
		os.Exit(1)
	}
	kctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	setupLogger(cli.Debug)
	if cli.LogFile != "" {
		setupFileLogger(cli.LogFile)
	}
	if envErr != nil && !os.IsNotExist(envErr) {
		slog.Warn("failed to load .env", "error", envErr)
	}

	cfg, err := loadUserConfig(cli.Config)
	kctx.FatalIfErrorf(err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kctx.BindTo(ctx, (*context.Context)(nil))
	kctx.Bind(cfg)

	err = kctx.Run()
	kctx.FatalIfErrorf(err)
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}

// setupFileLogger redirects slog to a file at debug level.
func setupFileLogger(path string) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		slog.Warn("failed to open log file, keeping stderr", "path", path, "error", err)
		return
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)
}
