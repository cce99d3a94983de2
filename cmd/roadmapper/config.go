package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/lthms/roadmapper/internal/enrich"
	"github.com/lthms/roadmapper/internal/export"
	"github.com/lthms/roadmapper/internal/geometry"
	"github.com/lthms/roadmapper/internal/graph"
	"github.com/lthms/roadmapper/internal/source"
)

// UserConfig holds user-level configuration loaded from
// ~/.config/roadmapper/config.toml.
type UserConfig struct {
	Source   SourceConfig    `toml:"source"`
	Graph    GraphConfig     `toml:"graph"`
	Geometry GeometryConfig  `toml:"geometry"`
	Enrich   EnrichConfig    `toml:"enrich"`
	Output   OutputConfig    `toml:"output"`
	Upload   export.S3Config `toml:"upload"`
}

// SourceConfig configures the roadmap repository client.
type SourceConfig struct {
	RawBaseURL     string `toml:"raw_base_url"`
	APIBaseURL     string `toml:"api_base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	Concurrency    int    `toml:"concurrency"`
	UserAgent      string `toml:"user_agent"`
}

// GraphConfig configures the edge-graph resolver.
type GraphConfig struct {
	MaxDepth         int  `toml:"max_depth"`
	OwnLabelFallback bool `toml:"own_label_fallback"`
}

// GeometryConfig configures the layout resolver and the sweep.
type GeometryConfig struct {
	ContainerWidth   float64 `toml:"container_width"`
	ContainerHeight  float64 `toml:"container_height"`
	Tolerance        float64 `toml:"tolerance"`
	HorizontalWeight float64 `toml:"horizontal_weight"`
	HorizontalWindow float64 `toml:"horizontal_window"`
	Uncategorized    string  `toml:"uncategorized"`
	SettleMillis     int     `toml:"settle_ms"`
}

// EnrichConfig configures AI enrichment.
type EnrichConfig struct {
	Model              string  `toml:"model"`
	CacheDir           string  `toml:"cache_dir"`
	MinIntervalSeconds float64 `toml:"min_interval_seconds"`
}

// OutputConfig configures export defaults.
type OutputConfig struct {
	Dir    string `toml:"dir"`
	Format string `toml:"format"`
}

func defaultUserConfig() *UserConfig {
	geo := geometry.DefaultConfig()
	return &UserConfig{
		Source: SourceConfig{
			RawBaseURL:     source.DefaultRawBaseURL,
			APIBaseURL:     source.DefaultAPIBaseURL,
			TimeoutSeconds: 30,
			Concurrency:    20,
			UserAgent:      "Mozilla/5.0 (compatible; roadmapper)",
		},
		Graph: GraphConfig{MaxDepth: 10},
		Geometry: GeometryConfig{
			ContainerWidth:   geo.ContainerWidth,
			ContainerHeight:  geo.ContainerHeight,
			Tolerance:        geo.Tolerance,
			HorizontalWeight: geo.HorizontalWeight,
			Uncategorized:    geo.Uncategorized,
			SettleMillis:     500,
		},
		Enrich: EnrichConfig{
			Model:              enrich.DefaultModel,
			MinIntervalSeconds: 4,
		},
		Output: OutputConfig{
			Dir:    "output",
			Format: string(export.FormatCSV),
		},
	}
}

// defaultConfigPath returns ~/.config/roadmapper/config.toml.
func defaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	return filepath.Join(home, ".config", "roadmapper", "config.toml"), nil
}

// loadUserConfig reads the config file at path (the default location when
// empty) and returns it with defaults applied. A missing file yields the
// defaults with no error. S3 credentials may also come from the
// environment.
func loadUserConfig(path string) (*UserConfig, error) {
	if path == "" {
		p, err := defaultConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := defaultUserConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	applyDefaults(cfg)
	applyEnv(cfg)
	return cfg, nil
}

// applyDefaults re-applies defaults for fields left empty by the file.
func applyDefaults(cfg *UserConfig) {
	def := defaultUserConfig()

	if cfg.Source.RawBaseURL == "" {
		cfg.Source.RawBaseURL = def.Source.RawBaseURL
	}
	if cfg.Source.APIBaseURL == "" {
		cfg.Source.APIBaseURL = def.Source.APIBaseURL
	}
	if cfg.Source.TimeoutSeconds <= 0 {
		cfg.Source.TimeoutSeconds = def.Source.TimeoutSeconds
	}
	if cfg.Source.Concurrency <= 0 {
		cfg.Source.Concurrency = def.Source.Concurrency
	}
	if cfg.Source.UserAgent == "" {
		cfg.Source.UserAgent = def.Source.UserAgent
	}
	if cfg.Graph.MaxDepth <= 0 {
		cfg.Graph.MaxDepth = def.Graph.MaxDepth
	}
	if cfg.Geometry.ContainerWidth == 0 {
		cfg.Geometry.ContainerWidth = def.Geometry.ContainerWidth
	}
	if cfg.Geometry.ContainerHeight == 0 {
		cfg.Geometry.ContainerHeight = def.Geometry.ContainerHeight
	}
	if cfg.Geometry.Uncategorized == "" {
		cfg.Geometry.Uncategorized = def.Geometry.Uncategorized
	}
	if cfg.Enrich.Model == "" {
		cfg.Enrich.Model = def.Enrich.Model
	}
	if cfg.Enrich.MinIntervalSeconds == 0 {
		cfg.Enrich.MinIntervalSeconds = def.Enrich.MinIntervalSeconds
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = def.Output.Dir
	}
	if cfg.Output.Format == "" {
		cfg.Output.Format = def.Output.Format
	}
}

func applyEnv(cfg *UserConfig) {
	cfg.Upload.Endpoint = firstNonEmpty(os.Getenv("ROADMAPPER_S3_ENDPOINT"), cfg.Upload.Endpoint)
	cfg.Upload.Bucket = firstNonEmpty(os.Getenv("ROADMAPPER_S3_BUCKET"), cfg.Upload.Bucket)
	cfg.Upload.Region = firstNonEmpty(os.Getenv("ROADMAPPER_S3_REGION"), cfg.Upload.Region)
	cfg.Upload.AccessKey = firstNonEmpty(os.Getenv("ROADMAPPER_S3_ACCESS_KEY"), cfg.Upload.AccessKey)
	cfg.Upload.SecretKey = firstNonEmpty(os.Getenv("ROADMAPPER_S3_SECRET_KEY"), cfg.Upload.SecretKey)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func (c *UserConfig) sourceConfig() source.Config {
	return source.Config{
		RawBaseURL:  c.Source.RawBaseURL,
		APIBaseURL:  c.Source.APIBaseURL,
		Timeout:     time.Duration(c.Source.TimeoutSeconds) * time.Second,
		Concurrency: c.Source.Concurrency,
		UserAgent:   c.Source.UserAgent,
	}
}

// graphConfig leaves DefaultCategory empty so the pipeline derives it
// from the roadmap name.
func (c *UserConfig) graphConfig() graph.Config {
	cfg := graph.DefaultConfig("")
	cfg.MaxDepth = c.Graph.MaxDepth
	cfg.OwnLabelFallback = c.Graph.OwnLabelFallback
	return cfg
}

func (c *UserConfig) geometryConfig() geometry.Config {
	return geometry.Config{
		ContainerWidth:   c.Geometry.ContainerWidth,
		ContainerHeight:  c.Geometry.ContainerHeight,
		Tolerance:        c.Geometry.Tolerance,
		HorizontalWeight: c.Geometry.HorizontalWeight,
		HorizontalWindow: c.Geometry.HorizontalWindow,
		Uncategorized:    c.Geometry.Uncategorized,
	}
}

func (c *UserConfig) settle() time.Duration {
	return time.Duration(c.Geometry.SettleMillis) * time.Millisecond
}

// cacheDir returns the enrichment cache directory, ~/.cache/roadmapper by
// default.
func (c *UserConfig) cacheDir() (string, error) {
	if c.Enrich.CacheDir != "" {
		return c.Enrich.CacheDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	return filepath.Join(home, ".cache", "roadmapper"), nil
}

func (c *UserConfig) minInterval() time.Duration {
	if c.Enrich.MinIntervalSeconds < 0 {
		return -1
	}
	return time.Duration(c.Enrich.MinIntervalSeconds * float64(time.Second))
}
