// Package source downloads roadmap graphs and topic documents from the
// public developer-roadmap repository.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/lthms/roadmapper/internal/graph"
)

const (
	DefaultRawBaseURL = "https://raw.githubusercontent.com/kamranahmedse/developer-roadmap/master/src/data/roadmaps"
	DefaultAPIBaseURL = "https://api.github.com/repos/kamranahmedse/developer-roadmap/contents/src/data/roadmaps"
)

// ErrNotFound is returned when a requested file does not exist upstream.
var ErrNotFound = errors.New("source: not found")

// Config holds fetcher parameters. Zero fields take defaults.
type Config struct {
	RawBaseURL  string        // raw file host, roadmap directories below it
	APIBaseURL  string        // contents API for the same directory
	Timeout     time.Duration // per-request timeout (0 = 30s)
	Concurrency int           // parallel document downloads (0 = 20)
	UserAgent   string
	CacheSize   int // documents kept in memory (0 = 1024)
}

// Client fetches roadmap data over HTTP.
type Client struct {
	cfg  Config
	http *http.Client
	docs *lru.Cache[string, string]
}

// New returns a Client with defaults applied to cfg.
func New(cfg Config) (*Client, error) {
	if cfg.RawBaseURL == "" {
		cfg.RawBaseURL = DefaultRawBaseURL
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultAPIBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 20
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "roadmapper/1.0"
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 1024
	}
	cfg.RawBaseURL = strings.TrimRight(cfg.RawBaseURL, "/")
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")

	docs, err := lru.New[string, string](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("document cache: %w", err)
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		docs: docs,
	}, nil
}

// Snapshot downloads and decodes the graph of the named roadmap.
func (c *Client) Snapshot(ctx context.Context, roadmap string) (*graph.Snapshot, error) {
	url := fmt.Sprintf("%s/%s/%s.json", c.cfg.RawBaseURL, roadmap, roadmap)
	slog.Info("source: fetching roadmap", "url", url)

	body, err := c.get(ctx, url, "")
	if err != nil {
		return nil, fmt.Errorf("fetch roadmap %s: %w", roadmap, err)
	}
	snap, err := graph.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse roadmap %s: %w", roadmap, err)
	}
	slog.Info("source: roadmap fetched",
		"nodes", len(snap.Nodes), "edges", len(snap.Edges),
		"skipped_nodes", snap.SkippedNodes, "skipped_edges", snap.SkippedEdges)
	return snap, nil
}

// Document returns the markdown document stored under key (see
// content.Key). A missing document yields ErrNotFound.
func (c *Client) Document(ctx context.Context, roadmap, key string) (string, error) {
	ck := roadmap + "/" + key
	if doc, ok := c.docs.Get(ck); ok {
		return doc, nil
	}
	url := fmt.Sprintf("%s/%s/content/%s.md", c.cfg.RawBaseURL, roadmap, key)
	body, err := c.get(ctx, url, "")
	if err != nil {
		return "", fmt.Errorf("fetch document %s: %w", key, err)
	}
	doc := string(body)
	c.docs.Add(ck, doc)
	return doc, nil
}

// entry is one item of a GitHub contents listing.
type entry struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	DownloadURL string `json:"download_url"`
}

// Documents downloads every markdown document of the roadmap in parallel.
// The result maps the file name without its ".md" suffix to its content.
// Individual download failures are logged and skipped.
func (c *Client) Documents(ctx context.Context, roadmap string) (map[string]string, error) {
	entries, err := c.list(ctx, fmt.Sprintf("%s/%s/content", c.cfg.APIBaseURL, roadmap))
	if err != nil {
		return nil, fmt.Errorf("list content of %s: %w", roadmap, err)
	}
	slog.Info("source: content directory listed", "files", len(entries))

	var (
		mu     sync.Mutex
		docs   = make(map[string]string, len(entries))
		failed int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Concurrency)

	for _, e := range entries {
		if e.Type == "dir" || !strings.HasSuffix(e.Name, ".md") {
			continue
		}
		key := strings.TrimSuffix(e.Name, ".md")
		if e.DownloadURL == "" {
			slog.Warn("source: no download url", "file", e.Name)
			mu.Lock()
			failed++
			mu.Unlock()
			continue
		}
		g.Go(func() error {
			body, err := c.get(gctx, e.DownloadURL, "")
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				slog.Warn("source: document download failed", "file", e.Name, "error", err)
				failed++
				return nil
			}
			docs[key] = string(body)
			c.docs.Add(roadmap+"/"+key, string(body))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("download content of %s: %w", roadmap, err)
	}

	slog.Info("source: content downloaded", "ok", len(docs), "failed", failed)
	return docs, nil
}

// Roadmaps lists the names of all available roadmaps, sorted.
func (c *Client) Roadmaps(ctx context.Context) ([]string, error) {
	entries, err := c.list(ctx, c.cfg.APIBaseURL)
	if err != nil {
		return nil, fmt.Errorf("list roadmaps: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.Type == "dir" && e.Name != "" {
			names = append(names, e.Name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (c *Client) list(ctx context.Context, url string) ([]entry, error) {
	body, err := c.get(ctx, url, "application/vnd.github.v3+json")
	if err != nil {
		return nil, err
	}
	var entries []entry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("decode listing: %w", err)
	}
	return entries, nil
}

func (c *Client) get(ctx context.Context, url, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s", url, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
