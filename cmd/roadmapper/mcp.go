package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lthms/roadmapper/internal/graph"
	"github.com/lthms/roadmapper/internal/scrape"
	"github.com/lthms/roadmapper/internal/source"
)

// MCPCmd exposes roadmap resolution as MCP tools over stdio.
type MCPCmd struct{}

type listRoadmapsArgs struct{}

type resolveRoadmapArgs struct {
	Roadmap     string `json:"roadmap" jsonschema:"Roadmap name, e.g. engineering-manager"`
	Subcategory string `json:"subcategory,omitempty" jsonschema:"Only return topics whose category or subcategory contains this text"`
}

type mcpTools struct {
	fetcher interface {
		scrape.Fetcher
		roadmapLister
	}
	graph graph.Config
}

func (cmd *MCPCmd) Run(ctx context.Context, cfg *UserConfig) error {
	client, err := source.New(cfg.sourceConfig())
	if err != nil {
		return err
	}
	tools := &mcpTools{fetcher: client, graph: cfg.graphConfig()}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "roadmapper",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_roadmaps",
		Description: "List the names of all roadmaps available on roadmap.sh.",
	}, tools.handleList)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "resolve_roadmap",
		Description: "Resolve a roadmap into flat records of {category, subcategory, topic, description, resources}. Returns a JSON array.",
	}, tools.handleResolve)

	slog.Debug("starting MCP server")
	return server.Run(ctx, &mcp.StdioTransport{})
}

func (t *mcpTools) handleList(ctx context.Context, req *mcp.CallToolRequest, args listRoadmapsArgs) (*mcp.CallToolResult, any, error) {
	names, err := t.fetcher.Roadmaps(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list roadmaps: %w", err)
	}
	return textResult(strings.Join(names, "\n")), nil, nil
}

func (t *mcpTools) handleResolve(ctx context.Context, req *mcp.CallToolRequest, args resolveRoadmapArgs) (*mcp.CallToolResult, any, error) {
	slog.Debug("resolve_roadmap called", "roadmap", args.Roadmap, "subcategory", args.Subcategory)
	if strings.TrimSpace(args.Roadmap) == "" {
		return nil, nil, fmt.Errorf("roadmap is required")
	}

	p := &scrape.Pipeline{Fetcher: t.fetcher, Graph: t.graph}
	res, err := p.Run(ctx, args.Roadmap)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve failed: %w", err)
	}

	records := filterRecords(res.Records, args.Subcategory)
	out, err := json.Marshal(records)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal records: %w", err)
	}
	return textResult(string(out)), nil, nil
}

// filterRecords keeps records whose category or subcategory contains q,
// case-insensitively. An empty q keeps everything.
func filterRecords(records []scrape.Record, q string) []scrape.Record {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return records
	}
	out := []scrape.Record{}
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.Category), q) || strings.Contains(strings.ToLower(r.Subcategory), q) {
			out = append(out, r)
		}
	}
	return out
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}
