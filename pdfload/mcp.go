package pdfload

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/pdfbridge/kit"
)

// RegisterMCP registers pdfload tools on an MCP server.
func (l *Loader) RegisterMCP(srv *mcp.Server) {
	l.registerLoadTool(srv)
	l.registerDetectTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

type pathReq struct {
	Path string `json:"path"`
}

func decodePath(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	var r pathReq
	if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
		return nil, err
	}
	return &kit.MCPDecodeResult{Request: &r}, nil
}

// LoadResult is the payload returned by the pdfload_load tool.
type LoadResult struct {
	Path      string             `json:"path"`
	Pages     int                `json:"pages"`
	Documents []Document         `json:"documents"`
	Quality   *ExtractionQuality `json:"quality"`
}

func (l *Loader) registerLoadTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "pdfload_load",
		Description: "Load a PDF file into one document record per page.",
		InputSchema: inputSchema(map[string]any{
			"path": map[string]any{"type": "string", "description": "PDF file path"},
		}, []string{"path"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*pathReq)
		docs, err := l.Load(ctx, r.Path)
		if err != nil {
			return nil, err
		}
		return &LoadResult{Path: r.Path, Pages: len(docs), Documents: docs, Quality: Assess(docs)}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodePath)
}

func (l *Loader) registerDetectTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "pdfload_detect",
		Description: "Check whether a path names a PDF file by its extension.",
		InputSchema: inputSchema(map[string]any{
			"path": map[string]any{"type": "string", "description": "File path to check"},
		}, []string{"path"}),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		r := req.(*pathReq)
		if err := l.Detect(r.Path); err != nil {
			return nil, err
		}
		return map[string]any{"format": "pdf"}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodePath)
}
