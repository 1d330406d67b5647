// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes fehu chart tools for LLM integration via stdio transport.
package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/fehu/internal/chartfile"
	"github.com/starford/fehu/internal/chartservice"
	"github.com/starford/fehu/internal/render"
)

// ChartFormatURI is the resource URI of the chart file contract.
const ChartFormatURI = "fehu://chart-format"

// Server wraps the MCP server with fehu tools.
type Server struct {
	mcp *server.MCPServer
	svc *chartservice.Service
}

// New creates a new MCP server with all fehu tools registered.
func New(svc *chartservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"fehu",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_charts",
		mcp.WithDescription("List charts, most recently updated first."),
		mcp.WithString("owner", mcp.Description("Only list charts of this owner")),
		mcp.WithNumber("limit", mcp.Description("Page size (default 50)")),
		mcp.WithNumber("offset", mcp.Description("Page offset")),
	), s.listCharts)

	s.mcp.AddTool(mcp.NewTool("search_charts",
		mcp.WithDescription("Full-text search through chart, moment and stream names."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchCharts)

	s.mcp.AddTool(mcp.NewTool("read_chart",
		mcp.WithDescription("Read a chart document as YAML."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Chart id")),
	), s.readChart)

	s.mcp.AddTool(mcp.NewTool("get_chart_data",
		mcp.WithDescription("Compute a chart: per-year stream amounts, totals and running balance."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Chart id")),
		mcp.WithString("format", mcp.Description("json (default) or table"), mcp.Enum("json", "table")),
	), s.getChartData)

	s.mcp.AddTool(mcp.NewTool("create_chart",
		mcp.WithDescription("Create a chart from YAML. "+
			"Content MUST follow the chart file contract. Read it first via "+
			"the get_chart_contract tool or the "+ChartFormatURI+" resource."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Chart YAML following the fehu chart contract")),
	), s.createChart)

	s.mcp.AddTool(mcp.NewTool("update_stream_amount",
		mcp.WithDescription("Set the yearly amount of one stream. Negative amounts are expenses."),
		mcp.WithString("chart_id", mcp.Required(), mcp.Description("Chart id")),
		mcp.WithString("stream_id", mcp.Required(), mcp.Description("Stream id")),
		mcp.WithNumber("amount_per_yr", mcp.Required(), mcp.Description("Whole currency units per year")),
	), s.updateStreamAmount)

	s.mcp.AddTool(mcp.NewTool("get_moment_usages",
		mcp.WithDescription("List the streams whose boundary is anchored on a moment."),
		mcp.WithString("chart_id", mcp.Required(), mcp.Description("Chart id")),
		mcp.WithString("moment_id", mcp.Required(), mcp.Description("Moment id")),
	), s.getMomentUsages)

	s.mcp.AddTool(mcp.NewTool("get_chart_contract",
		mcp.WithDescription("Returns the fehu chart file contract. "+
			"Call this before creating charts to ensure correct structure."),
	), s.getChartContract)

	s.mcp.AddResource(
		mcp.NewResource(ChartFormatURI, "Chart Format Contract",
			mcp.WithResourceDescription("Canonical YAML chart format that all charts must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readChartFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listCharts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, total, err := s.svc.ListCharts(ctx,
		req.GetString("owner", ""),
		req.GetInt("limit", 50),
		req.GetInt("offset", 0))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"charts": items, "total": total})
}

func (s *Server) searchCharts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) readChart(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	c, err := s.svc.GetChart(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := chartfile.Marshal(c.Chart)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getChartData(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.GetChartData(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if req.GetString("format", "json") == "table" {
		var buf bytes.Buffer
		if err := render.Table(&buf, d); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(buf.String()), nil
	}
	return jsonResult(d)
}

func (s *Server) createChart(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	c, err := s.svc.CreateChart(ctx, []byte(content))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s (%s)", c.ID, c.Path)), nil
}

func (s *Server) updateStreamAmount(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	chartID, err := req.RequireString("chart_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	streamID, err := req.RequireString("stream_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	amount, err := req.RequireFloat("amount_per_yr")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if amount != math.Trunc(amount) {
		return mcp.NewToolResultError(fmt.Sprintf("amount_per_yr must be a whole number, got %v", amount)), nil
	}
	if _, err := s.svc.UpdateStreamAmount(ctx, chartID, streamID, int64(amount), ""); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated: %s/%s = %d", chartID, streamID, int64(amount))), nil
}

func (s *Server) getMomentUsages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	chartID, err := req.RequireString("chart_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	momentID, err := req.RequireString("moment_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	usages, err := s.svc.MomentUsages(ctx, chartID, momentID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(usages) == 0 {
		return mcp.NewToolResultText("no streams use this moment"), nil
	}
	return jsonResult(usages)
}

func (s *Server) getChartContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ChartFormatContract), nil
}

func (s *Server) readChartFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ChartFormatURI,
			MIMEType: "text/markdown",
			Text:     ChartFormatContract,
		},
	}, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}
