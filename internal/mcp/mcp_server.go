// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/riskmap/internal/contract"
	"github.com/huangsam/riskmap/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the risk map MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.CacheManager) *server.MCPServer {
	s := server.NewMCPServer(
		"Seismic Risk Map Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
	}

	// --- 1. Tool: get_district_scores ---
	s.AddTool(mcp.NewTool("get_district_scores",
		mcp.WithDescription("Rank districts of Lima and Callao by seismic risk, joined onto their boundaries."),
		mcp.WithString("view", mcp.Description("Metric to rank by. Defaults to 'composite_score'."), mcp.Enum(schema.ViewNames()...)),
		mcp.WithString("policy", mcp.Description("How absent metrics enter the composite score. Defaults to 'zero-fill'."),
			mcp.Enum(string(schema.ZeroFillPolicy), string(schema.ExcludeAbsentPolicy))),
		mcp.WithNumber("limit", mcp.Description("Limit the number of results returned.")),
		mcp.WithBoolean("ascending", mcp.Description("Return the lowest risk districts first.")),
	), h.handleGetDistrictScores)

	// --- 2. Tool: get_district ---
	s.AddTool(mcp.NewTool("get_district",
		mcp.WithDescription("Describe one district: raw and normalized metrics, composite rank, soil and boundary extent."),
		mcp.WithString("name", mcp.Description("District name. Case, accents and extra spaces are ignored."), mcp.Required()),
		mcp.WithString("policy", mcp.Description("How absent metrics enter the composite score.")),
	), h.handleGetDistrict)

	// --- 3. Tool: list_views ---
	s.AddTool(mcp.NewTool("list_views",
		mcp.WithDescription("List the selectable single-metric views with their descriptions and conclusions."),
	), h.handleListViews)

	return s
}

// StartMCPServer starts the risk map MCP server.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.CacheManager) error {
	s := NewMCPServer(baseCfg, mgr)
	return server.ServeStdio(s)
}
