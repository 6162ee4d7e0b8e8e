package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/huangsam/riskmap/core"
	"github.com/huangsam/riskmap/internal/contract"
	"github.com/huangsam/riskmap/internal/outwriter"
	"github.com/huangsam/riskmap/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.CacheManager
}

func (h *toolHandler) handleGetDistrictScores(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	if err := contract.RevalidateSelection(cfg, request.GetString("view", ""), request.GetString("policy", "")); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if l := request.GetInt("limit", 0); l > 0 {
		if l > contract.MaxResultLimit {
			l = contract.MaxResultLimit
		}
		cfg.ResultLimit = l
	}
	cfg.Ascending = request.GetBool("ascending", cfg.Ascending)

	ranked, summary, _, err := core.GetDistrictScores(core.WithSuppressHeader(ctx), cfg, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("scoring failed: %v", err)), nil
	}

	jsonData, _ := json.MarshalIndent(outwriter.BuildJSONScores(ranked, summary, cfg), "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleGetDistrict(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	name := request.GetString("name", "")
	cfg.District = schema.NewDistrictID(name)
	if cfg.District == "" {
		return mcp.NewToolResultError("invalid parameters: name is required"), nil
	}
	if err := contract.RevalidateSelection(cfg, "", request.GetString("policy", "")); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}

	detail, err := core.GetDistrictDetail(core.WithSuppressHeader(ctx), cfg, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("lookup of %q failed: %v", name, err)), nil
	}

	jsonData, _ := json.MarshalIndent(detail, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleListViews(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jsonData, _ := json.MarshalIndent(schema.Views, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}
