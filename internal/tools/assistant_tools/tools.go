package assistant_tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/clavrr/clavr/internal/assistant"
	"github.com/clavrr/clavr/internal/export"
)

// RegisterAssistantTools registers the assistant_query and export tools.
// The stdio transport serves a single local account, identified by userID.
func RegisterAssistantTools(s *mcpserver.MCPServer, a *assistant.Assistant, exports *export.Manager, userID string) error {
	if userID == "" {
		return fmt.Errorf("assistant tools require a user id")
	}

	queryTool := mcp.NewTool("assistant_query",
		mcp.WithDescription("Run a natural-language query against email, calendar, and tasks, e.g. "+
			"'archive everything from newsletters' or 'remind me to file the report by friday'"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The natural-language request to execute"),
		),
	)

	s.AddTool(queryTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})
		query, ok := args["query"].(string)
		if !ok || query == "" {
			return mcp.NewToolResultError("query is required"), nil
		}

		result, err := a.Execute(ctx, userID, query)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Query failed: %v", err)), nil
		}

		out, _ := json.MarshalIndent(result, "", "  ")
		return mcp.NewToolResultText(string(out)), nil
	})

	exportTool := mcp.NewTool("export_request",
		mcp.WithDescription("Start a data export (profile, tasks, query history, webhook subscriptions) as a zip archive"),
	)

	s.AddTool(exportTool, func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		job, err := exports.Request(ctx, userID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to start export: %v", err)), nil
		}

		out, _ := json.MarshalIndent(job, "", "  ")
		return mcp.NewToolResultText(string(out)), nil
	})

	statusTool := mcp.NewTool("export_status",
		mcp.WithDescription("Check the state of an export started with export_request"),
		mcp.WithString("exportId",
			mcp.Required(),
			mcp.Description("The export ID returned by export_request"),
		),
	)

	s.AddTool(statusTool, func(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})
		id, ok := args["exportId"].(string)
		if !ok || id == "" {
			return mcp.NewToolResultError("exportId is required"), nil
		}

		job, err := exports.Get(id)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Export not found: %v", err)), nil
		}

		out, _ := json.MarshalIndent(job, "", "  ")
		return mcp.NewToolResultText(string(out)), nil
	})

	return nil
}
