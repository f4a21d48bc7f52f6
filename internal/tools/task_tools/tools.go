package task_tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/clavrr/clavr/internal/parser"
	"github.com/clavrr/clavr/internal/store"
	"github.com/clavrr/clavr/internal/webhook"
)

// RegisterTaskTools registers structured task operations. The stdio
// transport serves a single local account, identified by userID.
func RegisterTaskTools(s *mcpserver.MCPServer, st *store.Store, events webhook.Publisher, userID string) error {
	if userID == "" {
		return fmt.Errorf("task tools require a user id")
	}
	if events == nil {
		events = webhook.NopPublisher{}
	}

	listTool := mcp.NewTool("task_list",
		mcp.WithDescription("List tasks, pending first"),
		mcp.WithBoolean("includeDone",
			mcp.Description("Include completed tasks (default: false)"),
		),
	)

	s.AddTool(listTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		filter := store.TaskFilter{}
		if include, _ := args["includeDone"].(bool); !include {
			pending := false
			filter.Done = &pending
		}

		tasks, err := st.Tasks.List(ctx, userID, filter)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to list tasks: %v", err)), nil
		}

		out, _ := json.MarshalIndent(tasks, "", "  ")
		return mcp.NewToolResultText(string(out)), nil
	})

	createTool := mcp.NewTool("task_create",
		mcp.WithDescription("Create a task"),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("The task title"),
		),
		mcp.WithString("notes",
			mcp.Description("Free-form notes"),
		),
		mcp.WithString("due",
			mcp.Description("Due date: RFC 3339, YYYY-MM-DD, or a phrase like 'tomorrow' or 'next friday'"),
		),
	)

	s.AddTool(createTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})
		title, ok := args["title"].(string)
		if !ok || title == "" {
			return mcp.NewToolResultError("title is required"), nil
		}

		task := &store.Task{UserID: userID, Title: title}
		if notes, _ := args["notes"].(string); notes != "" {
			task.Notes = notes
		}
		if phrase, _ := args["due"].(string); phrase != "" {
			due, err := parser.ResolveDate(phrase, time.Now())
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Invalid due date %q: %v", phrase, err)), nil
			}
			task.Due = &due
		}

		if err := st.Tasks.Create(ctx, task); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to create task: %v", err)), nil
		}

		events.Publish(ctx, webhook.Event{
			Type:    webhook.EventTaskCreated,
			UserID:  userID,
			Payload: map[string]any{"task_id": task.ID, "title": task.Title},
		})

		out, _ := json.MarshalIndent(task, "", "  ")
		return mcp.NewToolResultText(string(out)), nil
	})

	completeTool := mcp.NewTool("task_complete",
		mcp.WithDescription("Mark a task as done"),
		mcp.WithString("taskId",
			mcp.Required(),
			mcp.Description("The ID of the task to complete"),
		),
	)

	s.AddTool(completeTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})
		taskID, ok := args["taskId"].(string)
		if !ok || taskID == "" {
			return mcp.NewToolResultError("taskId is required"), nil
		}

		if err := st.Tasks.Complete(ctx, userID, taskID, time.Now()); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to complete task: %v", err)), nil
		}

		task, err := st.Tasks.Get(ctx, userID, taskID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to load task: %v", err)), nil
		}

		events.Publish(ctx, webhook.Event{
			Type:    webhook.EventTaskCompleted,
			UserID:  userID,
			Payload: map[string]any{"task_id": task.ID, "title": task.Title},
		})

		out, _ := json.MarshalIndent(task, "", "  ")
		return mcp.NewToolResultText(string(out)), nil
	})

	return nil
}
