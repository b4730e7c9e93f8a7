// Package mcpserver exposes prompt runs as MCP tools so an agent can trigger
// a run or see which prompts are due.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hoanghai1803/citewatch/internal/models"
	"github.com/hoanghai1803/citewatch/internal/pipeline"
	"github.com/hoanghai1803/citewatch/internal/storage"
)

// PromptRunner runs a prompt against a set of models.
type PromptRunner interface {
	RunPrompt(ctx context.Context, p *models.Prompt, modelIDs []string, trigger string) (*pipeline.RunResult, error)
}

// Tools implements the MCP tool handlers.
type Tools struct {
	store  *storage.Store
	runner PromptRunner
	now    func() time.Time
}

// New registers the citewatch tools on a new MCP server.
func New(store *storage.Store, runner PromptRunner, version string) *server.MCPServer {
	t := &Tools{store: store, runner: runner, now: time.Now}

	s := server.NewMCPServer("citewatch", version, server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool("list_prompts",
		mcp.WithDescription("List the monitored prompts with their models and schedules."),
	), t.ListPrompts)

	s.AddTool(mcp.NewTool("list_due_prompts",
		mcp.WithDescription("List scheduled prompts whose next run time has passed."),
	), t.ListDuePrompts)

	s.AddTool(mcp.NewTool("run_prompt",
		mcp.WithDescription("Run a stored prompt now against its models and store the responses, cited links and brand sentiment."),
		mcp.WithNumber("prompt_id",
			mcp.Required(),
			mcp.Description("ID of the prompt to run"),
		),
		mcp.WithString("model",
			mcp.Description("Optional provider:model identifier to run instead of all of the prompt's models"),
		),
	), t.RunPrompt)

	return s
}

// ListPrompts returns every stored prompt.
func (t *Tools) ListPrompts(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prompts, err := t.store.ListPrompts(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("listing prompts: %w", err)
	}
	return jsonResult(prompts)
}

// ListDuePrompts returns the prompts the scheduler would run now.
func (t *Tools) ListDuePrompts(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prompts, err := t.store.GetDuePrompts(ctx, t.now())
	if err != nil {
		return nil, fmt.Errorf("listing due prompts: %w", err)
	}
	if prompts == nil {
		prompts = []models.Prompt{}
	}
	return jsonResult(prompts)
}

// RunPrompt runs one prompt. Bad arguments and unknown prompts are reported
// as tool errors; a run where every model failed is too, with the outcomes.
func (t *Tools) RunPrompt(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireInt("prompt_id")
	if err != nil {
		return mcp.NewToolResultError("prompt_id is required"), nil
	}

	p, err := t.store.GetPrompt(ctx, int64(id))
	if errors.Is(err, storage.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("prompt %d not found", id)), nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading prompt %d: %w", id, err)
	}

	result, err := t.runner.RunPrompt(context.WithoutCancel(ctx), p, pipeline.ModelsFor(p, request.GetString("model", "")), pipeline.TriggerMCP)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	out, err := jsonResult(result)
	if err != nil {
		return nil, err
	}
	out.IsError = result.Succeeded() == 0
	return out, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding tool result: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}
