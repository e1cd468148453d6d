package mcp

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/tabdigest/internal/errors"
	"github.com/hpungsan/tabdigest/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	deps ops.Deps
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(deps ops.Deps) *Handlers {
	return &Handlers{deps: deps}
}

// Request types for each tool

// RenderTabDumpRequest represents the arguments for render_tab_dump.
type RenderTabDumpRequest struct {
	Markdown string          `json:"markdown"`
	Source   string          `json:"source,omitempty"`
	Config   json.RawMessage `json:"config,omitempty"`
	LLM      bool            `json:"llm,omitempty"`
}

// RenderPayloadRequest represents the arguments for render_payload.
type RenderPayloadRequest struct {
	Payload json.RawMessage `json:"payload"`
	Config  json.RawMessage `json:"config,omitempty"`
}

// ClassifyTabRequest represents the arguments for classify_tab.
type ClassifyTabRequest struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// NormalizeURLRequest represents the arguments for normalize_url.
type NormalizeURLRequest struct {
	URL string `json:"url"`
}

// HandleRenderTabDump handles the render_tab_dump tool call.
func (h *Handlers) HandleRenderTabDump(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := decode[RenderTabDumpRequest](req)
	if err != nil {
		return errorResult(errors.NewInputRejected(err.Error())), nil
	}

	cfg, err := unquoteDocument(r.Config)
	if err != nil {
		return errorResult(errors.NewInvalidConfig(err.Error())), nil
	}

	result, err := ops.RenderTabDump(ctx, h.deps, ops.RenderTabDumpInput{
		Markdown: r.Markdown,
		Source:   r.Source,
		Config:   cfg,
		LLM:      r.LLM,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleRenderPayload handles the render_payload tool call.
func (h *Handlers) HandleRenderPayload(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := decode[RenderPayloadRequest](req)
	if err != nil {
		return errorResult(errors.NewInputRejected(err.Error())), nil
	}

	payload, err := unquoteDocument(r.Payload)
	if err != nil {
		return errorResult(errors.NewInputRejected(err.Error())), nil
	}
	cfg, err := unquoteDocument(r.Config)
	if err != nil {
		return errorResult(errors.NewInvalidConfig(err.Error())), nil
	}

	result, err := ops.RenderPayload(h.deps, ops.RenderPayloadInput{
		Payload: payload,
		Config:  cfg,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleClassifyTab handles the classify_tab tool call.
func (h *Handlers) HandleClassifyTab(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := decode[ClassifyTabRequest](req)
	if err != nil {
		return errorResult(errors.NewInputRejected(err.Error())), nil
	}

	result, err := ops.ClassifyTab(h.deps, ops.ClassifyTabInput{URL: r.URL, Title: r.Title})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleNormalizeURL handles the normalize_url tool call.
func (h *Handlers) HandleNormalizeURL(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := decode[NormalizeURLRequest](req)
	if err != nil {
		return errorResult(errors.NewInputRejected(err.Error())), nil
	}

	result, err := ops.NormalizeURL(h.deps, ops.NormalizeURLInput{URL: r.URL})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// errorResult creates an MCP error result from an error.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if de, ok := errors.As(err); ok {
		errorObj := map[string]any{
			"code":    de.Code,
			"message": de.Message,
			"status":  de.Status,
		}
		// Internal details may carry file paths or upstream responses.
		if de.Code != errors.ErrInternal && de.Details != nil {
			errorObj["details"] = de.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"message": "an internal error occurred",
				"status":  1,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
