// Package mcp exposes the digest pipeline as MCP tools over stdio.
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/tabdigest/internal/ops"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"render_tab_dump": {
		def:     renderTabDumpToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRenderTabDump },
	},
	"render_payload": {
		def:     renderPayloadToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRenderPayload },
	},
	"classify_tab": {
		def:     classifyTabToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleClassifyTab },
	},
	"normalize_url": {
		def:     normalizeURLToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleNormalizeURL },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates an MCP server with the digest tools registered. Tools
// listed in deps.Config.DisabledTools are left out.
func NewServer(deps ops.Deps, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"tabdigest",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(deps)

	disabled := make(map[string]bool)
	if deps.Config != nil {
		for _, name := range deps.Config.DisabledTools {
			disabled[name] = true
		}
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(deps ops.Deps, version string) error {
	s := NewServer(deps, version)
	return server.ServeStdio(s)
}
