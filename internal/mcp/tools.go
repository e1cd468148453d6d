package mcp

import "github.com/mark3labs/mcp-go/mcp"

var renderTabDumpToolDef = mcp.NewTool("render_tab_dump",
	mcp.WithDescription("Render a captured tab-dump note into a prioritized digest. "+
		"The note must carry a tabdump_id frontmatter value and at least one '- [title](url)' bullet."),
	mcp.WithString("markdown", mcp.Required(),
		mcp.Description("Full text of the tab-dump note")),
	mcp.WithString("source",
		mcp.Description("Source note name shown in the digest frontmatter")),
	mcp.WithObject("config",
		mcp.Description("Renderer configuration keys layered over the defaults, e.g. {\"highPriorityLimit\": 3}")),
	mcp.WithBoolean("llm",
		mcp.Description("Classify with the remote model; falls back to local rules when unavailable")),
)

var renderPayloadToolDef = mcp.NewTool("render_payload",
	mcp.WithDescription("Render an already classified payload {meta, counts, cfg, items} into a digest."),
	mcp.WithObject("payload", mcp.Required(),
		mcp.Description("Payload document; a JSON string holding the document is accepted too")),
	mcp.WithObject("config",
		mcp.Description("Renderer configuration keys layered over the payload cfg")),
)

var classifyTabToolDef = mcp.NewTool("classify_tab",
	mcp.WithDescription("Classify one tab with the local rules and explain its effort estimate."),
	mcp.WithString("url", mcp.Required(), mcp.Description("Tab URL")),
	mcp.WithString("title", mcp.Description("Tab title")),
)

var normalizeURLToolDef = mcp.NewTool("normalize_url",
	mcp.WithDescription("Canonicalize a URL (tracking parameters dropped, query sorted) and report whether it is sensitive."),
	mcp.WithString("url", mcp.Required(), mcp.Description("URL to normalize")),
)
