package digest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/tabdigest/internal/config"
	"github.com/hpungsan/tabdigest/internal/taxonomy"
)

const goldenDigest = `---
Dump Date: 2026-01-05
Tab Count: 2
Top Domains: go.dev
Top Kinds: docs
Renderer: tabdigest-v3.2.4.1
Source: tabs.md
Deduped: 0
---

# 📑 Tab Dump: 2026-01-05
> **Focus:** Mostly browsing across go.dev.

## 📚 Read Later
> [!info]- Read Later (1)
> ### go.dev
> - [ ] [Go tour](https://go.dev/tour/welcome/1)
>   [low effort] · docs

## 🔐 Accounts & Settings
> [!warning]- Account/Settings Access (1)
> ### admin_auth • example.com
> - [ ] [Login](https://example.com/login) · admin
`

func goldenPayload() *Payload {
	tour := withKind(pi("Go tour", "https://go.dev/tour/welcome/1"), "docs", "read", 0.9)
	tour.Topics = []Topic{{Slug: "golang"}}
	tour.Effort = "quick"
	return &Payload{
		Meta:  Meta{Created: "2026-01-05T10:00:00Z", Source: "tabs.md"},
		Items: []PayloadItem{tour, pi("Login", "https://example.com/login")},
	}
}

func TestRender_Golden(t *testing.T) {
	md, err := Render(goldenPayload(), Options{})
	require.NoError(t, err)
	assert.Equal(t, goldenDigest, md)

	again, err := Render(goldenPayload(), Options{})
	require.NoError(t, err)
	assert.Equal(t, md, again)
}

func TestRender_EmptySections(t *testing.T) {
	md, err := Render(goldenPayload(), Options{Override: []byte(`{"includeEmptySections": true}`)})
	require.NoError(t, err)

	for _, name := range taxonomy.SectionOrder {
		if name == taxonomy.BucketBacklog {
			assert.NotContains(t, md, sectionTitles[name])
			continue
		}
		assert.Contains(t, md, "## "+sectionTitles[name])
	}
	assert.Contains(t, md, "> [!abstract] Today's Context: #golang")
	assert.Contains(t, md, "> _(empty)_")
}

func TestRender_FrontmatterSelection(t *testing.T) {
	md, err := Render(goldenPayload(), Options{
		Override: []byte(`{"frontmatterInclude": ["dump_date", "Source"], "includeFocusLine": false}`),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(md, "---\nDump Date: 2026-01-05\nSource: tabs.md\n---\n\n# 📑 Tab Dump: 2026-01-05\n\n## "))
	assert.NotContains(t, md, "Focus")
}

func TestRender_DumpDateFallbacks(t *testing.T) {
	tests := []struct {
		meta Meta
		want string
	}{
		{Meta{DumpDate: "2025-12-31", Created: "2026-01-05T10:00:00Z"}, "2025-12-31"},
		{Meta{Created: "2026-01-05T10:00:00Z"}, "2026-01-05"},
		{Meta{TS: "Jan 5 2026 10:00"}, "Jan"},
		{Meta{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, dumpDate(tt.meta))
		})
	}
}

func TestRender_HighPriority(t *testing.T) {
	p := highPayload()
	p.Items[0].Topics = []Topic{{Slug: "Python Internals"}}
	md, err := Render(p, Options{Override: []byte(`{"highPriorityLimit": 2}`)})
	require.NoError(t, err)

	assert.Contains(t, md, "## 🔥 Start Here\n*Auto-selected “do next” items.*\n> [!abstract] Today's Context: #python-internals\n")
	assert.Contains(t, md, "- [ ] [Raft](https://docs.example.org/papers/raft.pdf)\n  [high effort] · paper\n")
	assert.Contains(t, md, "- [ ] [Data model](https://docs.python.org/3/reference/datamodel.html)\n  [low effort] · docs · #python-internals\n")
	assert.Less(t, strings.Index(md, "🔥 Start Here"), strings.Index(md, "🏗 Repos"))
}

func TestRender_QuickMiniCategories(t *testing.T) {
	md, err := Render(&Payload{Items: []PayloadItem{
		withKind(pi("Kindle", "https://www.amazon.com/dp/B0"), "misc", "", 0),
		withKind(pi("Movie trailer", "https://example.com/t/1"), "misc", "", 0),
	}}, Options{Override: []byte(`{"render": {"badges": {"includeQuickWinsWhy": true}}}`)})
	require.NoError(t, err)

	assert.Contains(t, md, "> [!tip]- Expand Easy Tasks (2)\n> ### Leisure\n> - [ ] [Movie trailer](https://example.com/t/1)\n>   [medium effort] · misc · why:leisure_keyword\n> ### Shopping\n")
	assert.Contains(t, md, "why:shopping_domain")
}

func docsPayload() *Payload {
	var items []PayloadItem
	for i := 1; i <= 3; i++ {
		items = append(items, withKind(pi(fmt.Sprintf("A page %d", i), fmt.Sprintf("https://a.example/p/%d", i)), "docs", "", 0))
	}
	for i := 1; i <= 17; i++ {
		items = append(items, withKind(pi(fmt.Sprintf("Single %02d", i), fmt.Sprintf("https://d%02d.example/p", i)), "docs", "", 0))
	}
	return &Payload{Items: items}
}

func TestRender_DocsLargeSection(t *testing.T) {
	tests := []struct {
		name     string
		override string
		want     string
	}{
		{"auto picks kind", `{}`, "> #### Docs (17)"},
		{"energy", `{"docsOneOffGroupingMode": "energy"}`, "> #### Quick References (17)"},
		{"domain", `{"docsOneOffGroupingMode": "domain"}`, "> #### d01.example (1)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md, err := Render(docsPayload(), Options{Override: []byte(tt.override)})
			require.NoError(t, err)
			assert.Contains(t, md, "> [!info]- Main Sources (3)\n> ### a.example (3)\n")
			assert.Contains(t, md, "\n> [!summary]- More Links (17)\n")
			assert.Contains(t, md, tt.want)
		})
	}
}

func TestRender_DocsNoMainSources(t *testing.T) {
	p := docsPayload()
	p.Items = p.Items[3:]
	md, err := Render(p, Options{Override: []byte(`{"docsLargeSectionItemsGte": 5}`)})
	require.NoError(t, err)
	assert.Contains(t, md, "> [!info]- Main Sources (0)\n> _(no main sources)_\n")
}

func TestRender_PinnedDomains(t *testing.T) {
	p := docsPayload()
	p.Items = p.Items[:5]
	md, err := Render(p, Options{Override: []byte(`{"render": {"ordering": {"domains": {"pinned": ["d02.example"]}}}}`)})
	require.NoError(t, err)

	pinned := strings.Index(md, "> ### d02.example")
	require.GreaterOrEqual(t, pinned, 0)
	assert.Less(t, pinned, strings.Index(md, "> ### a.example"))
	assert.Less(t, strings.Index(md, "> ### a.example"), strings.Index(md, "> ### d01.example"))
}

func TestRender_BadgesDisabled(t *testing.T) {
	md, err := Render(goldenPayload(), Options{Override: []byte(`{"render": {"badges": {"enabled": false}}}`)})
	require.NoError(t, err)
	assert.Contains(t, md, ">   [low effort]\n")
	assert.Contains(t, md, "> - [ ] [Login](https://example.com/login)\n")
}

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, "a\\_b\\*\\[c\\]\\(d\\)\\`\\\\", escapeMarkdown("a_b*[c](d)`\\"))
	assert.Equal(t, "plain text", escapeMarkdown("plain text"))
}

func TestEscapeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://x.com/a b(c)", "https://x.com/a%20b%28c%29"},
		{"https://x.com/é", "https://x.com/%C3%A9"},
		{"https://x.com/a%20b?q=1&r=[2]#frag", "https://x.com/a%20b?q=1&r=[2]#frag"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, escapeURL(tt.in))
		})
	}
}

func TestBadges(t *testing.T) {
	opts := config.DefaultConfig().Render.Badges
	it := &Item{Kind: taxonomy.KindMisc, Topics: []Topic{{Slug: "Go"}}, QuickWhy: "Leisure_Keyword"}

	assert.Equal(t, "project", badges(it, opts, ctxProjects))
	assert.Equal(t, "tool", badges(it, opts, ctxTools))
	assert.Equal(t, "misc · #go", badges(it, opts, ctxHigh))

	opts.IncludeQuickWinsWhy = true
	assert.Equal(t, "misc · why:leisure_keyword", badges(it, opts, ctxQuick))

	opts.MaxPerBullet = 1
	assert.Equal(t, "misc", badges(it, opts, ctxHigh))

	opts.Enabled = false
	assert.Empty(t, badges(it, opts, ctxHigh))
}

func TestBadges_HighUsesPrimaryTopic(t *testing.T) {
	opts := config.DefaultConfig().Render.Badges
	it := &Item{Kind: taxonomy.KindDocs, Topics: []Topic{
		{Slug: "misc-notes", Confidence: 0.2},
		{Slug: "postgres", Confidence: 0.9},
	}}
	assert.Equal(t, "docs · #postgres", badges(it, opts, ctxHigh))
}

func TestFocusLine(t *testing.T) {
	items := []*Item{
		{Domain: "docs.python.org", DomainCategory: taxonomy.CategoryDocsSite},
		{Domain: "docs.python.org", DomainCategory: taxonomy.CategoryDocsSite},
		{Domain: "github.com", DomainCategory: taxonomy.CategoryCodeHost},
		{Domain: "example.com", DomainCategory: taxonomy.CategoryAdminAuth},
	}
	assert.Equal(t, "Mostly docs + repos across docs.python.org and github.com.", focusLine(items))
	assert.Equal(t, "Mostly varied across various domains.", focusLine(items[3:]))
}
