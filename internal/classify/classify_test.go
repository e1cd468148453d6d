package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hpungsan/tabdigest/internal/taxonomy"
)

func TestKind(t *testing.T) {
	tests := []struct {
		name  string
		url   string
		title string
		want  taxonomy.Kind
	}{
		{"book page is not a release path", "https://pragprog.com/titles/mnee2/release-it-second-edition",
			"Release It! Second Edition: Design and Deploy Production-Ready Software by Michael Nygard", taxonomy.KindArticle},
		{"known tool domain", "https://contextmapper.org/", "Context Mapper", taxonomy.KindTool},
		{"mcp server listing", "https://smithery.ai/server/@upstash/context7-mcp", "Context7 MCP Server | Smithery", taxonomy.KindTool},
		{"learn path is docs", "https://huggingface.co/learn/llm-course/chapter1/1", "Introduction - Hugging Face LLM Course", taxonomy.KindDocs},
		{"music domain", "https://uppbeat.io/browse/music/lofi", "Lofi tracks", taxonomy.KindMusic},
		{"regional music domain", "https://music.yandex.ru/album/123", "Album", taxonomy.KindMusic},
		{"cyrillic video keywords", "https://stranger-things.ru/", "Очень странные дела 5 сезон смотреть онлайн", taxonomy.KindVideo},
		{"pdf wins over blog path", "https://example.com/blog/file.pdf", "File", taxonomy.KindPaper},
		{"blog path beats docs subdomain", "https://docs.example.com/blog/my-post", "My post", taxonomy.KindArticle},
		{"code host owner page", "https://github.com/microsoft", "Microsoft", taxonomy.KindRepo},
		{"reserved code host path", "https://github.com/settings", "Settings", taxonomy.KindArticle},
		{"calendar app", "https://calendar.google.com/calendar/u/0/r", "Google Calendar", taxonomy.KindTool},
		{"docs path", "https://example.com/docs/getting-started", "Getting started", taxonomy.KindDocs},
		{"docs host override", "https://docs.github.com/en/rest/reference/repos", "GitHub REST API reference", taxonomy.KindDocs},
		{"social default", "https://x.com/u/status/1", "Thread", taxonomy.KindArticle},
		{"reference word", "https://example.com/x", "Python API cheatsheet", taxonomy.KindDocs},
		{"spec inside a word is not a hint", "https://example.com/x", "Domain-specific languages", taxonomy.KindArticle},
		{"unparseable url", "http://[::1", "x", taxonomy.KindMisc},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Default().Kind(Input{Title: tt.title, URL: tt.url}))
		})
	}
}

func TestAction(t *testing.T) {
	c := Default()
	tests := []struct {
		name  string
		kind  taxonomy.Kind
		url   string
		title string
		want  taxonomy.Action
	}{
		{"video", taxonomy.KindVideo, "https://youtube.com/watch?v=1", "Talk", taxonomy.ActionWatch},
		{"music", taxonomy.KindMusic, "https://open.spotify.com/track/1", "Song", taxonomy.ActionWatch},
		{"repo issue", taxonomy.KindRepo, "https://github.com/a/b/issues/1", "Bug", taxonomy.ActionTriage},
		{"repo pull", taxonomy.KindRepo, "https://github.com/a/b/pull/2", "Fix", taxonomy.ActionTriage},
		{"repo root", taxonomy.KindRepo, "https://github.com/a/b", "a/b", taxonomy.ActionBuild},
		{"tool with project hint", taxonomy.KindTool, "https://linear.app/acme/issue/APP-1", "Sprint board", taxonomy.ActionBuild},
		{"tool without hint", taxonomy.KindTool, "https://calendar.google.com/", "Calendar", taxonomy.ActionTriage},
		{"deep paper", taxonomy.KindPaper, "https://arxiv.org/abs/1", "A guide to consensus", taxonomy.ActionDeepWork},
		{"reference docs", taxonomy.KindDocs, "https://docs.github.com/en/rest/reference/repos", "GitHub REST API reference", taxonomy.ActionReference},
		{"plain article", taxonomy.KindArticle, "https://example.org/post", "Thoughts", taxonomy.ActionRead},
		{"misc", taxonomy.KindMisc, "https://example.org/", "Thing", taxonomy.ActionTriage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Action(tt.kind, Input{Title: tt.title, URL: tt.url}))
		})
	}
}

func TestClassify_Scenarios(t *testing.T) {
	tests := []struct {
		name string
		in   Input
		want Result
	}{
		{
			name: "social thread",
			in:   Input{Title: "Thread", URL: "https://x.com/u/status/1", Domain: "x.com"},
			want: Result{Topic: "misc", Kind: taxonomy.KindArticle, Action: taxonomy.ActionRead, Score: 2},
		},
		{
			name: "code host blob",
			in: Input{
				Title:  "postgres bufmgr internals",
				URL:    "https://github.com/postgres/postgres/blob/master/src/backend/storage/buffer/README",
				Domain: "github.com",
			},
			want: Result{Topic: "postgres", Kind: taxonomy.KindRepo, Action: taxonomy.ActionBuild, Score: 5},
		},
		{
			name: "deep paper",
			in:   Input{Title: "distributed systems whitepaper guide", URL: "https://arxiv.org/abs/2401.1", Domain: "arxiv.org"},
			want: Result{Topic: "distributed-systems", Kind: taxonomy.KindPaper, Action: taxonomy.ActionDeepWork, Score: 5},
		},
		{
			name: "research fallback topic",
			in:   Input{Title: "Reliable Event Streaming Whitepaper", URL: "https://arxiv.org/abs/2401.12345", Domain: "arxiv.org"},
			want: Result{Topic: "research", Kind: taxonomy.KindPaper, Action: taxonomy.ActionDeepWork, Score: 5},
		},
		{
			name: "project tool",
			in:   Input{Title: "Sprint board", URL: "https://linear.app/team/issue/ABC-1", Domain: "linear.app"},
			want: Result{Topic: "project-management", Kind: taxonomy.KindTool, Action: taxonomy.ActionBuild, Score: 5},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.in))
		})
	}
}

func TestClassify_PaperTopic(t *testing.T) {
	got := Classify(Input{Title: "LLM research paper", URL: "https://arxiv.org/pdf/2401.00001.pdf", Domain: "arxiv.org"})
	assert.Equal(t, taxonomy.KindPaper, got.Kind)
	assert.Equal(t, "llm", got.Topic)
}

func TestTopic(t *testing.T) {
	c := Default()
	tests := []struct {
		title string
		want  string
	}{
		{"Learning Go.", "go"},
		{"learning go with goroutine examples", "go"},
		{"we go now", "misc"},
		{"fastapi tutorial", "python"},
		{"new figma component kit", "ui-ux"},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Topic(Input{Title: tt.title}))
		})
	}
}

func TestTopicFromHost(t *testing.T) {
	c := Default()
	tests := []struct {
		host string
		want string
		ok   bool
	}{
		{"www.python.org", "python", true},
		{"docs.internal", "docs", true},
		{"blog.example.co", "example", true},
		{"localhost:8080", "", false},
		{"x.com", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			got, ok := c.TopicFromHost(tt.host)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "ui-ux", Slugify(" UI / UX "))
	assert.Equal(t, "misc", Slugify("---"))
	assert.Equal(t, "other", SlugifyOr("Ω", "other"))
}

func TestAnyPathHint(t *testing.T) {
	segs := segments("/a/docs/intro")
	assert.True(t, anyPathHint(segs, []string{"/docs/"}))
	assert.True(t, anyPathHint(segs, []string{"/docs/intro"}))
	assert.False(t, anyPathHint(segs, []string{"/doc"}))
	assert.False(t, anyPathHint(nil, []string{"/docs"}))
}

func TestPathHasHint(t *testing.T) {
	assert.True(t, PathHasHint("/Docs/Intro", []string{"/docs"}))
	assert.False(t, PathHasHint("/titles/release-it-second-edition/", []string{"/release"}))
}
