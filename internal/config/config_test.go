package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/tabdigest/internal/errors"
	"github.com/hpungsan/tabdigest/internal/rules"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "3.2.4.1", cfg.RendererVersion)
	assert.Equal(t, 5, cfg.HighPriorityLimit)
	assert.Equal(t, 15, cfg.QuickWinsMaxItems)
	assert.Equal(t, GroupingAuto, cfg.DocsOneOffGroupingMode)
	assert.Contains(t, cfg.MusicDomains, "open.spotify.com")
	assert.True(t, cfg.CanonicalTitleHostRules["github.com"].PreferRepoSlug)
	assert.NoError(t, cfg.Validate())
}

func TestDefaultConfigFor_SeedsFromRules(t *testing.T) {
	r := *rules.Default()
	r.Domains.Video = []string{"peertube.example"}
	r.Paths.Docs = []string{"/manual"}
	r.URLs.SensitiveQueryKeys = []string{"session"}

	cfg := DefaultConfigFor(&r)
	assert.Equal(t, []string{"peertube.example"}, cfg.VideoDomains)
	assert.Equal(t, []string{"/manual"}, cfg.DocsPathHints)
	assert.Equal(t, []string{"session"}, cfg.AuthContainsHintsSoft)
	assert.Equal(t, DefaultConfig().CodeHostDomains, cfg.CodeHostDomains)

	cfg.VideoDomains[0] = "changed"
	assert.Equal(t, "peertube.example", r.Domains.Video[0], "config lists are copies")

	assert.Equal(t, DefaultConfig(), DefaultConfigFor(nil))
}

func TestLoad_DefaultWhenMissing(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.TitleMaxLen != DefaultConfig().TitleMaxLen {
		t.Fatalf("TitleMaxLen = %d, want %d", cfg.TitleMaxLen, DefaultConfig().TitleMaxLen)
	}
}

func TestLoad_OverridesFromJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.json"), `{"titleMaxLen": 50, "render": {"badges": {"maxPerBullet": 1}}}`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.TitleMaxLen)
	assert.Equal(t, 1, cfg.Render.Badges.MaxPerBullet)
	// Sibling keys of a nested object keep their defaults.
	assert.True(t, cfg.Render.Badges.Enabled)
	assert.True(t, cfg.Render.Badges.IncludeTopicInHighPriority)
}

func TestLoad_OverridesFromTOML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.toml"), `
highPriorityLimit = 2
docsOneOffGroupingMode = "energy"
chatDomains = ["chat.example.com"]

[render.ordering.domains]
pinned = ["go.dev"]
`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.HighPriorityLimit)
	assert.Equal(t, GroupingEnergy, cfg.DocsOneOffGroupingMode)
	assert.Equal(t, []string{"chat.example.com"}, cfg.ChatDomains)
	assert.Equal(t, []string{"go.dev"}, cfg.Render.Ordering.Domains.Pinned)
}

func TestLoad_OverridesFromYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.yaml"), `
highPriorityLimit: 4
render:
  badges:
    enabled: false
`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.HighPriorityLimit)
	assert.False(t, cfg.Render.Badges.Enabled)
	assert.True(t, cfg.Render.Badges.IncludeTopicInHighPriority)
}

func TestLoadFile_YML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "override.yml")
	writeFile(t, path, "highPriorityLimit: 1\n")

	cfg, err := LoadFile(DefaultConfig(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.HighPriorityLimit)
}

func TestLoad_InvalidFiles(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"invalid json", "config.json", `{not json}`},
		{"invalid toml", "config.toml", `highPriorityLimit = = 2`},
		{"invalid yaml", "config.yaml", "highPriorityLimit: [1"},
		{"wrong type", "config.json", `{"titleMaxLen": "long"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, filepath.Join(dir, tt.file), tt.content)

			_, err := Load(dir)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
		})
	}
}

func TestLoadWithRepo(t *testing.T) {
	globalDir := t.TempDir()
	repoRoot := t.TempDir()
	nested := filepath.Join(repoRoot, "notes", "2026")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	writeFile(t, filepath.Join(globalDir, "config.json"), `{"titleMaxLen": 80, "highPriorityLimit": 3, "disabledTools": ["render_payload"]}`)
	writeFile(t, filepath.Join(repoRoot, DirName, "config.json"), `{"highPriorityLimit": 1}`)

	cfg, err := LoadWithRepo(globalDir, nested)
	require.NoError(t, err)

	assert.Equal(t, 80, cfg.TitleMaxLen, "global value kept")
	assert.Equal(t, 1, cfg.HighPriorityLimit, "repo overrides global")
	assert.Equal(t, []string{"render_payload"}, cfg.DisabledTools)
}

func TestLoadWithRepo_NeitherPresent(t *testing.T) {
	cfg, err := LoadWithRepo(t.TempDir(), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadLayered_KeepsBase(t *testing.T) {
	globalDir := t.TempDir()
	writeFile(t, filepath.Join(globalDir, "config.json"), `{"titleMaxLen": 80}`)

	base := DefaultConfig()
	base.MusicDomains = []string{"bandcamp.com"}

	cfg, err := LoadLayered(base, globalDir, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 80, cfg.TitleMaxLen)
	assert.Equal(t, []string{"bandcamp.com"}, cfg.MusicDomains)
	assert.Equal(t, 96, base.TitleMaxLen, "base must not be mutated")
}

func TestFindRepoConfig(t *testing.T) {
	root := t.TempDir()
	child := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(child, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	assert.Equal(t, "", FindRepoConfig(child))

	path := filepath.Join(root, DirName, "config.toml")
	writeFile(t, path, `titleMaxLen = 10`)
	assert.Equal(t, path, FindRepoConfig(child))
	assert.Equal(t, "", FindRepoConfig(""))
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "override.json")
	writeFile(t, path, `{"includeQuickWins": false}`)

	cfg, err := LoadFile(DefaultConfig(), path)
	require.NoError(t, err)
	assert.False(t, cfg.IncludeQuickWins)

	_, err = LoadFile(DefaultConfig(), filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestMerge(t *testing.T) {
	base := DefaultConfig()

	t.Run("empty overlay copies", func(t *testing.T) {
		out, err := Merge(base, nil)
		require.NoError(t, err)
		assert.Equal(t, base, out)
		assert.NotSame(t, base, out)
	})

	t.Run("lists replaced", func(t *testing.T) {
		out, err := Merge(base, []byte(`{"skipPrefixes": ["about:"]}`))
		require.NoError(t, err)
		assert.Equal(t, []string{"about:"}, out.SkipPrefixes)
		assert.Len(t, base.SkipPrefixes, 6, "base untouched")
	})

	t.Run("null overlay", func(t *testing.T) {
		out, err := Merge(base, []byte(" null "))
		require.NoError(t, err)
		assert.Equal(t, base, out)
	})

	t.Run("host rules merge by key", func(t *testing.T) {
		out, err := Merge(base, []byte(`{"canonicalTitleHostRules": {"vimeo.com": {"stripSuffixes": [" on Vimeo"]}}}`))
		require.NoError(t, err)
		assert.Contains(t, out.CanonicalTitleHostRules, "github.com")
		assert.Equal(t, []string{" on Vimeo"}, out.CanonicalTitleHostRules["vimeo.com"].StripSuffixes)
	})

	t.Run("malformed overlay", func(t *testing.T) {
		_, err := Merge(base, []byte(`[1,2]`))
		assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative limit", func(c *Config) { c.HighPriorityLimit = -1 }},
		{"negative quick cap", func(c *Config) { c.QuickWinsMaxItems = -5 }},
		{"confidence out of range", func(c *Config) { c.HighPriorityMinIntentConfidence = 1.5 }},
		{"unknown grouping mode", func(c *Config) { c.DocsOneOffGroupingMode = "size" }},
		{"bad auth regex", func(c *Config) { c.AuthPathRegex = []string{"(unclosed"} }},
		{"bad prefix regex", func(c *Config) { c.CanonicalTitleStripPrefixesRegex = []string{"[a-"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
		})
	}
}
