// Package config holds the renderer configuration bundle and the runtime
// settings read from the environment.
package config

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/hpungsan/tabdigest/internal/errors"
	"github.com/hpungsan/tabdigest/internal/rules"
)

// DirName is the per-user and per-repo configuration directory name.
const DirName = ".tabdigest"

// One-off grouping modes for the DOCS singleton tail.
const (
	GroupingAuto   = "auto"
	GroupingKind   = "kind"
	GroupingEnergy = "energy"
	GroupingDomain = "domain"
)

// Config is the renderer configuration bundle. JSON keys match the payload
// "cfg" object so payload-level overrides decode unchanged.
type Config struct {
	RendererVersion      string   `json:"rendererVersion"`
	TitleMaxLen          int      `json:"titleMaxLen"`
	StartHereTitleMaxLen int      `json:"startHereTitleMaxLen"`
	StripWWWForGrouping  bool     `json:"stripWwwForGrouping"`
	IncludeFocusLine     bool     `json:"includeFocusLine"`
	FrontmatterInclude   []string `json:"frontmatterInclude"`

	HighPriorityLimit               int      `json:"highPriorityLimit"`
	HighPriorityMinScore            float64  `json:"highPriorityMinScore"`
	HighPriorityMinIntentConfidence float64  `json:"highPriorityMinIntentConfidence"`
	HighPriorityEligibleCategories  []string `json:"highPriorityEligibleCategories"`

	IncludeQuickWins              bool     `json:"includeQuickWins"`
	IncludeEmptySections          bool     `json:"includeEmptySections"`
	QuickWinsMaxItems             int      `json:"quickWinsMaxItems"`
	QuickWinsOverflowToBacklog    bool     `json:"quickWinsOverflowToBacklog"`
	QuickWinsEnableMiniCategories bool     `json:"quickWinsEnableMiniCategories"`
	QuickWinsMiniCategories       []string `json:"quickWinsMiniCategories"`
	QuickWinsLowEffortReasons     []string `json:"quickWinsLowEffortReasons"`
	QuickWinsDomainSuffixMatching bool     `json:"quickWinsDomainSuffixMatching"`

	SkipPrefixes    []string `json:"skipPrefixes"`
	ChatDomains     []string `json:"chatDomains"`
	CodeHostDomains []string `json:"codeHostDomains"`
	VideoDomains    []string `json:"videoDomains"`
	MusicDomains    []string `json:"musicDomains"`
	ConsoleDomains  []string `json:"consoleDomains"`

	ProjectDomains              []string `json:"projectDomains"`
	ProjectNotionDomains        []string `json:"projectNotionDomains"`
	ProjectJiraDomains          []string `json:"projectJiraDomains"`
	ProjectNotionHints          []string `json:"projectNotionHints"`
	ProjectTitleHints           []string `json:"projectTitleHints"`
	ProjectJiraPathHints        []string `json:"projectJiraPathHints"`
	ProjectFigmaPathHints       []string `json:"projectFigmaPathHints"`
	ProjectNotionRequireHint    bool     `json:"projectNotionRequireHint"`
	ProjectDomainSuffixMatching bool     `json:"projectDomainSuffixMatching"`

	DocsDomainPrefix string   `json:"docsDomainPrefix"`
	DocsPathHints    []string `json:"docsPathHints"`
	BlogPathHints    []string `json:"blogPathHints"`

	AuthPathRegex                 []string `json:"authPathRegex"`
	AuthContainsHintsSoft         []string `json:"authContainsHintsSoft"`
	AdminAuthRequiresStrongSignal bool     `json:"adminAuthRequiresStrongSignal"`

	EmptyBucketMessage string `json:"emptyBucketMessage"`

	CanonicalTitleEnabled            bool                `json:"canonicalTitleEnabled"`
	CanonicalTitleMaxLen             int                 `json:"canonicalTitleMaxLen"`
	CanonicalTitleStripSuffixes      []string            `json:"canonicalTitleStripSuffixes"`
	CanonicalTitleStripPrefixesRegex []string            `json:"canonicalTitleStripPrefixesRegex"`
	CanonicalTitleHostRules          map[string]HostRule `json:"canonicalTitleHostRules"`

	DocsOmitDomInBullets               bool   `json:"docsOmitDomInBullets"`
	DocsLargeSectionItemsGte           int    `json:"docsLargeSectionItemsGte"`
	DocsLargeSectionDomainsGte         int    `json:"docsLargeSectionDomainsGte"`
	DocsMultiDomainMinItems            int    `json:"docsMultiDomainMinItems"`
	DocsOneOffGroupByKindWhenDomainsGt int    `json:"docsOneOffGroupByKindWhenDomainsGt"`
	DocsOneOffGroupingMode             string `json:"docsOneOffGroupingMode"`

	Render RenderOptions `json:"render"`

	// DisabledTools lists MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabledTools,omitempty"`
}

// HostRule tweaks canonical titles for one host.
type HostRule struct {
	StripSuffixes  []string `json:"stripSuffixes,omitempty"`
	PreferRepoSlug bool     `json:"preferRepoSlug,omitempty"`
}

// RenderOptions groups the nested "render" block.
type RenderOptions struct {
	Badges   BadgeOptions    `json:"badges"`
	Ordering OrderingOptions `json:"ordering"`
}

// BadgeOptions controls the second bullet line.
type BadgeOptions struct {
	Enabled                    bool `json:"enabled"`
	MaxPerBullet               int  `json:"maxPerBullet"`
	IncludeTopicInHighPriority bool `json:"includeTopicInHighPriority"`
	IncludeQuickWinsWhy        bool `json:"includeQuickWinsWhy"`
}

// OrderingOptions controls group ordering.
type OrderingOptions struct {
	Domains DomainOrdering `json:"domains"`
}

// DomainOrdering pins domains ahead of count ordering.
type DomainOrdering struct {
	Pinned []string `json:"pinned"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return DefaultConfigFor(rules.Default())
}

// DefaultConfigFor returns the default configuration with its domain and
// path lists seeded from r. Nil means the embedded tables.
func DefaultConfigFor(r *rules.Rules) *Config {
	if r == nil {
		r = rules.Default()
	}
	return &Config{
		RendererVersion:      "3.2.4.1",
		TitleMaxLen:          96,
		StartHereTitleMaxLen: 72,
		StripWWWForGrouping:  true,
		IncludeFocusLine:     true,
		FrontmatterInclude: []string{
			"dump_date", "tab_count", "top_domains", "top_kinds", "renderer", "source", "deduped",
		},

		HighPriorityLimit:               5,
		HighPriorityMinScore:            4,
		HighPriorityMinIntentConfidence: 0.70,
		HighPriorityEligibleCategories:  []string{"docs_site", "blog", "code_host"},

		IncludeQuickWins:              true,
		QuickWinsMaxItems:             15,
		QuickWinsOverflowToBacklog:    true,
		QuickWinsEnableMiniCategories: true,
		QuickWinsMiniCategories:       []string{"leisure", "shopping"},
		QuickWinsLowEffortReasons: []string{
			"leisure_domain", "leisure_keyword", "shopping_domain", "shopping_keyword",
		},
		QuickWinsDomainSuffixMatching: true,

		SkipPrefixes: []string{
			"chrome://", "chrome-extension://", "about:", "file://", "safari://", "safari-web-extension://",
		},
		ChatDomains:     []string{"chatgpt.com", "gemini.google.com", "claude.ai", "copilot.microsoft.com"},
		CodeHostDomains: clone(r.Domains.CodeHost),
		VideoDomains:    clone(r.Domains.Video),
		MusicDomains:    clone(r.Domains.Music),
		ConsoleDomains:  []string{"console.aws.amazon.com", "console.cloud.google.com", "portal.azure.com"},

		ProjectDomains: []string{
			"notion.so", "notion.site", "trello.com", "atlassian.net", "jira.atlassian.com",
			"drive.google.com", "figma.com",
		},
		ProjectNotionDomains: []string{"notion.so", "notion.site"},
		ProjectJiraDomains:   []string{"atlassian.net", "jira.atlassian.com"},
		ProjectNotionHints: []string{
			"project", "roadmap", "sprint", "backlog", "kanban", "task", "milestone", "okr", "plan", "planning",
		},
		ProjectTitleHints: []string{
			"project", "roadmap", "sprint", "backlog", "kanban", "task", "milestone", "okr", "plan", "planning", "board",
		},
		ProjectJiraPathHints:        []string{"/jira/software/", "/secure/rapidboard.jspa", "/boards/", "/browse/"},
		ProjectFigmaPathHints:       []string{"/file/", "/design/", "/proto/", "/board/"},
		ProjectNotionRequireHint:    true,
		ProjectDomainSuffixMatching: true,

		DocsDomainPrefix: "docs.",
		DocsPathHints:    clone(r.Paths.Docs),
		BlogPathHints:    clone(r.Paths.Blog),

		AuthPathRegex: []string{
			`(?i)(^|/)(login|signin|sign-in|sso|oauth)(/|$)`,
			`(?i)(^|/)(api-keys|credentials)(/|$)`,
		},
		AuthContainsHintsSoft:         clone(r.URLs.SensitiveQueryKeys),
		AdminAuthRequiresStrongSignal: true,

		EmptyBucketMessage: "_(empty)_",

		CanonicalTitleEnabled: true,
		CanonicalTitleMaxLen:  88,
		CanonicalTitleStripSuffixes: []string{
			" - YouTube", " | YouTube", " · GitHub", " - GitHub", " | GitHub",
		},
		CanonicalTitleStripPrefixesRegex: []string{`^\(\d+\)\s+`},
		CanonicalTitleHostRules: map[string]HostRule{
			"youtube.com": {StripSuffixes: []string{" - YouTube", " | YouTube"}},
			"github.com":  {PreferRepoSlug: true},
		},

		DocsOmitDomInBullets:               true,
		DocsLargeSectionItemsGte:           20,
		DocsLargeSectionDomainsGte:         10,
		DocsMultiDomainMinItems:            2,
		DocsOneOffGroupByKindWhenDomainsGt: 8,
		DocsOneOffGroupingMode:             GroupingAuto,

		Render: RenderOptions{
			Badges: BadgeOptions{
				Enabled:                    true,
				MaxPerBullet:               3,
				IncludeTopicInHighPriority: true,
			},
		},
	}
}

// Load layers baseDir/config.{json,toml} over the defaults.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.tabdigest.
func Load(baseDir string) (*Config, error) {
	overlay, err := loadFileRaw(configFileIn(baseDir))
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), overlay)
}

// LoadWithRepo applies defaults, then the global config in globalDir, then
// the nearest .tabdigest config found by walking upward from startDir.
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	return LoadLayered(DefaultConfig(), globalDir, startDir)
}

// LoadLayered is LoadWithRepo over an explicit base.
func LoadLayered(base *Config, globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(configFileIn(globalDir))
	if err != nil {
		return nil, err
	}
	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	cfg, err := Merge(base, global)
	if err != nil {
		return nil, err
	}
	return Merge(cfg, repo)
}

// LoadFile layers one explicit config file (JSON or TOML) over base.
func LoadFile(base *Config, path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}
	overlay, err := loadFileRaw(path)
	if err != nil {
		return nil, err
	}
	return Merge(base, overlay)
}

// FindRepoConfig walks upward from startDir to find the nearest
// .tabdigest/config.json, config.toml or config.yaml. Returns "" if none is found.
func FindRepoConfig(startDir string) string {
	if startDir == "" {
		return ""
	}
	dir := startDir
	for {
		if path := configFileIn(filepath.Join(dir, DirName)); path != "" {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// configFileIn returns the config file in dir, preferring JSON, or "".
func configFileIn(dir string) string {
	if dir == "" {
		return ""
	}
	for _, name := range []string{"config.json", "config.toml", "config.yaml"} {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// loadFileRaw reads a config file as a JSON overlay. TOML and YAML files
// are converted so every format shares Merge semantics. A missing file yields nil.
func loadFileRaw(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		var doc map[string]any
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, errors.NewInvalidConfig(fmt.Sprintf("parse %s: %v", filepath.Base(path), err))
		}
		return json.Marshal(doc)
	case ".yaml", ".yml":
		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, errors.NewInvalidConfig(fmt.Sprintf("parse %s: %v", filepath.Base(path), err))
		}
		return json.Marshal(doc)
	}
	if !json.Valid(data) {
		return nil, errors.NewInvalidConfig(fmt.Sprintf("parse %s: invalid JSON", filepath.Base(path)))
	}
	return data, nil
}

// Merge returns a copy of base with the keys present in the JSON overlay
// applied. Nested objects merge field by field; lists are replaced.
// An empty or null overlay returns a copy of base.
func Merge(base *Config, overlay []byte) (*Config, error) {
	out, err := base.Clone()
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(overlay)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return out, nil
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return nil, errors.NewInvalidConfig(fmt.Sprintf("merge config: %v", err))
	}
	return out, nil
}

// Clone deep-copies c.
func (c *Config) Clone() (*Config, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("clone config: %w", err))
	}
	out := &Config{}
	if err := json.Unmarshal(data, out); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("clone config: %w", err))
	}
	return out, nil
}

var groupingModes = map[string]bool{
	GroupingAuto: true, GroupingKind: true, GroupingEnergy: true, GroupingDomain: true,
}

// Validate rejects values the renderer cannot honor.
func (c *Config) Validate() error {
	limits := map[string]int{
		"titleMaxLen":                        c.TitleMaxLen,
		"startHereTitleMaxLen":               c.StartHereTitleMaxLen,
		"highPriorityLimit":                  c.HighPriorityLimit,
		"quickWinsMaxItems":                  c.QuickWinsMaxItems,
		"canonicalTitleMaxLen":               c.CanonicalTitleMaxLen,
		"docsLargeSectionItemsGte":           c.DocsLargeSectionItemsGte,
		"docsLargeSectionDomainsGte":         c.DocsLargeSectionDomainsGte,
		"docsMultiDomainMinItems":            c.DocsMultiDomainMinItems,
		"docsOneOffGroupByKindWhenDomainsGt": c.DocsOneOffGroupByKindWhenDomainsGt,
		"render.badges.maxPerBullet":         c.Render.Badges.MaxPerBullet,
	}
	for _, key := range sortedKeys(limits) {
		if limits[key] < 0 {
			return errors.NewInvalidConfig(fmt.Sprintf("%s must be >= 0, got %d", key, limits[key]))
		}
	}
	if c.HighPriorityMinIntentConfidence < 0 || c.HighPriorityMinIntentConfidence > 1 {
		return errors.NewInvalidConfig("highPriorityMinIntentConfidence must be between 0 and 1")
	}
	if !groupingModes[c.DocsOneOffGroupingMode] {
		return errors.NewInvalidConfig(fmt.Sprintf("docsOneOffGroupingMode %q is not one of auto, kind, energy, domain", c.DocsOneOffGroupingMode))
	}
	for _, group := range [][]string{c.AuthPathRegex, c.CanonicalTitleStripPrefixesRegex} {
		for _, expr := range group {
			if _, err := regexp.Compile(expr); err != nil {
				return errors.NewInvalidConfig(fmt.Sprintf("invalid regex %q: %v", expr, err))
			}
		}
	}
	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func clone(in []string) []string {
	return append([]string(nil), in...)
}
