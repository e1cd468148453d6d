// Package rules holds the heuristic data tables used by the classifiers and
// the effort estimator. The tables ship embedded and can be overridden from a
// TOML file without touching pipeline code.
package rules

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

//go:embed rules.toml
var embedded []byte

// Rules is the full set of heuristic tables.
type Rules struct {
	URLs    URLRules    `toml:"urls"`
	Domains DomainRules `toml:"domains"`
	Paths   PathRules   `toml:"paths"`
	Hints   HintRules   `toml:"hints"`
	Topics  []Topic     `toml:"topics"`
	Quick   QuickRules  `toml:"quick"`
	Effort  EffortRules `toml:"effort"`
}

// URLRules drive normalization and sensitivity detection.
type URLRules struct {
	TrackingParams     []string `toml:"tracking_params"`
	SensitiveHosts     []string `toml:"sensitive_hosts"`
	AuthPathHints      []string `toml:"auth_path_hints"`
	SensitiveQueryKeys []string `toml:"sensitive_query_keys"`
}

// DomainRules lists host bases. Entries match exactly or as a dot suffix.
type DomainRules struct {
	CodeHost              []string `toml:"code_host"`
	CodeHostReservedPaths []string `toml:"code_host_reserved_paths"`
	Video                 []string `toml:"video"`
	Music                 []string `toml:"music"`
	Tool                  []string `toml:"tool"`
	Social                []string `toml:"social"`
	DocsHostOverrides     []string `toml:"docs_host_overrides"`
}

// PathRules are matched at path segment boundaries.
type PathRules struct {
	Docs []string `toml:"docs"`
	Blog []string `toml:"blog"`
}

// HintRules are text needles matched against title and URL blobs.
type HintRules struct {
	Reference     []string `toml:"reference"`
	DeepRead      []string `toml:"deep_read"`
	LowSignal     []string `toml:"low_signal"`
	UIUX          []string `toml:"ui_ux"`
	Paper         []string `toml:"paper"`
	Project       []string `toml:"project"`
	MCP           []string `toml:"mcp"`
	GoContext     []string `toml:"go_context"`
	MusicKeywords []string `toml:"music_keywords"`
	VideoKeywords []string `toml:"video_keywords"`
}

// Topic maps a slug to the needles that select it. Order is significant.
type Topic struct {
	Slug    string   `toml:"slug"`
	Needles []string `toml:"needles"`
}

// QuickRules drive the quick-win mini classifier.
type QuickRules struct {
	LeisureDomains   []string `toml:"leisure_domains"`
	ShoppingDomains  []string `toml:"shopping_domains"`
	LeisureKeywords  []string `toml:"leisure_keywords"`
	ShoppingKeywords []string `toml:"shopping_keywords"`
}

// EffortRules are the effort estimator's phrase tables.
type EffortRules struct {
	DeepContent     []string            `toml:"deep_content"`
	QuickContent    []string            `toml:"quick_content"`
	DeepComplexity  []string            `toml:"deep_complexity"`
	QuickComplexity []string            `toml:"quick_complexity"`
	KindDeep        map[string][]string `toml:"kind_deep"`
	KindQuick       map[string][]string `toml:"kind_quick"`
}

var (
	defaultOnce  sync.Once
	defaultRules *Rules
)

// Default returns the embedded tables. The returned value is shared and must
// not be modified.
func Default() *Rules {
	defaultOnce.Do(func() {
		r, err := parse(embedded, nil)
		if err != nil {
			panic(fmt.Sprintf("rules: embedded tables: %v", err))
		}
		defaultRules = r
	})
	return defaultRules
}

// Load reads a TOML file and layers it over the embedded tables. Tables
// present in the file replace the embedded ones wholesale. An empty path
// returns Default().
func Load(path string) (*Rules, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	return parse(data, Default())
}

func parse(data []byte, base *Rules) (*Rules, error) {
	r := &Rules{}
	if base != nil {
		*r = base.clone()
	}
	if err := toml.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	return r, nil
}

// clone copies every table so that decoding an overlay into the result
// never writes through to the receiver's backing arrays.
func (r *Rules) clone() Rules {
	out := *r

	out.URLs.TrackingParams = slices.Clone(r.URLs.TrackingParams)
	out.URLs.SensitiveHosts = slices.Clone(r.URLs.SensitiveHosts)
	out.URLs.AuthPathHints = slices.Clone(r.URLs.AuthPathHints)
	out.URLs.SensitiveQueryKeys = slices.Clone(r.URLs.SensitiveQueryKeys)

	out.Domains.CodeHost = slices.Clone(r.Domains.CodeHost)
	out.Domains.CodeHostReservedPaths = slices.Clone(r.Domains.CodeHostReservedPaths)
	out.Domains.Video = slices.Clone(r.Domains.Video)
	out.Domains.Music = slices.Clone(r.Domains.Music)
	out.Domains.Tool = slices.Clone(r.Domains.Tool)
	out.Domains.Social = slices.Clone(r.Domains.Social)
	out.Domains.DocsHostOverrides = slices.Clone(r.Domains.DocsHostOverrides)

	out.Paths.Docs = slices.Clone(r.Paths.Docs)
	out.Paths.Blog = slices.Clone(r.Paths.Blog)

	out.Hints.Reference = slices.Clone(r.Hints.Reference)
	out.Hints.DeepRead = slices.Clone(r.Hints.DeepRead)
	out.Hints.LowSignal = slices.Clone(r.Hints.LowSignal)
	out.Hints.UIUX = slices.Clone(r.Hints.UIUX)
	out.Hints.Paper = slices.Clone(r.Hints.Paper)
	out.Hints.Project = slices.Clone(r.Hints.Project)
	out.Hints.MCP = slices.Clone(r.Hints.MCP)
	out.Hints.GoContext = slices.Clone(r.Hints.GoContext)
	out.Hints.MusicKeywords = slices.Clone(r.Hints.MusicKeywords)
	out.Hints.VideoKeywords = slices.Clone(r.Hints.VideoKeywords)

	if r.Topics != nil {
		out.Topics = make([]Topic, len(r.Topics))
		for i, t := range r.Topics {
			out.Topics[i] = Topic{Slug: t.Slug, Needles: slices.Clone(t.Needles)}
		}
	}

	out.Quick.LeisureDomains = slices.Clone(r.Quick.LeisureDomains)
	out.Quick.ShoppingDomains = slices.Clone(r.Quick.ShoppingDomains)
	out.Quick.LeisureKeywords = slices.Clone(r.Quick.LeisureKeywords)
	out.Quick.ShoppingKeywords = slices.Clone(r.Quick.ShoppingKeywords)

	out.Effort.DeepContent = slices.Clone(r.Effort.DeepContent)
	out.Effort.QuickContent = slices.Clone(r.Effort.QuickContent)
	out.Effort.DeepComplexity = slices.Clone(r.Effort.DeepComplexity)
	out.Effort.QuickComplexity = slices.Clone(r.Effort.QuickComplexity)
	out.Effort.KindDeep = cloneMap(r.Effort.KindDeep)
	out.Effort.KindQuick = cloneMap(r.Effort.KindQuick)
	return out
}

func cloneMap(m map[string][]string) map[string][]string {
	if m == nil {
		return nil
	}
	out := make(map[string][]string, len(m))
	for k, v := range m {
		out[k] = slices.Clone(v)
	}
	return out
}
