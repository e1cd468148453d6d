// Package classify is the rule-based tab classifier. It maps a title and URL
// to a kind, action, topic and 1..5 score using the ordered heuristics in the
// rules tables.
package classify

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/hpungsan/tabdigest/internal/rules"
	"github.com/hpungsan/tabdigest/internal/taxonomy"
	"github.com/hpungsan/tabdigest/internal/urlnorm"
)

// Input is what the classifier looks at. URL should already be normalized.
type Input struct {
	Title  string
	URL    string
	Domain string
}

// Result is a local classification.
type Result struct {
	Topic  string          `json:"topic"`
	Kind   taxonomy.Kind   `json:"kind"`
	Action taxonomy.Action `json:"action"`
	Score  int             `json:"score"`
}

var commonTLDs = map[string]bool{
	"com": true, "org": true, "net": true, "io": true,
	"ai": true, "dev": true, "app": true, "co": true,
}

var goWord = regexp.MustCompile(`\bgo\b`)

// Classifier applies one rules table. It is safe for concurrent use.
type Classifier struct {
	r         *rules.Rules
	reserved  map[string]bool
	docHosts  map[string]bool
	reference []*regexp.Regexp
	mcp       []*regexp.Regexp
}

// New compiles a classifier for r.
func New(r *rules.Rules) *Classifier {
	c := &Classifier{
		r:         r,
		reserved:  make(map[string]bool, len(r.Domains.CodeHostReservedPaths)),
		docHosts:  make(map[string]bool, len(r.Domains.DocsHostOverrides)),
		reference: wordPatterns(r.Hints.Reference),
		mcp:       wordPatterns(r.Hints.MCP),
	}
	for _, p := range r.Domains.CodeHostReservedPaths {
		c.reserved[strings.ToLower(p)] = true
	}
	for _, h := range r.Domains.DocsHostOverrides {
		c.docHosts[strings.ToLower(h)] = true
	}
	return c
}

var defaultClassifier = New(rules.Default())

// Default returns the classifier built on the embedded rules.
func Default() *Classifier { return defaultClassifier }

// Classify runs the default classifier.
func Classify(in Input) Result { return defaultClassifier.Classify(in) }

// Classify infers kind, action, score and topic for one item.
func (c *Classifier) Classify(in Input) Result {
	kind := c.Kind(in)
	action := c.Action(kind, in)
	return Result{
		Topic:  c.Topic(in),
		Kind:   kind,
		Action: action,
		Score:  c.Score(kind, action, in),
	}
}

// Kind applies the ordered kind rules. The first match wins.
func (c *Classifier) Kind(in Input) taxonomy.Kind {
	u, err := url.Parse(in.URL)
	if err != nil {
		return taxonomy.KindMisc
	}
	host := strings.ToLower(u.Hostname())
	path := strings.ToLower(u.Path)
	blob := fold(host + " " + path + " " + in.Title)
	segs := segments(path)

	switch {
	case strings.HasSuffix(path, ".pdf") || containsAny(blob, c.r.Hints.Paper):
		return taxonomy.KindPaper
	case anyPathHint(segs, c.r.Paths.Blog):
		return taxonomy.KindArticle
	case urlnorm.HostMatchesAny(host, c.r.Domains.Music) || containsAny(blob, c.r.Hints.MusicKeywords):
		return taxonomy.KindMusic
	case urlnorm.HostMatchesAny(host, c.r.Domains.Video) || containsAny(blob, c.r.Hints.VideoKeywords):
		return taxonomy.KindVideo
	case c.docHosts[host] || strings.HasPrefix(host, "docs.") || anyPathHint(segs, c.r.Paths.Docs):
		return taxonomy.KindDocs
	case urlnorm.HostMatchesAny(host, c.r.Domains.CodeHost) && !c.reserved[first(segs)]:
		return taxonomy.KindRepo
	case containsAny(blob, c.r.Hints.Project) || matchAny(blob, c.mcp) ||
		urlnorm.HostMatchesAny(host, c.r.Domains.Tool):
		return taxonomy.KindTool
	case matchAny(blob, c.reference):
		return taxonomy.KindDocs
	}
	return taxonomy.KindArticle
}

// Action derives the suggested action for an item of the given kind.
func (c *Classifier) Action(kind taxonomy.Kind, in Input) taxonomy.Action {
	blob := fold(in.Title + " " + in.URL)
	switch kind {
	case taxonomy.KindVideo, taxonomy.KindMusic:
		return taxonomy.ActionWatch
	case taxonomy.KindRepo:
		if strings.Contains(blob, "/issues/") || strings.Contains(blob, "/pull/") || strings.Contains(blob, "/pulls/") {
			return taxonomy.ActionTriage
		}
		return taxonomy.ActionBuild
	case taxonomy.KindTool:
		if containsAny(blob, c.r.Hints.Project) {
			return taxonomy.ActionBuild
		}
		return taxonomy.ActionTriage
	case taxonomy.KindDocs, taxonomy.KindPaper, taxonomy.KindArticle:
		if kind == taxonomy.KindPaper && containsAny(blob, c.r.Hints.DeepRead) {
			return taxonomy.ActionDeepWork
		}
		if matchAny(blob, c.reference) {
			return taxonomy.ActionReference
		}
		return taxonomy.ActionRead
	}
	return taxonomy.ActionTriage
}

var baseScores = map[taxonomy.Kind]int{
	taxonomy.KindPaper:   5,
	taxonomy.KindDocs:    4,
	taxonomy.KindRepo:    4,
	taxonomy.KindArticle: 3,
	taxonomy.KindTool:    3,
	taxonomy.KindVideo:   3,
	taxonomy.KindMusic:   3,
	taxonomy.KindMisc:    2,
}

// Score rates an item 1..5.
func (c *Classifier) Score(kind taxonomy.Kind, action taxonomy.Action, in Input) int {
	score, ok := baseScores[kind]
	if !ok {
		score = 3
	}
	switch action {
	case taxonomy.ActionBuild:
		score++
	case taxonomy.ActionWatch:
		score--
	}

	blob := fold(in.Title + " " + in.URL)
	host := ""
	if u, err := url.Parse(in.URL); err == nil {
		host = strings.ToLower(u.Hostname())
	}
	if urlnorm.HostMatchesAny(host, c.r.Domains.Social) {
		score--
	}
	deep := containsAny(blob, c.r.Hints.DeepRead)
	if deep {
		score++
	}
	if containsAny(blob, c.r.Hints.UIUX) {
		score++
	}
	if containsAny(blob, c.r.Hints.Project) {
		score++
	}
	if containsAny(blob, c.r.Hints.LowSignal) {
		score--
	}
	if kind == taxonomy.KindPaper && deep && score < 5 {
		score = 5
	}
	return clamp(score, 1, 5)
}

// Topic picks a topic slug: keyword table, then hint families, then the
// host stem, then "misc".
func (c *Classifier) Topic(in Input) string {
	if t, ok := c.topicFromKeywords(in.Title + " " + in.URL); ok {
		return Slugify(t)
	}
	if t, ok := c.TopicFromHost(in.Domain); ok {
		return t
	}
	return "misc"
}

func (c *Classifier) topicFromKeywords(text string) (string, bool) {
	blob := fold(text)
	for _, tp := range c.r.Topics {
		for _, needle := range tp.Needles {
			if c.needleInBlob(tp.Slug, needle, blob) {
				return tp.Slug, true
			}
		}
	}
	switch {
	case containsAny(blob, c.r.Hints.UIUX):
		return "ui-ux", true
	case containsAny(blob, c.r.Hints.Project):
		return "project-management", true
	case containsAny(blob, c.r.Hints.Paper):
		return "research", true
	}
	return "", false
}

// needleInBlob is a substring test, except that the bare "go" needle also
// needs a whole-word hit plus a Go context hint.
func (c *Classifier) needleInBlob(topic, needle, blob string) bool {
	if needle == "" {
		return false
	}
	if topic == "go" && needle == "go" {
		if !goWord.MatchString(blob) {
			return false
		}
		return containsAny(blob, c.r.Hints.GoContext)
	}
	return strings.Contains(blob, needle)
}

// TopicFromHost derives a topic from the registrable label of host. Social
// hosts and single-label hosts yield nothing.
func (c *Classifier) TopicFromHost(host string) (string, bool) {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" || urlnorm.HostMatchesAny(host, c.r.Domains.Social) {
		return "", false
	}
	host, _, _ = strings.Cut(host, ":")
	var parts []string
	for _, p := range strings.Split(host, ".") {
		if p != "" && p != "www" {
			parts = append(parts, p)
		}
	}
	if len(parts) < 2 {
		return "", false
	}
	stem := parts[0]
	if commonTLDs[parts[len(parts)-1]] {
		stem = parts[len(parts)-2]
	}
	return Slugify(stem), true
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lower-kebab-cases s; unslugifiable input yields "misc".
func Slugify(s string) string {
	return SlugifyOr(s, "misc")
}

// SlugifyOr is Slugify with a caller-chosen fallback.
func SlugifyOr(s, fallback string) string {
	slug := nonSlug.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return fallback
	}
	return slug
}

// fold lower-cases and NFC-normalizes text so composed and decomposed
// Cyrillic keywords compare equal.
func fold(s string) string {
	return norm.NFC.String(strings.ToLower(s))
}

func containsAny(blob string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(blob, n) {
			return true
		}
	}
	return false
}

func wordPatterns(words []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		out = append(out, regexp.MustCompile(`\b`+regexp.QuoteMeta(w)+`\b`))
	}
	return out
}

func matchAny(blob string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(blob) {
			return true
		}
	}
	return false
}

func segments(path string) []string {
	var out []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func first(segs []string) string {
	if len(segs) == 0 {
		return ""
	}
	return segs[0]
}

// PathHasHint reports whether path contains any hint at segment boundaries.
func PathHasHint(path string, hints []string) bool {
	return anyPathHint(segments(strings.ToLower(path)), hints)
}

// anyPathHint reports whether any hint's segments occur as a consecutive run
// of path segments, so "/release" does not match "/release-it-second-edition".
func anyPathHint(segs []string, hints []string) bool {
	for _, h := range hints {
		hs := segments(strings.ToLower(h))
		if len(hs) == 0 || len(hs) > len(segs) {
			continue
		}
		for i := 0; i+len(hs) <= len(segs); i++ {
			match := true
			for j := range hs {
				if segs[i+j] != hs[j] {
					match = false
					break
				}
			}
			if match {
				return true
			}
		}
	}
	return false
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
