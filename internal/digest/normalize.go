package digest

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/hpungsan/tabdigest/internal/config"
	"github.com/hpungsan/tabdigest/internal/taxonomy"
	"github.com/hpungsan/tabdigest/internal/urlnorm"
)

const unknownDomain = "unknown"

// Item is a normalized payload item. It is created once per run and only
// gains its bucket and quick-win fields afterwards.
type Item struct {
	URL            string                  `json:"url"`
	Key            string                  `json:"norm_url"`
	Title          string                  `json:"title"`
	CanonicalTitle string                  `json:"canonical_title"`
	TitleRender    string                  `json:"title_render"`
	Domain         string                  `json:"domain"`
	DomainRaw      string                  `json:"domain_raw"`
	DomainCategory taxonomy.DomainCategory `json:"domain_category"`
	Path           string                  `json:"path"`
	Browser        string                  `json:"browser"`
	Kind           taxonomy.Kind           `json:"kind"`
	ProvidedKind   string                  `json:"provided_kind,omitempty"`
	Action         taxonomy.Action         `json:"action,omitempty"`
	Confidence     float64                 `json:"confidence"`
	Topics         []Topic                 `json:"topics,omitempty"`
	Effort         taxonomy.Effort         `json:"effort,omitempty"`
	Flags          Flags                   `json:"flags"`
	Bucket         taxonomy.Bucket         `json:"bucket"`
	QuickCat       string                  `json:"quick_cat,omitempty"`
	QuickWhy       string                  `json:"quick_why,omitempty"`
	HighScore      int                     `json:"high_score,omitempty"`
}

// displayTitle is the title used for sorting and bullets.
func (it *Item) displayTitle() string {
	switch {
	case it.CanonicalTitle != "":
		return it.CanonicalTitle
	case it.TitleRender != "":
		return it.TitleRender
	}
	return it.Title
}

// TopicPrimary returns the highest-confidence topic, or "other".
func (it *Item) TopicPrimary() Topic {
	best := Topic{Slug: "other"}
	found := false
	for _, t := range it.Topics {
		if !found || t.Confidence > best.Confidence {
			best, found = t, true
		}
	}
	return best
}

type normalizer struct {
	cfg      *config.Config
	policy   *urlnorm.Policy
	domains  *domainClassifier
	prefixRe []*regexp.Regexp
}

// newNormalizer dedupes with policy, or the default policy when nil.
func newNormalizer(cfg *config.Config, policy *urlnorm.Policy) *normalizer {
	if policy == nil {
		policy = urlnorm.DefaultPolicy()
	}
	return &normalizer{
		cfg:      cfg,
		policy:   policy,
		domains:  newDomainClassifier(cfg),
		prefixRe: compileAll(cfg.CanonicalTitleStripPrefixesRegex),
	}
}

// normalize dedupes by normalized URL and returns the items plus the number
// of duplicates dropped. Items without a URL or title are skipped.
func (n *normalizer) normalize(raw []PayloadItem) ([]*Item, int) {
	seen := make(map[string]bool, len(raw))
	deduped := 0
	out := make([]*Item, 0, len(raw))

	for _, r := range raw {
		rawURL := strings.TrimSpace(r.URL)
		if rawURL == "" {
			continue
		}
		key := n.policy.Normalize(rawURL)
		if seen[key] {
			deduped++
			continue
		}
		seen[key] = true

		title := normalizeTitle(r.Title)
		if title == "" {
			continue
		}

		var host, path string
		u, err := url.Parse(rawURL)
		if err == nil {
			host = strings.ToLower(u.Hostname())
			path = u.Path
		}
		domain := host
		if n.cfg.StripWWWForGrouping {
			domain = strings.TrimPrefix(domain, "www.")
		}
		if domain == "" {
			domain = unknownDomain
		}
		domainRaw := host
		if domainRaw == "" {
			domainRaw = unknownDomain
		}

		browser := strings.ToLower(strings.TrimSpace(r.Browser))
		if browser == "" {
			browser = "unknown"
		}
		provided := strings.ToLower(strings.TrimSpace(r.Kind))
		flags := r.Flags
		switch provided {
		case "local":
			flags.IsLocal = true
		case "auth":
			flags.IsAuth = true
		case "internal":
			flags.IsInternal = true
		}
		eff, _ := taxonomy.ParseEffort(r.Effort)

		category := n.domains.classify(rawURL, u, domain, flags)
		out = append(out, &Item{
			URL:            rawURL,
			Key:            key,
			Title:          title,
			CanonicalTitle: n.canonicalTitle(title, domain, path),
			TitleRender:    truncate(title, n.cfg.TitleMaxLen),
			Domain:         domain,
			DomainRaw:      domainRaw,
			DomainCategory: category,
			Path:           path,
			Browser:        browser,
			Kind:           deriveKind(category, provided, rawURL),
			ProvidedKind:   provided,
			Action:         taxonomy.CanonicalAction(r.Intent.Action),
			Confidence:     clampUnit(r.Intent.Confidence),
			Topics:         r.Topics,
			Effort:         eff,
			Flags:          flags,
		})
	}
	return out, deduped
}

func normalizeTitle(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate caps text at max runes, ending with an ellipsis. A non-positive
// max disables the cap.
func truncate(text string, max int) string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	r := []rune(text)
	cut := strings.TrimRight(string(r[:max-1]), " \t")
	return cut + "…"
}

func (n *normalizer) canonicalTitle(title, domain, path string) string {
	if !n.cfg.CanonicalTitleEnabled {
		return title
	}
	out := stripSuffixes(title, n.cfg.CanonicalTitleStripSuffixes)
	for _, re := range n.prefixRe {
		out = re.ReplaceAllString(out, "")
	}

	rule, hasRule := n.cfg.CanonicalTitleHostRules[domain]
	if hasRule {
		out = stripSuffixes(out, rule.StripSuffixes)
		if rule.PreferRepoSlug {
			if slug := repoSlugTitle(path, title); slug != "" {
				out = slug
			}
		}
	}
	if domain == "github.com" {
		if blob := blobFilenameTitle(path, out, title, domain); blob != "" {
			out = blob
		}
	}

	out = normalizeTitle(out)
	if out == "" {
		out = title
	}
	out = truncate(out, n.cfg.CanonicalTitleMaxLen)
	if out == "" {
		return title
	}
	return out
}

func stripSuffixes(s string, suffixes []string) string {
	for changed := true; changed; {
		changed = false
		for _, suf := range suffixes {
			if suf != "" && strings.HasSuffix(s, suf) {
				s = strings.TrimRight(strings.TrimSuffix(s, suf), " \t")
				changed = true
			}
		}
	}
	return s
}

var repoSubpages = map[string]string{
	"issues":      "issues",
	"pull":        "pull",
	"pulls":       "pulls",
	"discussions": "discussions",
	"wiki":        "wiki",
	"releases":    "releases",
	"blob":        "file",
	"tree":        "tree",
}

// repoSlugTitle returns "owner/repo[ — page]" for long or generic titles.
func repoSlugTitle(path, title string) string {
	parts := pathSegments(path)
	if len(parts) < 2 {
		return ""
	}
	if utf8.RuneCountInString(title) <= 50 && !strings.HasPrefix(strings.ToLower(title), "github -") {
		return ""
	}
	slug := parts[0] + "/" + parts[1]
	if len(parts) >= 3 {
		if page, ok := repoSubpages[parts[2]]; ok {
			slug += " — " + page
		}
	}
	return slug
}

// blobFilenameTitle names a blob page after its file when the title says
// nothing more than the repo or host.
func blobFilenameTitle(path, current, title, domain string) string {
	parts := pathSegments(path)
	if len(parts) < 5 || parts[2] != "blob" {
		return ""
	}
	slug := parts[0] + "/" + parts[1]
	filename := strings.TrimSpace(parts[len(parts)-1])
	if filename == "" {
		return ""
	}

	domain = strings.ToLower(strings.TrimSpace(domain))
	triggers := map[string]bool{
		slug + " — file": true,
		slug:             true,
		domain:           true,
		"www." + domain:  true,
	}
	cur := strings.ToLower(strings.TrimSpace(current))
	t := strings.ToLower(strings.TrimSpace(title))
	if triggers[cur] || triggers[t] || strings.HasPrefix(t, "github -") {
		return slug + " — " + filename
	}
	return ""
}

func pathSegments(path string) []string {
	var out []string
	for _, p := range strings.Split(path, "/") {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func compileAll(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			continue
		}
		out = append(out, re)
	}
	return out
}
