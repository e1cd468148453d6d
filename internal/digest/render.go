package digest

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/hpungsan/tabdigest/internal/config"
	"github.com/hpungsan/tabdigest/internal/taxonomy"
)

// sectionTitles are the level-2 heading texts, keyed by bucket.
var sectionTitles = map[taxonomy.Bucket]string{
	taxonomy.BucketHigh:     "🔥 Start Here",
	taxonomy.BucketMedia:    "📺 Watch / Listen Later",
	taxonomy.BucketRepos:    "🏗 Repos",
	taxonomy.BucketProjects: "🗂 Projects",
	taxonomy.BucketTools:    "🧰 Apps & Utilities",
	taxonomy.BucketDocs:     "📚 Read Later",
	taxonomy.BucketQuick:    "🧹 Easy Tasks",
	taxonomy.BucketBacklog:  "🗃 Maybe Later",
	taxonomy.BucketAdmin:    "🔐 Accounts & Settings",
}

type callout struct {
	label   string
	context string
}

var callouts = map[taxonomy.Bucket]callout{
	taxonomy.BucketMedia:    {"[!video]- Expand Watch / Listen Later", ctxMedia},
	taxonomy.BucketRepos:    {"[!code]- View Repositories", ctxRepos},
	taxonomy.BucketProjects: {"[!note]- View Project Workspaces", ctxProjects},
	taxonomy.BucketTools:    {"[!note]- Expand Apps & Utilities", ctxTools},
	taxonomy.BucketDocs:     {"[!info]- Read Later", ctxDocs},
	taxonomy.BucketQuick:    {"[!tip]- Expand Easy Tasks", ctxQuick},
	taxonomy.BucketBacklog:  {"[!quote]- Expand Maybe Later", ctxBacklog},
	taxonomy.BucketAdmin:    {"[!warning]- Account/Settings Access", ctxAdmin},
}

var kindLabelOrder = []string{"Docs", "Articles", "Papers", "Music", "Specs", "Other"}

const (
	energyDeep  = "Deep Reads"
	energyQuick = "Quick References"
)

var datePattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

type renderer struct {
	state *State
	cfg   *config.Config
	title cases.Caser
}

// shouldRender reports whether a section is emitted.
func shouldRender(name taxonomy.Bucket, n int, cfg *config.Config) bool {
	switch name {
	case taxonomy.BucketBacklog:
		return n > 0
	case taxonomy.BucketQuick:
		return cfg.IncludeQuickWins && (n > 0 || cfg.IncludeEmptySections)
	}
	return n > 0 || cfg.IncludeEmptySections
}

func (r *renderer) markdown() string {
	s := r.state
	lines := r.frontmatter()
	lines = append(lines, "", "# 📑 Tab Dump: "+dumpDate(s.Meta))
	if r.cfg.IncludeFocusLine {
		lines = append(lines, "> **Focus:** "+focusLine(s.Items))
	}
	lines = append(lines, "")
	lines = append(lines, r.sections()...)
	return strings.TrimRight(strings.Join(lines, "\n"), " \t\r\n") + "\n"
}

func (r *renderer) frontmatter() []string {
	s := r.state
	include := make(map[string]bool, len(r.cfg.FrontmatterInclude))
	for _, k := range r.cfg.FrontmatterInclude {
		include[k] = true
	}
	has := func(keys ...string) bool {
		for _, k := range keys {
			if include[k] {
				return true
			}
		}
		return false
	}

	lines := []string{"---"}
	if has("dump_date", "Dump Date") {
		lines = append(lines, "Dump Date: "+dumpDate(s.Meta))
	}
	if has("tab_count", "Tab Count") {
		total := s.Counts.Total
		if total == 0 {
			total = len(s.Items)
		}
		lines = append(lines, "Tab Count: "+strconv.Itoa(total))
	}
	if has("top_domains", "Top Domains") {
		lines = append(lines, "Top Domains: "+strings.Join(topDomains(s.Items, 5), ", "))
	}
	if has("top_kinds", "Top Kinds") {
		lines = append(lines, "Top Kinds: "+strings.Join(topKinds(s.Items, 3), ", "))
	}
	if has("renderer", "Renderer") {
		lines = append(lines, "Renderer: tabdigest-v"+r.cfg.RendererVersion)
	}
	if has("source", "Source") {
		lines = append(lines, "Source: "+normalizeTitle(s.Meta.Source))
	}
	if has("deduped", "Deduped") {
		lines = append(lines, "Deduped: "+strconv.Itoa(s.Deduped))
	}
	return append(lines, "---")
}

func dumpDate(m Meta) string {
	if m.DumpDate != "" {
		return normalizeTitle(m.DumpDate)
	}
	created := m.Created
	if created == "" {
		created = m.TS
	}
	if created == "" {
		return ""
	}
	if d := datePattern.FindString(created); d != "" {
		return d
	}
	created, _, _ = strings.Cut(strings.TrimSpace(created), "T")
	created, _, _ = strings.Cut(created, " ")
	return normalizeTitle(created)
}

func (r *renderer) sections() []string {
	var lines []string
	for _, name := range taxonomy.SectionOrder {
		items := r.state.Buckets[name]
		if !shouldRender(name, len(items), r.cfg) {
			continue
		}
		switch name {
		case taxonomy.BucketHigh:
			lines = append(lines, r.high(items)...)
		case taxonomy.BucketDocs:
			lines = append(lines, r.docs(items)...)
		case taxonomy.BucketQuick:
			lines = append(lines, r.quick(items)...)
		default:
			lines = append(lines, r.callout(name, items)...)
		}
		lines = append(lines, "")
	}
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}

func (r *renderer) high(items []*Item) []string {
	lines := []string{
		"## " + sectionTitles[taxonomy.BucketHigh],
		"*Auto-selected “do next” items.*",
		r.todayContext(),
	}
	if len(items) == 0 {
		return append(lines, r.cfg.EmptyBucketMessage)
	}
	for _, it := range items {
		lines = append(lines, r.bullet(it, "", ctxHigh, "", r.cfg.StartHereTitleMaxLen)...)
	}
	return lines
}

func (r *renderer) todayContext() string {
	var values []string
	if topics := topTopics(r.state.Items, 3); len(topics) > 0 {
		for _, t := range topics {
			values = append(values, "#"+escapeMarkdown(t))
		}
	} else {
		for _, d := range topDomains(r.state.Items, 3) {
			values = append(values, escapeMarkdown(d))
		}
	}
	if len(values) == 0 {
		values = []string{"varied"}
	}
	return "> [!abstract] Today's Context: " + strings.Join(values, " | ")
}

func (r *renderer) header(name taxonomy.Bucket, label string, n int) []string {
	return []string{"## " + sectionTitles[name], fmt.Sprintf("> %s (%d)", label, n)}
}

func (r *renderer) empty() string {
	return "> " + r.cfg.EmptyBucketMessage
}

func (r *renderer) callout(name taxonomy.Bucket, items []*Item) []string {
	c := callouts[name]
	lines := r.header(name, c.label, len(items))
	if len(items) == 0 {
		return append(lines, r.empty())
	}
	admin := name == taxonomy.BucketAdmin
	for _, g := range r.groupItems(items, admin) {
		lines = append(lines, "> ### "+g.heading)
		for _, it := range sortAlpha(g.items) {
			if admin {
				lines = append(lines, r.adminBullet(it))
			} else {
				lines = append(lines, r.bullet(it, "> ", c.context, "", 0)...)
			}
		}
	}
	return lines
}

func (r *renderer) docs(items []*Item) []string {
	c := callouts[taxonomy.BucketDocs]
	lines := r.header(taxonomy.BucketDocs, c.label, len(items))
	if len(items) == 0 {
		return append(lines, r.empty())
	}

	groups := r.groupItems(items, false)
	large := len(items) >= r.cfg.DocsLargeSectionItemsGte || len(groups) >= r.cfg.DocsLargeSectionDomainsGte
	if !large {
		for _, g := range groups {
			lines = append(lines, "> ### "+g.heading)
			for _, it := range sortAlpha(g.items) {
				lines = append(lines, r.bullet(it, "> ", ctxDocs, "", 0)...)
			}
		}
		return lines
	}

	var multi, tail []group
	for _, g := range groups {
		if len(g.items) >= r.cfg.DocsMultiDomainMinItems {
			multi = append(multi, g)
		} else {
			tail = append(tail, g)
		}
	}
	tailCount := 0
	for _, g := range tail {
		tailCount += len(g.items)
	}

	lines[1] = fmt.Sprintf("> [!info]- Main Sources (%d)", len(items)-tailCount)
	if len(multi) == 0 {
		lines = append(lines, "> _(no main sources)_")
	}
	for _, g := range multi {
		lines = append(lines, fmt.Sprintf("> ### %s (%d)", g.heading, len(g.items)))
		for _, it := range sortAlpha(g.items) {
			lines = append(lines, r.bullet(it, "> ", ctxDocs, "", 0)...)
		}
	}
	if len(tail) == 0 {
		return lines
	}

	lines = append(lines, "", fmt.Sprintf("> [!summary]- More Links (%d)", tailCount))
	var flat []sourced
	for _, g := range tail {
		for _, it := range sortAlpha(g.items) {
			flat = append(flat, sourced{domain: g.heading, item: it})
		}
	}

	switch r.oneOffMode(len(tail)) {
	case config.GroupingKind:
		lines = append(lines, r.labelled(groupByKind(flat))...)
	case config.GroupingEnergy:
		lines = append(lines, r.labelled(groupByEnergy(flat))...)
	default:
		for _, g := range tail {
			lines = append(lines, fmt.Sprintf("> #### %s (%d)", g.heading, len(g.items)))
			for _, it := range sortAlpha(g.items) {
				lines = append(lines, r.bullet(it, "> ", ctxDocs, "", 0)...)
			}
		}
	}
	return lines
}

func (r *renderer) oneOffMode(tailDomains int) string {
	mode := strings.ToLower(strings.TrimSpace(r.cfg.DocsOneOffGroupingMode))
	if mode == config.GroupingAuto || mode == "" {
		if tailDomains > r.cfg.DocsOneOffGroupByKindWhenDomainsGt {
			return config.GroupingKind
		}
		return config.GroupingDomain
	}
	return mode
}

func (r *renderer) labelled(groups []labelledGroup) []string {
	var lines []string
	for _, g := range groups {
		lines = append(lines, fmt.Sprintf("> #### %s (%d)", g.label, len(g.items)))
		for _, s := range g.items {
			lines = append(lines, r.bullet(s.item, "> ", ctxDocs, s.domain, 0)...)
		}
	}
	return lines
}

func (r *renderer) quick(items []*Item) []string {
	if !r.cfg.QuickWinsEnableMiniCategories {
		return r.callout(taxonomy.BucketQuick, items)
	}
	c := callouts[taxonomy.BucketQuick]
	lines := r.header(taxonomy.BucketQuick, c.label, len(items))
	if len(items) == 0 {
		return append(lines, r.empty())
	}

	order := make([]string, 0, len(r.cfg.QuickWinsMiniCategories))
	known := map[string]bool{}
	for _, name := range r.cfg.QuickWinsMiniCategories {
		name = strings.ToLower(name)
		if !known[name] {
			order = append(order, name)
			known[name] = true
		}
	}
	cats := map[string][]*Item{}
	var extra []string
	for _, it := range items {
		if it.QuickCat == "" || it.QuickWhy == "" {
			it.QuickCat, it.QuickWhy = r.state.bucketer.miniClassify(it)
		}
		cat := strings.ToLower(it.QuickCat)
		if !known[cat] {
			known[cat] = true
			extra = append(extra, cat)
		}
		cats[cat] = append(cats[cat], it)
	}
	sort.Strings(extra)

	for _, cat := range append(order, extra...) {
		if len(cats[cat]) == 0 {
			continue
		}
		lines = append(lines, "> ### "+r.title.String(cat))
		for _, it := range sortAlpha(cats[cat]) {
			lines = append(lines, r.bullet(it, "> ", ctxQuick, "", 0)...)
		}
	}
	return lines
}

// bullet renders the two-line checklist entry.
func (r *renderer) bullet(it *Item, prefix, context, sourceDomain string, titleMax int) []string {
	meta := []string{statusPill(it)}
	if b := badges(it, r.cfg.Render.Badges, context); b != "" {
		meta = append(meta, b)
	}
	omitDomain := context == ctxDocs && r.cfg.DocsOmitDomInBullets
	if sourceDomain != "" && !omitDomain {
		meta = append(meta, escapeMarkdown(sourceDomain))
	}
	return []string{
		fmt.Sprintf("%s- [ ] [%s](%s)", prefix, bulletTitle(it, titleMax), escapeURL(it.URL)),
		prefix + "  " + strings.Join(meta, " · "),
	}
}

func (r *renderer) adminBullet(it *Item) string {
	line := fmt.Sprintf("> - [ ] [%s](%s)", bulletTitle(it, 0), escapeURL(it.URL))
	if b := badges(it, r.cfg.Render.Badges, ctxAdmin); b != "" {
		line += " · " + b
	}
	return line
}

func bulletTitle(it *Item, max int) string {
	return escapeMarkdown(truncate(it.displayTitle(), max))
}

type group struct {
	category string
	domain   string
	heading  string
	items    []*Item
}

// groupItems groups by (category, domain): pinned domains first, then by
// size, then alphabetically.
func (r *renderer) groupItems(items []*Item, admin bool) []group {
	type key struct{ cat, dom string }
	index := map[key]int{}
	var groups []group
	for _, it := range items {
		k := key{string(it.DomainCategory), it.Domain}
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, group{category: k.cat, domain: k.dom})
		}
		groups[i].items = append(groups[i].items, it)
	}

	pins := map[string]int{}
	for i, d := range r.cfg.Render.Ordering.Domains.Pinned {
		d = strings.ToLower(d)
		if _, ok := pins[d]; !ok {
			pins[d] = i
		}
	}
	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		da, db := strings.ToLower(a.domain), strings.ToLower(b.domain)
		pa, aPinned := pins[da]
		pb, bPinned := pins[db]
		if aPinned != bPinned {
			return aPinned
		}
		if aPinned {
			if pa != pb {
				return pa < pb
			}
			return da < db
		}
		if len(a.items) != len(b.items) {
			return len(a.items) > len(b.items)
		}
		if da != db {
			return da < db
		}
		return strings.ToLower(a.category) < strings.ToLower(b.category)
	})

	for i := range groups {
		groups[i].heading = groups[i].domain
		if admin {
			groups[i].heading = groups[i].category + " • " + groups[i].domain
		}
	}
	return groups
}

func sortAlpha(items []*Item) []*Item {
	out := append([]*Item(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := strings.ToLower(out[i].displayTitle()), strings.ToLower(out[j].displayTitle())
		if ti != tj {
			return ti < tj
		}
		return out[i].URL < out[j].URL
	})
	return out
}

type sourced struct {
	domain string
	item   *Item
}

type labelledGroup struct {
	label string
	items []sourced
}

func kindLabel(k taxonomy.Kind) string {
	switch k {
	case taxonomy.KindDocs:
		return "Docs"
	case taxonomy.KindArticle:
		return "Articles"
	case taxonomy.KindPaper:
		return "Papers"
	case taxonomy.KindMusic:
		return "Music"
	case taxonomy.KindSpec:
		return "Specs"
	}
	return "Other"
}

func groupByKind(flat []sourced) []labelledGroup {
	return groupLabelled(flat, kindLabelOrder, func(s sourced) string { return kindLabel(s.item.Kind) })
}

func groupByEnergy(flat []sourced) []labelledGroup {
	return groupLabelled(flat, []string{energyDeep, energyQuick}, func(s sourced) string {
		if effortBand(s.item) == taxonomy.EffortDeep {
			return energyDeep
		}
		return energyQuick
	})
}

func groupLabelled(flat []sourced, order []string, label func(sourced) string) []labelledGroup {
	byLabel := map[string][]sourced{}
	for _, s := range flat {
		l := label(s)
		byLabel[l] = append(byLabel[l], s)
	}
	var out []labelledGroup
	for _, l := range order {
		arr := byLabel[l]
		if len(arr) == 0 {
			continue
		}
		sort.SliceStable(arr, func(i, j int) bool {
			ti, tj := strings.ToLower(arr[i].item.displayTitle()), strings.ToLower(arr[j].item.displayTitle())
			if ti != tj {
				return ti < tj
			}
			if di, dj := strings.ToLower(arr[i].domain), strings.ToLower(arr[j].domain); di != dj {
				return di < dj
			}
			return arr[i].item.URL < arr[j].item.URL
		})
		out = append(out, labelledGroup{label: l, items: arr})
	}
	return out
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	`*`, `\*`,
	`_`, `\_`,
	`[`, `\[`,
	`]`, `\]`,
	`(`, `\(`,
	`)`, `\)`,
)

// escapeMarkdown backslash-escapes Markdown control characters.
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

const urlSafe = ":/?#[]@!$&'*+,;=%-._~"

// escapeURL percent-encodes bytes that can break a link destination, such as
// whitespace and parentheses. Existing escapes are kept.
func escapeURL(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isAlnum(c) || strings.IndexByte(urlSafe, c) >= 0 {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", c)
	}
	return b.String()
}

func isAlnum(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

func newTitleCaser() cases.Caser {
	return cases.Title(language.English)
}
