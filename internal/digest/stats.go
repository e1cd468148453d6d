package digest

import (
	"sort"
	"strings"

	"github.com/hpungsan/tabdigest/internal/classify"
	"github.com/hpungsan/tabdigest/internal/config"
	"github.com/hpungsan/tabdigest/internal/taxonomy"
)

// Bullet contexts select badge behavior.
const (
	ctxHigh     = "high"
	ctxMedia    = "media"
	ctxRepos    = "repos"
	ctxProjects = "projects"
	ctxTools    = "tools"
	ctxDocs     = "docs"
	ctxQuick    = "quick"
	ctxBacklog  = "backlog"
	ctxAdmin    = "admin"
)

var categoryDisplay = map[string]string{
	"docs_site": "docs",
	"blog":      "reading",
	"code_host": "repos",
	"video":     "media",
	"music":     "media",
	"console":   "tools",
	"generic":   "browsing",
}

func nonAdmin(items []*Item) []*Item {
	out := make([]*Item, 0, len(items))
	for _, it := range items {
		if !it.DomainCategory.IsAdmin() {
			out = append(out, it)
		}
	}
	return out
}

// ranked orders keys by count desc then key asc.
func ranked(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}

// topN takes the first n ranked keys and then drops empty ones.
func topN(counts map[string]int, n int) []string {
	keys := ranked(counts)
	if len(keys) > n {
		keys = keys[:n]
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}

func topDomains(items []*Item, n int) []string {
	counts := map[string]int{}
	for _, it := range nonAdmin(items) {
		counts[it.Domain]++
	}
	return topN(counts, n)
}

func topKinds(items []*Item, n int) []string {
	counts := map[string]int{}
	for _, it := range nonAdmin(items) {
		counts[string(it.Kind)]++
	}
	return topN(counts, n)
}

// topTopics counts the first meaningful topic of each non-admin item.
func topTopics(items []*Item, n int) []string {
	counts := map[string]int{}
	for _, it := range nonAdmin(items) {
		for _, t := range it.Topics {
			slug := tagify(t.Slug)
			if slug == "" || slug == "misc" || slug == "other" {
				continue
			}
			counts[slug]++
			break
		}
	}
	keys := ranked(counts)
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

func focusLine(items []*Item) string {
	cats := map[string]int{}
	doms := map[string]int{}
	for _, it := range nonAdmin(items) {
		cats[string(it.DomainCategory)]++
		doms[it.Domain]++
	}
	topCats := firstNonEmpty(ranked(cats), 2)
	topDoms := firstNonEmpty(ranked(doms), 2)

	catsStr := "varied"
	if len(topCats) > 0 {
		labels := make([]string, len(topCats))
		for i, c := range topCats {
			labels[i] = c
			if d, ok := categoryDisplay[c]; ok {
				labels[i] = d
			}
		}
		catsStr = strings.Join(labels, " + ")
	}
	domsStr := "various domains"
	if len(topDoms) > 0 {
		domsStr = strings.Join(topDoms, " and ")
	}
	return "Mostly " + catsStr + " across " + domsStr + "."
}

func firstNonEmpty(keys []string, n int) []string {
	var out []string
	for _, k := range keys {
		if k == "" {
			continue
		}
		out = append(out, k)
		if len(out) == n {
			break
		}
	}
	return out
}

func tagify(slug string) string {
	return classify.SlugifyOr(slug, "other")
}

// effortBand falls back to kind and action when no effort was supplied.
func effortBand(it *Item) taxonomy.Effort {
	if it.Effort != "" {
		return it.Effort
	}
	if depthException(it.Kind) || it.Action == taxonomy.ActionDeepWork {
		return taxonomy.EffortDeep
	}
	switch it.Action {
	case taxonomy.ActionReference, taxonomy.ActionWatch, taxonomy.ActionIgnore:
		return taxonomy.EffortQuick
	}
	return taxonomy.EffortMedium
}

func statusPill(it *Item) string {
	switch effortBand(it) {
	case taxonomy.EffortQuick:
		return "[low effort]"
	case taxonomy.EffortDeep:
		return "[high effort]"
	}
	return "[medium effort]"
}

func primaryBadge(it *Item) string {
	if it.DomainCategory.IsAdmin() || it.Kind == taxonomy.KindAdmin {
		return "admin"
	}
	if it.Kind == "" {
		return string(taxonomy.KindMisc)
	}
	return strings.ToLower(string(it.Kind))
}

// badges renders the lowercase badge list for one bullet.
func badges(it *Item, opts config.BadgeOptions, context string) string {
	if !opts.Enabled {
		return ""
	}
	primary := primaryBadge(it)
	if primary == string(taxonomy.KindMisc) {
		switch context {
		case ctxProjects:
			primary = "project"
		case ctxTools:
			primary = "tool"
		}
	}

	out := []string{primary}
	if context == ctxQuick && opts.IncludeQuickWinsWhy {
		why := strings.ToLower(it.QuickWhy)
		if why == "" {
			why = ReasonFallbackMisc
		}
		out = append(out, "why:"+why)
	}
	if context == ctxHigh && opts.IncludeTopicInHighPriority && len(it.Topics) > 0 {
		out = append(out, "#"+tagify(it.TopicPrimary().Slug))
	}

	max := opts.MaxPerBullet
	if max < 0 {
		max = 0
	}
	if len(out) > max {
		out = out[:max]
	}
	for i := range out {
		out[i] = strings.ToLower(out[i])
	}
	return strings.Join(out, " · ")
}
