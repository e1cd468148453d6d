package digest

import (
	"sort"
	"strings"

	"github.com/hpungsan/tabdigest/internal/config"
	"github.com/hpungsan/tabdigest/internal/taxonomy"
)

// aggregatorMarkers flag listicle and digest titles.
var aggregatorMarkers = []string{"trending", "top", "best of", "weekly", "digest", "list of", "directory"}

// depthHints flag reference-grade paths.
var depthHints = []string{"/reference/", "/docs/", "/guide/", "/internals/", "/config", "/api-reference/"}

// highSources are the buckets that may feed HIGH, in scan order.
var highSources = []taxonomy.Bucket{taxonomy.BucketDocs, taxonomy.BucketRepos, taxonomy.BucketMedia}

type candidate struct {
	item  *Item
	score int
	rank  int
}

// selectHighPriority moves the best eligible items into HIGH.
func selectHighPriority(b Buckets, cfg *config.Config) {
	eligible := make(map[string]bool, len(cfg.HighPriorityEligibleCategories))
	for _, c := range cfg.HighPriorityEligibleCategories {
		eligible[c] = true
	}

	var cands []candidate
	for _, name := range highSources {
		for _, it := range b[name] {
			if !eligible[string(it.DomainCategory)] {
				continue
			}
			score := scoreItem(it)
			it.HighScore = score
			if float64(score) < cfg.HighPriorityMinScore {
				continue
			}
			if it.Confidence < cfg.HighPriorityMinIntentConfidence && !depthException(it.Kind) {
				continue
			}
			cands = append(cands, candidate{item: it, score: score, rank: taxonomy.PriorityRank(it.Kind)})
		}
	}

	sort.SliceStable(cands, func(i, j int) bool {
		a, c := cands[i], cands[j]
		if a.score != c.score {
			return a.score > c.score
		}
		if a.rank != c.rank {
			return a.rank < c.rank
		}
		if a.item.Confidence != c.item.Confidence {
			return a.item.Confidence > c.item.Confidence
		}
		if a.item.Domain != c.item.Domain {
			return a.item.Domain < c.item.Domain
		}
		if ta, tc := highTitle(a.item), highTitle(c.item); ta != tc {
			return ta < tc
		}
		return a.item.Key < c.item.Key
	})

	limit := cfg.HighPriorityLimit
	if limit > len(cands) {
		limit = len(cands)
	}
	if limit < 0 {
		limit = 0
	}
	selected := make([]*Item, 0, limit)
	picked := make(map[*Item]bool, limit)
	for _, c := range cands[:limit] {
		selected = append(selected, c.item)
		picked[c.item] = true
	}

	for _, name := range highSources {
		kept := make([]*Item, 0, len(b[name]))
		for _, it := range b[name] {
			if !picked[it] {
				kept = append(kept, it)
			}
		}
		b[name] = kept
	}
	b[taxonomy.BucketHigh] = selected
}

// depthException lets niche formats through the confidence gate.
func depthException(k taxonomy.Kind) bool {
	return k == taxonomy.KindPaper || k == taxonomy.KindSpec
}

func highTitle(it *Item) string {
	if it.TitleRender != "" {
		return it.TitleRender
	}
	return it.Title
}

// scoreItem is the high-priority score of one item.
func scoreItem(it *Item) int {
	score := 0
	switch it.Kind {
	case taxonomy.KindPaper:
		score += 5
	case taxonomy.KindSpec:
		score += 4
	case taxonomy.KindDocs, taxonomy.KindRepo:
		score += 3
	case taxonomy.KindArticle:
		score++
	}

	switch it.DomainCategory {
	case taxonomy.CategoryDocsSite, taxonomy.CategoryBlog, taxonomy.CategoryCodeHost:
		score += 2
	case taxonomy.CategoryConsole:
		score++
	}

	score += it.Action.PriorityWeight()

	switch {
	case it.Confidence >= 0.80:
		score++
	case it.Confidence < 0.70 && !depthException(it.Kind):
		score -= 2
	}

	title := strings.ToLower(it.Title)
	if containsAnyFold(title, aggregatorMarkers) {
		score -= 2
	}
	if containsAnyFold(strings.ToLower(it.Path), depthHints) {
		score++
	}
	return score
}
