package digest

import (
	"strings"

	"github.com/hpungsan/tabdigest/internal/config"
	"github.com/hpungsan/tabdigest/internal/rules"
	"github.com/hpungsan/tabdigest/internal/taxonomy"
	"github.com/hpungsan/tabdigest/internal/urlnorm"
)

// Quick-win mini categories and the reasons behind them.
const (
	QuickLeisure  = "leisure"
	QuickShopping = "shopping"
	QuickMisc     = "misc"

	ReasonAdminPath       = "admin_path"
	ReasonShoppingDomain  = "shopping_domain"
	ReasonLeisureDomain   = "leisure_domain"
	ReasonShoppingKeyword = "shopping_keyword"
	ReasonLeisureKeyword  = "leisure_keyword"
	ReasonFallbackMisc    = "fallback_misc"
)

// Buckets maps every section to its items. All section keys are present.
type Buckets map[taxonomy.Bucket][]*Item

func newBuckets() Buckets {
	b := make(Buckets, len(taxonomy.SectionOrder))
	for _, name := range taxonomy.SectionOrder {
		b[name] = []*Item{}
	}
	return b
}

// Len is the total number of bucketed items.
func (b Buckets) Len() int {
	n := 0
	for _, items := range b {
		n += len(items)
	}
	return n
}

type bucketer struct {
	cfg   *config.Config
	quick rules.QuickRules
}

// assign routes every item into exactly one bucket and applies quick-win
// tightening and the quick-win cap. Items dropped by the cap (overflow to
// backlog disabled) are returned separately.
func (b *bucketer) assign(items []*Item) (Buckets, []*Item) {
	out := newBuckets()
	for _, it := range items {
		name := b.bucketFor(it)
		out[name] = append(out[name], it)
	}

	var dropped []*Item
	if !b.cfg.IncludeQuickWins {
		out[taxonomy.BucketBacklog] = append(out[taxonomy.BucketBacklog], out[taxonomy.BucketQuick]...)
		out[taxonomy.BucketQuick] = []*Item{}
		return out, nil
	}

	b.tighten(out)
	limit := b.cfg.QuickWinsMaxItems
	if quick := out[taxonomy.BucketQuick]; len(quick) > limit {
		overflow := quick[limit:]
		out[taxonomy.BucketQuick] = quick[:limit:limit]
		if b.cfg.QuickWinsOverflowToBacklog {
			out[taxonomy.BucketBacklog] = append(out[taxonomy.BucketBacklog], overflow...)
		} else {
			dropped = append(dropped, overflow...)
		}
	}
	return out, dropped
}

func (b *bucketer) bucketFor(it *Item) taxonomy.Bucket {
	switch {
	case it.DomainCategory.IsAdmin() || it.Kind == taxonomy.KindAdmin:
		return taxonomy.BucketAdmin
	case it.ProvidedKind == "local" || it.ProvidedKind == "auth" || it.ProvidedKind == "internal":
		return taxonomy.BucketAdmin
	case it.Kind == taxonomy.KindVideo || it.Kind == taxonomy.KindMusic:
		return taxonomy.BucketMedia
	case it.Kind == taxonomy.KindRepo:
		return taxonomy.BucketRepos
	case it.DomainCategory == taxonomy.CategoryCodeHost && len(pathSegments(it.Path)) >= 2:
		return taxonomy.BucketRepos
	case b.isProjectWorkspace(it):
		return taxonomy.BucketProjects
	case it.Kind == taxonomy.KindTool || it.ProvidedKind == "tool" || it.DomainCategory == taxonomy.CategoryConsole:
		return taxonomy.BucketTools
	case it.Kind.IsReading():
		return taxonomy.BucketDocs
	}
	return taxonomy.BucketQuick
}

func (b *bucketer) isProjectWorkspace(it *Item) bool {
	domain := strings.ToLower(it.Domain)
	path := strings.ToLower(it.Path)
	blob := strings.ToLower(it.displayTitle()) + " " + path
	suffix := b.cfg.ProjectDomainSuffixMatching

	matches := func(bases ...string) bool {
		for _, base := range bases {
			if urlnorm.MatchHost(domain, base, suffix, true) {
				return true
			}
		}
		return false
	}

	if matches("trello.com") && (strings.HasPrefix(path, "/b/") || strings.HasPrefix(path, "/c/")) {
		return true
	}
	if matches(b.cfg.ProjectJiraDomains...) && containsAnyFold(path, b.cfg.ProjectJiraPathHints) {
		return true
	}
	if matches("figma.com") && containsAnyFold(path, b.cfg.ProjectFigmaPathHints) {
		return true
	}
	if matches("drive.google.com") && strings.Contains(path, "/folders/") {
		return true
	}
	if matches(b.cfg.ProjectNotionDomains...) {
		if !b.cfg.ProjectNotionRequireHint {
			return true
		}
		return containsAnyFold(blob, b.cfg.ProjectNotionHints)
	}
	return matches(b.cfg.ProjectDomains...) && containsAnyFold(blob, b.cfg.ProjectTitleHints)
}

// tighten keeps only allow-listed low-effort items in QUICK. The rest move
// to the front of BACKLOG.
func (b *bucketer) tighten(out Buckets) {
	allowed := make(map[string]bool, len(b.cfg.QuickWinsLowEffortReasons))
	for _, r := range b.cfg.QuickWinsLowEffortReasons {
		allowed[strings.ToLower(r)] = true
	}

	var keep, moved []*Item
	for _, it := range out[taxonomy.BucketQuick] {
		it.QuickCat, it.QuickWhy = b.miniClassify(it)
		if allowed[it.QuickWhy] {
			keep = append(keep, it)
		} else {
			moved = append(moved, it)
		}
	}
	out[taxonomy.BucketQuick] = nonNil(keep)
	if len(moved) > 0 {
		out[taxonomy.BucketBacklog] = append(moved, out[taxonomy.BucketBacklog]...)
	}
}

// miniClassify sorts a quick-win into leisure, shopping or misc. Domain hits
// beat keyword hits and shopping beats leisure at each level.
func (b *bucketer) miniClassify(it *Item) (cat, reason string) {
	if it.DomainCategory.IsAdmin() {
		return QuickMisc, ReasonAdminPath
	}
	domain := strings.ToLower(it.Domain)
	blob := strings.ToLower(it.displayTitle()) + " " + strings.ToLower(it.URL)
	suffix := b.cfg.QuickWinsDomainSuffixMatching

	hostIn := func(bases []string) bool {
		for _, base := range bases {
			if urlnorm.MatchHost(domain, base, suffix, true) {
				return true
			}
		}
		return false
	}

	switch {
	case hostIn(b.quick.ShoppingDomains):
		return QuickShopping, ReasonShoppingDomain
	case hostIn(b.quick.LeisureDomains):
		return QuickLeisure, ReasonLeisureDomain
	case containsAnyFold(blob, b.quick.ShoppingKeywords):
		return QuickShopping, ReasonShoppingKeyword
	case containsAnyFold(blob, b.quick.LeisureKeywords):
		return QuickLeisure, ReasonLeisureKeyword
	}
	return QuickMisc, ReasonFallbackMisc
}

func nonNil(items []*Item) []*Item {
	if items == nil {
		return []*Item{}
	}
	return items
}
