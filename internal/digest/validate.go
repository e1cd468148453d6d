package digest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/hpungsan/tabdigest/internal/config"
	"github.com/hpungsan/tabdigest/internal/errors"
	"github.com/hpungsan/tabdigest/internal/taxonomy"
)

// annotate records each item's bucket on the item.
func annotate(b Buckets) {
	for name, items := range b {
		for _, it := range items {
			it.Bucket = name
		}
	}
}

// validateCoverage checks that every item sits in exactly one bucket and
// that admin items never leave ADMIN.
func validateCoverage(items []*Item, b Buckets) error {
	all := make(map[string]bool, len(items))
	for _, it := range items {
		all[it.Key] = true
	}

	placed := make(map[string]bool, len(items))
	for _, name := range taxonomy.SectionOrder {
		for _, it := range b[name] {
			if placed[it.Key] {
				return errors.NewInvariantViolation("duplicate URL across buckets", map[string]any{"url": it.URL})
			}
			placed[it.Key] = true
			if name != taxonomy.BucketAdmin && (it.DomainCategory.IsAdmin() || it.Kind == taxonomy.KindAdmin) {
				return errors.NewInvariantViolation("admin item outside ADMIN", map[string]any{
					"url":    it.URL,
					"bucket": string(name),
				})
			}
		}
	}
	if len(b) != len(taxonomy.SectionOrder) {
		return errors.NewInvariantViolation("unknown bucket in bucket map", map[string]any{"buckets": len(b)})
	}

	var missing []string
	for key := range all {
		if !placed[key] {
			missing = append(missing, key)
		}
	}
	var extra []string
	for key := range placed {
		if !all[key] {
			extra = append(extra, key)
		}
	}
	if len(missing) > 0 || len(extra) > 0 {
		sort.Strings(missing)
		sort.Strings(extra)
		return errors.NewInvariantViolation("not all items assigned to a bucket", map[string]any{
			"missing": missing,
			"extra":   extra,
		})
	}
	return nil
}

// validateRendered parses the document and checks that every section due
// to render has its level-2 heading and that headings follow section order.
func validateRendered(md string, b Buckets, cfg *config.Config) error {
	order := make(map[string]int, len(taxonomy.SectionOrder))
	for i, name := range taxonomy.SectionOrder {
		order[sectionTitles[name]] = i
	}

	found := map[taxonomy.Bucket]bool{}
	last := -1
	for _, h := range levelTwoHeadings(stripFrontmatter(md)) {
		i, ok := order[h]
		if !ok {
			continue
		}
		if i <= last {
			return errors.NewInvariantViolation("section order incorrect", map[string]any{"section": h})
		}
		last = i
		found[taxonomy.SectionOrder[i]] = true
	}

	for _, name := range taxonomy.SectionOrder {
		if shouldRender(name, len(b[name]), cfg) && !found[name] {
			return errors.NewInvariantViolation(fmt.Sprintf("missing section %q", sectionTitles[name]), nil)
		}
	}
	return nil
}

// stripFrontmatter drops a leading "---" block so its closing fence is not
// read as a setext underline.
func stripFrontmatter(md string) string {
	if !strings.HasPrefix(md, "---\n") {
		return md
	}
	rest := md[len("---\n"):]
	if i := strings.Index(rest, "\n---\n"); i >= 0 {
		return rest[i+len("\n---\n"):]
	}
	if strings.HasSuffix(rest, "\n---") {
		return ""
	}
	return md
}

// levelTwoHeadings returns the text of top-level "##" headings in order.
func levelTwoHeadings(md string) []string {
	src := []byte(md)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var out []string
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok || h.Level != 2 {
			continue
		}
		out = append(out, strings.TrimSpace(inlineText(h, src)))
	}
	return out
}

func inlineText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}
