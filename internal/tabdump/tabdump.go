// Package tabdump parses captured tab-dump notes: a frontmatter block
// followed by browser headings and "- [title](url)" bullets.
package tabdump

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/hpungsan/tabdigest/internal/errors"
	"github.com/hpungsan/tabdigest/internal/urlnorm"
)

const (
	frontmatterScanLines = 80
	createdScanLines     = 30
)

// Item is one captured tab.
type Item struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	NormURL  string `json:"norm_url"`
	CleanURL string `json:"clean_url"`
	Domain   string `json:"domain"`
	Browser  string `json:"browser,omitempty"`
}

// Dump is a parsed note that satisfies the input contract.
type Dump struct {
	ID      string
	Created string
	Items   []Item
}

// Parse reads a note and enforces the input contract: a tabdump_id in the
// frontmatter and at least one item. fallbackCreated is used when the note
// has no created line. URLs are canonicalized with the default policy.
func Parse(markdown, fallbackCreated string) (*Dump, error) {
	return ParseWith(urlnorm.DefaultPolicy(), markdown, fallbackCreated)
}

// ParseWith is Parse with an explicit normalization policy.
func ParseWith(p *urlnorm.Policy, markdown, fallbackCreated string) (*Dump, error) {
	id := FrontmatterValue(markdown, "tabdump_id")
	if id == "" {
		return nil, errors.NewMissingProvenance()
	}
	items := ExtractItemsWith(p, markdown)
	if len(items) == 0 {
		return nil, errors.NewNoItems()
	}
	return &Dump{
		ID:      id,
		Created: CreatedTimestamp(markdown, fallbackCreated),
		Items:   items,
	}, nil
}

// ExtractItems returns every link bullet in document order. "## Chrome",
// "## Safari" and "## Firefox" headings set the browser of the bullets
// below them; "### " window headings are skipped.
func ExtractItems(markdown string) []Item {
	return ExtractItemsWith(urlnorm.DefaultPolicy(), markdown)
}

// ExtractItemsWith is ExtractItems with an explicit normalization policy.
// A nil policy means the default one.
func ExtractItemsWith(p *urlnorm.Policy, markdown string) []Item {
	if p == nil {
		p = urlnorm.DefaultPolicy()
	}
	var items []Item
	browser := ""
	for _, line := range splitLines(markdown) {
		switch {
		case strings.HasPrefix(line, "## Chrome"):
			browser = "chrome"
		case strings.HasPrefix(line, "## Safari"):
			browser = "safari"
		case strings.HasPrefix(line, "## Firefox"):
			browser = "firefox"
		}
		if strings.HasPrefix(line, "### ") {
			continue
		}
		title, raw, ok := ParseLinkLine(line)
		if !ok {
			continue
		}
		clean := p.Normalize(raw)
		items = append(items, Item{
			Title:    title,
			URL:      raw,
			NormURL:  clean,
			CleanURL: clean,
			Domain:   urlnorm.DomainOf(clean),
			Browser:  browser,
		})
	}
	return items
}

// ParseLinkLine parses a "- [title](url)" bullet. Backslash escapes and
// balanced nested brackets in the title and parentheses in the URL are
// allowed; trailing text, an empty title or an empty URL reject the line.
func ParseLinkLine(line string) (title, url string, ok bool) {
	s := []rune(strings.TrimSpace(line))
	if len(s) < 3 || string(s[:3]) != "- [" {
		return "", "", false
	}

	title, i, ok := readBalanced(s, 3, '[', ']')
	if !ok {
		return "", "", false
	}
	for i < len(s) && unicode.IsSpace(s[i]) {
		i++
	}
	if i >= len(s) || s[i] != '(' {
		return "", "", false
	}
	url, i, ok = readBalanced(s, i+1, '(', ')')
	if !ok {
		return "", "", false
	}
	if strings.TrimSpace(string(s[i:])) != "" {
		return "", "", false
	}

	title = strings.TrimSpace(title)
	url = strings.TrimSpace(url)
	if title == "" || url == "" {
		return "", "", false
	}
	return title, url, true
}

// readBalanced consumes s from i (just past an opening delimiter) up to the
// matching close, honoring backslash escapes. It returns the unescaped
// content and the index after the close.
func readBalanced(s []rune, i int, open, close rune) (string, int, bool) {
	var b strings.Builder
	depth := 1
	escaped := false
	for ; i < len(s); i++ {
		ch := s[i]
		switch {
		case escaped:
			b.WriteRune(ch)
			escaped = false
		case ch == '\\':
			escaped = true
		case ch == open:
			depth++
			b.WriteRune(ch)
		case ch == close:
			depth--
			if depth == 0 {
				return b.String(), i + 1, true
			}
			b.WriteRune(ch)
		default:
			b.WriteRune(ch)
		}
	}
	return "", i, false
}

var createdLine = regexp.MustCompile(`^created:\s*"?(.+?)"?$`)

// CreatedTimestamp returns the value of the first "created:" line within the
// first 30 lines, or fallback.
func CreatedTimestamp(markdown, fallback string) string {
	for _, line := range head(markdown, createdScanLines) {
		if m := createdLine.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			return m[1]
		}
	}
	return fallback
}

// FrontmatterValue returns key's value from a leading "---" block within the
// first 80 lines. Surrounding quotes are stripped. Missing keys yield "".
func FrontmatterValue(markdown, key string) string {
	lines := head(markdown, frontmatterScanLines)
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return ""
	}
	pattern := regexp.MustCompile(`^` + regexp.QuoteMeta(key) + `:\s*"?(.+?)"?\s*$`)
	for _, line := range lines[1:] {
		line = strings.TrimSpace(line)
		if line == "---" {
			break
		}
		if m := pattern.FindStringSubmatch(line); m != nil {
			return m[1]
		}
	}
	return ""
}

func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.Split(s, "\n")
}

func head(s string, n int) []string {
	lines := splitLines(s)
	if len(lines) > n {
		lines = lines[:n]
	}
	return lines
}
