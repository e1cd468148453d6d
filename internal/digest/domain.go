package digest

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/hpungsan/tabdigest/internal/classify"
	"github.com/hpungsan/tabdigest/internal/config"
	"github.com/hpungsan/tabdigest/internal/taxonomy"
	"github.com/hpungsan/tabdigest/internal/urlnorm"
)

// sensitiveAuthHost is always treated as a strong auth signal.
const sensitiveAuthHost = "accounts.google.com"

type domainClassifier struct {
	cfg    *config.Config
	authRe []*regexp.Regexp
}

func newDomainClassifier(cfg *config.Config) *domainClassifier {
	return &domainClassifier{cfg: cfg, authRe: compileAll(cfg.AuthPathRegex)}
}

// classify maps a URL to its domain category. Admin categories are checked
// first so sensitive pages never reach a content bucket. u may be nil when
// the URL did not parse.
func (d *domainClassifier) classify(rawURL string, u *url.URL, host string, flags Flags) taxonomy.DomainCategory {
	lowerURL := strings.ToLower(rawURL)
	host = strings.ToLower(host)
	var scheme, path string
	if u != nil {
		scheme = strings.ToLower(u.Scheme)
		path = u.Path
	}

	if flags.IsLocal || scheme == "file" || urlnorm.IsPrivateOrLoopbackHost(host) {
		return taxonomy.CategoryAdminLocal
	}
	if flags.IsInternal || hasAnyPrefix(lowerURL, d.cfg.SkipPrefixes) {
		return taxonomy.CategoryAdminInternal
	}
	if flags.IsChat || urlnorm.HostMatchesAny(host, d.cfg.ChatDomains) {
		return taxonomy.CategoryAdminChat
	}

	strong := flags.IsAuth || host == sensitiveAuthHost || d.authPath(path)
	soft := containsAnyFold(lowerURL, d.cfg.AuthContainsHintsSoft)
	if strong || (soft && !d.cfg.AdminAuthRequiresStrongSignal) {
		return taxonomy.CategoryAdminAuth
	}

	switch {
	case urlnorm.HostMatchesAny(host, d.cfg.CodeHostDomains):
		return taxonomy.CategoryCodeHost
	case urlnorm.HostMatchesAny(host, d.cfg.MusicDomains):
		return taxonomy.CategoryMusic
	case urlnorm.HostMatchesAny(host, d.cfg.VideoDomains):
		return taxonomy.CategoryVideo
	case urlnorm.HostMatchesAny(host, d.cfg.ConsoleDomains):
		return taxonomy.CategoryConsole
	case d.cfg.DocsDomainPrefix != "" && strings.HasPrefix(host, strings.ToLower(d.cfg.DocsDomainPrefix)):
		return taxonomy.CategoryDocsSite
	case classify.PathHasHint(path, d.cfg.DocsPathHints):
		return taxonomy.CategoryDocsSite
	case classify.PathHasHint(path, d.cfg.BlogPathHints):
		return taxonomy.CategoryBlog
	}
	return taxonomy.CategoryGeneric
}

func (d *domainClassifier) authPath(path string) bool {
	for _, re := range d.authRe {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

// deriveKind picks the presentation kind. Admin categories and sensitive
// provided kinds collapse to admin before any provided kind is honored.
func deriveKind(category taxonomy.DomainCategory, provided, rawURL string) taxonomy.Kind {
	switch provided {
	case "local", "auth", "internal":
		return taxonomy.KindAdmin
	}
	if category.IsAdmin() {
		return taxonomy.KindAdmin
	}
	if k, ok := taxonomy.ParseRendererKind(provided); ok {
		return k
	}
	if strings.HasSuffix(strings.ToLower(rawURL), ".pdf") {
		return taxonomy.KindPaper
	}
	switch category {
	case taxonomy.CategoryVideo:
		return taxonomy.KindVideo
	case taxonomy.CategoryMusic:
		return taxonomy.KindMusic
	case taxonomy.CategoryCodeHost:
		return taxonomy.KindRepo
	case taxonomy.CategoryDocsSite, taxonomy.CategoryBlog:
		return taxonomy.KindDocs
	}
	return taxonomy.KindArticle
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(s, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// containsAnyFold reports whether lowered s contains any needle, compared
// case-insensitively.
func containsAnyFold(s string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(s, strings.ToLower(n)) {
			return true
		}
	}
	return false
}
