// Package urlnorm canonicalizes tab URLs and answers the sensitivity questions
// the pipeline asks before classification.
package urlnorm

import (
	"net/netip"
	"net/url"
	"sort"
	"strings"

	"github.com/hpungsan/tabdigest/internal/rules"
	"github.com/hpungsan/tabdigest/internal/taxonomy"
)

// UnknownDomain is returned by DomainOf for values without a host.
const UnknownDomain = "(unknown)"

// Policy holds the URL tables used for normalization and sensitivity checks.
type Policy struct {
	trackingParams     map[string]bool
	sensitiveHosts     []string
	authPathHints      []string
	sensitiveQueryKeys map[string]bool
}

// NewPolicy builds a Policy from rule tables.
func NewPolicy(r *rules.Rules) *Policy {
	p := &Policy{
		trackingParams:     make(map[string]bool, len(r.URLs.TrackingParams)),
		sensitiveHosts:     lowerAll(r.URLs.SensitiveHosts),
		authPathHints:      lowerAll(r.URLs.AuthPathHints),
		sensitiveQueryKeys: make(map[string]bool, len(r.URLs.SensitiveQueryKeys)),
	}
	for _, k := range r.URLs.TrackingParams {
		p.trackingParams[strings.ToLower(strings.TrimSpace(k))] = true
	}
	for _, k := range r.URLs.SensitiveQueryKeys {
		p.sensitiveQueryKeys[strings.ToLower(strings.TrimSpace(k))] = true
	}
	return p
}

var defaultPolicy = NewPolicy(rules.Default())

// DefaultPolicy returns the policy built from the embedded tables.
func DefaultPolicy() *Policy { return defaultPolicy }

// Normalize canonicalizes u with the default policy.
func Normalize(u string) string { return defaultPolicy.Normalize(u) }

// IsSensitive reports whether u is sensitive under the default policy.
func IsSensitive(u string) bool { return defaultPolicy.IsSensitive(u) }

// DefaultKindAction forces kind/action for u under the default policy.
func DefaultKindAction(u string) (taxonomy.Kind, taxonomy.Action) {
	return defaultPolicy.DefaultKindAction(u)
}

// Normalize lower-cases scheme and host, drops the fragment and tracking
// parameters, sorts the query by key then value and trims trailing slashes.
// Values without a host are returned trimmed but otherwise unchanged.
// Normalize is idempotent.
func (p *Policy) Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}

	type pair struct{ k, v string }
	var kept []pair
	for _, kv := range splitQuery(u.RawQuery) {
		lk := strings.ToLower(kv[0])
		if strings.HasPrefix(lk, "utm_") || p.trackingParams[lk] {
			continue
		}
		kept = append(kept, pair{kv[0], kv[1]})
	}
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].k != kept[j].k {
			return kept[i].k < kept[j].k
		}
		return kept[i].v < kept[j].v
	})
	parts := make([]string, 0, len(kept))
	for _, kv := range kept {
		parts = append(parts, url.QueryEscape(kv.k)+"="+url.QueryEscape(kv.v))
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme == "" {
		scheme = "https"
	}
	return compose(scheme, u, trimSlash(u.EscapedPath()), strings.Join(parts, "&"))
}

// DomainOf returns the lower-cased host (with port) of u, or UnknownDomain.
func DomainOf(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return UnknownDomain
	}
	return strings.ToLower(u.Host)
}

// HostMatchesBase reports whether host equals base or is a subdomain of it.
func HostMatchesBase(host, base string) bool {
	return MatchHost(host, base, true, false)
}

// MatchHost compares host against base. With suffix set, subdomains of base
// match too. With stripWWW set, a leading "www." on host is ignored.
func MatchHost(host, base string, suffix, stripWWW bool) bool {
	h := strings.ToLower(strings.TrimSpace(host))
	b := strings.ToLower(strings.TrimSpace(base))
	if h == "" || b == "" {
		return false
	}
	if stripWWW {
		h = strings.TrimPrefix(h, "www.")
	}
	if h == b {
		return true
	}
	return suffix && strings.HasSuffix(h, "."+b)
}

// HostMatchesAny reports whether host matches any base (suffix semantics).
func HostMatchesAny(host string, bases []string) bool {
	for _, b := range bases {
		if HostMatchesBase(host, b) {
			return true
		}
	}
	return false
}

// IsPrivateOrLoopbackHost reports whether host is localhost, an mDNS name or
// a private, loopback or link-local address.
func IsPrivateOrLoopbackHost(host string) bool {
	h := strings.ToLower(strings.TrimSpace(host))
	switch h {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	if strings.HasSuffix(h, ".local") {
		return true
	}
	addr, err := netip.ParseAddr(strings.Trim(h, "[]"))
	if err != nil {
		return false
	}
	return addr.IsPrivate() || addr.IsLoopback() || addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast()
}

// MatchesSensitiveHostOrPath checks host and path against markers. A marker
// containing "/" matches a host base plus a path prefix.
func MatchesSensitiveHostOrPath(host, path string, markers []string) bool {
	host = strings.ToLower(strings.TrimSpace(host))
	path = strings.ToLower(strings.TrimSpace(path))
	for _, m := range markers {
		needle := strings.ToLower(strings.TrimSpace(m))
		if needle == "" {
			continue
		}
		if mh, mp, ok := strings.Cut(needle, "/"); ok {
			if HostMatchesBase(host, mh) && strings.HasPrefix(path, "/"+mp) {
				return true
			}
			continue
		}
		if HostMatchesBase(host, needle) {
			return true
		}
	}
	return false
}

// IsSensitive reports whether the URL is local, internal, auth-related or
// carries sensitive query keys. Unparseable values are sensitive.
func (p *Policy) IsSensitive(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return true
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return true
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return true
	}
	if MatchesSensitiveHostOrPath(host, u.Path, p.sensitiveHosts) {
		return true
	}
	if IsPrivateOrLoopbackHost(host) {
		return true
	}
	lower := strings.ToLower(raw)
	for _, hint := range p.authPathHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	for _, kv := range splitQuery(u.RawQuery) {
		if p.sensitiveQueryKeys[strings.ToLower(strings.TrimSpace(kv[0]))] {
			return true
		}
	}
	return false
}

// DefaultKindAction returns the kind and action forced on a URL by its
// sensitivity class: local, auth or internal pages are ignored, anything
// else is misc/triage.
func (p *Policy) DefaultKindAction(raw string) (taxonomy.Kind, taxonomy.Action) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return taxonomy.KindInternal, taxonomy.ActionIgnore
	}
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	if scheme == "file" {
		return taxonomy.KindLocal, taxonomy.ActionIgnore
	}
	if host == "" {
		return taxonomy.KindInternal, taxonomy.ActionIgnore
	}
	if IsPrivateOrLoopbackHost(host) {
		return taxonomy.KindLocal, taxonomy.ActionIgnore
	}
	lower := strings.ToLower(raw)
	for _, hint := range p.authPathHints {
		if strings.Contains(lower, hint) {
			return taxonomy.KindAuth, taxonomy.ActionIgnore
		}
	}
	if MatchesSensitiveHostOrPath(host, u.Path, p.sensitiveHosts) {
		return taxonomy.KindAuth, taxonomy.ActionIgnore
	}
	if scheme != "http" && scheme != "https" {
		return taxonomy.KindInternal, taxonomy.ActionIgnore
	}
	return taxonomy.KindMisc, taxonomy.ActionTriage
}

// splitQuery decodes a raw query into ordered key/value pairs, keeping blank
// values and skipping undecodable pairs.
func splitQuery(raw string) [][2]string {
	var out [][2]string
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == '&' }) {
		k, v, _ := strings.Cut(part, "=")
		dk, err := url.QueryUnescape(k)
		if err != nil {
			continue
		}
		dv, err := url.QueryUnescape(v)
		if err != nil {
			continue
		}
		if dk == "" {
			continue
		}
		out = append(out, [2]string{dk, dv})
	}
	return out
}

func compose(scheme string, u *url.URL, path, query string) string {
	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString("://")
	if u.User != nil {
		b.WriteString(u.User.String())
		b.WriteByte('@')
	}
	b.WriteString(strings.ToLower(u.Host))
	b.WriteString(path)
	if query != "" {
		b.WriteByte('?')
		b.WriteString(query)
	}
	return b.String()
}

// trimSlash drops trailing slashes but keeps the root. Trimming all of them
// keeps Normalize idempotent for paths like "/a//".
func trimSlash(path string) string {
	path = strings.TrimRight(path, "/")
	if path == "" {
		return "/"
	}
	return path
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
