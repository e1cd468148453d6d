package urlnorm

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
)

var (
	controlChars = regexp.MustCompile(`[\x00-\x1f\x7f]`)
	sensitiveKV  = regexp.MustCompile(`(?i)\b(token|secret|api[-_]?key|auth|session|password|passwd|code|sig|signature)\s*[:=]\s*([^\s&]+)`)
)

// StripControlChars removes ASCII control characters.
func StripControlChars(s string) string {
	return controlChars.ReplaceAllString(s, "")
}

// RedactText prepares a title for an outbound classifier call: control
// characters are stripped, secret-looking key/value pairs are masked and the
// result is capped at maxTitle runes (0 disables the cap).
func RedactText(text string, maxTitle int) string {
	text = StripControlChars(text)
	text = sensitiveKV.ReplaceAllString(text, "${1}=[REDACTED]")
	if maxTitle > 0 {
		runes := []rune(text)
		if len(runes) > maxTitle {
			text = string(runes[:maxTitle]) + "..."
		}
	}
	return text
}

// RedactURL prepares a URL for an outbound classifier call. Scheme and host
// are lower-cased and the fragment is dropped. When redactQuery is set every
// query value becomes REDACTED and keys are sorted.
func RedactURL(raw string, redactQuery bool) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}

	query := u.RawQuery
	if query != "" && redactQuery {
		pairs := splitQuery(query)
		keys := make([]string, 0, len(pairs))
		for _, kv := range pairs {
			keys = append(keys, kv[0])
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, url.QueryEscape(k)+"=REDACTED")
		}
		query = strings.Join(parts, "&")
	}

	// Credentials in userinfo never leave the process.
	u.User = nil
	scheme := strings.ToLower(u.Scheme)
	if scheme == "" {
		scheme = "https"
	}
	return compose(scheme, u, trimSlash(u.EscapedPath()), query)
}
