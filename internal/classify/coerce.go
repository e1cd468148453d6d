package classify

import (
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/hpungsan/tabdigest/internal/taxonomy"
)

// The Safe* helpers coerce loosely typed classifier output (decoded JSON)
// into the closed value sets.

// SafeTopic returns a trimmed non-empty string value, else the domain with
// dots replaced by dashes, else "misc".
func SafeTopic(v any, domain string) string {
	if s, ok := v.(string); ok {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	if domain = strings.TrimSpace(domain); domain != "" {
		return strings.ReplaceAll(domain, ".", "-")
	}
	return "misc"
}

// SafeKind returns v as a classifier kind, or misc.
func SafeKind(v any) taxonomy.Kind {
	if s, ok := v.(string); ok {
		if k, ok := taxonomy.ParseKind(s); ok {
			return k
		}
	}
	return taxonomy.KindMisc
}

// NormalizeAction resolves aliases and reports whether v names a canonical
// action.
func NormalizeAction(v any) (taxonomy.Action, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	return taxonomy.ParseAction(s)
}

// SafeAction is NormalizeAction with a triage fallback.
func SafeAction(v any) taxonomy.Action {
	if a, ok := NormalizeAction(v); ok {
		return a
	}
	return taxonomy.ActionTriage
}

// SafeScore parses an integer score and clamps it to 0..5. Non-integral
// strings and non-numeric values yield false.
func SafeScore(v any) (int, bool) {
	var n int
	switch x := v.(type) {
	case int:
		n = x
	case int64:
		n = int(x)
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, false
		}
		n = int(x)
	case json.Number:
		i, err := strconv.Atoi(x.String())
		if err != nil {
			return 0, false
		}
		n = i
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, false
		}
		n = i
	case bool:
		if x {
			n = 1
		}
	default:
		return 0, false
	}
	return clamp(n, 0, 5), true
}

// SafeEffort returns v as an effort band.
func SafeEffort(v any) (taxonomy.Effort, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	return taxonomy.ParseEffort(s)
}

// SafePrio returns "p1".."p3" or "".
func SafePrio(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	switch s = strings.ToLower(strings.TrimSpace(s)); s {
	case "p1", "p2", "p3":
		return s
	}
	return ""
}

var compatibleActions = map[taxonomy.Kind][]taxonomy.Action{
	taxonomy.KindVideo:    {taxonomy.ActionWatch, taxonomy.ActionReference},
	taxonomy.KindMusic:    {taxonomy.ActionWatch, taxonomy.ActionReference},
	taxonomy.KindRepo:     {taxonomy.ActionBuild, taxonomy.ActionTriage, taxonomy.ActionReference},
	taxonomy.KindTool:     {taxonomy.ActionBuild, taxonomy.ActionTriage, taxonomy.ActionReference},
	taxonomy.KindDocs:     {taxonomy.ActionRead, taxonomy.ActionReference, taxonomy.ActionDeepWork, taxonomy.ActionBuild},
	taxonomy.KindArticle:  {taxonomy.ActionRead, taxonomy.ActionReference, taxonomy.ActionDeepWork, taxonomy.ActionBuild},
	taxonomy.KindPaper:    {taxonomy.ActionRead, taxonomy.ActionReference, taxonomy.ActionDeepWork},
	taxonomy.KindLocal:    {taxonomy.ActionIgnore, taxonomy.ActionTriage},
	taxonomy.KindAuth:     {taxonomy.ActionIgnore, taxonomy.ActionTriage},
	taxonomy.KindInternal: {taxonomy.ActionIgnore, taxonomy.ActionTriage},
}

// IsActionCompatible reports whether a model-suggested action makes sense for
// kind. Kinds without a table entry (misc) accept any action.
func IsActionCompatible(kind taxonomy.Kind, action taxonomy.Action) bool {
	allowed, ok := compatibleActions[kind]
	if !ok {
		return true
	}
	for _, a := range allowed {
		if a == action {
			return true
		}
	}
	return false
}
