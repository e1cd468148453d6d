// Package effort estimates how much time and attention an item needs.
//
// The estimate starts from a base level chosen by kind and action, then
// applies independent text signals (content phrases, parsed durations,
// complexity phrases and kind-specific phrases). An upstream advisory effort
// is accepted only when it lands within one level of the derived value.
package effort

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/hpungsan/tabdigest/internal/rules"
	"github.com/hpungsan/tabdigest/internal/taxonomy"
)

// Reason tags recorded in Decision.Reasons.
const (
	ReasonBaseSensitive    = "base:sensitive_or_local"
	ReasonBaseDeep         = "base:deep_kind_or_action"
	ReasonBaseGeneral      = "base:general"
	ReasonDeepContent      = "signal:deep_content"
	ReasonQuickContent     = "signal:quick_content"
	ReasonDurationVeryLong = "signal:duration_very_long"
	ReasonDurationLong     = "signal:duration_long"
	ReasonDurationShort    = "signal:duration_short"
	ReasonComplexityDeep   = "signal:complexity_deep"
	ReasonComplexityQuick  = "signal:complexity_quick"
	ReasonKindDeep         = "signal:kind_deep"
	ReasonKindQuick        = "signal:kind_quick"
	ReasonAdvisoryAccepted = "advisory:accepted"
	ReasonAdvisoryRejected = "advisory:rejected"
)

// Input is everything the estimator looks at.
type Input struct {
	Kind   taxonomy.Kind
	Action taxonomy.Action
	Title  string
	URL    string
	Domain string
	// Provided is an advisory effort from an upstream classifier. Values
	// outside the effort set are ignored.
	Provided string
}

// Decision is the explainable result of an estimate.
type Decision struct {
	Effort         taxonomy.Effort `json:"effort"`
	DerivedEffort  taxonomy.Effort `json:"derived_effort"`
	DerivedLevel   int             `json:"derived_level"`
	FinalLevel     int             `json:"final_level"`
	ProvidedEffort taxonomy.Effort `json:"provided_effort,omitempty"`
	Reasons        []string        `json:"reasons"`
}

// Estimator applies one set of effort phrase tables.
type Estimator struct {
	t rules.EffortRules
}

// New returns an estimator over r's effort tables.
func New(r *rules.Rules) *Estimator {
	return &Estimator{t: r.Effort}
}

var defaultEstimator = New(rules.Default())

// Default returns the estimator built on the embedded rules.
func Default() *Estimator { return defaultEstimator }

// Resolve runs the default estimator.
func Resolve(in Input) Decision { return defaultEstimator.Resolve(in) }

// Resolve computes the effort decision for one item.
func (e *Estimator) Resolve(in Input) Decision {
	kind := taxonomy.Kind(strings.ToLower(strings.TrimSpace(string(in.Kind))))
	level, reason := baseLevel(kind, in.Action)
	reasons := []string{reason}
	blob := buildBlob(in.Title, in.URL, in.Domain)

	if containsAny(blob, e.t.DeepContent) {
		level++
		reasons = append(reasons, ReasonDeepContent)
	}
	if containsAny(blob, e.t.QuickContent) {
		level--
		reasons = append(reasons, ReasonQuickContent)
	}

	if minutes, ok := DurationMinutes(blob); ok {
		switch {
		case minutes >= 180:
			level += 2
			reasons = append(reasons, ReasonDurationVeryLong)
		case minutes >= 90:
			level++
			reasons = append(reasons, ReasonDurationLong)
		case minutes <= 20:
			level--
			reasons = append(reasons, ReasonDurationShort)
		}
	}

	if containsAny(blob, e.t.DeepComplexity) {
		level++
		reasons = append(reasons, ReasonComplexityDeep)
	}
	if containsAny(blob, e.t.QuickComplexity) {
		level--
		reasons = append(reasons, ReasonComplexityQuick)
	}

	if containsAny(blob, e.t.KindDeep[string(kind)]) {
		level++
		reasons = append(reasons, ReasonKindDeep)
	}
	if containsAny(blob, e.t.KindQuick[string(kind)]) {
		level--
		reasons = append(reasons, ReasonKindQuick)
	}

	derived := clampLevel(level)
	final := derived
	advisory, ok := taxonomy.ParseEffort(in.Provided)
	if ok {
		if abs(advisory.Level()-derived) <= 1 {
			final = advisory.Level()
			reasons = append(reasons, ReasonAdvisoryAccepted)
		} else {
			reasons = append(reasons, ReasonAdvisoryRejected)
		}
	}

	return Decision{
		Effort:         taxonomy.EffortForLevel(final),
		DerivedEffort:  taxonomy.EffortForLevel(derived),
		DerivedLevel:   derived,
		FinalLevel:     final,
		ProvidedEffort: advisory,
		Reasons:        reasons,
	}
}

func baseLevel(kind taxonomy.Kind, action taxonomy.Action) (int, string) {
	switch {
	case kind.IsSensitive():
		return 0, ReasonBaseSensitive
	case kind == taxonomy.KindPaper || kind == taxonomy.KindSpec ||
		taxonomy.CanonicalAction(string(action)) == taxonomy.ActionDeepWork:
		return 2, ReasonBaseDeep
	}
	return 1, ReasonBaseGeneral
}

// buildBlob joins the lower-cased title, URL and host. The host comes from
// domain, or from the URL when domain is empty.
func buildBlob(title, rawURL, domain string) string {
	t := strings.ToLower(title)
	u := strings.ToLower(rawURL)
	host := strings.ToLower(strings.TrimSpace(domain))
	if host == "" && u != "" {
		if parsed, err := url.Parse(u); err == nil {
			host = parsed.Hostname()
		}
	}
	return t + " " + u + " " + host
}

// Go's RE2 has no lookbehind; a leading non-digit group stands in for it.
var (
	hmsPattern      = regexp.MustCompile(`\b(\d{1,2}):([0-5]\d):([0-5]\d)\b`)
	hourPattern     = regexp.MustCompile(`(?:^|\D)(\d{1,2}(?:\.\d+)?)\s*(?:h|hr|hrs|hour|hours)\b`)
	hourDashPattern = regexp.MustCompile(`(?:^|\D)(\d{1,2})-hour\b`)
	minPattern      = regexp.MustCompile(`(?:^|\D)(\d{1,3})\s*(?:m|min|mins|minute|minutes)\b`)
	hourMinPattern  = regexp.MustCompile(`(?:^|\D)(\d{1,2})\s*(?:h|hr|hrs|hour|hours)\s*(\d{1,2})\s*(?:m|min|mins|minute|minutes)\b`)
)

// DurationMinutes returns the longest duration mentioned in blob, parsed from
// "1h 30m", "1:02:03", "2h", "3-hour" or "45 min" forms.
func DurationMinutes(blob string) (float64, bool) {
	var values []float64
	for _, m := range hourMinPattern.FindAllStringSubmatch(blob, -1) {
		values = append(values, num(m[1])*60+num(m[2]))
	}
	for _, m := range hmsPattern.FindAllStringSubmatch(blob, -1) {
		values = append(values, num(m[1])*60+num(m[2])+num(m[3])/60)
	}
	for _, m := range hourPattern.FindAllStringSubmatch(blob, -1) {
		values = append(values, num(m[1])*60)
	}
	for _, m := range hourDashPattern.FindAllStringSubmatch(blob, -1) {
		values = append(values, num(m[1])*60)
	}
	for _, m := range minPattern.FindAllStringSubmatch(blob, -1) {
		values = append(values, num(m[1]))
	}
	if len(values) == 0 {
		return 0, false
	}
	longest := values[0]
	for _, v := range values[1:] {
		if v > longest {
			longest = v
		}
	}
	return longest, true
}

func num(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func containsAny(blob string, hints []string) bool {
	for _, h := range hints {
		if h != "" && strings.Contains(blob, h) {
			return true
		}
	}
	return false
}

func clampLevel(level int) int {
	if level < 0 {
		return 0
	}
	if level > 2 {
		return 2
	}
	return level
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
