// Package taxonomy defines the closed value sets shared by the classifier,
// the effort estimator and the digest renderer.
package taxonomy

import "strings"

// Kind is the content-type taxonomy value of an item.
type Kind string

const (
	KindVideo    Kind = "video"
	KindMusic    Kind = "music"
	KindRepo     Kind = "repo"
	KindPaper    Kind = "paper"
	KindDocs     Kind = "docs"
	KindArticle  Kind = "article"
	KindTool     Kind = "tool"
	KindMisc     Kind = "misc"
	KindLocal    Kind = "local"
	KindAuth     Kind = "auth"
	KindInternal Kind = "internal"

	// Presentation-only kinds produced by the renderer.
	KindSpec  Kind = "spec"
	KindAdmin Kind = "admin"
)

// ClassifierKinds lists the kinds a classifier (local or LLM) may emit, in
// prompt order.
var ClassifierKinds = []Kind{
	KindVideo, KindMusic, KindRepo, KindPaper, KindDocs, KindArticle,
	KindTool, KindMisc, KindLocal, KindAuth, KindInternal,
}

// RendererKinds lists every kind the renderer accepts from a payload.
var RendererKinds = append(append([]Kind{}, ClassifierKinds...), KindSpec, KindAdmin)

// ParseKind returns the kind named by s and whether it is a classifier kind.
func ParseKind(s string) (Kind, bool) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range ClassifierKinds {
		if k == known {
			return k, true
		}
	}
	return "", false
}

// ParseRendererKind is ParseKind extended with the presentation-only kinds.
func ParseRendererKind(s string) (Kind, bool) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range RendererKinds {
		if k == known {
			return k, true
		}
	}
	return "", false
}

// IsSensitive reports whether the kind marks a local, auth or internal page.
func (k Kind) IsSensitive() bool {
	switch k {
	case KindLocal, KindAuth, KindInternal:
		return true
	}
	return false
}

// IsReading reports whether the kind belongs in the reading queue.
func (k Kind) IsReading() bool {
	switch k {
	case KindPaper, KindDocs, KindSpec, KindArticle:
		return true
	}
	return false
}

// kindPriority orders kinds for high-priority tie breaking.
var kindPriority = []Kind{
	KindPaper, KindSpec, KindDocs, KindRepo, KindArticle,
	KindVideo, KindTool, KindMisc, KindAdmin,
}

// PriorityRank returns the tie-break rank of k; unknown kinds sort last.
func PriorityRank(k Kind) int {
	for i, known := range kindPriority {
		if k == known {
			return i
		}
	}
	return len(kindPriority)
}

// Action is the suggested next step for an item.
type Action string

const (
	ActionRead      Action = "read"
	ActionWatch     Action = "watch"
	ActionReference Action = "reference"
	ActionBuild     Action = "build"
	ActionTriage    Action = "triage"
	ActionIgnore    Action = "ignore"
	ActionDeepWork  Action = "deep_work"
)

// Actions lists the canonical actions in prompt order.
var Actions = []Action{
	ActionRead, ActionWatch, ActionReference, ActionBuild,
	ActionTriage, ActionIgnore, ActionDeepWork,
}

// actionAliases maps legacy and synonym vocabulary onto canonical actions.
var actionAliases = map[string]Action{
	"implement": ActionBuild,
	"debug":     ActionTriage,
	"decide":    ActionReference,
	"learn":     ActionRead,
	"explore":   ActionRead,
	"skim":      ActionIgnore,
	"entertain": ActionWatch,
	"relax":     ActionWatch,
	"ephemeral": ActionIgnore,
	"listen":    ActionWatch,
	"browse":    ActionRead,
	"view":      ActionRead,
}

// CanonicalAction lowercases s and resolves aliases. Unknown values are
// returned lowercased so callers can decide how to treat them.
func CanonicalAction(s string) Action {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return ""
	}
	if a, ok := actionAliases[v]; ok {
		return a
	}
	return Action(v)
}

// ParseAction resolves aliases and reports whether the result is canonical.
func ParseAction(s string) (Action, bool) {
	a := CanonicalAction(s)
	for _, known := range Actions {
		if a == known {
			return a, true
		}
	}
	return "", false
}

// PriorityWeight is the high-priority score adjustment for an action.
func (a Action) PriorityWeight() int {
	switch CanonicalAction(string(a)) {
	case ActionBuild, ActionDeepWork:
		return 2
	case ActionReference, ActionRead, ActionTriage:
		return 1
	case ActionWatch:
		return -1
	case ActionIgnore:
		return -3
	}
	return 0
}

// Effort is the coarse time/complexity band for consuming an item.
type Effort string

const (
	EffortQuick  Effort = "quick"
	EffortMedium Effort = "medium"
	EffortDeep   Effort = "deep"
)

// ParseEffort returns the effort named by s, if any.
func ParseEffort(s string) (Effort, bool) {
	switch e := Effort(strings.ToLower(strings.TrimSpace(s))); e {
	case EffortQuick, EffortMedium, EffortDeep:
		return e, true
	}
	return "", false
}

// Level maps an effort onto 0..2.
func (e Effort) Level() int {
	switch e {
	case EffortQuick:
		return 0
	case EffortDeep:
		return 2
	}
	return 1
}

// EffortForLevel is the inverse of Level; out-of-range levels are clamped.
func EffortForLevel(level int) Effort {
	switch {
	case level <= 0:
		return EffortQuick
	case level >= 2:
		return EffortDeep
	}
	return EffortMedium
}

// DomainCategory is the coarse classification of a host.
type DomainCategory string

const (
	CategoryAdminLocal    DomainCategory = "admin_local"
	CategoryAdminInternal DomainCategory = "admin_internal"
	CategoryAdminChat     DomainCategory = "admin_chat"
	CategoryAdminAuth     DomainCategory = "admin_auth"
	CategoryCodeHost      DomainCategory = "code_host"
	CategoryVideo         DomainCategory = "video"
	CategoryMusic         DomainCategory = "music"
	CategoryConsole       DomainCategory = "console"
	CategoryDocsSite      DomainCategory = "docs_site"
	CategoryBlog          DomainCategory = "blog"
	CategoryGeneric       DomainCategory = "generic"
)

// IsAdmin reports whether the category must be isolated in the admin bucket.
func (c DomainCategory) IsAdmin() bool {
	return strings.HasPrefix(string(c), "admin_")
}

// Bucket names a presentation section.
type Bucket string

const (
	BucketHigh     Bucket = "HIGH"
	BucketMedia    Bucket = "MEDIA"
	BucketRepos    Bucket = "REPOS"
	BucketProjects Bucket = "PROJECTS"
	BucketTools    Bucket = "TOOLS"
	BucketDocs     Bucket = "DOCS"
	BucketQuick    Bucket = "QUICK"
	BucketBacklog  Bucket = "BACKLOG"
	BucketAdmin    Bucket = "ADMIN"
)

// SectionOrder is the fixed canonical order of rendered sections.
var SectionOrder = []Bucket{
	BucketHigh, BucketMedia, BucketRepos, BucketProjects, BucketTools,
	BucketDocs, BucketQuick, BucketBacklog, BucketAdmin,
}
