// Package pipeline turns captured tabs into an enriched digest payload. Per
// item it chooses between the remote classifier, the local rules and plain
// defaults, then estimates effort and records how the choice went.
package pipeline

import (
	"context"
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/hpungsan/tabdigest/internal/classify"
	"github.com/hpungsan/tabdigest/internal/config"
	"github.com/hpungsan/tabdigest/internal/digest"
	"github.com/hpungsan/tabdigest/internal/effort"
	"github.com/hpungsan/tabdigest/internal/errors"
	"github.com/hpungsan/tabdigest/internal/llm"
	"github.com/hpungsan/tabdigest/internal/logging"
	"github.com/hpungsan/tabdigest/internal/rules"
	"github.com/hpungsan/tabdigest/internal/tabdump"
	"github.com/hpungsan/tabdigest/internal/taxonomy"
	"github.com/hpungsan/tabdigest/internal/urlnorm"
)

const (
	sensitiveScore    = 3
	topicConfidence   = 0.8
	defaultIntentBase = 3
)

// Remote classifies non-sensitive items out of process. Answers are keyed by
// request id and are untrusted.
type Remote interface {
	Classify(ctx context.Context, reqs []llm.Request, urlToID map[string]int) (map[int]llm.Entry, []llm.ChunkStats)
}

// Input is one captured batch.
type Input struct {
	Items     []tabdump.Item
	Created   string
	Source    string
	TabdumpID string
}

// Deps are the collaborators and knobs of a run.
type Deps struct {
	Settings config.Settings
	// Remote is nil when remote classification is off or could not be set
	// up. A nil Remote with Settings.LLMEnabled is reported and the run
	// uses local rules.
	Remote Remote
	Rules  *rules.Rules
	Logger zerolog.Logger
}

// Diagnostics describe how classification went for a run.
type Diagnostics struct {
	RunID         string           `json:"run_id"`
	Requested     bool             `json:"requested"`
	Active        bool             `json:"active"`
	NonSensitive  int              `json:"non_sensitive"`
	Mapped        int              `json:"mapped"`
	Unmapped      int              `json:"unmapped"`
	Coverage      float64          `json:"coverage"`
	MinCoverage   float64          `json:"min_coverage"`
	FallbackLocal int              `json:"fallback_local"`
	Defaulted     int              `json:"defaulted"`
	ActionPolicy  string           `json:"action_policy"`
	Chunks        []llm.ChunkStats `json:"chunks,omitempty"`
}

// Output is the enriched payload plus run diagnostics.
type Output struct {
	Payload     *digest.Payload
	Diagnostics Diagnostics
}

// NewRemote builds the OpenAI-backed classifier from settings. A missing API
// key yields a ClassificationUnavailable error.
func NewRemote(s config.Settings, log zerolog.Logger) (Remote, error) {
	client, err := llm.NewOpenAIClient(llm.ClientConfig{
		APIKey:      s.OpenAIAPIKey,
		BaseURL:     s.OpenAIBaseURL,
		Model:       s.Model,
		Temperature: s.Temperature,
		Logger:      log,
	})
	if err != nil {
		return nil, err
	}
	return llm.NewClassifier(client, llm.Options{
		ChunkSize:   s.ChunkSize,
		MaxItems:    s.MaxItems,
		Redact:      s.Redact,
		RedactQuery: s.RedactQuery,
		TitleMax:    s.TitleMax,
		RPS:         s.RPS,
		Logger:      log,
	}), nil
}

// NewRunID returns a fresh ULID for log correlation.
func NewRunID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

type toolkit struct {
	local  *classify.Classifier
	policy *urlnorm.Policy
	effort *effort.Estimator
}

func newToolkit(r *rules.Rules) toolkit {
	if r == nil {
		return toolkit{classify.Default(), urlnorm.DefaultPolicy(), effort.Default()}
	}
	return toolkit{classify.New(r), urlnorm.NewPolicy(r), effort.New(r)}
}

// Build enriches every item in order. An input without a tabdump id or
// without items is rejected. It never fails on classifier trouble:
// unmapped items fall back to local rules when remote coverage is below the
// threshold and to defaults otherwise.
func Build(ctx context.Context, in Input, deps Deps) (*Output, error) {
	if strings.TrimSpace(in.TabdumpID) == "" {
		return nil, errors.NewMissingProvenance()
	}
	if len(in.Items) == 0 {
		return nil, errors.NewNoItems()
	}

	tk := newToolkit(deps.Rules)
	diag := Diagnostics{
		RunID:        NewRunID(),
		Requested:    deps.Settings.LLMEnabled,
		MinCoverage:  config.ClampCoverage(deps.Settings.MinLLMCoverage),
		ActionPolicy: config.NormalizeActionPolicy(deps.Settings.ActionPolicy),
	}
	log := logging.WithRun(deps.Logger, diag.RunID)

	sensitive := make([]bool, len(in.Items))
	urlToID := make(map[string]int, len(in.Items))
	var reqs []llm.Request
	for i, it := range in.Items {
		// The remote side looks up echoed URLs with the default policy.
		urlToID[urlnorm.Normalize(it.CleanURL)] = i
		sensitive[i] = tk.policy.IsSensitive(it.CleanURL)
		if !sensitive[i] {
			reqs = append(reqs, llm.Request{ID: i, Title: it.Title, URL: it.CleanURL, Domain: it.Domain})
		}
	}
	diag.NonSensitive = len(reqs)

	var answers map[int]llm.Entry
	if diag.Requested {
		if deps.Remote == nil {
			log.Warn().Msg("LLM disabled: OpenAI API key not found; using local classifier")
		} else {
			diag.Active = true
			answers, diag.Chunks = deps.Remote.Classify(ctx, reqs, urlToID)
		}
	}

	if diag.Active {
		for _, r := range reqs {
			if _, ok := answers[r.ID]; ok {
				diag.Mapped++
			}
		}
		diag.Unmapped = diag.NonSensitive - diag.Mapped
		if diag.NonSensitive > 0 {
			diag.Coverage = float64(diag.Mapped) / float64(diag.NonSensitive)
		}
	}
	fallbackLocal := !diag.Active || diag.Coverage < diag.MinCoverage

	items := make([]digest.PayloadItem, 0, len(in.Items))
	for i, it := range in.Items {
		ci := classify.Input{Title: it.Title, URL: it.CleanURL, Domain: it.Domain}
		var c choice
		entry, mapped := answers[i]
		switch {
		case sensitive[i]:
			c = sensitiveChoice(tk, it)
		case mapped:
			c = remoteChoice(tk, entry, ci, diag.ActionPolicy)
		case fallbackLocal:
			if diag.Active {
				diag.FallbackLocal++
			}
			c = localChoice(tk, ci)
		default:
			diag.Defaulted++
			c = choice{
				topic:  classify.SafeTopic(nil, it.Domain),
				kind:   taxonomy.KindMisc,
				action: taxonomy.ActionTriage,
			}
		}
		items = append(items, c.payloadItem(tk, it))
	}

	log.Info().
		Bool("requested", diag.Requested).
		Bool("active", diag.Active).
		Int("non_sensitive", diag.NonSensitive).
		Int("mapped", diag.Mapped).
		Int("unmapped", diag.Unmapped).
		Float64("coverage", diag.Coverage).
		Float64("min_coverage", diag.MinCoverage).
		Int("fallback_local", diag.FallbackLocal).
		Int("defaulted", diag.Defaulted).
		Str("action_policy", diag.ActionPolicy).
		Msg("classify diagnostics")

	return &Output{
		Payload: &digest.Payload{
			Meta: digest.Meta{
				Created:   in.Created,
				Source:    in.Source,
				TabdumpID: in.TabdumpID,
			},
			Counts: digest.Counts{Total: len(items), Dumped: len(items)},
			Items:  items,
		},
		Diagnostics: diag,
	}, nil
}

// choice is the classification picked for one item before effort and
// payload shaping.
type choice struct {
	topic    string
	kind     taxonomy.Kind
	action   taxonomy.Action
	score    int
	advisory string
}

func sensitiveChoice(tk toolkit, it tabdump.Item) choice {
	kind, action := tk.policy.DefaultKindAction(it.CleanURL)
	return choice{
		topic:  classify.SafeTopic(nil, it.Domain),
		kind:   kind,
		action: action,
		score:  sensitiveScore,
	}
}

func remoteChoice(tk toolkit, e llm.Entry, in classify.Input, policy string) choice {
	kind := classify.SafeKind(e["kind"])
	c := choice{
		topic:  classify.SafeTopic(e["topic"], in.Domain),
		kind:   kind,
		action: ResolveAction(policy, e["action"], kind, tk.local.Action(kind, in)),
	}
	c.score, _ = classify.SafeScore(e["score"])
	if ef, ok := classify.SafeEffort(e["effort"]); ok {
		c.advisory = string(ef)
	}
	return c
}

func localChoice(tk toolkit, in classify.Input) choice {
	res := tk.local.Classify(in)
	return choice{
		topic:  classify.SafeTopic(res.Topic, in.Domain),
		kind:   classify.SafeKind(string(res.Kind)),
		action: classify.SafeAction(string(res.Action)),
		score:  res.Score,
	}
}

// ResolveAction applies the action policy to a model-suggested action.
// derived is the local rules' action for kind.
func ResolveAction(policy string, raw any, kind taxonomy.Kind, derived taxonomy.Action) taxonomy.Action {
	switch config.NormalizeActionPolicy(policy) {
	case config.PolicyRaw:
		return classify.SafeAction(raw)
	case config.PolicyDerived:
		return classify.SafeAction(string(derived))
	}
	if a, ok := classify.NormalizeAction(raw); ok && classify.IsActionCompatible(kind, a) {
		return a
	}
	return classify.SafeAction(string(derived))
}

func (c choice) payloadItem(tk toolkit, it tabdump.Item) digest.PayloadItem {
	decision := tk.effort.Resolve(effort.Input{
		Kind:     c.kind,
		Action:   c.action,
		Title:    it.Title,
		URL:      it.CleanURL,
		Domain:   it.Domain,
		Provided: c.advisory,
	})

	score := c.score
	if score == 0 {
		score = defaultIntentBase
	}

	return digest.PayloadItem{
		Title:   it.Title,
		URL:     it.CleanURL,
		NormURL: it.NormURL,
		Domain:  it.Domain,
		Browser: it.Browser,
		Kind:    string(c.kind),
		Topics: []digest.Topic{{
			Slug:       c.topic,
			Title:      cases.Title(language.Und).String(strings.ReplaceAll(c.topic, "-", " ")),
			Confidence: topicConfidence,
		}},
		Intent: digest.Intent{
			Action:     string(c.action),
			Confidence: float64(score) / 5,
		},
		Effort: string(decision.Effort),
		Flags: digest.Flags{
			IsLocal:    c.kind == taxonomy.KindLocal,
			IsAuth:     c.kind == taxonomy.KindAuth,
			IsInternal: c.kind == taxonomy.KindInternal,
		},
	}
}
