package llm

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/hpungsan/tabdigest/internal/classify"
	"github.com/hpungsan/tabdigest/internal/taxonomy"
	"github.com/hpungsan/tabdigest/internal/urlnorm"
)

const systemPrompt = "You are a strict classifier for browser tabs. Return ONLY valid JSON."

// Request is one non-sensitive item offered to the model. URL is the
// cleaned URL.
type Request struct {
	ID     int
	Title  string
	URL    string
	Domain string
}

// Entry is one raw model answer. Fields are untrusted and must go through
// the classify.Safe* coercions before use.
type Entry map[string]any

// ChunkStats are the per-chunk diagnostics.
type ChunkStats struct {
	Input         int    `json:"input"`
	ResponseItems int    `json:"response_items"`
	Mapped        int    `json:"mapped"`
	InvalidKind   int    `json:"invalid_kind"`
	InvalidAction int    `json:"invalid_action"`
	InvalidItemID int    `json:"invalid_item_id"`
	Err           string `json:"error,omitempty"`
}

// Options shape the outbound requests.
type Options struct {
	ChunkSize   int
	MaxItems    int
	Redact      bool
	RedactQuery bool
	TitleMax    int
	// RPS paces chunk calls. Zero or less disables pacing.
	RPS    float64
	Logger zerolog.Logger
}

// Classifier classifies tabs in chunks through a Chatter.
type Classifier struct {
	chat    Chatter
	opts    Options
	limiter *rate.Limiter
}

// NewClassifier returns a classifier over chat.
func NewClassifier(chat Chatter, opts Options) *Classifier {
	limit := rate.Inf
	if opts.RPS > 0 {
		limit = rate.Limit(opts.RPS)
	}
	return &Classifier{
		chat:    chat,
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Classify sends reqs in chunks and maps answers back to request ids.
// Answers without a usable id are matched by normalized URL through urlToID.
// A chunk that fails after retries contributes nothing; the run continues.
func (c *Classifier) Classify(ctx context.Context, reqs []Request, urlToID map[string]int) (map[int]Entry, []ChunkStats) {
	if c.opts.MaxItems > 0 && len(reqs) > c.opts.MaxItems {
		reqs = reqs[:c.opts.MaxItems]
	}
	known := make(map[int]bool, len(reqs))
	for _, r := range reqs {
		known[r.ID] = true
	}

	out := map[int]Entry{}
	var stats []ChunkStats
	for _, chunk := range Chunked(reqs, c.opts.ChunkSize) {
		st := ChunkStats{Input: len(chunk)}

		var raw map[string]any
		if err := c.limiter.Wait(ctx); err != nil {
			st.Err = err.Error()
		} else if raw, err = c.chat.ChatJSON(ctx, systemPrompt, c.userPrompt(chunk)); err != nil {
			st.Err = err.Error()
			c.opts.Logger.Warn().Err(err).Int("chunk_size", len(chunk)).Msg("llm classify failed")
		}

		items, _ := raw["items"].([]any)
		st.ResponseItems = len(items)
		for _, v := range items {
			m, ok := v.(map[string]any)
			if !ok {
				st.InvalidItemID++
				continue
			}
			if s, ok := m["kind"].(string); !ok || !isClassifierKind(s) {
				st.InvalidKind++
			}
			if _, ok := classify.NormalizeAction(m["action"]); !ok {
				st.InvalidAction++
			}

			id, ok := entryID(m["id"], known)
			if !ok {
				if u, _ := m["url"].(string); u != "" {
					id, ok = urlToID[urlnorm.Normalize(u)]
					ok = ok && known[id]
				}
			}
			if !ok {
				st.InvalidItemID++
				continue
			}
			out[id] = Entry(m)
			st.Mapped++
		}

		c.opts.Logger.Info().
			Int("input", st.Input).
			Int("response_items", st.ResponseItems).
			Int("mapped", st.Mapped).
			Int("invalid_kind", st.InvalidKind).
			Int("invalid_action", st.InvalidAction).
			Int("invalid_item_id", st.InvalidItemID).
			Msg("llm classify chunk")
		stats = append(stats, st)

		if ctx.Err() != nil {
			break
		}
	}
	return out, stats
}

func (c *Classifier) userPrompt(chunk []Request) string {
	lines := make([]string, 0, len(chunk))
	for _, r := range chunk {
		title, u := r.Title, r.URL
		if c.opts.Redact {
			title = urlnorm.RedactText(title, c.opts.TitleMax)
			u = urlnorm.RedactURL(u, c.opts.RedactQuery)
		}
		lines = append(lines, fmt.Sprintf("- %d | %s | %s | %s", r.ID, title, u, r.Domain))
	}
	return promptHeader() + strings.Join(lines, "\n")
}

func promptHeader() string {
	kinds := make([]string, len(taxonomy.ClassifierKinds))
	for i, k := range taxonomy.ClassifierKinds {
		kinds[i] = string(k)
	}
	actions := make([]string, len(taxonomy.Actions))
	for i, a := range taxonomy.Actions {
		actions[i] = string(a)
	}

	var b strings.Builder
	b.WriteString("For each tab, provide:\n")
	b.WriteString("- topic: short, lowercase, kebab-case (e.g. distributed-systems, postgres, llm, finance, travel, food, shopping)\n")
	fmt.Fprintf(&b, "- kind: one of [%s]\n", strings.Join(kinds, ", "))
	fmt.Fprintf(&b, "- action: one of [%s]\n", strings.Join(actions, ", "))
	b.WriteString("- score: integer 1-5 (importance)\n\n")
	b.WriteString("- effort: one of [quick, medium, deep] (optional)\n\n")
	b.WriteString("Action rubric (choose enum only; do not use synonyms):\n")
	b.WriteString("- video/music -> watch\n")
	b.WriteString("- repo -> triage or build\n")
	b.WriteString("- tool -> triage or build\n")
	b.WriteString("- article/docs -> read or reference\n")
	b.WriteString("- paper -> read, reference, or deep_work\n")
	b.WriteString("- misc/local/internal/auth -> triage or ignore\n\n")
	b.WriteString("Return JSON like:\n")
	b.WriteString("{\n  \"items\": [\n")
	b.WriteString("    {\"id\": 123, \"topic\": \"...\", \"kind\": \"...\", \"action\": \"...\", \"score\": 3, \"effort\": \"medium\"}\n")
	b.WriteString("  ]\n}\n\n")
	b.WriteString("Use the provided id as-is; do not invent ids.\n\n")
	b.WriteString("Do not output action synonyms like listen, browse, or view.\n\n")
	return b.String()
}

// Chunked splits reqs into runs of size. A non-positive size yields one
// chunk.
func Chunked(reqs []Request, size int) [][]Request {
	if len(reqs) == 0 {
		return nil
	}
	if size <= 0 {
		return [][]Request{reqs}
	}
	var out [][]Request
	for start := 0; start < len(reqs); start += size {
		end := start + size
		if end > len(reqs) {
			end = len(reqs)
		}
		out = append(out, reqs[start:end])
	}
	return out
}

// entryID reads an integer id that names a requested item.
func entryID(v any, known map[int]bool) (int, bool) {
	var id int
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) || x != math.Trunc(x) {
			return 0, false
		}
		id = int(x)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, false
		}
		id = n
	default:
		return 0, false
	}
	return id, known[id]
}

func isClassifierKind(s string) bool {
	_, ok := taxonomy.ParseKind(s)
	return ok
}
