package pipeline

import (
	"github.com/hpungsan/tabdigest/internal/classify"
	"github.com/hpungsan/tabdigest/internal/effort"
	"github.com/hpungsan/tabdigest/internal/rules"
	"github.com/hpungsan/tabdigest/internal/urlnorm"
)

// Explanation is the local view of a single URL: what the pipeline would
// pick for it with the remote classifier off, plus the effort reasoning.
type Explanation struct {
	URL            string          `json:"url"`
	NormalizedURL  string          `json:"normalized_url"`
	Domain         string          `json:"domain"`
	Sensitive      bool            `json:"sensitive"`
	Classification classify.Result `json:"classification"`
	Effort         effort.Decision `json:"effort"`
}

// Explain classifies one URL locally. A nil r uses the embedded rules.
func Explain(r *rules.Rules, title, rawURL string) Explanation {
	tk := newToolkit(r)
	clean := tk.policy.Normalize(rawURL)
	domain := urlnorm.DomainOf(clean)
	sensitive := tk.policy.IsSensitive(clean)

	var c choice
	if sensitive {
		kind, action := tk.policy.DefaultKindAction(clean)
		c = choice{topic: classify.SafeTopic(nil, domain), kind: kind, action: action, score: sensitiveScore}
	} else {
		c = localChoice(tk, classify.Input{Title: title, URL: clean, Domain: domain})
	}

	return Explanation{
		URL:           rawURL,
		NormalizedURL: clean,
		Domain:        domain,
		Sensitive:     sensitive,
		Classification: classify.Result{
			Topic:  c.topic,
			Kind:   c.kind,
			Action: c.action,
			Score:  c.score,
		},
		Effort: tk.effort.Resolve(effort.Input{
			Kind:   c.kind,
			Action: c.action,
			Title:  title,
			URL:    clean,
			Domain: domain,
		}),
	}
}
