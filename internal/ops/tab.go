package ops

import (
	"strings"

	"github.com/hpungsan/tabdigest/internal/errors"
	"github.com/hpungsan/tabdigest/internal/pipeline"
	"github.com/hpungsan/tabdigest/internal/urlnorm"
)

// ClassifyTabInput contains parameters for the ClassifyTab operation.
type ClassifyTabInput struct {
	URL   string // required
	Title string
}

// ClassifyTab explains how the local rules see one tab.
func ClassifyTab(deps Deps, input ClassifyTabInput) (*pipeline.Explanation, error) {
	u := strings.TrimSpace(input.URL)
	if u == "" {
		return nil, errors.NewInputRejected("url is required")
	}
	e := pipeline.Explain(deps.Rules, strings.TrimSpace(input.Title), u)
	return &e, nil
}

// NormalizeURLInput contains parameters for the NormalizeURL operation.
type NormalizeURLInput struct {
	URL string // required
}

// NormalizeURLOutput contains the result of the NormalizeURL operation.
type NormalizeURLOutput struct {
	Normalized string `json:"normalized"`
	Domain     string `json:"domain"`
	Sensitive  bool   `json:"sensitive"`
}

// NormalizeURL canonicalizes a URL and reports its sensitivity.
func NormalizeURL(deps Deps, input NormalizeURLInput) (*NormalizeURLOutput, error) {
	u := strings.TrimSpace(input.URL)
	if u == "" {
		return nil, errors.NewInputRejected("url is required")
	}
	policy := deps.policy()
	clean := policy.Normalize(u)
	return &NormalizeURLOutput{
		Normalized: clean,
		Domain:     urlnorm.DomainOf(clean),
		Sensitive:  policy.IsSensitive(clean),
	}, nil
}
