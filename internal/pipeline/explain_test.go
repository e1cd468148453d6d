package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hpungsan/tabdigest/internal/classify"
	"github.com/hpungsan/tabdigest/internal/taxonomy"
)

func TestExplain(t *testing.T) {
	t.Run("sensitive", func(t *testing.T) {
		e := Explain(nil, "Sign in", "https://Example.com/login?utm_source=x")
		assert.True(t, e.Sensitive)
		assert.Equal(t, "https://example.com/login", e.NormalizedURL)
		assert.Equal(t, "example.com", e.Domain)
		assert.Equal(t, classify.Result{Topic: "example-com", Kind: taxonomy.KindAuth, Action: taxonomy.ActionIgnore, Score: 3}, e.Classification)
		assert.Equal(t, taxonomy.EffortQuick, e.Effort.Effort)
	})

	t.Run("local rules", func(t *testing.T) {
		e := Explain(nil, "Effective Go", "https://go.dev/doc/effective_go/")
		assert.False(t, e.Sensitive)
		assert.Equal(t, "https://go.dev/doc/effective_go", e.NormalizedURL)
		want := classify.Classify(classify.Input{Title: "Effective Go", URL: e.NormalizedURL, Domain: "go.dev"})
		assert.Equal(t, want, e.Classification)
		assert.NotEmpty(t, e.Effort.Reasons)
	})
}
