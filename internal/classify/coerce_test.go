package classify

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"

	"github.com/hpungsan/tabdigest/internal/taxonomy"
)

func TestSafeTopic(t *testing.T) {
	assert.Equal(t, "go", SafeTopic("  go ", "example.com"))
	assert.Equal(t, "example-com", SafeTopic("", "example.com"))
	assert.Equal(t, "example-com", SafeTopic(42, "example.com"))
	assert.Equal(t, "misc", SafeTopic(nil, ""))
}

func TestSafeKind(t *testing.T) {
	assert.Equal(t, taxonomy.KindMusic, SafeKind("Music"))
	assert.Equal(t, taxonomy.KindRepo, SafeKind(" repo "))
	assert.Equal(t, taxonomy.KindMisc, SafeKind("admin"))
	assert.Equal(t, taxonomy.KindMisc, SafeKind(nil))
}

func TestSafeAction(t *testing.T) {
	tests := []struct {
		in   any
		want taxonomy.Action
		ok   bool
	}{
		{"read", taxonomy.ActionRead, true},
		{"LISTEN", taxonomy.ActionWatch, true},
		{"browse", taxonomy.ActionRead, true},
		{"view", taxonomy.ActionRead, true},
		{"implement", taxonomy.ActionBuild, true},
		{"ponder", "", false},
		{3, "", false},
	}
	for _, tt := range tests {
		a, ok := NormalizeAction(tt.in)
		assert.Equal(t, tt.ok, ok, "%v", tt.in)
		assert.Equal(t, tt.want, a, "%v", tt.in)
	}
	assert.Equal(t, taxonomy.ActionTriage, SafeAction("ponder"))
	assert.Equal(t, taxonomy.ActionWatch, SafeAction("listen"))
}

func TestSafeScore(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want int
		ok   bool
	}{
		{"int", 4, 4, true},
		{"float truncates", 4.7, 4, true},
		{"string", " 3 ", 3, true},
		{"clamp high", 9, 5, true},
		{"clamp low", -2, 0, true},
		{"json number", json.Number("2"), 2, true},
		{"non integral string", "4.5", 0, false},
		{"nil", nil, 0, false},
		{"garbage", "high", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SafeScore(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSafeEffortAndPrio(t *testing.T) {
	e, ok := SafeEffort("Deep")
	assert.True(t, ok)
	assert.Equal(t, taxonomy.EffortDeep, e)
	_, ok = SafeEffort("huge")
	assert.False(t, ok)

	assert.Equal(t, "p2", SafePrio(" P2 "))
	assert.Equal(t, "", SafePrio("p4"))
}

func TestIsActionCompatible(t *testing.T) {
	tests := []struct {
		kind   taxonomy.Kind
		action taxonomy.Action
		want   bool
	}{
		{taxonomy.KindVideo, taxonomy.ActionWatch, true},
		{taxonomy.KindVideo, taxonomy.ActionBuild, false},
		{taxonomy.KindMusic, taxonomy.ActionReference, true},
		{taxonomy.KindRepo, taxonomy.ActionWatch, false},
		{taxonomy.KindTool, taxonomy.ActionTriage, true},
		{taxonomy.KindDocs, taxonomy.ActionBuild, true},
		{taxonomy.KindPaper, taxonomy.ActionBuild, false},
		{taxonomy.KindMisc, taxonomy.ActionWatch, true},
		{taxonomy.KindAuth, taxonomy.ActionRead, false},
		{taxonomy.KindLocal, taxonomy.ActionIgnore, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsActionCompatible(tt.kind, tt.action), "%s/%s", tt.kind, tt.action)
	}
}
