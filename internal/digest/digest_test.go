package digest

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/tabdigest/internal/config"
	"github.com/hpungsan/tabdigest/internal/errors"
)

func TestBuildState_NilPayload(t *testing.T) {
	_, err := BuildState(nil, Options{})
	assert.True(t, errors.Is(err, errors.ErrInputRejected))
}

func TestBuildState_ConfigLayers(t *testing.T) {
	base := config.DefaultConfig()
	base.HighPriorityLimit = 1
	base.EmptyBucketMessage = "nothing here"

	p := highPayload()
	p.Cfg = []byte(`{"highPriorityLimit": 3, "titleMaxLen": 40}`)

	s := mustState(t, p, Options{Base: base, Override: []byte(`{"titleMaxLen": 50}`)})
	assert.Equal(t, 3, s.Config.HighPriorityLimit)
	assert.Equal(t, 50, s.Config.TitleMaxLen)
	assert.Equal(t, "nothing here", s.Config.EmptyBucketMessage)
	assert.Equal(t, 1, base.HighPriorityLimit, "base config must not be mutated")
}

func TestBuildState_InvalidConfig(t *testing.T) {
	tests := []struct {
		name     string
		cfg      string
		override string
	}{
		{"negative limit in payload", `{"highPriorityLimit": -1}`, ""},
		{"bad grouping mode", "", `{"docsOneOffGroupingMode": "colour"}`},
		{"bad regex", "", `{"authPathRegex": ["("]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := goldenPayload()
			if tt.cfg != "" {
				p.Cfg = []byte(tt.cfg)
			}
			var override []byte
			if tt.override != "" {
				override = []byte(tt.override)
			}
			_, err := BuildState(p, Options{Override: override})
			assert.True(t, errors.Is(err, errors.ErrInvalidConfig), "got %v", err)
		})
	}
}

func TestBuildState_LogsDroppedOverflow(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)
	mustState(t, &Payload{Items: movieItems(17)}, Options{
		Override: []byte(`{"quickWinsOverflowToBacklog": false}`),
		Logger:   &log,
	})
	assert.Contains(t, buf.String(), `"dropped":2`)
	assert.Contains(t, buf.String(), "quick-win overflow dropped")
}

func TestState_MarkdownAfterDecode(t *testing.T) {
	p, err := DecodePayload([]byte(`{
		"meta": {"created": "2026-01-05T10:00:00Z", "source": "tabs.md"},
		"items": [
			{"title": "Go tour", "url": "https://go.dev/tour/welcome/1", "kind": "docs",
			 "intent": {"action": "read", "confidence": 0.9}, "topics": ["golang"], "effort": "quick"},
			{"title": "Login", "url": "https://example.com/login"}
		]
	}`))
	require.NoError(t, err)

	s := mustState(t, p, Options{})
	md, err := s.Markdown()
	require.NoError(t, err)
	assert.Equal(t, goldenDigest, md)
}
