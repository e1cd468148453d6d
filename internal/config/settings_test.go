package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/tabdigest/internal/errors"
)

func TestParseSettings_Defaults(t *testing.T) {
	s, err := ParseSettings()
	require.NoError(t, err)

	assert.False(t, s.LLMEnabled)
	assert.Equal(t, "gpt-4.1-mini", s.Model)
	assert.InDelta(t, 0.2, s.Temperature, 1e-6)
	assert.True(t, s.Redact)
	assert.True(t, s.RedactQuery)
	assert.Equal(t, 200, s.TitleMax)
	assert.Equal(t, 30, s.ChunkSize)
	assert.Equal(t, PolicyHybrid, s.ActionPolicy)
	assert.InDelta(t, 0.7, s.MinLLMCoverage, 1e-9)
	assert.Equal(t, "info", s.LogLevel)
}

func TestParseSettings_FromEnv(t *testing.T) {
	t.Setenv("TABDUMP_LLM_ENABLED", "1")
	t.Setenv("TABDUMP_CLASSIFY_CHUNK", "10")
	t.Setenv("TABDUMP_LLM_ACTION_POLICY", " Derived ")
	t.Setenv("TABDUMP_MIN_LLM_COVERAGE", "1.8")
	t.Setenv("TABDIGEST_HOME", "/tmp/td")

	s, err := ParseSettings()
	require.NoError(t, err)

	assert.True(t, s.LLMEnabled)
	assert.Equal(t, 10, s.ChunkSize)
	assert.Equal(t, PolicyDerived, s.ActionPolicy)
	assert.Equal(t, 1.0, s.MinLLMCoverage)

	dir, err := s.GlobalDir()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/td", dir)
}

func TestParseSettings_Invalid(t *testing.T) {
	t.Setenv("TABDUMP_CLASSIFY_CHUNK", "many")

	_, err := ParseSettings()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
}

func TestGlobalDir_Default(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	dir, err := Settings{}.GlobalDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/home/tester", DirName), dir)
}

func TestNormalizeActionPolicy(t *testing.T) {
	assert.Equal(t, PolicyRaw, NormalizeActionPolicy("RAW"))
	assert.Equal(t, PolicyHybrid, NormalizeActionPolicy("whatever"))
	assert.Equal(t, 0.0, ClampCoverage(-1))
	assert.Equal(t, 0.5, ClampCoverage(0.5))
}
