package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/hpungsan/tabdigest/internal/errors"
)

// Action policies for model-suggested actions.
const (
	PolicyRaw     = "raw"
	PolicyDerived = "derived"
	PolicyHybrid  = "hybrid"
)

// Settings are runtime knobs read from the environment.
type Settings struct {
	LLMEnabled     bool    `env:"TABDUMP_LLM_ENABLED"       envDefault:"false"`
	OpenAIAPIKey   string  `env:"OPENAI_API_KEY"`
	OpenAIBaseURL  string  `env:"OPENAI_BASE_URL"`
	Model          string  `env:"TABDUMP_TAG_MODEL"         envDefault:"gpt-4.1-mini"`
	Temperature    float32 `env:"TABDUMP_TAG_TEMPERATURE"   envDefault:"0.2"`
	Redact         bool    `env:"TABDUMP_LLM_REDACT"        envDefault:"true"`
	RedactQuery    bool    `env:"TABDUMP_LLM_REDACT_QUERY"  envDefault:"true"`
	TitleMax       int     `env:"TABDUMP_LLM_TITLE_MAX"     envDefault:"200"`
	MaxItems       int     `env:"TABDUMP_MAX_ITEMS"         envDefault:"0"`
	ChunkSize      int     `env:"TABDUMP_CLASSIFY_CHUNK"    envDefault:"30"`
	ActionPolicy   string  `env:"TABDUMP_LLM_ACTION_POLICY" envDefault:"hybrid"`
	MinLLMCoverage float64 `env:"TABDUMP_MIN_LLM_COVERAGE"  envDefault:"0.7"`
	RPS            float64 `env:"TABDUMP_LLM_RPS"           envDefault:"2"`
	LogLevel       string  `env:"TABDUMP_LOG_LEVEL"         envDefault:"info"`
	RulesFile      string  `env:"TABDUMP_RULES_FILE"`
	// Home overrides the global config directory (default ~/.tabdigest).
	Home string `env:"TABDIGEST_HOME"`
}

// LoadSettings loads .env from the working directory when present, then
// parses the environment.
func LoadSettings() (Settings, error) {
	_ = godotenv.Load()
	return ParseSettings()
}

// ParseSettings parses the environment without touching .env files.
func ParseSettings() (Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, errors.NewInvalidConfig(fmt.Sprintf("parse env: %v", err))
	}
	s.ActionPolicy = NormalizeActionPolicy(s.ActionPolicy)
	s.MinLLMCoverage = ClampCoverage(s.MinLLMCoverage)
	return s, nil
}

// GlobalDir returns the global configuration directory.
func (s Settings) GlobalDir() (string, error) {
	if s.Home != "" {
		return s.Home, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, DirName), nil
}

// NormalizeActionPolicy returns a known policy, defaulting to hybrid.
func NormalizeActionPolicy(v string) string {
	switch p := strings.ToLower(strings.TrimSpace(v)); p {
	case PolicyRaw, PolicyDerived, PolicyHybrid:
		return p
	}
	return PolicyHybrid
}

// ClampCoverage bounds a coverage threshold to 0..1.
func ClampCoverage(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
