// Package ops holds the operations shared by the CLI and the MCP server.
// Each operation takes a Deps value plus an input struct and returns an
// output struct or a *errors.DigestError.
package ops

import (
	"github.com/rs/zerolog"

	"github.com/hpungsan/tabdigest/internal/config"
	"github.com/hpungsan/tabdigest/internal/pipeline"
	"github.com/hpungsan/tabdigest/internal/rules"
	"github.com/hpungsan/tabdigest/internal/urlnorm"
)

// RemoteFactory builds the remote classifier for a run.
type RemoteFactory func(s config.Settings, log zerolog.Logger) (pipeline.Remote, error)

// Deps carries what every operation needs.
type Deps struct {
	Settings config.Settings
	// Config is the base renderer bundle; nil means defaults.
	Config *config.Config
	// Rules overrides the embedded heuristic tables when non-nil.
	Rules  *rules.Rules
	Logger zerolog.Logger
	// NewRemote defaults to pipeline.NewRemote.
	NewRemote RemoteFactory
}

// remote returns the remote classifier when s asks for one. Setup failures
// are logged and yield nil so the run degrades to local rules.
func (d Deps) remote(s config.Settings) pipeline.Remote {
	if !s.LLMEnabled {
		return nil
	}
	factory := d.NewRemote
	if factory == nil {
		factory = pipeline.NewRemote
	}
	r, err := factory(s, d.Logger)
	if err != nil {
		d.Logger.Warn().Err(err).Msg("remote classifier unavailable")
		return nil
	}
	return r
}

// policy returns the URL policy for d.Rules.
func (d Deps) policy() *urlnorm.Policy {
	if d.Rules == nil {
		return urlnorm.DefaultPolicy()
	}
	return urlnorm.NewPolicy(d.Rules)
}
