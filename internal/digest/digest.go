// Package digest turns a classified payload into the Markdown tab digest:
// item normalization, domain categories, bucket assignment, high-priority
// selection and rendering with a post-render self-check.
package digest

import (
	"github.com/rs/zerolog"

	"github.com/hpungsan/tabdigest/internal/config"
	"github.com/hpungsan/tabdigest/internal/errors"
	"github.com/hpungsan/tabdigest/internal/rules"
	"github.com/hpungsan/tabdigest/internal/taxonomy"
	"github.com/hpungsan/tabdigest/internal/urlnorm"
)

// Options configure one render.
type Options struct {
	// Base is the configuration the payload cfg merges over. Nil means
	// config.DefaultConfigFor(Rules).
	Base *config.Config
	// Override is caller JSON merged last.
	Override []byte
	// Rules supplies the URL policy used for dedupe and the quick-win
	// tables. Nil means the embedded tables.
	Rules  *rules.Rules
	Logger *zerolog.Logger
}

// State is everything the renderer knows after bucketing.
type State struct {
	Config  *config.Config
	Meta    Meta
	Counts  Counts
	Items   []*Item
	Deduped int
	// Dropped counts quick-win overflow removed from the run when overflow
	// to backlog is disabled.
	Dropped int
	Buckets Buckets

	bucketer *bucketer
}

// BuildState merges configuration, normalizes and buckets the payload, and
// checks coverage.
func BuildState(p *Payload, opts Options) (*State, error) {
	if p == nil {
		return nil, errors.NewInputRejected("payload is required")
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}

	r := opts.Rules
	if r == nil {
		r = rules.Default()
	}
	base := opts.Base
	if base == nil {
		base = config.DefaultConfigFor(r)
	}
	cfg, err := mergeConfig(base, p.Cfg, opts.Override)
	if err != nil {
		return nil, err
	}

	items, deduped := newNormalizer(cfg, urlnorm.NewPolicy(r)).normalize(p.Items)
	b := &bucketer{cfg: cfg, quick: r.Quick}
	buckets, dropped := b.assign(items)
	if len(dropped) > 0 {
		gone := make(map[*Item]bool, len(dropped))
		for _, it := range dropped {
			gone[it] = true
		}
		kept := make([]*Item, 0, len(items)-len(dropped))
		for _, it := range items {
			if !gone[it] {
				kept = append(kept, it)
			}
		}
		items = kept
		log.Warn().Int("dropped", len(dropped)).Int("quick_max", cfg.QuickWinsMaxItems).
			Msg("quick-win overflow dropped")
	}

	selectHighPriority(buckets, cfg)
	annotate(buckets)
	if err := validateCoverage(items, buckets); err != nil {
		return nil, err
	}

	log.Debug().Int("items", len(items)).Int("deduped", deduped).Int("high", len(buckets[taxonomy.BucketHigh])).
		Msg("digest state built")

	return &State{
		Config:   cfg,
		Meta:     p.Meta,
		Counts:   p.Counts,
		Items:    items,
		Deduped:  deduped,
		Dropped:  len(dropped),
		Buckets:  buckets,
		bucketer: b,
	}, nil
}

// Markdown renders the state and self-checks the result.
func (s *State) Markdown() (string, error) {
	if s.bucketer == nil {
		s.bucketer = &bucketer{cfg: s.Config, quick: rules.Default().Quick}
	}
	r := &renderer{state: s, cfg: s.Config, title: newTitleCaser()}
	md := r.markdown()
	if err := validateRendered(md, s.Buckets, s.Config); err != nil {
		return "", err
	}
	return md, nil
}

// Render builds the state for p and renders it.
func Render(p *Payload, opts Options) (string, error) {
	s, err := BuildState(p, opts)
	if err != nil {
		return "", err
	}
	return s.Markdown()
}

func mergeConfig(base *config.Config, layers ...[]byte) (*config.Config, error) {
	if base == nil {
		base = config.DefaultConfig()
	}
	cfg, err := base.Clone()
	if err != nil {
		return nil, err
	}
	for _, layer := range layers {
		if cfg, err = config.Merge(cfg, layer); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
