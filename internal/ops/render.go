package ops

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"github.com/hpungsan/tabdigest/internal/digest"
	"github.com/hpungsan/tabdigest/internal/errors"
	"github.com/hpungsan/tabdigest/internal/logging"
	"github.com/hpungsan/tabdigest/internal/pipeline"
	"github.com/hpungsan/tabdigest/internal/tabdump"
)

// maxNoteBytes bounds how much of a note is read.
const maxNoteBytes = 16 << 20

// RenderTabDumpInput contains parameters for the RenderTabDump operation.
type RenderTabDumpInput struct {
	Markdown string // required
	Source   string // shown in the digest frontmatter
	// Config is a JSON object layered over the renderer bundle.
	Config json.RawMessage
	// LLM turns on remote classification for this run.
	LLM bool
	// Now supplies the created timestamp when the note has none; defaults to
	// time.Now.
	Now func() time.Time
}

// RenderTabDumpOutput contains the result of the RenderTabDump operation.
type RenderTabDumpOutput struct {
	Markdown    string               `json:"markdown"`
	RunID       string               `json:"run_id"`
	TabdumpID   string               `json:"tabdump_id"`
	ItemCount   int                  `json:"item_count"`
	Diagnostics pipeline.Diagnostics `json:"diagnostics"`
}

// RenderTabDump parses a captured note, classifies its tabs and renders the
// digest.
func RenderTabDump(ctx context.Context, deps Deps, input RenderTabDumpInput) (*RenderTabDumpOutput, error) {
	now := time.Now
	if input.Now != nil {
		now = input.Now
	}

	dump, err := tabdump.ParseWith(deps.policy(), input.Markdown, now().Format("2006-01-02 15-04-05"))
	if err != nil {
		return nil, err
	}

	settings := deps.Settings
	settings.LLMEnabled = settings.LLMEnabled || input.LLM

	built, err := pipeline.Build(ctx, pipeline.Input{
		Items:     dump.Items,
		Created:   dump.Created,
		Source:    input.Source,
		TabdumpID: dump.ID,
	}, pipeline.Deps{
		Settings: settings,
		Remote:   deps.remote(settings),
		Rules:    deps.Rules,
		Logger:   deps.Logger,
	})
	if err != nil {
		return nil, err
	}

	log := logging.WithRun(deps.Logger, built.Diagnostics.RunID)
	md, err := digest.Render(built.Payload, digest.Options{
		Base:     deps.Config,
		Override: input.Config,
		Rules:    deps.Rules,
		Logger:   &log,
	})
	if err != nil {
		return nil, err
	}

	return &RenderTabDumpOutput{
		Markdown:    md,
		RunID:       built.Diagnostics.RunID,
		TabdumpID:   dump.ID,
		ItemCount:   len(dump.Items),
		Diagnostics: built.Diagnostics,
	}, nil
}

// RenderNoteInput contains parameters for the RenderNote operation.
type RenderNoteInput struct {
	Path    string // required, a .md note
	OutPath string // optional, default: "<stem> (clean).md" next to Path
	// DryRun renders without writing.
	DryRun bool
	LLM    bool
}

// RenderNoteOutput contains the result of the RenderNote operation.
type RenderNoteOutput struct {
	Path      string `json:"path,omitempty"`
	Markdown  string `json:"-"`
	RunID     string `json:"run_id"`
	TabdumpID string `json:"tabdump_id"`
	ItemCount int    `json:"item_count"`
}

// RenderNote renders a note file and writes the digest next to it. Nothing
// is written when the note fails the input contract.
func RenderNote(ctx context.Context, deps Deps, input RenderNoteInput) (*RenderNoteOutput, error) {
	if err := ValidateNotePath(input.Path, PathCheckRead); err != nil {
		return nil, err
	}
	if IsCleanNote(input.Path) {
		return nil, errors.NewInputRejected("refusing to render an already rendered digest")
	}

	outPath := input.OutPath
	if outPath == "" {
		outPath = CleanPath(input.Path)
	}
	if !input.DryRun {
		if err := ValidateNotePath(outPath, PathCheckWrite); err != nil {
			return nil, err
		}
	}

	text, err := readNote(input.Path)
	if err != nil {
		return nil, err
	}

	res, err := RenderTabDump(ctx, deps, RenderTabDumpInput{
		Markdown: text,
		Source:   filepath.Base(input.Path),
		LLM:      input.LLM,
	})
	if err != nil {
		return nil, err
	}

	out := &RenderNoteOutput{
		Markdown:  res.Markdown,
		RunID:     res.RunID,
		TabdumpID: res.TabdumpID,
		ItemCount: res.ItemCount,
	}
	if input.DryRun {
		return out, nil
	}
	if err := writeFileAtomic(outPath, []byte(res.Markdown)); err != nil {
		return nil, err
	}
	out.Path = outPath

	deps.Logger.Info().
		Str("run_id", res.RunID).
		Str("source", input.Path).
		Str("path", outPath).
		Int("items", res.ItemCount).
		Msg("digest written")
	return out, nil
}

func readNote(path string) (string, error) {
	f, err := openFileNoFollowRead(path)
	if err != nil {
		if _, ok := errors.As(err); ok {
			return "", err
		}
		return "", errors.NewInternal(fmt.Errorf("failed to open note: %w", err))
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxNoteBytes+1))
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("failed to read note: %w", err))
	}
	if len(data) > maxNoteBytes {
		return "", errors.NewInputRejected(fmt.Sprintf("note exceeds %d bytes", maxNoteBytes))
	}
	return string(data), nil
}

// RenderPayloadInput contains parameters for the RenderPayload operation.
type RenderPayloadInput struct {
	Payload []byte // required, a {meta, counts, cfg, items} document
	Config  json.RawMessage
}

// RenderPayloadOutput contains the result of the RenderPayload operation.
type RenderPayloadOutput struct {
	Markdown string `json:"markdown"`
}

// RenderPayload renders an already classified payload.
func RenderPayload(deps Deps, input RenderPayloadInput) (*RenderPayloadOutput, error) {
	if len(input.Payload) == 0 {
		return nil, errors.NewInputRejected("payload is required")
	}
	p, err := digest.DecodePayload(input.Payload)
	if err != nil {
		return nil, errors.NewInputRejected(err.Error())
	}

	log := deps.Logger
	md, err := digest.Render(p, digest.Options{
		Base:     deps.Config,
		Override: input.Config,
		Rules:    deps.Rules,
		Logger:   &log,
	})
	if err != nil {
		return nil, err
	}
	return &RenderPayloadOutput{Markdown: md}, nil
}
