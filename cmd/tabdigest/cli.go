package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v2"

	"github.com/hpungsan/tabdigest/internal/config"
	"github.com/hpungsan/tabdigest/internal/errors"
	"github.com/hpungsan/tabdigest/internal/mcp"
	"github.com/hpungsan/tabdigest/internal/ops"
)

// maxPayloadBytes bounds payload documents read from stdin or a file.
const maxPayloadBytes = 32 << 20

// newCLIApp creates the CLI application with all commands.
func newCLIApp(deps ops.Deps) *cli.App {
	app := &cli.App{
		Name:    "tabdigest",
		Usage:   "Turn browser tab dumps into prioritized digest notes",
		Version: Version,
		Commands: []*cli.Command{
			renderCmd(deps),
			payloadCmd(deps),
			classifyCmd(deps),
			normalizeCmd(deps),
			mcpCmd(deps),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// renderCmd creates the render command.
func renderCmd(deps ops.Deps) *cli.Command {
	return &cli.Command{
		Name:      "render",
		Usage:     "Render a tab-dump note into '<note> (clean).md'",
		ArgsUsage: "<note.md>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output path (defaults to '<stem> (clean).md' next to the note)"},
			&cli.BoolFlag{Name: "stdout", Usage: "Print the digest instead of writing it"},
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "Config file (JSON or TOML) layered over the loaded config"},
			&cli.BoolFlag{Name: "llm", Usage: "Classify with the remote model (needs OPENAI_API_KEY)"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("render: exactly one note path is required", 2)
			}

			d, err := withConfigFile(deps, c.String("config"))
			if err != nil {
				return outputError(err)
			}

			output, err := ops.RenderNote(c.Context, d, ops.RenderNoteInput{
				Path:    c.Args().First(),
				OutPath: c.String("out"),
				DryRun:  c.Bool("stdout"),
				LLM:     c.Bool("llm"),
			})
			if err != nil {
				return outputError(err)
			}

			if c.Bool("stdout") {
				_, err = io.WriteString(c.App.Writer, output.Markdown)
				return err
			}
			_, err = fmt.Fprintln(c.App.Writer, output.Path)
			return err
		},
	}
}

// payloadCmd creates the payload command.
func payloadCmd(deps ops.Deps) *cli.Command {
	return &cli.Command{
		Name:      "payload",
		Usage:     "Render a classified JSON payload {meta, counts, cfg, items} to stdout",
		ArgsUsage: "[file|-]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "Config file (JSON or TOML) layered over the loaded config"},
		},
		Action: func(c *cli.Context) error {
			src := c.Args().First()

			var data []byte
			switch {
			case src != "" && src != "-":
				b, err := readFileLimited(src, maxPayloadBytes)
				if err != nil {
					return outputError(err)
				}
				data = b
			case stdinHasData():
				text, err := readStdin(maxPayloadBytes)
				if err != nil {
					return outputError(errors.NewInputRejected(err.Error()))
				}
				data = []byte(text)
			default:
				return cli.Exit("payload: pass a file or pipe the payload via stdin", 2)
			}

			d, err := withConfigFile(deps, c.String("config"))
			if err != nil {
				return outputError(err)
			}

			output, err := ops.RenderPayload(d, ops.RenderPayloadInput{Payload: data})
			if err != nil {
				return outputError(err)
			}
			_, err = io.WriteString(c.App.Writer, output.Markdown)
			return err
		},
	}
}

// classifyCmd creates the classify command.
func classifyCmd(deps ops.Deps) *cli.Command {
	return &cli.Command{
		Name:  "classify",
		Usage: "Explain the local classification of one URL",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Aliases: []string{"u"}, Required: true, Usage: "Tab URL"},
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Tab title"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.ClassifyTab(deps, ops.ClassifyTabInput{
				URL:   c.String("url"),
				Title: c.String("title"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// normalizeCmd creates the normalize command.
func normalizeCmd(deps ops.Deps) *cli.Command {
	return &cli.Command{
		Name:      "normalize",
		Usage:     "Print the canonical form of a URL",
		ArgsUsage: "<url>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("normalize: exactly one url is required", 2)
			}
			output, err := ops.NormalizeURL(deps, ops.NormalizeURLInput{URL: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// mcpCmd creates the mcp command.
func mcpCmd(deps ops.Deps) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the digest tools over MCP stdio",
		Action: func(c *cli.Context) error {
			if err := mcp.Run(deps, Version); err != nil {
				return outputError(err)
			}
			return nil
		},
	}
}

// Helper functions

// withConfigFile layers an explicit config file over deps.Config.
func withConfigFile(deps ops.Deps, path string) (ops.Deps, error) {
	if path == "" {
		return deps, nil
	}
	base := deps.Config
	if base == nil {
		base = config.DefaultConfigFor(deps.Rules)
	}
	cfg, err := config.LoadFile(base, path)
	if err != nil {
		return deps, asConfigError(err)
	}
	deps.Config = cfg
	return deps, nil
}

// outputJSON marshals result to w as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI. DigestErrors keep their exit code.
func outputError(err error) error {
	if de, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", de.Code, de.Message), de.ExitCode())
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads at most limit bytes from stdin.
func readStdin(limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(os.Stdin, limit+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("stdin exceeds %d bytes", limit)
	}
	return strings.TrimSpace(string(data)), nil
}

// readFileLimited reads a payload file, rejecting missing or oversized files.
func readFileLimited(path string, limit int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewInputRejected(fmt.Sprintf("open payload: %v", err))
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("read payload: %w", err))
	}
	if int64(len(data)) > limit {
		return nil, errors.NewInputRejected(fmt.Sprintf("payload exceeds %d bytes", limit))
	}
	return data, nil
}
