package main

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/hpungsan/tabdigest/internal/config"
	"github.com/hpungsan/tabdigest/internal/errors"
	"github.com/hpungsan/tabdigest/internal/logging"
	"github.com/hpungsan/tabdigest/internal/mcp"
	"github.com/hpungsan/tabdigest/internal/ops"
	"github.com/hpungsan/tabdigest/internal/rules"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"render": true, "payload": true, "classify": true, "normalize": true,
	"mcp": true, "help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   _        _         _ _                 _
  | |_ __ _| |__   __| (_) __ _  ___  ___| |_
  | __/ _' | '_ \ / _' | |/ _' |/ _ \/ __| __|
  | || (_| | |_) | (_| | | (_| |  __/\__ \ |_
   \__\__,_|_.__/ \__,_|_|\__, |\___||___/\__|
                          |___/
  Tab dump digests

  Usage: tabdigest <command> [options]
         tabdigest --help

  MCP server mode requires piped input (or 'tabdigest mcp').`)
}

// exitCode extracts the process exit code from an app error. Errors that
// never went through outputError come from flag parsing.
func exitCode(err error) int {
	var ec cli.ExitCoder
	if stderrors.As(err, &ec) {
		return ec.ExitCode()
	}
	return 2
}

// loadDeps reads settings, rules and config for a run. The config defaults
// are seeded from the rules so a rules file reaches every stage.
func loadDeps() (ops.Deps, error) {
	settings, err := config.LoadSettings()
	if err != nil {
		return ops.Deps{}, err
	}
	log := logging.New(settings.LogLevel, os.Stderr)

	globalDir, err := settings.GlobalDir()
	if err != nil {
		return ops.Deps{}, errors.NewInternal(err)
	}
	r, err := rules.Load(settings.RulesFile)
	if err != nil {
		return ops.Deps{}, asConfigError(err)
	}

	wd, err := os.Getwd()
	if err != nil {
		wd = ""
	}
	cfg, err := config.LoadLayered(config.DefaultConfigFor(r), globalDir, wd)
	if err != nil {
		return ops.Deps{}, asConfigError(err)
	}
	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		log.Warn().Strs("tools", unknown).Msg("unknown tools in disabledTools")
	}

	return ops.Deps{
		Settings: settings,
		Config:   cfg,
		Rules:    r,
		Logger:   log,
	}, nil
}

// asConfigError keeps DigestErrors and reports anything else as INVALID_CONFIG.
func asConfigError(err error) error {
	if _, ok := errors.As(err); ok {
		return err
	}
	return errors.NewInvalidConfig(err.Error())
}

func fail(err error) {
	if de, ok := errors.As(err); ok {
		fmt.Fprintf(os.Stderr, "error: [%s] %s\n", de.Code, de.Message)
		os.Exit(de.ExitCode())
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Help and version need no settings or config.
	if isHelpOrVersion() {
		app := newCLIApp(ops.Deps{Logger: zerolog.Nop()})
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(exitCode(err))
		}
		return
	}

	deps, err := loadDeps()
	if err != nil {
		fail(err)
	}

	if isCLIMode() {
		app := newCLIApp(deps)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(exitCode(err))
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'tabdigest --help' for usage.\n")
		os.Exit(2)
	}

	if err := mcp.Run(deps, Version); err != nil {
		fail(err)
	}
}
