package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/unbound-force/krypton/internal/config"
	"github.com/unbound-force/krypton/internal/gate"
	"github.com/unbound-force/krypton/internal/report"
	"github.com/unbound-force/krypton/internal/scaffold"
)

// logger is the application-wide structured logger (writes to stderr).
var logger = charmlog.NewWithOptions(os.Stderr, charmlog.Options{
	ReportTimestamp: false,
})

// Set by build flags.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	if err == nil {
		return
	}

	var exitErr *gate.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Message != "" {
			logger.Error(exitErr.Message)
		}
		stop()
		os.Exit(exitErr.Code)
	}
	fmt.Fprintln(os.Stderr, err)
	stop()
	os.Exit(gate.ExitUsage)
}

func newRootCmd() *cobra.Command {
	var (
		manifest    string
		format      string
		interactive bool
		verbose     bool
	)

	cmd := &cobra.Command{
		Use:   "krypton [path...]",
		Short: "krypton: cyclomatic complexity gate for Go projects",
		Long: `krypton measures the cyclomatic complexity of every function under
the given paths, ranks it from A (best) to F and fails when a rank
exceeds the configured thresholds.

Values come from the command line, then from the [krypton] section
of krypton.cfg, then from built-in defaults.

Exit codes:
  0 - All thresholds respected
  1 - Threshold(s) exceeded
  2 - Configuration, usage or analysis error
  3 - The reporting endpoint returned an error`,
		Version:       version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGate(cmd.Context(), gateParams{
				flags:       cmd.Flags(),
				args:        args,
				manifest:    manifest,
				format:      format,
				interactive: interactive,
				verbose:     verbose,
				workDir:     ".",
				stdout:      cmd.OutOrStdout(),
			})
		},
	}

	f := cmd.Flags()
	f.StringP("max-absolute", "b", "", "absolute threshold for block complexity (A-F)")
	f.StringP("max-modules", "m", "", "threshold for module average complexity (A-F)")
	f.StringP("max-average", "a", "", "threshold for the project average complexity (A-F)")
	f.Float64("max-average-num", 0, "numeric ceiling for the project average complexity")
	f.StringP("exclude", "e", "", "comma separated list of file patterns to exclude")
	f.StringP("ignore", "i", "", "comma separated list of directory patterns not to descend into")
	f.StringP("url", "u", "", "where to send the JSON data through a POST request")
	f.Bool("no-assert", false, "do not count assert statements when computing complexity")
	f.StringP("config-file", "c", config.DefaultConfigFile, "credentials file, relative to the first path")
	f.String("metrics-file", "", "write Prometheus metrics to this textfile")
	f.StringVar(&manifest, "manifest", config.DefaultManifest, "project manifest")
	f.StringVar(&format, "format", "text", "output format: text or json")
	f.BoolVar(&interactive, "interactive", false, "launch interactive TUI for browsing results")
	f.BoolVar(&verbose, "verbose", false, "enable debug logging")

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newSchemaCmd())

	return cmd
}

// gateParams holds the parsed flags for the gate command.
type gateParams struct {
	flags       *pflag.FlagSet
	args        []string
	manifest    string
	format      string
	interactive bool
	verbose     bool
	workDir     string
	stdout      io.Writer
}

// runGate is the extracted, testable body of the root command.
func runGate(ctx context.Context, p gateParams) error {
	if p.format != "text" && p.format != "json" {
		return &gate.ExitError{
			Code:    gate.ExitUsage,
			Message: fmt.Sprintf("invalid format %q: must be 'text' or 'json'", p.format),
		}
	}
	if p.verbose {
		logger.SetLevel(charmlog.DebugLevel)
	}

	env, err := config.Environ(p.workDir)
	if err != nil {
		return &gate.ExitError{Code: gate.ExitUsage, Message: err.Error()}
	}

	cfg, err := config.Resolve(config.Inputs{
		CLI:          config.FromFlags(p.flags, p.args),
		ManifestPath: p.manifest,
		Env:          env,
	})
	if err != nil {
		return &gate.ExitError{Code: gate.ExitUsage, Message: err.Error()}
	}
	logger.Debug("configuration resolved", "paths", cfg.Paths, "config_file", cfg.ConfigFile)

	runner := gate.Runner{
		Logger:  logger,
		Env:     env,
		Version: version,
	}
	out, err := runner.Run(ctx, cfg)
	if err != nil {
		return err
	}

	if err := writeSummary(p, out.Summary); err != nil {
		return err
	}
	return out.Err()
}

// writeSummary outputs the summary in the requested format, or opens
// the browser when interactive output was requested on a terminal.
func writeSummary(p gateParams, summary report.Summary) error {
	if p.interactive {
		if isTerminal(p.stdout) {
			return runInteractiveSummary(summary)
		}
		logger.Warn("interactive mode needs a terminal, falling back to text output")
	}
	switch p.format {
	case "json":
		return report.WriteJSON(p.stdout, summary)
	default:
		return report.WriteText(p.stdout, summary)
	}
}

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a starter krypton.cfg and .krypton.yml",
		Long: `Write a starter krypton.cfg manifest and .krypton.yml credentials
file into dir (default: the current directory). Existing files are
kept unless --force is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := scaffold.Options{
				Force:   force,
				Version: version,
				Stdout:  cmd.OutOrStdout(),
			}
			if len(args) == 1 {
				opts.TargetDir = args[0]
			}
			_, err := scaffold.Run(opts)
			return err
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing files")

	return cmd
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema for krypton JSON output",
		Long: `Print the JSON Schema (Draft 2020-12) that documents the
structure of krypton --format=json output. Useful for
validating output or generating client types.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), report.Schema)
			return err
		},
	}
}
