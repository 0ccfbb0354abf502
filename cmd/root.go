package cmd

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/charmbracelet/fang"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/scanpipe/internal/config"
	"github.com/lehigh-university-libraries/scanpipe/internal/journal"
	"github.com/lehigh-university-libraries/scanpipe/internal/logging"
	"github.com/lehigh-university-libraries/scanpipe/internal/pipeline"
	"github.com/lehigh-university-libraries/scanpipe/internal/preflight"
	"github.com/lehigh-university-libraries/scanpipe/internal/prompt"
	"github.com/lehigh-university-libraries/scanpipe/internal/runner"
)

func NewRootCmd() *cobra.Command {
	var (
		raw         config.RawOptions
		configPath  string
		journalPath string
	)

	cmd := &cobra.Command{
		Use:   "scanpipe [output]",
		Short: "Scan paper documents into compact, searchable, tagged PDFs",
		Long: `Scanpipe feeds every page in the scanner's document feeder, compacts the
scanned images into a single PDF, adds an OCR text layer and tags the result.

The text preset (--preset text or --text) scans in gray at 400 dpi and uses
the text compaction arguments, overriding --color, --resolution and --nsparams.`,
		Example: `  # Scan a single-sided stack to output.pdf
  scanpipe

  # Scan a duplex letter with the text preset and tag it
  scanpipe letter.pdf --mode duplex --text -t "bank,2024"

  # Only scan, keeping the page images for later
  scanpipe --scan -vv`,
		Args: cobra.MaximumNArgs(1),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				raw.Output = args[0]
			}
			raw.NSParamsSet = cmd.Flags().Changed("nsparams")

			settings, err := config.LoadSettings(configPath)
			if err != nil {
				return err
			}
			settings = settings.WithEnv(os.LookupEnv)
			if cmd.Flags().Changed("journal") {
				settings.Journal = journalPath
			}

			return run(cmd, raw, settings)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&raw.Mode, "mode", "m", string(config.ModeSingle), "Scan mode (single, duplex)")
	flags.StringVarP(&raw.Color, "color", "c", string(config.ColorLineart), "Color mode (lineart, gray, color)")
	flags.StringVarP(&raw.Preset, "preset", "p", "", "Preset overriding color, resolution and compaction arguments (text)")
	flags.IntVarP(&raw.Resolution, "resolution", "r", 300, "Scan resolution in dpi (50-600)")
	flags.StringVarP(&raw.Tags, "tags", "t", "", "Comma separated tags for the output")
	flags.StringVar(&raw.PaperSize, "paper-size", string(config.PaperA4), "Paper size (a4, a5, a6)")
	flags.BoolVar(&raw.Text, "text", false, "Shorthand for --preset text (gray, 400 dpi)")
	flags.BoolVar(&raw.ScanOnly, "scan", false, "Only scan; keep the page images and stop")
	flags.BoolVar(&raw.KeepIntermediate, "keep_intermediate", false, "Keep the scratch directory with page images and intermediate PDF")
	flags.StringVar(&raw.NSParams, "nsparams", "", "Space separated arguments for the compaction tool")
	flags.BoolVar(&raw.SkipOCR, "skip-ocr", false, "Copy the compacted PDF without OCR")
	flags.CountVarP(&raw.Verbose, "verbose", "v", "Verbose output; repeat for debug logging and live tool output")
	flags.BoolVar(&raw.Overwrite, "overwrite", false, "Answer yes to every question (replace output, create tag database)")
	flags.StringVar(&configPath, "config", "", "Settings file (default $XDG_CONFIG_HOME/scanpipe/config.yaml)")
	flags.StringVar(&journalPath, "journal", "", "Append a record of each capture to this parquet file")

	return cmd
}

func run(cmd *cobra.Command, raw config.RawOptions, settings config.Settings) error {
	workDir, err := os.Getwd()
	if err != nil {
		return err
	}

	opts, err := config.Resolve(raw, settings, workDir)
	if err != nil {
		return err
	}

	logger := logging.New(cmd.ErrOrStderr(), opts.Verbosity)
	slog.SetDefault(logger)

	var j *journal.Journal
	if settings.Journal != "" {
		path := settings.Journal
		if !filepath.IsAbs(path) {
			path = filepath.Join(workDir, path)
		}
		j = journal.New(path)
	}

	p := &pipeline.Pipeline{
		Settings: settings,
		Runner: &runner.Exec{
			Stream: opts.Verbosity >= 2,
			Stdout: cmd.OutOrStdout(),
			Stderr: cmd.ErrOrStderr(),
			Logger: logger,
		},
		LookPath:  exec.LookPath,
		Confirmer: prompt.New(cmd.InOrStdin(), cmd.ErrOrStderr()),
		Journal:   j,
	}

	err = p.Run(cmd.Context(), opts)
	if errors.Is(err, prompt.ErrDeclined) {
		logger.Info("Stopped at user request")
		return nil
	}
	if err != nil {
		reportFailure(cmd.Context(), logger, err)
		return &reportedError{err: err}
	}
	return nil
}

// reportedError marks a failure that was already logged.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// ErrorHandler prints errors the way fang does, except failures the run
// already logged at CRITICAL level.
func ErrorHandler(w io.Writer, styles fang.Styles, err error) {
	var reported *reportedError
	if errors.As(err, &reported) {
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}

func reportFailure(ctx context.Context, logger *slog.Logger, err error) {
	var (
		exitErr *runner.ExitError
		missing *preflight.MissingError
	)

	switch {
	case errors.As(err, &exitErr):
		logger.Log(ctx, logging.LevelCritical, "External command failed",
			"command", exitErr.Cmd.String(),
			"code", exitErr.Code,
			"stdout", string(exitErr.Stdout),
			"stderr", string(exitErr.Stderr))
	case errors.As(err, &missing):
		logger.Log(ctx, logging.LevelCritical, "Required program missing", "programs", missing.Programs)
	case errors.Is(err, runner.ErrNotFound):
		logger.Log(ctx, logging.LevelCritical, "Program disappeared from PATH", "err", err)
	default:
		logger.Log(ctx, logging.LevelCritical, "Capture failed", "err", err)
	}
}
