package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/potholes/internal/csvsource"
	"github.com/roach88/potholes/internal/importer"
)

// NewFramesCommand groups the frame image maintenance commands.
func NewFramesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "frames",
		Short: "Maintain pothole frame images",
	}

	cmd.AddCommand(NewReimportCommand(rootOpts))
	cmd.AddCommand(NewAuditCommand(rootOpts))

	return cmd
}

var reimportFlags = []flagBinding{
	{"csv-file", "import.csv_file"},
	{"base-dir", "base_dir"},
	{"db", "database.path"},
	{"threshold", "import.threshold"},
	{"max-field-size", "import.max_field_size"},
}

var auditFlags = []flagBinding{
	{"base-dir", "base_dir"},
	{"db", "database.path"},
	{"threshold", "import.threshold"},
}

// NewReimportCommand creates the frames reimport command.
func NewReimportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reimport",
		Short: "Re-import frame images from CSV without truncation",
		Long: `Re-import base64 frame images from a CSV export.

Each row's Frame column is matched against potholes.frame_number. A stored
image is replaced only when it is exactly --threshold characters long, the
length at which the earlier bulk import truncated it; every other row is left
alone, so the command is safe to run repeatedly.

The CSV path is resolved against --base-dir unless it is absolute.

Example:
  potholes frames reimport --csv-file sample_data.csv
  potholes frames reimport --base-dir /app/backend --db db.sqlite3 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReimport(rootOpts, cmd)
		},
	}

	cmd.Flags().String("csv-file", "sample_data.csv", "CSV file name (resolved against --base-dir)")
	cmd.Flags().String("base-dir", ".", "backend directory holding the CSV and SQLite files")
	cmd.Flags().String("db", "db.sqlite3", "SQLite database path (ignored when DATABASE_URL is set)")
	cmd.Flags().Int("threshold", importer.DefaultTruncationThreshold, "stored image length that marks a truncated image")
	cmd.Flags().Int("max-field-size", csvsource.DefaultMaxFieldSize, "largest accepted CSV field, in characters")

	return cmd
}

func runReimport(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	if err := opts.bindFlags(cmd, reimportFlags); err != nil {
		return err
	}
	cfg, logger, err := opts.prepare(cmd)
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return err
	}
	ctx := commandContext(cmd)

	csvPath := resolvePath(cfg.BaseDir, cfg.Import.CSVFile)
	src, err := csvsource.Open(csvPath, csvsource.Options{MaxFieldSize: cfg.Import.MaxFieldSize})
	if err != nil {
		_ = formatter.Error(ErrCodeSourceUnavailable, fmt.Sprintf("CSV file not found: %s", csvPath), err.Error())
		return WrapExitError(ExitCommandError, "CSV file not available", err)
	}
	defer src.Close()

	st, backend, err := openStore(ctx, cfg)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, "failed to open database", err.Error())
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	formatter.VerboseLog("Re-importing frame images from %s into %s", csvPath, backend)
	logger.Debug("store opened", "backend", backend)

	summary, err := importer.Run(ctx, src, st, importer.Options{
		Threshold:     cfg.Import.Threshold,
		ProgressEvery: cfg.Import.ProgressEvery,
		Logger:        logger,
	})
	if err != nil {
		_ = formatter.Error(ErrCodeSourceRead, "failed to read CSV file", err.Error())
		return WrapExitError(ExitFailure, "failed to read CSV file", err)
	}

	return outputSummary(formatter, summary)
}

// outputSummary renders the run summary in the configured format.
func outputSummary(formatter *OutputFormatter, summary importer.Summary) error {
	if formatter.Structured() {
		return formatter.encode(CLIResponse{Status: "ok", Data: summary, RunID: summary.RunID})
	}
	writeSummaryText(formatter.Writer, summary, formatter.Verbose)
	return nil
}

// writeSummaryText prints the human-readable summary. Verbose output adds the
// unmatched frames and row failures.
func writeSummaryText(w io.Writer, summary importer.Summary, verbose bool) {
	fmt.Fprintln(w, "Frame image re-import completed!")
	fmt.Fprintf(w, "✓ Successfully updated: %d frame images\n", summary.Updated)
	fmt.Fprintf(w, "- Skipped: %d\n", summary.Skipped)
	fmt.Fprintf(w, "- Errors: %d\n", summary.Errored)

	if !verbose {
		return
	}
	if len(summary.Unmatched) > 0 {
		fmt.Fprintln(w, "\nUnmatched frames:")
		for _, u := range summary.Unmatched {
			fmt.Fprintf(w, "  row %d: frame %d (%s)\n", u.Line, u.Frame, u.Reason)
		}
	}
	if len(summary.Failures) > 0 {
		fmt.Fprintln(w, "\nFailed rows:")
		for _, f := range summary.Failures {
			fmt.Fprintf(w, "  row %d: %s\n", f.Line, f.Message)
		}
	}
}

// AuditResult is the output of frames audit.
type AuditResult struct {
	Threshold int   `json:"threshold" yaml:"threshold"`
	Truncated int64 `json:"truncated" yaml:"truncated"`
}

// NewAuditCommand creates the frames audit command.
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Count potholes whose frame image still looks truncated",
		Long: `Count stored potholes whose frame image is exactly --threshold characters
long. After a successful reimport the count only includes potholes the CSV
had no data for.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(rootOpts, cmd)
		},
	}

	cmd.Flags().String("base-dir", ".", "backend directory holding the SQLite file")
	cmd.Flags().String("db", "db.sqlite3", "SQLite database path (ignored when DATABASE_URL is set)")
	cmd.Flags().Int("threshold", importer.DefaultTruncationThreshold, "stored image length that marks a truncated image")

	return cmd
}

func runAudit(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	if err := opts.bindFlags(cmd, auditFlags); err != nil {
		return err
	}
	cfg, logger, err := opts.prepare(cmd)
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return err
	}
	ctx := commandContext(cmd)

	st, backend, err := openStore(ctx, cfg)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, "failed to open database", err.Error())
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	count, err := st.CountByPayloadLength(ctx, cfg.Import.Threshold)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, "failed to count frame images", err.Error())
		return WrapExitError(ExitFailure, "failed to count frame images", err)
	}
	logger.Debug("audit complete", "backend", backend, "truncated", count)

	result := AuditResult{Threshold: cfg.Import.Threshold, Truncated: count}
	if formatter.Structured() {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "%d pothole(s) with a frame image of exactly %d characters\n", count, cfg.Import.Threshold)
	return nil
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	format := opts.Format
	if format == "" {
		format = "text"
	}
	return &OutputFormatter{
		Format:    format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// commandContext returns the command's context, or Background when the
// command was executed without one (tests calling Execute directly).
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
