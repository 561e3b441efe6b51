package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jingkaihe/specref/pkg/config"
	"github.com/jingkaihe/specref/pkg/directive"
	"github.com/jingkaihe/specref/pkg/logger"
	"github.com/jingkaihe/specref/pkg/presenter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// CheckReferencesConfig holds configuration for the check-references command
type CheckReferencesConfig struct {
	Format       string
	Excludes     []string
	InlineCode   bool
	SkipIndented bool
	Quiet        bool
	Watch        bool
	DebounceTime int
}

// NewCheckReferencesConfig creates a CheckReferencesConfig with default values
func NewCheckReferencesConfig() *CheckReferencesConfig {
	return &CheckReferencesConfig{
		Format:       formatText,
		Excludes:     []string{},
		InlineCode:   false,
		SkipIndented: false,
		Quiet:        false,
		Watch:        false,
		DebounceTime: 300,
	}
}

// Validate validates the CheckReferencesConfig and returns an error if invalid
func (c *CheckReferencesConfig) Validate() error {
	if err := validateFormat(c.Format); err != nil {
		return err
	}
	if c.DebounceTime < 0 {
		return errors.Errorf("debounce time cannot be negative: %d", c.DebounceTime)
	}
	return nil
}

var checkReferencesCmd = &cobra.Command{
	Use:   "check-references <root>",
	Short: "Report @rule:, @persona: and @example: references to missing files",
	Long: `Scan every Markdown file under <root> for directive references and resolve
them against the rules, personas and examples directories. References inside
fenced code blocks are ignored. Exits 1 when any reference is broken.

Examples:
  specref check-references .
  specref check-references docs --format json
  specref check-references . --exclude 'drafts/**' --watch`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := getCheckReferencesConfigFromFlags(cmd)
		if err := cfg.Validate(); err != nil {
			presenter.Error(err, "Invalid configuration")
			os.Exit(exitFailure)
		}
		ctx, _ := logger.WithRun(cmd.Context(), "check-references")

		code := runCheckReferences(ctx, args[0], cfg, settings, os.Stdout, os.Stderr)
		if !cfg.Watch {
			os.Exit(code)
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigCh
			presenter.Warning("Cancellation requested, shutting down...")
			cancel()
		}()

		if err := watchReferences(ctx, args[0], cfg, settings, os.Stdout, os.Stderr); err != nil {
			presenter.Error(err, "Watch failed")
			os.Exit(exitFailure)
		}
	},
}

func init() {
	registerCheckReferencesFlags(checkReferencesCmd)
	rootCmd.AddCommand(checkReferencesCmd)
}

func registerCheckReferencesFlags(cmd *cobra.Command) {
	defaults := NewCheckReferencesConfig()
	cmd.Flags().StringP("format", "f", defaults.Format, "Output format (text, json, yaml)")
	cmd.Flags().StringSliceP("exclude", "e", defaults.Excludes, "Additional glob patterns of documents to skip, relative to the root")
	cmd.Flags().Bool("inline-code", defaults.InlineCode, "Also scan inline code spans")
	cmd.Flags().Bool("skip-indented-code", defaults.SkipIndented, "Also skip indented code blocks")
	cmd.Flags().BoolP("quiet", "q", defaults.Quiet, "Only print broken references")
	cmd.Flags().BoolP("watch", "w", defaults.Watch, "Re-check whenever a Markdown file changes")
	cmd.Flags().IntP("debounce", "d", defaults.DebounceTime, "Debounce time in milliseconds for watch mode")
}

func getCheckReferencesConfigFromFlags(cmd *cobra.Command) *CheckReferencesConfig {
	cfg := NewCheckReferencesConfig()

	if format, err := cmd.Flags().GetString("format"); err == nil {
		cfg.Format = format
	}
	if excludes, err := cmd.Flags().GetStringSlice("exclude"); err == nil {
		cfg.Excludes = excludes
	}
	if inline, err := cmd.Flags().GetBool("inline-code"); err == nil {
		cfg.InlineCode = inline
	}
	if skipIndented, err := cmd.Flags().GetBool("skip-indented-code"); err == nil {
		cfg.SkipIndented = skipIndented
	}
	if quiet, err := cmd.Flags().GetBool("quiet"); err == nil {
		cfg.Quiet = quiet
	}
	if watch, err := cmd.Flags().GetBool("watch"); err == nil {
		cfg.Watch = watch
	}
	if debounce, err := cmd.Flags().GetInt("debounce"); err == nil {
		cfg.DebounceTime = debounce
	}

	return cfg
}

// runCheckReferences checks root once, writes the report to out and
// returns the process exit code
func runCheckReferences(ctx context.Context, root string, cfg *CheckReferencesConfig, s config.Settings, out, errOut io.Writer) int {
	p := presenter.NewWithOptions(out, errOut, presenter.ColorAuto)
	p.SetQuiet(cfg.Quiet)

	if err := cfg.Validate(); err != nil {
		p.Error(err, "Invalid configuration")
		return exitFailure
	}

	report, err := checkReferences(ctx, root, cfg, s)
	if err != nil {
		p.Error(err, "Failed to check references")
		return exitFailure
	}

	if err := writeReport(p, out, cfg.Format, report); err != nil {
		p.Error(err, "Failed to write report")
		return exitFailure
	}

	if !report.OK() {
		return exitFailure
	}
	return exitOK
}

// checkReferences loads the documents under root and checks them. Documents
// that cannot be read are logged and skipped.
func checkReferences(ctx context.Context, root string, cfg *CheckReferencesConfig, s config.Settings) (directive.Report, error) {
	opts := s.LoadOptions()
	opts.Excludes = append(append([]string{}, opts.Excludes...), cfg.Excludes...)

	docs, err := directive.LoadDocuments(ctx, root, opts)
	if err != nil {
		if docs == nil {
			return directive.Report{}, err
		}
		logger.G(ctx).WithError(err).Warn("some documents could not be read")
	}

	checker := directive.NewChecker(newScanner(cfg), s.DirectiveRoots(root))
	return checker.Check(ctx, docs), nil
}

func newScanner(cfg *CheckReferencesConfig) *directive.Scanner {
	var opts []directive.ScanOption
	if cfg.InlineCode {
		opts = append(opts, directive.WithInlineCode())
	}
	if cfg.SkipIndented {
		opts = append(opts, directive.WithIndentedCodeBlocks())
	}
	return directive.NewScanner(opts...)
}

func writeReport(p presenter.Presenter, out io.Writer, format string, report directive.Report) error {
	if format == formatText {
		p.Report(report)
		return nil
	}
	return writeStructured(out, format, report)
}
