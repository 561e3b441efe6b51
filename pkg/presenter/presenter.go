// Package presenter provides consistent CLI output for user-facing messages,
// reference reports and skill match tables, with color support and quiet mode.
package presenter

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/jingkaihe/specref/pkg/directive"
	"github.com/jingkaihe/specref/pkg/skills"
)

// Presenter defines the interface for consistent CLI output
type Presenter interface {
	Error(err error, context string)
	Success(message string)
	Warning(message string)
	Info(message string)
	Section(title string)
	Separator()
	Report(report directive.Report)
	Matches(results []skills.MatchResult)
	Entries(entries []skills.Entry)
	SetQuiet(quiet bool)
	IsQuiet() bool
}

// TerminalPresenter implements Presenter for terminal output
type TerminalPresenter struct {
	output      io.Writer
	errorOutput io.Writer
	colorMode   ColorMode
	quiet       bool
}

// ColorMode represents different color output modes
type ColorMode int

const (
	// ColorAuto detects whether to use colored output from the terminal
	ColorAuto ColorMode = iota
	// ColorAlways forces colored output
	ColorAlways
	// ColorNever disables colored output
	ColorNever
)

// New creates a new TerminalPresenter writing to stdout and stderr
func New() *TerminalPresenter {
	return NewWithOptions(os.Stdout, os.Stderr, detectColorMode())
}

// NewWithOptions creates a TerminalPresenter with custom writers
func NewWithOptions(output, errorOutput io.Writer, colorMode ColorMode) *TerminalPresenter {
	p := &TerminalPresenter{
		output:      output,
		errorOutput: errorOutput,
		colorMode:   colorMode,
	}

	switch colorMode {
	case ColorAlways:
		color.NoColor = false
	case ColorNever:
		color.NoColor = true
	case ColorAuto:
	}

	return p
}

func detectColorMode() ColorMode {
	if os.Getenv("NO_COLOR") != "" {
		return ColorNever
	}

	switch os.Getenv("SPECREF_COLOR") {
	case "always", "force":
		return ColorAlways
	case "never", "off":
		return ColorNever
	default:
		return ColorAuto
	}
}

// Error displays an error message to stderr. Errors are shown in quiet mode.
func (p *TerminalPresenter) Error(err error, context string) {
	if err == nil {
		return
	}

	errorColor := color.New(color.FgRed, color.Bold)
	if context != "" {
		errorColor.Fprintf(p.errorOutput, "[ERROR] %s: %v\n", context, err)
	} else {
		errorColor.Fprintf(p.errorOutput, "[ERROR] %v\n", err)
	}
}

// Success displays a success message
func (p *TerminalPresenter) Success(message string) {
	if p.quiet {
		return
	}
	color.New(color.FgGreen, color.Bold).Fprintf(p.output, "✓ %s\n", message)
}

// Warning displays a warning message
func (p *TerminalPresenter) Warning(message string) {
	if p.quiet {
		return
	}
	color.New(color.FgYellow, color.Bold).Fprintf(p.output, "⚠ %s\n", message)
}

// Info displays an informational message
func (p *TerminalPresenter) Info(message string) {
	if p.quiet {
		return
	}
	fmt.Fprintf(p.output, "%s\n", message)
}

// Section displays a section header
func (p *TerminalPresenter) Section(title string) {
	if p.quiet {
		return
	}

	headerColor := color.New(color.Bold)
	headerColor.Fprintf(p.output, "%s\n", title)
	headerColor.Fprintf(p.output, "%s\n", strings.Repeat("-", len(title)))
}

// Separator displays a visual separator
func (p *TerminalPresenter) Separator() {
	if p.quiet {
		return
	}
	color.New(color.Faint).Fprintf(p.output, "%s\n", strings.Repeat("-", 60))
}

// Report prints every broken reference as "document:line: token" followed
// by a summary line. Broken references are printed in quiet mode too.
func (p *TerminalPresenter) Report(report directive.Report) {
	brokenColor := color.New(color.FgRed)
	for _, b := range report.BrokenReferences {
		brokenColor.Fprintf(p.output, "%s:%d: %s\n", b.SourceDocument, b.Line, b.Token())
	}

	summary := fmt.Sprintf("%d references, %d broken", report.Total, report.Broken)
	if report.OK() {
		p.Success(summary)
		return
	}
	if !p.quiet {
		color.New(color.FgRed, color.Bold).Fprintf(p.output, "✗ %s\n", summary)
	}
}

// Matches prints ranked skill matches as a table
func (p *TerminalPresenter) Matches(results []skills.MatchResult) {
	if len(results) == 0 {
		p.Info("No matching skills")
		return
	}

	tw := tabwriter.NewWriter(p.output, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tSCORE\tSKILL\tCATEGORY\tMATCHED")
	fmt.Fprintln(tw, "----\t-----\t-----\t--------\t-------")
	for i, r := range results {
		fmt.Fprintf(tw, "%d\t%.3f\t%s\t%s\t%s\n", i+1, r.Score, r.SkillIdentifier, r.Category, strings.Join(r.MatchedTerms, ","))
	}
	tw.Flush()
}

// Entries prints manifest entries as a table
func (p *TerminalPresenter) Entries(entries []skills.Entry) {
	if len(entries) == 0 {
		p.Info("No skills in manifest")
		return
	}

	tw := tabwriter.NewWriter(p.output, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SKILL\tCATEGORY\tVERSION\tSTATUS\tDESCRIPTION")
	fmt.Fprintln(tw, "-----\t--------\t-------\t------\t-----------")
	for _, e := range entries {
		status := "ok"
		switch {
		case e.Blocked:
			status = "blocked"
		case e.IsLocal() && e.Directory == "":
			status = "missing"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Identifier, e.Category, e.Version, status, truncate(e.Description, 60))
	}
	tw.Flush()
}

// SetQuiet enables or disables quiet mode
func (p *TerminalPresenter) SetQuiet(quiet bool) {
	p.quiet = quiet
}

// IsQuiet returns whether quiet mode is enabled
func (p *TerminalPresenter) IsQuiet() bool {
	return p.quiet
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

var defaultPresenter = New()

// Error displays an error message using the default presenter
func Error(err error, context string) {
	defaultPresenter.Error(err, context)
}

// Success displays a success message using the default presenter
func Success(message string) {
	defaultPresenter.Success(message)
}

// Warning displays a warning message using the default presenter
func Warning(message string) {
	defaultPresenter.Warning(message)
}

// Info displays an informational message using the default presenter
func Info(message string) {
	defaultPresenter.Info(message)
}

// Section displays a section header using the default presenter
func Section(title string) {
	defaultPresenter.Section(title)
}

// Separator displays a visual separator using the default presenter
func Separator() {
	defaultPresenter.Separator()
}

// SetQuiet enables or disables quiet mode for the default presenter
func SetQuiet(quiet bool) {
	defaultPresenter.SetQuiet(quiet)
}

// IsQuiet returns whether quiet mode is enabled for the default presenter
func IsQuiet() bool {
	return defaultPresenter.IsQuiet()
}
