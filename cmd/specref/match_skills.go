package main

import (
	"context"
	"io"
	"os"

	"github.com/jingkaihe/specref/pkg/config"
	"github.com/jingkaihe/specref/pkg/logger"
	"github.com/jingkaihe/specref/pkg/presenter"
	"github.com/jingkaihe/specref/pkg/skills"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// MatchSkillsConfig holds configuration for the match-skills command
type MatchSkillsConfig struct {
	Top            int
	Format         string
	GlobalManifest string
}

// NewMatchSkillsConfig creates a MatchSkillsConfig with default values
func NewMatchSkillsConfig() *MatchSkillsConfig {
	return &MatchSkillsConfig{
		Top:            config.DefaultTop,
		Format:         formatText,
		GlobalManifest: "",
	}
}

var matchSkillsCmd = &cobra.Command{
	Use:   "match-skills <query> <manifestPath>",
	Short: "Rank the skills of a manifest against a feature description",
	Long: `Score every skill in a .skills.json manifest against <query> and print the
most relevant ones. Blocked skills are never suggested. Exits 2 when the
manifest cannot be parsed.

Examples:
  specref match-skills "add react testing" .skills.json
  specref match-skills "sql injection review" .skills.json --top 3 --format json
  specref match-skills "deploy" .skills.json --global-manifest ~/.specref/skills.json`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := getMatchSkillsConfigFromFlags(cmd, settings)
		ctx, _ := logger.WithRun(cmd.Context(), "match-skills")

		os.Exit(runMatchSkills(ctx, args[0], args[1], cfg, os.Stdout, os.Stderr))
	},
}

func init() {
	registerMatchSkillsFlags(matchSkillsCmd)
	rootCmd.AddCommand(matchSkillsCmd)
}

func registerMatchSkillsFlags(cmd *cobra.Command) {
	defaults := NewMatchSkillsConfig()
	cmd.Flags().IntP("top", "n", defaults.Top, "Maximum number of skills to return (default from match.top)")
	cmd.Flags().StringP("format", "f", defaults.Format, "Output format (text, json, yaml)")
	cmd.Flags().StringP("global-manifest", "g", defaults.GlobalManifest, "Global manifest the project manifest is layered over (default from match.global_manifest)")
}

// getMatchSkillsConfigFromFlags starts from the configured defaults and
// applies only the flags set on the command line
func getMatchSkillsConfigFromFlags(cmd *cobra.Command, s config.Settings) *MatchSkillsConfig {
	cfg := NewMatchSkillsConfig()
	cfg.Top = s.Match.Top
	cfg.GlobalManifest = s.Match.GlobalManifest

	if cmd.Flags().Changed("top") {
		if top, err := cmd.Flags().GetInt("top"); err == nil {
			cfg.Top = top
		}
	}
	if format, err := cmd.Flags().GetString("format"); err == nil {
		cfg.Format = format
	}
	if cmd.Flags().Changed("global-manifest") {
		if global, err := cmd.Flags().GetString("global-manifest"); err == nil {
			cfg.GlobalManifest = global
		}
	}

	return cfg
}

// runMatchSkills loads the manifest, matches query against it and returns
// the process exit code
func runMatchSkills(ctx context.Context, query, manifestPath string, cfg *MatchSkillsConfig, out, errOut io.Writer) int {
	p := presenter.NewWithOptions(out, errOut, presenter.ColorAuto)

	if err := validateFormat(cfg.Format); err != nil {
		p.Error(err, "Invalid configuration")
		return exitFailure
	}

	manifest, err := loadManifest(ctx, manifestPath, cfg.GlobalManifest)
	if err != nil {
		p.Error(err, "Failed to load skill manifest")
		return manifestExitCode(err)
	}

	results, err := skills.NewMatcher(skills.WithPolicy(manifest.Policy)).Match(query, manifest.Entries(), cfg.Top)
	if err != nil {
		p.Error(err, "Failed to match skills")
		return exitFailure
	}

	logger.G(ctx).WithField("query", query).
		WithField("results", len(results)).
		Info("matched skills")

	if cfg.Format == formatText {
		p.Matches(results)
		return exitOK
	}
	if err := writeStructured(out, cfg.Format, results); err != nil {
		p.Error(err, "Failed to write results")
		return exitFailure
	}
	return exitOK
}

// loadManifest loads the project manifest and layers it over the global
// manifest when one is configured
func loadManifest(ctx context.Context, manifestPath, globalPath string) (*skills.Manifest, error) {
	project, err := skills.LoadManifest(ctx, manifestPath)
	if err != nil {
		return nil, err
	}
	if globalPath == "" {
		return project, nil
	}

	global, err := skills.LoadManifest(ctx, globalPath)
	if err != nil {
		return nil, err
	}
	return skills.Merge(global, project)
}

func manifestExitCode(err error) int {
	var parseErr *skills.ManifestParseError
	if errors.As(err, &parseErr) {
		return exitParseFailed
	}
	return exitFailure
}
