package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jingkaihe/specref/pkg/logger"
	"github.com/jingkaihe/specref/pkg/presenter"
	"github.com/jingkaihe/specref/pkg/skills"
	"github.com/spf13/cobra"
)

// ListSkillsConfig holds configuration for the list-skills command
type ListSkillsConfig struct {
	Format         string
	GlobalManifest string
	SkillDirs      []string
}

// NewListSkillsConfig creates a ListSkillsConfig with default values
func NewListSkillsConfig() *ListSkillsConfig {
	return &ListSkillsConfig{
		Format:         formatText,
		GlobalManifest: "",
		SkillDirs:      []string{"skills"},
	}
}

var listSkillsCmd = &cobra.Command{
	Use:   "list-skills <manifestPath>",
	Short: "List the skills of a manifest",
	Long: `List every skill in a .skills.json manifest with its category, version and
status. Local skills are loaded from disk; skill packages found next to the
manifest but not listed in it are reported. Exits 2 when the manifest cannot
be parsed.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := getListSkillsConfigFromFlags(cmd)
		if !cmd.Flags().Changed("global-manifest") {
			cfg.GlobalManifest = settings.Match.GlobalManifest
		}
		ctx, _ := logger.WithRun(cmd.Context(), "list-skills")

		os.Exit(runListSkills(ctx, args[0], cfg, os.Stdout, os.Stderr))
	},
}

func init() {
	defaults := NewListSkillsConfig()
	listSkillsCmd.Flags().StringP("format", "f", defaults.Format, "Output format (text, json, yaml)")
	listSkillsCmd.Flags().StringP("global-manifest", "g", defaults.GlobalManifest, "Global manifest the project manifest is layered over")
	listSkillsCmd.Flags().StringSlice("skill-dir", defaults.SkillDirs, "Directories searched for unlisted skill packages, relative to the manifest")

	rootCmd.AddCommand(listSkillsCmd)
}

func getListSkillsConfigFromFlags(cmd *cobra.Command) *ListSkillsConfig {
	cfg := NewListSkillsConfig()

	if format, err := cmd.Flags().GetString("format"); err == nil {
		cfg.Format = format
	}
	if global, err := cmd.Flags().GetString("global-manifest"); err == nil {
		cfg.GlobalManifest = global
	}
	if dirs, err := cmd.Flags().GetStringSlice("skill-dir"); err == nil {
		cfg.SkillDirs = dirs
	}

	return cfg
}

func runListSkills(ctx context.Context, manifestPath string, cfg *ListSkillsConfig, out, errOut io.Writer) int {
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
	entries := manifest.Entries()

	if cfg.Format != formatText {
		if err := writeStructured(out, cfg.Format, entries); err != nil {
			p.Error(err, "Failed to write skills")
			return exitFailure
		}
		return exitOK
	}

	p.Entries(entries)

	for _, e := range entries {
		if e.Category == skills.CategoryRequired && e.IsLocal() && e.Directory == "" && manifest.Policy.AutoInstallRequired {
			p.Warning(fmt.Sprintf("Required skill '%s' is not installed", e.Identifier))
		}
	}

	unlisted, err := unlistedSkills(manifestPath, manifest, cfg.SkillDirs)
	if err != nil {
		logger.G(ctx).WithError(err).Warn("failed to discover skills on disk")
		return exitOK
	}
	for _, id := range unlisted {
		p.Warning(fmt.Sprintf("Skill '%s' is on disk but not listed in the manifest", id))
	}

	return exitOK
}

// unlistedSkills returns the identifiers of skill packages next to the
// manifest that the manifest does not mention
func unlistedSkills(manifestPath string, manifest *skills.Manifest, dirs []string) ([]string, error) {
	baseDir, err := filepath.Abs(filepath.Dir(manifestPath))
	if err != nil {
		return nil, err
	}

	discovery, err := skills.NewDiscovery(baseDir, skills.WithSkillDirs(dirs...))
	if err != nil {
		return nil, err
	}
	ids, err := discovery.Identifiers()
	if err != nil {
		return nil, err
	}

	var unlisted []string
	for _, id := range ids {
		if _, _, ok := manifest.Lookup(id); ok || manifest.IsBlocked(id) {
			continue
		}
		unlisted = append(unlisted, id)
	}
	return unlisted, nil
}
