package main

import (
	"fmt"
	"os"

	"github.com/jingkaihe/specref/pkg/config"
	"github.com/jingkaihe/specref/pkg/logger"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// settings is populated before any subcommand runs
var settings config.Settings

var rootCmd = &cobra.Command{
	Use:   "specref",
	Short: "Check directive cross references and match skills",
	Long: `specref keeps a directive repository honest. It finds @rule:, @persona: and
@example: references in Markdown that point at missing files, and ranks the
skills of a .skills.json manifest against a feature description.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return initConfig(cmd)
	},
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
		os.Exit(1)
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (default .specref.yaml, then $HOME/.specref/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level (panic, fatal, error, warn, info, debug, trace)")
	rootCmd.PersistentFlags().String("log-format", "fmt", "Log format (fmt, json)")

	if err := config.BindFlags(viper.GetViper(), rootCmd.PersistentFlags(), map[string]string{
		"log-level":  "log_level",
		"log-format": "log_format",
	}); err != nil {
		panic(err)
	}
}

func initConfig(cmd *cobra.Command) error {
	configFile, _ := cmd.Flags().GetString("config")

	v := viper.GetViper()
	if err := config.Init(v, configFile); err != nil {
		return err
	}

	s, err := config.Load(v)
	if err != nil {
		return err
	}

	if err := logger.SetLogLevel(s.LogLevel); err != nil {
		return errors.Wrapf(err, "invalid log level %q", s.LogLevel)
	}
	logger.SetLogFormat(s.LogFormat)

	settings = s
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
