// Package config loads specref settings from flags, SPECREF_* environment
// variables and an optional YAML config file through viper.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/jingkaihe/specref/pkg/directive"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables read by viper
const EnvPrefix = "SPECREF"

// DefaultTop is the number of skills match-skills returns without --top
const DefaultTop = 5

// Settings is the decoded configuration
type Settings struct {
	LogLevel  string      `mapstructure:"log_level"`
	LogFormat string      `mapstructure:"log_format"`
	Roots     RootsConfig `mapstructure:"roots"`
	Exclude   []string    `mapstructure:"exclude"`
	Match     MatchConfig `mapstructure:"match"`
}

// RootsConfig holds the directory of each reference kind. Relative
// directories are taken from the checked root.
type RootsConfig struct {
	Rule    string `mapstructure:"rule"`
	Persona string `mapstructure:"persona"`
	Example string `mapstructure:"example"`
}

// MatchConfig holds match-skills defaults
type MatchConfig struct {
	Top            int    `mapstructure:"top"`
	GlobalManifest string `mapstructure:"global_manifest"`
}

// SetDefaults registers default values. Every key must have a default so
// that environment variables are picked up by Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_format", "fmt")
	v.SetDefault("roots.rule", "rules")
	v.SetDefault("roots.persona", "personas")
	v.SetDefault("roots.example", "examples")
	v.SetDefault("exclude", directive.DefaultExcludes)
	v.SetDefault("match.top", DefaultTop)
	v.SetDefault("match.global_manifest", "")
}

// Init wires environment variables and a config file into v. Without an
// explicit file, .specref.yaml in the working directory is used, then
// $HOME/.specref/config.yaml. A missing default file is not an error.
func Init(v *viper.Viper, configFile string) error {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile == "" {
		configFile = findConfigFile()
	}
	if configFile == "" {
		return nil
	}

	v.SetConfigFile(configFile)
	if err := v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "failed to read config file %s", configFile)
	}

	return nil
}

func findConfigFile() string {
	candidates := []string{".specref.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".specref", "config.yaml"))
	}

	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c
		}
	}
	return ""
}

// BindFlags binds the named flags of fs to viper keys. Flag names use
// dashes; keys use underscores.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) error {
	for flag, key := range keys {
		f := fs.Lookup(flag)
		if f == nil {
			return errors.Errorf("unknown flag %q", flag)
		}
		if err := v.BindPFlag(key, f); err != nil {
			return errors.Wrapf(err, "failed to bind flag %q", flag)
		}
	}
	return nil
}

// Load decodes the current viper state into Settings. Values are not
// validated here; an explicit match.top of 0 reaches the matcher and fails
// there like --top 0.
func Load(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return s, errors.Wrap(err, "failed to unmarshal configuration")
	}
	return s, nil
}

// DirectiveRoots returns the reference roots for a checked directory
func (s Settings) DirectiveRoots(root string) directive.Roots {
	join := func(dir, fallback string) string {
		if dir == "" {
			dir = fallback
		}
		if filepath.IsAbs(dir) {
			return dir
		}
		return filepath.Join(root, dir)
	}

	return directive.Roots{
		directive.KindRule:    join(s.Roots.Rule, "rules"),
		directive.KindPersona: join(s.Roots.Persona, "personas"),
		directive.KindExample: join(s.Roots.Example, "examples"),
	}
}

// LoadOptions returns the document loading options for the configured excludes
func (s Settings) LoadOptions() directive.LoadOptions {
	opts := directive.DefaultLoadOptions()
	if s.Exclude != nil {
		opts.Excludes = s.Exclude
	}
	return opts
}
