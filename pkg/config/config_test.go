package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jingkaihe/specref/pkg/directive"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	s, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "warn", s.LogLevel)
	assert.Equal(t, "fmt", s.LogFormat)
	assert.Equal(t, RootsConfig{Rule: "rules", Persona: "personas", Example: "examples"}, s.Roots)
	assert.Equal(t, directive.DefaultExcludes, s.Exclude)
	assert.Equal(t, DefaultTop, s.Match.Top)
}

func TestInitReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "specref.yaml")
	content := `log_level: debug
roots:
  rule: guidelines
  persona: /shared/personas
exclude:
  - drafts/**
match:
  top: 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	v := viper.New()
	require.NoError(t, Init(v, path))

	s, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "debug", s.LogLevel)
	assert.Equal(t, "guidelines", s.Roots.Rule)
	assert.Equal(t, "examples", s.Roots.Example)
	assert.Equal(t, []string{"drafts/**"}, s.Exclude)
	assert.Equal(t, 3, s.Match.Top)

	roots := s.DirectiveRoots("/repo")
	assert.Equal(t, filepath.Join("/repo", "guidelines"), roots[directive.KindRule])
	assert.Equal(t, "/shared/personas", roots[directive.KindPersona])
	assert.Equal(t, filepath.Join("/repo", "examples"), roots[directive.KindExample])

	assert.Equal(t, []string{"drafts/**"}, s.LoadOptions().Excludes)
}

func TestInitMissingConfigFile(t *testing.T) {
	v := viper.New()
	assert.Error(t, Init(v, filepath.Join(t.TempDir(), "absent.yaml")))
}

func TestInitFindsDefaultConfigFiles(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())

	require.NoError(t, os.MkdirAll(filepath.Join(home, ".specref"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(home, ".specref", "config.yaml"), []byte("log_format: json\n"), 0o644))

	v := viper.New()
	require.NoError(t, Init(v, ""))
	s, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "json", s.LogFormat)

	require.NoError(t, os.WriteFile(".specref.yaml", []byte("log_format: text\n"), 0o644))

	v = viper.New()
	require.NoError(t, Init(v, ""))
	s, err = Load(v)
	require.NoError(t, err)
	assert.Equal(t, "text", s.LogFormat, "working directory config wins")
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	t.Setenv("SPECREF_MATCH_TOP", "7")
	t.Setenv("SPECREF_ROOTS_EXAMPLE", "samples")

	v := viper.New()
	require.NoError(t, Init(v, ""))

	s, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 7, s.Match.Top)
	assert.Equal(t, "samples", s.Roots.Example)
}

func TestEnvironmentTopZeroIsKept(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	t.Setenv("SPECREF_MATCH_TOP", "0")

	v := viper.New()
	require.NoError(t, Init(v, ""))

	s, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Match.Top)
}

func TestBindFlags(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("top", 0, "")
	fs.String("log-level", "", "")
	require.NoError(t, fs.Parse([]string{"--top", "9"}))

	require.NoError(t, BindFlags(v, fs, map[string]string{"top": "match.top", "log-level": "log_level"}))

	s, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 9, s.Match.Top)
	assert.Equal(t, "warn", s.LogLevel, "unset flags keep the default")

	assert.Error(t, BindFlags(v, fs, map[string]string{"missing": "x"}))
}
