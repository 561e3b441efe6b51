package skills

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"
)

const (
	skillFileName = "SKILL.md"
	localPrefix   = "local:"
)

// Discovery finds SKILL.md packages under a project's skills directories
type Discovery struct {
	baseDir   string
	skillDirs []string
}

// Option is a function that configures a Discovery
type Option func(*Discovery) error

// WithSkillDirs sets the directories scanned for skill packages. Relative
// directories are taken from the base directory.
func WithSkillDirs(dirs ...string) Option {
	return func(d *Discovery) error {
		d.skillDirs = dirs
		return nil
	}
}

// NewDiscovery creates a discovery rooted at baseDir, the directory holding
// .skills.json. Without options it scans baseDir/skills.
func NewDiscovery(baseDir string, opts ...Option) (*Discovery, error) {
	if baseDir == "" {
		return nil, errors.New("base directory is required")
	}

	d := &Discovery{
		baseDir:   baseDir,
		skillDirs: []string{"skills"},
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}

	return d, nil
}

// DiscoverSkills finds every skill package in the configured directories,
// keyed by the local: identifier a manifest would use for it. The first
// directory to provide an identifier wins.
func (d *Discovery) DiscoverSkills() (map[string]*Skill, error) {
	skills := make(map[string]*Skill)

	for _, dir := range d.skillDirs {
		d.discoverSkillsFromDir(dir, skills)
	}

	return skills, nil
}

func (d *Discovery) discoverSkillsFromDir(dir string, skills map[string]*Skill) {
	absDir := dir
	if !filepath.IsAbs(dir) {
		absDir = filepath.Join(d.baseDir, dir)
	}

	entries, err := os.ReadDir(absDir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		entryPath := filepath.Join(absDir, entry.Name())

		info, err := os.Stat(entryPath)
		if err != nil || !info.IsDir() {
			continue
		}

		skill, err := LoadSkillFile(filepath.Join(entryPath, skillFileName))
		if err != nil {
			continue
		}
		skill.Directory = entryPath

		id := d.identifierFor(entryPath)
		if _, exists := skills[id]; !exists {
			skills[id] = skill
		}
	}
}

// identifierFor builds the local: identifier of a skill directory
func (d *Discovery) identifierFor(dir string) string {
	rel, err := filepath.Rel(d.baseDir, dir)
	if err != nil {
		return localPrefix + filepath.ToSlash(dir)
	}
	return localPrefix + "./" + filepath.ToSlash(rel)
}

// Identifiers returns the sorted identifiers of every discovered skill
func (d *Discovery) Identifiers() ([]string, error) {
	skills, err := d.DiscoverSkills()
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(skills))
	for id := range skills {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return ids, nil
}

// Lookup loads the skill a local: identifier points at. The identifier may
// name a skill directory or a Markdown file directly.
func (d *Discovery) Lookup(identifier string) (*Skill, error) {
	rel, ok := localPath(identifier)
	if !ok {
		return nil, errors.Errorf("skill '%s' is not a local skill", identifier)
	}

	path := filepath.FromSlash(rel)
	if !filepath.IsAbs(path) {
		path = filepath.Join(d.baseDir, path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "skill '%s' not found", identifier)
	}

	skillFile, dir := path, filepath.Dir(path)
	if info.IsDir() {
		skillFile, dir = filepath.Join(path, skillFileName), path
	}

	skill, err := LoadSkillFile(skillFile)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load skill '%s'", identifier)
	}
	skill.Directory = dir

	return skill, nil
}

// LoadSkillFile reads a SKILL.md file. Frontmatter is optional; when present
// it supplies the name and description.
func LoadSkillFile(path string) (*Skill, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read skill file")
	}

	md := goldmark.New(
		goldmark.WithExtensions(meta.Meta),
	)

	var buf bytes.Buffer
	pctx := parser.NewContext()

	if err := md.Convert(content, &buf, parser.WithContext(pctx)); err != nil {
		return nil, errors.Wrap(err, "failed to parse markdown")
	}

	var metadata Metadata
	if raw, err := meta.TryGet(pctx); err != nil {
		return nil, errors.Wrap(err, "invalid frontmatter")
	} else if raw != nil {
		if err := decodeMetadata(raw, &metadata); err != nil {
			return nil, err
		}
	}

	return &Skill{
		Name:        metadata.Name,
		Description: metadata.Description,
		Content:     extractBodyContent(string(content)),
	}, nil
}

func decodeMetadata(raw map[string]interface{}, out *Metadata) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create frontmatter decoder")
	}
	return errors.Wrap(decoder.Decode(raw), "failed to decode frontmatter")
}

// extractBodyContent removes YAML frontmatter and returns the body
func extractBodyContent(content string) string {
	if !strings.HasPrefix(content, "---") {
		return content
	}

	lines := strings.Split(content, "\n")
	frontmatterEnd := -1

	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			frontmatterEnd = i
			break
		}
	}

	if frontmatterEnd == -1 {
		return content
	}

	return strings.TrimLeft(strings.Join(lines[frontmatterEnd+1:], "\n"), "\n")
}

// localPath returns the path part of a local: identifier
func localPath(identifier string) (string, bool) {
	if !strings.HasPrefix(identifier, localPrefix) {
		return "", false
	}
	rel := strings.TrimPrefix(identifier, localPrefix)
	return rel, rel != ""
}
