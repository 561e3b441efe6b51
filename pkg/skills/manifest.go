package skills

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/gobwas/glob"
	"github.com/jingkaihe/specref/pkg/logger"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// ManifestFileName is the conventional manifest name at a project root
const ManifestFileName = ".skills.json"

// EntrySpec is the value stored against an identifier in a manifest section.
// In JSON it is either a version string or an object.
type EntrySpec struct {
	Description string `json:"description,omitempty" mapstructure:"description"`
	Version     string `json:"version,omitempty" mapstructure:"version"`
}

// Policy holds the manifest's policy switches
type Policy struct {
	AutoInstallRequired  bool `json:"auto_install_required"`
	EnforceBlocked       bool `json:"enforce_blocked"`
	AllowProjectOverride bool `json:"allow_project_override"`
}

// DefaultPolicy is applied to switches a manifest leaves out
func DefaultPolicy() Policy {
	return Policy{EnforceBlocked: true}
}

// Manifest is a parsed .skills.json. It is read-only once loaded.
type Manifest struct {
	Sections map[Category]map[string]EntrySpec
	Blocked  []string
	Policy   Policy

	policySet bool
	patterns  []glob.Glob
	local     map[string]*Skill
}

type rawPolicy struct {
	AutoInstallRequired  *bool `json:"auto_install_required"`
	EnforceBlocked       *bool `json:"enforce_blocked"`
	AllowProjectOverride *bool `json:"allow_project_override"`
}

// LoadManifest reads and parses the manifest at path, then loads the
// SKILL.md content of its local skills relative to the manifest directory.
func LoadManifest(ctx context.Context, path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ManifestParseError{Path: path, Err: errors.Wrap(err, "failed to read manifest")}
	}

	m, err := ParseManifest(data)
	if err != nil {
		var parseErr *ManifestParseError
		if errors.As(err, &parseErr) {
			parseErr.Path = path
		}
		return nil, err
	}

	baseDir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve manifest directory")
	}
	if err := m.LoadLocalSkills(ctx, baseDir); err != nil {
		return nil, err
	}

	return m, nil
}

// ParseManifest parses manifest JSON. Sections may sit under a top-level
// "skills" object or directly at the top level.
func ParseManifest(data []byte) (*Manifest, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, &ManifestParseError{Err: errors.Wrap(err, "malformed JSON")}
	}

	sections := top
	if raw, ok := top["skills"]; ok {
		sections = nil
		if err := json.Unmarshal(raw, &sections); err != nil {
			return nil, &ManifestParseError{Err: errors.Wrap(err, "\"skills\" must be an object")}
		}
	}

	m := &Manifest{
		Sections: make(map[Category]map[string]EntrySpec),
		Policy:   DefaultPolicy(),
	}

	for _, category := range Categories {
		raw, ok := sections[string(category)]
		if !ok {
			continue
		}
		entries, err := parseSection(raw)
		if err != nil {
			return nil, &ManifestParseError{Err: errors.Wrapf(err, "section %q", category)}
		}
		m.Sections[category] = entries
	}

	if raw, ok := sections[string(CategoryBlocked)]; ok {
		if err := json.Unmarshal(raw, &m.Blocked); err != nil {
			return nil, &ManifestParseError{Err: errors.Wrap(err, "\"blocked\" must be a list of identifiers")}
		}
	}

	if raw, ok := top["policy"]; ok {
		var p rawPolicy
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, &ManifestParseError{Err: errors.Wrap(err, "\"policy\" must be an object of booleans")}
		}
		m.policySet = true
		if p.AutoInstallRequired != nil {
			m.Policy.AutoInstallRequired = *p.AutoInstallRequired
		}
		if p.EnforceBlocked != nil {
			m.Policy.EnforceBlocked = *p.EnforceBlocked
		}
		if p.AllowProjectOverride != nil {
			m.Policy.AllowProjectOverride = *p.AllowProjectOverride
		}
	}

	if err := m.validate(); err != nil {
		return nil, &ManifestParseError{Err: err}
	}

	return m, nil
}

func parseSection(raw json.RawMessage) (map[string]EntrySpec, error) {
	var values map[string]interface{}
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, errors.Wrap(err, "expected an object keyed by skill identifier")
	}

	entries := make(map[string]EntrySpec, len(values))
	for id, value := range values {
		if id == "" {
			return nil, errors.New("empty skill identifier")
		}

		var spec EntrySpec
		switch v := value.(type) {
		case nil:
		case string:
			spec.Version = v
		case map[string]interface{}:
			decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
				Result:           &spec,
				WeaklyTypedInput: true,
			})
			if err != nil {
				return nil, errors.Wrap(err, "failed to create entry decoder")
			}
			if err := decoder.Decode(v); err != nil {
				return nil, errors.Wrapf(err, "entry %q", id)
			}
		default:
			return nil, errors.Errorf("entry %q must be a version string or an object", id)
		}
		entries[id] = spec
	}

	return entries, nil
}

// validate checks the single-category invariant and compiles blocked patterns
func (m *Manifest) validate() error {
	seen := make(map[string]Category)
	for _, category := range Categories {
		for _, id := range sortedIDs(m.Sections[category]) {
			if prev, dup := seen[id]; dup {
				return errors.Errorf("skill %q is listed in both %q and %q", id, prev, category)
			}
			seen[id] = category
		}
	}

	m.patterns = m.patterns[:0]
	for _, pattern := range m.Blocked {
		if pattern == "" {
			return errors.New("empty blocked identifier")
		}
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return errors.Wrapf(err, "invalid blocked pattern %q", pattern)
		}
		m.patterns = append(m.patterns, g)
	}

	return nil
}

// IsBlocked reports whether identifier matches the blocked list, either
// exactly or through a glob pattern
func (m *Manifest) IsBlocked(identifier string) bool {
	for _, b := range m.Blocked {
		if b == identifier {
			return true
		}
	}
	for _, g := range m.patterns {
		if g.Match(identifier) {
			return true
		}
	}
	return false
}

// Lookup returns the category and spec an identifier is listed under
func (m *Manifest) Lookup(identifier string) (Category, EntrySpec, bool) {
	for _, category := range Categories {
		if spec, ok := m.Sections[category][identifier]; ok {
			return category, spec, true
		}
	}
	return "", EntrySpec{}, false
}

// LoadLocalSkills reads the SKILL.md of every local: entry relative to
// baseDir. Missing skills are logged and left without content.
func (m *Manifest) LoadLocalSkills(ctx context.Context, baseDir string) error {
	discovery, err := NewDiscovery(baseDir)
	if err != nil {
		return err
	}

	if m.local == nil {
		m.local = make(map[string]*Skill)
	}
	for _, category := range Categories {
		for _, id := range sortedIDs(m.Sections[category]) {
			if _, ok := localPath(id); !ok {
				continue
			}
			skill, err := discovery.Lookup(id)
			if err != nil {
				logger.G(ctx).WithError(err).WithField("skill", id).Debug("local skill content unavailable")
				continue
			}
			m.local[id] = skill
		}
	}

	return nil
}

// Entries flattens the manifest into entries sorted by identifier. Blocked
// identifiers not listed elsewhere appear with the blocked category; glob
// patterns do not produce entries of their own.
func (m *Manifest) Entries() []Entry {
	var entries []Entry
	listed := make(map[string]bool)

	for _, category := range Categories {
		for id, spec := range m.Sections[category] {
			entry := Entry{
				Identifier:  id,
				Category:    category,
				Description: spec.Description,
				Version:     spec.Version,
				Blocked:     m.IsBlocked(id),
			}
			if skill, ok := m.local[id]; ok {
				entry.Content = skill.Content
				entry.Directory = skill.Directory
				if entry.Description == "" {
					entry.Description = skill.Description
				}
			}
			entries = append(entries, entry)
			listed[id] = true
		}
	}

	for _, id := range m.Blocked {
		if listed[id] || isPattern(id) {
			continue
		}
		listed[id] = true
		entries = append(entries, Entry{Identifier: id, Category: CategoryBlocked, Blocked: true})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Identifier < entries[j].Identifier
	})

	return entries
}

// Merge layers a project manifest over a global one. The project may add
// skills freely but may only move or redefine a globally listed skill when
// the global policy allows project overrides. Blocked lists are combined.
func Merge(global, project *Manifest) (*Manifest, error) {
	if global == nil {
		return project, nil
	}
	if project == nil {
		return global, nil
	}

	merged := &Manifest{
		Sections: make(map[Category]map[string]EntrySpec),
		Policy:   global.Policy,
		local:    make(map[string]*Skill),
	}
	merged.policySet = global.policySet
	for category, entries := range global.Sections {
		merged.Sections[category] = make(map[string]EntrySpec, len(entries))
		for id, spec := range entries {
			merged.Sections[category][id] = spec
		}
	}
	for id, skill := range global.local {
		merged.local[id] = skill
	}

	override := global.Policy.AllowProjectOverride
	for _, category := range Categories {
		for id, spec := range project.Sections[category] {
			if prev, _, exists := merged.Lookup(id); exists {
				if !override {
					continue
				}
				delete(merged.Sections[prev], id)
			}
			if merged.Sections[category] == nil {
				merged.Sections[category] = make(map[string]EntrySpec)
			}
			merged.Sections[category][id] = spec
			if skill, ok := project.local[id]; ok {
				merged.local[id] = skill
			}
		}
	}

	if override && project.policySet {
		merged.Policy = project.Policy
		merged.policySet = true
	}

	seen := make(map[string]bool)
	for _, id := range append(append([]string{}, global.Blocked...), project.Blocked...) {
		if !seen[id] {
			seen[id] = true
			merged.Blocked = append(merged.Blocked, id)
		}
	}

	if err := merged.validate(); err != nil {
		return nil, &ManifestParseError{Err: errors.Wrap(err, "merged manifest")}
	}

	return merged, nil
}

func isPattern(id string) bool {
	for _, r := range id {
		switch r {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}

func sortedIDs(entries map[string]EntrySpec) []string {
	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
