// Package skills loads .skills.json manifests and ranks the skills they
// list against a free-text feature description. Local skills are packaged
// as directories containing a SKILL.md file with YAML frontmatter.
package skills

// Category is the manifest section an entry is listed in
type Category string

const (
	// CategoryRequired skills must be installed for the project
	CategoryRequired Category = "required"
	// CategoryRecommended skills are suggested but optional
	CategoryRecommended Category = "recommended"
	// CategoryInternal skills are private to the organisation
	CategoryInternal Category = "internal"
	// CategoryBlocked identifiers may never be used
	CategoryBlocked Category = "blocked"
	// CategoryRegistry skills are known to the registry but not selected
	CategoryRegistry Category = "registry"
)

// Categories lists the entry-bearing sections in precedence order
var Categories = []Category{CategoryRequired, CategoryRecommended, CategoryInternal, CategoryRegistry}

// Entry is one skill listed in a manifest
type Entry struct {
	Identifier  string   `json:"identifier" yaml:"identifier"`
	Category    Category `json:"category" yaml:"category"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Version     string   `json:"version,omitempty" yaml:"version,omitempty"`
	// Blocked is set when the identifier matches the manifest's blocked list
	Blocked bool `json:"blocked,omitempty" yaml:"blocked,omitempty"`
	// Content is the SKILL.md body for local skills found on disk
	Content string `json:"-" yaml:"-"`
	// Directory is where a local skill was found, empty otherwise
	Directory string `json:"directory,omitempty" yaml:"directory,omitempty"`
}

// IsLocal reports whether the entry refers to a skill in the project tree
func (e Entry) IsLocal() bool {
	_, ok := localPath(e.Identifier)
	return ok
}

// Skill is a skill package read from a SKILL.md file
type Skill struct {
	Name        string // name from frontmatter
	Description string // description from frontmatter
	Directory   string // full path to the skill directory
	Content     string // SKILL.md body without frontmatter
}

// Metadata represents the YAML frontmatter in SKILL.md files
type Metadata struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}
