package skills

import (
	"github.com/invopop/jsonschema"
)

type manifestSchema struct {
	Skills manifestSectionsSchema `json:"skills" jsonschema:"description=Skill sections keyed by category"`
	Policy Policy                 `json:"policy,omitempty" jsonschema:"description=Policy switches applied by the package manager"`
}

type manifestSectionsSchema struct {
	Required    map[string]EntrySpec `json:"required,omitempty" jsonschema:"description=Skills the project must install"`
	Recommended map[string]EntrySpec `json:"recommended,omitempty" jsonschema:"description=Skills suggested for the project"`
	Internal    map[string]EntrySpec `json:"internal,omitempty" jsonschema:"description=Organisation-internal skills"`
	Registry    map[string]EntrySpec `json:"registry,omitempty" jsonschema:"description=Skills known to the registry"`
	Blocked     []string             `json:"blocked,omitempty" jsonschema:"description=Identifiers or glob patterns that may never be used"`
}

// Schema returns the JSON schema of a .skills.json manifest
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
	}

	schema := reflector.Reflect(&manifestSchema{})
	schema.Title = "Skill manifest"
	schema.Description = "Project skill configuration read from " + ManifestFileName
	return schema
}
