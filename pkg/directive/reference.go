// Package directive finds @kind:path cross references in Markdown directive
// documents (rules, personas and examples), resolves them against the
// directory configured for each kind, and reports the ones that are broken.
package directive

import (
	"github.com/pkg/errors"
)

// Kind identifies what a reference token points at
type Kind string

const (
	// KindRule references a style-guide rule under the rules root
	KindRule Kind = "rule"
	// KindPersona references a persona description under the personas root
	KindPersona Kind = "persona"
	// KindExample references a prompt example under the examples root
	KindExample Kind = "example"
	// KindTeam denotes the @team tool invocation; it never points at a file
	KindTeam Kind = "team"
	// KindWeb denotes the @web tool invocation; it never points at a file
	KindWeb Kind = "web"
)

// Kinds lists every recognised kind in a stable order
var Kinds = []Kind{KindRule, KindPersona, KindExample, KindTeam, KindWeb}

// ParseKind converts a token name into a Kind
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", errors.Errorf("unknown reference kind %q", s)
}

// RequiresPath reports whether references of this kind must resolve to a file
func (k Kind) RequiresPath() bool {
	switch k {
	case KindRule, KindPersona, KindExample:
		return true
	default:
		return false
	}
}

// String returns the token name of the kind
func (k Kind) String() string {
	return string(k)
}

// Document is a Markdown source to scan
type Document struct {
	ID   string
	Text string
}

// Reference is a single @kind token found in a document.
// An empty ResolvedPath means the reference is unresolved, either because
// resolution failed or because the kind has no file to point at.
type Reference struct {
	Kind           Kind   `json:"kind" yaml:"kind"`
	RawPath        string `json:"rawPath,omitempty" yaml:"rawPath,omitempty"`
	SourceDocument string `json:"sourceDocument" yaml:"sourceDocument"`
	Line           int    `json:"line" yaml:"line"`
	Column         int    `json:"column" yaml:"column"`
	ResolvedPath   string `json:"resolvedPath,omitempty" yaml:"resolvedPath,omitempty"`
}

// IsResolved reports whether the reference points at an existing file
func (r Reference) IsResolved() bool {
	return r.ResolvedPath != ""
}

// IsBroken reports whether the reference needed a file and did not get one
func (r Reference) IsBroken() bool {
	return r.Kind.RequiresPath() && !r.IsResolved()
}

// Token renders the reference back to its source syntax
func (r Reference) Token() string {
	if !r.Kind.RequiresPath() {
		return "@" + string(r.Kind)
	}
	return "@" + string(r.Kind) + ":" + r.RawPath
}
