package directive

import (
	"fmt"
	"strings"
)

// BrokenReference is the report entry for a reference that did not resolve
type BrokenReference struct {
	SourceDocument string `json:"sourceDocument" yaml:"sourceDocument"`
	Kind           Kind   `json:"kind" yaml:"kind"`
	RawPath        string `json:"rawPath" yaml:"rawPath"`
	Line           int    `json:"line,omitempty" yaml:"line,omitempty"`
}

// Token renders the reference as it appeared in the document
func (b BrokenReference) Token() string {
	return "@" + string(b.Kind) + ":" + b.RawPath
}

// Report summarises a reference check
type Report struct {
	Total            int               `json:"total" yaml:"total"`
	Broken           int               `json:"broken" yaml:"broken"`
	BrokenReferences []BrokenReference `json:"brokenReferences" yaml:"brokenReferences"`
	ByKind           map[Kind]int      `json:"byKind,omitempty" yaml:"byKind,omitempty"`
}

// BuildReport aggregates resolved references. It never fails: broken
// references are data, not errors.
func BuildReport(refs []Reference) Report {
	report := Report{
		BrokenReferences: []BrokenReference{},
		ByKind:           make(map[Kind]int),
	}

	for _, ref := range refs {
		report.Total++
		report.ByKind[ref.Kind]++

		if !ref.IsBroken() {
			continue
		}
		report.Broken++
		report.BrokenReferences = append(report.BrokenReferences, BrokenReference{
			SourceDocument: ref.SourceDocument,
			Kind:           ref.Kind,
			RawPath:        ref.RawPath,
			Line:           ref.Line,
		})
	}

	return report
}

// OK reports whether every reference resolved
func (r Report) OK() bool {
	return r.Broken == 0
}

// String renders the report as plain text, one broken reference per line
func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d references, %d broken\n", r.Total, r.Broken)
	for _, br := range r.BrokenReferences {
		if br.Line > 0 {
			fmt.Fprintf(&b, "%s:%d: %s\n", br.SourceDocument, br.Line, br.Token())
		} else {
			fmt.Fprintf(&b, "%s: %s\n", br.SourceDocument, br.Token())
		}
	}
	return b.String()
}
