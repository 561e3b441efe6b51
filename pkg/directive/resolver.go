package directive

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultExtension is appended to extension-less paths that do not exist as written
const DefaultExtension = ".md"

// Roots maps each path-bearing kind to the directory its references live in
type Roots map[Kind]string

// DefaultRoots returns the conventional rules/, personas/ and examples/ layout under root
func DefaultRoots(root string) Roots {
	return Roots{
		KindRule:    filepath.Join(root, "rules"),
		KindPersona: filepath.Join(root, "personas"),
		KindExample: filepath.Join(root, "examples"),
	}
}

// ReferenceNotFoundError reports a reference whose target file does not exist
type ReferenceNotFoundError struct {
	Reference Reference
	Path      string
	Reason    string
}

func (e *ReferenceNotFoundError) Error() string {
	msg := fmt.Sprintf("%s in %s", e.Reference.Token(), e.Reference.SourceDocument)
	if e.Path != "" {
		msg += fmt.Sprintf(": %s", e.Path)
	}
	if e.Reason != "" {
		msg += fmt.Sprintf(": %s", e.Reason)
	}
	return msg
}

// Resolve sets ResolvedPath on a copy of ref to the kind's root joined with
// RawPath when a file exists there. Symlinks and ".." segments are left to
// the filesystem, so the reported path is always the joined one. A missing
// target yields a *ReferenceNotFoundError together with the unresolved
// reference. Tool tokens (@team, @web) come back as-is.
func Resolve(ref Reference, roots Roots) (Reference, error) {
	ref.ResolvedPath = ""
	if !ref.Kind.RequiresPath() {
		return ref, nil
	}

	root, ok := roots[ref.Kind]
	if !ok || root == "" {
		return ref, &ReferenceNotFoundError{Reference: ref, Reason: "no root configured for kind " + ref.Kind.String()}
	}

	candidates := []string{ref.RawPath}
	if filepath.Ext(ref.RawPath) == "" {
		candidates = append(candidates, ref.RawPath+DefaultExtension)
	}

	var tried string
	for _, candidate := range candidates {
		path := filepath.Join(root, filepath.FromSlash(candidate))
		if tried == "" {
			tried = path
		}

		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}

		ref.ResolvedPath = path
		return ref, nil
	}

	return ref, &ReferenceNotFoundError{Reference: ref, Path: tried}
}
