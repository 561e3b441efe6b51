package directive

import (
	"context"
	"io/fs"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/jingkaihe/specref/pkg/logger"
	"github.com/pkg/errors"
)

// DefaultExcludes are the directories skipped when collecting documents
var DefaultExcludes = []string{".git/**", "node_modules/**"}

const documentPattern = "**/*.md"

// LoadOptions controls which files LoadDocuments picks up
type LoadOptions struct {
	Include  string
	Excludes []string
}

// DefaultLoadOptions returns options that load every Markdown file outside .git and node_modules
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		Include:  documentPattern,
		Excludes: DefaultExcludes,
	}
}

// LoadDocuments reads all matching Markdown files under root. Document IDs
// are slash-separated paths relative to root. Files that cannot be read are
// skipped and returned as a combined error alongside the documents that did load.
func LoadDocuments(ctx context.Context, root string, opts LoadOptions) ([]Document, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to stat %s", root)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("%s is not a directory", root)
	}

	if opts.Include == "" {
		opts.Include = documentPattern
	}
	for _, pattern := range append([]string{opts.Include}, opts.Excludes...) {
		if !doublestar.ValidatePattern(pattern) {
			return nil, errors.Errorf("invalid glob pattern %q", pattern)
		}
	}

	fsys := os.DirFS(root)
	matches, err := doublestar.Glob(fsys, opts.Include, doublestar.WithFilesOnly())
	if err != nil {
		return nil, errors.Wrap(err, "failed to list documents")
	}
	sort.Strings(matches)

	var (
		docs   []Document
		result *multierror.Error
	)
	for _, path := range matches {
		if excluded(path, opts.Excludes) {
			logger.G(ctx).WithField("document", path).Debug("skipping excluded document")
			continue
		}

		content, err := fs.ReadFile(fsys, path)
		if err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "failed to read %s", path))
			continue
		}
		docs = append(docs, Document{ID: path, Text: string(content)})
	}

	logger.G(ctx).WithField("documents", len(docs)).Debug("loaded documents")
	return docs, result.ErrorOrNil()
}

func excluded(path string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return true
		}
	}
	return false
}
