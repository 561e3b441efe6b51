package directive

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func documentIDs(docs []Document) []string {
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids
}

func TestLoadDocuments(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root,
		"README.md",
		"rules/security/sql.md",
		"personas/reviewer.md",
		"examples/airflow/dag.py",
		"node_modules/pkg/README.md",
		".git/info/notes.md",
	)
	ctx := context.Background()

	t.Run("default options", func(t *testing.T) {
		docs, err := LoadDocuments(ctx, root, DefaultLoadOptions())
		require.NoError(t, err)
		assert.Equal(t, []string{"README.md", "personas/reviewer.md", "rules/security/sql.md"}, documentIDs(docs))
		assert.Equal(t, "rules/security/sql.md", docs[2].Text)
	})

	t.Run("custom excludes", func(t *testing.T) {
		opts := DefaultLoadOptions()
		opts.Excludes = append(opts.Excludes, "personas/**", "*.md")

		docs, err := LoadDocuments(ctx, root, opts)
		require.NoError(t, err)
		assert.Equal(t, []string{"rules/security/sql.md"}, documentIDs(docs))
	})

	t.Run("custom include", func(t *testing.T) {
		docs, err := LoadDocuments(ctx, root, LoadOptions{Include: "rules/**/*.md"})
		require.NoError(t, err)
		assert.Equal(t, []string{"rules/security/sql.md"}, documentIDs(docs))
	})

	t.Run("invalid pattern", func(t *testing.T) {
		_, err := LoadDocuments(ctx, root, LoadOptions{Excludes: []string{"rules/[a"}})
		assert.Error(t, err)
	})

	t.Run("root must be a directory", func(t *testing.T) {
		_, err := LoadDocuments(ctx, filepath.Join(root, "README.md"), DefaultLoadOptions())
		assert.Error(t, err)

		_, err = LoadDocuments(ctx, filepath.Join(root, "missing"), DefaultLoadOptions())
		assert.Error(t, err)
	})
}

func TestLoadDocumentsCollectsReadErrors(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("file permissions are not enforced for root")
	}

	root := t.TempDir()
	writeTree(t, root, "rules/ok.md", "rules/locked.md")
	locked := filepath.Join(root, "rules", "locked.md")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o644) })

	docs, err := LoadDocuments(context.Background(), root, DefaultLoadOptions())
	require.Error(t, err)

	merr, ok := err.(*multierror.Error)
	require.True(t, ok)
	assert.Len(t, merr.Errors, 1)
	assert.Contains(t, merr.Error(), "rules/locked.md")
	assert.Equal(t, []string{"rules/ok.md"}, documentIDs(docs))
}
