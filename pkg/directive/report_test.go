package directive

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildReport(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		report := BuildReport(nil)
		assert.Equal(t, 0, report.Total)
		assert.Equal(t, 0, report.Broken)
		assert.NotNil(t, report.BrokenReferences)
		assert.True(t, report.OK())
	})

	t.Run("counts broken path references only", func(t *testing.T) {
		refs := []Reference{
			{Kind: KindRule, RawPath: "a.md", SourceDocument: "x.md", ResolvedPath: "/r/rules/a.md"},
			{Kind: KindPersona, RawPath: "ghost.md", SourceDocument: "y.md", Line: 4},
			{Kind: KindTeam, SourceDocument: "y.md"},
			{Kind: KindWeb, SourceDocument: "z.md"},
		}

		report := BuildReport(refs)
		assert.Equal(t, 4, report.Total)
		assert.Equal(t, 1, report.Broken)
		assert.False(t, report.OK())
		assert.Equal(t, []BrokenReference{{SourceDocument: "y.md", Kind: KindPersona, RawPath: "ghost.md", Line: 4}}, report.BrokenReferences)
		assert.Equal(t, 1, report.ByKind[KindTeam])
		assert.Equal(t, 1, report.ByKind[KindRule])
	})

	t.Run("every reference broken still succeeds", func(t *testing.T) {
		refs := []Reference{
			{Kind: KindRule, RawPath: "a.md"},
			{Kind: KindExample, RawPath: "b.md"},
		}
		report := BuildReport(refs)
		assert.Equal(t, 2, report.Broken)
		assert.Len(t, report.BrokenReferences, 2)
	})
}

func TestReportJSON(t *testing.T) {
	report := BuildReport([]Reference{{Kind: KindPersona, RawPath: "ghost.md", SourceDocument: "b.md"}})

	data, err := json.Marshal(report)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, float64(1), decoded["total"])
	assert.Equal(t, float64(1), decoded["broken"])

	broken, ok := decoded["brokenReferences"].([]any)
	require.True(t, ok)
	require.Len(t, broken, 1)
	entry := broken[0].(map[string]any)
	assert.Equal(t, "b.md", entry["sourceDocument"])
	assert.Equal(t, "persona", entry["kind"])
	assert.Equal(t, "ghost.md", entry["rawPath"])
}

func TestReportString(t *testing.T) {
	report := BuildReport([]Reference{
		{Kind: KindPersona, RawPath: "ghost.md", SourceDocument: "b.md", Line: 3},
		{Kind: KindRule, RawPath: "x.md", SourceDocument: "c.md"},
	})

	assert.Equal(t, "2 references, 2 broken\nb.md:3: @persona:ghost.md\nc.md: @rule:x.md\n", report.String())
}

func TestCheckerScenario(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "rules/security/sql.md")

	docs := []Document{
		{ID: "a.md", Text: "Queries must follow @rule:security/sql.md"},
		{ID: "b.md", Text: "Adopt @persona:ghost.md"},
	}

	checker := NewChecker(NewScanner(), DefaultRoots(root))
	report := checker.Check(context.Background(), docs)

	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 1, report.Broken)
	require.Len(t, report.BrokenReferences, 1)
	assert.Equal(t, KindPersona, report.BrokenReferences[0].Kind)
	assert.Equal(t, "ghost.md", report.BrokenReferences[0].RawPath)
	assert.Equal(t, "b.md", report.BrokenReferences[0].SourceDocument)
}

func TestCheckerIgnoresCodeExamples(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "rules/data/repository.md")

	doc := Document{
		ID: "rules/data/repository.md",
		Text: "# Repository rule\n\n" +
			"Pair with @rule:data/repository.md.\n\n" +
			"```java\n" +
			"@Query(\"select o from Order o\")\n" +
			"// see @rule:data/does-not-exist.md\n" +
			"List<Order> findAll();\n" +
			"```\n",
	}

	report := NewChecker(nil, DefaultRoots(root)).Check(context.Background(), []Document{doc})
	assert.Equal(t, 1, report.Total)
	assert.True(t, report.OK())
}

func TestResolveAllKeepsOrder(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "examples/one.md")

	docs := []Document{{ID: "a.md", Text: "@example:missing.md then @example:one.md then @web"}}
	refs := NewChecker(nil, DefaultRoots(root)).ResolveAll(context.Background(), docs)

	require.Len(t, refs, 3)
	assert.Empty(t, refs[0].ResolvedPath)
	assert.NotEmpty(t, refs[1].ResolvedPath)
	assert.Equal(t, KindWeb, refs[2].Kind)
}
