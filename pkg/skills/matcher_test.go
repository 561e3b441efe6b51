package skills

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identifiers(results []MatchResult) []string {
	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.SkillIdentifier)
	}
	return ids
}

func TestMatchBlockedOverridesRelevance(t *testing.T) {
	m, err := ParseManifest([]byte(`{"required":{"local:./skills/a":{"description":"react testing"}},"blocked":["local:./skills/a"]}`))
	require.NoError(t, err)

	results, err := NewMatcher(WithPolicy(m.Policy)).Match("react testing tips", m.Entries(), 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMatchRanking(t *testing.T) {
	entries := []Entry{
		{Identifier: "local:./skills/b", Category: CategoryRequired, Description: "React testing"},
		{Identifier: "local:./skills/a", Category: CategoryRecommended, Description: "react testing"},
		{Identifier: "github:org/vue", Category: CategoryRegistry, Description: "Vue testing"},
		{Identifier: "github:org/go", Category: CategoryRegistry, Description: "Go services"},
	}
	matcher := NewMatcher()

	t.Run("sorted with ties broken by identifier", func(t *testing.T) {
		results, err := matcher.Match("react testing tips", entries, 3)
		require.NoError(t, err)
		require.Len(t, results, 3)

		assert.Equal(t, []string{"local:./skills/a", "local:./skills/b", "github:org/vue"}, identifiers(results))
		assert.InDelta(t, 0.6*2.0/3.0, results[0].Score, 1e-9)
		assert.InDelta(t, 0.6*2.0/3.0, results[1].Score, 1e-9)
		assert.InDelta(t, 0.6*1.0/4.0, results[2].Score, 1e-9)
		assert.Equal(t, []string{"react", "test"}, results[0].MatchedTerms)
		assert.Equal(t, []string{"test"}, results[2].MatchedTerms)
		assert.Equal(t, CategoryRecommended, results[0].Category)
	})

	t.Run("truncates to top", func(t *testing.T) {
		results, err := matcher.Match("react testing tips", entries, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"local:./skills/a"}, identifiers(results))
	})

	t.Run("unrelated entries are dropped", func(t *testing.T) {
		results, err := matcher.Match("react testing tips", entries, 10)
		require.NoError(t, err)
		assert.NotContains(t, identifiers(results), "github:org/go")
	})

	t.Run("query without terms", func(t *testing.T) {
		results, err := matcher.Match("the and of", entries, 10)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("scores stay within bounds", func(t *testing.T) {
		exact := []Entry{{Identifier: "x", Description: "react testing", Content: "react testing"}}
		results, err := matcher.Match("react testing", exact, 1)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.InDelta(t, 1.0, results[0].Score, 1e-9)
		assert.LessOrEqual(t, results[0].Score, 1.0)
	})
}

func TestMatchContentSimilarity(t *testing.T) {
	entries := []Entry{
		{Identifier: "local:./skills/rtl", Content: "Use React Testing Library for component tests"},
	}

	results, err := NewMatcher().Match("react testing tips", entries, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)

	// query {react:1 test:1 tip:1}, content {react:1 test:2 librari:1 compon:1}
	want := 3 / math.Sqrt(3*7)
	assert.InDelta(t, want, results[0].ContentScore, 1e-9)
	assert.InDelta(t, ContentWeight*want, results[0].Score, 1e-9)
	assert.Equal(t, 0.0, results[0].DescriptionScore)
	assert.Empty(t, results[0].MatchedTerms)
	assert.NotNil(t, results[0].MatchedTerms)
}

func TestMatchBlocked(t *testing.T) {
	m, err := ParseManifest([]byte(`{
		"registry": {
			"github:untrusted/react": {"description": "react testing"},
			"github:trusted/react":   {"description": "react testing"}
		},
		"blocked": ["github:untrusted/*", "github:gone/skill"]
	}`))
	require.NoError(t, err)
	entries := m.Entries()

	t.Run("glob patterns exclude entries", func(t *testing.T) {
		results, err := NewMatcher(WithPolicy(m.Policy)).Match("react testing", entries, 5)
		require.NoError(t, err)
		assert.Equal(t, []string{"github:trusted/react"}, identifiers(results))
	})

	t.Run("policy can disable enforcement", func(t *testing.T) {
		results, err := NewMatcher(WithPolicy(Policy{EnforceBlocked: false})).Match("react testing", entries, 5)
		require.NoError(t, err)
		assert.Equal(t, []string{"github:trusted/react", "github:untrusted/react"}, identifiers(results))
	})
}

func TestMatchEqualRelevanceTiesByIdentifier(t *testing.T) {
	content := "Render components, query by role, assert on accessible names, mock network " +
		"requests, wait for async updates, avoid implementation details, snapshot sparingly."
	entries := []Entry{
		{Identifier: "local:./skills/zeta", Description: "React testing library", Content: content},
		{Identifier: "local:./skills/alpha", Description: "React testing library", Content: content},
		{Identifier: "local:./skills/mid", Description: "React testing library", Content: content},
	}
	query := "react testing library: render components, query by role, mock network requests, async updates"

	for i := 0; i < 20; i++ {
		results, err := NewMatcher().Match(query, entries, 3)
		require.NoError(t, err)
		require.Len(t, results, 3)

		assert.Equal(t, []string{"local:./skills/alpha", "local:./skills/mid", "local:./skills/zeta"}, identifiers(results))
		assert.Equal(t, results[0].Score, results[1].Score)
		assert.Equal(t, results[1].Score, results[2].Score)
	}
}

func TestRoundScore(t *testing.T) {
	assert.Equal(t, 1.0, roundScore(0.9999999999999999))
	assert.Equal(t, roundScore(0.1+0.2), roundScore(0.3))
	assert.Equal(t, 0.4, roundScore(0.4))
}

func TestMatchInvalidTopN(t *testing.T) {
	entries := []Entry{{Identifier: "a", Description: "react"}}

	for _, top := range []int{0, -1} {
		_, err := NewMatcher().Match("react", entries, top)
		require.Error(t, err)

		var topErr *InvalidTopNError
		require.True(t, errors.As(err, &topErr))
		assert.Equal(t, top, topErr.TopN)
	}

	_, err := NewMatcher().Match("react", nil, 0)
	assert.Error(t, err)
}

func TestMatchNoEntries(t *testing.T) {
	results, err := NewMatcher().Match("react testing", nil, 3)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}
