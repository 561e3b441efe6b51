package skills

import (
	"math"
	"sort"
)

const (
	// DescriptionWeight is the share of the score taken by description similarity
	DescriptionWeight = 0.6
	// ContentWeight is the share of the score taken by SKILL.md content similarity
	ContentWeight = 0.4

	// scorePrecision is the resolution scores are rounded to, so that equal
	// relevance compares equal whatever the summation order
	scorePrecision = 1e9
)

// MatchResult is one ranked skill
type MatchResult struct {
	SkillIdentifier  string   `json:"skillIdentifier" yaml:"skillIdentifier"`
	Score            float64  `json:"score" yaml:"score"`
	MatchedTerms     []string `json:"matchedTerms" yaml:"matchedTerms"`
	Category         Category `json:"category,omitempty" yaml:"category,omitempty"`
	DescriptionScore float64  `json:"descriptionScore" yaml:"descriptionScore"`
	ContentScore     float64  `json:"contentScore" yaml:"contentScore"`
}

// Matcher ranks manifest entries against a feature description.
// Description similarity is the Jaccard index of the term sets; content
// similarity is the cosine of term-frequency vectors.
type Matcher struct {
	enforceBlocked bool
}

// MatcherOption configures a Matcher
type MatcherOption func(*Matcher)

// WithPolicy applies the manifest policy to the matcher
func WithPolicy(p Policy) MatcherOption {
	return func(m *Matcher) {
		m.enforceBlocked = p.EnforceBlocked
	}
}

// NewMatcher creates a matcher that excludes blocked entries
func NewMatcher(opts ...MatcherOption) *Matcher {
	m := &Matcher{enforceBlocked: true}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Match returns at most topN entries with a positive score, best first.
// Ties are broken by identifier. Blocked entries never appear while the
// policy enforces blocking.
func (m *Matcher) Match(query string, entries []Entry, topN int) ([]MatchResult, error) {
	if topN <= 0 {
		return nil, &InvalidTopNError{TopN: topN}
	}

	results := []MatchResult{}
	if len(entries) == 0 {
		return results, nil
	}

	queryTerms := terms(query)
	querySet := newTermSet(queryTerms)
	queryVector := newTermVector(queryTerms)

	for _, entry := range entries {
		if m.enforceBlocked && (entry.Blocked || entry.Category == CategoryBlocked) {
			continue
		}

		descSet := newTermSet(terms(entry.Description))
		descScore := jaccard(querySet, descSet)
		contentScore := cosine(queryVector, newTermVector(terms(entry.Content)))

		score := roundScore(DescriptionWeight*descScore + ContentWeight*contentScore)
		if score <= 0 {
			continue
		}

		matched := querySet.intersect(descSet)
		sort.Strings(matched)
		if matched == nil {
			matched = []string{}
		}

		results = append(results, MatchResult{
			SkillIdentifier:  entry.Identifier,
			Score:            score,
			MatchedTerms:     matched,
			Category:         entry.Category,
			DescriptionScore: roundScore(descScore),
			ContentScore:     roundScore(contentScore),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].SkillIdentifier < results[j].SkillIdentifier
	})

	if len(results) > topN {
		results = results[:topN]
	}

	return results, nil
}

func roundScore(s float64) float64 {
	return math.Round(s*scorePrecision) / scorePrecision
}
