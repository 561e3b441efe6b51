package skills

import (
	"math"
	"strings"
	"unicode"

	porterstemmer "github.com/blevesearch/go-porterstemmer"
)

const minTermLength = 2

var stopwords = map[string]struct{}{
	"a": {}, "about": {}, "an": {}, "and": {}, "any": {}, "are": {}, "as": {},
	"at": {}, "be": {}, "but": {}, "by": {}, "can": {}, "do": {}, "for": {},
	"from": {}, "has": {}, "have": {}, "how": {}, "if": {}, "in": {}, "into": {},
	"is": {}, "it": {}, "its": {}, "of": {}, "on": {}, "or": {}, "our": {},
	"should": {}, "so": {}, "than": {}, "that": {}, "the": {}, "their": {},
	"then": {}, "there": {}, "these": {}, "this": {}, "to": {}, "use": {},
	"used": {}, "using": {}, "was": {}, "we": {}, "what": {}, "when": {},
	"which": {}, "will": {}, "with": {}, "you": {}, "your": {},
}

// terms splits text into normalised terms: lower-cased, split on anything
// that is not a letter or digit, stopwords removed and Porter-stemmed.
// Duplicates are kept so callers can build frequency vectors.
func terms(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < minTermLength {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		out = append(out, porterstemmer.StemString(f))
	}
	return out
}

type termSet map[string]struct{}

func newTermSet(ts []string) termSet {
	set := make(termSet, len(ts))
	for _, t := range ts {
		set[t] = struct{}{}
	}
	return set
}

func (s termSet) intersect(other termSet) []string {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	var shared []string
	for t := range small {
		if _, ok := large[t]; ok {
			shared = append(shared, t)
		}
	}
	return shared
}

// jaccard is |a ∩ b| / |a ∪ b|, 0 when both sets are empty
func jaccard(a, b termSet) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := len(a.intersect(b))
	union := len(a) + len(b) - shared
	return float64(shared) / float64(union)
}

type termVector map[string]float64

func newTermVector(ts []string) termVector {
	v := make(termVector, len(ts))
	for _, t := range ts {
		v[t]++
	}
	return v
}

func (v termVector) norm() float64 {
	var sum float64
	for _, f := range v {
		sum += f * f
	}
	return math.Sqrt(sum)
}

// cosine is the cosine similarity of two term-frequency vectors
func cosine(a, b termVector) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(b) < len(a) {
		a, b = b, a
	}

	var dot float64
	for t, fa := range a {
		dot += fa * b[t]
	}
	if dot == 0 {
		return 0
	}

	sim := dot / (a.norm() * b.norm())
	return math.Min(sim, 1)
}
