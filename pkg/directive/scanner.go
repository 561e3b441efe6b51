package directive

import (
	"iter"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// tokenPattern matches the kind name and an optional :path suffix. Word
// boundaries and path trimming are checked by hand because RE2 has no
// lookbehind.
var tokenPattern = regexp.MustCompile("@(rule|persona|example|team|web)(?::([^\\s<>()\\[\\]{}\"'`|,;]*))?")

// trailing punctuation that ends a sentence rather than a path
const pathTrailers = ".,;:!?)]}>'\""

// Scanner extracts reference tokens from Markdown documents
type Scanner struct {
	md             goldmark.Markdown
	skipCodeSpans  bool
	skipCodeBlocks bool
}

// ScanOption configures a Scanner
type ScanOption func(*Scanner)

// WithInlineCode makes the scanner report tokens written inside inline
// code spans. They are skipped by default.
func WithInlineCode() ScanOption {
	return func(s *Scanner) {
		s.skipCodeSpans = false
	}
}

// WithIndentedCodeBlocks makes the scanner skip indented code blocks as
// well as fenced ones.
func WithIndentedCodeBlocks() ScanOption {
	return func(s *Scanner) {
		s.skipCodeBlocks = true
	}
}

// NewScanner creates a scanner. Fenced code blocks are always excluded.
func NewScanner(opts ...ScanOption) *Scanner {
	s := &Scanner{
		md:            goldmark.New(),
		skipCodeSpans: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan lazily yields the references of each document in input order.
// The sequence holds no state of its own and can be ranged over again.
func (s *Scanner) Scan(docs []Document) iter.Seq[Reference] {
	return func(yield func(Reference) bool) {
		for _, doc := range docs {
			for _, ref := range s.ScanDocument(doc) {
				if !yield(ref) {
					return
				}
			}
		}
	}
}

// ScanAll collects every reference found in docs
func (s *Scanner) ScanAll(docs []Document) []Reference {
	refs := []Reference{}
	for ref := range s.Scan(docs) {
		refs = append(refs, ref)
	}
	return refs
}

// ScanDocument returns the references of a single document in source order
func (s *Scanner) ScanDocument(doc Document) []Reference {
	source := []byte(doc.Text)
	if !strings.Contains(doc.Text, "@") {
		return nil
	}

	masked := s.maskCode(source)
	lines := lineOffsets(masked)

	var refs []Reference
	for _, m := range tokenPattern.FindAllSubmatchIndex(masked, -1) {
		start, end := m[0], m[1]
		if start > 0 && isWordRune(lastRune(masked[:start])) {
			continue
		}

		kind := Kind(masked[m[2]:m[3]])
		rawPath := ""
		hasColon := m[4] >= 0

		if kind.RequiresPath() {
			if !hasColon {
				continue
			}
			rawPath = strings.TrimRight(string(masked[m[4]:m[5]]), pathTrailers)
			if rawPath == "" {
				continue
			}
		} else {
			// @team and @web take no argument; "@team:" and "@teammate" are not tokens
			if hasColon {
				continue
			}
			if end < len(masked) {
				if r, _ := utf8.DecodeRune(masked[end:]); isWordRune(r) || r == '-' {
					continue
				}
			}
		}

		line, col := position(masked, lines, start)
		refs = append(refs, Reference{
			Kind:           kind,
			RawPath:        rawPath,
			SourceDocument: doc.ID,
			Line:           line,
			Column:         col,
		})
	}

	return refs
}

// maskCode blanks out code regions so their content cannot produce tokens.
// Newlines are kept so line numbers stay accurate.
func (s *Scanner) maskCode(source []byte) []byte {
	masked := make([]byte, len(source))
	copy(masked, source)

	doc := s.md.Parser().Parse(text.NewReader(source), parser.WithContext(parser.NewContext()))

	blank := func(seg text.Segment) {
		for i := seg.Start; i < seg.Stop && i < len(masked); i++ {
			if masked[i] != '\n' && masked[i] != '\r' {
				masked[i] = ' '
			}
		}
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.FencedCodeBlock:
			if node.Info != nil {
				blank(node.Info.Segment)
			}
			blankLines(node.Lines(), blank)
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock:
			if isPreBlock(node, source) {
				blankLines(node.Lines(), blank)
				if node.HasClosure() {
					blank(node.ClosureLine)
				}
			}
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock:
			if s.skipCodeBlocks {
				blankLines(node.Lines(), blank)
			}
			return ast.WalkSkipChildren, nil
		case *ast.CodeSpan:
			if s.skipCodeSpans {
				for c := node.FirstChild(); c != nil; c = c.NextSibling() {
					if t, ok := c.(*ast.Text); ok {
						blank(t.Segment)
					}
				}
			}
			return ast.WalkSkipChildren, nil
		}

		return ast.WalkContinue, nil
	})

	return masked
}

// isPreBlock reports whether an HTML block is a <pre> element, whose content
// is preformatted code like a fence
func isPreBlock(node *ast.HTMLBlock, source []byte) bool {
	if node.HTMLBlockType != ast.HTMLBlockType1 || node.Lines().Len() == 0 {
		return false
	}
	first := node.Lines().At(0)
	line := strings.ToLower(strings.TrimSpace(string(first.Value(source))))
	return strings.HasPrefix(line, "<pre")
}

func blankLines(lines *text.Segments, blank func(text.Segment)) {
	for i := 0; i < lines.Len(); i++ {
		blank(lines.At(i))
	}
}

func lastRune(b []byte) rune {
	r, _ := utf8.DecodeLastRune(b)
	return r
}

// isWordRune reports whether r continues a word, so a token touching it is
// part of something else (an email address, "@teammate")
func isWordRune(r rune) bool {
	return r == '@' || r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// lineOffsets returns the byte offset at which each line starts
func lineOffsets(source []byte) []int {
	offsets := []int{0}
	for i, b := range source {
		if b == '\n' {
			offsets = append(offsets, i+1)
		}
	}
	return offsets
}

// position converts a byte offset into a 1-based line and rune column
func position(source []byte, lines []int, offset int) (int, int) {
	idx := sort.Search(len(lines), func(i int) bool { return lines[i] > offset }) - 1
	if idx < 0 {
		idx = 0
	}
	col := utf8.RuneCount(source[lines[idx]:offset]) + 1
	return idx + 1, col
}
