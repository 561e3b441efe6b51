package directive

import (
	"context"

	"github.com/jingkaihe/specref/pkg/logger"
	"github.com/pkg/errors"
)

// Checker runs scan, resolve and report over a document set
type Checker struct {
	scanner *Scanner
	roots   Roots
}

// NewChecker creates a checker resolving against roots
func NewChecker(scanner *Scanner, roots Roots) *Checker {
	if scanner == nil {
		scanner = NewScanner()
	}
	return &Checker{scanner: scanner, roots: roots}
}

// ResolveAll resolves every reference yielded by the scanner. Failures are
// logged and leave the reference unresolved; they never stop the pass.
func (c *Checker) ResolveAll(ctx context.Context, docs []Document) []Reference {
	log := logger.G(ctx)

	refs := []Reference{}
	for ref := range c.scanner.Scan(docs) {
		resolved, err := Resolve(ref, c.roots)
		if err != nil {
			var notFound *ReferenceNotFoundError
			if errors.As(err, &notFound) {
				log.WithField("document", ref.SourceDocument).
					WithField("line", ref.Line).
					Debugf("broken reference %s", ref.Token())
			} else {
				log.WithError(err).Warn("failed to resolve reference")
			}
		}
		refs = append(refs, resolved)
	}

	return refs
}

// Check resolves every reference in docs and summarises the result
func (c *Checker) Check(ctx context.Context, docs []Document) Report {
	report := BuildReport(c.ResolveAll(ctx, docs))

	logger.G(ctx).WithField("total", report.Total).
		WithField("broken", report.Broken).
		Info("reference check complete")

	return report
}
