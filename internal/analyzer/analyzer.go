// Package analyzer turns web pages into PageExtract records. Two variants
// exist: DocumentAnalyzer walks a fetched live document with goquery, and
// HTMLExtractor tokenizes already-fetched HTML strings. Both share one
// classification and keyword table so their link judgments cannot drift.
package analyzer

import (
	"context"

	"github.com/buscalogo/capture-agent/internal/models"
)

// Analyzer produces a PageExtract for a live page reachable at pageURL.
type Analyzer interface {
	Analyze(ctx context.Context, pageURL string) (*models.PageExtract, error)
}

// Extractor produces a PageExtract from HTML that has already been fetched.
// Used by the capture queue for article pages.
type Extractor interface {
	Extract(pageURL string, html string) (*models.PageExtract, error)
}

const (
	// Links below this relevance are not worth indexing.
	minLinkRelevance = 0.3

	// Per-page caps applied by both variants.
	maxLinksPerPage = 50
	maxTermsPerPage = 50

	minParagraphLength = 10
)
