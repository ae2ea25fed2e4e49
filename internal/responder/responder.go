// Package responder produces answers, document analyses, case law and
// research results from embedded template tables. Every responder memoizes
// its output in a cache.Store under a key derived from its input.
package responder

import (
	"context"

	"github.com/kenyawebs/Tana-Delta/internal/models"
)

// QueryResponder answers a classified query.
type QueryResponder interface {
	Respond(ctx context.Context, q *models.Query) (*models.QueryResult, error)
}

// DocumentResponder analyses a classified document.
type DocumentResponder interface {
	Analyze(ctx context.Context, d *models.Document) (*models.DocumentResult, error)
}

// CaseLawFinder looks up decisions relevant to a query or document. Lookups
// never fail; an empty slice means nothing relevant was found.
type CaseLawFinder interface {
	ForQuery(ctx context.Context, q *models.Query) []models.CaseLaw
	ForDocument(ctx context.Context, d *models.Document) []models.CaseLaw
}
