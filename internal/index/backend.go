// Package index maintains the searchable document index. A build produces an
// immutable generation that is swapped in atomically, so searches never
// observe a half-built index.
package index

import (
	"context"

	"github.com/retriever-labs/campusqa/internal/domain/document"
	"github.com/retriever-labs/campusqa/internal/domain/query"
)

// backend turns a document corpus into a searcher. Implementations are
// stateless between builds; all per-corpus state lives in the searcher.
type backend interface {
	Name() string
	Build(ctx context.Context, docs []document.Document) (searcher, error)
}

// searcher answers ranked queries over one built corpus. Results are sorted
// by score non-increasing; equal scores keep corpus insertion order.
type searcher interface {
	Search(ctx context.Context, queryText string, topK int) ([]query.ScoredDocument, error)
}

// Status describes the currently active generation.
type Status struct {
	Backend       string `json:"backend"`
	DocumentCount int    `json:"document_count"`
	Ready         bool   `json:"ready"`
}
