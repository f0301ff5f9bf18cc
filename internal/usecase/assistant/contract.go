package assistant

import (
	"context"

	"github.com/retriever-labs/campusqa/internal/domain/catalog"
	"github.com/retriever-labs/campusqa/internal/domain/document"
	"github.com/retriever-labs/campusqa/internal/domain/query"
)

// ClassStore reads the structured class catalog.
type ClassStore interface {
	FetchClasses(ctx context.Context, department, term string, limit int) ([]catalog.ClassRecord, error)
}

// SearchIndex serves ranked retrieval over the document corpus.
type SearchIndex interface {
	Search(ctx context.Context, queryText string, topK int, sourceTypes []document.SourceType) ([]query.ScoredDocument, error)
}

// Generator produces a grounded natural-language answer. Optional; when
// absent the service answers from a deterministic template.
type Generator interface {
	Generate(ctx context.Context, question string, snippets []query.ScoredDocument) (string, error)
}
