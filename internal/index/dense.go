package index

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/retriever-labs/campusqa/internal/domain/document"
	"github.com/retriever-labs/campusqa/internal/domain/query"
)

// Embedder converts text into vectors. Implemented by transport/openai.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// denseBackend embeds every document once at build time and answers queries
// by dot product over unit vectors.
type denseBackend struct {
	embed Embedder
}

func newDenseBackend(embed Embedder) *denseBackend {
	return &denseBackend{embed: embed}
}

func (b *denseBackend) Name() string { return "dense" }

func (b *denseBackend) Build(ctx context.Context, docs []document.Document) (searcher, error) {
	s := &denseSearcher{docs: docs, embed: b.embed}
	if len(docs) == 0 {
		return s, nil
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Title + "\n" + doc.Text
	}

	vectors, err := b.embed.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed corpus: %w", err)
	}
	if len(vectors) != len(docs) {
		return nil, fmt.Errorf("embed corpus: got %d vectors for %d documents", len(vectors), len(docs))
	}

	for i := range vectors {
		normalizeDense(vectors[i])
	}
	s.vectors = vectors
	return s, nil
}

type denseSearcher struct {
	docs    []document.Document
	vectors [][]float32
	embed   Embedder
}

func (s *denseSearcher) Search(ctx context.Context, queryText string, topK int) ([]query.ScoredDocument, error) {
	if len(s.docs) == 0 || topK <= 0 {
		return nil, nil
	}

	qvec, err := s.embed.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	normalizeDense(qvec)

	scored := make([]query.ScoredDocument, 0, len(s.docs))
	for i, vec := range s.vectors {
		scored = append(scored, query.ScoredDocument{
			Document: s.docs[i],
			Score:    dotDense(qvec, vec),
		})
	}

	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].Score > scored[b].Score
	})

	if topK < len(scored) {
		scored = scored[:topK]
	}
	return scored, nil
}

func normalizeDense(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}

func dotDense(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
