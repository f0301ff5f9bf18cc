package index

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/retriever-labs/campusqa/internal/domain"
	"github.com/retriever-labs/campusqa/internal/domain/document"
	"github.com/retriever-labs/campusqa/internal/domain/query"
	"github.com/retriever-labs/campusqa/internal/metrics"
)

// Backend selection modes. Auto prefers dense and falls back to sparse when
// the embedding provider is absent or fails at build time.
const (
	BackendAuto   = "auto"
	BackendDense  = "dense"
	BackendSparse = "sparse"
)

// generation is one immutable build of the index.
type generation struct {
	backendName string
	docCount    int
	search      searcher
}

// Index serves ranked retrieval over the current generation. Rebuild
// constructs a new generation off to the side and swaps it in atomically;
// concurrent searches keep using the previous generation until the swap.
type Index struct {
	log    *zap.Logger
	mode   string
	dense  backend
	sparse backend
	gen    atomic.Pointer[generation]
}

// New creates an index in the given mode. embed may be nil, in which case
// dense builds are unavailable.
func New(mode string, embed Embedder, log *zap.Logger) *Index {
	idx := &Index{
		log:    log,
		mode:   mode,
		sparse: newSparseBackend(),
	}
	if embed != nil {
		idx.dense = newDenseBackend(embed)
	}
	return idx
}

// Rebuild builds a fresh generation from docs and publishes it. In auto mode
// a dense build failure downgrades to sparse with a warning instead of
// failing the rebuild.
func (i *Index) Rebuild(ctx context.Context, docs []document.Document) error {
	b, err := i.pickBackend()
	if err != nil {
		return err
	}

	start := time.Now()
	s, err := b.Build(ctx, docs)
	if err != nil {
		if i.mode != BackendAuto || b.Name() != BackendDense {
			return fmt.Errorf("build %s index: %w", b.Name(), err)
		}
		i.log.Warn("dense index build failed, falling back to sparse",
			zap.Error(err),
		)
		b = i.sparse
		s, err = b.Build(ctx, docs)
		if err != nil {
			return fmt.Errorf("build sparse index: %w", err)
		}
	}

	i.gen.Store(&generation{
		backendName: b.Name(),
		docCount:    len(docs),
		search:      s,
	})

	metrics.IndexDocuments.WithLabelValues(b.Name()).Set(float64(len(docs)))
	i.log.Info("index generation published",
		zap.String("backend", b.Name()),
		zap.Int("documents", len(docs)),
		zap.Duration("build_duration", time.Since(start)),
	)
	return nil
}

func (i *Index) pickBackend() (backend, error) {
	switch i.mode {
	case BackendSparse:
		return i.sparse, nil
	case BackendDense:
		if i.dense == nil {
			return nil, fmt.Errorf("dense backend requested but no embedding provider is configured")
		}
		return i.dense, nil
	case BackendAuto:
		if i.dense != nil {
			return i.dense, nil
		}
		return i.sparse, nil
	default:
		return nil, fmt.Errorf("unknown index backend %q", i.mode)
	}
}

// Search returns up to topK documents ranked by relevance. sourceTypes, when
// non-empty, restricts results to the given document sources. Returns
// domain.ErrIndexNotReady before the first successful Rebuild.
func (i *Index) Search(
	ctx context.Context, queryText string, topK int, sourceTypes []document.SourceType,
) ([]query.ScoredDocument, error) {
	gen := i.gen.Load()
	if gen == nil {
		return nil, domain.ErrIndexNotReady
	}
	if topK <= 0 {
		return nil, nil
	}

	// With a source filter the searcher must rank the whole corpus so the
	// filter cannot starve the requested topK.
	searchK := topK
	if len(sourceTypes) > 0 {
		searchK = gen.docCount
	}

	start := time.Now()
	results, err := gen.search.Search(ctx, queryText, searchK)
	metrics.SearchDuration.WithLabelValues(gen.backendName).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	if len(sourceTypes) > 0 {
		filtered := results[:0]
		for _, r := range results {
			if matchesSource(r.Document.SourceType, sourceTypes) {
				filtered = append(filtered, r)
			}
		}
		results = filtered
	}
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Status reports the active generation, or an empty not-ready status before
// the first build.
func (i *Index) Status() Status {
	gen := i.gen.Load()
	if gen == nil {
		return Status{Ready: false}
	}
	return Status{
		Backend:       gen.backendName,
		DocumentCount: gen.docCount,
		Ready:         true,
	}
}

func matchesSource(st document.SourceType, allowed []document.SourceType) bool {
	for _, a := range allowed {
		if st == a {
			return true
		}
	}
	return false
}
