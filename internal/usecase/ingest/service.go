// Package ingest loads campus data into the stores and rebuilds the
// retrieval index from it.
package ingest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/retriever-labs/campusqa/internal/domain"
	"github.com/retriever-labs/campusqa/internal/domain/catalog"
	"github.com/retriever-labs/campusqa/internal/index"
	"github.com/retriever-labs/campusqa/internal/logger"
	"github.com/retriever-labs/campusqa/internal/nlp/entities"
	"github.com/retriever-labs/campusqa/internal/nlp/normalizer"
	"github.com/retriever-labs/campusqa/internal/vocab"
)

// Service handles data ingestion and index lifecycle.
type Service struct {
	classes ClassStore
	corpus  CorpusStore
	index   Index
	norm    *normalizer.Normalizer
	extract *entities.Extractor
	clock   func() time.Time
}

// New creates the ingest service. clock defaults to time.Now when nil.
func New(
	classes ClassStore,
	corpus CorpusStore,
	idx Index,
	norm *normalizer.Normalizer,
	extract *entities.Extractor,
	clock func() time.Time,
) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		classes: classes,
		corpus:  corpus,
		index:   idx,
		norm:    norm,
		extract: extract,
		clock:   clock,
	}
}

// UpsertClasses stores class records.
func (s *Service) UpsertClasses(ctx context.Context, records []catalog.ClassRecord) error {
	if err := s.classes.Upsert(ctx, records); err != nil {
		return fmt.Errorf("upsert classes: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// UpsertEvents stores events.
func (s *Service) UpsertEvents(ctx context.Context, events []catalog.Event) error {
	if err := s.corpus.UpsertEvents(ctx, events); err != nil {
		return fmt.Errorf("upsert events: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// UpsertCalendar stores calendar entries.
func (s *Service) UpsertCalendar(ctx context.Context, entries []catalog.CalendarEntry) error {
	if err := s.corpus.UpsertCalendar(ctx, entries); err != nil {
		return fmt.Errorf("upsert calendar: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// RebuildIndex assembles the corpus from all stores, rebuilds the index, and
// refreshes the query-side vocabulary: the normalizer learns corpus words and
// the extractor gets a term table derived from the catalog.
func (s *Service) RebuildIndex(ctx context.Context) (index.Status, error) {
	log := logger.FromContext(ctx)

	records, err := s.classes.FetchClasses(ctx, "", "", 0)
	if err != nil {
		return index.Status{}, fmt.Errorf("fetch classes: %w: %w", domain.ErrStoreUnavailable, err)
	}
	docs, err := s.corpus.BuildDocuments(ctx, records)
	if err != nil {
		return index.Status{}, fmt.Errorf("build corpus: %w: %w", domain.ErrStoreUnavailable, err)
	}

	if err := s.index.Rebuild(ctx, docs); err != nil {
		return index.Status{}, fmt.Errorf("rebuild index: %w", err)
	}

	s.norm.LearnFromDocuments(docs)

	terms, err := s.classes.DistinctTerms(ctx)
	if err != nil {
		return index.Status{}, fmt.Errorf("distinct terms: %w: %w", domain.ErrStoreUnavailable, err)
	}
	s.extract.SetTermTable(vocab.NewTermTable(terms, s.clock))

	st := s.index.Status()
	log.Info("index rebuilt",
		zap.String("backend", st.Backend),
		zap.Int("documents", st.DocumentCount),
		zap.Int("classes", len(records)),
	)
	return st, nil
}

// Status is the store and index state exposed on the status endpoint.
type Status struct {
	Classes         int          `json:"classes"`
	Events          int          `json:"events"`
	CalendarEntries int          `json:"calendar_entries"`
	Index           index.Status `json:"index"`
}

// Status reports store counts and the active index generation.
func (s *Service) Status(ctx context.Context) (Status, error) {
	classes, err := s.classes.Count(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("count classes: %w: %w", domain.ErrStoreUnavailable, err)
	}
	events, calendar, err := s.corpus.Counts(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("count corpus: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return Status{
		Classes:         classes,
		Events:          events,
		CalendarEntries: calendar,
		Index:           s.index.Status(),
	}, nil
}
