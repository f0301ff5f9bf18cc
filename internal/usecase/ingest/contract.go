package ingest

import (
	"context"

	"github.com/retriever-labs/campusqa/internal/domain/catalog"
	"github.com/retriever-labs/campusqa/internal/domain/document"
	"github.com/retriever-labs/campusqa/internal/index"
)

// ClassStore is the catalog side of ingestion.
type ClassStore interface {
	Upsert(ctx context.Context, records []catalog.ClassRecord) error
	FetchClasses(ctx context.Context, department, term string, limit int) ([]catalog.ClassRecord, error)
	DistinctTerms(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int, error)
}

// CorpusStore is the events/calendar side of ingestion plus corpus assembly.
type CorpusStore interface {
	UpsertEvents(ctx context.Context, events []catalog.Event) error
	UpsertCalendar(ctx context.Context, entries []catalog.CalendarEntry) error
	BuildDocuments(ctx context.Context, classRecords []catalog.ClassRecord) ([]document.Document, error)
	Counts(ctx context.Context) (events, calendar int, err error)
}

// Index is rebuilt from the assembled corpus.
type Index interface {
	Rebuild(ctx context.Context, docs []document.Document) error
	Status() index.Status
}
