package corpus

import (
	"context"
	"testing"

	"github.com/retriever-labs/campusqa/internal/domain/catalog"
	"github.com/retriever-labs/campusqa/internal/domain/document"
	"github.com/retriever-labs/campusqa/internal/repository/sqlite"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store, err := New(db)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	return store
}

func TestUpsertEventsReplacesOnID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	events := []catalog.Event{
		{EventID: "e1", Title: "Hackathon", Description: "Annual hackathon", Location: "ITE Building"},
	}
	if err := store.UpsertEvents(ctx, events); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	events[0].Location = "Commons"
	if err := store.UpsertEvents(ctx, events); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := store.FetchEvents(ctx)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	if got[0].Location != "Commons" {
		t.Fatalf("expected updated location, got %q", got[0].Location)
	}
}

func TestUpsertCalendarAndFetch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entries := []catalog.CalendarEntry{
		{EntryID: "c2", Term: "Fall 2026", DateText: "September 11", Detail: "Last day to add or drop"},
		{EntryID: "c1", Term: "Fall 2026", DateText: "August 26", Detail: "First day of classes"},
	}
	if err := store.UpsertCalendar(ctx, entries); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := store.FetchCalendar(ctx)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].EntryID != "c1" {
		t.Fatalf("expected id ordering, got %s first", got[0].EntryID)
	}
}

func TestBuildDocumentsCombinesAllSources(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.UpsertEvents(ctx, []catalog.Event{
		{EventID: "e1", Title: "Hackathon", Description: "Annual hackathon", StartTime: "2026-10-03 09:00", Location: "ITE Building"},
	}); err != nil {
		t.Fatalf("upsert events: %v", err)
	}
	if err := store.UpsertCalendar(ctx, []catalog.CalendarEntry{
		{EntryID: "c1", Term: "Fall 2026", DateText: "September 11", Detail: "Last day to add or drop"},
	}); err != nil {
		t.Fatalf("upsert calendar: %v", err)
	}

	classRecords := []catalog.ClassRecord{
		{Term: "Fall 2026", Department: "DATA", CourseCode: "DATA 601", CourseTitle: "Intro to Data Science", Section: "01", Instructor: "Rivera"},
	}
	docs, err := store.BuildDocuments(ctx, classRecords)
	if err != nil {
		t.Fatalf("build documents: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("expected 3 documents, got %d", len(docs))
	}

	wantIDs := []string{"event-e1", "cal-c1", "class-fall-2026-data-601-01"}
	wantTypes := []document.SourceType{document.SourceEvent, document.SourceCalendar, document.SourceClass}
	for i, doc := range docs {
		if doc.DocID != wantIDs[i] {
			t.Fatalf("position %d: expected id %s, got %s", i, wantIDs[i], doc.DocID)
		}
		if doc.SourceType != wantTypes[i] {
			t.Fatalf("position %d: expected type %s, got %s", i, wantTypes[i], doc.SourceType)
		}
		if doc.Title == "" || doc.Text == "" {
			t.Fatalf("document %s missing title or text", doc.DocID)
		}
	}
}

func TestBuildDocumentsDeterministicIDs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	records := []catalog.ClassRecord{
		{Term: "Fall 2026", Department: "CMSC", CourseCode: "CMSC 341", CourseTitle: "Data Structures", Section: "02"},
	}
	first, err := store.BuildDocuments(ctx, records)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	second, err := store.BuildDocuments(ctx, records)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if first[0].DocID != second[0].DocID {
		t.Fatalf("doc ids differ across builds: %s vs %s", first[0].DocID, second[0].DocID)
	}
	if first[0].DocID != "class-fall-2026-cmsc-341-02" {
		t.Fatalf("unexpected doc id %s", first[0].DocID)
	}
}

func TestCounts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.UpsertEvents(ctx, []catalog.Event{
		{EventID: "e1", Title: "A"}, {EventID: "e2", Title: "B"},
	}); err != nil {
		t.Fatalf("upsert events: %v", err)
	}
	if err := store.UpsertCalendar(ctx, []catalog.CalendarEntry{
		{EntryID: "c1", Detail: "x"},
	}); err != nil {
		t.Fatalf("upsert calendar: %v", err)
	}

	events, calendar, err := store.Counts(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if events != 2 || calendar != 1 {
		t.Fatalf("expected 2 events and 1 calendar entry, got %d and %d", events, calendar)
	}
}
