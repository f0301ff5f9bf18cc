// Package corpus persists campus events and academic calendar entries and
// assembles the retrieval corpus from all stored sources.
package corpus

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/retriever-labs/campusqa/internal/domain/catalog"
	"github.com/retriever-labs/campusqa/internal/domain/document"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	event_id    TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	start_time  TEXT NOT NULL DEFAULT '',
	end_time    TEXT NOT NULL DEFAULT '',
	location    TEXT NOT NULL DEFAULT '',
	url         TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS calendar_entries (
	entry_id   TEXT PRIMARY KEY,
	term       TEXT NOT NULL DEFAULT '',
	date_text  TEXT NOT NULL DEFAULT '',
	detail     TEXT NOT NULL,
	source_url TEXT NOT NULL DEFAULT ''
);
`

// Store implements event and calendar persistence over SQLite.
type Store struct {
	db *sql.DB
}

// New creates the corpus tables if missing and returns the store.
func New(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("creating corpus schema: %w", err)
	}
	return &Store{db: db}, nil
}

// UpsertEvents inserts or replaces events in one transaction.
func (s *Store) UpsertEvents(ctx context.Context, events []catalog.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events (event_id, title, description, start_time, end_time, location, url)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(event_id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			location = excluded.location,
			url = excluded.url
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		if _, err := stmt.ExecContext(ctx,
			e.EventID, e.Title, e.Description, e.StartTime, e.EndTime, e.Location, e.URL,
		); err != nil {
			return fmt.Errorf("saving event %s: %w", e.EventID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// UpsertCalendar inserts or replaces calendar entries in one transaction.
func (s *Store) UpsertCalendar(ctx context.Context, entries []catalog.CalendarEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO calendar_entries (entry_id, term, date_text, detail, source_url)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(entry_id) DO UPDATE SET
			term = excluded.term,
			date_text = excluded.date_text,
			detail = excluded.detail,
			source_url = excluded.source_url
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.EntryID, e.Term, e.DateText, e.Detail, e.SourceURL); err != nil {
			return fmt.Errorf("saving calendar entry %s: %w", e.EntryID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// FetchEvents returns all stored events ordered by id.
func (s *Store) FetchEvents(ctx context.Context) ([]catalog.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, title, description, start_time, end_time, location, url
		FROM events ORDER BY event_id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []catalog.Event //nolint:prealloc // size unknown from query
	for rows.Next() {
		var e catalog.Event
		if err := rows.Scan(&e.EventID, &e.Title, &e.Description, &e.StartTime, &e.EndTime, &e.Location, &e.URL); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}
	return events, nil
}

// FetchCalendar returns all stored calendar entries ordered by id.
func (s *Store) FetchCalendar(ctx context.Context) ([]catalog.CalendarEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT entry_id, term, date_text, detail, source_url
		FROM calendar_entries ORDER BY entry_id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying calendar entries: %w", err)
	}
	defer rows.Close()

	var entries []catalog.CalendarEntry //nolint:prealloc // size unknown from query
	for rows.Next() {
		var e catalog.CalendarEntry
		if err := rows.Scan(&e.EntryID, &e.Term, &e.DateText, &e.Detail, &e.SourceURL); err != nil {
			return nil, fmt.Errorf("scanning calendar entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating calendar entries: %w", err)
	}
	return entries, nil
}

// Counts returns the number of stored events and calendar entries.
func (s *Store) Counts(ctx context.Context) (events, calendar int, err error) {
	if err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events").Scan(&events); err != nil {
		return 0, 0, fmt.Errorf("counting events: %w", err)
	}
	if err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM calendar_entries").Scan(&calendar); err != nil {
		return 0, 0, fmt.Errorf("counting calendar entries: %w", err)
	}
	return events, calendar, nil
}

// BuildDocuments assembles the retrieval corpus: events, then calendar
// entries, then the supplied class records. Document ids are deterministic so
// re-ingesting the same data yields the same corpus.
func (s *Store) BuildDocuments(ctx context.Context, classRecords []catalog.ClassRecord) ([]document.Document, error) {
	events, err := s.FetchEvents(ctx)
	if err != nil {
		return nil, err
	}
	calendar, err := s.FetchCalendar(ctx)
	if err != nil {
		return nil, err
	}

	docs := make([]document.Document, 0, len(events)+len(calendar)+len(classRecords))
	for _, e := range events {
		docs = append(docs, eventDocument(e))
	}
	for _, e := range calendar {
		docs = append(docs, calendarDocument(e))
	}
	for _, r := range classRecords {
		docs = append(docs, classDocument(r))
	}
	return docs, nil
}

func eventDocument(e catalog.Event) document.Document {
	var b strings.Builder
	b.WriteString(e.Description)
	if e.StartTime != "" {
		fmt.Fprintf(&b, " Starts %s.", e.StartTime)
	}
	if e.Location != "" {
		fmt.Fprintf(&b, " Location: %s.", e.Location)
	}
	return document.Document{
		DocID:      "event-" + e.EventID,
		SourceType: document.SourceEvent,
		Title:      e.Title,
		Text:       strings.TrimSpace(b.String()),
		URL:        e.URL,
		Metadata: map[string]string{
			"location":   e.Location,
			"start_time": e.StartTime,
		},
	}
}

func calendarDocument(e catalog.CalendarEntry) document.Document {
	text := e.Detail
	if e.DateText != "" {
		text = fmt.Sprintf("%s: %s", e.DateText, e.Detail)
	}
	if e.Term != "" {
		text = fmt.Sprintf("%s — %s", e.Term, text)
	}
	return document.Document{
		DocID:      "cal-" + e.EntryID,
		SourceType: document.SourceCalendar,
		Title:      e.Detail,
		Text:       text,
		URL:        e.SourceURL,
		Metadata: map[string]string{
			"term": e.Term,
			"date": e.DateText,
		},
	}
}

func classDocument(r catalog.ClassRecord) document.Document {
	var b strings.Builder
	fmt.Fprintf(&b, "%s section %s, %s.", r.CourseCode, r.Section, r.Term)
	if r.Instructor != "" {
		fmt.Fprintf(&b, " Taught by %s.", r.Instructor)
	}
	if r.MeetingDays != "" {
		fmt.Fprintf(&b, " Meets %s %s-%s.", r.MeetingDays, r.StartTime, r.EndTime)
	}
	if r.Building != "" {
		fmt.Fprintf(&b, " Located in %s %s.", r.Building, r.Room)
	}
	return document.Document{
		DocID:      classDocID(r),
		SourceType: document.SourceClass,
		Title:      fmt.Sprintf("%s: %s", r.CourseCode, r.CourseTitle),
		Text:       strings.TrimSpace(b.String()),
		Metadata: map[string]string{
			"term":       r.Term,
			"department": r.Department,
		},
	}
}

func classDocID(r catalog.ClassRecord) string {
	slug := func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "-")
	}
	return fmt.Sprintf("class-%s-%s-%s", slug(r.Term), slug(r.CourseCode), slug(r.Section))
}
