// Package classes persists the structured class catalog.
package classes

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/retriever-labs/campusqa/internal/domain/catalog"
)

const schema = `
CREATE TABLE IF NOT EXISTS classes (
	class_id     TEXT NOT NULL,
	term         TEXT NOT NULL,
	department   TEXT NOT NULL,
	course_code  TEXT NOT NULL,
	course_title TEXT NOT NULL,
	section      TEXT NOT NULL,
	instructor   TEXT NOT NULL DEFAULT '',
	meeting_days TEXT NOT NULL DEFAULT '',
	start_time   TEXT NOT NULL DEFAULT '',
	end_time     TEXT NOT NULL DEFAULT '',
	building     TEXT NOT NULL DEFAULT '',
	room         TEXT NOT NULL DEFAULT '',
	modality     TEXT NOT NULL DEFAULT '',
	UNIQUE(term, course_code, section)
);
CREATE INDEX IF NOT EXISTS idx_classes_department ON classes(department);
`

// Store implements the class catalog over SQLite.
type Store struct {
	db *sql.DB
}

// New creates the classes table if missing and returns the store.
func New(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("creating classes schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Upsert inserts or replaces class records in one transaction. The natural
// key is (term, course_code, section).
func (s *Store) Upsert(ctx context.Context, records []catalog.ClassRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO classes
			(class_id, term, department, course_code, course_title, section,
			 instructor, meeting_days, start_time, end_time, building, room, modality)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(term, course_code, section) DO UPDATE SET
			class_id = excluded.class_id,
			department = excluded.department,
			course_title = excluded.course_title,
			instructor = excluded.instructor,
			meeting_days = excluded.meeting_days,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			building = excluded.building,
			room = excluded.room,
			modality = excluded.modality
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx,
			r.ClassID, r.Term, strings.ToUpper(r.Department), strings.ToUpper(r.CourseCode),
			r.CourseTitle, r.Section, r.Instructor, r.MeetingDays,
			r.StartTime, r.EndTime, r.Building, r.Room, r.Modality,
		); err != nil {
			return fmt.Errorf("saving class %s %s: %w", r.CourseCode, r.Section, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// FetchClasses returns class records filtered by department and term; either
// filter may be empty. Results are ordered by term, course code, section.
func (s *Store) FetchClasses(ctx context.Context, department, term string, limit int) ([]catalog.ClassRecord, error) {
	q := `
		SELECT class_id, term, department, course_code, course_title, section,
		       instructor, meeting_days, start_time, end_time, building, room, modality
		FROM classes
	`
	var conds []string
	var args []any
	if department != "" {
		conds = append(conds, "department = ?")
		args = append(args, strings.ToUpper(department))
	}
	if term != "" {
		conds = append(conds, "term = ?")
		args = append(args, term)
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY term, course_code, section"
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying classes: %w", err)
	}
	defer rows.Close()

	var records []catalog.ClassRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		var r catalog.ClassRecord
		if err := rows.Scan(
			&r.ClassID, &r.Term, &r.Department, &r.CourseCode, &r.CourseTitle, &r.Section,
			&r.Instructor, &r.MeetingDays, &r.StartTime, &r.EndTime, &r.Building, &r.Room, &r.Modality,
		); err != nil {
			return nil, fmt.Errorf("scanning class: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating classes: %w", err)
	}
	return records, nil
}

// DistinctTerms returns every term present in the catalog.
func (s *Store) DistinctTerms(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT term FROM classes ORDER BY term")
	if err != nil {
		return nil, fmt.Errorf("querying terms: %w", err)
	}
	defer rows.Close()

	var terms []string //nolint:prealloc // size unknown from query
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scanning term: %w", err)
		}
		terms = append(terms, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating terms: %w", err)
	}
	return terms, nil
}

// Count returns the number of class records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM classes").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting classes: %w", err)
	}
	return n, nil
}
