package entities

import (
	"testing"
	"time"

	"github.com/retriever-labs/campusqa/internal/domain/query"
	"github.com/retriever-labs/campusqa/internal/vocab"
)

func fixedClock() time.Time {
	return time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
}

func newTestExtractor(t *testing.T, knownTerms ...string) *Extractor {
	t.Helper()
	g := vocab.Default()
	if err := g.Validate(); err != nil {
		t.Fatal(err)
	}
	return New(g, vocab.NewTermTable(knownTerms, fixedClock))
}

func findEntity(entities []query.Entity, typ query.EntityType) (query.Entity, bool) {
	for _, e := range entities {
		if e.Type == typ {
			return e, true
		}
	}
	return query.Entity{}, false
}

func TestExtract_EmptyInput(t *testing.T) {
	e := newTestExtractor(t)
	if got := e.Extract(""); len(got) != 0 {
		t.Errorf("expected no entities, got %v", got)
	}
	if got := e.Extract("   \t "); len(got) != 0 {
		t.Errorf("expected no entities for whitespace, got %v", got)
	}
}

func TestExtract_CourseCode(t *testing.T) {
	e := newTestExtractor(t)

	got := e.Extract("when does data 601 meet")

	course, ok := findEntity(got, query.EntityCourseCode)
	if !ok || course.Value != "DATA 601" {
		t.Fatalf("expected course code DATA 601, got %v", got)
	}
	dept, ok := findEntity(got, query.EntityDepartment)
	if !ok || dept.Value != "DATA" {
		t.Fatalf("expected department DATA, got %v", got)
	}
}

func TestExtract_UnknownPrefixIgnored(t *testing.T) {
	e := newTestExtractor(t)
	got := e.Extract("what about zzz 101")
	if _, ok := findEntity(got, query.EntityCourseCode); ok {
		t.Errorf("unknown prefix must not match: %v", got)
	}
}

func TestExtract_DepartmentAlias(t *testing.T) {
	e := newTestExtractor(t)

	got := e.Extract("what classes are there in data stream next semester")
	dept, ok := findEntity(got, query.EntityDepartment)
	if !ok || dept.Value != "DATA" {
		t.Fatalf("expected department DATA from alias, got %v", got)
	}
	// The longer "data stream" alias wins over the bare "data" alias.
	if dept.Text != "data stream" {
		t.Errorf("expected longest alias match, got %q", dept.Text)
	}
}

func TestExtract_BuildingAndService(t *testing.T) {
	e := newTestExtractor(t)

	got := e.Extract("where is sherman hall near the library")
	if b, ok := findEntity(got, query.EntityBuilding); !ok || b.Value != "Sherman Hall" {
		t.Errorf("expected building Sherman Hall, got %v", got)
	}
	// "library" is both a building and a service; duplicates across types
	// are allowed.
	var libraryTypes int
	for _, ent := range got {
		if ent.Text == "library" {
			libraryTypes++
		}
	}
	if libraryTypes != 2 {
		t.Errorf("expected library as building and service, got %v", got)
	}
}

func TestExtract_GazetteerNeedsWordBoundary(t *testing.T) {
	e := newTestExtractor(t)

	// "suite" contains "ite" and "commonsense" contains "commons"; neither
	// is a building or service mention.
	got := e.Extract("is there a study suite for commonsense quizzes")
	if b, ok := findEntity(got, query.EntityBuilding); ok {
		t.Errorf("unexpected building match %v", b)
	}
	if s, ok := findEntity(got, query.EntityService); ok {
		t.Errorf("unexpected service match %v", s)
	}
}

func TestExtract_GazetteerAllOccurrences(t *testing.T) {
	e := newTestExtractor(t)

	got := e.Extract("walk from ite to sherman hall then back to ite")
	var mentions int
	for _, ent := range got {
		if ent.Type == query.EntityBuilding && ent.Text == "ite" {
			mentions++
		}
	}
	if mentions != 2 {
		t.Errorf("expected both ite mentions, got %v", got)
	}
}

func TestExtract_Room(t *testing.T) {
	e := newTestExtractor(t)

	got := e.Extract("is the talk in room 231b")
	room, ok := findEntity(got, query.EntityRoom)
	if !ok || room.Value != "231B" {
		t.Errorf("expected room 231B, got %v", got)
	}

	// Short room numbers are too ambiguous.
	got = e.Extract("meet in rm 12")
	if _, ok := findEntity(got, query.EntityRoom); ok {
		t.Errorf("two-digit room should be ignored, got %v", got)
	}
}

func TestExtract_ExplicitTerm(t *testing.T) {
	e := newTestExtractor(t)

	got := e.Extract("when is the fall 2026 add drop deadline")
	term, ok := findEntity(got, query.EntityTerm)
	if !ok || term.Value != "Fall 2026" {
		t.Errorf("expected term Fall 2026, got %v", got)
	}
}

func TestExtract_RelativeTermResolution(t *testing.T) {
	e := newTestExtractor(t, "Spring 2026", "Fall 2026")

	got := e.Extract("what classes are there in data next semester")
	term, ok := findEntity(got, query.EntityTerm)
	if !ok || term.Value != "Fall 2026" {
		t.Errorf("expected resolved term Fall 2026, got %v", got)
	}
}

func TestExtract_RelativeTermWithoutCatalog(t *testing.T) {
	e := newTestExtractor(t)

	got := e.Extract("any classes next semester")
	if _, ok := findEntity(got, query.EntityTerm); ok {
		t.Errorf("relative term must not resolve without catalog terms, got %v", got)
	}
}

func TestExtract_OrderedByStart(t *testing.T) {
	e := newTestExtractor(t)

	got := e.Extract("cmsc 441 in the engineering building room 122a")
	for i := 1; i < len(got); i++ {
		if got[i].Start < got[i-1].Start {
			t.Fatalf("entities not ordered by start: %v", got)
		}
	}
}

func TestSetTermTable(t *testing.T) {
	e := newTestExtractor(t)

	e.SetTermTable(vocab.NewTermTable([]string{"Fall 2026"}, fixedClock))
	got := e.Extract("classes for the upcoming semester")
	term, ok := findEntity(got, query.EntityTerm)
	if !ok || term.Value != "Fall 2026" {
		t.Errorf("expected refreshed table to resolve Fall 2026, got %v", got)
	}
}
