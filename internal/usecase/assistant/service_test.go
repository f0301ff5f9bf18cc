package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/retriever-labs/campusqa/internal/domain"
	"github.com/retriever-labs/campusqa/internal/domain/catalog"
	"github.com/retriever-labs/campusqa/internal/domain/document"
	"github.com/retriever-labs/campusqa/internal/domain/query"
	"github.com/retriever-labs/campusqa/internal/nlp/entities"
	"github.com/retriever-labs/campusqa/internal/nlp/intent"
	"github.com/retriever-labs/campusqa/internal/nlp/normalizer"
	"github.com/retriever-labs/campusqa/internal/vocab"
)

// fixedClock pins relative term resolution: Spring 2026 is in session, the
// next term in the catalog is Fall 2026.
func fixedClock() time.Time {
	return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
}

type mockClassStore struct {
	records    []catalog.ClassRecord
	err        error
	gotDept    []string
	gotTerm    []string
	gotLimit   []int
	delay      time.Duration
	emptyTerms map[string]bool
}

func (m *mockClassStore) FetchClasses(ctx context.Context, department, term string, limit int) ([]catalog.ClassRecord, error) {
	m.gotDept = append(m.gotDept, department)
	m.gotTerm = append(m.gotTerm, term)
	m.gotLimit = append(m.gotLimit, limit)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	if m.emptyTerms[term] {
		return nil, nil
	}
	if limit > 0 && len(m.records) > limit {
		return m.records[:limit], nil
	}
	return m.records, nil
}

type mockIndex struct {
	docs       []query.ScoredDocument
	err        error
	gotQuery   string
	gotTopK    int
	gotFilters []document.SourceType
}

func (m *mockIndex) Search(_ context.Context, queryText string, topK int, sourceTypes []document.SourceType) ([]query.ScoredDocument, error) {
	m.gotQuery = queryText
	m.gotTopK = topK
	m.gotFilters = sourceTypes
	if m.err != nil {
		return nil, m.err
	}
	if len(m.docs) > topK {
		return m.docs[:topK], nil
	}
	return m.docs, nil
}

type mockGenerator struct {
	answer string
	err    error
	called bool
}

func (m *mockGenerator) Generate(_ context.Context, _ string, _ []query.ScoredDocument) (string, error) {
	m.called = true
	if m.err != nil {
		return "", m.err
	}
	return m.answer, nil
}

func newTestService(t *testing.T, classes ClassStore, index SearchIndex, gen Generator) *Service {
	t.Helper()
	g := vocab.Default()
	table := vocab.NewTermTable([]string{"Spring 2026", "Fall 2026"}, fixedClock)
	ext := entities.New(g, table)
	return New(
		normalizer.New(g, 2),
		ext,
		intent.New(),
		classes, index, gen,
		Config{
			TopK:            5,
			MaxTopK:         20,
			StoreTimeout:    200 * time.Millisecond,
			GenerateTimeout: 200 * time.Millisecond,
		},
	)
}

func TestAnswerQueryEmptyInput(t *testing.T) {
	svc := newTestService(t, &mockClassStore{}, &mockIndex{}, nil)

	for _, raw := range []string{"", "   ", "?!,."} {
		if _, err := svc.AnswerQuery(context.Background(), raw, 0); !errors.Is(err, domain.ErrEmptyQuery) {
			t.Fatalf("input %q: expected ErrEmptyQuery, got %v", raw, err)
		}
	}
}

func TestAnswerQueryMisspelledClassLookupRoutesToCatalog(t *testing.T) {
	store := &mockClassStore{
		records: []catalog.ClassRecord{
			{Term: "Fall 2026", Department: "DATA", CourseCode: "DATA 601", CourseTitle: "Intro to Data Science", Section: "01", Instructor: "Rivera"},
		},
	}
	svc := newTestService(t, store, &mockIndex{}, nil)

	res, err := svc.AnswerQuery(context.Background(), "wat classes r ther in DATA strem nxt semster", 0)
	if err != nil {
		t.Fatalf("answer: %v", err)
	}

	if res.NormalizedQuery != "what classes are there in data stream next semester" {
		t.Fatalf("unexpected normalization: %q", res.NormalizedQuery)
	}
	if !res.CorrectionApplied {
		t.Fatal("expected correction flag")
	}
	if res.Intent != query.IntentClassLookup {
		t.Fatalf("expected class_lookup, got %q", res.Intent)
	}
	if res.Route != query.RouteClassDatabase {
		t.Fatalf("expected class_database route, got %q", res.Route)
	}
	if len(store.gotDept) == 0 || store.gotDept[0] != "DATA" {
		t.Fatalf("expected DATA department filter, got %v", store.gotDept)
	}
	if store.gotTerm[0] != "Fall 2026" {
		t.Fatalf("expected resolved term filter, got %v", store.gotTerm)
	}
	if !strings.Contains(res.Answer, "DATA 601") {
		t.Fatalf("expected class in answer, got %q", res.Answer)
	}
	if !strings.Contains(res.Answer, "what classes are there in data stream next semester") {
		t.Fatalf("expected corrected query restated, got %q", res.Answer)
	}
	if len(res.Sources) != 1 || res.Sources[0].SourceType != "class" {
		t.Fatalf("expected class source, got %+v", res.Sources)
	}
}

func TestAnswerQueryDeadlineRoutesToRAGWithCalendarFilter(t *testing.T) {
	idx := &mockIndex{
		docs: []query.ScoredDocument{
			{
				Document: document.Document{
					DocID:      "cal-7",
					SourceType: document.SourceCalendar,
					Title:      "Add drop deadline",
					Text:       "Last day to add or drop Fall 2026 classes is September 11.",
				},
				Score: 0.8,
			},
		},
	}
	svc := newTestService(t, &mockClassStore{}, idx, nil)

	res, err := svc.AnswerQuery(context.Background(), "when is the fall 2026 add drop deadline", 0)
	if err != nil {
		t.Fatalf("answer: %v", err)
	}

	if res.Intent != query.IntentDeadlineLookup {
		t.Fatalf("expected deadline_lookup, got %q", res.Intent)
	}
	if res.Route != query.RouteRAG {
		t.Fatalf("expected rag route, got %q", res.Route)
	}
	if len(idx.gotFilters) != 1 || idx.gotFilters[0] != document.SourceCalendar {
		t.Fatalf("expected calendar filter, got %v", idx.gotFilters)
	}
	if !strings.Contains(res.Answer, "cal-7") {
		t.Fatalf("expected citation in answer, got %q", res.Answer)
	}
	if len(res.Sources) != 1 || res.Sources[0].DocID != "cal-7" {
		t.Fatalf("expected cal-7 source, got %+v", res.Sources)
	}
}

func TestAnswerQueryEmptyRetrievalSaysNoEvidence(t *testing.T) {
	svc := newTestService(t, &mockClassStore{}, &mockIndex{}, nil)

	res, err := svc.AnswerQuery(context.Background(), "tell me about parking permits", 0)
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if !strings.Contains(res.Answer, "grounded evidence") {
		t.Fatalf("expected explicit no-evidence answer, got %q", res.Answer)
	}
	if len(res.Sources) != 0 {
		t.Fatalf("expected no sources, got %+v", res.Sources)
	}
}

func TestAnswerQueryIndexNotReadyPropagates(t *testing.T) {
	svc := newTestService(t, &mockClassStore{}, &mockIndex{err: domain.ErrIndexNotReady}, nil)

	_, err := svc.AnswerQuery(context.Background(), "any events this week", 0)
	if !errors.Is(err, domain.ErrIndexNotReady) {
		t.Fatalf("expected ErrIndexNotReady, got %v", err)
	}
}

func TestAnswerQueryCatalogErrorFallsBack(t *testing.T) {
	store := &mockClassStore{err: errors.New("disk gone")}
	svc := newTestService(t, store, &mockIndex{}, nil)

	res, err := svc.AnswerQuery(context.Background(), "what data classes are there", 0)
	if err != nil {
		t.Fatalf("store failure must not error the query: %v", err)
	}
	if !strings.Contains(res.Answer, "unavailable") {
		t.Fatalf("expected fallback answer, got %q", res.Answer)
	}
}

func TestAnswerQueryCatalogTimeoutFallsBack(t *testing.T) {
	store := &mockClassStore{delay: 2 * time.Second}
	svc := newTestService(t, store, &mockIndex{}, nil)

	start := time.Now()
	res, err := svc.AnswerQuery(context.Background(), "what data classes are there", 0)
	if err != nil {
		t.Fatalf("store timeout must not error the query: %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("store timeout was not enforced")
	}
	if !strings.Contains(res.Answer, "unavailable") {
		t.Fatalf("expected fallback answer, got %q", res.Answer)
	}
}

func TestAnswerQueryTermRelaxRetry(t *testing.T) {
	store := &mockClassStore{
		records:    []catalog.ClassRecord{{Term: "Spring 2026", Department: "DATA", CourseCode: "DATA 601", CourseTitle: "Intro to Data Science", Section: "01"}},
		emptyTerms: map[string]bool{"Fall 2026": true},
	}
	svc := newTestService(t, store, &mockIndex{}, nil)

	res, err := svc.AnswerQuery(context.Background(), "what data classes are there next semester", 0)
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if len(store.gotTerm) != 2 || store.gotTerm[0] != "Fall 2026" || store.gotTerm[1] != "" {
		t.Fatalf("expected term relax retry, got terms %v", store.gotTerm)
	}
	if !strings.Contains(res.Answer, "DATA 601") {
		t.Fatalf("expected relaxed results in answer, got %q", res.Answer)
	}
}

func TestAnswerQueryCourseCodeMatchBeyondRowLimit(t *testing.T) {
	// The requested course sits past the usual row limit within its
	// department; a course-code lookup must still find it.
	records := make([]catalog.ClassRecord, 0, 61)
	for i := 0; i < 60; i++ {
		records = append(records, catalog.ClassRecord{
			Term:       "Fall 2026",
			Department: "DATA",
			CourseCode: fmt.Sprintf("DATA %d", 100+i),
			Section:    "01",
		})
	}
	records = append(records, catalog.ClassRecord{
		Term: "Fall 2026", Department: "DATA", CourseCode: "DATA 699",
		CourseTitle: "Independent Study", Section: "01",
	})
	store := &mockClassStore{records: records}
	svc := newTestService(t, store, &mockIndex{}, nil)

	res, err := svc.AnswerQuery(context.Background(), "data 699 next semester", 0)
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if len(store.gotLimit) == 0 || store.gotLimit[0] != 0 {
		t.Fatalf("course-code lookup must fetch without a row limit, got %v", store.gotLimit)
	}
	if !strings.Contains(res.Answer, "DATA 699") {
		t.Fatalf("expected DATA 699 in answer, got %q", res.Answer)
	}
	if len(res.Sources) != 1 {
		t.Fatalf("expected the single matching section as source, got %d", len(res.Sources))
	}
}

func TestAnswerQueryNoMatchingClasses(t *testing.T) {
	svc := newTestService(t, &mockClassStore{}, &mockIndex{}, nil)

	res, err := svc.AnswerQuery(context.Background(), "what econ classes are there", 0)
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if res.Route != query.RouteClassDatabase {
		t.Fatalf("expected class_database route, got %q", res.Route)
	}
	if !strings.Contains(res.Answer, "couldn't find any matching classes") {
		t.Fatalf("expected no-matches answer, got %q", res.Answer)
	}
}

func TestAnswerQueryGeneratorAnswerPreferred(t *testing.T) {
	idx := &mockIndex{
		docs: []query.ScoredDocument{
			{Document: document.Document{DocID: "event-1", SourceType: document.SourceEvent, Title: "Hackathon", Text: "Annual hackathon in ITE."}, Score: 0.7},
		},
	}
	gen := &mockGenerator{answer: "The hackathon is this Saturday in ITE [event-1]."}
	svc := newTestService(t, &mockClassStore{}, idx, gen)

	res, err := svc.AnswerQuery(context.Background(), "any events this week", 0)
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if !gen.called {
		t.Fatal("expected generator to be called")
	}
	if res.Answer != gen.answer {
		t.Fatalf("expected generated answer, got %q", res.Answer)
	}
}

func TestAnswerQueryGeneratorFailureFallsBackToTemplate(t *testing.T) {
	idx := &mockIndex{
		docs: []query.ScoredDocument{
			{Document: document.Document{DocID: "event-1", SourceType: document.SourceEvent, Title: "Hackathon", Text: "Annual hackathon in ITE."}, Score: 0.7},
		},
	}
	gen := &mockGenerator{err: domain.ErrGeneratorUnavailable}
	svc := newTestService(t, &mockClassStore{}, idx, gen)

	res, err := svc.AnswerQuery(context.Background(), "any events this week", 0)
	if err != nil {
		t.Fatalf("generator failure must not error the query: %v", err)
	}
	if !strings.Contains(res.Answer, "event-1") {
		t.Fatalf("expected template citation, got %q", res.Answer)
	}
}

func TestAnswerQueryTopKClamped(t *testing.T) {
	idx := &mockIndex{}
	svc := newTestService(t, &mockClassStore{}, idx, nil)

	if _, err := svc.AnswerQuery(context.Background(), "library hours", 500); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if idx.gotTopK != 20 {
		t.Fatalf("expected topK clamped to 20, got %d", idx.gotTopK)
	}

	if _, err := svc.AnswerQuery(context.Background(), "library hours", 0); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if idx.gotTopK != 5 {
		t.Fatalf("expected default topK 5, got %d", idx.gotTopK)
	}
}

func TestRouteDecisions(t *testing.T) {
	svc := newTestService(t, &mockClassStore{}, &mockIndex{}, nil)

	cases := []struct {
		name string
		pred intent.Prediction
		ents []query.Entity
		want query.Route
	}{
		{
			name: "class lookup with department",
			pred: intent.Prediction{Intent: query.IntentClassLookup},
			ents: []query.Entity{{Type: query.EntityDepartment, Value: "DATA"}},
			want: query.RouteClassDatabase,
		},
		{
			name: "class lookup without entities",
			pred: intent.Prediction{Intent: query.IntentClassLookup},
			want: query.RouteRAG,
		},
		{
			name: "deadline lookup with term entity",
			pred: intent.Prediction{Intent: query.IntentDeadlineLookup},
			ents: []query.Entity{{Type: query.EntityTerm, Value: "Fall 2026"}},
			want: query.RouteRAG,
		},
		{
			name: "unknown intent",
			pred: intent.Prediction{Intent: query.IntentUnknown},
			want: query.RouteRAG,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := svc.Route(tc.pred, tc.ents)
			if got.Route != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got.Route)
			}
		})
	}
}

func TestRouteMetadataCarriesResolvedFilters(t *testing.T) {
	svc := newTestService(t, &mockClassStore{}, &mockIndex{}, nil)

	decision := svc.Route(
		intent.Prediction{Intent: query.IntentClassLookup},
		[]query.Entity{
			{Type: query.EntityDepartment, Value: "DATA"},
			{Type: query.EntityTerm, Value: "Fall 2026"},
		},
	)
	if decision.Metadata["department"] != "DATA" || decision.Metadata["term"] != "Fall 2026" {
		t.Fatalf("unexpected metadata: %v", decision.Metadata)
	}
}
