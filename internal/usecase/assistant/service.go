// Package assistant runs the question-answering pipeline: normalize, extract,
// classify, route, then answer from the class catalog or by retrieval.
package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/retriever-labs/campusqa/internal/domain"
	"github.com/retriever-labs/campusqa/internal/domain/catalog"
	"github.com/retriever-labs/campusqa/internal/domain/document"
	"github.com/retriever-labs/campusqa/internal/domain/query"
	"github.com/retriever-labs/campusqa/internal/logger"
	"github.com/retriever-labs/campusqa/internal/metrics"
	"github.com/retriever-labs/campusqa/internal/nlp/entities"
	"github.com/retriever-labs/campusqa/internal/nlp/intent"
	"github.com/retriever-labs/campusqa/internal/nlp/normalizer"
)

const (
	answerNoClasses     = "I couldn't find any matching classes in the catalog."
	answerStoreDown     = "The class catalog is unavailable right now, please try again in a moment."
	answerNoEvidence    = "I couldn't find any grounded evidence for that in the campus data."
	maxClassesInAnswer  = 10
	classLookupRowLimit = 50
	snippetPreviewRunes = 240
)

// Config bounds the answering pipeline.
type Config struct {
	TopK            int
	MaxTopK         int
	StoreTimeout    time.Duration
	GenerateTimeout time.Duration
}

// Service answers campus questions.
type Service struct {
	norm     *normalizer.Normalizer
	extract  *entities.Extractor
	classify *intent.Classifier
	classes  ClassStore
	index    SearchIndex
	gen      Generator
	cfg      Config
}

// New creates the assistant service. gen may be nil.
func New(
	norm *normalizer.Normalizer,
	extract *entities.Extractor,
	classify *intent.Classifier,
	classes ClassStore,
	index SearchIndex,
	gen Generator,
	cfg Config,
) *Service {
	return &Service{
		norm:     norm,
		extract:  extract,
		classify: classify,
		classes:  classes,
		index:    index,
		gen:      gen,
		cfg:      cfg,
	}
}

// Route picks the answering path. Only a class_lookup intent backed by at
// least one course code, department, or term entity goes to the structured
// catalog; everything else is answered by retrieval.
func (s *Service) Route(pred intent.Prediction, ents []query.Entity) query.RouteDecision {
	if pred.Intent != query.IntentClassLookup {
		return query.RouteDecision{Route: query.RouteRAG}
	}

	md := map[string]string{}
	for _, e := range ents {
		switch e.Type {
		case query.EntityCourseCode:
			if md["course_code"] == "" {
				md["course_code"] = e.Value
			}
		case query.EntityDepartment:
			if md["department"] == "" {
				md["department"] = e.Value
			}
		case query.EntityTerm:
			if md["term"] == "" {
				md["term"] = e.Value
			}
		}
	}
	if len(md) == 0 {
		return query.RouteDecision{Route: query.RouteRAG}
	}
	return query.RouteDecision{Route: query.RouteClassDatabase, Metadata: md}
}

// AnswerQuery runs the full pipeline for one raw query. topK <= 0 uses the
// configured default; values above the configured maximum are clamped.
func (s *Service) AnswerQuery(ctx context.Context, raw string, topK int) (query.AnswerResult, error) {
	start := time.Now()
	log := logger.FromContext(ctx)

	norm := s.norm.Normalize(raw)
	if strings.TrimSpace(norm.Corrected) == "" {
		return query.AnswerResult{}, domain.ErrEmptyQuery
	}
	if norm.Applied {
		metrics.CorrectionsTotal.Inc()
	}

	ents := s.extract.Extract(norm.Corrected)
	pred := s.classify.Classify(norm.Corrected, ents)
	decision := s.Route(pred, ents)

	if topK <= 0 {
		topK = s.cfg.TopK
	}
	if topK > s.cfg.MaxTopK {
		topK = s.cfg.MaxTopK
	}

	var answer string
	var sources []query.Source
	var err error
	switch decision.Route {
	case query.RouteClassDatabase:
		answer, sources = s.answerFromClasses(ctx, log, decision.Metadata)
	default:
		answer, sources, err = s.answerFromIndex(ctx, log, norm, pred.Intent, topK)
		if err != nil {
			return query.AnswerResult{}, err
		}
	}

	if norm.Applied {
		answer = fmt.Sprintf("I interpreted your question as %q. %s", norm.Corrected, answer)
	}

	metrics.QueriesTotal.WithLabelValues(string(pred.Intent), string(decision.Route)).Inc()
	metrics.QueryDuration.WithLabelValues(string(decision.Route)).Observe(time.Since(start).Seconds())

	return query.AnswerResult{
		Query:             raw,
		Answer:            answer,
		Intent:            pred.Intent,
		Entities:          ents,
		Route:             decision.Route,
		Sources:           sources,
		NormalizedQuery:   norm.Corrected,
		CorrectionApplied: norm.Applied,
		Corrections:       norm.Changes,
		LatencyMs:         float64(time.Since(start).Microseconds()) / 1000,
	}, nil
}

// answerFromClasses queries the catalog under the store timeout. Store
// failures and empty results degrade to fallback answers, never errors.
func (s *Service) answerFromClasses(ctx context.Context, log *zap.Logger, md map[string]string) (string, []query.Source) {
	dept := md["department"]
	term := md["term"]
	code := md["course_code"]

	// The course-code filter runs in memory, so the SQL row limit must not
	// cut off the matching rows before it.
	limit := classLookupRowLimit
	if code != "" {
		limit = 0
	}

	records, err := s.fetchClasses(ctx, dept, term, limit)
	if err != nil {
		log.Warn("class catalog lookup failed", zap.Error(err))
		return answerStoreDown, nil
	}

	// No rows for the requested term: the term may not be loaded yet, so
	// retry across all terms before giving up.
	if len(records) == 0 && term != "" {
		records, err = s.fetchClasses(ctx, dept, "", limit)
		if err != nil {
			log.Warn("class catalog lookup failed", zap.Error(err))
			return answerStoreDown, nil
		}
	}

	if code != "" {
		filtered := records[:0]
		for _, r := range records {
			if strings.EqualFold(r.CourseCode, code) {
				filtered = append(filtered, r)
			}
		}
		records = filtered
		if len(records) > classLookupRowLimit {
			records = records[:classLookupRowLimit]
		}
	}

	if len(records) == 0 {
		return answerNoClasses, nil
	}
	return formatClassAnswer(records, dept, term), classSources(records)
}

func (s *Service) fetchClasses(ctx context.Context, dept, term string, limit int) ([]catalog.ClassRecord, error) {
	cctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	return s.classes.FetchClasses(cctx, dept, term, limit)
}

// answerFromIndex retrieves evidence and, when a generator is configured,
// asks it for a grounded answer under the generation timeout. Generator
// failure falls back to the deterministic template.
func (s *Service) answerFromIndex(
	ctx context.Context, log *zap.Logger, norm query.NormalizedQuery, in query.Intent, topK int,
) (string, []query.Source, error) {
	docs, err := s.index.Search(ctx, norm.Corrected, topK, sourceFilterForIntent(in))
	if err != nil {
		return "", nil, err
	}
	if len(docs) == 0 {
		return answerNoEvidence, nil, nil
	}

	answer := templateAnswer(docs)
	if s.gen != nil {
		gctx, cancel := context.WithTimeout(ctx, s.cfg.GenerateTimeout)
		generated, genErr := s.gen.Generate(gctx, norm.Corrected, docs)
		cancel()
		if genErr != nil {
			log.Warn("answer generation failed, using template", zap.Error(genErr))
		} else {
			answer = generated
		}
	}
	return answer, documentSources(docs), nil
}

// sourceFilterForIntent narrows retrieval to the document source that can
// actually answer the intent.
func sourceFilterForIntent(in query.Intent) []document.SourceType {
	switch in {
	case query.IntentDeadlineLookup:
		return []document.SourceType{document.SourceCalendar}
	case query.IntentEventLookup:
		return []document.SourceType{document.SourceEvent}
	case query.IntentClassLookup:
		return []document.SourceType{document.SourceClass}
	default:
		return nil
	}
}

func formatClassAnswer(records []catalog.ClassRecord, dept, term string) string {
	var b strings.Builder
	switch {
	case dept != "" && term != "":
		fmt.Fprintf(&b, "Here are %s classes for %s:\n", dept, term)
	case dept != "":
		fmt.Fprintf(&b, "Here are %s classes:\n", dept)
	default:
		b.WriteString("Here are the matching classes:\n")
	}

	shown := records
	if len(shown) > maxClassesInAnswer {
		shown = shown[:maxClassesInAnswer]
	}
	for _, r := range shown {
		fmt.Fprintf(&b, "- %s %s (section %s), %s", r.CourseCode, r.CourseTitle, r.Section, r.Term)
		if r.Instructor != "" {
			fmt.Fprintf(&b, ", taught by %s", r.Instructor)
		}
		if r.MeetingDays != "" {
			fmt.Fprintf(&b, ", %s %s-%s", r.MeetingDays, r.StartTime, r.EndTime)
		}
		b.WriteString("\n")
	}
	if len(records) > maxClassesInAnswer {
		fmt.Fprintf(&b, "...and %d more.\n", len(records)-maxClassesInAnswer)
	}
	return strings.TrimRight(b.String(), "\n")
}

// templateAnswer cites each retrieved snippet by doc id and source type.
func templateAnswer(docs []query.ScoredDocument) string {
	var b strings.Builder
	b.WriteString("Here's what I found:\n")
	for _, d := range docs {
		text := d.Document.Text
		if runes := []rune(text); len(runes) > snippetPreviewRunes {
			text = string(runes[:snippetPreviewRunes]) + "..."
		}
		fmt.Fprintf(&b, "- [%s] (%s) %s: %s\n", d.Document.DocID, d.Document.SourceType, d.Document.Title, text)
	}
	return strings.TrimRight(b.String(), "\n")
}

func classSources(records []catalog.ClassRecord) []query.Source {
	sources := make([]query.Source, 0, len(records))
	for _, r := range records {
		sources = append(sources, query.Source{
			DocID:      classDocID(r),
			Title:      fmt.Sprintf("%s: %s", r.CourseCode, r.CourseTitle),
			SourceType: string(document.SourceClass),
			Metadata: map[string]string{
				"term":       r.Term,
				"department": r.Department,
			},
		})
	}
	return sources
}

func classDocID(r catalog.ClassRecord) string {
	slug := func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "-")
	}
	return fmt.Sprintf("class-%s-%s-%s", slug(r.Term), slug(r.CourseCode), slug(r.Section))
}

func documentSources(docs []query.ScoredDocument) []query.Source {
	sources := make([]query.Source, 0, len(docs))
	for _, d := range docs {
		sources = append(sources, query.Source{
			DocID:      d.Document.DocID,
			Title:      d.Document.Title,
			SourceType: string(d.Document.SourceType),
			Score:      d.Score,
			Metadata:   d.Document.Metadata,
		})
	}
	return sources
}
