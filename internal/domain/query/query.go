// Package query defines the per-query value types flowing through the
// normalize -> extract/classify -> route -> answer pipeline. All of them are
// derived state, produced fresh per query and never persisted.
package query

import (
	"github.com/retriever-labs/campusqa/internal/domain/document"
)

// Intent is the categorical purpose of a user query.
type Intent string

const (
	IntentClassLookup     Intent = "class_lookup"
	IntentDeadlineLookup  Intent = "deadline_lookup"
	IntentEventLookup     Intent = "event_lookup"
	IntentBuildingLookup  Intent = "building_lookup"
	IntentGeneralQuestion Intent = "general_question"
	IntentUnknown         Intent = "unknown"
)

// EntityType classifies a recognized span.
type EntityType string

const (
	EntityCourseCode EntityType = "course_code"
	EntityBuilding   EntityType = "building"
	EntityDepartment EntityType = "department"
	EntityRoom       EntityType = "room"
	EntityTerm       EntityType = "term"
	EntityService    EntityType = "service"
)

// Entity is a recognized domain-specific span with a normalized value.
type Entity struct {
	Type  EntityType
	Value string // normalized form, e.g. "DATA 601", "Fall 2026"
	Text  string // matched span as it appeared in the query
	Start int
	End   int
}

// NormalizedQuery is the output of query normalization.
type NormalizedQuery struct {
	Original  string
	Corrected string
	Applied   bool
	Changes   []Correction
}

// Correction records one token replacement made by the normalizer.
type Correction struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Route selects the answering path for a query.
type Route string

const (
	RouteClassDatabase Route = "class_database"
	RouteRAG           Route = "rag"
)

// RouteDecision is the routing outcome for one query.
type RouteDecision struct {
	Route    Route
	Metadata map[string]string
}

// ScoredDocument pairs a retrieved document with its similarity score.
type ScoredDocument struct {
	Document document.Document
	Score    float64
}

// Source describes one piece of evidence backing an answer.
type Source struct {
	DocID      string            `json:"doc_id"`
	Title      string            `json:"title"`
	SourceType string            `json:"source_type"`
	Score      float64           `json:"score"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// AnswerResult is the complete outcome of one answered query.
type AnswerResult struct {
	Query             string       `json:"query"`
	Answer            string       `json:"answer"`
	Intent            Intent       `json:"intent"`
	Entities          []Entity     `json:"entities"`
	Route             Route        `json:"route"`
	Sources           []Source     `json:"sources"`
	NormalizedQuery   string       `json:"normalized_query"`
	CorrectionApplied bool         `json:"correction_applied"`
	Corrections       []Correction `json:"corrections,omitempty"`
	LatencyMs         float64      `json:"latency_ms"`
}
