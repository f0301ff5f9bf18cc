// Package entities recognizes campus domain entities (course codes,
// buildings, departments, rooms, terms, services) in normalized query text.
package entities

import (
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/retriever-labs/campusqa/internal/domain/query"
	"github.com/retriever-labs/campusqa/internal/vocab"
)

var (
	courseCodeRe   = regexp.MustCompile(`\b([a-z]{2,5})\s(\d{3}[a-z]?)\b`)
	roomRe         = regexp.MustCompile(`\b(?:room|rm)\s*([a-z]?\d{2,4}[a-z]?)\b`)
	explicitTermRe = regexp.MustCompile(`(?i)\b(spring|summer|fall|winter)\s+(20\d{2})\b`)
)

// Extractor is a pure recognizer over the gazetteer and the term table.
// The term table is refreshed after each catalog ingest; Extract may run
// concurrently with SetTermTable.
type Extractor struct {
	gaz vocab.Gazetteer

	mu    sync.RWMutex
	terms vocab.TermTable
}

// New creates an Extractor. The initial term table may be empty; relative
// term expressions then simply resolve to nothing.
func New(g vocab.Gazetteer, terms vocab.TermTable) *Extractor {
	return &Extractor{gaz: g, terms: terms}
}

// SetTermTable swaps the catalog-derived term table.
func (e *Extractor) SetTermTable(t vocab.TermTable) {
	e.mu.Lock()
	e.terms = t
	e.mu.Unlock()
}

// Extract returns the recognized entities, ordered by start offset.
// It never fails: empty or malformed input yields an empty sequence.
// Overlapping candidates of the same type are resolved by preferring the
// longest match, then the earliest start; duplicates across types are kept.
func (e *Extractor) Extract(normalized string) []query.Entity {
	if strings.TrimSpace(normalized) == "" {
		return nil
	}
	text := strings.ToLower(normalized)

	e.mu.RLock()
	terms := e.terms
	e.mu.RUnlock()

	var candidates []query.Entity
	candidates = append(candidates, e.courseCodes(text)...)
	candidates = append(candidates, e.departments(text)...)
	candidates = append(candidates, e.gazetteerSpans(text, e.gaz.Buildings, query.EntityBuilding)...)
	candidates = append(candidates, e.gazetteerSpans(text, e.gaz.Services, query.EntityService)...)
	candidates = append(candidates, rooms(text)...)
	candidates = append(candidates, termSpans(text, terms)...)

	return resolveOverlaps(candidates)
}

// courseCodes finds department-prefixed course numbers. Each code also yields
// a department entity over the same span.
func (e *Extractor) courseCodes(text string) []query.Entity {
	var out []query.Entity
	for _, m := range courseCodeRe.FindAllStringSubmatchIndex(text, -1) {
		dept := text[m[2]:m[3]]
		if !e.gaz.IsDepartment(dept) {
			continue
		}
		span := text[m[0]:m[1]]
		code := strings.ToUpper(dept) + " " + strings.ToUpper(text[m[4]:m[5]])
		out = append(out,
			query.Entity{
				Type: query.EntityCourseCode, Value: code,
				Text: span, Start: m[0], End: m[1],
			},
			query.Entity{
				Type: query.EntityDepartment, Value: strings.ToUpper(dept),
				Text: span, Start: m[0], End: m[1],
			},
		)
	}
	return out
}

// departments finds department alias phrases ("data science", "econ").
// Bare department codes are deliberately not matched as free words: "is"
// would turn every query into an Information Systems lookup.
func (e *Extractor) departments(text string) []query.Entity {
	var out []query.Entity
	for _, alias := range e.gaz.DeptAliases {
		for _, span := range wordSpans(text, alias.Phrase) {
			out = append(out, query.Entity{
				Type: query.EntityDepartment, Value: alias.Code,
				Text: alias.Phrase, Start: span[0], End: span[1],
			})
		}
	}
	return out
}

func (e *Extractor) gazetteerSpans(text string, names []string, typ query.EntityType) []query.Entity {
	var out []query.Entity
	for _, name := range names {
		lowered := strings.ToLower(name)
		for _, span := range wordSpans(text, lowered) {
			out = append(out, query.Entity{
				Type: typ, Value: name,
				Text: lowered, Start: span[0], End: span[1],
			})
		}
	}
	return out
}

func rooms(text string) []query.Entity {
	var out []query.Entity
	for _, m := range roomRe.FindAllStringSubmatchIndex(text, -1) {
		room := text[m[2]:m[3]]
		if len(room) < 3 {
			continue
		}
		out = append(out, query.Entity{
			Type: query.EntityRoom, Value: strings.ToUpper(room),
			Text: room, Start: m[2], End: m[3],
		})
	}
	return out
}

func termSpans(text string, terms vocab.TermTable) []query.Entity {
	var out []query.Entity

	for _, m := range explicitTermRe.FindAllStringIndex(text, -1) {
		span := text[m[0]:m[1]]
		if canonical, ok := vocab.Canonical(span); ok {
			out = append(out, query.Entity{
				Type: query.EntityTerm, Value: canonical,
				Text: span, Start: m[0], End: m[1],
			})
		}
	}

	if phrase, start, end, ok := vocab.RelativeSpan(text); ok {
		if resolved, resolvedOK := terms.Resolve(phrase); resolvedOK {
			out = append(out, query.Entity{
				Type: query.EntityTerm, Value: resolved,
				Text: phrase, Start: start, End: end,
			})
		}
	}
	return out
}

// wordSpans finds whole-word occurrences of phrase in text.
func wordSpans(text, phrase string) [][2]int {
	var spans [][2]int
	for offset := 0; ; {
		idx := strings.Index(text[offset:], phrase)
		if idx < 0 {
			break
		}
		start := offset + idx
		end := start + len(phrase)
		if isWordBoundary(text, start, end) {
			spans = append(spans, [2]int{start, end})
		}
		offset = end
	}
	return spans
}

func isWordBoundary(text string, start, end int) bool {
	if start > 0 && isWordChar(text[start-1]) {
		return false
	}
	if end < len(text) && isWordChar(text[end]) {
		return false
	}
	return true
}

func isWordChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// resolveOverlaps keeps, per entity type, the longest match for every
// overlapping group (ties to the earliest start), then orders the survivors
// by start offset.
func resolveOverlaps(candidates []query.Entity) []query.Entity {
	byType := map[query.EntityType][]query.Entity{}
	for _, c := range candidates {
		byType[c.Type] = append(byType[c.Type], c)
	}

	var out []query.Entity
	for _, group := range byType {
		sort.SliceStable(group, func(i, j int) bool {
			li, lj := group[i].End-group[i].Start, group[j].End-group[j].Start
			if li != lj {
				return li > lj
			}
			return group[i].Start < group[j].Start
		})
		var kept []query.Entity
		for _, c := range group {
			overlaps := false
			for _, k := range kept {
				if c.Start < k.End && k.Start < c.End {
					overlaps = true
					break
				}
			}
			if !overlaps {
				kept = append(kept, c)
			}
		}
		out = append(out, kept...)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		if out[i].End != out[j].End {
			return out[i].End > out[j].End
		}
		return out[i].Type < out[j].Type
	})
	return out
}
