// Package vocab holds the static campus vocabulary: known buildings,
// departments, services, shortcut expansions, and the term-resolution table.
// It is consumed by the query normalizer and the entity extractor.
package vocab

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/retriever-labs/campusqa/internal/domain"
)

// Alias maps a spoken phrase to a canonical department code.
type Alias struct {
	Phrase string `yaml:"phrase"`
	Code   string `yaml:"code"`
}

// Gazetteer is the domain vocabulary. Slice order is significant: the
// normalizer breaks correction-distance ties by list order, first match wins.
type Gazetteer struct {
	Departments []string          `yaml:"departments"`
	Buildings   []string          `yaml:"buildings"`
	Services    []string          `yaml:"services"`
	CommonTerms []string          `yaml:"common_terms"`
	Shortcuts   map[string]string `yaml:"shortcuts"`
	DeptAliases []Alias           `yaml:"department_aliases"`
}

var deptCodeRe = regexp.MustCompile(`^[A-Z]{2,5}$`)

// Default returns the built-in campus gazetteer.
func Default() Gazetteer {
	return Gazetteer{
		Departments: []string{
			"AFST", "ANTH", "ART", "BIOL", "CHEM", "CMSC", "DATA", "ECON",
			"EDUC", "ENGL", "GWST", "HIST", "IS", "MATH", "ME", "PHYS",
			"POLI", "PSYC", "SOCY", "STAT",
		},
		Buildings: []string{
			"Engineering",
			"ITE",
			"Sherman Hall",
			"University Center",
			"Mathematics/Psychology",
			"Public Policy",
			"Sondheim Hall",
			"Library",
		},
		Services: []string{
			"financial aid",
			"registrar",
			"library",
			"career center",
			"dining",
			"transit",
			"commons",
		},
		CommonTerms: []string{
			"umbc", "sondheim", "sherman", "ite", "retriever", "registrar",
			"campus", "academic", "calendar", "deadlines", "deadline",
			"commons", "library", "engineering", "university", "center",
			"event", "events", "semester", "undergraduate", "graduate",
			"spring", "summer", "fall", "winter", "room", "building",
			"transit", "dining", "facilities", "schedule", "schedules",
			"class", "classes", "course", "courses", "section", "sections",
			"what", "where", "when", "there", "next", "this", "stream",
			"instructor", "professor", "department", "registration",
			"tomorrow", "today", "hours", "open", "close", "workshop",
			"seminar", "upcoming", "current", "time", "week", "add", "drop",
			"are", "you", "please", "office", "hall",
		},
		Shortcuts: map[string]string{
			"whr":      "where",
			"r":        "are",
			"u":        "you",
			"wen":      "when",
			"wut":      "what",
			"wat":      "what",
			"plz":      "please",
			"tmrw":     "tomorrow",
			"dept":     "department",
			"prof":     "professor",
			"sched":    "schedule",
			"calender": "calendar",
			"dline":    "deadline",
			"reg":      "registration",
		},
		DeptAliases: []Alias{
			{Phrase: "data stream", Code: "DATA"},
			{Phrase: "data science", Code: "DATA"},
			{Phrase: "data", Code: "DATA"},
			{Phrase: "computer science", Code: "CMSC"},
			{Phrase: "information systems", Code: "IS"},
			{Phrase: "mathematics", Code: "MATH"},
			{Phrase: "math", Code: "MATH"},
			{Phrase: "statistics", Code: "STAT"},
			{Phrase: "economics", Code: "ECON"},
			{Phrase: "econ", Code: "ECON"},
		},
	}
}

// Validate checks the gazetteer for malformed entries. A broken vocabulary is
// a deployment mistake and must fail at startup, not at query time.
func (g Gazetteer) Validate() error {
	for _, d := range g.Departments {
		if !deptCodeRe.MatchString(d) {
			return fmt.Errorf("%w: department code %q must be 2-5 uppercase letters",
				domain.ErrInvalidVocabulary, d)
		}
	}
	for _, b := range g.Buildings {
		if strings.TrimSpace(b) == "" {
			return fmt.Errorf("%w: empty building name", domain.ErrInvalidVocabulary)
		}
	}
	for _, s := range g.Services {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%w: empty service name", domain.ErrInvalidVocabulary)
		}
	}
	for short, full := range g.Shortcuts {
		if strings.TrimSpace(short) == "" || strings.TrimSpace(full) == "" {
			return fmt.Errorf("%w: shortcut %q -> %q", domain.ErrInvalidVocabulary, short, full)
		}
	}
	for _, a := range g.DeptAliases {
		if strings.TrimSpace(a.Phrase) == "" || !deptCodeRe.MatchString(a.Code) {
			return fmt.Errorf("%w: department alias %q -> %q",
				domain.ErrInvalidVocabulary, a.Phrase, a.Code)
		}
	}
	return nil
}

// CorrectionVocabulary returns the ordered word list the normalizer corrects
// against: common terms first, then lowered department codes, then the words
// of building and service names. Order is the documented tie-break order.
func (g Gazetteer) CorrectionVocabulary() []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(g.CommonTerms)+len(g.Departments))

	add := func(w string) {
		w = strings.ToLower(strings.TrimSpace(w))
		if len(w) < 2 || seen[w] {
			return
		}
		seen[w] = true
		out = append(out, w)
	}

	for _, t := range g.CommonTerms {
		add(t)
	}
	for _, d := range g.Departments {
		add(d)
	}
	for _, b := range g.Buildings {
		for _, w := range strings.FieldsFunc(b, func(r rune) bool { return r == ' ' || r == '/' }) {
			add(w)
		}
	}
	for _, s := range g.Services {
		for _, w := range strings.Fields(s) {
			add(w)
		}
	}
	return out
}

// IsDepartment reports whether code is a known department prefix.
func (g Gazetteer) IsDepartment(code string) bool {
	code = strings.ToUpper(code)
	for _, d := range g.Departments {
		if d == code {
			return true
		}
	}
	return false
}
