package vocab

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// termRe matches an explicit term expression, e.g. "Fall 2026".
var termRe = regexp.MustCompile(`(?i)\b(spring|summer|fall|winter)\s+(20\d{2})\b`)

// seasonOrder ranks seasons within a year for term comparison.
var seasonOrder = map[string]int{
	"winter": 1,
	"spring": 2,
	"summer": 3,
	"fall":   4,
}

// relativeNext and relativeCurrent list the phrasings resolved through the
// term table rather than an explicit season+year.
var (
	relativeNext    = []string{"upcoming semester", "next semester", "next term", "upcoming term"}
	relativeCurrent = []string{"current semester", "this semester", "current term", "this term"}
)

// TermTable resolves term expressions against the set of terms actually
// present in the class catalog. The clock is injected so resolution is
// deterministic under test.
type TermTable struct {
	known []string
	now   func() time.Time
}

// NewTermTable creates a term table over the known catalog terms.
// A nil clock means time.Now.
func NewTermTable(known []string, clock func() time.Time) TermTable {
	if clock == nil {
		clock = time.Now
	}
	sorted := make([]string, 0, len(known))
	for _, t := range known {
		if TermKey(t) > 0 {
			sorted = append(sorted, t)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return TermKey(sorted[i]) < TermKey(sorted[j]) })
	return TermTable{known: sorted, now: clock}
}

// Known returns the catalog terms in chronological order.
func (t TermTable) Known() []string { return t.known }

// Canonical normalizes an explicit term expression to "Season YYYY" form.
// Returns false if text contains no term expression.
func Canonical(text string) (string, bool) {
	m := termRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	season := strings.ToLower(m[1])
	return strings.ToUpper(season[:1]) + season[1:] + " " + m[2], true
}

// Resolve maps a term expression (explicit or relative) to a canonical term.
// Relative expressions resolve through the catalog terms; with an empty
// catalog they resolve to nothing.
func (t TermTable) Resolve(expr string) (string, bool) {
	if term, ok := Canonical(expr); ok {
		return term, true
	}
	lowered := strings.ToLower(expr)
	for _, phrase := range relativeNext {
		if strings.Contains(lowered, phrase) {
			return t.Upcoming()
		}
	}
	for _, phrase := range relativeCurrent {
		if strings.Contains(lowered, phrase) {
			if term, ok := t.Current(); ok {
				return term, true
			}
			return t.Upcoming()
		}
	}
	return "", false
}

// RelativeSpan finds the first relative term phrase in text, returning the
// phrase and its offsets. Used by the entity extractor.
func RelativeSpan(text string) (phrase string, start, end int, ok bool) {
	lowered := strings.ToLower(text)
	for _, p := range append(append([]string{}, relativeNext...), relativeCurrent...) {
		if idx := strings.Index(lowered, p); idx >= 0 {
			return p, idx, idx + len(p), true
		}
	}
	return "", 0, 0, false
}

// Upcoming returns the first catalog term strictly after the current term,
// falling back to the current-or-later term, then to the earliest known.
func (t TermTable) Upcoming() (string, bool) {
	if len(t.known) == 0 {
		return "", false
	}
	currentKey := currentTermKey(t.now())
	for _, term := range t.known {
		if TermKey(term) > currentKey {
			return term, true
		}
	}
	for _, term := range t.known {
		if TermKey(term) >= currentKey {
			return term, true
		}
	}
	return t.known[0], true
}

// Current returns the known term closest to now.
func (t TermTable) Current() (string, bool) {
	if len(t.known) == 0 {
		return "", false
	}
	currentKey := currentTermKey(t.now())
	best := t.known[0]
	bestDist := absInt(TermKey(best) - currentKey)
	for _, term := range t.known[1:] {
		if d := absInt(TermKey(term) - currentKey); d < bestDist {
			best, bestDist = term, d
		}
	}
	return best, true
}

// TermKey orders terms chronologically: year*10 + season rank.
// Unparseable terms return 0; NewTermTable discards them.
func TermKey(term string) int {
	m := termRe.FindStringSubmatch(term)
	if m == nil {
		return 0
	}
	var year int
	_, _ = fmt.Sscanf(m[2], "%d", &year)
	return year*10 + seasonOrder[strings.ToLower(m[1])]
}

func currentTermKey(now time.Time) int {
	year := now.Year()
	var season string
	switch now.Month() {
	case time.January:
		season = "winter"
	case time.February, time.March, time.April, time.May:
		season = "spring"
	case time.June, time.July, time.August:
		season = "summer"
	default:
		season = "fall"
	}
	return year*10 + seasonOrder[season]
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
