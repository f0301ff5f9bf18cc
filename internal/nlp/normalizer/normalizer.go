// Package normalizer corrects spelling and phrasing noise in raw queries
// before any downstream analysis.
package normalizer

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/agnivade/levenshtein"

	"github.com/retriever-labs/campusqa/internal/domain/document"
	"github.com/retriever-labs/campusqa/internal/domain/query"
	"github.com/retriever-labs/campusqa/internal/vocab"
)

const defaultMaxEditDistance = 2

// shortTokenLen is the length at or below which only distance-1 corrections
// are accepted, to avoid mangling short tokens.
const shortTokenLen = 4

var (
	courseCodeRe = regexp.MustCompile(`\b([a-z]{2,5})\s*-?\s*(\d{3}[a-z]?)\b`)
	learnTokenRe = regexp.MustCompile(`[a-z]{3,}`)
)

// stopwords are frequent query words never considered for correction.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "of": true,
	"to": true, "for": true, "in": true, "on": true, "at": true, "by": true,
	"from": true, "with": true, "about": true, "into": true, "over": true,
	"is": true, "are": true, "was": true, "were": true, "be": true,
	"do": true, "does": true, "did": true, "can": true, "could": true,
	"will": true, "would": true, "should": true, "have": true, "has": true,
	"had": true, "i": true, "me": true, "my": true, "we": true, "our": true,
	"you": true, "your": true, "it": true, "its": true, "any": true,
	"some": true, "all": true, "not": true, "no": true, "yes": true,
	"how": true, "why": true, "who": true, "which": true, "want": true,
	"need": true, "know": true, "find": true, "show": true, "tell": true,
	"list": true, "give": true, "get": true, "help": true,
}

// Normalizer lowercases, strips punctuation noise, expands shortcuts and
// applies bounded edit-distance correction against the campus vocabulary.
// Safe for concurrent use; LearnFromDocuments may run alongside Normalize.
type Normalizer struct {
	gaz     vocab.Gazetteer
	maxDist int

	mu        sync.RWMutex
	wordList  []string        // ordered correction candidates; order is the tie-break
	known     map[string]bool // words never corrected
	deptLower map[string]bool
}

// New creates a Normalizer over the gazetteer. maxDist <= 0 selects the
// default threshold of 2.
func New(g vocab.Gazetteer, maxDist int) *Normalizer {
	if maxDist <= 0 {
		maxDist = defaultMaxEditDistance
	}

	words := g.CorrectionVocabulary()
	known := make(map[string]bool, len(words)+len(g.Shortcuts))
	for _, w := range words {
		known[w] = true
	}
	for _, full := range g.Shortcuts {
		known[strings.ToLower(full)] = true
	}

	deptLower := make(map[string]bool, len(g.Departments))
	for _, d := range g.Departments {
		deptLower[strings.ToLower(d)] = true
	}

	return &Normalizer{
		gaz:       g,
		maxDist:   maxDist,
		wordList:  words,
		known:     known,
		deptLower: deptLower,
	}
}

// LearnFromDocuments extends the known vocabulary with words occurring in the
// indexed corpus, so in-corpus terms are never "corrected" away. New words are
// appended after the built-in vocabulary, preserving the tie-break order.
func (n *Normalizer) LearnFromDocuments(docs []document.Document) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, doc := range docs {
		for _, blob := range []string{doc.Title, doc.Text} {
			for _, token := range learnTokenRe.FindAllString(strings.ToLower(blob), -1) {
				if !n.known[token] {
					n.known[token] = true
					n.wordList = append(n.wordList, token)
				}
			}
		}
	}
}

// Normalize cleans and corrects a raw query. It never fails: empty,
// punctuation-only and non-ASCII input produce a best-effort result.
// Normalizing an already-normalized string yields the same string.
func (n *Normalizer) Normalize(raw string) query.NormalizedQuery {
	original := strings.Join(strings.Fields(raw), " ")

	cleaned := stripNoise(strings.ToLower(original))
	cleaned = n.canonicalizeCourseCodes(cleaned)

	n.mu.RLock()
	defer n.mu.RUnlock()

	var out []string
	var changes []query.Correction

	for _, token := range strings.Fields(cleaned) {
		replacement, changed := n.correctToken(token)
		out = append(out, replacement)
		if changed {
			changes = append(changes, query.Correction{From: token, To: replacement})
		}
	}

	corrected := n.canonicalizeCourseCodes(strings.Join(out, " "))

	return query.NormalizedQuery{
		Original:  original,
		Corrected: corrected,
		Applied:   len(changes) > 0,
		Changes:   changes,
	}
}

// correctToken returns the corrected form of one token.
func (n *Normalizer) correctToken(token string) (string, bool) {
	if full, ok := n.gaz.Shortcuts[token]; ok {
		return full, full != token
	}
	if len(token) <= 2 || hasDigit(token) || stopwords[token] {
		return token, false
	}
	if n.known[token] || n.deptLower[token] {
		return token, false
	}

	limit := n.maxDist
	if len([]rune(token)) <= shortTokenLen && limit > 1 {
		limit = 1
	}

	best := ""
	bestDist := limit + 1
	for _, candidate := range n.wordList {
		// Strictly smaller distance wins, so the first candidate in
		// vocabulary order takes any tie.
		if d := levenshtein.ComputeDistance(token, candidate); d < bestDist {
			best, bestDist = candidate, d
			if d == 1 {
				break
			}
		}
	}
	if best == "" || best == token {
		return token, false
	}
	return best, true
}

// canonicalizeCourseCodes rewrites "data601" / "data-601" / "data 601" with a
// known department prefix into the canonical "data 601" spacing.
func (n *Normalizer) canonicalizeCourseCodes(text string) string {
	return courseCodeRe.ReplaceAllStringFunc(text, func(m string) string {
		parts := courseCodeRe.FindStringSubmatch(m)
		if !n.gaz.IsDepartment(parts[1]) {
			return m
		}
		return fmt.Sprintf("%s %s", parts[1], parts[2])
	})
}

// stripNoise drops punctuation while keeping characters meaningful to entity
// extraction: letters, digits, hyphens and in-word apostrophes.
func stripNoise(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '\'':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func hasDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
