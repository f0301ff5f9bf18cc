package index

import (
	"context"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/retriever-labs/campusqa/internal/domain/document"
	"github.com/retriever-labs/campusqa/internal/domain/query"
)

// sparseBackend builds a TF-IDF index over unigrams and bigrams. It needs no
// external provider and is the fallback when embeddings are unavailable.
type sparseBackend struct{}

func newSparseBackend() *sparseBackend { return &sparseBackend{} }

func (b *sparseBackend) Name() string { return "sparse" }

func (b *sparseBackend) Build(_ context.Context, docs []document.Document) (searcher, error) {
	s := &sparseSearcher{
		docs: docs,
		idf:  make(map[string]float64),
	}

	termCounts := make([]map[string]float64, len(docs))
	df := make(map[string]int)
	for i, doc := range docs {
		counts := make(map[string]float64)
		for _, term := range tokenize(doc.Title + " " + doc.Text) {
			counts[term]++
		}
		termCounts[i] = counts
		for term := range counts {
			df[term]++
		}
	}

	// Smoothed idf keeps unseen terms finite and every seen term positive.
	n := float64(len(docs))
	for term, count := range df {
		s.idf[term] = math.Log((1+n)/(1+float64(count))) + 1
	}

	s.vectors = make([]map[string]float64, len(docs))
	for i, counts := range termCounts {
		vec := make(map[string]float64, len(counts))
		for term, tf := range counts {
			vec[term] = tf * s.idf[term]
		}
		normalize(vec)
		s.vectors[i] = vec
	}

	return s, nil
}

type sparseSearcher struct {
	docs    []document.Document
	vectors []map[string]float64
	idf     map[string]float64
}

func (s *sparseSearcher) Search(_ context.Context, queryText string, topK int) ([]query.ScoredDocument, error) {
	if len(s.docs) == 0 || topK <= 0 {
		return nil, nil
	}

	qvec := make(map[string]float64)
	for _, term := range tokenize(queryText) {
		if idf, ok := s.idf[term]; ok {
			qvec[term] += idf
		}
	}
	normalize(qvec)

	scored := make([]query.ScoredDocument, 0, len(s.docs))
	for i, vec := range s.vectors {
		scored = append(scored, query.ScoredDocument{
			Document: s.docs[i],
			Score:    dotSparse(qvec, vec),
		})
	}

	// Stable sort preserves corpus insertion order among equal scores.
	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].Score > scored[b].Score
	})

	if topK < len(scored) {
		scored = scored[:topK]
	}
	return scored, nil
}

// stopwords are dropped before weighting; they carry no relevance signal and
// would otherwise dominate the bigram vocabulary.
var stopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(
		"a an and are as at be been but by did do does for from had has have " +
			"he her his how i if in into is it its me my not of on or our she so " +
			"than that the their them then there these they this to was we were " +
			"what when where which who why will with would you your",
	) {
		stopwords[w] = struct{}{}
	}
}

// tokenize lowercases, splits on non-alphanumeric runes, and drops stopwords,
// then appends bigrams over the surviving words so short phrases like
// "add drop" stay distinctive.
func tokenize(text string) []string {
	raw := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	words := raw[:0]
	for _, w := range raw {
		if _, skip := stopwords[w]; !skip {
			words = append(words, w)
		}
	}
	terms := make([]string, 0, len(words)*2)
	terms = append(terms, words...)
	for i := 0; i+1 < len(words); i++ {
		terms = append(terms, words[i]+" "+words[i+1])
	}
	return terms
}

func normalize(vec map[string]float64) {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for term, v := range vec {
		vec[term] = v / norm
	}
}

// dotSparse iterates the query side, which is almost always the smaller map.
func dotSparse(qvec, dvec map[string]float64) float64 {
	var sum float64
	for term, qv := range qvec {
		if dv, ok := dvec[term]; ok {
			sum += qv * dv
		}
	}
	return sum
}
