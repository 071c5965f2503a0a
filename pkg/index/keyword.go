package index

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/graphein/graphein/pkg/utils"
)

// BM25 parameters, the standard Robertson defaults.
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "for": {}, "from": {}, "has": {}, "he": {}, "in": {}, "is": {},
	"it": {}, "its": {}, "of": {}, "on": {}, "or": {}, "that": {}, "the": {},
	"to": {}, "was": {}, "were": {}, "will": {}, "with": {},
}

// Tokenize lowercases text and splits it into alphanumeric terms, dropping
// stopwords and single characters. Both indexing and querying use this, so
// the two sides always agree on term boundaries.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < 2 {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

type posting struct {
	doc int // index into ids
	tf  int
}

// KeywordSnapshot is an immutable inverted index scored with BM25.
type KeywordSnapshot struct {
	ids      []string
	postings map[string][]posting
	docLens  []int
	avgLen   float64
}

func buildKeywordSnapshot(staged map[string][]string) *KeywordSnapshot {
	ids := make([]string, 0, len(staged))
	for id := range staged {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	snap := &KeywordSnapshot{
		ids:      ids,
		postings: make(map[string][]posting),
		docLens:  make([]int, len(ids)),
	}
	totalLen := 0
	for i, id := range ids {
		tokens := staged[id]
		snap.docLens[i] = len(tokens)
		totalLen += len(tokens)

		counts := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			counts[tok]++
		}
		for term, tf := range counts {
			snap.postings[term] = append(snap.postings[term], posting{doc: i, tf: tf})
		}
	}
	if len(ids) > 0 {
		snap.avgLen = float64(totalLen) / float64(len(ids))
	}
	return snap
}

// Len reports the number of indexed documents.
func (s *KeywordSnapshot) Len() int {
	return len(s.ids)
}

// Search scores chunks against the query tokens with BM25 and returns the
// top k, ties broken by smaller chunk ID. An empty query returns an empty
// result, not an error.
func (s *KeywordSnapshot) Search(queryTokens []string, k int) []Hit {
	scores := s.scoreAll(queryTokens)
	if len(scores) == 0 || k <= 0 {
		return nil
	}
	scored := make([]utils.Scored[string], 0, len(scores))
	for id, score := range scores {
		scored = append(scored, utils.Scored[string]{Item: id, Score: score})
	}
	top := utils.TopK(scored, k, func(a, b utils.Scored[string]) bool {
		if a.Score != b.Score {
			return a.Score < b.Score
		}
		return a.Item > b.Item
	})
	hits := make([]Hit, len(top))
	for i, item := range top {
		hits[i] = Hit{ChunkID: item.Item, Score: item.Score}
	}
	return hits
}

// scoreAll returns the BM25 score of every chunk matching at least one
// query term.
func (s *KeywordSnapshot) scoreAll(queryTokens []string) map[string]float64 {
	if len(queryTokens) == 0 || len(s.ids) == 0 {
		return nil
	}
	n := float64(len(s.ids))
	scores := make(map[int]float64)
	for _, term := range queryTokens {
		plist, ok := s.postings[term]
		if !ok {
			continue
		}
		df := float64(len(plist))
		idf := math.Log(1 + (n-df+0.5)/(df+0.5))
		for _, p := range plist {
			tf := float64(p.tf)
			norm := tf * (bm25K1 + 1) / (tf + bm25K1*(1-bm25B+bm25B*float64(s.docLens[p.doc])/s.avgLen))
			scores[p.doc] += idf * norm
		}
	}
	if len(scores) == 0 {
		return nil
	}
	out := make(map[string]float64, len(scores))
	for doc, score := range scores {
		out[s.ids[doc]] = score
	}
	return out
}
