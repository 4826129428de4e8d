package docstore

import (
	"math"
	"strings"

	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/domain"
)

// BM25 parameters. The IDF is deliberately corpus-independent: there is no
// global document-frequency table, only per-chunk term frequency, which
// keeps the score reproducible for a single-document corpus.
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// Flat score adjustments layered on top of the BM25 term scores.
const (
	bonusExactSubstring = 2.0
	bonusFuzzyOnly      = 1.0
	bonusProgramName    = 3.0
	bonusSection        = 1.0
	penaltySuspended    = 2.0
	penaltyRemoved      = 10.0
)

// fuzzyMinTokenLen guards fuzzy matching: tokens shorter than this never
// fuzzy-match, avoiding false positives on short words.
const (
	fuzzyMinTokenLen = 6
	fuzzyMaxDistance = 2
)

// scoreChunk computes the relevance of one chunk for the query tokens.
// Scores are clamped to zero; callers drop zero-score chunks.
func scoreChunk(c *indexedChunk, tokens []string, avgdl float64) float64 {
	var score float64
	nameHit := false

	for _, token := range tokens {
		score += bm25Term(c, token, avgdl)

		if strings.Contains(c.NormText, token) {
			score += bonusExactSubstring
		} else if fuzzyMatches(token, c.words) {
			score += bonusFuzzyOnly
		}

		if !nameHit && c.normName != "" && strings.Contains(c.normName, token) {
			nameHit = true
		}
	}

	if nameHit {
		score += bonusProgramName
	}
	if domain.ImportantSections[c.Section] {
		score += bonusSection
	}

	switch c.Status {
	case domain.StatusSuspended:
		score -= penaltySuspended
	case domain.StatusRemoved:
		// Strong but not absolute demotion: a removed program can still
		// surface for disambiguation.
		score -= penaltyRemoved
	}

	// Operator boost from a chunk override, in [-1, 1].
	if c.Boost != 0 {
		score *= 1 + c.Boost
	}

	if score < 0 {
		return 0
	}
	return score
}

// bm25Term scores one query token against the chunk's term frequencies.
func bm25Term(c *indexedChunk, token string, avgdl float64) float64 {
	tf := float64(c.termFreq[token])
	if tf == 0 {
		return 0
	}
	idf := math.Log(1 + 1/tf)
	dl := float64(len(c.words))
	norm := 1 - bm25B
	if avgdl > 0 {
		norm = 1 - bm25B + bm25B*dl/avgdl
	}
	return idf * (tf * (bm25K1 + 1)) / (tf + bm25K1*norm)
}

// fuzzyMatches reports whether the token is within edit distance 2 of some
// whitespace-delimited word of the chunk. Only tokens of length >= 6
// qualify.
func fuzzyMatches(token string, words []string) bool {
	if len([]rune(token)) < fuzzyMinTokenLen {
		return false
	}
	for _, w := range words {
		if levenshtein(token, w, fuzzyMaxDistance) <= fuzzyMaxDistance {
			return true
		}
	}
	return false
}

// levenshtein computes the edit distance between a and b with unit-cost
// insert/delete/substitute, using the standard two-row dynamic program.
// Returns maxDist+1 early when the length difference alone exceeds maxDist.
func levenshtein(a, b string, maxDist int) int {
	ra, rb := []rune(a), []rune(b)
	if diff := len(ra) - len(rb); diff > maxDist || -diff > maxDist {
		return maxDist + 1
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(
				prev[j]+1,      // delete
				curr[j-1]+1,    // insert
				prev[j-1]+cost, // substitute
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
