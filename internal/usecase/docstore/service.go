// Package docstore holds the canonical chunk set in memory and answers
// ranked free-text queries and program/section-filtered lookups. The index
// is rebuilt wholesale per load; a query sees either the old or the new
// fully-built index, never a partial one.
package docstore

import (
	"sort"
	"strings"
	"sync"

	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/domain"
)

// Filter restricts a search to one program and/or section. Empty fields
// match everything.
type Filter struct {
	ProgramID string
	Section   string
}

// Stats describes the currently loaded index.
type Stats struct {
	Build    domain.BuildStats
	Chunks   int
	Programs int
}

// index is one immutable snapshot of the chunk set plus the per-chunk
// token statistics the ranking needs.
type index struct {
	chunks   []indexedChunk
	build    domain.BuildStats
	programs int
	avgdl    float64
	synonyms map[string][]string
}

type indexedChunk struct {
	domain.Chunk
	words    []string
	termFreq map[string]int
	normName string
}

// Store is the in-memory document store.
type Store struct {
	mu  sync.RWMutex
	idx *index
}

// New creates an empty store.
func New() *Store {
	return &Store{idx: &index{}}
}

// Load replaces the entire index with the given chunk set. There is no
// incremental update; the store is rebuilt wholesale per session.
func (s *Store) Load(chunks []domain.Chunk, build domain.BuildStats) {
	idx := &index{
		chunks:   make([]indexedChunk, 0, len(chunks)),
		build:    build,
		synonyms: s.currentSynonyms(),
	}

	programs := make(map[string]bool)
	totalLen := 0
	for _, c := range chunks {
		words := strings.Fields(c.NormText)
		tf := make(map[string]int, len(words))
		for _, w := range words {
			tf[w]++
		}
		idx.chunks = append(idx.chunks, indexedChunk{
			Chunk:    c,
			words:    words,
			termFreq: tf,
			normName: domain.NormalizeText(c.ProgramName),
		})
		programs[c.ProgramID] = true
		totalLen += len(words)
	}
	idx.programs = len(programs)
	if len(idx.chunks) > 0 {
		idx.avgdl = float64(totalLen) / float64(len(idx.chunks))
	}

	s.mu.Lock()
	s.idx = idx
	s.mu.Unlock()
}

// SetSynonyms replaces the query-expansion table. Takes effect for
// subsequent searches without reloading the chunk set.
func (s *Store) SetSynonyms(synonyms map[string][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Copy-on-write: clone the snapshot so in-flight queries keep theirs.
	next := *s.idx
	next.synonyms = normalizeSynonyms(synonyms)
	s.idx = &next
}

func (s *Store) currentSynonyms() map[string][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.idx == nil {
		return nil
	}
	return s.idx.synonyms
}

func (s *Store) snapshot() *index {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idx
}

// Search returns up to k citations ranked by relevance. An empty token set
// yields an empty result, never "match everything". Ties keep input order.
func (s *Store) Search(query string, k int, f Filter) []domain.Citation {
	idx := s.snapshot()

	tokens := tokenize(query, idx.synonyms)
	if len(tokens) == 0 || k <= 0 {
		return nil
	}

	type hit struct {
		chunk *indexedChunk
		score float64
	}
	var hits []hit
	for i := range idx.chunks {
		c := &idx.chunks[i]
		if f.ProgramID != "" && c.ProgramID != f.ProgramID {
			continue
		}
		if f.Section != "" && c.Section != f.Section {
			continue
		}
		score := scoreChunk(c, tokens, idx.avgdl)
		if score <= 0 {
			continue
		}
		hits = append(hits, hit{chunk: c, score: score})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if len(hits) > k {
		hits = hits[:k]
	}

	citations := make([]domain.Citation, len(hits))
	for i, h := range hits {
		citations[i] = domain.Citation{
			Text:        h.chunk.Text,
			ProgramID:   h.chunk.ProgramID,
			ProgramName: h.chunk.ProgramName,
			Page:        h.chunk.Page,
			Stand:       h.chunk.Stand,
			Section:     h.chunk.Section,
			Score:       h.score,
			Status:      h.chunk.Status,
		}
	}
	return citations
}

// ChunksForProgram returns the program's chunks sorted by page ascending,
// optionally restricted to one section.
func (s *Store) ChunksForProgram(programID, section string) []domain.Chunk {
	idx := s.snapshot()

	var out []domain.Chunk
	for i := range idx.chunks {
		c := &idx.chunks[i]
		if c.ProgramID != programID {
			continue
		}
		if section != "" && c.Section != section {
			continue
		}
		out = append(out, c.Chunk)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Page < out[j].Page })
	return out
}

// Stats returns counts for the loaded index.
func (s *Store) Stats() Stats {
	idx := s.snapshot()
	return Stats{Build: idx.build, Chunks: len(idx.chunks), Programs: idx.programs}
}

// tokenize normalizes the query, splits on whitespace, drops tokens
// shorter than two characters, and expands each surviving token through
// the synonym table. Expanded tokens score like original ones.
func tokenize(query string, synonyms map[string][]string) []string {
	fields := strings.Fields(domain.NormalizeText(query))
	var tokens []string
	seen := make(map[string]bool)
	add := func(t string) {
		if len([]rune(t)) < 2 || seen[t] {
			return
		}
		seen[t] = true
		tokens = append(tokens, t)
	}
	for _, t := range fields {
		add(t)
		for _, syn := range synonyms[t] {
			add(syn)
		}
	}
	return tokens
}

func normalizeSynonyms(raw map[string][]string) map[string][]string {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string][]string, len(raw))
	for k, vals := range raw {
		nk := domain.NormalizeText(k)
		for _, v := range vals {
			out[nk] = append(out[nk], domain.NormalizeText(v))
		}
	}
	return out
}
