// Package overrides merges operator corrections onto the base dataset,
// validates them for internal consistency, and handles the exchange
// format. Merging never mutates its inputs; it returns derived copies.
package overrides

import (
	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/domain"
)

// MergeMeta layers program-meta patches onto the base metadata
// (patch-or-insert): a patch for a known program id updates its fields, a
// patch for an unknown id appends a new entry.
func MergeMeta(base []domain.ProgramMeta, doc *domain.Overrides) []domain.ProgramMeta {
	if doc == nil || len(doc.ProgramMeta) == 0 {
		return base
	}

	merged := make([]domain.ProgramMeta, len(base))
	copy(merged, base)
	index := make(map[string]int, len(merged))
	for i, m := range merged {
		index[m.ID] = i
	}

	for id, patch := range doc.ProgramMeta {
		if i, ok := index[id]; ok {
			merged[i] = patchMeta(merged[i], patch)
			continue
		}
		entry := patchMeta(domain.ProgramMeta{ID: id, Status: domain.StatusActive}, patch)
		index[id] = len(merged)
		merged = append(merged, entry)
	}
	return merged
}

func patchMeta(m domain.ProgramMeta, p domain.MetaPatch) domain.ProgramMeta {
	if p.Pages != nil {
		start, end := p.Pages.Start, p.Pages.End
		m.Pages = domain.PageRange{Start: &start, End: &end}
	}
	if p.Status != nil {
		m.Status = *p.Status
	}
	if p.Stand != nil {
		m.Stand = *p.Stand
	}
	return m
}

// MergeSections layers incoming section overrides onto base ones
// (patch-or-insert), keyed by (programID, pageStart, pageEnd).
func MergeSections(base, incoming []domain.SectionOverride) []domain.SectionOverride {
	if len(incoming) == 0 {
		return base
	}

	type key struct {
		id         string
		start, end int
	}
	merged := make([]domain.SectionOverride, len(base))
	copy(merged, base)
	index := make(map[key]int, len(merged))
	for i, s := range merged {
		index[key{s.ProgramID, s.PageStart, s.PageEnd}] = i
	}

	for _, s := range incoming {
		k := key{s.ProgramID, s.PageStart, s.PageEnd}
		if i, ok := index[k]; ok {
			merged[i].Title = s.Title
			continue
		}
		index[k] = len(merged)
		merged = append(merged, s)
	}
	return merged
}

// ApplySectionOverrides relabels the section of every chunk falling inside
// an override's page span for its program. Chunk-level section patches
// (finer granularity) are applied afterwards by ApplyChunkOverrides and win.
func ApplySectionOverrides(chunks []domain.Chunk, doc *domain.Overrides) []domain.Chunk {
	if doc == nil || len(doc.Sections) == 0 {
		return chunks
	}
	out := make([]domain.Chunk, len(chunks))
	copy(out, chunks)
	for i := range out {
		for _, s := range doc.Sections {
			if out[i].ProgramID == s.ProgramID &&
				out[i].Page >= s.PageStart && out[i].Page <= s.PageEnd {
				out[i].Section = s.Title
			}
		}
	}
	return out
}

// ApplyChunkOverrides patches existing chunks by (programID, page) and
// then filters out every chunk whose merged muted flag is true. It never
// appends a synthetic chunk (patch-only), and it is idempotent: applying
// the same overrides to an already-patched-and-filtered set changes
// nothing further.
func ApplyChunkOverrides(chunks []domain.Chunk, doc *domain.Overrides) []domain.Chunk {
	if doc == nil || len(doc.Chunks) == 0 {
		return chunks
	}

	out := make([]domain.Chunk, 0, len(chunks))
	for _, c := range chunks {
		patch, ok := doc.Chunks[domain.ChunkKey(c.ProgramID, c.Page)]
		if !ok {
			out = append(out, c)
			continue
		}
		if patch.Muted != nil && *patch.Muted {
			continue
		}
		if patch.Section != nil {
			c.Section = *patch.Section
		}
		if patch.Boost != nil {
			c.Boost = *patch.Boost
		}
		out = append(out, c)
	}
	return out
}

// SyncChunksWithMeta copies merged program status, stand, and display name
// back onto each chunk, so meta-level corrections reach the ranking
// penalties without touching chunk text.
func SyncChunksWithMeta(chunks []domain.Chunk, metas []domain.ProgramMeta) []domain.Chunk {
	if len(metas) == 0 {
		return chunks
	}
	byID := make(map[string]domain.ProgramMeta, len(metas))
	for _, m := range metas {
		byID[m.ID] = m
	}

	out := make([]domain.Chunk, len(chunks))
	copy(out, chunks)
	for i := range out {
		m, ok := byID[out[i].ProgramID]
		if !ok {
			continue
		}
		if m.Status.IsValid() {
			out[i].Status = m.Status
		}
		if m.Stand != "" {
			out[i].Stand = m.Stand
		}
		if m.Name != "" {
			out[i].ProgramName = m.Name
		}
	}
	return out
}
