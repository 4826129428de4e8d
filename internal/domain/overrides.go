package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// OverridesVersion is the only override document version this service
// understands. Import rejects anything else.
const OverridesVersion = 1

// PageSpan is a bounded [Start, End] page interval used by overrides,
// where both ends are always explicit.
type PageSpan struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// SectionOverride relabels the section of every chunk of a program inside
// a page span. Spans for the same program must not overlap.
type SectionOverride struct {
	ProgramID string `json:"programId"`
	PageStart int    `json:"pageStart"`
	PageEnd   int    `json:"pageEnd"`
	Title     string `json:"title"`
}

// MetaPatch is a partial correction of one program's metadata. Nil fields
// are left untouched by the merge.
type MetaPatch struct {
	Pages  *PageSpan    `json:"pages,omitempty"`
	Status *ChunkStatus `json:"status,omitempty"`
	Stand  *string      `json:"stand,omitempty"`
}

// ChunkPatch corrects chunks at (programID, page) granularity. The chunk
// text itself is never edited; the source document stays authoritative.
// Boost must lie in [-1, 1].
type ChunkPatch struct {
	Section *string  `json:"section,omitempty"`
	Muted   *bool    `json:"muted,omitempty"`
	Boost   *float64 `json:"boost,omitempty"`
}

// Overrides is the versioned operator correction document, layered on top
// of the immutable ingested data. It is exchanged as a single JSON file.
type Overrides struct {
	Version     int                   `json:"version"`
	Sections    []SectionOverride     `json:"sections,omitempty"`
	ProgramMeta map[string]MetaPatch  `json:"programMeta,omitempty"`
	Chunks      map[string]ChunkPatch `json:"chunks,omitempty"`
	Synonyms    map[string][]string   `json:"synonyms,omitempty"`
}

// NewOverrides returns an empty override document at the current version.
func NewOverrides() *Overrides {
	return &Overrides{Version: OverridesVersion}
}

// IsEmpty reports whether the document carries no corrections at all.
func (o *Overrides) IsEmpty() bool {
	return len(o.Sections) == 0 && len(o.ProgramMeta) == 0 &&
		len(o.Chunks) == 0 && len(o.Synonyms) == 0
}

// ChunkKey builds the map key for a chunk override.
func ChunkKey(programID string, page int) string {
	return programID + ":" + strconv.Itoa(page)
}

// ParseChunkKey splits a chunk override key back into program id and page.
func ParseChunkKey(key string) (programID string, page int, err error) {
	idx := strings.LastIndex(key, ":")
	if idx <= 0 || idx == len(key)-1 {
		return "", 0, fmt.Errorf("malformed chunk override key %q", key)
	}
	page, err = strconv.Atoi(key[idx+1:])
	if err != nil {
		return "", 0, fmt.Errorf("malformed chunk override key %q: %w", key, err)
	}
	return key[:idx], page, nil
}

// MergeStrategy distinguishes how an override collection merges onto base
// data. Chunk overrides never create chunks; meta and section overrides
// for an unknown key append a new entry.
type MergeStrategy int

const (
	// MergePatchOnly patches existing entries and drops overrides that
	// match nothing.
	MergePatchOnly MergeStrategy = iota
	// MergePatchOrInsert patches existing entries and appends unknown ones.
	MergePatchOrInsert
)
