package overrides

import (
	"fmt"
	"sort"

	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/domain"
)

// Severity of a validation issue. Errors block publishing, warnings are
// advisory.
type Severity string

// Issue severities.
const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warn"
)

// Stable issue codes for UI grouping.
const (
	CodeUnknownProgram = "unknown_program"
	CodeInvertedRange  = "inverted_range"
	CodeSectionOverlap = "section_overlap"
	CodeMuteRatio      = "mute_ratio"
	CodeBoostRange     = "boost_range"
	CodeStaleChunkRef  = "stale_chunk_ref"
	CodeChunkLength    = "chunk_length"
)

// muteRatioLimit is the advisory ceiling on the share of muted chunks.
const muteRatioLimit = 0.30

// Issue is one validation finding, reported for the operator to resolve.
// Issues are never auto-corrected.
type Issue struct {
	Code      string   `json:"code"`
	Severity  Severity `json:"severity"`
	Message   string   `json:"message"`
	ProgramID string   `json:"programId,omitempty"`
}

// HasErrors reports whether any issue is error-level.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate checks an override document against the canonical chunk set
// and program metadata.
func Validate(chunks []domain.Chunk, metas []domain.ProgramMeta, doc *domain.Overrides) []Issue {
	if doc == nil {
		return nil
	}

	known := make(map[string]bool, len(metas))
	for _, m := range metas {
		known[m.ID] = true
	}
	chunkAt := make(map[string]bool, len(chunks))
	for _, c := range chunks {
		chunkAt[domain.ChunkKey(c.ProgramID, c.Page)] = true
	}

	var issues []Issue
	issues = append(issues, validateSections(doc.Sections, known)...)
	issues = append(issues, validateMetaPatches(doc.ProgramMeta, known)...)
	issues = append(issues, validateChunkPatches(doc.Chunks, known, chunkAt, len(chunks))...)
	issues = append(issues, validateChunkLengths(chunks)...)
	return issues
}

func validateSections(sections []domain.SectionOverride, known map[string]bool) []Issue {
	var issues []Issue

	byProgram := make(map[string][]domain.SectionOverride)
	for _, s := range sections {
		if !known[s.ProgramID] {
			issues = append(issues, Issue{
				Code:      CodeUnknownProgram,
				Severity:  SeverityError,
				Message:   fmt.Sprintf("section override references unknown program %s", s.ProgramID),
				ProgramID: s.ProgramID,
			})
		}
		if s.PageStart > s.PageEnd {
			issues = append(issues, Issue{
				Code:      CodeInvertedRange,
				Severity:  SeverityError,
				Message:   fmt.Sprintf("section override %s has inverted page range %d-%d", s.ProgramID, s.PageStart, s.PageEnd),
				ProgramID: s.ProgramID,
			})
		}
		byProgram[s.ProgramID] = append(byProgram[s.ProgramID], s)
	}

	// Ranges for the same program must not overlap.
	for id, list := range byProgram {
		sort.Slice(list, func(i, j int) bool { return list[i].PageStart < list[j].PageStart })
		for i := 1; i < len(list); i++ {
			prev, cur := list[i-1], list[i]
			if cur.PageStart <= prev.PageEnd {
				issues = append(issues, Issue{
					Code:     CodeSectionOverlap,
					Severity: SeverityError,
					Message: fmt.Sprintf("section overrides for %s overlap: %d-%d and %d-%d",
						id, prev.PageStart, prev.PageEnd, cur.PageStart, cur.PageEnd),
					ProgramID: id,
				})
			}
		}
	}
	return issues
}

func validateMetaPatches(patches map[string]domain.MetaPatch, known map[string]bool) []Issue {
	var issues []Issue
	for _, id := range sortedKeys(patches) {
		p := patches[id]
		if !known[id] {
			issues = append(issues, Issue{
				Code:      CodeUnknownProgram,
				Severity:  SeverityError,
				Message:   fmt.Sprintf("meta override references unknown program %s", id),
				ProgramID: id,
			})
		}
		if p.Pages != nil && p.Pages.Start > p.Pages.End {
			issues = append(issues, Issue{
				Code:      CodeInvertedRange,
				Severity:  SeverityError,
				Message:   fmt.Sprintf("meta override %s has inverted page range %d-%d", id, p.Pages.Start, p.Pages.End),
				ProgramID: id,
			})
		}
	}
	return issues
}

func validateChunkPatches(
	patches map[string]domain.ChunkPatch,
	known map[string]bool,
	chunkAt map[string]bool,
	totalChunks int,
) []Issue {
	var issues []Issue
	muted := 0

	for _, key := range sortedKeys(patches) {
		p := patches[key]
		programID, _, err := domain.ParseChunkKey(key)
		if err != nil {
			issues = append(issues, Issue{
				Code:     CodeStaleChunkRef,
				Severity: SeverityError,
				Message:  fmt.Sprintf("chunk override key %q is malformed", key),
			})
			continue
		}
		if !known[programID] {
			issues = append(issues, Issue{
				Code:      CodeUnknownProgram,
				Severity:  SeverityError,
				Message:   fmt.Sprintf("chunk override %s references unknown program %s", key, programID),
				ProgramID: programID,
			})
		}
		if !chunkAt[key] {
			issues = append(issues, Issue{
				Code:      CodeStaleChunkRef,
				Severity:  SeverityWarn,
				Message:   fmt.Sprintf("chunk override %s targets no existing chunk", key),
				ProgramID: programID,
			})
		}
		if p.Boost != nil && (*p.Boost < -1 || *p.Boost > 1) {
			issues = append(issues, Issue{
				Code:      CodeBoostRange,
				Severity:  SeverityError,
				Message:   fmt.Sprintf("chunk override %s boost %.2f outside [-1, 1]", key, *p.Boost),
				ProgramID: programID,
			})
		}
		if p.Muted != nil && *p.Muted {
			muted++
		}
	}

	if totalChunks > 0 {
		if ratio := float64(muted) / float64(totalChunks); ratio > muteRatioLimit {
			issues = append(issues, Issue{
				Code:     CodeMuteRatio,
				Severity: SeverityWarn,
				Message: fmt.Sprintf("%.0f%% of chunks muted (limit %.0f%%)",
					ratio*100, muteRatioLimit*100),
			})
		}
	}
	return issues
}

func validateChunkLengths(chunks []domain.Chunk) []Issue {
	var issues []Issue
	for _, c := range chunks {
		if len(c.Text) >= domain.MinChunkLen && len(c.Text) <= domain.MaxChunkLen {
			continue
		}
		issues = append(issues, Issue{
			Code:      CodeChunkLength,
			Severity:  SeverityWarn,
			Message:   fmt.Sprintf("chunk %s text length %d outside %d-%d", c.ID, len(c.Text), domain.MinChunkLen, domain.MaxChunkLen),
			ProgramID: c.ProgramID,
		})
	}
	return issues
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
