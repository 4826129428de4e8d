package schema

import (
	"fmt"

	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/domain"
)

// ValidateStats returns human-readable defects in a stats record. An empty
// result means the record is usable; callers decide whether defects abort
// the load or only degrade it.
func ValidateStats(s domain.BuildStats) []string {
	var defects []string
	if s.BuildID == "" {
		defects = append(defects, "stats: missing build id")
	}
	if s.Chunks <= 0 {
		defects = append(defects, "stats: chunk count is zero")
	}
	if s.Pages < 0 || s.Programs < 0 || s.Chunks < 0 {
		defects = append(defects, "stats: negative count")
	}
	return defects
}

// ValidateMeta returns human-readable defects in the program metadata set.
func ValidateMeta(metas []domain.ProgramMeta) []string {
	var defects []string
	seen := make(map[string]bool, len(metas))
	for i, m := range metas {
		if m.ID == "" {
			defects = append(defects, fmt.Sprintf("meta[%d]: missing program id", i))
			continue
		}
		if seen[m.ID] {
			defects = append(defects, fmt.Sprintf("meta %s: duplicate program id", m.ID))
		}
		seen[m.ID] = true
		if m.Name == "" {
			defects = append(defects, fmt.Sprintf("meta %s: missing display name", m.ID))
		}
		if m.Pages.Start != nil && m.Pages.End != nil && *m.Pages.Start > *m.Pages.End {
			defects = append(defects, fmt.Sprintf("meta %s: inverted page range %d-%d",
				m.ID, *m.Pages.Start, *m.Pages.End))
		}
	}
	return defects
}

// ValidateChunks returns human-readable defects in the chunk set. When meta
// is non-nil, chunks whose program id does not resolve are reported as well;
// per the ingestion contract that is a warning, not a hard failure.
func ValidateChunks(chunks []domain.Chunk, metas []domain.ProgramMeta) []string {
	known := make(map[string]bool, len(metas))
	for _, m := range metas {
		known[m.ID] = true
	}

	var defects []string
	for i, c := range chunks {
		label := c.ID
		if label == "" {
			label = fmt.Sprintf("#%d", i)
			defects = append(defects, fmt.Sprintf("chunk %s: missing id", label))
		}
		if c.ProgramID == "" {
			defects = append(defects, fmt.Sprintf("chunk %s: missing program id", label))
		} else if metas != nil && !known[c.ProgramID] {
			defects = append(defects, fmt.Sprintf("chunk %s: program %s not in metadata", label, c.ProgramID))
		}
		if c.Page < 1 {
			defects = append(defects, fmt.Sprintf("chunk %s: page %d is not 1-based", label, c.Page))
		}
		if len(c.Text) < domain.MinChunkLen {
			defects = append(defects, fmt.Sprintf("chunk %s: text below %d chars", label, domain.MinChunkLen))
		} else if len(c.Text) > domain.MaxChunkLen {
			defects = append(defects, fmt.Sprintf("chunk %s: text above %d chars", label, domain.MaxChunkLen))
		}
		if c.NormText == "" {
			defects = append(defects, fmt.Sprintf("chunk %s: missing normalized text", label))
		}
		if c.EndChar < c.StartChar {
			defects = append(defects, fmt.Sprintf("chunk %s: inverted char offsets", label))
		}
	}
	return defects
}
