package domain

import "fmt"

// BuildStats describes one ingestion run of the brochure. BuildID is the
// cache-invalidation key for the chunk payload.
type BuildStats struct {
	BuildID       string         `json:"buildId"`
	BuiltAt       string         `json:"builtAt"`
	Pages         int            `json:"pages"`
	Programs      int            `json:"programs"`
	Chunks        int            `json:"chunks"`
	SectionCounts map[string]int `json:"sectionCounts,omitempty"`
}

// EnsureBuildID synthesizes a deterministic build id from the counts when
// the ingestion output carries none, so caching still works across builds
// with identical shape.
func (s *BuildStats) EnsureBuildID() {
	if s.BuildID != "" {
		return
	}
	s.BuildID = fmt.Sprintf("synthetic-p%d-m%d-c%d", s.Pages, s.Programs, s.Chunks)
}
