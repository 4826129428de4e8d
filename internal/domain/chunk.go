package domain

// ChunkStatus is the lifecycle state of a funding program at ingestion time.
type ChunkStatus string

// Known program lifecycle states.
const (
	StatusActive    ChunkStatus = "active"
	StatusSuspended ChunkStatus = "suspended"
	StatusEnding    ChunkStatus = "ending"
	StatusRemoved   ChunkStatus = "removed"
)

// IsValid reports whether the status is one of the known lifecycle states.
func (s ChunkStatus) IsValid() bool {
	switch s {
	case StatusActive, StatusSuspended, StatusEnding, StatusRemoved:
		return true
	}
	return false
}

// Chunk is a page-scoped slice of the source brochure with program and
// section attribution. Chunks are immutable once ingested; override
// application produces derived copies and never mutates the canonical set.
type Chunk struct {
	ID          string      `json:"id"`
	Text        string      `json:"text"`
	NormText    string      `json:"normText"`
	ProgramID   string      `json:"programId"`
	ProgramName string      `json:"programName"`
	Page        int         `json:"page"` // 1-based
	Section     string      `json:"section"`
	Stand       string      `json:"stand"`
	Status      ChunkStatus `json:"status"`
	StartChar   int         `json:"startChar"`
	EndChar     int         `json:"endChar"` // exclusive

	// Boost is an operator ranking correction in [-1, 1]. Zero on every
	// canonical chunk; only override application sets it on derived copies.
	Boost float64 `json:"boost,omitempty"`
}

// Sane length band for chunk text. Shorter chunks carry no usable context,
// longer ones are not focused enough to cite.
const (
	MinChunkLen = 20
	MaxChunkLen = 4000
)
