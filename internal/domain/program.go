package domain

// PageRange is a possibly unbounded [Start, End] page interval.
// A nil bound means no restriction on that side.
type PageRange struct {
	Start *int `json:"start"`
	End   *int `json:"end"`
}

// Contains reports whether page falls inside the range, treating nil
// bounds as unrestricted.
func (r PageRange) Contains(page int) bool {
	if r.Start != nil && page < *r.Start {
		return false
	}
	if r.End != nil && page > *r.End {
		return false
	}
	return true
}

// SectionInfo describes one named section of a program: its page range
// within the brochure and the keywords associated with it.
type SectionInfo struct {
	Pages    PageRange `json:"pages"`
	Keywords []string  `json:"keywords,omitempty"`
}

// ProgramMeta is one row of program metadata, created at ingestion time
// from the brochure structure. Read-only at runtime except through overrides.
type ProgramMeta struct {
	ID       string                 `json:"id"`
	Name     string                 `json:"name"`
	Pages    PageRange              `json:"pages"`
	Stand    string                 `json:"stand"`
	Status   ChunkStatus            `json:"status"`
	Sections map[string]SectionInfo `json:"sections,omitempty"`
}

// Section labels that carry extra ranking weight: the ones operators and
// the chat layer care about most when answering funding questions.
const (
	SectionEligibility = "foerdervoraussetzungen"
	SectionAmount      = "foerderhoehe"
	SectionChannel     = "antragsweg"
)

// ImportantSections is the fixed set of section labels that receive a
// flat ranking bonus.
var ImportantSections = map[string]bool{
	SectionEligibility: true,
	SectionAmount:      true,
	SectionChannel:     true,
}
