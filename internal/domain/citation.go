package domain

// Citation is a single retrieval hit. Citations are produced per query and
// never persisted.
type Citation struct {
	Text        string      `json:"text"`
	ProgramID   string      `json:"programId"`
	ProgramName string      `json:"programName"`
	Page        int         `json:"page"`
	Stand       string      `json:"stand"`
	Section     string      `json:"section"`
	Score       float64     `json:"score"`
	Status      ChunkStatus `json:"status"`
}
