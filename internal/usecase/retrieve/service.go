// Package retrieve is the retrieval façade: query- and program-driven
// lookups against the document store, context assembly for the chat layer,
// and status warnings.
package retrieve

import (
	"strconv"
	"strings"

	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/domain"
	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/usecase/docstore"
)

// Topic selects a section filter for program-driven retrieval.
type Topic string

// Known topics. The empty topic applies no section filter.
const (
	TopicChecklist  Topic = "checklist"
	TopicComparison Topic = "comparison"
)

// Advisory messages for degraded program states. At most one per condition
// regardless of how many citations trigger it.
const (
	warnSuspended = "Hinweis: Mindestens ein zitiertes Programm ist derzeit ausgesetzt. Angaben koennen veraltet sein."
	warnEnding    = "Hinweis: Mindestens ein zitiertes Programm laeuft aus. Antragsfristen pruefen."
)

// searcher is the consumer interface onto the document store (ISP).
type searcher interface {
	Search(query string, k int, f docstore.Filter) []domain.Citation
}

// Result is one retrieval outcome: the ranked citations, the assembled
// context string, and any status warnings.
type Result struct {
	Citations []domain.Citation `json:"citations"`
	Context   string            `json:"context"`
	Warnings  []string          `json:"warnings,omitempty"`
}

// Service is the retrieval façade.
type Service struct {
	store           searcher
	defaultK        int
	maxK            int
	maxContextChars int
}

// New creates a retriever over the given store. defaultK is used when a
// caller passes k <= 0, maxK caps any request, and maxContextChars bounds
// the assembled context.
func New(store searcher, defaultK, maxK, maxContextChars int) *Service {
	return &Service{
		store:           store,
		defaultK:        defaultK,
		maxK:            maxK,
		maxContextChars: maxContextChars,
	}
}

// ForQuery runs a free-text retrieval and assembles the context.
func (s *Service) ForQuery(query string, k int) Result {
	k = s.clampK(k)
	citations := s.store.Search(query, k, docstore.Filter{})
	return s.result(citations)
}

// ForPrograms retrieves for a fixed program set, optionally narrowed to a
// topic-specific section. The budget k is split evenly across programs
// (ceiling division), each program queried independently, then the
// concatenation truncated to k. With a non-dividing program count the last
// programs can end up under-represented; that skew is accepted.
func (s *Service) ForPrograms(programIDs []string, topic Topic, k int) Result {
	k = s.clampK(k)
	if len(programIDs) == 0 {
		return s.result(nil)
	}

	section := sectionForTopic(topic)
	perProgram := (k + len(programIDs) - 1) / len(programIDs)

	var citations []domain.Citation
	for _, id := range programIDs {
		f := docstore.Filter{ProgramID: id, Section: section}
		citations = append(citations, s.store.Search(queryForTopic(topic), perProgram, f)...)
	}
	if len(citations) > k {
		citations = citations[:k]
	}
	return s.result(citations)
}

// BuildContext greedily appends whole citation blocks in order until the
// next block would push the string past maxLen. Blocks are never split.
func BuildContext(citations []domain.Citation, maxLen int) string {
	var b strings.Builder
	for _, c := range citations {
		block := formatBlock(c)
		if b.Len()+len(block) > maxLen {
			break
		}
		b.WriteString(block)
	}
	return b.String()
}

// Warnings emits one advisory per degraded condition found among the
// citations, independent of how many citations trigger it.
func Warnings(citations []domain.Citation) []string {
	var suspended, ending bool
	for _, c := range citations {
		switch c.Status {
		case domain.StatusSuspended:
			suspended = true
		case domain.StatusEnding:
			ending = true
		}
	}

	var out []string
	if suspended {
		out = append(out, warnSuspended)
	}
	if ending {
		out = append(out, warnEnding)
	}
	return out
}

func (s *Service) result(citations []domain.Citation) Result {
	return Result{
		Citations: citations,
		Context:   BuildContext(citations, s.maxContextChars),
		Warnings:  Warnings(citations),
	}
}

func (s *Service) clampK(k int) int {
	if k <= 0 {
		k = s.defaultK
	}
	if k > s.maxK {
		k = s.maxK
	}
	return k
}

func formatBlock(c domain.Citation) string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(c.ProgramName)
	b.WriteString(" · S. ")
	b.WriteString(strconv.Itoa(c.Page))
	if c.Section != "" {
		b.WriteString(" · ")
		b.WriteString(c.Section)
	}
	b.WriteString("]\n")
	b.WriteString(c.Text)
	b.WriteString("\n\n")
	return b.String()
}

func sectionForTopic(t Topic) string {
	switch t {
	case TopicChecklist:
		return domain.SectionEligibility
	case TopicComparison:
		return domain.SectionAmount
	}
	return ""
}

// queryForTopic gives the section-filtered program lookup a matching seed
// query so BM25 has tokens to work with; without one every chunk of the
// section scores zero and nothing comes back.
func queryForTopic(t Topic) string {
	switch t {
	case TopicChecklist:
		return "voraussetzungen bedingungen antrag"
	case TopicComparison:
		return "foerderhoehe betrag prozent kosten"
	}
	return "foerderung programm"
}
