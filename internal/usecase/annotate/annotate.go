// Package annotate turns inline citation markers in generated answer text
// into superscript annotations with a deduplicated note list.
package annotate

import (
	"fmt"
	"regexp"
	"strconv"
)

// markerPattern matches inline citation markers of the form
// [#<programID> S.<page>].
var markerPattern = regexp.MustCompile(`\[#([A-Za-z0-9_-]+) S\.(\d+)\]`)

// Note is one deduplicated citation reference, listed in the order its
// marker first appears in the text.
type Note struct {
	ID        int    `json:"id"`
	Label     string `json:"label"`
	ProgramID string `json:"programId"`
	Page      int    `json:"page"`
}

// Result is the annotated text plus its note list.
type Result struct {
	AnnotatedText string `json:"annotatedText"`
	Notes         []Note `json:"notes"`
}

// Extract scans text for citation markers. The first marker for a given
// (programID, page) pair creates a note; every occurrence of that pair,
// first and repeats alike, is replaced by the same annotated span, so
// repeated citations render identically but are listed only once. Text
// without markers passes through unchanged.
func Extract(text string) Result {
	notes := []Note{}
	byKey := make(map[string]Note)

	annotated := markerPattern.ReplaceAllStringFunc(text, func(m string) string {
		sub := markerPattern.FindStringSubmatch(m)
		programID := sub[1]
		page, err := strconv.Atoi(sub[2])
		if err != nil {
			return m
		}

		key := programID + "-" + sub[2]
		note, ok := byKey[key]
		if !ok {
			note = Note{
				ID:        len(notes) + 1,
				Label:     fmt.Sprintf("%s S.%d", programID, page),
				ProgramID: programID,
				Page:      page,
			}
			byKey[key] = note
			notes = append(notes, note)
		}
		return span(note)
	})

	return Result{AnnotatedText: annotated, Notes: notes}
}

func span(n Note) string {
	return fmt.Sprintf(`<sup data-note="%d" title="%s">[%d]</sup>`, n.ID, n.Label, n.ID)
}
