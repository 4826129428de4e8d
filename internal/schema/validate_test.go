package schema

import (
	"strings"
	"testing"

	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/domain"
)

func TestValidateStats(t *testing.T) {
	defects := ValidateStats(domain.BuildStats{BuildID: "b", Chunks: 10})
	if len(defects) != 0 {
		t.Errorf("unexpected defects %v", defects)
	}
	defects = ValidateStats(domain.BuildStats{})
	if len(defects) < 2 {
		t.Errorf("expected missing-id and zero-chunks defects, got %v", defects)
	}
}

func TestValidateMeta(t *testing.T) {
	inv1, inv2 := 20, 10
	defects := ValidateMeta([]domain.ProgramMeta{
		{ID: "P1", Name: "A"},
		{ID: "P1", Name: "B"},
		{ID: "P2"},
		{ID: "P3", Name: "C", Pages: domain.PageRange{Start: &inv1, End: &inv2}},
	})
	wantFragments := []string{"duplicate program id", "missing display name", "inverted page range"}
	for _, frag := range wantFragments {
		found := false
		for _, d := range defects {
			if strings.Contains(d, frag) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected defect containing %q in %v", frag, defects)
		}
	}
}

func TestValidateChunks(t *testing.T) {
	metas := []domain.ProgramMeta{{ID: "P1", Name: "A"}}
	long := strings.Repeat("x", domain.MaxChunkLen+1)
	chunks := []domain.Chunk{
		{ID: "ok", ProgramID: "P1", Page: 1,
			Text: "Gefördert werden berufliche Weiterbildungen.", NormText: "x", EndChar: 10},
		{ID: "short", ProgramID: "P1", Page: 1, Text: "zu kurz", NormText: "zu kurz"},
		{ID: "dangling", ProgramID: "P9", Page: 1,
			Text: "Programm existiert nicht mehr im Metadatensatz.", NormText: "x"},
		{ID: "long", ProgramID: "P1", Page: 0, Text: long, NormText: "x"},
	}
	defects := ValidateChunks(chunks, metas)
	for _, frag := range []string{
		"below", "not in metadata", "above", "not 1-based",
	} {
		found := false
		for _, d := range defects {
			if strings.Contains(d, frag) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected defect containing %q in %v", frag, defects)
		}
	}
	// The valid chunk must not be flagged.
	for _, d := range defects {
		if strings.HasPrefix(d, "chunk ok:") {
			t.Errorf("valid chunk flagged: %s", d)
		}
	}
}

func TestValidateChunks_NilMetasSkipsResolution(t *testing.T) {
	chunks := []domain.Chunk{
		{ID: "c1", ProgramID: "ghost", Page: 1,
			Text: "Programm ohne Metadatensatz, sonst vollständig.", NormText: "x", EndChar: 10},
	}
	if defects := ValidateChunks(chunks, nil); len(defects) != 0 {
		t.Errorf("defects without metas = %v", defects)
	}
}

func TestValidateChunks_MissingIDUsesIndexLabel(t *testing.T) {
	chunks := []domain.Chunk{
		{ProgramID: "P1", Page: 1,
			Text: "Chunk ohne Kennung, sonst vollständig geformt.", NormText: "x", EndChar: 10},
	}
	defects := ValidateChunks(chunks, nil)
	if len(defects) != 1 || !strings.Contains(defects[0], "chunk #0: missing id") {
		t.Errorf("defects = %v", defects)
	}
}
