// Package schema canonicalizes heterogeneous raw ingestion output into the
// fixed chunk/meta/stats records and validates the result. Migration is
// pure and total: unknown or missing fields are defaulted, never rejected.
package schema

import (
	"math"

	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/domain"
)

// renames maps the field-name variants produced by different ingestion
// runs (snake_case exports, German column names, abbreviated keys) onto
// the canonical camelCase names. Applied recursively to nested input.
var renames = map[string]string{
	"program_id":     "programId",
	"programid":      "programId",
	"pid":            "programId",
	"program_name":   "programName",
	"programm":       "programName",
	"norm_text":      "normText",
	"normalized":     "normText",
	"text_norm":      "normText",
	"page_number":    "page",
	"pageno":         "page",
	"seite":          "page",
	"start_char":     "startChar",
	"end_char":       "endChar",
	"char_start":     "startChar",
	"char_end":       "endChar",
	"build_id":       "buildId",
	"built_at":       "builtAt",
	"section_counts": "sectionCounts",
	"start_page":     "startPage",
	"end_page":       "endPage",
	"page_start":     "startPage",
	"page_end":       "endPage",
}

// canonicalizeKeys walks arbitrarily nested decoded JSON and renames every
// map key found in the rename table.
func canonicalizeKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if canonical, ok := renames[k]; ok {
				k = canonical
			}
			out[k] = canonicalizeKeys(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = canonicalizeKeys(val)
		}
		return out
	default:
		return v
	}
}

// MigrateStats canonicalizes a raw stats document. A missing build id is
// synthesized from the counts.
func MigrateStats(raw any) domain.BuildStats {
	m, _ := canonicalizeKeys(raw).(map[string]any)
	s := domain.BuildStats{
		BuildID:  str(m, "buildId"),
		BuiltAt:  str(m, "builtAt"),
		Pages:    intVal(m, "pages"),
		Programs: intVal(m, "programs"),
		Chunks:   intVal(m, "chunks"),
	}
	if counts, ok := m["sectionCounts"].(map[string]any); ok {
		s.SectionCounts = make(map[string]int, len(counts))
		for k, v := range counts {
			s.SectionCounts[k] = toInt(v)
		}
	}
	s.EnsureBuildID()
	return s
}

// MigrateMeta canonicalizes a raw program-metadata array. An entry lacking
// both pages and startPage/endPage is accepted with nil bounds: downstream
// consumers treat nil as "no page restriction".
func MigrateMeta(raw any) []domain.ProgramMeta {
	arr, _ := canonicalizeKeys(raw).([]any)
	metas := make([]domain.ProgramMeta, 0, len(arr))
	for _, e := range arr {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		meta := domain.ProgramMeta{
			ID:     str(m, "id"),
			Name:   str(m, "name"),
			Stand:  str(m, "stand"),
			Status: statusOrDefault(str(m, "status")),
			Pages:  pageRange(m),
		}
		if sections, ok := m["sections"].(map[string]any); ok {
			meta.Sections = make(map[string]domain.SectionInfo, len(sections))
			for name, sv := range sections {
				sm, ok := sv.(map[string]any)
				if !ok {
					continue
				}
				info := domain.SectionInfo{Pages: pageRange(sm)}
				if kws, ok := sm["keywords"].([]any); ok {
					for _, kw := range kws {
						if s, ok := kw.(string); ok {
							info.Keywords = append(info.Keywords, s)
						}
					}
				}
				meta.Sections[name] = info
			}
		}
		metas = append(metas, meta)
	}
	return metas
}

// MigrateChunks canonicalizes a raw chunk array. A missing normalized copy
// is regenerated from the raw text (data-quality repair), and an unknown
// status defaults to active.
func MigrateChunks(raw any) []domain.Chunk {
	arr, _ := canonicalizeKeys(raw).([]any)
	chunks := make([]domain.Chunk, 0, len(arr))
	for _, e := range arr {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		c := domain.Chunk{
			ID:          str(m, "id"),
			Text:        str(m, "text"),
			NormText:    str(m, "normText"),
			ProgramID:   str(m, "programId"),
			ProgramName: str(m, "programName"),
			Page:        intVal(m, "page"),
			Section:     str(m, "section"),
			Stand:       str(m, "stand"),
			Status:      statusOrDefault(str(m, "status")),
			StartChar:   intVal(m, "startChar"),
			EndChar:     intVal(m, "endChar"),
		}
		if c.NormText == "" && c.Text != "" {
			c.NormText = domain.NormalizeText(c.Text)
		}
		chunks = append(chunks, c)
	}
	return chunks
}

// pageRange reads either a pages value ([start,end] array or {start,end}
// object) or flat startPage/endPage keys.
func pageRange(m map[string]any) domain.PageRange {
	switch p := m["pages"].(type) {
	case []any:
		var r domain.PageRange
		if len(p) > 0 {
			r.Start = intPtr(p[0])
		}
		if len(p) > 1 {
			r.End = intPtr(p[1])
		}
		return r
	case map[string]any:
		return domain.PageRange{Start: intPtrVal(p, "start"), End: intPtrVal(p, "end")}
	}
	return domain.PageRange{
		Start: intPtrVal(m, "startPage"),
		End:   intPtrVal(m, "endPage"),
	}
}

func statusOrDefault(s string) domain.ChunkStatus {
	st := domain.ChunkStatus(s)
	if !st.IsValid() {
		return domain.StatusActive
	}
	return st
}

func str(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func intVal(m map[string]any, key string) int {
	return toInt(m[key])
}

func intPtr(v any) *int {
	switch v.(type) {
	case float64, int, int64:
		n := toInt(v)
		return &n
	}
	return nil
}

func intPtrVal(m map[string]any, key string) *int {
	if v, ok := m[key]; ok {
		return intPtr(v)
	}
	return nil
}

func toInt(v any) int {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0
		}
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	}
	return 0
}
