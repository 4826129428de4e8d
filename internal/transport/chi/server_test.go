package chi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chirouter "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/db/memory"
	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/domain"
	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/ingest"
	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/repository/chunkcache"
	ovrepo "github.com/Flowzym/UpperWork-Navigator-sub000/internal/repository/overrides"
	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/usecase/dataset"
	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/usecase/docstore"
	overridesuc "github.com/Flowzym/UpperWork-Navigator-sub000/internal/usecase/overrides"
	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/usecase/retrieve"
)

const fixtureText = "Die Foerderung unterstuetzt Weiterbildung fuer Beschaeftigte in Oberoesterreich."

func ingestFixture(t *testing.T) *httptest.Server {
	t.Helper()

	stats := map[string]any{"buildId": "b1", "pages": 12, "programs": 2, "chunks": 2}
	chunks := []map[string]any{
		{
			"id": "qbn-1", "text": fixtureText, "programId": "qbn",
			"programName": "Qualifizierungsbonus", "page": 4,
			"section": "foerdervoraussetzungen", "status": "active",
		},
		{
			"id": "bsf-1", "text": fixtureText, "programId": "bsf",
			"programName": "Bildungskonto", "page": 9,
			"section": "foerderhoehe", "status": "active",
		},
	}
	metas := []map[string]any{
		{"id": "qbn", "name": "Qualifizierungsbonus", "status": "active", "stand": "2025-01"},
		{"id": "bsf", "name": "Bildungskonto", "status": "active", "stand": "2025-01"},
	}

	mux := http.NewServeMux()
	serve := func(path string, v any) {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(v)
		})
	}
	serve("/chunks_stats.json", stats)
	serve("/chunks.json", chunks)
	serve("/program_meta.json", metas)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// newTestRouter wires the full stack against an in-memory store and a
// fixture ingest server, reloads once, and returns the router.
func newTestRouter(t *testing.T, apiKeys []string) http.Handler {
	t.Helper()

	logger := zap.NewNop()
	store := memory.NewStore()
	src := ingestFixture(t)

	client := ingest.NewClient(ingest.Config{
		BaseURL:    src.URL,
		StatsPath:  "/chunks_stats.json",
		ChunksPath: "/chunks.json",
		MetaPath:   "/program_meta.json",
		Attempts:   1,
	}, logger)

	cache := chunkcache.New(store, client, nil, logger)
	ovRepo := ovrepo.New(store, logger)
	index := docstore.New()
	ds := dataset.New(client, cache, ovRepo, index, logger)
	ovSvc := overridesuc.New(ovRepo, ds, logger)
	retriever := retrieve.New(index, 5, 20, 4000)

	if _, err := ds.Reload(t.Context()); err != nil {
		t.Fatalf("initial reload: %v", err)
	}

	server := NewServer(retriever, ovSvc, ds, index, store, apiKeys, 50, logger)
	r := chirouter.NewRouter()
	server.Routes(r)
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestSearchEndpoint(t *testing.T) {
	r := newTestRouter(t, nil)

	rr := doJSON(t, r, "POST", "/search", searchRequest{Query: "weiterbildung", K: 5})
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
	}

	var res retrieve.Result
	if err := json.NewDecoder(rr.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if len(res.Citations) == 0 {
		t.Fatal("expected citations for matching query")
	}
	if !strings.Contains(res.Context, "Weiterbildung") {
		t.Errorf("context missing chunk text: %q", res.Context)
	}
}

func TestSearchEndpointBadBody(t *testing.T) {
	r := newTestRouter(t, nil)

	req := httptest.NewRequest("POST", "/search", strings.NewReader("{broken"))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status %d, want 400", rr.Code)
	}
}

func TestRetrieveEndpoint(t *testing.T) {
	r := newTestRouter(t, nil)

	rr := doJSON(t, r, "POST", "/retrieve", retrieveRequest{
		ProgramIDs: []string{"qbn"},
		Topic:      "checklist",
		K:          5,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
	}

	var res retrieve.Result
	if err := json.NewDecoder(rr.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	for _, c := range res.Citations {
		if c.ProgramID != "qbn" {
			t.Errorf("citation leaked from other program: %+v", c)
		}
	}
}

func TestRetrieveEndpointRejectsUnknownTopic(t *testing.T) {
	r := newTestRouter(t, nil)

	rr := doJSON(t, r, "POST", "/retrieve", retrieveRequest{
		ProgramIDs: []string{"qbn"},
		Topic:      "summary",
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status %d, want 400", rr.Code)
	}
}

func TestRetrieveEndpointRequiresPrograms(t *testing.T) {
	r := newTestRouter(t, nil)

	rr := doJSON(t, r, "POST", "/retrieve", retrieveRequest{K: 5})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status %d, want 400", rr.Code)
	}
}

func TestAnnotateEndpoint(t *testing.T) {
	r := newTestRouter(t, nil)

	rr := doJSON(t, r, "POST", "/annotate", annotateRequest{
		Text: "Siehe [#qbn S.4] und nochmal [#qbn S.4].",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
	}

	var res struct {
		AnnotatedText string `json:"annotatedText"`
		Notes         []any  `json:"notes"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if len(res.Notes) != 1 {
		t.Errorf("expected 1 deduplicated note, got %d", len(res.Notes))
	}
}

func TestOverridesSaveAndGet(t *testing.T) {
	r := newTestRouter(t, nil)

	doc := domain.NewOverrides()
	boost := 0.5
	doc.Chunks = map[string]domain.ChunkPatch{
		domain.ChunkKey("qbn", 4): {Boost: &boost},
	}

	rr := doJSON(t, r, "PUT", "/admin/overrides", doc)
	if rr.Code != http.StatusOK {
		t.Fatalf("save status %d: %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, r, "GET", "/admin/overrides", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get status %d", rr.Code)
	}
	var got domain.Overrides
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if len(got.Chunks) != 1 {
		t.Errorf("saved overrides not returned: %+v", got)
	}
}

func TestOverridesSaveBlockedReturns422(t *testing.T) {
	r := newTestRouter(t, nil)

	doc := domain.NewOverrides()
	doc.Sections = []domain.SectionOverride{
		{ProgramID: "ghost", PageStart: 1, PageEnd: 2, Title: "x"},
	}

	rr := doJSON(t, r, "PUT", "/admin/overrides", doc)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status %d, want 422: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Code   string              `json:"code"`
		Issues []overridesuc.Issue `json:"issues"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Code != codeValidationBlocked {
		t.Errorf("code = %s", resp.Code)
	}
	if len(resp.Issues) == 0 {
		t.Error("blocked response must carry the issues")
	}

	// Force flag bypasses the gate.
	rr = doJSON(t, r, "PUT", "/admin/overrides?force=1", doc)
	if rr.Code != http.StatusOK {
		t.Errorf("forced save status %d: %s", rr.Code, rr.Body.String())
	}
}

func TestOverridesResetAndHistory(t *testing.T) {
	r := newTestRouter(t, nil)

	if rr := doJSON(t, r, "PUT", "/admin/overrides", domain.NewOverrides()); rr.Code != http.StatusOK {
		t.Fatalf("save status %d", rr.Code)
	}
	if rr := doJSON(t, r, "DELETE", "/admin/overrides", nil); rr.Code != http.StatusNoContent {
		t.Fatalf("reset status %d", rr.Code)
	}

	rr := doJSON(t, r, "GET", "/admin/overrides/history?limit=10", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("history status %d", rr.Code)
	}
	var resp struct {
		Entries []ovrepo.HistoryEntry `json:"entries"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Entries) != 2 {
		t.Errorf("expected 2 history entries, got %d", len(resp.Entries))
	}
}

func TestOverridesHistoryRejectsBadLimit(t *testing.T) {
	r := newTestRouter(t, nil)

	rr := doJSON(t, r, "GET", "/admin/overrides/history?limit=abc", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status %d, want 400", rr.Code)
	}
}

func TestOverridesExportImport(t *testing.T) {
	r := newTestRouter(t, nil)

	rr := doJSON(t, r, "GET", "/admin/overrides/export", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("export status %d", rr.Code)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "overrides.json") {
		t.Errorf("export disposition = %q", cd)
	}

	req := httptest.NewRequest("POST", "/admin/overrides/import", bytes.NewReader(rr.Body.Bytes()))
	rr2 := httptest.NewRecorder()
	r.ServeHTTP(rr2, req)
	if rr2.Code != http.StatusOK {
		t.Fatalf("import status %d: %s", rr2.Code, rr2.Body.String())
	}
}

func TestOverridesImportRejectsBadVersion(t *testing.T) {
	r := newTestRouter(t, nil)

	req := httptest.NewRequest("POST", "/admin/overrides/import", strings.NewReader(`{"version": 9}`))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rr.Code)
	}
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Code != codeImportFailed {
		t.Errorf("code = %s", resp.Code)
	}
}

func TestValidateEndpoint(t *testing.T) {
	r := newTestRouter(t, nil)

	doc := domain.NewOverrides()
	doc.Sections = []domain.SectionOverride{
		{ProgramID: "qbn", PageStart: 9, PageEnd: 4, Title: "x"},
	}

	rr := doJSON(t, r, "POST", "/admin/overrides/validate", doc)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var resp struct {
		Issues    []overridesuc.Issue `json:"issues"`
		HasErrors bool                `json:"hasErrors"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if !resp.HasErrors || len(resp.Issues) == 0 {
		t.Errorf("inverted range not reported: %+v", resp)
	}
}

func TestReloadEndpoint(t *testing.T) {
	r := newTestRouter(t, nil)

	rr := doJSON(t, r, "POST", "/admin/reload", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
	}

	var report dataset.ReloadReport
	if err := json.NewDecoder(rr.Body).Decode(&report); err != nil {
		t.Fatal(err)
	}
	if report.BuildID != "b1" {
		t.Errorf("report = %+v", report)
	}
	if report.Source != chunkcache.SourceCache {
		t.Errorf("second reload of the same build should hit the cache, got %s", report.Source)
	}
}

func TestAdminRoutesRequireAuth(t *testing.T) {
	r := newTestRouter(t, []string{"secret"})

	rr := doJSON(t, r, "GET", "/admin/overrides", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated admin call: status %d, want 401", rr.Code)
	}

	req := httptest.NewRequest("GET", "/admin/overrides", http.NoBody)
	req.Header.Set("Authorization", "Bearer secret")
	rr2 := httptest.NewRecorder()
	r.ServeHTTP(rr2, req)
	if rr2.Code != http.StatusOK {
		t.Errorf("authenticated admin call: status %d", rr2.Code)
	}

	// Public surface stays open.
	rr3 := doJSON(t, r, "POST", "/search", searchRequest{Query: "weiterbildung"})
	if rr3.Code != http.StatusOK {
		t.Errorf("public search behind auth: status %d", rr3.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestRouter(t, nil)

	rr := doJSON(t, r, "GET", "/health", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var resp struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "healthy" || resp.Checks["store"] != "ok" {
		t.Errorf("health = %+v", resp)
	}
}
