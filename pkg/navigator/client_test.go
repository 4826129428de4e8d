package navigator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/domain"
)

func fixtureServer(t *testing.T) *httptest.Server {
	t.Helper()

	text := "Das Bildungskonto foerdert berufliche Weiterbildung mit bis zu 30 Prozent der Kurskosten."
	mux := http.NewServeMux()
	serve := func(path string, v any) {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(v)
		})
	}
	serve("/chunks_stats.json", map[string]any{"buildId": "t1", "pages": 4, "programs": 1, "chunks": 1})
	serve("/chunks.json", []map[string]any{{
		"id": "bk-1", "text": text, "programId": "bk", "programName": "Bildungskonto",
		"page": 2, "section": "foerderhoehe", "status": "active",
	}})
	serve("/program_meta.json", []map[string]any{{
		"id": "bk", "name": "Bildungskonto", "status": "active", "stand": "2025-03",
	}})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T) *Client {
	t.Helper()

	src := fixtureServer(t)
	client, err := New(context.Background(),
		WithMemoryStore(),
		WithIngestBaseURL(src.URL),
		WithFetchPolicy(1, 0),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(client.Close)
	return client
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := New(context.Background(), WithMemoryStore()); err == nil {
		t.Fatal("expected error without ingest base URL")
	}
}

func TestClientEndToEnd(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	report, err := client.Reload(ctx)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if report.BuildID != "t1" || report.Chunks != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}

	res := client.Search("weiterbildung kosten", 5)
	if len(res.Citations) != 1 {
		t.Fatalf("expected 1 citation, got %d", len(res.Citations))
	}
	if res.Citations[0].ProgramID != "bk" {
		t.Errorf("citation = %+v", res.Citations[0])
	}
	if res.Context == "" {
		t.Error("context not assembled")
	}

	if got := client.Stats(); got.Build.BuildID != "t1" || got.Chunks != 1 {
		t.Errorf("stats = %+v", got)
	}

	meta, err := client.Meta("bk")
	if err != nil {
		t.Fatalf("meta: %v", err)
	}
	if meta.Name != "Bildungskonto" {
		t.Errorf("meta = %+v", meta)
	}
	if _, err := client.Meta("ghost"); !errors.Is(err, ErrProgramNotFound) {
		t.Errorf("expected ErrProgramNotFound, got %v", err)
	}
}

func TestClientAnnotate(t *testing.T) {
	client := newTestClient(t)

	res := client.Annotate("Siehe [#bk S.2].")
	if len(res.Notes) != 1 || res.Notes[0].ProgramID != "bk" {
		t.Errorf("annotate = %+v", res)
	}
}

func TestClientOverridesReachRanking(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	if _, err := client.Reload(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}

	muted := true
	doc := domain.NewOverrides()
	doc.Chunks = map[string]domain.ChunkPatch{
		domain.ChunkKey("bk", 2): {Muted: &muted},
	}
	if _, err := client.Overrides().Save(ctx, doc, false); err != nil {
		t.Fatalf("save overrides: %v", err)
	}

	// Overrides apply on the next reload.
	if _, err := client.Reload(ctx); err != nil {
		t.Fatalf("second reload: %v", err)
	}
	if res := client.Search("weiterbildung", 5); len(res.Citations) != 0 {
		t.Errorf("muted chunk still retrieved: %+v", res.Citations)
	}
}

func TestClientUnavailableSource(t *testing.T) {
	client, err := New(context.Background(),
		WithMemoryStore(),
		WithIngestBaseURL("http://127.0.0.1:1"),
		WithFetchPolicy(1, 0),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer client.Close()

	if _, err := client.Reload(context.Background()); !errors.Is(err, ErrIngestUnavailable) {
		t.Fatalf("expected ErrIngestUnavailable, got %v", err)
	}
}
