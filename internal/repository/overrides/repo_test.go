package overrides

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/db/memory"
	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/domain"
)

func newRepo() (*Repo, *memory.Store) {
	store := memory.NewStore()
	return New(store, zap.NewNop()), store
}

func TestLoad_EmptyStore(t *testing.T) {
	repo, _ := newRepo()
	doc, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Version != domain.OverridesVersion || !doc.IsEmpty() {
		t.Errorf("expected fresh empty document, got %+v", doc)
	}
}

func TestSaveThenLoad(t *testing.T) {
	repo, _ := newRepo()
	ctx := context.Background()

	muted := true
	doc := domain.NewOverrides()
	doc.Chunks = map[string]domain.ChunkPatch{"P1:12": {Muted: &muted}}

	if err := repo.Save(ctx, doc, "chunk_override", "P1:12 muted=true"); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	p, ok := got.Chunks["P1:12"]
	if !ok || p.Muted == nil || !*p.Muted {
		t.Errorf("round-trip lost the chunk patch: %+v", got)
	}
}

func TestReset(t *testing.T) {
	repo, _ := newRepo()
	ctx := context.Background()

	doc := domain.NewOverrides()
	doc.Synonyms = map[string][]string{"weiterbildung": {"fortbildung"}}
	if err := repo.Save(ctx, doc, "synonyms", "added 1 synonym group"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := repo.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}

	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("load after reset: %v", err)
	}
	if !got.IsEmpty() {
		t.Errorf("expected empty document after reset, got %+v", got)
	}
}

func TestHistory_MostRecentFirst(t *testing.T) {
	repo, _ := newRepo()
	ctx := context.Background()

	base := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)
	tick := 0
	repo.WithClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	})

	for _, action := range []string{"first", "second", "third"} {
		if err := repo.Save(ctx, domain.NewOverrides(), action, action+" save"); err != nil {
			t.Fatalf("save %s: %v", action, err)
		}
	}

	entries, err := repo.History(ctx, 2)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Action != "third" || entries[1].Action != "second" {
		t.Errorf("wrong order: %s, %s", entries[0].Action, entries[1].Action)
	}
}

func TestHistory_DefaultLimit(t *testing.T) {
	repo, _ := newRepo()
	entries, err := repo.History(context.Background(), 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty history, got %d", len(entries))
	}
}

func TestDescribeChunkPatch(t *testing.T) {
	muted := true
	boost := 0.5
	got := DescribeChunkPatch("P1", 12, domain.ChunkPatch{Muted: &muted, Boost: &boost})
	want := "P1:12 muted=true boost=0.50"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	if got := DescribeChunkPatch("P1", 12, domain.ChunkPatch{}); got != "P1:12 cleared" {
		t.Errorf("empty patch description = %q", got)
	}
}
