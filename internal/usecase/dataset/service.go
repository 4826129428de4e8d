// Package dataset orchestrates a full dataset reload: fresh stats, cached
// or fetched chunks, schema validation, data-quality exclusion, and the
// override merge pipeline, ending in a rebuilt search index. It also holds
// the canonical (pre-override) dataset that override validation runs
// against.
package dataset

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/domain"
	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/repository/chunkcache"
	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/schema"
	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/usecase/docstore"
	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/usecase/overrides"
)

// ingestSource loads the always-fresh ingestion files.
type ingestSource interface {
	LoadStats(ctx context.Context) (domain.BuildStats, error)
	LoadMeta(ctx context.Context) ([]domain.ProgramMeta, error)
}

// chunkSource resolves the chunk payload for a build, cache-first.
type chunkSource interface {
	LoadChunks(ctx context.Context, stats domain.BuildStats) ([]domain.Chunk, chunkcache.Source, error)
}

// overrideSource loads the current override document.
type overrideSource interface {
	Load(ctx context.Context) (*domain.Overrides, error)
}

// ReloadReport summarizes one reload for the admin surface and logs.
type ReloadReport struct {
	BuildID     string            `json:"buildId"`
	Source      chunkcache.Source `json:"source"`
	Programs    int               `json:"programs"`
	Chunks      int               `json:"chunks"`
	Excluded    int               `json:"excluded"`
	Defects     []string          `json:"defects,omitempty"`
	Overridden  bool              `json:"overridden"`
	Duration    time.Duration     `json:"duration"`
	CompletedAt time.Time         `json:"completedAt"`
}

// Service owns the loaded dataset and rebuilds it on demand.
type Service struct {
	ingest    ingestSource
	cache     chunkSource
	overrides overrideSource
	index     *docstore.Store
	logger    *zap.Logger

	mu     sync.RWMutex
	chunks []domain.Chunk       // canonical, pre-override
	metas  []domain.ProgramMeta // merged with meta overrides
	last   *ReloadReport
}

// New creates a dataset service. The index is shared with the retrieval
// layer; Reload swaps its contents atomically.
func New(ingest ingestSource, cache chunkSource, ov overrideSource, index *docstore.Store, logger *zap.Logger) *Service {
	return &Service{
		ingest:    ingest,
		cache:     cache,
		overrides: ov,
		index:     index,
		logger:    logger,
	}
}

// Reload runs the full pipeline. Stats are always fetched fresh; the chunk
// payload comes from the cache when the build id matches. Overrides are
// re-read and re-applied on every reload, so a saved override takes effect
// the next time the operator reloads.
func (s *Service) Reload(ctx context.Context) (*ReloadReport, error) {
	started := time.Now()

	stats, err := s.ingest.LoadStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("reload stats: %w", err)
	}
	stats.EnsureBuildID()

	chunks, source, err := s.cache.LoadChunks(ctx, stats)
	if err != nil {
		return nil, fmt.Errorf("reload chunks: %w", err)
	}

	metas, err := s.ingest.LoadMeta(ctx)
	if err != nil {
		return nil, fmt.Errorf("reload meta: %w", err)
	}

	var defects []string
	defects = append(defects, schema.ValidateStats(stats)...)
	defects = append(defects, schema.ValidateMeta(metas)...)
	defects = append(defects, schema.ValidateChunks(chunks, metas)...)
	for _, d := range defects {
		s.logger.Warn("schema defect", zap.String("defect", d), zap.String("buildId", stats.BuildID))
	}

	canonical, excluded := excludeUnusable(chunks, s.logger)

	doc, err := s.overrides.Load(ctx)
	if err != nil {
		s.logger.Warn("override load failed, continuing without overrides", zap.Error(err))
		doc = domain.NewOverrides()
	}

	mergedMetas := overrides.MergeMeta(metas, doc)
	effective := overrides.SyncChunksWithMeta(canonical, mergedMetas)
	effective = overrides.ApplySectionOverrides(effective, doc)
	effective = overrides.ApplyChunkOverrides(effective, doc)

	s.index.Load(effective, stats)
	s.index.SetSynonyms(doc.Synonyms)

	report := &ReloadReport{
		BuildID:     stats.BuildID,
		Source:      source,
		Programs:    len(mergedMetas),
		Chunks:      len(effective),
		Excluded:    excluded,
		Defects:     defects,
		Overridden:  !doc.IsEmpty(),
		Duration:    time.Since(started),
		CompletedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.chunks = canonical
	s.metas = mergedMetas
	s.last = report
	s.mu.Unlock()

	s.logger.Info("dataset reloaded",
		zap.String("buildId", report.BuildID),
		zap.String("source", string(report.Source)),
		zap.Int("chunks", report.Chunks),
		zap.Int("excluded", report.Excluded),
		zap.Int("defects", len(report.Defects)),
		zap.Duration("duration", report.Duration))
	return report, nil
}

// CanonicalChunks returns the pre-override chunk set for validation.
func (s *Service) CanonicalChunks() []domain.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chunks
}

// ProgramMeta returns the current program metadata, meta overrides applied.
func (s *Service) ProgramMeta() []domain.ProgramMeta {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metas
}

// MetaByID looks up one program's metadata.
func (s *Service) MetaByID(programID string) (domain.ProgramMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.metas {
		if m.ID == programID {
			return m, nil
		}
	}
	return domain.ProgramMeta{}, domain.ErrProgramNotFound
}

// LastReload returns the most recent reload report, or nil before the
// first successful reload.
func (s *Service) LastReload() *ReloadReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// excludeUnusable drops chunks that cannot serve retrieval at all: empty
// text or text below the minimum length. Each exclusion is logged with its
// reason; over-length chunks are kept (they still carry content) and only
// reported as schema defects.
func excludeUnusable(chunks []domain.Chunk, logger *zap.Logger) ([]domain.Chunk, int) {
	kept := make([]domain.Chunk, 0, len(chunks))
	excluded := 0
	for _, c := range chunks {
		if len(c.Text) < domain.MinChunkLen {
			logger.Warn("chunk excluded",
				zap.String("id", c.ID),
				zap.String("reason", fmt.Sprintf("text length %d below minimum %d", len(c.Text), domain.MinChunkLen)))
			excluded++
			continue
		}
		kept = append(kept, c)
	}
	return kept, excluded
}
