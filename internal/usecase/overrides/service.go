package overrides

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/domain"
	ovrepo "github.com/Flowzym/UpperWork-Navigator-sub000/internal/repository/overrides"
)

// Repository persists the override document and history log.
type Repository interface {
	Load(ctx context.Context) (*domain.Overrides, error)
	Save(ctx context.Context, doc *domain.Overrides, action, description string) error
	Reset(ctx context.Context) error
	History(ctx context.Context, limit int) ([]ovrepo.HistoryEntry, error)
}

// DataProvider exposes the canonical dataset the validations run against.
type DataProvider interface {
	CanonicalChunks() []domain.Chunk
	ProgramMeta() []domain.ProgramMeta
}

// Service is the override engine consumed by the admin surface.
type Service struct {
	repo   Repository
	data   DataProvider
	logger *zap.Logger
}

// New creates an overrides service.
func New(repo Repository, data DataProvider, logger *zap.Logger) *Service {
	return &Service{repo: repo, data: data, logger: logger}
}

// Get returns the current override document.
func (s *Service) Get(ctx context.Context) (*domain.Overrides, error) {
	return s.repo.Load(ctx)
}

// Save validates and persists a new override document. Error-level issues
// block the save unless force is set; the issues are returned either way.
func (s *Service) Save(ctx context.Context, doc *domain.Overrides, force bool) ([]Issue, error) {
	if doc.Version == 0 {
		doc.Version = domain.OverridesVersion
	}
	issues := s.Validate(doc)
	if HasErrors(issues) && !force {
		return issues, domain.ErrValidationBlocked
	}
	if err := s.repo.Save(ctx, doc, "save", summarize(doc)); err != nil {
		return issues, err
	}
	return issues, nil
}

// Reset clears all overrides.
func (s *Service) Reset(ctx context.Context) error {
	return s.repo.Reset(ctx)
}

// Validate checks a document against the canonical dataset.
func (s *Service) Validate(doc *domain.Overrides) []Issue {
	return Validate(s.data.CanonicalChunks(), s.data.ProgramMeta(), doc)
}

// History returns the most recent audit entries.
func (s *Service) History(ctx context.Context, limit int) ([]ovrepo.HistoryEntry, error) {
	return s.repo.History(ctx, limit)
}

// Export serializes the current document for download.
func (s *Service) Export(ctx context.Context) ([]byte, error) {
	doc, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}
	return data, nil
}

// Import parses an uploaded document, checks only the version tag and
// structural shape, and persists it. Deeper consistency problems are
// caught by Validate afterwards, not by import: a structurally well-formed
// but semantically broken file imports fine and is flagged later. The
// resulting advisory issues are returned alongside.
func (s *Service) Import(ctx context.Context, data []byte) (*domain.Overrides, []Issue, error) {
	doc, err := ParseImport(data)
	if err != nil {
		return nil, nil, err
	}
	if err := s.repo.Save(ctx, doc, "import", summarize(doc)); err != nil {
		return nil, nil, err
	}
	issues := s.Validate(doc)
	if len(issues) > 0 {
		s.logger.Warn("imported override document has validation issues",
			zap.Int("issues", len(issues)))
	}
	return doc, issues, nil
}

// ParseImport decodes and structurally validates an override document.
func ParseImport(data []byte) (*domain.Overrides, error) {
	var doc domain.Overrides
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrImportParse, err)
	}
	if doc.Version != domain.OverridesVersion {
		return nil, fmt.Errorf("%w: got %d, want %d",
			domain.ErrImportVersion, doc.Version, domain.OverridesVersion)
	}
	for key := range doc.Chunks {
		if _, _, err := domain.ParseChunkKey(key); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrImportParse, err)
		}
	}
	return &doc, nil
}

func summarize(doc *domain.Overrides) string {
	return fmt.Sprintf("%d sections, %d meta patches, %d chunk patches, %d synonym groups",
		len(doc.Sections), len(doc.ProgramMeta), len(doc.Chunks), len(doc.Synonyms))
}
