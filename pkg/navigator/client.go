package navigator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/db"
	dbMemory "github.com/Flowzym/UpperWork-Navigator-sub000/internal/db/memory"
	dbRedis "github.com/Flowzym/UpperWork-Navigator-sub000/internal/db/redis"
	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/domain"
	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/ingest"
	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/repository/chunkcache"
	overridesrepo "github.com/Flowzym/UpperWork-Navigator-sub000/internal/repository/overrides"
	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/usecase/annotate"
	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/usecase/dataset"
	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/usecase/docstore"
	overridesuc "github.com/Flowzym/UpperWork-Navigator-sub000/internal/usecase/overrides"
	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/usecase/retrieve"
)

const defaultReadinessTimeout = 10 * time.Second

// Client is the embeddable retrieval engine entry point.
type Client struct {
	store     db.Store
	index     *docstore.Store
	dataset   *dataset.Service
	retriever *retrieve.Service
	overrides *overridesuc.Service
}

// New creates a Client and connects to the backing store. The provided
// context is used for the initial readiness check. No dataset is loaded
// yet; call Reload before the first query.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		driver:          "memory",
		statsPath:       "/chunks_stats.json",
		chunksPath:      "/chunks.json",
		metaPath:        "/program_meta.json",
		defaultK:        5,
		maxK:            50,
		maxContextChars: 8000,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.ingestBaseURL == "" {
		return nil, errors.New("navigator: ingest base URL required (use WithIngestBaseURL)")
	}
	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("navigator: store not ready: %w", err)
	}

	client := ingest.NewClient(ingest.Config{
		BaseURL:    cfg.ingestBaseURL,
		StatsPath:  cfg.statsPath,
		ChunksPath: cfg.chunksPath,
		MetaPath:   cfg.metaPath,
		Timeout:    cfg.fetchTimeout,
		Attempts:   cfg.fetchAttempts,
	}, logger)

	cache := chunkcache.New(store, client, nil, logger)
	ovRepo := overridesrepo.New(store, logger)
	index := docstore.New()
	ds := dataset.New(client, cache, ovRepo, index, logger)

	return &Client{
		store:     store,
		index:     index,
		dataset:   ds,
		retriever: retrieve.New(index, cfg.defaultK, cfg.maxK, cfg.maxContextChars),
		overrides: overridesuc.New(ovRepo, ds, logger),
	}, nil
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("navigator: create redis store: %w", err)
		}
		return s, nil
	case "memory":
		return dbMemory.NewStore(), nil
	default:
		return nil, fmt.Errorf("navigator: unknown driver %q", cfg.driver)
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks store connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Reload fetches the dataset, applies overrides, and rebuilds the index.
func (c *Client) Reload(ctx context.Context) (*dataset.ReloadReport, error) {
	return c.dataset.Reload(ctx)
}

// Search runs a free-text retrieval.
func (c *Client) Search(query string, k int) retrieve.Result {
	return c.retriever.ForQuery(query, k)
}

// Programs retrieves for a fixed program set, optionally narrowed by topic.
func (c *Client) Programs(programIDs []string, topic retrieve.Topic, k int) retrieve.Result {
	return c.retriever.ForPrograms(programIDs, topic, k)
}

// Annotate converts inline citation markers in answer text into
// superscript annotations with a note list.
func (c *Client) Annotate(text string) annotate.Result {
	return annotate.Extract(text)
}

// Overrides returns the override management service.
func (c *Client) Overrides() *overridesuc.Service {
	return c.overrides
}

// Meta looks up one program's metadata (after meta overrides).
func (c *Client) Meta(programID string) (domain.ProgramMeta, error) {
	return c.dataset.MetaByID(programID)
}

// Stats reports the loaded build and index size.
func (c *Client) Stats() docstore.Stats {
	return c.index.Stats()
}
