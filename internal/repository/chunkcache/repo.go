// Package chunkcache persists the raw chunk payload keyed by build id, so
// the index stays reproducible across sessions of the same build without
// refetching, and stale builds are evicted as soon as a new one lands.
package chunkcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/db"
	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/domain"
	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/schema"
)

const (
	cacheKeyPrefix = "chunks:"
	cachePattern   = cacheKeyPrefix + "*"
)

// Source reports where a chunk payload came from.
type Source string

// Chunk payload origins.
const (
	SourceNetwork Source = "network"
	SourceCache   Source = "cache"
)

// store is the consumer interface for the chunk cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// fetcher pulls the raw serialized chunk payload from the network.
type fetcher interface {
	FetchChunksRaw(ctx context.Context) ([]byte, error)
}

// Repo is the versioned chunk cache.
type Repo struct {
	store      store
	fetch      fetcher
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a chunk cache repository.
// cacheTotal is a counter vec with label "source" ("cache"/"network"), passed explicitly.
func New(s store, f fetcher, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *Repo {
	return &Repo{store: s, fetch: f, cacheTotal: cacheTotal, logger: logger}
}

// LoadChunks returns the migrated chunk set for the build described by
// stats. A cached payload under the build's key is served as-is; otherwise
// the payload is fetched, stored, and every other cached build is swept so
// at most one build's chunks are ever retained. A fetch failure propagates
// as an error, never as a silent empty result.
func (r *Repo) LoadChunks(ctx context.Context, stats domain.BuildStats) ([]domain.Chunk, Source, error) {
	key := cacheKeyPrefix + stats.BuildID

	if data, err := r.store.Get(ctx, key); err == nil {
		chunks, decodeErr := decodeChunks(data)
		if decodeErr == nil {
			r.incSource(SourceCache)
			return chunks, SourceCache, nil
		}
		// Corrupt cache entry: treat as a miss and refetch.
		r.logger.Warn("cached chunk payload undecodable, refetching",
			zap.String("key", key), zap.Error(decodeErr))
	} else if !errors.Is(err, db.ErrKeyNotFound) {
		r.logger.Warn("chunk cache read failed, falling back to network",
			zap.String("key", key), zap.Error(err))
	}

	data, err := r.fetch.FetchChunksRaw(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("fetch chunks for build %s: %w", stats.BuildID, err)
	}

	chunks, err := decodeChunks(data)
	if err != nil {
		return nil, "", fmt.Errorf("decode chunks for build %s: %w", stats.BuildID, err)
	}

	if err := r.store.Set(ctx, key, data); err != nil {
		// The dataset is already in hand; a cache write failure only costs
		// the next session a refetch.
		r.logger.Warn("chunk cache write failed", zap.String("key", key), zap.Error(err))
	} else {
		r.sweep(ctx, key)
	}

	r.incSource(SourceNetwork)
	return chunks, SourceNetwork, nil
}

// sweep deletes every chunk-cache key except keep.
func (r *Repo) sweep(ctx context.Context, keep string) {
	keys, err := r.store.Scan(ctx, cachePattern)
	if err != nil {
		r.logger.Warn("chunk cache sweep scan failed", zap.Error(err))
		return
	}
	for _, k := range keys {
		if k == keep {
			continue
		}
		if err := r.store.Del(ctx, k); err != nil {
			r.logger.Warn("chunk cache sweep delete failed", zap.String("key", k), zap.Error(err))
		}
	}
}

func (r *Repo) incSource(src Source) {
	if r.cacheTotal != nil {
		r.cacheTotal.WithLabelValues(string(src)).Inc()
	}
}

func decodeChunks(data []byte) ([]domain.Chunk, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal chunk payload: %w", err)
	}
	return schema.MigrateChunks(raw), nil
}
