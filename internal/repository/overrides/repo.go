// Package overrides persists the operator override document and its
// append-only history log in the key-value store. The current document
// lives under a single key; every accepted write adds one history entry.
package overrides

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/db"
	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/domain"
)

const (
	currentKey       = "overrides:current"
	historyKeyPrefix = "overrides:history:"
	historyPattern   = historyKeyPrefix + "*"

	// DefaultHistoryLimit bounds history retrieval when the caller passes
	// no explicit limit.
	DefaultHistoryLimit = 50
)

// HistoryEntry is one line of the override audit log.
type HistoryEntry struct {
	ID          string    `json:"id"`
	At          time.Time `json:"at"`
	Action      string    `json:"action"`
	Description string    `json:"description"`
}

// store is the consumer interface for override persistence (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo reads and writes the override document and history log.
type Repo struct {
	store  store
	logger *zap.Logger
	now    func() time.Time
}

// New creates an overrides repository.
func New(s store, logger *zap.Logger) *Repo {
	return &Repo{store: s, logger: logger, now: time.Now}
}

// WithClock replaces the time source (test-only).
func (r *Repo) WithClock(now func() time.Time) *Repo {
	r.now = now
	return r
}

// Load returns the current override document, or a fresh empty one when
// none has been saved yet.
func (r *Repo) Load(ctx context.Context) (*domain.Overrides, error) {
	data, err := r.store.Get(ctx, currentKey)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.NewOverrides(), nil
		}
		return nil, fmt.Errorf("load overrides: %w", err)
	}

	var doc domain.Overrides
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode stored overrides: %w", err)
	}
	if doc.Version == 0 {
		doc.Version = domain.OverridesVersion
	}
	return &doc, nil
}

// Save stores the document as the current one and appends a history entry
// describing the action. Concurrent saves are last-write-wins; acceptable
// for the single-operator usage pattern.
func (r *Repo) Save(ctx context.Context, doc *domain.Overrides, action, description string) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode overrides: %w", err)
	}
	if err := r.store.Set(ctx, currentKey, data); err != nil {
		return fmt.Errorf("save overrides: %w", err)
	}
	r.appendHistory(ctx, action, description)
	return nil
}

// Reset clears the current document and logs the reset.
func (r *Repo) Reset(ctx context.Context) error {
	if err := r.store.Del(ctx, currentKey); err != nil {
		return fmt.Errorf("reset overrides: %w", err)
	}
	r.appendHistory(ctx, "reset", "all overrides cleared")
	return nil
}

// History returns up to limit entries, most recent first.
func (r *Repo) History(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	keys, err := r.store.Scan(ctx, historyPattern)
	if err != nil {
		return nil, fmt.Errorf("scan history: %w", err)
	}
	// Keys embed a zero-padded nanosecond timestamp, so lexicographic
	// descending order is chronological descending order.
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	if len(keys) > limit {
		keys = keys[:limit]
	}

	entries := make([]HistoryEntry, 0, len(keys))
	for _, k := range keys {
		data, err := r.store.Get(ctx, k)
		if err != nil {
			if errors.Is(err, db.ErrKeyNotFound) {
				continue
			}
			return nil, fmt.Errorf("load history entry %s: %w", k, err)
		}
		var e HistoryEntry
		if err := json.Unmarshal(data, &e); err != nil {
			r.logger.Warn("undecodable history entry skipped", zap.String("key", k), zap.Error(err))
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// appendHistory writes one audit entry. History is advisory: a write
// failure is logged, not propagated, so it cannot block an accepted save.
func (r *Repo) appendHistory(ctx context.Context, action, description string) {
	now := r.now().UTC()
	e := HistoryEntry{
		ID:          uuid.NewString(),
		At:          now,
		Action:      action,
		Description: description,
	}
	data, err := json.Marshal(e)
	if err != nil {
		r.logger.Warn("encode history entry failed", zap.Error(err))
		return
	}
	key := fmt.Sprintf("%s%020d:%s", historyKeyPrefix, now.UnixNano(), e.ID)
	if err := r.store.Set(ctx, key, data); err != nil {
		r.logger.Warn("append history entry failed", zap.String("key", key), zap.Error(err))
	}
}

// describePatch renders a short human-readable summary of a chunk patch
// for the history log.
func describePatch(key string, p domain.ChunkPatch) string {
	var parts []string
	if p.Section != nil {
		parts = append(parts, "section="+*p.Section)
	}
	if p.Muted != nil {
		parts = append(parts, fmt.Sprintf("muted=%t", *p.Muted))
	}
	if p.Boost != nil {
		parts = append(parts, fmt.Sprintf("boost=%.2f", *p.Boost))
	}
	if len(parts) == 0 {
		return key + " cleared"
	}
	return key + " " + strings.Join(parts, " ")
}

// DescribeChunkPatch is the exported form used by the admin layer when it
// logs a single chunk-level action.
func DescribeChunkPatch(programID string, page int, p domain.ChunkPatch) string {
	return describePatch(domain.ChunkKey(programID, page), p)
}
