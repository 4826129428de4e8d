package db

import (
	"context"
	"time"
)

// Store is the durable key-value facade backing the chunk cache and the
// override document. Consumers depend on narrow sub-interfaces (ISP).
type Store interface {
	Pinger
	KVStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides the key-value operations the repositories need:
// plain get/set/delete plus prefix scanning for the cache sweep and the
// history log.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}
