// Package ingest fetches the three static ingestion resources (stats,
// chunks, program metadata) over HTTP and runs them through schema
// migration. Fetch failures propagate as errors; the caller decides how to
// degrade.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"

	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/domain"
	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/schema"
)

// Config holds the resource locations and retry policy.
type Config struct {
	BaseURL    string
	StatsPath  string
	ChunksPath string
	MetaPath   string
	Timeout    time.Duration
	Attempts   uint
	RetryDelay time.Duration
}

// Client fetches ingestion resources.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

// NewClient creates an ingestion client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 200 * time.Millisecond
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// LoadStats fetches and migrates the build stats document. Stats are small
// and must always be fresh, so they are never cached.
func (c *Client) LoadStats(ctx context.Context) (domain.BuildStats, error) {
	raw, err := c.fetchJSON(ctx, c.cfg.StatsPath)
	if err != nil {
		return domain.BuildStats{}, fmt.Errorf("%w: stats: %w", domain.ErrIngestUnavailable, err)
	}
	return schema.MigrateStats(raw), nil
}

// FetchChunksRaw fetches the raw chunk payload without decoding it, so the
// cache layer can persist the exact serialized bytes.
func (c *Client) FetchChunksRaw(ctx context.Context) ([]byte, error) {
	data, err := c.fetchBytes(ctx, c.cfg.ChunksPath)
	if err != nil {
		return nil, fmt.Errorf("%w: chunks: %w", domain.ErrIngestUnavailable, err)
	}
	return data, nil
}

// LoadMeta fetches and migrates the program metadata array.
func (c *Client) LoadMeta(ctx context.Context) ([]domain.ProgramMeta, error) {
	raw, err := c.fetchJSON(ctx, c.cfg.MetaPath)
	if err != nil {
		return nil, fmt.Errorf("%w: meta: %w", domain.ErrIngestUnavailable, err)
	}
	return schema.MigrateMeta(raw), nil
}

func (c *Client) fetchJSON(ctx context.Context, path string) (any, error) {
	data, err := c.fetchBytes(ctx, path)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return v, nil
}

func (c *Client) fetchBytes(ctx context.Context, path string) ([]byte, error) {
	url := c.cfg.BaseURL + path

	var body []byte
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			resp, err := c.http.Do(req)
			if err != nil {
				return err
			}
			defer func() { _ = resp.Body.Close() }()

			if resp.StatusCode != http.StatusOK {
				err := fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
				if resp.StatusCode >= 400 && resp.StatusCode < 500 {
					return retry.Unrecoverable(err)
				}
				return err
			}

			body, err = io.ReadAll(resp.Body)
			return err
		},
		retry.Attempts(c.cfg.Attempts),
		retry.Delay(c.cfg.RetryDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("ingest fetch retry",
				zap.String("url", url),
				zap.Uint("attempt", n+1),
				zap.Error(err),
			)
		}),
	)
	if err != nil {
		return nil, err
	}
	return body, nil
}
