package navigator

import (
	"time"

	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver   string // "redis" or "memory"
	addrs    []string
	password string

	ingestBaseURL string
	statsPath     string
	chunksPath    string
	metaPath      string
	fetchAttempts uint
	fetchTimeout  time.Duration

	defaultK        int
	maxK            int
	maxContextChars int

	logger *zap.Logger
}

// WithRedis configures the client to persist its cache and overrides in a
// Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithMemoryStore keeps cache and overrides in process memory. Nothing
// survives a restart; intended for tests and single-shot tools.
func WithMemoryStore() Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "memory"
	})
}

// WithIngestBaseURL sets the base URL the dataset files are fetched from.
// Required.
func WithIngestBaseURL(url string) Option {
	return optionFunc(func(c *clientConfig) {
		c.ingestBaseURL = url
	})
}

// WithIngestPaths overrides the default resource paths under the base URL.
func WithIngestPaths(stats, chunks, meta string) Option {
	return optionFunc(func(c *clientConfig) {
		c.statsPath = stats
		c.chunksPath = chunks
		c.metaPath = meta
	})
}

// WithFetchPolicy sets the retry attempts and per-request timeout for
// dataset fetches. Defaults: 3 attempts, 15s timeout.
func WithFetchPolicy(attempts uint, timeout time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.fetchAttempts = attempts
		c.fetchTimeout = timeout
	})
}

// WithRetrieval sets the retrieval limits. Defaults: defaultK=5, maxK=50,
// maxContextChars=8000.
func WithRetrieval(defaultK, maxK, maxContextChars int) Option {
	return optionFunc(func(c *clientConfig) {
		c.defaultK = defaultK
		c.maxK = maxK
		c.maxContextChars = maxContextChars
	})
}

// WithLogger enables structured logging for client operations.
// Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}
