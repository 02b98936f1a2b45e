package hopdex

import "go.uber.org/zap"

// Option configures the Client.
type Option func(*clientConfig)

type clientConfig struct {
	storePath  string
	schemaPath string
	format     string
	backend    string
	topK       int

	mergeCap      int
	mergeSentinel string

	embedder    Embedder
	modelName   string
	instruction *string

	cacheDriver   string // "redis" or "valkey"
	cacheAddrs    []string
	cachePassword string

	logger *zap.Logger
}

// WithStore sets the vector store file and its schema descriptor.
func WithStore(storePath, schemaPath string) Option {
	return func(c *clientConfig) {
		c.storePath = storePath
		c.schemaPath = schemaPath
	}
}

// WithFormat forces the store file format ("csv" or "parquet"). The
// default picks by file extension.
func WithFormat(format string) Option {
	return func(c *clientConfig) {
		c.format = format
	}
}

// WithBackend forces the search backend ("flat" or "matrix"). The default
// tries the SIMD flat index first and falls back to the matmul backend.
func WithBackend(backend string) Option {
	return func(c *clientConfig) {
		c.backend = backend
	}
}

// WithTopK sets the per-query hit count used by Retrieve.
func WithTopK(topK int) Option {
	return func(c *clientConfig) {
		c.topK = topK
	}
}

// WithMerge sets the merged candidate list length and the padding
// sentinel.
func WithMerge(cap int, sentinel string) Option {
	return func(c *clientConfig) {
		c.mergeCap = cap
		c.mergeSentinel = sentinel
	}
}

// WithEmbedder sets the query embedder. Required.
func WithEmbedder(e Embedder) Option {
	return func(c *clientConfig) {
		c.embedder = e
	}
}

// WithModelName sets the model identifier recorded in results.
func WithModelName(name string) Option {
	return func(c *clientConfig) {
		c.modelName = name
	}
}

// WithInstruction overrides the retrieval instruction prepended to every
// query. An empty string disables the prefix; the default is the built-in
// asymmetric retrieval instruction.
func WithInstruction(instruction string) Option {
	return func(c *clientConfig) {
		c.instruction = &instruction
	}
}

// WithRedisCache caches embeddings in a Redis instance.
func WithRedisCache(addr, password string) Option {
	return func(c *clientConfig) {
		c.cacheDriver = "redis"
		c.cacheAddrs = []string{addr}
		c.cachePassword = password
	}
}

// WithValkeyCache caches embeddings in a Valkey instance.
func WithValkeyCache(addr, password string) Option {
	return func(c *clientConfig) {
		c.cacheDriver = "valkey"
		c.cacheAddrs = []string{addr}
		c.cachePassword = password
	}
}

// WithLogger sets the logger. The default is a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *clientConfig) {
		c.logger = logger
	}
}
