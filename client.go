package hopdex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/hopdex/internal/db"
	dbRedis "github.com/kailas-cloud/hopdex/internal/db/redis"
	dbValkey "github.com/kailas-cloud/hopdex/internal/db/valkey"
	"github.com/kailas-cloud/hopdex/internal/domain"
	"github.com/kailas-cloud/hopdex/internal/domain/schema"
	"github.com/kailas-cloud/hopdex/internal/repository/embcache"
	"github.com/kailas-cloud/hopdex/internal/retriever"
	mergeuc "github.com/kailas-cloud/hopdex/internal/usecase/merge"
	retrievaluc "github.com/kailas-cloud/hopdex/internal/usecase/retrieval"
	"github.com/kailas-cloud/hopdex/internal/vectorstore"
)

const defaultReadinessTimeout = 10 * time.Second

// Client is the hopdex SDK entry point. Safe for concurrent use once
// constructed.
type Client struct {
	store        db.Store
	vs           *domain.VectorStore
	retrievalSvc *retrievaluc.Service
	mergeSvc     *mergeuc.Service
}

// New creates a Client: loads the vector store, builds the search backend
// and wires the embedder chain.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		topK:     retrievaluc.DefaultTopK,
		mergeCap: mergeuc.DefaultCap,
	}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	if cfg.storePath == "" || cfg.schemaPath == "" {
		return nil, errors.New("hopdex: vector store and schema paths required (use WithStore)")
	}
	if cfg.embedder == nil {
		return nil, errors.New("hopdex: embedder required (use WithEmbedder)")
	}

	store, err := createCacheStore(cfg)
	if err != nil {
		return nil, err
	}

	c, err := wireClient(store, cfg)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, err
	}
	return c, nil
}

func createCacheStore(cfg *clientConfig) (db.Store, error) {
	var (
		store db.Store
		err   error
	)
	switch cfg.cacheDriver {
	case "":
		return nil, nil
	case "valkey":
		store, err = dbValkey.NewStore(dbValkey.Config{
			Addrs:    cfg.cacheAddrs,
			Password: cfg.cachePassword,
		})
	case "redis":
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.cacheAddrs,
			Password: cfg.cachePassword,
		})
	default:
		return nil, fmt.Errorf("hopdex: unknown cache driver %q", cfg.cacheDriver)
	}
	if err != nil {
		return nil, fmt.Errorf("hopdex: create %s store: %w", cfg.cacheDriver, err)
	}

	if err := store.WaitForReady(context.Background(), defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("hopdex: cache store not ready: %w", err)
	}
	return store, nil
}

func wireClient(store db.Store, cfg *clientConfig) (*Client, error) {
	sch, err := schema.Load(cfg.schemaPath)
	if err != nil {
		return nil, fmt.Errorf("hopdex: load schema: %w", err)
	}
	vs, err := vectorstore.NewLoader(cfg.logger).Load(
		cfg.storePath, sch, vectorstore.Format(cfg.format),
	)
	if err != nil {
		return nil, fmt.Errorf("hopdex: load vector store: %w", err)
	}
	backend, err := retriever.New(retriever.Backend(cfg.backend), vs.Embeddings(), cfg.logger)
	if err != nil {
		return nil, fmt.Errorf("hopdex: build retriever: %w", err)
	}

	// Embedder chain: adapter -> cached -> instruction. The instruction
	// sits outermost so the cache key covers the prefixed text.
	var embedder domain.Embedder = &embedderAdapter{inner: cfg.embedder}
	if store != nil {
		embedder = embcache.New(embedder, cfg.modelName, store, nil, cfg.logger)
	}
	instruction := domain.DefaultInstruction
	if cfg.instruction != nil {
		instruction = *cfg.instruction
	}
	chain := domain.NewInstructionEmbedder(embedder, instruction)

	retrievalSvc := retrievaluc.New(
		vs, retrievaluc.NewEncoder(chain), backend,
		cfg.modelName, cfg.topK, cfg.logger,
	)

	return &Client{
		store:        store,
		vs:           vs,
		retrievalSvc: retrievalSvc,
		mergeSvc:     mergeuc.New(cfg.mergeCap, cfg.mergeSentinel),
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks cache store connectivity. Without a cache it is a no-op.
func (c *Client) Ping(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Len returns the corpus document count.
func (c *Client) Len() int { return c.vs.Len() }

// Dim returns the embedding dimensionality.
func (c *Client) Dim() int { return c.vs.Dim() }

// Backend returns the active search backend name.
func (c *Client) Backend() string { return c.retrievalSvc.Backend() }

// Search answers one ad-hoc query. topK <= 0 uses the configured value.
func (c *Client) Search(ctx context.Context, query string, topK int) ([]Hit, error) {
	hits, err := c.retrievalSvc.Search(ctx, query, topK)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return hitsFromDomain(hits), nil
}

// Retrieve runs the full pipeline for one multi-hop question: batch
// encode, batch search, merge and pad. An empty ID gets a generated one.
func (c *Client) Retrieve(ctx context.Context, q Question) (Result, error) {
	id := q.ID
	if id == "" {
		id = uuid.NewString()
	}
	item, err := domain.NewQuestionItem(id, q.Text, q.SingleHop, nil)
	if err != nil {
		return Result{}, fmt.Errorf("retrieve: %w", err)
	}

	res, err := c.retrievalSvc.Retrieve(ctx, item)
	if err != nil {
		return Result{}, fmt.Errorf("retrieve: %w", err)
	}

	out := Result{ID: res.QID(), Model: res.ModelName()}
	for _, qh := range res.QueryHits() {
		out.Queries = append(out.Queries, QueryResult{
			Query: qh.Query().Text(),
			Type:  string(qh.Query().Provenance().Type()),
			Hits:  hitsFromDomain(qh.Hits()),
		})
	}
	for _, cand := range c.mergeSvc.Merge(res) {
		out.Candidates = append(out.Candidates, Candidate{
			Rank:  cand.Rank(),
			Text:  cand.Text(),
			Empty: cand.IsEmpty(),
		})
	}
	return out, nil
}

// embedderAdapter wraps the public Embedder to satisfy internal contracts.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:   r.Vector,
		TotalTokens: r.TotalTokens,
	}, nil
}

// BatchEmbed uses the inner batch endpoint when available, one call per
// text otherwise.
func (a *embedderAdapter) BatchEmbed(
	ctx context.Context, texts []string,
) (domain.BatchEmbeddingResult, error) {
	if be, ok := a.inner.(BatchEmbedder); ok {
		r, err := be.BatchEmbed(ctx, texts)
		if err != nil {
			return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", err)
		}
		return domain.BatchEmbeddingResult{
			Embeddings:  r.Vectors,
			TotalTokens: r.TotalTokens,
		}, nil
	}
	return domain.BatchFallback(ctx, a, texts)
}
