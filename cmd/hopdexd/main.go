package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/hopdex/internal/config"
	"github.com/kailas-cloud/hopdex/internal/db"
	dbRedis "github.com/kailas-cloud/hopdex/internal/db/redis"
	dbValkey "github.com/kailas-cloud/hopdex/internal/db/valkey"
	"github.com/kailas-cloud/hopdex/internal/domain"
	"github.com/kailas-cloud/hopdex/internal/domain/schema"
	logpkg "github.com/kailas-cloud/hopdex/internal/logger"
	"github.com/kailas-cloud/hopdex/internal/metrics"
	budgetrepo "github.com/kailas-cloud/hopdex/internal/repository/budget"
	"github.com/kailas-cloud/hopdex/internal/repository/embcache"
	"github.com/kailas-cloud/hopdex/internal/retriever"
	chiTransport "github.com/kailas-cloud/hopdex/internal/transport/chi"
	langchainEmb "github.com/kailas-cloud/hopdex/internal/transport/langchain"
	openaiEmb "github.com/kailas-cloud/hopdex/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/hopdex/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/hopdex/internal/usecase/health"
	mergeuc "github.com/kailas-cloud/hopdex/internal/usecase/merge"
	retrievaluc "github.com/kailas-cloud/hopdex/internal/usecase/retrieval"
	usageuc "github.com/kailas-cloud/hopdex/internal/usecase/usage"
	"github.com/kailas-cloud/hopdex/internal/vectorstore"
	"github.com/kailas-cloud/hopdex/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting hopdex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("store_path", cfg.Retrieval.StorePath),
		zap.String("backend", cfg.Retrieval.Backend),
	)

	ctx := context.Background()

	// Optional embedding cache store
	var store db.Store
	if cfg.Cache.Enabled() {
		switch cfg.Cache.Driver {
		case "valkey":
			store, err = dbValkey.NewStore(dbValkey.Config{
				Addrs:    cfg.Cache.Addrs,
				Password: cfg.Cache.Password,
			})
		case "redis":
			store, err = dbRedis.NewStore(dbRedis.Config{
				Addrs:    cfg.Cache.Addrs,
				Password: cfg.Cache.Password,
			})
		default:
			logger.Fatal("Unknown cache driver", zap.String("driver", cfg.Cache.Driver))
		}
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer store.Close()

		if err := store.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Cache store not ready", zap.Error(err))
		}
		logger.Info("Connected to cache store", zap.String("driver", cfg.Cache.Driver))
	} else {
		logger.Info("Embedding cache disabled, every query hits the provider")
	}

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterRetrievalMetrics()

	vecCfg := cfg.Embedding.Vectorizer
	provCfg := cfg.Embedding.Providers[vecCfg.Provider]

	// Single BudgetTracker shared by the embedder chain and usage service.
	var budget *embeddinguc.BudgetTracker
	budgetCfg := provCfg.Budget
	if budgetCfg.DailyTokenLimit > 0 || budgetCfg.MonthlyTokenLimit > 0 {
		action := embeddinguc.BudgetActionWarn
		if budgetCfg.Action == "reject" {
			action = embeddinguc.BudgetActionReject
		}
		budget = embeddinguc.NewBudgetTracker(
			vecCfg.Provider, budgetCfg.DailyTokenLimit, budgetCfg.MonthlyTokenLimit, action, logger,
		)
		if store != nil {
			// Connect persistence store — loads current counters from DB.
			budgetStore := budgetrepo.New(store, 48*time.Hour, 62*24*time.Hour)
			budget.WithStore(ctx, budgetStore)
		}
	}

	// Pass nil interface (not typed nil pointer!) if budget is not configured.
	// Go gotcha: (*BudgetTracker)(nil) wrapped in BudgetChecker != nil.
	var budgetChecker embeddinguc.BudgetChecker
	if budget != nil {
		budgetChecker = budget
	}

	base, err := newProvider(vecCfg, provCfg, logger)
	if err != nil {
		logger.Fatal("Failed to create embedding provider", zap.Error(err))
	}
	queryEmbedder := buildQueryEmbedder(base, vecCfg, store, budgetChecker, logger)
	logger.Info("Query embedder created",
		zap.String("provider", vecCfg.Provider),
		zap.String("model", vecCfg.Model),
		zap.Int("dimensions", vecCfg.Dimensions),
	)

	// Load the corpus and build the search backend
	sch, err := schema.Load(cfg.Retrieval.SchemaPath)
	if err != nil {
		logger.Fatal("Failed to load schema", zap.Error(err))
	}
	vs, err := vectorstore.NewLoader(logger).Load(
		cfg.Retrieval.StorePath, sch, vectorstore.Format(cfg.Retrieval.Format),
	)
	if err != nil {
		logger.Fatal("Failed to load vector store", zap.Error(err))
	}
	backend, err := retriever.New(retriever.Backend(cfg.Retrieval.Backend), vs.Embeddings(), logger)
	if err != nil {
		logger.Fatal("Failed to build retriever", zap.Error(err))
	}
	logger.Info("Corpus loaded",
		zap.Int("documents", vs.Len()),
		zap.Int("dimensions", vs.Dim()),
		zap.String("backend", backend.Name()),
	)

	// Create use case services
	retrievalSvc := retrievaluc.New(
		vs, retrievaluc.NewEncoder(queryEmbedder), backend,
		vecCfg.Model, cfg.Retrieval.TopK, logger,
	)
	mergeSvc := mergeuc.New(cfg.Merge.Cap, cfg.Merge.Sentinel)

	var budgetReader usageuc.BudgetReader
	if budget != nil {
		budgetReader = budget
	}
	usageSvc := usageuc.New(budgetReader)

	var cachePinger healthuc.CachePinger
	if store != nil {
		cachePinger = store
	}
	healthSvc := healthuc.New(cachePinger, newEmbeddingHealthChecker(base))

	// Create chi server
	server := chiTransport.NewServer(retrievalSvc, mergeSvc, usageSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// provider is what a base embedding transport must offer before decoration.
type provider interface {
	domain.Embedder
	domain.BatchEmbedder
	domain.HealthChecker
}

// newProvider creates the base embedding transport for the configured provider.
func newProvider(
	vecCfg config.VectorizerConfig, provCfg config.ProviderConfig, logger *zap.Logger,
) (provider, error) {
	switch vecCfg.Provider {
	case "langchain":
		return langchainEmb.NewEmbedder(&langchainEmb.Config{
			Token:    provCfg.APIKey,
			BaseURL:  provCfg.BaseURL,
			Model:    vecCfg.Model,
			Provider: vecCfg.Provider,
			Logger:   logger,
		})
	case "openai", "":
		return openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     provCfg.APIKey,
			BaseURL:    provCfg.BaseURL,
			Model:      vecCfg.Model,
			Dimensions: vecCfg.Dimensions,
			Provider:   vecCfg.Provider,
			Logger:     logger,
		}), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", vecCfg.Provider)
	}
}

// buildQueryEmbedder assembles the decorator chain:
// provider -> Cached -> Metered -> Instruction.
// The instruction sits outermost so the cache key covers the prefixed text.
func buildQueryEmbedder(
	base provider,
	vecCfg config.VectorizerConfig,
	store db.Store,
	budget embeddinguc.BudgetChecker,
	logger *zap.Logger,
) *domain.InstructionEmbedder {
	var embedder domain.Embedder = base
	if store != nil {
		embedder = embcache.New(base, vecCfg.Model, store, metrics.EmbeddingCacheTotal, logger)
	}

	embedder = embeddinguc.NewMeteredEmbedder(
		embedder, vecCfg.Provider, vecCfg.Model, budget, logger,
	)

	return domain.NewInstructionEmbedder(embedder, queryInstruction(vecCfg))
}

// queryInstruction resolves the tri-state instruction setting: absent uses
// the built-in retrieval prefix, an explicit empty string disables it.
func queryInstruction(vecCfg config.VectorizerConfig) string {
	if vecCfg.QueryInstruction == nil {
		return domain.DefaultInstruction
	}
	return *vecCfg.QueryInstruction
}

// embeddingHealthChecker adapts the base provider to health.EmbeddingChecker.
type embeddingHealthChecker struct {
	checker domain.HealthChecker
}

func newEmbeddingHealthChecker(checker domain.HealthChecker) *embeddingHealthChecker {
	return &embeddingHealthChecker{checker: checker}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if err := h.checker.HealthCheck(ctx); err != nil {
		return fmt.Errorf("embedding health check: %w", err)
	}
	return nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
