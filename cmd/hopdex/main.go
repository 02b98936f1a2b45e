// Command hopdex runs the retrieval pipeline over a question file and
// writes per-question JSON records plus the flat submission CSV.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
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
	questionsrepo "github.com/kailas-cloud/hopdex/internal/repository/questions"
	"github.com/kailas-cloud/hopdex/internal/repository/results"
	"github.com/kailas-cloud/hopdex/internal/retriever"
	langchainEmb "github.com/kailas-cloud/hopdex/internal/transport/langchain"
	openaiEmb "github.com/kailas-cloud/hopdex/internal/transport/openai"
	batchuc "github.com/kailas-cloud/hopdex/internal/usecase/batch"
	embeddinguc "github.com/kailas-cloud/hopdex/internal/usecase/embedding"
	mergeuc "github.com/kailas-cloud/hopdex/internal/usecase/merge"
	retrievaluc "github.com/kailas-cloud/hopdex/internal/usecase/retrieval"
	"github.com/kailas-cloud/hopdex/internal/vectorstore"
	"github.com/kailas-cloud/hopdex/internal/version"
)

func main() {
	var (
		questionsPath = flag.String("questions", "", "path to the question JSONL/JSON file (required)")
		idsArg        = flag.String("ids", "", "comma-separated question ids to run")
		idxArg        = flag.String("idx", "", "comma-separated 0-based question indexes to run")
		fromArg       = flag.Int("from", -1, "range start index, inclusive")
		toArg         = flag.Int("to", -1, "range end index, exclusive")
		workersArg    = flag.Int("workers", 0, "worker pool size, 0 uses the config value")
		submissionArg = flag.String("submission", "submission.csv", "submission CSV filename")
		showVersion   = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("hopdex %s\n", version.String())
		return
	}
	if *questionsPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		fatalf("load config: %v", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		fatalf("create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting hopdex batch run",
		zap.String("version", version.Version),
		zap.String("env", env),
		zap.String("questions", *questionsPath),
		zap.String("store_path", cfg.Retrieval.StorePath),
	)

	ctx := context.Background()
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterRetrievalMetrics()

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
	}

	vecCfg := cfg.Embedding.Vectorizer
	provCfg := cfg.Embedding.Providers[vecCfg.Provider]

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
			budget.WithStore(ctx, budgetrepo.New(store, 48*time.Hour, 62*24*time.Hour))
		}
	}
	var budgetChecker embeddinguc.BudgetChecker
	if budget != nil {
		budgetChecker = budget
	}

	queryEmbedder, err := buildQueryEmbedder(vecCfg, provCfg, store, budgetChecker, logger)
	if err != nil {
		logger.Fatal("Failed to create embedder", zap.Error(err))
	}

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

	// Load and select questions
	items, err := questionsrepo.New(logger).Load(*questionsPath)
	if err != nil {
		logger.Fatal("Failed to load questions", zap.Error(err))
	}
	items, err = selectQuestions(items, *idsArg, *idxArg, *fromArg, *toArg)
	if err != nil {
		logger.Fatal("Failed to select questions", zap.Error(err))
	}
	if len(items) == 0 {
		logger.Fatal("No questions selected")
	}

	// Result sink
	loc, err := time.LoadLocation(cfg.Output.Timezone)
	if err != nil {
		logger.Warn("Unknown timezone, using default", zap.String("timezone", cfg.Output.Timezone))
		loc = results.DefaultLocation
	}
	run, err := results.NewRun(cfg.Output.Dir, loc, logger)
	if err != nil {
		logger.Fatal("Failed to create run directory", zap.Error(err))
	}

	retrievalSvc := retrievaluc.New(
		vs, retrievaluc.NewEncoder(queryEmbedder), backend,
		vecCfg.Model, cfg.Retrieval.TopK, logger,
	)
	mergeSvc := mergeuc.New(cfg.Merge.Cap, cfg.Merge.Sentinel)

	workers := *workersArg
	if workers <= 0 {
		workers = cfg.Batch.Workers
	}
	bar := progressbar.Default(int64(len(items)), "retrieving")
	runner := batchuc.New(retrievalSvc, mergeSvc, run, vecCfg.Model, workers, logger).
		WithProgress(func(done, _ int) { _ = bar.Set(done) })

	report, err := runner.Run(ctx, items)
	if err != nil {
		logger.Fatal("Batch run failed", zap.Error(err))
	}
	_ = bar.Finish()

	// Flat submission CSV, successful questions only, input order.
	rows := make([]results.SubmissionRow, 0, len(report.Order))
	for _, qid := range report.Order {
		out := report.Outcomes[qid]
		if out.Err != nil {
			continue
		}
		rows = append(rows, results.SubmissionRow{QID: qid, Candidates: out.Candidates})
	}
	if len(rows) > 0 {
		if _, err := run.WriteSubmission(*submissionArg, rows); err != nil {
			logger.Fatal("Failed to write submission", zap.Error(err))
		}
	} else {
		logger.Warn("No successful questions, submission skipped")
	}

	logger.Info("Batch run complete",
		zap.String("dir", run.Dir()),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped),
		zap.Int("total_tokens", report.TotalTokens),
		zap.Duration("elapsed", report.Elapsed),
	)
	if report.Failed > 0 {
		os.Exit(1)
	}
}

// selectQuestions applies at most one selection flag: ids, indexes or a
// half-open range. No flags runs everything.
func selectQuestions(
	items []domain.QuestionItem, idsArg, idxArg string, from, to int,
) ([]domain.QuestionItem, error) {
	switch {
	case idsArg != "":
		return questionsrepo.FilterByIDs(items, strings.Split(idsArg, ","))
	case idxArg != "":
		parts := strings.Split(idxArg, ",")
		idxs := make([]int, len(parts))
		for i, p := range parts {
			n, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil {
				return nil, fmt.Errorf("parse index %q: %w", p, err)
			}
			idxs[i] = n
		}
		return questionsrepo.FilterByIndexes(items, idxs)
	case from >= 0 || to >= 0:
		if from < 0 {
			from = 0
		}
		if to < 0 {
			to = len(items)
		}
		return questionsrepo.FilterByRange(items, from, to), nil
	default:
		return items, nil
	}
}

// buildQueryEmbedder assembles the decorator chain:
// provider -> Cached -> Metered -> Instruction.
// The instruction sits outermost so the cache key covers the prefixed text.
func buildQueryEmbedder(
	vecCfg config.VectorizerConfig,
	provCfg config.ProviderConfig,
	store db.Store,
	budget embeddinguc.BudgetChecker,
	logger *zap.Logger,
) (*domain.InstructionEmbedder, error) {
	var base domain.Embedder
	switch vecCfg.Provider {
	case "langchain":
		e, err := langchainEmb.NewEmbedder(&langchainEmb.Config{
			Token:    provCfg.APIKey,
			BaseURL:  provCfg.BaseURL,
			Model:    vecCfg.Model,
			Provider: vecCfg.Provider,
			Logger:   logger,
		})
		if err != nil {
			return nil, err
		}
		base = e
	case "openai", "":
		base = openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     provCfg.APIKey,
			BaseURL:    provCfg.BaseURL,
			Model:      vecCfg.Model,
			Dimensions: vecCfg.Dimensions,
			Provider:   vecCfg.Provider,
			Logger:     logger,
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", vecCfg.Provider)
	}

	embedder := base
	if store != nil {
		embedder = embcache.New(base, vecCfg.Model, store, metrics.EmbeddingCacheTotal, logger)
	}
	embedder = embeddinguc.NewMeteredEmbedder(
		embedder, vecCfg.Provider, vecCfg.Model, budget, logger,
	)

	instruction := domain.DefaultInstruction
	if vecCfg.QueryInstruction != nil {
		instruction = *vecCfg.QueryInstruction
	}
	return domain.NewInstructionEmbedder(embedder, instruction), nil
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "hopdex: "+format+"\n", args...)
	os.Exit(1)
}
