// Package batch fans independent questions out to a bounded worker pool
// and collects per-question outcomes keyed by question id.
package batch

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/hopdex/internal/domain"
)

// Outcome is one question's terminal state within a run.
type Outcome struct {
	QID        string
	Candidates []domain.MergedCandidate
	Err        error
}

// Report aggregates a whole run. Outcomes are keyed by question id, never
// by submission order: workers finish in any order.
type Report struct {
	Outcomes    map[string]Outcome
	Order       []string // attempted qids in input order
	Succeeded   int
	Failed      int
	Skipped     int // not submitted after cancellation
	TotalTokens int
	Elapsed     time.Duration
}

// Service runs the retrieval pipeline over many questions concurrently.
// The retriever and its underlying store are shared read-only across
// workers; the only mutation is the outcome map under the run mutex.
type Service struct {
	retriever  Retriever
	merger     Merger
	sink       Sink
	modelName  string
	poolSize   int
	log        *zap.Logger
	onProgress func(done, total int)
}

// New creates a batch service. poolSize <= 0 falls back to half the CPUs,
// minimum one worker.
func New(
	retriever Retriever, merger Merger, sink Sink,
	modelName string, poolSize int, log *zap.Logger,
) *Service {
	if poolSize <= 0 {
		poolSize = runtime.NumCPU() / 2
		if poolSize < 1 {
			poolSize = 1
		}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		retriever: retriever,
		merger:    merger,
		sink:      sink,
		modelName: modelName,
		poolSize:  poolSize,
		log:       log,
	}
}

// WithProgress registers a completion callback, invoked once per finished
// question with the running total.
func (s *Service) WithProgress(fn func(done, total int)) *Service {
	s.onProgress = fn
	return s
}

// PoolSize returns the worker count.
func (s *Service) PoolSize() int { return s.poolSize }

// Run processes every item. A failed question is recorded as an error
// outcome and an error file; the run continues. Cancelling the context
// stops submitting new questions, in-flight ones finish. The returned
// error covers pool construction only, never per-question failures.
func (s *Service) Run(ctx context.Context, items []domain.QuestionItem) (*Report, error) {
	pool, err := ants.NewPool(s.poolSize)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	report := &Report{Outcomes: make(map[string]Outcome, len(items))}
	start := time.Now()
	total := len(items)

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		done int
	)

	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		report.Order = append(report.Order, item.QID())

		item := item
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			out, tokens := s.runOne(ctx, item)

			mu.Lock()
			report.Outcomes[item.QID()] = out
			report.TotalTokens += tokens
			if out.Err != nil {
				report.Failed++
			} else {
				report.Succeeded++
			}
			done++
			d := done
			mu.Unlock()

			if s.onProgress != nil {
				s.onProgress(d, total)
			}
		}); err != nil {
			wg.Done()
			mu.Lock()
			report.Outcomes[item.QID()] = Outcome{QID: item.QID(), Err: fmt.Errorf("submit: %w", err)}
			report.Failed++
			mu.Unlock()
		}
	}

	wg.Wait()
	report.Skipped = total - len(report.Order)
	report.Elapsed = time.Since(start)

	s.log.Info("batch finished",
		zap.Int("questions", total),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped),
		zap.Int("total_tokens", report.TotalTokens),
		zap.Duration("elapsed", report.Elapsed),
	)
	return report, nil
}

// runOne executes one question end to end. Token usage is collected per
// task and merged by the caller: the shared context collector is not safe
// for concurrent writers.
func (s *Service) runOne(ctx context.Context, item domain.QuestionItem) (Outcome, int) {
	tctx, usage := domain.NewContextWithUsage(ctx)

	res, err := s.retriever.Retrieve(tctx, item)
	if err != nil {
		s.log.Warn("question failed", zap.String("qid", item.QID()), zap.Error(err))
		if _, werr := s.sink.WriteError(item.QID(), s.modelName, err); werr != nil {
			s.log.Error("error record write failed", zap.String("qid", item.QID()), zap.Error(werr))
		}
		return Outcome{QID: item.QID(), Err: err}, usage.TotalTokens
	}

	if _, werr := s.sink.WriteResult(res); werr != nil {
		s.log.Error("result write failed", zap.String("qid", item.QID()), zap.Error(werr))
		return Outcome{QID: item.QID(), Err: werr}, usage.TotalTokens
	}

	return Outcome{QID: item.QID(), Candidates: s.merger.Merge(res)}, usage.TotalTokens
}
