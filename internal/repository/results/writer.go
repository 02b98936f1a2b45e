// Package results persists retrieval outputs: one JSON record per question
// inside a timestamped run directory, plus the flat submission CSV handed
// to the answer generator.
package results

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/hopdex/internal/domain"
)

// DefaultLocation is the wall clock for run directory names and record
// timestamps.
var DefaultLocation = time.FixedZone("KST", 9*60*60)

// runDirLayout names run directories after their start time.
const runDirLayout = "060102_150405"

// Run is one output directory, created at construction.
type Run struct {
	dir string
	loc *time.Location
	log *zap.Logger
}

// NewRun creates a run directory under root named after the current time.
func NewRun(root string, loc *time.Location, log *zap.Logger) (*Run, error) {
	return NewRunAt(root, time.Now(), loc, log)
}

// NewRunAt is NewRun with an explicit start time.
func NewRunAt(root string, now time.Time, loc *time.Location, log *zap.Logger) (*Run, error) {
	if loc == nil {
		loc = DefaultLocation
	}
	if log == nil {
		log = zap.NewNop()
	}
	dir := filepath.Join(root, now.In(loc).Format(runDirLayout))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}
	return &Run{dir: dir, loc: loc, log: log}, nil
}

// Dir returns the run directory path.
func (r *Run) Dir() string { return r.dir }

// WriteResult persists one question's retrieval output and returns the
// file path. Each write gets a fresh trial id, so reruns never clobber
// earlier files.
func (r *Run) WriteResult(res domain.RetrievalResult) (string, error) {
	trial := newTrialID()
	record := renderResult(res, time.Now().In(r.loc), trial)

	name := fmt.Sprintf("%s_%s_%s.json", sanitize(res.QID()), sanitize(res.ModelName()), trial)
	path := filepath.Join(r.dir, name)
	if err := writeJSON(path, record); err != nil {
		return "", fmt.Errorf("write result %s: %w", res.QID(), err)
	}

	r.log.Debug("result written", zap.String("qid", res.QID()), zap.String("path", path))
	return path, nil
}

// WriteError records a failed question so the batch output stays complete.
func (r *Run) WriteError(qid, modelName string, cause error) (string, error) {
	trial := newTrialID()
	record := domain.NewRecord()
	record.Set("id", qid)
	record.Set("error", cause.Error())
	record.Set("timestamp", time.Now().In(r.loc).Format(time.RFC3339))
	record.Set("trial_id", trial)

	name := fmt.Sprintf("%s_%s_%s.json", sanitize(qid), sanitize(modelName), trial)
	path := filepath.Join(r.dir, name)
	if err := writeJSON(path, record); err != nil {
		return "", fmt.Errorf("write error record %s: %w", qid, err)
	}

	r.log.Debug("error record written", zap.String("qid", qid), zap.String("path", path))
	return path, nil
}

// SubmissionRow is one question's merged candidate list.
type SubmissionRow struct {
	QID        string
	Candidates []domain.MergedCandidate
}

// WriteSubmission writes the flat CSV: id plus one
// Prediction_retrieved_article_name_N column per candidate slot. Every row
// must carry the same slot count, the merger's fixed-width contract.
func (r *Run) WriteSubmission(name string, rows []SubmissionRow) (string, error) {
	if len(rows) == 0 {
		return "", fmt.Errorf("write submission: no rows")
	}
	width := len(rows[0].Candidates)
	for _, row := range rows {
		if len(row.Candidates) != width {
			return "", fmt.Errorf("write submission: question %s has %d slots, expected %d",
				row.QID, len(row.Candidates), width)
		}
	}

	path := filepath.Join(r.dir, name)
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("write submission: %w", err)
	}

	w := csv.NewWriter(f)
	header := make([]string, 0, width+1)
	header = append(header, "id")
	for i := 1; i <= width; i++ {
		header = append(header, fmt.Sprintf("Prediction_retrieved_article_name_%d", i))
	}
	if err := w.Write(header); err != nil {
		f.Close()
		return "", fmt.Errorf("write submission header: %w", err)
	}
	for _, row := range rows {
		cells := make([]string, 0, width+1)
		cells = append(cells, row.QID)
		for _, c := range row.Candidates {
			cells = append(cells, c.Text())
		}
		if err := w.Write(cells); err != nil {
			f.Close()
			return "", fmt.Errorf("write submission row %s: %w", row.QID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return "", fmt.Errorf("flush submission: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close submission: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("finalize submission: %w", err)
	}

	r.log.Info("submission written",
		zap.String("path", path),
		zap.Int("questions", len(rows)),
		zap.Int("slots", width),
	)
	return path, nil
}

// renderResult shapes one retrieval result into the output record.
func renderResult(res domain.RetrievalResult, now time.Time, trial string) *domain.Record {
	record := domain.NewRecord()
	record.Set("id", res.QID())
	record.Set("model_name", res.ModelName())
	record.Set("timestamp", now.Format(time.RFC3339))
	record.Set("trial_id", trial)

	queries := make([]any, 0, len(res.QueryHits()))
	for _, qh := range res.QueryHits() {
		q := domain.NewRecord()
		q.Set("query", qh.Query().Text())

		prov := qh.Query().Provenance()
		qmeta := domain.NewRecord()
		qmeta.Set("type", string(prov.Type()))
		if prov.Type() == domain.QuerySingleHop {
			qmeta.Set("index", prov.Index())
		}
		q.Set("query_meta", qmeta)

		hits := make([]any, 0, len(qh.Hits()))
		for _, h := range qh.Hits() {
			hits = append(hits, renderHit(h))
		}
		q.Set("hits", hits)
		queries = append(queries, q)
	}
	record.Set("queries", queries)
	record.Set("meta", res.Meta())
	return record
}

// renderHit flattens one hit: fixed keys first, then the document metadata
// spread alongside. Metadata never shadows rank/score/doc_id.
func renderHit(h domain.Hit) *domain.Record {
	out := domain.NewRecord()
	out.Set("rank", h.Rank())
	out.Set("score", h.Score())
	out.Set("doc_id", h.DocID())
	for _, k := range h.Metadata().Keys() {
		if _, taken := out.Get(k); taken {
			continue
		}
		v, _ := h.Metadata().Get(k)
		out.Set(k, v)
	}
	return out
}

func writeJSON(path string, record *domain.Record) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// newTrialID is a short random tag distinguishing repeated runs of one
// question.
func newTrialID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// sanitize makes a value safe for a filename.
func sanitize(v string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, v)
}
