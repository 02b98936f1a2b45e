// Package questions reads the JSONL question input produced by the
// external decomposition step and narrows it to the requested subset.
package questions

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"

	"github.com/kailas-cloud/hopdex/internal/domain"
)

// maxLineBytes bounds one JSONL record. Meta blocks carry abstracts, so
// the default 64K scanner limit is not enough.
const maxLineBytes = 4 << 20

// Repository reads question files.
type Repository struct {
	log *zap.Logger
}

// New creates a question repository.
func New(log *zap.Logger) *Repository {
	if log == nil {
		log = zap.NewNop()
	}
	return &Repository{log: log}
}

// Load reads one QuestionItem per line. Blank lines are skipped; a
// malformed line aborts the load with its line number.
func (r *Repository) Load(path string) ([]domain.QuestionItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("questions %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var items []domain.QuestionItem
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		item, err := parseItem(raw)
		if err != nil {
			return nil, fmt.Errorf("questions %s line %d: %w", path, line, err)
		}
		items = append(items, item)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("questions %s: %w", path, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("questions %s: no records", path)
	}

	r.log.Info("questions loaded", zap.String("path", path), zap.Int("count", len(items)))
	return items, nil
}

func parseItem(raw []byte) (domain.QuestionItem, error) {
	var envelope struct {
		ID       any             `json:"id"`
		Original string          `json:"original_question"`
		Question string          `json:"question"`
		Hops     []string        `json:"single_hop_questions"`
		Meta     json.RawMessage `json:"meta"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return domain.QuestionItem{}, err
	}

	qid, err := idString(envelope.ID)
	if err != nil {
		return domain.QuestionItem{}, err
	}

	// original_question выигрывает у алиаса question.
	question := envelope.Original
	if question == "" {
		question = envelope.Question
	}

	meta := domain.NewRecord()
	if len(envelope.Meta) > 0 && !bytes.Equal(envelope.Meta, []byte("null")) {
		if err := json.Unmarshal(envelope.Meta, meta); err != nil {
			return domain.QuestionItem{}, fmt.Errorf("meta: %w", err)
		}
	}

	return domain.NewQuestionItem(qid, question, envelope.Hops, meta)
}

// idString accepts string and numeric ids, the two shapes decomposition
// outputs produce.
func idString(v any) (string, error) {
	switch id := v.(type) {
	case string:
		return id, nil
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64), nil
	case nil:
		return "", fmt.Errorf("missing id")
	default:
		return "", fmt.Errorf("id must be a string or number, got %T", v)
	}
}

// FilterByIDs keeps the items whose id is listed, in listed order with
// first-seen dedup. Unknown ids fail the whole selection.
func FilterByIDs(items []domain.QuestionItem, ids []string) ([]domain.QuestionItem, error) {
	byID := make(map[string]domain.QuestionItem, len(items))
	for _, it := range items {
		byID[it.QID()] = it
	}

	seen := make(map[string]bool, len(ids))
	out := make([]domain.QuestionItem, 0, len(ids))
	var missing []string
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		it, ok := byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		out = append(out, it)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: unknown question ids %v", domain.ErrNotFound, missing)
	}
	return out, nil
}

// FilterByIndexes keeps the items at the given 0-based positions, in given
// order with first-seen dedup.
func FilterByIndexes(items []domain.QuestionItem, idxs []int) ([]domain.QuestionItem, error) {
	seen := make(map[int]bool, len(idxs))
	out := make([]domain.QuestionItem, 0, len(idxs))
	for _, idx := range idxs {
		if seen[idx] {
			continue
		}
		seen[idx] = true
		if idx < 0 || idx >= len(items) {
			return nil, fmt.Errorf("question index %d out of range [0, %d)", idx, len(items))
		}
		out = append(out, items[idx])
	}
	return out, nil
}

// FilterByRange keeps items[from:to), clamped slice-style: negative from
// becomes 0, to past the end becomes the end, an inverted range is empty.
func FilterByRange(items []domain.QuestionItem, from, to int) []domain.QuestionItem {
	if from < 0 {
		from = 0
	}
	if to > len(items) || to < 0 {
		to = len(items)
	}
	if from >= to {
		return nil
	}
	return items[from:to]
}
