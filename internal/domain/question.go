package domain

import "fmt"

// QuestionItem is one multi-hop question together with its externally
// decomposed single-hop sub-questions. Immutable after creation; the
// retrieval pipeline only reads it.
type QuestionItem struct {
	qid                string
	originalQuestion   string
	singleHopQuestions []string
	meta               *Record
}

// NewQuestionItem validates and creates a QuestionItem. A nil meta becomes
// an empty record so downstream JSON always carries an object.
func NewQuestionItem(qid, originalQuestion string, singleHop []string, meta *Record) (QuestionItem, error) {
	if qid == "" {
		return QuestionItem{}, fmt.Errorf("question id is required")
	}
	if originalQuestion == "" {
		return QuestionItem{}, fmt.Errorf("question %s: original question is required", qid)
	}
	if meta == nil {
		meta = NewRecord()
	}
	hops := make([]string, len(singleHop))
	copy(hops, singleHop)
	return QuestionItem{
		qid:                qid,
		originalQuestion:   originalQuestion,
		singleHopQuestions: hops,
		meta:               meta,
	}, nil
}

// QID returns the question identifier.
func (q *QuestionItem) QID() string { return q.qid }

// OriginalQuestion returns the multi-hop question text.
func (q *QuestionItem) OriginalQuestion() string { return q.originalQuestion }

// SingleHopQuestions returns the decomposed sub-questions as a copy.
func (q *QuestionItem) SingleHopQuestions() []string {
	out := make([]string, len(q.singleHopQuestions))
	copy(out, q.singleHopQuestions)
	return out
}

// Meta returns the free-form metadata record.
func (q *QuestionItem) Meta() *Record { return q.meta }
