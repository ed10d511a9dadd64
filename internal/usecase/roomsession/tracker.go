package roomsession

import (
	"github.com/hireflow-dev/interview-room/internal/domain/entities"
	usecaseErrors "github.com/hireflow-dev/interview-room/internal/usecase/errors"
)

// QuestionTracker holds the room's question-bank entries and enforces their
// secondary lifecycle: PENDING -> SENT exactly once, evaluation settable only
// after SENT. The status never regresses.
//
// Not safe for concurrent use; the owning session serializes access.
type QuestionTracker struct {
	byID  map[int64]*entities.InterviewQuestion
	order []int64
}

// NewQuestionTracker creates a tracker seeded with the backend's question list
func NewQuestionTracker(questions []entities.InterviewQuestion) *QuestionTracker {
	t := &QuestionTracker{
		byID: make(map[int64]*entities.InterviewQuestion, len(questions)),
	}
	for i := range questions {
		q := questions[i]
		if _, ok := t.byID[q.ID]; ok {
			continue
		}
		t.byID[q.ID] = &q
		t.order = append(t.order, q.ID)
	}
	return t
}

// Get returns a copy of the question with the given id
func (t *QuestionTracker) Get(id int64) (entities.InterviewQuestion, bool) {
	q, ok := t.byID[id]
	if !ok {
		return entities.InterviewQuestion{}, false
	}
	return *q, true
}

// List returns copies of all questions in their original backend order
func (t *QuestionTracker) List() []entities.InterviewQuestion {
	out := make([]entities.InterviewQuestion, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, *t.byID[id])
	}
	return out
}

// Pending returns the questions not yet dispatched
func (t *QuestionTracker) Pending() []entities.InterviewQuestion {
	var out []entities.InterviewQuestion
	for _, id := range t.order {
		if t.byID[id].IsPending() {
			out = append(out, *t.byID[id])
		}
	}
	return out
}

// MarkSent records the PENDING -> SENT transition. It fails when the question
// is unknown or already sent, without touching any state.
func (t *QuestionTracker) MarkSent(id int64) error {
	q, ok := t.byID[id]
	if !ok {
		return usecaseErrors.ErrQuestionNotFound
	}
	if !q.IsPending() {
		return usecaseErrors.ErrQuestionNotPending
	}
	q.MarkSent()
	return nil
}

// Evaluate records a verdict for a sent question. The verdict may be changed
// later; the question stays SENT either way.
func (t *QuestionTracker) Evaluate(id int64, verdict entities.Verdict) error {
	if !verdict.IsValid() {
		return usecaseErrors.ErrInvalidVerdict
	}
	q, ok := t.byID[id]
	if !ok {
		return usecaseErrors.ErrQuestionNotFound
	}
	if !q.IsSent() {
		return usecaseErrors.ErrQuestionNotSent
	}
	q.Evaluate(verdict)
	return nil
}

// Refresh replaces the tracked set with a fresh backend snapshot, keeping any
// locally observed SENT status that the snapshot has not caught up with yet.
func (t *QuestionTracker) Refresh(questions []entities.InterviewQuestion) {
	fresh := NewQuestionTracker(questions)
	for id, old := range t.byID {
		q, ok := fresh.byID[id]
		if !ok {
			continue
		}
		if old.IsSent() && q.IsPending() {
			q.MarkSent()
		}
		if q.Evaluation == nil && old.Evaluation != nil {
			q.Evaluation = old.Evaluation
		}
	}
	t.byID = fresh.byID
	t.order = fresh.order
}
