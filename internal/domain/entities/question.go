package entities

// QuestionStatus represents where a bank question is in its delivery lifecycle
type QuestionStatus string

const (
	QuestionStatusPending QuestionStatus = "PENDING"
	QuestionStatusSent    QuestionStatus = "SENT"
)

// Verdict is a binary recruiter judgement, used both for per-question
// evaluations and for the final recommendation.
type Verdict string

const (
	VerdictPass Verdict = "PASS"
	VerdictFail Verdict = "FAIL"
)

// IsValid checks if the verdict is one of the two allowed values
func (v Verdict) IsValid() bool {
	return v == VerdictPass || v == VerdictFail
}

// InterviewQuestion is a question-bank entry attached to a room. It is a
// distinct entity from the QUESTION-typed chat message its dispatch produces.
type InterviewQuestion struct {
	ID     int64          `json:"id"`
	RoomID int64          `json:"roomId"`
	Text   string         `json:"question"`
	Status QuestionStatus `json:"status"`
	// Evaluation is set by the recruiter after the question was sent. It may
	// be changed later, but the question never returns to PENDING.
	Evaluation *Verdict `json:"evaluation,omitempty"`
}

// IsPending checks if the question has not yet been shown to the applicant
func (q *InterviewQuestion) IsPending() bool {
	return q.Status == QuestionStatusPending
}

// IsSent checks if the question was dispatched into the live chat
func (q *InterviewQuestion) IsSent() bool {
	return q.Status == QuestionStatusSent
}

// MarkSent records the one-way PENDING -> SENT transition locally, after the
// backend persisted it.
func (q *InterviewQuestion) MarkSent() {
	q.Status = QuestionStatusSent
}

// Evaluate records the recruiter's verdict locally
func (q *InterviewQuestion) Evaluate(v Verdict) {
	q.Evaluation = &v
}
