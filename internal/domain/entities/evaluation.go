package entities

// Score bounds for the final interview evaluation
const (
	MinEvaluationScore = 1
	MaxEvaluationScore = 10
)

// EvaluationRecord is the recruiter's final verdict on an interview, captured
// once per room after the room reaches a terminal state.
type EvaluationRecord struct {
	RoomID         int64   `json:"roomId" validate:"required"`
	Score          int     `json:"score" validate:"min=1,max=10"`
	Comment        string  `json:"comment" validate:"required"`
	PrivateNotes   string  `json:"privateNotes,omitempty"`
	Recommendation Verdict `json:"recommendation" validate:"required,oneof=PASS FAIL"`
}
