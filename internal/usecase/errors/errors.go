package errors

import "errors"

// Access errors
var (
	ErrAccessDenied = errors.New("access denied to this room")
	ErrNotRecruiter = errors.New("action allowed for the recruiter only")
)

// Room errors
var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomReadOnly   = errors.New("interview ended, room is read-only")
	ErrRoomNotOngoing = errors.New("interview is not ongoing")
	ErrAlreadyJoined  = errors.New("room already joined")
	ErrSessionClosed  = errors.New("room session closed")
)

// Question errors
var (
	ErrQuestionNotFound   = errors.New("question not found")
	ErrQuestionNotPending = errors.New("question already sent")
	ErrQuestionNotSent    = errors.New("question not sent yet")
	ErrEmptyQuestion      = errors.New("question text is empty")
	ErrInvalidVerdict     = errors.New("verdict must be PASS or FAIL")
)

// Message errors
var (
	ErrEmptyMessage = errors.New("message content is empty")
)

// Evaluation errors
var (
	ErrEvaluationInFlight = errors.New("evaluation submission already in progress")
	ErrEvaluationTooEarly = errors.New("room is not terminal yet")
)
