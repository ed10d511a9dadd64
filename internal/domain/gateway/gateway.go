// Package gateway defines the backend contracts the interview-room client
// depends on. The REST backend and the push channel are external systems;
// everything here is a consumed interface, implemented under
// internal/infrastructure.
package gateway

import (
	"context"
	"time"

	"github.com/hireflow-dev/interview-room/internal/domain/entities"
)

// RoomGateway is the request/response contract against the job-marketplace
// backend. The backend is authoritative for access decisions, room status
// and message/question persistence.
type RoomGateway interface {
	// ValidateAccess reports whether the user may enter the room. It must be
	// called before any other room data is requested.
	ValidateAccess(ctx context.Context, roomCode string, userID int64) (bool, error)

	// GetRoomByCode returns the durable room record
	GetRoomByCode(ctx context.Context, roomCode string) (*entities.Room, error)

	// GetMessagesByRoomCode returns the full ordered message history of the
	// room, mixed types; the caller splits by message type.
	GetMessagesByRoomCode(ctx context.Context, roomCode string) ([]entities.Message, error)

	// UpdateRoomStatus persists a new room status
	UpdateRoomStatus(ctx context.Context, roomCode string, status entities.RoomStatus) error

	// GetInterviewQuestions returns the room's question-bank entries
	GetInterviewQuestions(ctx context.Context, roomID int64) ([]entities.InterviewQuestion, error)

	// MarkQuestionAsSent persists the PENDING -> SENT transition
	MarkQuestionAsSent(ctx context.Context, questionID int64) error

	// EvaluateQuestion persists a per-question verdict
	EvaluateQuestion(ctx context.Context, questionID int64, verdict entities.Verdict) error

	// SubmitInterviewResult submits the recruiter's final evaluation
	SubmitInterviewResult(ctx context.Context, record entities.EvaluationRecord) error
}

// EndSignal is the end-of-interview notification broadcast on the live channel
type EndSignal struct {
	RoomCode string    `json:"roomCode"`
	EndedBy  int64     `json:"endedBy"`
	EndedAt  time.Time `json:"endedAt"`
}

// Handlers for the three inbound event classes plus the replay notification.
// Question events travel as QUESTION-typed messages.
type (
	MessageHandler    func(entities.Message)
	QuestionHandler   func(entities.Message)
	EndHandler        func(EndSignal)
	ReplayHandler     func()
	DisconnectHandler func(err error)
)

// LiveChannel is the persistent bidirectional connection scoped to one room.
// Implementations must guarantee at-least-once delivery on reconnect; the
// consumer deduplicates.
type LiveChannel interface {
	// Join subscribes the user to the room. The backend broadcasts a SYSTEM
	// presence message to the room as a side effect.
	Join(ctx context.Context, roomCode string, userID int64) error

	// Leave tears the subscription down. Callers must invoke it on every
	// exit path of the consuming screen.
	Leave(ctx context.Context, roomCode string, userID int64) error

	// SendMessage publishes a chat message to the room
	SendMessage(ctx context.Context, msg entities.Message) error

	// SendQuestion publishes a QUESTION-typed message to the room
	SendQuestion(ctx context.Context, msg entities.Message) error

	// EndInterview broadcasts the end-of-interview signal
	EndInterview(ctx context.Context, roomCode string, userID int64) error

	// Subscriptions. Each event class has exactly one handler per channel;
	// registering again replaces the previous handler.
	OnMessage(h MessageHandler)
	OnQuestion(h QuestionHandler)
	OnEnd(h EndHandler)

	// OnReplay registers a handler invoked after the channel reconnected and
	// rejoined the room, so the consumer can refetch history and reconcile.
	OnReplay(h ReplayHandler)

	// OnDisconnect registers a handler invoked when the channel has given up
	// reconnecting. Live delivery has stopped for good; the consumer should
	// surface that to the user.
	OnDisconnect(h DisconnectHandler)
}
