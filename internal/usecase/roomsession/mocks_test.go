package roomsession

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/hireflow-dev/interview-room/internal/domain/entities"
	"github.com/hireflow-dev/interview-room/internal/domain/gateway"
)

// MockGateway is a testify mock of gateway.RoomGateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) ValidateAccess(ctx context.Context, roomCode string, userID int64) (bool, error) {
	args := m.Called(roomCode, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockGateway) GetRoomByCode(ctx context.Context, roomCode string) (*entities.Room, error) {
	args := m.Called(roomCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Room), args.Error(1)
}

func (m *MockGateway) GetMessagesByRoomCode(ctx context.Context, roomCode string) ([]entities.Message, error) {
	args := m.Called(roomCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.Message), args.Error(1)
}

func (m *MockGateway) UpdateRoomStatus(ctx context.Context, roomCode string, status entities.RoomStatus) error {
	args := m.Called(roomCode, status)
	return args.Error(0)
}

func (m *MockGateway) GetInterviewQuestions(ctx context.Context, roomID int64) ([]entities.InterviewQuestion, error) {
	args := m.Called(roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.InterviewQuestion), args.Error(1)
}

func (m *MockGateway) MarkQuestionAsSent(ctx context.Context, questionID int64) error {
	args := m.Called(questionID)
	return args.Error(0)
}

func (m *MockGateway) EvaluateQuestion(ctx context.Context, questionID int64, verdict entities.Verdict) error {
	args := m.Called(questionID, verdict)
	return args.Error(0)
}

func (m *MockGateway) SubmitInterviewResult(ctx context.Context, record entities.EvaluationRecord) error {
	args := m.Called(record)
	return args.Error(0)
}

// MockChannel is a testify mock of gateway.LiveChannel that also captures the
// registered handlers so tests can push inbound events.
type MockChannel struct {
	mock.Mock

	onMessage    gateway.MessageHandler
	onQuestion   gateway.QuestionHandler
	onEnd        gateway.EndHandler
	onReplay     gateway.ReplayHandler
	onDisconnect gateway.DisconnectHandler
}

func (m *MockChannel) Join(ctx context.Context, roomCode string, userID int64) error {
	args := m.Called(roomCode, userID)
	return args.Error(0)
}

func (m *MockChannel) Leave(ctx context.Context, roomCode string, userID int64) error {
	args := m.Called(roomCode, userID)
	return args.Error(0)
}

func (m *MockChannel) SendMessage(ctx context.Context, msg entities.Message) error {
	args := m.Called(msg)
	return args.Error(0)
}

func (m *MockChannel) SendQuestion(ctx context.Context, msg entities.Message) error {
	args := m.Called(msg)
	return args.Error(0)
}

func (m *MockChannel) EndInterview(ctx context.Context, roomCode string, userID int64) error {
	args := m.Called(roomCode, userID)
	return args.Error(0)
}

func (m *MockChannel) OnMessage(h gateway.MessageHandler)       { m.onMessage = h }
func (m *MockChannel) OnQuestion(h gateway.QuestionHandler)     { m.onQuestion = h }
func (m *MockChannel) OnEnd(h gateway.EndHandler)               { m.onEnd = h }
func (m *MockChannel) OnReplay(h gateway.ReplayHandler)         { m.onReplay = h }
func (m *MockChannel) OnDisconnect(h gateway.DisconnectHandler) { m.onDisconnect = h }

// PushMessage simulates an inbound chat/system event
func (m *MockChannel) PushMessage(msg entities.Message) {
	if m.onMessage != nil {
		m.onMessage(msg)
	}
}

// PushQuestion simulates an inbound question event
func (m *MockChannel) PushQuestion(msg entities.Message) {
	if m.onQuestion != nil {
		m.onQuestion(msg)
	}
}

// PushEnd simulates an inbound end-of-interview signal
func (m *MockChannel) PushEnd(sig gateway.EndSignal) {
	if m.onEnd != nil {
		m.onEnd(sig)
	}
}

// PushReplay simulates a reconnect-and-rejoin notification
func (m *MockChannel) PushReplay() {
	if m.onReplay != nil {
		m.onReplay()
	}
}

// PushDisconnect simulates the channel giving up on reconnecting
func (m *MockChannel) PushDisconnect(err error) {
	if m.onDisconnect != nil {
		m.onDisconnect(err)
	}
}
