package roomsession

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/hireflow-dev/interview-room/errors"
	"github.com/hireflow-dev/interview-room/internal/domain/entities"
	"github.com/hireflow-dev/interview-room/internal/domain/gateway"
	usecaseErrors "github.com/hireflow-dev/interview-room/internal/usecase/errors"
	pkgvalidator "github.com/hireflow-dev/interview-room/pkg/validator"
)

// refreshTimeout bounds the history refetch triggered by a channel replay
const refreshTimeout = 15 * time.Second

// Callbacks are the notifications a room screen consumes. Both are optional
// and are invoked outside the session lock.
type Callbacks struct {
	// OnTimeline fires with a fresh merged timeline whenever a live event
	// was appended (duplicates never fire it).
	OnTimeline func(timeline []entities.Message)

	// OnEnded fires once when the interview ends, locally or remotely. A
	// recruiter screen opens evaluation capture; an applicant screen
	// navigates away.
	OnEnded func(sig gateway.EndSignal)

	// OnDisconnected fires when the live channel has given up reconnecting.
	// Already-loaded state stays readable but no further live events arrive.
	OnDisconnected func(err error)
}

// Session is one participant's live view of an interview room. It runs the
// fixed entry sequence (access gate, history load, channel join), folds live
// events into the reconciled timeline, gates writes on the room lifecycle and
// guarantees the channel is left on teardown.
//
// One Session serves both roles; recruiter-only capabilities (dispatching
// questions, ending the interview, evaluation) are gated on the resolved role
// rather than forked code paths.
type Session struct {
	gw       gateway.RoomGateway
	channel  gateway.LiveChannel
	validate *pkgvalidator.CustomValidator
	logger   *zap.Logger

	sessionID string
	roomCode  string
	userID    int64
	role      entities.SenderRole

	mu           sync.Mutex
	room         *entities.Room
	reconciler   *StreamReconciler
	tracker      *QuestionTracker
	joined       bool
	closed       bool
	ended        bool
	endNotified  bool
	evalInFlight bool
	callbacks    Callbacks
}

// NewSession constructs a session over the given backend contracts
func NewSession(
	gw gateway.RoomGateway,
	channel gateway.LiveChannel,
	validate *pkgvalidator.CustomValidator,
	logger *zap.Logger,
	callbacks Callbacks,
) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		gw:        gw,
		channel:   channel,
		validate:  validate,
		logger:    logger,
		sessionID: uuid.New().String(),
		callbacks: callbacks,
	}
}

// Enter runs the entry sequence: access gate, room and history load, question
// load, then the live channel join. Each step is a prerequisite of the next;
// in particular history must be seeded before the join so that live events
// always merge into a baseline. Enter is single-shot per session.
//
// A failed or errored access check is a denial: the caller must redirect away
// and nothing else is fetched.
func (s *Session) Enter(ctx context.Context, roomCode string, userID int64) error {
	roomCode = strings.TrimSpace(roomCode)
	if roomCode == "" || userID == 0 {
		return usecaseErrors.ErrAccessDenied
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return usecaseErrors.ErrSessionClosed
	}
	if s.joined {
		s.mu.Unlock()
		return usecaseErrors.ErrAlreadyJoined
	}
	s.roomCode = roomCode
	s.userID = userID
	s.mu.Unlock()

	allowed, err := s.gw.ValidateAccess(ctx, roomCode, userID)
	if err != nil {
		s.logger.Warn("access check failed, treating as denial",
			zap.String("room_code", roomCode),
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		return usecaseErrors.ErrAccessDenied
	}
	if !allowed {
		return usecaseErrors.ErrAccessDenied
	}

	room, err := s.gw.GetRoomByCode(ctx, roomCode)
	if err != nil {
		return fmt.Errorf("failed to load room: %w", err)
	}

	role, ok := room.RoleOf(userID)
	if !ok {
		return usecaseErrors.ErrAccessDenied
	}

	history, err := s.gw.GetMessagesByRoomCode(ctx, roomCode)
	if err != nil {
		return apperrors.ErrHistoryLoadFailed(roomCode, err)
	}

	questions, err := s.gw.GetInterviewQuestions(ctx, room.ID)
	if err != nil {
		return fmt.Errorf("failed to load interview questions: %w", err)
	}

	s.mu.Lock()
	if s.closed {
		// The user navigated away mid-load; drop the stale responses.
		s.mu.Unlock()
		return usecaseErrors.ErrSessionClosed
	}
	s.room = room
	s.role = role
	s.reconciler = NewStreamReconciler()
	s.reconciler.Seed(history)
	s.tracker = NewQuestionTracker(questions)
	s.mu.Unlock()

	s.channel.OnMessage(s.handleLiveEvent)
	s.channel.OnQuestion(s.handleLiveEvent)
	s.channel.OnEnd(s.handleEnd)
	s.channel.OnReplay(s.handleReplay)
	s.channel.OnDisconnect(s.handleDisconnect)

	if err := s.channel.Join(ctx, roomCode, userID); err != nil {
		return fmt.Errorf("failed to join live channel: %w", err)
	}

	s.mu.Lock()
	s.joined = true
	s.mu.Unlock()

	s.logger.Info("entered interview room",
		zap.String("session_id", s.sessionID),
		zap.String("room_code", roomCode),
		zap.Int64("user_id", userID),
		zap.String("role", string(role)),
		zap.String("status", string(room.Status)),
		zap.Bool("read_only", room.IsReadOnly()),
	)
	return nil
}

// Close leaves the live channel and makes the session inert. It is safe to
// call on every exit path, repeatedly, and regardless of how far Enter got.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	wasJoined := s.joined
	roomCode := s.roomCode
	userID := s.userID
	s.mu.Unlock()

	if !wasJoined {
		return nil
	}
	if err := s.channel.Leave(ctx, roomCode, userID); err != nil {
		s.logger.Warn("failed to leave live channel",
			zap.String("room_code", roomCode),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// Room returns a copy of the room record
func (s *Session) Room() entities.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.room == nil {
		return entities.Room{}
	}
	return *s.room
}

// Role returns the caller's resolved role in the room
func (s *Session) Role() entities.SenderRole {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role
}

// ReadOnly reports whether the room accepts no further writes
func (s *Session) ReadOnly() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readOnlyLocked()
}

// CanManageQuestions reports whether the caller may dispatch and evaluate
// questions and end the interview
func (s *Session) CanManageQuestions() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role == entities.RoleRecruiter
}

// Timeline returns the merged, deduplicated, timestamp-ordered view of both
// streams
func (s *Session) Timeline() []entities.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reconciler == nil {
		return nil
	}
	return s.reconciler.Timeline()
}

// Chat returns the chat+system stream
func (s *Session) Chat() []entities.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reconciler == nil {
		return nil
	}
	return s.reconciler.Chat()
}

// QuestionStream returns the QUESTION-typed messages of the timeline
func (s *Session) QuestionStream() []entities.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reconciler == nil {
		return nil
	}
	return s.reconciler.Questions()
}

// Questions returns the tracked question-bank entries
func (s *Session) Questions() []entities.InterviewQuestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tracker == nil {
		return nil
	}
	return s.tracker.List()
}

// SendChat publishes a chat message to the room. Rejected locally when the
// room is read-only, before any network call.
func (s *Session) SendChat(ctx context.Context, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return usecaseErrors.ErrEmptyMessage
	}

	msg, err := s.prepareOutbound(entities.MessageTypeChat, content)
	if err != nil {
		return err
	}
	if err := s.channel.SendMessage(ctx, msg); err != nil {
		return apperrors.ErrLiveChannelFailed("send message", err)
	}
	return nil
}

// SendQuestion dispatches a question-bank entry into the live chat. The
// status change is persisted first; the broadcast only happens once the
// backend accepted it, so a failed persist never leaves an orphaned live
// question behind.
func (s *Session) SendQuestion(ctx context.Context, questionID int64) error {
	s.mu.Lock()
	if err := s.writableRecruiterLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	q, ok := s.tracker.Get(questionID)
	if !ok {
		s.mu.Unlock()
		return usecaseErrors.ErrQuestionNotFound
	}
	if !q.IsPending() {
		s.mu.Unlock()
		return usecaseErrors.ErrQuestionNotPending
	}
	s.mu.Unlock()

	if err := s.gw.MarkQuestionAsSent(ctx, questionID); err != nil {
		return fmt.Errorf("failed to mark question as sent: %w", err)
	}

	s.mu.Lock()
	if err := s.tracker.MarkSent(questionID); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	msg, err := s.prepareOutbound(entities.MessageTypeQuestion, q.Text)
	if err != nil {
		return err
	}
	if err := s.channel.SendQuestion(ctx, msg); err != nil {
		return apperrors.ErrLiveChannelFailed("broadcast question", err)
	}

	s.logger.Info("question dispatched",
		zap.String("room_code", s.roomCode),
		zap.Int64("question_id", questionID),
	)
	return nil
}

// SendAdHocQuestion dispatches free-text authored outside the question bank.
// There is no PENDING record to persist; the message goes straight through
// the same chat delivery and dedup path as bank questions.
func (s *Session) SendAdHocQuestion(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return usecaseErrors.ErrEmptyQuestion
	}

	s.mu.Lock()
	if err := s.writableRecruiterLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	msg, err := s.prepareOutbound(entities.MessageTypeQuestion, text)
	if err != nil {
		return err
	}
	if err := s.channel.SendQuestion(ctx, msg); err != nil {
		return apperrors.ErrLiveChannelFailed("broadcast question", err)
	}
	return nil
}

// EvaluateQuestion records the recruiter's verdict on a sent question. The
// verdict may be set or changed any time after the question became SENT,
// including after the room went read-only.
func (s *Session) EvaluateQuestion(ctx context.Context, questionID int64, verdict entities.Verdict) error {
	if !verdict.IsValid() {
		return usecaseErrors.ErrInvalidVerdict
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return usecaseErrors.ErrSessionClosed
	}
	if s.role != entities.RoleRecruiter {
		s.mu.Unlock()
		return usecaseErrors.ErrNotRecruiter
	}
	q, ok := s.tracker.Get(questionID)
	if !ok {
		s.mu.Unlock()
		return usecaseErrors.ErrQuestionNotFound
	}
	if !q.IsSent() {
		s.mu.Unlock()
		return usecaseErrors.ErrQuestionNotSent
	}
	s.mu.Unlock()

	if err := s.gw.EvaluateQuestion(ctx, questionID, verdict); err != nil {
		return fmt.Errorf("failed to evaluate question: %w", err)
	}

	s.mu.Lock()
	err := s.tracker.Evaluate(questionID, verdict)
	s.mu.Unlock()
	return err
}

// EndInterview performs the only client-triggerable lifecycle transition,
// ONGOING -> FINISHED: persist the status, then broadcast the end signal,
// then flip the local room to read-only. A failed persist stops the sequence
// before the broadcast.
func (s *Session) EndInterview(ctx context.Context) error {
	s.mu.Lock()
	if err := s.writableRecruiterLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.room.Status != entities.RoomStatusOngoing {
		s.mu.Unlock()
		return usecaseErrors.ErrRoomNotOngoing
	}
	roomCode := s.roomCode
	userID := s.userID
	s.mu.Unlock()

	if err := s.gw.UpdateRoomStatus(ctx, roomCode, entities.RoomStatusFinished); err != nil {
		return fmt.Errorf("failed to end interview: %w", err)
	}

	if err := s.channel.EndInterview(ctx, roomCode, userID); err != nil {
		// The status is already persisted; the backend will still push the
		// end signal to the other participant. Log and carry on.
		s.logger.Warn("end-of-interview broadcast failed",
			zap.String("room_code", roomCode),
			zap.Error(err),
		)
	}

	sig := gateway.EndSignal{RoomCode: roomCode, EndedBy: userID, EndedAt: time.Now().UTC()}
	s.applyEnd(sig)

	s.logger.Info("interview ended",
		zap.String("room_code", roomCode),
		zap.Int64("ended_by", userID),
	)
	return nil
}

// EvaluationInput is the recruiter's final verdict form
type EvaluationInput struct {
	Score          int
	Comment        string
	PrivateNotes   string
	Recommendation entities.Verdict
}

// SubmitEvaluation submits the final interview result. Only available to the
// recruiter once the room is terminal. Submission failures are recoverable:
// the caller keeps the form open and may retry once the in-flight latch is
// released.
func (s *Session) SubmitEvaluation(ctx context.Context, input EvaluationInput) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return usecaseErrors.ErrSessionClosed
	}
	if s.role != entities.RoleRecruiter {
		s.mu.Unlock()
		return usecaseErrors.ErrNotRecruiter
	}
	if !s.readOnlyLocked() {
		s.mu.Unlock()
		return usecaseErrors.ErrEvaluationTooEarly
	}
	if s.evalInFlight {
		s.mu.Unlock()
		return usecaseErrors.ErrEvaluationInFlight
	}
	s.evalInFlight = true
	roomID := s.room.ID
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.evalInFlight = false
		s.mu.Unlock()
	}()

	record := entities.EvaluationRecord{
		RoomID:         roomID,
		Score:          input.Score,
		Comment:        strings.TrimSpace(input.Comment),
		PrivateNotes:   input.PrivateNotes,
		Recommendation: input.Recommendation,
	}
	if s.validate != nil {
		if err := s.validate.Validate(record); err != nil {
			return apperrors.ErrInvalidArgument(fmt.Sprintf("invalid evaluation: %v", err))
		}
	}

	if err := s.gw.SubmitInterviewResult(ctx, record); err != nil {
		return apperrors.ErrEvaluationRejected(err)
	}

	s.logger.Info("interview result submitted",
		zap.String("room_code", s.roomCode),
		zap.Int64("room_id", roomID),
		zap.String("recommendation", string(record.Recommendation)),
	)
	return nil
}

// prepareOutbound gates a write on the lifecycle and stamps the envelope
func (s *Session) prepareOutbound(msgType entities.MessageType, content string) (entities.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return entities.Message{}, usecaseErrors.ErrSessionClosed
	}
	if s.room == nil || !s.joined {
		return entities.Message{}, usecaseErrors.ErrSessionClosed
	}
	if s.readOnlyLocked() {
		return entities.Message{}, usecaseErrors.ErrRoomReadOnly
	}
	return entities.Message{
		RoomCode:   s.roomCode,
		SenderID:   s.userID,
		SenderRole: s.role,
		Type:       msgType,
		Content:    content,
		SentAt:     time.Now().UTC(),
	}, nil
}

// writableRecruiterLocked combines the read-only gate with the recruiter
// capability check. Caller holds the lock.
func (s *Session) writableRecruiterLocked() error {
	if s.closed {
		return usecaseErrors.ErrSessionClosed
	}
	if s.room == nil || !s.joined {
		return usecaseErrors.ErrSessionClosed
	}
	if s.role != entities.RoleRecruiter {
		return usecaseErrors.ErrNotRecruiter
	}
	if s.readOnlyLocked() {
		return usecaseErrors.ErrRoomReadOnly
	}
	return nil
}

func (s *Session) readOnlyLocked() bool {
	if s.ended {
		return true
	}
	return s.room != nil && s.room.IsReadOnly()
}

// handleLiveEvent folds one pushed event into the reconciled state. Each
// delivery is a single atomic append-or-discard; duplicates are silently
// absorbed and never surfaced.
func (s *Session) handleLiveEvent(msg entities.Message) {
	s.mu.Lock()
	if s.closed || s.reconciler == nil {
		s.mu.Unlock()
		return
	}
	appended := s.reconciler.Apply(msg)
	var timeline []entities.Message
	if appended && s.callbacks.OnTimeline != nil {
		timeline = s.reconciler.Timeline()
	}
	s.mu.Unlock()

	if !appended {
		s.logger.Debug("duplicate live event discarded",
			zap.String("room_code", msg.RoomCode),
			zap.String("key", string(msg.Key())),
		)
		return
	}
	if timeline != nil {
		s.callbacks.OnTimeline(timeline)
	}
}

// handleEnd reacts to a remote end-of-interview signal
func (s *Session) handleEnd(sig gateway.EndSignal) {
	s.applyEnd(sig)
}

// handleDisconnect surfaces a permanently dead live channel
func (s *Session) handleDisconnect(err error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}

	s.logger.Error("live channel disconnected for good",
		zap.String("room_code", s.roomCode),
		zap.Error(err),
	)
	if s.callbacks.OnDisconnected != nil {
		s.callbacks.OnDisconnected(err)
	}
}

// applyEnd flips the room to read-only and notifies the screen exactly once,
// whether the end was local or remote.
func (s *Session) applyEnd(sig gateway.EndSignal) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.ended = true
	if s.room != nil {
		s.room.Finish()
	}
	notify := !s.endNotified
	s.endNotified = true
	s.mu.Unlock()

	if notify && s.callbacks.OnEnded != nil {
		s.callbacks.OnEnded(sig)
	}
}

// handleReplay refetches room state and history after the live channel
// reconnected and rejoined, then re-reconciles. Replayed duplicates are
// absorbed by the reconciler; on refetch failure the session keeps its
// current state and lets live events keep flowing.
func (s *Session) handleReplay() {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	s.mu.Lock()
	if s.closed || s.room == nil {
		s.mu.Unlock()
		return
	}
	roomCode := s.roomCode
	roomID := s.room.ID
	s.mu.Unlock()

	room, err := s.gw.GetRoomByCode(ctx, roomCode)
	if err != nil {
		s.logger.Warn("room refetch after reconnect failed",
			zap.String("room_code", roomCode), zap.Error(err))
		return
	}
	history, err := s.gw.GetMessagesByRoomCode(ctx, roomCode)
	if err != nil {
		s.logger.Warn("history refetch after reconnect failed",
			zap.String("room_code", roomCode), zap.Error(err))
		return
	}
	questions, err := s.gw.GetInterviewQuestions(ctx, roomID)
	if err != nil {
		s.logger.Warn("question refetch after reconnect failed",
			zap.String("room_code", roomCode), zap.Error(err))
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.room = room
	for _, msg := range history {
		s.reconciler.Apply(msg)
	}
	s.tracker.Refresh(questions)
	endedRemotely := room.IsReadOnly() && !s.endNotified
	if endedRemotely {
		s.ended = true
		s.endNotified = true
	}
	var timeline []entities.Message
	if s.callbacks.OnTimeline != nil {
		timeline = s.reconciler.Timeline()
	}
	s.mu.Unlock()

	if timeline != nil {
		s.callbacks.OnTimeline(timeline)
	}
	if endedRemotely && s.callbacks.OnEnded != nil {
		s.callbacks.OnEnded(gateway.EndSignal{RoomCode: roomCode, EndedAt: time.Now().UTC()})
	}

	s.logger.Info("reconciled state after reconnect",
		zap.String("room_code", roomCode),
		zap.Int("history_len", len(history)),
	)
}
