// Package backend implements the RoomGateway contract over the
// job-marketplace REST API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/hireflow-dev/interview-room/errors"
	"github.com/hireflow-dev/interview-room/internal/domain/entities"
	"github.com/hireflow-dev/interview-room/pkg/config"
)

// HTTPGateway is the REST implementation of gateway.RoomGateway
type HTTPGateway struct {
	baseURL     string
	accessToken string
	client      *http.Client
	logger      *zap.Logger
}

// NewHTTPGateway creates a gateway against the configured backend
func NewHTTPGateway(cfg config.BackendConfig, accessToken string, logger *zap.Logger) *HTTPGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPGateway{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		accessToken: accessToken,
		client:      &http.Client{Timeout: cfg.Timeout},
		logger:      logger,
	}
}

// ValidateAccess asks the backend whether the user may enter the room
func (g *HTTPGateway) ValidateAccess(ctx context.Context, roomCode string, userID int64) (bool, error) {
	var out struct {
		Allowed bool `json:"allowed"`
	}
	path := fmt.Sprintf("/rooms/%s/access?userId=%d", roomCode, userID)
	if err := g.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return false, err
	}
	return out.Allowed, nil
}

// GetRoomByCode fetches the durable room record
func (g *HTTPGateway) GetRoomByCode(ctx context.Context, roomCode string) (*entities.Room, error) {
	var room entities.Room
	if err := g.doJSON(ctx, http.MethodGet, "/rooms/"+roomCode, nil, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

// GetMessagesByRoomCode fetches the full ordered message history
func (g *HTTPGateway) GetMessagesByRoomCode(ctx context.Context, roomCode string) ([]entities.Message, error) {
	var msgs []entities.Message
	if err := g.doJSON(ctx, http.MethodGet, "/rooms/"+roomCode+"/messages", nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// UpdateRoomStatus persists a new room status. A conflict means the room
// already left the state the transition assumed.
func (g *HTTPGateway) UpdateRoomStatus(ctx context.Context, roomCode string, status entities.RoomStatus) error {
	body := map[string]string{"status": string(status)}
	err := g.doJSON(ctx, http.MethodPatch, "/rooms/"+roomCode+"/status", body, nil)
	if isConflict(err) {
		return apperrors.ErrRoomInvalidState(roomCode, "", string(status))
	}
	return err
}

// GetInterviewQuestions fetches the room's question-bank entries
func (g *HTTPGateway) GetInterviewQuestions(ctx context.Context, roomID int64) ([]entities.InterviewQuestion, error) {
	var questions []entities.InterviewQuestion
	path := fmt.Sprintf("/interview-questions?roomId=%d", roomID)
	if err := g.doJSON(ctx, http.MethodGet, path, nil, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

// MarkQuestionAsSent persists the PENDING -> SENT transition. A conflict
// means another client already moved the question on.
func (g *HTTPGateway) MarkQuestionAsSent(ctx context.Context, questionID int64) error {
	path := fmt.Sprintf("/interview-questions/%d/sent", questionID)
	err := g.doJSON(ctx, http.MethodPatch, path, nil, nil)
	if isConflict(err) {
		return apperrors.ErrQuestionStale(questionID, string(entities.QuestionStatusSent))
	}
	return err
}

// EvaluateQuestion persists a per-question verdict
func (g *HTTPGateway) EvaluateQuestion(ctx context.Context, questionID int64, verdict entities.Verdict) error {
	path := fmt.Sprintf("/interview-questions/%d/evaluation", questionID)
	body := map[string]string{"evaluation": string(verdict)}
	err := g.doJSON(ctx, http.MethodPatch, path, body, nil)
	if isConflict(err) {
		return apperrors.ErrQuestionStale(questionID, string(entities.QuestionStatusPending))
	}
	return err
}

// SubmitInterviewResult submits the recruiter's final evaluation
func (g *HTTPGateway) SubmitInterviewResult(ctx context.Context, record entities.EvaluationRecord) error {
	return g.doJSON(ctx, http.MethodPost, "/interview-results", record, nil)
}

// doJSON performs one request against the backend, encoding body and decoding
// the response into out when non-nil. Backend error statuses are mapped onto
// the application error taxonomy.
func (g *HTTPGateway) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return apperrors.ErrBackendUnreachable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return g.mapError(resp, path)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return apperrors.ErrBackendBadResponse(resp.StatusCode, "undecodable body").WithDetail("path", path)
		}
	}
	return nil
}

// isConflict checks for an HTTP 409 carried by an AppError
func isConflict(err error) bool {
	var appErr apperrors.AppError
	return errors.As(err, &appErr) && appErr.HTTPCode == http.StatusConflict
}

func (g *HTTPGateway) mapError(resp *http.Response, path string) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	g.logger.Warn("backend request failed",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return apperrors.ErrUnauthenticated()
	case http.StatusForbidden:
		return apperrors.ErrRoomAccessDenied("").WithDetail("path", path)
	case http.StatusNotFound:
		return apperrors.ErrRoomNotFound("").WithDetail("path", path)
	default:
		return apperrors.ErrBackendBadResponse(resp.StatusCode, string(snippet)).WithDetail("path", path)
	}
}
