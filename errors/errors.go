package errors

import (
	"fmt"
	"net/http"
	"time"
)

// ErrorCode is a machine-readable code attached to application errors
type ErrorCode string

const (
	ErrorCode_INVALID_ARGUMENT ErrorCode = "INVALID_ARGUMENT"
	ErrorCode_UNAUTHENTICATED  ErrorCode = "UNAUTHENTICATED"

	ErrorCode_ROOM_NOT_FOUND       ErrorCode = "ROOM_NOT_FOUND"
	ErrorCode_ROOM_ACCESS_DENIED   ErrorCode = "ROOM_ACCESS_DENIED"
	ErrorCode_ROOM_INVALID_STATE   ErrorCode = "ROOM_INVALID_STATE"
	ErrorCode_HISTORY_LOAD_FAILED  ErrorCode = "HISTORY_LOAD_FAILED"
	ErrorCode_QUESTION_STALE       ErrorCode = "QUESTION_STALE"
	ErrorCode_EVALUATION_REJECTED  ErrorCode = "EVALUATION_REJECTED"
	ErrorCode_LIVE_CHANNEL_FAILED  ErrorCode = "LIVE_CHANNEL_FAILED"
	ErrorCode_BACKEND_UNREACHABLE  ErrorCode = "BACKEND_UNREACHABLE"
	ErrorCode_BACKEND_BAD_RESPONSE ErrorCode = "BACKEND_BAD_RESPONSE"
)

func (c ErrorCode) String() string {
	return string(c)
}

// AppError is the application error type carried across the gateway boundary
type AppError struct {
	Raw       error
	HTTPCode  int
	Code      ErrorCode
	Message   string
	Details   map[string]string
	Timestamp time.Time
}

// Error implements error interface
func (e AppError) Error() string {
	if e.Raw != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code.String(), e.Message, e.Raw)
	}
	return fmt.Sprintf("[%s] %s", e.Code.String(), e.Message)
}

// Unwrap exposes the underlying error to errors.Is / errors.As
func (e AppError) Unwrap() error {
	return e.Raw
}

// WithDetail adds a detail to the error
func (e AppError) WithDetail(key, value string) AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// General Errors
func ErrInvalidArgument(message string) AppError {
	return AppError{
		HTTPCode: http.StatusBadRequest,
		Code:     ErrorCode_INVALID_ARGUMENT,
		Message:  message,
	}
}

func ErrUnauthenticated() AppError {
	return AppError{
		HTTPCode: http.StatusUnauthorized,
		Code:     ErrorCode_UNAUTHENTICATED,
		Message:  "Authentication required",
	}
}

// Room Errors
func ErrRoomNotFound(roomCode string) AppError {
	return AppError{
		HTTPCode: http.StatusNotFound,
		Code:     ErrorCode_ROOM_NOT_FOUND,
		Message:  "Room not found",
	}.WithDetail("room_code", roomCode)
}

func ErrRoomAccessDenied(roomCode string) AppError {
	return AppError{
		HTTPCode: http.StatusForbidden,
		Code:     ErrorCode_ROOM_ACCESS_DENIED,
		Message:  "Access to room denied",
	}.WithDetail("room_code", roomCode)
}

func ErrRoomInvalidState(roomCode, currentState, expectedState string) AppError {
	return AppError{
		HTTPCode: http.StatusConflict,
		Code:     ErrorCode_ROOM_INVALID_STATE,
		Message:  "Room is in invalid state",
	}.WithDetail("room_code", roomCode).
		WithDetail("current_state", currentState).
		WithDetail("expected_state", expectedState)
}

func ErrHistoryLoadFailed(roomCode string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusBadGateway,
		Code:     ErrorCode_HISTORY_LOAD_FAILED,
		Message:  "Failed to load room history",
	}.WithDetail("room_code", roomCode)
}

// Question Errors
func ErrQuestionStale(questionID int64, currentStatus string) AppError {
	return AppError{
		HTTPCode: http.StatusConflict,
		Code:     ErrorCode_QUESTION_STALE,
		Message:  "Question is not in the expected state",
	}.WithDetail("question_id", fmt.Sprintf("%d", questionID)).
		WithDetail("current_status", currentStatus)
}

// Evaluation Errors
func ErrEvaluationRejected(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusBadGateway,
		Code:     ErrorCode_EVALUATION_REJECTED,
		Message:  "Evaluation submission rejected",
	}
}

// Integration Errors
func ErrLiveChannelFailed(operation string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusBadGateway,
		Code:     ErrorCode_LIVE_CHANNEL_FAILED,
		Message:  fmt.Sprintf("Live channel operation failed: %s", operation),
	}
}

func ErrBackendUnreachable(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusBadGateway,
		Code:     ErrorCode_BACKEND_UNREACHABLE,
		Message:  "Backend unreachable",
	}
}

func ErrBackendBadResponse(status int, body string) AppError {
	return AppError{
		HTTPCode: status,
		Code:     ErrorCode_BACKEND_BAD_RESPONSE,
		Message:  "Backend returned an unexpected response",
	}.WithDetail("status", fmt.Sprintf("%d", status)).
		WithDetail("body", body)
}
