package entities

import (
	"time"
)

// InterviewMode represents how questions are delivered during the interview
type InterviewMode string

const (
	InterviewModeSynchronous  InterviewMode = "SYNCHRONOUS"
	InterviewModeAsynchronous InterviewMode = "ASYNCHRONOUS"
)

// RoomStatus represents the server-owned status of an interview room
type RoomStatus string

const (
	RoomStatusScheduled RoomStatus = "SCHEDULED"
	RoomStatusOngoing   RoomStatus = "ONGOING"
	RoomStatusFinished  RoomStatus = "FINISHED"
	RoomStatusCancelled RoomStatus = "CANCELLED"
	RoomStatusExpired   RoomStatus = "EXPIRED"
)

// IsValid checks if the status is a known RoomStatus value
func (s RoomStatus) IsValid() bool {
	switch s {
	case RoomStatusScheduled, RoomStatusOngoing, RoomStatusFinished, RoomStatusCancelled, RoomStatusExpired:
		return true
	default:
		return false
	}
}

// IsTerminal checks if the status is one the room never leaves
func (s RoomStatus) IsTerminal() bool {
	return s == RoomStatusFinished || s == RoomStatusCancelled || s == RoomStatusExpired
}

// Participant is one of the two fixed members of a room
type Participant struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// Room represents one scheduled interview session between a recruiter
// and an applicant, identified by an opaque shareable room code.
type Room struct {
	ID          int64         `json:"id"`
	Code        string        `json:"roomCode"`
	Recruiter   Participant   `json:"recruiter"`
	Applicant   Participant   `json:"applicant"`
	JobID       int64         `json:"jobId"`
	JobTitle    string        `json:"jobTitle"`
	ScheduledAt time.Time     `json:"scheduledTime"`
	Mode        InterviewMode `json:"interviewMode"`
	Status      RoomStatus    `json:"status"`
	// IsExpired is computed by the backend from the scheduled time and is
	// independent of Status: a SCHEDULED room can already be expired.
	IsExpired bool `json:"isExpired"`
}

// IsReadOnly checks whether new chat/question/end actions are still accepted.
// Status and IsExpired decide this jointly, not individually.
func (r *Room) IsReadOnly() bool {
	return r.IsExpired || r.Status == RoomStatusFinished || r.Status == RoomStatusExpired
}

// IsOngoing checks if the interview is currently running
func (r *Room) IsOngoing() bool {
	return r.Status == RoomStatusOngoing && !r.IsExpired
}

// Finish marks the room as finished locally. The backend owns the durable
// transition; this mirrors it after UpdateRoomStatus succeeds.
func (r *Room) Finish() {
	r.Status = RoomStatusFinished
}

// RoleOf resolves a user id to its role in this room. The second return
// value is false when the user is not one of the two participants.
func (r *Room) RoleOf(userID int64) (SenderRole, bool) {
	switch userID {
	case r.Recruiter.ID:
		return RoleRecruiter, true
	case r.Applicant.ID:
		return RoleApplicant, true
	default:
		return "", false
	}
}

// Counterpart returns the other participant of the room
func (r *Room) Counterpart(userID int64) (Participant, bool) {
	switch userID {
	case r.Recruiter.ID:
		return r.Applicant, true
	case r.Applicant.ID:
		return r.Recruiter, true
	default:
		return Participant{}, false
	}
}
