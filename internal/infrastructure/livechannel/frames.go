package livechannel

import "encoding/json"

// frameType discriminates the wire envelope
type frameType string

const (
	frameJoin     frameType = "join"
	frameLeave    frameType = "leave"
	frameMessage  frameType = "message"
	frameQuestion frameType = "question"
	frameEnd      frameType = "end"
)

// frame is the JSON envelope exchanged with the live backend. Payload holds
// the event body for message/question/end frames; Ref is a client-generated
// correlation id on outbound frames.
type frame struct {
	Type     frameType       `json:"type"`
	Ref      string          `json:"ref,omitempty"`
	RoomCode string          `json:"roomCode"`
	UserID   int64           `json:"userId,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}
