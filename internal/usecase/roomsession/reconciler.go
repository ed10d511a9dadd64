package roomsession

import (
	"sort"

	"github.com/hireflow-dev/interview-room/internal/domain/entities"
)

// StreamReconciler assembles the room timeline from two sources: the one-shot
// history fetch and the continuous live channel feed. The same logical event
// may appear in both (a message sent just before a reconnect, a replay after
// rejoin), so every append is guarded by a set-membership test on the message
// identity key.
//
// The reconciler keeps two independent streams: chat (CHAT + SYSTEM) and
// questions (QUESTION). It is deterministic with respect to its inputs: the
// same history and the same set of live events produce the same final
// timelines regardless of delivery order or duplication.
//
// It is not safe for concurrent use; the owning session serializes access.
type StreamReconciler struct {
	chat      []entities.Message
	questions []entities.Message

	seenChat      map[entities.MessageKey]struct{}
	seenQuestions map[entities.MessageKey]struct{}
}

// NewStreamReconciler creates an empty reconciler
func NewStreamReconciler() *StreamReconciler {
	return &StreamReconciler{
		seenChat:      make(map[entities.MessageKey]struct{}),
		seenQuestions: make(map[entities.MessageKey]struct{}),
	}
}

// Seed folds the history fetch into the streams. It must run before the live
// channel is joined so that live events always merge into a baseline.
func (r *StreamReconciler) Seed(history []entities.Message) {
	for _, msg := range history {
		r.Apply(msg)
	}
}

// Apply folds one event into its stream. It reports whether the event was
// appended; a false return means the event was already present and was
// discarded. Events of unknown type are appended to the chat stream rather
// than dropped: a visible duplicate beats silent data loss.
func (r *StreamReconciler) Apply(msg entities.Message) bool {
	key := msg.Key()

	if msg.Type == entities.MessageTypeQuestion {
		if _, ok := r.seenQuestions[key]; ok {
			return false
		}
		r.seenQuestions[key] = struct{}{}
		r.questions = append(r.questions, msg)
		return true
	}

	if _, ok := r.seenChat[key]; ok {
		return false
	}
	r.seenChat[key] = struct{}{}
	r.chat = append(r.chat, msg)
	return true
}

// Chat returns the chat+system stream sorted ascending by timestamp
func (r *StreamReconciler) Chat() []entities.Message {
	return sortedCopy(r.chat)
}

// Questions returns the question stream sorted ascending by timestamp
func (r *StreamReconciler) Questions() []entities.Message {
	return sortedCopy(r.questions)
}

// Timeline returns both streams merged into one visual timeline. The merge
// happens before the sort so interleaving is correct regardless of which
// source each event arrived from.
func (r *StreamReconciler) Timeline() []entities.Message {
	merged := make([]entities.Message, 0, len(r.chat)+len(r.questions))
	merged = append(merged, r.chat...)
	merged = append(merged, r.questions...)
	sortMessages(merged)
	return merged
}

// Len returns the total number of reconciled events across both streams
func (r *StreamReconciler) Len() int {
	return len(r.chat) + len(r.questions)
}

func sortedCopy(msgs []entities.Message) []entities.Message {
	out := make([]entities.Message, len(msgs))
	copy(out, msgs)
	sortMessages(out)
	return out
}

// sortMessages orders ascending by timestamp, breaking ties on the identity
// key so the order does not depend on arrival order.
func sortMessages(msgs []entities.Message) {
	sort.Slice(msgs, func(i, j int) bool {
		if !msgs[i].SentAt.Equal(msgs[j].SentAt) {
			return msgs[i].SentAt.Before(msgs[j].SentAt)
		}
		return msgs[i].Key() < msgs[j].Key()
	})
}
