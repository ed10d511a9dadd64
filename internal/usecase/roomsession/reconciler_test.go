package roomsession

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hireflow-dev/interview-room/internal/domain/entities"
)

var reconcilerBase = time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)

func chatAt(id int64, content string, offset time.Duration) entities.Message {
	msg := entities.Message{
		RoomCode:   "ABC123",
		SenderID:   1,
		SenderRole: entities.RoleRecruiter,
		Type:       entities.MessageTypeChat,
		Content:    content,
		SentAt:     reconcilerBase.Add(offset),
	}
	if id != 0 {
		msg.ID = &id
	}
	return msg
}

func questionAt(content string, offset time.Duration) entities.Message {
	return entities.Message{
		RoomCode:   "ABC123",
		SenderID:   1,
		SenderRole: entities.RoleRecruiter,
		Type:       entities.MessageTypeQuestion,
		Content:    content,
		SentAt:     reconcilerBase.Add(offset),
	}
}

func contents(msgs []entities.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Content
	}
	return out
}

func TestApplyIsIdempotent(t *testing.T) {
	cases := []struct {
		name string
		msg  entities.Message
	}{
		{"durable id", chatAt(11, "hello", 0)},
		{"no durable id", chatAt(0, "hello", 0)},
		{"question no id", questionAt("Describe X", 0)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewStreamReconciler()
			assert.True(t, r.Apply(tc.msg))
			assert.False(t, r.Apply(tc.msg))
			assert.Equal(t, 1, r.Len())
		})
	}
}

func TestDurableIDWinsOverContent(t *testing.T) {
	r := NewStreamReconciler()
	first := chatAt(11, "hello", 0)
	// Same durable id re-delivered with drifted content is still the same event
	drifted := chatAt(11, "hello (edited by backend)", time.Second)

	assert.True(t, r.Apply(first))
	assert.False(t, r.Apply(drifted))
	assert.Equal(t, []string{"hello"}, contents(r.Chat()))
}

func TestTupleFallbackDistinguishesSenders(t *testing.T) {
	r := NewStreamReconciler()
	fromRecruiter := chatAt(0, "hi", 0)
	fromApplicant := chatAt(0, "hi", 0)
	fromApplicant.SenderID = 2

	assert.True(t, r.Apply(fromRecruiter))
	assert.True(t, r.Apply(fromApplicant))
	assert.Equal(t, 2, r.Len())
}

func TestMergeIsOrderIndependent(t *testing.T) {
	m1 := chatAt(1, "m1", 0)
	m2 := chatAt(2, "m2", 1*time.Minute)
	m3 := chatAt(3, "m3", 2*time.Minute)
	m4 := chatAt(4, "m4", 3*time.Minute)

	arrivals := [][]entities.Message{
		{m3, m2, m4},
		{m4, m3, m2},
		{m2, m2, m3, m4},
	}

	for _, live := range arrivals {
		r := NewStreamReconciler()
		r.Seed([]entities.Message{m1, m2})
		for _, msg := range live {
			r.Apply(msg)
		}
		assert.Equal(t, []string{"m1", "m2", "m3", "m4"}, contents(r.Timeline()))
	}
}

func TestTimelineInterleavesStreams(t *testing.T) {
	r := NewStreamReconciler()
	r.Seed([]entities.Message{
		chatAt(1, "hello", 0),
		questionAt("Describe X", 1*time.Minute),
	})
	// A late-arriving chat message that predates the question must sort
	// between the two regardless of arrival order.
	late := chatAt(0, "one moment", 30*time.Second)
	r.Apply(late)

	assert.Equal(t, []string{"hello", "one moment", "Describe X"}, contents(r.Timeline()))
	// Per-stream views stay split
	assert.Equal(t, []string{"hello", "one moment"}, contents(r.Chat()))
	assert.Equal(t, []string{"Describe X"}, contents(r.Questions()))
}

func TestSystemMessagesJoinChatStream(t *testing.T) {
	r := NewStreamReconciler()
	joined := entities.Message{
		RoomCode:   "ABC123",
		SenderRole: entities.RoleSystem,
		Type:       entities.MessageTypeSystem,
		Content:    "recruiter joined",
		SentAt:     reconcilerBase,
	}

	assert.True(t, r.Apply(joined))
	assert.Equal(t, []string{"recruiter joined"}, contents(r.Chat()))
	assert.Empty(t, r.Questions())
}

func TestTimelineReturnsCopies(t *testing.T) {
	r := NewStreamReconciler()
	r.Seed([]entities.Message{chatAt(1, "hello", 0)})

	first := r.Timeline()
	first[0].Content = "mutated"

	assert.Equal(t, []string{"hello"}, contents(r.Timeline()))
}
