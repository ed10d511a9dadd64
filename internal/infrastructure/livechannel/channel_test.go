package livechannel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hireflow-dev/interview-room/internal/domain/entities"
	"github.com/hireflow-dev/interview-room/internal/domain/gateway"
	"github.com/hireflow-dev/interview-room/pkg/config"
)

const waitFor = 2 * time.Second

// fakeLiveServer accepts one websocket client at a time and exposes the
// frames it receives plus the connection for pushing frames back.
type fakeLiveServer struct {
	srv    *httptest.Server
	frames chan frame
	conns  chan *websocket.Conn
	auth   chan string
}

func newFakeLiveServer(t *testing.T) *fakeLiveServer {
	t.Helper()

	fs := &fakeLiveServer{
		frames: make(chan frame, 16),
		conns:  make(chan *websocket.Conn, 4),
		auth:   make(chan string, 4),
	}
	upgrader := websocket.Upgrader{}

	fs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.auth <- r.Header.Get("Authorization")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		fs.conns <- conn
		for {
			var f frame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			fs.frames <- f
		}
	}))
	t.Cleanup(fs.srv.Close)
	return fs
}

func (fs *fakeLiveServer) wsURL() string {
	return "ws" + strings.TrimPrefix(fs.srv.URL, "http")
}

func (fs *fakeLiveServer) nextFrame(t *testing.T) frame {
	t.Helper()
	select {
	case f := <-fs.frames:
		return f
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for frame")
		return frame{}
	}
}

func (fs *fakeLiveServer) conn(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case c := <-fs.conns:
		return c
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for connection")
		return nil
	}
}

func newTestChannel(fs *fakeLiveServer) *Channel {
	return New(config.LiveConfig{
		URL:               fs.wsURL(),
		WriteWait:         time.Second,
		PongWait:          30 * time.Second,
		MaxMessageSize:    1 << 16,
		ReconnectMaxWait:  100 * time.Millisecond,
		ReconnectMaxTries: 2,
	}, "live-token", nil)
}

func TestJoinSubscribesRoom(t *testing.T) {
	fs := newFakeLiveServer(t)
	ch := newTestChannel(fs)

	require.NoError(t, ch.Join(context.Background(), "ABC123", 42))
	defer ch.Leave(context.Background(), "ABC123", 42)

	assert.Equal(t, "Bearer live-token", <-fs.auth)

	f := fs.nextFrame(t)
	assert.Equal(t, frameJoin, f.Type)
	assert.Equal(t, "ABC123", f.RoomCode)
	assert.Equal(t, int64(42), f.UserID)
	assert.NotEmpty(t, f.Ref)
}

func TestJoinIsSingleShot(t *testing.T) {
	fs := newFakeLiveServer(t)
	ch := newTestChannel(fs)

	require.NoError(t, ch.Join(context.Background(), "ABC123", 42))
	defer ch.Leave(context.Background(), "ABC123", 42)

	assert.Error(t, ch.Join(context.Background(), "ABC123", 42))
}

func TestSendMessageWrapsEnvelope(t *testing.T) {
	fs := newFakeLiveServer(t)
	ch := newTestChannel(fs)

	require.NoError(t, ch.Join(context.Background(), "ABC123", 42))
	defer ch.Leave(context.Background(), "ABC123", 42)
	fs.nextFrame(t) // join

	sent := entities.Message{
		RoomCode:   "ABC123",
		SenderID:   42,
		SenderRole: entities.RoleApplicant,
		Type:       entities.MessageTypeChat,
		Content:    "hello",
		SentAt:     time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, ch.SendMessage(context.Background(), sent))

	f := fs.nextFrame(t)
	assert.Equal(t, frameMessage, f.Type)
	assert.Equal(t, "ABC123", f.RoomCode)
	assert.NotEmpty(t, f.Ref)

	var msg entities.Message
	require.NoError(t, json.Unmarshal(f.Payload, &msg))
	assert.Equal(t, sent, msg)
}

func TestSendBeforeJoinFails(t *testing.T) {
	fs := newFakeLiveServer(t)
	ch := newTestChannel(fs)

	err := ch.SendMessage(context.Background(), entities.Message{Content: "too early"})
	assert.Error(t, err)
}

func TestInboundFramesReachHandlers(t *testing.T) {
	fs := newFakeLiveServer(t)
	ch := newTestChannel(fs)

	messages := make(chan entities.Message, 4)
	questions := make(chan entities.Message, 4)
	ends := make(chan gateway.EndSignal, 4)
	ch.OnMessage(func(m entities.Message) { messages <- m })
	ch.OnQuestion(func(m entities.Message) { questions <- m })
	ch.OnEnd(func(s gateway.EndSignal) { ends <- s })

	require.NoError(t, ch.Join(context.Background(), "ABC123", 42))
	defer ch.Leave(context.Background(), "ABC123", 42)
	fs.nextFrame(t) // join
	conn := fs.conn(t)

	push := func(ft frameType, payload interface{}) {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		require.NoError(t, conn.WriteJSON(frame{Type: ft, RoomCode: "ABC123", Payload: raw}))
	}

	push(frameMessage, entities.Message{RoomCode: "ABC123", Content: "hi", Type: entities.MessageTypeChat})
	push(frameQuestion, entities.Message{RoomCode: "ABC123", Content: "why?", Type: entities.MessageTypeQuestion})
	push(frameEnd, gateway.EndSignal{RoomCode: "ABC123", EndedBy: 1})

	select {
	case m := <-messages:
		assert.Equal(t, "hi", m.Content)
	case <-time.After(waitFor):
		t.Fatal("chat message never dispatched")
	}
	select {
	case q := <-questions:
		assert.Equal(t, entities.MessageTypeQuestion, q.Type)
	case <-time.After(waitFor):
		t.Fatal("question never dispatched")
	}
	select {
	case s := <-ends:
		assert.Equal(t, int64(1), s.EndedBy)
	case <-time.After(waitFor):
		t.Fatal("end signal never dispatched")
	}
}

func TestEndSignalRoomCodeFallsBackToEnvelope(t *testing.T) {
	fs := newFakeLiveServer(t)
	ch := newTestChannel(fs)

	ends := make(chan gateway.EndSignal, 1)
	ch.OnEnd(func(s gateway.EndSignal) { ends <- s })

	require.NoError(t, ch.Join(context.Background(), "ABC123", 42))
	defer ch.Leave(context.Background(), "ABC123", 42)
	fs.nextFrame(t)
	conn := fs.conn(t)

	raw, _ := json.Marshal(gateway.EndSignal{EndedBy: 1})
	require.NoError(t, conn.WriteJSON(frame{Type: frameEnd, RoomCode: "ABC123", Payload: raw}))

	select {
	case s := <-ends:
		assert.Equal(t, "ABC123", s.RoomCode)
	case <-time.After(waitFor):
		t.Fatal("end signal never dispatched")
	}
}

func TestUndecodableFrameIsSkipped(t *testing.T) {
	fs := newFakeLiveServer(t)
	ch := newTestChannel(fs)

	messages := make(chan entities.Message, 1)
	ch.OnMessage(func(m entities.Message) { messages <- m })

	require.NoError(t, ch.Join(context.Background(), "ABC123", 42))
	defer ch.Leave(context.Background(), "ABC123", 42)
	fs.nextFrame(t)
	conn := fs.conn(t)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not a frame")))

	// The channel survives the bad frame and keeps dispatching
	raw, _ := json.Marshal(entities.Message{RoomCode: "ABC123", Content: "still alive"})
	require.NoError(t, conn.WriteJSON(frame{Type: frameMessage, RoomCode: "ABC123", Payload: raw}))

	select {
	case m := <-messages:
		assert.Equal(t, "still alive", m.Content)
	case <-time.After(waitFor):
		t.Fatal("channel stopped dispatching after bad frame")
	}
}

func TestLeaveSendsLeaveFrameOnce(t *testing.T) {
	fs := newFakeLiveServer(t)
	ch := newTestChannel(fs)

	require.NoError(t, ch.Join(context.Background(), "ABC123", 42))
	fs.nextFrame(t) // join

	require.NoError(t, ch.Leave(context.Background(), "ABC123", 42))
	f := fs.nextFrame(t)
	assert.Equal(t, frameLeave, f.Type)
	assert.Equal(t, "ABC123", f.RoomCode)

	// Later calls are no-ops
	require.NoError(t, ch.Leave(context.Background(), "ABC123", 42))
	select {
	case extra := <-fs.frames:
		t.Fatalf("unexpected frame after second leave: %v", extra.Type)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestConcurrentSendsSurvivePings(t *testing.T) {
	fs := newFakeLiveServer(t)

	// Short pong wait so ping traffic overlaps the send storm
	ch := New(config.LiveConfig{
		URL:               fs.wsURL(),
		WriteWait:         time.Second,
		PongWait:          100 * time.Millisecond,
		MaxMessageSize:    1 << 16,
		ReconnectMaxWait:  100 * time.Millisecond,
		ReconnectMaxTries: 2,
	}, "live-token", nil)

	require.NoError(t, ch.Join(context.Background(), "ABC123", 42))
	defer ch.Leave(context.Background(), "ABC123", 42)

	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-fs.frames:
			case <-done:
				return
			}
		}
	}()

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 400; i++ {
				msg := entities.Message{
					RoomCode: "ABC123",
					SenderID: 42,
					Type:     entities.MessageTypeChat,
					Content:  "load",
					SentAt:   time.Now().UTC(),
				}
				if err := ch.SendMessage(context.Background(), msg); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("send failed mid-storm: %v", err)
	}
}

func TestDisconnectFiresWhenReconnectGivesUp(t *testing.T) {
	fs := newFakeLiveServer(t)
	ch := newTestChannel(fs)

	downs := make(chan error, 1)
	ch.OnDisconnect(func(err error) { downs <- err })

	require.NoError(t, ch.Join(context.Background(), "ABC123", 42))
	fs.nextFrame(t) // join
	conn := fs.conn(t)

	// Stop accepting dials first, then kill the live connection, so every
	// reconnect attempt fails. CloseClientConnections cannot be used here:
	// httptest stops tracking a connection once the upgrade hijacks it.
	fs.srv.Listener.Close()
	conn.UnderlyingConn().Close()

	select {
	case err := <-downs:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("disconnect handler never fired")
	}
}

func TestReconnectRejoinsAndFiresReplay(t *testing.T) {
	fs := newFakeLiveServer(t)
	ch := newTestChannel(fs)

	replays := make(chan struct{}, 1)
	ch.OnReplay(func() { replays <- struct{}{} })

	require.NoError(t, ch.Join(context.Background(), "ABC123", 42))
	defer ch.Leave(context.Background(), "ABC123", 42)
	fs.nextFrame(t) // join
	conn := fs.conn(t)

	// Kill the connection server-side to trigger the reconnect loop
	conn.Close()

	f := fs.nextFrame(t)
	assert.Equal(t, frameJoin, f.Type)
	assert.Equal(t, "ABC123", f.RoomCode)

	select {
	case <-replays:
	case <-time.After(waitFor):
		t.Fatal("replay handler never fired after reconnect")
	}
}
