// Package livechannel implements the LiveChannel contract over a persistent
// WebSocket connection scoped to one room.
package livechannel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/hireflow-dev/interview-room/internal/domain/entities"
	"github.com/hireflow-dev/interview-room/internal/domain/gateway"
	"github.com/hireflow-dev/interview-room/pkg/config"
)

// Channel is the WebSocket implementation of gateway.LiveChannel. It dials on
// Join, keeps the connection alive with pings, dispatches inbound frames to
// the registered handlers and reconnects with exponential backoff when the
// read loop fails. After a successful reconnect it rejoins the room and fires
// the replay handler so the consumer can refetch history.
type Channel struct {
	wsURL       string
	accessToken string
	cfg         config.LiveConfig
	dialer      *websocket.Dialer
	logger      *zap.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	stopPing chan struct{}
	roomCode string
	userID   int64
	joined   bool
	closed   bool

	// writeMu serializes data writes on the connection. gorilla/websocket
	// allows only one concurrent writer; pings bypass this via WriteControl,
	// which is the one write method safe to call concurrently.
	writeMu sync.Mutex

	onMessage    gateway.MessageHandler
	onQuestion   gateway.QuestionHandler
	onEnd        gateway.EndHandler
	onReplay     gateway.ReplayHandler
	onDisconnect gateway.DisconnectHandler
}

// New creates a channel; no connection is made until Join
func New(cfg config.LiveConfig, accessToken string, logger *zap.Logger) *Channel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Channel{
		wsURL:       cfg.URL,
		accessToken: accessToken,
		cfg:         cfg,
		dialer:      websocket.DefaultDialer,
		logger:      logger,
	}
}

// OnMessage registers the chat/system message handler
func (c *Channel) OnMessage(h gateway.MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onMessage = h
}

// OnQuestion registers the question event handler
func (c *Channel) OnQuestion(h gateway.QuestionHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onQuestion = h
}

// OnEnd registers the end-of-interview handler
func (c *Channel) OnEnd(h gateway.EndHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEnd = h
}

// OnReplay registers the post-reconnect handler
func (c *Channel) OnReplay(h gateway.ReplayHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onReplay = h
}

// OnDisconnect registers the handler fired when the channel gives up
// reconnecting
func (c *Channel) OnDisconnect(h gateway.DisconnectHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDisconnect = h
}

// Join dials the live backend and subscribes to the room
func (c *Channel) Join(ctx context.Context, roomCode string, userID int64) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("live channel is closed")
	}
	if c.joined {
		c.mu.Unlock()
		return fmt.Errorf("live channel already joined room %s", c.roomCode)
	}
	c.roomCode = roomCode
	c.userID = userID
	c.mu.Unlock()

	conn, err := c.dial(ctx)
	if err != nil {
		return fmt.Errorf("failed to dial live channel: %w", err)
	}
	c.adopt(conn)

	if err := c.writeFrame(frame{Type: frameJoin, Ref: uuid.New().String(), RoomCode: roomCode, UserID: userID}); err != nil {
		c.teardownConn()
		return fmt.Errorf("failed to join room: %w", err)
	}

	c.mu.Lock()
	c.joined = true
	c.mu.Unlock()
	return nil
}

// Leave unsubscribes from the room and closes the connection. Safe to call
// once per channel on any exit path; later calls are no-ops.
func (c *Channel) Leave(ctx context.Context, roomCode string, userID int64) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	wasJoined := c.joined
	c.mu.Unlock()

	var writeErr error
	if wasJoined {
		writeErr = c.writeFrame(frame{Type: frameLeave, RoomCode: roomCode, UserID: userID})
	}
	c.teardownConn()

	if writeErr != nil {
		c.logger.Warn("leave frame not delivered",
			zap.String("room_code", roomCode),
			zap.Error(writeErr),
		)
	}
	return nil
}

// SendMessage publishes a chat message to the room
func (c *Channel) SendMessage(ctx context.Context, msg entities.Message) error {
	return c.sendEvent(frameMessage, msg)
}

// SendQuestion publishes a QUESTION-typed message to the room
func (c *Channel) SendQuestion(ctx context.Context, msg entities.Message) error {
	return c.sendEvent(frameQuestion, msg)
}

// EndInterview broadcasts the end-of-interview signal
func (c *Channel) EndInterview(ctx context.Context, roomCode string, userID int64) error {
	payload, err := json.Marshal(gateway.EndSignal{
		RoomCode: roomCode,
		EndedBy:  userID,
		EndedAt:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode end signal: %w", err)
	}
	return c.writeFrame(frame{
		Type:     frameEnd,
		Ref:      uuid.New().String(),
		RoomCode: roomCode,
		UserID:   userID,
		Payload:  payload,
	})
}

func (c *Channel) sendEvent(ft frameType, msg entities.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	return c.writeFrame(frame{
		Type:     ft,
		Ref:      uuid.New().String(),
		RoomCode: msg.RoomCode,
		UserID:   msg.SenderID,
		Payload:  payload,
	})
}

func (c *Channel) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if c.accessToken != "" {
		header.Set("Authorization", "Bearer "+c.accessToken)
	}
	conn, resp, err := c.dialer.DialContext(ctx, c.wsURL, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return conn, err
}

// adopt installs a fresh connection and starts its pumps
func (c *Channel) adopt(conn *websocket.Conn) {
	stop := make(chan struct{})

	c.mu.Lock()
	c.conn = conn
	c.stopPing = stop
	c.mu.Unlock()

	go c.readPump(conn)
	go c.pingLoop(conn, stop)
}

func (c *Channel) teardownConn() {
	c.mu.Lock()
	conn := c.conn
	stop := c.stopPing
	c.conn = nil
	c.stopPing = nil
	c.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	if conn != nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(c.cfg.WriteWait))
		conn.Close()
	}
}

func (c *Channel) writeFrame(f frame) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("live channel not connected")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
	if err := conn.WriteJSON(f); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// readPump reads frames until the connection fails, then hands over to the
// reconnect loop unless the channel was closed deliberately.
func (c *Channel) readPump(conn *websocket.Conn) {
	conn.SetReadLimit(c.cfg.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		return nil
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("live channel read failed", zap.Error(err))
			}
			break
		}

		var f frame
		if err := json.Unmarshal(raw, &f); err != nil {
			c.logger.Warn("undecodable live frame skipped", zap.Error(err))
			continue
		}
		c.dispatch(f)
	}

	c.mu.Lock()
	closed := c.closed
	current := c.conn == conn
	c.mu.Unlock()

	if closed || !current {
		return
	}
	c.teardownConn()
	c.reconnect()
}

// pingLoop keeps the connection alive; the server answers with pongs that
// push the read deadline forward.
func (c *Channel) pingLoop(conn *websocket.Conn, stop chan struct{}) {
	pingPeriod := c.cfg.PongWait * 9 / 10
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			deadline := time.Now().Add(c.cfg.WriteWait)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

// dispatch routes one inbound frame to its handler. Question frames carry
// QUESTION-typed messages; anything unrecognized is logged and dropped here
// because there is no stream to append it to yet.
func (c *Channel) dispatch(f frame) {
	c.mu.Lock()
	onMessage := c.onMessage
	onQuestion := c.onQuestion
	onEnd := c.onEnd
	c.mu.Unlock()

	switch f.Type {
	case frameMessage:
		var msg entities.Message
		if err := json.Unmarshal(f.Payload, &msg); err != nil {
			c.logger.Warn("undecodable message payload", zap.Error(err))
			return
		}
		if onMessage != nil {
			onMessage(msg)
		}
	case frameQuestion:
		var msg entities.Message
		if err := json.Unmarshal(f.Payload, &msg); err != nil {
			c.logger.Warn("undecodable question payload", zap.Error(err))
			return
		}
		if onQuestion != nil {
			onQuestion(msg)
		}
	case frameEnd:
		var sig gateway.EndSignal
		if err := json.Unmarshal(f.Payload, &sig); err != nil {
			c.logger.Warn("undecodable end payload", zap.Error(err))
			return
		}
		if sig.RoomCode == "" {
			sig.RoomCode = f.RoomCode
		}
		if onEnd != nil {
			onEnd(sig)
		}
	default:
		c.logger.Debug("unhandled live frame", zap.String("type", string(f.Type)))
	}
}

// reconnect re-dials with exponential backoff, rejoins the room and fires the
// replay handler. Gives up after the configured number of tries and reports
// the dead channel through the disconnect handler so the screen can tell the
// user live delivery stopped.
func (c *Channel) reconnect() {
	c.mu.Lock()
	roomCode := c.roomCode
	userID := c.userID
	onReplay := c.onReplay
	onDisconnect := c.onDisconnect
	c.mu.Unlock()

	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = c.cfg.ReconnectMaxWait
	bo.MaxElapsedTime = 0

	operation := func() error {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return backoff.Permanent(fmt.Errorf("live channel closed"))
		}
		c.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.WriteWait)
		defer cancel()

		conn, err := c.dial(ctx)
		if err != nil {
			c.logger.Warn("live channel reconnect attempt failed", zap.Error(err))
			return err
		}
		c.adopt(conn)

		if err := c.writeFrame(frame{Type: frameJoin, Ref: uuid.New().String(), RoomCode: roomCode, UserID: userID}); err != nil {
			c.teardownConn()
			return err
		}
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithMaxRetries(bo, uint64(c.cfg.ReconnectMaxTries))); err != nil {
		c.logger.Error("live channel reconnect gave up",
			zap.String("room_code", roomCode),
			zap.Error(err),
		)
		if onDisconnect != nil {
			onDisconnect(err)
		}
		return
	}

	c.logger.Info("live channel reconnected", zap.String("room_code", roomCode))
	if onReplay != nil {
		onReplay()
	}
}
