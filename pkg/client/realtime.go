package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/noah-isme/studyrooms-api/internal/dto"
)

const (
	// DefaultMaxReconnectAttempts bounds reconnection after an unexpected closure.
	DefaultMaxReconnectAttempts = 5
	// ConnectionFailedMessage is left in the store when a dial fails.
	ConnectionFailedMessage = "connection failed"

	writeWait = 10 * time.Second
)

// ReconnectDelay is the wait before reconnect attempt n (1-based).
func ReconnectDelay(attempt int) time.Duration {
	return time.Duration(attempt) * 2 * time.Second
}

// RealtimeClient keeps a websocket to /ws, feeds every event into a ConnectionStore, and
// reconnects with a linear backoff after unexpected closures.
type RealtimeClient struct {
	url         string
	token       func() string
	store       *ConnectionStore
	dialer      *websocket.Dialer
	logger      zerolog.Logger
	maxAttempts int
	backoff     func(attempt int) time.Duration
	wait        func(ctx context.Context, d time.Duration) error
	onEvent     func(dto.RealtimeEvent)

	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc

	writeMu sync.Mutex
}

// RealtimeOption customises a RealtimeClient.
type RealtimeOption func(*RealtimeClient)

// WithEventHandler receives every event after the store has been updated.
func WithEventHandler(fn func(dto.RealtimeEvent)) RealtimeOption {
	return func(r *RealtimeClient) {
		r.onEvent = fn
	}
}

func WithRealtimeLogger(logger zerolog.Logger) RealtimeOption {
	return func(r *RealtimeClient) {
		r.logger = logger.With().Str("component", "realtime_client").Logger()
	}
}

func WithMaxReconnectAttempts(attempts int) RealtimeOption {
	return func(r *RealtimeClient) {
		r.maxAttempts = attempts
	}
}

// NewRealtimeClient targets wsURL (e.g. "ws://localhost:8000/ws"); token is read on every dial.
func NewRealtimeClient(wsURL string, token func() string, store *ConnectionStore, opts ...RealtimeOption) *RealtimeClient {
	r := &RealtimeClient{
		url:         wsURL,
		token:       token,
		store:       store,
		dialer:      websocket.DefaultDialer,
		logger:      zerolog.Nop(),
		maxAttempts: DefaultMaxReconnectAttempts,
		backoff:     ReconnectDelay,
		wait:        sleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Connect dials once. Reconnection only applies to connections that were established.
func (r *RealtimeClient) Connect(ctx context.Context) error {
	r.mu.Lock()
	if r.conn != nil {
		r.mu.Unlock()
		return nil
	}
	if r.cancel != nil {
		r.cancel()
	}
	runCtx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.mu.Unlock()

	r.store.dispatch(connectionAction{kind: actionConnecting})
	conn, err := r.dial(ctx)
	if err != nil {
		r.store.dispatch(connectionAction{kind: actionError, err: ConnectionFailedMessage})
		return err
	}
	r.attach(runCtx, conn)
	return nil
}

// Close disconnects and stops any pending reconnection.
func (r *RealtimeClient) Close() error {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	conn := r.conn
	r.conn = nil
	r.mu.Unlock()

	var err error
	if conn != nil {
		r.writeMu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		r.writeMu.Unlock()
		err = conn.Close()
	}
	r.store.dispatch(connectionAction{kind: actionDisconnected})
	return err
}

// JoinRoom subscribes to a room. It returns false when not connected.
func (r *RealtimeClient) JoinRoom(roomID string) bool {
	if !r.send(dto.RealtimeCommand{Type: dto.EventJoinRoom, RoomID: roomID}) {
		return false
	}
	r.store.dispatch(connectionAction{kind: actionCurrentRoom, roomID: roomID})
	return true
}

// LeaveRoom unsubscribes from a room. It returns false when not connected.
func (r *RealtimeClient) LeaveRoom(roomID string) bool {
	if !r.send(dto.RealtimeCommand{Type: dto.EventLeaveRoom, RoomID: roomID}) {
		return false
	}
	r.store.dispatch(connectionAction{kind: actionCurrentRoom})
	return true
}

// SendTyping announces typing state in a joined room. It returns false when not connected.
func (r *RealtimeClient) SendTyping(roomID string, isTyping bool) bool {
	return r.send(dto.RealtimeCommand{Type: dto.EventTyping, RoomID: roomID, IsTyping: isTyping})
}

func (r *RealtimeClient) send(cmd dto.RealtimeCommand) bool {
	r.mu.Lock()
	conn := r.conn
	r.mu.Unlock()
	if conn == nil {
		return false
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(cmd); err != nil {
		r.logger.Warn().Err(err).Str("type", cmd.Type).Msg("realtime send failed")
		return false
	}
	return true
}

func (r *RealtimeClient) dial(ctx context.Context) (*websocket.Conn, error) {
	target, err := url.Parse(r.url)
	if err != nil {
		return nil, fmt.Errorf("invalid realtime url: %w", err)
	}
	query := target.Query()
	query.Set("token", r.token())
	target.RawQuery = query.Encode()

	conn, _, err := r.dialer.DialContext(ctx, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial realtime: %w", err)
	}
	return conn, nil
}

func (r *RealtimeClient) attach(ctx context.Context, conn *websocket.Conn) bool {
	r.mu.Lock()
	if ctx.Err() != nil {
		r.mu.Unlock()
		_ = conn.Close()
		return false
	}
	r.conn = conn
	r.mu.Unlock()

	r.store.dispatch(connectionAction{kind: actionConnected})
	go r.readLoop(ctx, conn)
	return true
}

func (r *RealtimeClient) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var event dto.RealtimeEvent
		if err := json.Unmarshal(data, &event); err != nil {
			r.logger.Debug().Err(err).Msg("ignoring malformed realtime message")
			continue
		}
		r.handle(event)
	}

	r.mu.Lock()
	if r.conn == conn {
		r.conn = nil
	}
	r.mu.Unlock()
	_ = conn.Close()

	if ctx.Err() != nil {
		return
	}
	r.store.dispatch(connectionAction{kind: actionDisconnected})
	r.reconnect(ctx)
}

func (r *RealtimeClient) reconnect(ctx context.Context) {
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		if err := r.wait(ctx, r.backoff(attempt)); err != nil {
			return
		}

		r.store.dispatch(connectionAction{kind: actionConnecting})
		conn, err := r.dial(ctx)
		if err != nil {
			r.logger.Warn().Err(err).Int("attempt", attempt).Msg("realtime reconnect failed")
			r.store.dispatch(connectionAction{kind: actionError, err: ConnectionFailedMessage})
			continue
		}
		if !r.attach(ctx, conn) {
			return
		}
		if room := r.store.State().CurrentRoom; room != "" {
			r.send(dto.RealtimeCommand{Type: dto.EventJoinRoom, RoomID: room})
		}
		return
	}

	r.logger.Error().Int("attempts", r.maxAttempts).Msg("realtime reconnection abandoned")
	r.store.dispatch(connectionAction{kind: actionError, err: ConnectionFailedMessage})
}

func (r *RealtimeClient) handle(event dto.RealtimeEvent) {
	timestamp := event.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	switch event.Type {
	case dto.EventOnlineUsers:
		r.store.dispatch(connectionAction{kind: actionOnlineUsers, users: event.Users})
	case dto.EventUserTyping:
		r.store.dispatch(connectionAction{kind: actionTyping, userID: event.UserID, isTyping: event.IsTyping != nil && *event.IsTyping})
	case dto.EventNewPost:
		r.store.notify(Notification{Type: event.Type, Message: "New post: " + event.Title, RoomID: event.RoomID, PostID: event.PostID, Timestamp: timestamp})
	case dto.EventNewDoubt:
		r.store.notify(Notification{Type: event.Type, Message: "New doubt: " + event.Title, RoomID: event.RoomID, Timestamp: timestamp})
	case dto.EventNewComment:
		r.store.notify(Notification{Type: event.Type, Message: "New comment on: " + event.PostTitle, RoomID: event.RoomID, PostID: event.PostID, Timestamp: timestamp})
	case dto.EventError:
		r.store.dispatch(connectionAction{kind: actionError, err: event.Message})
	default:
		r.logger.Debug().Str("type", event.Type).Msg("unknown realtime event")
	}

	if r.onEvent != nil {
		r.onEvent(event)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
