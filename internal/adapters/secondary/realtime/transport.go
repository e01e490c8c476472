package realtime

import (
	"context"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/oficios-app/marketplace-client/internal/core/domain"
	apperrors "github.com/oficios-app/marketplace-client/internal/core/errors"
	"github.com/oficios-app/marketplace-client/internal/core/ports"
)

const (
	// Time allowed for the websocket handshake to complete.
	dialTimeout = 10 * time.Second

	// Fixed retry budget after a dropped connection.
	reconnectAttempts = 5
	reconnectInterval = time.Second

	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed between server pings before the read fails.
	pongWait = 60 * time.Second

	// Maximum message size allowed from the peer.
	maxMessageSize = 8192
)

// connectAttempt lets concurrent Connect callers await a single in-flight
// dial instead of starting another one.
type connectAttempt struct {
	done chan struct{}
	err  error
}

// Transport owns the single realtime connection for a session. It is
// constructed on login and torn down on logout, and injected into consumers.
type Transport struct {
	rawURL  string
	session ports.Session
	bus     *Bus
	logger  *slog.Logger
	typing  *rate.Limiter

	// mu guards conn, attempt, rooms and closed. writeMu serializes frame
	// writes; gorilla connections support one concurrent writer only.
	mu      sync.Mutex
	writeMu sync.Mutex
	conn    *websocket.Conn
	attempt *connectAttempt
	rooms   map[uuid.UUID]bool
	closed  bool
}

var _ ports.Transport = (*Transport)(nil)

// Options tunes transport behavior. Zero values fall back to defaults.
type Options struct {
	TypingPerSecond float64
	TypingBurst     int
}

func NewTransport(rawURL string, session ports.Session, logger *slog.Logger, opts Options) *Transport {
	if opts.TypingPerSecond <= 0 {
		opts.TypingPerSecond = 1
	}
	if opts.TypingBurst <= 0 {
		opts.TypingBurst = 2
	}
	return &Transport{
		rawURL:  rawURL,
		session: session,
		bus:     NewBus(),
		logger:  logger.With("component", "realtime_transport"),
		typing:  rate.NewLimiter(rate.Limit(opts.TypingPerSecond), opts.TypingBurst),
		rooms:   make(map[uuid.UUID]bool),
	}
}

// Connect establishes the connection. It is idempotent: a live connection is
// reused and a concurrent caller awaits the in-flight attempt. Without a
// bearer token it fails immediately, before any dial.
func (t *Transport) Connect(ctx context.Context) error {
	t.mu.Lock()
	if t.conn != nil {
		t.mu.Unlock()
		return nil
	}
	if t.attempt != nil {
		a := t.attempt
		t.mu.Unlock()
		select {
		case <-a.done:
			return a.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if t.session.Token() == "" {
		t.mu.Unlock()
		return apperrors.NewAuthError("a bearer token is required to connect")
	}

	a := &connectAttempt{done: make(chan struct{})}
	t.attempt = a
	t.closed = false
	t.mu.Unlock()

	err := t.dial(ctx)

	t.mu.Lock()
	t.attempt = nil
	t.mu.Unlock()

	a.err = err
	close(a.done)
	return err
}

// dial performs one handshake and, on success, installs the connection and
// re-joins previously joined rooms.
func (t *Transport) dial(ctx context.Context) error {
	endpoint, err := url.Parse(t.rawURL)
	if err != nil {
		return apperrors.NewNetworkError(err)
	}
	query := endpoint.Query()
	query.Set("token", t.session.Token())
	endpoint.RawQuery = query.Encode()

	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, resp, err := dialer.DialContext(ctx, endpoint.String(), nil)
	if err != nil {
		if resp != nil && resp.StatusCode == 401 {
			return apperrors.NewAuthError("realtime handshake rejected the token")
		}
		return apperrors.NewNetworkError(err)
	}

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(message string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(message), time.Now().Add(writeWait))
	})

	t.mu.Lock()
	if t.closed || t.conn != nil {
		// Disconnected (or raced by another dial) while handshaking.
		t.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	t.conn = conn
	rooms := make([]uuid.UUID, 0, len(t.rooms))
	for chatID := range t.rooms {
		rooms = append(rooms, chatID)
	}
	t.mu.Unlock()

	go t.readPump(conn)

	for _, chatID := range rooms {
		if err := t.emitRoom(domain.EventJoinChat, chatID); err != nil {
			t.logger.Warn("failed to re-join room after reconnect", "chat_id", chatID, "error", err)
		}
	}

	t.logger.Info("realtime connection established")
	return nil
}

// readPump delivers inbound frames to the bus until the connection drops,
// then hands off to the reconnect loop unless the drop was requested.
func (t *Transport) readPump(conn *websocket.Conn) {
	for {
		var frame domain.Frame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				t.logger.Warn("realtime read error", "error", err)
			}
			break
		}
		t.bus.Publish(frame)
	}
	_ = conn.Close()

	t.mu.Lock()
	if t.conn == conn {
		t.conn = nil
	}
	closed := t.closed
	t.mu.Unlock()

	if closed {
		return
	}
	t.reconnect()
}

// reconnect retries the handshake on a fixed budget. Exhausting it leaves the
// transport disconnected until Connect is explicitly invoked again.
func (t *Transport) reconnect() {
	for attempt := 1; attempt <= reconnectAttempts; attempt++ {
		time.Sleep(reconnectInterval)

		t.mu.Lock()
		if t.closed || t.conn != nil {
			t.mu.Unlock()
			return
		}
		t.mu.Unlock()

		if t.session.Token() == "" {
			t.logger.Warn("skipping reconnect, session has no token")
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
		err := t.dial(ctx)
		cancel()
		if err == nil {
			t.logger.Info("realtime connection re-established", "attempt", attempt)
			return
		}
		t.logger.Warn("reconnect attempt failed", "attempt", attempt, "error", err)
	}

	t.logger.Error("reconnect budget exhausted, realtime channel down until next Connect",
		"attempts", reconnectAttempts,
	)
}

// Disconnect tears down the connection and removes every registered
// subscriber, so handlers cannot leak across UI remounts.
func (t *Transport) Disconnect() {
	t.mu.Lock()
	t.closed = true
	conn := t.conn
	t.conn = nil
	t.rooms = make(map[uuid.UUID]bool)
	t.mu.Unlock()

	t.bus.Clear()

	if conn != nil {
		t.writeMu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		t.writeMu.Unlock()
		_ = conn.Close()
		t.logger.Info("realtime connection closed")
	}
}

// Connected reports whether a live connection exists.
func (t *Transport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn != nil
}

// JoinRoom subscribes to a conversation's events. While disconnected it is a
// no-op with a warning, not an error.
func (t *Transport) JoinRoom(chatID uuid.UUID) {
	t.mu.Lock()
	if t.conn == nil {
		t.mu.Unlock()
		t.logger.Warn("join_chat ignored while disconnected", "chat_id", chatID)
		return
	}
	t.rooms[chatID] = true
	t.mu.Unlock()

	if err := t.emitRoom(domain.EventJoinChat, chatID); err != nil {
		t.logger.Warn("failed to join room", "chat_id", chatID, "error", err)
	}
}

// LeaveRoom unsubscribes from a conversation's events.
func (t *Transport) LeaveRoom(chatID uuid.UUID) {
	t.mu.Lock()
	delete(t.rooms, chatID)
	connected := t.conn != nil
	t.mu.Unlock()

	if !connected {
		t.logger.Warn("leave_chat ignored while disconnected", "chat_id", chatID)
		return
	}
	if err := t.emitRoom(domain.EventLeaveChat, chatID); err != nil {
		t.logger.Warn("failed to leave room", "chat_id", chatID, "error", err)
	}
}

// SendMessage emits a chat message. It fails immediately while disconnected;
// callers must not assume an offline queue.
func (t *Transport) SendMessage(chatID uuid.UUID, texto string) error {
	frame, err := domain.NewFrame(domain.EventSendMessage, domain.SendMessagePayload{
		ChatID: chatID,
		Texto:  texto,
	})
	if err != nil {
		return err
	}
	return t.Emit(frame)
}

// SendTyping emits a typing indicator, throttled so key-press storms do not
// flood the channel. A throttled call is silently dropped.
func (t *Transport) SendTyping(chatID uuid.UUID) error {
	if !t.typing.Allow() {
		return nil
	}
	frame, err := domain.NewFrame(domain.EventTyping, domain.TypingPayload{ChatID: chatID})
	if err != nil {
		return err
	}
	return t.Emit(frame)
}

// SendRead emits a read-receipt batch.
func (t *Transport) SendRead(chatID uuid.UUID, messageIDs []uuid.UUID) error {
	frame, err := domain.NewFrame(domain.EventReadMessages, domain.ReadMessagesPayload{
		ChatID:     chatID,
		MessageIDs: messageIDs,
	})
	if err != nil {
		return err
	}
	return t.Emit(frame)
}

// Emit writes one frame to the connection.
func (t *Transport) Emit(frame domain.Frame) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		return apperrors.NewDisconnectedError()
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(frame); err != nil {
		return apperrors.NewNetworkError(err)
	}
	return nil
}

// Subscribe registers an inbound-event handler on the transport's bus.
func (t *Transport) Subscribe(et domain.EventType, h ports.EventHandler) (cancel func()) {
	return t.bus.Subscribe(et, h)
}

func (t *Transport) emitRoom(et domain.EventType, chatID uuid.UUID) error {
	frame, err := domain.NewFrame(et, domain.JoinChatPayload{ChatID: chatID})
	if err != nil {
		return err
	}
	return t.Emit(frame)
}
