package realtime

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oficios-app/marketplace-client/internal/core/domain"
	apperrors "github.com/oficios-app/marketplace-client/internal/core/errors"
	"github.com/oficios-app/marketplace-client/internal/core/mocks"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// wsHarness is a minimal websocket endpoint standing in for the dev server.
type wsHarness struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader
	received chan domain.Frame

	mu    sync.Mutex
	conns []*websocket.Conn
}

func newWSHarness(t *testing.T) *wsHarness {
	t.Helper()
	h := &wsHarness{received: make(chan domain.Frame, 64)}
	h.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != "good-token" {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		h.mu.Lock()
		h.conns = append(h.conns, conn)
		h.mu.Unlock()

		go func() {
			for {
				var frame domain.Frame
				if err := conn.ReadJSON(&frame); err != nil {
					return
				}
				h.received <- frame
			}
		}()
	}))
	t.Cleanup(h.Close)
	return h
}

func (h *wsHarness) URL() string {
	return "ws" + strings.TrimPrefix(h.srv.URL, "http")
}

// Push writes a frame to the most recent connection.
func (h *wsHarness) Push(t *testing.T, frame domain.Frame) {
	t.Helper()
	h.mu.Lock()
	require.NotEmpty(t, h.conns)
	conn := h.conns[len(h.conns)-1]
	h.mu.Unlock()
	require.NoError(t, conn.WriteJSON(frame))
}

// DropAll closes every server-side connection without a close handshake.
func (h *wsHarness) DropAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, conn := range h.conns {
		_ = conn.Close()
	}
	h.conns = nil
}

func (h *wsHarness) Close() {
	h.DropAll()
	h.srv.Close()
}

func (h *wsHarness) next(t *testing.T) domain.Frame {
	t.Helper()
	select {
	case frame := <-h.received:
		return frame
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return domain.Frame{}
	}
}

func newTestTransport(h *wsHarness, token string, opts Options) *Transport {
	session := &mocks.StaticSession{BearerToken: token, ID: uuid.New(), UserRole: domain.RoleCliente}
	return NewTransport(h.URL(), session, testLogger(), opts)
}

func TestConnectRequiresToken(t *testing.T) {
	h := newWSHarness(t)
	tr := newTestTransport(h, "", Options{})

	err := tr.Connect(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeAuthFailure, apperrors.CodeOf(err))
	assert.False(t, tr.Connected())
}

func TestConnectRejectedToken(t *testing.T) {
	h := newWSHarness(t)
	tr := newTestTransport(h, "stale-token", Options{})

	err := tr.Connect(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeAuthFailure, apperrors.CodeOf(err))
}

func TestConnectAndEmit(t *testing.T) {
	h := newWSHarness(t)
	tr := newTestTransport(h, "good-token", Options{})
	defer tr.Disconnect()

	require.NoError(t, tr.Connect(context.Background()))
	assert.True(t, tr.Connected())

	// Idempotent: a second Connect reuses the live connection.
	require.NoError(t, tr.Connect(context.Background()))

	chatID := uuid.New()
	require.NoError(t, tr.SendMessage(chatID, "hola"))

	frame := h.next(t)
	assert.Equal(t, domain.EventSendMessage, frame.Type)
}

func TestEmitWhileDisconnected(t *testing.T) {
	h := newWSHarness(t)
	tr := newTestTransport(h, "good-token", Options{})

	err := tr.SendMessage(uuid.New(), "hola")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeDisconnected, apperrors.CodeOf(err))
	assert.ErrorIs(t, err, apperrors.ErrDisconnected)
}

func TestSubscribeReceivesPushedFrames(t *testing.T) {
	h := newWSHarness(t)
	tr := newTestTransport(h, "good-token", Options{})
	defer tr.Disconnect()

	first := make(chan domain.Frame, 1)
	second := make(chan domain.Frame, 1)
	tr.Subscribe(domain.EventMessageReceived, func(f domain.Frame) { first <- f })
	tr.Subscribe(domain.EventMessageReceived, func(f domain.Frame) { second <- f })

	require.NoError(t, tr.Connect(context.Background()))

	pushed, err := domain.NewFrame(domain.EventMessageReceived, domain.MessageReceivedPayload{
		ChatID: uuid.New(),
	})
	require.NoError(t, err)
	h.Push(t, pushed)

	for _, ch := range []chan domain.Frame{first, second} {
		select {
		case frame := <-ch:
			assert.Equal(t, domain.EventMessageReceived, frame.Type)
		case <-time.After(2 * time.Second):
			t.Fatal("subscriber did not receive the pushed frame")
		}
	}
}

func TestTypingThrottle(t *testing.T) {
	h := newWSHarness(t)
	tr := newTestTransport(h, "good-token", Options{TypingPerSecond: 1, TypingBurst: 1})
	defer tr.Disconnect()

	require.NoError(t, tr.Connect(context.Background()))

	chatID := uuid.New()
	require.NoError(t, tr.SendTyping(chatID))
	require.NoError(t, tr.SendTyping(chatID), "throttled call reports success and is dropped")

	frame := h.next(t)
	assert.Equal(t, domain.EventTyping, frame.Type)

	select {
	case extra := <-h.received:
		t.Fatalf("expected the second typing frame to be throttled, got %s", extra.Type)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestReconnectAfterDrop(t *testing.T) {
	h := newWSHarness(t)
	tr := newTestTransport(h, "good-token", Options{})
	defer tr.Disconnect()

	require.NoError(t, tr.Connect(context.Background()))

	chatID := uuid.New()
	tr.JoinRoom(chatID)
	join := h.next(t)
	require.Equal(t, domain.EventJoinChat, join.Type)

	h.DropAll()

	// The retry loop waits a fixed interval between attempts.
	require.Eventually(t, tr.Connected, 5*time.Second, 50*time.Millisecond,
		"transport should re-establish the connection on its own")

	// Joined rooms are re-announced on the new connection.
	rejoin := h.next(t)
	assert.Equal(t, domain.EventJoinChat, rejoin.Type)
}

func TestDisconnectIsFinal(t *testing.T) {
	h := newWSHarness(t)
	tr := newTestTransport(h, "good-token", Options{})

	require.NoError(t, tr.Connect(context.Background()))
	tr.Disconnect()

	assert.False(t, tr.Connected())

	err := tr.Emit(domain.Frame{Type: domain.EventTyping})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeDisconnected, apperrors.CodeOf(err))

	// No reconnect loop after an explicit disconnect.
	time.Sleep(1500 * time.Millisecond)
	assert.False(t, tr.Connected())
}
