package devserver

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/oficios-app/marketplace-client/internal/core/domain"
)

const (
	// Time allowed to write a frame to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum frame size allowed from peer.
	maxMessageSize = 8192

	// Inbound frame budget per connection.
	inboundPerSecond = 20
	inboundBurst     = 40
)

// wsClient is a middleman between one websocket connection and the hub.
type wsClient struct {
	Hub *Hub

	srv *Server

	Conn *websocket.Conn

	// Buffered channel of outbound frames.
	Send chan domain.Frame

	UserID uuid.UUID
	Role   domain.Role

	// rooms maps joined conversation IDs to true.
	rooms map[uuid.UUID]bool

	// limiter caps inbound frames so one connection cannot starve the hub.
	limiter *rate.Limiter

	closeOnce sync.Once

	mu sync.RWMutex

	logger *slog.Logger
}

func newWSClient(srv *Server, conn *websocket.Conn, userID uuid.UUID, role domain.Role) *wsClient {
	return &wsClient{
		Hub:     srv.hub,
		srv:     srv,
		Conn:    conn,
		Send:    make(chan domain.Frame, 256),
		UserID:  userID,
		Role:    role,
		rooms:   make(map[uuid.UUID]bool),
		limiter: rate.NewLimiter(rate.Limit(inboundPerSecond), inboundBurst),
		logger:  srv.logger.With("user_id", userID.String()),
	}
}

// CloseSend safely closes the Send channel exactly once.
func (c *wsClient) CloseSend() {
	c.closeOnce.Do(func() {
		close(c.Send)
	})
}

func (c *wsClient) AddRoom(chatID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rooms[chatID] = true
}

func (c *wsClient) RemoveRoom(chatID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rooms, chatID)
}

// Rooms returns a copy of the joined conversation ids.
func (c *wsClient) Rooms() []uuid.UUID {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]uuid.UUID, 0, len(c.rooms))
	for chatID := range c.rooms {
		out = append(out, chatID)
	}
	return out
}

// ReadPump pumps frames from the websocket connection to the hub.
// This method runs in its own goroutine.
func (c *wsClient) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error("failed to set read deadline", "error", err)
		return
	}

	c.Conn.SetPongHandler(func(string) error {
		if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.logger.Error("failed to set read deadline in pong handler", "error", err)
		}
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			break
		}

		if !c.limiter.Allow() {
			c.logger.Warn("inbound frame rate exceeded, dropping frame")
			continue
		}

		c.handleIncomingFrame(message)
	}
}

// WritePump pumps frames from the hub to the websocket connection.
// This method runs in its own goroutine.
func (c *wsClient) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.Send:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline", "error", err)
				return
			}

			if !ok {
				// The hub closed the channel. Send close message.
				if err := c.Conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					c.logger.Debug("failed to send close message", "error", err)
				}
				return
			}

			if err := c.writeJSON(frame); err != nil {
				c.logger.Error("failed to write frame", "error", err)
				return
			}

		case <-ticker.C:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline for ping", "error", err)
				return
			}

			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
				return
			}
		}
	}
}

func (c *wsClient) writeJSON(frame domain.Frame) error {
	w, err := c.Conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}

	if err := json.NewEncoder(w).Encode(frame); err != nil {
		_ = w.Close()
		return err
	}

	return w.Close()
}

func (c *wsClient) handleIncomingFrame(message []byte) {
	var frame domain.Frame
	if err := json.Unmarshal(message, &frame); err != nil {
		c.logger.Warn("failed to unmarshal client frame", "error", err)
		return
	}

	if err := c.srv.dispatchFrame(c, frame); err != nil {
		c.logger.Warn("failed to handle client frame",
			"event_type", frame.Type,
			"error", err,
		)
	}
}
