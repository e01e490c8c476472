package devserver

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/oficios-app/marketplace-client/internal/core/domain"
)

// roomEvent is a frame addressed to every member of a conversation room,
// optionally excluding the originating connection.
type roomEvent struct {
	ChatID uuid.UUID
	Frame  domain.Frame
	Except *wsClient
}

// Hub maintains the set of active connections and routes frames to them.
type Hub struct {
	// clients maps user IDs to their active connections.
	// A single user can have multiple connections (multiple tabs/devices).
	clients map[uuid.UUID]map[*wsClient]bool

	// rooms maps conversation IDs to joined connections.
	rooms map[uuid.UUID]map[*wsClient]bool

	broadcast chan roomEvent

	// Register requests from connections.
	Register chan *wsClient

	// Unregister requests from connections.
	Unregister chan *wsClient

	mu sync.RWMutex

	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*wsClient]bool),
		rooms:      make(map[uuid.UUID]map[*wsClient]bool),
		broadcast:  make(chan roomEvent, 256),
		Register:   make(chan *wsClient),
		Unregister: make(chan *wsClient),
		logger:     logger.With("component", "websocket_hub"),
	}
}

// BroadcastToRoom queues a frame for every connection joined to the
// conversation. except, when non-nil, is skipped.
func (h *Hub) BroadcastToRoom(chatID uuid.UUID, frame domain.Frame, except *wsClient) {
	select {
	case h.broadcast <- roomEvent{ChatID: chatID, Frame: frame, Except: except}:
	default:
		h.logger.Warn("broadcast channel full, dropping frame",
			"event_type", frame.Type,
			"chat_id", chatID,
		)
	}
}

// Run starts the hub's event loop. This MUST be run as a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case event := <-h.broadcast:
			h.broadcastEvent(event)
		}
	}
}

func (h *Hub) registerClient(client *wsClient) {
	h.mu.Lock()
	first := h.clients[client.UserID] == nil
	if first {
		h.clients[client.UserID] = make(map[*wsClient]bool)
	}
	h.clients[client.UserID][client] = true
	total := len(h.clients[client.UserID])
	h.mu.Unlock()

	h.logger.Info("client registered",
		"user_id", client.UserID,
		"total_connections", total,
	)

	// Presence is per-user, not per-connection.
	if first {
		h.broadcastPresence(domain.EventUserOnline, client.UserID)
	}
}

func (h *Hub) unregisterClient(client *wsClient) {
	h.mu.Lock()

	subscriptions := client.Rooms()

	last := false
	if userClients, ok := h.clients[client.UserID]; ok {
		if _, exists := userClients[client]; exists {
			delete(userClients, client)
			if len(userClients) == 0 {
				delete(h.clients, client.UserID)
				last = true
			}
		}
	}

	for _, chatID := range subscriptions {
		if room, ok := h.rooms[chatID]; ok {
			delete(room, client)
			if len(room) == 0 {
				delete(h.rooms, chatID)
			}
		}
	}

	client.CloseSend()
	h.mu.Unlock()

	h.logger.Info("client unregistered", "user_id", client.UserID)

	if last {
		h.broadcastPresence(domain.EventUserOffline, client.UserID)
	}
}

func (h *Hub) broadcastEvent(event roomEvent) {
	h.mu.RLock()
	room, ok := h.rooms[event.ChatID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	// Copy the member list to avoid holding the lock while sending.
	clients := make([]*wsClient, 0, len(room))
	for client := range room {
		if client != event.Except {
			clients = append(clients, client)
		}
	}
	h.mu.RUnlock()

	h.logger.Debug("broadcasting to room",
		"event_type", event.Frame.Type,
		"chat_id", event.ChatID,
		"client_count", len(clients),
	)

	for _, client := range clients {
		h.queue(client, event.Frame)
	}
}

// broadcastPresence notifies every other connected user of an online/offline
// change.
func (h *Hub) broadcastPresence(t domain.EventType, userID uuid.UUID) {
	frame, err := domain.NewFrame(t, domain.PresencePayload{UserID: userID})
	if err != nil {
		h.logger.Error("failed to encode presence frame", "error", err)
		return
	}

	h.mu.RLock()
	clients := make([]*wsClient, 0)
	for uid, conns := range h.clients {
		if uid == userID {
			continue
		}
		for client := range conns {
			clients = append(clients, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range clients {
		h.queue(client, frame)
	}
}

// SendToUser queues a frame for every connection of the given user.
func (h *Hub) SendToUser(userID uuid.UUID, frame domain.Frame) {
	h.mu.RLock()
	conns, ok := h.clients[userID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	clients := make([]*wsClient, 0, len(conns))
	for client := range conns {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		h.queue(client, frame)
	}
}

func (h *Hub) queue(client *wsClient, frame domain.Frame) {
	select {
	case client.Send <- frame:
	default:
		h.logger.Warn("client send buffer full, unregistering",
			"user_id", client.UserID,
		)
		h.Unregister <- client
	}
}

func (h *Hub) joinRoom(client *wsClient, chatID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[chatID] == nil {
		h.rooms[chatID] = make(map[*wsClient]bool)
	}
	h.rooms[chatID][client] = true
	client.AddRoom(chatID)

	h.logger.Debug("client joined room",
		"user_id", client.UserID,
		"chat_id", chatID,
	)
}

func (h *Hub) leaveRoom(client *wsClient, chatID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if room, ok := h.rooms[chatID]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, chatID)
		}
	}
	client.RemoveRoom(chatID)

	h.logger.Debug("client left room",
		"user_id", client.UserID,
		"chat_id", chatID,
	)
}

// ClientCount returns the total number of connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, conns := range h.clients {
		count += len(conns)
	}
	return count
}

// IsUserConnected checks whether a user has any active connection.
func (h *Hub) IsUserConnected(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	conns, ok := h.clients[userID]
	return ok && len(conns) > 0
}
