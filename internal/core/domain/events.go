package domain

import (
	"encoding/json"

	"github.com/google/uuid"
)

// EventType defines the type of a realtime event.
type EventType string

// Outbound events (client to server).
const (
	EventJoinChat     EventType = "join_chat"
	EventLeaveChat    EventType = "leave_chat"
	EventSendMessage  EventType = "send_message"
	EventTyping       EventType = "typing"
	EventReadMessages EventType = "read_messages"
)

// Inbound events (server to client).
const (
	EventMessageReceived EventType = "message_received"
	EventUserOnline      EventType = "user_online"
	EventUserOffline     EventType = "user_offline"
	EventTypingIndicator EventType = "typing_indicator"
	EventMessagesRead    EventType = "messages_read"
)

// Domain notification events, addressed to a specific user and relayed by the
// server to all of the target's connections.
const (
	EventTrabajoCreated      EventType = "trabajo_created"
	EventTrabajoStateChanged EventType = "trabajo_state_changed"
)

// Frame is the wire envelope for every socket event, both directions.
type Frame struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewFrame builds a frame with the payload marshalled in place.
func NewFrame(t EventType, payload any) (Frame, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Type: t, Payload: raw}, nil
}

// --- Outbound payloads ---

type JoinChatPayload struct {
	ChatID uuid.UUID `json:"chatId"`
}

type SendMessagePayload struct {
	ChatID uuid.UUID `json:"chatId"`
	Texto  string    `json:"texto"`
}

type TypingPayload struct {
	ChatID uuid.UUID `json:"chatId"`
}

type ReadMessagesPayload struct {
	ChatID     uuid.UUID   `json:"chatId"`
	MessageIDs []uuid.UUID `json:"messageIds"`
}

// --- Inbound payloads ---

type MessageReceivedPayload struct {
	ChatID  uuid.UUID `json:"chatId"`
	Message Message   `json:"message"`
}

type PresencePayload struct {
	UserID uuid.UUID `json:"userId"`
}

type TypingIndicatorPayload struct {
	ChatID uuid.UUID `json:"chatId"`
	UserID uuid.UUID `json:"userId"`
}

type MessagesReadPayload struct {
	ChatID     uuid.UUID   `json:"chatId"`
	MessageIDs []uuid.UUID `json:"messageIds"`
	ReadBy     uuid.UUID   `json:"readBy"`
}

// --- Notification payloads ---

// TrabajoCreatedPayload carries the full record so the receiving side can
// render without a refetch.
type TrabajoCreatedPayload struct {
	To      uuid.UUID `json:"to"`
	Trabajo Trabajo   `json:"trabajo"`
}

type TrabajoStateChangedPayload struct {
	To        uuid.UUID `json:"to"`
	TrabajoID uuid.UUID `json:"trabajoId"`
	Estado    Estado    `json:"estado"`
	Precio    *float64  `json:"precio,omitempty"`
	EnDisputa bool      `json:"enDisputa"`
}
