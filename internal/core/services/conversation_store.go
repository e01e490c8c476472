package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/oficios-app/marketplace-client/internal/core/domain"
	apperrors "github.com/oficios-app/marketplace-client/internal/core/errors"
	"github.com/oficios-app/marketplace-client/internal/core/ports"
)

// ConversationStore is the single source of truth, per signed-in user, for
// the conversation list and per-conversation message history. It merges data
// from REST pagination and pushed events; every merge is deterministic and
// idempotent (dedup by message id, display order by timestamp then id).
type ConversationStore struct {
	api     ports.ChatAPI
	session ports.Session
	logger  *slog.Logger

	mu            sync.RWMutex
	conversations map[uuid.UUID]domain.Conversation
	messages      map[uuid.UUID]map[uuid.UUID]domain.Message
	focused       uuid.UUID
}

func NewConversationStore(api ports.ChatAPI, session ports.Session, logger *slog.Logger) *ConversationStore {
	return &ConversationStore{
		api:           api,
		session:       session,
		logger:        logger.With("component", "conversation_store"),
		conversations: make(map[uuid.UUID]domain.Conversation),
		messages:      make(map[uuid.UUID]map[uuid.UUID]domain.Message),
	}
}

// Refresh fetches the conversation list and merges it in. Server previews win
// over locally derived ones.
func (s *ConversationStore) Refresh(ctx context.Context) error {
	convs, err := s.api.ListConversations(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conv := range convs {
		s.conversations[conv.ID] = conv
	}
	return nil
}

// StartConversation creates (or returns) the conversation with a technician.
func (s *ConversationStore) StartConversation(ctx context.Context, tecnicoID uuid.UUID) (*domain.Conversation, error) {
	conv, err := s.api.CreateConversation(ctx, tecnicoID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if _, ok := s.conversations[conv.ID]; !ok {
		s.conversations[conv.ID] = *conv
	}
	s.mu.Unlock()
	return conv, nil
}

// Focus marks a conversation as the one currently on screen. Message pages
// that resolve after focus has moved elsewhere are discarded.
func (s *ConversationStore) Focus(chatID uuid.UUID) {
	s.mu.Lock()
	s.focused = chatID
	s.mu.Unlock()
}

// Blur clears the focus, e.g. when navigating away from the chat view.
func (s *ConversationStore) Blur() {
	s.Focus(uuid.Nil)
}

// Focused returns the currently focused conversation id, uuid.Nil when none.
func (s *ConversationStore) Focused() uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.focused
}

// LoadMessages fetches one history page for the focused conversation and
// merges it. Re-fetching a page that is already merged is a no-op. A response
// arriving after the focus moved to another conversation is dropped: the
// fetch itself is not cancelled on navigation, so the staleness check here is
// what keeps shared state consistent.
func (s *ConversationStore) LoadMessages(ctx context.Context, chatID uuid.UUID, page, limit int) error {
	msgs, err := s.api.ListMessages(ctx, chatID, page, limit)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.focused != chatID {
		s.logger.Debug("discarding stale message page",
			"chat_id", chatID,
			"focused", s.focused,
			"page", page,
		)
		return nil
	}

	for _, msg := range msgs {
		s.mergeMessageLocked(msg)
	}
	return nil
}

// SendMessage persists a message through REST and merges the created record.
// Live delivery to the counter-party is the realtime channel's job.
func (s *ConversationStore) SendMessage(ctx context.Context, chatID uuid.UUID, texto string) (*domain.Message, error) {
	if texto == "" {
		return nil, apperrors.ErrEmptyMessage
	}

	msg, err := s.api.SendMessage(ctx, chatID, texto)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.mergeMessageLocked(*msg)
	s.mu.Unlock()
	return msg, nil
}

// Conversations returns the list sorted descending by last activity.
func (s *ConversationStore) Conversations() []domain.Conversation {
	s.mu.RLock()
	out := make([]domain.Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		out = append(out, conv)
	}
	s.mu.RUnlock()

	domain.SortConversations(out)
	return out
}

// Messages returns the known messages of a conversation in display order.
func (s *ConversationStore) Messages(chatID uuid.UUID) []domain.Message {
	s.mu.RLock()
	byID := s.messages[chatID]
	out := make([]domain.Message, 0, len(byID))
	for _, msg := range byID {
		out = append(out, msg)
	}
	s.mu.RUnlock()

	domain.SortMessages(out)
	return out
}

// HandleFrame consumes pushed chat frames. Wire it to the transport's
// message_received and messages_read subscriptions.
func (s *ConversationStore) HandleFrame(frame domain.Frame) {
	switch frame.Type {
	case domain.EventMessageReceived:
		var p domain.MessageReceivedPayload
		if err := json.Unmarshal(frame.Payload, &p); err != nil {
			s.logger.Warn("failed to decode message_received payload", "error", err)
			return
		}
		s.applyPushedMessage(p)

	case domain.EventMessagesRead:
		var p domain.MessagesReadPayload
		if err := json.Unmarshal(frame.Payload, &p); err != nil {
			s.logger.Warn("failed to decode messages_read payload", "error", err)
			return
		}
		s.ApplyRead(p.ChatID, p.MessageIDs)
	}
}

// applyPushedMessage merges a pushed message. The message body is stored only
// for the focused conversation (history for others is fetched on open), but
// the preview is updated for any conversation, so the list stays live without
// a page reload.
func (s *ConversationStore) applyPushedMessage(p domain.MessageReceivedPayload) {
	s.mu.Lock()
	conv, known := s.conversations[p.ChatID]
	if s.focused == p.ChatID {
		s.mergeMessageLocked(p.Message)
	} else if known {
		s.updatePreviewLocked(conv, p.Message)
	}
	s.mu.Unlock()

	if !known {
		// First message of a conversation created by the other side.
		s.adoptConversation(p)
	}
}

// adoptConversation fetches a conversation the store has never seen and
// replays the pushed message against it.
func (s *ConversationStore) adoptConversation(p domain.MessageReceivedPayload) {
	conv, err := s.api.GetConversation(context.Background(), p.ChatID)
	if err != nil {
		s.logger.Warn("failed to fetch conversation for pushed message",
			"chat_id", p.ChatID,
			"error", err,
		)
		return
	}

	s.mu.Lock()
	if _, ok := s.conversations[conv.ID]; !ok {
		s.conversations[conv.ID] = *conv
	}
	s.updatePreviewLocked(s.conversations[conv.ID], p.Message)
	s.mu.Unlock()
}

// ApplyRead flips Leido to true for the given messages. The transition is
// one-way; unknown ids are ignored.
func (s *ConversationStore) ApplyRead(chatID uuid.UUID, messageIDs []uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID := s.messages[chatID]
	if byID == nil {
		return
	}
	for _, id := range messageIDs {
		if msg, ok := byID[id]; ok && !msg.Leido {
			msg.Leido = true
			byID[id] = msg
		}
	}
}

// mergeMessageLocked inserts a message keyed by id and updates the owning
// conversation's preview. Re-merging a known id is a no-op apart from the
// read flag, which may only move false to true.
func (s *ConversationStore) mergeMessageLocked(msg domain.Message) {
	byID := s.messages[msg.ChatID]
	if byID == nil {
		byID = make(map[uuid.UUID]domain.Message)
		s.messages[msg.ChatID] = byID
	}

	if existing, ok := byID[msg.ID]; ok {
		if msg.Leido && !existing.Leido {
			existing.Leido = true
			byID[msg.ID] = existing
		}
		return
	}
	byID[msg.ID] = msg

	if conv, ok := s.conversations[msg.ChatID]; ok {
		s.updatePreviewLocked(conv, msg)
	}
}

// updatePreviewLocked advances the conversation preview. Messages pushed out
// of wall-clock order must not move the preview backwards.
func (s *ConversationStore) updatePreviewLocked(conv domain.Conversation, msg domain.Message) {
	if conv.UltimoMensajeAt != nil && msg.Timestamp.Before(*conv.UltimoMensajeAt) {
		return
	}
	ts := msg.Timestamp
	conv.UltimoMensaje = msg.Texto
	conv.UltimoMensajeAt = &ts
	s.conversations[conv.ID] = conv
}
