package rest

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/oficios-app/marketplace-client/internal/core/domain"
)

type createConversationRequest struct {
	TecnicoID uuid.UUID `json:"tecnicoId"`
}

type sendMessageRequest struct {
	ChatID uuid.UUID `json:"chatId"`
	Texto  string    `json:"texto"`
}

func (c *Client) ListConversations(ctx context.Context) ([]domain.Conversation, error) {
	var convs []domain.Conversation
	if err := c.do(ctx, http.MethodGet, "/chat/conversations", nil, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

func (c *Client) GetConversation(ctx context.Context, chatID uuid.UUID) (*domain.Conversation, error) {
	var conv domain.Conversation
	if err := c.do(ctx, http.MethodGet, "/chat/conversations/"+chatID.String(), nil, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (c *Client) CreateConversation(ctx context.Context, tecnicoID uuid.UUID) (*domain.Conversation, error) {
	var conv domain.Conversation
	body := createConversationRequest{TecnicoID: tecnicoID}
	if err := c.do(ctx, http.MethodPost, "/chat/conversations", body, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (c *Client) ListMessages(ctx context.Context, chatID uuid.UUID, page, limit int) ([]domain.Message, error) {
	var msgs []domain.Message
	path := fmt.Sprintf("/chat/conversations/%s/messages?page=%d&limit=%d", chatID, page, limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (c *Client) SendMessage(ctx context.Context, chatID uuid.UUID, texto string) (*domain.Message, error) {
	var msg domain.Message
	body := sendMessageRequest{ChatID: chatID, Texto: texto}
	if err := c.do(ctx, http.MethodPost, "/chat/messages", body, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
