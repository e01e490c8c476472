package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/oficios-app/marketplace-client/internal/core/domain"
	apperrors "github.com/oficios-app/marketplace-client/internal/core/errors"
	"github.com/oficios-app/marketplace-client/internal/core/mocks"
)

type chatFixture struct {
	api     *mocks.MockChatAPI
	session *mocks.StaticSession
	store   *ConversationStore
}

func newChatFixture() *chatFixture {
	api := mocks.NewMockChatAPI()
	session := &mocks.StaticSession{
		BearerToken: "test-token",
		ID:          uuid.New(),
		UserRole:    domain.RoleCliente,
	}
	return &chatFixture{
		api:     api,
		session: session,
		store:   NewConversationStore(api, session, testLogger()),
	}
}

func (f *chatFixture) seedConversation(t *testing.T, conv domain.Conversation) {
	t.Helper()
	f.api.On("ListConversations", mock.Anything).Return([]domain.Conversation{conv}, nil).Once()
	require.NoError(t, f.store.Refresh(context.Background()))
}

func testConversation(clienteID uuid.UUID) domain.Conversation {
	return domain.Conversation{
		ID:        uuid.New(),
		ClienteID: clienteID,
		TecnicoID: uuid.New(),
	}
}

func testMessage(chatID, from uuid.UUID, texto string, at time.Time) domain.Message {
	return domain.Message{
		ID:          uuid.New(),
		ChatID:      chatID,
		RemitenteID: from,
		Texto:       texto,
		Timestamp:   at,
	}
}

func TestSendMessageMergesAndDeduplicates(t *testing.T) {
	f := newChatFixture()
	conv := testConversation(f.session.ID)
	f.seedConversation(t, conv)
	f.store.Focus(conv.ID)

	sent := testMessage(conv.ID, f.session.ID, "hola", time.Now().UTC())
	f.api.On("SendMessage", mock.Anything, conv.ID, "hola").Return(&sent, nil).Once()

	got, err := f.store.SendMessage(context.Background(), conv.ID, "hola")
	require.NoError(t, err)
	assert.Equal(t, sent.ID, got.ID)
	require.Len(t, f.store.Messages(conv.ID), 1)

	// The dev server also pushes the message back over the socket; the store
	// must recognize the id and not create a duplicate.
	frame, err := domain.NewFrame(domain.EventMessageReceived, domain.MessageReceivedPayload{
		ChatID:  conv.ID,
		Message: sent,
	})
	require.NoError(t, err)
	f.store.HandleFrame(frame)

	assert.Len(t, f.store.Messages(conv.ID), 1, "push of an already merged id is a no-op")
}

func TestSendMessageRejectsEmptyText(t *testing.T) {
	f := newChatFixture()
	_, err := f.store.SendMessage(context.Background(), uuid.New(), "")
	assert.ErrorIs(t, err, apperrors.ErrEmptyMessage)
	f.api.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestPushedMessageRouting(t *testing.T) {
	t.Run("focused conversation stores the body", func(t *testing.T) {
		f := newChatFixture()
		conv := testConversation(f.session.ID)
		f.seedConversation(t, conv)
		f.store.Focus(conv.ID)

		msg := testMessage(conv.ID, conv.TecnicoID, "llego en 10", time.Now().UTC())
		frame, err := domain.NewFrame(domain.EventMessageReceived, domain.MessageReceivedPayload{ChatID: conv.ID, Message: msg})
		require.NoError(t, err)
		f.store.HandleFrame(frame)

		require.Len(t, f.store.Messages(conv.ID), 1)
		convs := f.store.Conversations()
		require.Len(t, convs, 1)
		assert.Equal(t, "llego en 10", convs[0].UltimoMensaje)
	})

	t.Run("unfocused conversation updates the preview only", func(t *testing.T) {
		f := newChatFixture()
		conv := testConversation(f.session.ID)
		f.seedConversation(t, conv)
		f.store.Focus(uuid.New()) // elsewhere

		msg := testMessage(conv.ID, conv.TecnicoID, "presupuesto listo", time.Now().UTC())
		frame, err := domain.NewFrame(domain.EventMessageReceived, domain.MessageReceivedPayload{ChatID: conv.ID, Message: msg})
		require.NoError(t, err)
		f.store.HandleFrame(frame)

		assert.Empty(t, f.store.Messages(conv.ID), "history is fetched on open, not via push")
		convs := f.store.Conversations()
		require.Len(t, convs, 1)
		assert.Equal(t, "presupuesto listo", convs[0].UltimoMensaje)
	})

	t.Run("unknown conversation is adopted via REST", func(t *testing.T) {
		f := newChatFixture()
		conv := testConversation(f.session.ID)

		f.api.On("GetConversation", mock.Anything, conv.ID).Return(&conv, nil).Once()

		msg := testMessage(conv.ID, conv.TecnicoID, "buenas", time.Now().UTC())
		frame, err := domain.NewFrame(domain.EventMessageReceived, domain.MessageReceivedPayload{ChatID: conv.ID, Message: msg})
		require.NoError(t, err)
		f.store.HandleFrame(frame)

		convs := f.store.Conversations()
		require.Len(t, convs, 1)
		assert.Equal(t, conv.ID, convs[0].ID)
		assert.Equal(t, "buenas", convs[0].UltimoMensaje)
		f.api.AssertExpectations(t)
	})
}

func TestPreviewNeverMovesBackwards(t *testing.T) {
	f := newChatFixture()
	conv := testConversation(f.session.ID)
	f.seedConversation(t, conv)
	f.store.Focus(conv.ID)

	now := time.Now().UTC()
	newer := testMessage(conv.ID, conv.TecnicoID, "último", now)
	older := testMessage(conv.ID, conv.TecnicoID, "anterior", now.Add(-time.Minute))

	for _, msg := range []domain.Message{newer, older} {
		frame, err := domain.NewFrame(domain.EventMessageReceived, domain.MessageReceivedPayload{ChatID: conv.ID, Message: msg})
		require.NoError(t, err)
		f.store.HandleFrame(frame)
	}

	convs := f.store.Conversations()
	require.Len(t, convs, 1)
	assert.Equal(t, "último", convs[0].UltimoMensaje, "late arrival of an older message must not rewind the preview")

	msgs := f.store.Messages(conv.ID)
	require.Len(t, msgs, 2)
	assert.Equal(t, "anterior", msgs[0].Texto, "display order is by timestamp, not arrival")
}

func TestLoadMessagesDiscardsStalePage(t *testing.T) {
	f := newChatFixture()
	convA := testConversation(f.session.ID)
	convB := testConversation(f.session.ID)
	f.api.On("ListConversations", mock.Anything).Return([]domain.Conversation{convA, convB}, nil).Once()
	require.NoError(t, f.store.Refresh(context.Background()))

	page := []domain.Message{testMessage(convA.ID, convA.TecnicoID, "histórico", time.Now().UTC())}
	f.api.On("ListMessages", mock.Anything, convA.ID, 1, 50).Return(page, nil).Once()

	// The user already navigated to B by the time A's page resolves.
	f.store.Focus(convB.ID)
	require.NoError(t, f.store.LoadMessages(context.Background(), convA.ID, 1, 50))

	assert.Empty(t, f.store.Messages(convA.ID), "stale page for an unfocused conversation is discarded")
}

func TestApplyRead(t *testing.T) {
	f := newChatFixture()
	conv := testConversation(f.session.ID)
	f.seedConversation(t, conv)
	f.store.Focus(conv.ID)

	msg := testMessage(conv.ID, f.session.ID, "¿recibiste?", time.Now().UTC())
	f.api.On("SendMessage", mock.Anything, conv.ID, msg.Texto).Return(&msg, nil).Once()
	_, err := f.store.SendMessage(context.Background(), conv.ID, msg.Texto)
	require.NoError(t, err)

	frame, err := domain.NewFrame(domain.EventMessagesRead, domain.MessagesReadPayload{
		ChatID:     conv.ID,
		MessageIDs: []uuid.UUID{msg.ID, uuid.New()},
		ReadBy:     conv.TecnicoID,
	})
	require.NoError(t, err)
	f.store.HandleFrame(frame)

	msgs := f.store.Messages(conv.ID)
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].Leido, "read receipt flips the flag; unknown ids are ignored")
}

func TestStartConversation(t *testing.T) {
	f := newChatFixture()
	conv := testConversation(f.session.ID)
	f.api.On("CreateConversation", mock.Anything, conv.TecnicoID).Return(&conv, nil).Once()

	got, err := f.store.StartConversation(context.Background(), conv.TecnicoID)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, got.ID)
	assert.Len(t, f.store.Conversations(), 1)
}
