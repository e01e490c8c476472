package rest

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oficios-app/marketplace-client/internal/core/domain"
	apperrors "github.com/oficios-app/marketplace-client/internal/core/errors"
	"github.com/oficios-app/marketplace-client/internal/core/mocks"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	session := &mocks.StaticSession{BearerToken: "test-token", ID: uuid.New(), UserRole: domain.RoleCliente}
	return NewClient(srv.URL, srv.Client(), session, testLogger()), srv
}

func TestDoSendsBearerAndDecodesEnvelope(t *testing.T) {
	trabajo := domain.Trabajo{ID: uuid.New(), Estado: domain.EstadoPendiente}

	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "/trabajos/"+trabajo.ID.String(), r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": trabajo})
	})
	defer srv.Close()

	got, err := client.GetTrabajo(context.Background(), trabajo.ID)
	require.NoError(t, err)
	assert.Equal(t, trabajo.ID, got.ID)
	assert.Equal(t, domain.EstadoPendiente, got.Estado)
}

func TestDoErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode string
		wantMsg  string
	}{
		{
			name:     "401 becomes auth failure",
			status:   http.StatusUnauthorized,
			body:     `{"success":false,"error":"invalid or expired token"}`,
			wantCode: apperrors.CodeAuthFailure,
			wantMsg:  "invalid or expired token",
		},
		{
			name:     "4xx keeps the server message verbatim",
			status:   http.StatusBadRequest,
			body:     `{"success":false,"error":"precio must be greater than zero"}`,
			wantCode: apperrors.CodeValidationError,
			wantMsg:  "precio must be greater than zero",
		},
		{
			name:     "409 conflict is a validation error",
			status:   http.StatusConflict,
			body:     `{"success":false,"error":"action \"aceptar_cotizacion\" is not allowed while the trabajo is ACEPTADO"}`,
			wantCode: apperrors.CodeValidationError,
			wantMsg:  `action "aceptar_cotizacion" is not allowed while the trabajo is ACEPTADO`,
		},
		{
			name:     "5xx is a network-class failure",
			status:   http.StatusBadGateway,
			body:     ``,
			wantCode: apperrors.CodeNetworkFailure,
			wantMsg:  "the server reported an unexpected error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			defer srv.Close()

			_, err := client.AcceptQuote(context.Background(), uuid.New())
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, apperrors.CodeOf(err))
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}
}

func TestDoUnreachableServer(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {})
	srv.Close() // nothing listening anymore

	_, err := client.ListTrabajos(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeNetworkFailure, apperrors.CodeOf(err))
}

func TestSendMessageRoundTrip(t *testing.T) {
	chatID := uuid.New()
	msg := domain.Message{ID: uuid.New(), ChatID: chatID, Texto: "hola"}

	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/messages", r.URL.Path)

		var body struct {
			ChatID uuid.UUID `json:"chatId"`
			Texto  string    `json:"texto"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, chatID, body.ChatID)
		assert.Equal(t, "hola", body.Texto)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": msg})
	})
	defer srv.Close()

	got, err := client.SendMessage(context.Background(), chatID, "hola")
	require.NoError(t, err)
	assert.Equal(t, msg.ID, got.ID)
}

func TestListMessagesPagination(t *testing.T) {
	chatID := uuid.New()

	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "25", r.URL.Query().Get("limit"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": []domain.Message{}})
	})
	defer srv.Close()

	msgs, err := client.ListMessages(context.Background(), chatID, 2, 25)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestLogin(t *testing.T) {
	userID := uuid.New()

	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/login", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]any{
				"token": "minted-token",
				"user": map[string]any{
					"id":     userID,
					"nombre": "Carla Cliente",
					"email":  "cliente@demo.local",
					"role":   "cliente",
				},
			},
		})
	})
	defer srv.Close()

	result, err := client.Login(context.Background(), "cliente@demo.local", "demo-password")
	require.NoError(t, err)
	assert.Equal(t, "minted-token", result.Token)
	assert.Equal(t, userID, result.User.ID)
	assert.Equal(t, domain.RoleCliente, result.User.Role)
}
