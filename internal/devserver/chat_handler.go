package devserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/oficios-app/marketplace-client/internal/core/domain"
	apperrors "github.com/oficios-app/marketplace-client/internal/core/errors"
)

type createConversationRequest struct {
	TecnicoID uuid.UUID `json:"tecnicoId"`
}

type sendMessageRequest struct {
	ChatID uuid.UUID `json:"chatId"`
	Texto  string    `json:"texto"`
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	claims, ok := s.claimsOrFail(w, r)
	if !ok {
		return
	}
	writeData(w, http.StatusOK, s.store.ListConversationsFor(claims.UserID))
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	claims, ok := s.claimsOrFail(w, r)
	if !ok {
		return
	}
	if claims.Role != domain.RoleCliente {
		writeError(w, http.StatusForbidden, "only clients can start a conversation")
		return
	}

	var req createConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TecnicoID == uuid.Nil {
		writeError(w, http.StatusBadRequest, apperrors.ErrTecnicoRequired.Error())
		return
	}

	tecnico, found := s.store.GetUser(req.TecnicoID)
	if !found || tecnico.Role != domain.RoleTecnico {
		writeError(w, http.StatusBadRequest, "tecnicoId does not identify a technician")
		return
	}

	conv := s.store.EnsureConversation(claims.UserID, req.TecnicoID)
	writeData(w, http.StatusCreated, conv)
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	claims, ok := s.claimsOrFail(w, r)
	if !ok {
		return
	}

	chatID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}

	conv, err := s.store.GetConversation(chatID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if conv.ClienteID != claims.UserID && conv.TecnicoID != claims.UserID {
		writeError(w, http.StatusForbidden, "not a participant in this conversation")
		return
	}

	writeData(w, http.StatusOK, conv)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	claims, ok := s.claimsOrFail(w, r)
	if !ok {
		return
	}

	chatID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}
	if err := s.requireParticipant(chatID, claims.UserID); err != nil {
		writeDomainError(w, err)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	msgs, err := s.store.ListMessages(chatID, page, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeData(w, http.StatusOK, msgs)
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	claims, ok := s.claimsOrFail(w, r)
	if !ok {
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Texto == "" {
		writeError(w, http.StatusBadRequest, apperrors.ErrEmptyMessage.Error())
		return
	}
	if err := s.requireParticipant(req.ChatID, claims.UserID); err != nil {
		writeDomainError(w, err)
		return
	}

	msg, err := s.store.AppendMessage(req.ChatID, claims.UserID, req.Texto)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	// Push to both sides as well; clients reconcile the REST response and the
	// socket copy by message id.
	s.pushMessage(*msg)

	writeData(w, http.StatusCreated, msg)
}
