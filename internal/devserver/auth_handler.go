package devserver

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/oficios-app/marketplace-client/internal/core/domain"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string    `json:"token"`
	User  loginUser `json:"user"`
}

type loginUser struct {
	ID     uuid.UUID   `json:"id"`
	Nombre string      `json:"nombre"`
	Email  string      `json:"email"`
	Role   domain.Role `json:"role"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := s.store.Authenticate(req.Email, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Role)
	if err != nil {
		s.logger.Error("failed to mint token", "error", err)
		writeError(w, http.StatusInternalServerError, "could not create session")
		return
	}

	writeData(w, http.StatusOK, loginResponse{
		Token: token,
		User: loginUser{
			ID:     user.ID,
			Nombre: user.Nombre,
			Email:  user.Email,
			Role:   user.Role,
		},
	})
}
