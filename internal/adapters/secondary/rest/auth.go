package rest

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/oficios-app/marketplace-client/internal/core/domain"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is the authentication payload returned by the backend.
type LoginResult struct {
	Token string `json:"token"`
	User  struct {
		ID     uuid.UUID   `json:"id"`
		Nombre string      `json:"nombre"`
		Email  string      `json:"email"`
		Role   domain.Role `json:"role"`
	} `json:"user"`
}

// Login exchanges credentials for a bearer token. Session management itself
// is out of the core's hands; callers feed the token into their SessionStore.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var result LoginResult
	body := loginRequest{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
