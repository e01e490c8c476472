package devserver

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/oficios-app/marketplace-client/internal/core/errors"
)

// envelope is the uniform response shape: {success, data} on the happy path,
// {success, error} otherwise.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Error: message})
}

// writeDomainError maps taxonomy errors to HTTP statuses, keeping the error
// text intact for the client to surface.
func writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, apperrors.ErrTrabajoNotFound),
		errors.Is(err, apperrors.ErrConversationNotFound):
		status = http.StatusNotFound
	default:
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			switch appErr.Code {
			case apperrors.CodeAuthFailure:
				status = http.StatusUnauthorized
			case apperrors.CodeValidationError:
				status = http.StatusBadRequest
			case apperrors.CodeInvalidState:
				status = http.StatusConflict
			}
			if appErr.StatusCode != 0 {
				status = appErr.StatusCode
			}
		}
	}

	writeError(w, status, err.Error())
}
