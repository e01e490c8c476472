package devserver

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/oficios-app/marketplace-client/internal/auth"
	"github.com/oficios-app/marketplace-client/internal/core/domain"
	apperrors "github.com/oficios-app/marketplace-client/internal/core/errors"
	"github.com/oficios-app/marketplace-client/internal/devserver/middleware"
)

const minReportDescriptionLen = 10

type createTrabajoRequest struct {
	ServicioNombre  string     `json:"servicioNombre"`
	Descripcion     string     `json:"descripcion"`
	Direccion       string     `json:"direccion"`
	Telefono        string     `json:"telefono"`
	TecnicoID       uuid.UUID  `json:"tecnicoId"`
	FechaProgramada *time.Time `json:"fechaProgramada,omitempty"`
}

type quoteTrabajoRequest struct {
	Precio float64 `json:"precio"`
}

type reportTrabajoRequest struct {
	Motivo      string `json:"motivo"`
	Descripcion string `json:"descripcion"`
}

func (s *Server) claimsOrFail(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := middleware.ClaimsFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing credentials")
		return nil, false
	}
	return claims, true
}

func idParam(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}

func (s *Server) handleCreateTrabajo(w http.ResponseWriter, r *http.Request) {
	claims, ok := s.claimsOrFail(w, r)
	if !ok {
		return
	}
	if claims.Role != domain.RoleCliente {
		writeError(w, http.StatusForbidden, "only clients can create a trabajo")
		return
	}

	var req createTrabajoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch {
	case strings.TrimSpace(req.ServicioNombre) == "":
		writeError(w, http.StatusBadRequest, apperrors.ErrServicioNombreRequired.Error())
		return
	case strings.TrimSpace(req.Direccion) == "":
		writeError(w, http.StatusBadRequest, apperrors.ErrDireccionRequired.Error())
		return
	case req.TecnicoID == uuid.Nil:
		writeError(w, http.StatusBadRequest, apperrors.ErrTecnicoRequired.Error())
		return
	}

	tecnico, found := s.store.GetUser(req.TecnicoID)
	if !found || tecnico.Role != domain.RoleTecnico {
		writeError(w, http.StatusBadRequest, "tecnicoId does not identify a technician")
		return
	}

	created, err := s.store.CreateTrabajo(domain.Trabajo{
		ServicioNombre:  req.ServicioNombre,
		Descripcion:     req.Descripcion,
		Direccion:       req.Direccion,
		Telefono:        req.Telefono,
		FechaProgramada: req.FechaProgramada,
		ClienteID:       claims.UserID,
		TecnicoID:       req.TecnicoID,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeData(w, http.StatusCreated, created)
}

func (s *Server) handleListTrabajos(w http.ResponseWriter, r *http.Request) {
	claims, ok := s.claimsOrFail(w, r)
	if !ok {
		return
	}
	writeData(w, http.StatusOK, s.store.ListTrabajosFor(claims.UserID))
}

func (s *Server) handleGetTrabajo(w http.ResponseWriter, r *http.Request) {
	claims, ok := s.claimsOrFail(w, r)
	if !ok {
		return
	}

	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid trabajo id")
		return
	}

	trabajo, err := s.store.GetTrabajo(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if trabajo.ClienteID != claims.UserID && trabajo.TecnicoID != claims.UserID {
		writeError(w, http.StatusForbidden, "not a participant in this trabajo")
		return
	}

	writeData(w, http.StatusOK, trabajo)
}

// applyAction runs one lifecycle transition against the stored record. The
// transition table supplies both the target state and the role check.
func (s *Server) applyAction(id uuid.UUID, action domain.Action, claims *auth.Claims, mutate func(*domain.Trabajo)) (*domain.Trabajo, error) {
	updated, err := s.store.MutateTrabajo(id, func(t *domain.Trabajo) error {
		if t.ClienteID != claims.UserID && t.TecnicoID != claims.UserID {
			return apperrors.NewAuthError("not a participant in this trabajo")
		}

		next, err := domain.NextEstado(t.Estado, action, claims.Role)
		if err != nil {
			return err
		}
		t.Estado = next
		if mutate != nil {
			mutate(t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Client actions are announced by the client itself over the socket;
	// technician actions have no such bridge, so the server pushes.
	if claims.Role == domain.RoleTecnico {
		s.notifyStateChanged(updated, updated.ClienteID)
	}

	return updated, nil
}

func (s *Server) notifyStateChanged(t *domain.Trabajo, to uuid.UUID) {
	frame, err := domain.NewFrame(domain.EventTrabajoStateChanged, domain.TrabajoStateChangedPayload{
		To:        to,
		TrabajoID: t.ID,
		Estado:    t.Estado,
		Precio:    t.Precio,
		EnDisputa: t.EnDisputa,
	})
	if err != nil {
		s.logger.Error("failed to encode state change frame", "error", err)
		return
	}
	s.hub.SendToUser(to, frame)
}

// trabajoAction builds a handler for the body-less transition endpoints.
func (s *Server) trabajoAction(action domain.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := s.claimsOrFail(w, r)
		if !ok {
			return
		}

		id, err := idParam(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid trabajo id")
			return
		}

		updated, err := s.applyAction(id, action, claims, nil)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeData(w, http.StatusOK, updated)
	}
}

// handleCancelTrabajo resolves which cancel action applies from the current
// state: cancelling a request before a quote exists differs from cancelling
// an accepted job.
func (s *Server) handleCancelTrabajo(w http.ResponseWriter, r *http.Request) {
	claims, ok := s.claimsOrFail(w, r)
	if !ok {
		return
	}

	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid trabajo id")
		return
	}

	current, err := s.store.GetTrabajo(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	action := domain.ActionCancelJob
	if current.Estado == domain.EstadoPendiente || current.Estado == domain.EstadoNecesitaVisita {
		action = domain.ActionCancelRequest
	}

	updated, err := s.applyAction(id, action, claims, nil)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeData(w, http.StatusOK, updated)
}

func (s *Server) handleQuoteTrabajo(w http.ResponseWriter, r *http.Request) {
	claims, ok := s.claimsOrFail(w, r)
	if !ok {
		return
	}

	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid trabajo id")
		return
	}

	var req quoteTrabajoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Precio <= 0 {
		writeError(w, http.StatusBadRequest, "precio must be greater than zero")
		return
	}

	updated, err := s.applyAction(id, domain.ActionQuote, claims, func(t *domain.Trabajo) {
		precio := req.Precio
		t.Precio = &precio
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeData(w, http.StatusOK, updated)
}

// handleReportTrabajo flags a dispute. The estado is untouched; EN_DISPUTA is
// an overlay that survives later transitions.
func (s *Server) handleReportTrabajo(w http.ResponseWriter, r *http.Request) {
	claims, ok := s.claimsOrFail(w, r)
	if !ok {
		return
	}

	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid trabajo id")
		return
	}

	var req reportTrabajoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Motivo) == "" {
		writeError(w, http.StatusBadRequest, apperrors.ErrReportReasonRequired.Error())
		return
	}
	if len(strings.TrimSpace(req.Descripcion)) < minReportDescriptionLen {
		writeError(w, http.StatusBadRequest, apperrors.ErrReportDescriptionShort.Error())
		return
	}

	updated, err := s.store.MutateTrabajo(id, func(t *domain.Trabajo) error {
		if t.ClienteID != claims.UserID && t.TecnicoID != claims.UserID {
			return apperrors.NewAuthError("not a participant in this trabajo")
		}
		if !domain.CanReport(t.Estado) {
			return apperrors.NewInvalidStateError(apperrors.ErrTerminalState, string(t.Estado), string(domain.ActionReportJob))
		}
		t.EnDisputa = true
		return nil
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if claims.Role == domain.RoleTecnico {
		s.notifyStateChanged(updated, updated.ClienteID)
	}

	writeData(w, http.StatusOK, updated)
}
