package domain

import (
	"time"

	"github.com/google/uuid"

	apperrors "github.com/oficios-app/marketplace-client/internal/core/errors"
)

// Estado represents the lifecycle state of a trabajo.
type Estado string

const (
	EstadoPendiente      Estado = "PENDIENTE"
	EstadoNecesitaVisita Estado = "NECESITA_VISITA"
	EstadoCotizado       Estado = "COTIZADO"
	EstadoAceptado       Estado = "ACEPTADO"
	EstadoEnProgreso     Estado = "EN_PROGRESO"
	EstadoCompletado     Estado = "COMPLETADO"
	EstadoCancelado      Estado = "CANCELADO"
	EstadoRechazado      Estado = "RECHAZADO"
)

// IsTerminal reports whether no further transitions are accepted.
func (e Estado) IsTerminal() bool {
	switch e {
	case EstadoCompletado, EstadoCancelado, EstadoRechazado:
		return true
	}
	return false
}

// Valid reports whether e is a known lifecycle state.
func (e Estado) Valid() bool {
	switch e {
	case EstadoPendiente, EstadoNecesitaVisita, EstadoCotizado, EstadoAceptado,
		EstadoEnProgreso, EstadoCompletado, EstadoCancelado, EstadoRechazado:
		return true
	}
	return false
}

// Role identifies which side of the marketplace the actor is on.
type Role string

const (
	RoleCliente Role = "cliente"
	RoleTecnico Role = "tecnico"
)

// Action is a lifecycle transition trigger. Client-role actions are issued
// locally; technician actions arrive as server-driven state changes.
type Action string

const (
	ActionCreate        Action = "crear_solicitud"
	ActionCancelRequest Action = "cancelar_solicitud"
	ActionAcceptQuote   Action = "aceptar_cotizacion"
	ActionRejectQuote   Action = "rechazar_cotizacion"
	ActionCancelJob     Action = "cancelar_trabajo"
	ActionReportJob     Action = "reportar_trabajo"

	ActionScheduleVisit Action = "necesita_visita"
	ActionQuote         Action = "cotizar"
	ActionStart         Action = "iniciar"
	ActionComplete      Action = "completar"
	ActionReject        Action = "rechazar"
)

type transitionKey struct {
	Estado Estado
	Action Action
}

type transitionRule struct {
	Next Estado
	Role Role
}

// transitions is the single transition table consulted by every call site.
// A (state, action) pair absent from the table, or present with a different
// role, is an invalid transition.
var transitions = map[transitionKey]transitionRule{
	{EstadoPendiente, ActionScheduleVisit}: {EstadoNecesitaVisita, RoleTecnico},
	{EstadoPendiente, ActionQuote}:         {EstadoCotizado, RoleTecnico},
	{EstadoPendiente, ActionReject}:        {EstadoRechazado, RoleTecnico},
	{EstadoPendiente, ActionCancelRequest}: {EstadoCancelado, RoleCliente},

	{EstadoNecesitaVisita, ActionQuote}:         {EstadoCotizado, RoleTecnico},
	{EstadoNecesitaVisita, ActionCancelRequest}: {EstadoCancelado, RoleCliente},

	{EstadoCotizado, ActionAcceptQuote}: {EstadoAceptado, RoleCliente},
	{EstadoCotizado, ActionRejectQuote}: {EstadoRechazado, RoleCliente},

	{EstadoAceptado, ActionStart}:     {EstadoEnProgreso, RoleTecnico},
	{EstadoAceptado, ActionCancelJob}: {EstadoCancelado, RoleCliente},

	{EstadoEnProgreso, ActionCancelJob}: {EstadoCancelado, RoleCliente},
	{EstadoEnProgreso, ActionComplete}:  {EstadoCompletado, RoleTecnico},
}

// NextEstado resolves the state an action leads to from the current state,
// for the given role. It returns an INVALID_STATE error when the pair is not
// in the transition table.
func NextEstado(current Estado, action Action, role Role) (Estado, error) {
	if current.IsTerminal() {
		return "", apperrors.NewInvalidStateError(apperrors.ErrTerminalState, string(current), string(action))
	}

	rule, ok := transitions[transitionKey{current, action}]
	if !ok || rule.Role != role {
		return "", apperrors.NewInvalidStateError(apperrors.ErrInvalidTransition, string(current), string(action))
	}

	return rule.Next, nil
}

// CanReport reports whether reportarTrabajo is valid from the given state.
// The dispute flag overlays the state; it is valid from any non-terminal one.
func CanReport(current Estado) bool {
	return current.Valid() && !current.IsTerminal()
}

// Review is set once when a trabajo completes.
type Review struct {
	Calificacion int       `json:"calificacion"`
	Comentario   string    `json:"comentario"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Trabajo is the mirrored service-request record. The server is authoritative;
// local mutations go through the lifecycle controller only.
type Trabajo struct {
	ID              uuid.UUID  `json:"id"`
	Estado          Estado     `json:"estado"`
	EnDisputa       bool       `json:"enDisputa"`
	ServicioNombre  string     `json:"servicioNombre"`
	Descripcion     string     `json:"descripcion"`
	Direccion       string     `json:"direccion"`
	Telefono        string     `json:"telefono"`
	Precio          *float64   `json:"precio"`
	FechaSolicitud  time.Time  `json:"fechaSolicitud"`
	FechaProgramada *time.Time `json:"fechaProgramada,omitempty"`
	ClienteID       uuid.UUID  `json:"clienteId"`
	TecnicoID       uuid.UUID  `json:"tecnicoId"`
	Review          *Review    `json:"review,omitempty"`
}

// CheckInvariants verifies the record-level rules: a review exists only on a
// completed trabajo, and a price only once the trabajo has been quoted.
func (t *Trabajo) CheckInvariants() error {
	if t.Review != nil && t.Estado != EstadoCompletado {
		return apperrors.NewValidationError(0, "review is only allowed on a completed trabajo")
	}
	if t.Precio != nil && (t.Estado == EstadoPendiente || t.Estado == EstadoNecesitaVisita) {
		return apperrors.NewValidationError(0, "precio is only set once the trabajo has been quoted")
	}
	return nil
}

// CounterpartyID returns the other participant relative to the viewer.
func (t *Trabajo) CounterpartyID(viewer uuid.UUID) uuid.UUID {
	if viewer == t.ClienteID {
		return t.TecnicoID
	}
	return t.ClienteID
}

// SyncStatus tags a locally mirrored record so callers can distinguish
// optimistic state from server-confirmed state.
type SyncStatus string

const (
	SyncPending   SyncStatus = "pending"
	SyncConfirmed SyncStatus = "confirmed"
	SyncFailed    SyncStatus = "failed"
)
