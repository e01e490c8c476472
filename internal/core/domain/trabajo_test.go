package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/oficios-app/marketplace-client/internal/core/errors"
)

func TestNextEstado(t *testing.T) {
	tests := []struct {
		name    string
		current Estado
		action  Action
		role    Role
		want    Estado
		wantErr bool
	}{
		// Technician-driven happy paths.
		{"pendiente to necesita_visita", EstadoPendiente, ActionScheduleVisit, RoleTecnico, EstadoNecesitaVisita, false},
		{"pendiente to cotizado", EstadoPendiente, ActionQuote, RoleTecnico, EstadoCotizado, false},
		{"pendiente rejected by tecnico", EstadoPendiente, ActionReject, RoleTecnico, EstadoRechazado, false},
		{"necesita_visita to cotizado", EstadoNecesitaVisita, ActionQuote, RoleTecnico, EstadoCotizado, false},
		{"aceptado to en_progreso", EstadoAceptado, ActionStart, RoleTecnico, EstadoEnProgreso, false},
		{"en_progreso to completado", EstadoEnProgreso, ActionComplete, RoleTecnico, EstadoCompletado, false},

		// Client-driven happy paths.
		{"cotizado accepted", EstadoCotizado, ActionAcceptQuote, RoleCliente, EstadoAceptado, false},
		{"cotizado rejected", EstadoCotizado, ActionRejectQuote, RoleCliente, EstadoRechazado, false},
		{"pendiente cancelled", EstadoPendiente, ActionCancelRequest, RoleCliente, EstadoCancelado, false},
		{"necesita_visita cancelled", EstadoNecesitaVisita, ActionCancelRequest, RoleCliente, EstadoCancelado, false},
		{"aceptado cancelled", EstadoAceptado, ActionCancelJob, RoleCliente, EstadoCancelado, false},
		{"en_progreso cancelled", EstadoEnProgreso, ActionCancelJob, RoleCliente, EstadoCancelado, false},

		// Wrong role.
		{"cliente cannot quote", EstadoPendiente, ActionQuote, RoleCliente, "", true},
		{"tecnico cannot accept quote", EstadoCotizado, ActionAcceptQuote, RoleTecnico, "", true},
		{"tecnico cannot cancel", EstadoAceptado, ActionCancelJob, RoleTecnico, "", true},

		// Action not valid from the state.
		{"accept before quote", EstadoPendiente, ActionAcceptQuote, RoleCliente, "", true},
		{"cancel request after quote", EstadoCotizado, ActionCancelRequest, RoleCliente, "", true},
		{"start before acceptance", EstadoCotizado, ActionStart, RoleTecnico, "", true},

		// Terminal states accept nothing.
		{"completado is terminal", EstadoCompletado, ActionCancelJob, RoleCliente, "", true},
		{"cancelado is terminal", EstadoCancelado, ActionQuote, RoleTecnico, "", true},
		{"rechazado is terminal", EstadoRechazado, ActionAcceptQuote, RoleCliente, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextEstado(tt.current, tt.action, tt.role)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, apperrors.CodeInvalidState, apperrors.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextEstadoDoubleAccept(t *testing.T) {
	// Accepting twice: the first acceptance moves the state, the second must
	// be rejected by the table instead of silently re-applied.
	next, err := NextEstado(EstadoCotizado, ActionAcceptQuote, RoleCliente)
	require.NoError(t, err)
	require.Equal(t, EstadoAceptado, next)

	_, err = NextEstado(next, ActionAcceptQuote, RoleCliente)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidState, apperrors.CodeOf(err))
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestEstadoIsTerminal(t *testing.T) {
	for _, e := range []Estado{EstadoCompletado, EstadoCancelado, EstadoRechazado} {
		assert.True(t, e.IsTerminal(), "%s should be terminal", e)
	}
	for _, e := range []Estado{EstadoPendiente, EstadoNecesitaVisita, EstadoCotizado, EstadoAceptado, EstadoEnProgreso} {
		assert.False(t, e.IsTerminal(), "%s should not be terminal", e)
	}
}

func TestCanReport(t *testing.T) {
	for _, e := range []Estado{EstadoPendiente, EstadoNecesitaVisita, EstadoCotizado, EstadoAceptado, EstadoEnProgreso} {
		assert.True(t, CanReport(e), "reporting should be allowed from %s", e)
	}
	for _, e := range []Estado{EstadoCompletado, EstadoCancelado, EstadoRechazado} {
		assert.False(t, CanReport(e), "reporting should not be allowed from %s", e)
	}
	assert.False(t, CanReport(Estado("GARBAGE")))
}

func TestCheckInvariants(t *testing.T) {
	precio := 150.0

	t.Run("review requires completado", func(t *testing.T) {
		tr := Trabajo{
			Estado: EstadoEnProgreso,
			Precio: &precio,
			Review: &Review{Calificacion: 5, CreatedAt: time.Now()},
		}
		assert.Error(t, tr.CheckInvariants())

		tr.Estado = EstadoCompletado
		assert.NoError(t, tr.CheckInvariants())
	})

	t.Run("precio requires a quote", func(t *testing.T) {
		tr := Trabajo{Estado: EstadoPendiente, Precio: &precio}
		assert.Error(t, tr.CheckInvariants())

		tr.Estado = EstadoCotizado
		assert.NoError(t, tr.CheckInvariants())
	})
}

func TestCounterpartyID(t *testing.T) {
	cliente := uuid.New()
	tecnico := uuid.New()
	tr := Trabajo{ClienteID: cliente, TecnicoID: tecnico}

	assert.Equal(t, tecnico, tr.CounterpartyID(cliente))
	assert.Equal(t, cliente, tr.CounterpartyID(tecnico))
}
