package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/oficios-app/marketplace-client/internal/core/domain"
	apperrors "github.com/oficios-app/marketplace-client/internal/core/errors"
	"github.com/oficios-app/marketplace-client/internal/core/mocks"
)

func TestNotificationBridgeAddressesCounterparty(t *testing.T) {
	transport := mocks.NewMockTransport()
	session := &mocks.StaticSession{ID: uuid.New(), UserRole: domain.RoleCliente}
	bridge := NewNotificationBridge(transport, session, testLogger())

	precio := 80.0
	trabajo := &domain.Trabajo{
		ID:        uuid.New(),
		Estado:    domain.EstadoAceptado,
		Precio:    &precio,
		ClienteID: session.ID,
		TecnicoID: uuid.New(),
	}

	var created domain.TrabajoCreatedPayload
	transport.On("Emit", mock.MatchedBy(func(f domain.Frame) bool {
		return f.Type == domain.EventTrabajoCreated && json.Unmarshal(f.Payload, &created) == nil
	})).Return(nil).Once()

	bridge.JobCreated(context.Background(), trabajo)
	assert.Equal(t, trabajo.TecnicoID, created.To, "notification goes to the other party")
	assert.Equal(t, trabajo.ID, created.Trabajo.ID)

	var changed domain.TrabajoStateChangedPayload
	transport.On("Emit", mock.MatchedBy(func(f domain.Frame) bool {
		return f.Type == domain.EventTrabajoStateChanged && json.Unmarshal(f.Payload, &changed) == nil
	})).Return(nil).Once()

	bridge.JobStateChanged(context.Background(), trabajo)
	assert.Equal(t, trabajo.TecnicoID, changed.To)
	assert.Equal(t, domain.EstadoAceptado, changed.Estado)
	require.NotNil(t, changed.Precio)
	assert.Equal(t, precio, *changed.Precio)

	transport.AssertExpectations(t)
}

func TestNotificationBridgeDropsEmitFailures(t *testing.T) {
	transport := mocks.NewMockTransport()
	session := &mocks.StaticSession{ID: uuid.New(), UserRole: domain.RoleCliente}
	bridge := NewNotificationBridge(transport, session, testLogger())

	transport.On("Emit", mock.Anything).Return(apperrors.NewDisconnectedError()).Once()

	// Must not panic or propagate; the committed REST action stands.
	bridge.JobStateChanged(context.Background(), &domain.Trabajo{
		ID:        uuid.New(),
		Estado:    domain.EstadoCancelado,
		ClienteID: session.ID,
		TecnicoID: uuid.New(),
	})

	transport.AssertExpectations(t)
}
