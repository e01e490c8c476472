package services

import (
	"context"
	"log/slog"

	"github.com/oficios-app/marketplace-client/internal/core/domain"
	"github.com/oficios-app/marketplace-client/internal/core/ports"
)

// NotificationBridge translates committed job changes into realtime events
// addressed to the counter-party. Callers invoke it only after the triggering
// REST call succeeded, so a failed action can never leak a notification.
// Emission failures are logged and dropped; the committed action stands.
type NotificationBridge struct {
	transport ports.Transport
	session   ports.Session
	logger    *slog.Logger
}

var _ ports.JobNotifier = (*NotificationBridge)(nil)

func NewNotificationBridge(transport ports.Transport, session ports.Session, logger *slog.Logger) *NotificationBridge {
	return &NotificationBridge{
		transport: transport,
		session:   session,
		logger:    logger.With("component", "notification_bridge"),
	}
}

// JobCreated pushes the full record so the technician's client can render the
// new request without a refetch.
func (b *NotificationBridge) JobCreated(ctx context.Context, trabajo *domain.Trabajo) {
	payload := domain.TrabajoCreatedPayload{
		To:      trabajo.CounterpartyID(b.session.UserID()),
		Trabajo: *trabajo,
	}
	b.emit(domain.EventTrabajoCreated, payload)
}

// JobStateChanged pushes the new state and job id to the other party.
func (b *NotificationBridge) JobStateChanged(ctx context.Context, trabajo *domain.Trabajo) {
	payload := domain.TrabajoStateChangedPayload{
		To:        trabajo.CounterpartyID(b.session.UserID()),
		TrabajoID: trabajo.ID,
		Estado:    trabajo.Estado,
		Precio:    trabajo.Precio,
		EnDisputa: trabajo.EnDisputa,
	}
	b.emit(domain.EventTrabajoStateChanged, payload)
}

func (b *NotificationBridge) emit(t domain.EventType, payload any) {
	frame, err := domain.NewFrame(t, payload)
	if err != nil {
		b.logger.Error("failed to encode notification payload", "event_type", string(t), "error", err)
		return
	}

	if err := b.transport.Emit(frame); err != nil {
		b.logger.Warn("failed to emit notification, counter-party view may be stale",
			"event_type", string(t),
			"error", err,
		)
	}
}
