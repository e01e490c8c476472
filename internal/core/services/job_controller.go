package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/oficios-app/marketplace-client/internal/core/domain"
	apperrors "github.com/oficios-app/marketplace-client/internal/core/errors"
	"github.com/oficios-app/marketplace-client/internal/core/ports"
)

// minReportDescriptionLen is enforced before submission.
const minReportDescriptionLen = 10

// jobEntry keeps the mirrored record together with its sync status and, while
// an optimistic update is in flight, the state to revert to.
type jobEntry struct {
	trabajo domain.Trabajo
	status  domain.SyncStatus
	prior   *domain.Trabajo
}

// JobLifecycleController mirrors the server-authoritative set of trabajos for
// the signed-in user, gates transition actions through the domain transition
// table, and reconciles optimistic local updates against server responses.
type JobLifecycleController struct {
	api      ports.TrabajoAPI
	session  ports.Session
	notifier ports.JobNotifier
	logger   *slog.Logger

	mu   sync.RWMutex
	jobs map[uuid.UUID]*jobEntry
}

func NewJobLifecycleController(
	api ports.TrabajoAPI,
	session ports.Session,
	notifier ports.JobNotifier,
	logger *slog.Logger,
) *JobLifecycleController {
	return &JobLifecycleController{
		api:      api,
		session:  session,
		notifier: notifier,
		logger:   logger.With("component", "job_controller"),
		jobs:     make(map[uuid.UUID]*jobEntry),
	}
}

// Load seeds the mirror from the server. Existing pending entries are kept so
// a refresh cannot clobber an in-flight optimistic update.
func (c *JobLifecycleController) Load(ctx context.Context) error {
	trabajos, err := c.api.ListTrabajos(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range trabajos {
		if existing, ok := c.jobs[t.ID]; ok && existing.status == domain.SyncPending {
			continue
		}
		c.jobs[t.ID] = &jobEntry{trabajo: t, status: domain.SyncConfirmed}
	}
	return nil
}

// Get returns a copy of the mirrored trabajo and its sync status.
func (c *JobLifecycleController) Get(trabajoID uuid.UUID) (domain.Trabajo, domain.SyncStatus, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.jobs[trabajoID]
	if !ok {
		return domain.Trabajo{}, "", false
	}
	return entry.trabajo, entry.status, true
}

// List returns the mirrored trabajos, newest request first.
func (c *JobLifecycleController) List() []domain.Trabajo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.Trabajo, 0, len(c.jobs))
	for _, entry := range c.jobs {
		out = append(out, entry.trabajo)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].FechaSolicitud.Equal(out[j].FechaSolicitud) {
			return out[i].FechaSolicitud.After(out[j].FechaSolicitud)
		}
		return strings.Compare(out[i].ID.String(), out[j].ID.String()) < 0
	})
	return out
}

// CreateJob submits a new service request. There is no optimistic entry to
// create because the id is assigned server-side; on success the confirmed
// record is mirrored and the counter-party notified.
func (c *JobLifecycleController) CreateJob(ctx context.Context, params ports.CreateTrabajoParams) (*domain.Trabajo, error) {
	if c.session.Role() != domain.RoleCliente {
		return nil, apperrors.NewInvalidStateError(apperrors.ErrInvalidTransition, "", string(domain.ActionCreate))
	}
	if params.ServicioNombre == "" {
		return nil, apperrors.ErrServicioNombreRequired
	}
	if params.TecnicoID == uuid.Nil {
		return nil, apperrors.ErrTecnicoRequired
	}
	if params.Direccion == "" {
		return nil, apperrors.ErrDireccionRequired
	}

	trabajo, err := c.api.CreateTrabajo(ctx, params)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.jobs[trabajo.ID] = &jobEntry{trabajo: *trabajo, status: domain.SyncConfirmed}
	c.mu.Unlock()

	c.notifier.JobCreated(ctx, trabajo)
	return trabajo, nil
}

// AcceptQuote transitions COTIZADO to ACEPTADO (aceptarCotizacion).
func (c *JobLifecycleController) AcceptQuote(ctx context.Context, trabajoID uuid.UUID) (*domain.Trabajo, error) {
	return c.transition(ctx, trabajoID, domain.ActionAcceptQuote, c.api.AcceptQuote, true)
}

// RejectQuote transitions COTIZADO to RECHAZADO (rechazarCotizacion).
func (c *JobLifecycleController) RejectQuote(ctx context.Context, trabajoID uuid.UUID) (*domain.Trabajo, error) {
	return c.transition(ctx, trabajoID, domain.ActionRejectQuote, c.api.RejectQuote, true)
}

// CancelJob cancels an accepted or in-progress trabajo (cancelarTrabajo).
func (c *JobLifecycleController) CancelJob(ctx context.Context, trabajoID uuid.UUID) (*domain.Trabajo, error) {
	return c.transition(ctx, trabajoID, domain.ActionCancelJob, c.api.CancelTrabajo, true)
}

// CancelRequest cancels a request that has not been quoted yet.
func (c *JobLifecycleController) CancelRequest(ctx context.Context, trabajoID uuid.UUID) (*domain.Trabajo, error) {
	return c.transition(ctx, trabajoID, domain.ActionCancelRequest, c.api.CancelTrabajo, true)
}

// ReportJob flags a trabajo as disputed (reportarTrabajo). The overlay is
// applied optimistically and reverted on failure; the underlying estado is
// untouched and no counter-party notification is sent.
func (c *JobLifecycleController) ReportJob(ctx context.Context, params ports.ReportTrabajoParams) (*domain.Trabajo, error) {
	if params.Motivo == "" {
		return nil, apperrors.ErrReportReasonRequired
	}
	if len(strings.TrimSpace(params.Descripcion)) < minReportDescriptionLen {
		return nil, apperrors.ErrReportDescriptionShort
	}

	c.mu.Lock()
	entry, ok := c.jobs[params.TrabajoID]
	if !ok {
		c.mu.Unlock()
		return nil, apperrors.ErrTrabajoNotFound
	}
	if entry.status == domain.SyncPending {
		c.mu.Unlock()
		return nil, apperrors.NewInvalidStateError(apperrors.ErrPendingUpdate, string(entry.trabajo.Estado), string(domain.ActionReportJob))
	}
	if !domain.CanReport(entry.trabajo.Estado) {
		c.mu.Unlock()
		return nil, apperrors.NewInvalidStateError(apperrors.ErrTerminalState, string(entry.trabajo.Estado), string(domain.ActionReportJob))
	}

	prior := entry.trabajo
	entry.prior = &prior
	entry.trabajo.EnDisputa = true
	entry.status = domain.SyncPending
	c.mu.Unlock()

	updated, err := c.api.ReportTrabajo(ctx, params)
	return c.reconcile(params.TrabajoID, updated, err)
}

// ApplyRemoteTrabajo inserts or replaces a mirrored record from a pushed
// trabajo_created event.
func (c *JobLifecycleController) ApplyRemoteTrabajo(trabajo domain.Trabajo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jobs[trabajo.ID] = &jobEntry{trabajo: trabajo, status: domain.SyncConfirmed}
}

// ApplyRemoteState applies a server-driven state change pushed over the
// realtime channel. The server is authoritative: a conflicting local pending
// update is discarded with a warning.
func (c *JobLifecycleController) ApplyRemoteState(trabajoID uuid.UUID, estado domain.Estado, precio *float64, enDisputa bool) {
	if !estado.Valid() {
		c.logger.Warn("ignoring remote state change with unknown estado",
			"trabajo_id", trabajoID,
			"estado", string(estado),
		)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.jobs[trabajoID]
	if !ok {
		c.logger.Debug("remote state change for unknown trabajo", "trabajo_id", trabajoID)
		return
	}
	if entry.status == domain.SyncPending {
		c.logger.Warn("remote state change overrides pending local update",
			"trabajo_id", trabajoID,
			"local_estado", string(entry.trabajo.Estado),
			"remote_estado", string(estado),
		)
	}

	entry.trabajo.Estado = estado
	entry.trabajo.EnDisputa = enDisputa
	if precio != nil {
		entry.trabajo.Precio = precio
	}
	entry.status = domain.SyncConfirmed
	entry.prior = nil
}

// HandleFrame consumes pushed job notification frames. Wire it to the
// transport's trabajo_created and trabajo_state_changed subscriptions.
func (c *JobLifecycleController) HandleFrame(frame domain.Frame) {
	switch frame.Type {
	case domain.EventTrabajoCreated:
		var p domain.TrabajoCreatedPayload
		if err := json.Unmarshal(frame.Payload, &p); err != nil {
			c.logger.Warn("failed to decode trabajo_created payload", "error", err)
			return
		}
		c.ApplyRemoteTrabajo(p.Trabajo)

	case domain.EventTrabajoStateChanged:
		var p domain.TrabajoStateChangedPayload
		if err := json.Unmarshal(frame.Payload, &p); err != nil {
			c.logger.Warn("failed to decode trabajo_state_changed payload", "error", err)
			return
		}
		c.ApplyRemoteState(p.TrabajoID, p.Estado, p.Precio, p.EnDisputa)
	}
}

type restCall func(ctx context.Context, trabajoID uuid.UUID) (*domain.Trabajo, error)

// transition runs the optimistic protocol: validate against the transition
// table, apply locally as pending, issue the REST call, then reconcile.
func (c *JobLifecycleController) transition(ctx context.Context, trabajoID uuid.UUID, action domain.Action, call restCall, notify bool) (*domain.Trabajo, error) {
	c.mu.Lock()
	entry, ok := c.jobs[trabajoID]
	if !ok {
		c.mu.Unlock()
		return nil, apperrors.ErrTrabajoNotFound
	}
	if entry.status == domain.SyncPending {
		c.mu.Unlock()
		return nil, apperrors.NewInvalidStateError(apperrors.ErrPendingUpdate, string(entry.trabajo.Estado), string(action))
	}

	next, err := domain.NextEstado(entry.trabajo.Estado, action, c.session.Role())
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}

	prior := entry.trabajo
	entry.prior = &prior
	entry.trabajo.Estado = next
	entry.status = domain.SyncPending
	c.mu.Unlock()

	updated, err := call(ctx, trabajoID)
	trabajo, err := c.reconcile(trabajoID, updated, err)
	if err != nil {
		return nil, err
	}

	if notify {
		c.notifier.JobStateChanged(ctx, trabajo)
	}
	return trabajo, nil
}

// reconcile finalizes an optimistic update: on success the server payload
// wins and the entry is confirmed, on failure the prior state is restored and
// the entry marked failed. No automatic retry in either case.
func (c *JobLifecycleController) reconcile(trabajoID uuid.UUID, updated *domain.Trabajo, err error) (*domain.Trabajo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.jobs[trabajoID]
	if !ok {
		// Entry vanished mid-flight; nothing to reconcile.
		return nil, apperrors.ErrTrabajoNotFound
	}

	if err != nil {
		if entry.prior != nil {
			entry.trabajo = *entry.prior
		}
		entry.prior = nil
		entry.status = domain.SyncFailed
		c.logger.Warn("optimistic update reverted",
			"trabajo_id", trabajoID,
			"estado", string(entry.trabajo.Estado),
			"error", err,
		)
		return nil, err
	}

	entry.trabajo = *updated
	entry.prior = nil
	entry.status = domain.SyncConfirmed
	result := entry.trabajo
	return &result, nil
}
