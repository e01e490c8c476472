package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/oficios-app/marketplace-client/internal/core/domain"
	"github.com/oficios-app/marketplace-client/internal/core/ports"
)

type createTrabajoRequest struct {
	TecnicoID       uuid.UUID  `json:"tecnicoId"`
	ServicioNombre  string     `json:"servicioNombre"`
	Descripcion     string     `json:"descripcion"`
	Direccion       string     `json:"direccion"`
	Telefono        string     `json:"telefono"`
	FechaProgramada *time.Time `json:"fechaProgramada,omitempty"`
}

type reportTrabajoRequest struct {
	Motivo      string `json:"motivo"`
	Descripcion string `json:"descripcion"`
}

// CreateTrabajo submits a new service request.
func (c *Client) CreateTrabajo(ctx context.Context, params ports.CreateTrabajoParams) (*domain.Trabajo, error) {
	body := createTrabajoRequest{
		TecnicoID:       params.TecnicoID,
		ServicioNombre:  params.ServicioNombre,
		Descripcion:     params.Descripcion,
		Direccion:       params.Direccion,
		Telefono:        params.Telefono,
		FechaProgramada: params.FechaProgramada,
	}
	var trabajo domain.Trabajo
	if err := c.do(ctx, http.MethodPost, "/trabajos", body, &trabajo); err != nil {
		return nil, err
	}
	return &trabajo, nil
}

func (c *Client) GetTrabajo(ctx context.Context, trabajoID uuid.UUID) (*domain.Trabajo, error) {
	var trabajo domain.Trabajo
	if err := c.do(ctx, http.MethodGet, "/trabajos/"+trabajoID.String(), nil, &trabajo); err != nil {
		return nil, err
	}
	return &trabajo, nil
}

func (c *Client) ListTrabajos(ctx context.Context) ([]domain.Trabajo, error) {
	var trabajos []domain.Trabajo
	if err := c.do(ctx, http.MethodGet, "/trabajos", nil, &trabajos); err != nil {
		return nil, err
	}
	return trabajos, nil
}

func (c *Client) AcceptQuote(ctx context.Context, trabajoID uuid.UUID) (*domain.Trabajo, error) {
	return c.patchTrabajo(ctx, trabajoID, "aceptar-cotizacion", nil)
}

func (c *Client) RejectQuote(ctx context.Context, trabajoID uuid.UUID) (*domain.Trabajo, error) {
	return c.patchTrabajo(ctx, trabajoID, "rechazar-cotizacion", nil)
}

func (c *Client) CancelTrabajo(ctx context.Context, trabajoID uuid.UUID) (*domain.Trabajo, error) {
	return c.patchTrabajo(ctx, trabajoID, "cancelar", nil)
}

func (c *Client) ReportTrabajo(ctx context.Context, params ports.ReportTrabajoParams) (*domain.Trabajo, error) {
	body := reportTrabajoRequest{Motivo: params.Motivo, Descripcion: params.Descripcion}
	return c.patchTrabajo(ctx, params.TrabajoID, "reportar", body)
}

func (c *Client) patchTrabajo(ctx context.Context, trabajoID uuid.UUID, action string, body any) (*domain.Trabajo, error) {
	var trabajo domain.Trabajo
	path := "/trabajos/" + trabajoID.String() + "/" + action
	if err := c.do(ctx, http.MethodPatch, path, body, &trabajo); err != nil {
		return nil, err
	}
	return &trabajo, nil
}
