package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/oficios-app/marketplace-client/internal/core/domain"
)

// CreateTrabajoParams defines the required input for requesting a new trabajo.
type CreateTrabajoParams struct {
	TecnicoID       uuid.UUID
	ServicioNombre  string
	Descripcion     string
	Direccion       string
	Telefono        string
	FechaProgramada *time.Time
}

// ReportTrabajoParams defines the input for reporting a trabajo.
type ReportTrabajoParams struct {
	TrabajoID   uuid.UUID
	Motivo      string
	Descripcion string
}

// TrabajoAPI is the REST surface for the job lifecycle.
type TrabajoAPI interface {
	CreateTrabajo(ctx context.Context, params CreateTrabajoParams) (*domain.Trabajo, error)
	GetTrabajo(ctx context.Context, trabajoID uuid.UUID) (*domain.Trabajo, error)
	ListTrabajos(ctx context.Context) ([]domain.Trabajo, error)
	AcceptQuote(ctx context.Context, trabajoID uuid.UUID) (*domain.Trabajo, error)
	RejectQuote(ctx context.Context, trabajoID uuid.UUID) (*domain.Trabajo, error)
	CancelTrabajo(ctx context.Context, trabajoID uuid.UUID) (*domain.Trabajo, error)
	ReportTrabajo(ctx context.Context, params ReportTrabajoParams) (*domain.Trabajo, error)
}

// ChatAPI is the REST surface for conversations and message history.
type ChatAPI interface {
	ListConversations(ctx context.Context) ([]domain.Conversation, error)
	GetConversation(ctx context.Context, chatID uuid.UUID) (*domain.Conversation, error)
	CreateConversation(ctx context.Context, tecnicoID uuid.UUID) (*domain.Conversation, error)
	ListMessages(ctx context.Context, chatID uuid.UUID, page, limit int) ([]domain.Message, error)
	SendMessage(ctx context.Context, chatID uuid.UUID, texto string) (*domain.Message, error)
}

// Session supplies the current user's identity and bearer token. The core
// only reads it; its lifecycle is managed elsewhere.
type Session interface {
	Token() string
	UserID() uuid.UUID
	Role() domain.Role
}

// EventHandler consumes one inbound realtime frame.
type EventHandler func(frame domain.Frame)

// Transport manages the single realtime connection per session and the
// subscription topology on top of it.
type Transport interface {
	// Connect is idempotent: a live connection is reused and an in-flight
	// attempt is awaited rather than duplicated.
	Connect(ctx context.Context) error
	Disconnect()
	Connected() bool

	JoinRoom(chatID uuid.UUID)
	LeaveRoom(chatID uuid.UUID)

	// SendMessage fails immediately when disconnected; there is no offline
	// queue.
	SendMessage(chatID uuid.UUID, texto string) error
	SendTyping(chatID uuid.UUID) error
	SendRead(chatID uuid.UUID, messageIDs []uuid.UUID) error

	// Emit sends a raw frame, used for addressed notification events.
	Emit(frame domain.Frame) error

	// Subscribe registers a handler for one inbound event type and returns
	// its cancel function. Multiple independent subscribers are supported.
	Subscribe(t domain.EventType, h EventHandler) (cancel func())
}

// JobNotifier forwards committed job changes to the counter-party, decoupled
// from the REST call that caused them.
type JobNotifier interface {
	JobCreated(ctx context.Context, trabajo *domain.Trabajo)
	JobStateChanged(ctx context.Context, trabajo *domain.Trabajo)
}
