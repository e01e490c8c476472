package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/oficios-app/marketplace-client/internal/core/domain"
	"github.com/oficios-app/marketplace-client/internal/core/ports"
)

// StaticSession is a fixed-identity ports.Session for tests.
type StaticSession struct {
	BearerToken string
	ID          uuid.UUID
	UserRole    domain.Role
}

func (s *StaticSession) Token() string     { return s.BearerToken }
func (s *StaticSession) UserID() uuid.UUID { return s.ID }
func (s *StaticSession) Role() domain.Role { return s.UserRole }

// MockTrabajoAPI is a mock implementation of ports.TrabajoAPI
type MockTrabajoAPI struct {
	mock.Mock
}

func NewMockTrabajoAPI() *MockTrabajoAPI {
	return &MockTrabajoAPI{}
}

func (m *MockTrabajoAPI) CreateTrabajo(ctx context.Context, params ports.CreateTrabajoParams) (*domain.Trabajo, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Trabajo), args.Error(1)
}

func (m *MockTrabajoAPI) GetTrabajo(ctx context.Context, trabajoID uuid.UUID) (*domain.Trabajo, error) {
	args := m.Called(ctx, trabajoID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Trabajo), args.Error(1)
}

func (m *MockTrabajoAPI) ListTrabajos(ctx context.Context) ([]domain.Trabajo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Trabajo), args.Error(1)
}

func (m *MockTrabajoAPI) AcceptQuote(ctx context.Context, trabajoID uuid.UUID) (*domain.Trabajo, error) {
	args := m.Called(ctx, trabajoID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Trabajo), args.Error(1)
}

func (m *MockTrabajoAPI) RejectQuote(ctx context.Context, trabajoID uuid.UUID) (*domain.Trabajo, error) {
	args := m.Called(ctx, trabajoID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Trabajo), args.Error(1)
}

func (m *MockTrabajoAPI) CancelTrabajo(ctx context.Context, trabajoID uuid.UUID) (*domain.Trabajo, error) {
	args := m.Called(ctx, trabajoID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Trabajo), args.Error(1)
}

func (m *MockTrabajoAPI) ReportTrabajo(ctx context.Context, params ports.ReportTrabajoParams) (*domain.Trabajo, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Trabajo), args.Error(1)
}

// MockChatAPI is a mock implementation of ports.ChatAPI
type MockChatAPI struct {
	mock.Mock
}

func NewMockChatAPI() *MockChatAPI {
	return &MockChatAPI{}
}

func (m *MockChatAPI) ListConversations(ctx context.Context) ([]domain.Conversation, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Conversation), args.Error(1)
}

func (m *MockChatAPI) GetConversation(ctx context.Context, chatID uuid.UUID) (*domain.Conversation, error) {
	args := m.Called(ctx, chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockChatAPI) CreateConversation(ctx context.Context, tecnicoID uuid.UUID) (*domain.Conversation, error) {
	args := m.Called(ctx, tecnicoID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockChatAPI) ListMessages(ctx context.Context, chatID uuid.UUID, page, limit int) ([]domain.Message, error) {
	args := m.Called(ctx, chatID, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Message), args.Error(1)
}

func (m *MockChatAPI) SendMessage(ctx context.Context, chatID uuid.UUID, texto string) (*domain.Message, error) {
	args := m.Called(ctx, chatID, texto)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

// MockTransport is a mock implementation of ports.Transport
type MockTransport struct {
	mock.Mock
}

func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

func (m *MockTransport) Connect(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTransport) Disconnect() {
	m.Called()
}

func (m *MockTransport) Connected() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockTransport) JoinRoom(chatID uuid.UUID) {
	m.Called(chatID)
}

func (m *MockTransport) LeaveRoom(chatID uuid.UUID) {
	m.Called(chatID)
}

func (m *MockTransport) SendMessage(chatID uuid.UUID, texto string) error {
	args := m.Called(chatID, texto)
	return args.Error(0)
}

func (m *MockTransport) SendTyping(chatID uuid.UUID) error {
	args := m.Called(chatID)
	return args.Error(0)
}

func (m *MockTransport) SendRead(chatID uuid.UUID, messageIDs []uuid.UUID) error {
	args := m.Called(chatID, messageIDs)
	return args.Error(0)
}

func (m *MockTransport) Emit(frame domain.Frame) error {
	args := m.Called(frame)
	return args.Error(0)
}

func (m *MockTransport) Subscribe(t domain.EventType, h ports.EventHandler) (cancel func()) {
	args := m.Called(t, h)
	if fn, ok := args.Get(0).(func()); ok {
		return fn
	}
	return func() {}
}

// MockJobNotifier is a mock implementation of ports.JobNotifier
type MockJobNotifier struct {
	mock.Mock
}

func NewMockJobNotifier() *MockJobNotifier {
	return &MockJobNotifier{}
}

func (m *MockJobNotifier) JobCreated(ctx context.Context, trabajo *domain.Trabajo) {
	m.Called(ctx, trabajo)
}

func (m *MockJobNotifier) JobStateChanged(ctx context.Context, trabajo *domain.Trabajo) {
	m.Called(ctx, trabajo)
}
