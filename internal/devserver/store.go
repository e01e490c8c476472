package devserver

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/oficios-app/marketplace-client/internal/core/domain"
	apperrors "github.com/oficios-app/marketplace-client/internal/core/errors"
)

// User is a dev-server account. Passwords exist only to make the login flow
// realistic; accounts are seeded, never registered.
type User struct {
	ID           uuid.UUID   `json:"id"`
	Nombre       string      `json:"nombre"`
	Email        string      `json:"email"`
	Role         domain.Role `json:"role"`
	passwordHash []byte
}

type pairKey struct {
	Cliente uuid.UUID
	Tecnico uuid.UUID
}

// Store is the volatile in-memory dataset behind the dev server. It is a test
// fixture, not a persistence layer: everything is lost on restart.
type Store struct {
	mu            sync.RWMutex
	users         map[uuid.UUID]*User
	usersByEmail  map[string]*User
	trabajos      map[uuid.UUID]*domain.Trabajo
	conversations map[uuid.UUID]*domain.Conversation
	convByPair    map[pairKey]uuid.UUID
	messages      map[uuid.UUID][]domain.Message
}

func NewStore() *Store {
	return &Store{
		users:         make(map[uuid.UUID]*User),
		usersByEmail:  make(map[string]*User),
		trabajos:      make(map[uuid.UUID]*domain.Trabajo),
		conversations: make(map[uuid.UUID]*domain.Conversation),
		convByPair:    make(map[pairKey]uuid.UUID),
		messages:      make(map[uuid.UUID][]domain.Message),
	}
}

// SeedDemoUsers registers the fixed demo accounts and returns them.
func (s *Store) SeedDemoUsers() ([]*User, error) {
	demo := []struct {
		nombre, email, password string
		role                    domain.Role
	}{
		{"Carla Cliente", "cliente@demo.local", "demo-password", domain.RoleCliente},
		{"Tomás Técnico", "tecnico@demo.local", "demo-password", domain.RoleTecnico},
	}

	users := make([]*User, 0, len(demo))
	for _, d := range demo {
		user, err := s.AddUser(d.nombre, d.email, d.password, d.role)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

// AddUser registers an account with a bcrypt-hashed password.
func (s *Store) AddUser(nombre, email, password string, role domain.Role) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &User{
		ID:           uuid.New(),
		Nombre:       nombre,
		Email:        strings.ToLower(email),
		Role:         role,
		passwordHash: hash,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
	s.usersByEmail[user.Email] = user
	return user, nil
}

// Authenticate checks credentials and returns the matching user.
func (s *Store) Authenticate(email, password string) (*User, error) {
	s.mu.RLock()
	user, ok := s.usersByEmail[strings.ToLower(email)]
	s.mu.RUnlock()

	if !ok {
		return nil, apperrors.NewAuthError("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword(user.passwordHash, []byte(password)); err != nil {
		return nil, apperrors.NewAuthError("invalid credentials")
	}
	return user, nil
}

// GetUser returns the user with the given id.
func (s *Store) GetUser(id uuid.UUID) (*User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	return user, ok
}

// CreateTrabajo persists a new request in PENDIENTE.
func (s *Store) CreateTrabajo(t domain.Trabajo) (*domain.Trabajo, error) {
	t.ID = uuid.New()
	t.Estado = domain.EstadoPendiente
	t.EnDisputa = false
	t.Precio = nil
	t.FechaSolicitud = time.Now().UTC()
	if err := t.CheckInvariants(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	stored := t
	s.trabajos[t.ID] = &stored
	result := stored
	return &result, nil
}

// GetTrabajo returns a copy of the trabajo.
func (s *Store) GetTrabajo(id uuid.UUID) (*domain.Trabajo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.trabajos[id]
	if !ok {
		return nil, apperrors.ErrTrabajoNotFound
	}
	result := *t
	return &result, nil
}

// ListTrabajosFor returns the trabajos the user participates in, newest first.
func (s *Store) ListTrabajosFor(userID uuid.UUID) []domain.Trabajo {
	s.mu.RLock()
	out := make([]domain.Trabajo, 0)
	for _, t := range s.trabajos {
		if t.ClienteID == userID || t.TecnicoID == userID {
			out = append(out, *t)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].FechaSolicitud.Equal(out[j].FechaSolicitud) {
			return out[i].FechaSolicitud.After(out[j].FechaSolicitud)
		}
		return strings.Compare(out[i].ID.String(), out[j].ID.String()) < 0
	})
	return out
}

// MutateTrabajo applies fn to the stored record under the lock and returns the
// updated copy. fn returning an error leaves the record untouched.
func (s *Store) MutateTrabajo(id uuid.UUID, fn func(*domain.Trabajo) error) (*domain.Trabajo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.trabajos[id]
	if !ok {
		return nil, apperrors.ErrTrabajoNotFound
	}

	updated := *t
	if err := fn(&updated); err != nil {
		return nil, err
	}
	if err := updated.CheckInvariants(); err != nil {
		return nil, err
	}

	*t = updated
	result := updated
	return &result, nil
}

// EnsureConversation returns the unique conversation for the pair, creating
// it when first needed.
func (s *Store) EnsureConversation(clienteID, tecnicoID uuid.UUID) *domain.Conversation {
	key := pairKey{Cliente: clienteID, Tecnico: tecnicoID}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.convByPair[key]; ok {
		result := *s.conversations[id]
		return &result
	}

	conv := &domain.Conversation{
		ID:        uuid.New(),
		ClienteID: clienteID,
		TecnicoID: tecnicoID,
	}
	s.conversations[conv.ID] = conv
	s.convByPair[key] = conv.ID
	result := *conv
	return &result
}

// GetConversation returns a copy of the conversation.
func (s *Store) GetConversation(id uuid.UUID) (*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[id]
	if !ok {
		return nil, apperrors.ErrConversationNotFound
	}
	result := *conv
	return &result, nil
}

// ListConversationsFor returns the user's conversations, latest activity first.
func (s *Store) ListConversationsFor(userID uuid.UUID) []domain.Conversation {
	s.mu.RLock()
	out := make([]domain.Conversation, 0)
	for _, conv := range s.conversations {
		if conv.ClienteID == userID || conv.TecnicoID == userID {
			out = append(out, *conv)
		}
	}
	s.mu.RUnlock()

	domain.SortConversations(out)
	return out
}

// AppendMessage persists a message and advances the conversation preview.
func (s *Store) AppendMessage(chatID, remitenteID uuid.UUID, texto string) (*domain.Message, error) {
	if texto == "" {
		return nil, apperrors.ErrEmptyMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[chatID]
	if !ok {
		return nil, apperrors.ErrConversationNotFound
	}

	msg := domain.Message{
		ID:          uuid.New(),
		ChatID:      chatID,
		RemitenteID: remitenteID,
		Texto:       texto,
		Timestamp:   time.Now().UTC(),
	}
	s.messages[chatID] = append(s.messages[chatID], msg)

	ts := msg.Timestamp
	conv.UltimoMensaje = msg.Texto
	conv.UltimoMensajeAt = &ts

	result := msg
	return &result, nil
}

// ListMessages returns one history page, oldest first, 1-based pages.
func (s *Store) ListMessages(chatID uuid.UUID, page, limit int) ([]domain.Message, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}

	s.mu.RLock()
	if _, ok := s.conversations[chatID]; !ok {
		s.mu.RUnlock()
		return nil, apperrors.ErrConversationNotFound
	}
	all := make([]domain.Message, len(s.messages[chatID]))
	copy(all, s.messages[chatID])
	s.mu.RUnlock()

	domain.SortMessages(all)

	start := (page - 1) * limit
	if start >= len(all) {
		return []domain.Message{}, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

// MarkRead flips Leido for the given messages and returns the ids that
// actually changed.
func (s *Store) MarkRead(chatID uuid.UUID, messageIDs []uuid.UUID) []uuid.UUID {
	wanted := make(map[uuid.UUID]bool, len(messageIDs))
	for _, id := range messageIDs {
		wanted[id] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	changed := make([]uuid.UUID, 0, len(messageIDs))
	msgs := s.messages[chatID]
	for i := range msgs {
		if wanted[msgs[i].ID] && !msgs[i].Leido {
			msgs[i].Leido = true
			changed = append(changed, msgs[i].ID)
		}
	}
	return changed
}

// Participants returns both sides of a conversation.
func (s *Store) Participants(chatID uuid.UUID) (cliente, tecnico uuid.UUID, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[chatID]
	if !ok {
		return uuid.Nil, uuid.Nil, apperrors.ErrConversationNotFound
	}
	return conv.ClienteID, conv.TecnicoID, nil
}
