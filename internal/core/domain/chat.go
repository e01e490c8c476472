package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Conversation is a persistent thread between one cliente and one tecnico.
// At most one conversation exists per pair; it is created lazily on first
// message exchange.
type Conversation struct {
	ID              uuid.UUID  `json:"id"`
	ClienteID       uuid.UUID  `json:"clienteId"`
	TecnicoID       uuid.UUID  `json:"tecnicoId"`
	UltimoMensaje   string     `json:"ultimoMensaje"`
	UltimoMensajeAt *time.Time `json:"ultimoMensajeAt,omitempty"`
}

// Message is a single chat message. IDs are globally unique and used for
// deduplication; Leido transitions false to true only.
type Message struct {
	ID          uuid.UUID `json:"id"`
	ChatID      uuid.UUID `json:"chatId"`
	RemitenteID uuid.UUID `json:"remitenteId"`
	Texto       string    `json:"texto"`
	Timestamp   time.Time `json:"timestamp"`
	Leido       bool      `json:"leido"`
}

// Before orders messages by (timestamp, id). REST pages and pushed events can
// interleave out of wall-clock order, so insertion order is never used.
func (m Message) Before(other Message) bool {
	if !m.Timestamp.Equal(other.Timestamp) {
		return m.Timestamp.Before(other.Timestamp)
	}
	return strings.Compare(m.ID.String(), other.ID.String()) < 0
}

// SortMessages sorts msgs in display order, (timestamp asc, id asc).
func SortMessages(msgs []Message) {
	sort.Slice(msgs, func(i, j int) bool {
		return msgs[i].Before(msgs[j])
	})
}

// SortConversations sorts the list descending by UltimoMensajeAt, unset last.
// Ties fall back to the id so the order is deterministic.
func SortConversations(convs []Conversation) {
	sort.Slice(convs, func(i, j int) bool {
		a, b := convs[i].UltimoMensajeAt, convs[j].UltimoMensajeAt
		switch {
		case a == nil && b == nil:
			return strings.Compare(convs[i].ID.String(), convs[j].ID.String()) < 0
		case a == nil:
			return false
		case b == nil:
			return true
		case !a.Equal(*b):
			return a.After(*b)
		default:
			return strings.Compare(convs[i].ID.String(), convs[j].ID.String()) < 0
		}
	})
}
