package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortMessages(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	chatID := uuid.New()

	t.Run("out of order arrival sorts by timestamp", func(t *testing.T) {
		m1 := Message{ID: uuid.New(), ChatID: chatID, Texto: "primero", Timestamp: base}
		m2 := Message{ID: uuid.New(), ChatID: chatID, Texto: "segundo", Timestamp: base.Add(time.Second)}

		// m2 arrives first (push beat the REST page).
		msgs := []Message{m2, m1}
		SortMessages(msgs)

		require.Len(t, msgs, 2)
		assert.Equal(t, "primero", msgs[0].Texto)
		assert.Equal(t, "segundo", msgs[1].Texto)
	})

	t.Run("equal timestamps break ties by id", func(t *testing.T) {
		a := Message{ID: uuid.MustParse("00000000-0000-0000-0000-000000000001"), Timestamp: base}
		b := Message{ID: uuid.MustParse("00000000-0000-0000-0000-000000000002"), Timestamp: base}

		msgs := []Message{b, a}
		SortMessages(msgs)

		assert.Equal(t, a.ID, msgs[0].ID)
		assert.Equal(t, b.ID, msgs[1].ID)
	})
}

func TestSortConversations(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	older := base.Add(-time.Hour)

	active := Conversation{ID: uuid.New(), UltimoMensajeAt: &base}
	stale := Conversation{ID: uuid.New(), UltimoMensajeAt: &older}
	empty := Conversation{ID: uuid.New()}

	convs := []Conversation{empty, stale, active}
	SortConversations(convs)

	require.Len(t, convs, 3)
	assert.Equal(t, active.ID, convs[0].ID, "latest activity first")
	assert.Equal(t, stale.ID, convs[1].ID)
	assert.Equal(t, empty.ID, convs[2].ID, "conversations without messages sort last")
}
