package support

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/support-bot/internal/models"
	"github.com/xaenox/support-bot/internal/storage"
	"go.uber.org/zap"
)

func TestNotifyNewTicketFanOut(t *testing.T) {
	store := storage.NewMemoryStorage()
	store.SetAdmin(1, true)
	store.SetAdmin(2, true)
	store.SetAdmin(3, false)

	messenger := newFakeMessenger()
	notifier := NewNotifier(messenger, store, zap.NewNop())

	ticket := &models.Ticket{ID: 7, Username: "carol", Question: "help"}
	failed, err := notifier.NotifyNewTicket(context.Background(), ticket)
	require.NoError(t, err)
	assert.Zero(t, failed)

	require.Len(t, messenger.texts[1], 1)
	require.Len(t, messenger.texts[2], 1)
	assert.Empty(t, messenger.texts[3], "inactive admins are not notified")
	assert.Contains(t, messenger.texts[1][0], "id: 7", "summary carries the parseable id line")
}

func TestNotifyNewTicketContinuesOnFailure(t *testing.T) {
	store := storage.NewMemoryStorage()
	store.SetAdmin(1, true)
	store.SetAdmin(2, true)
	store.SetAdmin(3, true)

	messenger := newFakeMessenger(2)
	notifier := NewNotifier(messenger, store, zap.NewNop())

	failed, err := notifier.NotifyNewTicket(context.Background(), &models.Ticket{ID: 1, Question: "q"})
	require.NoError(t, err)
	assert.Equal(t, 1, failed)
	assert.Len(t, messenger.texts[1], 1)
	assert.Len(t, messenger.texts[3], 1)
}

func TestNotifyAnsweredExcludesActingAdmin(t *testing.T) {
	store := storage.NewMemoryStorage()
	store.SetAdmin(1, true)
	store.SetAdmin(2, true)

	messenger := newFakeMessenger()
	notifier := NewNotifier(messenger, store, zap.NewNop())

	ticket := &models.Ticket{ID: 7, Question: "q", Answer: "a", AdminID: 2, AdminName: "bob", Closed: true}
	failed, err := notifier.NotifyAnswered(context.Background(), ticket, 2)
	require.NoError(t, err)
	assert.Zero(t, failed)

	assert.Len(t, messenger.texts[1], 1)
	assert.Empty(t, messenger.texts[2], "the answering admin already knows")
}
