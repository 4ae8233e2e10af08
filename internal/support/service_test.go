package support

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/support-bot/internal/models"
	"github.com/xaenox/support-bot/internal/storage"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (*Service, *storage.MemoryStorage) {
	t.Helper()
	store := storage.NewMemoryStorage()
	return NewService(store, store, NewSessions(0), zap.NewNop()), store
}

func seedEntries(t *testing.T, store *storage.MemoryStorage) {
	t.Helper()
	err := store.SeedPreparedEntries(context.Background(), []models.PreparedEntry{
		{Text: "q1", Answer: "a1", Category: "account", MatchKey: "question_1"},
		{Text: "q2", Answer: "a2", Category: "payments", MatchKey: "question_2"},
		{Text: "q3", Answer: "a3", Category: "other", MatchKey: "question_3"},
	})
	require.NoError(t, err)
}

func TestSubmitTicketConcurrentIDs(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	const n = 50
	ids := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ticket, err := svc.SubmitTicket(ctx, Submission{
				UserID:   int64(i),
				Question: fmt.Sprintf("question %d", i),
			})
			require.NoError(t, err)
			ids <- ticket.ID
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool, n)
	for id := range ids {
		assert.False(t, seen[id], "duplicate ticket id %d", id)
		seen[id] = true
	}
	require.Len(t, seen, n)
	// Ids are dense: max id + 1 on every creation, starting from 1.
	for i := int64(1); i <= n; i++ {
		assert.True(t, seen[i], "missing ticket id %d", i)
	}
}

func TestCloseTicketIdempotence(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	ticket, err := svc.SubmitTicket(ctx, Submission{UserID: 1, Question: "help"})
	require.NoError(t, err)

	first, err := svc.CloseTicketWithAnswer(ctx, ticket.ID, "first answer", 10, "alice")
	require.NoError(t, err)
	assert.True(t, first.Closed)
	assert.Equal(t, "first answer", first.Answer)
	assert.Equal(t, int64(10), first.AdminID)

	_, err = svc.CloseTicketWithAnswer(ctx, ticket.ID, "second answer", 20, "bob")
	require.ErrorIs(t, err, storage.ErrAlreadyClosed)

	// The first answer wins.
	stored, err := svc.Ticket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "first answer", stored.Answer)
	assert.Equal(t, "alice", stored.AdminName)
}

func TestCloseTicketMissing(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CloseTicketWithAnswer(context.Background(), 404, "answer", 10, "alice")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSubmitTicketDefaultsCategory(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	ticket, err := svc.SubmitTicket(ctx, Submission{UserID: 1, Question: "help"})
	require.NoError(t, err)
	assert.Equal(t, CategoryOther, ticket.Category)

	ticket, err = svc.SubmitTicket(ctx, Submission{UserID: 1, Question: "help", Category: "  Payments "})
	require.NoError(t, err)
	assert.Equal(t, "payments", ticket.Category)
}

func TestSubmitTicketEmptyQuestion(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.SubmitTicket(context.Background(), Submission{UserID: 1, Question: "   "})
	require.ErrorIs(t, err, ErrEmptyQuestion)
}

func TestSubmitTicketReusesStoredEmail(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.SubmitTicket(ctx, Submission{UserID: 1, Question: "first", Email: "user@example.com"})
	require.NoError(t, err)

	ticket, err := svc.SubmitTicket(ctx, Submission{UserID: 1, Question: "second"})
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", ticket.Email)
}

func TestIsClosed(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	ticket, err := svc.SubmitTicket(ctx, Submission{UserID: 1, Question: "help"})
	require.NoError(t, err)

	closed, err := svc.IsClosed(ctx, ticket.ID)
	require.NoError(t, err)
	assert.False(t, closed)

	_, err = svc.CloseTicketWithAnswer(ctx, ticket.ID, "answer", 10, "alice")
	require.NoError(t, err)

	closed, err = svc.IsClosed(ctx, ticket.ID)
	require.NoError(t, err)
	assert.True(t, closed)

	// A missing ticket is "unknown", not "open".
	_, err = svc.IsClosed(ctx, 404)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGetAnswer(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	ticket, err := svc.SubmitTicket(ctx, Submission{UserID: 1, Username: "carol", Question: "help"})
	require.NoError(t, err)

	_, err = svc.GetAnswer(ctx, ticket.ID)
	require.ErrorIs(t, err, storage.ErrNotFound, "open ticket has no answer yet")

	_, err = svc.CloseTicketWithAnswer(ctx, ticket.ID, "answer", 10, "alice")
	require.NoError(t, err)

	ans, err := svc.GetAnswer(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, ans.TicketID)
	assert.Equal(t, "carol", ans.Username)
	assert.Equal(t, "answer", ans.Text)
	assert.Equal(t, "alice", ans.AdminName)
}

func TestMatchCategory(t *testing.T) {
	svc, store := newTestService(t)
	seedEntries(t, store)
	ctx := context.Background()

	category, ok, err := svc.MatchCategory(ctx, 1, "ACCOUNT")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "account", category)
	assert.Equal(t, "account", svc.Sessions().Category(1))

	_, ok, err = svc.MatchCategory(ctx, 1, "my password is broken")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIsAdmin(t *testing.T) {
	svc, store := newTestService(t)
	store.SetAdmin(10, true)
	store.SetAdmin(20, false)
	ctx := context.Background()

	isAdmin, err := svc.IsAdmin(ctx, 10)
	require.NoError(t, err)
	assert.True(t, isAdmin)

	isAdmin, err = svc.IsAdmin(ctx, 20)
	require.NoError(t, err)
	assert.False(t, isAdmin, "inactive roster members are not admins")

	isAdmin, err = svc.IsAdmin(ctx, 30)
	require.NoError(t, err)
	assert.False(t, isAdmin)
}
