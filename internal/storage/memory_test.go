package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/support-bot/internal/models"
)

func newTicket(userID int64, category string) *models.Ticket {
	return &models.Ticket{
		UserID:    userID,
		Category:  category,
		Question:  "question",
		CreatedAt: time.Now(),
	}
}

func TestCreateTicketConcurrentIDs(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()

	const n = 100
	ids := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := store.CreateTicket(ctx, newTicket(int64(i), "other"))
			require.NoError(t, err)
			ids <- id
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool, n)
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	require.Len(t, seen, n)
}

func TestCloseTicket(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()

	err := store.CloseTicket(ctx, 404, "answer", 1, "alice")
	require.ErrorIs(t, err, ErrNotFound)

	id, err := store.CreateTicket(ctx, newTicket(1, "other"))
	require.NoError(t, err)

	require.NoError(t, store.CloseTicket(ctx, id, "answer", 1, "alice"))

	err = store.CloseTicket(ctx, id, "other answer", 2, "bob")
	require.ErrorIs(t, err, ErrAlreadyClosed)

	ticket, err := store.TicketByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, ticket.Closed)
	assert.Equal(t, "answer", ticket.Answer)
	assert.Equal(t, "alice", ticket.AdminName)
}

func TestSetRating(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()

	require.ErrorIs(t, store.SetRating(ctx, 404, true), ErrNotFound)

	id, err := store.CreateTicket(ctx, newTicket(1, "other"))
	require.NoError(t, err)

	require.NoError(t, store.SetRating(ctx, id, true))
	ticket, err := store.TicketByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.RatingLiked, ticket.Rating)

	// Last write wins.
	require.NoError(t, store.SetRating(ctx, id, false))
	ticket, err = store.TicketByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.RatingDisliked, ticket.Rating)
}

func TestCategoriesReverseInsertionOrder(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()

	err := store.SeedPreparedEntries(ctx, []models.PreparedEntry{
		{Text: "q1", Category: "account", MatchKey: "k1"},
		{Text: "q2", Category: "payments", MatchKey: "k2"},
		{Text: "q3", Category: "account", MatchKey: "k3"},
		{Text: "q4", Category: "other", MatchKey: "k4"},
	})
	require.NoError(t, err)

	categories, err := store.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"other", "payments", "account"}, categories)
}

func TestSeedPreparedEntriesOnce(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()

	first := []models.PreparedEntry{{Text: "q1", Category: "account", MatchKey: "k1"}}
	require.NoError(t, store.SeedPreparedEntries(ctx, first))

	// A second seed is a no-op, entries are immutable after startup.
	second := []models.PreparedEntry{{Text: "q2", Category: "payments", MatchKey: "k2"}}
	require.NoError(t, store.SeedPreparedEntries(ctx, second))

	entries, err := store.PreparedEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "q1", entries[0].Text)
}

func TestPreparedEntriesByCategoryIgnoresCase(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()

	err := store.SeedPreparedEntries(ctx, []models.PreparedEntry{
		{Text: "q1", Category: "Account", MatchKey: "k1"},
		{Text: "q2", Category: "payments", MatchKey: "k2"},
	})
	require.NoError(t, err)

	entries, err := store.PreparedEntriesByCategory(ctx, "aCCount")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "q1", entries[0].Text)
}

func TestUserEmailMostRecent(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()

	_, err := store.UserEmail(ctx, 1)
	require.ErrorIs(t, err, ErrNotFound)

	first := newTicket(1, "other")
	first.Email = "old@example.com"
	_, err = store.CreateTicket(ctx, first)
	require.NoError(t, err)

	second := newTicket(1, "other")
	second.Email = "new@example.com"
	_, err = store.CreateTicket(ctx, second)
	require.NoError(t, err)

	// A later ticket without an email does not shadow the stored one.
	_, err = store.CreateTicket(ctx, newTicket(1, "other"))
	require.NoError(t, err)

	email, err := store.UserEmail(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", email)
}

func TestAllUserIDsDistinct(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()

	for _, userID := range []int64{100, 200, 100, 300} {
		_, err := store.CreateTicket(ctx, newTicket(userID, "other"))
		require.NoError(t, err)
	}

	ids, err := store.AllUserIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{100, 200, 300}, ids)
}

func TestOpenTickets(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()

	id1, err := store.CreateTicket(ctx, newTicket(1, "other"))
	require.NoError(t, err)
	id2, err := store.CreateTicket(ctx, newTicket(2, "other"))
	require.NoError(t, err)

	require.NoError(t, store.CloseTicket(ctx, id1, "answer", 1, "alice"))

	open, err := store.OpenTickets(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, id2, open[0].ID)
}
