package support

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/support-bot/internal/models"
)

func TestStatistics(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// Two closed tickets in category A answered by admin 1 (one liked, one
	// disliked), one open ticket in category B from a repeat user.
	t1, err := svc.SubmitTicket(ctx, Submission{UserID: 100, Question: "q1", Category: "A"})
	require.NoError(t, err)
	t2, err := svc.SubmitTicket(ctx, Submission{UserID: 200, Question: "q2", Category: "A"})
	require.NoError(t, err)
	_, err = svc.SubmitTicket(ctx, Submission{UserID: 100, Question: "q3", Category: "B"})
	require.NoError(t, err)

	_, err = svc.CloseTicketWithAnswer(ctx, t1.ID, "a1", 1, "alice")
	require.NoError(t, err)
	_, err = svc.CloseTicketWithAnswer(ctx, t2.ID, "a2", 1, "alice")
	require.NoError(t, err)

	require.NoError(t, svc.RateTicket(ctx, t1.ID, true))
	require.NoError(t, svc.RateTicket(ctx, t2.ID, false))

	stat, err := svc.Statistics(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, stat.UserCount)
	assert.Equal(t, 2, stat.ClosedCount)
	assert.Equal(t, 1, stat.OpenCount)

	assert.Equal(t, []models.CategoryCount{
		{Category: "a", Count: 2},
		{Category: "b", Count: 1},
	}, stat.Categories, "lower-cased buckets in first-appearance order")

	require.Len(t, stat.Admins, 1)
	assert.Equal(t, models.AdminTally{
		AdminName:   "alice",
		Likes:       1,
		Dislikes:    1,
		WithoutRate: 0,
	}, stat.Admins[0])
}

func TestStatisticsUnratedBucket(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	ticket, err := svc.SubmitTicket(ctx, Submission{UserID: 1, Question: "q"})
	require.NoError(t, err)
	_, err = svc.CloseTicketWithAnswer(ctx, ticket.ID, "a", 7, "bob")
	require.NoError(t, err)

	stat, err := svc.Statistics(ctx)
	require.NoError(t, err)

	require.Len(t, stat.Admins, 1)
	assert.Equal(t, 1, stat.Admins[0].WithoutRate, "unset rating counts as unrated")
}

func TestStatisticsEmptyStore(t *testing.T) {
	svc, _ := newTestService(t)

	stat, err := svc.Statistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stat.UserCount)
	assert.Empty(t, stat.Categories)
	assert.Empty(t, stat.Admins)
}
