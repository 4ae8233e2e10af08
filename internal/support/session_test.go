package support

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailGateRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	const userID = int64(1)

	stage, err := svc.BeginQuestion(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, StageAwaitingEmail, stage, "no email on file routes to email collection")

	err = svc.SubmitEmail(userID, "bad@@x")
	require.ErrorIs(t, err, ErrInvalidEmail)
	assert.Equal(t, StageAwaitingEmail, svc.Sessions().Stage(userID), "invalid email keeps the stage")

	err = svc.SubmitEmail(userID, "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, StageAwaitingQuestion, svc.Sessions().Stage(userID))
	assert.Equal(t, "user@example.com", svc.Sessions().Email(userID))
}

func TestBeginQuestionWithEmailOnFile(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.SubmitTicket(ctx, Submission{UserID: 1, Question: "first", Email: "user@example.com"})
	require.NoError(t, err)

	stage, err := svc.BeginQuestion(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, StageAwaitingQuestion, stage, "stored email skips the collection step")
}

func TestRatingMovesSession(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	ticket, err := svc.SubmitTicket(ctx, Submission{UserID: 1, Question: "help"})
	require.NoError(t, err)
	_, err = svc.CloseTicketWithAnswer(ctx, ticket.ID, "answer", 10, "alice")
	require.NoError(t, err)

	require.NoError(t, svc.RateAnswer(ctx, 1, ticket.ID, false))
	assert.Equal(t, StageAwaitingQuestion, svc.Sessions().Stage(1), "dislike re-opens the question flow")

	require.NoError(t, svc.RateAnswer(ctx, 1, ticket.ID, true))
	assert.Equal(t, StageIdle, svc.Sessions().Stage(1), "like returns the user to idle")
}

func TestSessionSweepDropsIdleUsers(t *testing.T) {
	sessions := NewSessions(10 * time.Millisecond)
	sessions.SetStage(1, StageAwaitingQuestion)
	sessions.SetCategory(1, "account")

	time.Sleep(30 * time.Millisecond)

	// The next access sweeps expired entries and recreates a fresh session.
	assert.Equal(t, StageIdle, sessions.Stage(1))
	assert.Empty(t, sessions.Category(1))
}

func TestTakePending(t *testing.T) {
	sessions := NewSessions(0)

	_, ok := sessions.TakePending(1)
	assert.False(t, ok)

	ref := MessageRef{ChatID: 1, MessageID: 77}
	sessions.SetPending(1, ref)

	got, ok := sessions.TakePending(1)
	assert.True(t, ok)
	assert.Equal(t, ref, got)

	_, ok = sessions.TakePending(1)
	assert.False(t, ok, "pending ref is consumed on take")
}
