package support

import (
	"context"
	"fmt"

	"github.com/xaenox/support-bot/internal/models"
	"go.uber.org/zap"
)

// Messenger is the send primitive supplied by the chat transport.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendPhoto(ctx context.Context, chatID int64, fileID, caption string) error
}

// Notifier fans ticket events out to the admin roster. Delivery is
// best-effort: a failure for one admin never aborts the rest, it is logged
// and counted.
type Notifier struct {
	messenger Messenger
	roster    Roster
	logger    *zap.Logger
}

func NewNotifier(messenger Messenger, roster Roster, logger *zap.Logger) *Notifier {
	return &Notifier{
		messenger: messenger,
		roster:    roster,
		logger:    logger,
	}
}

// FormatTicket renders the summary admins reply to. The "id: N" line is
// load-bearing: replies are matched back to the ticket by parsing it.
func FormatTicket(t *models.Ticket) string {
	return fmt.Sprintf(
		"⚠️ New question from @%s\nid: %d\n👤 Name: %s\n💌 Email: %s\nCategory: %s\n❓ Question: %s",
		t.Username, t.ID, t.FirstName, t.Email, t.Category, t.Question)
}

func formatAnswered(t *models.Ticket) string {
	return fmt.Sprintf(
		"👤 Admin @%s answered question #%d\n❔ Question: %s\n📝 Answer: %s",
		t.AdminName, t.ID, t.Question, t.Answer)
}

// NotifyNewTicket sends the ticket summary to every active admin and returns
// the number of failed deliveries.
func (n *Notifier) NotifyNewTicket(ctx context.Context, t *models.Ticket) (int, error) {
	return n.fanOut(ctx, FormatTicket(t), 0)
}

// NotifyAnswered tells every admin except the one who answered that the
// ticket is closed.
func (n *Notifier) NotifyAnswered(ctx context.Context, t *models.Ticket, excludeAdminID int64) (int, error) {
	return n.fanOut(ctx, formatAnswered(t), excludeAdminID)
}

func (n *Notifier) fanOut(ctx context.Context, text string, excludeAdminID int64) (int, error) {
	admins, err := n.roster.ActiveAdminIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load admin roster: %w", err)
	}

	failed := 0
	for _, adminID := range admins {
		if adminID == excludeAdminID {
			continue
		}
		if err := n.messenger.SendText(ctx, adminID, text); err != nil {
			failed++
			n.logger.Error("Failed to notify admin",
				zap.Error(err),
				zap.Int64("admin_id", adminID))
		}
	}
	return failed, nil
}
