package support

import (
	"context"
	"fmt"
	"time"

	"github.com/xaenox/support-bot/internal/models"
	"github.com/xaenox/support-bot/internal/storage"
	"go.uber.org/zap"
)

// Mailer broadcasts a message to every user ever seen in the ticket store
// and records the mailing. Best-effort, not transactional: the record keeps
// the intended recipient count even when some deliveries fail.
type Mailer struct {
	store     storage.Storage
	messenger Messenger
	logger    *zap.Logger
}

func NewMailer(store storage.Storage, messenger Messenger, logger *zap.Logger) *Mailer {
	return &Mailer{
		store:     store,
		messenger: messenger,
		logger:    logger,
	}
}

// Broadcast returns the number of addressed recipients and the number of
// failed deliveries. imageFileID is empty for text-only mailings.
func (m *Mailer) Broadcast(ctx context.Context, text, imageFileID string, adminID int64, adminName string) (recipients, failed int, err error) {
	users, err := m.store.AllUserIDs(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to enumerate users: %w", err)
	}

	for _, userID := range users {
		var sendErr error
		if imageFileID != "" {
			sendErr = m.messenger.SendPhoto(ctx, userID, imageFileID, text)
		} else {
			sendErr = m.messenger.SendText(ctx, userID, text)
		}
		if sendErr != nil {
			failed++
			m.logger.Error("Failed to deliver mailing",
				zap.Error(sendErr),
				zap.Int64("user_id", userID))
		}
	}

	mailing := &models.Mailing{
		AdminID:        adminID,
		AdminName:      adminName,
		Text:           text,
		SentAt:         time.Now(),
		RecipientCount: len(users),
		ImageFileID:    imageFileID,
	}
	if err := m.store.SaveMailing(ctx, mailing); err != nil {
		return len(users), failed, fmt.Errorf("failed to save mailing record: %w", err)
	}

	return len(users), failed, nil
}
