package storage

import (
	"context"
	"errors"

	"github.com/xaenox/support-bot/internal/models"
)

var (
	// ErrNotFound is returned when the referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyClosed is returned by CloseTicket when another admin got
	// there first. Callers show the existing answer instead of overwriting.
	ErrAlreadyClosed = errors.New("ticket already closed")
)

type Storage interface {
	// Prepared FAQ entries. SeedPreparedEntries is a no-op when entries
	// already exist; Categories returns the reverse of insertion order.
	SeedPreparedEntries(ctx context.Context, entries []models.PreparedEntry) error
	PreparedEntries(ctx context.Context) ([]models.PreparedEntry, error)
	PreparedEntriesByCategory(ctx context.Context, category string) ([]models.PreparedEntry, error)
	Categories(ctx context.Context) ([]string, error)

	// Tickets. CreateTicket assigns the next visible id atomically and
	// returns it. CloseTicket sets closed=true only if currently false and
	// reports ErrAlreadyClosed otherwise.
	CreateTicket(ctx context.Context, t *models.Ticket) (int64, error)
	TicketByID(ctx context.Context, id int64) (*models.Ticket, error)
	OpenTickets(ctx context.Context) ([]models.Ticket, error)
	AllTickets(ctx context.Context) ([]models.Ticket, error)
	CloseTicket(ctx context.Context, id int64, answer string, adminID int64, adminName string) error
	SetRating(ctx context.Context, id int64, liked bool) error

	// UserEmail returns the email from the user's most recent ticket, or
	// ErrNotFound when the user never supplied one.
	UserEmail(ctx context.Context, userID int64) (string, error)
	AllUserIDs(ctx context.Context) ([]int64, error)

	SaveMailing(ctx context.Context, m *models.Mailing) error
	Mailings(ctx context.Context) ([]models.Mailing, error)

	// ActiveAdminIDs reads the shared admin roster.
	ActiveAdminIDs(ctx context.Context) ([]int64, error)

	Close() error
}
