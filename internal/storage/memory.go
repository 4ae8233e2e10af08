package storage

import (
	"context"
	"strings"
	"sync"

	"github.com/xaenox/support-bot/internal/models"
)

// MemoryStorage keeps everything in process memory. Used for local runs
// without Postgres and as the test double. The mutex-guarded lastID counter
// is the atomic-allocation strategy here: ids are handed out under the lock.
type MemoryStorage struct {
	mu       sync.RWMutex
	entries  []models.PreparedEntry
	tickets  map[int64]*models.Ticket
	order    []int64
	mailings []models.Mailing
	admins   map[int64]bool
	lastID   int64
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		tickets: make(map[int64]*models.Ticket),
		admins:  make(map[int64]bool),
	}
}

func (s *MemoryStorage) SeedPreparedEntries(ctx context.Context, entries []models.PreparedEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) > 0 {
		return nil
	}
	s.entries = append(s.entries, entries...)
	return nil
}

func (s *MemoryStorage) PreparedEntries(ctx context.Context) ([]models.PreparedEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.PreparedEntry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

func (s *MemoryStorage) PreparedEntriesByCategory(ctx context.Context, category string) ([]models.PreparedEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.PreparedEntry
	for _, e := range s.entries {
		if strings.EqualFold(e.Category, category) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemoryStorage) Categories(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	var categories []string
	for _, e := range s.entries {
		if _, ok := seen[e.Category]; ok {
			continue
		}
		seen[e.Category] = struct{}{}
		categories = append(categories, e.Category)
	}
	// Reverse insertion order, same as the Postgres implementation.
	for i, j := 0, len(categories)-1; i < j; i, j = i+1, j-1 {
		categories[i], categories[j] = categories[j], categories[i]
	}
	return categories, nil
}

func (s *MemoryStorage) CreateTicket(ctx context.Context, t *models.Ticket) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastID++
	stored := *t
	stored.ID = s.lastID
	s.tickets[stored.ID] = &stored
	s.order = append(s.order, stored.ID)

	t.ID = stored.ID
	return stored.ID, nil
}

func (s *MemoryStorage) TicketByID(ctx context.Context, id int64) (*models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *t
	return &copied, nil
}

func (s *MemoryStorage) OpenTickets(ctx context.Context) ([]models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Ticket
	for _, id := range s.order {
		if t := s.tickets[id]; !t.Closed {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (s *MemoryStorage) AllTickets(ctx context.Context) ([]models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Ticket, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.tickets[id])
	}
	return out, nil
}

func (s *MemoryStorage) CloseTicket(ctx context.Context, id int64, answer string, adminID int64, adminName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[id]
	if !ok {
		return ErrNotFound
	}
	if t.Closed {
		return ErrAlreadyClosed
	}

	t.Closed = true
	t.Answer = answer
	t.AdminID = adminID
	t.AdminName = adminName
	return nil
}

func (s *MemoryStorage) SetRating(ctx context.Context, id int64, liked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[id]
	if !ok {
		return ErrNotFound
	}
	if liked {
		t.Rating = models.RatingLiked
	} else {
		t.Rating = models.RatingDisliked
	}
	return nil
}

func (s *MemoryStorage) UserEmail(ctx context.Context, userID int64) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.order) - 1; i >= 0; i-- {
		t := s.tickets[s.order[i]]
		if t.UserID == userID && t.Email != "" {
			return t.Email, nil
		}
	}
	return "", ErrNotFound
}

func (s *MemoryStorage) AllUserIDs(ctx context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[int64]struct{})
	var ids []int64
	for _, id := range s.order {
		t := s.tickets[id]
		if _, ok := seen[t.UserID]; ok {
			continue
		}
		seen[t.UserID] = struct{}{}
		ids = append(ids, t.UserID)
	}
	return ids, nil
}

func (s *MemoryStorage) SaveMailing(ctx context.Context, m *models.Mailing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mailings = append(s.mailings, *m)
	return nil
}

func (s *MemoryStorage) Mailings(ctx context.Context) ([]models.Mailing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Mailing, len(s.mailings))
	copy(out, s.mailings)
	return out, nil
}

func (s *MemoryStorage) ActiveAdminIDs(ctx context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []int64
	for id, active := range s.admins {
		if active {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// SetAdmin adds or updates a roster entry. The Postgres roster is managed
// externally; this mirrors that for local runs and tests.
func (s *MemoryStorage) SetAdmin(id int64, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.admins[id] = active
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
