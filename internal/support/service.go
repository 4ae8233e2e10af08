package support

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xaenox/support-bot/internal/models"
	"github.com/xaenox/support-bot/internal/storage"
	"go.uber.org/zap"
)

// CategoryOther is the sentinel category for free-form questions submitted
// without picking one from the menu.
const CategoryOther = "other"

var (
	// ErrEmptyQuestion and ErrInvalidEmail are validation errors: the caller
	// re-prompts in the same conversational stage, nothing is persisted.
	ErrEmptyQuestion = errors.New("question text is empty")
	ErrInvalidEmail  = errors.New("email failed validation")
)

// Roster is the set of users authorized to answer tickets. Backed by the
// shared admins database in production.
type Roster interface {
	ActiveAdminIDs(ctx context.Context) ([]int64, error)
}

// Submission carries everything needed to open a ticket.
type Submission struct {
	UserID    int64
	Username  string
	FirstName string
	Email     string
	Category  string
	Question  string
}

// Service is the ticket lifecycle engine. It owns the open/closed state
// machine and the conversational stage transitions around it; rendering and
// delivery stay with the transport layer.
type Service struct {
	store    storage.Storage
	roster   Roster
	sessions *Sessions
	logger   *zap.Logger
}

func NewService(store storage.Storage, roster Roster, sessions *Sessions, logger *zap.Logger) *Service {
	return &Service{
		store:    store,
		roster:   roster,
		sessions: sessions,
		logger:   logger,
	}
}

func (s *Service) Sessions() *Sessions {
	return s.sessions
}

// SubmitTicket validates the submission, fills defaults (category "other",
// email from the session cache or the store) and persists a new open ticket.
func (s *Service) SubmitTicket(ctx context.Context, sub Submission) (*models.Ticket, error) {
	if strings.TrimSpace(sub.Question) == "" {
		return nil, ErrEmptyQuestion
	}

	category := strings.ToLower(strings.TrimSpace(sub.Category))
	if category == "" {
		category = CategoryOther
	}

	email := sub.Email
	if email == "" {
		email = s.sessions.Email(sub.UserID)
	}
	if email == "" {
		stored, err := s.store.UserEmail(ctx, sub.UserID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("failed to look up user email: %w", err)
		}
		email = stored
	}

	t := &models.Ticket{
		UserID:    sub.UserID,
		Username:  sub.Username,
		FirstName: sub.FirstName,
		Email:     email,
		Category:  category,
		Question:  sub.Question,
		CreatedAt: time.Now(),
	}
	if _, err := s.store.CreateTicket(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}

	s.sessions.SetStage(sub.UserID, StageIdle)
	return t, nil
}

func (s *Service) Ticket(ctx context.Context, id int64) (*models.Ticket, error) {
	return s.store.TicketByID(ctx, id)
}

func (s *Service) OpenTickets(ctx context.Context) ([]models.Ticket, error) {
	return s.store.OpenTickets(ctx)
}

// IsClosed reports whether the ticket is closed. A missing ticket yields
// storage.ErrNotFound so callers can tell "removed from the store" apart
// from "still open".
func (s *Service) IsClosed(ctx context.Context, id int64) (bool, error) {
	t, err := s.store.TicketByID(ctx, id)
	if err != nil {
		return false, err
	}
	return t.Closed, nil
}

// CloseTicketWithAnswer atomically moves the ticket from open to closed and
// returns the closed ticket. storage.ErrAlreadyClosed means another admin
// answered first; the caller should show the stored answer instead.
func (s *Service) CloseTicketWithAnswer(ctx context.Context, id int64, answer string, adminID int64, adminName string) (*models.Ticket, error) {
	if err := s.store.CloseTicket(ctx, id, answer, adminID, adminName); err != nil {
		return nil, err
	}
	return s.store.TicketByID(ctx, id)
}

// GetAnswer returns the answer fields of a closed ticket, or
// storage.ErrNotFound when the ticket is missing or still open.
func (s *Service) GetAnswer(ctx context.Context, id int64) (*models.Answer, error) {
	t, err := s.store.TicketByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !t.Closed {
		return nil, storage.ErrNotFound
	}
	return &models.Answer{
		TicketID:  t.ID,
		UserID:    t.UserID,
		Username:  t.Username,
		Question:  t.Question,
		Text:      t.Answer,
		AdminID:   t.AdminID,
		AdminName: t.AdminName,
	}, nil
}

// RateTicket stores the rating. Ownership is not checked here: the transport
// only offers the rate keyboard to the ticket's owner.
func (s *Service) RateTicket(ctx context.Context, id int64, liked bool) error {
	return s.store.SetRating(ctx, id, liked)
}

// RateAnswer records the rating and moves the user's session accordingly:
// a dislike re-opens the question flow, a like returns the user to idle.
func (s *Service) RateAnswer(ctx context.Context, userID, ticketID int64, liked bool) error {
	if err := s.store.SetRating(ctx, ticketID, liked); err != nil {
		return err
	}
	if liked {
		s.sessions.SetStage(userID, StageIdle)
	} else {
		s.sessions.SetStage(userID, StageAwaitingQuestion)
	}
	return nil
}

func (s *Service) PreparedEntries(ctx context.Context) ([]models.PreparedEntry, error) {
	return s.store.PreparedEntries(ctx)
}

func (s *Service) PreparedEntriesByCategory(ctx context.Context, category string) ([]models.PreparedEntry, error) {
	return s.store.PreparedEntriesByCategory(ctx, category)
}

func (s *Service) Categories(ctx context.Context) ([]string, error) {
	return s.store.Categories(ctx)
}

// MatchCategory checks whether the text is a category name (case-insensitive
// exact match). On match the lower-cased choice is cached in the session.
func (s *Service) MatchCategory(ctx context.Context, userID int64, text string) (string, bool, error) {
	categories, err := s.store.Categories(ctx)
	if err != nil {
		return "", false, err
	}
	for _, c := range categories {
		if strings.EqualFold(c, text) {
			category := strings.ToLower(c)
			s.sessions.SetCategory(userID, category)
			return category, true, nil
		}
	}
	return "", false, nil
}

// BeginQuestion routes the user toward AwaitingQuestion, inserting the
// email-collection step when no email is known for them.
func (s *Service) BeginQuestion(ctx context.Context, userID int64) (Stage, error) {
	if s.sessions.Email(userID) != "" {
		s.sessions.SetStage(userID, StageAwaitingQuestion)
		return StageAwaitingQuestion, nil
	}

	_, err := s.store.UserEmail(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		s.sessions.SetStage(userID, StageAwaitingEmail)
		return StageAwaitingEmail, nil
	}
	if err != nil {
		return StageIdle, fmt.Errorf("failed to look up user email: %w", err)
	}

	s.sessions.SetStage(userID, StageAwaitingQuestion)
	return StageAwaitingQuestion, nil
}

// SubmitEmail validates and caches the email collected during the
// AwaitingEmail step. ErrInvalidEmail leaves the stage untouched so the user
// is re-prompted.
func (s *Service) SubmitEmail(userID int64, email string) error {
	if !ValidateEmail(email) {
		return ErrInvalidEmail
	}
	s.sessions.SetEmail(userID, email)
	s.sessions.SetStage(userID, StageAwaitingQuestion)
	return nil
}

func (s *Service) KnownUserEmail(ctx context.Context, userID int64) (string, error) {
	return s.store.UserEmail(ctx, userID)
}

func (s *Service) KnownUsers(ctx context.Context) ([]int64, error) {
	return s.store.AllUserIDs(ctx)
}

func (s *Service) AdminIDs(ctx context.Context) ([]int64, error) {
	return s.roster.ActiveAdminIDs(ctx)
}

func (s *Service) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	ids, err := s.roster.ActiveAdminIDs(ctx)
	if err != nil {
		return false, err
	}
	for _, id := range ids {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}
