package support

import (
	"context"
	"fmt"
	"strings"

	"github.com/xaenox/support-bot/internal/models"
)

// Statistics recomputes the report from the ticket store at call time.
// Nothing is cached between calls.
func (s *Service) Statistics(ctx context.Context) (*models.Statistic, error) {
	tickets, err := s.store.AllTickets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load tickets: %w", err)
	}
	return aggregate(tickets), nil
}

// aggregate builds the statistic in a single pass. Category buckets keep the
// order of first appearance; the admin display name is taken from the first
// ticket seen for that admin id.
func aggregate(tickets []models.Ticket) *models.Statistic {
	stat := &models.Statistic{}

	users := make(map[int64]struct{})
	categoryIdx := make(map[string]int)
	adminIdx := make(map[int64]int)

	for _, t := range tickets {
		users[t.UserID] = struct{}{}

		if t.Closed {
			stat.ClosedCount++
		} else {
			stat.OpenCount++
		}

		category := strings.ToLower(t.Category)
		if i, ok := categoryIdx[category]; ok {
			stat.Categories[i].Count++
		} else {
			categoryIdx[category] = len(stat.Categories)
			stat.Categories = append(stat.Categories, models.CategoryCount{Category: category, Count: 1})
		}

		if t.AdminID == 0 {
			continue
		}
		i, ok := adminIdx[t.AdminID]
		if !ok {
			i = len(stat.Admins)
			adminIdx[t.AdminID] = i
			stat.Admins = append(stat.Admins, models.AdminTally{AdminName: t.AdminName})
		}
		switch t.Rating {
		case models.RatingLiked:
			stat.Admins[i].Likes++
		case models.RatingDisliked:
			stat.Admins[i].Dislikes++
		default:
			stat.Admins[i].WithoutRate++
		}
	}

	stat.UserCount = len(users)
	return stat
}
