package classifier

import (
	"context"
	"strings"
)

// Suggester maps a free-form question onto one of the known category names.
// An empty result means "no suggestion" and the caller falls back to the
// default category.
type Suggester interface {
	SuggestCategory(ctx context.Context, question string, categories []string) string
}

// KeywordSuggester is the no-dependency fallback: it picks the first
// category whose name appears verbatim in the question text.
type KeywordSuggester struct{}

func NewKeywordSuggester() *KeywordSuggester {
	return &KeywordSuggester{}
}

func (c *KeywordSuggester) SuggestCategory(_ context.Context, question string, categories []string) string {
	question = strings.ToLower(question)
	for _, category := range categories {
		if category == "" {
			continue
		}
		if strings.Contains(question, strings.ToLower(category)) {
			return strings.ToLower(category)
		}
	}
	return ""
}
