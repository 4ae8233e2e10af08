package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

type gptResponse struct {
	Category string `json:"category"`
}

// GPTSuggester asks a chat model to pick the best-fitting category for a
// question. Any failure falls back to the keyword suggester, so the bot
// keeps working when the API is down or returns garbage.
type GPTSuggester struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float64
	fallback    *KeywordSuggester
	logger      *zap.Logger
}

func NewGPTSuggester(apiKey string, model string, maxTokens int, temperature float64, logger *zap.Logger) *GPTSuggester {
	return &GPTSuggester{
		client:      openai.NewClient(apiKey),
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		fallback:    NewKeywordSuggester(),
		logger:      logger,
	}
}

func (c *GPTSuggester) SuggestCategory(ctx context.Context, question string, categories []string) string {
	if len(categories) == 0 {
		return ""
	}

	prompt := fmt.Sprintf(`A user sent the following support question. Pick the single best-fitting category from this list: %s.
If none fits, use an empty string.

Return the response as a JSON object with this structure:
{
    "category": "chosen_category"
}

Question: %s`, strings.Join(categories, ", "), question)

	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			MaxTokens:   c.maxTokens,
			Temperature: float32(c.temperature),
		},
	)
	if err != nil {
		c.logger.Error("Failed to get GPT response", zap.Error(err))
		return c.fallback.SuggestCategory(ctx, question, categories)
	}

	var parsed gptResponse
	response := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(response), &parsed); err != nil {
		c.logger.Error("Failed to parse GPT response",
			zap.Error(err),
			zap.String("response", response))
		return c.fallback.SuggestCategory(ctx, question, categories)
	}

	// Accept only categories we actually know; the model likes to invent.
	for _, category := range categories {
		if strings.EqualFold(category, parsed.Category) {
			return strings.ToLower(category)
		}
	}
	return ""
}
