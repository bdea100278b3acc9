package seed

import (
	"context"
	"errors"

	"github.com/mattdomit/dotted-sub000/internal/ai"
)

// Suggester answers dish prompts with a fixed menu. It lets the CLI run a
// full day without an AI provider.
type Suggester struct {
	Dishes []ai.DishSuggestion
}

func (s Suggester) SuggestDishes(ctx context.Context, prompt string) ([]ai.DishSuggestion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s.Dishes) == 0 {
		return nil, errors.New("seed: no canned dishes")
	}
	out := make([]ai.DishSuggestion, len(s.Dishes))
	copy(out, s.Dishes)
	return out, nil
}

func (s Suggester) SuggestSubstitution(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "Check neighbouring zones for the missing ingredients or swap in a seasonal equivalent.", nil
}
