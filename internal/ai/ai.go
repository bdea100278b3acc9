// Package ai wraps the LLM providers used to propose dishes for a cycle and
// ingredient substitutions for unmatched sourcing lines.
package ai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mattdomit/dotted-sub000/internal/config"
)

var (
	ErrMalformedResponse = errors.New("ai: malformed response")
	ErrMissingAPIKey     = errors.New("ai: missing api key")
	ErrUnknownProvider   = errors.New("ai: unknown provider")
)

const (
	ProviderNone      = "none"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"

	defaultTimeout   = 60 * time.Second
	defaultMaxTokens = 2048
)

// Suggester is the LLM surface the orchestrator and sourcing service use.
type Suggester interface {
	SuggestDishes(ctx context.Context, prompt string) ([]DishSuggestion, error)
	SuggestSubstitution(ctx context.Context, prompt string) (string, error)
}

// Completer sends one system+user exchange to a provider and returns the
// text of the reply.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

type IngredientSuggestion struct {
	Name     string          `json:"name"`
	Quantity decimal.Decimal `json:"quantity"`
	Unit     string          `json:"unit"`
	Category string          `json:"category"`
}

type DishSuggestion struct {
	Name          string                 `json:"name"`
	Cuisine       string                 `json:"cuisine"`
	Description   string                 `json:"description"`
	EstimatedCost decimal.Decimal        `json:"estimated_cost"`
	Equipment     []string               `json:"equipment"`
	Ingredients   []IngredientSuggestion `json:"ingredients"`
}

// Client implements Suggester on top of a Completer. Every call is bounded
// by Timeout and never retried.
type Client struct {
	Completer Completer
	Logger    *zap.Logger
	Timeout   time.Duration
}

func (c *Client) SuggestDishes(ctx context.Context, prompt string) ([]DishSuggestion, error) {
	text, err := c.complete(ctx, dishSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}
	dishes, err := ParseDishSuggestions(text)
	if err != nil {
		c.logger().Warn("dish suggestion parse failed", zap.Int("response_len", len(text)), zap.Error(err))
		return nil, err
	}
	return dishes, nil
}

func (c *Client) SuggestSubstitution(ctx context.Context, prompt string) (string, error) {
	text, err := c.complete(ctx, substitutionSystemPrompt, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (c *Client) complete(ctx context.Context, system, prompt string) (string, error) {
	if c == nil || c.Completer == nil {
		return "", fmt.Errorf("%w: no completer configured", ErrUnknownProvider)
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	text, err := c.Completer.Complete(ctx, system, prompt)
	c.logger().Debug("ai completion",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("prompt_len", len(prompt)),
		zap.Bool("ok", err == nil),
	)
	if err != nil {
		return "", fmt.Errorf("ai completion: %w", err)
	}
	return text, nil
}

func (c *Client) logger() *zap.Logger {
	if c == nil || c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// NewFromConfig builds a Suggester for the configured provider. Provider
// "none" (or empty) yields a nil Suggester and no error.
func NewFromConfig(cfg config.AIConfig, logger *zap.Logger) (Suggester, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" || provider == ProviderNone {
		return nil, nil
	}
	apiKey := ""
	if env := strings.TrimSpace(cfg.APIKeyEnv); env != "" {
		apiKey = strings.TrimSpace(os.Getenv(env))
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: set %s", ErrMissingAPIKey, cfg.APIKeyEnv)
	}
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	var completer Completer
	switch provider {
	case ProviderOpenAI:
		completer = NewOpenAICompleter(apiKey, cfg.BaseURL, cfg.Model, maxTokens)
	case ProviderAnthropic:
		completer = NewAnthropicCompleter(apiKey, cfg.BaseURL, cfg.Model, maxTokens)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
	return &Client{Completer: completer, Logger: logger, Timeout: cfg.Timeout}, nil
}
