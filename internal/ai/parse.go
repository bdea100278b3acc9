package ai

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// ParseDishSuggestions extracts dish objects from an LLM reply. The reply
// may wrap the JSON in a code fence or prose, and may be either a bare array
// or an object with a "dishes" array. Entries without a name are dropped.
func ParseDishSuggestions(text string) ([]DishSuggestion, error) {
	raw := extractJSON(text)
	if raw == "" || !gjson.Valid(raw) {
		return nil, fmt.Errorf("%w: no json payload", ErrMalformedResponse)
	}
	root := gjson.Parse(raw)
	if !root.IsArray() {
		root = root.Get("dishes")
	}
	if !root.IsArray() {
		return nil, fmt.Errorf("%w: expected an array of dishes", ErrMalformedResponse)
	}

	var out []DishSuggestion
	root.ForEach(func(_, item gjson.Result) bool {
		name := strings.TrimSpace(item.Get("name").String())
		if !item.IsObject() || name == "" {
			return true
		}
		d := DishSuggestion{
			Name:          name,
			Cuisine:       strings.TrimSpace(item.Get("cuisine").String()),
			Description:   strings.TrimSpace(item.Get("description").String()),
			EstimatedCost: decimalOf(firstOf(item, "estimated_cost", "estimatedCost", "cost")),
		}
		item.Get("equipment").ForEach(func(_, v gjson.Result) bool {
			if s := strings.TrimSpace(v.String()); s != "" {
				d.Equipment = append(d.Equipment, s)
			}
			return true
		})
		item.Get("ingredients").ForEach(func(_, v gjson.Result) bool {
			ing := IngredientSuggestion{
				Name:     strings.TrimSpace(v.Get("name").String()),
				Quantity: decimalOf(v.Get("quantity")),
				Unit:     strings.TrimSpace(v.Get("unit").String()),
				Category: strings.TrimSpace(v.Get("category").String()),
			}
			if ing.Name != "" {
				d.Ingredients = append(d.Ingredients, ing)
			}
			return true
		})
		out = append(out, d)
		return true
	})
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no dishes", ErrMalformedResponse)
	}
	return out, nil
}

func extractJSON(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	if gjson.Valid(s) {
		return s
	}
	start := strings.IndexAny(s, "[{")
	if start < 0 {
		return ""
	}
	closer := byte(']')
	if s[start] == '{' {
		closer = '}'
	}
	end := strings.LastIndexByte(s, closer)
	if end <= start {
		return ""
	}
	return s[start : end+1]
}

func firstOf(item gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if v := item.Get(k); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}

func decimalOf(v gjson.Result) decimal.Decimal {
	switch v.Type {
	case gjson.Number:
		if d, err := decimal.NewFromString(v.Raw); err == nil {
			return d
		}
		return decimal.NewFromFloat(v.Float())
	case gjson.String:
		s := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(v.String()), "$"))
		if d, err := decimal.NewFromString(s); err == nil {
			return d
		}
	}
	return decimal.Zero
}
