// Package seed loads zone fixtures from YAML or generates them with faker,
// and writes them to a store.
package seed

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/mattdomit/dotted-sub000/internal/ai"
)

type Fixture struct {
	Zones  []ZoneFixture `yaml:"zones"`
	Dishes []DishFixture `yaml:"dishes"`
}

type ZoneFixture struct {
	Name             string              `yaml:"name"`
	Timezone         string              `yaml:"timezone"`
	Latitude         *float64            `yaml:"latitude"`
	Longitude        *float64            `yaml:"longitude"`
	MaxPricePerPlate string              `yaml:"max_price_per_plate"`
	Members          int                 `yaml:"members"`
	Restaurants      []RestaurantFixture `yaml:"restaurants"`
	Suppliers        []SupplierFixture   `yaml:"suppliers"`
}

type RestaurantFixture struct {
	Name                string   `yaml:"name"`
	Rating              float64  `yaml:"rating"`
	Equipment           []string `yaml:"equipment"`
	Tier                string   `yaml:"tier"`
	MaxConcurrentOrders *int     `yaml:"max_concurrent_orders"`
	Latitude            *float64 `yaml:"latitude"`
	Longitude           *float64 `yaml:"longitude"`
}

type SupplierFixture struct {
	Name      string             `yaml:"name"`
	Rating    float64            `yaml:"rating"`
	Latitude  *float64           `yaml:"latitude"`
	Longitude *float64           `yaml:"longitude"`
	Inventory []InventoryFixture `yaml:"inventory"`
}

type InventoryFixture struct {
	Ingredient     string `yaml:"ingredient"`
	Category       string `yaml:"category"`
	Unit           string `yaml:"unit"`
	Price          string `yaml:"price"`
	Quantity       string `yaml:"quantity"`
	Organic        bool   `yaml:"organic"`
	FreshnessHours *int   `yaml:"freshness_hours"`
}

// DishFixture is a canned dish suggestion used when no AI provider is
// configured.
type DishFixture struct {
	Name          string              `yaml:"name"`
	Cuisine       string              `yaml:"cuisine"`
	Description   string              `yaml:"description"`
	EstimatedCost string              `yaml:"estimated_cost"`
	Equipment     []string            `yaml:"equipment"`
	Ingredients   []IngredientFixture `yaml:"ingredients"`
}

type IngredientFixture struct {
	Name     string `yaml:"name"`
	Quantity string `yaml:"quantity"`
	Unit     string `yaml:"unit"`
}

func LoadFixture(path string) (Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, err
	}
	return ParseFixture(raw)
}

func ParseFixture(raw []byte) (Fixture, error) {
	var fx Fixture
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		return Fixture{}, fmt.Errorf("seed: parse fixture: %w", err)
	}
	for i, z := range fx.Zones {
		if strings.TrimSpace(z.Name) == "" {
			return Fixture{}, fmt.Errorf("seed: zone %d has no name", i)
		}
	}
	return fx, nil
}

// Suggestions converts the canned dishes into AI suggestions.
func (fx Fixture) Suggestions() ([]ai.DishSuggestion, error) {
	out := make([]ai.DishSuggestion, 0, len(fx.Dishes))
	for _, d := range fx.Dishes {
		cost, err := parseDecimal(d.EstimatedCost)
		if err != nil {
			return nil, fmt.Errorf("seed: dish %q cost: %w", d.Name, err)
		}
		s := ai.DishSuggestion{
			Name:          d.Name,
			Cuisine:       d.Cuisine,
			Description:   d.Description,
			EstimatedCost: cost,
			Equipment:     d.Equipment,
		}
		for _, ing := range d.Ingredients {
			q, err := parseDecimal(ing.Quantity)
			if err != nil {
				return nil, fmt.Errorf("seed: dish %q ingredient %q: %w", d.Name, ing.Name, err)
			}
			s.Ingredients = append(s.Ingredients, ai.IngredientSuggestion{Name: ing.Name, Quantity: q, Unit: ing.Unit})
		}
		out = append(out, s)
	}
	return out, nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "$"))
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
