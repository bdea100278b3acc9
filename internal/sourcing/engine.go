// Package sourcing matches the ingredients of a cycle's winning dish to
// supplier inventory and groups the picks into purchase orders.
package sourcing

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mattdomit/dotted-sub000/internal/config"
	"github.com/mattdomit/dotted-sub000/internal/models"
	"github.com/mattdomit/dotted-sub000/internal/scoring"
)

const (
	defaultMaxDistanceKm = 50.0
	unknownDistanceScore = 0.7
	organicFreshness     = 1.0
	regularFreshness     = 0.5
	maxRating            = 5.0
)

type Weights struct {
	Price     float64 `json:"price"`
	Distance  float64 `json:"distance"`
	Freshness float64 `json:"freshness"`
	Rating    float64 `json:"rating"`
}

func DefaultWeights() Weights {
	return Weights{Price: 0.35, Distance: 0.25, Freshness: 0.25, Rating: 0.15}
}

func WeightsFromConfig(cfg config.SupplierWeightsConfig) Weights {
	w := Weights{Price: cfg.Price, Distance: cfg.Distance, Freshness: cfg.Freshness, Rating: cfg.Rating}
	if w == (Weights{}) {
		return DefaultWeights()
	}
	return w
}

type Ingredient struct {
	Name     string          `json:"name"`
	Quantity decimal.Decimal `json:"quantity"`
	Unit     string          `json:"unit"`
}

// Line is one inventory line with the supplier facts needed for scoring.
type Line struct {
	InventoryID    string          `json:"inventory_id"`
	SupplierID     string          `json:"supplier_id"`
	SupplierName   string          `json:"supplier_name"`
	IngredientName string          `json:"ingredient_name"`
	Unit           string          `json:"unit"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Organic        bool            `json:"organic"`
	Rating         float64         `json:"rating"`
	Location       *scoring.Point  `json:"-"`
}

type Input struct {
	Ingredients   []Ingredient
	Inventory     []Line
	Restaurant    *scoring.Point
	Weights       Weights
	MaxDistanceKm float64
}

type SupplierMatch struct {
	Ingredient     Ingredient      `json:"ingredient"`
	Line           Line            `json:"line"`
	PriceScore     float64         `json:"price_score"`
	DistanceScore  float64         `json:"distance_score"`
	FreshnessScore float64         `json:"freshness_score"`
	RatingScore    float64         `json:"rating_score"`
	Score          float64         `json:"score"`
	LineTotal      decimal.Decimal `json:"line_total"`
}

// Order is the set of matches bought from one supplier.
type Order struct {
	SupplierID   string          `json:"supplier_id"`
	SupplierName string          `json:"supplier_name"`
	Matches      []SupplierMatch `json:"matches"`
	Total        decimal.Decimal `json:"total"`
}

type Plan struct {
	Matches   []SupplierMatch `json:"matches"`
	Orders    []Order         `json:"orders"`
	Unmatched []string        `json:"unmatched"`
}

// Match picks the best inventory line for every ingredient. Orders follow
// the order in which their supplier first won an ingredient.
func Match(in Input) Plan {
	weights := in.Weights
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	maxKm := in.MaxDistanceKm
	if maxKm <= 0 {
		maxKm = defaultMaxDistanceKm
	}

	plan := Plan{Matches: []SupplierMatch{}, Orders: []Order{}, Unmatched: []string{}}
	for _, ing := range in.Ingredients {
		candidates := Candidates(ing.Name, in.Inventory)
		if len(candidates) == 0 {
			plan.Unmatched = append(plan.Unmatched, ing.Name)
			continue
		}
		plan.Matches = append(plan.Matches, pick(ing, candidates, in.Restaurant, weights, maxKm))
	}
	plan.Orders = Group(plan.Matches)
	return plan
}

// Candidates returns the lines whose ingredient name contains the wanted
// name or is contained by it, case-insensitively.
func Candidates(name string, inventory []Line) []Line {
	want := normalize(name)
	if want == "" {
		return nil
	}
	var out []Line
	for _, l := range inventory {
		have := normalize(l.IngredientName)
		if have == "" {
			continue
		}
		if strings.Contains(have, want) || strings.Contains(want, have) {
			out = append(out, l)
		}
	}
	return out
}

// pick expects at least one candidate. Quantity and unit price are rounded
// to the places the purchase order columns keep, so the stored line total is
// exactly quantity times unit price.
func pick(ing Ingredient, candidates []Line, restaurant *scoring.Point, w Weights, maxKm float64) SupplierMatch {
	ing.Quantity = ing.Quantity.Round(models.QuantityPlaces)
	prices := make([]float64, len(candidates))
	for i := range candidates {
		candidates[i].UnitPrice = candidates[i].UnitPrice.Round(models.PricePlaces)
		prices[i] = candidates[i].UnitPrice.InexactFloat64()
	}
	priceScores := scoring.MinMaxInverse(prices)

	var best SupplierMatch
	for i, c := range candidates {
		m := SupplierMatch{
			Ingredient:     ing,
			Line:           c,
			PriceScore:     priceScores[i],
			DistanceScore:  distanceScore(restaurant, c.Location, maxKm),
			FreshnessScore: regularFreshness,
			RatingScore:    c.Rating / maxRating,
		}
		if c.Organic {
			m.FreshnessScore = organicFreshness
		}
		m.Score = m.PriceScore*w.Price +
			m.DistanceScore*w.Distance +
			m.FreshnessScore*w.Freshness +
			m.RatingScore*w.Rating
		if i == 0 || better(m, best) {
			best = m
		}
	}
	best.LineTotal = ing.Quantity.Mul(best.Line.UnitPrice)
	return best
}

// better orders by score, then lower unit price, then inventory id.
func better(a, b SupplierMatch) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if cmp := a.Line.UnitPrice.Cmp(b.Line.UnitPrice); cmp != 0 {
		return cmp < 0
	}
	return a.Line.InventoryID < b.Line.InventoryID
}

func distanceScore(restaurant, supplier *scoring.Point, maxKm float64) float64 {
	if restaurant == nil || supplier == nil {
		return unknownDistanceScore
	}
	return scoring.DistanceScore(scoring.Haversine(*restaurant, *supplier), maxKm)
}

// Group folds matches into one order per supplier with exact totals.
func Group(matches []SupplierMatch) []Order {
	orders := []Order{}
	index := map[string]int{}
	for _, m := range matches {
		i, ok := index[m.Line.SupplierID]
		if !ok {
			i = len(orders)
			index[m.Line.SupplierID] = i
			orders = append(orders, Order{SupplierID: m.Line.SupplierID, SupplierName: m.Line.SupplierName, Total: decimal.Zero})
		}
		orders[i].Matches = append(orders[i].Matches, m)
		orders[i].Total = orders[i].Total.Add(m.LineTotal)
	}
	return orders
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
