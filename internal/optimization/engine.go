package optimization

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

const (
	defaultQuality   = 0.6
	defaultFreshness = 0.5

	newCuisineBonus = 0.6
	newNameBonus    = 0.4

	costCeiling   = 30.0
	highWasteCost = 20.0
	midWasteCost  = 15.0
	highWasteRisk = 0.7
	midWasteRisk  = 0.4
	lowWasteRisk  = 0.2
	maxQuality    = 5.0
	hoursPerDay   = 24.0
)

var ErrInvalidDish = errors.New("optimization: invalid dish")

// Candidate is the engine's view of a dish.
type Candidate struct {
	ID            string
	Name          string
	Cuisine       string
	EstimatedCost float64
	Ingredients   []string
}

// Input carries everything the ranking depends on. Map keys are lower-cased.
type Input struct {
	Dishes  []Candidate
	Weights Weights

	// QualityByCuisine holds the average historical overall quality (1-5).
	QualityByCuisine map[string]float64
	// FreshnessHours holds the longest inventory freshness window per
	// ingredient name.
	FreshnessHours map[string]int
	RecentCuisines map[string]struct{}
	RecentNames    map[string]struct{}
	ExpectedOrders float64
}

type Result struct {
	DishID         string  `json:"dish_id"`
	Name           string  `json:"name"`
	Cuisine        string  `json:"cuisine"`
	Quality        float64 `json:"quality_prediction"`
	Freshness      float64 `json:"freshness_score"`
	Variety        float64 `json:"variety_score"`
	WasteRisk      float64 `json:"waste_risk"`
	CostScore      float64 `json:"cost_score"`
	Composite      float64 `json:"optimization_score"`
	ExpectedOrders float64 `json:"expected_orders"`
}

// Failure reports a dish the engine could not score.
type Failure struct {
	DishID string
	Err    error
}

// Score ranks the candidates by composite score, highest first. Invalid
// candidates are reported as failures and do not affect the others.
func Score(in Input) ([]Result, []Failure) {
	results := make([]Result, 0, len(in.Dishes))
	var failures []Failure
	for _, c := range in.Dishes {
		r, err := scoreOne(c, in)
		if err != nil {
			failures = append(failures, Failure{DishID: c.ID, Err: err})
			continue
		}
		results = append(results, r)
	}
	SortResults(results)
	return results, failures
}

func SortResults(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Composite != results[j].Composite {
			return results[i].Composite > results[j].Composite
		}
		return results[i].DishID < results[j].DishID
	})
}

func scoreOne(c Candidate, in Input) (Result, error) {
	if strings.TrimSpace(c.Name) == "" {
		return Result{}, fmt.Errorf("%w: dish %s has no name", ErrInvalidDish, c.ID)
	}
	if c.EstimatedCost < 0 || math.IsNaN(c.EstimatedCost) {
		return Result{}, fmt.Errorf("%w: dish %s has cost %v", ErrInvalidDish, c.ID, c.EstimatedCost)
	}

	quality := QualityPrediction(c.Cuisine, in.QualityByCuisine)
	freshness := FreshnessScore(c.Ingredients, in.FreshnessHours)
	variety := VarietyScore(c.Cuisine, c.Name, in.RecentCuisines, in.RecentNames)
	waste := WasteRisk(c.EstimatedCost)
	costScore := math.Max(0, 1-c.EstimatedCost/costCeiling)

	w := in.Weights
	composite := quality*w.Quality +
		freshness*w.Freshness +
		variety*w.Variety -
		(1-costScore)*w.Cost -
		waste*w.Waste

	return Result{
		DishID:         c.ID,
		Name:           c.Name,
		Cuisine:        c.Cuisine,
		Quality:        quality,
		Freshness:      freshness,
		Variety:        variety,
		WasteRisk:      waste,
		CostScore:      costScore,
		Composite:      composite,
		ExpectedOrders: in.ExpectedOrders,
	}, nil
}

func QualityPrediction(cuisine string, history map[string]float64) float64 {
	avg, ok := history[normalize(cuisine)]
	if !ok {
		return defaultQuality
	}
	return avg / maxQuality
}

// FreshnessScore averages min(windowDays, 1) over the ingredients that have
// a known freshness window.
func FreshnessScore(ingredients []string, windows map[string]int) float64 {
	sum := 0.0
	n := 0
	for _, name := range ingredients {
		hours, ok := windows[normalize(name)]
		if !ok {
			continue
		}
		sum += math.Min(float64(hours)/hoursPerDay, 1)
		n++
	}
	if n == 0 {
		return defaultFreshness
	}
	return sum / float64(n)
}

func VarietyScore(cuisine, name string, recentCuisines, recentNames map[string]struct{}) float64 {
	score := 0.0
	if _, seen := recentCuisines[normalize(cuisine)]; !seen {
		score += newCuisineBonus
	}
	if _, seen := recentNames[normalize(name)]; !seen {
		score += newNameBonus
	}
	return score
}

func WasteRisk(cost float64) float64 {
	switch {
	case cost > highWasteCost:
		return highWasteRisk
	case cost > midWasteCost:
		return midWasteRisk
	default:
		return lowWasteRisk
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
