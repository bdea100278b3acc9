package optimization

import (
	"errors"
	"math"
	"testing"

	"github.com/mattdomit/dotted-sub000/internal/models"
)

func almost(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func f64(v float64) *float64 { return &v }

func TestScore_CompositeFormula(t *testing.T) {
	in := Input{
		Dishes: []Candidate{{
			ID:            "d1",
			Name:          "Green Curry",
			Cuisine:       "Thai",
			EstimatedCost: 12,
			Ingredients:   []string{"Tomato", "basil", "rice"},
		}},
		Weights:          DefaultWeights(),
		QualityByCuisine: map[string]float64{"thai": 4.5},
		FreshnessHours:   map[string]int{"tomato": 48, "basil": 12},
		RecentCuisines:   map[string]struct{}{"italian": {}},
		RecentNames:      map[string]struct{}{"lasagna": {}},
	}
	results, failures := Score(in)
	if len(failures) != 0 {
		t.Fatalf("failures=%v", failures)
	}
	if len(results) != 1 {
		t.Fatalf("results=%d want=1", len(results))
	}
	r := results[0]
	if !almost(r.Quality, 0.9) {
		t.Fatalf("quality=%v want=0.9", r.Quality)
	}
	if !almost(r.Freshness, 0.75) {
		t.Fatalf("freshness=%v want=0.75", r.Freshness)
	}
	if !almost(r.Variety, 1.0) {
		t.Fatalf("variety=%v want=1", r.Variety)
	}
	if !almost(r.WasteRisk, 0.2) {
		t.Fatalf("waste=%v want=0.2", r.WasteRisk)
	}
	if !almost(r.Composite, 0.5775) {
		t.Fatalf("composite=%v want=0.5775", r.Composite)
	}
}

func TestScore_SortedDescendingAndInvalidSkipped(t *testing.T) {
	in := Input{
		Dishes: []Candidate{
			{ID: "pricey", Name: "Wagyu", Cuisine: "Japanese", EstimatedCost: 28},
			{ID: "cheap", Name: "Dal", Cuisine: "Indian", EstimatedCost: 6},
			{ID: "bad", Name: "", Cuisine: "Indian", EstimatedCost: 6},
			{ID: "neg", Name: "Refund", Cuisine: "Indian", EstimatedCost: -1},
		},
		Weights: DefaultWeights(),
	}
	results, failures := Score(in)
	if len(results) != 2 {
		t.Fatalf("results=%d want=2", len(results))
	}
	if results[0].DishID != "cheap" || results[1].DishID != "pricey" {
		t.Fatalf("order=%s,%s want=cheap,pricey", results[0].DishID, results[1].DishID)
	}
	if len(failures) != 2 {
		t.Fatalf("failures=%d want=2", len(failures))
	}
	for _, f := range failures {
		if !errors.Is(f.Err, ErrInvalidDish) {
			t.Fatalf("failure err=%v want ErrInvalidDish", f.Err)
		}
	}
}

func TestScore_Empty(t *testing.T) {
	results, failures := Score(Input{Weights: DefaultWeights()})
	if len(results) != 0 || len(failures) != 0 {
		t.Fatalf("results=%d failures=%d want=0,0", len(results), len(failures))
	}
}

func TestWasteRiskBands(t *testing.T) {
	cases := []struct {
		cost float64
		want float64
	}{
		{25, 0.7},
		{20.01, 0.7},
		{20, 0.4},
		{15.5, 0.4},
		{15, 0.2},
		{3, 0.2},
	}
	for _, tc := range cases {
		if got := WasteRisk(tc.cost); got != tc.want {
			t.Fatalf("WasteRisk(%v)=%v want=%v", tc.cost, got, tc.want)
		}
	}
}

func TestVarietyScore(t *testing.T) {
	cuisines := map[string]struct{}{"thai": {}}
	names := map[string]struct{}{"pad thai": {}}
	if got := VarietyScore("Thai", "Pad Thai", cuisines, names); got != 0 {
		t.Fatalf("repeat dish variety=%v want=0", got)
	}
	if got := VarietyScore("Thai", "Khao Soi", cuisines, names); !almost(got, 0.4) {
		t.Fatalf("new name variety=%v want=0.4", got)
	}
	if got := VarietyScore("Mexican", "Pad Thai", cuisines, names); !almost(got, 0.6) {
		t.Fatalf("new cuisine variety=%v want=0.6", got)
	}
}

func TestDefaultsWithoutHistory(t *testing.T) {
	if got := QualityPrediction("Thai", nil); got != 0.6 {
		t.Fatalf("quality=%v want=0.6", got)
	}
	if got := FreshnessScore([]string{"saffron"}, map[string]int{"tomato": 24}); got != 0.5 {
		t.Fatalf("freshness=%v want=0.5", got)
	}
}

func TestResolveWeights_AllOrNothing(t *testing.T) {
	full := &models.Zone{
		WeightQuality:   f64(0.5),
		WeightFreshness: f64(0.2),
		WeightVariety:   f64(0.1),
		WeightCost:      f64(0.1),
		WeightWaste:     f64(0.1),
	}
	w, ok := ResolveWeights(full, DefaultWeights())
	if !ok || w.Quality != 0.5 || w.Waste != 0.1 {
		t.Fatalf("weights=%+v ok=%v want overrides", w, ok)
	}

	partial := *full
	partial.WeightQuality = nil
	w, ok = ResolveWeights(&partial, DefaultWeights())
	if ok {
		t.Fatalf("partial overrides must not apply")
	}
	if w != DefaultWeights() {
		t.Fatalf("weights=%+v want=%+v", w, DefaultWeights())
	}

	if w, _ := ResolveWeights(nil, DefaultWeights()); w != DefaultWeights() {
		t.Fatalf("nil zone weights=%+v", w)
	}
}

func TestFreshnessWindows_LongestWins(t *testing.T) {
	h := func(v int) *int { return &v }
	got := FreshnessWindows([]models.InventoryItem{
		{IngredientName: "Tomato", FreshnessWindowHours: h(12)},
		{IngredientName: "tomato ", FreshnessWindowHours: h(36)},
		{IngredientName: "Salt"},
	})
	if got["tomato"] != 36 {
		t.Fatalf("tomato window=%d want=36", got["tomato"])
	}
	if _, ok := got["salt"]; ok {
		t.Fatalf("lines without a window must be skipped")
	}
}
