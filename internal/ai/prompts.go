package ai

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const dishSystemPrompt = `You plan a single shared dinner menu for a neighbourhood food co-op.
Reply with JSON only: an array of dish objects with the fields
name, cuisine, description, estimated_cost (per plate, number),
equipment (array of strings) and ingredients (array of objects with
name, quantity (number), unit and category).`

const substitutionSystemPrompt = `You help a kitchen source ingredients from local suppliers.
Suggest practical substitutions using only the inventory listed. Answer in short plain text.`

type DishPromptInput struct {
	ZoneName         string
	Date             string
	Count            int
	MaxPricePerPlate *decimal.Decimal
	Equipment        []string
	Ingredients      []string
	RecentDishes     []string
}

func BuildDishPrompt(in DishPromptInput) string {
	count := in.Count
	if count <= 0 {
		count = 5
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Suggest %d dinner dishes for the %s zone on %s.\n", count, in.ZoneName, in.Date)
	if in.MaxPricePerPlate != nil {
		fmt.Fprintf(&b, "Each dish must cost at most %s per plate.\n", in.MaxPricePerPlate.StringFixed(2))
	}
	if len(in.Equipment) > 0 {
		fmt.Fprintf(&b, "Kitchens in the zone have: %s. Only require equipment from this list.\n", strings.Join(in.Equipment, ", "))
	}
	if len(in.Ingredients) > 0 {
		fmt.Fprintf(&b, "Local suppliers currently stock: %s.\n", strings.Join(in.Ingredients, ", "))
	}
	if len(in.RecentDishes) > 0 {
		fmt.Fprintf(&b, "Avoid repeating recent winners: %s.\n", strings.Join(in.RecentDishes, ", "))
	}
	return b.String()
}

func BuildSubstitutionPrompt(dishName string, unmatched, available []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The dish %q needs ingredients that no supplier stocks: %s.\n", dishName, strings.Join(unmatched, ", "))
	if len(available) == 0 {
		b.WriteString("No inventory is available in the zone today.\n")
	} else {
		fmt.Fprintf(&b, "Available inventory: %s.\n", strings.Join(available, ", "))
	}
	b.WriteString("Suggest a substitute for each missing ingredient.")
	return b.String()
}
