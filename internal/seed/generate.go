package seed

import (
	"fmt"
	"math/rand"

	"github.com/jaswdr/faker"
	"github.com/shopspring/decimal"

	"github.com/mattdomit/dotted-sub000/internal/models"
)

type GenerateOptions struct {
	Zones       int
	Restaurants int
	Suppliers   int
	Members     int
	Seed        int64
	Timezone    string
}

var (
	equipmentPool = []string{"oven", "wok", "grill", "fryer", "tandoor", "steamer"}
	tierPool      = []string{models.TierStandard, models.TierStandard, models.TierSilver, models.TierGold, models.TierPlatinum}
	pantry        = []InventoryFixture{
		{Ingredient: "Tomatoes", Category: "produce", Unit: "kg"},
		{Ingredient: "Flour", Category: "dry goods", Unit: "kg"},
		{Ingredient: "Rice Noodles", Category: "dry goods", Unit: "kg"},
		{Ingredient: "Chicken Thigh", Category: "protein", Unit: "kg"},
		{Ingredient: "Basil", Category: "herbs", Unit: "kg"},
		{Ingredient: "Mozzarella", Category: "dairy", Unit: "kg"},
		{Ingredient: "Garlic", Category: "produce", Unit: "kg"},
		{Ingredient: "Olive Oil", Category: "pantry", Unit: "l"},
	}
)

// Generate builds a random fixture. The same seed yields the same fixture.
func Generate(opts GenerateOptions) Fixture {
	if opts.Zones <= 0 {
		opts.Zones = 1
	}
	if opts.Restaurants <= 0 {
		opts.Restaurants = 3
	}
	if opts.Suppliers <= 0 {
		opts.Suppliers = 2
	}
	if opts.Members < 0 {
		opts.Members = 0
	}
	fake := faker.NewWithSeed(rand.NewSource(opts.Seed))

	fx := Fixture{Dishes: DefaultDishes()}
	for i := 0; i < opts.Zones; i++ {
		lat := fake.Float64(6, 30, 50)
		lon := fake.Float64(6, -120, -70)
		zone := ZoneFixture{
			Name:             fmt.Sprintf("%s %d", fake.Address().City(), i+1),
			Timezone:         opts.Timezone,
			Latitude:         &lat,
			Longitude:        &lon,
			MaxPricePerPlate: fmt.Sprintf("%d.00", fake.IntBetween(12, 20)),
			Members:          opts.Members,
		}
		for j := 0; j < opts.Restaurants; j++ {
			rlat := lat + fake.Float64(4, -5, 5)/100
			rlon := lon + fake.Float64(4, -5, 5)/100
			capacity := fake.IntBetween(5, 40)
			zone.Restaurants = append(zone.Restaurants, RestaurantFixture{
				Name:                fake.Company().Name(),
				Rating:              fake.Float64(1, 2, 5),
				Equipment:           pickEquipment(fake),
				Tier:                tierPool[fake.IntBetween(0, len(tierPool)-1)],
				MaxConcurrentOrders: &capacity,
				Latitude:            &rlat,
				Longitude:           &rlon,
			})
		}
		for j := 0; j < opts.Suppliers; j++ {
			slat := lat + fake.Float64(4, -20, 20)/100
			slon := lon + fake.Float64(4, -20, 20)/100
			sup := SupplierFixture{
				Name:      fake.Person().Name() + " Farms",
				Rating:    fake.Float64(1, 2, 5),
				Latitude:  &slat,
				Longitude: &slon,
			}
			for _, line := range pantry {
				if !fake.Bool() {
					continue
				}
				hours := fake.IntBetween(12, 168)
				line.Price = decimal.NewFromFloat(fake.Float64(2, 1, 12)).StringFixed(2)
				line.Quantity = fmt.Sprintf("%d", fake.IntBetween(5, 100))
				line.Organic = fake.IntBetween(0, 3) == 0
				line.FreshnessHours = &hours
				sup.Inventory = append(sup.Inventory, line)
			}
			zone.Suppliers = append(zone.Suppliers, sup)
		}
		fx.Zones = append(fx.Zones, zone)
	}
	return fx
}

func pickEquipment(fake faker.Faker) []string {
	out := []string{"oven"}
	for _, e := range equipmentPool[1:] {
		if fake.IntBetween(0, 2) == 0 {
			out = append(out, e)
		}
	}
	return out
}

// DefaultDishes is the canned menu used when a fixture lists none.
func DefaultDishes() []DishFixture {
	return []DishFixture{
		{
			Name: "Margherita Pizza", Cuisine: "Italian", EstimatedCost: "10.50",
			Description: "Wood-fired pizza with tomato, mozzarella and basil",
			Equipment:   []string{"oven"},
			Ingredients: []IngredientFixture{
				{Name: "Tomatoes", Quantity: "0.3", Unit: "kg"},
				{Name: "Flour", Quantity: "0.25", Unit: "kg"},
				{Name: "Mozzarella", Quantity: "0.2", Unit: "kg"},
				{Name: "Basil", Quantity: "0.01", Unit: "kg"},
			},
		},
		{
			Name: "Pad Thai", Cuisine: "Thai", EstimatedCost: "12.00",
			Description: "Stir-fried rice noodles with chicken and garlic",
			Equipment:   []string{"wok"},
			Ingredients: []IngredientFixture{
				{Name: "Rice Noodles", Quantity: "0.2", Unit: "kg"},
				{Name: "Chicken Thigh", Quantity: "0.25", Unit: "kg"},
				{Name: "Garlic", Quantity: "0.02", Unit: "kg"},
			},
		},
		{
			Name: "Chicken Shawarma Plate", Cuisine: "Middle Eastern", EstimatedCost: "11.00",
			Description: "Grilled marinated chicken with garlic sauce",
			Equipment:   []string{"grill"},
			Ingredients: []IngredientFixture{
				{Name: "Chicken Thigh", Quantity: "0.3", Unit: "kg"},
				{Name: "Garlic", Quantity: "0.03", Unit: "kg"},
				{Name: "Olive Oil", Quantity: "0.05", Unit: "l"},
			},
		},
		{
			Name: "Bruschetta", Cuisine: "Italian", EstimatedCost: "7.00",
			Description: "Toasted bread with tomato, garlic and olive oil",
			Ingredients: []IngredientFixture{
				{Name: "Tomatoes", Quantity: "0.2", Unit: "kg"},
				{Name: "Flour", Quantity: "0.1", Unit: "kg"},
				{Name: "Olive Oil", Quantity: "0.02", Unit: "l"},
			},
		},
	}
}
