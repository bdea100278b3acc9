package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattdomit/dotted-sub000/internal/repository"
	"github.com/mattdomit/dotted-sub000/internal/repository/memstore"
)

const sampleFixture = `
zones:
  - name: Old Town
    timezone: America/New_York
    max_price_per_plate: "$15.00"
    members: 3
    restaurants:
      - name: Basil & Brick
        rating: 4.6
        tier: gold
        equipment: [oven, wok]
    suppliers:
      - name: Green Acres
        rating: 4.2
        inventory:
          - ingredient: Tomatoes
            unit: kg
            price: "3.20"
            quantity: "40"
            organic: true
dishes:
  - name: Margherita
    cuisine: Italian
    estimated_cost: "10"
    equipment: [oven]
    ingredients:
      - name: Tomatoes
        quantity: "0.3"
        unit: kg
`

func TestParseFixture(t *testing.T) {
	fx, err := ParseFixture([]byte(sampleFixture))
	require.NoError(t, err)
	require.Len(t, fx.Zones, 1)
	assert.Equal(t, "Old Town", fx.Zones[0].Name)
	assert.Equal(t, []string{"oven", "wok"}, fx.Zones[0].Restaurants[0].Equipment)
	assert.Equal(t, 3, fx.Steps())

	dishes, err := fx.Suggestions()
	require.NoError(t, err)
	require.Len(t, dishes, 1)
	assert.Equal(t, "10", dishes[0].EstimatedCost.String())
	assert.Equal(t, "0.3", dishes[0].Ingredients[0].Quantity.String())
}

func TestParseFixture_RejectsNamelessZone(t *testing.T) {
	_, err := ParseFixture([]byte("zones:\n  - timezone: UTC\n"))
	assert.Error(t, err)
}

func TestLoadFixture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleFixture), 0o600))

	fx, err := LoadFixture(path)
	require.NoError(t, err)
	assert.Len(t, fx.Dishes, 1)

	_, err = LoadFixture(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	fx, err := ParseFixture([]byte(sampleFixture))
	require.NoError(t, err)

	store := memstore.New()
	ticks := 0
	sum, err := Apply(ctx, store, fx, func() { ticks++ })
	require.NoError(t, err)
	assert.Equal(t, fx.Steps(), ticks)
	assert.Equal(t, Summary{Zones: 1, Members: 3, Restaurants: 1, Suppliers: 1, Inventory: 1, ZoneIDs: sum.ZoneIDs}, sum)

	zone, err := store.GetZone(ctx, sum.ZoneIDs[0])
	require.NoError(t, err)
	require.NotNil(t, zone.MaxPricePerPlate)
	assert.Equal(t, "15", zone.MaxPricePerPlate.String())

	members, err := store.CountZoneMembers(ctx, zone.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, members)

	restaurants, err := store.ListRestaurantsByZone(ctx, zone.ID)
	require.NoError(t, err)
	require.Len(t, restaurants, 1)
	assert.Equal(t, "GOLD", restaurants[0].PartnerTier)

	inventory, err := store.ListZoneInventory(ctx, zone.ID)
	require.NoError(t, err)
	require.Len(t, inventory, 1)
	assert.True(t, inventory[0].Organic)
	assert.Equal(t, "Green Acres", inventory[0].Supplier.Name)
}

func TestApply_DuplicateZone(t *testing.T) {
	ctx := context.Background()
	fx, err := ParseFixture([]byte(sampleFixture))
	require.NoError(t, err)

	store := memstore.New()
	_, err = Apply(ctx, store, fx, nil)
	require.NoError(t, err)
	_, err = Apply(ctx, store, fx, nil)
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestGenerate_Deterministic(t *testing.T) {
	opts := GenerateOptions{Zones: 2, Restaurants: 3, Suppliers: 2, Members: 5, Seed: 7}
	a := Generate(opts)
	b := Generate(opts)
	assert.Equal(t, a, b)
	require.Len(t, a.Zones, 2)
	for _, z := range a.Zones {
		assert.Len(t, z.Restaurants, 3)
		assert.Len(t, z.Suppliers, 2)
		for _, r := range z.Restaurants {
			assert.Contains(t, r.Equipment, "oven")
		}
	}
	assert.NotEmpty(t, a.Dishes)
}

func TestGenerate_AppliesCleanly(t *testing.T) {
	fx := Generate(GenerateOptions{Zones: 3, Seed: 1})
	sum, err := Apply(context.Background(), memstore.New(), fx, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Zones)
	assert.Equal(t, 9, sum.Restaurants)
}

func TestSuggester(t *testing.T) {
	dishes, err := Fixture{Dishes: DefaultDishes()}.Suggestions()
	require.NoError(t, err)

	s := Suggester{Dishes: dishes}
	got, err := s.SuggestDishes(context.Background(), "any")
	require.NoError(t, err)
	assert.Len(t, got, len(dishes))

	_, err = Suggester{}.SuggestDishes(context.Background(), "any")
	assert.Error(t, err)

	note, err := s.SuggestSubstitution(context.Background(), "Suggest a substitute for each missing ingredient.")
	require.NoError(t, err)
	assert.NotEmpty(t, note)
}
