package seed

import (
	"context"
	"fmt"
	"strings"

	"github.com/mattdomit/dotted-sub000/internal/models"
	"github.com/mattdomit/dotted-sub000/internal/repository"
)

type Summary struct {
	Zones       int      `json:"zones"`
	Members     int      `json:"members"`
	Restaurants int      `json:"restaurants"`
	Suppliers   int      `json:"suppliers"`
	Inventory   int      `json:"inventory"`
	ZoneIDs     []string `json:"zone_ids"`
}

// Steps is the number of progress ticks Apply emits for fx.
func (fx Fixture) Steps() int {
	n := 0
	for _, z := range fx.Zones {
		n += 1 + len(z.Restaurants) + len(z.Suppliers)
	}
	return n
}

// Apply writes the fixture to repo. tick is called once per zone, restaurant
// and supplier written; it may be nil.
func Apply(ctx context.Context, repo repository.SeedRepository, fx Fixture, tick func()) (Summary, error) {
	if tick == nil {
		tick = func() {}
	}
	var sum Summary
	for _, zf := range fx.Zones {
		zone, err := zoneModel(zf)
		if err != nil {
			return sum, err
		}
		if err := repo.CreateZone(ctx, zone); err != nil {
			return sum, fmt.Errorf("seed: zone %q: %w", zf.Name, err)
		}
		sum.Zones++
		sum.ZoneIDs = append(sum.ZoneIDs, zone.ID)
		for i := 0; i < zf.Members; i++ {
			member := &models.ZoneMember{ZoneID: zone.ID, UserID: fmt.Sprintf("%s-member-%03d", slug(zf.Name), i+1)}
			if err := repo.AddZoneMember(ctx, member); err != nil {
				return sum, fmt.Errorf("seed: zone %q member: %w", zf.Name, err)
			}
			sum.Members++
		}
		tick()

		for _, rf := range zf.Restaurants {
			r := &models.Restaurant{
				ZoneID:              zone.ID,
				Name:                rf.Name,
				Active:              true,
				Rating:              rf.Rating,
				Equipment:           rf.Equipment,
				MaxConcurrentOrders: rf.MaxConcurrentOrders,
				PartnerTier:         strings.ToUpper(strings.TrimSpace(rf.Tier)),
				Latitude:            rf.Latitude,
				Longitude:           rf.Longitude,
			}
			if err := repo.CreateRestaurant(ctx, r); err != nil {
				return sum, fmt.Errorf("seed: restaurant %q: %w", rf.Name, err)
			}
			sum.Restaurants++
			tick()
		}

		for _, sf := range zf.Suppliers {
			sup := &models.Supplier{
				ZoneID:    zone.ID,
				Name:      sf.Name,
				Active:    true,
				Rating:    sf.Rating,
				Latitude:  sf.Latitude,
				Longitude: sf.Longitude,
			}
			if err := repo.CreateSupplier(ctx, sup); err != nil {
				return sum, fmt.Errorf("seed: supplier %q: %w", sf.Name, err)
			}
			items := make([]models.InventoryItem, 0, len(sf.Inventory))
			for _, line := range sf.Inventory {
				price, err := parseDecimal(line.Price)
				if err != nil {
					return sum, fmt.Errorf("seed: %s/%s price: %w", sf.Name, line.Ingredient, err)
				}
				qty, err := parseDecimal(line.Quantity)
				if err != nil {
					return sum, fmt.Errorf("seed: %s/%s quantity: %w", sf.Name, line.Ingredient, err)
				}
				items = append(items, models.InventoryItem{
					SupplierID:           sup.ID,
					IngredientName:       line.Ingredient,
					Category:             line.Category,
					Unit:                 line.Unit,
					PricePerUnit:         price,
					QuantityAvailable:    qty,
					Organic:              line.Organic,
					FreshnessWindowHours: line.FreshnessHours,
				})
			}
			if len(items) > 0 {
				if err := repo.CreateInventoryItems(ctx, items); err != nil {
					return sum, fmt.Errorf("seed: supplier %q inventory: %w", sf.Name, err)
				}
			}
			sum.Suppliers++
			sum.Inventory += len(items)
			tick()
		}
	}
	return sum, nil
}

func zoneModel(zf ZoneFixture) (*models.Zone, error) {
	zone := &models.Zone{
		Name:      strings.TrimSpace(zf.Name),
		Active:    true,
		Timezone:  zf.Timezone,
		Latitude:  zf.Latitude,
		Longitude: zf.Longitude,
	}
	if strings.TrimSpace(zf.MaxPricePerPlate) != "" {
		ceiling, err := parseDecimal(zf.MaxPricePerPlate)
		if err != nil {
			return nil, fmt.Errorf("seed: zone %q max price: %w", zf.Name, err)
		}
		zone.MaxPricePerPlate = &ceiling
	}
	return zone, nil
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), "-")
}
