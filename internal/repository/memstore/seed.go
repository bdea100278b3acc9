package memstore

import (
	"context"
	"fmt"
	"time"

	"github.com/mattdomit/dotted-sub000/internal/models"
	"github.com/mattdomit/dotted-sub000/internal/repository"
)

func (s *Store) CreateZone(ctx context.Context, item *models.Zone) error {
	defer s.lock()()
	ensureID(&item.ID)
	for _, z := range s.st.zones {
		if z.Name == item.Name {
			return fmt.Errorf("zone %q: %w", item.Name, repository.ErrDuplicate)
		}
	}
	stamp(&item.CreatedAt)
	item.UpdatedAt = item.CreatedAt
	s.st.zones[item.ID] = *item
	return nil
}

func (s *Store) AddZoneMember(ctx context.Context, item *models.ZoneMember) error {
	defer s.lock()()
	for _, m := range s.st.members {
		if m.ZoneID == item.ZoneID && m.UserID == item.UserID {
			return fmt.Errorf("zone member %s/%s: %w", item.ZoneID, item.UserID, repository.ErrDuplicate)
		}
	}
	ensureID(&item.ID)
	stamp(&item.CreatedAt)
	s.st.members[item.ID] = *item
	return nil
}

func (s *Store) CreateRestaurant(ctx context.Context, item *models.Restaurant) error {
	defer s.lock()()
	ensureID(&item.ID)
	if item.PartnerTier == "" {
		item.PartnerTier = models.TierStandard
	}
	stamp(&item.CreatedAt)
	item.UpdatedAt = item.CreatedAt
	s.st.restaurants[item.ID] = *item
	return nil
}

func (s *Store) CreateSupplier(ctx context.Context, item *models.Supplier) error {
	defer s.lock()()
	ensureID(&item.ID)
	stamp(&item.CreatedAt)
	item.UpdatedAt = item.CreatedAt
	s.st.suppliers[item.ID] = *item
	return nil
}

func (s *Store) CreateInventoryItems(ctx context.Context, items []models.InventoryItem) error {
	defer s.lock()()
	for i := range items {
		ensureID(&items[i].ID)
		stamp(&items[i].CreatedAt)
		items[i].UpdatedAt = items[i].CreatedAt
		s.st.inventory[items[i].ID] = items[i]
	}
	return nil
}

func (s *Store) CreateBid(ctx context.Context, item *models.Bid) error {
	defer s.lock()()
	for _, b := range s.st.bids {
		if b.CycleID == item.CycleID && b.RestaurantID == item.RestaurantID {
			return fmt.Errorf("bid %s/%s: %w", item.CycleID, item.RestaurantID, repository.ErrDuplicate)
		}
	}
	ensureID(&item.ID)
	if item.Status == "" {
		item.Status = models.BidPending
	}
	stamp(&item.CreatedAt)
	item.UpdatedAt = item.CreatedAt
	stored := *item
	stored.Restaurant = models.Restaurant{}
	s.st.bids[item.ID] = stored
	s.st.touch(item.ID)
	return nil
}

func (s *Store) CreateOrder(ctx context.Context, item *models.Order) error {
	defer s.lock()()
	ensureID(&item.ID)
	if item.Status == "" {
		item.Status = models.OrderPending
	}
	stamp(&item.CreatedAt)
	item.UpdatedAt = item.CreatedAt
	s.st.orders[item.ID] = *item
	return nil
}

func (s *Store) CreateQualityScore(ctx context.Context, item *models.QualityScore) error {
	defer s.lock()()
	ensureID(&item.ID)
	stamp(&item.CreatedAt)
	s.st.quality[item.ID] = *item
	return nil
}

func (s *Store) IncrementDishVotes(ctx context.Context, dishID string, delta int) error {
	defer s.lock()()
	d, ok := s.st.dishes[dishID]
	if !ok {
		return fmt.Errorf("dish %s: %w", dishID, repository.ErrNotFound)
	}
	d.VoteCount += delta
	d.UpdatedAt = time.Now().UTC()
	s.st.dishes[dishID] = d
	return nil
}
