package gormrepository

import (
	"context"

	"github.com/mattdomit/dotted-sub000/internal/models"
)

func (s *Store) ListZoneInventory(ctx context.Context, zoneID string) ([]models.InventoryItem, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.InventoryItem
	if err := s.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Select("supplier_inventory.*").
		Joins("JOIN suppliers ON suppliers.id = supplier_inventory.supplier_id").
		Where("suppliers.zone_id = ?", zoneID).
		Where("suppliers.active = ?", true).
		Where("supplier_inventory.quantity_available > 0").
		Preload("Supplier").
		Order("supplier_inventory.ingredient_name asc").
		Order("supplier_inventory.id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CreatePurchaseOrders(ctx context.Context, items []models.PurchaseOrder) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return createInBatches(s.db.WithContext(ctx), items, 50)
}

func (s *Store) ListPurchaseOrdersByCycle(ctx context.Context, cycleID string) ([]models.PurchaseOrder, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.PurchaseOrder
	if err := s.db.WithContext(ctx).
		Preload("Items").
		Where("cycle_id = ?", cycleID).
		Order("created_at asc").
		Order("id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
