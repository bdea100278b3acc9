package db

import (
	"github.com/mattdomit/dotted-sub000/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Zone{},
		&models.ZoneMember{},
		&models.Restaurant{},
		&models.Supplier{},
		&models.InventoryItem{},
		&models.Cycle{},
		&models.Dish{},
		&models.Bid{},
		&models.PurchaseOrder{},
		&models.PurchaseOrderItem{},
		&models.Order{},
		&models.QualityScore{},
		&models.PhaseTransition{},
		&models.SystemSetting{},
	)
}
