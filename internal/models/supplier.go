package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Supplier struct {
	ID     string  `gorm:"type:varchar(36);primaryKey"`
	ZoneID string  `gorm:"type:varchar(36);not null;index"`
	Name   string  `gorm:"type:varchar(160);not null"`
	Active bool    `gorm:"not null;default:true"`
	Rating float64 `gorm:"not null;default:0"`

	Latitude  *float64
	Longitude *float64

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Supplier) TableName() string {
	return "suppliers"
}

func (s *Supplier) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// InventoryItem is one priced stock line of a supplier.
type InventoryItem struct {
	ID         string   `gorm:"type:varchar(36);primaryKey"`
	SupplierID string   `gorm:"type:varchar(36);not null;index"`
	Supplier   Supplier `json:"supplier"`

	IngredientName string `gorm:"type:varchar(160);not null;index"`
	Category       string `gorm:"type:varchar(60)"`
	Unit           string `gorm:"type:varchar(20);not null"`

	PricePerUnit      decimal.Decimal `gorm:"type:numeric(12,4);not null"`
	QuantityAvailable decimal.Decimal `gorm:"type:numeric(14,3);not null"`

	Organic              bool `gorm:"not null;default:false"`
	FreshnessWindowHours *int
	ExpiresAt            *time.Time `gorm:"type:timestamptz"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (InventoryItem) TableName() string {
	return "supplier_inventory"
}

func (i *InventoryItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
