package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Decimal places kept by the purchase order columns. A quantity times a unit
// price needs QuantityPlaces+PricePlaces places, so totals are stored with
// TotalPlaces and never rounded.
const (
	QuantityPlaces = 3
	PricePlaces    = 4
	TotalPlaces    = QuantityPlaces + PricePlaces
)

const (
	PurchaseOrderPending   = "PENDING"
	PurchaseOrderSent      = "SENT"
	PurchaseOrderConfirmed = "CONFIRMED"
	PurchaseOrderCancelled = "CANCELLED"
)

// PurchaseOrder groups every matched ingredient bought from one supplier for
// one cycle. TotalCost always equals the sum of the item line totals.
type PurchaseOrder struct {
	ID         string `gorm:"type:varchar(36);primaryKey"`
	CycleID    string `gorm:"type:varchar(36);not null;uniqueIndex:idx_purchase_orders_cycle_supplier;index"`
	SupplierID string `gorm:"type:varchar(36);not null;uniqueIndex:idx_purchase_orders_cycle_supplier"`
	Status     string `gorm:"type:varchar(20);not null;default:'PENDING'"`

	TotalCost decimal.Decimal     `gorm:"type:numeric(21,7);not null"`
	Items     []PurchaseOrderItem `gorm:"foreignKey:PurchaseOrderID" json:"items"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (PurchaseOrder) TableName() string {
	return "purchase_orders"
}

func (p *PurchaseOrder) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	if p.Status == "" {
		p.Status = PurchaseOrderPending
	}
	return nil
}

type PurchaseOrderItem struct {
	ID              string `gorm:"type:varchar(36);primaryKey"`
	PurchaseOrderID string `gorm:"type:varchar(36);not null;index"`
	InventoryItemID string `gorm:"type:varchar(36);not null"`
	IngredientName  string `gorm:"type:varchar(160);not null"`
	Unit            string `gorm:"type:varchar(20)"`

	Quantity  decimal.Decimal `gorm:"type:numeric(14,3);not null"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,4);not null"`
	LineTotal decimal.Decimal `gorm:"type:numeric(21,7);not null"`
	Score     float64         `gorm:"not null"`
}

func (PurchaseOrderItem) TableName() string {
	return "purchase_order_items"
}

func (p *PurchaseOrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
