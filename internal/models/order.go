package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	OrderPending   = "PENDING"
	OrderConfirmed = "CONFIRMED"
	OrderReady     = "READY"
	OrderDelivered = "DELIVERED"
	OrderCancelled = "CANCELLED"
)

// ActiveOrderStatuses count against a restaurant's concurrent order limit.
var ActiveOrderStatuses = []string{OrderPending, OrderConfirmed, OrderReady}

// Order is a consumer order placed during the ORDERING phase.
type Order struct {
	ID           string          `gorm:"type:varchar(36);primaryKey"`
	CycleID      string          `gorm:"type:varchar(36);not null;index"`
	RestaurantID string          `gorm:"type:varchar(36);not null;index"`
	UserID       string          `gorm:"type:varchar(64);not null;index"`
	Quantity     int             `gorm:"not null;default:1"`
	TotalPrice   decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Status       string          `gorm:"type:varchar(20);not null;index;default:'PENDING'"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Order) TableName() string {
	return "orders"
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	if o.Status == "" {
		o.Status = OrderPending
	}
	return nil
}

// QualityScore is the consumer rating of a delivered order, 1 to 5.
type QualityScore struct {
	ID           string    `gorm:"type:varchar(36);primaryKey"`
	OrderID      string    `gorm:"type:varchar(36);not null;uniqueIndex"`
	RestaurantID string    `gorm:"type:varchar(36);not null;index"`
	Overall      float64   `gorm:"not null"`
	Comment      string    `gorm:"type:text"`
	CreatedAt    time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (QualityScore) TableName() string {
	return "quality_scores"
}

func (q *QualityScore) BeforeCreate(*gorm.DB) error {
	ensureID(&q.ID)
	return nil
}
