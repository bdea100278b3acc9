package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	BidPending = "PENDING"
	BidWon     = "WON"
	BidLost    = "LOST"
)

// Bid is a restaurant's offer to cook the winning dish. A restaurant bids at
// most once per cycle.
type Bid struct {
	ID           string     `gorm:"type:varchar(36);primaryKey"`
	CycleID      string     `gorm:"type:varchar(36);not null;uniqueIndex:idx_bids_cycle_restaurant;index"`
	RestaurantID string     `gorm:"type:varchar(36);not null;uniqueIndex:idx_bids_cycle_restaurant"`
	Restaurant   Restaurant `json:"restaurant"`

	PricePerPlate      decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	PrepTimeMinutes    int             `gorm:"not null"`
	MaxCapacity        int             `gorm:"not null"`
	ServiceFeeAccepted bool            `gorm:"not null;default:false"`

	Status string   `gorm:"type:varchar(20);not null;index;default:'PENDING'"`
	Score  *float64 `json:"score"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Bid) TableName() string {
	return "bids"
}

func (b *Bid) BeforeCreate(*gorm.DB) error {
	ensureID(&b.ID)
	if b.Status == "" {
		b.Status = BidPending
	}
	return nil
}
