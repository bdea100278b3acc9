package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	TierPlatinum = "PLATINUM"
	TierGold     = "GOLD"
	TierSilver   = "SILVER"
	TierStandard = "STANDARD"
)

type Restaurant struct {
	ID     string  `gorm:"type:varchar(36);primaryKey"`
	ZoneID string  `gorm:"type:varchar(36);not null;index"`
	Name   string  `gorm:"type:varchar(160);not null"`
	Active bool    `gorm:"not null;default:true"`
	Rating float64 `gorm:"not null;default:0"`

	Equipment datatypes.JSONSlice[string] `gorm:"type:jsonb"`

	// MaxConcurrentOrders is nil for restaurants without a configured limit.
	MaxConcurrentOrders *int
	PartnerTier         string `gorm:"type:varchar(20);not null;default:'STANDARD'"`

	Latitude  *float64
	Longitude *float64

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Restaurant) TableName() string {
	return "restaurants"
}

func (r *Restaurant) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	if r.PartnerTier == "" {
		r.PartnerTier = TierStandard
	}
	return nil
}
