package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Zone is a delivery area that runs one cycle per local calendar day.
type Zone struct {
	ID       string `gorm:"type:varchar(36);primaryKey"`
	Name     string `gorm:"type:varchar(120);not null;uniqueIndex"`
	Active   bool   `gorm:"not null;default:true;index"`
	Timezone string `gorm:"type:varchar(64)"`

	Latitude  *float64
	Longitude *float64

	// MaxPricePerPlate caps the estimated cost of suggested dishes.
	MaxPricePerPlate *decimal.Decimal `gorm:"type:numeric(12,2)"`

	// Optimization weight overrides. They apply only when all five are set.
	WeightQuality   *float64
	WeightFreshness *float64
	WeightVariety   *float64
	WeightCost      *float64
	WeightWaste     *float64

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Zone) TableName() string {
	return "zones"
}

func (z *Zone) BeforeCreate(*gorm.DB) error {
	ensureID(&z.ID)
	return nil
}

type ZoneMember struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	ZoneID    string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_zone_members_zone_user"`
	UserID    string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_zone_members_zone_user"`
	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (ZoneMember) TableName() string {
	return "zone_members"
}

func (m *ZoneMember) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}
