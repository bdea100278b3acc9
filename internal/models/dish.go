package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Ingredient struct {
	Name     string          `json:"name"`
	Quantity decimal.Decimal `json:"quantity"`
	Unit     string          `json:"unit"`
	Category string          `json:"category,omitempty"`
}

// Dish is a candidate meal proposed for a cycle. Score fields stay nil until
// the optimization engine has run.
type Dish struct {
	ID          string `gorm:"type:varchar(36);primaryKey"`
	CycleID     string `gorm:"type:varchar(36);not null;index"`
	Name        string `gorm:"type:varchar(200);not null"`
	Cuisine     string `gorm:"type:varchar(80);not null;index"`
	Description string `gorm:"type:text"`

	EstimatedCost decimal.Decimal `gorm:"type:numeric(12,2);not null"`

	Equipment   datatypes.JSONSlice[string]     `gorm:"type:jsonb"`
	Ingredients datatypes.JSONSlice[Ingredient] `gorm:"type:jsonb"`

	VoteCount int `gorm:"not null;default:0"`

	QualityPrediction *float64
	FreshnessScore    *float64
	VarietyScore      *float64
	WasteRisk         *float64
	OptimizationScore *float64 `gorm:"index"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Dish) TableName() string {
	return "dishes"
}

func (d *Dish) BeforeCreate(*gorm.DB) error {
	ensureID(&d.ID)
	return nil
}
