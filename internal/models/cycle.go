package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	PhaseSuggesting = "SUGGESTING"
	PhaseVoting     = "VOTING"
	PhaseBidding    = "BIDDING"
	PhaseSourcing   = "SOURCING"
	PhaseOrdering   = "ORDERING"
	PhaseCompleted  = "COMPLETED"
	PhaseCancelled  = "CANCELLED"
)

// Cycle is one zone's marketplace day. Date is the zone-local calendar date
// formatted as YYYY-MM-DD.
type Cycle struct {
	ID     string `gorm:"type:varchar(36);primaryKey"`
	ZoneID string `gorm:"type:varchar(36);not null;uniqueIndex:idx_cycles_zone_date"`
	Zone   Zone   `json:"-"`
	Date   string `gorm:"type:varchar(10);not null;uniqueIndex:idx_cycles_zone_date"`
	Phase  string `gorm:"type:varchar(20);not null;index;default:'SUGGESTING'"`

	WinningDishID *string `gorm:"type:varchar(36)"`
	WinningBidID  *string `gorm:"type:varchar(36)"`

	PhaseChangedAt time.Time `gorm:"type:timestamptz;not null"`
	CreatedAt      time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
	UpdatedAt      time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Cycle) TableName() string {
	return "cycles"
}

func (c *Cycle) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	if c.Phase == "" {
		c.Phase = PhaseSuggesting
	}
	if c.PhaseChangedAt.IsZero() {
		c.PhaseChangedAt = time.Now().UTC()
	}
	return nil
}

// PhaseTransition records every AdvancePhase attempt, applied or rejected.
type PhaseTransition struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	CycleID    string    `gorm:"type:varchar(36);not null;index"`
	ZoneID     string    `gorm:"type:varchar(36);index"`
	FromPhase  string    `gorm:"type:varchar(20);not null"`
	ToPhase    string    `gorm:"type:varchar(20);not null"`
	Trigger    string    `gorm:"type:varchar(20);not null"`
	Success    bool      `gorm:"not null;index"`
	Error      string    `gorm:"type:text"`
	DurationMs int64     `gorm:"not null"`
	CreatedAt  time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (PhaseTransition) TableName() string {
	return "cycle_phase_transitions"
}
