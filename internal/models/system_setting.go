package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// SystemSetting stores runtime-configurable settings, mostly feature switches
// that gate the sweep jobs and the phase broadcast.
type SystemSetting struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	Key string `gorm:"type:varchar(120);not null;uniqueIndex"`

	// JSON value: true/false for switches, objects for richer settings.
	Value datatypes.JSON `gorm:"type:jsonb;not null"`

	Description string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"type:timestamptz;autoUpdateTime;index"`
}

func (SystemSetting) TableName() string {
	return "system_settings"
}

// Bool decodes the value as a switch. ok is false when the value is not a
// JSON boolean.
func (s SystemSetting) Bool() (enabled bool, ok bool) {
	if len(s.Value) == 0 {
		return false, false
	}
	if err := json.Unmarshal(s.Value, &enabled); err != nil {
		return false, false
	}
	return enabled, true
}
