package models

import (
	"gorm.io/gorm"
)

// InterventionActual records what the traveler actually did against one
// planned intervention. Upserted by (schedule, leg, day, type).
type InterventionActual struct {
	gorm.Model
	ScheduleID       uint   `gorm:"not null;uniqueIndex:idx_actual_key"`
	LegIndex         int    `gorm:"not null;uniqueIndex:idx_actual_key"`
	DayOffset        int    `gorm:"not null;uniqueIndex:idx_actual_key"`
	InterventionType string `gorm:"size:32;not null;uniqueIndex:idx_actual_key"`

	Status        string `gorm:"size:16;not null"` // as_planned | modified | skipped
	ActualMinutes *int   // when modified: when it actually happened
	Note          string `gorm:"type:text"`
}
