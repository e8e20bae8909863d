package models

import (
	"time"

	"gorm.io/gorm"
)

// SharedSchedule is one trip and its generated adaptation plan.
// UserID is nullable so anonymous visitors can generate a plan before
// signing in.
type SharedSchedule struct {
	gorm.Model
	UserID *uint `gorm:"index"`

	OriginTimezone      string    `gorm:"size:64;not null"`
	DestinationTimezone string    `gorm:"size:64;not null"`
	DepartureAt         time.Time `gorm:"index;not null"`
	ArrivalAt           time.Time `gorm:"not null"`
	LegsJSON            string    `gorm:"type:jsonb"` // all legs, leg 0 mirrored above

	PreferencesJSON string `gorm:"type:jsonb"` // snapshot used for generation

	Code *string `gorm:"uniqueIndex"` // public share code, nil when unshared

	InitialScheduleJSON string `gorm:"type:jsonb"`
	CurrentScheduleJSON string `gorm:"type:jsonb"`
	LastRecalculatedAt  *time.Time

	CalendarEventsJSON string `gorm:"type:jsonb"` // Google event IDs from the last sync
}
