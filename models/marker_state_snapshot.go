package models

import (
	"gorm.io/gorm"
)

// MarkerStateSnapshot captures the circadian model state at the end of a
// plan day so recalculation can resume from that day instead of replaying
// the whole model.
type MarkerStateSnapshot struct {
	gorm.Model
	ScheduleID uint `gorm:"not null;uniqueIndex:idx_snapshot_day"`
	DayOffset  int  `gorm:"not null;uniqueIndex:idx_snapshot_day"`

	CumulativeShift float64 // hours absorbed so far
	CbtminMinutes   int     // minutes since midnight, occupied zone
	DlmoMinutes     int
	Direction       string `gorm:"size:8"` // advance | delay
}
