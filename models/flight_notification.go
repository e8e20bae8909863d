package models

import (
	"time"

	"gorm.io/gorm"
)

// FlightNotification is a queued flight-day email. The cron dispatcher
// picks up rows where send_at has passed and sent_at is null.
type FlightNotification struct {
	gorm.Model
	ScheduleID uint      `gorm:"index;not null"`
	SendAt     time.Time `gorm:"index;not null"`
	SentAt     *time.Time
	Attempts   int    `gorm:"default:0"`
	LastError  string `gorm:"type:text"`
}
