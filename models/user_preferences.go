package models

import (
    "gorm.io/gorm"
)

// UserPreferences holds each user's default schedule anchors and
// intervention toggles. Times are minutes since local midnight.
type UserPreferences struct {
    gorm.Model
    UserID uint `gorm:"uniqueIndex;not null"`

    WakeMinutes  int `gorm:"default:420"`  // 07:00
    SleepMinutes int `gorm:"default:1380"` // 23:00

    UseMelatonin bool   `gorm:"default:true"`
    UseCaffeine  bool   `gorm:"default:true"`
    UseExercise  bool   `gorm:"default:false"`
    AllowNaps    bool   `gorm:"default:true"`
    Intensity    string `gorm:"size:16;default:standard"` // gentle | standard | aggressive

    Use24HourClock bool `gorm:"default:false"`
    EmailEnabled   bool `gorm:"default:true"`
    PushEnabled    bool `gorm:"default:true"`
}
