package models

import (
    "gorm.io/gorm"
)

type User struct {
    gorm.Model
    Email    string `gorm:"uniqueIndex;not null"`
    Password string // empty for Google-only accounts
    FullName string
    Disabled bool `gorm:"default:false"`
}
