package models

import (
	"time"

	"gorm.io/gorm"
)

// Account links a User to an external OAuth identity and carries the
// tokens needed for offline Calendar access.
type Account struct {
	gorm.Model
	UserID            uint   `gorm:"index;not null"`
	Provider          string `gorm:"size:32;not null;uniqueIndex:idx_provider_account"`
	ProviderAccountID string `gorm:"size:255;not null;uniqueIndex:idx_provider_account"`
	AccessToken       string `gorm:"type:text"`
	RefreshToken      string `gorm:"type:text"`
	TokenExpiry       time.Time
	Scopes            string `gorm:"type:text"` // space-separated granted scopes
}
