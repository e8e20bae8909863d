package services

import (
	"testing"
	"time"

	"github.com/davidrecordon/dawnward-sub002/config"
	"github.com/davidrecordon/dawnward-sub002/models"
	"github.com/davidrecordon/dawnward-sub002/utils"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// testDB opens a fresh in-memory database with the production schema.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{Email: email, Password: "x", FullName: "Test Traveler"}
	require.NoError(t, db.Create(user).Error)
	return user
}

// eastbound overnight: New York → Paris, a 6h advance
func eastboundLegs() []utils.FlightLeg {
	return []utils.FlightLeg{{
		OriginTimezone:      "America/New_York",
		DestinationTimezone: "Europe/Paris",
		DepartureAt:         time.Date(2026, 11, 15, 23, 30, 0, 0, time.UTC),
		ArrivalAt:           time.Date(2026, 11, 16, 6, 45, 0, 0, time.UTC),
	}}
}

func seedTrip(t *testing.T, db *gorm.DB, userID *uint) *models.SharedSchedule {
	t.Helper()
	svc := NewTripService(db)
	trip, dup, err := svc.CreateTrip(userID, eastboundLegs(), utils.DefaultPlanPreferences(),
		time.Date(2026, 11, 10, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.False(t, dup)
	return trip
}
