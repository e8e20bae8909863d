package services

import (
	"testing"
	"time"

	"github.com/davidrecordon/dawnward-sub002/models"
	"github.com/davidrecordon/dawnward-sub002/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestCreateTripPersistsScheduleAndSideRecords(t *testing.T) {
	db := testDB(t)
	user := seedUser(t, db, "ada@example.com")

	trip := seedTrip(t, db, &user.ID)
	require.NotZero(t, trip.ID)
	assert.Equal(t, "America/New_York", trip.OriginTimezone)
	assert.Equal(t, "Europe/Paris", trip.DestinationTimezone)
	assert.Equal(t, trip.InitialScheduleJSON, trip.CurrentScheduleJSON)

	sched, err := StoredSchedule(trip)
	require.NoError(t, err)
	assert.Equal(t, utils.DirectionAdvance, sched.Direction)

	var snapCount int64
	require.NoError(t, db.Model(&models.MarkerStateSnapshot{}).
		Where("schedule_id = ?", trip.ID).Count(&snapCount).Error)
	assert.EqualValues(t, len(sched.Markers), snapCount)

	var notif models.FlightNotification
	require.NoError(t, db.Where("schedule_id = ?", trip.ID).First(&notif).Error)
	// 06:00 EST on the departure date
	assert.Equal(t, time.Date(2026, 11, 15, 11, 0, 0, 0, time.UTC), notif.SendAt.UTC())
	assert.Nil(t, notif.SentAt)
}

func TestCreateTripDeduplicates(t *testing.T) {
	db := testDB(t)
	user := seedUser(t, db, "ada@example.com")
	svc := NewTripService(db)
	now := time.Date(2026, 11, 10, 12, 0, 0, 0, time.UTC)

	first := seedTrip(t, db, &user.ID)

	// same route, departure 30min off → treated as the same trip
	legs := eastboundLegs()
	legs[0].DepartureAt = legs[0].DepartureAt.Add(30 * time.Minute)
	legs[0].ArrivalAt = legs[0].ArrivalAt.Add(30 * time.Minute)
	again, dup, err := svc.CreateTrip(&user.ID, legs, utils.DefaultPlanPreferences(), now)
	require.NoError(t, err)
	assert.True(t, dup)
	assert.Equal(t, first.ID, again.ID)

	// departure outside the window → a genuinely new trip
	legs = eastboundLegs()
	legs[0].DepartureAt = legs[0].DepartureAt.Add(26 * time.Hour)
	legs[0].ArrivalAt = legs[0].ArrivalAt.Add(26 * time.Hour)
	fresh, dup, err := svc.CreateTrip(&user.ID, legs, utils.DefaultPlanPreferences(), now)
	require.NoError(t, err)
	assert.False(t, dup)
	assert.NotEqual(t, first.ID, fresh.ID)
}

func TestCreateTripAnonymous(t *testing.T) {
	db := testDB(t)
	svc := NewTripService(db)
	now := time.Date(2026, 11, 10, 12, 0, 0, 0, time.UTC)

	// anonymous trips are never deduped and get no notification
	a, dup, err := svc.CreateTrip(nil, eastboundLegs(), utils.DefaultPlanPreferences(), now)
	require.NoError(t, err)
	assert.False(t, dup)
	b, dup, err := svc.CreateTrip(nil, eastboundLegs(), utils.DefaultPlanPreferences(), now)
	require.NoError(t, err)
	assert.False(t, dup)
	assert.NotEqual(t, a.ID, b.ID)

	var notifCount int64
	require.NoError(t, db.Model(&models.FlightNotification{}).Count(&notifCount).Error)
	assert.Zero(t, notifCount)

	// no signed-in user can reach an anonymous trip through owner-scoped
	// operations, so it can't be shared or edited after the fact
	user := seedUser(t, db, "ada@example.com")
	_, err = svc.GetTrip(user.ID, a.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, err = svc.ShareTrip(user.ID, a.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestGetTripHidesOtherUsers(t *testing.T) {
	db := testDB(t)
	owner := seedUser(t, db, "owner@example.com")
	other := seedUser(t, db, "other@example.com")
	trip := seedTrip(t, db, &owner.ID)

	got, err := NewTripService(db).GetTrip(owner.ID, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, trip.ID, got.ID)

	_, err = NewTripService(db).GetTrip(other.ID, trip.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestShareAndUnshare(t *testing.T) {
	db := testDB(t)
	user := seedUser(t, db, "ada@example.com")
	trip := seedTrip(t, db, &user.ID)
	svc := NewTripService(db)

	code, err := svc.ShareTrip(user.ID, trip.ID)
	require.NoError(t, err)
	assert.Len(t, code, 12)

	// sharing again returns the same code
	code2, err := svc.ShareTrip(user.ID, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, code, code2)

	byCode, err := svc.GetByCode(code)
	require.NoError(t, err)
	assert.Equal(t, trip.ID, byCode.ID)

	require.NoError(t, svc.UnshareTrip(user.ID, trip.ID))
	_, err = svc.GetByCode(code)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUpdateTripRegeneratesCurrentOnly(t *testing.T) {
	db := testDB(t)
	user := seedUser(t, db, "ada@example.com")
	trip := seedTrip(t, db, &user.ID)
	svc := NewTripService(db)

	prefs := utils.DefaultPlanPreferences()
	prefs.Intensity = utils.IntensityAggressive
	legs := eastboundLegs()
	legs[0].DepartureAt = legs[0].DepartureAt.Add(24 * time.Hour)
	legs[0].ArrivalAt = legs[0].ArrivalAt.Add(24 * time.Hour)

	updated, err := svc.UpdateTrip(user.ID, trip.ID, legs, prefs,
		time.Date(2026, 11, 11, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.NotEqual(t, updated.InitialScheduleJSON, updated.CurrentScheduleJSON)
	assert.Equal(t, trip.InitialScheduleJSON, updated.InitialScheduleJSON)

	sched, err := StoredSchedule(updated)
	require.NoError(t, err)
	assert.Equal(t, 2.0, sched.ShiftPerDay)

	// the pending notification follows the new departure date
	var notif models.FlightNotification
	require.NoError(t, db.Where("schedule_id = ?", trip.ID).First(&notif).Error)
	assert.Equal(t, time.Date(2026, 11, 16, 11, 0, 0, 0, time.UTC), notif.SendAt.UTC())
}

func TestDeleteTripCascades(t *testing.T) {
	db := testDB(t)
	user := seedUser(t, db, "ada@example.com")
	trip := seedTrip(t, db, &user.ID)
	svc := NewTripService(db)

	_, _, err := NewActualService(db).RecordActual(trip, 0, -3,
		utils.InterventionWakeTarget, ActualAsPlanned, nil, "")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTrip(user.ID, trip.ID))

	_, err = svc.GetTrip(user.ID, trip.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	for _, model := range []interface{}{
		&models.InterventionActual{}, &models.MarkerStateSnapshot{}, &models.FlightNotification{},
	} {
		var n int64
		require.NoError(t, db.Model(model).Where("schedule_id = ?", trip.ID).Count(&n).Error)
		assert.Zero(t, n)
	}
}
