package services

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/davidrecordon/dawnward-sub002/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	to, subject, body string
}

type fakeSender struct {
	sent    []sentMail
	failFor map[string]bool
}

func (f *fakeSender) Send(to, subject, body string) error {
	if f.failFor[to] {
		return errors.New("smtp boom")
	}
	f.sent = append(f.sent, sentMail{to, subject, body})
	return nil
}

// dispatch time late on the departure day, well past the 06:00 send_at
var dispatchNow = time.Date(2026, 11, 15, 23, 0, 0, 0, time.UTC)

func TestProcessDueSendsFlightDayEmail(t *testing.T) {
	db := testDB(t)
	user := seedUser(t, db, "ada@example.com")
	trip := seedTrip(t, db, &user.ID)

	sender := &fakeSender{}
	svc := NewNotificationService(db, sender, nil)

	res, err := svc.ProcessDue(dispatchNow)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 1, res.Sent)
	assert.Zero(t, res.Failed)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "ada@example.com", sender.sent[0].to)
	assert.Contains(t, sender.sent[0].subject, "2026-11-15")
	assert.Contains(t, sender.sent[0].body, "Europe/Paris")

	var notif models.FlightNotification
	require.NoError(t, db.Where("schedule_id = ?", trip.ID).First(&notif).Error)
	assert.NotNil(t, notif.SentAt)

	// nothing left on the next tick
	res, err = svc.ProcessDue(dispatchNow.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, res.Processed)
}

func TestProcessDueBroadcastsSentEvent(t *testing.T) {
	db := testDB(t)
	user := seedUser(t, db, "ada@example.com")
	trip := seedTrip(t, db, &user.ID)

	hub := NewRealtimeHub()
	InitEventDeps(hub, nil)
	t.Cleanup(func() { InitEventDeps(nil, nil) })
	conn := dialTestHub(t, hub, user.ID)

	_, err := NewNotificationService(db, &fakeSender{}, nil).ProcessDue(dispatchNow)
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Kind    string         `json:"kind"`
		Payload map[string]any `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, EventNotificationSent, msg.Kind)
	assert.EqualValues(t, trip.ID, msg.Payload["schedule_id"])
}

func TestProcessDueIgnoresFutureNotifications(t *testing.T) {
	db := testDB(t)
	user := seedUser(t, db, "ada@example.com")
	seedTrip(t, db, &user.ID)

	sender := &fakeSender{}
	res, err := NewNotificationService(db, sender, nil).
		ProcessDue(time.Date(2026, 11, 14, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Zero(t, res.Processed)
	assert.Empty(t, sender.sent)
}

func TestProcessDueHonorsChannelToggles(t *testing.T) {
	db := testDB(t)
	user := seedUser(t, db, "ada@example.com")
	trip := seedTrip(t, db, &user.ID)
	require.NoError(t, db.Create(&models.UserPreferences{
		UserID: user.ID, WakeMinutes: 420, SleepMinutes: 1380,
		Intensity: "standard", EmailEnabled: false, PushEnabled: false,
	}).Error)

	sender := &fakeSender{}
	res, err := NewNotificationService(db, sender, nil).ProcessDue(dispatchNow)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 1, res.Skipped)
	assert.Empty(t, sender.sent)

	// marked sent anyway so it is not retried every tick
	var notif models.FlightNotification
	require.NoError(t, db.Where("schedule_id = ?", trip.ID).First(&notif).Error)
	assert.NotNil(t, notif.SentAt)
}

func TestProcessDueSkipsAnonymousTrips(t *testing.T) {
	db := testDB(t)
	trip := seedTrip(t, db, nil)

	// anonymous creation writes no notification row; simulate a stray one
	require.NoError(t, db.Create(&models.FlightNotification{
		ScheduleID: trip.ID,
		SendAt:     dispatchNow.Add(-time.Hour),
	}).Error)

	sender := &fakeSender{}
	res, err := NewNotificationService(db, sender, nil).ProcessDue(dispatchNow)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.Empty(t, sender.sent)
}

func TestProcessDueIsolatesFailures(t *testing.T) {
	db := testDB(t)

	broken := seedUser(t, db, "broken@example.com")
	brokenTrip := seedTrip(t, db, &broken.ID)

	healthy := seedUser(t, db, "healthy@example.com")
	seedTrip(t, db, &healthy.ID)

	sender := &fakeSender{failFor: map[string]bool{"broken@example.com": true}}
	res, err := NewNotificationService(db, sender, nil).ProcessDue(dispatchNow)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, 1, res.Failed)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "healthy@example.com", sender.sent[0].to)

	var failed models.FlightNotification
	require.NoError(t, db.Where("schedule_id = ?", brokenTrip.ID).First(&failed).Error)
	assert.Nil(t, failed.SentAt)
	assert.Equal(t, 1, failed.Attempts)
	assert.Contains(t, failed.LastError, "smtp boom")

	// the failure is retried on the next run
	res, err = NewNotificationService(db, sender, nil).ProcessDue(dispatchNow.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 1, res.Failed)
}
