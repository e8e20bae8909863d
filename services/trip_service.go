package services

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/davidrecordon/dawnward-sub002/models"
	"github.com/davidrecordon/dawnward-sub002/utils"

	"gorm.io/gorm"
)

// duplicate detection window on departure time
const duplicateDepartureWindow = time.Hour

type TripService struct{ db *gorm.DB }

func NewTripService(db *gorm.DB) *TripService { return &TripService{db: db} }

// FindDuplicate returns an existing trip for the same user, route and a
// departure within one hour, if any. Anonymous trips are never deduped.
func (s *TripService) FindDuplicate(userID *uint, originTz, destTz string, departure time.Time) (*models.SharedSchedule, error) {
	if userID == nil {
		return nil, nil
	}
	var existing models.SharedSchedule
	err := s.db.
		Where("user_id = ? AND origin_timezone = ? AND destination_timezone = ?", *userID, originTz, destTz).
		Where("departure_at BETWEEN ? AND ?",
			departure.Add(-duplicateDepartureWindow), departure.Add(duplicateDepartureWindow)).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &existing, nil
}

// CreateTrip generates a schedule and persists the trip, its marker
// snapshots and the flight-day notification. When the caller already has
// a matching trip the existing record is returned with duplicate=true.
func (s *TripService) CreateTrip(userID *uint, legs []utils.FlightLeg, prefs utils.PlanPreferences, now time.Time) (*models.SharedSchedule, bool, error) {
	last := len(legs) - 1
	if last < 0 {
		return nil, false, utils.ErrNoLegs
	}

	existing, err := s.FindDuplicate(userID, legs[0].OriginTimezone, legs[last].DestinationTimezone, legs[0].DepartureAt)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, true, nil
	}

	sched, err := utils.GenerateSchedule(legs, prefs, now)
	if err != nil {
		return nil, false, err
	}

	schedJSON, err := json.Marshal(sched)
	if err != nil {
		return nil, false, err
	}
	legsJSON, _ := json.Marshal(legs)
	prefsJSON, _ := json.Marshal(prefs)

	trip := &models.SharedSchedule{
		UserID:              userID,
		OriginTimezone:      legs[0].OriginTimezone,
		DestinationTimezone: legs[last].DestinationTimezone,
		DepartureAt:         legs[0].DepartureAt.UTC(),
		ArrivalAt:           legs[last].ArrivalAt.UTC(),
		LegsJSON:            string(legsJSON),
		PreferencesJSON:     string(prefsJSON),
		InitialScheduleJSON: string(schedJSON),
		CurrentScheduleJSON: string(schedJSON),
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(trip).Error; err != nil {
			return err
		}
		if err := replaceSnapshots(tx, trip.ID, sched.Markers); err != nil {
			return err
		}
		if userID != nil {
			return tx.Create(&models.FlightNotification{
				ScheduleID: trip.ID,
				SendAt:     flightDaySendAt(legs[0]),
			}).Error
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return trip, false, nil
}

// flightDaySendAt is 06:00 origin-local on the departure date.
func flightDaySendAt(leg utils.FlightLeg) time.Time {
	loc, err := time.LoadLocation(leg.OriginTimezone)
	if err != nil {
		return leg.DepartureAt.Add(-6 * time.Hour).UTC()
	}
	d := leg.DepartureAt.In(loc)
	return time.Date(d.Year(), d.Month(), d.Day(), 6, 0, 0, 0, loc).UTC()
}

func replaceSnapshots(tx *gorm.DB, scheduleID uint, markers []utils.MarkerState) error {
	if err := tx.Unscoped().Where("schedule_id = ?", scheduleID).
		Delete(&models.MarkerStateSnapshot{}).Error; err != nil {
		return err
	}
	for _, m := range markers {
		snap := models.MarkerStateSnapshot{
			ScheduleID:      scheduleID,
			DayOffset:       m.DayOffset,
			CumulativeShift: m.CumulativeShift,
			CbtminMinutes:   m.CbtminMinutes,
			DlmoMinutes:     m.DlmoMinutes,
			Direction:       string(m.Direction),
		}
		if err := tx.Create(&snap).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *TripService) ListTrips(userID uint) ([]models.SharedSchedule, error) {
	var trips []models.SharedSchedule
	err := s.db.
		Where("user_id = ?", userID).
		Order("departure_at DESC").
		Find(&trips).Error
	return trips, err
}

// GetTrip deliberately collapses "not found" and "not owned" into the
// same error so callers can't probe for other users' trip IDs.
func (s *TripService) GetTrip(userID, tripID uint) (*models.SharedSchedule, error) {
	var trip models.SharedSchedule
	err := s.db.
		Where("id = ? AND user_id = ?", tripID, userID).
		First(&trip).Error
	if err != nil {
		return nil, err
	}
	return &trip, nil
}

func (s *TripService) GetByCode(code string) (*models.SharedSchedule, error) {
	var trip models.SharedSchedule
	err := s.db.Where("code = ?", code).First(&trip).Error
	if err != nil {
		return nil, err
	}
	return &trip, nil
}

// UpdateTrip regenerates the plan for new flight params or preferences.
// The initial schedule snapshot is preserved for later comparison.
func (s *TripService) UpdateTrip(userID, tripID uint, legs []utils.FlightLeg, prefs utils.PlanPreferences, now time.Time) (*models.SharedSchedule, error) {
	trip, err := s.GetTrip(userID, tripID)
	if err != nil {
		return nil, err
	}

	sched, err := utils.GenerateSchedule(legs, prefs, now)
	if err != nil {
		return nil, err
	}
	schedJSON, err := json.Marshal(sched)
	if err != nil {
		return nil, err
	}
	legsJSON, _ := json.Marshal(legs)
	prefsJSON, _ := json.Marshal(prefs)

	last := len(legs) - 1
	trip.OriginTimezone = legs[0].OriginTimezone
	trip.DestinationTimezone = legs[last].DestinationTimezone
	trip.DepartureAt = legs[0].DepartureAt.UTC()
	trip.ArrivalAt = legs[last].ArrivalAt.UTC()
	trip.LegsJSON = string(legsJSON)
	trip.PreferencesJSON = string(prefsJSON)
	trip.CurrentScheduleJSON = string(schedJSON)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(trip).Error; err != nil {
			return err
		}
		if err := replaceSnapshots(tx, trip.ID, sched.Markers); err != nil {
			return err
		}
		// move the pending notification to the new departure day
		return tx.Model(&models.FlightNotification{}).
			Where("schedule_id = ? AND sent_at IS NULL", trip.ID).
			Update("send_at", flightDaySendAt(legs[0])).Error
	})
	if err != nil {
		return nil, err
	}
	return trip, nil
}

// DeleteTrip removes the trip and everything hanging off it.
func (s *TripService) DeleteTrip(userID, tripID uint) error {
	trip, err := s.GetTrip(userID, tripID)
	if err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("schedule_id = ?", trip.ID).
			Delete(&models.InterventionActual{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("schedule_id = ?", trip.ID).
			Delete(&models.MarkerStateSnapshot{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("schedule_id = ?", trip.ID).
			Delete(&models.FlightNotification{}).Error; err != nil {
			return err
		}
		return tx.Delete(trip).Error
	})
}

// ShareTrip mints (or returns) the public share code.
func (s *TripService) ShareTrip(userID, tripID uint) (string, error) {
	trip, err := s.GetTrip(userID, tripID)
	if err != nil {
		return "", err
	}
	if trip.Code != nil {
		return *trip.Code, nil
	}
	code := utils.GenerateShareCode()
	trip.Code = &code
	if err := s.db.Save(trip).Error; err != nil {
		return "", err
	}
	return code, nil
}

func (s *TripService) UnshareTrip(userID, tripID uint) error {
	trip, err := s.GetTrip(userID, tripID)
	if err != nil {
		return err
	}
	return s.db.Model(trip).Update("code", nil).Error
}

// StoredSchedule unmarshals the trip's current plan.
func StoredSchedule(trip *models.SharedSchedule) (*utils.Schedule, error) {
	var sched utils.Schedule
	if err := json.Unmarshal([]byte(trip.CurrentScheduleJSON), &sched); err != nil {
		return nil, err
	}
	return &sched, nil
}

// StoredLegs unmarshals the trip's flight legs.
func StoredLegs(trip *models.SharedSchedule) ([]utils.FlightLeg, error) {
	var legs []utils.FlightLeg
	if err := json.Unmarshal([]byte(trip.LegsJSON), &legs); err != nil {
		return nil, err
	}
	return legs, nil
}

// StoredPreferences unmarshals the preference snapshot used at generation.
func StoredPreferences(trip *models.SharedSchedule) (utils.PlanPreferences, error) {
	prefs := utils.DefaultPlanPreferences()
	if trip.PreferencesJSON == "" {
		return prefs, nil
	}
	err := json.Unmarshal([]byte(trip.PreferencesJSON), &prefs)
	return prefs, err
}
