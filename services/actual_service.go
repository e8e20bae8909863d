package services

import (
	"errors"
	"fmt"

	"github.com/davidrecordon/dawnward-sub002/models"
	"github.com/davidrecordon/dawnward-sub002/utils"

	"gorm.io/gorm"
)

const (
	ActualAsPlanned = "as_planned"
	ActualModified  = "modified"
	ActualSkipped   = "skipped"
)

var ErrBadActualStatus = errors.New("status must be as_planned, modified or skipped")

// interventions whose compliance feeds back into the phase model
var keyInterventionTypes = map[string]bool{
	utils.InterventionLightSeek:   true,
	utils.InterventionLightAvoid:  true,
	utils.InterventionMelatonin:   true,
	utils.InterventionSleepTarget: true,
	utils.InterventionWakeTarget:  true,
}

type ActualService struct{ db *gorm.DB }

func NewActualService(db *gorm.DB) *ActualService { return &ActualService{db: db} }

// RecordActual upserts a compliance record for one planned intervention.
// Returns whether the schedule is now stale and worth recalculating.
func (s *ActualService) RecordActual(trip *models.SharedSchedule, legIndex, dayOffset int, interventionType, status string, actualMinutes *int, note string) (*models.InterventionActual, bool, error) {
	switch status {
	case ActualAsPlanned, ActualModified, ActualSkipped:
	default:
		return nil, false, ErrBadActualStatus
	}

	sched, err := StoredSchedule(trip)
	if err != nil {
		return nil, false, err
	}
	if err := planHasIntervention(sched, legIndex, dayOffset, interventionType); err != nil {
		return nil, false, err
	}

	actual := models.InterventionActual{
		ScheduleID:       trip.ID,
		LegIndex:         legIndex,
		DayOffset:        dayOffset,
		InterventionType: interventionType,
		Status:           status,
		ActualMinutes:    actualMinutes,
		Note:             note,
	}

	err = s.db.
		Where("schedule_id = ? AND leg_index = ? AND day_offset = ? AND intervention_type = ?",
			trip.ID, legIndex, dayOffset, interventionType).
		Assign(map[string]interface{}{
			"status":         status,
			"actual_minutes": actualMinutes,
			"note":           note,
		}).
		FirstOrCreate(&actual).Error
	if err != nil {
		return nil, false, err
	}

	stale := status != ActualAsPlanned && keyInterventionTypes[interventionType]
	return &actual, stale, nil
}

func planHasIntervention(sched *utils.Schedule, legIndex, dayOffset int, interventionType string) error {
	for _, day := range sched.Days {
		if day.DayOffset != dayOffset {
			continue
		}
		if day.LegIndex != legIndex {
			return fmt.Errorf("day %d belongs to leg %d", dayOffset, day.LegIndex)
		}
		for _, iv := range day.Interventions {
			if iv.Type == interventionType {
				return nil
			}
		}
		return fmt.Errorf("no %s intervention on day %d", interventionType, dayOffset)
	}
	return fmt.Errorf("day %d is not part of the plan", dayOffset)
}

func (s *ActualService) ListActuals(scheduleID uint) ([]models.InterventionActual, error) {
	var actuals []models.InterventionActual
	err := s.db.
		Where("schedule_id = ?", scheduleID).
		Order("day_offset ASC, intervention_type ASC").
		Find(&actuals).Error
	return actuals, err
}
