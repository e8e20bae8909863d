package services

import (
	"encoding/json"
	"time"

	"github.com/davidrecordon/dawnward-sub002/models"
	"github.com/davidrecordon/dawnward-sub002/utils"

	"gorm.io/gorm"
)

// shift credit applied per compliance status
const (
	creditAsPlanned = 1.0
	creditModified  = 0.5
	creditSkipped   = 0.0
)

// RecalcService rebuilds the remaining plan from a marker-state snapshot,
// discounting days where the traveler deviated from the key interventions.
type RecalcService struct{ db *gorm.DB }

func NewRecalcService(db *gorm.DB) *RecalcService { return &RecalcService{db: db} }

// dayCredits reduces the compliance records to the worst credit per day.
// Only key interventions count.
func dayCredits(actuals []models.InterventionActual) map[int]float64 {
	credit := map[int]float64{}
	for _, a := range actuals {
		if !keyInterventionTypes[a.InterventionType] {
			continue
		}
		c := creditAsPlanned
		switch a.Status {
		case ActualModified:
			c = creditModified
		case ActualSkipped:
			c = creditSkipped
		}
		if cur, ok := credit[a.DayOffset]; !ok || c < cur {
			credit[a.DayOffset] = c
		}
	}
	return credit
}

// achievedShift walks the snapshot chain up to fromDay, discounting each
// day's planned delta by its compliance credit. A day with any skipped
// key intervention earns no credit, a modified one earns half.
func achievedShift(snaps []models.MarkerStateSnapshot, actuals []models.InterventionActual, fromDay int) float64 {
	credit := dayCredits(actuals)
	achieved := 0.0
	prev := 0.0
	for _, sn := range snaps {
		if sn.DayOffset >= fromDay {
			break
		}
		delta := sn.CumulativeShift - prev
		prev = sn.CumulativeShift
		c := creditAsPlanned
		if v, ok := credit[sn.DayOffset]; ok {
			c = v
		}
		achieved += delta * c
	}
	return achieved
}

// AchievedShift estimates how many hours of phase shift were actually
// absorbed before fromDay, from the stored snapshot chain and the
// recorded compliance. Reading the snapshots means a recalculation never
// replays the model for days already behind the traveler.
func (s *RecalcService) AchievedShift(scheduleID uint, actuals []models.InterventionActual, fromDay int) (float64, error) {
	var snaps []models.MarkerStateSnapshot
	err := s.db.
		Where("schedule_id = ? AND day_offset < ?", scheduleID, fromDay).
		Order("day_offset ASC").
		Find(&snaps).Error
	if err != nil {
		return 0, err
	}
	return achievedShift(snaps, actuals, fromDay), nil
}

// Recalculate resumes the model at fromDay using the stored snapshot
// chain and the compliance records, then swaps in the regenerated tail of
// the plan. Days before fromDay keep their original content.
func (s *RecalcService) Recalculate(trip *models.SharedSchedule, fromDay int, now time.Time) (*utils.Schedule, error) {
	sched, err := StoredSchedule(trip)
	if err != nil {
		return nil, err
	}
	legs, err := StoredLegs(trip)
	if err != nil {
		return nil, err
	}
	prefs, err := StoredPreferences(trip)
	if err != nil {
		return nil, err
	}

	var actuals []models.InterventionActual
	if err := s.db.Where("schedule_id = ?", trip.ID).Find(&actuals).Error; err != nil {
		return nil, err
	}

	achieved, err := s.AchievedShift(trip.ID, actuals, fromDay)
	if err != nil {
		return nil, err
	}
	resumed, err := utils.ResumeSchedule(legs, prefs, fromDay, achieved, now)
	if err != nil {
		return nil, err
	}

	// stitch: original head, regenerated tail
	merged := *resumed
	merged.PreDays = sched.PreDays
	var headDays []utils.DayPlan
	var headMarkers []utils.MarkerState
	for _, d := range sched.Days {
		if d.DayOffset < fromDay {
			headDays = append(headDays, d)
		}
	}
	for _, m := range sched.Markers {
		if m.DayOffset < fromDay {
			headMarkers = append(headMarkers, m)
		}
	}
	merged.Days = append(headDays, resumed.Days...)
	merged.Markers = append(headMarkers, resumed.Markers...)

	schedJSON, err := json.Marshal(&merged)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		ts := now.UTC()
		if err := tx.Model(trip).Updates(map[string]interface{}{
			"current_schedule_json": string(schedJSON),
			"last_recalculated_at":  ts,
		}).Error; err != nil {
			return err
		}
		trip.CurrentScheduleJSON = string(schedJSON)
		trip.LastRecalculatedAt = &ts
		return replaceSnapshots(tx, trip.ID, merged.Markers)
	})
	if err != nil {
		return nil, err
	}
	return &merged, nil
}
