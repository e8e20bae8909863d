package utils

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Circadian plan engine. Pure functions over flight legs and traveler
// preferences; no database access so the whole thing is unit-testable.
//
// Conventions: clock values are minutes since midnight in the zone the
// traveler occupies that day. A phase "advance" moves the body clock
// earlier (eastward travel), a "delay" moves it later (westward).

type Direction string

const (
	DirectionAdvance Direction = "advance"
	DirectionDelay   Direction = "delay"
)

const (
	IntensityGentle     = "gentle"
	IntensityStandard   = "standard"
	IntensityAggressive = "aggressive"
)

// Intervention types as they appear in schedule JSON and actual records.
const (
	InterventionLightSeek   = "light_seek"
	InterventionLightAvoid  = "light_avoid"
	InterventionMelatonin   = "melatonin"
	InterventionCaffeine    = "caffeine_window"
	InterventionSleepTarget = "sleep_target"
	InterventionWakeTarget  = "wake_target"
	InterventionNap         = "nap"
	InterventionExercise    = "exercise"
)

type PlanPreferences struct {
	WakeMinutes  int    `json:"wake_minutes"`
	SleepMinutes int    `json:"sleep_minutes"`
	UseMelatonin bool   `json:"use_melatonin"`
	UseCaffeine  bool   `json:"use_caffeine"`
	UseExercise  bool   `json:"use_exercise"`
	AllowNaps    bool   `json:"allow_naps"`
	Intensity    string `json:"intensity"`
}

func DefaultPlanPreferences() PlanPreferences {
	return PlanPreferences{
		WakeMinutes:  7 * 60,
		SleepMinutes: 23 * 60,
		UseMelatonin: true,
		UseCaffeine:  true,
		UseExercise:  false,
		AllowNaps:    true,
		Intensity:    IntensityStandard,
	}
}

type FlightLeg struct {
	OriginTimezone      string    `json:"origin_timezone"`
	DestinationTimezone string    `json:"destination_timezone"`
	DepartureAt         time.Time `json:"departure_at"`
	ArrivalAt           time.Time `json:"arrival_at"`
}

type Intervention struct {
	Type         string `json:"type"`
	StartMinutes int    `json:"start_minutes"`
	EndMinutes   int    `json:"end_minutes"` // == StartMinutes for point events
	Note         string `json:"note,omitempty"`
}

type DayPlan struct {
	DayOffset       int            `json:"day_offset"` // 0 = first departure date
	Date            string         `json:"date"`       // YYYY-MM-DD, occupied zone
	Timezone        string         `json:"timezone"`
	LegIndex        int            `json:"leg_index"`
	TravelDay       bool           `json:"travel_day"`
	CumulativeShift float64        `json:"cumulative_shift"` // hours absorbed by end of day
	RemainingShift  float64        `json:"remaining_shift"`
	Interventions   []Intervention `json:"interventions"`
}

type MarkerState struct {
	DayOffset       int       `json:"day_offset"`
	CumulativeShift float64   `json:"cumulative_shift"`
	CbtminMinutes   int       `json:"cbtmin_minutes"`
	DlmoMinutes     int       `json:"dlmo_minutes"`
	Direction       Direction `json:"direction"`
}

type Schedule struct {
	Direction       Direction     `json:"direction"`
	TotalShiftHours float64       `json:"total_shift_hours"` // magnitude
	ShiftPerDay     float64       `json:"shift_per_day"`
	PreDays         int           `json:"pre_days"`
	Legs            []FlightLeg   `json:"legs"`
	Days            []DayPlan     `json:"days"`
	Markers         []MarkerState `json:"markers"`
	GeneratedAt     time.Time     `json:"generated_at"`
}

var (
	ErrNoLegs          = errors.New("at least one flight leg is required")
	ErrBadIntensity    = errors.New("intensity must be gentle, standard or aggressive")
	ErrArrivalBefore   = errors.New("arrival must be after departure")
	ErrAnchorsOutRange = errors.New("wake/sleep anchors must be within 0..1439 minutes")
)

// shifting that can be banked before departure, in days
const maxPreDays = 3

// advances beyond this many hours are re-planned as delays; delaying the
// clock is easier than advancing it
const advanceLimitHours = 9.0

const minShiftHours = 1.0

// safety cap on generated days, covers the worst 12h shift at gentle pace
const maxPlanDays = 21

func normMinutes(m int) int {
	return ((m % 1440) + 1440) % 1440
}

// ZoneOffsetHours returns the UTC offset of an IANA zone at a given
// instant, DST included.
func ZoneOffsetHours(zone string, at time.Time) (float64, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return 0, fmt.Errorf("unknown timezone %q: %w", zone, err)
	}
	_, off := at.In(loc).Zone()
	return float64(off) / 3600.0, nil
}

// RequiredShift computes the direction and magnitude (hours) of the phase
// shift needed between the first origin and the final destination.
func RequiredShift(legs []FlightLeg) (Direction, float64, error) {
	if len(legs) == 0 {
		return "", 0, ErrNoLegs
	}
	first, last := legs[0], legs[len(legs)-1]
	originOff, err := ZoneOffsetHours(first.OriginTimezone, first.DepartureAt)
	if err != nil {
		return "", 0, err
	}
	destOff, err := ZoneOffsetHours(last.DestinationTimezone, last.ArrivalAt)
	if err != nil {
		return "", 0, err
	}

	diff := destOff - originOff
	for diff > 12 {
		diff -= 24
	}
	for diff <= -12 {
		diff += 24
	}

	switch {
	case diff > advanceLimitHours:
		// e.g. +11h east is planned as a 13h delay
		return DirectionDelay, 24 - diff, nil
	case diff >= 0:
		return DirectionAdvance, diff, nil
	default:
		return DirectionDelay, -diff, nil
	}
}

// ShiftRate returns hours of phase shift per day for a direction and
// intensity. Delays move faster than advances.
func ShiftRate(dir Direction, intensity string) (float64, error) {
	advance := map[string]float64{
		IntensityGentle:     1.0,
		IntensityStandard:   1.5,
		IntensityAggressive: 2.0,
	}
	rate, ok := advance[intensity]
	if !ok {
		return 0, ErrBadIntensity
	}
	if dir == DirectionDelay {
		rate += 0.5
	}
	return rate, nil
}

func validateLegs(legs []FlightLeg) error {
	if len(legs) == 0 {
		return ErrNoLegs
	}
	for _, leg := range legs {
		if !leg.ArrivalAt.After(leg.DepartureAt) {
			return ErrArrivalBefore
		}
		if _, err := time.LoadLocation(leg.OriginTimezone); err != nil {
			return fmt.Errorf("unknown timezone %q: %w", leg.OriginTimezone, err)
		}
		if _, err := time.LoadLocation(leg.DestinationTimezone); err != nil {
			return fmt.Errorf("unknown timezone %q: %w", leg.DestinationTimezone, err)
		}
	}
	return nil
}

func validatePrefs(prefs PlanPreferences) error {
	if prefs.WakeMinutes < 0 || prefs.WakeMinutes > 1439 ||
		prefs.SleepMinutes < 0 || prefs.SleepMinutes > 1439 {
		return ErrAnchorsOutRange
	}
	switch prefs.Intensity {
	case IntensityGentle, IntensityStandard, IntensityAggressive:
		return nil
	default:
		return ErrBadIntensity
	}
}

// GenerateSchedule builds the full day-by-day plan for a trip.
func GenerateSchedule(legs []FlightLeg, prefs PlanPreferences, now time.Time) (*Schedule, error) {
	if err := validateLegs(legs); err != nil {
		return nil, err
	}
	if err := validatePrefs(prefs); err != nil {
		return nil, err
	}

	dir, total, err := RequiredShift(legs)
	if err != nil {
		return nil, err
	}

	sched := &Schedule{
		Direction:       dir,
		TotalShiftHours: total,
		Legs:            legs,
		GeneratedAt:     now.UTC(),
	}

	if total < minShiftHours {
		// nothing worth shifting for; emit a single informational day
		day := DayPlan{
			DayOffset:     0,
			Date:          localDate(legs[0].DepartureAt, legs[0].OriginTimezone),
			Timezone:      legs[0].OriginTimezone,
			TravelDay:     true,
			Interventions: []Intervention{},
		}
		sched.Days = []DayPlan{day}
		sched.Markers = []MarkerState{{
			DayOffset:     0,
			CbtminMinutes: normMinutes(prefs.WakeMinutes - 180),
			DlmoMinutes:   normMinutes(prefs.WakeMinutes - 180 - 420),
			Direction:     dir,
		}}
		return sched, nil
	}

	rate, err := ShiftRate(dir, prefs.Intensity)
	if err != nil {
		return nil, err
	}
	totalDays := int(math.Ceil(total / rate))
	preDays := totalDays
	if preDays > maxPreDays {
		preDays = maxPreDays
	}

	sched.ShiftPerDay = rate
	sched.PreDays = preDays
	sched.Days, sched.Markers = buildDays(legs, prefs, dir, total, rate, -preDays, 0)
	return sched, nil
}

// ResumeSchedule regenerates the plan from a given day offset, assuming
// alreadyShifted hours were actually absorbed before it. Used after
// compliance records show the traveler deviated from the plan.
func ResumeSchedule(legs []FlightLeg, prefs PlanPreferences, fromDay int, alreadyShifted float64, now time.Time) (*Schedule, error) {
	if err := validateLegs(legs); err != nil {
		return nil, err
	}
	if err := validatePrefs(prefs); err != nil {
		return nil, err
	}
	dir, total, err := RequiredShift(legs)
	if err != nil {
		return nil, err
	}
	rate, err := ShiftRate(dir, prefs.Intensity)
	if err != nil {
		return nil, err
	}
	if alreadyShifted < 0 {
		alreadyShifted = 0
	}
	if alreadyShifted > total {
		alreadyShifted = total
	}

	days, markers := buildDays(legs, prefs, dir, total, rate, fromDay, alreadyShifted)
	return &Schedule{
		Direction:       dir,
		TotalShiftHours: total,
		ShiftPerDay:     rate,
		Legs:            legs,
		Days:            days,
		Markers:         markers,
		GeneratedAt:     now.UTC(),
	}, nil
}

// arrivalDayOffset is the day offset on which the traveler lands at the
// final destination, measured against the first departure date.
func arrivalDayOffset(legs []FlightLeg) int {
	first, last := legs[0], legs[len(legs)-1]
	depDate := localMidnight(first.DepartureAt, first.OriginTimezone)
	arrDate := localMidnight(last.ArrivalAt, last.DestinationTimezone)
	return int(math.Round(arrDate.Sub(depDate).Hours() / 24))
}

func localMidnight(t time.Time, zone string) time.Time {
	loc, _ := time.LoadLocation(zone)
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, time.UTC)
}

func localDate(t time.Time, zone string) string {
	loc, _ := time.LoadLocation(zone)
	return t.In(loc).Format("2006-01-02")
}

// legForOffset maps a day offset onto the leg whose segment the traveler
// is on. Pre-departure days belong to leg 0.
func legForOffset(legs []FlightLeg, offset int) (legIndex int, travelDay bool) {
	first := legs[0]
	base := localMidnight(first.DepartureAt, first.OriginTimezone)
	for i, leg := range legs {
		legDep := localMidnight(leg.DepartureAt, leg.OriginTimezone)
		d := int(math.Round(legDep.Sub(base).Hours() / 24))
		if d == offset {
			travelDay = true
		}
		if d <= offset {
			legIndex = i
		}
	}
	return legIndex, travelDay
}

func buildDays(legs []FlightLeg, prefs PlanPreferences, dir Direction, total, rate float64, startOffset int, alreadyShifted float64) ([]DayPlan, []MarkerState) {
	arrival := arrivalDayOffset(legs)
	sign := 1.0
	if dir == DirectionDelay {
		sign = -1.0
	}

	baseCbtmin := prefs.WakeMinutes - 180
	baseDlmo := baseCbtmin - 420

	var days []DayPlan
	var markers []MarkerState

	cum := alreadyShifted
	for offset, i := startOffset, 0; i < maxPlanDays; offset, i = offset+1, i+1 {
		cum = math.Min(total, cum+rate)
		rem := total - cum

		legIndex, travel := legForOffset(legs, offset)
		zone := legs[0].OriginTimezone
		if offset >= arrival {
			zone = legs[len(legs)-1].DestinationTimezone
		}

		// Targets are expressed against the occupied zone's clock: before
		// arrival shift away from the origin norm, after arrival converge
		// onto the destination norm.
		shiftMin := func(base int) int {
			if offset < arrival {
				return normMinutes(base - int(math.Round(sign*cum*60)))
			}
			return normMinutes(base + int(math.Round(sign*rem*60)))
		}

		wakeT := shiftMin(prefs.WakeMinutes)
		sleepT := shiftMin(prefs.SleepMinutes)
		cbtmin := shiftMin(baseCbtmin)
		dlmo := shiftMin(baseDlmo)

		day := DayPlan{
			DayOffset:       offset,
			Date:            dayDate(legs, offset),
			Timezone:        zone,
			LegIndex:        legIndex,
			TravelDay:       travel,
			CumulativeShift: cum,
			RemainingShift:  rem,
			Interventions:   dayInterventions(prefs, dir, cbtmin, wakeT, sleepT, travel, offset == arrival),
		}
		days = append(days, day)
		markers = append(markers, MarkerState{
			DayOffset:       offset,
			CumulativeShift: cum,
			CbtminMinutes:   cbtmin,
			DlmoMinutes:     dlmo,
			Direction:       dir,
		})

		if cum >= total && offset >= arrival {
			break
		}
	}
	return days, markers
}

func dayDate(legs []FlightLeg, offset int) string {
	base := localMidnight(legs[0].DepartureAt, legs[0].OriginTimezone)
	return base.AddDate(0, 0, offset).Format("2006-01-02")
}

func dayInterventions(prefs PlanPreferences, dir Direction, cbtmin, wakeT, sleepT int, travelDay, arrivalDay bool) []Intervention {
	out := []Intervention{
		{Type: InterventionWakeTarget, StartMinutes: wakeT, EndMinutes: wakeT},
		{Type: InterventionSleepTarget, StartMinutes: sleepT, EndMinutes: sleepT},
	}

	// Light is the primary zeitgeber. Advances want light after CBTmin and
	// darkness before it; delays are the mirror image.
	if dir == DirectionAdvance {
		out = append(out,
			Intervention{Type: InterventionLightSeek, StartMinutes: normMinutes(cbtmin + 30), EndMinutes: normMinutes(cbtmin + 150)},
			Intervention{Type: InterventionLightAvoid, StartMinutes: normMinutes(cbtmin - 180), EndMinutes: normMinutes(cbtmin - 30), Note: "dim light / sunglasses"},
		)
	} else {
		out = append(out,
			Intervention{Type: InterventionLightSeek, StartMinutes: normMinutes(cbtmin - 180), EndMinutes: normMinutes(cbtmin - 60)},
			Intervention{Type: InterventionLightAvoid, StartMinutes: normMinutes(cbtmin + 30), EndMinutes: normMinutes(cbtmin + 210), Note: "dim light / sunglasses"},
		)
	}

	// Evening melatonin only helps advances; skip it for delays.
	if prefs.UseMelatonin && dir == DirectionAdvance {
		m := normMinutes(sleepT - 30)
		out = append(out, Intervention{Type: InterventionMelatonin, StartMinutes: m, EndMinutes: m, Note: "0.5mg, 30min before target bedtime"})
	}

	if prefs.UseCaffeine {
		cutoff := normMinutes(sleepT - 480)
		if normMinutes(cutoff-wakeT) >= 60 {
			out = append(out, Intervention{Type: InterventionCaffeine, StartMinutes: wakeT, EndMinutes: cutoff, Note: "caffeine OK until cutoff"})
		}
	}

	if prefs.UseExercise {
		if dir == DirectionAdvance {
			out = append(out, Intervention{Type: InterventionExercise, StartMinutes: normMinutes(wakeT + 60), EndMinutes: normMinutes(wakeT + 105)})
		} else {
			out = append(out, Intervention{Type: InterventionExercise, StartMinutes: normMinutes(sleepT - 300), EndMinutes: normMinutes(sleepT - 255)})
		}
	}

	if prefs.AllowNaps && (travelDay || arrivalDay) {
		out = append(out, Intervention{Type: InterventionNap, StartMinutes: normMinutes(sleepT - 510), EndMinutes: normMinutes(sleepT - 480), Note: "max 30min"})
	}

	return out
}

// FormatMinutes renders a minutes-since-midnight clock value for email
// bodies and share views.
func FormatMinutes(m int, use24 bool) string {
	m = normMinutes(m)
	h, min := m/60, m%60
	if use24 {
		return fmt.Sprintf("%02d:%02d", h, min)
	}
	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%d:%02d %s", h12, min, suffix)
}
