package controllers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/davidrecordon/dawnward-sub002/config"
	"github.com/davidrecordon/dawnward-sub002/services"
	"github.com/davidrecordon/dawnward-sub002/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type TripController struct {
	Trips    *services.TripService
	Recalc   *services.RecalcService
	Calendar *services.CalendarService
}

func NewTripController(trips *services.TripService, recalc *services.RecalcService, cal *services.CalendarService) *TripController {
	return &TripController{Trips: trips, Recalc: recalc, Calendar: cal}
}

type LegInput struct {
	OriginTimezone      string    `json:"origin_timezone" binding:"required"`
	DestinationTimezone string    `json:"destination_timezone" binding:"required"`
	DepartureAt         time.Time `json:"departure_at" binding:"required"`
	ArrivalAt           time.Time `json:"arrival_at" binding:"required"`
}

type TripInput struct {
	Legs        []LegInput                 `json:"legs" binding:"required,min=1,dive"`
	Preferences *services.PreferencesInput `json:"preferences"`
}

func (in *TripInput) legs() []utils.FlightLeg {
	out := make([]utils.FlightLeg, len(in.Legs))
	for i, l := range in.Legs {
		out[i] = utils.FlightLeg{
			OriginTimezone:      l.OriginTimezone,
			DestinationTimezone: l.DestinationTimezone,
			DepartureAt:         l.DepartureAt,
			ArrivalAt:           l.ArrivalAt,
		}
	}
	return out
}

// sessionUserID returns the optional session user. Nil for anonymous.
func sessionUserID(c *gin.Context) *uint {
	if v, ok := c.Get("userID"); ok {
		if id, ok := v.(uint); ok {
			return &id
		}
	}
	return nil
}

// resolvePlanPrefs merges stored preferences (or defaults) with per-trip
// overrides from the request.
func resolvePlanPrefs(userID *uint, overrides *services.PreferencesInput) (utils.PlanPreferences, error) {
	prefs := utils.DefaultPlanPreferences()
	if userID != nil {
		stored, err := services.NewPreferenceService(config.DB).GetPreferences(*userID)
		if err != nil {
			return prefs, err
		}
		prefs = services.PlanPreferencesFrom(stored)
	}
	if overrides != nil {
		if overrides.WakeMinutes != nil {
			prefs.WakeMinutes = *overrides.WakeMinutes
		}
		if overrides.SleepMinutes != nil {
			prefs.SleepMinutes = *overrides.SleepMinutes
		}
		if overrides.UseMelatonin != nil {
			prefs.UseMelatonin = *overrides.UseMelatonin
		}
		if overrides.UseCaffeine != nil {
			prefs.UseCaffeine = *overrides.UseCaffeine
		}
		if overrides.UseExercise != nil {
			prefs.UseExercise = *overrides.UseExercise
		}
		if overrides.AllowNaps != nil {
			prefs.AllowNaps = *overrides.AllowNaps
		}
		if overrides.Intensity != nil {
			prefs.Intensity = *overrides.Intensity
		}
	}
	return prefs, nil
}

func tripResponse(trip interface{}, sched interface{}) gin.H {
	return gin.H{"trip": trip, "schedule": sched}
}

// POST /api/trips — works with or without a session
func (tc *TripController) Create(c *gin.Context) {
	var input TripInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := sessionUserID(c)
	prefs, err := resolvePlanPrefs(userID, input.Preferences)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load preferences"})
		return
	}

	trip, duplicate, err := tc.Trips.CreateTrip(userID, input.legs(), prefs, time.Now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sched, err := services.StoredSchedule(trip)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stored schedule unreadable"})
		return
	}

	status := http.StatusCreated
	if duplicate {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"trip": trip, "schedule": sched, "duplicate": duplicate})
}

// GET /api/trips
func (tc *TripController) List(c *gin.Context) {
	uid := c.GetUint("userID")
	trips, err := tc.Trips.ListTrips(uid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, trips)
}

func tripID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid trip id"})
		return 0, false
	}
	return uint(id), true
}

// GET /api/trips/:id
func (tc *TripController) Get(c *gin.Context) {
	uid := c.GetUint("userID")
	id, ok := tripID(c)
	if !ok {
		return
	}
	trip, err := tc.Trips.GetTrip(uid, id)
	if err != nil {
		// missing and not-owned look the same from outside
		c.JSON(http.StatusNotFound, gin.H{"error": "trip not found"})
		return
	}
	sched, err := services.StoredSchedule(trip)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stored schedule unreadable"})
		return
	}
	c.JSON(http.StatusOK, tripResponse(trip, sched))
}

// PUT /api/trips/:id
func (tc *TripController) Update(c *gin.Context) {
	uid := c.GetUint("userID")
	id, ok := tripID(c)
	if !ok {
		return
	}
	var input TripInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	prefs, err := resolvePlanPrefs(&uid, input.Preferences)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load preferences"})
		return
	}

	trip, err := tc.Trips.UpdateTrip(uid, id, input.legs(), prefs, time.Now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "trip not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sched, _ := services.StoredSchedule(trip)
	c.JSON(http.StatusOK, tripResponse(trip, sched))
}

// DELETE /api/trips/:id
func (tc *TripController) Delete(c *gin.Context) {
	uid := c.GetUint("userID")
	id, ok := tripID(c)
	if !ok {
		return
	}

	// best-effort cleanup of synced calendar events before the trip goes
	if trip, err := tc.Trips.GetTrip(uid, id); err == nil && trip.CalendarEventsJSON != "" {
		if err := tc.Calendar.Unsync(c.Request.Context(), uid, trip); err != nil {
			log.Printf("trip %d: calendar cleanup on delete: %v", id, err)
		}
	}

	if err := tc.Trips.DeleteTrip(uid, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "trip not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /api/trips/:id/share
func (tc *TripController) Share(c *gin.Context) {
	uid := c.GetUint("userID")
	id, ok := tripID(c)
	if !ok {
		return
	}
	code, err := tc.Trips.ShareTrip(uid, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "trip not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": code})
}

// DELETE /api/trips/:id/share
func (tc *TripController) Unshare(c *gin.Context) {
	uid := c.GetUint("userID")
	id, ok := tripID(c)
	if !ok {
		return
	}
	if err := tc.Trips.UnshareTrip(uid, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "trip not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

type RecalcInput struct {
	FromDayOffset *int `json:"from_day_offset" binding:"required"`
}

// POST /api/trips/:id/recalculate
func (tc *TripController) Recalculate(c *gin.Context) {
	uid := c.GetUint("userID")
	id, ok := tripID(c)
	if !ok {
		return
	}
	var input RecalcInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	trip, err := tc.Trips.GetTrip(uid, id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "trip not found"})
		return
	}

	sched, err := tc.Recalc.Recalculate(trip, *input.FromDayOffset, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	services.EmitScheduleRecalculated(trip.UserID, trip.ID)
	c.JSON(http.StatusOK, tripResponse(trip, sched))
}
