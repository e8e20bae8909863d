package controllers

import (
	"errors"
	"net/http"

	"github.com/davidrecordon/dawnward-sub002/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ActualController struct {
	Trips   *services.TripService
	Actuals *services.ActualService
}

func NewActualController(trips *services.TripService, actuals *services.ActualService) *ActualController {
	return &ActualController{Trips: trips, Actuals: actuals}
}

type ActualInput struct {
	LegIndex         *int   `json:"leg_index" binding:"required"`
	DayOffset        *int   `json:"day_offset" binding:"required"`
	InterventionType string `json:"intervention_type" binding:"required"`
	Status           string `json:"status" binding:"required"`
	ActualMinutes    *int   `json:"actual_minutes"`
	Note             string `json:"note"`
}

// POST /api/trips/:id/actuals
func (ac *ActualController) Record(c *gin.Context) {
	uid := c.GetUint("userID")
	id, ok := tripID(c)
	if !ok {
		return
	}
	var input ActualInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	trip, err := ac.Trips.GetTrip(uid, id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "trip not found"})
		return
	}

	actual, stale, err := ac.Actuals.RecordActual(trip,
		*input.LegIndex, *input.DayOffset, input.InterventionType,
		input.Status, input.ActualMinutes, input.Note)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"actual": actual, "recalculation_suggested": stale})
}

// GET /api/trips/:id/actuals
func (ac *ActualController) List(c *gin.Context) {
	uid := c.GetUint("userID")
	id, ok := tripID(c)
	if !ok {
		return
	}
	trip, err := ac.Trips.GetTrip(uid, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "trip not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	actuals, err := ac.Actuals.ListActuals(trip.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, actuals)
}
