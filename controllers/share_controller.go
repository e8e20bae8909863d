package controllers

import (
	"net/http"

	"github.com/davidrecordon/dawnward-sub002/services"

	"github.com/gin-gonic/gin"
)

type ShareController struct {
	Trips *services.TripService
}

func NewShareController(trips *services.TripService) *ShareController {
	return &ShareController{Trips: trips}
}

// GET /api/share/:code — public, read-only, rate-limited upstream
func (sc *ShareController) GetByCode(c *gin.Context) {
	trip, err := sc.Trips.GetByCode(c.Param("code"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "schedule not found"})
		return
	}
	sched, err := services.StoredSchedule(trip)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stored schedule unreadable"})
		return
	}

	// public view: schedule only, no owner or token material
	c.JSON(http.StatusOK, gin.H{
		"origin_timezone":      trip.OriginTimezone,
		"destination_timezone": trip.DestinationTimezone,
		"departure_at":         trip.DepartureAt,
		"arrival_at":           trip.ArrivalAt,
		"schedule":             sched,
	})
}
