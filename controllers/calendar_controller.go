package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/davidrecordon/dawnward-sub002/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type CalendarController struct {
	Trips    *services.TripService
	Calendar *services.CalendarService
}

func NewCalendarController(trips *services.TripService, cal *services.CalendarService) *CalendarController {
	return &CalendarController{Trips: trips, Calendar: cal}
}

func (cc *CalendarController) trip(c *gin.Context) (uint, uint, bool) {
	uid := c.GetUint("userID")
	id, err := strconv.ParseUint(c.Param("tripId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid trip id"})
		return 0, 0, false
	}
	return uid, uint(id), true
}

// POST /api/calendar/sync/:tripId
func (cc *CalendarController) Sync(c *gin.Context) {
	uid, id, ok := cc.trip(c)
	if !ok {
		return
	}
	trip, err := cc.Trips.GetTrip(uid, id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "trip not found"})
		return
	}

	created, err := cc.Calendar.Sync(c.Request.Context(), uid, trip)
	if err != nil {
		if errors.Is(err, services.ErrReauthRequired) {
			// 403 tells the client to run the incremental consent flow
			c.JSON(http.StatusForbidden, gin.H{"error": "calendar authorization required", "reauth_required": true})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events_created": created})
}

// DELETE /api/calendar/sync/:tripId
func (cc *CalendarController) Unsync(c *gin.Context) {
	uid, id, ok := cc.trip(c)
	if !ok {
		return
	}
	trip, err := cc.Trips.GetTrip(uid, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "trip not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := cc.Calendar.Unsync(c.Request.Context(), uid, trip); err != nil {
		if errors.Is(err, services.ErrReauthRequired) {
			c.JSON(http.StatusForbidden, gin.H{"error": "calendar authorization required", "reauth_required": true})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
