package controllers

import (
	"net/http"
	"time"

	"github.com/davidrecordon/dawnward-sub002/services"

	"github.com/gin-gonic/gin"
)

type CronController struct {
	Notifications *services.NotificationService
}

func NewCronController(n *services.NotificationService) *CronController {
	return &CronController{Notifications: n}
}

// POST /api/cron/notifications — invoked by the scheduler, guarded by
// CronAuth middleware
func (cr *CronController) DispatchNotifications(c *gin.Context) {
	res, err := cr.Notifications.ProcessDue(time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}
