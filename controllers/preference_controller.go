package controllers

import (
	"errors"
	"net/http"

	"github.com/davidrecordon/dawnward-sub002/config"
	"github.com/davidrecordon/dawnward-sub002/services"
	"github.com/davidrecordon/dawnward-sub002/utils"

	"github.com/gin-gonic/gin"
)

// GET /api/user/preferences
func GetPreferences(c *gin.Context) {
	uid := c.GetUint("userID")

	prefs, err := services.NewPreferenceService(config.DB).GetPreferences(uid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, prefs)
}

// PUT /api/user/preferences
func UpdatePreferences(c *gin.Context) {
	uid := c.GetUint("userID")

	var input services.PreferencesInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	prefs, err := services.NewPreferenceService(config.DB).UpdatePreferences(uid, input)
	if err != nil {
		if errors.Is(err, utils.ErrAnchorsOutRange) || errors.Is(err, utils.ErrBadIntensity) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, prefs)
}
