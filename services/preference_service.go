package services

import (
	"errors"

	"github.com/davidrecordon/dawnward-sub002/models"
	"github.com/davidrecordon/dawnward-sub002/utils"

	"gorm.io/gorm"
)

type PreferenceService struct{ db *gorm.DB }

func NewPreferenceService(db *gorm.DB) *PreferenceService { return &PreferenceService{db: db} }

type PreferencesInput struct {
	WakeMinutes    *int    `json:"wake_minutes"`
	SleepMinutes   *int    `json:"sleep_minutes"`
	UseMelatonin   *bool   `json:"use_melatonin"`
	UseCaffeine    *bool   `json:"use_caffeine"`
	UseExercise    *bool   `json:"use_exercise"`
	AllowNaps      *bool   `json:"allow_naps"`
	Intensity      *string `json:"intensity"`
	Use24HourClock *bool   `json:"use_24_hour_clock"`
	EmailEnabled   *bool   `json:"email_enabled"`
	PushEnabled    *bool   `json:"push_enabled"`
}

// GetPreferences returns stored preferences or the defaults when the user
// has never saved any.
func (s *PreferenceService) GetPreferences(userID uint) (*models.UserPreferences, error) {
	var prefs models.UserPreferences
	err := s.db.Where("user_id = ?", userID).First(&prefs).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		d := utils.DefaultPlanPreferences()
		return &models.UserPreferences{
			UserID:       userID,
			WakeMinutes:  d.WakeMinutes,
			SleepMinutes: d.SleepMinutes,
			UseMelatonin: d.UseMelatonin,
			UseCaffeine:  d.UseCaffeine,
			UseExercise:  d.UseExercise,
			AllowNaps:    d.AllowNaps,
			Intensity:    d.Intensity,
			EmailEnabled: true,
			PushEnabled:  true,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return &prefs, nil
}

// UpdatePreferences validates and upserts; omitted fields keep their
// current (or default) values.
func (s *PreferenceService) UpdatePreferences(userID uint, input PreferencesInput) (*models.UserPreferences, error) {
	prefs, err := s.GetPreferences(userID)
	if err != nil {
		return nil, err
	}

	if input.WakeMinutes != nil {
		prefs.WakeMinutes = *input.WakeMinutes
	}
	if input.SleepMinutes != nil {
		prefs.SleepMinutes = *input.SleepMinutes
	}
	if input.UseMelatonin != nil {
		prefs.UseMelatonin = *input.UseMelatonin
	}
	if input.UseCaffeine != nil {
		prefs.UseCaffeine = *input.UseCaffeine
	}
	if input.UseExercise != nil {
		prefs.UseExercise = *input.UseExercise
	}
	if input.AllowNaps != nil {
		prefs.AllowNaps = *input.AllowNaps
	}
	if input.Intensity != nil {
		prefs.Intensity = *input.Intensity
	}
	if input.Use24HourClock != nil {
		prefs.Use24HourClock = *input.Use24HourClock
	}
	if input.EmailEnabled != nil {
		prefs.EmailEnabled = *input.EmailEnabled
	}
	if input.PushEnabled != nil {
		prefs.PushEnabled = *input.PushEnabled
	}

	if prefs.WakeMinutes < 0 || prefs.WakeMinutes > 1439 ||
		prefs.SleepMinutes < 0 || prefs.SleepMinutes > 1439 {
		return nil, utils.ErrAnchorsOutRange
	}
	switch prefs.Intensity {
	case utils.IntensityGentle, utils.IntensityStandard, utils.IntensityAggressive:
	default:
		return nil, utils.ErrBadIntensity
	}

	err = s.db.
		Where("user_id = ?", userID).
		Assign(map[string]interface{}{
			"wake_minutes":      prefs.WakeMinutes,
			"sleep_minutes":     prefs.SleepMinutes,
			"use_melatonin":     prefs.UseMelatonin,
			"use_caffeine":      prefs.UseCaffeine,
			"use_exercise":      prefs.UseExercise,
			"allow_naps":        prefs.AllowNaps,
			"intensity":         prefs.Intensity,
			"use_24_hour_clock": prefs.Use24HourClock,
			"email_enabled":     prefs.EmailEnabled,
			"push_enabled":      prefs.PushEnabled,
		}).
		FirstOrCreate(prefs).Error
	if err != nil {
		return nil, err
	}
	return prefs, nil
}

// PlanPreferences converts stored preferences into engine input.
func PlanPreferencesFrom(p *models.UserPreferences) utils.PlanPreferences {
	return utils.PlanPreferences{
		WakeMinutes:  p.WakeMinutes,
		SleepMinutes: p.SleepMinutes,
		UseMelatonin: p.UseMelatonin,
		UseCaffeine:  p.UseCaffeine,
		UseExercise:  p.UseExercise,
		AllowNaps:    p.AllowNaps,
		Intensity:    p.Intensity,
	}
}
