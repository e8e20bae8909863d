package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/davidrecordon/dawnward-sub002/models"
	"github.com/davidrecordon/dawnward-sub002/utils"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"gorm.io/gorm"
)

// ErrReauthRequired means the Google grant is missing, expired or lacks
// the Calendar scope; the client should re-run the consent flow.
var ErrReauthRequired = errors.New("google calendar authorization required")

type CalendarService struct {
	db    *gorm.DB
	oauth *GoogleOAuth
}

func NewCalendarService(db *gorm.DB, oauth *GoogleOAuth) *CalendarService {
	return &CalendarService{db: db, oauth: oauth}
}

// interventions that become calendar events; avoid-windows and the
// caffeine cutoff would just be noise on a calendar
var syncedInterventions = map[string]string{
	utils.InterventionLightSeek:   "Seek bright light",
	utils.InterventionMelatonin:   "Take melatonin",
	utils.InterventionSleepTarget: "Wind down for sleep",
	utils.InterventionWakeTarget:  "Wake up",
	utils.InterventionNap:         "Optional nap",
	utils.InterventionExercise:    "Exercise",
}

// Sync pushes the current plan onto the user's primary Google calendar,
// replacing any events from a previous sync.
func (s *CalendarService) Sync(ctx context.Context, userID uint, trip *models.SharedSchedule) (int, error) {
	account, err := GoogleAccount(s.db, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrReauthRequired
	}
	if err != nil {
		return 0, err
	}
	if !HasCalendarScope(account) || !tokenValid(account) {
		return 0, ErrReauthRequired
	}

	svc, err := calendar.NewService(ctx, option.WithTokenSource(s.oauth.TokenSource(ctx, s.db, account)))
	if err != nil {
		return 0, err
	}

	// drop stale events from an earlier sync first
	if err := s.deleteStored(svc, trip); err != nil {
		return 0, err
	}

	sched, err := StoredSchedule(trip)
	if err != nil {
		return 0, err
	}

	var created []string
	for _, day := range sched.Days {
		for _, iv := range day.Interventions {
			title, ok := syncedInterventions[iv.Type]
			if !ok {
				continue
			}
			ev, err := buildEvent(day, iv, title)
			if err != nil {
				continue
			}
			out, err := svc.Events.Insert("primary", ev).Context(ctx).Do()
			if err != nil {
				if isAuthError(err) {
					return len(created), ErrReauthRequired
				}
				return len(created), err
			}
			created = append(created, out.Id)
		}
	}

	idsJSON, _ := json.Marshal(created)
	if err := s.db.Model(trip).Update("calendar_events_json", string(idsJSON)).Error; err != nil {
		return len(created), err
	}
	trip.CalendarEventsJSON = string(idsJSON)
	return len(created), nil
}

// Unsync removes previously created events. Individual deletes are
// best-effort; an event the user already removed is not an error.
func (s *CalendarService) Unsync(ctx context.Context, userID uint, trip *models.SharedSchedule) error {
	account, err := GoogleAccount(s.db, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrReauthRequired
	}
	if err != nil {
		return err
	}
	if !tokenValid(account) {
		return ErrReauthRequired
	}

	svc, err := calendar.NewService(ctx, option.WithTokenSource(s.oauth.TokenSource(ctx, s.db, account)))
	if err != nil {
		return err
	}
	if err := s.deleteStored(svc, trip); err != nil {
		return err
	}
	if err := s.db.Model(trip).Update("calendar_events_json", "").Error; err != nil {
		return err
	}
	trip.CalendarEventsJSON = ""
	return nil
}

func (s *CalendarService) deleteStored(svc *calendar.Service, trip *models.SharedSchedule) error {
	if trip.CalendarEventsJSON == "" {
		return nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(trip.CalendarEventsJSON), &ids); err != nil {
		return nil // unreadable sync state, nothing to delete
	}
	for _, id := range ids {
		if err := svc.Events.Delete("primary", id).Do(); err != nil {
			if isAuthError(err) {
				return ErrReauthRequired
			}
			log.Printf("calendar: delete %s: %v", id, err)
		}
	}
	return nil
}

func buildEvent(day utils.DayPlan, iv utils.Intervention, title string) (*calendar.Event, error) {
	loc, err := time.LoadLocation(day.Timezone)
	if err != nil {
		return nil, err
	}
	date, err := time.ParseInLocation("2006-01-02", day.Date, loc)
	if err != nil {
		return nil, err
	}

	start := date.Add(time.Duration(iv.StartMinutes) * time.Minute)
	endMin := iv.EndMinutes
	if endMin <= iv.StartMinutes {
		endMin = iv.StartMinutes + 15 // point events get a visible block
	}
	end := date.Add(time.Duration(endMin) * time.Minute)

	desc := iv.Note
	if desc == "" {
		desc = fmt.Sprintf("Dawnward jet lag plan, day %+d", day.DayOffset)
	}
	return &calendar.Event{
		Summary:     "Dawnward: " + title,
		Description: desc,
		Start:       &calendar.EventDateTime{DateTime: start.Format(time.RFC3339), TimeZone: day.Timezone},
		End:         &calendar.EventDateTime{DateTime: end.Format(time.RFC3339), TimeZone: day.Timezone},
	}, nil
}

func isAuthError(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == 401 || gerr.Code == 403
	}
	return false
}
