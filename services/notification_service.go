package services

import (
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/davidrecordon/dawnward-sub002/models"
	"github.com/davidrecordon/dawnward-sub002/utils"

	"gorm.io/gorm"
)

// cron batch size; scheduler invocations are short-lived so the rest
// waits for the next tick
const notificationBatchSize = 50

// EmailSender lets tests swap out SES.
type EmailSender interface {
	Send(to, subject, body string) error
}

type sesSender struct{}

func (sesSender) Send(to, subject, body string) error {
	return utils.SendEmail(to, subject, body)
}

func NewSESSender() EmailSender { return sesSender{} }

type NotificationService struct {
	db     *gorm.DB
	sender EmailSender
	push   *PushService // nil when push is not configured
}

func NewNotificationService(db *gorm.DB, sender EmailSender, push *PushService) *NotificationService {
	return &NotificationService{db: db, sender: sender, push: push}
}

type DispatchResult struct {
	Processed int `json:"processed"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// ProcessDue sends pending flight-day notifications whose send_at has
// passed. Items are handled sequentially and failures are isolated: a
// bad record gets its error stored and the batch moves on.
func (s *NotificationService) ProcessDue(now time.Time) (*DispatchResult, error) {
	var pending []models.FlightNotification
	err := s.db.
		Where("sent_at IS NULL AND send_at <= ?", now).
		Order("send_at ASC").
		Limit(notificationBatchSize).
		Find(&pending).Error
	if err != nil {
		return nil, err
	}

	res := &DispatchResult{}
	for i := range pending {
		n := &pending[i]
		res.Processed++
		if err := s.dispatchOne(n, now); err != nil {
			res.Failed++
			n.Attempts++
			n.LastError = err.Error()
			if err := s.db.Save(n).Error; err != nil {
				log.Printf("notification %d: failed to record error: %v", n.ID, err)
			}
			continue
		}
		if n.SentAt == nil {
			res.Skipped++
			ts := now.UTC()
			n.SentAt = &ts // nothing to send; don't retry forever
		} else {
			res.Sent++
		}
		if err := s.db.Save(n).Error; err != nil {
			log.Printf("notification %d: failed to mark sent: %v", n.ID, err)
		}
	}
	return res, nil
}

func (s *NotificationService) dispatchOne(n *models.FlightNotification, now time.Time) error {
	var trip models.SharedSchedule
	if err := s.db.First(&trip, n.ScheduleID).Error; err != nil {
		return err
	}
	if trip.UserID == nil {
		return nil // anonymous trip, nowhere to send
	}

	var user models.User
	if err := s.db.First(&user, *trip.UserID).Error; err != nil {
		return err
	}

	var prefs models.UserPreferences
	emailOn, pushOn, use24 := true, true, false
	if err := s.db.Where("user_id = ?", user.ID).First(&prefs).Error; err == nil {
		emailOn, pushOn, use24 = prefs.EmailEnabled, prefs.PushEnabled, prefs.Use24HourClock
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if !emailOn && !pushOn {
		return nil
	}

	sched, err := StoredSchedule(&trip)
	if err != nil {
		return err
	}
	day := flightDayPlan(sched)
	if day == nil {
		return errors.New("schedule has no flight day")
	}

	if emailOn {
		subject := "Flight day: your Dawnward plan for " + day.Date
		body := utils.FlightDayEmailBody(trip.DestinationTimezone, *day, use24)
		if err := s.sender.Send(user.Email, subject, body); err != nil {
			return err
		}
	}
	if pushOn && s.push != nil {
		s.push.PushToUser(user.ID, "Flight day", "Your Dawnward plan for today is ready.", map[string]string{
			"scheduleId": strconv.FormatUint(uint64(trip.ID), 10),
		})
	}
	EmitNotificationSent(user.ID, trip.ID)

	ts := now.UTC()
	n.SentAt = &ts
	return nil
}

func flightDayPlan(sched *utils.Schedule) *utils.DayPlan {
	for i := range sched.Days {
		if sched.Days[i].DayOffset == 0 {
			return &sched.Days[i]
		}
	}
	return nil
}
