package services

import (
	"strconv"
)

type eventDeps struct {
	rt *RealtimeHub
	ps *PushService
}

var _events eventDeps

func InitEventDeps(rt *RealtimeHub, ps *PushService) {
	_events = eventDeps{rt: rt, ps: ps}
}

// EmitScheduleRecalculated fans a recalculation notice out to websocket
// clients and push devices. Safe to call before InitEventDeps.
func EmitScheduleRecalculated(userID *uint, scheduleID uint) {
	if userID == nil {
		return
	}
	if _events.rt != nil {
		_events.rt.Broadcast(*userID, EventScheduleRecalculated, map[string]any{
			"schedule_id": scheduleID,
		})
	}
	if _events.ps != nil {
		_events.ps.PushToUser(*userID, "Schedule updated",
			"Your jet lag plan was recalculated from today's progress.", map[string]string{
				"scheduleId": strconv.FormatUint(uint64(scheduleID), 10),
			})
	}
}

// EmitNotificationSent mirrors a dispatched flight-day notification to
// the user's open tabs.
func EmitNotificationSent(userID, scheduleID uint) {
	if _events.rt != nil {
		_events.rt.Broadcast(userID, EventNotificationSent, map[string]any{
			"schedule_id": scheduleID,
		})
	}
}
