package sync

import (
	"context"

	"calendar-sync/internal/models"
)

// Callback types for the asynchronous facade. Each completion is delivered
// on its own goroutine and fires exactly once, with either a value or an
// error, never both.

type CalendarCallback func(*models.Calendar, error)
type CalendarsCallback func([]*models.Calendar, error)
type HolidayCallback func(*models.Holiday, error)
type HolidaysCallback func([]*models.Holiday, error)
type ShareCallback func(*models.SharedUserInfo, error)
type DoneCallback func(error)

// CreateCalendarAsync runs CreateCalendar on a goroutine and delivers the
// result through onResult.
func (e *Engine) CreateCalendarAsync(ctx context.Context, ownerID, title, description string, onResult CalendarCallback) {
	go func() {
		cal, err := e.CreateCalendar(ctx, ownerID, title, description)
		onResult(cal, err)
	}()
}

func (e *Engine) GetCalendarAsync(ctx context.Context, calendarID string, onResult CalendarCallback) {
	go func() {
		cal, err := e.GetCalendar(ctx, calendarID)
		onResult(cal, err)
	}()
}

func (e *Engine) GetUserCalendarsAsync(ctx context.Context, userID string, onResult CalendarsCallback) {
	go func() {
		calendars, err := e.GetUserCalendars(ctx, userID)
		onResult(calendars, err)
	}()
}

func (e *Engine) DeleteCalendarAsync(ctx context.Context, actorID, calendarID string, onDone DoneCallback) {
	go func() {
		onDone(e.DeleteCalendar(ctx, actorID, calendarID))
	}()
}

func (e *Engine) AddHolidayAsync(ctx context.Context, actorID, calendarID string, h *models.Holiday, onResult HolidayCallback) {
	go func() {
		added, err := e.AddHoliday(ctx, actorID, calendarID, h)
		onResult(added, err)
	}()
}

func (e *Engine) UpdateHolidayAsync(ctx context.Context, actorID, calendarID string, h *models.Holiday, onDone DoneCallback) {
	go func() {
		onDone(e.UpdateHoliday(ctx, actorID, calendarID, h))
	}()
}

func (e *Engine) DeleteHolidayAsync(ctx context.Context, actorID, calendarID, holidayID string, onDone DoneCallback) {
	go func() {
		onDone(e.DeleteHoliday(ctx, actorID, calendarID, holidayID))
	}()
}

func (e *Engine) GetAllHolidaysAsync(ctx context.Context, calendarID string, onResult HolidaysCallback) {
	go func() {
		holidays, err := e.GetAllHolidays(ctx, calendarID)
		onResult(holidays, err)
	}()
}

func (e *Engine) InviteAsync(ctx context.Context, calendarID, actorID, targetID string, canEdit, canShare bool, onResult ShareCallback) {
	go func() {
		info, err := e.Invite(ctx, calendarID, actorID, targetID, canEdit, canShare)
		onResult(info, err)
	}()
}

func (e *Engine) AcceptAsync(ctx context.Context, calendarID, actorID string, onResult ShareCallback) {
	go func() {
		info, err := e.Accept(ctx, calendarID, actorID)
		onResult(info, err)
	}()
}

func (e *Engine) RevokeAsync(ctx context.Context, calendarID, actorID, targetID string, onDone DoneCallback) {
	go func() {
		onDone(e.Revoke(ctx, calendarID, actorID, targetID))
	}()
}
