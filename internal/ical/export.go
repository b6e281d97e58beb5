// Package ical renders a calendar's holidays as an iCalendar document for
// hand-off to other calendar apps.
package ical

import (
	"bytes"
	"strings"
	"time"

	ics "github.com/emersion/go-ical"

	"calendar-sync/internal/common/errors"
	"calendar-sync/internal/models"
)

const prodID = "-//calendar-sync//EN"

// Export renders the calendar and its holidays as an iCalendar document.
// Holidays without a parseable date are left out.
func Export(cal *models.Calendar, holidays []*models.Holiday) ([]byte, error) {
	if cal == nil {
		return nil, errors.ValidationError("calendar is required")
	}

	doc := ics.NewCalendar()
	doc.Props.SetText(ics.PropVersion, "2.0")
	doc.Props.SetText(ics.PropProductID, prodID)
	if cal.Title != "" {
		doc.Props.SetText("X-WR-CALNAME", cal.Title)
	}

	for _, h := range holidays {
		event, ok := holidayEvent(cal.ID, h)
		if !ok {
			continue
		}
		doc.Children = append(doc.Children, event.Component)
	}

	var buf bytes.Buffer
	if err := ics.NewEncoder(&buf).Encode(doc); err != nil {
		return nil, errors.InternalError("failed to encode calendar", err)
	}
	return buf.Bytes(), nil
}

func holidayEvent(calendarID string, h *models.Holiday) (*ics.Event, bool) {
	start, end, ok := eventTimes(h)
	if !ok {
		return nil, false
	}

	event := ics.NewEvent()
	event.Props.SetText(ics.PropUID, h.ID+"@"+calendarID)
	event.Props.SetDateTime(ics.PropDateTimeStamp, time.Now().UTC())
	event.Props.SetDateTime(ics.PropDateTimeStart, start)
	event.Props.SetDateTime(ics.PropDateTimeEnd, end)
	event.Props.SetText(ics.PropSummary, h.Name)
	if h.Desc != "" {
		event.Props.SetText(ics.PropDescription, h.Desc)
	}
	if rule, ok := repeatRule(h.Repeat); ok {
		event.Props.SetText("RRULE", rule)
	}
	if len(h.Type) > 0 {
		event.Props.SetText(ics.PropCategories, strings.Join(h.Type, ","))
	}
	return event, true
}

func eventTimes(h *models.Holiday) (time.Time, time.Time, bool) {
	if h.TimeStart != nil {
		start := time.UnixMilli(*h.TimeStart).UTC()
		end := start.Add(time.Hour)
		if h.TimeEnd != nil && *h.TimeEnd > *h.TimeStart {
			end = time.UnixMilli(*h.TimeEnd).UTC()
		}
		return start, end, true
	}

	dateStr := h.Date
	if dateStr == "" {
		dateStr = h.DateStart
	}
	day, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}

	end := day.Add(24 * time.Hour)
	if h.DateEnd != "" {
		if last, err := time.Parse("2006-01-02", h.DateEnd); err == nil && last.After(day) {
			end = last.Add(24 * time.Hour)
		}
	}
	return day, end, true
}

func repeatRule(repeat []string) (string, bool) {
	for _, tag := range repeat {
		switch tag {
		case models.RepeatDaily:
			return "FREQ=DAILY", true
		case models.RepeatWeekly:
			return "FREQ=WEEKLY", true
		case models.RepeatMonthly:
			return "FREQ=MONTHLY", true
		case models.RepeatAnnually:
			return "FREQ=YEARLY", true
		}
	}
	return "", false
}
