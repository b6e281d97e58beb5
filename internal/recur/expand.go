// Package recur expands a holiday's repeat tags into concrete occurrences
// inside a query window.
package recur

import (
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	"calendar-sync/internal/common/errors"
	"calendar-sync/internal/models"
)

// DefaultMaxOccurrences caps a single expansion so an unbounded rule
// cannot flood a response.
const DefaultMaxOccurrences = 366

// Occurrence is one concrete instance of a holiday inside the window.
type Occurrence struct {
	HolidayID string    `json:"holidayId"`
	Name      string    `json:"name"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end,omitempty"`
	AllDay    bool      `json:"allDay"`
}

// ExpandConfig bounds one expansion run.
type ExpandConfig struct {
	RangeStart     time.Time
	RangeEnd       time.Time
	MaxOccurrences int
}

func (c ExpandConfig) withDefaults() ExpandConfig {
	if c.MaxOccurrences <= 0 {
		c.MaxOccurrences = DefaultMaxOccurrences
	}
	return c
}

// Expand produces every occurrence of the given holidays inside the window,
// ordered by start time. Holidays without a parseable anchor date are
// skipped; a repeat tag the expander does not know is treated as
// non-repeating.
func Expand(holidays []*models.Holiday, cfg ExpandConfig) ([]Occurrence, error) {
	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return nil, errors.ValidationError("range end precedes range start")
	}
	cfg = cfg.withDefaults()

	out := make([]Occurrence, 0)
	for _, h := range holidays {
		occ := expandOne(h, cfg)
		if len(out)+len(occ) > cfg.MaxOccurrences {
			occ = occ[:cfg.MaxOccurrences-len(out)]
		}
		out = append(out, occ...)
		if len(out) >= cfg.MaxOccurrences {
			break
		}
	}

	sortOccurrences(out)
	return out, nil
}

func expandOne(h *models.Holiday, cfg ExpandConfig) []Occurrence {
	start, allDay, ok := anchorStart(h)
	if !ok {
		return nil
	}

	freq, repeats := frequencyFor(h.Repeat)
	if !repeats {
		if start.Before(cfg.RangeStart) || start.After(cfg.RangeEnd) {
			return nil
		}
		return []Occurrence{makeOccurrence(h, start, allDay)}
	}

	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    freq,
		Dtstart: start,
	})
	if err != nil {
		return nil
	}

	times := r.Between(cfg.RangeStart, cfg.RangeEnd, true)
	if len(times) > cfg.MaxOccurrences {
		times = times[:cfg.MaxOccurrences]
	}

	out := make([]Occurrence, 0, len(times))
	for _, t := range times {
		out = append(out, makeOccurrence(h, t, allDay))
	}
	return out
}

// anchorStart resolves the holiday's first occurrence: the ISO date field
// plus the optional start time.
func anchorStart(h *models.Holiday) (time.Time, bool, bool) {
	dateStr := h.Date
	if dateStr == "" {
		dateStr = h.DateStart
	}
	if dateStr == "" {
		return time.Time{}, false, false
	}

	day, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return time.Time{}, false, false
	}

	if h.TimeStart == nil {
		return day, true, true
	}
	return time.UnixMilli(*h.TimeStart).UTC(), false, true
}

func makeOccurrence(h *models.Holiday, start time.Time, allDay bool) Occurrence {
	occ := Occurrence{
		HolidayID: h.ID,
		Name:      h.Name,
		Start:     start,
		AllDay:    allDay,
	}
	if allDay {
		occ.End = start.Add(24 * time.Hour)
		return occ
	}
	if h.TimeStart != nil && h.TimeEnd != nil {
		dur := time.UnixMilli(*h.TimeEnd).Sub(time.UnixMilli(*h.TimeStart))
		if dur > 0 {
			occ.End = start.Add(dur)
		}
	}
	return occ
}

// frequencyFor maps the first recognized repeat tag to an rrule frequency.
func frequencyFor(repeat []string) (rrule.Frequency, bool) {
	for _, tag := range repeat {
		switch tag {
		case models.RepeatDaily:
			return rrule.DAILY, true
		case models.RepeatWeekly:
			return rrule.WEEKLY, true
		case models.RepeatMonthly:
			return rrule.MONTHLY, true
		case models.RepeatAnnually:
			return rrule.YEARLY, true
		}
	}
	return rrule.DAILY, false
}

func sortOccurrences(out []Occurrence) {
	sort.Slice(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})
}
