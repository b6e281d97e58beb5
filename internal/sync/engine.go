// Package sync reconciles the authoritative remote store with the local
// cache and enforces sharing permissions for every mutation.
//
// The remote is the single source of truth. The cache is written only after
// a confirmed remote read or write, and the remote copy replaces whatever
// the cache held. When the remote is unreachable, reads fall back to the
// cache; mutations never do.
package sync

import (
	"context"
	"time"

	"calendar-sync/internal/cache"
	"calendar-sync/internal/common/errors"
	"calendar-sync/internal/common/logging"
	"calendar-sync/internal/models"
	"calendar-sync/internal/remote"
)

const meetingCalendarTitle = "Meetings"

type Engine struct {
	remote *remote.Store
	cache  *cache.Store
	logger logging.Logger

	// now is swapped out in tests for deterministic timestamps.
	now func() int64
}

func NewEngine(remoteStore *remote.Store, cacheStore *cache.Store, logger logging.Logger) *Engine {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Engine{
		remote: remoteStore,
		cache:  cacheStore,
		logger: logger.WithFields(logging.String("component", "sync_engine")),
		now:    func() int64 { return time.Now().UnixMilli() },
	}
}

// CreateCalendar writes a new calendar to the remote and, on success, to
// the cache.
func (e *Engine) CreateCalendar(ctx context.Context, ownerID, title, description string) (*models.Calendar, error) {
	if ownerID == "" {
		return nil, errors.ValidationError("owner ID is required")
	}

	cal, err := e.remote.CreateCalendar(ctx, &models.Calendar{
		Title:       title,
		Description: description,
		OwnerID:     ownerID,
	})
	if err != nil {
		e.logger.Error("failed to create calendar", err, logging.String("owner_id", ownerID))
		return nil, err
	}

	e.cacheCalendar(cal)
	e.logger.Info("calendar created",
		logging.String("calendar_id", cal.ID),
		logging.String("owner_id", ownerID))
	return cal, nil
}

// GetCalendar reads a calendar from the remote, falling back to the cache
// when the remote is unreachable.
func (e *Engine) GetCalendar(ctx context.Context, calendarID string) (*models.Calendar, error) {
	cal, err := e.remote.GetCalendar(ctx, calendarID)
	if err == nil {
		e.cacheCalendar(cal)
		return cal, nil
	}
	if !isUnreachable(err) {
		return nil, err
	}

	cached, cacheErr := e.cache.GetCalendar(calendarID)
	if cacheErr != nil {
		return nil, err
	}
	e.logger.Warn("serving calendar from cache",
		logging.String("calendar_id", calendarID), logging.Err(err))
	return cached, nil
}

// GetUserCalendars lists everything the user owns or is shared into. On a
// degraded remote read the cache serves whatever it last saw for the user.
func (e *Engine) GetUserCalendars(ctx context.Context, userID string) ([]*models.Calendar, error) {
	if userID == "" {
		return nil, errors.ValidationError("user ID is required")
	}

	calendars, err := e.remote.GetUserCalendars(ctx, userID)
	if err == nil {
		for _, cal := range calendars {
			e.cacheCalendar(cal)
		}
		return calendars, nil
	}
	if !isUnreachable(err) {
		return nil, err
	}

	e.logger.Warn("serving user calendars from cache",
		logging.String("user_id", userID), logging.Err(err))
	return e.cachedUserCalendars(userID)
}

// DeleteCalendar removes a calendar and its subtree. Owner only.
func (e *Engine) DeleteCalendar(ctx context.Context, actorID, calendarID string) error {
	cal, err := e.remote.GetCalendar(ctx, calendarID)
	if err != nil {
		return err
	}
	if cal.OwnerID != actorID {
		return errors.PermissionError("only the owner can delete a calendar").
			WithContext("calendar_id", calendarID)
	}

	if err := e.remote.DeleteCalendar(ctx, calendarID); err != nil {
		return err
	}

	if err := e.cache.DeleteCalendar(calendarID); err != nil {
		e.logger.Warn("failed to evict deleted calendar from cache", logging.Err(err))
	}
	if err := e.cache.DeleteHolidaysByCalendar(calendarID); err != nil {
		e.logger.Warn("failed to evict deleted holidays from cache", logging.Err(err))
	}

	e.logger.Info("calendar deleted", logging.String("calendar_id", calendarID))
	return nil
}

// EnsureMeetingCalendar returns the user's meeting calendar, creating it on
// first use.
func (e *Engine) EnsureMeetingCalendar(ctx context.Context, ownerID string) (*models.Calendar, error) {
	if ownerID == "" {
		return nil, errors.ValidationError("owner ID is required")
	}

	calendars, err := e.remote.GetUserCalendars(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	for _, cal := range calendars {
		if cal.IsMeetingCalendar && cal.OwnerID == ownerID {
			return cal, nil
		}
	}

	cal, err := e.remote.CreateCalendar(ctx, &models.Calendar{
		Title:             meetingCalendarTitle,
		OwnerID:           ownerID,
		IsMeetingCalendar: true,
	})
	if err != nil {
		return nil, err
	}
	e.cacheCalendar(cal)
	return cal, nil
}

// AddHoliday adds a holiday to a calendar the actor may edit.
func (e *Engine) AddHoliday(ctx context.Context, actorID, calendarID string, h *models.Holiday) (*models.Holiday, error) {
	if h == nil {
		return nil, errors.ValidationError("holiday is required")
	}

	if err := e.requireEditRights(ctx, actorID, calendarID); err != nil {
		return nil, err
	}

	added, err := e.remote.AddHoliday(ctx, calendarID, h)
	if err != nil {
		e.logger.Error("failed to add holiday", err, logging.String("calendar_id", calendarID))
		return nil, err
	}

	added.CachedAt = e.now()
	e.cacheHoliday(calendarID, added)
	return added, nil
}

// UpdateHoliday overwrites a holiday in full. The write is last-write-wins.
// Public-source holidays are read-only copies and never mutated.
func (e *Engine) UpdateHoliday(ctx context.Context, actorID, calendarID string, h *models.Holiday) error {
	if h == nil || h.ID == "" {
		return errors.ValidationError("holiday ID is required")
	}

	if err := e.requireEditRights(ctx, actorID, calendarID); err != nil {
		return err
	}

	existing, err := e.remote.GetHoliday(ctx, calendarID, h.ID)
	if err != nil {
		return err
	}
	if existing.IsPublic() {
		return errors.PermissionError("public holidays are read-only").
			WithContext("holiday_id", h.ID)
	}

	if err := e.remote.UpdateHoliday(ctx, calendarID, h); err != nil {
		return err
	}

	h.CachedAt = e.now()
	e.cacheHoliday(calendarID, h)
	return nil
}

// DeleteHoliday removes a holiday the actor may edit. Public-source
// holidays cannot be removed through the engine.
func (e *Engine) DeleteHoliday(ctx context.Context, actorID, calendarID, holidayID string) error {
	if err := e.requireEditRights(ctx, actorID, calendarID); err != nil {
		return err
	}

	existing, err := e.remote.GetHoliday(ctx, calendarID, holidayID)
	if err != nil {
		return err
	}
	if existing.IsPublic() {
		return errors.PermissionError("public holidays are read-only").
			WithContext("holiday_id", holidayID)
	}

	if err := e.remote.DeleteHoliday(ctx, calendarID, holidayID); err != nil {
		return err
	}

	if err := e.cache.DeleteHoliday(holidayID); err != nil {
		e.logger.Warn("failed to evict deleted holiday from cache", logging.Err(err))
	}
	return nil
}

// GetAllHolidays lists a calendar's holidays, serving the cache when the
// remote read degrades.
func (e *Engine) GetAllHolidays(ctx context.Context, calendarID string) ([]*models.Holiday, error) {
	holidays, err := e.remote.GetAllHolidays(ctx, calendarID)
	if err == nil {
		now := e.now()
		for _, h := range holidays {
			h.CachedAt = now
			e.cacheHoliday(calendarID, h)
		}
		return holidays, nil
	}
	if !isUnreachable(err) {
		return nil, err
	}

	e.logger.Warn("serving holidays from cache",
		logging.String("calendar_id", calendarID), logging.Err(err))
	return e.cache.ListHolidaysByCalendar(calendarID)
}

// cacheCalendar writes a confirmed remote snapshot through to the cache.
// Cache failures are logged, never surfaced: the remote result stands.
func (e *Engine) cacheCalendar(cal *models.Calendar) {
	if err := e.cache.UpsertCalendar(cal); err != nil {
		e.logger.Warn("failed to cache calendar",
			logging.String("calendar_id", cal.ID), logging.Err(err))
		return
	}
	for id := range cal.Holidays {
		h := cal.Holidays[id]
		e.cacheHoliday(cal.ID, &h)
	}
}

func (e *Engine) cacheHoliday(calendarID string, h *models.Holiday) {
	if err := e.cache.UpsertHoliday(calendarID, h); err != nil {
		e.logger.Warn("failed to cache holiday",
			logging.String("holiday_id", h.ID), logging.Err(err))
	}
}

// cachedUserCalendars filters the cache down to calendars the user owns or
// holds a sharing entry for.
func (e *Engine) cachedUserCalendars(userID string) ([]*models.Calendar, error) {
	all, err := e.cache.ListCalendars()
	if err != nil {
		return nil, err
	}

	visible := make([]*models.Calendar, 0, len(all))
	for _, cal := range all {
		if cal.OwnerID == userID {
			visible = append(visible, cal)
			continue
		}
		if _, ok := cal.SharedWith[userID]; ok {
			visible = append(visible, cal)
		}
	}
	return visible, nil
}

// isUnreachable reports whether an error means the remote could not be
// reached, as opposed to rejecting the request.
func isUnreachable(err error) bool {
	return errors.IsType(err, errors.ErrTypeReadDegraded) ||
		errors.IsType(err, errors.ErrTypeConnection)
}
