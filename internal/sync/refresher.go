package sync

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"calendar-sync/internal/common/errors"
	"calendar-sync/internal/common/logging"
)

const refreshTimeout = 30 * time.Second

// Refresher periodically re-reads the primary user's calendars from the
// remote so the cache stays warm while the app is idle. Each run is a plain
// engine read; the write-through path inside the engine does the caching.
type Refresher struct {
	engine   *Engine
	schedule string
	logger   logging.Logger

	cron    *cron.Cron
	entryID cron.EntryID
}

func NewRefresher(engine *Engine, schedule string, logger logging.Logger) (*Refresher, error) {
	if engine == nil {
		return nil, errors.ValidationError("engine is required")
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, errors.ValidationError("invalid refresh schedule").
			WithContext("schedule", schedule)
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	return &Refresher{
		engine:   engine,
		schedule: schedule,
		logger:   logger.WithFields(logging.String("component", "refresher")),
		cron:     cron.New(),
	}, nil
}

func (r *Refresher) Start() error {
	id, err := r.cron.AddFunc(r.schedule, r.runOnce)
	if err != nil {
		return errors.InternalError("failed to schedule refresh", err)
	}
	r.entryID = id
	r.cron.Start()
	r.logger.Info("refresher started", logging.String("schedule", r.schedule))
	return nil
}

// Stop halts the schedule and waits for an in-flight run to finish.
func (r *Refresher) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.logger.Info("refresher stopped")
}

func (r *Refresher) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	if err := r.Refresh(ctx); err != nil {
		r.logger.Warn("refresh run failed", logging.Err(err))
	}
}

// Refresh re-reads every calendar visible to the device's primary user.
// With no primary user cached yet there is nothing to refresh.
func (r *Refresher) Refresh(ctx context.Context) error {
	user, err := r.engine.cache.GetPrimaryUser()
	if err != nil {
		r.logger.Debug("no primary user cached, skipping refresh")
		return nil
	}

	calendars, err := r.engine.GetUserCalendars(ctx, user.ID)
	if err != nil {
		return err
	}

	refreshed := 0
	for _, cal := range calendars {
		if _, err := r.engine.GetAllHolidays(ctx, cal.ID); err != nil {
			r.logger.Warn("failed to refresh calendar holidays",
				logging.String("calendar_id", cal.ID), logging.Err(err))
			continue
		}
		refreshed++
	}

	r.logger.Info("cache refreshed",
		logging.String("user_id", user.ID),
		logging.Int("calendars", refreshed))
	return nil
}
