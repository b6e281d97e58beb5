package sync

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calendar-sync/internal/cache"
	"calendar-sync/internal/common/errors"
	"calendar-sync/internal/models"
	"calendar-sync/internal/remote"
)

func setupTestEngine(t *testing.T) (*Engine, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	remoteStore, err := remote.NewStore(&remote.Config{Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { remoteStore.Close() })

	cacheStore, err := cache.NewStore(&cache.Config{
		DatabasePath: filepath.Join(t.TempDir(), "cache.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { cacheStore.Close() })

	engine := NewEngine(remoteStore, cacheStore, nil)
	engine.now = func() int64 { return 1750000000000 }
	return engine, mr
}

func TestEngine_CreateCalendar(t *testing.T) {
	engine, _ := setupTestEngine(t)
	ctx := context.Background()

	t.Run("writes through to the cache", func(t *testing.T) {
		cal, err := engine.CreateCalendar(ctx, "u1", "Work", "work stuff")
		require.NoError(t, err)
		require.NotEmpty(t, cal.ID)

		cached, err := engine.cache.GetCalendar(cal.ID)
		require.NoError(t, err)
		assert.Equal(t, "Work", cached.Title)
		assert.Equal(t, "u1", cached.OwnerID)
	})

	t.Run("blank owner rejected", func(t *testing.T) {
		_, err := engine.CreateCalendar(ctx, "", "Work", "")
		assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
	})
}

func TestEngine_CacheFallback(t *testing.T) {
	engine, mr := setupTestEngine(t)
	ctx := context.Background()

	cal, err := engine.CreateCalendar(ctx, "u1", "Offline-able", "")
	require.NoError(t, err)
	_, err = engine.AddHoliday(ctx, "u1", cal.ID, &models.Holiday{Name: "Kept", Date: "2025-01-01"})
	require.NoError(t, err)

	// Read once while online so the listing and holidays are cached.
	_, err = engine.GetUserCalendars(ctx, "u1")
	require.NoError(t, err)

	mr.Close()

	t.Run("calendar served from cache", func(t *testing.T) {
		got, err := engine.GetCalendar(ctx, cal.ID)
		require.NoError(t, err)
		assert.Equal(t, "Offline-able", got.Title)
	})

	t.Run("user listing served from cache", func(t *testing.T) {
		calendars, err := engine.GetUserCalendars(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, calendars, 1)
		assert.Equal(t, cal.ID, calendars[0].ID)
	})

	t.Run("holidays served from cache", func(t *testing.T) {
		holidays, err := engine.GetAllHolidays(ctx, cal.ID)
		require.NoError(t, err)
		require.Len(t, holidays, 1)
		assert.Equal(t, "Kept", holidays[0].Name)
	})

	t.Run("mutations never fall back", func(t *testing.T) {
		_, err := engine.AddHoliday(ctx, "u1", cal.ID, &models.Holiday{Name: "Rejected"})
		require.Error(t, err)
		assert.True(t, isUnreachable(err))
	})

	t.Run("uncached calendar stays missing", func(t *testing.T) {
		_, err := engine.GetCalendar(ctx, "never-seen")
		require.Error(t, err)
	})
}

func TestEngine_Holidays(t *testing.T) {
	engine, _ := setupTestEngine(t)
	ctx := context.Background()

	cal, err := engine.CreateCalendar(ctx, "u1", "Work", "")
	require.NoError(t, err)

	t.Run("add assigns ID and caches", func(t *testing.T) {
		h, err := engine.AddHoliday(ctx, "u1", cal.ID, &models.Holiday{Name: "Launch", Date: "2025-06-01"})
		require.NoError(t, err)
		require.NotEmpty(t, h.ID)
		assert.Equal(t, int64(1750000000000), h.CachedAt)

		cached, err := engine.cache.GetHoliday(h.ID)
		require.NoError(t, err)
		assert.Equal(t, "Launch", cached.Name)
	})

	t.Run("update is last-write-wins", func(t *testing.T) {
		h, err := engine.AddHoliday(ctx, "u1", cal.ID, &models.Holiday{Name: "Draft"})
		require.NoError(t, err)

		h.Name = "Final"
		require.NoError(t, engine.UpdateHoliday(ctx, "u1", cal.ID, h))

		list, err := engine.GetAllHolidays(ctx, cal.ID)
		require.NoError(t, err)
		for _, got := range list {
			if got.ID == h.ID {
				assert.Equal(t, "Final", got.Name)
			}
		}
	})

	t.Run("delete evicts the cache row", func(t *testing.T) {
		h, err := engine.AddHoliday(ctx, "u1", cal.ID, &models.Holiday{Name: "Temp"})
		require.NoError(t, err)

		require.NoError(t, engine.DeleteHoliday(ctx, "u1", cal.ID, h.ID))
		_, err = engine.cache.GetHoliday(h.ID)
		assert.ErrorIs(t, err, models.ErrHolidayNotFound)
	})

	t.Run("stranger may not add", func(t *testing.T) {
		_, err := engine.AddHoliday(ctx, "intruder", cal.ID, &models.Holiday{Name: "Nope"})
		assert.True(t, errors.IsType(err, errors.ErrTypePermission))
	})
}

func TestEngine_PublicHolidaysReadOnly(t *testing.T) {
	engine, _ := setupTestEngine(t)
	ctx := context.Background()

	cal, err := engine.CreateCalendar(ctx, "u1", "Public holidays DE", "")
	require.NoError(t, err)

	public, err := engine.AddHoliday(ctx, "u1", cal.ID, &models.Holiday{
		Name:    "Tag der Deutschen Einheit",
		Date:    "2025-10-03",
		Country: "DE",
		Source:  models.SourceTypePublic,
	})
	require.NoError(t, err)

	t.Run("update rejected", func(t *testing.T) {
		public.Name = "Renamed"
		err := engine.UpdateHoliday(ctx, "u1", cal.ID, public)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrTypePermission))
	})

	t.Run("delete rejected", func(t *testing.T) {
		err := engine.DeleteHoliday(ctx, "u1", cal.ID, public.ID)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrTypePermission))
	})
}

func TestEngine_DeleteCalendar(t *testing.T) {
	engine, _ := setupTestEngine(t)
	ctx := context.Background()

	cal, err := engine.CreateCalendar(ctx, "u1", "Doomed", "")
	require.NoError(t, err)
	h, err := engine.AddHoliday(ctx, "u1", cal.ID, &models.Holiday{Name: "Gone"})
	require.NoError(t, err)

	t.Run("non-owner rejected", func(t *testing.T) {
		err := engine.DeleteCalendar(ctx, "u2", cal.ID)
		assert.True(t, errors.IsType(err, errors.ErrTypePermission))
	})

	t.Run("owner cascade", func(t *testing.T) {
		require.NoError(t, engine.DeleteCalendar(ctx, "u1", cal.ID))

		_, err := engine.GetCalendar(ctx, cal.ID)
		require.Error(t, err)

		_, err = engine.cache.GetCalendar(cal.ID)
		assert.ErrorIs(t, err, models.ErrCalendarNotFound)
		_, err = engine.cache.GetHoliday(h.ID)
		assert.ErrorIs(t, err, models.ErrHolidayNotFound)
	})
}

func TestEngine_EnsureMeetingCalendar(t *testing.T) {
	engine, _ := setupTestEngine(t)
	ctx := context.Background()

	first, err := engine.EnsureMeetingCalendar(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, first.IsMeetingCalendar)
	assert.Equal(t, "Meetings", first.Title)

	// Second call reuses the existing one.
	second, err := engine.EnsureMeetingCalendar(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	calendars, err := engine.GetUserCalendars(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, calendars, 1)
}

func TestEngine_AsyncFacade(t *testing.T) {
	engine, _ := setupTestEngine(t)
	ctx := context.Background()

	t.Run("create delivers success", func(t *testing.T) {
		done := make(chan struct{})
		var got *models.Calendar
		var gotErr error

		engine.CreateCalendarAsync(ctx, "u1", "Async", "", func(cal *models.Calendar, err error) {
			got, gotErr = cal, err
			close(done)
		})

		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("callback never fired")
		}
		require.NoError(t, gotErr)
		assert.Equal(t, "Async", got.Title)
	})

	t.Run("failure delivered as error value", func(t *testing.T) {
		done := make(chan error, 1)
		engine.UpdateHolidayAsync(ctx, "u1", "no-such-calendar", &models.Holiday{ID: "h1"}, func(err error) {
			done <- err
		})

		select {
		case err := <-done:
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))
		case <-time.After(5 * time.Second):
			t.Fatal("callback never fired")
		}
	})
}
