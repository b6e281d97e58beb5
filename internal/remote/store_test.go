package remote

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calendar-sync/internal/common/errors"
	"calendar-sync/internal/models"
)

func setupTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	store, err := NewStore(&Config{
		Address:  mr.Addr(),
		PoolSize: 10,
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store, mr
}

func TestNewStore(t *testing.T) {
	t.Run("successful connection", func(t *testing.T) {
		store, _ := setupTestStore(t)
		assert.NoError(t, store.Health())
	})

	t.Run("unreachable server", func(t *testing.T) {
		_, err := NewStore(&Config{Address: "localhost:1"})
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrTypeConnection))
	})

	t.Run("invalid db rejected", func(t *testing.T) {
		_, err := NewStore(&Config{DB: 42})
		assert.Error(t, err)
	})
}

func TestStore_CreateCalendar(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	t.Run("assigns ID when blank", func(t *testing.T) {
		cal, err := store.CreateCalendar(ctx, &models.Calendar{OwnerID: "u1", Title: "Work"})
		require.NoError(t, err)
		assert.NotEmpty(t, cal.ID)

		got, err := store.GetCalendar(ctx, cal.ID)
		require.NoError(t, err)
		assert.Equal(t, "Work", got.Title)
		assert.Equal(t, "u1", got.OwnerID)
	})

	t.Run("keeps caller-assigned ID", func(t *testing.T) {
		cal, err := store.CreateCalendar(ctx, &models.Calendar{ID: "cal-fixed", OwnerID: "u1"})
		require.NoError(t, err)
		assert.Equal(t, "cal-fixed", cal.ID)
	})

	t.Run("repeated write to fixed path is idempotent", func(t *testing.T) {
		in := &models.Calendar{ID: "cal-idem", OwnerID: "u1", Title: "Same"}
		_, err := store.CreateCalendar(ctx, in)
		require.NoError(t, err)
		_, err = store.CreateCalendar(ctx, in)
		require.NoError(t, err)

		calendars, err := store.GetUserCalendars(ctx, "u1")
		require.NoError(t, err)

		seen := 0
		for _, c := range calendars {
			if c.ID == "cal-idem" {
				seen++
			}
		}
		assert.Equal(t, 1, seen)
	})

	t.Run("nested snapshot written too", func(t *testing.T) {
		in := &models.Calendar{
			ID:      "cal-nested",
			OwnerID: "u1",
			Holidays: map[string]models.Holiday{
				"h1": {ID: "h1", Name: "Launch", Date: "2025-06-01"},
			},
			SharedWith: map[string]models.SharedUserInfo{
				"u2": {Status: models.ShareStatusPending, InvitedAt: 1700000000000},
			},
		}
		_, err := store.CreateCalendar(ctx, in)
		require.NoError(t, err)

		got, err := store.GetCalendar(ctx, "cal-nested")
		require.NoError(t, err)
		require.Contains(t, got.Holidays, "h1")
		assert.Equal(t, "Launch", got.Holidays["h1"].Name)
		require.Contains(t, got.SharedWith, "u2")
		assert.Equal(t, models.ShareStatusPending, got.SharedWith["u2"].Status)

		// Invited user sees the calendar in their listing.
		shared, err := store.GetUserCalendars(ctx, "u2")
		require.NoError(t, err)
		require.Len(t, shared, 1)
		assert.Equal(t, "cal-nested", shared[0].ID)
	})

	t.Run("missing owner rejected without write", func(t *testing.T) {
		_, err := store.CreateCalendar(ctx, &models.Calendar{ID: "cal-unowned"})
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrTypeValidation))

		_, err = store.GetCalendar(ctx, "cal-unowned")
		assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))
	})
}

func TestStore_GetCalendar(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	t.Run("missing calendar is not-found", func(t *testing.T) {
		_, err := store.GetCalendar(ctx, "nope")
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))
	})

	t.Run("blank ID rejected", func(t *testing.T) {
		_, err := store.GetCalendar(ctx, "")
		assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
	})
}

func TestStore_DeleteCalendar(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	_, err := store.CreateCalendar(ctx, &models.Calendar{
		ID:      "cal-del",
		OwnerID: "u1",
		Holidays: map[string]models.Holiday{
			"h1": {ID: "h1", Name: "Gone soon"},
		},
		SharedWith: map[string]models.SharedUserInfo{
			"u2": {Status: models.ShareStatusAccepted, InvitedAt: 1},
		},
	})
	require.NoError(t, err)

	require.NoError(t, store.DeleteCalendar(ctx, "cal-del"))

	_, err = store.GetCalendar(ctx, "cal-del")
	assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))

	// Subtree and index entries are gone for owner and shared user alike.
	owned, err := store.GetUserCalendars(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, owned)

	shared, err := store.GetUserCalendars(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, shared)

	holidays, err := store.GetAllHolidays(ctx, "cal-del")
	require.NoError(t, err)
	assert.Empty(t, holidays)
}

func TestStore_Holidays(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	_, err := store.CreateCalendar(ctx, &models.Calendar{ID: "cal-1", OwnerID: "u1"})
	require.NoError(t, err)

	t.Run("add assigns ID", func(t *testing.T) {
		h, err := store.AddHoliday(ctx, "cal-1", &models.Holiday{Name: "Launch", Date: "2025-06-01"})
		require.NoError(t, err)
		assert.NotEmpty(t, h.ID)

		list, err := store.GetAllHolidays(ctx, "cal-1")
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "Launch", list[0].Name)
	})

	t.Run("add to missing calendar is not-found", func(t *testing.T) {
		_, err := store.AddHoliday(ctx, "nope", &models.Holiday{Name: "x"})
		assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))
	})

	t.Run("double update does not drift", func(t *testing.T) {
		h, err := store.AddHoliday(ctx, "cal-1", &models.Holiday{Name: "Review"})
		require.NoError(t, err)

		h.Name = "Review v2"
		require.NoError(t, store.UpdateHoliday(ctx, "cal-1", h))
		require.NoError(t, store.UpdateHoliday(ctx, "cal-1", h))

		list, err := store.GetAllHolidays(ctx, "cal-1")
		require.NoError(t, err)

		seen := 0
		for _, got := range list {
			if got.ID == h.ID {
				seen++
				assert.Equal(t, "Review v2", got.Name)
			}
		}
		assert.Equal(t, 1, seen)
	})

	t.Run("update missing holiday is not-found", func(t *testing.T) {
		err := store.UpdateHoliday(ctx, "cal-1", &models.Holiday{ID: "nope", Name: "x"})
		assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))
	})

	t.Run("blank holiday ID rejected before any write", func(t *testing.T) {
		err := store.UpdateHoliday(ctx, "cal-1", &models.Holiday{Name: "no id"})
		assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
	})

	t.Run("delete", func(t *testing.T) {
		h, err := store.AddHoliday(ctx, "cal-1", &models.Holiday{Name: "Temp"})
		require.NoError(t, err)

		require.NoError(t, store.DeleteHoliday(ctx, "cal-1", h.ID))
		err = store.DeleteHoliday(ctx, "cal-1", h.ID)
		assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))
	})
}

func TestStore_MalformedHolidaySkipped(t *testing.T) {
	store, mr := setupTestStore(t)
	ctx := context.Background()

	_, err := store.CreateCalendar(ctx, &models.Calendar{ID: "cal-1", OwnerID: "u1"})
	require.NoError(t, err)

	_, err = store.AddHoliday(ctx, "cal-1", &models.Holiday{ID: "h-good", Name: "Kept"})
	require.NoError(t, err)

	mr.HSet(holidaysKey("cal-1"), "h-bad", "{not valid json")

	list, err := store.GetAllHolidays(ctx, "cal-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "h-good", list[0].ID)
}

func TestStore_Sharing(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	_, err := store.CreateCalendar(ctx, &models.Calendar{ID: "cal-1", OwnerID: "u1"})
	require.NoError(t, err)

	t.Run("put and get entry", func(t *testing.T) {
		info := models.SharedUserInfo{
			Status:    models.ShareStatusPending,
			CanEdit:   true,
			InvitedAt: 1700000000000,
		}
		require.NoError(t, store.PutSharedUser(ctx, "cal-1", "u2", info))

		got, err := store.GetSharedUser(ctx, "cal-1", "u2")
		require.NoError(t, err)
		assert.True(t, info.Equal(*got))

		// The invited user's index now lists the calendar.
		calendars, err := store.GetUserCalendars(ctx, "u2")
		require.NoError(t, err)
		require.Len(t, calendars, 1)
		assert.Equal(t, "cal-1", calendars[0].ID)
	})

	t.Run("put replaces in place", func(t *testing.T) {
		accepted := int64(1700000100000)
		info := models.SharedUserInfo{
			Status:     models.ShareStatusAccepted,
			CanEdit:    true,
			InvitedAt:  1700000000000,
			AcceptedAt: &accepted,
		}
		require.NoError(t, store.PutSharedUser(ctx, "cal-1", "u2", info))

		got, err := store.GetSharedUser(ctx, "cal-1", "u2")
		require.NoError(t, err)
		assert.True(t, got.IsAccepted())
		require.NotNil(t, got.AcceptedAt)
		assert.Equal(t, accepted, *got.AcceptedAt)
	})

	t.Run("remove entry and index", func(t *testing.T) {
		require.NoError(t, store.RemoveSharedUser(ctx, "cal-1", "u2"))

		_, err := store.GetSharedUser(ctx, "cal-1", "u2")
		assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))

		calendars, err := store.GetUserCalendars(ctx, "u2")
		require.NoError(t, err)
		assert.Empty(t, calendars)
	})

	t.Run("remove missing entry is not-found", func(t *testing.T) {
		err := store.RemoveSharedUser(ctx, "cal-1", "u9")
		assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))
	})
}

func TestStore_GetUserCalendars_Degrades(t *testing.T) {
	store, mr := setupTestStore(t)
	ctx := context.Background()

	_, err := store.CreateCalendar(ctx, &models.Calendar{ID: "cal-1", OwnerID: "u1"})
	require.NoError(t, err)

	t.Run("dangling index entry skipped", func(t *testing.T) {
		_, err := mr.SetAdd(userIndexKey("u1"), "cal-ghost")
		require.NoError(t, err)

		calendars, err := store.GetUserCalendars(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, calendars, 1)
		assert.Equal(t, "cal-1", calendars[0].ID)
	})

	t.Run("downed server returns empty list with degraded error", func(t *testing.T) {
		mr.Close()

		calendars, err := store.GetUserCalendars(ctx, "u1")
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrTypeReadDegraded))
		assert.NotNil(t, calendars)
		assert.Empty(t, calendars)
	})
}
