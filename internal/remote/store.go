// Package remote implements the authoritative calendar store on top of
// Redis. Entities live in a tree of fixed paths:
//
//	calendars/{calendarId}              hash of scalar calendar fields
//	calendars/{calendarId}/holidays     hash of holidayId -> holiday JSON
//	calendars/{calendarId}/sharedWith   hash of userId -> sharing JSON
//	users/{userId}/calendars            set of calendar IDs visible to a user
//
// Writing an entity to its path is idempotent: repeating the same write
// leaves the tree unchanged. Reads degrade instead of failing hard; list
// reads return an empty slice together with the error so callers can fall
// back to their local cache.
package remote

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"calendar-sync/internal/common/errors"
	"calendar-sync/internal/common/utils"
	"calendar-sync/internal/models"
)

const opTimeout = 5 * time.Second

type Store struct {
	rdb    *redis.Client
	config *Config
}

// NewStore connects to the remote store and verifies the connection.
func NewStore(config *Config) (*Store, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if config.Address == "" {
		config.Address = "localhost:6379"
	}
	if config.PoolSize == 0 {
		config.PoolSize = 10
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     config.Address,
		Password: config.Password,
		DB:       config.DB,
		PoolSize: config.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, errors.ConnectionError("failed to connect to remote store", err)
	}

	return &Store{
		rdb:    rdb,
		config: config,
	}, nil
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

func (s *Store) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return s.rdb.Ping(ctx).Err()
}

// Key layout

func calendarKey(calendarID string) string {
	return "calendars/" + calendarID
}

func holidaysKey(calendarID string) string {
	return calendarKey(calendarID) + "/holidays"
}

func sharedKey(calendarID string) string {
	return calendarKey(calendarID) + "/sharedWith"
}

func userIndexKey(userID string) string {
	return "users/" + userID + "/calendars"
}

// Calendar operations

// CreateCalendar writes a calendar to its fixed path, assigning an ID when
// the caller left it blank. The owner's calendar index is updated in the
// same pipeline. Nested holidays and sharing entries on the input are
// written too, so a full snapshot can be replayed onto the tree.
func (s *Store) CreateCalendar(ctx context.Context, cal *models.Calendar) (*models.Calendar, error) {
	if cal == nil {
		return nil, errors.ValidationError("calendar is required")
	}
	if cal.OwnerID == "" {
		return nil, errors.ValidationError("calendar owner ID is required")
	}

	if cal.ID == "" {
		id, err := utils.GenerateUUID()
		if err != nil {
			return nil, errors.InternalError("failed to generate calendar ID", err)
		}
		cal.ID = id
	}

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, calendarKey(cal.ID), calendarFields(cal)...)
	pipe.SAdd(ctx, userIndexKey(cal.OwnerID), cal.ID)

	for holidayID, h := range cal.Holidays {
		data, err := json.Marshal(&h)
		if err != nil {
			return nil, errors.WriteError("failed to encode holiday", err)
		}
		pipe.HSet(ctx, holidaysKey(cal.ID), holidayID, data)
	}

	for userID, info := range cal.SharedWith {
		data, err := json.Marshal(info)
		if err != nil {
			return nil, errors.WriteError("failed to encode sharing entry", err)
		}
		pipe.HSet(ctx, sharedKey(cal.ID), userID, data)
		pipe.SAdd(ctx, userIndexKey(userID), cal.ID)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, errors.WriteError("failed to write calendar", err)
	}

	return cal, nil
}

// GetCalendar assembles a calendar from its path, including nested holidays
// and sharing entries. Malformed nested records are skipped.
func (s *Store) GetCalendar(ctx context.Context, calendarID string) (*models.Calendar, error) {
	if calendarID == "" {
		return nil, errors.ValidationError("calendar ID is required")
	}

	fields, err := s.rdb.HGetAll(ctx, calendarKey(calendarID)).Result()
	if err != nil {
		return nil, errors.ConnectionError("failed to read calendar", err)
	}
	if len(fields) == 0 {
		return nil, errors.NotFoundError("calendar")
	}

	cal := calendarFromFields(calendarID, fields)

	holidays, err := s.GetAllHolidays(ctx, calendarID)
	if err != nil {
		return nil, err
	}
	if len(holidays) > 0 {
		cal.Holidays = make(map[string]models.Holiday, len(holidays))
		for _, h := range holidays {
			cal.Holidays[h.ID] = *h
		}
	}

	shared, err := s.getSharedEntries(ctx, calendarID)
	if err != nil {
		return nil, err
	}
	if len(shared) > 0 {
		cal.SharedWith = shared
	}

	return cal, nil
}

func (s *Store) CalendarExists(ctx context.Context, calendarID string) (bool, error) {
	count, err := s.rdb.Exists(ctx, calendarKey(calendarID)).Result()
	if err != nil {
		return false, errors.ConnectionError("failed to check calendar existence", err)
	}
	return count > 0, nil
}

// DeleteCalendar removes the calendar subtree and every index entry that
// pointed at it, including the indexes of all shared users.
func (s *Store) DeleteCalendar(ctx context.Context, calendarID string) error {
	if calendarID == "" {
		return errors.ValidationError("calendar ID is required")
	}

	cal, err := s.GetCalendar(ctx, calendarID)
	if err != nil {
		return err
	}

	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, calendarKey(calendarID), holidaysKey(calendarID), sharedKey(calendarID))
	pipe.SRem(ctx, userIndexKey(cal.OwnerID), calendarID)
	for userID := range cal.SharedWith {
		pipe.SRem(ctx, userIndexKey(userID), calendarID)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return errors.WriteError("failed to delete calendar", err)
	}
	return nil
}

// GetUserCalendars lists every calendar a user owns or has been invited to.
// On a connection failure it returns an empty slice together with a
// degraded-read error so callers can fall back to their cache. A calendar
// ID left dangling in the index is skipped.
func (s *Store) GetUserCalendars(ctx context.Context, userID string) ([]*models.Calendar, error) {
	if userID == "" {
		return []*models.Calendar{}, errors.ValidationError("user ID is required")
	}

	ids, err := s.rdb.SMembers(ctx, userIndexKey(userID)).Result()
	if err != nil {
		return []*models.Calendar{}, errors.ReadDegradedError("failed to list user calendars", err)
	}

	calendars := make([]*models.Calendar, 0, len(ids))
	for _, id := range ids {
		cal, err := s.GetCalendar(ctx, id)
		if err != nil {
			if errors.IsType(err, errors.ErrTypeNotFound) {
				continue
			}
			return []*models.Calendar{}, errors.ReadDegradedError("failed to read user calendar", err)
		}
		calendars = append(calendars, cal)
	}
	return calendars, nil
}

// Holiday operations

// AddHoliday writes a holiday under the calendar's holidays path, assigning
// an ID when blank. The calendar must exist.
func (s *Store) AddHoliday(ctx context.Context, calendarID string, h *models.Holiday) (*models.Holiday, error) {
	if calendarID == "" {
		return nil, errors.ValidationError("calendar ID is required")
	}
	if h == nil {
		return nil, errors.ValidationError("holiday is required")
	}

	exists, err := s.CalendarExists(ctx, calendarID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.NotFoundError("calendar")
	}

	if h.ID == "" {
		id, err := utils.GenerateUUID()
		if err != nil {
			return nil, errors.InternalError("failed to generate holiday ID", err)
		}
		h.ID = id
	}
	h.Normalize()

	if err := s.putHoliday(ctx, calendarID, h); err != nil {
		return nil, err
	}
	return h, nil
}

// GetHoliday reads a single holiday from the calendar's holidays path.
func (s *Store) GetHoliday(ctx context.Context, calendarID, holidayID string) (*models.Holiday, error) {
	if calendarID == "" || holidayID == "" {
		return nil, errors.ValidationError("calendar ID and holiday ID are required")
	}

	raw, err := s.rdb.HGet(ctx, holidaysKey(calendarID), holidayID).Result()
	if err == redis.Nil {
		return nil, errors.NotFoundError("holiday")
	}
	if err != nil {
		return nil, errors.ConnectionError("failed to read holiday", err)
	}

	h := &models.Holiday{}
	if err := json.Unmarshal([]byte(raw), h); err != nil {
		return nil, errors.InternalError("failed to decode holiday", err)
	}
	if h.ID == "" {
		h.ID = holidayID
	}
	h.Normalize()
	return h, nil
}

// UpdateHoliday overwrites the holiday at its fixed path. The write is
// last-write-wins: no version is checked, the full record replaces what is
// there.
func (s *Store) UpdateHoliday(ctx context.Context, calendarID string, h *models.Holiday) error {
	if calendarID == "" {
		return errors.ValidationError("calendar ID is required")
	}
	if h == nil || h.ID == "" {
		return errors.ValidationError("holiday ID is required")
	}

	exists, err := s.rdb.HExists(ctx, holidaysKey(calendarID), h.ID).Result()
	if err != nil {
		return errors.ConnectionError("failed to check holiday existence", err)
	}
	if !exists {
		return errors.NotFoundError("holiday")
	}

	h.Normalize()
	return s.putHoliday(ctx, calendarID, h)
}

func (s *Store) DeleteHoliday(ctx context.Context, calendarID, holidayID string) error {
	if calendarID == "" || holidayID == "" {
		return errors.ValidationError("calendar ID and holiday ID are required")
	}

	removed, err := s.rdb.HDel(ctx, holidaysKey(calendarID), holidayID).Result()
	if err != nil {
		return errors.WriteError("failed to delete holiday", err)
	}
	if removed == 0 {
		return errors.NotFoundError("holiday")
	}
	return nil
}

// GetAllHolidays lists a calendar's holidays. Records that fail to decode
// are skipped; a connection failure returns an empty slice with a
// degraded-read error.
func (s *Store) GetAllHolidays(ctx context.Context, calendarID string) ([]*models.Holiday, error) {
	if calendarID == "" {
		return []*models.Holiday{}, errors.ValidationError("calendar ID is required")
	}

	entries, err := s.rdb.HGetAll(ctx, holidaysKey(calendarID)).Result()
	if err != nil {
		return []*models.Holiday{}, errors.ReadDegradedError("failed to read holidays", err)
	}

	holidays := make([]*models.Holiday, 0, len(entries))
	for holidayID, raw := range entries {
		h := &models.Holiday{}
		if err := json.Unmarshal([]byte(raw), h); err != nil {
			continue
		}
		if h.ID == "" {
			h.ID = holidayID
		}
		h.Normalize()
		holidays = append(holidays, h)
	}
	return holidays, nil
}

func (s *Store) putHoliday(ctx context.Context, calendarID string, h *models.Holiday) error {
	data, err := json.Marshal(h)
	if err != nil {
		return errors.WriteError("failed to encode holiday", err)
	}
	if err := s.rdb.HSet(ctx, holidaysKey(calendarID), h.ID, data).Err(); err != nil {
		return errors.WriteError("failed to write holiday", err)
	}
	return nil
}

// Sharing operations

// PutSharedUser writes a sharing entry for one (calendar, user) pair and
// adds the calendar to the user's index. Writing an existing pair replaces
// the entry in place.
func (s *Store) PutSharedUser(ctx context.Context, calendarID, userID string, info models.SharedUserInfo) error {
	if calendarID == "" || userID == "" {
		return errors.ValidationError("calendar ID and user ID are required")
	}

	data, err := json.Marshal(info)
	if err != nil {
		return errors.WriteError("failed to encode sharing entry", err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, sharedKey(calendarID), userID, data)
	pipe.SAdd(ctx, userIndexKey(userID), calendarID)

	if _, err := pipe.Exec(ctx); err != nil {
		return errors.WriteError("failed to write sharing entry", err)
	}
	return nil
}

// GetSharedUser reads the sharing entry for one (calendar, user) pair.
func (s *Store) GetSharedUser(ctx context.Context, calendarID, userID string) (*models.SharedUserInfo, error) {
	if calendarID == "" || userID == "" {
		return nil, errors.ValidationError("calendar ID and user ID are required")
	}

	raw, err := s.rdb.HGet(ctx, sharedKey(calendarID), userID).Result()
	if err == redis.Nil {
		return nil, errors.NotFoundError("sharing entry")
	}
	if err != nil {
		return nil, errors.ConnectionError("failed to read sharing entry", err)
	}

	var info models.SharedUserInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return nil, errors.InternalError("failed to decode sharing entry", err)
	}
	return &info, nil
}

// RemoveSharedUser deletes the sharing entry and drops the calendar from
// the user's index.
func (s *Store) RemoveSharedUser(ctx context.Context, calendarID, userID string) error {
	if calendarID == "" || userID == "" {
		return errors.ValidationError("calendar ID and user ID are required")
	}

	pipe := s.rdb.TxPipeline()
	removed := pipe.HDel(ctx, sharedKey(calendarID), userID)
	pipe.SRem(ctx, userIndexKey(userID), calendarID)

	if _, err := pipe.Exec(ctx); err != nil {
		return errors.WriteError("failed to remove sharing entry", err)
	}
	if removed.Val() == 0 {
		return errors.NotFoundError("sharing entry")
	}
	return nil
}

func (s *Store) getSharedEntries(ctx context.Context, calendarID string) (map[string]models.SharedUserInfo, error) {
	entries, err := s.rdb.HGetAll(ctx, sharedKey(calendarID)).Result()
	if err != nil {
		return nil, errors.ConnectionError("failed to read sharing entries", err)
	}
	if len(entries) == 0 {
		return nil, nil
	}

	shared := make(map[string]models.SharedUserInfo, len(entries))
	for userID, raw := range entries {
		var info models.SharedUserInfo
		if err := json.Unmarshal([]byte(raw), &info); err != nil {
			continue
		}
		shared[userID] = info
	}
	return shared, nil
}

// Field codecs for the scalar calendar hash.

func calendarFields(cal *models.Calendar) []interface{} {
	return []interface{}{
		"title", cal.Title,
		"description", cal.Description,
		"ownerId", cal.OwnerID,
		"isMeetingCalendar", strconv.FormatBool(cal.IsMeetingCalendar),
	}
}

func calendarFromFields(calendarID string, fields map[string]string) *models.Calendar {
	isMeeting, _ := strconv.ParseBool(fields["isMeetingCalendar"])
	return &models.Calendar{
		ID:                calendarID,
		Title:             fields["title"],
		Description:       fields["description"],
		OwnerID:           fields["ownerId"],
		IsMeetingCalendar: isMeeting,
	}
}
