// Package cache implements the on-device read cache for calendars, holidays
// and users. It mirrors a subset of the remote entity graph in SQLite for
// offline reads and has no write authority of its own: callers write to it
// only after a confirmed remote read or write.
//
// All operations are local and never touch the network. Nested maps
// (sharing info, holiday maps) are stored as JSON text blobs; a malformed
// blob degrades to an absent field instead of failing the row read.
package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"calendar-sync/internal/models"
)

type Store struct {
	db     *sql.DB
	config *Config

	// SQLite allows one writer at a time; serializing writes here avoids
	// SQLITE_BUSY churn under concurrent upserts.
	mu sync.Mutex
}

// NewStore opens (or creates) the cache database and runs migrations.
func NewStore(config *Config) (*Store, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cache config: %w", err)
	}

	db, err := sql.Open("sqlite3", config.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping cache database: %w", err)
	}

	store := &Store{
		db:     db,
		config: config,
	}

	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate cache database: %w", err)
	}

	return store, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Health() error {
	return s.db.Ping()
}

func (s *Store) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS calendars (
			id TEXT PRIMARY KEY,
			title TEXT DEFAULT '',
			description TEXT DEFAULT '',
			owner_id TEXT NOT NULL,
			is_meeting BOOLEAN DEFAULT 0,
			shared_with TEXT DEFAULT '{}',
			holidays TEXT DEFAULT '{}',
			cached_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS holidays (
			id TEXT PRIMARY KEY,
			calendar_id TEXT NOT NULL,
			name TEXT DEFAULT '',
			description TEXT DEFAULT '',
			date TEXT DEFAULT '',
			date_start TEXT DEFAULT '',
			date_end TEXT DEFAULT '',
			time_start INTEGER,
			time_end INTEGER,
			repeat TEXT DEFAULT '[]',
			type TEXT DEFAULT '[]',
			country TEXT DEFAULT '',
			source_id TEXT DEFAULT '',
			source_type TEXT DEFAULT 'custom',
			cached_at INTEGER DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT DEFAULT '',
			first_name TEXT DEFAULT '',
			last_name TEXT DEFAULT '',
			date_of_birth TEXT DEFAULT '',
			location TEXT DEFAULT '',
			is_primary BOOLEAN DEFAULT 0
		)`,

		`CREATE INDEX IF NOT EXISTS idx_calendars_owner_id ON calendars(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_holidays_calendar_id ON holidays(calendar_id)`,
		`CREATE INDEX IF NOT EXISTS idx_users_is_primary ON users(is_primary)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute migration query: %w", err)
		}
	}

	return nil
}

// Calendar operations

func (s *Store) UpsertCalendar(c *models.Calendar) error {
	if c.ID == "" {
		return fmt.Errorf("calendar ID is required")
	}

	sharedBlob := marshalBlob(c.SharedWith)
	holidaysBlob := marshalBlob(c.Holidays)

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`INSERT OR REPLACE INTO calendars
		(id, title, description, owner_id, is_meeting, shared_with, holidays, cached_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		c.ID, c.Title, c.Description, c.OwnerID, c.IsMeetingCalendar, sharedBlob, holidaysBlob)
	if err != nil {
		return fmt.Errorf("failed to upsert calendar: %w", err)
	}
	return nil
}

func (s *Store) GetCalendar(id string) (*models.Calendar, error) {
	row := s.db.QueryRow(`SELECT id, title, description, owner_id, is_meeting, shared_with, holidays
		FROM calendars WHERE id = ?`, id)

	cal, err := scanCalendar(row)
	if err == sql.ErrNoRows {
		return nil, models.ErrCalendarNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read calendar: %w", err)
	}
	return cal, nil
}

func (s *Store) ListCalendars() ([]*models.Calendar, error) {
	return s.queryCalendars(`SELECT id, title, description, owner_id, is_meeting, shared_with, holidays
		FROM calendars`)
}

func (s *Store) ListCalendarsByOwner(ownerID string) ([]*models.Calendar, error) {
	return s.queryCalendars(`SELECT id, title, description, owner_id, is_meeting, shared_with, holidays
		FROM calendars WHERE owner_id = ?`, ownerID)
}

func (s *Store) CalendarExists(id string) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM calendars WHERE id = ?`, id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check calendar existence: %w", err)
	}
	return count > 0, nil
}

func (s *Store) DeleteCalendar(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM calendars WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete calendar: %w", err)
	}
	return nil
}

func (s *Store) DeleteAllCalendars() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM calendars`); err != nil {
		return fmt.Errorf("failed to delete calendars: %w", err)
	}
	return nil
}

func (s *Store) DeleteCalendarsByOwner(ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM calendars WHERE owner_id = ?`, ownerID); err != nil {
		return fmt.Errorf("failed to delete calendars by owner: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCalendar(row rowScanner) (*models.Calendar, error) {
	cal := &models.Calendar{}
	var sharedBlob, holidaysBlob string

	err := row.Scan(&cal.ID, &cal.Title, &cal.Description, &cal.OwnerID,
		&cal.IsMeetingCalendar, &sharedBlob, &holidaysBlob)
	if err != nil {
		return nil, err
	}

	// A corrupt blob degrades to an absent field, never a failed read.
	var shared map[string]models.SharedUserInfo
	if err := json.Unmarshal([]byte(sharedBlob), &shared); err == nil && len(shared) > 0 {
		cal.SharedWith = shared
	}

	var holidays map[string]models.Holiday
	if err := json.Unmarshal([]byte(holidaysBlob), &holidays); err == nil && len(holidays) > 0 {
		for id, h := range holidays {
			h.Normalize()
			holidays[id] = h
		}
		cal.Holidays = holidays
	}

	return cal, nil
}

func (s *Store) queryCalendars(query string, args ...interface{}) ([]*models.Calendar, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query calendars: %w", err)
	}
	defer rows.Close()

	var calendars []*models.Calendar
	for rows.Next() {
		cal, err := scanCalendar(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan calendar: %w", err)
		}
		calendars = append(calendars, cal)
	}
	return calendars, rows.Err()
}

// Holiday operations

func (s *Store) UpsertHoliday(calendarID string, h *models.Holiday) error {
	if h.ID == "" {
		return fmt.Errorf("holiday ID is required")
	}
	if calendarID == "" {
		return fmt.Errorf("calendar ID is required")
	}

	repeatBlob := marshalBlob(h.Repeat)
	typeBlob := marshalBlob(h.Type)

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`INSERT OR REPLACE INTO holidays
		(id, calendar_id, name, description, date, date_start, date_end,
		 time_start, time_end, repeat, type, country, source_id, source_type, cached_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID, calendarID, h.Name, h.Desc, h.Date, h.DateStart, h.DateEnd,
		nullableInt64(h.TimeStart), nullableInt64(h.TimeEnd),
		repeatBlob, typeBlob, h.Country, h.SourceID, string(h.Source), h.CachedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert holiday: %w", err)
	}
	return nil
}

func (s *Store) GetHoliday(id string) (*models.Holiday, error) {
	row := s.db.QueryRow(`SELECT id, name, description, date, date_start, date_end,
		time_start, time_end, repeat, type, country, source_id, source_type, cached_at
		FROM holidays WHERE id = ?`, id)

	h, err := scanHoliday(row)
	if err == sql.ErrNoRows {
		return nil, models.ErrHolidayNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read holiday: %w", err)
	}
	return h, nil
}

func (s *Store) ListHolidays() ([]*models.Holiday, error) {
	return s.queryHolidays(`SELECT id, name, description, date, date_start, date_end,
		time_start, time_end, repeat, type, country, source_id, source_type, cached_at
		FROM holidays`)
}

func (s *Store) ListHolidaysByCalendar(calendarID string) ([]*models.Holiday, error) {
	return s.queryHolidays(`SELECT id, name, description, date, date_start, date_end,
		time_start, time_end, repeat, type, country, source_id, source_type, cached_at
		FROM holidays WHERE calendar_id = ?`, calendarID)
}

func (s *Store) HolidayExists(id string) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM holidays WHERE id = ?`, id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check holiday existence: %w", err)
	}
	return count > 0, nil
}

func (s *Store) DeleteHoliday(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM holidays WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete holiday: %w", err)
	}
	return nil
}

func (s *Store) DeleteAllHolidays() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM holidays`); err != nil {
		return fmt.Errorf("failed to delete holidays: %w", err)
	}
	return nil
}

func (s *Store) DeleteHolidaysByCalendar(calendarID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM holidays WHERE calendar_id = ?`, calendarID); err != nil {
		return fmt.Errorf("failed to delete holidays by calendar: %w", err)
	}
	return nil
}

func scanHoliday(row rowScanner) (*models.Holiday, error) {
	h := &models.Holiday{}
	var timeStart, timeEnd sql.NullInt64
	var repeatBlob, typeBlob, sourceType string

	err := row.Scan(&h.ID, &h.Name, &h.Desc, &h.Date, &h.DateStart, &h.DateEnd,
		&timeStart, &timeEnd, &repeatBlob, &typeBlob, &h.Country, &h.SourceID,
		&sourceType, &h.CachedAt)
	if err != nil {
		return nil, err
	}

	if timeStart.Valid {
		h.TimeStart = &timeStart.Int64
	}
	if timeEnd.Valid {
		h.TimeEnd = &timeEnd.Int64
	}

	// Corrupt tag blobs degrade to absent, never a failed read.
	var repeat []string
	if err := json.Unmarshal([]byte(repeatBlob), &repeat); err == nil {
		h.Repeat = repeat
	}
	var types []string
	if err := json.Unmarshal([]byte(typeBlob), &types); err == nil {
		h.Type = types
	}

	h.Source = models.SourceType(sourceType)
	h.Normalize()
	return h, nil
}

func (s *Store) queryHolidays(query string, args ...interface{}) ([]*models.Holiday, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query holidays: %w", err)
	}
	defer rows.Close()

	var holidays []*models.Holiday
	for rows.Next() {
		h, err := scanHoliday(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holiday: %w", err)
		}
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

// User operations

func (s *Store) UpsertUser(u *models.User) error {
	if u.ID == "" {
		return fmt.Errorf("user ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`INSERT OR REPLACE INTO users
		(id, email, first_name, last_name, date_of_birth, location, is_primary)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.FirstName, u.LastName, u.DateOfBirth, u.Location, u.IsPrimary)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(id string) (*models.User, error) {
	row := s.db.QueryRow(`SELECT id, email, first_name, last_name, date_of_birth, location, is_primary
		FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetPrimaryUser returns the device's logged-in account, if cached.
func (s *Store) GetPrimaryUser() (*models.User, error) {
	row := s.db.QueryRow(`SELECT id, email, first_name, last_name, date_of_birth, location, is_primary
		FROM users WHERE is_primary = 1 LIMIT 1`)
	return scanUser(row)
}

func (s *Store) ListUsers() ([]*models.User, error) {
	rows, err := s.db.Query(`SELECT id, email, first_name, last_name, date_of_birth, location, is_primary
		FROM users`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u := &models.User{}
		if err := rows.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName,
			&u.DateOfBirth, &u.Location, &u.IsPrimary); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) UserExists(id string) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM users WHERE id = ?`, id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return count > 0, nil
}

func (s *Store) DeleteUser(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM users WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

func (s *Store) DeleteAllUsers() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM users`); err != nil {
		return fmt.Errorf("failed to delete users: %w", err)
	}
	return nil
}

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName,
		&u.DateOfBirth, &u.Location, &u.IsPrimary)
	if err == sql.ErrNoRows {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read user: %w", err)
	}
	return u, nil
}

// marshalBlob serializes a nested structure for TEXT storage. Marshal
// failures collapse to an empty object so a write never fails on a bad
// nested field.
func marshalBlob(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil || v == nil {
		return "{}"
	}
	return string(data)
}

func nullableInt64(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
