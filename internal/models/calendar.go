// Package models defines the entity graph synchronized between the local
// cache and the remote store: calendars, their nested holiday collections,
// per-user sharing permissions and cached user records.
//
// Every entity converts to and from a map-of-primitives representation so it
// can travel through the remote tree store and the cache's serialized blobs.
// Decoding is tolerant: absent or malformed fields fall back to zero values
// so partially-populated remote snapshots never fail a read.
package models

import "errors"

// Sentinel errors shared by the stores and the reconciliation engine.
var (
	ErrCalendarNotFound = errors.New("calendar not found")
	ErrHolidayNotFound  = errors.New("holiday not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrNotInvited       = errors.New("user has no sharing entry for this calendar")
	ErrAlreadyShared    = errors.New("user already has a sharing entry for this calendar")
)

// ShareStatus is the lifecycle state of a sharing entry.
type ShareStatus string

const (
	// ShareStatusPending means the user was invited but has not accepted.
	ShareStatusPending ShareStatus = "pending"
	// ShareStatusAccepted means the invited user accepted. An accepted entry
	// never reverts to pending; revoke and re-invite is the only way back.
	ShareStatusAccepted ShareStatus = "accepted"
)

// IsValid reports whether the status is one of the known states.
func (s ShareStatus) IsValid() bool {
	switch s {
	case ShareStatusPending, ShareStatusAccepted:
		return true
	default:
		return false
	}
}

// Calendar is a named collection of holidays owned by one user and
// optionally shared with others. CalendarID is globally unique and immutable
// once assigned.
type Calendar struct {
	ID                string                    `json:"calendarId"`
	Title             string                    `json:"title,omitempty"`
	Description       string                    `json:"description,omitempty"`
	OwnerID           string                    `json:"ownerId"`
	SharedWith        map[string]SharedUserInfo `json:"sharedWith,omitempty"`
	Holidays          map[string]Holiday        `json:"holidays,omitempty"`
	IsMeetingCalendar bool                      `json:"isMeetingCalendar"`
}

// SharedUserInfo is the sharing-permission record attached to one
// (calendar, user) pair. AcceptedAt stays nil while the entry is pending.
type SharedUserInfo struct {
	Status     ShareStatus `json:"status"`
	CanEdit    bool        `json:"canEdit"`
	CanShare   bool        `json:"canShare"`
	InvitedAt  int64       `json:"invitedAt"`            // epoch millis
	AcceptedAt *int64      `json:"acceptedAt,omitempty"` // epoch millis, nil while pending
}

// IsAccepted reports whether the invite has been accepted.
func (s SharedUserInfo) IsAccepted() bool {
	return s.Status == ShareStatusAccepted
}

// Equal reports value-level equality, comparing AcceptedAt by value rather
// than pointer identity.
func (s SharedUserInfo) Equal(other SharedUserInfo) bool {
	return s.Status == other.Status &&
		s.CanEdit == other.CanEdit &&
		s.CanShare == other.CanShare &&
		s.InvitedAt == other.InvitedAt &&
		int64PtrEqual(s.AcceptedAt, other.AcceptedAt)
}

// ToMap converts the calendar to its map-of-primitives form. Nested maps are
// converted recursively.
func (c *Calendar) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"calendarId":        c.ID,
		"title":             c.Title,
		"description":       c.Description,
		"ownerId":           c.OwnerID,
		"isMeetingCalendar": c.IsMeetingCalendar,
	}

	if len(c.SharedWith) > 0 {
		shared := make(map[string]interface{}, len(c.SharedWith))
		for userID, info := range c.SharedWith {
			shared[userID] = info.ToMap()
		}
		m["sharedWith"] = shared
	}

	if len(c.Holidays) > 0 {
		holidays := make(map[string]interface{}, len(c.Holidays))
		for holidayID, h := range c.Holidays {
			holidays[holidayID] = h.ToMap()
		}
		m["holidays"] = holidays
	}

	return m
}

// CalendarFromMap builds a Calendar from its map-of-primitives form. Missing
// fields default; malformed nested entries are skipped rather than failing
// the whole decode.
func CalendarFromMap(m map[string]interface{}) *Calendar {
	c := &Calendar{
		ID:                asString(m["calendarId"]),
		Title:             asString(m["title"]),
		Description:       asString(m["description"]),
		OwnerID:           asString(m["ownerId"]),
		IsMeetingCalendar: asBool(m["isMeetingCalendar"]),
	}

	if shared, ok := m["sharedWith"].(map[string]interface{}); ok {
		c.SharedWith = make(map[string]SharedUserInfo, len(shared))
		for userID, raw := range shared {
			entry, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			c.SharedWith[userID] = SharedUserInfoFromMap(entry)
		}
	}

	if holidays, ok := m["holidays"].(map[string]interface{}); ok {
		c.Holidays = make(map[string]Holiday, len(holidays))
		for holidayID, raw := range holidays {
			entry, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			h := HolidayFromMap(entry)
			if h.ID == "" {
				h.ID = holidayID
			}
			c.Holidays[holidayID] = *h
		}
	}

	return c
}

// Equal reports field-level equality including nested maps.
func (c *Calendar) Equal(other *Calendar) bool {
	if c == nil || other == nil {
		return c == other
	}
	if c.ID != other.ID || c.Title != other.Title || c.Description != other.Description ||
		c.OwnerID != other.OwnerID || c.IsMeetingCalendar != other.IsMeetingCalendar {
		return false
	}
	if len(c.SharedWith) != len(other.SharedWith) {
		return false
	}
	for userID, info := range c.SharedWith {
		if !info.Equal(other.SharedWith[userID]) {
			return false
		}
	}
	if len(c.Holidays) != len(other.Holidays) {
		return false
	}
	for holidayID, h := range c.Holidays {
		o, ok := other.Holidays[holidayID]
		if !ok || !h.Equal(&o) {
			return false
		}
	}
	return true
}

// ToMap converts the sharing entry to its map-of-primitives form.
func (s SharedUserInfo) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"status":    string(s.Status),
		"canEdit":   s.CanEdit,
		"canShare":  s.CanShare,
		"invitedAt": s.InvitedAt,
	}
	if s.AcceptedAt != nil {
		m["acceptedAt"] = *s.AcceptedAt
	}
	return m
}

// SharedUserInfoFromMap builds a sharing entry from its map form. An unknown
// status defaults to pending.
func SharedUserInfoFromMap(m map[string]interface{}) SharedUserInfo {
	info := SharedUserInfo{
		Status:    ShareStatus(asString(m["status"])),
		CanEdit:   asBool(m["canEdit"]),
		CanShare:  asBool(m["canShare"]),
		InvitedAt: asInt64(m["invitedAt"]),
	}
	if !info.Status.IsValid() {
		info.Status = ShareStatusPending
	}
	if raw, ok := m["acceptedAt"]; ok {
		if accepted := asInt64(raw); accepted != 0 {
			info.AcceptedAt = &accepted
		}
	}
	return info
}
