package models

// SourceType distinguishes calendar-scoped custom holidays from
// country-scoped public ones.
type SourceType string

const (
	// SourceTypeCustom marks a holiday created under a user calendar.
	SourceTypeCustom SourceType = "custom"
	// SourceTypePublic marks a public holiday. Public holidays are never
	// locally mutated, only cached.
	SourceTypePublic SourceType = "public"
)

// IsValid reports whether the source type is one of the known values.
func (s SourceType) IsValid() bool {
	switch s {
	case SourceTypeCustom, SourceTypePublic:
		return true
	default:
		return false
	}
}

// Recurrence tags carried in Holiday.Repeat.
const (
	RepeatDaily    = "daily"
	RepeatWeekly   = "weekly"
	RepeatMonthly  = "monthly"
	RepeatAnnually = "annually"
)

// Holiday is a single holiday or event entry. Date holds a single-day ISO
// date; DateStart/DateEnd hold a multi-day range. The two forms are
// mutually informative, not exclusive. TimeStart/TimeEnd carry optional
// intra-day timing as epoch milliseconds.
type Holiday struct {
	ID        string     `json:"holidayId"`
	Name      string     `json:"name,omitempty"`
	Desc      string     `json:"desc,omitempty"`
	Date      string     `json:"date,omitempty"`      // ISO date, single day
	DateStart string     `json:"dateStart,omitempty"` // ISO date, range start
	DateEnd   string     `json:"dateEnd,omitempty"`   // ISO date, range end
	TimeStart *int64     `json:"timeStart,omitempty"` // epoch millis
	TimeEnd   *int64     `json:"timeEnd,omitempty"`   // epoch millis
	Repeat    []string   `json:"repeat,omitempty"`
	Type      []string   `json:"type,omitempty"`
	Country   string     `json:"country,omitempty"`  // ISO country code for public holidays
	SourceID  string     `json:"sourceId,omitempty"` // owning calendar ID, or country code for public
	Source    SourceType `json:"sourceType,omitempty"`
	CachedAt  int64      `json:"cachedAt,omitempty"` // epoch millis of last cache refresh

	// LegacyTitle carries the "title" field written by older clients. It is
	// migrated into Name at read time by Normalize; new writes never set it.
	LegacyTitle string `json:"title,omitempty"`
}

// Normalize applies read-time migrations: a record written by the legacy
// shape carries its name under "title", which moves into Name here. An
// unset source type defaults to custom.
func (h *Holiday) Normalize() {
	if h.Name == "" && h.LegacyTitle != "" {
		h.Name = h.LegacyTitle
	}
	h.LegacyTitle = ""
	if h.Source == "" {
		h.Source = SourceTypeCustom
	}
}

// IsPublic reports whether this is a country-scoped public holiday.
func (h *Holiday) IsPublic() bool {
	return h.Source == SourceTypePublic
}

// ToMap converts the holiday to its map-of-primitives form. Zero-valued
// optional fields are omitted, mirroring what a sparse remote snapshot holds.
func (h *Holiday) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"holidayId": h.ID,
	}
	if h.Name != "" {
		m["name"] = h.Name
	}
	if h.Desc != "" {
		m["desc"] = h.Desc
	}
	if h.Date != "" {
		m["date"] = h.Date
	}
	if h.DateStart != "" {
		m["dateStart"] = h.DateStart
	}
	if h.DateEnd != "" {
		m["dateEnd"] = h.DateEnd
	}
	if h.TimeStart != nil {
		m["timeStart"] = *h.TimeStart
	}
	if h.TimeEnd != nil {
		m["timeEnd"] = *h.TimeEnd
	}
	if len(h.Repeat) > 0 {
		m["repeat"] = toInterfaceSlice(h.Repeat)
	}
	if len(h.Type) > 0 {
		m["type"] = toInterfaceSlice(h.Type)
	}
	if h.Country != "" {
		m["country"] = h.Country
	}
	if h.SourceID != "" {
		m["sourceId"] = h.SourceID
	}
	if h.Source != "" {
		m["sourceType"] = string(h.Source)
	}
	if h.CachedAt != 0 {
		m["cachedAt"] = h.CachedAt
	}
	return m
}

// HolidayFromMap builds a Holiday from its map form and applies read-time
// migrations. Records from either the minimal or the extended shape decode;
// absent fields stay zero-valued.
func HolidayFromMap(m map[string]interface{}) *Holiday {
	h := &Holiday{
		ID:          asString(m["holidayId"]),
		Name:        asString(m["name"]),
		Desc:        asString(m["desc"]),
		Date:        asString(m["date"]),
		DateStart:   asString(m["dateStart"]),
		DateEnd:     asString(m["dateEnd"]),
		Repeat:      asStringSlice(m["repeat"]),
		Type:        asStringSlice(m["type"]),
		Country:     asString(m["country"]),
		SourceID:    asString(m["sourceId"]),
		Source:      SourceType(asString(m["sourceType"])),
		CachedAt:    asInt64(m["cachedAt"]),
		LegacyTitle: asString(m["title"]),
	}
	if raw, ok := m["timeStart"]; ok {
		if v := asInt64(raw); v != 0 {
			h.TimeStart = &v
		}
	}
	if raw, ok := m["timeEnd"]; ok {
		if v := asInt64(raw); v != 0 {
			h.TimeEnd = &v
		}
	}
	h.Normalize()
	return h
}

// Equal reports field-level equality.
func (h *Holiday) Equal(other *Holiday) bool {
	if h == nil || other == nil {
		return h == other
	}
	if h.ID != other.ID || h.Name != other.Name || h.Desc != other.Desc ||
		h.Date != other.Date || h.DateStart != other.DateStart || h.DateEnd != other.DateEnd ||
		h.Country != other.Country || h.SourceID != other.SourceID || h.Source != other.Source {
		return false
	}
	if !int64PtrEqual(h.TimeStart, other.TimeStart) || !int64PtrEqual(h.TimeEnd, other.TimeEnd) {
		return false
	}
	return stringSliceEqual(h.Repeat, other.Repeat) && stringSliceEqual(h.Type, other.Type)
}

func int64PtrEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
