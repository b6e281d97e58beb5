package models

// User is a cached user record. IsPrimary marks the device's logged-in
// account among the locally cached users.
type User struct {
	ID          string `json:"userId"`
	Email       string `json:"email,omitempty"`
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	DateOfBirth string `json:"dateOfBirth,omitempty"`
	Location    string `json:"location,omitempty"`
	IsPrimary   bool   `json:"isPrimary"`
}

// ToMap converts the user to its map-of-primitives form.
func (u *User) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"userId":      u.ID,
		"email":       u.Email,
		"firstName":   u.FirstName,
		"lastName":    u.LastName,
		"dateOfBirth": u.DateOfBirth,
		"location":    u.Location,
		"isPrimary":   u.IsPrimary,
	}
}

// UserFromMap builds a User from its map form.
func UserFromMap(m map[string]interface{}) *User {
	return &User{
		ID:          asString(m["userId"]),
		Email:       asString(m["email"]),
		FirstName:   asString(m["firstName"]),
		LastName:    asString(m["lastName"]),
		DateOfBirth: asString(m["dateOfBirth"]),
		Location:    asString(m["location"]),
		IsPrimary:   asBool(m["isPrimary"]),
	}
}
