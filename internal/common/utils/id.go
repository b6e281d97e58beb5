// Package utils provides small helpers shared across the sync core,
// primarily identifier generation for calendars and holidays.
package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateRandomID generates a cryptographically secure random hex ID of the
// given length. Each byte produces two hex characters, so odd lengths come
// back one character short.
func GenerateRandomID(length int) (string, error) {
	bytes := make([]byte, length/2)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// GenerateUUID generates a cryptographically secure UUID v4 in the standard
// "xxxxxxxx-xxxx-4xxx-yxxx-xxxxxxxxxxxx" form. Used as the key-generation
// facility for calendar and holiday IDs when the caller supplies none.
func GenerateUUID() (string, error) {
	uuid := make([]byte, 16)
	if _, err := rand.Read(uuid); err != nil {
		return "", err
	}

	// Set version (4) and variant bits
	uuid[6] = (uuid[6] & 0x0f) | 0x40
	uuid[8] = (uuid[8] & 0x3f) | 0x80

	return fmt.Sprintf("%x-%x-%x-%x-%x",
		uuid[0:4], uuid[4:6], uuid[6:8], uuid[8:10], uuid[10:]), nil
}

// MustGenerateUUID generates a UUID v4 or panics. Random generation only
// fails when the system entropy source is broken.
func MustGenerateUUID() string {
	id, err := GenerateUUID()
	if err != nil {
		panic(fmt.Sprintf("failed to generate UUID: %v", err))
	}
	return id
}
