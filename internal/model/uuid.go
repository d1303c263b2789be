package model

import (
	"encoding/base32"
	"strings"

	"github.com/google/uuid"
)

// GenerateShortID generates a short, URL-safe chapter ID from a UUID v4 encoded in base32.
func GenerateShortID() string {
	id := uuid.New()
	// 16 bytes -> 26 base32 characters
	encoded := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(id[:])
	return strings.ToLower(encoded)
}

// ValidateShortID reports whether id looks like a chapter ID.
// Imported catalogues may carry their own alphanumeric IDs, so anything
// between 1 and 64 characters of [A-Za-z0-9_-] is accepted.
func ValidateShortID(id string) bool {
	if len(id) == 0 || len(id) > 64 {
		return false
	}
	for _, c := range id {
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' || c == '_') {
			return false
		}
	}
	return true
}
