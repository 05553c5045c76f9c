package session

import (
	"github.com/oklog/ulid/v2"
)

const maxIDLength = 128

// NewID returns a fresh, lexically sortable session id.
func NewID() string {
	return ulid.Make().String()
}

// ValidID reports whether id is safe to use as a session file name.
// Generated ULIDs always qualify; operator-chosen ids may use letters,
// digits, '-' and '_'.
func ValidID(id string) bool {
	if id == "" || len(id) > maxIDLength {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
