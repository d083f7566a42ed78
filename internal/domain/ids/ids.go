package ids

import (
	"crypto/rand"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var (
	ErrInvalidUUID = errors.New("invalid UUID")
	ErrInvalidULID = errors.New("invalid ULID")
)

// NewUUID returns a random (v4) UUID string.
func NewUUID() string {
	return uuid.New().String()
}

// NormalizeUUID trims and lowercases value, returning ErrInvalidUUID when it
// is not a canonical 36-character UUID.
func NormalizeUUID(value string) (string, error) {
	value = strings.TrimSpace(value)
	if len(value) != 36 {
		return "", ErrInvalidUUID
	}
	parsed, err := uuid.Parse(value)
	if err != nil {
		return "", ErrInvalidUUID
	}
	return parsed.String(), nil
}

// ValidateUUID validates a UUID string.
func ValidateUUID(value string) error {
	_, err := NormalizeUUID(value)
	return err
}

// NewULID generates a ULID for the given time. The monotonic entropy source
// keeps IDs minted within the same millisecond strictly increasing.
func NewULID(at time.Time) (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(at), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// ValidateULID validates a ULID string (case-insensitive Crockford Base32).
func ValidateULID(value string) error {
	if _, err := ulid.ParseStrict(strings.ToUpper(strings.TrimSpace(value))); err != nil {
		return ErrInvalidULID
	}
	return nil
}
