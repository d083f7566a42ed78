package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Togather-Foundation/gallery/internal/domain/ids"
)

var ErrInvalidCursor = errors.New("invalid cursor")

// Cursor is a keyset position: the sort timestamp of the last row returned and
// its id as tie breaker.
type Cursor struct {
	Timestamp time.Time
	ID        string
}

// EncodeCursor encodes the cursor as base64(ts_unix_nano:id).
func EncodeCursor(timestamp time.Time, id string) string {
	value := fmt.Sprintf("%d:%s", timestamp.UTC().UnixNano(), strings.ToLower(strings.TrimSpace(id)))
	return base64.RawURLEncoding.EncodeToString([]byte(value))
}

// DecodeCursor decodes base64(ts_unix_nano:id). The id must be a UUID.
func DecodeCursor(cursor string) (Cursor, error) {
	cursor = strings.TrimSpace(cursor)
	if cursor == "" {
		return Cursor{}, ErrInvalidCursor
	}
	decoded, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return Cursor{}, ErrInvalidCursor
	}
	parts := strings.SplitN(string(decoded), ":", 2)
	if len(parts) != 2 {
		return Cursor{}, ErrInvalidCursor
	}
	unixNano, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return Cursor{}, ErrInvalidCursor
	}
	id, err := ids.NormalizeUUID(parts[1])
	if err != nil {
		return Cursor{}, ErrInvalidCursor
	}
	return Cursor{Timestamp: time.Unix(0, unixNano).UTC(), ID: id}, nil
}

// ParseLimit reads a page size. Empty means fallback; values above max are
// clamped; anything that is not a positive integer is an error.
func ParseLimit(raw string, fallback, max int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 1 {
		return 0, errors.New("must be a positive integer")
	}
	if parsed > max {
		return max, nil
	}
	return parsed, nil
}
