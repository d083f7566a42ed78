package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeCursor(t *testing.T) {
	timestamp := time.Date(2024, 1, 2, 3, 4, 5, 6, time.UTC)

	cursor := EncodeCursor(timestamp, "  6F1C8A4E-2B3D-4C5E-8F90-1A2B3C4D5E6F ")

	decoded, err := DecodeCursor(cursor)

	require.NoError(t, err)
	require.Equal(t, timestamp, decoded.Timestamp)
	require.Equal(t, "6f1c8a4e-2b3d-4c5e-8f90-1a2b3c4d5e6f", decoded.ID)
}

func TestDecodeCursorErrors(t *testing.T) {
	_, err := DecodeCursor("")

	require.ErrorIs(t, err, ErrInvalidCursor)

	_, err = DecodeCursor("not-base64!")

	require.ErrorIs(t, err, ErrInvalidCursor)

	_, err = DecodeCursor("bm90LWFfdmFsaWRfZm9ybWF0")

	require.ErrorIs(t, err, ErrInvalidCursor)

	_, err = DecodeCursor(base64.RawURLEncoding.EncodeToString([]byte("123:not-a-uuid")))

	require.ErrorIs(t, err, ErrInvalidCursor)
}

func TestParseLimit(t *testing.T) {
	limit, err := ParseLimit("", 24, 100)
	require.NoError(t, err)
	require.Equal(t, 24, limit)

	limit, err = ParseLimit(" 10 ", 24, 100)
	require.NoError(t, err)
	require.Equal(t, 10, limit)

	limit, err = ParseLimit("500", 24, 100)
	require.NoError(t, err)
	require.Equal(t, 100, limit)

	_, err = ParseLimit("0", 24, 100)
	require.Error(t, err)

	_, err = ParseLimit("ten", 24, 100)
	require.Error(t, err)
}
