package ids

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewUUIDIsValid(t *testing.T) {
	require.NoError(t, ValidateUUID(NewUUID()))
}

func TestNormalizeUUID(t *testing.T) {
	got, err := NormalizeUUID("  3F2504E0-4F89-11D3-9A0C-0305E82C3301 ")

	require.NoError(t, err)
	require.Equal(t, "3f2504e0-4f89-11d3-9a0c-0305e82c3301", got)

	for _, bad := range []string{"", "not-a-uuid", "3f2504e04f8911d39a0c0305e82c3301", "urn:uuid:3f2504e0-4f89-11d3-9a0c-0305e82c3301"} {
		_, err := NormalizeUUID(bad)
		require.ErrorIs(t, err, ErrInvalidUUID, bad)
	}
}

func TestNewULIDIsValidAndOrdered(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first, err := NewULID(base)
	require.NoError(t, err)
	second, err := NewULID(base.Add(time.Millisecond))
	require.NoError(t, err)

	require.NoError(t, ValidateULID(first))
	require.NoError(t, ValidateULID(second))
	require.Less(t, first, second)
	require.ErrorIs(t, ValidateULID("not-a-ulid"), ErrInvalidULID)
}
