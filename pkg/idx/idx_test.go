package idx_test

import (
	"testing"
	"time"

	"github.com/lumonlab/crecheauth/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestNewProducesValidSortableIDs(t *testing.T) {
	t.Parallel()

	a := idx.New()
	b := idx.New()

	_, err := idx.Parse(a.String())
	require.NoError(t, err)
	_, err = idx.Parse(b.String())
	require.NoError(t, err)

	// Monotonic source: later IDs sort after earlier ones.
	require.Less(t, a.String(), b.String())
}

func TestParseRejectsMalformedInput(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "   ", "not-a-ulid", "0000"} {
		_, err := idx.Parse(in)
		require.ErrorIs(t, err, idx.ErrInvalid)
	}
}

func TestTimeRoundTrip(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	id := idx.NewAt(at)
	require.WithinDuration(t, at, id.Time(), time.Millisecond)

	require.True(t, idx.Zero.Time().IsZero())
}
