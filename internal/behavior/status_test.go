package behavior

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatus_String(t *testing.T) {
	t.Parallel()

	require.Equal(t, "running", Running.String())
	require.Equal(t, "success", Success.String())
	require.Equal(t, "failure", Failure.String())
	require.Equal(t, "status(9)", Status(9).String())
	require.False(t, Status(9).Valid())

	var zero Status
	require.Equal(t, Running, zero)
}

func TestParseStatus(t *testing.T) {
	t.Parallel()

	for _, s := range []Status{Running, Success, Failure} {
		got, err := ParseStatus(s.String())
		require.NoError(t, err)
		require.Equal(t, s, got)
	}
	got, err := ParseStatus("  SUCCESS ")
	require.NoError(t, err)
	require.Equal(t, Success, got)

	_, err = ParseStatus("done")
	require.Error(t, err)
}
