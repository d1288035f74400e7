package postfetch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplyReportsBothCounts(t *testing.T) {
	rows := []string{"algebra exam", "history quiz", "algebra assignment"}

	kept, outcome := Apply(rows, func(s string) bool {
		return strings.Contains(s, "algebra")
	})

	require.Equal(t, []string{"algebra exam", "algebra assignment"}, kept)
	require.Equal(t, 3, outcome.RawCount)
	require.Equal(t, 2, outcome.FilteredCount)
}

func TestApplyEmptyInput(t *testing.T) {
	kept, outcome := Apply(nil, func(int) bool { return true })
	require.Empty(t, kept)
	require.Zero(t, outcome.RawCount)
	require.Zero(t, outcome.FilteredCount)
}

func TestApplyPreservesOrder(t *testing.T) {
	rows := []int{5, 1, 4, 2, 3}
	kept, _ := Apply(rows, func(n int) bool { return n > 2 })
	require.Equal(t, []int{5, 4, 3}, kept)
}
