package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeClampsOutOfRangeValues(t *testing.T) {
	req := PageRequest{Page: 0, PageSize: 0}.Normalize()
	require.Equal(t, 1, req.Page)
	require.Equal(t, DefaultPageSize, req.PageSize)

	req = PageRequest{Page: 3, PageSize: MaxPageSize + 1}.Normalize()
	require.Equal(t, 3, req.Page)
	require.Equal(t, DefaultPageSize, req.PageSize)
}

func TestNewPaginationKeepsRequestWindowAndTotal(t *testing.T) {
	// 15 rows at 10 per page: page 2 reports the same total, the repository
	// window delivers the remaining 5 rows.
	p := NewPagination(PageRequest{Page: 2, PageSize: 10}, 15)
	require.Equal(t, 2, p.Page)
	require.Equal(t, 10, p.PageSize)
	require.Equal(t, 15, p.TotalCount)
}
