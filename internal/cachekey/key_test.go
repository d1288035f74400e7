package cachekey

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyStringIsCanonical(t *testing.T) {
	a := New("class", "list").With("page", 1).With("search", "math")
	b := New("class", "list").With("search", "math").With("page", 1)
	require.Equal(t, a.String(), b.String())
	require.Equal(t, "skooldesk:class:list:page=1|search=math", a.String())
}

func TestKeyRecordsZeroValues(t *testing.T) {
	empty := New("class", "list").With("search", "")
	filled := New("class", "list").With("search", "math")
	require.NotEqual(t, empty.String(), filled.String())
}

func TestKeyWithoutParams(t *testing.T) {
	require.Equal(t, "skooldesk:subject:list", New("subject", "list").String())
}

func TestPrefixCoversEntityFamily(t *testing.T) {
	require.Equal(t, "skooldesk:class:*", Prefix("class"))
}
