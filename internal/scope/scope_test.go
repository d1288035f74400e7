package scope

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIDSetDeduplicatesAndOrders(t *testing.T) {
	r := IDSet("b", "a", "b", "", "c", "a")
	require.False(t, r.IsUnrestricted())
	require.False(t, r.IsEmpty())
	require.Equal(t, []string{"a", "b", "c"}, r.IDs())
}

func TestIDSetCollapsesToEmpty(t *testing.T) {
	require.True(t, IDSet().IsEmpty())
	require.True(t, IDSet("", "").IsEmpty())
}

func TestContains(t *testing.T) {
	require.True(t, Unrestricted().Contains("anything"))
	require.False(t, Empty().Contains("anything"))

	r := IDSet("a", "b")
	require.True(t, r.Contains("a"))
	require.False(t, r.Contains("c"))
}

func TestIntersectNarrowsToFilter(t *testing.T) {
	r := IDSet("a", "b", "c")
	require.Equal(t, []string{"b"}, r.Intersect("b").IDs())
}

func TestIntersectOutsideScopeYieldsEmpty(t *testing.T) {
	r := IDSet("a", "b")
	require.True(t, r.Intersect("z").IsEmpty())
	require.True(t, Empty().Intersect("a").IsEmpty())
}

func TestIntersectUnrestrictedAdoptsFilter(t *testing.T) {
	got := Unrestricted().Intersect("x", "y")
	require.Equal(t, []string{"x", "y"}, got.IDs())
}

func TestUnion(t *testing.T) {
	require.True(t, Union(Unrestricted(), IDSet("a")).IsUnrestricted())
	require.True(t, Union(IDSet("a"), Unrestricted()).IsUnrestricted())
	require.Equal(t, []string{"a", "b", "c"}, Union(IDSet("a", "b"), IDSet("b", "c")).IDs())
	require.True(t, Union(Empty(), Empty()).IsEmpty())
	require.Equal(t, []string{"a"}, Union(IDSet("a"), Empty()).IDs())
}

func TestDenied(t *testing.T) {
	require.False(t, All().Denied())
	require.False(t, Scope{Dimension: ByClass, Result: IDSet("c1")}.Denied())
	require.True(t, Scope{Dimension: ByClass, Result: Empty()}.Denied())

	// Audience scopes still admit unclassed rows on an empty id-set.
	audience := Scope{Dimension: ByClass, Result: Empty(), IncludeUnclassed: true}
	require.False(t, audience.Denied())
}
