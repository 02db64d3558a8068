package message

import (
	"testing"

	"github.com/danmuck/vicictl/internal/testutil/testlog"
	"github.com/stretchr/testify/require"
)

func TestSetKeepsInsertionOrder(t *testing.T) {
	testlog.Start(t)
	m := New().Set("b", "1").Set("a", "2").Set("b", "3")
	require.Equal(t, []string{"b", "a"}, m.Keys())
	v, ok := m.GetString("b")
	require.True(t, ok)
	require.Equal(t, "3", v)
}

func TestTypedAccessors(t *testing.T) {
	testlog.Start(t)
	m := New().
		Set("n", 42).
		Set("yes", true).
		Set("list", []string{"x", "y"}).
		Set("sec", map[string]any{"inner": "v"})

	n, _ := m.GetString("n")
	require.Equal(t, "42", n)
	yes, _ := m.GetString("yes")
	require.Equal(t, "yes", yes)

	l, ok := m.GetList("list")
	require.True(t, ok)
	require.Equal(t, []string{"x", "y"}, l)

	sec, ok := m.GetSection("sec")
	require.True(t, ok)
	inner, _ := sec.GetString("inner")
	require.Equal(t, "v", inner)

	_, ok = m.GetSection("list")
	require.False(t, ok)
	_, ok = (*Message)(nil).Get("x")
	require.False(t, ok)
}

func TestFromMapSortsKeysAndConvertsLists(t *testing.T) {
	testlog.Start(t)
	m := FromMap(map[string]any{
		"remote_addrs": []any{"198.51.100.7", 500},
		"version":      int64(2),
		"children":     map[string]any{"net": map[string]any{"start_action": "trap"}},
	})
	require.Equal(t, []string{"children", "remote_addrs", "version"}, m.Keys())
	require.Equal(t, map[string]any{
		"children":     map[string]any{"net": map[string]any{"start_action": "trap"}},
		"remote_addrs": []string{"198.51.100.7", "500"},
		"version":      "2",
	}, m.ToMap())
}
