package tree

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseKeepsOrder(t *testing.T) {
	n, err := Parse([]byte(`{"z":1,"a":{"y":"x","b":[true,2.5,null]},"m":""}`))
	require.NoError(t, err)

	m, ok := n.(Mapping)
	require.True(t, ok)
	require.Equal(t, []string{"z", "a", "m"}, []string{m[0].Key, m[1].Key, m[2].Key})
	require.Equal(t, Value(int64(1)), m[0].Node)

	a := m[1].Node.(Mapping)
	require.Equal(t, "x", a.String("y"))

	b, _ := a.Get("b")
	require.Equal(t, Sequence{Value(true), Value(2.5), Value(nil)}, b)
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse([]byte(`{"a":`))
	require.Error(t, err)

	_, err = Parse([]byte(`{} {}`))
	require.Error(t, err)
}

func TestFalsy(t *testing.T) {
	for _, tc := range []struct {
		val   interface{}
		falsy bool
	}{
		{nil, true},
		{"", true},
		{"  ", true},
		{int64(0), true},
		{float64(0), true},
		{false, false},
		{true, false},
		{"LOCKED", false},
		{int64(3), false},
	} {
		require.Equal(t, tc.falsy, Value(tc.val).Falsy(), "%v", tc.val)
	}
}

func TestRename(t *testing.T) {
	m := Mapping{{Key: "mileage", Node: Value(int64(1))}, {Key: "fuelPercent", Node: Value(int64(2))}}
	m = m.Rename(map[string]string{"fuelPercent": "remaining_fuel_percent"})
	require.Equal(t, "remaining_fuel_percent", m[1].Key)

	f, ok := m.Float("remaining_fuel_percent")
	require.True(t, ok)
	require.Equal(t, 2.0, f)
}

func TestDelete(t *testing.T) {
	m := Mapping{{Key: "a", Node: Value(int64(1))}, {Key: "b", Node: Value(int64(2))}, {Key: "c", Node: Value(int64(3))}}

	res := m.Delete("a", "c")
	require.Equal(t, Mapping{{Key: "b", Node: Value(int64(2))}}, res)
	require.Len(t, m, 3)
}
