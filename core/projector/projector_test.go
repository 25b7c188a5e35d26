package projector

import (
	"testing"
	"time"

	"github.com/evcc-io/cdrive/api"
	"github.com/evcc-io/cdrive/util/tree"
	"github.com/stretchr/testify/require"
)

const statusJSON = `{
	"mileage": 100,
	"remaining_fuel": 37.854,
	"remaining_fuel_percent": 80,
	"door_lock_state": "SECURED",
	"chargingStatus": "",
	"parkingLight": false,
	"cbsData": [{"cbsType": "OIL", "cbsDueDate": "2024-01"}],
	"position": {"lat": 48.1, "lon": 11.5, "status": "OK"},
	"checkControlMessages": [],
	"lids": [{"name": "hood", "state": "CLOSED"}, {"name": "trunk", "state": "OPEN"}],
	"tires": [[1, 2], {"front": {"cbsData": "x", "pressure": 2.4}}]
}`

func parse(t *testing.T, s string) tree.Node {
	n, err := tree.Parse([]byte(s))
	require.NoError(t, err)
	return n
}

func keys(states []api.State) []string {
	var res []string
	for _, s := range states {
		res = append(res, s.Key)
	}
	return res
}

func TestProject(t *testing.T) {
	p := New(UnitsUS, DefaultSkip)
	states := p.Project(parse(t, statusJSON))

	require.Equal(t, []string{
		"mileage", "remaining_fuel", "remaining_fuel_percent", "door_lock_state",
		"parkingLight", "position_lat", "position_lon", "position_status",
		"tires_0_0", "tires_0_1", "tires_1_front_pressure",
	}, keys(states))

	require.Equal(t, api.State{Key: "mileage", Value: int64(100), Display: "62 miles"}, states[0])
	require.Equal(t, "10.0 gal", states[1].Display)
	require.Equal(t, "80%", states[2].Display)
	require.Equal(t, "SECURED", states[3].Display)
	require.Equal(t, false, states[4].Value)
	require.Empty(t, states[5].Display)
}

func TestProjectMetric(t *testing.T) {
	p := New(UnitsMetric, nil)
	states := p.Project(parse(t, `{"mileage": 100, "remaining_range_total": 420}`))

	require.Equal(t, "100 km", states[0].Display)
	require.Equal(t, "420 km", states[1].Display)
}

func TestProjectIdempotent(t *testing.T) {
	p := New(UnitsUS, DefaultSkip)
	n := parse(t, statusJSON)
	require.Equal(t, p.Project(n), p.Project(n))
}

func TestProjectSkipAnywhere(t *testing.T) {
	p := New(UnitsUS, []string{"cbsData"})
	states := p.Project(parse(t, statusJSON))

	for _, s := range states {
		require.NotContains(t, s.Key, "cbsData")
		require.NotContains(t, s.Key, "cbsType")
	}
}

func TestProjectLastWriteWins(t *testing.T) {
	p := New(UnitsMetric, nil)
	states := p.Project(
		parse(t, `{"a": {"b": 1}, "model": "i3"}`),
		parse(t, `{"a_b": 2, " model ": "i3s"}`),
	)

	require.Equal(t, []api.State{
		{Key: "a_b", Value: int64(2)},
		{Key: "model", Value: "i3s"},
	}, states)
}

func TestSelectStatus(t *testing.T) {
	p := New(UnitsUS, DefaultSkip)
	states := p.Project(parse(t, statusJSON))

	res := SelectStatus(states, FieldMileage)
	require.Equal(t, api.State{Key: StatusKey, Value: int64(100), Display: "62 miles"}, res[0])
	require.Len(t, res, len(states)+1)

	// absent field yields no status
	res = SelectStatus(states, FieldRemainingBatteryPercent)
	require.Equal(t, states, res)

	// reserved key is replaced
	res = SelectStatus(append([]api.State{{Key: StatusKey, Value: "old"}}, states...), FieldDoorLockState)
	require.Equal(t, "SECURED", res[0].Value)
	require.Len(t, res, len(states)+1)
}

func TestKmToMiles(t *testing.T) {
	require.InDelta(t, 62.137, KmToMiles(100), 1e-9)
	f, _ := UnitsUS.Lookup(FieldMileage)
	require.Equal(t, "62 miles", f.Display(100))
}

func TestKeys(t *testing.T) {
	res := Keys([]api.State{
		{Key: "a", Value: true},
		{Key: "b", Value: int64(1)},
		{Key: "c", Value: 1.5},
		{Key: "d", Value: "x"},
		{Key: "e", Value: []int{1}},
	})

	require.Equal(t, []api.StateKey{
		{Key: "a", Type: api.StateBool},
		{Key: "b", Type: api.StateNumber},
		{Key: "c", Type: api.StateNumber},
		{Key: "d", Type: api.StateString},
	}, res)
}

func TestDerive(t *testing.T) {
	status := parse(t, `{"gps_lat": 48.1372, "gps_long": 11.5756, "lids": [{"name": "hood", "state": "CLOSED"}, {"name": "trunk", "state": "OPEN"}], "windows": [{"name": "left", "state": "CLOSED"}]}`).(tree.Mapping)

	now := time.Date(2022, 2, 1, 10, 0, 0, 0, time.UTC)
	res := Derive(status, &Location{Lat: 52.52, Lon: 13.405}, now)

	open, _ := res.Scalar(FieldOpenLids)
	require.Equal(t, "trunk", open)

	closed, _ := res.Scalar(FieldAllLidsClosed)
	require.Equal(t, false, closed)

	closed, _ = res.Scalar(FieldAllWindowsClosed)
	require.Equal(t, true, closed)

	dist, ok := res.Float(FieldDistance)
	require.True(t, ok)
	require.InDelta(t, 504, dist, 2)

	_, ok = res.Get(FieldLastUpdate)
	require.True(t, ok)

	// input untouched
	_, ok = status.Get(FieldDistance)
	require.False(t, ok)
}

func TestAvailableStatusFields(t *testing.T) {
	require.Equal(t, []string{FieldMileage, FieldRemainingFuel, FieldRemainingFuelPercent, FieldDoorLockState}, AvailableStatusFields(parse(t, statusJSON)))
	require.True(t, IsStatusField(FieldDoorLockState))
	require.False(t, IsStatusField("gps_lat"))
}
