package projector

import (
	"strings"
	"time"

	"github.com/evcc-io/cdrive/util"
	"github.com/evcc-io/cdrive/util/tree"
)

// Location is a geographic position in decimal degrees
type Location struct {
	Lat, Lon float64
}

// LastUpdateLayout is the display layout of the last update time
const LastUpdateLayout = "02 Jan 2006 15:04:05 MST"

// Derive returns status extended by summary fields: open lids and windows,
// distance from home and the local update time. The input is not modified.
func Derive(status tree.Mapping, home *Location, now time.Time) tree.Mapping {
	res := make(tree.Mapping, len(status), len(status)+6)
	copy(res, status)

	if lids, ok := status.Get(FieldLids); ok {
		open := openItems(lids)
		res = res.Set(FieldAllLidsClosed, tree.Value(len(open) == 0))
		res = res.Set(FieldOpenLids, tree.Value(strings.Join(open, ", ")))
	}

	if windows, ok := status.Get(FieldWindows); ok {
		open := openItems(windows)
		res = res.Set(FieldAllWindowsClosed, tree.Value(len(open) == 0))
		res = res.Set(FieldOpenWindows, tree.Value(strings.Join(open, ", ")))
	}

	if home != nil {
		lat, latOK := status.Float(FieldGPSLat)
		lon, lonOK := status.Float(FieldGPSLong)
		if latOK && lonOK {
			res = res.Set(FieldDistance, tree.Value(util.Haversine(home.Lat, home.Lon, lat, lon)))
		}
	}

	return res.Set(FieldLastUpdate, tree.Value(now.Local().Format(LastUpdateLayout)))
}

// openItems returns the names of all items not reported as closed
func openItems(n tree.Node) []string {
	items, ok := n.(tree.Sequence)
	if !ok {
		return nil
	}

	var open []string
	for _, item := range items {
		m, ok := item.(tree.Mapping)
		if !ok {
			continue
		}

		if state := m.String("state"); state != "" && !strings.EqualFold(state, "CLOSED") {
			open = append(open, m.String("name"))
		}
	}

	return open
}
