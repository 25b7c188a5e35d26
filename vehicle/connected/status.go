package connected

import (
	"fmt"
	"strings"
	"time"

	"github.com/evcc-io/cdrive/api"
	"github.com/evcc-io/cdrive/core/projector"
	"github.com/evcc-io/cdrive/util/tree"
)

var renames = map[string]string{
	"remainingFuel":          projector.FieldRemainingFuel,
	"fuelPercent":            projector.FieldRemainingFuelPercent,
	"chargingLevelHv":        projector.FieldRemainingBatteryPercent,
	"remainingRangeFuel":     projector.FieldRemainingRangeFuel,
	"remainingRangeElectric": projector.FieldRemainingRangeElectric,
	"doorLockState":          projector.FieldDoorLockState,
}

var (
	lids = []string{
		"doorDriverFront", "doorDriverRear", "doorPassengerFront", "doorPassengerRear", "hood", "trunk",
	}
	windows = []string{
		"windowDriverFront", "windowDriverRear", "windowPassengerFront", "windowPassengerRear", "rearWindow", "sunroof",
	}
)

// vehicles extracts the vehicle list from the /user/vehicles response
func vehicles(doc tree.Node) ([]api.VehicleRef, error) {
	m, _ := doc.(tree.Mapping)

	list, ok := m.Get("vehicles")
	if !ok {
		return nil, fmt.Errorf("%w: missing vehicles", api.ErrDecode)
	}

	seq, ok := list.(tree.Sequence)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected vehicles", api.ErrDecode)
	}

	var res []api.VehicleRef
	for _, n := range seq {
		v, ok := n.(tree.Mapping)
		if !ok {
			continue
		}

		vin := strings.ToUpper(strings.TrimSpace(v.String("vin")))
		if vin == "" {
			continue
		}

		year, _ := v.Float("yearOfConstruction")

		res = append(res, api.VehicleRef{
			VIN:        vin,
			Model:      v.String("model"),
			Year:       int(year),
			Brand:      v.String("brand"),
			DriveTrain: v.String("driveTrain"),
			Attributes: v.Delete("vin", "model", "yearOfConstruction", "brand", "driveTrain"),
		})
	}

	return res, nil
}

// normalize maps the vehicle status onto the canonical field names
func normalize(status tree.Mapping) tree.Mapping {
	res := status.Rename(renames)

	if pos, ok := res.Get("position"); ok {
		if pm, ok := pos.(tree.Mapping); ok {
			for _, f := range [][2]string{
				{"lat", projector.FieldGPSLat},
				{"lon", projector.FieldGPSLong},
				{"heading", projector.FieldGPSHeading},
			} {
				if v, ok := pm.Scalar(f[0]); ok {
					res = res.Set(f[1], tree.Value(v))
				}
			}
		}
		res = res.Delete("position")
	}

	fuel, fuelOK := res.Float(projector.FieldRemainingRangeFuel)
	electric, electricOK := res.Float(projector.FieldRemainingRangeElectric)
	if fuelOK || electricOK {
		res = res.Set(projector.FieldRemainingRangeTotal, tree.Value(fuel+electric))
	}

	if seq := items(res, lids); len(seq) > 0 {
		res = res.Set(projector.FieldLids, seq)
	}

	if seq := items(res, windows); len(seq) > 0 {
		res = res.Set(projector.FieldWindows, seq)
	}

	if s := res.String("updateTime"); s != "" {
		if ts, err := time.Parse(time.RFC3339, s); err == nil {
			res = res.Set(projector.FieldTimestamp, tree.Value(ts.Local().Format(projector.LastUpdateLayout)))
		}
	}

	return res
}

// items collects the states of the given keys as a list of named items
func items(status tree.Mapping, keys []string) tree.Sequence {
	var res tree.Sequence
	for _, k := range keys {
		if state := status.String(k); state != "" {
			res = append(res, tree.Mapping{
				{Key: "name", Node: tree.Value(k)},
				{Key: "state", Node: tree.Value(state)},
			})
		}
	}
	return res
}
