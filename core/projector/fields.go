package projector

import (
	"github.com/evcc-io/cdrive/util/tree"
	"github.com/thoas/go-funk"
)

// Canonical telemetry field names
const (
	FieldMileage                 = "mileage"
	FieldRemainingFuel           = "remaining_fuel"
	FieldRemainingFuelPercent    = "remaining_fuel_percent"
	FieldRemainingBatteryPercent = "remaining_battery_percent"
	FieldRemainingRangeTotal     = "remaining_range_total"
	FieldRemainingRangeElectric  = "remaining_range_electric"
	FieldRemainingRangeFuel      = "remaining_range_fuel"
	FieldDoorLockState           = "door_lock_state"
	FieldGPSLat                  = "gps_lat"
	FieldGPSLong                 = "gps_long"
	FieldGPSHeading              = "gps_heading"
	FieldLids                    = "lids"
	FieldWindows                 = "windows"
	FieldTimestamp               = "timestamp"

	// derived
	FieldDistance         = "distance"
	FieldOpenLids         = "open_lids"
	FieldOpenWindows      = "open_windows"
	FieldAllLidsClosed    = "all_lids_closed"
	FieldAllWindowsClosed = "all_windows_closed"
	FieldLastUpdate       = "last_update"

	// StatusKey is the reserved key of the promoted status field
	StatusKey = "status"
)

// StatusFields are the fields selectable as an entity's primary display value
var StatusFields = []string{
	FieldMileage,
	FieldRemainingFuel,
	FieldRemainingFuelPercent,
	FieldRemainingBatteryPercent,
	FieldRemainingRangeTotal,
	FieldDoorLockState,
}

// DefaultSkip are bulky substructures which are never projected
var DefaultSkip = []string{
	"cbsData",
	"checkControlMessages",
	"DCS_CCH_Activation",
	"DCS_CCH_Ongoing",
	"breakdownNumber",
	FieldLids,
	FieldWindows,
}

// IsStatusField checks if field is a valid status selection
func IsStatusField(field string) bool {
	return funk.ContainsString(StatusFields, field)
}

// AvailableStatusFields returns the status fields present in the given status tree
func AvailableStatusFields(status tree.Node) []string {
	m, ok := status.(tree.Mapping)
	if !ok {
		return nil
	}

	var res []string
	for _, f := range StatusFields {
		if _, ok := m.Get(f); ok {
			res = append(res, f)
		}
	}

	return res
}
