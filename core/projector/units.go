package projector

import (
	"fmt"
	"strings"
)

// Units is the display unit system
type Units string

// Unit systems
const (
	UnitsUS     Units = "us"
	UnitsMetric Units = "metric"
)

// UnitsString parses a unit system
func UnitsString(s string) (Units, error) {
	switch u := Units(strings.ToLower(s)); u {
	case UnitsUS, UnitsMetric:
		return u, nil
	default:
		return "", fmt.Errorf("invalid units: %s", s)
	}
}

// Converter converts a metric quantity
type Converter func(float64) float64

// KmToMiles converts kilometers to miles
func KmToMiles(km float64) float64 {
	return km * 0.62137
}

// LitersToGallons converts liters to US gallons
func LitersToGallons(l float64) float64 {
	return l / 3.785411784
}

// Format describes how a field is displayed
type Format struct {
	Layout  string
	Convert Converter
}

// Display formats a raw value. Converters only apply to numeric values.
func (f Format) Display(val interface{}) string {
	if f.Convert != nil {
		if v, ok := number(val); ok {
			return fmt.Sprintf(f.Layout, f.Convert(v))
		}
	}
	return fmt.Sprintf(f.Layout, val)
}

// Formats is the display table keyed by unit system and field
var Formats = map[Units]map[string]Format{
	UnitsUS: {
		FieldMileage:                 {Layout: "%.0f miles", Convert: KmToMiles},
		FieldRemainingFuel:           {Layout: "%.1f gal", Convert: LitersToGallons},
		FieldRemainingFuelPercent:    {Layout: "%v%%"},
		FieldRemainingBatteryPercent: {Layout: "%v%%"},
		FieldRemainingRangeTotal:     {Layout: "%.0f mi", Convert: KmToMiles},
		FieldRemainingRangeElectric:  {Layout: "%.0f mi", Convert: KmToMiles},
		FieldRemainingRangeFuel:      {Layout: "%.0f mi", Convert: KmToMiles},
		FieldDoorLockState:           {Layout: "%v"},
		FieldDistance:                {Layout: "%.1f mi", Convert: KmToMiles},
	},
	UnitsMetric: {
		FieldMileage:                 {Layout: "%v km"},
		FieldRemainingFuel:           {Layout: "%v ltrs"},
		FieldRemainingFuelPercent:    {Layout: "%v%%"},
		FieldRemainingBatteryPercent: {Layout: "%v%%"},
		FieldRemainingRangeTotal:     {Layout: "%v km"},
		FieldRemainingRangeElectric:  {Layout: "%v km"},
		FieldRemainingRangeFuel:      {Layout: "%v km"},
		FieldDoorLockState:           {Layout: "%v"},
		FieldDistance:                {Layout: "%.1f km"},
	},
}

// Lookup returns the display format for a field
func (u Units) Lookup(field string) (Format, bool) {
	f, ok := Formats[u][field]
	return f, ok
}

func number(val interface{}) (float64, bool) {
	switch v := val.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	case float32:
		return float64(v), true
	}
	return 0, false
}
