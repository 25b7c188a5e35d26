// Package vehicle resolves vehicles of an account.
package vehicle

import (
	"fmt"
	"strings"

	"github.com/evcc-io/cdrive/api"
	"github.com/thoas/go-funk"
)

// VINs returns the VINs of the given vehicles
func VINs(vehicles []api.VehicleRef) []string {
	return funk.Map(vehicles, func(v api.VehicleRef) string {
		return v.VIN
	}).([]string)
}

// Ensure returns the vehicle matching vin from the list provided by fun.
// If vin is empty, the list must contain exactly one vehicle.
func Ensure(vin string, fun func() ([]api.VehicleRef, error)) (api.VehicleRef, error) {
	vehicles, err := fun()
	if err != nil {
		return api.VehicleRef{}, fmt.Errorf("cannot get vehicles: %w", err)
	}

	if vin = strings.ToUpper(strings.TrimSpace(vin)); vin != "" {
		// vin defined but doesn't exist
		for _, vehicle := range vehicles {
			if vehicle.VIN == vin {
				return vehicle, nil
			}
		}

		return api.VehicleRef{}, fmt.Errorf("%w: cannot find vehicle: %s", api.ErrNotFound, vin)
	}

	// vin empty
	if len(vehicles) == 1 {
		return vehicles[0], nil
	}

	return api.VehicleRef{}, fmt.Errorf("cannot find vehicle: %v", VINs(vehicles))
}
