package connected

import (
	"fmt"
	"strings"

	"github.com/evcc-io/cdrive/api"
)

// Region servers
var Servers = map[string]string{
	"NA": "b2vapi.bmwgroup.us",
	"CN": "b2vapi.bmwgroup.cn:8592",
	"WD": "b2vapi.bmwgroup.com",
}

var regionAliases = map[string]string{
	"north_america": "NA",
	"china":         "CN",
	"rest_of_world": "WD",
}

// RegionString returns the region code of a configured region
func RegionString(s string) (string, error) {
	if r, ok := regionAliases[strings.ToLower(s)]; ok {
		return r, nil
	}

	if r := strings.ToUpper(s); Servers[r] != "" {
		return r, nil
	}

	return "", fmt.Errorf("invalid region: %s", s)
}

const (
	UserAgent = "okhttp/3.12.2"

	// OAuth client credentials of the mobile app
	ClientAuth = "Basic blF2NkNxdHhKdVhXUDc0eGYzQ0p3VUVQOjF6REh4NnVuNGNEanliTEVOTjNreWZ1bVgya0VZaWdXUGNRcGR2RFJwSUJrN3JPSg=="
	Scope      = "authenticate_user vehicle_data remote_services"
)

// serviceTypes maps commands to remote service types
var serviceTypes = map[api.Command]string{
	api.CommandLight:       "LIGHT_FLASH",
	api.CommandLock:        "DOOR_LOCK",
	api.CommandUnlock:      "DOOR_UNLOCK",
	api.CommandHorn:        "HORN_BLOW",
	api.CommandClimate:     "CLIMATE_NOW",
	api.CommandClimateOff:  "CLIMATE_STOP",
	api.CommandChargeStart: "CHARGE_NOW",
	api.CommandChargeStop:  "CHARGING_STOP",
}

// ExecutionResponse is the /executeService and /serviceExecutionStatus api response
type ExecutionResponse struct {
	ExecutionStatus struct {
		ServiceType string             `json:"serviceType"`
		Status      api.ExecutionState `json:"status"`
		EventID     string             `json:"eventId"`
	} `json:"executionStatus"`
}

// POIRequest is the /sendpoi api request
type POIRequest struct {
	POI api.POI `json:"poi"`
}
