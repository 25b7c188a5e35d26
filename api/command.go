package api

import (
	"fmt"
	"strings"
)

// Command is a symbolic remote command code
type Command string

// Commands
const (
	CommandLight       Command = "light"
	CommandLock        Command = "lock"
	CommandUnlock      Command = "unlock"
	CommandHorn        Command = "horn"
	CommandClimate     Command = "climate"
	CommandClimateOff  Command = "climate_off"
	CommandChargeStart Command = "charge_start"
	CommandChargeStop  Command = "charge_stop"
	CommandSendPOI     Command = "send_poi"
)

// Commands lists all supported command codes
var Commands = []Command{
	CommandLight, CommandLock, CommandUnlock, CommandHorn, CommandClimate,
	CommandClimateOff, CommandChargeStart, CommandChargeStop, CommandSendPOI,
}

// CommandString parses a command code
func CommandString(s string) (Command, error) {
	for _, c := range Commands {
		if string(c) == strings.ToLower(strings.TrimSpace(s)) {
			return c, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownCommand, s)
}

func (c Command) String() string {
	return string(c)
}

// Confirmed reports whether completion of the command is confirmed by polling
// the execution status. Other commands are done once acknowledged.
func (c Command) Confirmed() bool {
	switch c {
	case CommandLight, CommandLock, CommandUnlock, CommandHorn, CommandClimate:
		return true
	default:
		return false
	}
}

// POI is the send_poi payload
type POI struct {
	Latitude   float64 `json:"lat"`
	Longitude  float64 `json:"lon"`
	Name       string  `json:"name"`
	Street     string  `json:"street,omitempty"`
	City       string  `json:"city,omitempty"`
	PostalCode string  `json:"postalCode,omitempty"`
	Country    string  `json:"country,omitempty"`
}

// Validate checks the coordinates
func (p POI) Validate() error {
	if p.Latitude < -90 || p.Latitude > 90 || p.Longitude < -180 || p.Longitude > 180 {
		return fmt.Errorf("invalid poi coordinates: %v,%v", p.Latitude, p.Longitude)
	}
	return nil
}

// ExecutionState is the remote execution state of a command
type ExecutionState string

// Execution states
const (
	ExecutionInitiated ExecutionState = "INITIATED"
	ExecutionPending   ExecutionState = "PENDING"
	ExecutionDelivered ExecutionState = "DELIVERED_TO_VEHICLE"
	ExecutionExecuted  ExecutionState = "EXECUTED"
	ExecutionFailed    ExecutionState = "FAILED"
	ExecutionTimeout   ExecutionState = "TIMEOUT"
)

// Terminal reports whether no further state change is expected
func (s ExecutionState) Terminal() bool {
	return s == ExecutionExecuted || s == ExecutionFailed || s == ExecutionTimeout
}

// Execution references a remote command execution
type Execution struct {
	Command Command
	EventID string
	State   ExecutionState
}

// CommandResult is the outcome of a command
type CommandResult struct {
	ID      string
	VIN     string
	Command Command
	State   ExecutionState
	Err     error
}
