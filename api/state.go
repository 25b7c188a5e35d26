package api

import "fmt"

// State is a single projected device state
type State struct {
	Key     string      `json:"key"`
	Value   interface{} `json:"value"`
	Display string      `json:"uiValue,omitempty"`
}

func (s State) String() string {
	if s.Display != "" {
		return fmt.Sprintf("%s=%v (%s)", s.Key, s.Value, s.Display)
	}
	return fmt.Sprintf("%s=%v", s.Key, s.Value)
}

// StateType is the host type of a dynamic state
type StateType string

// State types
const (
	StateBool   StateType = "bool"
	StateNumber StateType = "number"
	StateString StateType = "string"
)

// StateKey describes a dynamic state of an entity
type StateKey struct {
	Key  string    `json:"key"`
	Type StateType `json:"type"`
}

// TypeOf inspects a state value. Returns false for unsupported types.
func TypeOf(val interface{}) (StateType, bool) {
	switch val.(type) {
	case bool:
		return StateBool, true
	case int, int32, int64, float32, float64:
		return StateNumber, true
	case string:
		return StateString, true
	default:
		return "", false
	}
}
