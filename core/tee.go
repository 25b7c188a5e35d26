package core

import (
	"fmt"
	"strings"

	"github.com/evcc-io/cdrive/api"
)

// Tee distributes states to multiple sinks
type Tee struct {
	sinks []api.Sink
}

// Attach adds a sink
func (t *Tee) Attach(sink api.Sink) {
	t.sinks = append(t.sinks, sink)
}

// UpdateStates implements api.Sink. All sinks are updated even if one fails.
func (t *Tee) UpdateStates(entity string, states []api.State) error {
	var errs []string
	for _, sink := range t.sinks {
		if err := sink.UpdateStates(entity, states); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s: %s", entity, strings.Join(errs, "; "))
	}

	return nil
}
