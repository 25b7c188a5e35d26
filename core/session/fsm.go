package session

import (
	"context"
	"errors"

	"github.com/evcc-io/cdrive/util"
	"github.com/looplab/fsm"
)

// Authentication states
const (
	StateUnauthenticated = "unauthenticated"
	StateAuthenticated   = "authenticated"
	StateAuthFailed      = "auth_failed"
)

const (
	eventLogin  = "login"
	eventReject = "reject"
	eventExpire = "expire"
	eventReset  = "reset"
)

// Label returns the user visible account status for an authentication state
func Label(state string) string {
	switch state {
	case StateAuthenticated:
		return "Authenticated"
	case StateAuthFailed:
		return "Authentication Failed"
	default:
		return "Unauthenticated"
	}
}

func newFSM(log *util.Logger, id, initial string) *fsm.FSM {
	events := fsm.Events{
		{Name: eventLogin, Src: []string{StateUnauthenticated}, Dst: StateAuthenticated},
		{Name: eventReject, Src: []string{StateUnauthenticated, StateAuthenticated}, Dst: StateAuthFailed},
		{Name: eventExpire, Src: []string{StateAuthenticated}, Dst: StateUnauthenticated},
		{Name: eventReset, Src: []string{StateUnauthenticated, StateAuthenticated, StateAuthFailed}, Dst: StateUnauthenticated},
	}

	callbacks := fsm.Callbacks{
		"enter_state": func(_ context.Context, e *fsm.Event) {
			log.DEBUG.Printf("%s: %s -> %s", id, e.Src, e.Dst)
		},
	}

	return fsm.NewFSM(initial, events, callbacks)
}

// transition fires event if allowed from the current state
func transition(log *util.Logger, f *fsm.FSM, event string) {
	if !f.Can(event) {
		return
	}

	if err := f.Event(context.Background(), event); err != nil {
		var noTransition fsm.NoTransitionError
		if !errors.As(err, &noTransition) {
			log.ERROR.Printf("%s: %v", event, err)
		}
	}
}
