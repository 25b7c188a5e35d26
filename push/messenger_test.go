package push

import (
	"errors"
	"testing"
	"time"

	"github.com/evcc-io/cdrive/api"
	"github.com/stretchr/testify/require"
)

type message struct {
	title, msg string
}

type channel chan message

func (c channel) Send(title, msg string) {
	c <- message{title, msg}
}

func TestFormat(t *testing.T) {
	h, err := NewHub("", "")
	require.NoError(t, err)

	title, msg, err := h.Format(api.CommandResult{VIN: "WBY1", Command: api.CommandLock, State: api.ExecutionExecuted})
	require.NoError(t, err)
	require.Equal(t, "WBY1: lock", title)
	require.Equal(t, "lock EXECUTED", msg)

	_, msg, err = h.Format(api.CommandResult{VIN: "WBY1", Command: api.CommandHorn, State: api.ExecutionTimeout, Err: errors.New("timeout")})
	require.NoError(t, err)
	require.Equal(t, "horn TIMEOUT (timeout)", msg)
}

func TestInvalidTemplate(t *testing.T) {
	_, err := NewHub("{{.VIN", "")
	require.Error(t, err)

	h, err := NewHub("{{.Missing}}", "")
	require.NoError(t, err)

	_, _, err = h.Format(api.CommandResult{})
	require.Error(t, err)
}

func TestNotify(t *testing.T) {
	h, err := NewHub("", "{{.Command}}")
	require.NoError(t, err)

	c := make(channel, 1)
	h.Add(c)

	h.Notify(api.CommandResult{VIN: "WBY1", Command: api.CommandLight, State: api.ExecutionExecuted})

	select {
	case m := <-c:
		require.Equal(t, message{"WBY1: light", "light"}, m)
	case <-time.After(time.Second):
		t.Fatal("no message")
	}
}
