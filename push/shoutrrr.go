package push

import (
	"errors"
	"strings"

	"github.com/containrrr/shoutrrr"
	"github.com/containrrr/shoutrrr/pkg/router"
	"github.com/containrrr/shoutrrr/pkg/types"
	"github.com/evcc-io/cdrive/util"
)

// Shoutrrr implements the shoutrrr messaging aggregator
type Shoutrrr struct {
	log *util.Logger
	app *router.ServiceRouter
}

// NewShoutrrr creates new Shoutrrr messenger for the given service urls
func NewShoutrrr(uris []string) (*Shoutrrr, error) {
	if len(uris) == 0 {
		return nil, errors.New("missing uri")
	}

	app, err := shoutrrr.CreateSender(uris...)
	if err != nil {
		return nil, err
	}

	return &Shoutrrr{
		log: util.NewLogger("shoutrrr"),
		app: app,
	}, nil
}

// Send sends to all receivers
func (m *Shoutrrr) Send(title, msg string) {
	params := &types.Params{}
	if title != "" {
		params.SetTitle(title)
	}

	m.log.DEBUG.Printf("sending: %s", strings.ReplaceAll(msg, "\n", " "))

	for _, err := range m.app.Send(msg, params) {
		if err != nil {
			m.log.ERROR.Printf("send: %v", err)
		}
	}
}
