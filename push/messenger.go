package push

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/evcc-io/cdrive/api"
	"github.com/evcc-io/cdrive/util"
)

// Messenger implements message sending
type Messenger interface {
	Send(title, msg string)
}

// Event is the template data of a command notification
type Event struct {
	ID      string
	VIN     string
	Command string
	State   string
	Error   string
}

const (
	DefaultTitle = "{{.VIN}}: {{.Command}}"
	DefaultMsg   = "{{.Command}} {{.State}}{{if .Error}} ({{.Error}}){{end}}"
)

// Hub sends command results to all messengers
type Hub struct {
	log    *util.Logger
	title  *template.Template
	msg    *template.Template
	sender []Messenger
}

// NewHub creates a notification hub. Empty templates use the defaults.
func NewHub(title, msg string) (*Hub, error) {
	if title == "" {
		title = DefaultTitle
	}
	if msg == "" {
		msg = DefaultMsg
	}

	tt, err := template.New("title").Option("missingkey=error").Parse(title)
	if err != nil {
		return nil, fmt.Errorf("invalid title template: %w", err)
	}

	mt, err := template.New("msg").Option("missingkey=error").Parse(msg)
	if err != nil {
		return nil, fmt.Errorf("invalid message template: %w", err)
	}

	return &Hub{
		log:   util.NewLogger("push"),
		title: tt,
		msg:   mt,
	}, nil
}

// Add adds a sending provider
func (h *Hub) Add(sender Messenger) {
	h.sender = append(h.sender, sender)
}

func event(res api.CommandResult) Event {
	ev := Event{
		ID:      res.ID,
		VIN:     res.VIN,
		Command: res.Command.String(),
		State:   string(res.State),
	}

	if res.Err != nil {
		ev.Error = res.Err.Error()
	}

	return ev
}

func execute(tmpl *template.Template, ev Event) (string, error) {
	var b bytes.Buffer
	err := tmpl.Execute(&b, ev)
	return b.String(), err
}

// Format renders title and message of a command result
func (h *Hub) Format(res api.CommandResult) (string, string, error) {
	ev := event(res)

	title, err := execute(h.title, ev)
	if err != nil {
		return "", "", err
	}

	msg, err := execute(h.msg, ev)

	return title, msg, err
}

// Notify implements core.Notifier
func (h *Hub) Notify(res api.CommandResult) {
	if len(h.sender) == 0 {
		return
	}

	title, msg, err := h.Format(res)
	if err != nil {
		h.log.ERROR.Printf("invalid message template: %v", err)
		return
	}

	for _, sender := range h.sender {
		go sender.Send(title, msg)
	}
}
