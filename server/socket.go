package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/evcc-io/cdrive/api"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	socketWriteTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// SocketClient is a middleman between the websocket connection and the hub
type SocketClient struct {
	send chan []byte
}

func (c *SocketClient) writePump(ws *websocket.Conn) {
	defer ws.Close()

	for msg := range c.send {
		if err := ws.SetWriteDeadline(time.Now().Add(socketWriteTimeout)); err != nil {
			return
		}
		if err := ws.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// readPump discards incoming messages until the peer closes the connection
func (c *SocketClient) readPump(hub *SocketHub, ws *websocket.Conn) {
	defer func() {
		select {
		case hub.unregister <- c:
		case <-hub.done:
		}
	}()

	for {
		if _, _, err := ws.NextReader(); err != nil {
			return
		}
	}
}

func socketHandler(hub *SocketHub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.ERROR.Println(err)
			return
		}

		client := &SocketClient{send: make(chan []byte, 256)}

		select {
		case hub.register <- client:
		case <-hub.done:
			_ = conn.Close()
			return
		}

		go client.writePump(conn)
		go client.readPump(hub, conn)
	}
}

// SocketMessage is the update of an entity's states
type SocketMessage struct {
	Entity string      `json:"entity"`
	States []api.State `json:"states"`
}

// StateSource provides the known states of all entities
type StateSource interface {
	Entities() []string
	States(entity string) ([]api.State, bool)
}

// SocketHub maintains the set of active clients and broadcasts states to them
type SocketHub struct {
	source     StateSource
	register   chan *SocketClient
	unregister chan *SocketClient
	broadcast  chan SocketMessage
	done       chan struct{}
	clients    map[*SocketClient]bool
}

// NewSocketHub creates a web socket hub that distributes states to connected clients.
// New clients receive the complete states of all entities from source.
func NewSocketHub(source StateSource) *SocketHub {
	return &SocketHub{
		source:     source,
		register:   make(chan *SocketClient),
		unregister: make(chan *SocketClient),
		broadcast:  make(chan SocketMessage, 64),
		done:       make(chan struct{}),
		clients:    make(map[*SocketClient]bool),
	}
}

// UpdateStates implements api.Sink. Updates are dropped once the hub has stopped.
func (h *SocketHub) UpdateStates(entity string, states []api.State) error {
	select {
	case h.broadcast <- SocketMessage{Entity: entity, States: states}:
	case <-h.done:
	}
	return nil
}

// welcome sends the known states of all entities to a new client
func (h *SocketHub) welcome(client *SocketClient) {
	for _, entity := range h.source.Entities() {
		states, ok := h.source.States(entity)
		if !ok {
			continue
		}

		b, err := json.Marshal(SocketMessage{Entity: entity, States: states})
		if err != nil {
			log.ERROR.Printf("socket: %v", err)
			continue
		}

		select {
		case client.send <- b:
		default:
		}
	}
}

func (h *SocketHub) close(client *SocketClient) {
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
}

// Run starts data and status distribution until ctx is cancelled
func (h *SocketHub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.close(client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			h.welcome(client)

		case client := <-h.unregister:
			h.close(client)

		case msg := <-h.broadcast:
			b, err := json.Marshal(msg)
			if err != nil {
				log.ERROR.Printf("socket: %v", err)
				continue
			}

			for client := range h.clients {
				select {
				case client.send <- b:
				default:
					h.close(client)
				}
			}
		}
	}
}
