package server

import (
	"net/http"
	"time"

	"github.com/evcc-io/cdrive/core"
	"github.com/evcc-io/cdrive/util"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

type route struct {
	Methods     []string
	Pattern     string
	HandlerFunc http.HandlerFunc
}

// HTTPd wraps an http.Server and adds the root router
type HTTPd struct {
	*http.Server
}

var log = util.NewLogger("httpd")

// NewHTTPd creates HTTP server with configured routes for the engine
func NewHTTPd(url string, engine *core.Engine, dispatcher *core.Dispatcher, hub *SocketHub) *HTTPd {
	router := mux.NewRouter().StrictSlash(true)

	// websocket
	router.HandleFunc("/ws", socketHandler(hub))

	// api
	api := router.PathPrefix("/api").Subrouter()
	api.Use(jsonHandler)
	api.Use(handlers.CompressHandler)
	api.Use(handlers.CORS(
		handlers.AllowedHeaders([]string{
			"Accept", "Accept-Language", "Content-Language", "Content-Type", "Origin",
		}),
	))

	routes := map[string]route{
		"health":   {[]string{"GET"}, "/health", healthHandler(engine)},
		"update":   {[]string{"POST", "OPTIONS"}, "/update", updateHandler(engine)},
		"accounts": {[]string{"GET"}, "/accounts", accountsHandler(engine)},
		"creds":    {[]string{"PUT", "OPTIONS"}, "/accounts/{id}", credentialsHandler(engine)},
		"remove":   {[]string{"DELETE"}, "/accounts/{id}", removeAccountHandler(engine)},
		"vehicles": {[]string{"GET"}, "/vehicles", vehiclesHandler(engine)},
		"vehicle":  {[]string{"GET"}, "/vehicles/{vin:[0-9A-Za-z]+}", vehicleHandler(engine)},
		"fields":   {[]string{"GET"}, "/vehicles/{vin:[0-9A-Za-z]+}/fields", fieldsHandler(engine)},
		"last":     {[]string{"GET"}, "/vehicles/{vin:[0-9A-Za-z]+}/command", lastCommandHandler(dispatcher)},
		"command":  {[]string{"POST", "OPTIONS"}, "/vehicles/{vin:[0-9A-Za-z]+}/{command:[a-z_]+}", commandHandler(dispatcher)},
		"states":   {[]string{"GET"}, "/entities/{entity}/states", statesHandler(engine)},
		"keys":     {[]string{"GET"}, "/entities/{entity}/keys", keysHandler(engine)},
		"binding":  {[]string{"GET"}, "/entities/{entity}/binding", bindingHandler(engine)},
		"bind":     {[]string{"PUT", "OPTIONS"}, "/entities/{entity}/binding", bindHandler(engine)},
		"unbind":   {[]string{"DELETE"}, "/entities/{entity}/binding", unbindHandler(engine)},
	}

	for _, r := range routes {
		api.Methods(r.Methods...).Path(r.Pattern).Handler(r.HandlerFunc)
	}

	srv := &HTTPd{
		Server: &http.Server{
			Addr:         url,
			Handler:      router,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  120 * time.Second,
			ErrorLog:     log.ERROR,
		},
	}
	srv.SetKeepAlivesEnabled(true)

	return srv
}

// Router returns the main router
func (s *HTTPd) Router() *mux.Router {
	return s.Handler.(*mux.Router)
}
