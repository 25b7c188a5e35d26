package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/evcc-io/cdrive/api"
	"github.com/evcc-io/cdrive/core"
	"github.com/evcc-io/cdrive/core/projector"
	"github.com/evcc-io/cdrive/core/session"
	"github.com/evcc-io/cdrive/util/tree"
	"github.com/evcc-io/cdrive/vehicle/connected"
	"github.com/gorilla/mux"
)

func jsonHandler(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		h.ServeHTTP(w, r)
	})
}

func jsonWrite(w http.ResponseWriter, content interface{}) {
	if err := json.NewEncoder(w).Encode(content); err != nil {
		log.ERROR.Printf("httpd: failed to encode JSON: %v", err)
	}
}

func jsonResult(w http.ResponseWriter, res interface{}) {
	jsonWrite(w, map[string]interface{}{"result": res})
}

func jsonError(w http.ResponseWriter, status int, err error) {
	w.WriteHeader(status)
	jsonWrite(w, map[string]interface{}{"error": err.Error()})
}

// errorStatus maps errors onto http status codes
func errorStatus(err error) int {
	switch {
	case errors.Is(err, api.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, api.ErrUnknownCommand):
		return http.StatusBadRequest
	case errors.Is(err, api.ErrNoSession):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

// healthHandler reports if the last update sweep is recent
func healthHandler(engine *core.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := engine.Waiter().Overdue(); err != nil {
			jsonError(w, http.StatusServiceUnavailable, err)
			return
		}

		jsonResult(w, map[string]interface{}{"status": "OK", "updated": engine.Waiter().Updated()})
	}
}

// updateHandler requests an update sweep
func updateHandler(engine *core.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine.RequestUpdate()
		w.WriteHeader(http.StatusAccepted)
		jsonResult(w, true)
	}
}

type account struct {
	ID     string `json:"id"`
	State  string `json:"state"`
	Status string `json:"status"`
}

// accountsHandler lists the accounts and their authentication state
func accountsHandler(engine *core.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := make([]account, 0)
		for _, s := range engine.Sessions() {
			res = append(res, account{
				ID:     s.ID(),
				State:  s.State(),
				Status: session.Label(s.State()),
			})
		}

		jsonResult(w, res)
	}
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Region   string `json:"region"`
	Captcha  string `json:"captcha"`
}

// credentialsHandler replaces the credentials of an account
func credentialsHandler(engine *core.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentials
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, http.StatusBadRequest, err)
			return
		}

		if req.Username == "" || req.Password == "" {
			jsonError(w, http.StatusBadRequest, errors.New("missing username or password"))
			return
		}

		region, err := connected.RegionString(req.Region)
		if err != nil {
			jsonError(w, http.StatusBadRequest, err)
			return
		}

		if err := engine.UpdateCredentials(mux.Vars(r)["id"], api.Credentials{
			Username: req.Username,
			Password: req.Password,
			Region:   region,
			Captcha:  req.Captcha,
		}); err != nil {
			jsonError(w, errorStatus(err), err)
			return
		}

		w.WriteHeader(http.StatusAccepted)
		jsonResult(w, true)
	}
}

// removeAccountHandler tears down an account session
func removeAccountHandler(engine *core.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		if _, ok := engine.Session(id); !ok {
			jsonError(w, http.StatusNotFound, fmt.Errorf("%w: account %s", api.ErrNotFound, id))
			return
		}

		engine.RemoveAccount(id)
		jsonResult(w, true)
	}
}

// vehiclesHandler lists the cached vehicles
func vehiclesHandler(engine *core.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jsonResult(w, engine.Vehicles())
	}
}

type snapshot struct {
	VIN        string      `json:"vin"`
	Account    string      `json:"account"`
	Model      string      `json:"model,omitempty"`
	Year       int         `json:"year,omitempty"`
	Brand      string      `json:"brand,omitempty"`
	DriveTrain string      `json:"driveTrain,omitempty"`
	Attributes interface{} `json:"attributes,omitempty"`
	Status     interface{} `json:"status"`
	States     []api.State `json:"states"`
	Updated    time.Time   `json:"updated"`
}

// Snapshot returns the exportable representation of a cached snapshot
func Snapshot(s core.Snapshot) interface{} {
	res := snapshot{
		VIN:        s.VIN,
		Account:    s.AccountID,
		Model:      s.Vehicle.Model,
		Year:       s.Vehicle.Year,
		Brand:      s.Vehicle.Brand,
		DriveTrain: s.Vehicle.DriveTrain,
		Status:     tree.Interface(s.Status),
		States:     s.States,
		Updated:    s.Updated,
	}

	if s.Vehicle.Attributes != nil {
		res.Attributes = tree.Interface(s.Vehicle.Attributes)
	}

	return res
}

func cachedVehicle(engine *core.Engine, w http.ResponseWriter, r *http.Request) (core.Snapshot, bool) {
	vin := mux.Vars(r)["vin"]

	s, ok := engine.Cache().Get(vin)
	if !ok {
		jsonError(w, http.StatusNotFound, fmt.Errorf("%w: vehicle %s", api.ErrNotFound, vin))
	}

	return s, ok
}

// vehicleHandler returns the cached snapshot of a vehicle
func vehicleHandler(engine *core.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s, ok := cachedVehicle(engine, w, r); ok {
			jsonResult(w, Snapshot(s))
		}
	}
}

// fieldsHandler returns the status fields available for a vehicle
func fieldsHandler(engine *core.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s, ok := cachedVehicle(engine, w, r); ok {
			res := projector.AvailableStatusFields(s.Status)
			if res == nil {
				res = []string{}
			}
			jsonResult(w, res)
		}
	}
}

// statesHandler returns the last published states of an entity
func statesHandler(engine *core.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entity := mux.Vars(r)["entity"]

		states, ok := engine.States(entity)
		if !ok {
			jsonError(w, http.StatusNotFound, fmt.Errorf("%w: entity %s", api.ErrNotFound, entity))
			return
		}

		jsonResult(w, states)
	}
}

// keysHandler returns the typed dynamic state keys of an entity
func keysHandler(engine *core.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jsonResult(w, engine.DynamicStateKeys(mux.Vars(r)["entity"]))
	}
}

// bindingHandler returns the binding of an entity
func bindingHandler(engine *core.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entity := mux.Vars(r)["entity"]

		b, ok := engine.Bindings().ForEntity(entity)
		if !ok {
			jsonError(w, http.StatusNotFound, fmt.Errorf("%w: entity %s", api.ErrNotFound, entity))
			return
		}

		jsonResult(w, b)
	}
}

// bindHandler binds an entity to a vehicle or changes its status field
func bindHandler(engine *core.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req core.Binding
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, http.StatusBadRequest, err)
			return
		}

		b := core.Binding{
			Entity: mux.Vars(r)["entity"],
			VIN:    strings.ToUpper(req.VIN),
			Status: req.Status,
		}

		if err := engine.Bindings().Bind(b); err != nil {
			jsonError(w, http.StatusBadRequest, err)
			return
		}

		jsonResult(w, b)
	}
}

// unbindHandler removes the binding of an entity
func unbindHandler(engine *core.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entity := mux.Vars(r)["entity"]

		if _, ok := engine.Bindings().ForEntity(entity); !ok {
			jsonError(w, http.StatusNotFound, fmt.Errorf("%w: entity %s", api.ErrNotFound, entity))
			return
		}

		engine.Unbind(entity)
		jsonResult(w, true)
	}
}

// commandHandler dispatches a remote command. send_poi expects the point of interest as body.
func commandHandler(dispatcher *core.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)

		cmd, err := api.CommandString(vars["command"])
		if err != nil {
			jsonError(w, http.StatusBadRequest, err)
			return
		}

		var poi *api.POI
		if cmd == api.CommandSendPOI {
			poi = new(api.POI)
			if err := json.NewDecoder(r.Body).Decode(poi); err != nil && !errors.Is(err, io.EOF) {
				jsonError(w, http.StatusBadRequest, err)
				return
			}
		}

		id, err := dispatcher.Dispatch(vars["vin"], cmd, poi)
		if err != nil {
			jsonError(w, errorStatus(err), err)
			return
		}

		w.WriteHeader(http.StatusAccepted)
		jsonResult(w, map[string]string{"id": id})
	}
}

type commandResult struct {
	ID      string             `json:"id"`
	Command api.Command        `json:"command"`
	State   api.ExecutionState `json:"state"`
	Error   string             `json:"error,omitempty"`
}

// lastCommandHandler returns the result of the last completed command
func lastCommandHandler(dispatcher *core.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vin := mux.Vars(r)["vin"]

		res, ok := dispatcher.Last(vin)
		if !ok {
			jsonError(w, http.StatusNotFound, fmt.Errorf("%w: no command for %s", api.ErrNotFound, vin))
			return
		}

		cr := commandResult{ID: res.ID, Command: res.Command, State: res.State}
		if res.Err != nil {
			cr.Error = res.Err.Error()
		}

		jsonResult(w, cr)
	}
}
