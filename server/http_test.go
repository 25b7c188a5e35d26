package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/evcc-io/cdrive/api"
	"github.com/evcc-io/cdrive/core"
	"github.com/evcc-io/cdrive/core/projector"
	"github.com/evcc-io/cdrive/core/session"
	"github.com/evcc-io/cdrive/mock"
	"github.com/evcc-io/cdrive/util/tree"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
)

func newTestHTTPd(t *testing.T) (*HTTPd, *core.Engine) {
	ctrl := gomock.NewController(t)
	svc := mock.NewMockVehicleService(ctrl)

	bus := EventBus.New()
	engine, err := core.NewEngine(bus, 5*time.Minute, projector.New(projector.UnitsMetric, projector.DefaultSkip), core.NewCache(), core.NewBindings(bus), new(core.Tee))
	require.NoError(t, err)

	require.NoError(t, engine.AddAccount(session.New("acc", api.Credentials{Username: "user"}, svc)))

	engine.Cache().Put(core.Snapshot{
		VIN:       "VIN1",
		AccountID: "acc",
		Vehicle:   api.VehicleRef{VIN: "VIN1", Model: "i3", Year: 2019},
		Status:    tree.Mapping{{Key: projector.FieldMileage, Node: tree.Value(int64(100))}},
		States:    []api.State{{Key: "vin", Value: "VIN1"}},
	})

	dispatcher := core.NewDispatcher(context.Background(), engine, bus)

	return NewHTTPd(":0", engine, dispatcher, NewSocketHub(engine)), engine
}

func request(t *testing.T, srv *HTTPd, method, uri, body string) (int, map[string]interface{}) {
	req := httptest.NewRequest(method, uri, strings.NewReader(body))
	rec := httptest.NewRecorder()

	srv.Handler.ServeHTTP(rec, req)

	require.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	var res map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))

	return rec.Code, res
}

func TestVehicleRoutes(t *testing.T) {
	srv, _ := newTestHTTPd(t)

	code, res := request(t, srv, http.MethodGet, "/api/vehicles", "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, []interface{}{
		map[string]interface{}{"vin": "VIN1", "label": "2019 i3"},
	}, res["result"])

	code, res = request(t, srv, http.MethodGet, "/api/vehicles/VIN1", "")
	require.Equal(t, http.StatusOK, code)
	snapshot := res["result"].(map[string]interface{})
	require.Equal(t, "acc", snapshot["account"])
	require.Equal(t, map[string]interface{}{projector.FieldMileage: 100.0}, snapshot["status"])

	code, _ = request(t, srv, http.MethodGet, "/api/vehicles/VIN2", "")
	require.Equal(t, http.StatusNotFound, code)

	code, res = request(t, srv, http.MethodGet, "/api/vehicles/VIN1/fields", "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, []interface{}{projector.FieldMileage}, res["result"])
}

func TestAccountRoutes(t *testing.T) {
	srv, engine := newTestHTTPd(t)

	code, res := request(t, srv, http.MethodGet, "/api/accounts", "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, []interface{}{
		map[string]interface{}{"id": "acc", "state": session.StateUnauthenticated, "status": "Unauthenticated"},
	}, res["result"])

	code, _ = request(t, srv, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusServiceUnavailable, code)

	engine.Waiter().Update()
	code, res = request(t, srv, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "OK", res["result"].(map[string]interface{})["status"])
	require.NotEmpty(t, res["result"].(map[string]interface{})["updated"])

	code, _ = request(t, srv, http.MethodPost, "/api/update", "")
	require.Equal(t, http.StatusAccepted, code)

	code, _ = request(t, srv, http.MethodGet, "/api/entities/car/states", "")
	require.Equal(t, http.StatusNotFound, code)

	code, res = request(t, srv, http.MethodGet, "/api/entities/car/keys", "")
	require.Equal(t, http.StatusOK, code)
	require.Empty(t, res["result"])
}

func TestCommandRoutes(t *testing.T) {
	srv, _ := newTestHTTPd(t)

	code, res := request(t, srv, http.MethodPost, "/api/vehicles/VIN1/selfdestruct", "")
	require.Equal(t, http.StatusBadRequest, code)
	require.Contains(t, res["error"], "unknown command")

	code, _ = request(t, srv, http.MethodPost, "/api/vehicles/VIN2/lock", "")
	require.Equal(t, http.StatusNotFound, code)

	code, _ = request(t, srv, http.MethodPost, "/api/vehicles/VIN1/send_poi", `{"lat": 100, "lon": 0, "name": "Nowhere"}`)
	require.Equal(t, http.StatusBadRequest, code)

	code, _ = request(t, srv, http.MethodGet, "/api/vehicles/VIN1/command", "")
	require.Equal(t, http.StatusNotFound, code)
}

func TestBindingRoutes(t *testing.T) {
	srv, _ := newTestHTTPd(t)

	code, _ := request(t, srv, http.MethodGet, "/api/entities/car/binding", "")
	require.Equal(t, http.StatusNotFound, code)

	code, _ = request(t, srv, http.MethodPut, "/api/entities/car/binding", `{"vin": "vin1", "status": "nonsense"}`)
	require.Equal(t, http.StatusBadRequest, code)

	code, res := request(t, srv, http.MethodPut, "/api/entities/car/binding", `{"vin": "vin1", "status": "mileage"}`)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, map[string]interface{}{"entity": "car", "vin": "VIN1", "status": "mileage"}, res["result"])

	code, res = request(t, srv, http.MethodGet, "/api/entities/car/binding", "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, map[string]interface{}{"entity": "car", "vin": "VIN1", "status": "mileage"}, res["result"])

	code, _ = request(t, srv, http.MethodDelete, "/api/entities/car/binding", "")
	require.Equal(t, http.StatusOK, code)

	code, _ = request(t, srv, http.MethodGet, "/api/entities/car/binding", "")
	require.Equal(t, http.StatusNotFound, code)

	code, _ = request(t, srv, http.MethodDelete, "/api/entities/car/binding", "")
	require.Equal(t, http.StatusNotFound, code)
}

func TestAccountManagementRoutes(t *testing.T) {
	srv, _ := newTestHTTPd(t)

	code, _ := request(t, srv, http.MethodPut, "/api/accounts/acc", `{"username": "user"}`)
	require.Equal(t, http.StatusBadRequest, code)

	code, _ = request(t, srv, http.MethodPut, "/api/accounts/acc", `{"username": "user", "password": "secret", "region": "atlantis"}`)
	require.Equal(t, http.StatusBadRequest, code)

	code, _ = request(t, srv, http.MethodPut, "/api/accounts/other", `{"username": "user", "password": "secret", "region": "north_america"}`)
	require.Equal(t, http.StatusNotFound, code)

	code, _ = request(t, srv, http.MethodPut, "/api/accounts/acc", `{"username": "user", "password": "secret", "region": "north_america"}`)
	require.Equal(t, http.StatusAccepted, code)

	code, _ = request(t, srv, http.MethodDelete, "/api/accounts/acc", "")
	require.Equal(t, http.StatusOK, code)

	code, res := request(t, srv, http.MethodGet, "/api/accounts", "")
	require.Equal(t, http.StatusOK, code)
	require.Empty(t, res["result"])

	code, _ = request(t, srv, http.MethodGet, "/api/vehicles/VIN1", "")
	require.Equal(t, http.StatusNotFound, code)

	code, _ = request(t, srv, http.MethodDelete, "/api/accounts/acc", "")
	require.Equal(t, http.StatusNotFound, code)
}
