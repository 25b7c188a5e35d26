package core

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/benbjohnson/clock"
	"github.com/evcc-io/cdrive/api"
	"github.com/evcc-io/cdrive/core/projector"
	"github.com/evcc-io/cdrive/core/session"
	"github.com/evcc-io/cdrive/mock"
	"github.com/evcc-io/cdrive/util"
	"github.com/evcc-io/cdrive/util/tree"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type recorder struct {
	mu      sync.Mutex
	updates map[string][][]api.State
}

func (r *recorder) UpdateStates(entity string, states []api.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.updates == nil {
		r.updates = make(map[string][][]api.State)
	}
	r.updates[entity] = append(r.updates[entity], states)

	return nil
}

func (r *recorder) last(entity string) []api.State {
	r.mu.Lock()
	defer r.mu.Unlock()

	u := r.updates[entity]
	if len(u) == 0 {
		return nil
	}
	return u[len(u)-1]
}

func value(states []api.State, key string) (interface{}, bool) {
	for _, s := range states {
		if s.Key == key {
			return s.Value, true
		}
	}
	return nil, false
}

var login = api.AuthResponse{AccessToken: "access", RefreshToken: "refresh", ExpiresIn: time.Hour}

type harness struct {
	engine *Engine
	svc    *mock.MockVehicleService
	clock  *clock.Mock
	sink   *recorder
	bus    EventBus.Bus
}

func newHarness(t *testing.T) *harness {
	ctrl := gomock.NewController(t)
	clck := clock.NewMock()
	bus := EventBus.New()
	sink := new(recorder)

	e, err := NewEngine(bus, 5*time.Minute, projector.New(projector.UnitsMetric, projector.DefaultSkip), NewCache(), NewBindings(bus), sink)
	require.NoError(t, err)

	e.clock = clck
	e.waiter = util.NewWaiter(clck, 10*time.Minute)

	return &harness{
		engine: e,
		svc:    mock.NewMockVehicleService(ctrl),
		clock:  clck,
		sink:   sink,
		bus:    bus,
	}
}

func (h *harness) account(t *testing.T, id string) api.Credentials {
	creds := api.Credentials{Username: id, Password: "secret", Region: "rest_of_world"}
	require.NoError(t, h.engine.AddAccount(session.New(id, creds, h.svc, session.WithClock(h.clock))))
	return creds
}

func status(mileage int64, extra ...tree.Entry) tree.Mapping {
	return append(tree.Mapping{{Key: projector.FieldMileage, Node: tree.Value(mileage)}}, extra...)
}

var vehicle = api.VehicleRef{VIN: "VIN1", Model: "i3", Year: 2019, Brand: "BMW", DriveTrain: "BEV"}

func TestNewEngineInterval(t *testing.T) {
	bus := EventBus.New()

	_, err := NewEngine(bus, time.Minute, nil, NewCache(), NewBindings(bus), nil)
	require.Error(t, err)

	_, err = NewEngine(bus, 2*time.Hour, nil, NewCache(), NewBindings(bus), nil)
	require.Error(t, err)
}

func TestSweepWholeReplace(t *testing.T) {
	h := newHarness(t)
	creds := h.account(t, "acc")

	fuel := tree.Entry{Key: projector.FieldRemainingFuel, Node: tree.Value(int64(20))}

	h.svc.EXPECT().Authenticate(gomock.Any(), creds).Return(login, nil)
	h.svc.EXPECT().Vehicles(gomock.Any(), gomock.Any()).Return([]api.VehicleRef{vehicle}, nil).Times(2)
	gomock.InOrder(
		h.svc.EXPECT().Status(gomock.Any(), gomock.Any(), "VIN1").Return(status(100, fuel), nil),
		h.svc.EXPECT().Status(gomock.Any(), gomock.Any(), "VIN1").Return(status(200), nil),
	)

	h.engine.Sweep(context.Background())

	snapshot, ok := h.engine.Cache().Get("VIN1")
	require.True(t, ok)
	require.Equal(t, "acc", snapshot.AccountID)
	require.Equal(t, "vin", snapshot.States[0].Key)

	v, ok := value(snapshot.States, projector.FieldRemainingFuel)
	require.True(t, ok)
	require.Equal(t, int64(20), v)

	h.engine.Sweep(context.Background())

	snapshot, _ = h.engine.Cache().Get("VIN1")
	v, _ = value(snapshot.States, projector.FieldMileage)
	require.Equal(t, int64(200), v)

	_, ok = value(snapshot.States, projector.FieldRemainingFuel)
	require.False(t, ok)
}

func TestSweepStaleOnFailure(t *testing.T) {
	h := newHarness(t)
	creds := h.account(t, "acc")

	h.svc.EXPECT().Authenticate(gomock.Any(), creds).Return(login, nil)
	h.svc.EXPECT().Vehicles(gomock.Any(), gomock.Any()).Return([]api.VehicleRef{vehicle}, nil).Times(2)
	gomock.InOrder(
		h.svc.EXPECT().Status(gomock.Any(), gomock.Any(), "VIN1").Return(status(100), nil),
		h.svc.EXPECT().Status(gomock.Any(), gomock.Any(), "VIN1").Return(nil, api.ErrCommunication),
	)

	h.engine.Sweep(context.Background())
	before, ok := h.engine.Cache().Get("VIN1")
	require.True(t, ok)

	h.clock.Add(5 * time.Minute)
	h.engine.Sweep(context.Background())

	after, ok := h.engine.Cache().Get("VIN1")
	require.True(t, ok)
	require.Equal(t, before, after)
}

func TestSweepAccountFailureContinues(t *testing.T) {
	h := newHarness(t)
	credsA := h.account(t, "a")
	credsB := h.account(t, "b")

	other := vehicle
	other.VIN = "VIN2"

	h.svc.EXPECT().Authenticate(gomock.Any(), credsA).Return(login, nil)
	h.svc.EXPECT().Authenticate(gomock.Any(), credsB).Return(login, nil)
	gomock.InOrder(
		h.svc.EXPECT().Vehicles(gomock.Any(), gomock.Any()).Return(nil, api.ErrCommunication),
		h.svc.EXPECT().Vehicles(gomock.Any(), gomock.Any()).Return([]api.VehicleRef{other}, nil),
	)
	h.svc.EXPECT().Status(gomock.Any(), gomock.Any(), "VIN2").Return(status(100), nil)

	h.engine.Sweep(context.Background())

	_, ok := h.engine.Cache().Get("VIN2")
	require.True(t, ok)

	for _, id := range []string{"a", "b"} {
		v, ok := value(h.sink.last(id), AuthStatusKey)
		require.True(t, ok)
		require.Equal(t, "Authenticated", v)
	}

	require.NoError(t, h.engine.Waiter().Overdue())
}

func TestSweepSkipsAuthFailed(t *testing.T) {
	h := newHarness(t)
	creds := h.account(t, "acc")

	h.svc.EXPECT().Authenticate(gomock.Any(), creds).Return(api.AuthResponse{}, api.ErrAuth).Times(1)

	h.engine.Sweep(context.Background())
	h.engine.Sweep(context.Background())

	v, _ := value(h.sink.last("acc"), AuthStatusKey)
	require.Equal(t, "Authentication Failed", v)

	// recovers after credentials change
	updated := creds
	updated.Password = "correct"
	require.NoError(t, h.engine.UpdateCredentials("acc", updated))

	h.svc.EXPECT().Authenticate(gomock.Any(), updated).Return(login, nil)
	h.svc.EXPECT().Vehicles(gomock.Any(), gomock.Any()).Return(nil, nil)

	h.engine.Sweep(context.Background())

	v, _ = value(h.sink.last("acc"), AuthStatusKey)
	require.Equal(t, "Authenticated", v)
}

func TestSweepBindings(t *testing.T) {
	h := newHarness(t)
	creds := h.account(t, "acc")

	h.svc.EXPECT().Authenticate(gomock.Any(), creds).Return(login, nil)
	h.svc.EXPECT().Vehicles(gomock.Any(), gomock.Any()).Return([]api.VehicleRef{vehicle}, nil).AnyTimes()
	h.svc.EXPECT().Status(gomock.Any(), gomock.Any(), "VIN1").Return(status(100), nil).AnyTimes()

	// not bound, cached but not published
	h.engine.Sweep(context.Background())
	_, ok := h.engine.Cache().Get("VIN1")
	require.True(t, ok)
	require.Nil(t, h.sink.last("car"))

	require.NoError(t, h.engine.Bindings().Bind(Binding{Entity: "car", VIN: "VIN1", Status: projector.FieldMileage}))
	require.True(t, h.engine.due())

	h.engine.Sweep(context.Background())

	states := h.sink.last("car")
	require.NotEmpty(t, states)
	require.Equal(t, api.State{Key: projector.StatusKey, Value: int64(100), Display: "100 km"}, states[0])

	keys := h.engine.DynamicStateKeys("car")
	require.Contains(t, keys, api.StateKey{Key: projector.FieldMileage, Type: api.StateNumber})
	require.Contains(t, keys, api.StateKey{Key: "vin", Type: api.StateString})

	require.Equal(t, []Vehicle{{VIN: "VIN1", Label: "2019 i3"}}, h.engine.Vehicles())
}

func TestDue(t *testing.T) {
	h := newHarness(t)
	e := h.engine

	e.nextUpdate = h.clock.Now().Add(time.Hour)
	require.False(t, e.due())

	e.RequestUpdate()
	require.True(t, e.due())
	require.False(t, e.due())

	h.bus.Publish(TopicSchedule, Reschedule)
	h.clock.Add(Reschedule - time.Second)
	require.False(t, e.due())

	h.clock.Add(time.Second)
	require.True(t, e.due())
	require.False(t, e.due())

	h.bus.Publish(TopicUpdate)
	require.True(t, e.due())

	h.clock.Add(time.Hour)
	require.True(t, e.due())
}

func TestDuplicateAccount(t *testing.T) {
	h := newHarness(t)
	h.account(t, "acc")

	require.Error(t, h.engine.AddAccount(session.New("acc", api.Credentials{}, h.svc)))

	h.engine.RemoveAccount("acc")
	_, ok := h.engine.Session("acc")
	require.False(t, ok)
}

func TestBindingValidation(t *testing.T) {
	b := NewBindings(nil)

	require.Error(t, b.Bind(Binding{Entity: "car"}))
	require.Error(t, b.Bind(Binding{Entity: "car", VIN: "VIN1", Status: "foo"}))
	require.NoError(t, b.Bind(Binding{Entity: "car", VIN: "VIN1"}))
	require.Error(t, b.Bind(Binding{Entity: "car", VIN: "VIN2"}))

	binding, ok := b.ForEntity("car")
	require.True(t, ok)
	require.Equal(t, "VIN1", binding.VIN)

	b.Unbind("car")
	require.Empty(t, b.All())
}

func TestTee(t *testing.T) {
	a, b := new(recorder), new(recorder)

	tee := new(Tee)
	tee.Attach(a)
	tee.Attach(b)

	states := []api.State{{Key: "mileage", Value: int64(1)}}
	require.NoError(t, tee.UpdateStates("car", states))
	require.Equal(t, states, a.last("car"))
	require.Equal(t, states, b.last("car"))
}

func TestRun(t *testing.T) {
	h := newHarness(t)
	creds := h.account(t, "acc")
	e := h.engine

	var calls int32
	release := make(chan struct{})

	h.svc.EXPECT().Authenticate(gomock.Any(), creds).Return(login, nil)
	h.svc.EXPECT().Vehicles(gomock.Any(), gomock.Any()).Return([]api.VehicleRef{vehicle}, nil).AnyTimes()
	h.svc.EXPECT().Status(gomock.Any(), gomock.Any(), "VIN1").DoAndReturn(
		func(context.Context, *oauth2.Token, string) (tree.Node, error) {
			atomic.AddInt32(&calls, 1)
			return status(100), nil
		}).AnyTimes()
	h.svc.EXPECT().Execute(gomock.Any(), gomock.Any(), "VIN1", api.CommandChargeStart, nil).DoAndReturn(
		func(context.Context, *oauth2.Token, string, api.Command, *api.POI) (api.Execution, error) {
			<-release
			return api.Execution{}, nil
		})

	// folded into the first sweep
	require.NoError(t, e.Bindings().Bind(Binding{Entity: "car", VIN: "VIN1"}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	start := h.clock.Now()
	go func() {
		e.Run(ctx)
		close(done)
	}()

	// advance until a sweep has been observed
	sweep := func() {
		n, updated := atomic.LoadInt32(&calls), e.Waiter().Updated()
		require.Eventually(t, func() bool {
			if atomic.LoadInt32(&calls) > n && e.Waiter().Updated().After(updated) {
				return true
			}
			h.clock.Add(Tick)
			return false
		}, 5*time.Second, 10*time.Millisecond)
	}

	sweep()

	elapsed := h.clock.Now().Sub(start)
	require.GreaterOrEqual(t, elapsed, Grace)
	require.Less(t, elapsed, e.interval)
	require.NotNil(t, h.sink.last("car"))

	// requests are served at the next tick
	requested := h.clock.Now()
	e.RequestUpdate()
	sweep()
	require.Less(t, h.clock.Now().Sub(requested), e.interval)

	require.Eventually(t, func() bool {
		e.mu.Lock()
		defer e.mu.Unlock()
		return !e.nextUpdate.Before(requested.Add(e.interval))
	}, time.Second, 10*time.Millisecond)

	// a pending command does not hold up sweeps
	d := NewDispatcher(ctx, e, h.bus)
	_, err := d.Dispatch("VIN1", api.CommandChargeStart, nil)
	require.NoError(t, err)

	e.RequestUpdate()
	sweep()

	close(release)
	d.Wait()

	v, ok := value(h.sink.last("car"), LastCommandStateKey)
	require.True(t, ok)
	require.Equal(t, "EXECUTED", v)

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("run did not return")
	}
}
