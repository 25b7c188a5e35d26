package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/benbjohnson/clock"
	"github.com/evcc-io/cdrive/api"
	"github.com/evcc-io/cdrive/core/projector"
	"github.com/evcc-io/cdrive/core/session"
	"github.com/evcc-io/cdrive/util"
	"github.com/evcc-io/cdrive/util/tree"
)

const (
	// TopicUpdate requests an update sweep at the next tick
	TopicUpdate = "update"
	// TopicSchedule requests an update sweep within the given duration
	TopicSchedule = "schedule"

	// AuthStatusKey is the account state reporting the authentication status
	AuthStatusKey = "auth_status"

	// Tick is the scheduler wake up period
	Tick = time.Second
	// Grace delays the first sweep after start
	Grace = 30 * time.Second

	MinInterval = 5 * time.Minute
	MaxInterval = 60 * time.Minute
)

// Vehicle is a selectable vehicle
type Vehicle struct {
	VIN   string `json:"vin"`
	Label string `json:"label"`
}

// Engine periodically refreshes all accounts' vehicles into cache and sink
type Engine struct {
	log       *util.Logger
	clock     clock.Clock
	bus       EventBus.Bus
	interval  time.Duration
	projector *projector.Projector
	cache     *Cache
	bindings  *Bindings
	sink      api.Sink
	waiter    *util.Waiter
	home      *projector.Location

	mu           sync.Mutex
	accounts     map[string]*session.Session
	nextUpdate   time.Time
	scheduled    time.Time
	updateNeeded bool

	statesMu sync.Mutex
	states   map[string][]api.State
	overlay  map[string][]api.State // survive snapshot replacement
}

// NewEngine creates the update engine
func NewEngine(bus EventBus.Bus, interval time.Duration, p *projector.Projector, cache *Cache, bindings *Bindings, sink api.Sink) (*Engine, error) {
	if interval < MinInterval || interval > MaxInterval {
		return nil, fmt.Errorf("interval must be between %v and %v: %v", MinInterval, MaxInterval, interval)
	}

	clck := clock.New()

	e := &Engine{
		log:       util.NewLogger("engine"),
		clock:     clck,
		bus:       bus,
		interval:  interval,
		projector: p,
		cache:     cache,
		bindings:  bindings,
		sink:      sink,
		waiter:    util.NewWaiter(clck, 2*interval),
		accounts:  make(map[string]*session.Session),
		states:    make(map[string][]api.State),
		overlay:   make(map[string][]api.State),
	}

	if err := bus.Subscribe(TopicUpdate, e.RequestUpdate); err != nil {
		return nil, err
	}

	if err := bus.Subscribe(TopicSchedule, e.ScheduleWithin); err != nil {
		return nil, err
	}

	return e, nil
}

// SetHome sets the reference location for distance calculation
func (e *Engine) SetHome(loc projector.Location) {
	e.home = &loc
}

// Cache returns the vehicle cache
func (e *Engine) Cache() *Cache {
	return e.cache
}

// Bindings returns the entity bindings
func (e *Engine) Bindings() *Bindings {
	return e.bindings
}

// Waiter returns the sweep freshness monitor
func (e *Engine) Waiter() *util.Waiter {
	return e.waiter
}

// AddAccount registers an account session
func (e *Engine) AddAccount(s *session.Session) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.accounts[s.ID()]; ok {
		return fmt.Errorf("duplicate account: %s", s.ID())
	}

	e.accounts[s.ID()] = s
	e.updateNeeded = true

	return nil
}

// RemoveAccount tears down an account session and drops its vehicles
func (e *Engine) RemoveAccount(id string) {
	e.mu.Lock()
	delete(e.accounts, id)
	e.mu.Unlock()

	e.cache.Remove(id)

	e.statesMu.Lock()
	delete(e.states, id)
	e.statesMu.Unlock()
}

// Unbind removes an entity's binding together with its known states
func (e *Engine) Unbind(entity string) {
	e.bindings.Unbind(entity)

	e.statesMu.Lock()
	delete(e.states, entity)
	delete(e.overlay, entity)
	e.statesMu.Unlock()
}

// Session returns the session of an account
func (e *Engine) Session(id string) (*session.Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.accounts[id]
	return s, ok
}

// Sessions returns all sessions ordered by account id
func (e *Engine) Sessions() []*session.Session {
	e.mu.Lock()
	defer e.mu.Unlock()

	res := make([]*session.Session, 0, len(e.accounts))
	for _, s := range e.accounts {
		res = append(res, s)
	}

	sort.Slice(res, func(i, j int) bool {
		return res[i].ID() < res[j].ID()
	})

	return res
}

// UpdateCredentials replaces an account's credentials and requests an update
func (e *Engine) UpdateCredentials(id string, creds api.Credentials) error {
	s, ok := e.Session(id)
	if !ok {
		return fmt.Errorf("%w: account %s", api.ErrNotFound, id)
	}

	s.UpdateCredentials(creds)
	e.publish(id, []api.State{{Key: AuthStatusKey, Value: session.Label(s.State())}}, false)
	e.RequestUpdate()

	return nil
}

// RequestUpdate requests a sweep at the next tick
func (e *Engine) RequestUpdate() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.updateNeeded = true
}

// ScheduleWithin requests a sweep no later than d from now
func (e *Engine) ScheduleWithin(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	at := e.clock.Now().Add(d)
	if e.scheduled.IsZero() || at.Before(e.scheduled) {
		e.scheduled = at
	}
}

// due checks and resets the sweep triggers
func (e *Engine) due() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()

	scheduled := !e.scheduled.IsZero() && !now.Before(e.scheduled)
	if !e.updateNeeded && !scheduled && now.Before(e.nextUpdate) {
		return false
	}

	// requests arriving from now on are served by the following sweep
	e.updateNeeded = false
	if scheduled {
		e.scheduled = time.Time{}
	}

	return true
}

// Run executes the update loop until ctx is cancelled
func (e *Engine) Run(ctx context.Context) {
	// requests from configuration are served by the first sweep after grace
	e.mu.Lock()
	e.nextUpdate = e.clock.Now().Add(Grace)
	e.updateNeeded = false
	e.scheduled = time.Time{}
	e.mu.Unlock()

	ticker := e.clock.Ticker(Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.log.DEBUG.Println("stopped")
			return

		case <-ticker.C:
			if !e.due() {
				continue
			}

			e.Sweep(ctx)

			e.mu.Lock()
			e.nextUpdate = e.clock.Now().Add(e.interval)
			e.mu.Unlock()
		}
	}
}

// Sweep updates all accounts. A failing account does not affect the others.
func (e *Engine) Sweep(ctx context.Context) {
	start := e.clock.Now()
	e.log.DEBUG.Println("sweep")

	for _, s := range e.Sessions() {
		if ctx.Err() != nil {
			return
		}

		if err := e.sweepAccount(ctx, s); err != nil {
			if errors.Is(err, api.ErrAuthFailed) {
				e.log.WARN.Printf("%s: skipped: %v", s.ID(), err)
			} else {
				e.log.ERROR.Printf("%s: %v", s.ID(), err)
			}
			sweepTotal.WithLabelValues("failure").Inc()
		} else {
			sweepTotal.WithLabelValues("success").Inc()
		}

		e.publish(s.ID(), []api.State{{Key: AuthStatusKey, Value: session.Label(s.State())}}, false)
	}

	vehiclesCached.Set(float64(len(e.cache.List())))
	sweepDuration.Observe(e.clock.Since(start).Seconds())

	e.waiter.Update()
}

func (e *Engine) sweepAccount(ctx context.Context, s *session.Session) error {
	if s.State() == session.StateAuthFailed {
		return api.ErrAuthFailed
	}

	vehicles, err := s.ListVehicles(ctx)
	if err != nil {
		return err
	}

	for _, v := range vehicles {
		status, err := s.FetchStatus(ctx, v.VIN)
		if err != nil {
			e.log.WARN.Printf("%s: %v", s.ID(), err)
			continue
		}

		m, ok := status.(tree.Mapping)
		if !ok {
			e.log.WARN.Printf("%s: %s: unexpected status", s.ID(), v.VIN)
			continue
		}

		snapshot := e.project(s.ID(), v, m)
		e.cache.Put(snapshot)

		binding, ok := e.bindings.ForVIN(v.VIN)
		if !ok {
			e.log.TRACE.Printf("%s: %s: not bound", s.ID(), v.VIN)
			continue
		}

		e.publish(binding.Entity, projector.SelectStatus(snapshot.States, binding.Status), true)
	}

	if err := s.Persist(); err != nil {
		e.log.WARN.Printf("%s: persist: %v", s.ID(), err)
	}

	return nil
}

// identity returns the static vehicle attributes projected ahead of the status
func identity(v api.VehicleRef) tree.Mapping {
	return tree.Mapping{
		{Key: "vin", Node: tree.Value(v.VIN)},
		{Key: "brand", Node: tree.Value(v.Brand)},
		{Key: "model", Node: tree.Value(v.Model)},
		{Key: "year", Node: tree.Value(int64(v.Year))},
		{Key: "drive_train", Node: tree.Value(v.DriveTrain)},
	}
}

func (e *Engine) project(account string, v api.VehicleRef, status tree.Mapping) Snapshot {
	now := e.clock.Now()
	derived := projector.Derive(status, e.home, now)

	nodes := []tree.Node{identity(v)}
	if v.Attributes != nil {
		nodes = append(nodes, v.Attributes)
	}
	nodes = append(nodes, derived)

	return Snapshot{
		VIN:       v.VIN,
		AccountID: account,
		Vehicle:   v,
		Status:    derived,
		States:    e.projector.Project(nodes...),
		Updated:   now,
	}
}

// Overlay merges states into an entity which are kept when its snapshot is replaced
func (e *Engine) Overlay(entity string, states []api.State) {
	e.statesMu.Lock()
	e.overlay[entity] = merge(e.overlay[entity], states)
	e.statesMu.Unlock()

	e.publish(entity, states, false)
}

// publish sends states to the sink and records them. Replacing states keeps the
// entity's overlay. Without replace, states are merged into the known states.
func (e *Engine) publish(entity string, states []api.State, replace bool) {
	e.statesMu.Lock()
	if replace {
		states = merge(states, e.overlay[entity])
		e.states[entity] = states
	} else {
		e.states[entity] = merge(e.states[entity], states)
	}
	e.statesMu.Unlock()

	if e.sink == nil {
		return
	}

	if err := e.sink.UpdateStates(entity, states); err != nil {
		e.log.ERROR.Printf("sink: %v", err)
	}
}

func merge(existing, states []api.State) []api.State {
	res := make([]api.State, len(existing), len(existing)+len(states))
	copy(res, existing)

	for _, s := range states {
		var found bool
		for i := range res {
			if res[i].Key == s.Key {
				res[i] = s
				found = true
				break
			}
		}

		if !found {
			res = append(res, s)
		}
	}

	return res
}

// States returns the last known states of an entity
func (e *Engine) States(entity string) ([]api.State, bool) {
	e.statesMu.Lock()
	defer e.statesMu.Unlock()

	states, ok := e.states[entity]
	return states, ok
}

// Entities returns the entities with known states in sorted order
func (e *Engine) Entities() []string {
	e.statesMu.Lock()
	defer e.statesMu.Unlock()

	res := make([]string, 0, len(e.states))
	for entity := range e.states {
		res = append(res, entity)
	}
	sort.Strings(res)

	return res
}

// DynamicStateKeys returns the typed state keys last published for an entity
func (e *Engine) DynamicStateKeys(entity string) []api.StateKey {
	states, _ := e.States(entity)
	return projector.Keys(states)
}

// Vehicles returns the cached vehicles ordered by label
func (e *Engine) Vehicles() []Vehicle {
	snapshots := e.cache.List()

	res := make([]Vehicle, 0, len(snapshots))
	for _, s := range snapshots {
		res = append(res, Vehicle{
			VIN:   s.VIN,
			Label: fmt.Sprintf("%d %s", s.Vehicle.Year, s.Vehicle.Model),
		})
	}

	sort.SliceStable(res, func(i, j int) bool {
		return res[i].Label < res[j].Label
	})

	return res
}
