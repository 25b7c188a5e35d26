package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/benbjohnson/clock"
	"github.com/evcc-io/cdrive/api"
	"github.com/evcc-io/cdrive/util"
	"github.com/google/uuid"
)

const (
	// Reschedule is the delay of the update sweep following a command
	Reschedule = 30 * time.Second

	LastCommandKey      = "last_command"
	LastCommandStateKey = "last_command_state"
)

// Notifier receives command results
type Notifier interface {
	Notify(res api.CommandResult)
}

// Dispatcher runs remote commands without blocking the update engine
type Dispatcher struct {
	log      *util.Logger
	ctx      context.Context
	clock    clock.Clock
	engine   *Engine
	bus      EventBus.Bus
	notifier Notifier
	wg       sync.WaitGroup

	mu   sync.Mutex
	last map[string]api.CommandResult
}

// NewDispatcher creates a command dispatcher. Commands in flight are cancelled with ctx.
func NewDispatcher(ctx context.Context, engine *Engine, bus EventBus.Bus) *Dispatcher {
	return &Dispatcher{
		log:    util.NewLogger("command"),
		ctx:    ctx,
		clock:  clock.New(),
		engine: engine,
		bus:    bus,
		last:   make(map[string]api.CommandResult),
	}
}

// SetNotifier sets the receiver of command results
func (d *Dispatcher) SetNotifier(n Notifier) {
	d.notifier = n
}

// Dispatch validates and starts a command. It returns the request id without
// waiting for the command to complete.
func (d *Dispatcher) Dispatch(vin string, cmd api.Command, poi *api.POI) (string, error) {
	if _, err := api.CommandString(string(cmd)); err != nil {
		return "", err
	}

	if cmd == api.CommandSendPOI {
		if poi == nil {
			return "", errors.New("send_poi requires a point of interest")
		}
		if err := poi.Validate(); err != nil {
			return "", err
		}
	}

	snapshot, ok := d.engine.Cache().Get(vin)
	if !ok {
		return "", fmt.Errorf("%w: vehicle %s", api.ErrNotFound, vin)
	}

	s, ok := d.engine.Session(snapshot.AccountID)
	if !ok {
		return "", fmt.Errorf("%w: account %s", api.ErrNoSession, snapshot.AccountID)
	}

	id := uuid.NewString()
	d.log.INFO.Printf("%s: %s %s", id, vin, cmd)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		start := d.clock.Now()
		res := s.ExecuteCommand(d.ctx, vin, cmd, poi)
		res.ID = id

		commandLatency.WithLabelValues(cmd.String()).Observe(d.clock.Since(start).Seconds())
		d.complete(res)
	}()

	return id, nil
}

func (d *Dispatcher) complete(res api.CommandResult) {
	commandTotal.WithLabelValues(res.Command.String(), string(res.State)).Inc()

	if res.Err != nil {
		d.log.ERROR.Printf("%s: %s %s: %s: %v", res.ID, res.VIN, res.Command, res.State, res.Err)
	} else {
		d.log.INFO.Printf("%s: %s %s: %s", res.ID, res.VIN, res.Command, res.State)
	}

	d.mu.Lock()
	d.last[res.VIN] = res
	d.mu.Unlock()

	if binding, ok := d.engine.Bindings().ForVIN(res.VIN); ok {
		d.engine.Overlay(binding.Entity, []api.State{
			{Key: LastCommandKey, Value: res.Command.String()},
			{Key: LastCommandStateKey, Value: string(res.State)},
		})
	}

	if d.notifier != nil {
		d.notifier.Notify(res)
	}

	d.bus.Publish(TopicSchedule, Reschedule)
}

// Last returns the result of the last completed command of a vehicle
func (d *Dispatcher) Last(vin string) (api.CommandResult, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	res, ok := d.last[vin]
	return res, ok
}

// Wait blocks until all dispatched commands have completed
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
