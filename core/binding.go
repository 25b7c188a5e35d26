package core

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/asaskevich/EventBus"
	"github.com/evcc-io/cdrive/core/projector"
)

// Binding maps a vehicle to an output entity and its selected status field
type Binding struct {
	Entity string `json:"entity"`
	VIN    string `json:"vin"`
	Status string `json:"status,omitempty"`
}

// Bindings is the registry of entity bindings
type Bindings struct {
	mu    sync.RWMutex
	bus   EventBus.Bus
	byVIN map[string]Binding
}

// NewBindings creates the binding registry. New or changed bindings request an update on bus.
func NewBindings(bus EventBus.Bus) *Bindings {
	return &Bindings{
		bus:   bus,
		byVIN: make(map[string]Binding),
	}
}

// Bind adds or replaces the binding of a vehicle
func (b *Bindings) Bind(binding Binding) error {
	if binding.Entity == "" || binding.VIN == "" {
		return errors.New("binding requires entity and vin")
	}

	if binding.Status != "" && !projector.IsStatusField(binding.Status) {
		return fmt.Errorf("invalid status field: %s", binding.Status)
	}

	b.mu.Lock()
	for vin, existing := range b.byVIN {
		if existing.Entity == binding.Entity && vin != binding.VIN {
			b.mu.Unlock()
			return fmt.Errorf("entity %s already bound to %s", binding.Entity, vin)
		}
	}
	b.byVIN[binding.VIN] = binding
	b.mu.Unlock()

	if b.bus != nil {
		b.bus.Publish(TopicUpdate)
	}

	return nil
}

// Unbind removes the binding of an entity
func (b *Bindings) Unbind(entity string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for vin, binding := range b.byVIN {
		if binding.Entity == entity {
			delete(b.byVIN, vin)
		}
	}
}

// ForVIN returns the binding of a vehicle
func (b *Bindings) ForVIN(vin string) (Binding, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	binding, ok := b.byVIN[vin]
	return binding, ok
}

// ForEntity returns the binding of an entity
func (b *Bindings) ForEntity(entity string) (Binding, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, binding := range b.byVIN {
		if binding.Entity == entity {
			return binding, true
		}
	}

	return Binding{}, false
}

// All returns all bindings ordered by entity
func (b *Bindings) All() []Binding {
	b.mu.RLock()
	defer b.mu.RUnlock()

	res := make([]Binding, 0, len(b.byVIN))
	for _, binding := range b.byVIN {
		res = append(res, binding)
	}

	sort.Slice(res, func(i, j int) bool {
		return res[i].Entity < res[j].Entity
	})

	return res
}
