// Package projector flattens nested vehicle telemetry into ordered device states.
package projector

import (
	"strconv"
	"strings"

	"github.com/evcc-io/cdrive/api"
	"github.com/evcc-io/cdrive/util/tree"
)

// Projector flattens attribute trees into states
type Projector struct {
	units Units
	skip  map[string]struct{}
}

// New creates a projector for the given unit system. Keys in skip are not projected.
func New(units Units, skip []string) *Projector {
	p := &Projector{
		units: units,
		skip:  make(map[string]struct{}, len(skip)),
	}

	for _, k := range skip {
		p.skip[strings.TrimSpace(k)] = struct{}{}
	}

	return p
}

// Project flattens the given trees in order. A key produced more than once
// keeps its first position and takes the last value.
func (p *Projector) Project(nodes ...tree.Node) []api.State {
	f := &flattener{
		skip:  p.skip,
		index: make(map[string]int),
	}

	for _, n := range nodes {
		f.walk("", n)
	}

	for i, s := range f.res {
		if format, ok := p.units.Lookup(s.Key); ok {
			f.res[i].Display = format.Display(s.Value)
		}
	}

	return f.res
}

type flattener struct {
	skip  map[string]struct{}
	index map[string]int
	res   []api.State
}

func (f *flattener) walk(prefix string, n tree.Node) {
	switch n := n.(type) {
	case tree.Mapping:
		for _, e := range n {
			key := strings.TrimSpace(e.Key)
			if _, ok := f.skip[key]; ok {
				continue
			}
			f.child(prefix+key, e.Node)
		}

	case tree.Sequence:
		for i, c := range n {
			f.child(prefix+strconv.Itoa(i), c)
		}

	case tree.Scalar:
		// top level scalar has no key
		if prefix != "" {
			f.emit(strings.TrimSuffix(prefix, "_"), n)
		}
	}
}

func (f *flattener) child(key string, n tree.Node) {
	switch n := n.(type) {
	case tree.Mapping, tree.Sequence:
		f.walk(key+"_", n)
	case tree.Scalar:
		f.emit(key, n)
	}
}

func (f *flattener) emit(key string, s tree.Scalar) {
	if s.Falsy() {
		return
	}

	if i, ok := f.index[key]; ok {
		f.res[i].Value = s.Value
		return
	}

	f.index[key] = len(f.res)
	f.res = append(f.res, api.State{Key: key, Value: s.Value})
}

// SelectStatus promotes the value and display of field to the reserved status
// key at the head of the list. Any previous status entry is removed. If field
// is not part of states, no status is added.
func SelectStatus(states []api.State, field string) []api.State {
	res := make([]api.State, 1, len(states)+1)

	var found bool
	for _, s := range states {
		if s.Key == StatusKey {
			continue
		}

		if s.Key == field {
			res[0] = api.State{Key: StatusKey, Value: s.Value, Display: s.Display}
			found = true
		}

		res = append(res, s)
	}

	if !found {
		return res[1:]
	}

	return res
}

// Keys returns the dynamic state keys of states typed by their values
func Keys(states []api.State) []api.StateKey {
	res := make([]api.StateKey, 0, len(states))
	for _, s := range states {
		if typ, ok := api.TypeOf(s.Value); ok {
			res = append(res, api.StateKey{Key: s.Key, Type: typ})
		}
	}
	return res
}
