// Package tree represents nested telemetry as a tagged variant of scalars,
// ordered mappings and sequences.
package tree

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Node is one of Scalar, Mapping or Sequence
type Node interface {
	node()
}

// Scalar is a leaf value: nil, bool, int64, float64 or string
type Scalar struct {
	Value interface{}
}

// Entry is a keyed child of a Mapping
type Entry struct {
	Key  string
	Node Node
}

// Mapping is an ordered set of keyed children
type Mapping []Entry

// Sequence is an ordered list of children
type Sequence []Node

func (Scalar) node()   {}
func (Mapping) node()  {}
func (Sequence) node() {}

// Value creates a scalar node
func Value(v interface{}) Scalar {
	return Scalar{Value: v}
}

// Falsy reports if the scalar carries no information worth projecting.
// Booleans are never falsy.
func (s Scalar) Falsy() bool {
	switch v := s.Value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case int64:
		return v == 0
	case float64:
		return v == 0
	case int:
		return v == 0
	default:
		return false
	}
}

// Get returns the first child with given key
func (m Mapping) Get(key string) (Node, bool) {
	for _, e := range m {
		if e.Key == key {
			return e.Node, true
		}
	}
	return nil, false
}

// Scalar returns the scalar value for key
func (m Mapping) Scalar(key string) (interface{}, bool) {
	if n, ok := m.Get(key); ok {
		if s, ok := n.(Scalar); ok {
			return s.Value, true
		}
	}
	return nil, false
}

// String returns the string value for key
func (m Mapping) String(key string) string {
	if v, ok := m.Scalar(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Float returns the numeric value for key
func (m Mapping) Float(key string) (float64, bool) {
	v, _ := m.Scalar(key)
	switch v := v.(type) {
	case int64:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

// Set replaces the child with given key or appends it
func (m Mapping) Set(key string, n Node) Mapping {
	for i, e := range m {
		if e.Key == key {
			m[i].Node = n
			return m
		}
	}
	return append(m, Entry{Key: key, Node: n})
}

// Rename changes keys according to the table, keeping positions
func (m Mapping) Rename(table map[string]string) Mapping {
	res := make(Mapping, 0, len(m))
	for _, e := range m {
		if to, ok := table[e.Key]; ok {
			e.Key = to
		}
		res = append(res, e)
	}
	return res
}

// Delete returns m without the children with given keys
func (m Mapping) Delete(keys ...string) Mapping {
	res := make(Mapping, 0, len(m))
outer:
	for _, e := range m {
		for _, k := range keys {
			if e.Key == k {
				continue outer
			}
		}
		res = append(res, e)
	}
	return res
}

// Parse decodes JSON into a tree preserving object key order
func Parse(data []byte) (Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	n, err := decode(dec)
	if err != nil {
		return nil, err
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected trailing data")
	}

	return n, nil
}

func decode(dec *json.Decoder) (Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			m := Mapping{}
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := kt.(string)
				if !ok {
					return nil, fmt.Errorf("invalid key: %v", kt)
				}
				child, err := decode(dec)
				if err != nil {
					return nil, err
				}
				m = append(m, Entry{Key: key, Node: child})
			}
			_, err = dec.Token() // }
			return m, err

		case '[':
			s := Sequence{}
			for dec.More() {
				child, err := decode(dec)
				if err != nil {
					return nil, err
				}
				s = append(s, child)
			}
			_, err = dec.Token() // ]
			return s, err
		}

		return nil, fmt.Errorf("unexpected delimiter: %v", t)

	case json.Number:
		if i, err := t.Int64(); err == nil {
			return Value(i), nil
		}
		f, err := t.Float64()
		return Value(f), err

	default:
		// string, bool, nil
		return Value(t), nil
	}
}

// Interface converts the tree into plain maps and slices for encoding
func Interface(n Node) interface{} {
	switch n := n.(type) {
	case Scalar:
		return n.Value
	case Mapping:
		res := make(map[string]interface{}, len(n))
		for _, e := range n {
			res[e.Key] = Interface(e.Node)
		}
		return res
	case Sequence:
		res := make([]interface{}, 0, len(n))
		for _, c := range n {
			res = append(res, Interface(c))
		}
		return res
	default:
		return nil
	}
}
