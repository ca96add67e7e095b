// Package initwfn implements functionality to wrap Gorgonia InitWFn
// so that they can be JSON serialized into configuration files.
package initwfn

import (
	"encoding/json"
	"fmt"

	G "gorgonia.org/gorgonia"
)

// Type describes different types of InitWFn that are available.
type Type string

// Available InitWFn types
const (
	GlorotU Type = "GlorotU"
	GlorotN Type = "GlorotN"
	HeU     Type = "HeU"
	HeN     Type = "HeN"
	Zeroes  Type = "Zeroes"
)

// InitWFn wraps Gorgonia InitWFn so that they can be JSON marshalled and
// unmarshalled. All initializers except Zeroes are parameterized by a
// gain.
type InitWFn struct {
	initWFn G.InitWFn
	Type
	Gain float64 `json:",omitempty"`
}

// New returns a new InitWFn of the given type
func New(t Type, gain float64) (*InitWFn, error) {
	init := &InitWFn{Type: t, Gain: gain}
	if err := init.create(); err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}
	return init, nil
}

// NewGlorotU returns a new Glorot Uniform weight initializer
func NewGlorotU(gain float64) (*InitWFn, error) {
	return New(GlorotU, gain)
}

// NewHeN returns a new He Normal weight initializer
func NewHeN(gain float64) (*InitWFn, error) {
	return New(HeN, gain)
}

// NewZeroes returns a new zeroes weight initializer
func NewZeroes() (*InitWFn, error) {
	return New(Zeroes, 0)
}

// InitWFn returns the wrapped Gorgonia InitWFn
func (i *InitWFn) InitWFn() G.InitWFn {
	return i.initWFn
}

// String implements the fmt.Stringer interface
func (i *InitWFn) String() string {
	return fmt.Sprintf("{%v InitWFn: gain %v}", i.Type, i.Gain)
}

// UnmarshalJSON implements the json.Unmarshaller interface
func (i *InitWFn) UnmarshalJSON(data []byte) error {
	// Avoid recursing into UnmarshalJSON
	type config struct {
		Type
		Gain float64
	}

	var c config
	if err := json.Unmarshal(data, &c); err != nil {
		return fmt.Errorf("unmarshalJSON: %w", err)
	}

	i.Type, i.Gain = c.Type, c.Gain
	if err := i.create(); err != nil {
		return fmt.Errorf("unmarshalJSON: %w", err)
	}
	return nil
}

// create sets the Gorgonia InitWFn described by the type and gain
func (i *InitWFn) create() error {
	if i.Type != Zeroes && i.Gain <= 0 {
		return fmt.Errorf("gain must be positive for %v, have(%v)", i.Type,
			i.Gain)
	}

	switch i.Type {
	case GlorotU:
		i.initWFn = G.GlorotU(i.Gain)
	case GlorotN:
		i.initWFn = G.GlorotN(i.Gain)
	case HeU:
		i.initWFn = G.HeU(i.Gain)
	case HeN:
		i.initWFn = G.HeN(i.Gain)
	case Zeroes:
		i.initWFn = G.Zeroes()
	default:
		return fmt.Errorf("unknown InitWFn type %q", i.Type)
	}
	return nil
}
