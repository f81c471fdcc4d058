// Package circuit is the in-memory model of a desired circuit: components
// with pins and attributes, nets connecting them, and optional hierarchy.
// A Circuit is rebuilt fresh from source on every synchronization run and
// carries everything the engine needs to reconcile a KiCad document
// against it. Models load from the project's JSON netlist format or from
// the compact .otc description language.
package circuit

import (
	"fmt"
)

// NetClass is the classification of a net for rendering purposes.
type NetClass int

const (
	// ClassAuto defers classification to the engine's power vocabulary.
	ClassAuto NetClass = iota
	// ClassPower forces the net to render as power markers.
	ClassPower
	// ClassSignal forces the net to render as point labels.
	ClassSignal
)

func (c NetClass) String() string {
	switch c {
	case ClassPower:
		return "power"
	case ClassSignal:
		return "signal"
	default:
		return "auto"
	}
}

// Placement is an observed position hint carried by a component that was
// seen in a document before. X/Y in millimeters, rotation in degrees.
type Placement struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Rotation float64 `json:"rotation,omitempty"`
}

// Attributes is the closed attribute schema of a component plus an open
// extension map for anything a source format wants to carry forward.
type Attributes struct {
	Description string            `json:"description,omitempty"`
	PartNumber  string            `json:"part_number,omitempty"`
	DNP         bool              `json:"dnp,omitempty"`
	Layer       string            `json:"layer,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// Component is one desired part. Token is the stable identity carried
// across regenerations once a document element has been created for it;
// components that have never been synchronized carry an empty token.
type Component struct {
	Token     string     `json:"token,omitempty"`
	Ref       string     `json:"ref"`
	LibID     string     `json:"lib_id"`
	Value     string     `json:"value,omitempty"`
	Footprint string     `json:"footprint,omitempty"`
	Attrs     Attributes `json:"attrs,omitempty"`
	At        *Placement `json:"at,omitempty"`
}

// NetNode is one (component reference, pin number) connection of a net.
type NetNode struct {
	Ref string `json:"ref"`
	Pin string `json:"pin"`
}

func (n NetNode) String() string {
	return n.Ref + "." + n.Pin
}

// Net is a named set of connected pins. Node order is preserved from the
// source so derived output is stable across runs.
type Net struct {
	Name  string    `json:"name"`
	Nodes []NetNode `json:"nodes"`
	Class NetClass  `json:"-"`
	// PowerSymbol overrides the library symbol used for power markers
	// (e.g. "power:GND"); empty means derive from the net name.
	PowerSymbol string `json:"power_symbol,omitempty"`
}

// Circuit is a (possibly hierarchical) circuit description. Children are
// sub-circuits instantiated under this one; a flattening strategy folds
// them into a single sheet before synchronization.
type Circuit struct {
	Name       string       `json:"name"`
	Components []*Component `json:"components"`
	Nets       []*Net       `json:"nets"`
	Children   []*Circuit   `json:"children,omitempty"`
}

// Component returns the component with the given reference, or nil.
func (c *Circuit) Component(ref string) *Component {
	for _, comp := range c.Components {
		if comp.Ref == ref {
			return comp
		}
	}
	return nil
}

// Validate checks the circuit for structural errors: empty or duplicate
// references, and net nodes naming components that do not exist at this
// level. Children are validated recursively.
func (c *Circuit) Validate() error {
	seen := make(map[string]bool, len(c.Components))
	for _, comp := range c.Components {
		if comp.Ref == "" {
			return fmt.Errorf("circuit %q: component with empty reference", c.Name)
		}
		if comp.LibID == "" {
			return fmt.Errorf("circuit %q: component %s has no lib id", c.Name, comp.Ref)
		}
		if seen[comp.Ref] {
			return fmt.Errorf("circuit %q: duplicate reference %s", c.Name, comp.Ref)
		}
		seen[comp.Ref] = true
	}

	for _, net := range c.Nets {
		if net.Name == "" {
			return fmt.Errorf("circuit %q: net with empty name", c.Name)
		}
		for _, node := range net.Nodes {
			if !seen[node.Ref] {
				return fmt.Errorf("circuit %q: net %s connects unknown component %s", c.Name, net.Name, node.Ref)
			}
		}
	}

	for _, child := range c.Children {
		if err := child.Validate(); err != nil {
			return err
		}
	}
	return nil
}
