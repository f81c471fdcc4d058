package circuit

import (
	"fmt"
)

// Flattener folds a hierarchical circuit into the shape a single target
// document expects. The strategy is explicit and swappable so multi-sheet
// support can slot in later without touching the engine.
type Flattener interface {
	Flatten(*Circuit) (*Circuit, error)
}

// SingleSheet merges an entire circuit tree into one flat component and
// net set. Child-local signal nets are qualified with the child's path
// ("in1/NET") so two instances of the same sub-circuit stay electrically
// separate; power nets keep their global name and merge across the whole
// tree. A net counts as power when its class says so, or when its class
// is unset and IsPower recognizes the name. Duplicate references across
// sheets are an error rather than a silent renumber.
type SingleSheet struct {
	IsPower func(name string) bool
}

func (s SingleSheet) Flatten(c *Circuit) (*Circuit, error) {
	flat := &Circuit{Name: c.Name}
	netIndex := make(map[string]*Net)
	refOwner := make(map[string]string)

	if err := s.flattenInto(c, "", flat, netIndex, refOwner); err != nil {
		return nil, err
	}
	return flat, nil
}

func (s SingleSheet) global(net *Net) bool {
	if net.Class == ClassPower {
		return true
	}
	return net.Class == ClassAuto && s.IsPower != nil && s.IsPower(net.Name)
}

func (s SingleSheet) flattenInto(c *Circuit, prefix string, flat *Circuit, netIndex map[string]*Net, refOwner map[string]string) error {
	scope := c.Name
	if prefix != "" {
		scope = prefix
	}

	for _, comp := range c.Components {
		if owner, taken := refOwner[comp.Ref]; taken {
			return fmt.Errorf("circuit: reference %s appears in both %q and %q", comp.Ref, owner, scope)
		}
		refOwner[comp.Ref] = scope
		flat.Components = append(flat.Components, comp)
	}

	for _, net := range c.Nets {
		name := net.Name
		if prefix != "" && !s.global(net) {
			name = prefix + "/" + net.Name
		}

		if existing, found := netIndex[name]; found {
			existing.Nodes = append(existing.Nodes, net.Nodes...)
			if existing.PowerSymbol == "" {
				existing.PowerSymbol = net.PowerSymbol
			}
			continue
		}
		merged := &Net{
			Name:        name,
			Nodes:       append([]NetNode(nil), net.Nodes...),
			Class:       net.Class,
			PowerSymbol: net.PowerSymbol,
		}
		netIndex[name] = merged
		flat.Nets = append(flat.Nets, merged)
	}

	for _, child := range c.Children {
		childPrefix := child.Name
		if prefix != "" {
			childPrefix = prefix + "/" + child.Name
		}
		if err := s.flattenInto(child, childPrefix, flat, netIndex, refOwner); err != nil {
			return err
		}
	}
	return nil
}
