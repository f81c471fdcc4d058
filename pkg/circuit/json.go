package circuit

import (
	"encoding/json"
	"fmt"
	"os"
)

// The JSON netlist format: a version header followed by the circuit tree.
// This is the same shape the family's boundary-scan tooling exports, so a
// discovered netlist can be fed straight back in as a sync source.

const jsonFormatVersion = "1.0"

type jsonFile struct {
	Version     string   `json:"version"`
	GeneratedBy string   `json:"generated_by,omitempty"`
	Circuit     *jsonCkt `json:"circuit"`
}

type jsonCkt struct {
	Name       string       `json:"name"`
	Components []*Component `json:"components"`
	Nets       []*jsonNet   `json:"nets"`
	Children   []*jsonCkt   `json:"children,omitempty"`
}

// jsonNet spells the class as a string so hand-written files read well.
type jsonNet struct {
	Name        string    `json:"name"`
	Class       string    `json:"class,omitempty"` // "", "power", "signal"
	PowerSymbol string    `json:"power_symbol,omitempty"`
	Nodes       []NetNode `json:"nodes"`
}

// ParseJSON parses a circuit from JSON netlist bytes.
func ParseJSON(data []byte) (*Circuit, error) {
	var file jsonFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("circuit: invalid JSON netlist: %w", err)
	}
	if file.Version == "" {
		return nil, fmt.Errorf("circuit: JSON netlist has no version field")
	}
	if file.Circuit == nil {
		return nil, fmt.Errorf("circuit: JSON netlist has no circuit")
	}

	ckt, err := convertJSON(file.Circuit)
	if err != nil {
		return nil, err
	}
	if err := ckt.Validate(); err != nil {
		return nil, err
	}
	return ckt, nil
}

// LoadJSON reads and parses a JSON netlist file.
func LoadJSON(path string) (*Circuit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("circuit: failed to read %s: %w", path, err)
	}
	ckt, err := ParseJSON(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ckt, nil
}

func convertJSON(jc *jsonCkt) (*Circuit, error) {
	ckt := &Circuit{
		Name:       jc.Name,
		Components: jc.Components,
	}
	for _, jn := range jc.Nets {
		class, err := parseClass(jn.Class)
		if err != nil {
			return nil, fmt.Errorf("circuit: net %s: %w", jn.Name, err)
		}
		ckt.Nets = append(ckt.Nets, &Net{
			Name:        jn.Name,
			Nodes:       jn.Nodes,
			Class:       class,
			PowerSymbol: jn.PowerSymbol,
		})
	}
	for _, jch := range jc.Children {
		child, err := convertJSON(jch)
		if err != nil {
			return nil, err
		}
		ckt.Children = append(ckt.Children, child)
	}
	return ckt, nil
}

func parseClass(s string) (NetClass, error) {
	switch s {
	case "":
		return ClassAuto, nil
	case "power":
		return ClassPower, nil
	case "signal":
		return ClassSignal, nil
	}
	return ClassAuto, fmt.Errorf("unknown net class %q", s)
}

// Marshal renders the circuit back into the netlist file shape,
// indented for hand editing. The hierarchical structure is retained even
// when synchronization flattens it.
func Marshal(c *Circuit) ([]byte, error) {
	file := jsonFile{
		Version:     jsonFormatVersion,
		GeneratedBy: "OpenTraceSync",
		Circuit:     reverseJSON(c),
	}
	return json.MarshalIndent(file, "", "  ")
}

func reverseJSON(c *Circuit) *jsonCkt {
	jc := &jsonCkt{
		Name:       c.Name,
		Components: c.Components,
	}
	for _, n := range c.Nets {
		class := ""
		if n.Class != ClassAuto {
			class = n.Class.String()
		}
		jc.Nets = append(jc.Nets, &jsonNet{
			Name:        n.Name,
			Class:       class,
			PowerSymbol: n.PowerSymbol,
			Nodes:       n.Nodes,
		})
	}
	for _, ch := range c.Children {
		jc.Children = append(jc.Children, reverseJSON(ch))
	}
	return jc
}
