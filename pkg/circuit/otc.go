package circuit

import (
	"fmt"
	"os"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// The .otc description language: a compact, hand-writable circuit format.
//
//	circuit "preamp" {
//	  comp R1 lib "Device:R" value "10k" footprint "Resistor_SMD:R_0603_1608Metric"
//	  comp C1 lib "Device:C" value "100n" dnp
//	  comp U1 lib "Amplifier_Operational:TL072" token "9f1b..."
//	  net VCC power { U1.8 C1.1 }
//	  net IN { R1.1 U1.3 }
//	  use "in1" { ... }
//	}
//
// Component clauses may appear in any order. Net names that are not plain
// identifiers (e.g. "+3V3") are written quoted.

// otcLexer defines the lexical structure of .otc files.
var otcLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
	{Name: "String", Pattern: `"(?:[^"\\]|\\.)*"`},
	{Name: "Number", Pattern: `[-+]?[0-9]+(?:\.[0-9]+)?`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "LBrace", Pattern: `\{`},
	{Name: "RBrace", Pattern: `\}`},
	{Name: "Dot", Pattern: `\.`},
})

// otcFile is the grammar root: exactly one circuit block.
type otcFile struct {
	Circuit *otcCircuit `parser:"@@"`
}

type otcCircuit struct {
	Name    string      `parser:"\"circuit\" @String LBrace"`
	Entries []*otcEntry `parser:"@@* RBrace"`
}

type otcEntry struct {
	Comp *otcComp `parser:"  @@"`
	Net  *otcNet  `parser:"| @@"`
	Sub  *otcSub  `parser:"| @@"`
}

type otcComp struct {
	Ref     string       `parser:"\"comp\" @Ident"`
	Clauses []*otcClause `parser:"@@*"`
}

// otcClause is one key/value clause of a comp line.
type otcClause struct {
	Lib       *string  `parser:"  \"lib\" @String"`
	Value     *string  `parser:"| \"value\" @String"`
	Footprint *string  `parser:"| \"footprint\" @String"`
	Token     *string  `parser:"| \"token\" @String"`
	At        *otcAt   `parser:"| \"at\" @@"`
	Layer     *string  `parser:"| \"layer\" @String"`
	MPN       *string  `parser:"| \"mpn\" @String"`
	Desc      *string  `parser:"| \"desc\" @String"`
	DNP       bool     `parser:"| @\"dnp\""`
	Attr      *otcAttr `parser:"| \"attr\" @@"`
}

type otcAt struct {
	X   float64  `parser:"@Number"`
	Y   float64  `parser:"@Number"`
	Rot *float64 `parser:"@Number?"`
}

type otcAttr struct {
	Key   string `parser:"@String"`
	Value string `parser:"@String"`
}

type otcNet struct {
	Name   string     `parser:"\"net\" @(Ident | String)"`
	Class  string     `parser:"@(\"power\" | \"signal\")?"`
	Symbol *string    `parser:"(\"symbol\" @String)?"`
	Nodes  []*otcNode `parser:"LBrace @@* RBrace"`
}

type otcNode struct {
	Ref string `parser:"@Ident"`
	Pin string `parser:"Dot @(Ident | Number)"`
}

type otcSub struct {
	Name    string      `parser:"\"use\" @String LBrace"`
	Entries []*otcEntry `parser:"@@* RBrace"`
}

var otcParser = participle.MustBuild[otcFile](
	participle.Lexer(otcLexer),
	participle.Elide("Comment", "Whitespace"),
	participle.Unquote("String"),
	participle.UseLookahead(2),
)

// ParseOTC parses a circuit from .otc source.
func ParseOTC(data []byte) (*Circuit, error) {
	file, err := otcParser.ParseBytes("", data)
	if err != nil {
		return nil, fmt.Errorf("circuit: parse error: %w", err)
	}

	ckt, err := convertOTC(file.Circuit.Name, file.Circuit.Entries)
	if err != nil {
		return nil, err
	}
	if err := ckt.Validate(); err != nil {
		return nil, err
	}
	return ckt, nil
}

// LoadOTC reads and parses an .otc file.
func LoadOTC(path string) (*Circuit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("circuit: failed to read %s: %w", path, err)
	}
	ckt, err := ParseOTC(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ckt, nil
}

func convertOTC(name string, entries []*otcEntry) (*Circuit, error) {
	ckt := &Circuit{Name: name}

	for _, entry := range entries {
		switch {
		case entry.Comp != nil:
			comp, err := convertComp(entry.Comp)
			if err != nil {
				return nil, err
			}
			ckt.Components = append(ckt.Components, comp)

		case entry.Net != nil:
			net := &Net{Name: entry.Net.Name}
			switch entry.Net.Class {
			case "power":
				net.Class = ClassPower
			case "signal":
				net.Class = ClassSignal
			}
			if entry.Net.Symbol != nil {
				net.PowerSymbol = *entry.Net.Symbol
			}
			for _, node := range entry.Net.Nodes {
				net.Nodes = append(net.Nodes, NetNode{Ref: node.Ref, Pin: node.Pin})
			}
			ckt.Nets = append(ckt.Nets, net)

		case entry.Sub != nil:
			child, err := convertOTC(entry.Sub.Name, entry.Sub.Entries)
			if err != nil {
				return nil, err
			}
			ckt.Children = append(ckt.Children, child)
		}
	}
	return ckt, nil
}

func convertComp(oc *otcComp) (*Component, error) {
	comp := &Component{Ref: oc.Ref}

	for _, cl := range oc.Clauses {
		switch {
		case cl.Lib != nil:
			comp.LibID = *cl.Lib
		case cl.Value != nil:
			comp.Value = *cl.Value
		case cl.Footprint != nil:
			comp.Footprint = *cl.Footprint
		case cl.Token != nil:
			comp.Token = *cl.Token
		case cl.At != nil:
			comp.At = &Placement{X: cl.At.X, Y: cl.At.Y}
			if cl.At.Rot != nil {
				comp.At.Rotation = *cl.At.Rot
			}
		case cl.Layer != nil:
			comp.Attrs.Layer = *cl.Layer
		case cl.MPN != nil:
			comp.Attrs.PartNumber = *cl.MPN
		case cl.Desc != nil:
			comp.Attrs.Description = *cl.Desc
		case cl.DNP:
			comp.Attrs.DNP = true
		case cl.Attr != nil:
			if comp.Attrs.Extra == nil {
				comp.Attrs.Extra = make(map[string]string)
			}
			comp.Attrs.Extra[cl.Attr.Key] = cl.Attr.Value
		}
	}

	if comp.LibID == "" {
		return nil, fmt.Errorf("circuit: component %s has no lib clause", comp.Ref)
	}
	return comp, nil
}
