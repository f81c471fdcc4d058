package sync

import (
	"math"
	"sort"

	"github.com/OpenTraceLab/OpenTraceSync/pkg/circuit"
)

// FieldDiff records what changed on a matched pair. Renamed and the
// attribute flags are independent: a pair can be renamed and updated at
// once.
type FieldDiff struct {
	Renamed   bool
	Value     bool
	Footprint bool
	DNP       bool
	Attrs     []string // property keys whose values differ
	Position  bool     // only when the component carries a spatial hint
	Rotation  bool
}

func (d FieldDiff) updated() bool {
	return d.Value || d.Footprint || d.DNP || len(d.Attrs) > 0 || d.Position || d.Rotation
}

// Change is one matched pair with its computed differences.
type Change struct {
	Pair
	Diff FieldDiff
}

// ChangeSet is the classifier's labeled output: disjoint element sets the
// applier replays in order. Unsupported carries matched pairs whose
// fundamental type differs, which the engine refuses to rewrite in place.
type ChangeSet struct {
	Preserved   []Pair
	Updated     []Change
	Renamed     []Change
	Added       []*circuit.Component
	Removed     []Element
	Unsupported []Pair
}

// Classify converts a correspondence into a change set. Field comparison
// covers everything except position, rotation, and the identity token;
// position and rotation only count when the component carries an explicit
// spatial hint. A pair with zero differences is preserved.
func Classify(corr *Correspondence, cfg *Config, tgt target) *ChangeSet {
	cs := &ChangeSet{
		Added:   corr.UnmatchedComponents,
		Removed: corr.UnmatchedElements,
	}

	for _, pair := range corr.Pairs {
		if tgt.typeOf(pair.Comp) != pair.Elem.Type() {
			cs.Unsupported = append(cs.Unsupported, pair)
			continue
		}

		diff := diffPair(pair, cfg, tgt)
		change := Change{Pair: pair, Diff: diff}

		if diff.Renamed {
			cs.Renamed = append(cs.Renamed, change)
		}
		if diff.updated() {
			cs.Updated = append(cs.Updated, change)
		}
		if !diff.Renamed && !diff.updated() {
			cs.Preserved = append(cs.Preserved, pair)
		}
	}
	return cs
}

func diffPair(pair Pair, cfg *Config, tgt target) FieldDiff {
	c, e := pair.Comp, pair.Elem
	var d FieldDiff

	d.Renamed = c.Ref != e.Reference()
	d.Value = c.Value != e.Value()
	if tgt == targetSchematic {
		d.Footprint = c.Footprint != e.Footprint()
	}

	if sym, ok := e.(interface{ DNP() bool }); ok {
		d.DNP = c.Attrs.DNP != sym.DNP()
	}

	if props, ok := e.(interface{ Property(string) (string, bool) }); ok {
		d.Attrs = diffProperties(c, props)
	}

	if c.At != nil {
		pos := e.Position()
		tol := cfg.PositionTolerance
		d.Position = math.Abs(c.At.X-pos.X) > tol || math.Abs(c.At.Y-pos.Y) > tol
		d.Rotation = c.At.Rotation != float64(e.Angle())
	}
	return d
}

// diffProperties compares the closed attribute schema plus the extension
// map against the element's named properties. A key counts as different
// when the desired value is non-empty and the document disagrees;
// properties the circuit never mentions are the document's own business.
func diffProperties(c *circuit.Component, e interface{ Property(string) (string, bool) }) []string {
	var out []string
	check := func(key, want string) {
		if want == "" {
			return
		}
		if have, _ := e.Property(key); have != want {
			out = append(out, key)
		}
	}
	check("Description", c.Attrs.Description)
	check("MPN", c.Attrs.PartNumber)
	for _, key := range sortedExtraKeys(c.Attrs.Extra) {
		check(key, c.Attrs.Extra[key])
	}
	return out
}

func sortedExtraKeys(m map[string]string) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Stable order keeps reports and applied edits deterministic.
	sort.Strings(keys)
	return keys
}
