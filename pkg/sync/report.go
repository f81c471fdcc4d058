package sync

import (
	"fmt"
	"sort"
	"strings"
)

// DiagnosticKind labels the non-fatal conditions the engine records
// instead of resolving on its own.
type DiagnosticKind string

const (
	// DiagAmbiguousMatch: several equally valid correspondences; the
	// elements were conservatively treated as add+remove.
	DiagAmbiguousMatch DiagnosticKind = "ambiguous-match"

	// DiagDanglingReference: removing an element would orphan a
	// human-owned wire or label, which was left in place.
	DiagDanglingReference DiagnosticKind = "dangling-reference"

	// DiagUnsupportedChange: a change the engine refuses to apply in
	// place, such as swapping a matched element's fundamental type.
	DiagUnsupportedChange DiagnosticKind = "unsupported-change"

	// DiagMissingLibSymbol: the document embeds no library definition
	// for an instance the engine placed or measured.
	DiagMissingLibSymbol DiagnosticKind = "missing-lib-symbol"

	// DiagMissingPin: a net names a pin the library definition does not
	// have; its realization fell back to the symbol origin.
	DiagMissingPin DiagnosticKind = "missing-pin"
)

// Diagnostic is one recorded non-fatal condition.
type Diagnostic struct {
	Kind    DiagnosticKind
	Message string
}

func (d Diagnostic) String() string {
	return string(d.Kind) + ": " + d.Message
}

func diagf(kind DiagnosticKind, format string, args ...any) Diagnostic {
	return Diagnostic{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Rename is one (old reference, new reference) pair.
type Rename struct {
	From string
	To   string
}

// NetChange identifies one net realization: a label or power marker at a
// specific component pin.
type NetChange struct {
	Net string
	Ref string
	Pin string
}

func (n NetChange) String() string {
	return fmt.Sprintf("%s@%s.%s", n.Net, n.Ref, n.Pin)
}

// NetChanges summarizes what the connectivity renderer did.
type NetChanges struct {
	Added     []NetChange
	Removed   []NetChange
	Relabeled []NetChange
}

// Report is the contract surface of a synchronization run: which
// references matched, what was created, destroyed, edited, or left
// byte-identical, plus every diagnostic the run accumulated.
type Report struct {
	Matched   []string
	Added     []string
	Removed   []string
	Updated   []string
	Preserved []string
	Renamed   []Rename
	Nets      NetChanges
	Errors    []string
}

func (r *Report) diag(d Diagnostic) {
	r.Errors = append(r.Errors, d.String())
}

func (r *Report) diags(ds []Diagnostic) {
	for _, d := range ds {
		r.diag(d)
	}
}

// Changed reports whether the run altered the document at all.
func (r *Report) Changed() bool {
	return len(r.Added) > 0 || len(r.Removed) > 0 || len(r.Updated) > 0 ||
		len(r.Renamed) > 0 || len(r.Nets.Added) > 0 ||
		len(r.Nets.Removed) > 0 || len(r.Nets.Relabeled) > 0
}

// sortRefs orders the reference collections so reports are stable across
// runs regardless of match order.
func (r *Report) sortRefs() {
	sort.Strings(r.Matched)
	sort.Strings(r.Added)
	sort.Strings(r.Removed)
	sort.Strings(r.Updated)
	sort.Strings(r.Preserved)
	sort.Slice(r.Renamed, func(i, j int) bool { return r.Renamed[i].From < r.Renamed[j].From })
}

// Summary renders the report as a short human-readable block, one line
// per non-empty section.
func (r *Report) Summary() string {
	var b strings.Builder
	section := func(name string, refs []string) {
		if len(refs) > 0 {
			fmt.Fprintf(&b, "  %-10s %s\n", name+":", strings.Join(refs, ", "))
		}
	}
	section("matched", r.Matched)
	section("preserved", r.Preserved)
	section("updated", r.Updated)
	section("added", r.Added)
	section("removed", r.Removed)

	if len(r.Renamed) > 0 {
		pairs := make([]string, len(r.Renamed))
		for i, rn := range r.Renamed {
			pairs[i] = rn.From + "→" + rn.To
		}
		fmt.Fprintf(&b, "  %-10s %s\n", "renamed:", strings.Join(pairs, ", "))
	}

	netSection := func(name string, changes []NetChange) {
		if len(changes) == 0 {
			return
		}
		parts := make([]string, len(changes))
		for i, c := range changes {
			parts[i] = c.String()
		}
		fmt.Fprintf(&b, "  %-10s %s\n", name+":", strings.Join(parts, ", "))
	}
	netSection("net+", r.Nets.Added)
	netSection("net-", r.Nets.Removed)
	netSection("net~", r.Nets.Relabeled)

	for _, e := range r.Errors {
		fmt.Fprintf(&b, "  warning:   %s\n", e)
	}

	if b.Len() == 0 {
		return "  no changes\n"
	}
	return b.String()
}
