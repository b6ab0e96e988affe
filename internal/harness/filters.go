package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/example/go-kernel-bench/internal/kernel"
	"github.com/example/go-kernel-bench/internal/matrix"
)

// Mode is the execution mode forwarded to the candidate kernel.
type Mode uint8

const (
	// ModeAny matches both modes when used as a filter.
	ModeAny Mode = iota
	Serial
	Parallel
)

// DefaultModes is the execution mode domain of every case.
func DefaultModes() []Mode { return []Mode{Serial, Parallel} }

// ParseMode maps "serial", "parallel" or "" (any) to a Mode.
func ParseMode(raw string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "any", "both":
		return ModeAny, nil
	case "serial":
		return Serial, nil
	case "parallel":
		return Parallel, nil
	default:
		return ModeAny, fmt.Errorf("invalid execution mode %q (expected serial|parallel)", raw)
	}
}

func (m Mode) String() string {
	switch m {
	case Serial:
		return "serial"
	case Parallel:
		return "parallel"
	default:
		return "any"
	}
}

// Label is the fixed-width console label of m.
func (m Mode) Label() string {
	if m == Parallel {
		return "Parallel"
	}

	return "Serial  "
}

// Filters pins parts of the sweep to single values. The zero value
// matches everything.
type Filters struct {
	// Function keeps cases whose name starts with it.
	Function string
	Type     matrix.Type
	Size     int
	Mode     Mode
}

// MatchFunction reports whether a case named name passes the function
// prefix filter.
func (f Filters) MatchFunction(name string) bool {
	return f.Function == "" || strings.HasPrefix(name, f.Function)
}

// Types returns the declared types that pass the type filter, in declared
// order.
func (f Filters) Types(declared []matrix.Type) []matrix.Type {
	if f.Type == matrix.Null {
		return slices.Clone(declared)
	}

	if slices.Contains(declared, f.Type) {
		return []matrix.Type{f.Type}
	}

	return nil
}

// Sizes returns the declared sizes that pass the size filter, ascending.
func (f Filters) Sizes(declared []int) []int {
	out := slices.Clone(declared)
	slices.Sort(out)

	if f.Size == 0 {
		return out
	}

	if slices.Contains(out, f.Size) {
		return []int{f.Size}
	}

	return nil
}

// Modes returns the modes that pass the mode filter, serial first.
func (f Filters) Modes(declared []Mode) []Mode {
	out := make([]Mode, 0, len(declared))
	for _, m := range []Mode{Serial, Parallel} {
		if slices.Contains(declared, m) && (f.Mode == ModeAny || f.Mode == m) {
			out = append(out, m)
		}
	}

	return out
}

// Combination is one point of a case's sweep.
type Combination struct {
	Type matrix.Type
	Size int
	Mode Mode
}

// Plan returns the combinations of d that pass f, in sweep order: types in
// declared order, sizes ascending, serial before parallel. An empty plan
// means the case is skipped.
func (f Filters) Plan(d kernel.Descriptor, modes []Mode) []Combination {
	if !f.MatchFunction(d.Name) {
		return nil
	}

	types, sizes, ms := f.Types(d.Types), f.Sizes(d.Sizes), f.Modes(modes)
	if len(types) == 0 || len(sizes) == 0 || len(ms) == 0 {
		return nil
	}

	out := make([]Combination, 0, len(types)*len(sizes)*len(ms))
	for _, t := range types {
		for _, s := range sizes {
			for _, m := range ms {
				out = append(out, Combination{Type: t, Size: s, Mode: m})
			}
		}
	}

	return out
}
