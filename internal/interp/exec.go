package interp

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
)

// Working array dimensions of a fresh interpreter state.
const (
	stateRows = 16
	stateCols = 16
)

// State is an interpreter session. It caches compiled kernels by source and
// holds the working array scripts transform. A State is not safe for
// concurrent use.
type State struct {
	kernels map[string]Kernel
	work    *Array
	execs   int
}

// Execs returns how many scripts have run against s.
func (s *State) Execs() int { return s.execs }

// Work returns the current working array. It stays owned by s.
func (s *State) Work() *Array { return s.work }

// Close releases the working array.
func (s *State) Close() {
	if s == nil {
		return
	}

	s.work.Release()
	s.work = nil
}

// Exec runs a script against st and returns the updated state. A nil st
// starts a new session whose working array is a 16x16 f32 ramp.
//
// A script is a sequence of lines, each holding one kernel source that is
// applied to the working array. Blank lines and lines starting with '#'
// are ignored.
func (c *Compiler) Exec(source string, st *State) (*State, error) {
	if st == nil {
		var err error
		if st, err = c.newState(); err != nil {
			return nil, err
		}
	}

	sc := bufio.NewScanner(strings.NewReader(source))
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		k, ok := st.kernels[text]
		if !ok {
			var err error
			if k, err = c.Compile(text); err != nil {
				return st, fmt.Errorf("line %d: %w", line, err)
			}

			st.kernels[text] = k
		}

		next, err := k(st.work)
		if err != nil {
			return st, fmt.Errorf("line %d: %w", line, err)
		}

		st.work.Release()
		st.work = next
	}

	if err := sc.Err(); err != nil {
		return st, fmt.Errorf("read script: %w", err)
	}

	st.execs++

	return st, nil
}

func (c *Compiler) newState() (*State, error) {
	work, err := NewArray(c.mem, arrow.PrimitiveTypes.Float32, stateRows, stateCols)
	if err != nil {
		return nil, err
	}

	ramp := arrow.Float32Traits.CastFromBytes(work.bytes())
	for i := range work.Len() {
		ramp[i] = float32(i % 256)
	}

	return &State{kernels: make(map[string]Kernel), work: work}, nil
}
