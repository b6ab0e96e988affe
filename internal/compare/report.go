package compare

import (
	"fmt"
	"io"
	"strings"
)

// Mismatch records one cell where the candidate disagrees with the reference.
type Mismatch struct {
	Input     float64
	Reference float64
	Candidate float64
	Row       int
	Col       int
}

// Report is the outcome of one comparison. Records holds at most the
// configured cap; Total counts every mismatch.
type Report struct {
	Records []Mismatch
	Total   int
}

// Passed reports whether no mismatch survived.
func (r *Report) Passed() bool { return r == nil || r.Total == 0 }

// Truncated reports whether more mismatches occurred than were recorded.
func (r *Report) Truncated() bool { return r != nil && r.Total > len(r.Records) }

// WriteTable writes the mismatch summary and the recorded cells as a
// tab-separated table. Nothing is written for a passing report.
func (r *Report) WriteTable(w io.Writer, function string) error {
	if r.Passed() {
		return nil
	}

	sb := &strings.Builder{}
	fmt.Fprintf(sb, "Test for %s differs in %d locations:\n", function, r.Total)
	fmt.Fprintln(sb, "input\treference\tcandidate\trow\tcolumn")

	for _, m := range r.Records {
		fmt.Fprintf(sb, "%g\t%g\t%g\t%d\t%d\n", m.Input, m.Reference, m.Candidate, m.Row, m.Col)
	}

	_, err := io.WriteString(w, sb.String())

	return err
}
