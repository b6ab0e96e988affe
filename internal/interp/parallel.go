package interp

import (
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// workers bounds the goroutines a kernel uses on arrays flagged Parallel.
var workers atomic.Int32

func init() {
	SetWorkers(runtime.GOMAXPROCS(0))
}

// SetWorkers sets the maximum number of goroutines used by parallel
// kernels. n <= 1 makes parallel arrays run serially.
func SetWorkers(n int) {
	const maxInt32 = int(^uint32(0) >> 1)

	if n < 1 {
		n = 1
	}

	if n > maxInt32 {
		n = maxInt32
	}

	workers.Store(int32(n))
}

// Workers returns the configured parallel worker count.
func Workers() int {
	n := int(workers.Load())
	if n < 1 {
		return 1
	}

	return n
}

// forRows calls fn over row ranges covering [0, rows). With parallel set
// the ranges run concurrently on up to Workers goroutines.
func forRows(rows int, parallel bool, fn func(lo, hi int)) {
	if rows <= 0 {
		return
	}

	n := Workers()
	if !parallel || n <= 1 || rows == 1 {
		fn(0, rows)
		return
	}

	n = min(n, rows)
	chunk := (rows + n - 1) / n

	var g errgroup.Group
	g.SetLimit(n)

	for lo := 0; lo < rows; lo += chunk {
		hi := min(lo+chunk, rows)
		g.Go(func() error {
			fn(lo, hi)
			return nil
		})
	}

	_ = g.Wait()
}
