// Package globaltime is the clock every extraction timestamp, dedup window
// and trending decay reads from. Tests pin it with Freeze.
package globaltime

import (
	"sync/atomic"
	"time"
)

var frozen atomic.Pointer[time.Time]

// UTC returns the current instant in UTC, or the frozen one.
func UTC() time.Time {
	if t := frozen.Load(); t != nil {
		return *t
	}
	return time.Now().UTC()
}

// Freeze pins UTC to t until the returned restore func runs.
func Freeze(t time.Time) (restore func()) {
	pinned := t.UTC()
	prev := frozen.Swap(&pinned)
	return func() { frozen.Store(prev) }
}
