package main

import "time"

// fpsLimiter paces the frame loop to a fixed rate.
type fpsLimiter struct {
	limit int
	next  time.Time
}

// Wait blocks until the next frame is due. Sleeps for the bulk of the wait and spins
// for the last 200µs.
func (f *fpsLimiter) Wait() {
	if f.limit <= 0 {
		f.next = time.Time{}
		return
	}

	target := time.Second / time.Duration(f.limit)
	if f.next.IsZero() {
		f.next = time.Now().Add(target)
	} else {
		f.next = f.next.Add(target)
	}

	for {
		remaining := time.Until(f.next)
		if remaining <= 0 {
			break
		}
		if remaining > 200*time.Microsecond {
			time.Sleep(remaining - 200*time.Microsecond)
		}
	}

	// Resync after a hitch instead of rushing to catch up.
	if late := -time.Until(f.next); late > target {
		f.next = time.Now().Add(target)
	}
}
