package profiling

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Lightweight per-frame CPU profiler for the terrain update loop.

// Recorder accumulates named durations until the next Reset.
type Recorder struct {
	mu     sync.Mutex
	totals map[string]time.Duration
	counts map[string]int
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		totals: make(map[string]time.Duration),
		counts: make(map[string]int),
	}
}

var frame = NewRecorder()

// Track returns a stop function that records the elapsed time under the given name
// on the package frame recorder.
// Usage: defer profiling.Track("vistree.Traverse")()
func Track(name string) func() {
	return frame.Track(name)
}

// ResetFrame clears the package frame recorder. Call at the start of each frame.
func ResetFrame() { frame.Reset() }

// Snapshot copies the package frame totals.
func Snapshot() map[string]time.Duration { return frame.Snapshot() }

// TopN formats the package frame's N most expensive entries.
func TopN(n int) string { return frame.TopN(n) }

// Track starts timing name on r.
func (r *Recorder) Track(name string) func() {
	start := time.Now()
	return func() {
		r.Add(name, time.Since(start))
	}
}

// Add records one sample.
func (r *Recorder) Add(name string, d time.Duration) {
	r.mu.Lock()
	r.totals[name] += d
	r.counts[name]++
	r.mu.Unlock()
}

// Reset drops all samples.
func (r *Recorder) Reset() {
	r.mu.Lock()
	clear(r.totals)
	clear(r.counts)
	r.mu.Unlock()
}

// Count returns how many samples name received since the last reset.
func (r *Recorder) Count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[name]
}

// Snapshot returns a copy of the current totals.
func (r *Recorder) Snapshot() map[string]time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]time.Duration, len(r.totals))
	for k, v := range r.totals {
		out[k] = v
	}
	return out
}

// TopN formats the top N totals, most expensive first.
// Example: "vistree.Traverse:1.2ms, mesher.Meshify:0.8ms"
func (r *Recorder) TopN(n int) string {
	ss := r.Snapshot()
	names := make([]string, 0, len(ss))
	for k := range ss {
		names = append(names, k)
	}
	sort.Slice(names, func(i, j int) bool {
		if ss[names[i]] == ss[names[j]] {
			return names[i] < names[j]
		}
		return ss[names[i]] > ss[names[j]]
	})
	if n > len(names) {
		n = len(names)
	}
	parts := make([]string, 0, n)
	for _, name := range names[:n] {
		ms := float64(ss[name].Microseconds()) / 1000.0
		parts = append(parts, fmt.Sprintf("%s:%.1fms", name, ms))
	}
	return strings.Join(parts, ", ")
}
