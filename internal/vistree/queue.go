package vistree

import (
	"voxlod/internal/config"

	"github.com/go-gl/mathgl/mgl32"
)

// GeomGenJob requests geometry for one node. World position of a mesh vertex is
// Translate + Scale*local, where local is in the job volume's voxel units.
type GeomGenJob struct {
	Node      NodeRef
	Level     int
	Bounds    Bounds
	Scale     float32
	Translate mgl32.Vec3
}

// JobQueue holds pending geometry jobs.
type JobQueue interface {
	Push(job GeomGenJob)
	Pop() (GeomGenJob, bool)
	Len() int
	Reset()
	// Prune drops, in place, every job keep rejects and returns how many were dropped.
	Prune(keep func(GeomGenJob) bool) int
}

// NewQueue returns the queue discipline named by order (config.QueueLIFO or config.QueueFIFO).
func NewQueue(order string, capacity int) JobQueue {
	if order == config.QueueFIFO {
		return NewFIFO(capacity)
	}
	return NewLIFO(capacity)
}

// LIFO serves the most recently requested job first: regions split near the viewer this
// frame are built before older requests, which can starve distant regions under sustained motion.
type LIFO struct {
	jobs []GeomGenJob
}

func NewLIFO(capacity int) *LIFO {
	return &LIFO{jobs: make([]GeomGenJob, 0, capacity)}
}

func (q *LIFO) Push(job GeomGenJob) { q.jobs = append(q.jobs, job) }

func (q *LIFO) Pop() (GeomGenJob, bool) {
	n := len(q.jobs)
	if n == 0 {
		return GeomGenJob{}, false
	}
	job := q.jobs[n-1]
	q.jobs = q.jobs[:n-1]
	return job, true
}

func (q *LIFO) Len() int { return len(q.jobs) }
func (q *LIFO) Reset()   { q.jobs = q.jobs[:0] }

func (q *LIFO) Prune(keep func(GeomGenJob) bool) int {
	n := len(q.jobs)
	out := q.jobs[:0]
	for _, job := range q.jobs {
		if keep(job) {
			out = append(out, job)
		}
	}
	q.jobs = out
	return n - len(q.jobs)
}

// FIFO serves jobs in request order.
type FIFO struct {
	jobs []GeomGenJob
	head int
}

func NewFIFO(capacity int) *FIFO {
	return &FIFO{jobs: make([]GeomGenJob, 0, capacity)}
}

func (q *FIFO) Push(job GeomGenJob) {
	if q.head > 0 && q.head*2 >= len(q.jobs) {
		n := copy(q.jobs, q.jobs[q.head:])
		q.jobs = q.jobs[:n]
		q.head = 0
	}
	q.jobs = append(q.jobs, job)
}

func (q *FIFO) Pop() (GeomGenJob, bool) {
	if q.head == len(q.jobs) {
		return GeomGenJob{}, false
	}
	job := q.jobs[q.head]
	q.head++
	if q.head == len(q.jobs) {
		q.jobs = q.jobs[:0]
		q.head = 0
	}
	return job, true
}

func (q *FIFO) Len() int { return len(q.jobs) - q.head }

func (q *FIFO) Reset() {
	q.jobs = q.jobs[:0]
	q.head = 0
}

func (q *FIFO) Prune(keep func(GeomGenJob) bool) int {
	n := q.Len()
	// Survivors move to the front, so writes never overtake reads.
	out := q.jobs[:0]
	for _, job := range q.jobs[q.head:] {
		if keep(job) {
			out = append(out, job)
		}
	}
	q.jobs, q.head = out, 0
	return n - len(q.jobs)
}
