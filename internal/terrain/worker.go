package terrain

import (
	"context"
	"sync"
	"sync/atomic"

	"voxlod/internal/config"
	"voxlod/internal/mesher"
	"voxlod/internal/profiling"
	"voxlod/internal/vistree"
	"voxlod/internal/voxelgen"
)

// BuiltGeom is the CPU side result of a job built by a worker.
// Each batch owns its Data.
type BuiltGeom struct {
	Job     vistree.GeomGenJob
	Batches []mesher.Result
}

// AsyncBuilder runs generation and meshing on a fixed set of goroutines. Jobs go in
// through Submit and come back through Collect; nothing else is shared with the owner.
type AsyncBuilder struct {
	jobs     chan vistree.GeomGenJob
	results  chan BuiltGeom
	inFlight atomic.Int32
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewAsyncBuilder starts workers goroutines, each with its own generator and mesher.
func NewAsyncBuilder(cfg config.Terrain, workers, queueSize int) *AsyncBuilder {
	ctx, cancel := context.WithCancel(context.Background())

	b := &AsyncBuilder{
		jobs:    make(chan vistree.GeomGenJob, queueSize),
		results: make(chan BuiltGeom, queueSize),
		ctx:     ctx,
		cancel:  cancel,
	}

	for i := range workers {
		b.wg.Add(1)
		go b.worker(i, voxelgen.New(cfg), mesher.New(cfg.MaxVertices))
	}

	return b
}

// Submit hands a job to the workers.
// Returns false if the job channel is full.
func (b *AsyncBuilder) Submit(job vistree.GeomGenJob) bool {
	select {
	case b.jobs <- job:
		b.inFlight.Add(1)
		return true
	default:
		return false
	}
}

// Collect receives up to max finished results without blocking.
func (b *AsyncBuilder) Collect(max int) []BuiltGeom {
	var out []BuiltGeom
	for len(out) < max {
		select {
		case r := <-b.results:
			b.inFlight.Add(-1)
			out = append(out, r)
		default:
			return out
		}
	}
	return out
}

// InFlight is the number of submitted jobs not yet collected.
func (b *AsyncBuilder) InFlight() int { return int(b.inFlight.Load()) }

func (b *AsyncBuilder) worker(id int, gen *voxelgen.Generator, m *mesher.Mesher) {
	defer b.wg.Done()

	for {
		select {
		case job := <-b.jobs:
			built := BuiltGeom{Job: job}
			meshJob(gen, m, job, func(res mesher.Result) error {
				res.Data = append([]byte(nil), res.Data...)
				built.Batches = append(built.Batches, res)
				return nil
			})

			select {
			case b.results <- built:
			case <-b.ctx.Done():
				return
			}

		case <-b.ctx.Done():
			return
		}
	}
}

// Close stops the workers and waits for them to exit. Uncollected results are dropped.
func (b *AsyncBuilder) Close() {
	b.cancel()
	b.wg.Wait()
}

// dispatch moves up to budget live jobs from the queue to the workers. A job that does not
// fit goes back on the queue. Jobs orphaned by merges are pruned first so they cannot pile
// up beneath live jobs while the workers are saturated.
func (t *Terrain) dispatch(budget int) {
	if n := t.tree.PruneQueue(); n > 0 {
		t.stats.Discarded += n
		t.m.jobsDiscarded.Add(float64(n))
	}

	q := t.tree.Queue()
	for n := 0; n < budget; {
		job, ok := q.Pop()
		if !ok {
			return
		}
		if !t.tree.IsPending(job.Node) {
			t.discard(job)
			continue
		}
		if !t.async.Submit(job) {
			q.Push(job)
			return
		}
		n++
	}
}

// Collect applies up to max finished async jobs. Slot allocation, upload and ApplyGeoms
// all happen here, on the owner's goroutine.
func (t *Terrain) Collect(max int) (int, error) {
	if t.async == nil {
		return 0, nil
	}
	defer profiling.Track("terrain.Collect")()

	n := 0
	results := t.async.Collect(max)
	for i, built := range results {
		if !t.tree.IsPending(built.Job.Node) {
			t.discard(built.Job)
			continue
		}
		t.slots = t.slots[:0]
		for _, res := range built.Batches {
			if err := t.bake(res, built.Job.Scale, built.Job.Translate); err != nil {
				t.releaseSlots()
				// Requeue this and every unapplied result so their nodes are built again.
				for _, rest := range results[i:] {
					t.tree.Queue().Push(rest.Job)
				}
				return n, err
			}
		}
		t.apply(built.Job, t.slots)
		n++
	}
	return n, nil
}
