// Package terrain owns the LOD terrain core: the visibility tree, the geometry pool and the
// job pipeline that turns footprints into meshes, driven once per frame by Update.
package terrain

import (
	"fmt"
	"log"

	"voxlod/internal/config"
	"voxlod/internal/geompool"
	"voxlod/internal/mesher"
	"voxlod/internal/profiling"
	"voxlod/internal/render"
	"voxlod/internal/vistree"
	"voxlod/internal/voxelgen"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Stats combines tree occupancy with cumulative job counters.
type Stats struct {
	vistree.Stats
	LiveGeoms int
	InFlight  int
	Built     int
	Discarded int
	Empty     int
	Batches   int
}

// Terrain is the single writer of the tree, the pool and the queue.
type Terrain struct {
	cfg    config.Terrain
	pool   *geompool.Pool
	tree   *vistree.Tree
	gen    *voxelgen.Generator
	mesher *mesher.Mesher
	async  *AsyncBuilder

	slots []int32
	stats Stats
	m     *metrics
}

// New validates cfg and builds every component. Metrics are registered on reg, or on a
// private registry when reg is nil. With cfg.Workers > 0 jobs are built off the caller's
// goroutine; Close must then be called to stop the workers.
func New(cfg config.Terrain, r render.Renderer, reg prometheus.Registerer) (*Terrain, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "terrain: invalid config")
	}
	pool, err := geompool.New(r, cfg.MaxGeoms, cfg.MaxVertices)
	if err != nil {
		return nil, errors.Wrap(err, "terrain: creating geometry pool")
	}
	t := &Terrain{
		cfg:    cfg,
		pool:   pool,
		tree:   vistree.New(cfg, pool, nil),
		gen:    voxelgen.New(cfg),
		mesher: mesher.New(cfg.MaxVertices),
		slots:  make([]int32, 0, vistree.MaxGeomsPerNode),
		m:      newMetrics(reg),
	}
	if cfg.Workers > 0 {
		t.async = NewAsyncBuilder(cfg, cfg.Workers, cfg.MaxJobsPerFrame*cfg.Workers)
	}
	return t, nil
}

// Tree exposes the visibility tree for inspection.
func (t *Terrain) Tree() *vistree.Tree { return t.tree }

// Pool exposes the geometry pool for inspection.
func (t *Terrain) Pool() *geompool.Pool { return t.pool }

// Config returns the configuration the terrain was built with.
func (t *Terrain) Config() config.Terrain { return t.cfg }

// Update runs one frame: traverse for the viewer, then build at most MaxJobsPerFrame jobs.
func (t *Terrain) Update(v vistree.Viewer) error {
	t.tree.Traverse(v)

	var err error
	if t.async != nil {
		t.dispatch(t.cfg.MaxJobsPerFrame)
		_, err = t.Collect(t.cfg.MaxJobsPerFrame)
	} else {
		_, err = t.Drain(t.cfg.MaxJobsPerFrame)
	}
	t.observe()
	return err
}

// Drain builds up to budget queued jobs on the calling goroutine and returns how many were
// built. Jobs whose node was freed or already served are dropped without work and do not
// count against the budget. A failed upload puts the job back and stops the drain.
func (t *Terrain) Drain(budget int) (int, error) {
	defer profiling.Track("terrain.Drain")()

	q := t.tree.Queue()
	n := 0
	for n < budget {
		job, ok := q.Pop()
		if !ok {
			break
		}
		if !t.tree.IsPending(job.Node) {
			t.discard(job)
			continue
		}
		slots, err := t.BuildJob(job)
		if err != nil {
			q.Push(job)
			return n, err
		}
		t.apply(job, slots)
		n++
	}
	return n, nil
}

// BuildJob generates and meshes one job, baking each non-empty batch into a freshly
// allocated slot. The returned slice is reused by the next call.
func (t *Terrain) BuildJob(job vistree.GeomGenJob) ([]int32, error) {
	t.slots = t.slots[:0]
	err := meshJob(t.gen, t.mesher, job, func(res mesher.Result) error {
		return t.bake(res, job.Scale, job.Translate)
	})
	if err != nil {
		t.releaseSlots()
		return nil, err
	}
	return t.slots, nil
}

func (t *Terrain) bake(res mesher.Result, scale float32, translate mgl32.Vec3) error {
	s := t.pool.Alloc()
	t.slots = append(t.slots, int32(s))
	if err := t.pool.Bake(s, res, scale, translate); err != nil {
		return errors.Wrapf(err, "terrain: baking batch %d", len(t.slots))
	}
	return nil
}

func (t *Terrain) releaseSlots() {
	for _, s := range t.slots {
		t.pool.Free(int(s))
	}
	t.slots = t.slots[:0]
}

func (t *Terrain) apply(job vistree.GeomGenJob, slots []int32) {
	if !t.tree.ApplyGeoms(job.Node, slots) {
		t.discard(job)
		return
	}
	t.stats.Built++
	t.stats.Batches += len(slots)
	t.m.jobsBuilt.Inc()
	t.m.batches.Add(float64(len(slots)))
	if len(slots) == 0 {
		t.stats.Empty++
		t.m.jobsEmpty.Inc()
	}
}

func (t *Terrain) discard(job vistree.GeomGenJob) {
	t.stats.Discarded++
	t.m.jobsDiscarded.Inc()
	if t.cfg.Verbose {
		log.Printf("terrain: dropped stale job for node %d gen %d level %d", job.Node.Index, job.Node.Gen, job.Level)
	}
}

// meshJob generates the job's volume and hands every non-empty batch to emit.
func meshJob(gen *voxelgen.Generator, m *mesher.Mesher, job vistree.GeomGenJob, emit func(mesher.Result) error) error {
	vol := gen.GenSimplex(job.Bounds)
	m.Start()
	m.StartVolume(vol)
	batches := 0
	for {
		res := m.Meshify()
		if res.Quads > 0 {
			batches++
			if batches > vistree.MaxGeomsPerNode {
				panic(fmt.Sprintf("terrain: node at level %d %v needs more than %d batches of %d quads",
					job.Level, job.Bounds, vistree.MaxGeomsPerNode, m.MaxQuads()))
			}
			if err := emit(res); err != nil {
				return err
			}
		}
		if res.Status == mesher.VolumeDone {
			return nil
		}
	}
}

// Draw issues the draws for every node selected by the last Update.
func (t *Terrain) Draw(viewProj mgl32.Mat4) {
	for _, d := range t.tree.DrawNodes() {
		n := t.tree.Node(d.Node)
		for _, s := range n.GeomSlots() {
			t.pool.Draw(int(s), viewProj)
		}
	}
}

// Stats reports the current occupancy and job counters.
func (t *Terrain) Stats() Stats {
	s := t.stats
	s.Stats = t.tree.Stats()
	s.LiveGeoms = t.pool.Live()
	if t.async != nil {
		s.InFlight = t.async.InFlight()
	}
	return s
}

func (t *Terrain) observe() {
	st := t.tree.Stats()
	t.m.drawNodes.Set(float64(st.DrawNodes))
	t.m.liveNodes.Set(float64(st.LiveNodes))
	t.m.liveGeoms.Set(float64(t.pool.Live()))
	t.m.queuedJobs.Set(float64(st.Queued))
}

// Close stops the async workers, if any.
func (t *Terrain) Close() {
	if t.async != nil {
		t.async.Close()
	}
}
