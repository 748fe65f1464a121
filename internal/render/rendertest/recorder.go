// Package rendertest provides a Renderer that records calls for assertions.
package rendertest

import (
	"fmt"
	"sync"

	"voxlod/internal/render"
)

// DrawCall is one recorded Draw.
type DrawCall struct {
	Mesh   render.MeshHandle
	First  int
	Count  int
	Params render.DrawParams
}

// Recorder implements render.Renderer in memory.
type Recorder struct {
	mu sync.Mutex

	Capacity map[render.MeshHandle]int
	Data     map[render.MeshHandle][]byte
	Updates  map[render.MeshHandle]int
	Indices  []uint32
	Draws    []DrawCall

	// FailCreateAfter makes CreateMesh fail once this many meshes exist; 0 disables it.
	FailCreateAfter int
}

// New returns an empty recorder.
func New() *Recorder {
	return &Recorder{
		Capacity: make(map[render.MeshHandle]int),
		Data:     make(map[render.MeshHandle][]byte),
		Updates:  make(map[render.MeshHandle]int),
	}
}

func (r *Recorder) CreateMesh(maxVertices int, layout render.VertexLayout) (render.MeshHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailCreateAfter > 0 && len(r.Capacity) >= r.FailCreateAfter {
		return 0, fmt.Errorf("rendertest: mesh limit %d reached", r.FailCreateAfter)
	}
	h := render.MeshHandle(len(r.Capacity) + 1)
	r.Capacity[h] = maxVertices * layout.Stride
	return h, nil
}

func (r *Recorder) UpdateMesh(h render.MeshHandle, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.Capacity[h]
	if !ok {
		return fmt.Errorf("rendertest: unknown mesh %d", h)
	}
	if len(data) > c {
		return fmt.Errorf("rendertest: %d bytes exceed mesh capacity %d", len(data), c)
	}
	r.Data[h] = append(r.Data[h][:0], data...)
	r.Updates[h]++
	return nil
}

func (r *Recorder) SetIndexBuffer(indices []uint32) error {
	r.mu.Lock()
	r.Indices = append(r.Indices[:0], indices...)
	r.mu.Unlock()
	return nil
}

func (r *Recorder) Draw(h render.MeshHandle, first, count int, params render.DrawParams) {
	r.mu.Lock()
	r.Draws = append(r.Draws, DrawCall{Mesh: h, First: first, Count: count, Params: params})
	r.mu.Unlock()
}

// ResetDraws forgets recorded draws.
func (r *Recorder) ResetDraws() {
	r.mu.Lock()
	r.Draws = r.Draws[:0]
	r.mu.Unlock()
}
