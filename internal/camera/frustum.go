package camera

import (
	"github.com/go-gl/mathgl/mgl32"
)

// frustumPlanes returns the left, right, bottom, top, near and far planes of the clip
// matrix as (n, d) with n a unit normal pointing inside: a point p is inside when n·p+d ≥ 0.
func frustumPlanes(clip mgl32.Mat4) [6]mgl32.Vec4 {
	x, y, z, w := clip.Row(0), clip.Row(1), clip.Row(2), clip.Row(3)
	planes := [6]mgl32.Vec4{w.Add(x), w.Sub(x), w.Add(y), w.Sub(y), w.Add(z), w.Sub(z)}
	for i, p := range planes {
		if l := p.Vec3().Len(); l > 0 {
			planes[i] = p.Mul(1 / l)
		}
	}
	return planes
}

// BoxVisible reports whether the axis-aligned box may intersect the view frustum.
// Each plane is tested against the box corner furthest along its normal, so boxes just
// outside a frustum corner can pass.
func (c *Camera) BoxVisible(x0, x1, y0, y1, z0, z1 float32) bool {
	lo := mgl32.Vec3{min(x0, x1), min(y0, y1), min(z0, z1)}
	hi := mgl32.Vec3{max(x0, x1), max(y0, y1), max(z0, z1)}
	for _, p := range c.planes {
		n := p.Vec3()
		corner := hi
		for k := range 3 {
			if n[k] < 0 {
				corner[k] = lo[k]
			}
		}
		if n.Dot(corner)+p.W() < 0 {
			return false
		}
	}
	return true
}

// PointVisible reports whether p lies inside the view frustum.
func (c *Camera) PointVisible(p mgl32.Vec3) bool {
	for _, pl := range c.planes {
		if pl.Vec3().Dot(p)+pl.W() < 0 {
			return false
		}
	}
	return true
}
