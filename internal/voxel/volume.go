package voxel

import "github.com/pkg/errors"

// Air is the only non-solid material.
const Air uint8 = 0

// Rect is an axis-aligned 2D footprint in world voxel units, half-open on the max side.
// X runs along world x, Y along world z.
type Rect struct {
	X0, X1, Y0, Y1 int
}

func (r Rect) Width() int  { return r.X1 - r.X0 }
func (r Rect) Height() int { return r.Y1 - r.Y0 }

// Contains reports whether the world point (x, z) lies inside the closed rectangle.
func (r Rect) Contains(x, z float64) bool {
	return x >= float64(r.X0) && x <= float64(r.X1) && z >= float64(r.Y0) && z <= float64(r.Y1)
}

// Quadrant returns one quarter of r: bit 0 selects the upper x half, bit 1 the upper y half.
func (r Rect) Quadrant(i int) Rect {
	mx := r.X0 + r.Width()/2
	my := r.Y0 + r.Height()/2
	q := r
	if i&1 == 0 {
		q.X1 = mx
	} else {
		q.X0 = mx
	}
	if i&2 == 0 {
		q.Y1 = my
	} else {
		q.Y0 = my
	}
	return q
}

// Volume is a view into a dense voxel array with a halo around an active sub-range.
// Axis 0 is x, axis 1 is y (up), axis 2 is z. The linear index is x + Dim[0]*(y + Dim[1]*z).
type Volume struct {
	Data   []uint8
	Dim    [3]int
	Offset [3]int
	Size   [3]int
}

// NewVolume allocates a volume whose active region of the given size is wrapped by a halo
// of the given width on every side.
func NewVolume(sx, sy, sz, halo int) *Volume {
	v := &Volume{
		Dim:    [3]int{sx + 2*halo, sy + 2*halo, sz + 2*halo},
		Offset: [3]int{halo, halo, halo},
		Size:   [3]int{sx, sy, sz},
	}
	v.Data = make([]uint8, v.Dim[0]*v.Dim[1]*v.Dim[2])
	return v
}

// Index returns the linear index of active-relative coordinates; halo cells are
// addressed with negative coordinates or coordinates at or beyond Size.
func (v *Volume) Index(x, y, z int) int {
	return (x + v.Offset[0]) + v.Dim[0]*((y+v.Offset[1])+v.Dim[1]*(z+v.Offset[2]))
}

// InRange reports whether active-relative coordinates fall inside the stored array.
func (v *Volume) InRange(x, y, z int) bool {
	ax, ay, az := x+v.Offset[0], y+v.Offset[1], z+v.Offset[2]
	return ax >= 0 && ax < v.Dim[0] && ay >= 0 && ay < v.Dim[1] && az >= 0 && az < v.Dim[2]
}

// At returns the material at active-relative coordinates, Air outside the stored array.
func (v *Volume) At(x, y, z int) uint8 {
	if !v.InRange(x, y, z) {
		return Air
	}
	return v.Data[v.Index(x, y, z)]
}

// Solid reports whether the voxel is non-air.
func (v *Volume) Solid(x, y, z int) bool {
	return v.At(x, y, z) != Air
}

// Set writes a material at active-relative coordinates. Writes outside the array are dropped.
func (v *Volume) Set(x, y, z int, m uint8) {
	if !v.InRange(x, y, z) {
		return
	}
	v.Data[v.Index(x, y, z)] = m
}

// Fill overwrites every cell, halo included.
func (v *Volume) Fill(m uint8) {
	for i := range v.Data {
		v.Data[i] = m
	}
}

// Validate checks that the active range plus a one-voxel halo fits inside the array.
func (v *Volume) Validate() error {
	if len(v.Data) != v.Dim[0]*v.Dim[1]*v.Dim[2] {
		return errors.Errorf("volume data length %d does not match dims %v", len(v.Data), v.Dim)
	}
	for a := 0; a < 3; a++ {
		if v.Size[a] <= 0 {
			return errors.Errorf("volume axis %d has empty active size %d", a, v.Size[a])
		}
		if v.Offset[a] < 1 || v.Offset[a]+v.Size[a]+1 > v.Dim[a] {
			return errors.Errorf("volume axis %d: active [%d,%d) lacks a halo within dim %d",
				a, v.Offset[a], v.Offset[a]+v.Size[a], v.Dim[a])
		}
	}
	return nil
}
