package voxel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVolumeHaloAddressing(t *testing.T) {
	v := NewVolume(4, 3, 2, 1)
	require.Equal(t, [3]int{6, 5, 4}, v.Dim)
	require.NoError(t, v.Validate())

	v.Set(-1, -1, -1, 7)
	require.Equal(t, uint8(7), v.Data[0])
	require.Equal(t, uint8(7), v.At(-1, -1, -1))

	v.Set(4, 3, 2, 9)
	require.Equal(t, uint8(9), v.Data[len(v.Data)-1])

	require.Equal(t, Air, v.At(-2, 0, 0))
	v.Set(100, 0, 0, 1) // dropped
}

func TestVolumeValidate(t *testing.T) {
	v := NewVolume(4, 4, 4, 0)
	require.Error(t, v.Validate())

	v = NewVolume(4, 4, 4, 1)
	v.Data = v.Data[:10]
	require.Error(t, v.Validate())
}

func TestRectQuadrants(t *testing.T) {
	r := Rect{X0: 0, X1: 64, Y0: 32, Y1: 96}
	require.Equal(t, Rect{0, 32, 32, 64}, r.Quadrant(0))
	require.Equal(t, Rect{32, 64, 32, 64}, r.Quadrant(1))
	require.Equal(t, Rect{0, 32, 64, 96}, r.Quadrant(2))
	require.Equal(t, Rect{32, 64, 64, 96}, r.Quadrant(3))
	require.True(t, r.Contains(64, 96))
	require.False(t, r.Contains(65, 40))
}
