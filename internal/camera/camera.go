package camera

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Pitch is clamped just short of straight up/down so the view basis never degenerates.
var maxPitch = mgl32.DegToRad(89)

// Camera holds the viewer transform and the matrices derived from it.
// World space is y-up; the terrain footprint lies on the x/z plane.
type Camera struct {
	position mgl32.Vec3
	yaw      float32 // radians around +Y, 0 looks down -Z
	pitch    float32 // radians around local +X

	aspect float32
	fov    float32 // degrees, vertical
	near   float32
	far    float32

	world    mgl32.Mat4
	view     mgl32.Mat4
	proj     mgl32.Mat4
	viewProj mgl32.Mat4
	planes   [6]mgl32.Vec4
}

// New creates a camera at the origin looking down -Z.
func New(width, height int, fovDeg, near, far float32) *Camera {
	c := &Camera{
		aspect: aspectOf(width, height),
		fov:    fovDeg,
		near:   near,
		far:    far,
	}
	c.updateProjection()
	c.updateTransform()
	return c
}

func aspectOf(width, height int) float32 {
	if height <= 0 {
		return 1
	}
	return float32(width) / float32(height)
}

// SetViewport updates the aspect ratio.
func (c *Camera) SetViewport(width, height int) {
	c.aspect = aspectOf(width, height)
	c.updateProjection()
}

// SetPerspective replaces the projection parameters.
func (c *Camera) SetPerspective(fovDeg, near, far float32) {
	c.fov, c.near, c.far = fovDeg, near, far
	c.updateProjection()
}

// SetPosition places the camera without changing its orientation.
func (c *Camera) SetPosition(p mgl32.Vec3) {
	c.position = p
	c.updateTransform()
}

// SetOrientation sets absolute yaw and pitch in radians.
func (c *Camera) SetOrientation(yaw, pitch float32) {
	c.yaw = yaw
	c.pitch = mgl32.Clamp(pitch, -maxPitch, maxPitch)
	c.updateTransform()
}

// MoveRotate applies a rotation delta (rot.X = pitch, rot.Y = yaw, radians) and then
// a translation expressed in the camera's local frame (x right, y up, -z forward).
func (c *Camera) MoveRotate(move, rot mgl32.Vec3) {
	c.yaw += rot.Y()
	c.pitch = mgl32.Clamp(c.pitch+rot.X(), -maxPitch, maxPitch)
	r := c.rotation()
	c.position = c.position.Add(r.Mul4x1(move.Vec4(0)).Vec3())
	c.updateTransform()
}

func (c *Camera) rotation() mgl32.Mat4 {
	return mgl32.HomogRotate3DY(c.yaw).Mul4(mgl32.HomogRotate3DX(c.pitch))
}

func (c *Camera) updateProjection() {
	c.proj = mgl32.Perspective(mgl32.DegToRad(c.fov), c.aspect, c.near, c.far)
	c.updateFrustum()
}

func (c *Camera) updateTransform() {
	r := c.rotation()
	c.world = mgl32.Translate3D(c.position.X(), c.position.Y(), c.position.Z()).Mul4(r)
	// Inverse of a rigid transform: transpose the rotation, negate the translation.
	c.view = r.Transpose().Mul4(mgl32.Translate3D(-c.position.X(), -c.position.Y(), -c.position.Z()))
	c.updateFrustum()
}

func (c *Camera) updateFrustum() {
	c.viewProj = c.proj.Mul4(c.view)
	c.planes = frustumPlanes(c.viewProj)
}

// Position returns the viewer's world position.
func (c *Camera) Position() mgl32.Vec3 { return c.position }

// Forward returns the unit view direction.
func (c *Camera) Forward() mgl32.Vec3 {
	return c.rotation().Mul4x1(mgl32.Vec4{0, 0, -1, 0}).Vec3()
}

func (c *Camera) Yaw() float32   { return c.yaw }
func (c *Camera) Pitch() float32 { return c.pitch }
func (c *Camera) FOV() float32   { return c.fov }

func (c *Camera) World() mgl32.Mat4    { return c.world }
func (c *Camera) View() mgl32.Mat4     { return c.view }
func (c *Camera) Proj() mgl32.Mat4     { return c.proj }
func (c *Camera) ViewProj() mgl32.Mat4 { return c.viewProj }
