package scene

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/HugoPeters1024/vk-rays/types"
)

// CameraDirection enumerates the movement axes understood by Move.
type CameraDirection uint8

const (
	Forward CameraDirection = iota
	Backward
	Left
	Right
	Up
	Down
)

// pitch is clamped just shy of straight up/down so the view matrix
// never degenerates.
const maxPitch = math32.Pi/2 - 0.01

// Camera is a pitch/yaw free-look camera. The tracer consumes it only
// through InvViewMat and InvProjMat; it detects camera motion by
// comparing those matrices bit for bit, so any field change that does
// not alter the matrices (exposure, aperture) keeps accumulation going.
type Camera struct {
	Position types.Vec3
	Pitch    float32
	Yaw      float32

	// FOV is the vertical field of view in degrees.
	FOV  float32
	Near float32
	Far  float32

	// Aperture is the thin-lens radius. Zero yields a pinhole camera.
	Aperture float32

	// Exposure scales the tonemapped output. It never resets
	// accumulation.
	Exposure float32
}

// NewCamera returns a camera at the origin looking down -Z with a 60
// degree field of view.
func NewCamera() *Camera {
	return &Camera{
		FOV:      60,
		Near:     0.01,
		Far:      1000,
		Exposure: 1,
	}
}

// rotation builds the orientation quaternion from pitch and yaw.
func (c *Camera) rotation() types.Quat {
	qp := mgl32.QuatRotate(c.Pitch, types.XYZ(1, 0, 0))
	qy := mgl32.QuatRotate(c.Yaw, types.XYZ(0, 1, 0))
	return qy.Mul(qp)
}

// LookDir returns the normalized world-space view direction.
func (c *Camera) LookDir() types.Vec3 {
	return c.rotation().Rotate(types.XYZ(0, 0, -1))
}

// InvViewMat returns the camera-to-world matrix. Ray generation maps
// camera-space ray origins and directions through it.
func (c *Camera) InvViewMat() types.Mat4 {
	trans := mgl32.Translate3D(c.Position.X(), c.Position.Y(), c.Position.Z())
	return trans.Mul4(c.rotation().Mat4())
}

// InvProjMat returns the inverse projection matrix for the given
// viewport aspect ratio. Ray generation maps NDC points through it to
// recover camera-space directions.
func (c *Camera) InvProjMat(aspect float32) types.Mat4 {
	proj := mgl32.Perspective(mgl32.DegToRad(c.FOV), aspect, c.Near, c.Far)
	return proj.Inv()
}

// Move translates the camera along one of its local axes.
func (c *Camera) Move(dir CameraDirection, amount float32) {
	look := c.LookDir()
	right := c.rotation().Rotate(types.XYZ(1, 0, 0))

	switch dir {
	case Forward:
		c.Position = c.Position.Add(look.Mul(amount))
	case Backward:
		c.Position = c.Position.Sub(look.Mul(amount))
	case Left:
		c.Position = c.Position.Sub(right.Mul(amount))
	case Right:
		c.Position = c.Position.Add(right.Mul(amount))
	case Up:
		c.Position = c.Position.Add(types.XYZ(0, amount, 0))
	case Down:
		c.Position = c.Position.Sub(types.XYZ(0, amount, 0))
	}
}

// Rotate adjusts yaw and pitch by the given deltas in radians, clamping
// pitch away from the poles.
func (c *Camera) Rotate(dYaw, dPitch float32) {
	c.Yaw += dYaw
	c.Pitch += dPitch
	if c.Pitch > maxPitch {
		c.Pitch = maxPitch
	} else if c.Pitch < -maxPitch {
		c.Pitch = -maxPitch
	}
}

// LookAt orients the camera so it faces target from its current
// position.
func (c *Camera) LookAt(target types.Vec3) {
	dir := target.Sub(c.Position)
	if dir.Len() == 0 {
		return
	}
	dir = dir.Normalize()
	c.Pitch = math32.Asin(dir.Y())
	c.Yaw = math32.Atan2(-dir.X(), -dir.Z())
}
