package window

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/midgard-gltf/pkg/math"
)

// OrbitCamera orbits a Z-up scene around a center point.
type OrbitCamera struct {
	Center math.Vec3

	Distance float32
	Pitch    float32 // radians above the XY plane
	Yaw      float32 // radians around Z

	MinDistance float32
	MaxDistance float32
	MinPitch    float32
	MaxPitch    float32

	DragSensitivity float32
	ZoomSensitivity float32

	// FovY is the vertical field of view in radians.
	FovY float32
}

// NewOrbitCamera returns a camera ten units from the origin.
func NewOrbitCamera() *OrbitCamera {
	return &OrbitCamera{
		Distance:        10,
		Pitch:           0.4,
		MinDistance:     0.01,
		MaxDistance:     1e6,
		MinPitch:        -1.5,
		MaxPitch:        1.5,
		DragSensitivity: 0.005,
		ZoomSensitivity: 0.1,
		FovY:            math32.Pi / 3,
	}
}

// Position returns the eye position.
func (c *OrbitCamera) Position() math.Vec3 {
	cp := math32.Cos(c.Pitch)
	return math.Vec3{
		X: c.Center.X + c.Distance*cp*math32.Cos(c.Yaw),
		Y: c.Center.Y + c.Distance*cp*math32.Sin(c.Yaw),
		Z: c.Center.Z + c.Distance*math32.Sin(c.Pitch),
	}
}

// ViewMatrix returns the view matrix.
func (c *OrbitCamera) ViewMatrix() math.Mat4 {
	return math.LookAt(c.Position(), c.Center, math.Vec3{Z: 1})
}

// Projection returns a perspective projection for the aspect ratio with
// near and far planes around the orbit distance.
func (c *OrbitCamera) Projection(aspect float32) math.Mat4 {
	near := max(c.Distance*0.01, 1e-3)
	return math.Perspective(c.FovY, aspect, near, c.Distance*100)
}

// HandleDrag rotates by a mouse drag delta.
func (c *OrbitCamera) HandleDrag(dx, dy float32) {
	c.Yaw -= dx * c.DragSensitivity
	c.Pitch = clamp(c.Pitch+dy*c.DragSensitivity, c.MinPitch, c.MaxPitch)
}

// HandleZoom moves closer for positive wheel deltas.
func (c *OrbitCamera) HandleZoom(delta float32) {
	c.Distance = clamp(c.Distance-delta*c.Distance*c.ZoomSensitivity, c.MinDistance, c.MaxDistance)
}

// FitSphere centers on s at a distance where it fills the view.
func (c *OrbitCamera) FitSphere(s math.Sphere) {
	c.Center = s.Center
	r := max(s.Radius, 1e-3)
	c.Distance = clamp(r/math32.Sin(c.FovY/2)*1.1, c.MinDistance, c.MaxDistance)
}

func clamp(v, lo, hi float32) float32 {
	return min(max(v, lo), hi)
}
