package model

import (
	"github.com/Faultbox/midgard-gltf/internal/shadergen"
	"github.com/Faultbox/midgard-gltf/pkg/math"
)

// Plane is a clipping plane in Hessian normal form: points p with
// dot(Normal, p) + Distance < 0 are clipped.
type Plane struct {
	Normal   math.Vec3
	Distance float32
}

// ClippingPlanes is a set of planes clipping a model. Changing the number of
// planes, Enabled or UnionClippingRegions regenerates the model's programs;
// plane values, edge style and ModelMatrix are plain uniforms.
type ClippingPlanes struct {
	Planes  []Plane
	Enabled bool
	// UnionClippingRegions clips fragments outside any plane instead of
	// outside all of them.
	UnionClippingRegions bool

	EdgeColor [4]float32
	EdgeWidth float32
	// ModelMatrix places the planes relative to the clipping origin.
	ModelMatrix math.Mat4
}

// NewClippingPlanes returns an enabled collection with a white edge of width 0.
func NewClippingPlanes(planes ...Plane) *ClippingPlanes {
	return &ClippingPlanes{
		Planes:      planes,
		Enabled:     true,
		EdgeColor:   [4]float32{1, 1, 1, 1},
		ModelMatrix: math.Identity(),
	}
}

// Active reports whether the planes clip anything. Nil is inactive.
func (c *ClippingPlanes) Active() bool {
	return c != nil && c.Enabled && len(c.Planes) > 0
}

// State is the part of the collection that shapes generated shader code.
func (c *ClippingPlanes) State() shadergen.ClippingState {
	if c == nil {
		return shadergen.ClippingState{}
	}
	return shadergen.ClippingState{
		Enabled: c.Enabled,
		Count:   len(c.Planes),
		Union:   c.UnionClippingRegions,
	}
}

// hash is zero while inactive so toggling off restores the cached programs.
func (c *ClippingPlanes) hash() uint64 {
	if !c.Active() {
		return 0
	}
	return c.State().Hash()
}

func (c *ClippingPlanes) uniform() []math.Vec4 {
	out := make([]math.Vec4, len(c.Planes))
	for i, p := range c.Planes {
		out[i] = math.Vec4{p.Normal.X, p.Normal.Y, p.Normal.Z, p.Distance}
	}
	return out
}

func (c *ClippingPlanes) edgeStyle() [4]float32 {
	return [4]float32{c.EdgeColor[0], c.EdgeColor[1], c.EdgeColor[2], c.EdgeWidth}
}
