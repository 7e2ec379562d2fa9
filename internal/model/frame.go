package model

import (
	"github.com/Faultbox/midgard-gltf/internal/drawcmd"
	"github.com/Faultbox/midgard-gltf/internal/gfx"
	"github.com/Faultbox/midgard-gltf/internal/jobs"
	"github.com/Faultbox/midgard-gltf/pkg/math"
)

// Camera is the part of the view a model needs for LOD scaling and
// clipping planes.
type Camera struct {
	View math.Mat4
	// FovY is the vertical field of view in radians.
	FovY float32
}

// Position returns the eye position in world space.
func (c Camera) Position() math.Vec3 {
	return c.View.InverseTransformation().Translation()
}

// FrameState is what the renderer hands every model once per frame.
type FrameState struct {
	Context gfx.Context
	// Scheduler budgets asynchronous GPU creation; nil runs everything.
	Scheduler   jobs.Executor
	FrameNumber uint64
	// Time is the scene time in seconds, used by animations.
	Time float64

	// Commands receives the emitted draw commands.
	Commands *[]*drawcmd.DrawCommand
	Passes   drawcmd.Passes
	Camera   Camera

	// Scene-wide lighting defaults used by models that set none.
	SphericalHarmonicCoefficients []math.Vec3
	SpecularEnvironmentMaps       gfx.Texture
}

func (fs *FrameState) executor(async bool) jobs.Executor {
	if !async || fs.Scheduler == nil {
		return jobs.Immediate{}
	}
	return fs.Scheduler
}
