package drawcmd

import (
	"github.com/Faultbox/midgard-gltf/internal/gfx"
	"github.com/Faultbox/midgard-gltf/pkg/math"
)

// Mat2 is a column-major 2x2 matrix uniform.
type Mat2 [4]float32

// Mat3 is a column-major 3x3 matrix uniform.
type Mat3 [9]float32

// UniformState holds the per-draw transforms uniforms are computed from.
type UniformState struct {
	Model      math.Mat4
	View       math.Mat4
	Projection math.Mat4
	// Viewport is x, y, width, height in pixels.
	Viewport   [4]float32
	PixelRatio float32
}

// NewUniformState returns identity transforms.
func NewUniformState() *UniformState {
	return &UniformState{
		Model:      math.Identity(),
		View:       math.Identity(),
		Projection: math.Identity(),
		PixelRatio: 1,
	}
}

func (s *UniformState) ModelView() math.Mat4 { return s.View.Mul(s.Model) }

func (s *UniformState) ModelViewProjection() math.Mat4 {
	return s.Projection.Mul(s.View).Mul(s.Model)
}

// Normal is the inverse transpose of the upper 3x3 of the model-view matrix.
func (s *UniformState) Normal() Mat3 {
	return Mat3(s.ModelView().InverseTranspose3())
}

// UniformFunc computes a uniform value at submit time. Values are float32,
// [2]float32, [4]float32, math.Vec3, Mat2, Mat3, math.Mat4, []math.Mat4,
// []math.Vec3, []math.Vec4, []float32 or gfx.Texture.
type UniformFunc func(*UniformState) any

// UniformMap binds uniform names to value functions.
type UniformMap map[string]UniformFunc

// Combine merges maps; later maps win on name clashes.
func Combine(maps ...UniformMap) UniformMap {
	n := 0
	for _, m := range maps {
		n += len(m)
	}
	out := make(UniformMap, n)
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

// Constant returns a UniformFunc yielding v.
func Constant(v any) UniformFunc {
	return func(*UniformState) any { return v }
}

// TextureUniform resolves the texture lazily so streamed textures replace the
// placeholder as soon as they are created.
func TextureUniform(get func() gfx.Texture) UniformFunc {
	return func(*UniformState) any { return get() }
}

// Semantic returns the UniformFunc for a technique uniform semantic.
// Node-relative semantics are handled by the caller.
func Semantic(semantic string) (UniformFunc, bool) {
	fn, ok := semantics[semantic]
	return fn, ok
}

var semantics = map[string]UniformFunc{
	"MODEL":      func(s *UniformState) any { return s.Model },
	"VIEW":       func(s *UniformState) any { return s.View },
	"PROJECTION": func(s *UniformState) any { return s.Projection },
	"MODELVIEW":  func(s *UniformState) any { return s.ModelView() },
	"CESIUM_RTC_MODELVIEW": func(s *UniformState) any {
		return s.ModelView()
	},
	"MODELVIEWPROJECTION": func(s *UniformState) any { return s.ModelViewProjection() },
	"MODELINVERSE":        func(s *UniformState) any { return s.Model.Inverse() },
	"VIEWINVERSE":         func(s *UniformState) any { return s.View.Inverse() },
	"PROJECTIONINVERSE":   func(s *UniformState) any { return s.Projection.Inverse() },
	"MODELVIEWINVERSE":    func(s *UniformState) any { return s.ModelView().Inverse() },
	"MODELVIEWPROJECTIONINVERSE": func(s *UniformState) any {
		return s.ModelViewProjection().Inverse()
	},
	"MODELINVERSETRANSPOSE": func(s *UniformState) any {
		return Mat3(s.Model.InverseTranspose3())
	},
	"MODELVIEWINVERSETRANSPOSE": func(s *UniformState) any { return s.Normal() },
	"VIEWPORT":                  func(s *UniformState) any { return s.Viewport },
}

// Automatic returns the value of a czm_ built-in uniform.
func Automatic(name string) (UniformFunc, bool) {
	fn, ok := automatic[name]
	return fn, ok
}

var automatic = map[string]UniformFunc{
	"czm_model":               semantics["MODEL"],
	"czm_view":                semantics["VIEW"],
	"czm_projection":          semantics["PROJECTION"],
	"czm_inverseProjection":   semantics["PROJECTIONINVERSE"],
	"czm_modelView":           semantics["MODELVIEW"],
	"czm_modelViewProjection": semantics["MODELVIEWPROJECTION"],
	"czm_normal3D":            semantics["MODELVIEWINVERSETRANSPOSE"],
	"czm_viewport":            semantics["VIEWPORT"],
	"czm_pixelRatio":          func(s *UniformState) any { return s.PixelRatio },
}
