package model

import (
	"github.com/Faultbox/midgard-gltf/internal/config"
	"github.com/Faultbox/midgard-gltf/internal/drawcmd"
	"github.com/Faultbox/midgard-gltf/internal/gfx"
	"github.com/Faultbox/midgard-gltf/internal/shadergen"
	"github.com/Faultbox/midgard-gltf/pkg/math"
)

// ShadowMode says whether a model casts and receives shadows.
type ShadowMode int

const (
	ShadowsEnabled ShadowMode = iota
	ShadowsDisabled
	ShadowsCastOnly
	ShadowsReceiveOnly
)

func (m ShadowMode) casts() bool    { return m == ShadowsEnabled || m == ShadowsCastOnly }
func (m ShadowMode) receives() bool { return m == ShadowsEnabled || m == ShadowsReceiveOnly }

// Appearance is the per-frame placement and look of a model. The fields may
// be changed between updates; the next Update picks them up.
type Appearance struct {
	Show        bool
	ModelMatrix math.Mat4
	Scale       float32
	// MinimumPixelSize keeps the model at least this many pixels across.
	MinimumPixelSize float32
	// MaximumScale caps the scale from MinimumPixelSize; zero is no cap.
	MaximumScale float32

	// Color is the highlight color (RGBA) blended by ColorBlendMode.
	Color            [4]float32
	ColorBlendMode   shadergen.ColorBlendMode
	ColorBlendAmount float32

	SilhouetteColor [4]float32
	SilhouetteSize  float32

	BackFaceCulling bool
	Shadows         ShadowMode

	DebugWireframe          bool
	DebugShowBoundingVolume bool

	ClippingPlanes *ClippingPlanes

	// ID is reported by picks of this model. It must be comparable.
	ID any
}

// Options configures a model at construction.
type Options struct {
	Appearance

	// Asynchronous spreads GPU object creation over frames through the
	// frame's scheduler.
	Asynchronous bool
	// IncrementallyLoadTextures lets the model render before its textures
	// are uploaded.
	IncrementallyLoadTextures bool
	// CacheKey shares GPU resources between models with the same key.
	CacheKey     string
	AllowPicking bool
	// ReleaseSourceAfterLoad drops the CPU copy of buffer data once loaded.
	ReleaseSourceAfterLoad bool
	Cull                   bool

	UpAxis      math.Axis
	ForwardAxis math.Axis

	ImageBasedLightingFactor      [2]float32
	LightColor                    *math.Vec3
	LuminanceAtZenith             *float32
	SphericalHarmonicCoefficients []math.Vec3
	SpecularEnvironmentMap        gfx.Texture
	// ClippingPlanesOriginMatrix positions clipping planes; nil uses ModelMatrix.
	ClippingPlanesOriginMatrix *math.Mat4

	// AssetKey selects the custom shader in CustomShaders.
	AssetKey      string
	CustomShaders *shadergen.Registry

	VertexShaderLoaded   shadergen.Hook
	FragmentShaderLoaded shadergen.Hook
	// UniformMapLoaded may replace each command's uniform map. When set, no
	// czm_pickColor uniform is added.
	UniformMapLoaded func(u drawcmd.UniformMap, programID, node int) drawcmd.UniformMap

	// OnComplete is called once: with nil when loaded, with the error when failed.
	OnComplete func(error)
}

// DefaultOptions returns the defaults: shown, identity placement, white
// highlight, asynchronous loading with streamed textures and picking on.
func DefaultOptions() Options {
	return Options{
		Appearance: Appearance{
			Show:             true,
			ModelMatrix:      math.Identity(),
			Scale:            1,
			Color:            [4]float32{1, 1, 1, 1},
			ColorBlendMode:   shadergen.BlendHighlight,
			ColorBlendAmount: 0.5,
			SilhouetteColor:  [4]float32{1, 0, 0, 1},
			BackFaceCulling:  true,
			Shadows:          ShadowsEnabled,
		},
		Asynchronous:              true,
		IncrementallyLoadTextures: true,
		AllowPicking:              true,
		Cull:                      true,
		UpAxis:                    math.AxisZ,
		ForwardAxis:               math.AxisX,
		ImageBasedLightingFactor:  [2]float32{1, 1},
	}
}

// OptionsFromConfig maps the loader and render sections onto the defaults.
// The cache key is left to the caller, which knows the asset path.
func OptionsFromConfig(cfg *config.Config) Options {
	o := DefaultOptions()
	o.Asynchronous = cfg.Loader.Asynchronous
	o.IncrementallyLoadTextures = cfg.Loader.IncrementalTextures
	o.AllowPicking = cfg.Loader.AllowPicking
	o.ReleaseSourceAfterLoad = cfg.Loader.ReleaseSource
	o.UpAxis = math.ParseAxis(cfg.Loader.UpAxis)

	r := cfg.Render
	if r.Scale > 0 {
		o.Scale = r.Scale
	}
	o.MinimumPixelSize = r.MinimumPixelSize
	o.MaximumScale = r.MaximumScale
	o.BackFaceCulling = r.BackFaceCulling
	o.Color = r.HighlightColor
	o.SilhouetteColor = r.SilhouetteColor
	o.SilhouetteSize = r.SilhouetteSize
	o.ImageBasedLightingFactor = r.IBLFactor
	return o
}
