package model

import (
	"fmt"

	"github.com/Faultbox/midgard-gltf/internal/gfx"
	"github.com/Faultbox/midgard-gltf/pkg/math"
)

// lighting is the image based lighting state of a model. Values set on the
// model win over the frame's scene-wide defaults.
type lighting struct {
	iblFactor         [2]float32
	lightColor        *math.Vec3
	luminanceAtZenith *float32
	sh                []math.Vec3
	specularMap       gfx.Texture

	defaultSH    []math.Vec3
	defaultSM    gfx.Texture
	useDefaultSH bool
	useDefaultSM bool
}

func newLighting(opts Options) lighting {
	return lighting{
		iblFactor:         opts.ImageBasedLightingFactor,
		lightColor:        opts.LightColor,
		luminanceAtZenith: opts.LuminanceAtZenith,
		sh:                opts.SphericalHarmonicCoefficients,
		specularMap:       opts.SpecularEnvironmentMap,
	}
}

// updateDefaults picks up the frame's defaults. Starting or stopping to use
// one changes the generated shaders, so invalidate is called.
func (l *lighting) updateDefaults(fs *FrameState, invalidate func()) {
	useSH := l.sh == nil && fs.SphericalHarmonicCoefficients != nil
	useSM := l.specularMap == nil && fs.SpecularEnvironmentMaps != nil
	changed := useSH != l.useDefaultSH || useSM != l.useDefaultSM
	l.useDefaultSH, l.useDefaultSM = useSH, useSM
	l.defaultSH, l.defaultSM = fs.SphericalHarmonicCoefficients, fs.SpecularEnvironmentMaps
	if changed {
		invalidate()
	}
}

func (l *lighting) usesIBL() bool {
	return l.iblFactor[0] > 0 || l.iblFactor[1] > 0
}

func (l *lighting) sphericalHarmonics() []math.Vec3 {
	if l.sh != nil {
		return l.sh
	}
	if l.useDefaultSH {
		return l.defaultSH
	}
	return nil
}

func (l *lighting) specular() gfx.Texture {
	if l.specularMap != nil {
		return l.specularMap
	}
	if l.useDefaultSM {
		return l.defaultSM
	}
	return nil
}

// invalidatePrograms schedules a regeneration onto private programs. Before
// any program exists there is nothing to regenerate: the first compile reads
// the current lighting.
func (m *Model) invalidatePrograms() {
	if m.programs == nil || len(m.programs.Programs) == 0 {
		return
	}
	m.regeneratePending = true
	m.forkPrograms = true
}

// ImageBasedLightingFactor returns the diffuse and specular IBL scale.
func (m *Model) ImageBasedLightingFactor() [2]float32 { return m.lighting.iblFactor }

// SetImageBasedLightingFactor sets the diffuse and specular IBL scale, each in
// [0, 1]. Turning image based lighting on or off regenerates the shaders.
func (m *Model) SetImageBasedLightingFactor(f [2]float32) error {
	for _, v := range f {
		if v < 0 || v > 1 {
			return fmt.Errorf("model: image based lighting factor %v out of [0, 1]", f)
		}
	}
	was := m.lighting.usesIBL()
	m.lighting.iblFactor = f
	if was != m.lighting.usesIBL() {
		m.invalidatePrograms()
	}
	return nil
}

// LightColor returns the custom light color, nil for the scene light.
func (m *Model) LightColor() *math.Vec3 { return m.lighting.lightColor }

// SetLightColor overrides the light color; nil restores the scene light.
func (m *Model) SetLightColor(c *math.Vec3) {
	defined := m.lighting.lightColor != nil
	m.lighting.lightColor = c
	if defined != (c != nil) {
		m.invalidatePrograms()
	}
}

// LuminanceAtZenith returns the sun luminance override, nil when unset.
func (m *Model) LuminanceAtZenith() *float32 { return m.lighting.luminanceAtZenith }

// SetLuminanceAtZenith sets the sun luminance used for procedural IBL.
func (m *Model) SetLuminanceAtZenith(v *float32) {
	defined := m.lighting.luminanceAtZenith != nil
	m.lighting.luminanceAtZenith = v
	if defined != (v != nil) {
		m.invalidatePrograms()
	}
}

// SphericalHarmonicCoefficients returns the model's own coefficients.
func (m *Model) SphericalHarmonicCoefficients() []math.Vec3 { return m.lighting.sh }

// SetSphericalHarmonicCoefficients sets the nine L2 coefficients; nil falls
// back to the frame's defaults.
func (m *Model) SetSphericalHarmonicCoefficients(c []math.Vec3) error {
	if c != nil && len(c) != 9 {
		return fmt.Errorf("model: want 9 spherical harmonic coefficients, got %d", len(c))
	}
	defined := m.lighting.sh != nil
	m.lighting.sh = c
	if defined != (c != nil) {
		m.invalidatePrograms()
	}
	return nil
}

// SetSpecularEnvironmentMap sets the octahedral specular map; nil falls
// back to the frame's default.
func (m *Model) SetSpecularEnvironmentMap(t gfx.Texture) {
	defined := m.lighting.specularMap != nil
	m.lighting.specularMap = t
	if defined != (t != nil) {
		m.invalidatePrograms()
	}
}
