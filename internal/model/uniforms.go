package model

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/midgard-gltf/internal/asset"
	"github.com/Faultbox/midgard-gltf/internal/drawcmd"
	"github.com/Faultbox/midgard-gltf/internal/gfx"
	"github.com/Faultbox/midgard-gltf/internal/shadergen"
	"github.com/Faultbox/midgard-gltf/pkg/math"
)

type uniformKey struct {
	material  int
	technique int
}

// materialUniforms is the uniform map shared by every primitive drawing a
// material with a technique.
type materialUniforms struct {
	uniforms drawcmd.UniformMap
	// jointMatrix names the JOINTMATRIX uniform; it is bound per command.
	jointMatrix string
}

func (m *Model) buildUniformMaps() {
	a := m.asset
	m.materialUniforms = make(map[uniformKey]*materialUniforms)
	for _, mesh := range a.Meshes {
		for _, p := range mesh.Primitives {
			key := uniformKey{material: p.Material, technique: p.Technique}
			if _, ok := m.materialUniforms[key]; ok || p.Technique < 0 {
				continue
			}
			m.materialUniforms[key] = m.createUniformMap(p.Material, p.Technique)
		}
	}
	m.modelUniformMap = m.modelUniforms()
}

// createUniformMap resolves each technique uniform from, in order: the
// runtime material value, a node-relative semantic, a semantic, the
// technique default.
func (m *Model) createUniformMap(material, technique int) *materialUniforms {
	tech := &m.asset.Techniques[technique]
	mat := m.materials[material]
	out := &materialUniforms{uniforms: make(drawcmd.UniformMap, len(tech.Uniforms))}

	for name, u := range tech.Uniforms {
		if _, ok := mat.Values[name]; ok {
			out.uniforms[name] = m.materialValue(mat, name, u)
			continue
		}
		if u.Semantic != "" {
			switch u.Semantic {
			case "JOINTMATRIX":
				out.jointMatrix = name
				continue
			case "ALPHACUTOFF":
				if mat.AlphaMode == asset.AlphaMask {
					out.uniforms[name] = func(*drawcmd.UniformState) any { return mat.AlphaCutoff }
				}
				continue
			}
			fn, ok := drawcmd.Semantic(u.Semantic)
			if !ok {
				continue
			}
			if u.Node != nil {
				fn = m.nodeSemantic(*u.Node, fn)
			}
			out.uniforms[name] = fn
			continue
		}
		switch {
		case u.Value.IsSet():
			v := m.convertValue(u.Type, u.Count, u.Value)
			if u.Value.Texture != nil {
				out.uniforms[name] = m.textureUniform(u.Value.Texture.Index)
			} else {
				out.uniforms[name] = drawcmd.Constant(v)
			}
		case u.Type == asset.GLSampler2D:
			out.uniforms[name] = drawcmd.TextureUniform(func() gfx.Texture { return m.gfx.DefaultTexture() })
		}
	}
	return out
}

// materialValue reads the runtime material at submit time so Material.SetValue
// takes effect without rebuilding commands.
func (m *Model) materialValue(mat *asset.Material, name string, u asset.Uniform) drawcmd.UniformFunc {
	return func(*drawcmd.UniformState) any {
		return m.convertValue(u.Type, u.Count, mat.Values[name])
	}
}

// nodeSemantic evaluates fn with the world matrix of another node.
func (m *Model) nodeSemantic(node int, fn drawcmd.UniformFunc) drawcmd.UniformFunc {
	return func(s *drawcmd.UniformState) any {
		cp := *s
		if m.graph != nil && node >= 0 && node < len(m.graph.Nodes) {
			cp.Model = m.graph.Nodes[node].Computed
		}
		return fn(&cp)
	}
}

func (m *Model) texture(index int) gfx.Texture {
	if m.bundle != nil {
		if t, ok := m.bundle.Textures[index]; ok {
			return t
		}
	}
	return m.gfx.DefaultTexture()
}

func (m *Model) textureUniform(index int) drawcmd.UniformFunc {
	return drawcmd.TextureUniform(func() gfx.Texture { return m.texture(index) })
}

// convertValue turns a stored value into the Go type of its GL uniform type.
func (m *Model) convertValue(glType, count int, v asset.Value) any {
	if v.Texture != nil || glType == asset.GLSampler2D {
		if v.Texture == nil {
			return m.gfx.DefaultTexture()
		}
		return m.texture(v.Texture.Index)
	}
	f := v.Floats
	if count > 1 {
		return append([]float32(nil), f...)
	}
	switch glType {
	case asset.GLFloatVec2:
		var out [2]float32
		copy(out[:], f)
		return out
	case asset.GLFloatVec3:
		var out [3]float32
		copy(out[:], f)
		return math.Vec3{X: out[0], Y: out[1], Z: out[2]}
	case asset.GLFloatVec4:
		var out [4]float32
		copy(out[:], f)
		return out
	case asset.GLFloatMat2:
		var out drawcmd.Mat2
		copy(out[:], f)
		return out
	case asset.GLFloatMat3:
		var out drawcmd.Mat3
		copy(out[:], f)
		return out
	case asset.GLFloatMat4:
		var out math.Mat4
		copy(out[:], f)
		return out
	default:
		if len(f) == 0 {
			return float32(0)
		}
		return f[0]
	}
}

// decodeValue converts a dequantization uniform to its Go type.
func decodeValue(d shadergen.DecodeUniform) any {
	switch d.Type {
	case "mat2":
		var out drawcmd.Mat2
		copy(out[:], d.Value)
		return out
	case "mat3":
		var out drawcmd.Mat3
		copy(out[:], d.Value)
		return out
	case "mat4":
		var out math.Mat4
		copy(out[:], d.Value)
		return out
	default:
		var out [4]float32
		copy(out[:], d.Value)
		return out
	}
}

// modelUniforms are bound on every command; programs that do not declare
// them ignore them.
func (m *Model) modelUniforms() drawcmd.UniformMap {
	return drawcmd.UniformMap{
		"gltf_color": func(*drawcmd.UniformState) any { return m.Color },
		"gltf_colorBlend": func(*drawcmd.UniformState) any {
			return shadergen.ColorBlend(m.ColorBlendMode, m.ColorBlendAmount)
		},
		"gltf_clippingPlanes": func(*drawcmd.UniformState) any {
			if !m.ClippingPlanes.Active() {
				return []math.Vec4(nil)
			}
			return m.ClippingPlanes.uniform()
		},
		"gltf_clippingPlanesEdgeStyle": func(*drawcmd.UniformState) any {
			if m.ClippingPlanes == nil {
				return [4]float32{}
			}
			return m.ClippingPlanes.edgeStyle()
		},
		"gltf_clippingPlanesMatrix": func(s *drawcmd.UniformState) any {
			origin := m.ModelMatrix
			if m.opts.ClippingPlanesOriginMatrix != nil {
				origin = *m.opts.ClippingPlanesOriginMatrix
			}
			planes := math.Identity()
			if m.ClippingPlanes != nil {
				planes = m.ClippingPlanes.ModelMatrix
			}
			return s.View.Mul(origin).Mul(planes)
		},
		"gltf_iblFactor": func(*drawcmd.UniformState) any { return m.lighting.iblFactor },
		"gltf_lightColor": func(*drawcmd.UniformState) any {
			if m.lighting.lightColor == nil {
				return math.Vec3{}
			}
			return *m.lighting.lightColor
		},
		"gltf_sphericalHarmonicCoefficients": func(*drawcmd.UniformState) any {
			return m.lighting.sphericalHarmonics()
		},
		"gltf_specularMap": drawcmd.TextureUniform(func() gfx.Texture {
			if t := m.lighting.specular(); t != nil {
				return t
			}
			return m.gfx.DefaultTexture()
		}),
		"gltf_specularMapSize": func(*drawcmd.UniformState) any {
			if t := m.lighting.specular(); t != nil {
				return [2]float32{float32(t.Width()), float32(t.Height())}
			}
			return [2]float32{}
		},
		"gltf_maxSpecularLOD": func(*drawcmd.UniformState) any {
			t := m.lighting.specular()
			if t == nil || t.Width() < 1 {
				return float32(0)
			}
			return math32.Floor(math32.Log2(float32(t.Width())))
		},
		"gltf_luminanceAtZenith": func(*drawcmd.UniformState) any {
			if m.lighting.luminanceAtZenith == nil {
				return float32(0)
			}
			return *m.lighting.luminanceAtZenith
		},
	}
}
