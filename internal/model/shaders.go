package model

import (
	"fmt"
	"sort"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-gltf/internal/asset"
	"github.com/Faultbox/midgard-gltf/internal/drawcmd"
	"github.com/Faultbox/midgard-gltf/internal/gfx"
	"github.com/Faultbox/midgard-gltf/internal/rescache"
	"github.com/Faultbox/midgard-gltf/internal/shadergen"
)

// initialFeatures are the features every program of technique ti is
// compiled with. Regeneration adds color, clipping and the custom shader.
func (m *Model) initialFeatures(ti int) shadergen.Features {
	l := &m.lighting
	return shadergen.Features{
		Quantized:    m.quantizedAttributes(ti),
		VertexHook:   m.opts.VertexShaderLoaded,
		FragmentHook: m.opts.FragmentShaderLoaded,
		PickColor:    m.opts.AllowPicking && m.opts.UniformMapLoaded == nil,

		ImageBasedLightingFactor: l.iblFactor,
		LightColor:               l.lightColor != nil,
		GammaCorrect:             m.asset.Version != "2.0" || m.asset.UsesTechniques(),

		OctahedralCubeMaps:             m.gfx.Capabilities().OctahedralCubeMaps,
		SphericalHarmonics:             l.sh != nil,
		DefaultSphericalHarmonics:      l.useDefaultSH,
		SpecularEnvironmentMaps:        l.specularMap != nil,
		DefaultSpecularEnvironmentMaps: l.useDefaultSM,
		LuminanceAtZenith:              l.luminanceAtZenith != nil,
	}
}

// quantizedAttributes lists the attributes of technique ti that some
// primitive drawing it stores quantized.
func (m *Model) quantizedAttributes(ti int) []shadergen.QuantizedAttribute {
	a := m.asset
	if !a.ExtensionsUsed[asset.ExtQuantizedAttributes] {
		return nil
	}
	tech := &a.Techniques[ti]
	seen := make(map[string]bool)
	var out []shadergen.QuantizedAttribute
	for _, mesh := range a.Meshes {
		for _, p := range mesh.Primitives {
			if p.Technique != ti {
				continue
			}
			for name, semantic := range tech.Attributes {
				ai, ok := p.Attributes[semantic]
				if !ok || seen[name] {
					continue
				}
				q := a.Accessors[ai].Quantization
				if q == nil {
					continue
				}
				seen[name] = true
				out = append(out, shadergen.QuantizedAttribute{
					Variable:     name,
					Semantic:     semantic,
					DecodeMatrix: q.DecodeMatrix,
				})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Variable < out[j].Variable })
	return out
}

// attributeLocations binds the position attribute to location 0 and the
// rest in name order.
func attributeLocations(tech *asset.Technique) map[string]int {
	names := make([]string, 0, len(tech.Attributes))
	for name := range tech.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)

	locs := make(map[string]int, len(names))
	next := 0
	if pos, ok := tech.AttributeForSemantic("POSITION"); ok {
		locs[pos] = 0
		next = 1
	}
	for _, name := range names {
		if _, ok := locs[name]; ok {
			continue
		}
		locs[name] = next
		next++
	}
	return locs
}

// compileTechnique synthesizes and links the program of technique ti with
// features f into set.
func (m *Model) compileTechnique(set *rescache.ProgramSet, ti int, f shadergen.Features) error {
	a := m.asset
	tech := &a.Techniques[ti]
	if tech.Program < 0 || tech.Program >= len(a.Programs) {
		return fmt.Errorf("program %d out of range", tech.Program)
	}
	prog := a.Programs[tech.Program]
	vs, ok := m.bundle.SourceShaders[prog.VertexShader]
	if !ok {
		return fmt.Errorf("vertex shader %d not loaded", prog.VertexShader)
	}
	fs, ok := m.bundle.SourceShaders[prog.FragmentShader]
	if !ok {
		return fmt.Errorf("fragment shader %d not loaded", prog.FragmentShader)
	}

	out := shadergen.Synthesize(vs, fs, tech.Program, f)
	p, err := m.gfx.CreateProgram(gfx.ProgramDesc{
		Label:              fmt.Sprintf("technique %d", ti),
		VertexSource:       out.VertexSource,
		FragmentSource:     out.FragmentSource,
		AttributeLocations: attributeLocations(tech),
	})
	if err != nil {
		return err
	}
	set.Programs[ti] = p
	set.Decode[ti] = out.DecodeUniforms
	return nil
}

func (m *Model) customShader() *shadergen.CustomShader {
	if m.opts.AssetKey == "" {
		return nil
	}
	s, ok := m.opts.CustomShaders.Lookup(m.opts.AssetKey)
	if !ok {
		return nil
	}
	return s
}

// updateShaders regenerates the programs when the clipping state, color
// shading or the custom shader changed since the last attempt, or when
// lighting asked for it. A failed attempt is not retried until something
// changes again.
func (m *Model) updateShaders() error {
	hash := m.ClippingPlanes.hash()
	shading := m.colorShading()
	custom := m.customShader()
	var revision uint64
	if custom != nil {
		revision = custom.Revision()
	}
	if !m.regeneratePending && hash == m.clippingHash &&
		shading == m.colorShadingEnabled && revision == m.customRevision {
		return nil
	}
	m.regeneratePending = false
	m.clippingHash, m.colorShadingEnabled, m.customRevision = hash, shading, revision
	return m.regenerateShaders(custom)
}

// regenerateShaders moves the model onto a private program set compiled
// with the current variant features, or back onto the shared set when no
// variant is needed. The shared set is never written.
func (m *Model) regenerateShaders(custom *shadergen.CustomShader) error {
	shared := m.bundle.Programs
	next := shared
	if m.ClippingPlanes.Active() || m.colorShadingEnabled || m.forkPrograms || custom != nil {
		next = shared.Fork()
		var snap *shadergen.Snapshot
		if custom != nil {
			s := custom.Snapshot()
			snap = &s
		}
		for ti := range m.asset.Techniques {
			if _, ok := shared.Programs[ti]; !ok {
				continue
			}
			f := m.initialFeatures(ti)
			f.Color = m.colorShadingEnabled
			f.Clipping = m.ClippingPlanes.State()
			f.Custom = snap
			if err := m.compileTechnique(next, ti, f); err != nil {
				err = multierr.Append(err, next.Destroy())
				m.log.Warn("shader regeneration failed, keeping previous programs",
					zap.Int("technique", ti), zap.Error(err))
				return loadError(CompileFailure, fmt.Sprintf("technique %d", ti), err)
			}
		}
	}
	if next == m.programs {
		return nil
	}

	old := m.programs
	m.programs = next
	for _, nc := range m.nodeCommands {
		p := next.Programs[nc.TechniqueID]
		for _, cmd := range []*drawcmd.DrawCommand{nc.Command, nc.Translucent, nc.DisableCulling} {
			if cmd != nil {
				cmd.Program = p
			}
		}
		nc.SilhouetteModel, nc.SilhouetteColor = nil, nil
	}
	m.log.Debug("programs regenerated",
		zap.Bool("private", next != shared),
		zap.Int("programs", len(next.Programs)))
	return multierr.Append(old.DestroyIfNotShared(shared), m.destroySilhouettes())
}

// silhouetteSet returns where the model keeps its silhouette programs: the
// private program set when it has one, its own map otherwise.
func (m *Model) silhouetteSet() map[int]gfx.Program {
	if m.programs != m.bundle.Programs {
		return m.programs.Silhouette
	}
	if m.silhouettes == nil {
		m.silhouettes = make(map[int]gfx.Program)
	}
	return m.silhouettes
}

func (m *Model) destroySilhouettes() error {
	var err error
	for _, p := range m.silhouettes {
		err = multierr.Append(err, p.Destroy())
	}
	m.silhouettes = nil
	return err
}

// silhouetteProgram returns the silhouette color program of technique ti,
// compiling it on first use. Techniques without a normal attribute have no
// silhouette.
func (m *Model) silhouetteProgram(ti int) (gfx.Program, bool) {
	set := m.silhouetteSet()
	if p, ok := set[ti]; ok {
		return p, true
	}
	if m.silhouetteSkipped[ti] {
		return nil, false
	}
	base, ok := m.programs.Programs[ti]
	if !ok {
		return nil, false
	}
	normal, ok := m.asset.Techniques[ti].AttributeForSemantic("NORMAL")
	if !ok {
		normal = m.asset.NormalAttributeName
	}
	if normal == "" {
		m.skipSilhouette(ti, fmt.Errorf("technique %d has no normal attribute", ti))
		return nil, false
	}

	src := shadergen.SilhouetteProgram(base.VertexSource(), normal)
	p, err := m.gfx.CreateProgram(gfx.ProgramDesc{
		Label:              fmt.Sprintf("technique %d silhouette", ti),
		VertexSource:       src.VertexSource,
		FragmentSource:     src.FragmentSource,
		AttributeLocations: attributeLocations(&m.asset.Techniques[ti]),
	})
	if err != nil {
		m.skipSilhouette(ti, err)
		return nil, false
	}
	set[ti] = p
	return p, true
}

func (m *Model) skipSilhouette(ti int, err error) {
	m.silhouetteSkipped[ti] = true
	m.log.Warn("silhouette disabled for technique",
		zap.Int("technique", ti),
		zap.Stringer("kind", UnsupportedFeature),
		zap.Error(err))
}
