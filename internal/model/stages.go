package model

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-gltf/internal/animation"
	"github.com/Faultbox/midgard-gltf/internal/asset"
	"github.com/Faultbox/midgard-gltf/internal/gfx"
	"github.com/Faultbox/midgard-gltf/internal/jobs"
	"github.com/Faultbox/midgard-gltf/internal/loadres"
	"github.com/Faultbox/midgard-gltf/internal/rescache"
	"github.com/Faultbox/midgard-gltf/internal/texture"
	"github.com/Faultbox/midgard-gltf/pkg/math"
)

// stage is one step of resource creation. run is idempotent: it does
// nothing once its work is done and nothing until its inputs exist.
type stage struct {
	name string
	run  func(exec jobs.Executor) *LoadError
}

func (m *Model) stages() []stage {
	return []stage{
		{"buffers", m.createBuffers},
		{"programs", m.createPrograms},
		{"samplers", m.createSamplers},
		{"textures", func(exec jobs.Executor) *LoadError { m.createTextures(exec); return nil }},
		{"skins", m.createSkins},
		{"animations", m.createAnimations},
		{"vertexArrays", m.createVertexArrays},
		{"renderStates", m.createRenderStates},
		{"uniformMaps", m.createUniformMaps},
		{"nodes", m.createRuntimeNodes},
	}
}

// createResources runs every stage in order. Budgeted stages stop when the
// executor refuses more work; later stages see their inputs missing and
// wait for a later frame.
func (m *Model) createResources(exec jobs.Executor) {
	for _, s := range m.stages() {
		if err := s.run(exec); err != nil {
			m.log.Debug("stage failed", zap.String("stage", s.name))
			m.fail(err)
			return
		}
		if m.state == Failed {
			return
		}
	}
}

func (m *Model) createBuffers(exec jobs.Executor) *LoadError {
	r, a, b := m.res, m.asset, m.bundle
	_, err := loadres.Drain(r.VertexBuffersToCreate, exec, jobs.JobTypeBuffer, func(view int) error {
		data, err := a.BufferViewData(view)
		if err != nil {
			return fmt.Errorf("buffer view %d: %w", view, err)
		}
		buf, err := m.gfx.CreateVertexBuffer(data)
		if err != nil {
			return fmt.Errorf("buffer view %d: %w", view, err)
		}
		b.Buffers[view] = buf
		return nil
	})
	if err != nil {
		return loadError(CompileFailure, "vertex buffer", err)
	}

	_, err = loadres.Drain(r.IndexBuffersToCreate, exec, jobs.JobTypeBuffer, func(ib loadres.IndexBuffer) error {
		data, err := a.BufferViewData(ib.BufferView)
		if err != nil {
			return fmt.Errorf("buffer view %d: %w", ib.BufferView, err)
		}
		buf, err := m.gfx.CreateIndexBuffer(data, gfx.IndexType(ib.ComponentType))
		if err != nil {
			return fmt.Errorf("buffer view %d: %w", ib.BufferView, err)
		}
		b.Buffers[ib.BufferView] = buf
		return nil
	})
	if err != nil {
		return loadError(CompileFailure, "index buffer", err)
	}
	return nil
}

func (m *Model) createPrograms(exec jobs.Executor) *LoadError {
	r := m.res
	if r.PendingShaderLoads > 0 || r.ProgramsToCreate.IsEmpty() {
		return nil
	}
	if len(m.bundle.SourceShaders) == 0 {
		for i, src := range r.Shaders {
			m.bundle.SourceShaders[i] = src
		}
	}
	var failed int
	_, err := loadres.Drain(r.ProgramsToCreate, exec, jobs.JobTypeProgram, func(ti int) error {
		failed = ti
		return m.compileTechnique(m.bundle.Programs, ti, m.initialFeatures(ti))
	})
	if err != nil {
		return loadError(CompileFailure, fmt.Sprintf("technique %d", failed), err)
	}
	return nil
}

func (m *Model) createSamplers(jobs.Executor) *LoadError {
	r := m.res
	if !r.CreateSamplers {
		return nil
	}
	if !m.fromCache {
		for i, s := range m.asset.Samplers {
			m.bundle.Samplers[i] = s
		}
	}
	r.CreateSamplers = false
	return nil
}

// createTextures uploads decoded images. Upload failures follow the same
// rules as fetch failures: fatal while loading without streaming, a warning
// otherwise.
func (m *Model) createTextures(exec jobs.Executor) {
	r := m.res
	if r == nil || r.CreateSamplers {
		return
	}
	for !r.TexturesToCreate.IsEmpty() {
		var id int
		_, err := loadres.Drain(r.TexturesToCreate, exec, jobs.JobTypeTexture, func(t loadres.Texture) error {
			id = t.ID
			return m.createTexture(t)
		})
		if err == nil {
			return
		}
		m.textureFailed(CompileFailure, fmt.Sprintf("texture %d", id), err)
		if m.state == Failed {
			return
		}
	}
}

func (m *Model) createTexture(t loadres.Texture) error {
	a := m.asset
	sampler := gfx.DefaultSampler()
	if si := a.Textures[t.ID].Sampler; si >= 0 {
		if s, ok := m.bundle.Samplers[si]; ok {
			sampler = s
		}
	}
	if !texture.IsPowerOfTwo(t.Image) {
		sampler = clampToNonPowerOfTwo(sampler)
	}
	tex, err := m.gfx.CreateTexture(gfx.TextureDesc{
		Label:   fmt.Sprintf("texture %d", t.ID),
		Image:   t.Image,
		Sampler: sampler,
	})
	if err != nil {
		return err
	}
	m.bundle.Textures[t.ID] = tex
	return nil
}

// clampToNonPowerOfTwo drops repeat wrapping and mipmapped filtering, which
// non power of two textures cannot use everywhere.
func clampToNonPowerOfTwo(s gfx.Sampler) gfx.Sampler {
	if s.WrapS != gfx.WrapClampToEdge || s.WrapT != gfx.WrapClampToEdge {
		s.WrapS, s.WrapT = gfx.WrapClampToEdge, gfx.WrapClampToEdge
	}
	switch s.MinFilter {
	case gfx.FilterNearestMipmapNearest, gfx.FilterNearestMipmapLinear:
		s.MinFilter = gfx.FilterNearest
	case gfx.FilterLinearMipmapNearest, gfx.FilterLinearMipmapLinear:
		s.MinFilter = gfx.FilterLinear
	}
	return s
}

func (m *Model) createSkins(jobs.Executor) *LoadError {
	r := m.res
	if !r.CreateSkins || r.PendingBufferLoads > 0 {
		return nil
	}
	if !m.fromCache {
		a := m.asset
		m.bundle.InverseBindMatrices = make([][]math.Mat4, len(a.Skins))
		for i := range a.Skins {
			mats, err := a.InverseBindMatrices(i)
			if err != nil {
				return loadError(ParseFailure, fmt.Sprintf("skin %d", i), err)
			}
			m.bundle.InverseBindMatrices[i] = mats
		}
	}
	r.CreateSkins = false
	return nil
}

func (m *Model) createAnimations(jobs.Executor) *LoadError {
	r := m.res
	if !r.CreateRuntimeAnimations || r.PendingBufferLoads > 0 {
		return nil
	}
	if !m.fromCache {
		a := m.asset
		for ai, an := range a.Animations {
			anim, err := buildAnimation(a, ai, an)
			if err != nil {
				return loadError(ParseFailure, fmt.Sprintf("animation %d", ai), err)
			}
			m.bundle.Animations = append(m.bundle.Animations, anim)
		}
	}
	r.CreateRuntimeAnimations = false
	return nil
}

func buildAnimation(a *asset.Asset, index int, an asset.Animation) (*animation.Animation, error) {
	samplers := make([]*animation.Sampler, len(an.Samplers))
	for si, s := range an.Samplers {
		times, values, _, err := a.AnimationSamplerData(index, si)
		if err != nil {
			return nil, err
		}
		interp, err := animation.ParseInterpolation(s.Interpolation)
		if err != nil {
			return nil, err
		}
		samplers[si], err = animation.NewSampler(times, values, interp)
		if err != nil {
			return nil, err
		}
	}
	channels := make([]animation.Channel, 0, len(an.Channels))
	for _, c := range an.Channels {
		path, err := animation.ParsePath(c.Path)
		if err != nil {
			return nil, err
		}
		channels = append(channels, animation.Channel{Sampler: c.Sampler, Node: c.Node, Path: path})
	}
	return animation.New(an.Name, channels, samplers)
}

func (m *Model) createVertexArrays(jobs.Executor) *LoadError {
	r := m.res
	if !r.CreateVertexArrays || !r.FinishedBuffersCreation() || !r.FinishedProgramCreation() {
		return nil
	}
	if !m.fromCache {
		a, b := m.asset, m.bundle
		for mi, mesh := range a.Meshes {
			for pi, p := range mesh.Primitives {
				va, err := m.createVertexArray(p)
				if err != nil {
					return loadError(CompileFailure, fmt.Sprintf("mesh %d primitive %d", mi, pi), err)
				}
				b.VertexArrays[rescache.PrimitiveKey{Mesh: mi, Primitive: pi}] = va
			}
		}
	}
	r.CreateVertexArrays = false
	return nil
}

func (m *Model) createVertexArray(p asset.Primitive) (gfx.VertexArray, error) {
	a, b := m.asset, m.bundle
	tech := a.TechniqueFor(p)
	if tech == nil {
		return nil, fmt.Errorf("no technique")
	}
	prog, ok := b.Programs.Programs[p.Technique]
	if !ok {
		return nil, fmt.Errorf("technique %d has no program", p.Technique)
	}
	active := prog.AttributeLocations()

	names := make([]string, 0, len(tech.Attributes))
	for name := range tech.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)

	desc := gfx.VertexArrayDesc{}
	for _, name := range names {
		loc, ok := active[name]
		if !ok {
			continue
		}
		ai, ok := p.Attributes[tech.Attributes[name]]
		if !ok {
			continue
		}
		acc := a.Accessors[ai]
		if acc.BufferView == nil {
			continue
		}
		desc.Attributes = append(desc.Attributes, gfx.Attribute{
			Index:                  loc,
			Buffer:                 b.Buffers[*acc.BufferView],
			ComponentsPerAttribute: acc.Components,
			ComponentType:          acc.ComponentType,
			Normalize:              acc.Normalized,
			Offset:                 acc.ByteOffset,
			Stride:                 a.BufferViews[*acc.BufferView].ByteStride,
		})
	}
	if p.Indices != nil {
		acc := a.Accessors[*p.Indices]
		if acc.BufferView != nil {
			desc.IndexBuffer = b.Buffers[*acc.BufferView]
			desc.IndexType = a.BufferViews[*acc.BufferView].IndexType
		}
	}
	return m.gfx.CreateVertexArray(desc)
}

func (m *Model) createRenderStates(jobs.Executor) *LoadError {
	r := m.res
	if !r.CreateRenderStates {
		return nil
	}
	if !m.fromCache {
		for i, mat := range m.asset.Materials {
			rs := gfx.Opaque(!mat.DoubleSided)
			if mat.AlphaMode == asset.AlphaBlend {
				rs.DepthMask = false
				rs.Blending = gfx.AlphaBlending
			}
			m.bundle.RenderStates[i] = gfx.FromCache(rs)
		}
	}
	r.CreateRenderStates = false
	return nil
}

func (m *Model) createUniformMaps(jobs.Executor) *LoadError {
	r := m.res
	if !r.CreateUniformMaps || !r.FinishedProgramCreation() {
		return nil
	}
	m.buildUniformMaps()
	r.CreateUniformMaps = false
	return nil
}

func (m *Model) createRuntimeNodes(jobs.Executor) *LoadError {
	r := m.res
	if !r.CreateRuntimeNodes {
		return nil
	}
	if !r.FinishedBuffersCreation() || !r.FinishedProgramCreation() ||
		r.CreateSamplers || r.CreateSkins || r.CreateRuntimeAnimations ||
		r.CreateVertexArrays || r.CreateRenderStates || r.CreateUniformMaps {
		return nil
	}
	m.buildRuntimeNodes()
	r.CreateRuntimeNodes = false
	return nil
}
