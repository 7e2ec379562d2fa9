package asset

import (
	"fmt"

	"github.com/qmuntal/gltf"

	"github.com/Faultbox/midgard-gltf/internal/fetch"
	"github.com/Faultbox/midgard-gltf/internal/gfx"
	"github.com/Faultbox/midgard-gltf/pkg/math"
)

func (a *Asset) buildTables() error {
	doc := a.doc

	for _, b := range doc.Buffers {
		a.Buffers = append(a.Buffers, Buffer{
			URI:        b.URI,
			ByteLength: b.ByteLength,
			Embedded:   b.URI == "" || fetch.IsDataURI(b.URI),
		})
	}
	for _, bv := range doc.BufferViews {
		a.BufferViews = append(a.BufferViews, BufferView{
			Buffer:     bv.Buffer,
			ByteOffset: bv.ByteOffset,
			ByteLength: bv.ByteLength,
			ByteStride: bv.ByteStride,
			Vertex:     bv.Target == gltf.TargetArrayBuffer,
			Index:      bv.Target == gltf.TargetElementArrayBuffer,
		})
	}
	for _, acr := range doc.Accessors {
		a.Accessors = append(a.Accessors, convertAccessor(acr))
	}
	for _, s := range doc.Samplers {
		a.Samplers = append(a.Samplers, convertSampler(s))
	}
	for _, img := range doc.Images {
		a.Images = append(a.Images, Image{Name: img.Name, URI: img.URI, MimeType: img.MimeType, BufferView: img.BufferView})
	}
	for _, tex := range doc.Textures {
		t := Texture{Source: -1, Sampler: -1}
		if tex.Source != nil {
			t.Source = *tex.Source
		}
		if tex.Sampler != nil {
			t.Sampler = *tex.Sampler
		}
		a.Textures = append(a.Textures, t)
	}

	if err := a.buildMeshes(); err != nil {
		return err
	}
	a.buildSkins()
	if err := a.buildNodes(); err != nil {
		return err
	}
	if err := a.buildAnimations(); err != nil {
		return err
	}
	a.buildRoots()

	if ext, ok := extension[*techniquesExt](doc.Extensions, ExtTechniquesWebGL); ok && len(ext.Techniques) > 0 {
		if err := a.buildTechniques(ext); err != nil {
			return err
		}
	} else {
		a.synthesizeTechniques()
	}

	for _, t := range a.Techniques {
		if name, ok := t.AttributeForSemantic("NORMAL"); ok {
			a.NormalAttributeName = name
			break
		}
	}
	return nil
}

func convertAccessor(acr *gltf.Accessor) Accessor {
	out := Accessor{
		Name:          acr.Name,
		BufferView:    acr.BufferView,
		ByteOffset:    acr.ByteOffset,
		ComponentType: glComponentType(acr.ComponentType),
		Count:         acr.Count,
		Normalized:    acr.Normalized,
		Min:           acr.Min,
		Max:           acr.Max,
	}
	out.Type, out.Components = accessorType(acr.Type)
	if q, ok := extension[*quantizedExt](acr.Extensions, ExtQuantizedAttributes); ok {
		out.Quantization = &Quantization{
			DecodeMatrix: toFloat32(q.DecodeMatrix),
			DecodedMin:   toFloat32(q.DecodedMin),
			DecodedMax:   toFloat32(q.DecodedMax),
		}
	}
	return out
}

func glComponentType(c gltf.ComponentType) int {
	switch c {
	case gltf.ComponentByte:
		return GLByte
	case gltf.ComponentUbyte:
		return GLUnsignedByte
	case gltf.ComponentShort:
		return GLShort
	case gltf.ComponentUshort:
		return GLUnsignedShort
	case gltf.ComponentUint:
		return GLUnsignedInt
	default:
		return GLFloat
	}
}

func accessorType(t gltf.AccessorType) (string, int) {
	switch t {
	case gltf.AccessorVec2:
		return "VEC2", 2
	case gltf.AccessorVec3:
		return "VEC3", 3
	case gltf.AccessorVec4:
		return "VEC4", 4
	case gltf.AccessorMat2:
		return "MAT2", 4
	case gltf.AccessorMat3:
		return "MAT3", 9
	case gltf.AccessorMat4:
		return "MAT4", 16
	default:
		return "SCALAR", 1
	}
}

func convertSampler(s *gltf.Sampler) gfx.Sampler {
	out := gfx.DefaultSampler()
	switch s.MagFilter {
	case gltf.MagNearest:
		out.MagFilter = gfx.FilterNearest
	}
	switch s.MinFilter {
	case gltf.MinNearest:
		out.MinFilter = gfx.FilterNearest
	case gltf.MinNearestMipMapNearest:
		out.MinFilter = gfx.FilterNearestMipmapNearest
	case gltf.MinLinearMipMapNearest:
		out.MinFilter = gfx.FilterLinearMipmapNearest
	case gltf.MinNearestMipMapLinear:
		out.MinFilter = gfx.FilterNearestMipmapLinear
	case gltf.MinLinearMipMapLinear:
		out.MinFilter = gfx.FilterLinearMipmapLinear
	}
	out.WrapS = wrapMode(s.WrapS)
	out.WrapT = wrapMode(s.WrapT)
	return out
}

func wrapMode(w gltf.WrappingMode) int {
	switch w {
	case gltf.WrapClampToEdge:
		return gfx.WrapClampToEdge
	case gltf.WrapMirroredRepeat:
		return gfx.WrapMirroredRepeat
	default:
		return gfx.WrapRepeat
	}
}

func primitiveMode(m gltf.PrimitiveMode) gfx.PrimitiveType {
	switch m {
	case gltf.PrimitivePoints:
		return gfx.Points
	case gltf.PrimitiveLines:
		return gfx.Lines
	case gltf.PrimitiveLineLoop:
		return gfx.LineLoop
	case gltf.PrimitiveLineStrip:
		return gfx.LineStrip
	case gltf.PrimitiveTriangleStrip:
		return gfx.TriangleStrip
	case gltf.PrimitiveTriangleFan:
		return gfx.TriangleFan
	default:
		return gfx.Triangles
	}
}

func (a *Asset) buildMeshes() error {
	needsDefaultMaterial := false
	for _, m := range a.doc.Meshes {
		mesh := Mesh{Name: m.Name, Weights: toFloat32(m.Weights)}
		for _, p := range m.Primitives {
			if _, ok := p.Attributes[gltf.POSITION]; !ok {
				return fmt.Errorf("asset: mesh %q has a primitive without POSITION", m.Name)
			}
			prim := Primitive{
				Mode:       primitiveMode(p.Mode),
				Attributes: make(map[string]int, len(p.Attributes)),
				Indices:    p.Indices,
				Material:   -1,
				Technique:  -1,
			}
			for k, v := range p.Attributes {
				prim.Attributes[k] = v
				if err := a.markVertexView(v); err != nil {
					return err
				}
			}
			if p.Indices != nil {
				if err := a.markIndexView(*p.Indices); err != nil {
					return err
				}
			}
			if p.Material != nil {
				prim.Material = *p.Material
			} else {
				needsDefaultMaterial = true
			}
			mesh.Primitives = append(mesh.Primitives, prim)
		}
		a.Meshes = append(a.Meshes, mesh)
	}

	a.buildMaterials()
	if needsDefaultMaterial {
		def := len(a.Materials)
		a.Materials = append(a.Materials, defaultMaterial())
		for mi := range a.Meshes {
			for pi := range a.Meshes[mi].Primitives {
				if a.Meshes[mi].Primitives[pi].Material < 0 {
					a.Meshes[mi].Primitives[pi].Material = def
				}
			}
		}
	}
	for _, m := range a.Meshes {
		for pi, p := range m.Primitives {
			if p.Material < 0 || p.Material >= len(a.Materials) {
				return fmt.Errorf("%w: mesh %q primitive %d references material %d", ErrInvalidIndex, m.Name, pi, p.Material)
			}
		}
	}
	return nil
}

func (a *Asset) accessorView(i int) (int, error) {
	if i < 0 || i >= len(a.Accessors) {
		return -1, fmt.Errorf("%w: index %d", ErrInvalidAccessor, i)
	}
	if a.Accessors[i].BufferView == nil {
		return -1, nil
	}
	bv := *a.Accessors[i].BufferView
	if bv < 0 || bv >= len(a.BufferViews) {
		return -1, fmt.Errorf("%w: accessor %d references buffer view %d", ErrInvalidAccessor, i, bv)
	}
	return bv, nil
}

func (a *Asset) markVertexView(accessor int) error {
	bv, err := a.accessorView(accessor)
	if err != nil || bv < 0 {
		return err
	}
	a.BufferViews[bv].Vertex = true
	return nil
}

func (a *Asset) markIndexView(accessor int) error {
	bv, err := a.accessorView(accessor)
	if err != nil || bv < 0 {
		return err
	}
	a.BufferViews[bv].Index = true
	switch a.Accessors[accessor].ComponentType {
	case GLUnsignedByte:
		a.BufferViews[bv].IndexType = gfx.IndexUnsignedByte
	case GLUnsignedShort:
		a.BufferViews[bv].IndexType = gfx.IndexUnsignedShort
	default:
		a.BufferViews[bv].IndexType = gfx.IndexUnsignedInt
	}
	return nil
}

func defaultMaterial() Material {
	return Material{
		Name:      "default",
		Technique: -1,
		Values: map[string]Value{
			"u_baseColorFactor": {Floats: []float32{1, 1, 1, 1}},
		},
		AlphaMode: AlphaOpaque,
	}
}

func (a *Asset) buildMaterials() {
	for _, m := range a.doc.Materials {
		mat := Material{
			Name:        m.Name,
			Technique:   -1,
			Values:      make(map[string]Value),
			AlphaMode:   AlphaOpaque,
			AlphaCutoff: 0.5,
			DoubleSided: m.DoubleSided,
		}
		switch m.AlphaMode {
		case gltf.AlphaMask:
			mat.AlphaMode = AlphaMask
		case gltf.AlphaBlend:
			mat.AlphaMode = AlphaBlend
		}
		if m.AlphaCutoff != nil {
			mat.AlphaCutoff = float32(*m.AlphaCutoff)
		}
		if _, ok := m.Extensions[ExtMaterialsUnlit]; ok {
			mat.Unlit = true
		}

		if ext, ok := extension[*techniquesExt](m.Extensions, ExtTechniquesWebGL); ok {
			if ext.Technique != nil {
				mat.Technique = *ext.Technique
			}
			for name, raw := range ext.Values {
				v, err := parseValue(raw)
				if err == nil && v.IsSet() {
					mat.Values[name] = v
				}
			}
		} else {
			color := []float32{1, 1, 1, 1}
			if pbr := m.PBRMetallicRoughness; pbr != nil {
				if pbr.BaseColorFactor != nil {
					f := *pbr.BaseColorFactor
					color = []float32{float32(f[0]), float32(f[1]), float32(f[2]), float32(f[3])}
				}
				if pbr.BaseColorTexture != nil {
					mat.Values["u_baseColorTexture"] = Value{Texture: &TextureRef{
						Index:    pbr.BaseColorTexture.Index,
						TexCoord: pbr.BaseColorTexture.TexCoord,
					}}
				}
			}
			mat.Values["u_baseColorFactor"] = Value{Floats: color}
			if mat.AlphaMode == AlphaMask {
				mat.Values["u_alphaCutoff"] = Value{Floats: []float32{mat.AlphaCutoff}}
			}
		}
		a.Materials = append(a.Materials, mat)
	}
}

var identity = [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

// buildNodes copies node transforms as authored. The decoder fills absent
// rotation and scale with their defaults, so zero values here were written
// by the asset.
func (a *Asset) buildNodes() error {
	for i, n := range a.doc.Nodes {
		if n.Mesh != nil && (*n.Mesh < 0 || *n.Mesh >= len(a.Meshes)) {
			return fmt.Errorf("%w: node %d references mesh %d", ErrInvalidIndex, i, *n.Mesh)
		}
		if n.Skin != nil && (*n.Skin < 0 || *n.Skin >= len(a.Skins)) {
			return fmt.Errorf("%w: node %d references skin %d", ErrInvalidIndex, i, *n.Skin)
		}
		for _, c := range n.Children {
			if c < 0 || c >= len(a.doc.Nodes) {
				return fmt.Errorf("%w: node %d has child %d", ErrInvalidIndex, i, c)
			}
		}
		node := Node{
			Name:        n.Name,
			Children:    n.Children,
			Mesh:        n.Mesh,
			Skin:        n.Skin,
			Translation: math.Vec3{X: float32(n.Translation[0]), Y: float32(n.Translation[1]), Z: float32(n.Translation[2])},
			Rotation:    math.Quat{X: float32(n.Rotation[0]), Y: float32(n.Rotation[1]), Z: float32(n.Rotation[2]), W: float32(n.Rotation[3])},
			Scale:       math.Vec3{X: float32(n.Scale[0]), Y: float32(n.Scale[1]), Z: float32(n.Scale[2])},
			Weights:     toFloat32(n.Weights),
		}
		if n.Matrix != identity {
			m := math.FromSlice(n.Matrix[:])
			node.Matrix = &m
		}
		if ext, ok := extension[*articulationsExt](n.Extensions, ExtArticulations); ok {
			node.IsAttachPoint = ext.IsAttachPoint
			node.ArticulationName = ext.ArticulationName
		}
		a.Nodes = append(a.Nodes, node)
	}

	if ext, ok := extension[*articulationsExt](a.doc.Extensions, ExtArticulations); ok {
		for _, d := range ext.Articulations {
			art := Articulation{Name: d.Name}
			for _, s := range d.Stages {
				art.Stages = append(art.Stages, ArticulationStage{
					Name:    s.Name,
					Type:    s.Type,
					Minimum: float32(s.MinimumValue),
					Initial: float32(s.InitialValue),
					Maximum: float32(s.MaximumValue),
				})
			}
			a.Articulations = append(a.Articulations, art)
		}
	}
	return nil
}

func (a *Asset) buildSkins() {
	for _, s := range a.doc.Skins {
		a.Skins = append(a.Skins, Skin{
			Name:                s.Name,
			Joints:              s.Joints,
			InverseBindMatrices: s.InverseBindMatrices,
			Skeleton:            s.Skeleton,
		})
	}
}

func (a *Asset) buildAnimations() error {
	for _, an := range a.doc.Animations {
		anim := Animation{Name: an.Name}
		for _, s := range an.Samplers {
			interp := "LINEAR"
			switch s.Interpolation {
			case gltf.InterpolationStep:
				interp = "STEP"
			case gltf.InterpolationCubicSpline:
				interp = "CUBICSPLINE"
			}
			for _, acr := range [2]int{s.Input, s.Output} {
				if acr < 0 || acr >= len(a.doc.Accessors) {
					return fmt.Errorf("%w: animation %q sampler references accessor %d", ErrInvalidIndex, an.Name, acr)
				}
			}
			if a.doc.Accessors[s.Input].Type != gltf.AccessorScalar {
				return fmt.Errorf("%w: animation %q sampler input is %s, want SCALAR", ErrInvalidAccessor, an.Name, a.doc.Accessors[s.Input].Type)
			}
			anim.Samplers = append(anim.Samplers, AnimationSampler{Input: s.Input, Output: s.Output, Interpolation: interp})
		}
		for _, c := range an.Channels {
			if c.Target.Node == nil {
				continue
			}
			if c.Sampler < 0 || c.Sampler >= len(anim.Samplers) {
				return fmt.Errorf("%w: animation %q channel references sampler %d", ErrInvalidIndex, an.Name, c.Sampler)
			}
			if node := *c.Target.Node; node < 0 || node >= len(a.Nodes) {
				return fmt.Errorf("%w: animation %q channel targets node %d", ErrInvalidIndex, an.Name, node)
			}
			var path string
			var want gltf.AccessorType
			switch c.Target.Path {
			case gltf.TRSTranslation:
				path, want = "translation", gltf.AccessorVec3
			case gltf.TRSRotation:
				path, want = "rotation", gltf.AccessorVec4
			case gltf.TRSScale:
				path, want = "scale", gltf.AccessorVec3
			case gltf.TRSWeights:
				path, want = "weights", gltf.AccessorScalar
			default:
				continue
			}
			if got := a.doc.Accessors[anim.Samplers[c.Sampler].Output].Type; got != want {
				return fmt.Errorf("%w: animation %q %s channel output is %s, want %s", ErrInvalidAccessor, an.Name, path, got, want)
			}
			anim.Channels = append(anim.Channels, Channel{Sampler: c.Sampler, Node: *c.Target.Node, Path: path})
		}
		a.Animations = append(a.Animations, anim)
	}
	return nil
}

func (a *Asset) buildRoots() {
	doc := a.doc
	if len(doc.Scenes) > 0 {
		scene := 0
		if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
			scene = *doc.Scene
		}
		a.Roots = append(a.Roots, doc.Scenes[scene].Nodes...)
		return
	}
	// No scenes: every node without a parent is a root.
	child := make([]bool, len(a.Nodes))
	for _, n := range a.Nodes {
		for _, c := range n.Children {
			if c >= 0 && c < len(child) {
				child[c] = true
			}
		}
	}
	for i, isChild := range child {
		if !isChild {
			a.Roots = append(a.Roots, i)
		}
	}
}

func (a *Asset) buildTechniques(ext *techniquesExt) error {
	for _, s := range ext.Shaders {
		sh := Shader{Name: s.Name, Type: s.Type, URI: s.URI, BufferView: s.BufferView}
		if fetch.IsDataURI(s.URI) {
			data, _, err := fetch.DecodeDataURI(s.URI)
			if err != nil {
				return fmt.Errorf("asset: shader %q: %w", s.Name, err)
			}
			sh.Source = string(data)
			sh.URI = ""
		}
		a.Shaders = append(a.Shaders, sh)
	}
	for _, p := range ext.Programs {
		if p.VertexShader >= len(a.Shaders) || p.FragmentShader >= len(a.Shaders) {
			return fmt.Errorf("asset: program %q references a missing shader", p.Name)
		}
		a.Programs = append(a.Programs, Program{Name: p.Name, VertexShader: p.VertexShader, FragmentShader: p.FragmentShader})
	}
	for _, t := range ext.Techniques {
		if t.Program < 0 || t.Program >= len(a.Programs) {
			return fmt.Errorf("asset: technique %q references program %d", t.Name, t.Program)
		}
		tech := Technique{
			Name:       t.Name,
			Program:    t.Program,
			Attributes: make(map[string]string, len(t.Attributes)),
			Uniforms:   make(map[string]Uniform, len(t.Uniforms)),
		}
		for name, attr := range t.Attributes {
			tech.Attributes[name] = attr.Semantic
		}
		for name, u := range t.Uniforms {
			v, err := parseValue(u.Value)
			if err != nil {
				return fmt.Errorf("asset: technique %q uniform %s: %w", t.Name, name, err)
			}
			tech.Uniforms[name] = Uniform{Type: u.Type, Count: u.Count, Semantic: u.Semantic, Node: u.Node, Value: v}
		}
		a.Techniques = append(a.Techniques, tech)
	}

	for mi := range a.Meshes {
		for pi := range a.Meshes[mi].Primitives {
			p := &a.Meshes[mi].Primitives[pi]
			tech := a.Materials[p.Material].Technique
			if tech < 0 || tech >= len(a.Techniques) {
				return fmt.Errorf("asset: material %d has no valid technique", p.Material)
			}
			p.Technique = tech
		}
	}
	return nil
}

func toFloat32(v []float64) []float32 {
	if v == nil {
		return nil
	}
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}
