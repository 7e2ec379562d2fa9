package asset

import (
	"errors"
	"strings"
	"testing"

	"github.com/Faultbox/midgard-gltf/internal/asset/assettest"
	"github.com/Faultbox/midgard-gltf/internal/gfx"
	"github.com/Faultbox/midgard-gltf/pkg/math"
)

func TestParseTechniqueAsset(t *testing.T) {
	a, err := Parse(assettest.Triangle(assettest.Options{}))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if a.SynthesizedTechniques || !a.UsesTechniques() {
		t.Error("asset declares KHR_techniques_webgl")
	}
	if len(a.Techniques) != 1 || len(a.Programs) != 1 || len(a.Shaders) != 2 {
		t.Fatalf("tables: %d techniques, %d programs, %d shaders", len(a.Techniques), len(a.Programs), len(a.Shaders))
	}
	if a.Shaders[0].Source != assettest.VertexShader {
		t.Error("data URI shader should be decoded inline")
	}
	if a.NormalAttributeName != "a_normal" {
		t.Errorf("NormalAttributeName = %q", a.NormalAttributeName)
	}

	prim := a.Meshes[0].Primitives[0]
	if prim.Technique != 0 || prim.Mode != gfx.Triangles {
		t.Errorf("primitive: %+v", prim)
	}
	if v := a.Materials[0].Values["u_diffuse"]; len(v.Floats) != 4 || v.Floats[0] != 0.8 {
		t.Errorf("u_diffuse = %+v", v)
	}
	if !a.BufferViews[0].Vertex || !a.BufferViews[1].Index || a.BufferViews[1].IndexType != gfx.IndexUnsignedShort {
		t.Errorf("buffer view classification: %+v", a.BufferViews)
	}
	if !a.Buffers[0].Embedded || a.BufferData(0) == nil {
		t.Error("data URI buffer should be embedded and loaded")
	}
	if len(a.Roots) != 1 || a.Roots[0] != 0 {
		t.Errorf("roots = %v", a.Roots)
	}
}

func TestParseSynthesizesTechniques(t *testing.T) {
	a, err := Parse(assettest.Triangle(assettest.Options{CoreMaterial: true, ImageURI: "wall.png"}))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !a.SynthesizedTechniques {
		t.Fatal("expected generated techniques")
	}
	tech := a.TechniqueFor(a.Meshes[0].Primitives[0])
	if tech == nil {
		t.Fatal("primitive has no technique")
	}
	if tech.Attributes["a_texcoord_0"] != "TEXCOORD_0" {
		t.Errorf("textured technique attributes: %v", tech.Attributes)
	}
	vs := a.Shaders[a.Programs[tech.Program].VertexShader].Source
	if !strings.Contains(vs, "attribute vec3 a_normal;") {
		t.Errorf("generated vertex shader lacks normals:\n%s", vs)
	}
	if ref := a.Materials[0].Values["u_baseColorTexture"].Texture; ref == nil || ref.Index != 0 {
		t.Error("base color texture not mapped")
	}
	if a.Samplers[0].MinFilter != gfx.FilterNearest || a.Samplers[0].WrapS != gfx.WrapClampToEdge {
		t.Errorf("sampler = %+v", a.Samplers[0])
	}
}

func TestParseSkinnedTechniqueShared(t *testing.T) {
	a, err := Parse(assettest.SkinnedTwoBone())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	tech := a.TechniqueFor(a.Meshes[0].Primitives[0])
	if u, ok := tech.Uniforms["u_jointMatrix"]; !ok || u.Count != 2 || u.Semantic != "JOINTMATRIX" {
		t.Errorf("joint uniform = %+v", u)
	}
	if a.Materials[a.Meshes[0].Primitives[0].Material].Name != "default" {
		t.Error("primitive without material should get the default material")
	}

	ibms, err := a.InverseBindMatrices(0)
	if err != nil {
		t.Fatalf("InverseBindMatrices: %v", err)
	}
	if len(ibms) != 2 || ibms[1][13] != -1 {
		t.Errorf("ibm[1] = %v", ibms[1])
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"required extension", assettest.Triangle(assettest.Options{Required: []string{"KHR_draco_mesh_compression"}}), ErrUnsupportedExtension},
		{"version 1", assettest.Triangle(assettest.Options{Version: "1.0"}), ErrUnsupportedVersion},
		{"not json", []byte("{nope"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.data)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("want %v, got %v", tt.want, err)
			}
		})
	}
}

func TestParseRejectsBadIndices(t *testing.T) {
	setMaterial := func(doc map[string]any) {
		assettest.Path(doc, "meshes", 0, "primitives", 0)["material"] = 7
	}
	channel := func(doc map[string]any) map[string]any {
		return assettest.Path(doc, "animations", 0, "channels", 0)
	}
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"technique material", assettest.Edit(assettest.Triangle(assettest.Options{}), setMaterial), ErrInvalidIndex},
		{"core material", assettest.Edit(assettest.Triangle(assettest.Options{CoreMaterial: true}), setMaterial), ErrInvalidIndex},
		{"node mesh", assettest.Edit(assettest.Triangle(assettest.Options{}), func(doc map[string]any) {
			assettest.Path(doc, "nodes", 0)["mesh"] = 3
		}), ErrInvalidIndex},
		{"node child", assettest.Edit(assettest.Triangle(assettest.Options{}), func(doc map[string]any) {
			assettest.Path(doc, "nodes", 0)["children"] = []int{5}
		}), ErrInvalidIndex},
		{"channel node", assettest.Edit(assettest.Animated("LINEAR"), func(doc map[string]any) {
			channel(doc)["target"] = map[string]any{"node": 9, "path": "translation"}
		}), ErrInvalidIndex},
		{"sampler output", assettest.Edit(assettest.Animated("LINEAR"), func(doc map[string]any) {
			assettest.Path(doc, "animations", 0, "samplers", 0)["output"] = 12
		}), ErrInvalidIndex},
		{"scalar translation", assettest.Edit(assettest.Animated("LINEAR"), func(doc map[string]any) {
			assettest.Path(doc, "animations", 0, "samplers", 0)["output"] = 1
		}), ErrInvalidAccessor},
		{"vec3 rotation", assettest.Edit(assettest.Animated("LINEAR"), func(doc map[string]any) {
			channel(doc)["target"] = map[string]any{"node": 0, "path": "rotation"}
		}), ErrInvalidAccessor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.data)
			if !errors.Is(err, tt.want) {
				t.Errorf("want %v, got %v", tt.want, err)
			}
		})
	}
}

func TestParseKeepsAuthoredZeroTransforms(t *testing.T) {
	data := assettest.Edit(assettest.Triangle(assettest.Options{}), func(doc map[string]any) {
		n := assettest.Path(doc, "nodes", 0)
		n["scale"] = []float64{0, 0, 0}
		n["rotation"] = []float64{0, 0, 0, 0}
	})
	a, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	n := a.Nodes[0]
	if n.Scale != (math.Vec3{}) {
		t.Errorf("scale = %+v, want zero", n.Scale)
	}
	if n.Rotation != (math.Quat{}) {
		t.Errorf("rotation = %+v, want zero", n.Rotation)
	}

	a, err = Parse(assettest.Triangle(assettest.Options{}))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if n := a.Nodes[0]; n.Scale != (math.Vec3{X: 1, Y: 1, Z: 1}) || n.Rotation != math.QuatIdentity() {
		t.Errorf("absent transforms = %+v %+v, want defaults", n.Scale, n.Rotation)
	}
}

func TestParseAcceptsSupportedRequired(t *testing.T) {
	if _, err := Parse(assettest.Triangle(assettest.Options{Required: []string{ExtTechniquesWebGL}})); err != nil {
		t.Errorf("Parse: %v", err)
	}
}

func TestParseGLB(t *testing.T) {
	jsonDoc := []byte(`{
		"asset": {"version": "2.0"},
		"buffers": [{"byteLength": 104}],
		"bufferViews": [{"buffer": 0, "byteLength": 96}],
		"accessors": [{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"}],
		"meshes": [{"primitives": [{"attributes": {"POSITION": 0}}]}],
		"nodes": [{"mesh": 0}]
	}`)
	a, err := Parse(assettest.GLB(jsonDoc, assettest.Geometry()))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	lo, hi, err := a.PositionBounds(0)
	if err != nil {
		t.Fatalf("PositionBounds: %v", err)
	}
	if lo.X != 0 || hi.X != 1 || hi.Y != 1 || hi.Z != 0 {
		t.Errorf("bounds from data = %v %v", lo, hi)
	}
	if len(a.Roots) != 1 {
		t.Errorf("sceneless roots = %v", a.Roots)
	}
}

func TestExternalBufferNeedsData(t *testing.T) {
	a, err := Parse(assettest.Triangle(assettest.Options{BufferURI: "tri.bin", ShaderURIs: true}))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if a.Buffers[0].Embedded || a.Buffers[0].URI != "tri.bin" {
		t.Errorf("buffer = %+v", a.Buffers[0])
	}
	if a.Shaders[0].Source != "" || a.Shaders[0].URI != "tri.vert" {
		t.Errorf("external shader = %+v", a.Shaders[0])
	}
	if _, err := a.BufferViewData(0); err == nil {
		t.Error("view data should be unavailable before the buffer is set")
	}
	a.SetBufferData(0, assettest.Geometry())
	data, err := a.BufferViewData(1)
	if err != nil || len(data) != 6 {
		t.Errorf("index view: %d bytes, %v", len(data), err)
	}
}

func TestAnimationSamplerData(t *testing.T) {
	a, err := Parse(assettest.Animated("LINEAR"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(a.Animations) != 1 || a.Animations[0].Channels[0].Path != "translation" {
		t.Fatalf("animations = %+v", a.Animations)
	}
	times, values, n, err := a.AnimationSamplerData(0, 0)
	if err != nil {
		t.Fatalf("AnimationSamplerData: %v", err)
	}
	if len(times) != 2 || n != 3 || values[3] != 2 {
		t.Errorf("times=%v values=%v n=%d", times, values, n)
	}
}
