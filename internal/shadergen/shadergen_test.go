package shadergen

import (
	"strings"
	"testing"
)

const testVS = `precision highp float;
attribute vec3 a_position;
attribute vec3 a_normal;
attribute vec2 a_texcoord_0;
varying vec2 v_uv;
void main(void) {
    v_uv = a_texcoord_0;
    gl_Position = vec4(a_position + a_normal * 0.0, 1.0);
}
`

const testFS = `precision highp float;
varying vec2 v_uv;
void main(void) {
    gl_FragColor = vec4(v_uv, 0.0, 1.0);
}
`

func TestReplaceMain(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"void main() {}", "void renamed() {}"},
		{"void main(void) {}", "void renamed() {}"},
		{"void  main ( ) {}", "void renamed() {}"},
		{"void domain() {}", "void domain() {}"},
	}
	for _, tt := range tests {
		if got := ReplaceMain(tt.src, "renamed"); got != tt.want {
			t.Errorf("ReplaceMain(%q) = %q, want %q", tt.src, got, tt.want)
		}
	}
}

func TestColorBlend(t *testing.T) {
	tests := []struct {
		mode   ColorBlendMode
		amount float32
		want   float32
	}{
		{BlendHighlight, 0.7, 0},
		{BlendReplace, 0.2, 1},
		{BlendMix, 0.5, 0.5},
		{BlendMix, 0, 1e-4},
		{BlendMix, 3, 1},
	}
	for _, tt := range tests {
		if got := ColorBlend(tt.mode, tt.amount); got != tt.want {
			t.Errorf("ColorBlend(%v, %v) = %v, want %v", tt.mode, tt.amount, got, tt.want)
		}
	}

	if _, err := ParseColorBlendMode("sparkle"); err == nil {
		t.Error("expected error for unknown mode")
	}
	if m, _ := ParseColorBlendMode("mix"); m != BlendMix {
		t.Errorf("ParseColorBlendMode(mix) = %v", m)
	}
}

func TestModifyForColor(t *testing.T) {
	fs := ModifyForColor(testFS)
	for _, want := range []string{"void gltf_blend_main()", "uniform vec4 gltf_color;", "uniform float gltf_colorBlend;", "gltf_blend_main();"} {
		if !strings.Contains(fs, want) {
			t.Errorf("missing %q", want)
		}
	}
	if strings.Count(fs, "void main()") != 1 {
		t.Errorf("expected exactly one main:\n%s", fs)
	}
}

func TestClippingState(t *testing.T) {
	off := ClippingState{Enabled: false, Count: 2}
	if ModifyForClippingPlanes(testFS, off) != testFS {
		t.Error("disabled clipping must not change the shader")
	}

	a := ClippingState{Enabled: true, Count: 2}
	b := ClippingState{Enabled: true, Count: 2, Union: true}
	c := ClippingState{Enabled: true, Count: 3}
	if a.Hash() == b.Hash() || a.Hash() == c.Hash() {
		t.Error("distinct states should hash differently")
	}
	if a.Hash() != (ClippingState{Enabled: true, Count: 2}).Hash() {
		t.Error("equal states should hash equally")
	}

	fs := ModifyForClippingPlanes(testFS, a)
	for _, want := range []string{"uniform vec4 gltf_clippingPlanes[2];", "gltf_clip_main();", "bool clipped = false;", "clipped || "} {
		if !strings.Contains(fs, want) {
			t.Errorf("missing %q", want)
		}
	}
	if fs := ModifyForClippingPlanes(testFS, b); !strings.Contains(fs, "clipped && ") {
		t.Error("union clipping should require every plane to clip")
	}
}

func TestModifyForQuantizedAttributes(t *testing.T) {
	mat4 := []float32{2, 0, 0, 0, 0, 2, 0, 0, 0, 0, 2, 0, 1, 1, 1, 1}
	mat3 := []float32{0.5, 0, 0, 0, 0.5, 0, 0.25, 0.25, 1}
	vs, uniforms := ModifyForQuantizedAttributes(testVS, []QuantizedAttribute{
		{Variable: "a_position", Semantic: "POSITION", DecodeMatrix: mat4},
		{Variable: "a_texcoord_0", Semantic: "TEXCOORD_0", DecodeMatrix: mat3},
		{Variable: "a_normal", Semantic: "NORMAL", DecodeMatrix: mat3},
	})

	if len(uniforms) != 2 {
		t.Fatalf("uniforms = %d, want 2 (normal matrix has the wrong size)", len(uniforms))
	}
	if uniforms[0].Name != "gltf_u_dec_position" || uniforms[0].Type != "mat4" {
		t.Errorf("uniform[0] = %+v", uniforms[0])
	}
	if uniforms[1].Name != "gltf_u_dec_texcoord_0" || uniforms[1].Type != "mat3" {
		t.Errorf("uniform[1] = %+v", uniforms[1])
	}

	for _, want := range []string{
		"attribute vec3 a_position;",
		"vec3 gltf_a_dec_position;",
		"uniform mat4 gltf_u_dec_position;",
		"gltf_a_dec_position = (gltf_u_dec_position * vec4(a_position, 1.0)).xyz;",
		"gltf_a_dec_texcoord_0 = (gltf_u_dec_texcoord_0 * vec3(a_texcoord_0, 1.0)).xy;",
		"v_uv = gltf_a_dec_texcoord_0;",
		"void gltf_decoded_position()",
		"gltf_decoded_texcoord_0();",
	} {
		if !strings.Contains(vs, want) {
			t.Errorf("missing %q in\n%s", want, vs)
		}
	}
	if !strings.Contains(vs, "a_normal * 0.0") {
		t.Error("unmodified attribute should keep its uses")
	}
	if strings.Count(vs, "void main()") != 1 {
		t.Errorf("expected one main:\n%s", vs)
	}
}

func TestQuantizedVec4UsesScaleTranslate(t *testing.T) {
	src := "attribute vec4 a_color;\nvarying vec4 v_color;\nvoid main() { v_color = a_color; }\n"
	m := make([]float32, 25)
	for i := 0; i < 5; i++ {
		m[i*5+i] = float32(i + 1)
	}
	m[20], m[21], m[22], m[23] = 9, 8, 7, 6
	vs, uniforms := ModifyForQuantizedAttributes(src, []QuantizedAttribute{{Variable: "a_color", Semantic: "COLOR_0", DecodeMatrix: m}})
	if len(uniforms) != 2 {
		t.Fatalf("uniforms = %+v", uniforms)
	}
	if got := uniforms[0].Value; got[0] != 1 || got[3] != 4 {
		t.Errorf("scale = %v", got)
	}
	if got := uniforms[1].Value; got[0] != 9 || got[3] != 6 {
		t.Errorf("translate = %v", got)
	}
	if !strings.Contains(vs, "gltf_a_dec_color = a_color * gltf_u_dec_color_0_scale + gltf_u_dec_color_0_translate;") {
		t.Errorf("unexpected decode:\n%s", vs)
	}
}

func TestResolveBuiltins(t *testing.T) {
	src := "uniform mat4 czm_projection;\nvoid main() { gl_FragColor = czm_gammaCorrect(vec4(1.0)); gl_Position = czm_projection * czm_viewport; }"
	out := ResolveBuiltins(src)
	if strings.Count(out, "uniform mat4 czm_projection;") != 1 {
		t.Error("declared uniform must not be redeclared")
	}
	if !strings.Contains(out, "uniform vec4 czm_viewport;") {
		t.Error("czm_viewport should be declared")
	}
	if !strings.Contains(out, "vec4 czm_gammaCorrect(vec4 color)") {
		t.Error("czm_gammaCorrect should be defined")
	}
	if strings.Contains(out, "czm_inverseProjection") {
		t.Error("unused builtins should not be added")
	}
	if again := ResolveBuiltins(out); strings.Count(again, "vec4 czm_gammaCorrect(vec4 color)") != 1 {
		t.Error("resolving twice should not duplicate functions")
	}
	if plain := "void main() {}"; ResolveBuiltins(plain) != plain {
		t.Error("shader without builtins should be unchanged")
	}
}

func TestSilhouetteProgram(t *testing.T) {
	p := SilhouetteProgram(testVS, "a_normal")
	for _, want := range []string{"gltf_silhouette_main();", "czm_normal3D * a_normal", "uniform float gltf_silhouetteSize;", "uniform mat3 czm_normal3D;"} {
		if !strings.Contains(p.VertexSource, want) {
			t.Errorf("vertex missing %q", want)
		}
	}
	if !strings.Contains(p.FragmentSource, "uniform vec4 gltf_silhouetteColor;") {
		t.Error("fragment missing silhouette color")
	}
}
