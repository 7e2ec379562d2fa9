package shadergen

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSynthesizeDefineOrder(t *testing.T) {
	p := Synthesize(testVS, testFS, 0, Features{
		PickColor:                      true,
		ImageBasedLightingFactor:       [2]float32{1, 1},
		LightColor:                     true,
		GammaCorrect:                   true,
		OctahedralCubeMaps:             true,
		SphericalHarmonics:             true,
		DefaultSpecularEnvironmentMaps: true,
		LuminanceAtZenith:              true,
	})
	fs := p.FragmentSource

	order := []string{
		"#define USE_SUN_LUMINANCE",
		"#define SPECULAR_IBL",
		"#define DIFFUSE_IBL",
		"#define CUSTOM_SPHERICAL_HARMONICS",
		"uniform mat4 gltf_clippingPlanesMatrix;",
		"#define USE_CUSTOM_LIGHT_COLOR",
		"#define USE_IBL_LIGHTING",
		"uniform vec4 czm_pickColor;",
		"void non_gamma_corrected_main()",
		"gl_FragColor = czm_gammaCorrect(gl_FragColor);",
	}
	last := -1
	for _, s := range order {
		i := strings.Index(fs, s)
		if i < 0 {
			t.Fatalf("missing %q in\n%s", s, fs)
		}
		if i < last {
			t.Errorf("%q out of order", s)
		}
		last = i
	}
	if strings.Contains(fs, "CUSTOM_SPECULAR_IBL") {
		t.Error("default specular maps should not declare custom ones")
	}
	if !strings.Contains(fs, "vec4 czm_gammaCorrect(vec4 color)") {
		t.Error("gamma function should be resolved")
	}
}

func TestSynthesizeMinimal(t *testing.T) {
	p := Synthesize(testVS, testFS, 0, Features{})
	if p.VertexSource != testVS || p.FragmentSource != testFS {
		t.Error("no features should leave sources untouched")
	}
}

func TestSynthesizeNoOctahedral(t *testing.T) {
	p := Synthesize(testVS, testFS, 0, Features{SphericalHarmonics: true, LuminanceAtZenith: true})
	if strings.Contains(p.FragmentSource, "DIFFUSE_IBL") {
		t.Error("IBL defines require octahedral cube map support")
	}
	if !strings.Contains(p.FragmentSource, "USE_SUN_LUMINANCE") {
		t.Error("luminance define is independent of cube map support")
	}
}

func TestSynthesizeClippingSkipsExtraMatrix(t *testing.T) {
	p := Synthesize(testVS, testFS, 0, Features{
		Clipping:                  ClippingState{Enabled: true, Count: 1},
		OctahedralCubeMaps:        true,
		DefaultSphericalHarmonics: true,
	})
	if n := strings.Count(p.FragmentSource, "uniform mat4 gltf_clippingPlanesMatrix;"); n != 1 {
		t.Errorf("clipping matrix declared %d times", n)
	}
}

func TestSynthesizeHooksAndCustomShader(t *testing.T) {
	var seen []int
	hook := func(src string, id int) string {
		seen = append(seen, id)
		return "// hooked\n" + src
	}
	cs := NewCustomShader(CustomShaderOptions{
		FragmentShader: "void main() { gltf_custom_main(); gl_FragColor.r = 1.0; }",
	})
	snap := cs.Snapshot()
	p := Synthesize(testVS, testFS, 7, Features{
		Color:        true,
		VertexHook:   hook,
		FragmentHook: hook,
		Custom:       &snap,
	})

	if len(seen) != 2 || seen[0] != 7 {
		t.Errorf("hooks saw %v", seen)
	}
	fs := p.FragmentSource
	if !strings.HasPrefix(fs, "// hooked") {
		t.Error("fragment hook should run on the color-modified source")
	}
	for _, want := range []string{"void gltf_blend_main()", "void gltf_custom_main()", "gl_FragColor.r = 1.0;"} {
		if !strings.Contains(fs, want) {
			t.Errorf("fragment missing %q", want)
		}
	}
	if strings.Count(fs, "void main()") != 1 {
		t.Errorf("expected one main:\n%s", fs)
	}
	if !strings.Contains(p.VertexSource, "void gltf_custom_main()") {
		t.Error("default vertex custom shader should wrap main")
	}
}

func TestCustomShaderRevisions(t *testing.T) {
	cs := NewCustomShader(CustomShaderOptions{})
	if cs.Key() == "" {
		t.Fatal("expected generated key")
	}
	if other := NewCustomShader(CustomShaderOptions{}); other.Key() == cs.Key() {
		t.Error("generated keys should differ")
	}

	mutations := []struct {
		name string
		fn   func()
	}{
		{"SetVertexShader", func() { cs.SetVertexShader("void main(){ gltf_custom_main(); }") }},
		{"SetFragmentShader", func() { cs.SetFragmentShader("void main(){ gltf_custom_main(); }") }},
		{"Clear", cs.Clear},
		{"SetEnabled", func() { cs.SetEnabled(false) }},
	}
	for _, m := range mutations {
		t.Run(m.name, func(t *testing.T) {
			before := cs.Revision()
			m.fn()
			if after := cs.Revision(); after <= before {
				t.Errorf("revision %d -> %d, want increase", before, after)
			}
		})
	}
}

func TestCustomShaderDisabled(t *testing.T) {
	cs := NewCustomShader(CustomShaderOptions{Key: "k", VertexShader: "vs", FragmentShader: "fs"})
	cs.SetEnabled(false)
	if cs.VertexShader() != DefaultShader || cs.FragmentShader() != DefaultShader {
		t.Error("disabled shader should return the default sources")
	}
	snap := cs.Snapshot()
	if snap.FragmentShader != DefaultShader {
		t.Error("snapshot should reflect enabled state")
	}
	cs.SetEnabled(true)
	if cs.FragmentShader() != "fs" {
		t.Errorf("FragmentShader = %q", cs.FragmentShader())
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	a := r.Register(NewCustomShader(CustomShaderOptions{Key: "tank.gltf"}))
	got, ok := r.Lookup("tank.gltf")
	if !ok || got != a {
		t.Fatal("lookup failed")
	}

	b := r.Register(NewCustomShader(CustomShaderOptions{Key: "tank.gltf"}))
	if b.Revision() == a.Revision() {
		t.Error("replacement shader should carry a new revision")
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d", r.Len())
	}
	r.Remove("tank.gltf")
	if _, ok := r.Lookup("tank.gltf"); ok {
		t.Error("shader should be removed")
	}

	var nilRegistry *Registry
	if _, ok := nilRegistry.Lookup("x"); ok {
		t.Error("nil registry has nothing")
	}
}

func TestWatcherReloads(t *testing.T) {
	dir := t.TempDir()
	fsPath := filepath.Join(dir, "custom.frag")
	if err := os.WriteFile(fsPath, []byte("void main(){ gltf_custom_main(); }"), 0o644); err != nil {
		t.Fatal(err)
	}

	cs := NewCustomShader(CustomShaderOptions{Key: "watched"})
	w, err := NewWatcher(cs, "", fsPath)
	if err != nil {
		t.Skipf("file watching unavailable: %v", err)
	}
	if !strings.Contains(cs.FragmentShader(), "gltf_custom_main") {
		t.Fatal("initial load failed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	want := "void main(){ gltf_custom_main(); gl_FragColor.g = 0.0; }"
	if err := os.WriteFile(fsPath, []byte(want), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cs.FragmentShader() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("fragment shader not reloaded: %q", cs.FragmentShader())
}
