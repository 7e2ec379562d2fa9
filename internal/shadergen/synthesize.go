package shadergen

import "strings"

// Hook rewrites a shader stage after it is loaded from the asset.
type Hook func(source string, programID int) string

// Features selects what a program variant contains.
type Features struct {
	// Quantized attributes decoded in the vertex shader.
	Quantized []QuantizedAttribute

	// Color enables gltf_color blending.
	Color    bool
	Clipping ClippingState

	VertexHook   Hook
	FragmentHook Hook

	// Custom is the custom shader snapshot spliced into both stages.
	Custom *Snapshot

	// PickColor declares czm_pickColor. It is off when the caller supplies
	// its own uniform map hook.
	PickColor bool

	ImageBasedLightingFactor [2]float32
	LightColor               bool
	// GammaCorrect wraps the fragment main with czm_gammaCorrect.
	GammaCorrect bool

	OctahedralCubeMaps             bool
	SphericalHarmonics             bool
	DefaultSphericalHarmonics      bool
	SpecularEnvironmentMaps        bool
	DefaultSpecularEnvironmentMaps bool
	LuminanceAtZenith              bool
}

// UsesImageBasedLighting reports whether either IBL factor is positive.
func (f Features) UsesImageBasedLighting() bool {
	return f.ImageBasedLightingFactor[0] > 0 || f.ImageBasedLightingFactor[1] > 0
}

// Program is a synthesized variant ready to compile.
type Program struct {
	VertexSource   string
	FragmentSource string
	DecodeUniforms []DecodeUniform
}

// Synthesize builds the variant of the vs/fs pair described by f.
func Synthesize(vs, fs string, programID int, f Features) Program {
	var decode []DecodeUniform
	if len(f.Quantized) > 0 {
		vs, decode = ModifyForQuantizedAttributes(vs, f.Quantized)
	}

	if f.Color {
		fs = ModifyForColor(fs)
	}
	clipping := f.Clipping.Active()
	if clipping {
		fs = ModifyForClippingPlanes(fs, f.Clipping)
	}

	if f.VertexHook != nil {
		vs = f.VertexHook(vs, programID)
	}
	if f.FragmentHook != nil {
		fs = f.FragmentHook(fs, programID)
	}

	if f.Custom != nil {
		if f.Custom.FragmentShader != "" {
			fs = ReplaceMain(fs, CustomEntryPoint) + "\n" + f.Custom.FragmentShader
		}
		if f.Custom.VertexShader != "" {
			vs = ReplaceMain(vs, CustomEntryPoint) + "\n" + f.Custom.VertexShader
		}
	}

	if f.PickColor {
		fs = "uniform vec4 czm_pickColor;\n" + fs
	}

	ibl := f.UsesImageBasedLighting()
	if ibl {
		fs = "#define USE_IBL_LIGHTING \n\n" + fs
	}
	if f.LightColor {
		fs = "#define USE_CUSTOM_LIGHT_COLOR \n\n" + fs
	}

	if f.GammaCorrect {
		fs = ReplaceMain(fs, "non_gamma_corrected_main") + `
void main() {
    non_gamma_corrected_main();
    gl_FragColor = czm_gammaCorrect(gl_FragColor);
}
`
	}

	if f.OctahedralCubeMaps {
		usesSH := f.SphericalHarmonics || f.DefaultSphericalHarmonics
		usesSM := f.SpecularEnvironmentMaps || f.DefaultSpecularEnvironmentMaps
		if !clipping && (usesSH || usesSM || ibl) {
			fs = "uniform mat4 gltf_clippingPlanesMatrix; \n" + fs
		}

		var b strings.Builder
		switch {
		case f.SphericalHarmonics:
			b.WriteString("#define DIFFUSE_IBL \n#define CUSTOM_SPHERICAL_HARMONICS \n")
			b.WriteString("uniform vec3 gltf_sphericalHarmonicCoefficients[9]; \n")
		case f.DefaultSphericalHarmonics:
			b.WriteString("#define DIFFUSE_IBL \n")
		}
		fs = b.String() + fs

		b.Reset()
		switch {
		case f.SpecularEnvironmentMaps:
			b.WriteString("#define SPECULAR_IBL \n#define CUSTOM_SPECULAR_IBL \n")
			b.WriteString("uniform sampler2D gltf_specularMap; \n")
			b.WriteString("uniform vec2 gltf_specularMapSize; \n")
			b.WriteString("uniform float gltf_maxSpecularLOD; \n")
		case f.DefaultSpecularEnvironmentMaps:
			b.WriteString("#define SPECULAR_IBL \n")
		}
		fs = b.String() + fs
	}

	if f.LuminanceAtZenith {
		fs = "#define USE_SUN_LUMINANCE \nuniform float gltf_luminanceAtZenith;\n" + fs
	}

	return Program{
		VertexSource:   ResolveBuiltins(vs),
		FragmentSource: ResolveBuiltins(fs),
		DecodeUniforms: decode,
	}
}

// SilhouetteProgram derives the silhouette color pass sources from an
// already synthesized vertex stage.
func SilhouetteProgram(vs, normalAttribute string) Program {
	return Program{
		VertexSource:   ResolveBuiltins(ModifyForSilhouette(vs, normalAttribute)),
		FragmentSource: ResolveBuiltins(SilhouetteFragment),
	}
}
