// Package shadergen rewrites asset GLSL into the program variants a model
// actually draws with: color blending, clipping planes, dequantization,
// silhouettes, custom shaders and the lighting defines.
//
// All functions are pure string transforms; compiling the result is the
// graphics context's job.
package shadergen

import (
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"
)

var mainRe = regexp.MustCompile(`\bvoid\s+main\s*\(\s*(?:void)?\s*\)`)

// ReplaceMain renames the entry point of src so a wrapper main can call it.
func ReplaceMain(src, name string) string {
	return mainRe.ReplaceAllLiteralString(src, "void "+name+"()")
}

// HasMain reports whether src defines a main function.
func HasMain(src string) bool {
	return mainRe.MatchString(src)
}

// ColorBlendMode controls how the model color combines with the shaded color.
type ColorBlendMode int

const (
	// BlendHighlight multiplies the source color by the model color.
	BlendHighlight ColorBlendMode = iota
	// BlendReplace replaces the source color with the model color.
	BlendReplace
	// BlendMix mixes both by the blend amount.
	BlendMix
)

func (m ColorBlendMode) String() string {
	switch m {
	case BlendReplace:
		return "REPLACE"
	case BlendMix:
		return "MIX"
	default:
		return "HIGHLIGHT"
	}
}

// ParseColorBlendMode accepts HIGHLIGHT, REPLACE and MIX in any case.
func ParseColorBlendMode(s string) (ColorBlendMode, error) {
	switch strings.ToUpper(s) {
	case "", "HIGHLIGHT":
		return BlendHighlight, nil
	case "REPLACE":
		return BlendReplace, nil
	case "MIX":
		return BlendMix, nil
	}
	return BlendHighlight, fmt.Errorf("shadergen: unknown color blend mode %q", s)
}

// ColorBlend is the value of the gltf_colorBlend uniform. MIX never yields
// zero so it stays distinguishable from HIGHLIGHT in the shader.
func ColorBlend(mode ColorBlendMode, amount float32) float32 {
	switch mode {
	case BlendReplace:
		return 1
	case BlendMix:
		const eps = 1e-4
		if amount < eps {
			return eps
		}
		if amount > 1 {
			return 1
		}
		return amount
	default:
		return 0
	}
}

// ModifyForColor wraps fs so its output is blended with gltf_color.
func ModifyForColor(fs string) string {
	return ReplaceMain(fs, "gltf_blend_main") + `
uniform vec4 gltf_color;
uniform float gltf_colorBlend;
void main()
{
    gltf_blend_main();
    gl_FragColor.rgb = mix(gl_FragColor.rgb, gltf_color.rgb, gltf_colorBlend);
    float highlight = ceil(gltf_colorBlend);
    gl_FragColor.rgb *= mix(gltf_color.rgb, vec3(1.0), highlight);
    gl_FragColor.a *= gltf_color.a;
}
`
}

// ClippingState is the part of a clipping plane collection that shapes the
// generated code. Plane values themselves are uniforms.
type ClippingState struct {
	Enabled bool
	Count   int
	Union   bool
}

// Active reports whether clipping code must be generated.
func (s ClippingState) Active() bool {
	return s.Enabled && s.Count > 0
}

// Hash identifies the state; programs are regenerated when it changes.
func (s ClippingState) Hash() uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%t:%d:%t", s.Active(), s.Count, s.Union)
	return h.Sum64()
}

// ModifyForClippingPlanes wraps fs with a clip test against state.Count
// planes given in model space through gltf_clippingPlanesMatrix.
func ModifyForClippingPlanes(fs string, state ClippingState) string {
	if !state.Active() {
		return fs
	}

	var b strings.Builder
	b.WriteString(ReplaceMain(fs, "gltf_clip_main"))
	fmt.Fprintf(&b, "\nuniform vec4 gltf_clippingPlanes[%d];\n", state.Count)
	b.WriteString("uniform mat4 gltf_clippingPlanesMatrix;\n")
	b.WriteString("uniform vec4 gltf_clippingPlanesEdgeStyle;\n")
	b.WriteString(clipFunction(state))
	b.WriteString(`void main()
{
    gltf_clip_main();
    float clipDistance = gltf_clip(czm_windowToEyeCoordinates(gl_FragCoord).xyz);
    vec4 clippingPlanesEdgeColor = vec4(1.0);
    clippingPlanesEdgeColor.rgb = gltf_clippingPlanesEdgeStyle.rgb;
    float clippingPlanesEdgeWidth = gltf_clippingPlanesEdgeStyle.a;
    if (clipDistance > 0.0 && clipDistance < clippingPlanesEdgeWidth)
    {
        gl_FragColor = clippingPlanesEdgeColor;
    }
}
`)
	return b.String()
}

// clipFunction discards fragments outside the planes. Union keeps a fragment
// on the inside of any plane, otherwise it must be inside all of them.
func clipFunction(state ClippingState) string {
	var b strings.Builder
	b.WriteString("float gltf_clip(vec3 positionEC)\n{\n")
	fmt.Fprintf(&b, "    bool clipped = %t;\n", state.Union)
	b.WriteString("    float clipAmount = 0.0;\n")
	fmt.Fprintf(&b, "    for (int i = 0; i < %d; ++i)\n    {\n", state.Count)
	b.WriteString("        vec4 plane = gltf_clippingPlanes[i];\n")
	b.WriteString("        vec3 normal = normalize((gltf_clippingPlanesMatrix * vec4(plane.xyz, 0.0)).xyz);\n")
	b.WriteString("        vec3 point = (gltf_clippingPlanesMatrix * vec4(-plane.xyz * plane.w, 1.0)).xyz;\n")
	b.WriteString("        float amount = dot(normal, positionEC - point);\n")
	b.WriteString("        clipAmount = max(amount, clipAmount);\n")
	if state.Union {
		b.WriteString("        clipped = clipped && (amount <= 0.0);\n")
	} else {
		b.WriteString("        clipped = clipped || (amount <= 0.0);\n")
	}
	b.WriteString("    }\n")
	b.WriteString("    if (clipped)\n    {\n        discard;\n    }\n")
	b.WriteString("    return clipAmount;\n}\n")
	return b.String()
}

// ModifyForSilhouette inflates the vertex position along the normal by
// gltf_silhouetteSize pixels.
func ModifyForSilhouette(vs, normalAttribute string) string {
	return ReplaceMain(vs, "gltf_silhouette_main") + `
uniform float gltf_silhouetteSize;
void main()
{
    gltf_silhouette_main();
    vec3 n = normalize(czm_normal3D * ` + normalAttribute + `);
    n.x *= czm_projection[0][0];
    n.y *= czm_projection[1][1];
    vec4 clip = gl_Position;
    clip.xy += n.xy * clip.w * gltf_silhouetteSize * czm_pixelRatio / czm_viewport.z;
    gl_Position = clip;
}
`
}

// SilhouetteFragment is the fragment stage of the silhouette color pass.
const SilhouetteFragment = `uniform vec4 gltf_silhouetteColor;
void main()
{
    gl_FragColor = czm_gammaCorrect(gltf_silhouetteColor);
}
`
