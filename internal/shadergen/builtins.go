package shadergen

import (
	"regexp"
	"strings"
)

// Automatic uniforms the draw command submitter binds by name.
var builtinUniforms = []struct{ name, decl string }{
	{"czm_model", "uniform mat4 czm_model;"},
	{"czm_view", "uniform mat4 czm_view;"},
	{"czm_projection", "uniform mat4 czm_projection;"},
	{"czm_inverseProjection", "uniform mat4 czm_inverseProjection;"},
	{"czm_modelView", "uniform mat4 czm_modelView;"},
	{"czm_modelViewProjection", "uniform mat4 czm_modelViewProjection;"},
	{"czm_normal3D", "uniform mat3 czm_normal3D;"},
	{"czm_viewport", "uniform vec4 czm_viewport;"},
	{"czm_pixelRatio", "uniform float czm_pixelRatio;"},
}

// Built-in functions in dependency order, with the uniforms they pull in.
var builtinFunctions = []struct {
	name string
	uses []string
	body string
}{
	{
		name: "czm_gammaCorrect",
		body: `vec3 czm_gammaCorrect(vec3 color)
{
    return pow(color, vec3(1.0 / 2.2));
}
vec4 czm_gammaCorrect(vec4 color)
{
    return vec4(pow(color.rgb, vec3(1.0 / 2.2)), color.a);
}
`,
	},
	{
		name: "czm_windowToEyeCoordinates",
		uses: []string{"czm_viewport", "czm_inverseProjection"},
		body: `vec4 czm_windowToEyeCoordinates(vec4 fragmentCoordinate)
{
    vec2 ndc = (fragmentCoordinate.xy - czm_viewport.xy) / czm_viewport.zw * 2.0 - 1.0;
    vec4 q = czm_inverseProjection * vec4(ndc, fragmentCoordinate.z * 2.0 - 1.0, 1.0);
    return q / q.w;
}
`,
	},
}

var declaredRe = regexp.MustCompile(`uniform\s+\w+\s+(czm_\w+)`)

// ResolveBuiltins prepends the declarations of every czm_ uniform and
// function referenced by src that src does not declare itself.
func ResolveBuiltins(src string) string {
	declared := map[string]bool{}
	for _, m := range declaredRe.FindAllStringSubmatch(src, -1) {
		declared[m[1]] = true
	}

	needed := map[string]bool{}
	var funcs strings.Builder
	for _, f := range builtinFunctions {
		if !references(src, f.name) || defines(src, f.name) {
			continue
		}
		funcs.WriteString(f.body)
		for _, u := range f.uses {
			needed[u] = true
		}
	}

	var uniforms strings.Builder
	for _, u := range builtinUniforms {
		if declared[u.name] || !(needed[u.name] || references(src, u.name)) {
			continue
		}
		uniforms.WriteString(u.decl)
		uniforms.WriteByte('\n')
	}

	if funcs.Len() == 0 && uniforms.Len() == 0 {
		return src
	}
	return "#ifdef GL_ES\nprecision highp float;\n#endif\n" + uniforms.String() + funcs.String() + src
}

func defines(src, name string) bool {
	return regexp.MustCompile(`(?:float|vec[234]|void)\s+` + name + `\s*\(\s*\w`).MatchString(src)
}

func references(src, name string) bool {
	i := strings.Index(src, name)
	for i >= 0 {
		end := i + len(name)
		if end == len(src) || !isIdent(src[end]) {
			if i == 0 || !isIdent(src[i-1]) {
				return true
			}
		}
		next := strings.Index(src[end:], name)
		if next < 0 {
			return false
		}
		i = end + next
	}
	return false
}

func isIdent(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
