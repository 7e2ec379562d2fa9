package shadergen

import (
	"fmt"
	"regexp"
	"strings"
)

// QuantizedAttribute is a vertex attribute stored quantized and decoded in
// the vertex shader.
type QuantizedAttribute struct {
	// Variable is the attribute name in the shader, e.g. a_position.
	Variable string
	// Semantic is the mesh attribute semantic, e.g. POSITION.
	Semantic string
	// DecodeMatrix is the column-major (n+1)x(n+1) decode matrix.
	DecodeMatrix []float32
}

// DecodeUniform is a uniform added by ModifyForQuantizedAttributes.
type DecodeUniform struct {
	Name string
	// Type is a GLSL type: mat2, mat3, mat4 or vec4.
	Type  string
	Value []float32
}

// ModifyForQuantizedAttributes rewrites vs so every quantized attribute is
// decoded before the original main runs. Attributes whose declaration or
// decode matrix does not line up are left untouched.
func ModifyForQuantizedAttributes(vs string, attrs []QuantizedAttribute) (string, []DecodeUniform) {
	var uniforms []DecodeUniform
	for _, attr := range attrs {
		declRe := regexp.MustCompile(`attribute\s+(float|vec[234])\s+` + regexp.QuoteMeta(attr.Variable) + `\s*;`)
		loc := declRe.FindStringSubmatchIndex(vs)
		if loc == nil {
			continue
		}
		glslType := vs[loc[2]:loc[3]]
		size := 1
		if glslType != "float" {
			size = int(glslType[3] - '0')
		}
		dim := size + 1
		if len(attr.DecodeMatrix) != dim*dim {
			continue
		}

		decoded := DecodedName(attr.Variable)
		uniform := "gltf_u_dec_" + strings.ToLower(attr.Semantic)
		useRe := regexp.MustCompile(`\b` + regexp.QuoteMeta(attr.Variable) + `\b`)
		vs = useRe.ReplaceAllLiteralString(vs[:loc[0]], decoded) +
			vs[loc[0]:loc[1]] +
			useRe.ReplaceAllLiteralString(vs[loc[1]:], decoded)

		var decode string
		var header string
		if size == 4 {
			scale := make([]float32, 4)
			translate := make([]float32, 4)
			for i := 0; i < 4; i++ {
				scale[i] = attr.DecodeMatrix[i*dim+i]
				translate[i] = attr.DecodeMatrix[4*dim+i]
			}
			uniforms = append(uniforms,
				DecodeUniform{Name: uniform + "_scale", Type: "vec4", Value: scale},
				DecodeUniform{Name: uniform + "_translate", Type: "vec4", Value: translate},
			)
			header = fmt.Sprintf("uniform vec4 %s_scale;\nuniform vec4 %s_translate;\n", uniform, uniform)
			decode = fmt.Sprintf("%s * %s_scale + %s_translate", attr.Variable, uniform, uniform)
		} else {
			matType := fmt.Sprintf("mat%d", dim)
			uniforms = append(uniforms, DecodeUniform{
				Name:  uniform,
				Type:  matType,
				Value: append([]float32(nil), attr.DecodeMatrix...),
			})
			header = fmt.Sprintf("uniform %s %s;\n", matType, uniform)
			swizzle := "xyz"[:size]
			decode = fmt.Sprintf("(%s * vec%d(%s, 1.0)).%s", uniform, dim, attr.Variable, swizzle)
		}

		next := "gltf_decoded_" + strings.ToLower(attr.Semantic)
		vs = fmt.Sprintf("%s %s;\n%s", glslType, decoded, header) + ReplaceMain(vs, next) +
			fmt.Sprintf("\nvoid main()\n{\n    %s = %s;\n    %s();\n}\n", decoded, decode, next)
	}
	return vs, uniforms
}

// DecodedName is the shader variable holding the decoded value of variable.
func DecodedName(variable string) string {
	if rest, ok := strings.CutPrefix(variable, "a_"); ok {
		return "gltf_a_dec_" + rest
	}
	return "gltf_a_dec_" + variable
}
